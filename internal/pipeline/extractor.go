package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"resume-processor/internal/completion"
	"resume-processor/internal/resumes"
)

// Sentinel value the completion is instructed to use for missing fields.
const FieldSentinel = "N/A"

// ErrNoIdentity is returned when the resume yields no usable identity
// field at all; an all-sentinel record must not proceed downstream.
var ErrNoIdentity = errors.New("no extractable identity fields")

const extractorSystemPrompt = "You are an AI NLP Resume Extractor to JSON. " +
	"Your job is to fill the required fields on the function extract_resume with information from the provided resume. " +
	"Use 'N/A' for missing fields."

var extractionSchema = completion.Schema{
	Name:        "extract_resume",
	Description: "Extract structured data from resume. Use 'N/A' for missing fields.",
	Parameters: json.RawMessage(`{
  "type": "object",
  "properties": {
    "personalInformation": {
      "type": "object",
      "properties": {
        "firstName": {"type": "string"},
        "lastName": {"type": "string"},
        "middleName": {"type": "string"},
        "dateOfBirth": {"type": "string"}
      },
      "required": ["firstName", "lastName"]
    },
    "contactInformation": {
      "type": "object",
      "properties": {
        "email": {"type": "string"},
        "phone": {"type": "string"},
        "address": {
          "type": "object",
          "properties": {
            "street": {"type": "string"},
            "city": {"type": "string"},
            "state": {"type": "string"},
            "zip": {"type": "string"}
          }
        }
      },
      "required": ["email", "phone"]
    },
    "education": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "institution": {"type": "string"},
          "degree": {"type": "string"},
          "fieldOfStudy": {"type": "string"},
          "graduationDate": {"type": "string"}
        }
      }
    },
    "workExperience": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "employer": {"type": "string"},
          "position": {"type": "string"},
          "startDate": {"type": "string"},
          "endDate": {"type": "string"},
          "responsibilities": {"type": "string"}
        }
      }
    },
    "skills": {"type": "array", "items": {"type": "string"}}
  },
  "required": ["personalInformation", "contactInformation", "education", "workExperience", "skills"]
}`),
}

// Extractor wraps the completion client with the fixed extraction prompt
// and output contract.
type Extractor struct {
	Client completion.Client
}

// Extract turns raw resume text into the structured record. Missing
// fields are normalized to the sentinel rather than failing, except when
// every identity field is absent.
func (e *Extractor) Extract(ctx context.Context, rawText string) (resumes.ExtractedData, error) {
	if strings.TrimSpace(rawText) == "" {
		return resumes.ExtractedData{}, fmt.Errorf("raw text is empty")
	}

	resp, err := e.Client.Complete(ctx, completion.Request{
		System:      extractorSystemPrompt,
		User:        "Resume:\n" + rawText,
		Schema:      &extractionSchema,
		Temperature: 0.3,
	})
	if err != nil {
		return resumes.ExtractedData{}, err
	}
	if len(resp.Arguments) == 0 {
		return resumes.ExtractedData{}, errors.New("no extraction result returned")
	}

	var data resumes.ExtractedData
	if err := json.Unmarshal(resp.Arguments, &data); err != nil {
		return resumes.ExtractedData{}, fmt.Errorf("extraction output invalid: %w", err)
	}

	normalizeExtracted(&data)

	if !hasIdentity(data) {
		return resumes.ExtractedData{}, ErrNoIdentity
	}
	return data, nil
}

func normalizeExtracted(data *resumes.ExtractedData) {
	data.PersonalInformation.FirstName = orSentinel(data.PersonalInformation.FirstName)
	data.PersonalInformation.LastName = orSentinel(data.PersonalInformation.LastName)
	data.ContactInformation.Email = orSentinel(data.ContactInformation.Email)
	data.ContactInformation.Phone = orSentinel(data.ContactInformation.Phone)

	for i := range data.Education {
		data.Education[i].Institution = orSentinel(data.Education[i].Institution)
		data.Education[i].Degree = orSentinel(data.Education[i].Degree)
		data.Education[i].GraduationDate = orSentinel(data.Education[i].GraduationDate)
	}
	for i := range data.WorkExperience {
		data.WorkExperience[i].Employer = orSentinel(data.WorkExperience[i].Employer)
		data.WorkExperience[i].Position = orSentinel(data.WorkExperience[i].Position)
		data.WorkExperience[i].StartDate = orSentinel(data.WorkExperience[i].StartDate)
	}

	skills := data.Skills[:0]
	for _, s := range data.Skills {
		if !IsSentinel(s) {
			skills = append(skills, strings.TrimSpace(s))
		}
	}
	data.Skills = skills
}

func hasIdentity(data resumes.ExtractedData) bool {
	return !IsSentinel(data.PersonalInformation.FirstName) ||
		!IsSentinel(data.PersonalInformation.LastName) ||
		!IsSentinel(data.ContactInformation.Email) ||
		!IsSentinel(data.ContactInformation.Phone)
}

func orSentinel(s string) string {
	if IsSentinel(s) {
		return FieldSentinel
	}
	return strings.TrimSpace(s)
}

// IsSentinel reports whether the value is absent or the missing-field marker.
func IsSentinel(s string) bool {
	return strings.TrimSpace(s) == "" || strings.EqualFold(strings.TrimSpace(s), FieldSentinel)
}

var _ ExtractStage = (*Extractor)(nil)
