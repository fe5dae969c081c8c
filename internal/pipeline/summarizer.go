package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"resume-processor/internal/completion"
	"resume-processor/internal/resumes"
)

const (
	// DefaultMaxWords bounds the summary when no limit is configured.
	DefaultMaxWords = 250

	// MaxSuggestedRoles caps the derived role titles.
	MaxSuggestedRoles = 10
)

var summarySchema = completion.Schema{
	Name:        "submit_summary",
	Description: "Submit the extractive resume summary and suggested roles.",
	Parameters: json.RawMessage(`{
  "type": "object",
  "properties": {
    "summary": {
      "description": "Extractive, neutral summary of the resume",
      "type": "string"
    },
    "aiGeneratedRoles": {
      "description": "Up to 10 potential job roles based on experience",
      "type": "array",
      "items": {"type": "string"}
    }
  },
  "required": ["summary", "aiGeneratedRoles"]
}`),
}

// Summarizer wraps the completion client with the fixed summarization
// prompt. It also derives the role suggestions and skill keywords, which
// belong to this stage in the pipeline ordering.
type Summarizer struct {
	Client   completion.Client
	MaxWords int
}

type summaryResult struct {
	Summary          string   `json:"summary"`
	AIGeneratedRoles []string `json:"aiGeneratedRoles"`
}

// Summarize produces the bounded extractive summary for the record.
func (s *Summarizer) Summarize(ctx context.Context, data resumes.ExtractedData) (Summary, error) {
	maxWords := s.MaxWords
	if maxWords <= 0 {
		maxWords = DefaultMaxWords
	}

	payload, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return Summary{}, fmt.Errorf("marshal resume data: %w", err)
	}

	prompt := fmt.Sprintf(`Summarize the following resume using extractive summarization to remain unbiased.

Guidelines:
- Use neutral pronouns (they/them)
- No filler words or padding
- Focus on qualifications and experience
- Do not introduce claims absent from the resume data
- Maximum %d words

Resume Data:
%s
`, maxWords, payload)

	resp, err := s.Client.Complete(ctx, completion.Request{
		User:        prompt,
		Schema:      &summarySchema,
		Temperature: 0.5,
		MaxTokens:   500,
	})
	if err != nil {
		return Summary{}, err
	}
	if len(resp.Arguments) == 0 {
		return Summary{}, errors.New("no summary returned")
	}

	var parsed summaryResult
	if err := json.Unmarshal(resp.Arguments, &parsed); err != nil {
		return Summary{}, fmt.Errorf("summary output invalid: %w", err)
	}
	if strings.TrimSpace(parsed.Summary) == "" {
		return Summary{}, errors.New("summary is empty")
	}

	return Summary{
		Text:             TruncateWords(parsed.Summary, maxWords),
		AIGeneratedRoles: normalizeRoles(parsed.AIGeneratedRoles),
		SkillsKeywords:   NormalizeKeywords(data.Skills),
	}, nil
}

// TruncateWords hard-caps text at maxWords, making the configured limit
// a guarantee rather than a prompt suggestion.
func TruncateWords(text string, maxWords int) string {
	words := strings.Fields(text)
	if maxWords <= 0 || len(words) <= maxWords {
		return strings.TrimSpace(text)
	}
	return strings.Join(words[:maxWords], " ")
}

func normalizeRoles(roles []string) []string {
	out := make([]string, 0, len(roles))
	for _, role := range roles {
		trimmed := strings.TrimSpace(role)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
		if len(out) == MaxSuggestedRoles {
			break
		}
	}
	return out
}

// NormalizeKeywords lower-cases, trims, de-duplicates, and sorts the
// skill set into searchable keywords.
func NormalizeKeywords(skills []string) []string {
	seen := make(map[string]struct{}, len(skills))
	out := make([]string, 0, len(skills))
	for _, skill := range skills {
		normalized := strings.ToLower(strings.TrimSpace(skill))
		if normalized == "" || IsSentinel(normalized) {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	sort.Strings(out)
	return out
}

var _ SummarizeStage = (*Summarizer)(nil)
