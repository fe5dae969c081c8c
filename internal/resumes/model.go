package resumes

import "time"

const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// ValidStatus reports whether s is a known lifecycle status.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// RawResume is the intake record for an uploaded resume. The pipeline is
// the only writer of Status, Error, and Version after creation.
type RawResume struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	UploadedAt time.Time `json:"uploadedAt"`
	Status     string    `json:"status"`
	RawText    string    `json:"rawText"`
	Error      string    `json:"error,omitempty"`
	Version    int64     `json:"version"`
	StorageKey string    `json:"storageKey,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// ProcessedResume is written once per successful pipeline run and
// replaced wholesale on reprocessing.
type ProcessedResume struct {
	ID         string     `json:"id"`
	Filename   string     `json:"filename"`
	UploadedAt time.Time  `json:"uploadedAt"`
	Status     string     `json:"status"`
	Data       ResumeData `json:"data"`
}

// ResumeData holds the full processed payload.
type ResumeData struct {
	PersonalInformation PersonalInformation `json:"personalInformation"`
	ContactInformation  ContactInformation  `json:"contactInformation"`
	Education           []Education         `json:"education"`
	WorkExperience      []WorkExperience    `json:"workExperience"`
	Skills              []string            `json:"skills"`
	SkillsKeywords      []string            `json:"skillsKeywords"`
	AIGeneratedRoles    []string            `json:"aiGeneratedRoles"`
	Summary             string              `json:"summary"`
	SanitizedSummary    string              `json:"sanitizedSummary"`
}

// ExtractedData is the output of the extraction stage: ResumeData minus
// the fields later stages derive.
type ExtractedData struct {
	PersonalInformation PersonalInformation `json:"personalInformation"`
	ContactInformation  ContactInformation  `json:"contactInformation"`
	Education           []Education         `json:"education"`
	WorkExperience      []WorkExperience    `json:"workExperience"`
	Skills              []string            `json:"skills"`
}

type PersonalInformation struct {
	FirstName   string `json:"firstName"`
	MiddleName  string `json:"middleName,omitempty"`
	LastName    string `json:"lastName"`
	DateOfBirth string `json:"dateOfBirth,omitempty"`
}

type ContactInformation struct {
	Email   string   `json:"email"`
	Phone   string   `json:"phone"`
	Address *Address `json:"address,omitempty"`
}

type Address struct {
	Street string `json:"street,omitempty"`
	City   string `json:"city,omitempty"`
	State  string `json:"state,omitempty"`
	Zip    string `json:"zip,omitempty"`
}

type Education struct {
	Institution    string `json:"institution"`
	Degree         string `json:"degree"`
	FieldOfStudy   string `json:"fieldOfStudy,omitempty"`
	GraduationDate string `json:"graduationDate"`
}

type WorkExperience struct {
	Employer         string `json:"employer"`
	Position         string `json:"position"`
	StartDate        string `json:"startDate"`
	EndDate          string `json:"endDate,omitempty"`
	Responsibilities string `json:"responsibilities,omitempty"`
}
