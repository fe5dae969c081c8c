package pipeline

import (
	"context"

	"resume-processor/internal/resumes"
)

// Stage names form a closed set. The orchestrator validates its stage
// table against this set at construction; there is no dynamic dispatch.
const (
	StageExtract   = "extract"
	StageSummarize = "summarize"
	StageRedact    = "redact"
)

// StageOrder is the fixed execution sequence within one run.
var StageOrder = []string{StageExtract, StageSummarize, StageRedact}

// ExtractStage turns raw resume text into the structured record.
type ExtractStage interface {
	Extract(ctx context.Context, rawText string) (resumes.ExtractedData, error)
}

// SummarizeStage produces the bounded summary plus the derived role
// suggestions and normalized skill keywords.
type SummarizeStage interface {
	Summarize(ctx context.Context, data resumes.ExtractedData) (Summary, error)
}

// RedactStage replaces PII in the summary with fixed markers. It must be
// idempotent: redacting an already-redacted string yields the same string.
type RedactStage interface {
	Redact(ctx context.Context, summary string, data resumes.ExtractedData) (string, error)
}

// Summary is the summarize-stage output.
type Summary struct {
	Text             string
	AIGeneratedRoles []string
	SkillsKeywords   []string
}
