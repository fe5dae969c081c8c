package pipeline

import (
	"fmt"
	"strings"
)

const (
	ErrorCodeExtraction    = "EXTRACTION_ERROR"
	ErrorCodeSummarization = "SUMMARIZATION_ERROR"
	ErrorCodePIIRemoval    = "PII_REMOVAL_ERROR"
	ErrorCodeStorage       = "STORAGE_ERROR"
	ErrorCodeInternal      = "INTERNAL_ERROR"
)

// StageError is a terminal failure of one pipeline stage.
type StageError struct {
	Stage string
	Code  string
	Err   error
}

func (e *StageError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("stage %s failed", e.Stage)
	}
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func newStageError(stage string, err error) *StageError {
	return &StageError{Stage: stage, Code: codeForStage(stage), Err: err}
}

func codeForStage(stage string) string {
	switch stage {
	case StageExtract:
		return ErrorCodeExtraction
	case StageSummarize:
		return ErrorCodeSummarization
	case StageRedact:
		return ErrorCodePIIRemoval
	default:
		return ErrorCodeInternal
	}
}

// sanitizeError flattens an error into a single bounded line suitable
// for persisting on the failed record.
func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	const maxLen = 500
	if len(msg) > maxLen {
		msg = msg[:maxLen]
	}
	return msg
}
