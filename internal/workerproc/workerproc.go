package workerproc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"resume-processor/internal/queue"
	"resume-processor/internal/resumes"
	"resume-processor/internal/shared/telemetry"
)

// Processor runs the processing pipeline for one resume. The version is
// the claim token carried by the queue message; a stale token is a
// claim conflict, not a retry.
type Processor interface {
	Run(ctx context.Context, id string, version int64) (resumes.ProcessedResume, error)
}

// MessageMeta captures details useful for logging and diagnostics.
type MessageMeta struct {
	BodyLen int
	BodySHA string
}

// ComputeMeta returns the body length and SHA-256 hash.
func ComputeMeta(body string) MessageMeta {
	if body == "" {
		return MessageMeta{BodyLen: 0, BodySHA: ""}
	}
	sum := sha256.Sum256([]byte(body))
	return MessageMeta{BodyLen: len(body), BodySHA: hex.EncodeToString(sum[:])}
}

// ErrEmptyBody indicates an empty queue payload.
type ErrEmptyBody struct {
	Meta MessageMeta
}

func (e ErrEmptyBody) Error() string { return "empty message body" }

// ErrDecode indicates a JSON decode failure.
type ErrDecode struct {
	Meta MessageMeta
	Err  error
}

func (e ErrDecode) Error() string {
	if e.Err == nil {
		return "decode message"
	}
	return "decode message: " + e.Err.Error()
}

// ErrMissingResumeID indicates a message missing the resume id.
type ErrMissingResumeID struct {
	Meta      MessageMeta
	RequestID string
}

func (e ErrMissingResumeID) Error() string { return "missing resume id" }

// ErrInvalidVersion indicates a message without a usable claim token.
type ErrInvalidVersion struct {
	Meta      MessageMeta
	RequestID string
	Version   int64
}

func (e ErrInvalidVersion) Error() string { return "invalid claim version" }

// ErrProcess indicates processing failed after successful parsing.
type ErrProcess struct {
	ResumeID  string
	RequestID string
	Err       error
}

func (e ErrProcess) Error() string {
	if e.Err == nil {
		return "process resume"
	}
	return "process resume: " + e.Err.Error()
}

func (e ErrProcess) Unwrap() error { return e.Err }

// ParseMessage validates and decodes the queue payload.
func ParseMessage(body string) (queue.Message, MessageMeta, error) {
	meta := ComputeMeta(body)
	if strings.TrimSpace(body) == "" {
		return queue.Message{}, meta, ErrEmptyBody{Meta: meta}
	}

	msg, err := queue.DecodeMessage([]byte(body))
	if err != nil {
		return queue.Message{}, meta, ErrDecode{Meta: meta, Err: err}
	}
	if strings.TrimSpace(msg.ResumeID) == "" {
		return msg, meta, ErrMissingResumeID{Meta: meta, RequestID: msg.RequestID}
	}
	if msg.Version < 1 {
		return msg, meta, ErrInvalidVersion{Meta: meta, RequestID: msg.RequestID, Version: msg.Version}
	}
	return msg, meta, nil
}

// HandleMessage parses, validates, and processes a message payload.
// A claim conflict is treated as success: the run was already taken,
// already finished, or already failed against this token, so the
// message must not be redelivered.
func HandleMessage(ctx context.Context, processor Processor, body string) error {
	if processor == nil {
		return errors.New("pipeline service not configured")
	}

	msg, _, err := ParseMessage(body)
	if err != nil {
		return err
	}

	ctxWithRequest := telemetry.WithRequestID(ctx, msg.RequestID)
	if _, err := processor.Run(ctxWithRequest, msg.ResumeID, msg.Version); err != nil {
		if errors.Is(err, resumes.ErrClaimConflict) {
			return nil
		}
		return ErrProcess{ResumeID: msg.ResumeID, RequestID: msg.RequestID, Err: err}
	}
	return nil
}
