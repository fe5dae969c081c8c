package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"resume-processor/internal/resumes"
	"resume-processor/internal/shared/metrics"
	"resume-processor/internal/shared/telemetry"
)

// Service orchestrates the processing pipeline: claim, extract,
// summarize, redact, commit. Runs for different ids execute concurrently;
// runs for the same id are serialized by the repo's conditional claim.
type Service struct {
	Repo       resumes.Repo
	Extractor  ExtractStage
	Summarizer SummarizeStage
	Redactor   RedactStage
}

// NewService builds the orchestrator and validates the stage table
// against the closed stage set.
func NewService(repo resumes.Repo, extractor ExtractStage, summarizer SummarizeStage, redactor RedactStage) (*Service, error) {
	if repo == nil {
		return nil, errors.New("pipeline: repo is required")
	}
	stages := map[string]bool{
		StageExtract:   extractor != nil,
		StageSummarize: summarizer != nil,
		StageRedact:    redactor != nil,
	}
	for _, name := range StageOrder {
		if !stages[name] {
			return nil, fmt.Errorf("pipeline: stage %q is not configured", name)
		}
	}
	return &Service{
		Repo:       repo,
		Extractor:  extractor,
		Summarizer: summarizer,
		Redactor:   redactor,
	}, nil
}

// Run executes one pipeline run for the given resume ID. The version is
// the claim token observed when the run was triggered: the conditional
// claim against it makes every duplicate or redelivered trigger a no-op,
// including redeliveries after the run failed, since the failure bumped
// the version. A rejected claim returns resumes.ErrClaimConflict, which
// callers treat as a no-op. Any stage failure marks the record failed
// and writes no processed record.
func (s *Service) Run(ctx context.Context, id string, version int64) (resumes.ProcessedResume, error) {
	claimed, err := s.Repo.ClaimProcessing(ctx, id, version)
	if err != nil {
		if errors.Is(err, resumes.ErrClaimConflict) {
			metrics.IncRunClaimConflict()
			telemetry.Info("pipeline.claim_conflict", map[string]any{
				"request_id": telemetry.RequestIDFromContext(ctx),
				"resume_id":  id,
				"version":    version,
			})
			return resumes.ProcessedResume{}, resumes.ErrClaimConflict
		}
		if errors.Is(err, resumes.ErrNotFound) {
			return resumes.ProcessedResume{}, fmt.Errorf("resume lookup id=%s: %w", id, err)
		}
		return resumes.ProcessedResume{}, fmt.Errorf("claim id=%s: %w", id, err)
	}

	startedAt := time.Now().UTC()
	metrics.IncRunStarted()
	s.logTransition(ctx, id, resumes.StatusProcessing, "->processing", startedAt, startedAt)

	extracted, err := s.Extractor.Extract(ctx, claimed.RawText)
	if err != nil {
		return resumes.ProcessedResume{}, s.fail(ctx, id, newStageError(StageExtract, err), startedAt)
	}

	summary, err := s.Summarizer.Summarize(ctx, extracted)
	if err != nil {
		return resumes.ProcessedResume{}, s.fail(ctx, id, newStageError(StageSummarize, err), startedAt)
	}

	sanitized, err := s.Redactor.Redact(ctx, summary.Text, extracted)
	if err != nil {
		return resumes.ProcessedResume{}, s.fail(ctx, id, newStageError(StageRedact, err), startedAt)
	}

	processed := resumes.ProcessedResume{
		ID:         claimed.ID,
		Filename:   claimed.Filename,
		UploadedAt: claimed.UploadedAt,
		Status:     resumes.StatusCompleted,
		Data: resumes.ResumeData{
			PersonalInformation: extracted.PersonalInformation,
			ContactInformation:  extracted.ContactInformation,
			Education:           extracted.Education,
			WorkExperience:      extracted.WorkExperience,
			Skills:              extracted.Skills,
			SkillsKeywords:      summary.SkillsKeywords,
			AIGeneratedRoles:    summary.AIGeneratedRoles,
			Summary:             summary.Text,
			SanitizedSummary:    sanitized,
		},
	}

	if err := s.Repo.PutProcessed(ctx, processed); err != nil {
		stageErr := &StageError{Stage: "commit", Code: ErrorCodeStorage, Err: fmt.Errorf("put processed: %w", err)}
		return resumes.ProcessedResume{}, s.fail(ctx, id, stageErr, startedAt)
	}

	if err := s.Repo.MarkCompleted(ctx, id); err != nil {
		// Back out the upsert so a processed record never outlives a
		// non-completed raw record.
		if delErr := s.Repo.DeleteProcessed(context.Background(), id); delErr != nil {
			telemetry.Error("pipeline.commit_backout_failed", map[string]any{
				"request_id": telemetry.RequestIDFromContext(ctx),
				"resume_id":  id,
				"error":      delErr.Error(),
			})
		}
		stageErr := &StageError{Stage: "commit", Code: ErrorCodeStorage, Err: fmt.Errorf("mark completed: %w", err)}
		return resumes.ProcessedResume{}, s.fail(ctx, id, stageErr, startedAt)
	}

	completedAt := time.Now().UTC()
	metrics.IncRunCompleted()
	metrics.ObserveRunDurationMs(durationMs(startedAt, completedAt))
	s.logTransition(ctx, id, resumes.StatusCompleted, "processing->completed", startedAt, completedAt)

	return processed, nil
}

// RunPending triggers a run only when the record is still pending. Push
// deliveries carry no claim token, and a failed record must not re-enter
// processing without an explicit reprocess.
func (s *Service) RunPending(ctx context.Context, id string) (resumes.ProcessedResume, error) {
	raw, err := s.Repo.GetRaw(ctx, id)
	if err != nil {
		return resumes.ProcessedResume{}, fmt.Errorf("resume lookup id=%s: %w", id, err)
	}
	if raw.Status != resumes.StatusPending {
		metrics.IncRunClaimConflict()
		telemetry.Info("pipeline.claim_conflict", map[string]any{
			"request_id": telemetry.RequestIDFromContext(ctx),
			"resume_id":  id,
			"status":     raw.Status,
		})
		return resumes.ProcessedResume{}, resumes.ErrClaimConflict
	}
	return s.Run(ctx, id, raw.Version)
}

func (s *Service) fail(ctx context.Context, id string, stageErr *StageError, startedAt time.Time) error {
	msg := sanitizeError(stageErr)
	// Use a fresh context so a canceled run still records its failure.
	if updateErr := s.Repo.MarkFailed(context.Background(), id, msg); updateErr != nil {
		telemetry.Error("pipeline.mark_failed_error", map[string]any{
			"request_id": telemetry.RequestIDFromContext(ctx),
			"resume_id":  id,
			"error":      updateErr.Error(),
			"cause":      msg,
		})
	}
	completedAt := time.Now().UTC()
	metrics.IncRunFailed()
	metrics.ObserveRunDurationMs(durationMs(startedAt, completedAt))
	telemetry.Info("pipeline.status", map[string]any{
		"request_id":        telemetry.RequestIDFromContext(ctx),
		"resume_id":         id,
		"status":            resumes.StatusFailed,
		"status_transition": "processing->failed",
		"stage":             stageErr.Stage,
		"error_code":        stageErr.Code,
		"error":             msg,
		"duration_ms":       durationMs(startedAt, completedAt),
	})
	return stageErr
}

func (s *Service) logTransition(ctx context.Context, id, status, transition string, startedAt, at time.Time) {
	telemetry.Info("pipeline.status", map[string]any{
		"request_id":        telemetry.RequestIDFromContext(ctx),
		"resume_id":         id,
		"status":            status,
		"status_transition": transition,
		"duration_ms":       durationMs(startedAt, at),
	})
}

func durationMs(startedAt, completedAt time.Time) float64 {
	return float64(completedAt.Sub(startedAt).Microseconds()) / 1000.0
}
