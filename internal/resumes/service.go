package resumes

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"resume-processor/internal/extract"
	"resume-processor/internal/shared/storage/object"
	"resume-processor/internal/shared/telemetry"
	"resume-processor/internal/shared/util"
)

// ProcessTrigger kicks off a pipeline run for a raw record. The trigger
// must not block: queue-backed deployments enqueue a message, standalone
// deployments start a goroutine.
type ProcessTrigger func(ctx context.Context, raw RawResume)

// Service implements the resume lifecycle outside the pipeline: upload,
// lookup, listing, deletion, and run triggering.
type Service struct {
	Repo    Repo
	Store   object.ObjectStore
	Trigger ProcessTrigger
}

func NewService(repo Repo, store object.ObjectStore, trigger ProcessTrigger) *Service {
	return &Service{Repo: repo, Store: store, Trigger: trigger}
}

var (
	// ErrEmptyDocument is returned when extraction yields no text.
	ErrEmptyDocument = errors.New("document contains no extractable text")
	// ErrProcessingInFlight is returned when a run is requested for a
	// record that is already processing.
	ErrProcessingInFlight = errors.New("resume is already processing")
	// ErrAlreadyCompleted is returned when a run is requested for a
	// completed record.
	ErrAlreadyCompleted = errors.New("resume is already completed")
)

// Upload extracts text from the payload, persists the original document
// and a pending record, and triggers processing. The record is created
// only after extraction succeeds so unreadable documents never enter the
// pipeline.
func (s *Service) Upload(ctx context.Context, fileName, mimeType string, payload []byte) (RawResume, error) {
	sanitized, err := util.SanitizeFileName(fileName)
	if err != nil {
		return RawResume{}, fmt.Errorf("sanitize file name: %w", err)
	}

	text, err := extract.Text(ctx, payload, mimeType, sanitized)
	if err != nil {
		return RawResume{}, fmt.Errorf("extract text: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return RawResume{}, ErrEmptyDocument
	}

	now := time.Now().UTC()
	raw := RawResume{
		ID:         uuid.NewString(),
		Filename:   sanitized,
		UploadedAt: now,
		Status:     StatusPending,
		RawText:    text,
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if s.Store != nil {
		key, size, _, err := s.Store.Save(ctx, raw.ID, sanitized, bytes.NewReader(payload))
		if err != nil {
			return RawResume{}, fmt.Errorf("store original: %w", err)
		}
		raw.StorageKey = key
		telemetry.Info("resumes.original_stored", map[string]any{
			"resume_id":  raw.ID,
			"size_bytes": size,
		})
	}

	if err := s.Repo.CreateRaw(ctx, raw); err != nil {
		if s.Store != nil && raw.StorageKey != "" {
			if delErr := s.Store.Delete(ctx, raw.StorageKey); delErr != nil {
				telemetry.Warn("resumes.orphan_object", map[string]any{
					"resume_id":   raw.ID,
					"storage_key": raw.StorageKey,
					"error":       delErr.Error(),
				})
			}
		}
		return RawResume{}, fmt.Errorf("create record: %w", err)
	}

	if s.Trigger != nil {
		s.Trigger(ctx, raw)
	}
	return raw, nil
}

// Get returns the raw record plus the processed record when one exists.
func (s *Service) Get(ctx context.Context, id string) (RawResume, *ProcessedResume, error) {
	raw, err := s.Repo.GetRaw(ctx, id)
	if err != nil {
		return RawResume{}, nil, err
	}
	processed, err := s.Repo.GetProcessed(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return raw, nil, nil
		}
		return RawResume{}, nil, err
	}
	return raw, &processed, nil
}

// List returns raw records, optionally filtered by status, newest first.
func (s *Service) List(ctx context.Context, statusFilter string, limit int) ([]RawResume, error) {
	if statusFilter != "" && !ValidStatus(statusFilter) {
		return nil, fmt.Errorf("unknown status %q", statusFilter)
	}
	return s.Repo.ListRaw(ctx, statusFilter, limit)
}

// RequestProcessing triggers a run for an existing record. Completed and
// in-flight records are rejected up front; the pipeline's conditional
// claim remains the authority when triggers race.
func (s *Service) RequestProcessing(ctx context.Context, id string) (RawResume, error) {
	raw, err := s.Repo.GetRaw(ctx, id)
	if err != nil {
		return RawResume{}, err
	}
	switch raw.Status {
	case StatusProcessing:
		return raw, ErrProcessingInFlight
	case StatusCompleted:
		return raw, ErrAlreadyCompleted
	}
	if s.Trigger != nil {
		s.Trigger(ctx, raw)
	}
	return raw, nil
}

// Delete removes the records and the stored original document. Record
// deletion comes first so a failed object delete leaves an orphan object
// rather than a record pointing at nothing.
func (s *Service) Delete(ctx context.Context, id string) error {
	raw, err := s.Repo.GetRaw(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, id); err != nil {
		return err
	}
	if s.Store != nil && raw.StorageKey != "" {
		if err := s.Store.Delete(ctx, raw.StorageKey); err != nil {
			telemetry.Warn("resumes.orphan_object", map[string]any{
				"resume_id":   id,
				"storage_key": raw.StorageKey,
				"error":       err.Error(),
			})
		}
	}
	return nil
}
