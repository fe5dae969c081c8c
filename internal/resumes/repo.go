package resumes

import (
	"context"
	"time"
)

// Repo defines persistence operations for raw and processed resumes.
// ClaimProcessing is the pipeline's only synchronization primitive: a
// compare-and-swap on (status, version) that moves a pending or failed
// record into processing. All other status writes bump the version.
type Repo interface {
	CreateRaw(ctx context.Context, raw RawResume) error
	GetRaw(ctx context.Context, id string) (RawResume, error)
	ListRaw(ctx context.Context, statusFilter string, limit int) ([]RawResume, error)

	// ClaimProcessing transitions the record from {pending, failed} to
	// processing iff the stored version equals the given version. It
	// returns ErrClaimConflict when the record is already processing or
	// completed, or when the version no longer matches.
	ClaimProcessing(ctx context.Context, id string, version int64) (RawResume, error)

	// MarkCompleted transitions processing -> completed.
	MarkCompleted(ctx context.Context, id string) error

	// MarkFailed transitions processing -> failed and records the error.
	MarkFailed(ctx context.Context, id string, errMsg string) error

	// PutProcessed upserts the full processed record in one operation.
	PutProcessed(ctx context.Context, processed ProcessedResume) error
	GetProcessed(ctx context.Context, id string) (ProcessedResume, error)

	// DeleteProcessed removes only the processed record. Used to back out
	// an upsert when the completed transition cannot be committed.
	DeleteProcessed(ctx context.Context, id string) error

	// Delete removes the raw record and cascades to the processed record.
	Delete(ctx context.Context, id string) error

	// ReapStale rewrites processing records not updated since the cutoff
	// back to failed so they become eligible for manual reprocessing.
	ReapStale(ctx context.Context, cutoff time.Time) (int64, error)
}
