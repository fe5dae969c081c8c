package resumes

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo stores resumes in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu        sync.RWMutex
	raw       map[string]RawResume
	processed map[string]ProcessedResume
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		raw:       make(map[string]RawResume),
		processed: make(map[string]ProcessedResume),
	}
}

// CreateRaw stores a new raw resume.
func (r *MemoryRepo) CreateRaw(ctx context.Context, raw RawResume) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	if raw.CreatedAt.IsZero() {
		raw.CreatedAt = now
	}
	raw.UpdatedAt = now
	r.raw[raw.ID] = raw
	return nil
}

// GetRaw returns a raw resume by ID.
func (r *MemoryRepo) GetRaw(ctx context.Context, id string) (RawResume, error) {
	if err := ctx.Err(); err != nil {
		return RawResume{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	raw, ok := r.raw[id]
	if !ok {
		return RawResume{}, ErrNotFound
	}
	return raw, nil
}

// ListRaw returns raw resumes newest-first, optionally filtered by status.
func (r *MemoryRepo) ListRaw(ctx context.Context, statusFilter string, limit int) ([]RawResume, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]RawResume, 0, len(r.raw))
	for _, raw := range r.raw {
		if statusFilter != "" && raw.Status != statusFilter {
			continue
		}
		out = append(out, raw)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UploadedAt.After(out[j].UploadedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ClaimProcessing performs the conditional pending/failed -> processing transition.
func (r *MemoryRepo) ClaimProcessing(ctx context.Context, id string, version int64) (RawResume, error) {
	if err := ctx.Err(); err != nil {
		return RawResume{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	raw, ok := r.raw[id]
	if !ok {
		return RawResume{}, ErrNotFound
	}
	if raw.Version != version {
		return RawResume{}, ErrClaimConflict
	}
	if raw.Status != StatusPending && raw.Status != StatusFailed {
		return RawResume{}, ErrClaimConflict
	}

	raw.Status = StatusProcessing
	raw.Error = ""
	raw.Version++
	raw.UpdatedAt = time.Now().UTC()
	r.raw[id] = raw
	return raw, nil
}

// MarkCompleted transitions processing -> completed.
func (r *MemoryRepo) MarkCompleted(ctx context.Context, id string) error {
	return r.finish(ctx, id, StatusCompleted, "")
}

// MarkFailed transitions processing -> failed with the error message.
func (r *MemoryRepo) MarkFailed(ctx context.Context, id string, errMsg string) error {
	return r.finish(ctx, id, StatusFailed, errMsg)
}

func (r *MemoryRepo) finish(ctx context.Context, id, status, errMsg string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	raw, ok := r.raw[id]
	if !ok {
		return ErrNotFound
	}
	raw.Status = status
	raw.Error = errMsg
	raw.Version++
	raw.UpdatedAt = time.Now().UTC()
	r.raw[id] = raw
	return nil
}

// PutProcessed upserts the processed record.
func (r *MemoryRepo) PutProcessed(ctx context.Context, processed ProcessedResume) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processed[processed.ID] = processed
	return nil
}

// GetProcessed returns the processed record by ID.
func (r *MemoryRepo) GetProcessed(ctx context.Context, id string) (ProcessedResume, error) {
	if err := ctx.Err(); err != nil {
		return ProcessedResume{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	processed, ok := r.processed[id]
	if !ok {
		return ProcessedResume{}, ErrNotFound
	}
	return processed, nil
}

// DeleteProcessed removes only the processed record, if present.
func (r *MemoryRepo) DeleteProcessed(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.processed, id)
	return nil
}

// Delete removes the raw record and its processed counterpart.
func (r *MemoryRepo) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.raw[id]; !ok {
		return ErrNotFound
	}
	delete(r.raw, id)
	delete(r.processed, id)
	return nil
}

// ReapStale rewrites stale processing records back to failed.
func (r *MemoryRepo) ReapStale(ctx context.Context, cutoff time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var reaped int64
	for id, raw := range r.raw {
		if raw.Status != StatusProcessing || !raw.UpdatedAt.Before(cutoff) {
			continue
		}
		raw.Status = StatusFailed
		raw.Error = "processing timed out"
		raw.Version++
		raw.UpdatedAt = time.Now().UTC()
		r.raw[id] = raw
		reaped++
	}
	return reaped, nil
}

var _ Repo = (*MemoryRepo)(nil)
