package pipeline

import (
	"context"
	"time"

	"resume-processor/internal/resumes"
	"resume-processor/internal/shared/metrics"
	"resume-processor/internal/shared/telemetry"
)

// Reaper transitions processing records that have been stuck longer than
// Threshold to failed. Crashed runs leave records in processing forever;
// the reaper is the only recovery path for them.
type Reaper struct {
	Repo      resumes.Repo
	Threshold time.Duration
	Interval  time.Duration
}

// ReapOnce performs a single sweep and returns the number of records
// transitioned to failed.
func (r *Reaper) ReapOnce(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().Add(-r.Threshold)
	n, err := r.Repo.ReapStale(ctx, cutoff)
	if err != nil {
		telemetry.Error("reaper.sweep_failed", map[string]any{"error": err.Error()})
		return 0, err
	}
	if n > 0 {
		metrics.AddStaleRunsReaped(uint64(n))
		telemetry.Info("reaper.swept", map[string]any{
			"reaped": n,
			"cutoff": cutoff.Format(time.RFC3339),
		})
	}
	return n, nil
}

// Run sweeps on a fixed interval until the context is canceled.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = r.ReapOnce(ctx)
		}
	}
}
