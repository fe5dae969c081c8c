package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"resume-processor/internal/resumes"
)

type reapStubRepo struct {
	resumes.Repo
	reaped int64
	err    error
	cutoff time.Time
}

func (r *reapStubRepo) ReapStale(ctx context.Context, cutoff time.Time) (int64, error) {
	r.cutoff = cutoff
	return r.reaped, r.err
}

func TestReapOnceReportsCount(t *testing.T) {
	repo := &reapStubRepo{reaped: 3}
	reaper := &Reaper{Repo: repo, Threshold: 30 * time.Minute, Interval: time.Minute}

	n, err := reaper.ReapOnce(context.Background())
	if err != nil {
		t.Fatalf("ReapOnce: %v", err)
	}
	if n != 3 {
		t.Fatalf("reaped = %d, want 3", n)
	}

	wantCutoff := time.Now().UTC().Add(-30 * time.Minute)
	if diff := repo.cutoff.Sub(wantCutoff); diff < -time.Minute || diff > time.Minute {
		t.Fatalf("cutoff = %v, want about %v", repo.cutoff, wantCutoff)
	}
}

func TestReapOncePropagatesError(t *testing.T) {
	repo := &reapStubRepo{err: errors.New("down")}
	reaper := &Reaper{Repo: repo, Threshold: time.Minute, Interval: time.Minute}

	if _, err := reaper.ReapOnce(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestReaperStopsOnContextCancel(t *testing.T) {
	repo := &reapStubRepo{}
	reaper := &Reaper{Repo: repo, Threshold: time.Minute, Interval: 10 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		reaper.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reaper did not stop after cancel")
	}
}
