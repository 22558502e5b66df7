package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// ErrSyncInProgress is returned when a trigger overlaps a running sync.
// Overlapping triggers are rejected, never queued.
var ErrSyncInProgress = errors.New("ingest: sync already in progress")

// Job is the common surface every sync job exposes.
type Job interface {
	Name() string
	IsSyncNeeded(ctx context.Context) (bool, error)
	Trigger(ctx context.Context) error
	Stats(ctx context.Context) (*SyncStatus, error)
}

// runner carries the shared job mechanics: the in-memory overlap guard, the
// age-based need check, and status-row bookkeeping around a run.
type runner struct {
	name    string
	status  StatusRepository
	maxAge  time.Duration
	running atomic.Bool
}

func (r *runner) Name() string { return r.name }

// IsSyncNeeded reports whether the last run (successful or failed) is older
// than the job's window. A job that has never run always needs a sync.
func (r *runner) IsSyncNeeded(ctx context.Context) (bool, error) {
	st, err := r.status.Get(ctx, r.name)
	if err != nil {
		return false, err
	}
	if st == nil || st.LastRunAt == nil {
		return true, nil
	}
	return time.Since(*st.LastRunAt) >= r.maxAge, nil
}

func (r *runner) Stats(ctx context.Context) (*SyncStatus, error) {
	return r.status.Get(ctx, r.name)
}

// run executes fn under the overlap guard, recording the outcome on the
// status row. fn returns the number of items it synced.
func (r *runner) run(ctx context.Context, fn func(ctx context.Context) (int, error)) error {
	if !r.running.CompareAndSwap(false, true) {
		return ErrSyncInProgress
	}
	defer r.running.Store(false)

	if err := r.status.MarkRunning(ctx, r.name); err != nil {
		return err
	}

	started := time.Now()
	items, err := fn(ctx)
	if err != nil {
		slog.Error("sync failed", "job", r.name, "error", err, "duration", time.Since(started))
		if markErr := r.status.MarkFailed(ctx, r.name, err); markErr != nil {
			slog.Error("recording sync failure failed", "job", r.name, "error", markErr)
		}
		return fmt.Errorf("running %s sync: %w", r.name, err)
	}

	slog.Info("sync completed", "job", r.name, "items", items, "duration", time.Since(started))
	return r.status.MarkCompleted(ctx, r.name, items)
}
