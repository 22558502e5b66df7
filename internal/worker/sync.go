// Package worker holds the background loops: periodic sync checks and the
// daily collection snapshot.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cardkeep/cardkeep/internal/ingest"
)

// SyncWorker periodically checks each sync job and triggers the ones whose
// window has passed.
type SyncWorker struct {
	jobs     []ingest.Job
	interval time.Duration
}

// NewSyncWorker creates a new SyncWorker over the given jobs.
func NewSyncWorker(interval time.Duration, jobs ...ingest.Job) *SyncWorker {
	return &SyncWorker{jobs: jobs, interval: interval}
}

// Run starts the sync worker loop. It blocks until the context is cancelled.
func (w *SyncWorker) Run(ctx context.Context) {
	slog.Info("SyncWorker: starting", "jobs", len(w.jobs))

	// Check immediately on startup
	w.checkAll(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("SyncWorker: shutting down")
			return
		case <-ticker.C:
			w.checkAll(ctx)
		}
	}
}

func (w *SyncWorker) checkAll(ctx context.Context) {
	for _, job := range w.jobs {
		if ctx.Err() != nil {
			return
		}
		needed, err := job.IsSyncNeeded(ctx)
		if err != nil {
			slog.Error("SyncWorker: need check failed", "job", job.Name(), "error", err)
			continue
		}
		if !needed {
			continue
		}

		slog.Info("SyncWorker: triggering sync", "job", job.Name())
		if err := job.Trigger(ctx); err != nil {
			if errors.Is(err, ingest.ErrSyncInProgress) {
				slog.Info("SyncWorker: sync already running", "job", job.Name())
				continue
			}
			slog.Error("SyncWorker: sync failed", "job", job.Name(), "error", err)
		}
	}
}
