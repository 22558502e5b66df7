package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cardkeep/cardkeep/internal/domain"
	"github.com/cardkeep/cardkeep/internal/ingest"
)

type mockJob struct {
	name     string
	needed   bool
	triggers atomic.Int32
}

func (m *mockJob) Name() string { return m.name }

func (m *mockJob) IsSyncNeeded(_ context.Context) (bool, error) { return m.needed, nil }

func (m *mockJob) Trigger(_ context.Context) error {
	m.triggers.Add(1)
	return nil
}

func (m *mockJob) Stats(_ context.Context) (*ingest.SyncStatus, error) { return nil, nil }

func TestSyncWorkerTriggersOnlyNeededJobs(t *testing.T) {
	due := &mockJob{name: "catalog", needed: true}
	fresh := &mockJob{name: "pricing", needed: false}
	w := NewSyncWorker(50*time.Millisecond, due, fresh)

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()

	w.Run(ctx)

	if got := due.triggers.Load(); got < 1 {
		t.Errorf("due job triggers = %d, want >= 1", got)
	}
	if got := fresh.triggers.Load(); got != 0 {
		t.Errorf("fresh job triggers = %d, want 0", got)
	}
}

type mockSnapshotGenerator struct {
	callCount atomic.Int32
}

func (m *mockSnapshotGenerator) Generate(_ context.Context, _ time.Time) (*domain.CollectionValuation, error) {
	m.callCount.Add(1)
	return &domain.CollectionValuation{GeneratedAt: time.Now()}, nil
}

type mockHook struct {
	callCount atomic.Int32
}

func (m *mockHook) Export(_ context.Context, _ *domain.CollectionValuation) error {
	m.callCount.Add(1)
	return nil
}

func TestSnapshotWorkerRunsAndShutdown(t *testing.T) {
	mock := &mockSnapshotGenerator{}
	w := NewSnapshotWorker(mock, 50*time.Millisecond, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	w.Run(ctx)

	if got := mock.callCount.Load(); got < 1 {
		t.Errorf("call count = %d, want >= 1", got)
	}
}

func TestSnapshotWorkerRunsHook(t *testing.T) {
	mock := &mockSnapshotGenerator{}
	hook := &mockHook{}
	w := NewSnapshotWorker(mock, time.Hour, hook)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	w.Run(ctx)

	if got := hook.callCount.Load(); got != 1 {
		t.Errorf("hook calls = %d, want 1 (startup generation)", got)
	}
}
