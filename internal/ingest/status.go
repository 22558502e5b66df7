// Package ingest holds the sync jobs that pull catalog and pricing data from
// the upstream providers into the database, plus the status rows that record
// their outcomes.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// State is a sync job's lifecycle state as recorded on its status row.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// SyncStatus is one job's persisted status row.
type SyncStatus struct {
	Domain      string     `json:"domain"`
	State       State      `json:"state"`
	LastRunAt   *time.Time `json:"lastRunAt,omitempty"`
	LastError   string     `json:"lastError,omitempty"`
	ItemsSynced int        `json:"itemsSynced"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// StatusRepository persists sync status rows.
type StatusRepository interface {
	Get(ctx context.Context, domain string) (*SyncStatus, error)
	MarkRunning(ctx context.Context, domain string) error
	MarkCompleted(ctx context.Context, domain string, items int) error
	MarkFailed(ctx context.Context, domain string, cause error) error
}

// PgStatusRepository implements StatusRepository with PostgreSQL.
type PgStatusRepository struct {
	pool *pgxpool.Pool
}

// NewPgStatusRepository creates a new PostgreSQL status repository.
func NewPgStatusRepository(pool *pgxpool.Pool) *PgStatusRepository {
	return &PgStatusRepository{pool: pool}
}

// Get reads one job's status row. A job that has never run has no row and
// returns nil, not an error.
func (r *PgStatusRepository) Get(ctx context.Context, domain string) (*SyncStatus, error) {
	var st SyncStatus
	var lastRun *time.Time
	var lastErr *string
	err := r.pool.QueryRow(ctx,
		`SELECT domain, state, last_run_at, last_error, items_synced, updated_at
		 FROM sync_status WHERE domain = $1`, domain).
		Scan(&st.Domain, &st.State, &lastRun, &lastErr, &st.ItemsSynced, &st.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting sync status for %s: %w", domain, err)
	}
	st.LastRunAt = lastRun
	if lastErr != nil {
		st.LastError = *lastErr
	}
	return &st, nil
}

func (r *PgStatusRepository) MarkRunning(ctx context.Context, domain string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO sync_status (domain, state, updated_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (domain) DO UPDATE SET
		     state = $2, last_error = NULL, updated_at = NOW()`,
		domain, StateRunning)
	if err != nil {
		return fmt.Errorf("marking %s running: %w", domain, err)
	}
	return nil
}

func (r *PgStatusRepository) MarkCompleted(ctx context.Context, domain string, items int) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO sync_status (domain, state, last_run_at, items_synced, updated_at)
		 VALUES ($1, $2, NOW(), $3, NOW())
		 ON CONFLICT (domain) DO UPDATE SET
		     state = $2, last_run_at = NOW(), last_error = NULL,
		     items_synced = $3, updated_at = NOW()`,
		domain, StateCompleted, items)
	if err != nil {
		return fmt.Errorf("marking %s completed: %w", domain, err)
	}
	return nil
}

// MarkFailed records the failure and stamps last_run_at so the age-based
// check does not immediately re-trigger a broken job; failed runs wait for
// the next window or a manual trigger.
func (r *PgStatusRepository) MarkFailed(ctx context.Context, domain string, cause error) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO sync_status (domain, state, last_run_at, last_error, updated_at)
		 VALUES ($1, $2, NOW(), $3, NOW())
		 ON CONFLICT (domain) DO UPDATE SET
		     state = $2, last_run_at = NOW(), last_error = $3, updated_at = NOW()`,
		domain, StateFailed, cause.Error())
	if err != nil {
		return fmt.Errorf("marking %s failed: %w", domain, err)
	}
	return nil
}
