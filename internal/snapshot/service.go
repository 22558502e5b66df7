package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cardkeep/cardkeep/internal/domain"
)

// Valuer produces the current collection valuation.
type Valuer interface {
	Value(ctx context.Context) (*domain.CollectionValuation, error)
}

// Service manages snapshot generation and retrieval.
type Service struct {
	valuer Valuer
	repo   Repository
}

// NewService creates a new snapshot service.
func NewService(valuer Valuer, repo Repository) *Service {
	return &Service{valuer: valuer, repo: repo}
}

// Generate prices the collection and stores the valuation under the given
// date, replacing any earlier snapshot for that date.
func (s *Service) Generate(ctx context.Context, date time.Time) (*domain.CollectionValuation, error) {
	valuation, err := s.valuer.Value(ctx)
	if err != nil {
		return nil, fmt.Errorf("valuing collection: %w", err)
	}

	data, err := json.Marshal(valuation)
	if err != nil {
		return nil, fmt.Errorf("marshaling valuation: %w", err)
	}

	if err := s.repo.Save(ctx, date, data); err != nil {
		return nil, fmt.Errorf("saving snapshot: %w", err)
	}
	return valuation, nil
}

// GetLatest retrieves the most recent snapshot.
func (s *Service) GetLatest(ctx context.Context) (*Snapshot, error) {
	return s.repo.GetLatest(ctx)
}

// GetByDate retrieves a snapshot for a specific date.
func (s *Service) GetByDate(ctx context.Context, date time.Time) (*Snapshot, error) {
	return s.repo.GetByDate(ctx, date)
}

// List retrieves recent snapshots.
func (s *Service) List(ctx context.Context, limit int) ([]Snapshot, error) {
	return s.repo.List(ctx, limit)
}
