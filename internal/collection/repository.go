// Package collection tracks owned inventory and sales, and values the whole
// collection through the pricing orchestrator.
package collection

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cardkeep/cardkeep/internal/domain"
)

// ErrNotFound indicates that the requested row was not found.
var ErrNotFound = errors.New("collection: not found")

// Repository defines persistent storage for holdings and sales.
type Repository interface {
	AddHolding(ctx context.Context, h domain.Holding) (int64, error)
	UpdateHolding(ctx context.Context, h domain.Holding) error
	DeleteHolding(ctx context.Context, id int64) error
	ListHoldings(ctx context.Context) ([]domain.Holding, error)

	AddSale(ctx context.Context, s domain.Sale) (int64, error)
	ListSales(ctx context.Context) ([]domain.Sale, error)
}

// PgRepository implements Repository with PostgreSQL.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewPgRepository creates a new PostgreSQL collection repository.
func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) AddHolding(ctx context.Context, h domain.Holding) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO collection_holdings (item_id, quantity, condition, acquired_price,
		                                  acquired_at, notes, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW())
		 RETURNING id`,
		h.ItemID, h.Quantity, h.Condition, h.AcquiredPrice, h.AcquiredAt, h.Notes).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("adding holding for %s: %w", h.ItemID, err)
	}
	return id, nil
}

func (r *PgRepository) UpdateHolding(ctx context.Context, h domain.Holding) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE collection_holdings SET
		     quantity = $2, condition = $3, acquired_price = $4, acquired_at = $5, notes = $6
		 WHERE id = $1`,
		h.ID, h.Quantity, h.Condition, h.AcquiredPrice, h.AcquiredAt, h.Notes)
	if err != nil {
		return fmt.Errorf("updating holding %d: %w", h.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("updating holding %d: %w", h.ID, ErrNotFound)
	}
	return nil
}

func (r *PgRepository) DeleteHolding(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM collection_holdings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting holding %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("deleting holding %d: %w", id, ErrNotFound)
	}
	return nil
}

func (r *PgRepository) ListHoldings(ctx context.Context) ([]domain.Holding, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, item_id, quantity, COALESCE(condition, ''), acquired_price,
		        acquired_at, COALESCE(notes, ''), created_at
		 FROM collection_holdings ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("listing holdings: %w", err)
	}
	defer rows.Close()

	var holdings []domain.Holding
	for rows.Next() {
		var h domain.Holding
		if err := rows.Scan(&h.ID, &h.ItemID, &h.Quantity, &h.Condition,
			&h.AcquiredPrice, &h.AcquiredAt, &h.Notes, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning holding: %w", err)
		}
		holdings = append(holdings, h)
	}
	return holdings, rows.Err()
}

func (r *PgRepository) AddSale(ctx context.Context, s domain.Sale) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO collection_sales (item_id, quantity, sale_price, sold_at, created_at)
		 VALUES ($1, $2, $3, $4, NOW())
		 RETURNING id`,
		s.ItemID, s.Quantity, s.SalePrice, s.SoldAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("adding sale for %s: %w", s.ItemID, err)
	}
	return id, nil
}

func (r *PgRepository) ListSales(ctx context.Context) ([]domain.Sale, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, item_id, quantity, sale_price, sold_at, created_at
		 FROM collection_sales ORDER BY sold_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("listing sales: %w", err)
	}
	defer rows.Close()

	var sales []domain.Sale
	for rows.Next() {
		var s domain.Sale
		if err := rows.Scan(&s.ID, &s.ItemID, &s.Quantity, &s.SalePrice,
			&s.SoldAt, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning sale: %w", err)
		}
		sales = append(sales, s)
	}
	return sales, rows.Err()
}
