package export

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cardkeep/cardkeep/internal/domain"
)

func TestBuildRows(t *testing.T) {
	v := &domain.CollectionValuation{
		Lines: []domain.ValuationLine{
			{
				ItemID: "sv1-025", Name: "Charizard", Kind: domain.KindCard,
				Quantity:  2,
				PaidTotal: decimal.NewFromInt(10), MarketUnit: decimal.NewFromInt(12),
				MarketTotal: decimal.NewFromInt(24), Gain: decimal.NewFromInt(14),
				Priced: true,
			},
			{
				ItemID: "unknown-1", Name: "", Kind: domain.KindCard,
				Quantity: 1, PaidTotal: decimal.NewFromInt(3),
				Gain: decimal.NewFromInt(-3),
			},
		},
		TotalPaid:   decimal.NewFromInt(13),
		TotalMarket: decimal.NewFromInt(24),
		TotalGain:   decimal.NewFromInt(11),
		Priced:      1,
		Unpriced:    1,
		GeneratedAt: time.Now(),
	}

	rows := buildRows(v)

	if len(rows) != 4 {
		t.Fatalf("rows = %d, want header + 2 lines + totals", len(rows))
	}
	if rows[0][0] != "Item ID" {
		t.Errorf("header starts with %v", rows[0][0])
	}
	if rows[1][0] != "sv1-025" || rows[1][6] != 24.0 {
		t.Errorf("line row = %v", rows[1])
	}

	totals := rows[len(rows)-1]
	if totals[0] != "TOTAL" {
		t.Fatalf("last row = %v, want totals", totals)
	}
	if totals[4] != 13.0 || totals[6] != 24.0 || totals[7] != 11.0 {
		t.Errorf("totals = %v, want paid 13, market 24, gain 11", totals)
	}
	if totals[8] != "1/2" {
		t.Errorf("priced counter = %v, want 1/2", totals[8])
	}
}

func TestBuildRowsEmptyCollection(t *testing.T) {
	v := &domain.CollectionValuation{GeneratedAt: time.Now()}

	rows := buildRows(v)
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want header + totals only", len(rows))
	}
	if rows[1][8] != "0/0" {
		t.Errorf("priced counter = %v, want 0/0", rows[1][8])
	}
}
