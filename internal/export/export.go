// Package export writes collection valuation reports to spreadsheet
// destinations: an XLSX file via excelize or a Google Sheet via a service
// account.
package export

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/cardkeep/cardkeep/internal/domain"
)

// Writer writes one valuation report to a destination.
type Writer interface {
	Write(ctx context.Context, v *domain.CollectionValuation) error
}

// Service delegates report writing to a Writer. It implements the snapshot
// worker's after-snapshot hook so each daily snapshot can be exported.
type Service struct {
	writer Writer
}

// NewService creates a new export Service.
func NewService(writer Writer) *Service {
	return &Service{writer: writer}
}

// Export writes the valuation report.
func (s *Service) Export(ctx context.Context, v *domain.CollectionValuation) error {
	if err := s.writer.Write(ctx, v); err != nil {
		return fmt.Errorf("exporting valuation: %w", err)
	}
	return nil
}

// reportHeader is the column layout shared by the XLSX and Sheets writers.
var reportHeader = []any{
	"Item ID", "Name", "Kind", "Quantity",
	"Paid", "Market Unit", "Market Total", "Gain", "Priced",
}

// buildRows renders the valuation as sheet rows: header, one row per line,
// then a totals row.
func buildRows(v *domain.CollectionValuation) [][]any {
	data := make([][]any, 0, len(v.Lines)+2)
	data = append(data, reportHeader)

	for _, line := range v.Lines {
		data = append(data, []any{
			line.ItemID,
			line.Name,
			string(line.Kind),
			line.Quantity,
			toFloat(line.PaidTotal),
			toFloat(line.MarketUnit),
			toFloat(line.MarketTotal),
			toFloat(line.Gain),
			line.Priced,
		})
	}

	data = append(data, []any{
		"TOTAL", "", "", "",
		toFloat(v.TotalPaid), "",
		toFloat(v.TotalMarket),
		toFloat(v.TotalGain),
		fmt.Sprintf("%d/%d", v.Priced, v.Priced+v.Unpriced),
	})
	return data
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
