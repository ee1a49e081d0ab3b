package sheets

import (
	"context"

	"afasrapport/internal/core"
)

// Ports for outbound adapters.
type (
	// ViewExporter publishes a financial view to a spreadsheet and returns a
	// reference to the written range.
	ViewExporter interface {
		ExportView(ctx context.Context, view *core.FinancialView) (ref string, err error)
	}
)

// MonthlyHeader is the header row of the monthly overview.
var MonthlyHeader = []any{"Maand", "Debet", "Credit", "Netto", "Omzet", "Kosten", "Resultaat", "Marge %"}

// MonthlyRows renders the monthly overview, header first and months oldest
// first, closing with a totals row.
func MonthlyRows(view *core.FinancialView) [][]any {
	rows := [][]any{MonthlyHeader}
	if view == nil {
		return rows
	}

	var omzet, kosten float64
	for i := len(view.MonthlyData) - 1; i >= 0; i-- {
		b := view.MonthlyData[i]
		o := b.AccountTypeBreakdown[core.AccountTypeOpbrengsten].NetAmount
		k := b.AccountTypeBreakdown[core.AccountTypeKosten].NetAmount
		omzet += o
		kosten += k
		rows = append(rows, []any{b.MonthName, b.TotalDebet, b.TotalCredit, b.NetAmount, o, k, o + k, marge(o, k)})
	}

	s := view.Summary
	rows = append(rows, []any{"Totaal", s.TotalDebet, s.TotalCredit, s.NetAmount, omzet, kosten, omzet + kosten, marge(omzet, kosten)})
	return rows
}

func marge(omzet, kosten float64) float64 {
	if omzet == 0 {
		return 0
	}
	return (omzet + kosten) / omzet * 100
}
