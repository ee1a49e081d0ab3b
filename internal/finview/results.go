package finview

import "afasrapport/internal/core"

// Results derives the per-month profit-and-loss lines, in the same order as
// view.MonthlyData (newest first).
func Results(view *core.FinancialView) []core.MonthResult {
	if view == nil {
		return []core.MonthResult{}
	}
	out := make([]core.MonthResult, 0, len(view.MonthlyData))
	for _, bucket := range view.MonthlyData {
		omzet := bucket.AccountTypeBreakdown[core.AccountTypeOpbrengsten].NetAmount
		kosten := bucket.AccountTypeBreakdown[core.AccountTypeKosten].NetAmount
		res := core.MonthResult{
			Key:       bucket.Key,
			Year:      bucket.Year,
			Month:     bucket.Month,
			MonthName: bucket.MonthName,
			Omzet:     omzet,
			Kosten:    kosten,
			Resultaat: omzet + kosten,
		}
		if omzet != 0 {
			res.MargePct = res.Resultaat / omzet * 100
		}
		out = append(out, res)
	}
	return out
}
