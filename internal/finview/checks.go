package finview

import (
	"fmt"
	"math"

	"afasrapport/internal/core"
)

// Tolerance for float comparisons in checks, one euro cent.
const checkTolerance = 0.01

const (
	CheckDebetCreditBalance = "debetCreditBalance"
	CheckBalansEquity       = "balansEquity"
)

// RunChecks runs consistency controls over a built view.
//
// Per month it verifies that debet and credit postings balance. Overall it
// compares the book equity read from the balance accounts (assets minus
// liabilities) with the cumulative result (Opbrengsten + Kosten net). Unlike
// Balans.TotaalPassiva, neither side is derived from the other. A failed
// control is reported as a warning: ledgers mid-period are routinely out of
// balance.
func RunChecks(view *core.FinancialView) core.FinancialChecks {
	checks := core.EmptyChecks()
	if view == nil {
		return checks
	}

	for _, bucket := range view.MonthlyData {
		checks.ByMonth[bucket.Key] = []core.CheckResult{
			compare(CheckDebetCreditBalance, bucket.TotalDebet, bucket.TotalCredit,
				"debet en credit in "+bucket.MonthName),
		}
	}

	types := view.AccountTypeTotals
	result := types[core.AccountTypeOpbrengsten].NetAmount + types[core.AccountTypeKosten].NetAmount
	// Nets are credit - debet, so asset balances come out negative.
	equity := -types[core.AccountTypeActiva].NetAmount - types[core.AccountTypePassiva].NetAmount
	checks.Overall = append(checks.Overall,
		compare(CheckBalansEquity, result, equity, "eigen vermogen en cumulatief resultaat"))

	return checks
}

func compare(name string, expected, actual float64, subject string) core.CheckResult {
	diff := actual - expected
	res := core.CheckResult{
		Name:       name,
		Status:     core.CheckOK,
		Expected:   expected,
		Actual:     actual,
		Difference: diff,
		Message:    subject + " sluiten",
	}
	if math.Abs(diff) > checkTolerance {
		res.Status = core.CheckWarning
		res.Message = fmt.Sprintf("%s wijken %.2f af", subject, diff)
	}
	return res
}
