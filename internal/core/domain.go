package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Derived label values used by the category and account-type chains.
const (
	CategoryOverige = "Overige"

	KenmerkCrediteuren       = "Crediteuren"
	KenmerkDebiteuren        = "Debiteuren"
	KenmerkGrootboekrekening = "Grootboekrekening"

	AccountTypeKosten      = "Kosten"
	AccountTypePassiva     = "Passiva"
	AccountTypeOpbrengsten = "Opbrengsten"
	AccountTypeActiva      = "Activa"
	AccountTypeOverige     = "Overige"
)

// AFAS connector field names.
const (
	FieldJaar            = "Jaar"
	FieldPeriode         = "Periode"
	FieldBedragDebet     = "Bedrag_debet"
	FieldBedragCredit    = "Bedrag_credit"
	FieldOmschrijving3   = "Omschrijving_3"
	FieldKenmerkRekening = "Kenmerk_rekening"
	FieldTypeRekening    = "Type_rekening"
	FieldCategorie       = "Categorie"
	FieldAccountTypeName = "AccountTypeName"
)

type (
	// RawTransaction is one AFAS ledger entry after boundary parsing.
	// Empty strings mean the tag was absent upstream.
	RawTransaction struct {
		Jaar            int
		Periode         int // 1-12, 0 = opening balance
		BedragDebet     float64
		BedragCredit    float64
		Omschrijving3   string
		KenmerkRekening string
		TypeRekening    string

		// Extra holds every upstream field not modelled above, passed through untouched.
		Extra map[string]json.RawMessage
	}

	// Record is a RawTransaction annotated with its derived labels.
	Record struct {
		RawTransaction
		Categorie       string
		AccountTypeName string
	}

	// PeriodRange is an inclusive (year, month) interval.
	PeriodRange struct {
		StartYear  int `json:"startYear"`
		StartMonth int `json:"startMonth"`
		EndYear    int `json:"endYear"`
		EndMonth   int `json:"endMonth"`
	}

	Totals struct {
		TotalDebet  float64 `json:"totalDebet"`
		TotalCredit float64 `json:"totalCredit"`
		NetAmount   float64 `json:"netAmount"`
		RecordCount int     `json:"recordCount"`
	}

	MonthBucket struct {
		Key                  string            `json:"key"`
		Year                 int               `json:"year"`
		Month                int               `json:"month"`
		MonthName            string            `json:"monthName"`
		Records              []Record          `json:"records"`
		TotalDebet           float64           `json:"totalDebet"`
		TotalCredit          float64           `json:"totalCredit"`
		NetAmount            float64           `json:"netAmount"`
		CategoryBreakdown    map[string]Totals `json:"categoryBreakdown"`
		AccountTypeBreakdown map[string]Totals `json:"accountTypeBreakdown"`
	}

	DateRange struct {
		Start string `json:"start"`
		End   string `json:"end"`
	}

	Summary struct {
		TotalRecords   int       `json:"totalRecords"`
		MonthsWithData int       `json:"monthsWithData"`
		DateRange      DateRange `json:"dateRange"`
		TotalDebet     float64   `json:"totalDebet"`
		TotalCredit    float64   `json:"totalCredit"`
		NetAmount      float64   `json:"netAmount"`
	}

	// BalansTotals is the balance-sheet triple. EigenVermogen is derived as
	// Activa - |Passiva|, it is not read from an equity account.
	BalansTotals struct {
		Activa        float64 `json:"activa"`
		Passiva       float64 `json:"passiva"`
		EigenVermogen float64 `json:"eigenVermogen"`
		TotaalPassiva float64 `json:"totaalPassiva"`
	}

	Balans struct {
		BalansTotals
		// PerMonth holds each month's own flows, keyed like MonthBucket.Key.
		PerMonth map[string]BalansTotals `json:"perMonth"`
	}

	CheckStatus string

	CheckResult struct {
		Name       string      `json:"name"`
		Status     CheckStatus `json:"status"`
		Message    string      `json:"message"`
		Expected   float64     `json:"expected"`
		Actual     float64     `json:"actual"`
		Difference float64     `json:"difference"`
	}

	FinancialChecks struct {
		ByMonth map[string][]CheckResult `json:"byMonth"`
		Overall []CheckResult            `json:"overall"`
	}

	FinancialView struct {
		Summary           Summary           `json:"summary"`
		CategoryTotals    map[string]Totals `json:"categoryTotals"`
		AccountTypeTotals map[string]Totals `json:"accountTypeTotals"`
		Balans            Balans            `json:"balans"`
		MonthlyData       []MonthBucket     `json:"monthlyData"`
		AllRecords        []Record          `json:"allRecords"`
		FinancialChecks   FinancialChecks   `json:"financialChecks"`
	}

	// MonthResult is the profit-and-loss line for one month.
	MonthResult struct {
		Key       string  `json:"key"`
		Year      int     `json:"year"`
		Month     int     `json:"month"`
		MonthName string  `json:"monthName"`
		Omzet     float64 `json:"omzet"`
		Kosten    float64 `json:"kosten"`
		Resultaat float64 `json:"resultaat"`
		MargePct  float64 `json:"margePct"`
	}

	// CategoryMapping assigns a derived category to a report group.
	CategoryMapping struct {
		Category    string `json:"category" yaml:"category"`
		ReportGroup string `json:"reportGroup" yaml:"reportGroup"`
	}

	Conversation struct {
		ID        string    `json:"id"`
		Title     string    `json:"title"`
		CreatedAt time.Time `json:"createdAt"`
	}

	// ChatMessage is one turn of an assistant conversation.
	ChatMessage struct {
		ConversationID string    `json:"conversationId"`
		Role           string    `json:"role"` // "user" or "model"
		Content        string    `json:"content"`
		CreatedAt      time.Time `json:"createdAt"`
	}
)

const (
	RoleUser  = "user"
	RoleModel = "model"
)

const (
	CheckOK      CheckStatus = "ok"
	CheckWarning CheckStatus = "warning"
)

var (
	ErrNotArray      = errors.New("records payload is not an array")
	ErrInvalidRecord = errors.New("invalid transaction record")
	ErrInvalidRange  = errors.New("invalid period range")
	ErrNotFound      = errors.New("not found")
)

// EmptyChecks returns the placeholder checks structure ({byMonth:{}, overall:[]}).
func EmptyChecks() FinancialChecks {
	return FinancialChecks{
		ByMonth: map[string][]CheckResult{},
		Overall: []CheckResult{},
	}
}

// MonthKey formats the bucket key "{year}-{MM}".
func MonthKey(year, month int) string {
	return fmt.Sprintf("%d-%02d", year, month)
}

// FullYear returns the January–December range of year.
func FullYear(year int) PeriodRange {
	return PeriodRange{StartYear: year, StartMonth: 1, EndYear: year, EndMonth: 12}
}

func (r PeriodRange) Validate() error {
	if r.StartMonth < 1 || r.StartMonth > 12 {
		return fmt.Errorf("%w: start month %d must be between 1 and 12", ErrInvalidRange, r.StartMonth)
	}
	if r.EndMonth < 1 || r.EndMonth > 12 {
		return fmt.Errorf("%w: end month %d must be between 1 and 12", ErrInvalidRange, r.EndMonth)
	}
	if r.StartYear > r.EndYear || (r.StartYear == r.EndYear && r.StartMonth > r.EndMonth) {
		return fmt.Errorf("%w: start %s is after end %s", ErrInvalidRange,
			MonthKey(r.StartYear, r.StartMonth), MonthKey(r.EndYear, r.EndMonth))
	}
	return nil
}

// String renders the range as "2024-01..2024-12".
func (r PeriodRange) String() string {
	return MonthKey(r.StartYear, r.StartMonth) + ".." + MonthKey(r.EndYear, r.EndMonth)
}
