// Package finview turns flat AFAS ledger rows into the structured financial
// view: month buckets, category and account-type totals, and the balans.
//
// Build is a pure function. It never mutates its input and keeps no state
// between calls, so it is safe to call concurrently and repeatedly.
package finview

import (
	"math"
	"sort"
	"strings"

	"afasrapport/internal/core"
)

var accountTypeNames = map[string]string{
	core.AccountTypeKosten:      core.AccountTypeKosten,
	core.AccountTypePassiva:     core.AccountTypePassiva,
	core.AccountTypeOpbrengsten: core.AccountTypeOpbrengsten,
	core.AccountTypeActiva:      core.AccountTypeActiva,
}

// DeriveCategory picks the grouping label for a record.
//
// Priority: trimmed Omschrijving_3, then Kenmerk_rekening (with
// "Grootboekrekening" collapsed to "Overige"), then "Overige".
func DeriveCategory(t core.RawTransaction) string {
	if label := strings.TrimSpace(t.Omschrijving3); label != "" {
		return label
	}
	switch t.KenmerkRekening {
	case "", core.KenmerkGrootboekrekening:
		return core.CategoryOverige
	default:
		// Crediteuren, Debiteuren and unknown tags are used as-is.
		return t.KenmerkRekening
	}
}

// DeriveAccountTypeName normalizes Type_rekening, defaulting to "Overige".
func DeriveAccountTypeName(t core.RawTransaction) string {
	if name, ok := accountTypeNames[t.TypeRekening]; ok {
		return name
	}
	if t.TypeRekening != "" {
		return t.TypeRekening
	}
	return core.AccountTypeOverige
}

// Annotate returns a copy of t carrying its derived labels.
func Annotate(t core.RawTransaction) core.Record {
	return core.Record{
		RawTransaction:  t,
		Categorie:       DeriveCategory(t),
		AccountTypeName: DeriveAccountTypeName(t),
	}
}

// InRange reports whether (year, month) lies inside rng, comparing year first.
// Month 0 gets no special treatment: in the start year it is excluded
// whenever StartMonth > 0.
func InRange(year, month int, rng core.PeriodRange) bool {
	if year < rng.StartYear || year > rng.EndYear {
		return false
	}
	if year == rng.StartYear && month < rng.StartMonth {
		return false
	}
	if year == rng.EndYear && month > rng.EndMonth {
		return false
	}
	return true
}

// Build derives the financial view for the records inside rng.
func Build(records []core.RawTransaction, rng core.PeriodRange) *core.FinancialView {
	view := &core.FinancialView{
		CategoryTotals:    map[string]core.Totals{},
		AccountTypeTotals: map[string]core.Totals{},
		MonthlyData:       []core.MonthBucket{},
		AllRecords:        []core.Record{},
		FinancialChecks:   core.EmptyChecks(),
	}

	buckets := make(map[string]*core.MonthBucket)
	for _, raw := range records {
		rec := Annotate(raw)
		if !InRange(rec.Jaar, rec.Periode, rng) {
			continue
		}
		view.AllRecords = append(view.AllRecords, rec)

		key := core.MonthKey(rec.Jaar, rec.Periode)
		bucket, ok := buckets[key]
		if !ok {
			bucket = &core.MonthBucket{
				Key:                  key,
				Year:                 rec.Jaar,
				Month:                rec.Periode,
				MonthName:            core.MonthName(rec.Jaar, rec.Periode),
				Records:              []core.Record{},
				CategoryBreakdown:    map[string]core.Totals{},
				AccountTypeBreakdown: map[string]core.Totals{},
			}
			buckets[key] = bucket
		}

		debet, credit := rec.BedragDebet, rec.BedragCredit
		bucket.Records = append(bucket.Records, rec)
		bucket.TotalDebet += debet
		bucket.TotalCredit += credit
		bucket.NetAmount = bucket.TotalCredit - bucket.TotalDebet

		accumulate(bucket.CategoryBreakdown, rec.Categorie, debet, credit)
		accumulate(bucket.AccountTypeBreakdown, rec.AccountTypeName, debet, credit)
		accumulate(view.CategoryTotals, rec.Categorie, debet, credit)
		accumulate(view.AccountTypeTotals, rec.AccountTypeName, debet, credit)

		view.Summary.TotalDebet += debet
		view.Summary.TotalCredit += credit
	}

	for _, bucket := range buckets {
		view.MonthlyData = append(view.MonthlyData, *bucket)
	}
	sort.Slice(view.MonthlyData, func(i, j int) bool {
		a, b := view.MonthlyData[i], view.MonthlyData[j]
		if a.Year != b.Year {
			return a.Year > b.Year
		}
		return a.Month > b.Month
	})

	view.Summary.TotalRecords = len(view.AllRecords)
	view.Summary.MonthsWithData = len(view.MonthlyData)
	view.Summary.NetAmount = view.Summary.TotalCredit - view.Summary.TotalDebet
	view.Summary.DateRange = core.DateRange{
		Start: core.MonthKey(rng.StartYear, rng.StartMonth),
		End:   core.MonthKey(rng.EndYear, rng.EndMonth),
	}

	view.Balans = core.Balans{
		BalansTotals: balansFor(view.AccountTypeTotals),
		PerMonth:     make(map[string]core.BalansTotals, len(view.MonthlyData)),
	}
	for _, bucket := range view.MonthlyData {
		view.Balans.PerMonth[bucket.Key] = balansFor(bucket.AccountTypeBreakdown)
	}

	return view
}

// FromJSON parses a raw AFAS payload and builds its view. A payload that is
// not a JSON array returns a nil view and core.ErrNotArray.
func FromJSON(data []byte, rng core.PeriodRange) (*core.FinancialView, error) {
	records, err := core.ParseRecords(data)
	if err != nil {
		return nil, err
	}
	return Build(records, rng), nil
}

func accumulate(m map[string]core.Totals, key string, debet, credit float64) {
	t := m[key]
	t.TotalDebet += debet
	t.TotalCredit += credit
	t.NetAmount = t.TotalCredit - t.TotalDebet
	t.RecordCount++
	m[key] = t
}

func balansFor(types map[string]core.Totals) core.BalansTotals {
	activa := types[core.AccountTypeActiva].NetAmount
	passiva := types[core.AccountTypePassiva].NetAmount
	vreemdVermogen := math.Abs(passiva)

	return core.BalansTotals{
		Activa:        activa,
		Passiva:       passiva,
		EigenVermogen: activa - vreemdVermogen,
		// |Passiva| + EigenVermogen reduces to Activa; assigned directly so
		// the identity also holds after float rounding.
		TotaalPassiva: activa,
	}
}
