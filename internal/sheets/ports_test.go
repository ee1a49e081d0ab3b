package sheets

import (
	"testing"

	"afasrapport/internal/core"
	"afasrapport/internal/finview"
)

func TestMonthlyRows(t *testing.T) {
	view := finview.Build([]core.RawTransaction{
		{Jaar: 2024, Periode: 1, BedragCredit: 200, TypeRekening: "Opbrengsten"},
		{Jaar: 2024, Periode: 1, BedragDebet: 150, TypeRekening: "Kosten"},
		{Jaar: 2024, Periode: 2, BedragCredit: 100, TypeRekening: "Opbrengsten"},
	}, core.FullYear(2024))

	rows := MonthlyRows(view)
	if len(rows) != 4 {
		t.Fatalf("expected header, 2 months and totals, got %d rows", len(rows))
	}
	if rows[1][0] != "januari 2024" || rows[2][0] != "februari 2024" {
		t.Errorf("months not oldest first: %v, %v", rows[1][0], rows[2][0])
	}
	if got := rows[1][7]; got != 25.0 {
		t.Errorf("january margin = %v, want 25", got)
	}

	total := rows[3]
	if total[0] != "Totaal" {
		t.Errorf("last row = %v, want totals", total[0])
	}
	if total[6] != 150.0 {
		t.Errorf("total resultaat = %v, want 150", total[6])
	}
}

func TestMonthlyRowsNilView(t *testing.T) {
	rows := MonthlyRows(nil)
	if len(rows) != 1 {
		t.Fatalf("expected only the header, got %d rows", len(rows))
	}
}
