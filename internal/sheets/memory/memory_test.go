package memory

import (
	"context"
	"testing"

	"afasrapport/internal/core"
	"afasrapport/internal/finview"
)

func TestStore_ExportView(t *testing.T) {
	s := New("")
	view := finview.Build([]core.RawTransaction{
		{Jaar: 2024, Periode: 3, BedragDebet: 10, TypeRekening: "Kosten"},
	}, core.FullYear(2024))

	ref, err := s.ExportView(context.Background(), view)
	if err != nil {
		t.Fatalf("ExportView: %v", err)
	}
	if ref != "Overzicht!A1:H3" {
		t.Errorf("ref = %q", ref)
	}
	if s.Exports() != 1 {
		t.Errorf("exports = %d, want 1", s.Exports())
	}

	rows := s.Rows()
	if len(rows) != 3 || rows[1][0] != "maart 2024" {
		t.Errorf("unexpected rows: %v", rows)
	}

	rows[1][0] = "changed"
	if s.Rows()[1][0] != "maart 2024" {
		t.Error("Rows must return a copy")
	}
}

func TestStore_ExportNilView(t *testing.T) {
	if _, err := New("Blad1").ExportView(context.Background(), nil); err == nil {
		t.Fatal("expected error for nil view")
	}
}
