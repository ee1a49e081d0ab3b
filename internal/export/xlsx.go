// Package export renders financial views as XLSX workbooks and reads ledger
// records back from spreadsheet exports.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"afasrapport/internal/core"
	"afasrapport/internal/sheets"
)

// Sheet names of the generated workbook, in order.
const (
	SheetOverzicht   = "Overzicht"
	SheetMaanden     = "Maanden"
	SheetCategorieen = "Categorieen"
	SheetBalans      = "Balans"
)

const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var ErrEmptyWorkbook = errors.New("workbook has no data rows")

// WriteXLSX writes the view as a workbook to w.
func WriteXLSX(w io.Writer, view *core.FinancialView) error {
	if view == nil {
		return errors.New("nil financial view")
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetOverzicht); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{SheetMaanden, SheetCategorieen, SheetBalans} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	content := map[string][][]any{
		SheetOverzicht:   overviewRows(view),
		SheetMaanden:     sheets.MonthlyRows(view),
		SheetCategorieen: categoryRows(view),
		SheetBalans:      balansRows(view),
	}
	for name, rows := range content {
		if err := writeRows(f, name, rows); err != nil {
			return err
		}
		if err := f.SetColWidth(name, "A", "A", 28); err != nil {
			return fmt.Errorf("set column width on %s: %w", name, err)
		}
	}
	f.SetActiveSheet(0)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func overviewRows(view *core.FinancialView) [][]any {
	s := view.Summary
	rows := [][]any{
		{"Periode", s.DateRange.Start + " t/m " + s.DateRange.End},
		{"Aantal boekingen", s.TotalRecords},
		{"Maanden met data", s.MonthsWithData},
		{"Totaal debet", s.TotalDebet},
		{"Totaal credit", s.TotalCredit},
		{"Netto", s.NetAmount},
		{},
		{"Rekeningtype", "Debet", "Credit", "Netto", "Boekingen"},
	}
	for _, name := range sortedKeys(view.AccountTypeTotals) {
		rows = append(rows, totalsRow(name, view.AccountTypeTotals[name]))
	}
	return rows
}

func categoryRows(view *core.FinancialView) [][]any {
	rows := [][]any{{"Categorie", "Debet", "Credit", "Netto", "Boekingen"}}
	for _, name := range sortedKeys(view.CategoryTotals) {
		rows = append(rows, totalsRow(name, view.CategoryTotals[name]))
	}
	return rows
}

func balansRows(view *core.FinancialView) [][]any {
	b := view.Balans
	rows := [][]any{
		{"", "Activa", "Passiva", "Eigen vermogen", "Totaal passiva"},
		{"Totaal", b.Activa, b.Passiva, b.EigenVermogen, b.TotaalPassiva},
	}
	for i := len(view.MonthlyData) - 1; i >= 0; i-- {
		bucket := view.MonthlyData[i]
		m := b.PerMonth[bucket.Key]
		rows = append(rows, []any{bucket.MonthName, m.Activa, m.Passiva, m.EigenVermogen, m.TotaalPassiva})
	}
	return rows
}

func totalsRow(name string, t core.Totals) []any {
	return []any{name, t.TotalDebet, t.TotalCredit, t.NetAmount, t.RecordCount}
}

func sortedKeys(m map[string]core.Totals) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ReadXLSX parses ledger records from the first sheet of a workbook. The
// first row holds the AFAS field names; empty cells count as absent fields.
func ReadXLSX(r io.Reader) ([]core.RawTransaction, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	names := f.GetSheetList()
	if len(names) == 0 {
		return nil, ErrEmptyWorkbook
	}
	rows, err := f.GetRows(names[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", names[0], err)
	}
	if len(rows) < 2 {
		return nil, ErrEmptyWorkbook
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(h)
	}

	objects := make([]map[string]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		obj := map[string]string{}
		for i, cell := range row {
			if i >= len(header) || header[i] == "" || strings.TrimSpace(cell) == "" {
				continue
			}
			obj[header[i]] = cell
		}
		if len(obj) == 0 {
			continue
		}
		objects = append(objects, obj)
	}

	data, err := json.Marshal(objects)
	if err != nil {
		return nil, err
	}
	return core.ParseRecords(data)
}
