package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"afasrapport/internal/core"
	"afasrapport/internal/finview"
)

func TestWriteXLSX(t *testing.T) {
	view := finview.Build([]core.RawTransaction{
		{Jaar: 2024, Periode: 1, BedragCredit: 1000, Omschrijving3: "Omzet", TypeRekening: "Opbrengsten"},
		{Jaar: 2024, Periode: 2, BedragDebet: 400, Omschrijving3: "Huur", TypeRekening: "Kosten"},
	}, core.FullYear(2024))

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, view))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetOverzicht, SheetMaanden, SheetCategorieen, SheetBalans}, f.GetSheetList())

	months, err := f.GetRows(SheetMaanden)
	require.NoError(t, err)
	require.Len(t, months, 4)
	assert.Equal(t, "januari 2024", months[1][0])
	assert.Equal(t, "februari 2024", months[2][0])
	assert.Equal(t, "Totaal", months[3][0])

	cats, err := f.GetRows(SheetCategorieen)
	require.NoError(t, err)
	require.Len(t, cats, 3)
	assert.Equal(t, "Huur", cats[1][0])
	assert.Equal(t, "-400", cats[1][3])

	overview, err := f.GetRows(SheetOverzicht)
	require.NoError(t, err)
	assert.Equal(t, "2", overview[1][1])
}

func TestWriteXLSXNilView(t *testing.T) {
	assert.Error(t, WriteXLSX(&bytes.Buffer{}, nil))
}

func TestReadXLSX(t *testing.T) {
	f := excelize.NewFile()
	rows := [][]any{
		{"Jaar", "Periode", "Bedrag_debet", "Bedrag_credit", "Omschrijving_3", "Type_rekening", "Dagboek"},
		{2024, 3, "1.234,56", "", "Huur", "Kosten", "MEM"},
		{},
		{"2024", "4", "", 99.5, "", "Opbrengsten", ""},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	require.NoError(t, f.Close())

	records, err := ReadXLSX(&buf)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, 2024, records[0].Jaar)
	assert.Equal(t, 3, records[0].Periode)
	assert.InDelta(t, 1234.56, records[0].BedragDebet, 1e-9)
	assert.Equal(t, "Huur", records[0].Omschrijving3)
	assert.Contains(t, records[0].Extra, "Dagboek")

	assert.Equal(t, 4, records[1].Periode)
	assert.Equal(t, 99.5, records[1].BedragCredit)
	assert.Empty(t, records[1].Omschrijving3)
}

func TestReadXLSXHeaderOnly(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"Jaar", "Periode"}))
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	_, err := ReadXLSX(&buf)
	assert.ErrorIs(t, err, ErrEmptyWorkbook)
}
