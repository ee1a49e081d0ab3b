package core

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRecordsNotArray(t *testing.T) {
	for _, payload := range []string{`{"Jaar":2024}`, `null`, `"x"`, ``, `42`} {
		_, err := ParseRecords([]byte(payload))
		assert.ErrorIs(t, err, ErrNotArray, "payload %q", payload)
	}
}

func TestParseRecordsFields(t *testing.T) {
	data := []byte(`[
		{"Jaar": 2024, "Periode": 3, "Bedrag_debet": 12.5, "Bedrag_credit": null,
		 "Omschrijving_3": "Huur", "Kenmerk_rekening": "Grootboekrekening",
		 "Type_rekening": "Kosten", "Rekeningnummer": "4100", "Boekstuk": 77},
		{"Jaar": "2024", "Periode": "0", "Bedrag_credit": "1.234,56"}
	]`)

	recs, err := ParseRecords(data)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	first := recs[0]
	assert.Equal(t, 2024, first.Jaar)
	assert.Equal(t, 3, first.Periode)
	assert.Equal(t, 12.5, first.BedragDebet)
	assert.Equal(t, 0.0, first.BedragCredit)
	assert.Equal(t, "Huur", first.Omschrijving3)
	assert.Equal(t, "Grootboekrekening", first.KenmerkRekening)
	assert.Equal(t, "Kosten", first.TypeRekening)
	assert.JSONEq(t, `"4100"`, string(first.Extra["Rekeningnummer"]))
	assert.JSONEq(t, `77`, string(first.Extra["Boekstuk"]))

	second := recs[1]
	assert.Equal(t, 0, second.Periode)
	assert.InDelta(t, 1234.56, second.BedragCredit, 1e-9)
	assert.Equal(t, "", second.Omschrijving3)
	assert.Nil(t, second.Extra)
}

func TestParseRecordsRejectsBadValues(t *testing.T) {
	cases := []string{
		`[{"Jaar": "twintig"}]`,
		`[{"Jaar": 2024, "Periode": 1.5}]`,
		`[{"Jaar": 2024, "Bedrag_debet": "abc"}]`,
		`[17]`,
		`[null]`,
	}
	for _, payload := range cases {
		_, err := ParseRecords([]byte(payload))
		require.Error(t, err, payload)
		assert.True(t, errors.Is(err, ErrInvalidRecord), "payload %s: %v", payload, err)
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"", 0},
		{"12", 12},
		{"12.50", 12.5},
		{"12,50", 12.5},
		{"1.234,56", 1234.56},
		{"1,234.56", 1234.56},
		{" 7 000,25 ", 7000.25},
		{"-3,5", -3.5},
		{"1.234.567", 1234567},
		{"1.234.567,89", 1234567.89},
		{"1,234,567", 1234567},
		{"1.234", 1.234},
	}
	for _, tt := range tests {
		got, err := ParseAmount(tt.in)
		require.NoError(t, err, tt.in)
		assert.InDelta(t, tt.want, got, 1e-9, "ParseAmount(%q)", tt.in)
	}

	_, err := ParseAmount("12,5,0x")
	assert.Error(t, err)
}

func TestRecordJSONPassesExtraFieldsThrough(t *testing.T) {
	raw := RawTransaction{
		Jaar:          2024,
		Periode:       2,
		BedragCredit:  50,
		Omschrijving3: "Omzet",
		Extra:         map[string]json.RawMessage{"Dagboek": json.RawMessage(`"MEM"`)},
	}
	rec := Record{RawTransaction: raw, Categorie: "Omzet", AccountTypeName: "Overige"}

	out, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"Jaar": 2024, "Periode": 2, "Bedrag_debet": 0, "Bedrag_credit": 50,
		"Omschrijving_3": "Omzet", "Dagboek": "MEM",
		"Categorie": "Omzet", "AccountTypeName": "Overige"
	}`, string(out))

	var back Record
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, rec, back)
}

func TestPeriodRangeValidate(t *testing.T) {
	assert.NoError(t, FullYear(2024).Validate())
	assert.NoError(t, PeriodRange{StartYear: 2023, StartMonth: 11, EndYear: 2024, EndMonth: 2}.Validate())

	bad := []PeriodRange{
		{StartYear: 2024, StartMonth: 0, EndYear: 2024, EndMonth: 5},
		{StartYear: 2024, StartMonth: 1, EndYear: 2024, EndMonth: 13},
		{StartYear: 2025, StartMonth: 1, EndYear: 2024, EndMonth: 12},
		{StartYear: 2024, StartMonth: 6, EndYear: 2024, EndMonth: 5},
	}
	for _, r := range bad {
		assert.ErrorIs(t, r.Validate(), ErrInvalidRange, r.String())
	}
}

func TestParseYearMonth(t *testing.T) {
	y, m, err := ParseYearMonth("2024-03")
	require.NoError(t, err)
	assert.Equal(t, 2024, y)
	assert.Equal(t, 3, m)

	for _, in := range []string{"2024", "2024-xx", "yyyy-03", "2024-03-01"} {
		_, _, err := ParseYearMonth(in)
		assert.ErrorIs(t, err, ErrInvalidRange, in)
	}
}

func TestMonthName(t *testing.T) {
	assert.Equal(t, "januari 2024", MonthName(2024, 1))
	assert.Equal(t, "december 2023", MonthName(2023, 12))
	assert.Equal(t, "beginbalans 2024", MonthName(2024, 0))
	assert.Equal(t, "periode 13 2024", MonthName(2024, 13))
	assert.Equal(t, "2024-03", MonthKey(2024, 3))
}
