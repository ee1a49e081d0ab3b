package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"afasrapport/internal/core"
)

const ledgerJSON = `[
  {"Jaar": 2024, "Periode": 1, "Bedrag_credit": "1.000,00", "Omschrijving_3": "Omzet", "Type_rekening": "Opbrengsten"},
  {"Jaar": 2024, "Periode": 1, "Bedrag_debet": 400, "Omschrijving_3": "Huur", "Type_rekening": "Kosten"},
  {"Jaar": 2024, "Periode": 2, "Bedrag_debet": 100, "Omschrijving_3": "Energie", "Type_rekening": "Kosten"}
]`

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestBuildFromStdin(t *testing.T) {
	out, err := run(t, ledgerJSON, "build", "--from", "2024-01", "--to", "2024-12", "--checks")
	require.NoError(t, err)

	var view core.FinancialView
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, 3, view.Summary.TotalRecords)
	assert.Equal(t, 2, view.Summary.MonthsWithData)
	assert.NotEmpty(t, view.FinancialChecks.Overall)
}

func TestBuildRejectsBadPeriod(t *testing.T) {
	_, err := run(t, ledgerJSON, "build", "--from", "2024-13", "--to", "2024-12")
	assert.ErrorIs(t, err, core.ErrInvalidRange)

	_, err = run(t, ledgerJSON, "build", "--from", "januari", "--to", "2024-12")
	assert.ErrorIs(t, err, core.ErrInvalidRange)
}

func TestBuildRejectsNonArray(t *testing.T) {
	_, err := run(t, `{"rows": []}`, "build", "--from", "2024-01", "--to", "2024-12")
	assert.ErrorIs(t, err, core.ErrNotArray)
}

func TestBuildFromFileToWorkbook(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "ledger.json")
	require.NoError(t, os.WriteFile(in, []byte(ledgerJSON), 0o644))
	out := filepath.Join(dir, "view.xlsx")

	stdout, err := run(t, "", "build", "--in", in, "--from", "2024-01", "--to", "2024-12", "--out", out)
	require.NoError(t, err)
	assert.Empty(t, stdout)

	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestBuildWritesJSONToOut(t *testing.T) {
	out := filepath.Join(t.TempDir(), "view.json")

	stdout, err := run(t, ledgerJSON, "build", "--from", "2024-01", "--to", "2024-12", "--out", out)
	require.NoError(t, err)
	assert.Empty(t, stdout)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var view core.FinancialView
	require.NoError(t, json.Unmarshal(data, &view))
	assert.Equal(t, 3, view.Summary.TotalRecords)
}

func TestSummary(t *testing.T) {
	out, err := run(t, ledgerJSON, "summary", "--from", "2024-01", "--to", "2024-12")
	require.NoError(t, err)

	assert.Contains(t, out, "januari 2024")
	assert.Contains(t, out, "februari 2024")
	assert.Contains(t, out, "Totaal")
	assert.Contains(t, out, "500.00")
	assert.Contains(t, out, "balansEquity")
}
