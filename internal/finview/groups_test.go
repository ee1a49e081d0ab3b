package finview

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"afasrapport/internal/core"
)

func TestGroupTotals(t *testing.T) {
	records := []core.RawTransaction{
		{Jaar: 2024, Periode: 1, BedragDebet: 1000, Omschrijving3: "Huur"},
		{Jaar: 2024, Periode: 1, BedragDebet: 200, Omschrijving3: "Energie"},
		{Jaar: 2024, Periode: 1, BedragCredit: 5000, Omschrijving3: "Omzet"},
		{Jaar: 2024, Periode: 2, BedragDebet: 80, Omschrijving3: "Bankkosten"},
	}
	view := Build(records, core.FullYear(2024))
	mappings := []core.CategoryMapping{
		{Category: "Huur", ReportGroup: "Huisvesting"},
		{Category: "Energie", ReportGroup: "Huisvesting"},
		{Category: "Omzet", ReportGroup: "Omzet"},
	}

	groups := GroupTotals(view, mappings)
	require.Len(t, groups, 3)

	assert.Equal(t, "Huisvesting", groups[0].Group)
	assert.Equal(t, []string{"Energie", "Huur"}, groups[0].Categories)
	assert.Equal(t, -1200.0, groups[0].NetAmount)
	assert.Equal(t, 2, groups[0].RecordCount)

	assert.Equal(t, "Omzet", groups[1].Group)
	assert.Equal(t, UnmappedGroup, groups[2].Group)
	assert.Equal(t, []string{"Bankkosten"}, groups[2].Categories)

	assert.Equal(t, []string{"Bankkosten"}, UnmappedCategories(view, mappings))
}

func TestGroupTotalsNilView(t *testing.T) {
	assert.Empty(t, GroupTotals(nil, nil))
	assert.Empty(t, UnmappedCategories(nil, nil))
}
