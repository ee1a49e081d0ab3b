package finview

import (
	"sort"

	"afasrapport/internal/core"
)

// UnmappedGroup collects categories that have no report-group mapping.
const UnmappedGroup = "Niet ingedeeld"

// GroupTotal is the total of one report group and the categories in it.
type GroupTotal struct {
	Group      string   `json:"group"`
	Categories []string `json:"categories"`
	core.Totals
}

// GroupTotals folds the view's category totals into report groups.
// The result is sorted by group name, with UnmappedGroup last.
func GroupTotals(view *core.FinancialView, mappings []core.CategoryMapping) []GroupTotal {
	out := []GroupTotal{}
	if view == nil {
		return out
	}

	groupOf := make(map[string]string, len(mappings))
	for _, m := range mappings {
		groupOf[m.Category] = m.ReportGroup
	}

	byGroup := map[string]*GroupTotal{}
	for category, t := range view.CategoryTotals {
		group, ok := groupOf[category]
		if !ok {
			group = UnmappedGroup
		}
		g, ok := byGroup[group]
		if !ok {
			g = &GroupTotal{Group: group}
			byGroup[group] = g
		}
		g.Categories = append(g.Categories, category)
		g.TotalDebet += t.TotalDebet
		g.TotalCredit += t.TotalCredit
		g.RecordCount += t.RecordCount
		g.NetAmount = g.TotalCredit - g.TotalDebet
	}

	for _, g := range byGroup {
		sort.Strings(g.Categories)
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		if (out[i].Group == UnmappedGroup) != (out[j].Group == UnmappedGroup) {
			return out[j].Group == UnmappedGroup
		}
		return out[i].Group < out[j].Group
	})
	return out
}

// UnmappedCategories lists the view's categories without a mapping, sorted.
func UnmappedCategories(view *core.FinancialView, mappings []core.CategoryMapping) []string {
	out := []string{}
	if view == nil {
		return out
	}
	mapped := make(map[string]bool, len(mappings))
	for _, m := range mappings {
		mapped[m.Category] = true
	}
	for category := range view.CategoryTotals {
		if !mapped[category] {
			out = append(out, category)
		}
	}
	sort.Strings(out)
	return out
}
