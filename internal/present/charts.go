package present

import (
	"sort"

	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
)

var categoryColors = map[core.Category]string{
	core.Food:           "#ef4444",
	core.Transportation: "#3b82f6",
	core.Entertainment:  "#8b5cf6",
	core.Healthcare:     "#10b981",
	core.Shopping:       "#f59e0b",
	core.Utilities:      "#6b7280",
	core.Education:      "#6366f1",
	core.Travel:         "#ec4899",
	core.General:        "#64748b",
}

// CategoryColor returns the chart color of c; unknown categories share General's.
func CategoryColor(c core.Category) string {
	if color, ok := categoryColors[c]; ok {
		return color
	}
	return categoryColors[core.General]
}

// CategorySlice is one slice of the category chart.
type CategorySlice struct {
	Category core.Category
	Amount   decimal.Decimal
	Color    string
	// Percent of the chart total, one decimal place.
	Percent decimal.Decimal
}

// MonthlyPoint is one bar of the monthly chart.
type MonthlyPoint struct {
	Key    string
	Label  string
	Amount decimal.Decimal
}

// CategorySeries orders the totals by the category display order. Categories
// outside the enumeration follow, sorted by name.
func CategorySeries(totals core.CategoryTotals) []CategorySlice {
	total := decimal.Zero
	for _, v := range totals {
		total = total.Add(v)
	}

	out := make([]CategorySlice, 0, len(totals))
	add := func(c core.Category, v decimal.Decimal) {
		pct := decimal.Zero
		if total.IsPositive() {
			pct = v.Div(total).Mul(decimal.NewFromInt(100)).Round(1)
		}
		out = append(out, CategorySlice{Category: c, Amount: v, Color: CategoryColor(c), Percent: pct})
	}

	for _, c := range core.Categories() {
		if v, ok := totals[c]; ok {
			add(c, v)
		}
	}
	var unknown []core.Category
	for c := range totals {
		if !c.Valid() {
			unknown = append(unknown, c)
		}
	}
	sort.Slice(unknown, func(i, j int) bool { return unknown[i] < unknown[j] })
	for _, c := range unknown {
		add(c, totals[c])
	}
	return out
}

// MonthlySeries returns one point per month in chronological order.
func MonthlySeries(totals core.MonthlyTotals) []MonthlyPoint {
	keys := make([]string, 0, len(totals))
	for k := range totals {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]MonthlyPoint, 0, len(keys))
	for _, k := range keys {
		out = append(out, MonthlyPoint{Key: k, Label: MonthLabel(k), Amount: totals[k]})
	}
	return out
}
