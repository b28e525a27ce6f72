package present

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
)

// Empty-state titles of the expense list.
const (
	EmptyNoExpenses = "No expenses yet"
	EmptyNoMatches  = "No expenses found"
)

// ListSummary is the header of the expense list.
type ListSummary struct {
	Heading    string
	CountLabel string
	Total      decimal.Decimal
	// EmptyTitle and EmptyHint are set when there is nothing to show.
	EmptyTitle string
	EmptyHint  string
}

func (s ListSummary) Empty() bool { return s.EmptyTitle != "" }

// Summarize describes view, the filtered subset of all.
func Summarize(all, view []core.Expense, filter core.Filter) ListSummary {
	if len(all) == 0 {
		return ListSummary{
			Heading:    "Recent Expenses",
			CountLabel: CountLabel(0),
			EmptyTitle: EmptyNoExpenses,
			EmptyHint:  "Start tracking your expenses by adding your first expense.",
		}
	}

	s := ListSummary{
		Heading:    "Recent Expenses",
		CountLabel: CountLabel(len(view)),
		Total:      core.Sum(view),
	}
	if !filter.IsAll() {
		s.Heading = "Filtered Expenses"
	}
	if len(view) == 0 {
		s.EmptyTitle = EmptyNoMatches
		s.EmptyHint = "No expenses match the selected category filter."
	}
	return s
}

// CountLabel is "1 expense" or "n expenses".
func CountLabel(n int) string {
	if n == 1 {
		return "1 expense"
	}
	return fmt.Sprintf("%d expenses", n)
}

// Card is one labelled statistics value.
type Card struct {
	Title string
	Value string
}

// StatsCards lays out the four dashboard figures. Missing statistics show as
// zeros.
func StatsCards(stats *core.Statistics, money CurrencyFormatter) []Card {
	var s core.Statistics
	if stats != nil {
		s = *stats
	}
	return []Card{
		{Title: "Total Expenses", Value: money.Format(s.TotalExpenses)},
		{Title: "This Month", Value: money.Format(s.CurrentMonthTotal)},
		{Title: "Total Count", Value: strconv.FormatInt(s.TotalCount, 10)},
		{Title: "Average", Value: money.Format(s.AverageExpense)},
	}
}
