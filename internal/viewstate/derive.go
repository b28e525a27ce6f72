package viewstate

import "expensetracker/internal/core"

// Derive returns the expenses selected by filter in source order. The result
// never aliases the input slice.
func Derive(expenses []core.Expense, filter core.Filter) []core.Expense {
	out := make([]core.Expense, 0, len(expenses))
	for _, e := range expenses {
		if filter.Matches(e) {
			out = append(out, e)
		}
	}
	return out
}
