package sheets

import (
	"context"

	"expensetracker/internal/core"
)

// Ports for outbound adapters.
type (
	// ExpenseExporter appends expenses to an external spreadsheet and reports
	// how many rows were written.
	ExpenseExporter interface {
		Export(ctx context.Context, expenses []core.Expense) (int, error)
	}
)

// Header is the first row of an export sheet.
var Header = []string{"Date", "Title", "Category", "Amount", "Description"}

// Row lays out one expense in Header order. Amounts keep two decimals and no
// currency so the sheet can sum them.
func Row(e core.Expense) []string {
	return []string{
		e.ExpenseDate.String(),
		e.Title,
		string(e.Category),
		e.Amount.StringFixed(2),
		e.Description,
	}
}
