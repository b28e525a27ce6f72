// Package expenses is the typed passthrough over the expense endpoints.
package expenses

import (
	"context"
	"fmt"

	"expensetracker/internal/apiclient"
	"expensetracker/internal/core"
)

// Requester is the subset of *apiclient.Client the repository needs.
type Requester interface {
	Do(ctx context.Context, method, path string, body, out any) error
}

// Repository issues the expense CRUD and aggregate queries. Every error it
// returns is an *apiclient.Error; nothing is retried.
type Repository struct {
	api Requester
}

// NewRepository creates a repository over api.
func NewRepository(api Requester) *Repository {
	return &Repository{api: api}
}

// ListAll returns every expense of the signed-in user in server order.
func (r *Repository) ListAll(ctx context.Context) ([]core.Expense, error) {
	var out []core.Expense
	if err := r.do(ctx, "GET", "/expenses", nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []core.Expense{}
	}
	return out, nil
}

// CurrentMonth lists the expenses dated in the server's current month.
func (r *Repository) CurrentMonth(ctx context.Context) ([]core.Expense, error) {
	var out []core.Expense
	if err := r.do(ctx, "GET", "/expenses/current-month", nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []core.Expense{}
	}
	return out, nil
}

func (r *Repository) GetByID(ctx context.Context, id int64) (core.Expense, error) {
	var out core.Expense
	err := r.do(ctx, "GET", expensePath(id), nil, &out)
	return out, err
}

func (r *Repository) Create(ctx context.Context, in core.ExpenseInput) (core.Expense, error) {
	var out core.Expense
	err := r.do(ctx, "POST", "/expenses", in, &out)
	return out, err
}

// Update replaces every editable field of the expense.
func (r *Repository) Update(ctx context.Context, id int64, in core.ExpenseInput) (core.Expense, error) {
	var out core.Expense
	err := r.do(ctx, "PUT", expensePath(id), in, &out)
	return out, err
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	return r.do(ctx, "DELETE", expensePath(id), nil, nil)
}

// Statistics returns the server aggregate snapshot.
func (r *Repository) Statistics(ctx context.Context) (core.Statistics, error) {
	var out core.Statistics
	err := r.do(ctx, "GET", "/expenses/statistics", nil, &out)
	return out, err
}

// CategoryChartData returns totals for categories that have at least one expense.
func (r *Repository) CategoryChartData(ctx context.Context) (core.CategoryTotals, error) {
	out := core.CategoryTotals{}
	if err := r.do(ctx, "GET", "/expenses/chart/category", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MonthlyChartData returns totals keyed by "YYYY-MM".
func (r *Repository) MonthlyChartData(ctx context.Context) (core.MonthlyTotals, error) {
	out := core.MonthlyTotals{}
	if err := r.do(ctx, "GET", "/expenses/chart/monthly", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repository) do(ctx context.Context, method, path string, body, out any) error {
	if err := r.api.Do(ctx, method, path, body, out); err != nil {
		return apiclient.Normalize(err)
	}
	return nil
}

func expensePath(id int64) string {
	return fmt.Sprintf("/expenses/%d", id)
}
