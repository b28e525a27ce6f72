package viewstate

import (
	"context"
	"slices"
	"sync"

	"github.com/shopspring/decimal"

	"expensetracker/internal/apiclient"
	"expensetracker/internal/core"
)

// fakeRepo is an in-memory server. The *Func fields override the default
// behaviour of a single operation.
type fakeRepo struct {
	mu     sync.Mutex
	items  []core.Expense
	nextID int64

	listCalls  int
	statsCalls int

	listFunc   func(ctx context.Context, call int) ([]core.Expense, error)
	statsFunc  func(ctx context.Context) (core.Statistics, error)
	createFunc func(ctx context.Context, in core.ExpenseInput) (core.Expense, error)
	deleteErr  error
	updateErr  error
}

func newFakeRepo(items ...core.Expense) *fakeRepo {
	var maxID int64
	for _, e := range items {
		maxID = max(maxID, e.ID)
	}
	return &fakeRepo{items: items, nextID: maxID + 1}
}

func (f *fakeRepo) ListAll(ctx context.Context) ([]core.Expense, error) {
	f.mu.Lock()
	f.listCalls++
	call := f.listCalls
	fn := f.listFunc
	items := slices.Clone(f.items)
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, call)
	}
	return items, nil
}

func (f *fakeRepo) Statistics(ctx context.Context) (core.Statistics, error) {
	f.mu.Lock()
	f.statsCalls++
	fn := f.statsFunc
	items := slices.Clone(f.items)
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx)
	}
	total := core.Sum(items)
	stats := core.Statistics{TotalExpenses: total, TotalCount: int64(len(items))}
	if len(items) > 0 {
		stats.AverageExpense = total.Div(decimal.NewFromInt(int64(len(items)))).Round(2)
	}
	return stats, nil
}

func (f *fakeRepo) Create(ctx context.Context, in core.ExpenseInput) (core.Expense, error) {
	if f.createFunc != nil {
		return f.createFunc(ctx, in)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	e := core.Expense{
		ID:          f.nextID,
		Title:       in.Title,
		Description: in.Description,
		Amount:      in.Amount,
		Category:    in.Category,
		ExpenseDate: in.ExpenseDate,
	}
	f.nextID++
	f.items = append([]core.Expense{e}, f.items...)
	return e, nil
}

func (f *fakeRepo) Update(ctx context.Context, id int64, in core.ExpenseInput) (core.Expense, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return core.Expense{}, f.updateErr
	}
	for i, e := range f.items {
		if e.ID == id {
			e.Title, e.Description, e.Amount, e.Category, e.ExpenseDate = in.Title, in.Description, in.Amount, in.Category, in.ExpenseDate
			f.items[i] = e
			return e, nil
		}
	}
	return core.Expense{}, &apiclient.Error{Message: "Expense not found", StatusCode: 404}
}

func (f *fakeRepo) Delete(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.items = slices.DeleteFunc(f.items, func(e core.Expense) bool { return e.ID == id })
	return nil
}

type recordingSink struct {
	mu     sync.Mutex
	events []core.MutationEvent
	err    error
}

func (s *recordingSink) ExpenseMutated(ctx context.Context, ev core.MutationEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return s.err
}

func expense(id int64, title, amount string, c core.Category) core.Expense {
	return core.Expense{
		ID:          id,
		Title:       title,
		Amount:      decimal.RequireFromString(amount),
		Category:    c,
		ExpenseDate: core.NewDate(2025, 3, int(id)),
	}
}

func ids(expenses []core.Expense) []int64 {
	out := make([]int64, len(expenses))
	for i, e := range expenses {
		out[i] = e.ID
	}
	return out
}
