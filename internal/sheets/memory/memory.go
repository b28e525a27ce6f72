package memory

import (
	"context"
	"sync"

	"expensetracker/internal/core"
	"expensetracker/internal/sheets"
)

var _ sheets.ExpenseExporter = (*Store)(nil)

// Store keeps exported rows in memory, header first.
type Store struct {
	mu   sync.Mutex
	rows [][]string
}

// New creates an empty store.
func New() *Store {
	return &Store{}
}

// Export appends one row per expense, writing the header on first use.
func (s *Store) Export(ctx context.Context, expenses []core.Expense) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.rows) == 0 {
		s.rows = append(s.rows, append([]string(nil), sheets.Header...))
	}
	for _, e := range expenses {
		s.rows = append(s.rows, sheets.Row(e))
	}
	return len(expenses), nil
}

// Rows returns a copy of everything written so far.
func (s *Store) Rows() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]string, len(s.rows))
	for i, r := range s.rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}
