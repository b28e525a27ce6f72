// Package viewstate owns the in-memory expense list shown to the user, the
// selected filter and the server statistics, and keeps them consistent with
// the server after every write by refetching instead of patching.
package viewstate

import (
	"context"
	"errors"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"expensetracker/internal/apiclient"
	"expensetracker/internal/core"
	"expensetracker/internal/log"
)

// Messages recorded in LastSuccess after a completed write.
const (
	MsgAdded   = "Expense added successfully!"
	MsgUpdated = "Expense updated successfully!"
	MsgDeleted = "Expense deleted successfully!"
)

// ErrClosed is returned by operations started after Close.
var ErrClosed = errors.New("controller closed")

// Repository is the expense backend the controller drives.
type Repository interface {
	ListAll(ctx context.Context) ([]core.Expense, error)
	Statistics(ctx context.Context) (core.Statistics, error)
	Create(ctx context.Context, in core.ExpenseInput) (core.Expense, error)
	Update(ctx context.Context, id int64, in core.ExpenseInput) (core.Expense, error)
	Delete(ctx context.Context, id int64) error
}

// MutationSink is told about every successful write. Its errors are logged
// and never reach the user.
type MutationSink interface {
	ExpenseMutated(ctx context.Context, ev core.MutationEvent) error
}

// Pending reports which classes of operation are in flight.
type Pending struct {
	List  bool
	Stats bool
	Form  bool
}

// Snapshot is an immutable copy of the controller state. Version increases
// with every change, so a subscriber can drop a snapshot older than one it
// already rendered.
type Snapshot struct {
	Version     uint64
	Expenses    []core.Expense
	Filter      core.Filter
	Statistics  *core.Statistics
	View        []core.Expense
	Pending     Pending
	LastError   string
	LastSuccess string
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger; nil discards output.
func WithLogger(l *log.Logger) Option {
	return func(c *Controller) { c.logger = log.OrDiscard(l).WithComponent(log.ComponentViewState) }
}

// WithSinks adds sinks told about every successful write.
func WithSinks(sinks ...MutationSink) Option {
	return func(c *Controller) { c.sinks = append(c.sinks, sinks...) }
}

// Controller holds the expense list, filter and statistics shown to the user.
// It is safe for concurrent use.
type Controller struct {
	repo   Repository
	sinks  []MutationSink
	logger *log.Logger

	mu          sync.Mutex
	expenses    []core.Expense
	filter      core.Filter
	stats       *core.Statistics
	listLoads   int
	statsLoads  int
	formSubmits int
	lastError   string
	lastSuccess string
	closed      bool
	version     uint64

	// Load ordering: a result is applied only if it was started after the
	// last applied one.
	listSeq, listApplied   uint64
	statsSeq, statsApplied uint64

	subs   map[int]func(Snapshot)
	nextID int
}

// New creates a controller with an empty list and the All filter.
func New(repo Repository, opts ...Option) *Controller {
	c := &Controller{
		repo:     repo,
		logger:   log.Discard(),
		filter:   core.All,
		expenses: []core.Expense{},
		subs:     make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LoadExpenses replaces the list with the server's. On failure the previous
// list stays and LastError carries the message.
func (c *Controller) LoadExpenses(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.listSeq++
	seq := c.listSeq
	c.listLoads++
	c.changedLocked()

	list, err := c.repo.ListAll(ctx)

	c.mu.Lock()
	c.listLoads--
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if err != nil {
		nerr := apiclient.Normalize(err)
		if seq > c.listApplied {
			c.lastError = nerr.Message
		}
		c.changedLocked()
		c.logger.WarnContext(ctx, "Failed to load expenses", log.FieldOperation, log.OpList, log.FieldError, nerr.Message)
		return nerr
	}
	if seq > c.listApplied {
		c.listApplied = seq
		c.expenses = slices.Clone(list)
		if c.expenses == nil {
			c.expenses = []core.Expense{}
		}
	} else {
		c.logger.DebugContext(ctx, "Discarding stale expense list", "seq", seq, "applied", c.listApplied)
	}
	c.changedLocked()
	return nil
}

// LoadStatistics refreshes the statistics snapshot. Failures are logged only;
// the previous snapshot, if any, is kept.
func (c *Controller) LoadStatistics(ctx context.Context) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.statsSeq++
	seq := c.statsSeq
	c.statsLoads++
	c.changedLocked()

	stats, err := c.repo.Statistics(ctx)

	c.mu.Lock()
	c.statsLoads--
	if c.closed {
		c.mu.Unlock()
		return
	}
	if err != nil {
		c.changedLocked()
		c.logger.WarnContext(ctx, "Failed to load statistics", log.FieldOperation, log.OpStats, log.FieldError, apiclient.Message(err))
		return
	}
	if seq > c.statsApplied {
		c.statsApplied = seq
		c.stats = &stats
	}
	c.changedLocked()
}

// SetFilter changes which expenses the derived view exposes. No I/O.
func (c *Controller) SetFilter(f core.Filter) {
	if f == "" {
		f = core.All
	}
	c.mu.Lock()
	if c.closed || c.filter == f {
		c.mu.Unlock()
		return
	}
	c.filter = f
	c.changedLocked()
	c.logger.Debug("Filter changed", log.FieldFilter, f.String())
}

// DerivedView is the current list narrowed by the current filter.
func (c *Controller) DerivedView() []core.Expense {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Derive(c.expenses, c.filter)
}

// CategoryCounts counts the loaded expenses per filter option, All first.
func (c *Controller) CategoryCounts() []core.CategoryCount {
	c.mu.Lock()
	defer c.mu.Unlock()
	return core.CountByCategory(c.expenses)
}

// AddExpense creates an expense and then reloads the list and statistics.
// Validation is the caller's job.
func (c *Controller) AddExpense(ctx context.Context, in core.ExpenseInput) (core.Expense, error) {
	var created core.Expense
	err := c.mutate(ctx, mutation{
		kind:    core.MutationCreated,
		success: MsgAdded,
		form:    true,
		run: func(ctx context.Context) (int64, error) {
			var err error
			created, err = c.repo.Create(ctx, in)
			return created.ID, err
		},
	})
	return created, err
}

// EditExpense replaces the editable fields of expense id, then reloads.
func (c *Controller) EditExpense(ctx context.Context, id int64, in core.ExpenseInput) (core.Expense, error) {
	var updated core.Expense
	err := c.mutate(ctx, mutation{
		kind:    core.MutationUpdated,
		success: MsgUpdated,
		form:    true,
		run: func(ctx context.Context) (int64, error) {
			var err error
			updated, err = c.repo.Update(ctx, id, in)
			return id, err
		},
	})
	return updated, err
}

// RemoveExpense deletes expense id, then reloads. The caller must already
// have the user's confirmation. A failure is also recorded in LastError.
func (c *Controller) RemoveExpense(ctx context.Context, id int64) error {
	return c.mutate(ctx, mutation{
		kind:         core.MutationDeleted,
		success:      MsgDeleted,
		recordFailed: true,
		run: func(ctx context.Context) (int64, error) {
			return id, c.repo.Delete(ctx, id)
		},
	})
}

type mutation struct {
	kind         core.MutationKind
	success      string
	form         bool
	recordFailed bool
	run          func(ctx context.Context) (int64, error)
}

func (c *Controller) mutate(ctx context.Context, m mutation) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if m.form {
		c.formSubmits++
		c.changedLocked()
	} else {
		c.mu.Unlock()
	}

	id, err := m.run(ctx)
	if err != nil {
		nerr := apiclient.Normalize(err)
		c.mu.Lock()
		if m.form {
			c.formSubmits--
		}
		if m.recordFailed && !c.closed {
			c.lastError = nerr.Message
		}
		c.changedLocked()
		c.logger.WarnContext(ctx, "Expense write failed",
			log.FieldOperation, string(m.kind), log.FieldExpenseID, id, log.FieldError, nerr.Message)
		return nerr
	}

	// Refetch instead of merging the write result. Both loads must finish
	// before the write is reported as done.
	var g errgroup.Group
	g.Go(func() error { return c.LoadExpenses(ctx) })
	g.Go(func() error {
		c.LoadStatistics(ctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		c.logger.DebugContext(ctx, "Reload after write failed", log.FieldError, err)
	}

	c.mu.Lock()
	if m.form {
		c.formSubmits--
	}
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.lastSuccess = m.success
	c.changedLocked()

	c.notifySinks(ctx, core.NewMutationEvent(m.kind, id))
	return nil
}

func (c *Controller) notifySinks(ctx context.Context, ev core.MutationEvent) {
	for _, sink := range c.sinks {
		if err := sink.ExpenseMutated(ctx, ev); err != nil {
			c.logger.WarnContext(ctx, "Mutation sink failed",
				log.FieldOperation, string(ev.Kind), log.FieldExpenseID, ev.ExpenseID, log.FieldError, err)
		}
	}
}

// ClearError dismisses the error message.
func (c *Controller) ClearError() {
	c.mu.Lock()
	if c.lastError == "" {
		c.mu.Unlock()
		return
	}
	c.lastError = ""
	c.changedLocked()
}

// ClearSuccess dismisses the success message.
func (c *Controller) ClearSuccess() {
	c.mu.Lock()
	if c.lastSuccess == "" {
		c.mu.Unlock()
		return
	}
	c.lastSuccess = ""
	c.changedLocked()
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe registers fn to receive a snapshot after every change and returns
// a function that removes it. fn runs on the goroutine that made the change
// and must not block.
func (c *Controller) Subscribe(fn func(Snapshot)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	if !c.closed {
		c.subs[id] = fn
	}
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// Close detaches the controller: subscribers are dropped and results of
// requests still in flight are discarded when they arrive.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	clear(c.subs)
}

func (c *Controller) snapshotLocked() Snapshot {
	snap := Snapshot{
		Version:  c.version,
		Expenses: slices.Clone(c.expenses),
		Filter:   c.filter,
		View:     Derive(c.expenses, c.filter),
		Pending: Pending{
			List:  c.listLoads > 0,
			Stats: c.statsLoads > 0,
			Form:  c.formSubmits > 0,
		},
		LastError:   c.lastError,
		LastSuccess: c.lastSuccess,
	}
	if c.stats != nil {
		stats := *c.stats
		snap.Statistics = &stats
	}
	return snap
}

// changedLocked bumps the version, releases the lock and then delivers the
// new snapshot to subscribers. It must be called with c.mu held.
func (c *Controller) changedLocked() {
	c.version++
	snap := c.snapshotLocked()
	subs := make([]func(Snapshot), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}
