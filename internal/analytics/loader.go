// Package analytics assembles the statistics and chart data shown together on
// the analytics screen.
package analytics

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"expensetracker/internal/apiclient"
	"expensetracker/internal/cache"
	"expensetracker/internal/core"
	"expensetracker/internal/log"
)

// Per-chart failure messages.
const (
	MsgCategoryFailed = "Failed to load category data"
	MsgMonthlyFailed  = "Failed to load monthly data"
)

const reportKey = "report"

// Source is the part of the expense repository the loader reads.
type Source interface {
	Statistics(ctx context.Context) (core.Statistics, error)
	CategoryChartData(ctx context.Context) (core.CategoryTotals, error)
	MonthlyChartData(ctx context.Context) (core.MonthlyTotals, error)
}

// Report holds one load of the analytics screen. Each part fails on its own:
// Statistics is nil when it could not be loaded, and a chart that failed has
// its error message set instead of data.
type Report struct {
	Statistics    *core.Statistics
	Categories    core.CategoryTotals
	Monthly       core.MonthlyTotals
	CategoryError string
	MonthlyError  string
	LoadedAt      time.Time
}

// Complete reports whether every part loaded.
func (r Report) Complete() bool {
	return r.Statistics != nil && r.CategoryError == "" && r.MonthlyError == ""
}

// Loader assembles the analytics report and caches complete ones.
type Loader struct {
	src    Source
	cache  *cache.LRU[string, Report]
	logger *log.Logger
	now    func() time.Time
}

// NewLoader caches complete reports for ttl. A zero ttl disables caching.
func NewLoader(src Source, ttl time.Duration, logger *log.Logger) *Loader {
	return &Loader{
		src:    src,
		cache:  cache.NewLRU[string, Report](1, ttl),
		logger: log.OrDiscard(logger).WithComponent(log.ComponentAnalytics),
		now:    time.Now,
	}
}

// Load fetches statistics and both chart series concurrently.
func (l *Loader) Load(ctx context.Context) Report {
	if r, ok := l.cache.Get(reportKey); ok {
		l.logger.DebugContext(ctx, "Analytics served from cache")
		return r
	}

	var (
		r       Report
		g       errgroup.Group
		stats   core.Statistics
		statsOK bool
	)
	g.Go(func() error {
		s, err := l.src.Statistics(ctx)
		if err != nil {
			l.logger.WarnContext(ctx, "Failed to load statistics", log.FieldError, apiclient.Message(err))
			return nil
		}
		stats, statsOK = s, true
		return nil
	})
	g.Go(func() error {
		totals, err := l.src.CategoryChartData(ctx)
		if err != nil {
			l.logger.WarnContext(ctx, "Category chart error", log.FieldError, apiclient.Message(err))
			r.CategoryError = MsgCategoryFailed
			return nil
		}
		r.Categories = totals
		return nil
	})
	g.Go(func() error {
		totals, err := l.src.MonthlyChartData(ctx)
		if err != nil {
			l.logger.WarnContext(ctx, "Monthly chart error", log.FieldError, apiclient.Message(err))
			r.MonthlyError = MsgMonthlyFailed
			return nil
		}
		r.Monthly = totals
		return nil
	})
	_ = g.Wait()

	if statsOK {
		r.Statistics = &stats
	}
	r.LoadedAt = l.now()
	if r.Complete() {
		l.cache.Set(reportKey, r)
	}
	return r
}

// Invalidate drops any cached report.
func (l *Loader) Invalidate() {
	l.cache.Purge()
}

// ExpenseMutated invalidates the cache after any write to the expense list.
func (l *Loader) ExpenseMutated(ctx context.Context, ev core.MutationEvent) error {
	l.Invalidate()
	l.logger.DebugContext(ctx, "Analytics cache invalidated", log.FieldOperation, string(ev.Kind), log.FieldExpenseID, ev.ExpenseID)
	return nil
}
