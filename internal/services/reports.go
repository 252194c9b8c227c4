package services

import (
	"context"
	"fmt"
	"time"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/reporting"
)

// Reports serves dashboard summaries from the tracker's committed state.
// Results are cached until the next committed write.
type Reports struct {
	tracker   *Tracker
	summaries *cache.Loader[reporting.YearSummary]
	breakdown *cache.Loader[[]reporting.CategoryTotal]
	trends    *cache.Loader[[]reporting.MonthTotal]
	progress  *cache.Loader[[]core.BudgetProgress]
	today     func() core.Date
}

// ReportCaches are the caches backing Reports. Register them with a
// cache.Manager for expiry.
type ReportCaches struct {
	Summaries *cache.LRUCache[reporting.YearSummary]
	Breakdown *cache.LRUCache[[]reporting.CategoryTotal]
	Trends    *cache.LRUCache[[]reporting.MonthTotal]
	Progress  *cache.LRUCache[[]core.BudgetProgress]
}

// NewReportCaches sizes every report cache the same.
func NewReportCaches(size int, ttl time.Duration) ReportCaches {
	return ReportCaches{
		Summaries: cache.NewLRUCache[reporting.YearSummary](size, ttl),
		Breakdown: cache.NewLRUCache[[]reporting.CategoryTotal](size, ttl),
		Trends:    cache.NewLRUCache[[]reporting.MonthTotal](size, ttl),
		Progress:  cache.NewLRUCache[[]core.BudgetProgress](size, ttl),
	}
}

// Cleaners lists the caches for a cache.Manager.
func (c ReportCaches) Cleaners() []cache.Cleaner {
	return []cache.Cleaner{c.Summaries, c.Breakdown, c.Trends, c.Progress}
}

// NewReports builds a report service and subscribes it to the tracker's
// commits so cached results never outlive a write.
func NewReports(tracker *Tracker, caches ReportCaches) *Reports {
	r := &Reports{
		tracker:   tracker,
		summaries: cache.NewLoader[reporting.YearSummary](caches.Summaries),
		breakdown: cache.NewLoader[[]reporting.CategoryTotal](caches.Breakdown),
		trends:    cache.NewLoader[[]reporting.MonthTotal](caches.Trends),
		progress:  cache.NewLoader[[]core.BudgetProgress](caches.Progress),
		today:     core.Today,
	}
	tracker.addCommitHook(r.Invalidate)
	return r
}

// Invalidate drops every cached report.
func (r *Reports) Invalidate() {
	r.summaries.Invalidate()
	r.breakdown.Invalidate()
	r.trends.Invalidate()
	r.progress.Invalidate()
}

// YearSummary returns income, expense and total balance for year (YYYY).
// An empty year means the current one.
func (r *Reports) YearSummary(ctx context.Context, year string) (reporting.YearSummary, error) {
	if year == "" {
		year = r.today().Year()
	}
	if _, err := core.ParseDate(year + "-01-01"); err != nil {
		return reporting.YearSummary{}, fmt.Errorf("year %q: %w", year, core.ErrInvalid)
	}
	return r.summaries.Get(year, func() (reporting.YearSummary, error) {
		s := r.tracker.Snapshot(ctx)
		return reporting.Summarize(s.Transactions, s.Accounts, year), nil
	})
}

// CategoryBreakdown totals one transaction type per category over [from, to].
func (r *Reports) CategoryBreakdown(ctx context.Context, txType core.TxType, from, to core.Date) ([]reporting.CategoryTotal, error) {
	if txType == "" {
		txType = core.Expense
	}
	if !txType.Valid() {
		return nil, fmt.Errorf("unknown transaction type %q: %w", txType, core.ErrInvalid)
	}
	if err := validRange(from, to); err != nil {
		return nil, err
	}
	key := fmt.Sprintf("%s|%s|%s", txType, from, to)
	return r.breakdown.Get(key, func() ([]reporting.CategoryTotal, error) {
		s := r.tracker.Snapshot(ctx)
		return reporting.CategoryBreakdown(s.Transactions, txType, from, to), nil
	})
}

// AccountCategories is the expense distribution of one account.
func (r *Reports) AccountCategories(ctx context.Context, account string) ([]reporting.CategoryTotal, error) {
	if _, err := r.tracker.Account(ctx, account); err != nil {
		return nil, err
	}
	return r.breakdown.Get("account|"+account, func() ([]reporting.CategoryTotal, error) {
		s := r.tracker.Snapshot(ctx)
		return reporting.AccountCategories(s.Transactions, account), nil
	})
}

// MonthlyTrend buckets income and expense per month. Without bounds it
// covers the last twelve months.
func (r *Reports) MonthlyTrend(ctx context.Context, from, to core.Date) ([]reporting.MonthTotal, error) {
	if from == "" && to == "" {
		from, to = reporting.DefaultTrendRange(r.today())
	}
	if err := validRange(from, to); err != nil {
		return nil, err
	}
	key := string(from) + "|" + string(to)
	return r.trends.Get(key, func() ([]reporting.MonthTotal, error) {
		s := r.tracker.Snapshot(ctx)
		return reporting.MonthlyTrend(s.Transactions, from, to), nil
	})
}

// BudgetProgress is the cached form of Tracker.BudgetProgress.
func (r *Reports) BudgetProgress(ctx context.Context, from, to core.Date) ([]core.BudgetProgress, error) {
	key := string(from) + "|" + string(to)
	return r.progress.Get(key, func() ([]core.BudgetProgress, error) {
		return r.tracker.BudgetProgress(ctx, from, to)
	})
}

func validRange(from, to core.Date) error {
	for _, d := range []core.Date{from, to} {
		if d.IsZero() {
			continue
		}
		if err := d.Validate(); err != nil {
			return err
		}
	}
	if from != "" && to != "" && to < from {
		return fmt.Errorf("range ends %s before it starts %s: %w", to, from, core.ErrInvalid)
	}
	return nil
}
