// Package reporting derives read-only summaries from ledger snapshots.
package reporting

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// YearSummary is the dashboard header: income and expense for one calendar
// year and the combined balance of the top-level accounts.
type YearSummary struct {
	Year         string          `json:"year"`
	Income       decimal.Decimal `json:"income"`
	Expense      decimal.Decimal `json:"expense"`
	Net          decimal.Decimal `json:"net"`
	TotalBalance decimal.Decimal `json:"total_balance"`
}

// CategoryTotal is one slice of a category breakdown.
type CategoryTotal struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
	Share    decimal.Decimal `json:"share_percent"`
	Count    int             `json:"count"`
}

// MonthTotal is one point of the income/expense trend.
type MonthTotal struct {
	Month   string          `json:"month"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Net     decimal.Decimal `json:"net"`
}

// Summarize totals income and expense dated in year (YYYY). Transfers move
// money between accounts and count as neither.
func Summarize(txs []core.Transaction, accounts []core.Account, year string) YearSummary {
	s := YearSummary{Year: year, Income: decimal.Zero, Expense: decimal.Zero, TotalBalance: decimal.Zero}
	for _, tx := range txs {
		if tx.Date.Year() != year {
			continue
		}
		switch tx.Type {
		case core.Income:
			s.Income = s.Income.Add(tx.Amount)
		case core.Expense:
			s.Expense = s.Expense.Add(tx.Amount)
		}
	}
	s.Net = s.Income.Sub(s.Expense)
	for _, a := range accounts {
		if !a.IsSubaccount() && a.Type.Valid() {
			s.TotalBalance = s.TotalBalance.Add(a.Balance)
		}
	}
	return s
}

// CategoryBreakdown groups transactions of one type by category within
// [from, to], largest total first.
func CategoryBreakdown(txs []core.Transaction, txType core.TxType, from, to core.Date) []CategoryTotal {
	return breakdown(txs, func(tx core.Transaction) bool {
		return tx.Type == txType && tx.Date.Within(from, to)
	})
}

// AccountCategories is the expense distribution of a single account.
func AccountCategories(txs []core.Transaction, account string) []CategoryTotal {
	return breakdown(txs, func(tx core.Transaction) bool {
		return tx.Type == core.Expense && tx.Account == account
	})
}

func breakdown(txs []core.Transaction, keep func(core.Transaction) bool) []CategoryTotal {
	byCategory := map[string]*CategoryTotal{}
	grand := decimal.Zero
	for _, tx := range txs {
		if !keep(tx) {
			continue
		}
		ct, ok := byCategory[tx.Category]
		if !ok {
			ct = &CategoryTotal{Category: tx.Category, Total: decimal.Zero}
			byCategory[tx.Category] = ct
		}
		ct.Total = ct.Total.Add(tx.Amount)
		ct.Count++
		grand = grand.Add(tx.Amount)
	}

	out := make([]CategoryTotal, 0, len(byCategory))
	hundred := decimal.NewFromInt(100)
	for _, ct := range byCategory {
		if grand.IsPositive() {
			ct.Share = ct.Total.Mul(hundred).Div(grand).Round(1)
		}
		out = append(out, *ct)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Total.Equal(out[j].Total) {
			return out[i].Total.GreaterThan(out[j].Total)
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// MonthlyTrend buckets income and expense per YYYY-MM over [from, to],
// oldest first. Every month in the range is present, empty ones as zero.
func MonthlyTrend(txs []core.Transaction, from, to core.Date) []MonthTotal {
	byMonth := map[string]*MonthTotal{}
	for _, tx := range txs {
		if tx.Type == core.Transfer || !tx.Date.Within(from, to) {
			continue
		}
		m := monthBucket(byMonth, tx.Date.Month())
		if tx.Type == core.Income {
			m.Income = m.Income.Add(tx.Amount)
		} else {
			m.Expense = m.Expense.Add(tx.Amount)
		}
	}
	if from != "" && to != "" {
		for _, month := range monthsBetween(from, to) {
			monthBucket(byMonth, month)
		}
	}

	out := make([]MonthTotal, 0, len(byMonth))
	for _, m := range byMonth {
		m.Net = m.Income.Sub(m.Expense)
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

// DefaultTrendRange is the last twelve months ending today.
func DefaultTrendRange(today core.Date) (core.Date, core.Date) {
	return core.DateOf(today.Time().AddDate(0, -12, 0)), today
}

func monthBucket(byMonth map[string]*MonthTotal, month string) *MonthTotal {
	m, ok := byMonth[month]
	if !ok {
		m = &MonthTotal{Month: month, Income: decimal.Zero, Expense: decimal.Zero}
		byMonth[month] = m
	}
	return m
}

func monthsBetween(from, to core.Date) []string {
	if to < from {
		return nil
	}
	start := from.Time()
	cur := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := to.Month()
	var out []string
	for {
		month := cur.Format("2006-01")
		if month > last {
			return out
		}
		out = append(out, month)
		cur = cur.AddDate(0, 1, 0)
	}
}
