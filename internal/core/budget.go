package core

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Budget caps spending in one category over [StartDate, EndDate].
type Budget struct {
	ID        string          `json:"id"`
	Category  string          `json:"category"`
	Amount    decimal.Decimal `json:"amount"`
	Period    Period          `json:"period"`
	StartDate Date            `json:"start_date"`
	EndDate   Date            `json:"end_date"`
}

// BudgetInput is a budget to create. EndDate may be empty for non custom
// periods and is then derived from the period window.
type BudgetInput struct {
	Category  string          `json:"category"`
	Amount    decimal.Decimal `json:"amount"`
	Period    Period          `json:"period"`
	StartDate Date            `json:"start_date"`
	EndDate   Date            `json:"end_date,omitempty"`
}

// BudgetProgress is spent versus budgeted for one budget.
type BudgetProgress struct {
	BudgetID     string          `json:"budget_id"`
	Category     string          `json:"category"`
	Period       Period          `json:"period"`
	StartDate    Date            `json:"start_date"`
	EndDate      Date            `json:"end_date"`
	BudgetAmount decimal.Decimal `json:"budget_amount"`
	SpentAmount  decimal.Decimal `json:"spent_amount"`
	Remaining    decimal.Decimal `json:"remaining"`
	PercentUsed  decimal.Decimal `json:"percent_used"`
}

// Overlaps reports whether the budget window intersects [from, to].
func (b Budget) Overlaps(from, to Date) bool {
	if to != "" && b.StartDate > to {
		return false
	}
	if from != "" && b.EndDate < from {
		return false
	}
	return true
}

func (in BudgetInput) build(id string) (Budget, error) {
	in.Category = strings.TrimSpace(in.Category)
	in.Period = Period(strings.ToLower(strings.TrimSpace(string(in.Period))))
	if in.Period == "" {
		in.Period = Custom
	}
	if in.Category == "" {
		return Budget{}, fmt.Errorf("budget category is required: %w", ErrInvalid)
	}
	if !in.Amount.IsPositive() {
		return Budget{}, fmt.Errorf("budget amount %s must be positive: %w", in.Amount, ErrInvalidAmount)
	}
	if !in.Period.Valid() {
		return Budget{}, fmt.Errorf("unknown budget period %q: %w", in.Period, ErrInvalid)
	}
	if err := in.StartDate.Validate(); err != nil {
		return Budget{}, err
	}
	if in.EndDate == "" {
		w, err := WindowFor(in.Period)
		if err != nil {
			return Budget{}, err
		}
		in.EndDate = w.End(in.StartDate)
	}
	if err := in.EndDate.Validate(); err != nil {
		return Budget{}, err
	}
	if in.EndDate < in.StartDate {
		return Budget{}, fmt.Errorf("budget ends %s before it starts %s: %w", in.EndDate, in.StartDate, ErrInvalid)
	}
	return Budget{
		ID:        id,
		Category:  in.Category,
		Amount:    in.Amount,
		Period:    in.Period,
		StartDate: in.StartDate,
		EndDate:   in.EndDate,
	}, nil
}

// Progress computes spent versus budgeted for every budget overlapping
// [from, to]. Spending is summed over each budget's own window, not the
// query range.
func Progress(budgets []Budget, txs []Transaction, from, to Date) []BudgetProgress {
	hundred := decimal.NewFromInt(100)
	out := make([]BudgetProgress, 0)
	for _, b := range budgets {
		if !b.Overlaps(from, to) {
			continue
		}
		spent := zero
		for _, tx := range txs {
			if tx.Type == Expense && tx.Category == b.Category && tx.Date.Within(b.StartDate, b.EndDate) {
				spent = spent.Add(tx.Amount)
			}
		}
		p := BudgetProgress{
			BudgetID:     b.ID,
			Category:     b.Category,
			Period:       b.Period,
			StartDate:    b.StartDate,
			EndDate:      b.EndDate,
			BudgetAmount: b.Amount,
			SpentAmount:  spent,
			Remaining:    b.Amount.Sub(spent),
		}
		if b.Amount.IsPositive() {
			p.PercentUsed = spent.Mul(hundred).Div(b.Amount).Round(1)
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].StartDate < out[j].StartDate
	})
	return out
}

// SortBudgets orders budgets newest start first.
func SortBudgets(budgets []Budget) {
	sort.SliceStable(budgets, func(i, j int) bool {
		return budgets[i].StartDate > budgets[j].StartDate
	})
}
