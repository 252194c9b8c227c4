package cli

import (
	"fmt"

	"fintrack/internal/core"
)

// BudgetsCmd groups the budget subcommands.
type BudgetsCmd struct {
	Add      BudgetsAddCmd      `cmd:"" help:"Budget a category for one period."`
	List     BudgetsListCmd     `cmd:"" default:"1" help:"List budgets."`
	Delete   BudgetsDeleteCmd   `cmd:"" help:"Delete a budget."`
	Progress BudgetsProgressCmd `cmd:"" help:"Spent versus budgeted."`
}

type BudgetsAddCmd struct {
	Category string `arg:"" help:"Expense category."`
	Amount   string `arg:"" help:"Budgeted amount."`
	Period   string `short:"p" default:"monthly" enum:"daily,weekly,monthly,yearly,custom" help:"Budget period (${enum})."`
	Start    string `short:"s" help:"First day, defaults to today."`
	End      string `short:"e" help:"Last day, required for custom periods."`
}

func (c *BudgetsAddCmd) Run(app *App) error {
	amount, err := core.ParseAmount(c.Amount)
	if err != nil {
		return err
	}
	start, err := optionalDate("start", c.Start)
	if err != nil {
		return err
	}
	if start == "" {
		start = core.Today()
	}
	end, err := optionalDate("end", c.End)
	if err != nil {
		return err
	}

	b, err := app.tracker.CreateBudget(app.ctx, core.BudgetInput{
		Category:  c.Category,
		Amount:    amount,
		Period:    core.Period(c.Period),
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		return err
	}
	printSuccess(app.out, "Budgeted %s for %s from %s to %s (%s)", money(b.Amount), b.Category, b.StartDate, b.EndDate, b.ID)
	return nil
}

type BudgetsListCmd struct{}

func (c *BudgetsListCmd) Run(app *App) error {
	var rows [][]string
	for _, b := range app.tracker.ListBudgets(app.ctx) {
		rows = append(rows, []string{b.Category, string(b.Period), string(b.StartDate), string(b.EndDate), money(b.Amount), b.ID})
	}
	renderTable(app.out, []string{"Category", "Period", "Start", "End", "Amount", "ID"}, rows, 4)
	return nil
}

type BudgetsDeleteCmd struct {
	ID string `arg:"" help:"Budget ID."`
}

func (c *BudgetsDeleteCmd) Run(app *App) error {
	if err := app.confirm(fmt.Sprintf("Delete budget %s?", c.ID)); err != nil {
		return err
	}
	if err := app.tracker.DeleteBudget(app.ctx, c.ID); err != nil {
		return err
	}
	printSuccess(app.out, "Deleted budget %s", c.ID)
	return nil
}

type BudgetsProgressCmd struct {
	Start string `short:"s" help:"Only budgets ending on or after this date."`
	End   string `short:"e" help:"Only budgets starting on or before this date."`
}

func (c *BudgetsProgressCmd) Run(app *App) error {
	start, err := optionalDate("start", c.Start)
	if err != nil {
		return err
	}
	end, err := optionalDate("end", c.End)
	if err != nil {
		return err
	}
	progress, err := app.reports.BudgetProgress(app.ctx, start, end)
	if err != nil {
		return err
	}

	var rows [][]string
	for _, p := range progress {
		rows = append(rows, []string{
			p.Category,
			string(p.StartDate) + " … " + string(p.EndDate),
			money(p.BudgetAmount),
			money(p.SpentAmount),
			money(p.Remaining),
			p.PercentUsed.StringFixed(1) + "%",
		})
	}
	renderTable(app.out, []string{"Category", "Window", "Budget", "Spent", "Remaining", "Used"}, rows, 2, 3, 4, 5)
	return nil
}
