package cli

import (
	"strconv"

	"fintrack/internal/core"
	"fintrack/internal/reporting"
)

// ReportCmd groups the read-only reports.
type ReportCmd struct {
	Summary    ReportSummaryCmd    `cmd:"" default:"1" help:"Income, expense and total balance for a year."`
	Categories ReportCategoriesCmd `cmd:"" help:"Totals per category."`
	Trend      ReportTrendCmd      `cmd:"" help:"Income and expense per month."`
}

type ReportSummaryCmd struct {
	Year string `help:"Calendar year, defaults to the current one."`
}

func (c *ReportSummaryCmd) Run(app *App) error {
	s, err := app.reports.YearSummary(app.ctx, c.Year)
	if err != nil {
		return err
	}
	renderTable(app.out,
		[]string{"Year", "Income", "Expense", "Net", "Total balance"},
		[][]string{{s.Year, money(s.Income), money(s.Expense), money(s.Net), money(s.TotalBalance)}},
		1, 2, 3, 4)
	return nil
}

type ReportCategoriesCmd struct {
	Type    string `short:"t" default:"expense" enum:"income,expense,transfer" help:"Transaction type (${enum})."`
	From    string `help:"Earliest date, inclusive."`
	To      string `help:"Latest date, inclusive."`
	Account string `short:"a" help:"Expense distribution of one account. Ignores the other flags."`
}

func (c *ReportCategoriesCmd) Run(app *App) error {
	var (
		totals []reporting.CategoryTotal
		err    error
	)
	if c.Account != "" {
		totals, err = app.reports.AccountCategories(app.ctx, c.Account)
	} else {
		var from, to core.Date
		if from, err = optionalDate("from", c.From); err != nil {
			return err
		}
		if to, err = optionalDate("to", c.To); err != nil {
			return err
		}
		totals, err = app.reports.CategoryBreakdown(app.ctx, core.TxType(c.Type), from, to)
	}
	if err != nil {
		return err
	}

	var rows [][]string
	for _, t := range totals {
		rows = append(rows, []string{t.Category, money(t.Total), t.Share.StringFixed(1) + "%", strconv.Itoa(t.Count)})
	}
	renderTable(app.out, []string{"Category", "Total", "Share", "Count"}, rows, 1, 2, 3)
	return nil
}

type ReportTrendCmd struct {
	From string `help:"First month's date, defaults to twelve months ago."`
	To   string `help:"Last month's date, defaults to today."`
}

func (c *ReportTrendCmd) Run(app *App) error {
	from, err := optionalDate("from", c.From)
	if err != nil {
		return err
	}
	to, err := optionalDate("to", c.To)
	if err != nil {
		return err
	}
	trend, err := app.reports.MonthlyTrend(app.ctx, from, to)
	if err != nil {
		return err
	}

	var rows [][]string
	for _, m := range trend {
		rows = append(rows, []string{m.Month, money(m.Income), money(m.Expense), money(m.Net)})
	}
	renderTable(app.out, []string{"Month", "Income", "Expense", "Net"}, rows, 1, 2, 3)
	return nil
}
