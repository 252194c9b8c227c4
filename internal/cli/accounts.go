package cli

import (
	"fmt"

	"fintrack/internal/core"
)

// AccountsCmd groups the account subcommands.
type AccountsCmd struct {
	List       AccountsListCmd       `cmd:"" default:"1" help:"List accounts with stored and replayed balances."`
	Create     AccountsCreateCmd     `cmd:"" help:"Create an account or a savings sub-account."`
	Show       AccountsShowCmd       `cmd:"" help:"Show one account and its sub-accounts."`
	SetBalance AccountsSetBalanceCmd `cmd:"" name:"set-balance" help:"Overwrite an account balance."`
	Delete     AccountsDeleteCmd     `cmd:"" help:"Delete a savings sub-account."`
	Zero       AccountsZeroCmd       `cmd:"" help:"Set every balance to zero."`
}

type AccountsListCmd struct{}

func (c *AccountsListCmd) Run(app *App) error {
	var rows [][]string
	for _, a := range app.tracker.AccountBalances(app.ctx) {
		rows = append(rows, []string{a.Name, string(a.Type), a.ParentAccount, money(a.Balance), money(a.CurrentBalance)})
	}
	renderTable(app.out, []string{"Account", "Type", "Parent", "Balance", "Replayed"}, rows, 3, 4)
	return nil
}

type AccountsCreateCmd struct {
	Name    string `arg:"" help:"Account name."`
	Type    string `short:"t" default:"savings" enum:"card,cash,savings" help:"Account type (${enum})."`
	Parent  string `short:"p" help:"Parent savings account, making this a sub-account."`
	Balance string `short:"b" help:"Initial balance, defaults to zero."`
}

func (c *AccountsCreateCmd) Run(app *App) error {
	in := core.AccountInput{Name: c.Name, Type: core.AccountType(c.Type), ParentAccount: c.Parent}
	if c.Balance != "" {
		b, err := parseBalance("balance", c.Balance)
		if err != nil {
			return err
		}
		in.InitialBalance = &b
	}
	a, err := app.tracker.CreateAccount(app.ctx, in)
	if err != nil {
		return err
	}
	printSuccess(app.out, "Created %s account %s with balance %s", a.Type, a.Name, money(a.Balance))
	return nil
}

type AccountsShowCmd struct {
	Name string `arg:"" help:"Account name."`
}

func (c *AccountsShowCmd) Run(app *App) error {
	a, err := app.tracker.Account(app.ctx, c.Name)
	if err != nil {
		return err
	}
	printInfo(app.out, "%s (%s) balance %s", a.Name, a.Type, money(a.Balance))
	if a.ParentAccount != "" {
		printInfo(app.out, "sub-account of %s", a.ParentAccount)
	}
	subs := app.tracker.Subaccounts(app.ctx, a.Name)
	if len(subs) == 0 {
		return nil
	}
	var rows [][]string
	for _, s := range subs {
		rows = append(rows, []string{s.Name, money(s.Balance)})
	}
	renderTable(app.out, []string{"Sub-account", "Balance"}, rows, 1)
	return nil
}

type AccountsSetBalanceCmd struct {
	Name    string `arg:"" help:"Account name."`
	Balance string `arg:"" help:"New balance."`
}

func (c *AccountsSetBalanceCmd) Run(app *App) error {
	b, err := parseBalance("balance", c.Balance)
	if err != nil {
		return err
	}
	a, err := app.tracker.SetBalance(app.ctx, c.Name, b)
	if err != nil {
		return err
	}
	printSuccess(app.out, "%s balance set to %s", a.Name, money(a.Balance))
	return nil
}

type AccountsDeleteCmd struct {
	Name string `arg:"" help:"Sub-account to delete."`
}

func (c *AccountsDeleteCmd) Run(app *App) error {
	if _, err := app.tracker.Account(app.ctx, c.Name); err != nil {
		return err
	}
	if err := app.confirm(fmt.Sprintf("Delete account %s?", c.Name)); err != nil {
		return err
	}
	if err := app.tracker.DeleteAccount(app.ctx, c.Name); err != nil {
		return err
	}
	printSuccess(app.out, "Deleted account %s", c.Name)
	return nil
}

type AccountsZeroCmd struct{}

func (c *AccountsZeroCmd) Run(app *App) error {
	if err := app.confirm("Set every account balance to zero?"); err != nil {
		return err
	}
	if err := app.tracker.ZeroBalances(app.ctx); err != nil {
		return err
	}
	printSuccess(app.out, "All balances set to zero")
	return nil
}
