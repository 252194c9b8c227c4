package cli

import (
	"fmt"

	"fintrack/internal/core"
)

// TxCmd groups the transaction subcommands.
type TxCmd struct {
	Add    TxAddCmd    `cmd:"" help:"Record an income, expense or transfer."`
	List   TxListCmd   `cmd:"" default:"1" help:"List transactions, newest first."`
	Edit   TxEditCmd   `cmd:"" help:"Change a transaction. Omitted flags keep their value."`
	Delete TxDeleteCmd `cmd:"" help:"Delete a transaction and reverse its effect."`
	Clear  TxClearCmd  `cmd:"" help:"Delete every transaction and reset balances."`
}

type TxAddCmd struct {
	Type     string `arg:"" enum:"income,expense,transfer" help:"Transaction type (${enum})."`
	Amount   string `arg:"" help:"Positive amount."`
	Account  string `short:"a" required:"" help:"Account the money moves in or out of."`
	To       string `help:"Destination account of a transfer."`
	Category string `short:"c" help:"Category, required except for transfers."`
	Date     string `short:"d" help:"Date as YYYY-MM-DD, defaults to today."`
	Note     string `short:"n" help:"Free text note."`
}

func (c *TxAddCmd) Run(app *App) error {
	amount, err := core.ParseAmount(c.Amount)
	if err != nil {
		return err
	}
	date, err := optionalDate("date", c.Date)
	if err != nil {
		return err
	}
	if date == "" {
		date = core.Today()
	}
	tx, err := app.tracker.AddTransaction(app.ctx, core.TransactionInput{
		Amount:    amount,
		Type:      core.TxType(c.Type),
		Date:      date,
		Category:  c.Category,
		Account:   c.Account,
		ToAccount: c.To,
		Note:      c.Note,
	})
	if err != nil {
		return err
	}
	printSuccess(app.out, "Recorded %s %s on %s (%s)", tx.Type, money(tx.Amount), tx.Date, tx.ID)
	return nil
}

type TxListCmd struct {
	Type     string `short:"t" help:"Only this type: income, expense or transfer."`
	Category string `short:"c" help:"Only this category."`
	Account  string `short:"a" help:"Only transactions touching this account."`
	Date     string `short:"d" help:"Only this date."`
	From     string `help:"Earliest date, inclusive."`
	To       string `help:"Latest date, inclusive."`
	Limit    int    `short:"l" help:"Show at most this many, 0 for all."`
}

func (c *TxListCmd) Run(app *App) error {
	f := core.Filter{Type: core.TxType(c.Type), Category: c.Category, Account: c.Account}
	var err error
	if f.Date, err = optionalDate("date", c.Date); err != nil {
		return err
	}
	if f.From, err = optionalDate("from", c.From); err != nil {
		return err
	}
	if f.To, err = optionalDate("to", c.To); err != nil {
		return err
	}

	txs := app.tracker.ListTransactions(app.ctx, f)
	if c.Limit > 0 && len(txs) > c.Limit {
		txs = txs[:c.Limit]
	}
	var rows [][]string
	for _, tx := range txs {
		amount := money(tx.Amount)
		if tx.Type == core.Expense {
			amount = "-" + amount
		}
		account := tx.Account
		if tx.ToAccount != "" {
			account += " → " + tx.ToAccount
		}
		rows = append(rows, []string{string(tx.Date), string(tx.Type), tx.Category, account, amount, tx.Note, tx.ID})
	}
	renderTable(app.out, []string{"Date", "Type", "Category", "Account", "Amount", "Note", "ID"}, rows, 4)
	return nil
}

type TxEditCmd struct {
	ID       string `arg:"" help:"Transaction ID."`
	Type     string `short:"t" help:"New type: income, expense or transfer. Leaving transfer requires --category."`
	Amount   string `help:"New amount."`
	Account  string `short:"a" help:"New account."`
	To       string `help:"New transfer destination."`
	Category string `short:"c" help:"New category."`
	Date     string `short:"d" help:"New date."`
	Note     string `short:"n" help:"New note."`
}

func (c *TxEditCmd) Run(app *App) error {
	old, err := app.tracker.Transaction(app.ctx, c.ID)
	if err != nil {
		return err
	}
	in := core.TransactionInput{
		Amount:    old.Amount,
		Type:      old.Type,
		Date:      old.Date,
		Category:  old.Category,
		Account:   old.Account,
		ToAccount: old.ToAccount,
		Note:      old.Note,
	}
	if c.Type != "" {
		in.Type = core.TxType(c.Type)
		if in.Type != core.Transfer {
			in.ToAccount = ""
		}
		if old.Type == core.Transfer && in.Type != core.Transfer && c.Category == "" {
			return fmt.Errorf("changing a transfer to %s needs --category: %w", in.Type, core.ErrInvalid)
		}
	}
	if c.Amount != "" {
		if in.Amount, err = core.ParseAmount(c.Amount); err != nil {
			return err
		}
	}
	if c.Date != "" {
		if in.Date, err = optionalDate("date", c.Date); err != nil {
			return err
		}
	}
	if c.Account != "" {
		in.Account = c.Account
	}
	if c.To != "" {
		in.ToAccount = c.To
	}
	if c.Category != "" {
		in.Category = c.Category
	}
	if c.Note != "" {
		in.Note = c.Note
	}

	tx, err := app.tracker.UpdateTransaction(app.ctx, c.ID, in)
	if err != nil {
		return err
	}
	printSuccess(app.out, "Updated %s: %s %s on %s", tx.ID, tx.Type, money(tx.Amount), tx.Date)
	return nil
}

type TxDeleteCmd struct {
	ID string `arg:"" help:"Transaction ID."`
}

func (c *TxDeleteCmd) Run(app *App) error {
	tx, err := app.tracker.Transaction(app.ctx, c.ID)
	if err != nil {
		return err
	}
	if err := app.confirm(fmt.Sprintf("Delete %s %s on %s?", tx.Type, money(tx.Amount), tx.Date)); err != nil {
		return err
	}
	if err := app.tracker.DeleteTransaction(app.ctx, c.ID); err != nil {
		return err
	}
	printSuccess(app.out, "Deleted %s", c.ID)
	return nil
}

type TxClearCmd struct{}

func (c *TxClearCmd) Run(app *App) error {
	if err := app.confirm("Delete every transaction and reset all balances?"); err != nil {
		return err
	}
	if err := app.tracker.ClearAll(app.ctx); err != nil {
		return err
	}
	printSuccess(app.out, "Ledger cleared")
	return nil
}
