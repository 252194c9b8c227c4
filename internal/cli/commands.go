package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/storage/kv"
)

// Globals are flags shared by every command.
type Globals struct {
	Data     string `help:"Ledger data file." default:"./data/fintrack.json" env:"FINTRACK_KV_PATH" type:"path"`
	Yes      bool   `short:"y" help:"Skip confirmation prompts."`
	LogLevel string `help:"Diagnostics written to stderr." default:"warn" enum:"debug,info,warn,error"`
}

// Commands is the fintrack command tree.
type Commands struct {
	Globals

	Accounts AccountsCmd `cmd:"" help:"Manage accounts and savings sub-accounts."`
	Tx       TxCmd       `cmd:"" help:"Record, edit and list transactions."`
	Budgets  BudgetsCmd  `cmd:"" help:"Manage category budgets."`
	Report   ReportCmd   `cmd:"" help:"Summaries over the ledger."`
}

// Env is what a run talks to. Zero fields fall back to the process streams
// and a terminal prompt.
type Env struct {
	Stdout  io.Writer
	Stderr  io.Writer
	Confirm func(question string) (bool, error)
}

// App is bound into every command's Run method.
type App struct {
	ctx     context.Context
	tracker *services.Tracker
	reports *services.Reports
	out     io.Writer
	yes     bool
	ask     func(question string) (bool, error)
}

// Run parses args and executes the selected command against the data file.
func Run(ctx context.Context, args []string, env Env, options ...kong.Option) error {
	if env.Stdout == nil {
		env.Stdout = os.Stdout
	}
	if env.Stderr == nil {
		env.Stderr = os.Stderr
	}
	if env.Confirm == nil {
		env.Confirm = terminalConfirm
	}

	var cmds Commands
	parser, err := kong.New(&cmds, append([]kong.Option{
		kong.Name("fintrack"),
		kong.Description("Personal finance tracker: accounts, transactions and budgets."),
		kong.Writers(env.Stdout, env.Stderr),
	}, options...)...)
	if err != nil {
		return err
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	app, closeApp, err := openApp(ctx, cmds.Globals, env)
	if err != nil {
		return err
	}
	defer closeApp()

	return kctx.Run(app)
}

func openApp(ctx context.Context, g Globals, env Env) (*App, func(), error) {
	logger := applog.New(applog.Config{
		Level:     applog.ParseLevel(g.LogLevel),
		Output:    env.Stderr,
		Component: applog.ComponentCLI,
	})

	store, err := kv.Open(g.Data, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", g.Data, err)
	}
	tracker, err := services.NewTracker(ctx, store, services.WithLogger(logger))
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	if _, err := tracker.EnsureDefaultAccounts(ctx); err != nil {
		_ = tracker.Close()
		return nil, nil, err
	}

	app := &App{
		ctx:     ctx,
		tracker: tracker,
		reports: services.NewReports(tracker, services.NewReportCaches(8, time.Minute)),
		out:     env.Stdout,
		yes:     g.Yes,
		ask:     env.Confirm,
	}
	return app, func() { _ = tracker.Close() }, nil
}

// confirm asks before a destructive command. --yes skips the question.
func (a *App) confirm(question string) error {
	if a.yes {
		return nil
	}
	ok, err := a.ask(question)
	if err != nil {
		return err
	}
	if !ok {
		return ErrAborted
	}
	return nil
}

func parseBalance(field, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%s %q is not a number: %w", field, s, core.ErrInvalidAmount)
	}
	return d, nil
}

func optionalDate(field, s string) (core.Date, error) {
	if s == "" {
		return "", nil
	}
	d, err := core.ParseDate(s)
	if err != nil {
		return "", fmt.Errorf("%s: %w", field, err)
	}
	return d, nil
}

// ExitCode maps an error to the process exit status: 2 for usage errors,
// 1 for everything else.
func ExitCode(err error) int {
	var parseErr *kong.ParseError
	if errors.As(err, &parseErr) {
		return 2
	}
	return 1
}
