// Package worker mirrors committed ledger changes to an export sheet.
package worker

import (
	"context"
	"errors"
	"fmt"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/sheets"
)

// TransactionSource is the read side of a store the worker needs.
type TransactionSource interface {
	GetTransaction(ctx context.Context, id string) (core.Transaction, error)
	LoadTransactions(ctx context.Context) ([]core.Transaction, error)
}

// ExportWorker handles ledger events by updating the exporter.
type ExportWorker struct {
	source   TransactionSource
	exporter sheets.TransactionExporter
	logger   *applog.Logger
}

func NewExportWorker(source TransactionSource, exporter sheets.TransactionExporter, logger *applog.Logger) *ExportWorker {
	if logger == nil {
		logger = applog.Discard()
	}
	return &ExportWorker{
		source:   source,
		exporter: exporter,
		logger:   logger.WithComponent(applog.ComponentWorker),
	}
}

// HandleEvent applies one ledger event. A returned error asks for redelivery.
func (w *ExportWorker) HandleEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	w.logger.DebugContext(ctx, "Processing ledger event",
		applog.FieldEvent, ev.Type,
		applog.FieldTransactionID, ev.TransactionID)

	switch services.EventType(ev.Type) {
	case services.EventTransactionCreated, services.EventTransactionUpdated:
		return w.export(ctx, ev.TransactionID)

	case services.EventTransactionDeleted:
		if err := w.exporter.Remove(ctx, ev.TransactionID); err != nil {
			return fmt.Errorf("remove transaction %s: %w", ev.TransactionID, err)
		}
		w.logger.InfoContext(ctx, "Removed exported transaction", applog.FieldTransactionID, ev.TransactionID)
		return nil

	case services.EventLedgerCleared:
		if err := w.exporter.Reset(ctx); err != nil {
			return fmt.Errorf("reset export: %w", err)
		}
		w.logger.InfoContext(ctx, "Export reset after ledger clear")
		return nil

	default:
		// Redelivery cannot fix an event type this build does not know.
		w.logger.WarnContext(ctx, "Ignoring unknown ledger event", applog.FieldEvent, ev.Type)
		return nil
	}
}

func (w *ExportWorker) export(ctx context.Context, id string) error {
	tx, err := w.source.GetTransaction(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		// Deleted before this event was handled; its delete event follows.
		w.logger.InfoContext(ctx, "Transaction gone before export", applog.FieldTransactionID, id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get transaction %s: %w", id, err)
	}
	if err := w.exporter.Export(ctx, tx); err != nil {
		return fmt.Errorf("export transaction %s: %w", id, err)
	}
	w.logger.InfoContext(ctx, "Exported transaction",
		applog.FieldTransactionID, tx.ID,
		applog.FieldTxType, string(tx.Type),
		applog.FieldAmount, tx.Amount.String())
	return nil
}

// Resync rebuilds the export from the store, oldest first. The worker runs
// it on startup to cover events missed while it was down.
func (w *ExportWorker) Resync(ctx context.Context) error {
	txs, err := w.source.LoadTransactions(ctx)
	if err != nil {
		return fmt.Errorf("load transactions: %w", err)
	}
	core.SortTransactions(txs)

	if err := w.exporter.Reset(ctx); err != nil {
		return fmt.Errorf("reset export: %w", err)
	}
	for i := len(txs) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.exporter.Export(ctx, txs[i]); err != nil {
			return fmt.Errorf("export transaction %s: %w", txs[i].ID, err)
		}
	}
	w.logger.InfoContext(ctx, "Export resynchronized", "transactions", len(txs))
	return nil
}
