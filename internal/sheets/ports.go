// Package sheets holds the export port the worker mirrors transactions
// through, plus its Google Sheets and in-memory implementations.
package sheets

import (
	"context"

	"fintrack/internal/core"
)

// TransactionExporter mirrors ledger transactions to an external sheet.
// Export is an upsert keyed by transaction id; Remove of an unknown id
// is not an error.
type TransactionExporter interface {
	Export(ctx context.Context, tx core.Transaction) error
	Remove(ctx context.Context, id string) error
	Reset(ctx context.Context) error
}

// Header is the column layout of an exported sheet.
var Header = []string{"ID", "Date", "Type", "Category", "Account", "To Account", "Amount", "Note"}

// Row renders tx in Header order.
func Row(tx core.Transaction) []any {
	return []any{
		tx.ID,
		string(tx.Date),
		string(tx.Type),
		tx.Category,
		tx.Account,
		tx.ToAccount,
		tx.Amount.StringFixed(2),
		tx.Note,
	}
}
