package memory

import (
	"context"
	"slices"
	"sync"

	"fintrack/internal/core"
	"fintrack/internal/sheets"
)

// Exporter keeps exported rows in memory, in first-export order.
type Exporter struct {
	mu   sync.Mutex
	rows []core.Transaction
}

var _ sheets.TransactionExporter = (*Exporter)(nil)

func New() *Exporter { return &Exporter{} }

// Export stores tx, replacing an earlier export of the same id in place.
func (e *Exporter) Export(_ context.Context, tx core.Transaction) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i := slices.IndexFunc(e.rows, func(r core.Transaction) bool { return r.ID == tx.ID }); i >= 0 {
		e.rows[i] = tx
		return nil
	}
	e.rows = append(e.rows, tx)
	return nil
}

func (e *Exporter) Remove(_ context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rows = slices.DeleteFunc(e.rows, func(r core.Transaction) bool { return r.ID == id })
	return nil
}

func (e *Exporter) Reset(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rows = nil
	return nil
}

// Rows returns a copy of the exported rows.
func (e *Exporter) Rows() []core.Transaction {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.rows)
}
