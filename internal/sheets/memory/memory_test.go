package memory

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

func TestExporterUpsertRemoveReset(t *testing.T) {
	ctx := context.Background()
	e := New()

	a := core.Transaction{ID: "a", Amount: decimal.NewFromInt(1), Category: "x"}
	b := core.Transaction{ID: "b", Amount: decimal.NewFromInt(2)}
	if err := e.Export(ctx, a); err != nil {
		t.Fatal(err)
	}
	e.Export(ctx, b)
	a.Category = "y"
	e.Export(ctx, a)

	rows := e.Rows()
	if len(rows) != 2 || rows[0].ID != "a" || rows[0].Category != "y" {
		t.Fatalf("rows = %+v", rows)
	}

	if err := e.Remove(ctx, "missing"); err != nil {
		t.Fatalf("Remove of unknown id: %v", err)
	}
	e.Remove(ctx, "a")
	if rows := e.Rows(); len(rows) != 1 || rows[0].ID != "b" {
		t.Fatalf("after remove = %+v", rows)
	}

	e.Reset(ctx)
	if len(e.Rows()) != 0 {
		t.Fatal("Reset left rows")
	}
}
