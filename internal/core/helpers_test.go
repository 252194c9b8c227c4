package core

import (
	"fmt"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertAmount(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Equal(t, dec(want).String(), got.String())
}

func sequentialIDs() IDFunc {
	n := 0
	return func() (string, error) {
		n++
		return fmt.Sprintf("id-%04d", n), nil
	}
}

// newDefaultBook returns a book holding the three default accounts.
func newDefaultBook(t *testing.T) *Book {
	t.Helper()
	b := NewBook(nil, nil, nil, WithIDFunc(sequentialIDs()))
	b.EnsureDefaultAccounts()
	return b
}

func balance(t *testing.T, b *Book, name string) decimal.Decimal {
	t.Helper()
	bal, ok := b.Balance(name)
	assert.True(t, ok, "account %q missing", name)
	return bal
}

func assertReplayConsistent(t *testing.T, b *Book) {
	t.Helper()
	replayed := b.Replay()
	for _, a := range b.Accounts() {
		assert.True(t, a.Balance.Equal(replayed[a.Name]),
			"account %s: balance %s, replay %s", a.Name, a.Balance, replayed[a.Name])
	}
}

func assertCapsHold(t *testing.T, b *Book) {
	t.Helper()
	for _, a := range b.Accounts() {
		if !a.IsTopLevelSavings() {
			continue
		}
		children := b.childTotal(a.Name, "")
		assert.False(t, children.GreaterThan(a.Balance.Mul(capRatio)),
			"parent %s balance %s cannot cover children %s", a.Name, a.Balance, children)
	}
}
