package core

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Sentinel errors, one per failure kind. Typed errors below unwrap to them
// so callers can branch with errors.Is and still read the numbers with errors.As.
var (
	ErrNotFound           = errors.New("not found")
	ErrDuplicateName      = errors.New("duplicate name")
	ErrInvalidParent      = errors.New("invalid parent account")
	ErrCapExceeded        = errors.New("sub-account cap exceeded")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidOperation   = errors.New("invalid operation")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrAccountNotFound    = errors.New("account not found")
	ErrPersistenceFailure = errors.New("persistence failure")
	ErrInvalid            = errors.New("invalid input")
)

// Kind names an error category for transport layers.
type Kind string

const (
	KindNotFound           Kind = "NotFound"
	KindDuplicateName      Kind = "DuplicateName"
	KindInvalidParent      Kind = "InvalidParent"
	KindCapExceeded        Kind = "CapExceeded"
	KindInvalidAmount      Kind = "InvalidAmount"
	KindInvalidOperation   Kind = "InvalidOperation"
	KindInsufficientFunds  Kind = "InsufficientFunds"
	KindAccountNotFound    Kind = "AccountNotFound"
	KindPersistenceFailure Kind = "PersistenceFailure"
	KindInvalid            Kind = "Invalid"
	KindInternal           Kind = "Internal"
)

var kinds = []struct {
	err  error
	kind Kind
}{
	// AccountNotFound is checked before NotFound; both may be wrapped together.
	{ErrAccountNotFound, KindAccountNotFound},
	{ErrNotFound, KindNotFound},
	{ErrDuplicateName, KindDuplicateName},
	{ErrInvalidParent, KindInvalidParent},
	{ErrCapExceeded, KindCapExceeded},
	{ErrInvalidAmount, KindInvalidAmount},
	{ErrInvalidOperation, KindInvalidOperation},
	{ErrInsufficientFunds, KindInsufficientFunds},
	{ErrPersistenceFailure, KindPersistenceFailure},
	{ErrInvalid, KindInvalid},
}

// KindOf classifies err. Unknown errors are KindInternal.
func KindOf(err error) Kind {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}

// CapExceededError reports a balance that breaks the 90% sub-account rule.
//
// For a sub-account Limit is the largest balance it may hold. For a parent
// savings account (Floor set) Limit is the smallest balance that still
// covers its sub-accounts.
type CapExceededError struct {
	Account   string
	Parent    string
	Attempted decimal.Decimal
	Limit     decimal.Decimal
	Floor     bool
}

func (e *CapExceededError) Error() string {
	if e.Floor {
		return fmt.Sprintf("savings account %q balance %s is below %s, the minimum that covers its sub-accounts",
			e.Account, e.Attempted, e.Limit)
	}
	return fmt.Sprintf("sub-account %q balance %s exceeds the maximum allowed %s under parent %q",
		e.Account, e.Attempted, e.Limit, e.Parent)
}

func (e *CapExceededError) Unwrap() error { return ErrCapExceeded }

// InsufficientFundsError reports an expense or transfer larger than the balance.
type InsufficientFundsError struct {
	Account string
	Balance decimal.Decimal
	Amount  decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds in %q: balance %s, requested %s", e.Account, e.Balance, e.Amount)
}

func (e *InsufficientFundsError) Unwrap() error { return ErrInsufficientFunds }

// AccountNotFoundError names a missing account and, when one is close
// enough, the account the caller probably meant.
type AccountNotFoundError struct {
	Name       string
	Suggestion string
}

func (e *AccountNotFoundError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("account %q not found (did you mean %q?)", e.Name, e.Suggestion)
	}
	return fmt.Sprintf("account %q not found", e.Name)
}

func (e *AccountNotFoundError) Unwrap() error { return ErrAccountNotFound }

// Limit extracts the numeric limit attached to err, if any.
func Limit(err error) (decimal.Decimal, bool) {
	var capErr *CapExceededError
	if errors.As(err, &capErr) {
		return capErr.Limit, true
	}
	var fundsErr *InsufficientFundsError
	if errors.As(err, &fundsErr) {
		return fundsErr.Balance, true
	}
	return zero, false
}
