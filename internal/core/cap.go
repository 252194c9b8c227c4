package core

import "github.com/shopspring/decimal"

// MaxSubaccountBalance is the largest balance a sub-account may hold given
// its parent's balance and the total of its siblings.
func MaxSubaccountBalance(parentBalance, siblingTotal decimal.Decimal) decimal.Decimal {
	return parentBalance.Mul(capRatio).Sub(siblingTotal)
}

// MinParentBalance is the smallest parent balance whose 90% still covers
// childTotal, rounded up to the cent.
func MinParentBalance(childTotal decimal.Decimal) decimal.Decimal {
	return childTotal.Div(capRatio).RoundCeil(2)
}

// CheckCap validates a candidate sub-account balance. The bound is inclusive.
func CheckCap(parentBalance, siblingTotal, candidate decimal.Decimal) error {
	maxAllowed := MaxSubaccountBalance(parentBalance, siblingTotal)
	if candidate.GreaterThan(maxAllowed) {
		return &CapExceededError{Attempted: candidate, Limit: maxAllowed}
	}
	return nil
}

// checkParent validates that a top-level savings balance still covers its children.
func checkParent(balance, childTotal decimal.Decimal) error {
	if balance.Mul(capRatio).LessThan(childTotal) {
		return &CapExceededError{Attempted: balance, Limit: MinParentBalance(childTotal), Floor: true}
	}
	return nil
}
