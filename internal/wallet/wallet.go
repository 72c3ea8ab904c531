package wallet

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

var (
	// ErrInsufficientBalance is returned when the source balance cannot
	// cover a positive transfer. It is the only error kind callers are
	// expected to catch and compensate for.
	ErrInsufficientBalance = errors.New("balance must be greater than amount")
	// ErrInvalidAmount is returned for amounts that are not finite numbers.
	ErrInvalidAmount = errors.New("amount must be a number")
)

// Account is anything carrying named balance fields. Both ledger users
// (single "balance" field) and travels (price/deposit/reward escrow
// fields) satisfy it, which is what lets one transfer primitive move
// money between a person and an escrow.
type Account interface {
	Balance(field string) float64
	SetBalance(field string, amount float64)
}

// Transfer decrements fromField on from and increments toField on to.
// A zero amount is a no-op. The mutation is purely in-memory: the caller
// must persist both accounts afterwards, and must persist both, because
// writing only one side breaks conservation.
func Transfer(from, to Account, amount float64, fromField, toField string) error {
	if !isFinite(amount) {
		return ErrInvalidAmount
	}
	if amount > 0 {
		if from.Balance(fromField) < amount {
			return ErrInsufficientBalance
		}
		from.SetBalance(fromField, from.Balance(fromField)-amount)
		to.SetBalance(toField, to.Balance(toField)+amount)
	}
	return nil
}

// TransferTo is the single-sided credit variant: it mints amount onto
// field. Used for owner top-ups and system-funded rewards.
func TransferTo(to Account, amount float64, field string) error {
	if !isFinite(amount) {
		return ErrInvalidAmount
	}
	if amount > 0 {
		to.SetBalance(field, to.Balance(field)+amount)
	}
	return nil
}

// DeleteBalanceFrom is the single-sided debit variant: it burns amount
// from field. Used to extinguish unclaimed system-suggested rewards.
func DeleteBalanceFrom(from Account, amount float64, field string) error {
	if !isFinite(amount) {
		return ErrInvalidAmount
	}
	if amount > 0 {
		from.SetBalance(field, from.Balance(field)-amount)
	}
	return nil
}

// ParseAmount parses a monetary argument received as a string. NaN and
// infinities are rejected.
func ParseAmount(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || !isFinite(v) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return v, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
