// Package common holds the domain types shared by every component of the
// matching engine: money amounts, orders, trades, markets and the error
// kinds the engine surfaces to callers.
package common

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

// ErrAmountOutOfRange is returned when a parsed amount does not fit the wire
// contract's [0, 2^128) range.
var ErrAmountOutOfRange = errors.New("amount exceeds 128-bit atomic unit range")

const maxAtomicBits = 128

// Amount is a non-negative integer expressed in atomic units (the smallest
// representable unit of a token). It is backed by a 256-bit integer so that
// validating a price or size near the 128-bit boundary, or taking its
// quotient/remainder against a market quantum, never overflows — even though
// all day-to-day engine arithmetic happens in 64-bit tick/lot space (see
// internal/convert). Domain-facing code should only ever construct, parse,
// compare and format Amounts; it must never multiply two of them together.
type Amount struct {
	v uint256.Int
}

// Zero is the additive identity.
var Zero = Amount{}

// AmountFromUint64 builds an Amount directly from a tick/lot-space value,
// used when converting engine-internal quantities back to domain units.
func AmountFromUint64(v uint64) Amount {
	var a Amount
	a.v.SetUint64(v)
	return a
}

// ParseAmount parses a decimal string (the wire contract's format for money)
// into an Amount, rejecting anything negative, non-numeric, or too large to
// be a legal atomic-unit quantity.
func ParseAmount(s string) (Amount, error) {
	var a Amount
	if err := a.v.SetFromDecimal(s); err != nil {
		return Amount{}, fmt.Errorf("parse amount %q: %w", s, err)
	}
	if a.v.BitLen() > maxAtomicBits {
		return Amount{}, ErrAmountOutOfRange
	}
	return a, nil
}

// String renders the amount as a decimal string, the wire format for money.
func (a Amount) String() string { return a.v.Dec() }

// IsZero reports whether the amount is zero.
func (a Amount) IsZero() bool { return a.v.IsZero() }

// Uint64 returns the low 64 bits of the amount. Callers must only use this
// once a value is already known to fit (e.g. a tick/lot count).
func (a Amount) Uint64() uint64 { return a.v.Uint64() }

// Cmp compares two amounts: -1, 0, or 1 as a is less than, equal to, or
// greater than b.
func (a Amount) Cmp(b Amount) int { return a.v.Cmp(&b.v) }

// LessThan reports whether a < b.
func (a Amount) LessThan(b Amount) bool { return a.Cmp(b) < 0 }

// GreaterThan reports whether a > b.
func (a Amount) GreaterThan(b Amount) bool { return a.Cmp(b) > 0 }

// GreaterOrEqual reports whether a >= b.
func (a Amount) GreaterOrEqual(b Amount) bool { return a.Cmp(b) >= 0 }

// Add returns a + b.
func (a Amount) Add(b Amount) Amount {
	var r Amount
	r.v.Add(&a.v, &b.v)
	return r
}

// Sub returns a - b. Callers must ensure a >= b; the engine never subtracts
// past zero since filled_size is bounded by size throughout the lifecycle.
func (a Amount) Sub(b Amount) Amount {
	var r Amount
	r.v.Sub(&a.v, &b.v)
	return r
}

// Mul returns a * b. Reserved for boundary conversions (ticks/lots back to
// atomic units); never used to multiply two domain Amounts directly.
func (a Amount) Mul(b Amount) Amount {
	var r Amount
	r.v.Mul(&a.v, &b.v)
	return r
}

// DivMod returns the quotient and remainder of a / b. Used to validate
// divisibility against a market's tick_size/lot_size and to scale an atomic
// amount down into tick/lot space.
func (a Amount) DivMod(b Amount) (quotient, remainder Amount) {
	var q, m Amount
	q.v.DivMod(&a.v, &b.v, &m.v)
	return q, m
}

// DivisibleBy reports whether a is an exact multiple of b.
func (a Amount) DivisibleBy(b Amount) bool {
	_, m := a.DivMod(b)
	return m.IsZero()
}
