// Package amount implements the fixed-point monetary unit used throughout
// the chain: a signed 64-bit integer counted in the smallest unit, with one
// whole coin equal to 10^8 units. All arithmetic fails rather than wraps
// when it would leave the money range.
package amount

import (
	"math"

	"github.com/pkg/errors"
)

// Atomic is the number of smallest-unit digits in one whole coin.
const Atomic = 8

// COIN is one whole coin expressed in the smallest unit.
const COIN Amount = 100_000_000

// MaxMoney bounds coin amounts; it is the int64 ceiling itself, so
// IsMoneyRange's job for coin amounts is really just "non-negative and
// doesn't overflow on the way here" — actual supply limits live in the
// subsidy schedule, not in this bound.
const MaxMoney Amount = math.MaxInt64

// MaxMoneyTokens bounds token amounts, which are capped well below the
// coin ceiling since a token's total issuance is a human-facing quantity.
const MaxMoneyTokens Amount = 25_000_000_000 * COIN

// ErrOutOfRange is returned whenever an amount (or an intermediate sum)
// leaves [0, MaxMoney].
var ErrOutOfRange = errors.New("amount: out of money range")

// Amount is a quantity of coin in the smallest unit.
type Amount int64

// IsMoneyRange reports whether a lies within [0, MaxMoney].
func (a Amount) IsMoneyRange() bool {
	return a >= 0 && a <= MaxMoney
}

// IsTokenMoneyRange reports whether a lies within [0, MaxMoneyTokens]; used
// when validating token issuance/reissue/transfer amounts (C6), which are
// bounded tighter than raw coin amounts.
func (a Amount) IsTokenMoneyRange() bool {
	return a >= 0 && a <= MaxMoneyTokens
}

// Add returns a+b, failing if either operand, or the result, leaves the
// money range.
func Add(a, b Amount) (Amount, error) {
	if !a.IsMoneyRange() || !b.IsMoneyRange() {
		return 0, ErrOutOfRange
	}
	sum := a + b
	if !sum.IsMoneyRange() {
		return 0, ErrOutOfRange
	}
	return sum, nil
}

// Sub returns a-b, failing if the result would be negative or either
// operand is already out of range.
func Sub(a, b Amount) (Amount, error) {
	if !a.IsMoneyRange() || !b.IsMoneyRange() {
		return 0, ErrOutOfRange
	}
	diff := a - b
	if !diff.IsMoneyRange() {
		return 0, ErrOutOfRange
	}
	return diff, nil
}

// MulSmall multiplies a by a small non-negative integer factor, failing on
// overflow or an out-of-range result.
func MulSmall(a Amount, factor int64) (Amount, error) {
	if !a.IsMoneyRange() || factor < 0 {
		return 0, ErrOutOfRange
	}
	if a != 0 && factor != 0 {
		// overflow check before the multiply actually happens
		if int64(a) > int64(MaxMoney)/factor {
			return 0, ErrOutOfRange
		}
	}
	result := Amount(int64(a) * factor)
	if !result.IsMoneyRange() {
		return 0, ErrOutOfRange
	}
	return result, nil
}

// Sum adds a slice of amounts, failing as soon as any partial sum leaves
// the money range.
func Sum(amounts ...Amount) (Amount, error) {
	var total Amount
	var err error
	for _, a := range amounts {
		total, err = Add(total, a)
		if err != nil {
			return 0, err
		}
	}
	return total, nil
}

// Cmp compares two amounts the way sort expects: -1, 0, 1.
func Cmp(a, b Amount) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
