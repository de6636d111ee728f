package domain

import (
	"encoding/json"
	"fmt"
)

// MaxAmount bounds a single expense amount (ten billion in major units) so
// that group-wide sums stay far from int64 overflow.
const MaxAmount int64 = 1_000_000_000_000

// Money is an amount in integer cents of a group's currency.
// The zero value is zero cents.
type Money struct {
	cents int64
}

// Cents builds a Money from an integer number of cents.
func Cents(c int64) Money { return Money{cents: c} }

// Zero is zero cents.
var Zero = Money{}

func (m Money) Cents() int64 { return m.cents }

func (m Money) Add(o Money) Money { return Money{cents: m.cents + o.cents} }

func (m Money) Sub(o Money) Money { return Money{cents: m.cents - o.cents} }

func (m Money) Neg() Money { return Money{cents: -m.cents} }

func (m Money) Abs() Money {
	if m.cents < 0 {
		return m.Neg()
	}
	return m
}

// Min returns the smaller of m and o.
func (m Money) Min(o Money) Money {
	if o.cents < m.cents {
		return o
	}
	return m
}

// Cmp returns -1, 0 or 1.
func (m Money) Cmp(o Money) int {
	switch {
	case m.cents < o.cents:
		return -1
	case m.cents > o.cents:
		return 1
	}
	return 0
}

func (m Money) Equal(o Money) bool { return m.cents == o.cents }
func (m Money) IsZero() bool       { return m.cents == 0 }
func (m Money) IsPositive() bool   { return m.cents > 0 }
func (m Money) IsNegative() bool   { return m.cents < 0 }

func (m Money) String() string { return fmt.Sprintf("%d", m.cents) }

// Sum adds amounts.
func Sum(amounts ...Money) Money {
	var total Money
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// MarshalJSON encodes Money as a bare integer of cents.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.cents)
}

// UnmarshalJSON accepts only integer cents; fractional values are rejected.
func (m *Money) UnmarshalJSON(data []byte) error {
	var c int64
	if err := json.Unmarshal(data, &c); err != nil {
		return fmt.Errorf("money must be integer cents: %w", err)
	}
	m.cents = c
	return nil
}

// ValidateAmount checks that an expense amount is positive and bounded.
func ValidateAmount(m Money) error {
	if !m.IsPositive() {
		return ErrInvalidAmount
	}
	if m.cents > MaxAmount {
		return fmt.Errorf("%w: maximum is %d cents", ErrAmountTooLarge, MaxAmount)
	}
	return nil
}
