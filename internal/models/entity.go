package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Wallet struct {
	ID      uuid.UUID       `db:"id" json:"walletId"`
	Balance decimal.Decimal `db:"balance" json:"balance"`
}

type OperationType string

const (
	Deposit  OperationType = "DEPOSIT"
	Withdraw OperationType = "WITHDRAW"
)

func (t OperationType) Valid() bool {
	return t == Deposit || t == Withdraw
}

// Balances are stored as NUMERIC(20,2): at most 18 integer and 2 fractional digits.
const (
	BalanceScale     = 2
	BalanceIntDigits = 18
)

// MaxBalance is the largest storable balance, 999999999999999999.99.
var MaxBalance = decimal.New(1, BalanceIntDigits).Sub(decimal.New(1, -BalanceScale))

// FitsBalance reports whether d can be stored without rounding or overflow.
// It inspects the coefficient and exponent before any arithmetic, so values
// like 1e2000000000 are rejected without being expanded.
func FitsBalance(d decimal.Decimal) bool {
	if d.IsZero() {
		return true
	}
	digits := int64(d.NumDigits())
	exp := int64(d.Exponent())
	if digits+exp > BalanceIntDigits {
		return false
	}
	// every significant digit sits below the smallest storable unit
	if digits+exp <= -BalanceScale {
		return false
	}
	if exp < -BalanceScale && !d.Equal(d.Truncate(BalanceScale)) {
		return false
	}
	return d.Abs().LessThanOrEqual(MaxBalance)
}
