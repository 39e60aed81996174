package validator

import (
	"errors"

	"wallets/internal/models"
)

var (
	ErrMissingWalletID = errors.New("walletId cannot be null")
	ErrInvalidAmount   = errors.New("amount must be greater than zero")
	ErrInvalidType     = errors.New("type must be either DEPOSIT or WITHDRAW")
	ErrAmountPrecision = errors.New("amount must have at most 2 decimal places and 18 integer digits")
	ErrBalanceOverflow = errors.New("resulting balance exceeds the maximum wallet balance")
)

// Validate checks the shape of a mutation request. Rules run in order and the
// first violation is returned.
func Validate(req models.WalletRequest) error {
	if req.WalletID == nil {
		return ErrMissingWalletID
	}
	if !req.Amount.Valid || !req.Amount.Decimal.IsPositive() {
		return ErrInvalidAmount
	}
	if !models.FitsBalance(req.Amount.Decimal) {
		return ErrAmountPrecision
	}
	if req.Type == nil || !req.Type.Valid() {
		return ErrInvalidType
	}
	return nil
}
