package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WalletRequest is a deposit or withdrawal against one wallet.
// Pointer and Null fields let the validator tell a missing value from a zero one.
type WalletRequest struct {
	WalletID *uuid.UUID          `json:"walletId"`
	Type     *OperationType      `json:"type"`
	Amount   decimal.NullDecimal `json:"amount"`
}

func NewWalletRequest(walletID uuid.UUID, opType OperationType, amount decimal.Decimal) WalletRequest {
	return WalletRequest{
		WalletID: &walletID,
		Type:     &opType,
		Amount:   decimal.NewNullDecimal(amount),
	}
}
