package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WalletResponse reports a wallet's balance after a read or a committed mutation.
type WalletResponse struct {
	WalletID uuid.UUID       `json:"walletId"`
	Amount   decimal.Decimal `json:"amount"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
