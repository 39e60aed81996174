package validator_test

import (
	"testing"

	"wallets/internal/models"
	"wallets/internal/validator"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	walletID := uuid.New()
	deposit := models.Deposit
	unknown := models.OperationType("TRANSFER")

	tests := []struct {
		name string
		req  models.WalletRequest
		want error
	}{
		{
			name: "valid deposit",
			req:  models.NewWalletRequest(walletID, models.Deposit, decimal.RequireFromString("500.00")),
		},
		{
			name: "valid withdraw",
			req:  models.NewWalletRequest(walletID, models.Withdraw, decimal.RequireFromString("0.01")),
		},
		{
			name: "missing wallet id",
			req:  models.WalletRequest{Type: &deposit, Amount: decimal.NewNullDecimal(decimal.NewFromInt(1))},
			want: validator.ErrMissingWalletID,
		},
		{
			name: "missing wallet id wins over other violations",
			req:  models.WalletRequest{},
			want: validator.ErrMissingWalletID,
		},
		{
			name: "null amount",
			req:  models.WalletRequest{WalletID: &walletID, Type: &deposit},
			want: validator.ErrInvalidAmount,
		},
		{
			name: "zero amount",
			req:  models.NewWalletRequest(walletID, models.Deposit, decimal.Zero),
			want: validator.ErrInvalidAmount,
		},
		{
			name: "negative amount",
			req:  models.NewWalletRequest(walletID, models.Withdraw, decimal.NewFromInt(-10)),
			want: validator.ErrInvalidAmount,
		},
		{
			name: "huge exponent",
			req:  models.NewWalletRequest(walletID, models.Deposit, decimal.New(1, 20_000_000)),
			want: validator.ErrAmountPrecision,
		},
		{
			name: "too many integer digits",
			req:  models.NewWalletRequest(walletID, models.Deposit, decimal.RequireFromString("1000000000000000000")),
			want: validator.ErrAmountPrecision,
		},
		{
			name: "too many decimal places",
			req:  models.NewWalletRequest(walletID, models.Withdraw, decimal.RequireFromString("10.005")),
			want: validator.ErrAmountPrecision,
		},
		{
			name: "below smallest unit",
			req:  models.NewWalletRequest(walletID, models.Deposit, decimal.New(1, -2_000_000_000)),
			want: validator.ErrAmountPrecision,
		},
		{
			name: "trailing zeros within scale",
			req:  models.NewWalletRequest(walletID, models.Deposit, decimal.RequireFromString("10.500")),
		},
		{
			name: "amount checked before type",
			req:  models.WalletRequest{WalletID: &walletID, Amount: decimal.NewNullDecimal(decimal.Zero)},
			want: validator.ErrInvalidAmount,
		},
		{
			name: "null type",
			req:  models.WalletRequest{WalletID: &walletID, Amount: decimal.NewNullDecimal(decimal.NewFromInt(1))},
			want: validator.ErrInvalidType,
		},
		{
			name: "unknown type",
			req:  models.WalletRequest{WalletID: &walletID, Type: &unknown, Amount: decimal.NewNullDecimal(decimal.NewFromInt(1))},
			want: validator.ErrInvalidType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.Validate(tt.req)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestValidate_IsDeterministic(t *testing.T) {
	walletID := uuid.New()
	req := models.NewWalletRequest(walletID, models.Withdraw, decimal.NewFromInt(-1))
	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, validator.Validate(req), validator.ErrInvalidAmount)
	}
}
