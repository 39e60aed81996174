package repository_test

import (
	"context"
	"testing"

	"wallets/internal/models"
	"wallets/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestMemory_FindByID(t *testing.T) {
	repo := repository.NewWalletMemoryRepository()
	walletID := uuid.New()

	_, err := repo.FindByID(context.Background(), walletID)
	assert.ErrorIs(t, err, repository.ErrWalletNotFound)

	_, err = repo.Save(context.Background(), models.Wallet{ID: walletID, Balance: decimal.NewFromInt(10)})
	assert.NoError(t, err)

	wallet, err := repo.FindByID(context.Background(), walletID)
	assert.NoError(t, err)
	assert.True(t, wallet.Balance.Equal(decimal.NewFromInt(10)))
}

func TestMemory_CompareAndSwapBalance(t *testing.T) {
	repo := repository.NewWalletMemoryRepository()
	walletID := uuid.New()
	_, _ = repo.Save(context.Background(), models.Wallet{ID: walletID, Balance: decimal.RequireFromString("1000.00")})

	// equal value at a different scale still matches
	ok, err := repo.CompareAndSwapBalance(context.Background(), walletID, decimal.NewFromInt(1000), decimal.NewFromInt(400))
	assert.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.CompareAndSwapBalance(context.Background(), walletID, decimal.NewFromInt(1000), decimal.Zero)
	assert.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.CompareAndSwapBalance(context.Background(), uuid.New(), decimal.Zero, decimal.NewFromInt(1))
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestMemory_CanceledContext(t *testing.T) {
	repo := repository.NewWalletMemoryRepository()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, context.Canceled)
}
