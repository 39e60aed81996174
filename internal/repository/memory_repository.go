package repository

import (
	"context"
	"sync"

	"wallets/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WalletMemoryRepository keeps wallets in process memory.
type WalletMemoryRepository struct {
	mu      sync.RWMutex
	storage map[uuid.UUID]decimal.Decimal
}

func NewWalletMemoryRepository() *WalletMemoryRepository {
	return &WalletMemoryRepository{storage: make(map[uuid.UUID]decimal.Decimal)}
}

func (r *WalletMemoryRepository) FindByID(ctx context.Context, walletID uuid.UUID) (models.Wallet, error) {
	if err := ctx.Err(); err != nil {
		return models.Wallet{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	balance, ok := r.storage[walletID]
	if !ok {
		return models.Wallet{}, ErrWalletNotFound
	}
	return models.Wallet{ID: walletID, Balance: balance}, nil
}

func (r *WalletMemoryRepository) Save(ctx context.Context, wallet models.Wallet) (models.Wallet, error) {
	if err := ctx.Err(); err != nil {
		return models.Wallet{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.storage[wallet.ID] = wallet.Balance
	return wallet, nil
}

func (r *WalletMemoryRepository) CompareAndSwapBalance(
	ctx context.Context,
	walletID uuid.UUID,
	expected decimal.Decimal,
	next decimal.Decimal,
) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.storage[walletID]
	if !ok || !current.Equal(expected) {
		return false, nil
	}
	r.storage[walletID] = next
	return true, nil
}
