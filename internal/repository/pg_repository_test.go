package repository_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"wallets/internal/logging"
	"wallets/internal/models"
	"wallets/internal/repository"
	"wallets/internal/testutil"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLogger = logging.Discard()

func TestPG_SaveAndFind(t *testing.T) {
	pool, teardown := testutil.SetupTestDB(t)
	defer teardown()
	repo := repository.NewWalletPGRepository(pool, testLogger)
	walletID := uuid.New()

	saved, err := repo.Save(context.Background(), models.Wallet{ID: walletID, Balance: decimal.RequireFromString("1000.00")})
	require.NoError(t, err)
	assert.Equal(t, walletID, saved.ID)

	wallet, err := repo.FindByID(context.Background(), walletID)
	require.NoError(t, err)
	assert.True(t, wallet.Balance.Equal(decimal.NewFromInt(1000)))

	// Save overwrites
	_, err = repo.Save(context.Background(), models.Wallet{ID: walletID, Balance: decimal.RequireFromString("12.5")})
	require.NoError(t, err)
	wallet, err = repo.FindByID(context.Background(), walletID)
	require.NoError(t, err)
	assert.True(t, wallet.Balance.Equal(decimal.RequireFromString("12.5")))
}

func TestPG_FindByID_NotFound(t *testing.T) {
	pool, teardown := testutil.SetupTestDB(t)
	defer teardown()
	repo := repository.NewWalletPGRepository(pool, testLogger)

	_, err := repo.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, repository.ErrWalletNotFound)
}

func TestPG_CompareAndSwapBalance(t *testing.T) {
	pool, teardown := testutil.SetupTestDB(t)
	defer teardown()
	repo := repository.NewWalletPGRepository(pool, testLogger)
	walletID := uuid.New()
	_, err := repo.Save(context.Background(), models.Wallet{ID: walletID, Balance: decimal.NewFromInt(100)})
	require.NoError(t, err)

	ok, err := repo.CompareAndSwapBalance(context.Background(), walletID, decimal.NewFromInt(100), decimal.RequireFromString("150.25"))
	require.NoError(t, err)
	assert.True(t, ok)

	// stale expectation loses
	ok, err = repo.CompareAndSwapBalance(context.Background(), walletID, decimal.NewFromInt(100), decimal.NewFromInt(1))
	require.NoError(t, err)
	assert.False(t, ok)

	wallet, err := repo.FindByID(context.Background(), walletID)
	require.NoError(t, err)
	assert.True(t, wallet.Balance.Equal(decimal.RequireFromString("150.25")))
}

func TestPG_CompareAndSwapBalance_UnknownWallet(t *testing.T) {
	pool, teardown := testutil.SetupTestDB(t)
	defer teardown()
	repo := repository.NewWalletPGRepository(pool, testLogger)

	ok, err := repo.CompareAndSwapBalance(context.Background(), uuid.New(), decimal.Zero, decimal.NewFromInt(1))
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestPG_CompareAndSwapBalance_ExactPrecision(t *testing.T) {
	pool, teardown := testutil.SetupTestDB(t)
	defer teardown()
	repo := repository.NewWalletPGRepository(pool, testLogger)
	walletID := uuid.New()
	balance := models.MaxBalance
	_, err := repo.Save(context.Background(), models.Wallet{ID: walletID, Balance: balance})
	require.NoError(t, err)

	ok, err := repo.CompareAndSwapBalance(context.Background(), walletID, balance, decimal.Zero)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPG_CompareAndSwapBalance_ConcurrentSingleWinner(t *testing.T) {
	pool, teardown := testutil.SetupTestDB(t)
	defer teardown()
	repo := repository.NewWalletPGRepository(pool, testLogger)
	walletID := uuid.New()
	_, err := repo.Save(context.Background(), models.Wallet{ID: walletID, Balance: decimal.NewFromInt(1000)})
	require.NoError(t, err)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.CompareAndSwapBalance(context.Background(), walletID, decimal.NewFromInt(1000), decimal.NewFromInt(400))
			assert.NoError(t, err)
			if ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}
