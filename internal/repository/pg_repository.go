package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"wallets/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type WalletPGRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewWalletPGRepository(pool *pgxpool.Pool, logger *slog.Logger) *WalletPGRepository {
	return &WalletPGRepository{
		pool:   pool,
		logger: logger,
	}
}

func (r *WalletPGRepository) FindByID(ctx context.Context, walletID uuid.UUID) (models.Wallet, error) {
	wallet := models.Wallet{ID: walletID}
	err := r.pool.QueryRow(ctx, "SELECT balance FROM wallets WHERE id = $1", walletID).Scan(&wallet.Balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Wallet{}, ErrWalletNotFound
	}
	if err != nil {
		r.logger.Error("Failed to select wallet",
			slog.String("wallet_id", walletID.String()),
			slog.Any("err", err),
		)
		return models.Wallet{}, classify(err)
	}
	return wallet, nil
}

// Save writes the wallet as given, creating it if it does not exist yet.
func (r *WalletPGRepository) Save(ctx context.Context, wallet models.Wallet) (models.Wallet, error) {
	var saved models.Wallet
	err := r.pool.QueryRow(ctx, `
		INSERT INTO wallets (id, balance) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET balance = EXCLUDED.balance
		RETURNING id, balance`, wallet.ID, wallet.Balance).Scan(&saved.ID, &saved.Balance)
	if err != nil {
		r.logger.Error("Failed to save wallet",
			slog.String("wallet_id", wallet.ID.String()),
			slog.Any("err", err),
		)
		return models.Wallet{}, classify(err)
	}
	return saved, nil
}

// CompareAndSwapBalance sets the balance to next only while it still equals expected.
func (r *WalletPGRepository) CompareAndSwapBalance(
	ctx context.Context,
	walletID uuid.UUID,
	expected decimal.Decimal,
	next decimal.Decimal,
) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		"UPDATE wallets SET balance = $1 WHERE id = $2 AND balance = $3",
		next, walletID, expected,
	)
	if err != nil {
		r.logger.Error("Failed to update wallet balance",
			slog.String("wallet_id", walletID.String()),
			slog.Any("err", err),
		)
		return false, classify(err)
	}
	return tag.RowsAffected() == 1, nil
}

// classify marks serialization failures and deadlocks as retryable conflicts.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == "40001" || pgErr.Code == "40P01") {
		return fmt.Errorf("%w: %w", ErrConflict, err)
	}
	return err
}
