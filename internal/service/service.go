package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"wallets/internal/admission"
	"wallets/internal/apperror"
	"wallets/internal/metrics"
	"wallets/internal/models"
	"wallets/internal/repository"
	"wallets/internal/validator"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

//go:generate mockgen -source=service.go -destination=../mocks/mock_wallet_repository.go -package=mocks WalletRepository

// WalletRepository is the store contract the engine relies on. Wallets are
// created outside the engine, so it only reads and conditionally writes.
type WalletRepository interface {
	FindByID(ctx context.Context, walletID uuid.UUID) (models.Wallet, error)
	// CompareAndSwapBalance reports false when the stored balance no longer equals expected.
	CompareAndSwapBalance(ctx context.Context, walletID uuid.UUID, expected, next decimal.Decimal) (bool, error)
}

var errRetriesExhausted = errors.New("balance kept changing under concurrent writers")

type WalletService struct {
	repo        WalletRepository
	logger      *slog.Logger
	admission   Admitter
	metrics     *metrics.Metrics
	locks       *walletLocks
	opTimeout   time.Duration
	lockTimeout time.Duration
	maxRetries  int
	backoff     time.Duration
}

func NewWalletService(repo WalletRepository, logger *slog.Logger, opts ...Option) *WalletService {
	s := &WalletService{
		repo:        repo,
		logger:      logger,
		locks:       newWalletLocks(),
		opTimeout:   2 * time.Second,
		lockTimeout: 2 * time.Second,
		maxRetries:  3,
		backoff:     10 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *WalletService) GetBalance(ctx context.Context, walletID uuid.UUID) (models.WalletResponse, error) {
	wallet, err := s.find(ctx, walletID)
	if err != nil {
		return models.WalletResponse{}, s.storeError("GetBalance", walletID, err)
	}
	return models.WalletResponse{WalletID: wallet.ID, Amount: wallet.Balance}, nil
}

// ApplyMutation deposits to or withdraws from a wallet and returns the new balance.
// Mutations of one wallet are serialized; different wallets proceed in parallel.
func (s *WalletService) ApplyMutation(ctx context.Context, req models.WalletRequest) (models.WalletResponse, error) {
	start := time.Now()
	resp, err := s.admit(ctx, req)
	s.metrics.RecordMutation(operationLabel(req), outcomeLabel(err), time.Since(start))
	if err != nil {
		return models.WalletResponse{}, err
	}
	return resp, nil
}

func (s *WalletService) admit(ctx context.Context, req models.WalletRequest) (models.WalletResponse, error) {
	if s.admission == nil {
		return s.mutate(ctx, req)
	}

	var resp models.WalletResponse
	err := s.admission.Do(ctx, func(ctx context.Context) error {
		var err error
		resp, err = s.mutate(ctx, req)
		return err
	})
	if err == nil {
		return resp, nil
	}

	var appErr *apperror.Error
	switch {
	case errors.As(err, &appErr):
		return models.WalletResponse{}, appErr
	case admission.IsRejection(err):
		s.logger.Warn("Mutation rejected: overloaded", slog.Any("err", err))
		return models.WalletResponse{}, apperror.Overloaded(err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return models.WalletResponse{}, apperror.Timeout(err)
	default:
		return models.WalletResponse{}, apperror.Unclassified(err)
	}
}

func (s *WalletService) mutate(ctx context.Context, req models.WalletRequest) (models.WalletResponse, error) {
	if err := validator.Validate(req); err != nil {
		s.logger.Warn("Mutation rejected: invalid request", slog.Any("err", err))
		return models.WalletResponse{}, apperror.InvalidRequest(err)
	}
	walletID := *req.WalletID
	opType := *req.Type
	amount := req.Amount.Decimal

	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	unlock, err := s.locks.Lock(lockCtx, walletID)
	cancel()
	if err != nil {
		s.logger.Warn("Mutation failed: wallet lock not acquired",
			slog.String("wallet_id", walletID.String()),
			slog.Any("err", err),
		)
		return models.WalletResponse{}, apperror.Timeout(fmt.Errorf("wallet %s is busy: %w", walletID, err))
	}
	defer unlock()

	for attempt := 0; attempt < s.maxRetries; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, s.backoff<<(attempt-1)); err != nil {
				return models.WalletResponse{}, apperror.Timeout(err)
			}
		}

		wallet, err := s.find(ctx, walletID)
		if err != nil {
			return models.WalletResponse{}, s.storeError("ApplyMutation", walletID, err)
		}

		next, err := applyDelta(wallet.Balance, opType, amount)
		if err != nil {
			s.logger.Warn("Mutation rejected by balance check",
				slog.String("wallet_id", walletID.String()),
				slog.String("operation", string(opType)),
				slog.Any("amount", amount),
				slog.Any("balance", wallet.Balance),
				slog.Any("err", err),
			)
			return models.WalletResponse{}, err
		}

		swapped, err := s.swap(ctx, walletID, wallet.Balance, next)
		if err != nil && !errors.Is(err, repository.ErrConflict) {
			return models.WalletResponse{}, s.storeError("ApplyMutation", walletID, err)
		}
		if err != nil || !swapped {
			s.metrics.RecordConflict()
			s.logger.Warn("Retrying mutation: balance changed concurrently",
				slog.String("wallet_id", walletID.String()),
				slog.Int("attempt", attempt+1),
				slog.Any("err", err),
			)
			continue
		}

		s.logger.Debug("Mutation applied",
			slog.String("wallet_id", walletID.String()),
			slog.String("operation", string(opType)),
			slog.Any("amount", amount),
			slog.Any("balance", next),
		)
		return models.WalletResponse{WalletID: walletID, Amount: next}, nil
	}

	s.logger.Error("Mutation failed after retries",
		slog.String("wallet_id", walletID.String()),
		slog.String("operation", string(opType)),
		slog.Any("amount", amount),
	)
	return models.WalletResponse{}, apperror.Overloaded(fmt.Errorf("wallet %s: %w", walletID, errRetriesExhausted))
}

func applyDelta(balance decimal.Decimal, opType models.OperationType, amount decimal.Decimal) (decimal.Decimal, error) {
	switch opType {
	case models.Deposit:
		next := balance.Add(amount)
		if next.GreaterThan(models.MaxBalance) {
			return balance, apperror.InvalidRequest(validator.ErrBalanceOverflow)
		}
		return next, nil
	case models.Withdraw:
		next := balance.Sub(amount)
		if next.IsNegative() {
			return balance, apperror.InsufficientFunds()
		}
		return next, nil
	default:
		return balance, apperror.InvalidRequest(validator.ErrInvalidType)
	}
}

func (s *WalletService) find(ctx context.Context, walletID uuid.UUID) (models.Wallet, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	return s.repo.FindByID(ctx, walletID)
}

// swap is not cancelled by the caller: once issued, the write runs to its
// outcome so the response reports what the store actually holds. Only the
// operation timeout bounds it, and a Timeout from here may follow a commit.
func (s *WalletService) swap(ctx context.Context, walletID uuid.UUID, expected, next decimal.Decimal) (bool, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opTimeout)
	defer cancel()
	return s.repo.CompareAndSwapBalance(ctx, walletID, expected, next)
}

func (s *WalletService) storeError(op string, walletID uuid.UUID, err error) error {
	switch {
	case errors.Is(err, repository.ErrWalletNotFound):
		s.logger.Warn(op+": wallet not found",
			slog.String("wallet_id", walletID.String()),
		)
		return apperror.WalletNotFound(walletID, err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		s.logger.Warn(op+": store call timed out",
			slog.String("wallet_id", walletID.String()),
			slog.Any("err", err),
		)
		return apperror.Timeout(err)
	default:
		s.logger.Error(op+" failed",
			slog.String("wallet_id", walletID.String()),
			slog.Any("err", err),
		)
		return apperror.Unclassified(err)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func operationLabel(req models.WalletRequest) string {
	if req.Type == nil || !req.Type.Valid() {
		return "unknown"
	}
	return string(*req.Type)
}

func outcomeLabel(err error) string {
	if err == nil {
		return "ok"
	}
	return apperror.KindOf(err).String()
}
