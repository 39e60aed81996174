package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"wallets/internal/config"
	"wallets/internal/infra"
	"wallets/internal/logging"
	"wallets/internal/models"
	"wallets/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
)

type walletSaver interface {
	Save(ctx context.Context, wallet models.Wallet) (models.Wallet, error)
}

func main() {
	var (
		wallets    []string
		schemaOnly bool
	)
	pflag.StringSliceVarP(&wallets, "wallet", "w", nil, "wallet to upsert as <uuid>=<balance>, repeatable")
	pflag.BoolVar(&schemaOnly, "schema-only", false, "apply the postgres schema and exit")
	pflag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("failed to load config:", err)
	}
	logger := logging.SetupLogger(cfg.LogLevel)

	parsed, err := parseWallets(wallets)
	if err != nil {
		logger.Error("Invalid --wallet value", slog.Any("err", err))
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := run(ctx, cfg, logger, parsed, schemaOnly); err != nil {
		logger.Error("Seeding failed", slog.Any("err", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, wallets []models.Wallet, schemaOnly bool) error {
	var repo walletSaver
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		pool, err := infra.NewPostgresPool(ctx, cfg.DBURL, cfg.DBMaxConns)
		if err != nil {
			return err
		}
		defer pool.Close()
		if _, err := pool.Exec(ctx, repository.Schema); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
		logger.Info("Schema applied")
		repo = repository.NewWalletPGRepository(pool, logger)
	case config.BackendDynamoDB:
		client, err := infra.NewDynamoDBClient(ctx, cfg.DynamoDBWalletsTable)
		if err != nil {
			return err
		}
		repo = repository.NewWalletDynamoRepository(client, cfg.DynamoDBWalletsTable, logger)
	default:
		return fmt.Errorf("store backend %q cannot be seeded", cfg.StoreBackend)
	}

	if schemaOnly {
		return nil
	}
	return seed(ctx, repo, logger, wallets)
}

func seed(ctx context.Context, repo walletSaver, logger *slog.Logger, wallets []models.Wallet) error {
	for _, w := range wallets {
		if _, err := repo.Save(ctx, w); err != nil {
			return fmt.Errorf("save wallet %s: %w", w.ID, err)
		}
		logger.Info("Wallet saved",
			slog.String("wallet_id", w.ID.String()),
			slog.String("balance", w.Balance.String()),
		)
	}
	return nil
}

func parseWallets(values []string) ([]models.Wallet, error) {
	wallets := make([]models.Wallet, 0, len(values))
	for _, v := range values {
		idPart, balancePart, ok := strings.Cut(v, "=")
		if !ok {
			return nil, fmt.Errorf("%q: expected <uuid>=<balance>", v)
		}
		id, err := uuid.Parse(strings.TrimSpace(idPart))
		if err != nil {
			return nil, fmt.Errorf("%q: %w", v, err)
		}
		balance, err := decimal.NewFromString(strings.TrimSpace(balancePart))
		if err != nil {
			return nil, fmt.Errorf("%q: %w", v, err)
		}
		if balance.IsNegative() {
			return nil, fmt.Errorf("%q: balance must not be negative", v)
		}
		if !models.FitsBalance(balance) {
			return nil, fmt.Errorf("%q: balance does not fit NUMERIC(20,2)", v)
		}
		wallets = append(wallets, models.Wallet{ID: id, Balance: balance})
	}
	return wallets, nil
}
