package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"wallets/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DynamoDBAPI is the subset of the DynamoDB client used by the wallet store.
type DynamoDBAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// WalletDynamoRepository stores wallets in a DynamoDB table keyed by wallet_id.
// Balances are DynamoDB Numbers, which hold up to 38 significant digits exactly.
type WalletDynamoRepository struct {
	client    DynamoDBAPI
	tableName string
	logger    *slog.Logger
}

func NewWalletDynamoRepository(client DynamoDBAPI, tableName string, logger *slog.Logger) *WalletDynamoRepository {
	return &WalletDynamoRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

func (r *WalletDynamoRepository) FindByID(ctx context.Context, walletID uuid.UUID) (models.Wallet, error) {
	key, err := walletKey(walletID)
	if err != nil {
		return models.Wallet{}, err
	}

	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            key,
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		r.logger.Error("Failed to get wallet",
			slog.String("wallet_id", walletID.String()),
			slog.Any("err", err),
		)
		return models.Wallet{}, fmt.Errorf("failed to get wallet from DynamoDB: %w", err)
	}
	if result.Item == nil {
		return models.Wallet{}, ErrWalletNotFound
	}

	balance, err := balanceFromItem(result.Item)
	if err != nil {
		return models.Wallet{}, err
	}
	return models.Wallet{ID: walletID, Balance: balance}, nil
}

func (r *WalletDynamoRepository) Save(ctx context.Context, wallet models.Wallet) (models.Wallet, error) {
	_, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item: map[string]types.AttributeValue{
			"wallet_id": &types.AttributeValueMemberS{Value: wallet.ID.String()},
			"balance":   &types.AttributeValueMemberN{Value: wallet.Balance.String()},
		},
	})
	if err != nil {
		r.logger.Error("Failed to put wallet",
			slog.String("wallet_id", wallet.ID.String()),
			slog.Any("err", err),
		)
		return models.Wallet{}, fmt.Errorf("failed to save wallet in DynamoDB: %w", err)
	}
	return wallet, nil
}

// CompareAndSwapBalance issues a conditional update that only applies while
// the stored balance still equals expected.
func (r *WalletDynamoRepository) CompareAndSwapBalance(
	ctx context.Context,
	walletID uuid.UUID,
	expected decimal.Decimal,
	next decimal.Decimal,
) (bool, error) {
	key, err := walletKey(walletID)
	if err != nil {
		return false, err
	}

	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 key,
		UpdateExpression:    aws.String("SET balance = :next"),
		ConditionExpression: aws.String("attribute_exists(wallet_id) AND balance = :expected"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":next":     &types.AttributeValueMemberN{Value: next.String()},
			":expected": &types.AttributeValueMemberN{Value: expected.String()},
		},
	})
	if err != nil {
		var condCheckFailed *types.ConditionalCheckFailedException
		if errors.As(err, &condCheckFailed) {
			return false, nil
		}
		var txConflict *types.TransactionConflictException
		if errors.As(err, &txConflict) {
			return false, fmt.Errorf("%w: %w", ErrConflict, err)
		}
		r.logger.Error("Failed to update wallet balance",
			slog.String("wallet_id", walletID.String()),
			slog.Any("err", err),
		)
		return false, fmt.Errorf("failed to update wallet in DynamoDB: %w", err)
	}
	return true, nil
}

func walletKey(walletID uuid.UUID) (map[string]types.AttributeValue, error) {
	key, err := attributevalue.MarshalMap(map[string]string{"wallet_id": walletID.String()})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal wallet id: %w", err)
	}
	return key, nil
}

func balanceFromItem(item map[string]types.AttributeValue) (decimal.Decimal, error) {
	attr, ok := item["balance"].(*types.AttributeValueMemberN)
	if !ok {
		return decimal.Zero, fmt.Errorf("wallet item has no numeric balance")
	}
	balance, err := decimal.NewFromString(attr.Value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse wallet balance: %w", err)
	}
	return balance, nil
}
