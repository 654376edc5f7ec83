package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/railswap/railswap/internal/infrastructure/observability"
	"github.com/railswap/railswap/internal/models"
	pkgerrors "github.com/railswap/railswap/pkg/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type PostgresWalletRepository struct {
	db *sql.DB
}

func NewPostgresWalletRepository(db *sql.DB) *PostgresWalletRepository {
	return &PostgresWalletRepository{db: db}
}

func (r *PostgresWalletRepository) GetBySellerID(ctx context.Context, sellerID int64) (*models.SellerWallet, error) {
	query := `SELECT id, seller_id, balance, currency, created_at, updated_at FROM seller_wallets WHERE seller_id = $1`
	var w models.SellerWallet
	err := exec(ctx, r.db).QueryRowContext(ctx, query, sellerID).Scan(
		&w.ID, &w.SellerID, &w.Balance, &w.Currency, &w.CreatedAt, &w.UpdatedAt,
	)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.ErrWalletNotFound
	}
	if err != nil {
		slog.Error("failed to get wallet", "method", "GetBySellerID", "seller_id", sellerID, "error", err)
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return &w, nil
}

func (r *PostgresWalletRepository) Create(ctx context.Context, w *models.SellerWallet) (int64, error) {
	query := `
		INSERT INTO seller_wallets (seller_id, balance, currency)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`
	err := exec(ctx, r.db).QueryRowContext(ctx, query, w.SellerID, w.Balance, w.Currency).
		Scan(&w.ID, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		slog.Error("failed to create wallet", "method", "Create", "seller_id", w.SellerID, "error", err)
		return 0, fmt.Errorf("failed to create wallet: %w", err)
	}
	slog.Info("wallet created", "method", "Create", "id", w.ID, "seller_id", w.SellerID, "currency", w.Currency)
	return w.ID, nil
}

func (r *PostgresWalletRepository) Credit(ctx context.Context, walletID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	var err error
	tracer := otel.Tracer("wallet-repository")
	ctx, span := tracer.Start(ctx, "CreditWallet")
	defer span.End()

	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		observability.RepositoryCalls.WithLabelValues("CreditWallet", status).Inc()
		observability.RepositoryDuration.WithLabelValues("CreditWallet").Observe(time.Since(start).Seconds())
	}()

	span.SetAttributes(
		attribute.Int64("wallet_id", walletID),
		attribute.String("amount", amount.String()),
	)

	query := `UPDATE seller_wallets SET balance = balance + $1, updated_at = NOW() WHERE id = $2 RETURNING balance`
	var balance decimal.Decimal
	err = exec(ctx, r.db).QueryRowContext(ctx, query, amount, walletID).Scan(&balance)
	if stderrors.Is(err, sql.ErrNoRows) {
		err = pkgerrors.ErrWalletNotFound
		return decimal.Zero, err
	}
	if err != nil {
		slog.Error("failed to credit wallet", "method", "Credit", "wallet_id", walletID, "amount", amount, "error", err)
		return decimal.Zero, fmt.Errorf("failed to credit wallet: %w", err)
	}

	slog.Info("wallet credited", "method", "Credit", "wallet_id", walletID, "amount", amount, "balance", balance)
	return balance, nil
}

type PostgresWalletTransactionRepository struct {
	db *sql.DB
}

func NewPostgresWalletTransactionRepository(db *sql.DB) *PostgresWalletTransactionRepository {
	return &PostgresWalletTransactionRepository{db: db}
}

func (r *PostgresWalletTransactionRepository) Create(ctx context.Context, tx *models.WalletTransaction) (int64, error) {
	if tx.Type != models.TypeCredit && tx.Type != models.TypeDebit {
		slog.Error("invalid transaction type", "method", "Create", "type", tx.Type)
		return 0, fmt.Errorf("%w: transaction type must be credit or debit", pkgerrors.ErrValidation)
	}
	query := `
		INSERT INTO wallet_transactions (wallet_id, amount, transaction_type, description, payment_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`
	err := exec(ctx, r.db).QueryRowContext(ctx, query,
		tx.WalletID, tx.Amount, tx.Type, tx.Description, tx.PaymentID,
	).Scan(&tx.ID, &tx.CreatedAt)
	if err != nil {
		slog.Error("failed to create wallet transaction", "method", "Create", "wallet_id", tx.WalletID, "error", err)
		return 0, fmt.Errorf("failed to create wallet transaction: %w", err)
	}
	slog.Info("wallet transaction recorded", "method", "Create", "id", tx.ID, "wallet_id", tx.WalletID, "type", tx.Type, "amount", tx.Amount)
	return tx.ID, nil
}

func (r *PostgresWalletTransactionRepository) ListByWallet(ctx context.Context, walletID int64) ([]models.WalletTransaction, error) {
	query := `
		SELECT id, wallet_id, amount, transaction_type, description, payment_id, created_at
		FROM wallet_transactions
		WHERE wallet_id = $1
		ORDER BY created_at DESC`
	rows, err := exec(ctx, r.db).QueryContext(ctx, query, walletID)
	if err != nil {
		slog.Error("failed to list wallet transactions", "method", "ListByWallet", "wallet_id", walletID, "error", err)
		return nil, fmt.Errorf("failed to list wallet transactions: %w", err)
	}
	defer rows.Close()

	var txs []models.WalletTransaction
	for rows.Next() {
		var tx models.WalletTransaction
		if err := rows.Scan(&tx.ID, &tx.WalletID, &tx.Amount, &tx.Type, &tx.Description, &tx.PaymentID, &tx.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan wallet transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list wallet transactions: %w", err)
	}
	return txs, nil
}
