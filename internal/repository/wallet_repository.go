package repository

import (
	"context"

	"github.com/railswap/railswap/internal/models"
	"github.com/shopspring/decimal"
)

type WalletRepository interface {
	GetBySellerID(ctx context.Context, sellerID int64) (*models.SellerWallet, error)
	Create(ctx context.Context, w *models.SellerWallet) (int64, error)
	// Credit adds amount to the wallet balance and returns the new balance.
	Credit(ctx context.Context, walletID int64, amount decimal.Decimal) (decimal.Decimal, error)
}

type WalletTransactionRepository interface {
	Create(ctx context.Context, tx *models.WalletTransaction) (int64, error)
	ListByWallet(ctx context.Context, walletID int64) ([]models.WalletTransaction, error)
}
