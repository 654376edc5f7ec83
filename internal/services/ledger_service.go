package service

import (
	"context"

	"github.com/railswap/railswap/internal/models"
	"github.com/railswap/railswap/internal/repository"
)

type LedgerService interface {
	GetWallet(ctx context.Context, sellerID int64) (*models.SellerWallet, error)
	GetTransactions(ctx context.Context, sellerID int64) ([]models.WalletTransaction, error)
}

type ledgerService struct {
	walletRepo   repository.WalletRepository
	walletTxRepo repository.WalletTransactionRepository
}

func NewLedgerService(
	walletRepo repository.WalletRepository,
	walletTxRepo repository.WalletTransactionRepository,
) *ledgerService {
	return &ledgerService{
		walletRepo:   walletRepo,
		walletTxRepo: walletTxRepo,
	}
}

func (s *ledgerService) GetWallet(ctx context.Context, sellerID int64) (*models.SellerWallet, error) {
	if sellerID == 0 {
		sellerID = models.AnonymousSellerID
	}
	return s.walletRepo.GetBySellerID(ctx, sellerID)
}

func (s *ledgerService) GetTransactions(ctx context.Context, sellerID int64) ([]models.WalletTransaction, error) {
	wallet, err := s.GetWallet(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	return s.walletTxRepo.ListByWallet(ctx, wallet.ID)
}
