package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TypeCredit TransactionType = "credit"
	TypeDebit  TransactionType = "debit"
)

// SellerWallet holds a seller's accumulated sale proceeds. One wallet per
// seller, created lazily on first credit.
type SellerWallet struct {
	ID        int64           `json:"id"`
	SellerID  int64           `json:"seller_id"`
	Balance   decimal.Decimal `json:"balance"`
	Currency  string          `json:"currency"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// WalletTransaction is an append-only ledger entry. The sum of a wallet's
// transactions must equal its current balance.
type WalletTransaction struct {
	ID          int64           `json:"id"`
	WalletID    int64           `json:"wallet_id"`
	Amount      decimal.Decimal `json:"amount"`
	Type        TransactionType `json:"transaction_type"`
	Description string          `json:"description,omitempty"`
	PaymentID   string          `json:"payment_id,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}
