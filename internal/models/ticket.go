package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AnonymousSellerID is the wallet owner for tickets listed without a seller
// identity. Listings made before authentication existed all settle into this
// anonymous seller pool.
const AnonymousSellerID int64 = 1

type PaymentStatus string

const (
	PaymentNone      PaymentStatus = ""
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentCancelled PaymentStatus = "cancelled"
)

// Ticket is a resale listing for a single train booking.
type Ticket struct {
	ID            int64           `json:"id"`
	Title         string          `json:"title"`
	Price         decimal.Decimal `json:"price"`
	Description   string          `json:"description,omitempty"`
	ArtifactRef   string          `json:"artifact_ref"`
	PNRNumber     string          `json:"pnr_number"`
	FromLocation  string          `json:"from_location"`
	ToLocation    string          `json:"to_location"`
	TravelDate    time.Time       `json:"travel_date"`
	TrainNumber   string          `json:"train_number"`
	PassengerName string          `json:"passenger_name"`
	SellerID      int64           `json:"seller_id,omitempty"`
	IsExpired     bool            `json:"is_expired"`
	PaymentStatus PaymentStatus   `json:"payment_status,omitempty"`
	BuyerEmail    string          `json:"buyer_email,omitempty"`
	// CheckoutSessionID is the external payment gateway's session reference,
	// set when payment is initiated.
	CheckoutSessionID string    `json:"checkout_session_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// WalletSellerID resolves the wallet owner, falling back to the anonymous
// seller pool for listings without a seller identity.
func (t *Ticket) WalletSellerID() int64 {
	if t.SellerID == 0 {
		return AnonymousSellerID
	}
	return t.SellerID
}

// SoldTicket is the immutable proof of a completed sale. At most one row may
// exist per PNR, enforced by a unique constraint.
type SoldTicket struct {
	ID           int64     `json:"id"`
	PNRNumber    string    `json:"pnr_number"`
	FromLocation string    `json:"from_location"`
	ToLocation   string    `json:"to_location"`
	TravelDate   time.Time `json:"travel_date"`
	TrainNumber  string    `json:"train_number"`
	BuyerEmail   string    `json:"buyer_email,omitempty"`
	PaymentID    string    `json:"payment_id,omitempty"`
	SellerID     int64     `json:"seller_id,omitempty"`
	FromTicketID int64     `json:"from_ticket_id"`
	SoldAt       time.Time `json:"sold_at"`
}
