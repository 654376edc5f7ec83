package repository

import (
	"context"
	"time"

	"github.com/railswap/railswap/internal/models"
)

// ListFilter narrows listing queries. Empty fields match everything; both
// combine with AND semantics.
type ListFilter struct {
	From string
	To   string
}

type TicketRepository interface {
	Create(ctx context.Context, t *models.Ticket) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Ticket, error)
	// List returns non-expired tickets, most recent first.
	List(ctx context.Context, filter ListFilter) ([]models.Ticket, error)
	// ExpireBefore marks every ticket travelling before today as expired and
	// reports how many rows it touched. Expired tickets never un-expire.
	ExpireBefore(ctx context.Context, today time.Time) (int64, error)
	SetPaymentPending(ctx context.Context, id int64, buyerEmail, checkoutSessionID string) error
	SetPaymentStatus(ctx context.Context, id int64, status models.PaymentStatus) error
}
