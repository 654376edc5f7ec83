package repository

import (
	"context"

	"github.com/railswap/railswap/internal/models"
)

type MessageRepository interface {
	Create(ctx context.Context, m *models.Message) (int64, error)
	// ListByTicket returns the full thread for a ticket, oldest first.
	ListByTicket(ctx context.Context, ticketID int64) ([]models.Message, error)
	// HasShareConfirmation reports whether the seller has posted a message
	// with the shared flag for this ticket.
	HasShareConfirmation(ctx context.Context, ticketID int64) (bool, error)
	// HasControlMessage reports whether an exact control message from the
	// given role exists in the ticket's thread.
	HasControlMessage(ctx context.Context, ticketID int64, sender models.SenderRole, text string) (bool, error)
}
