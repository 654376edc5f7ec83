package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/railswap/railswap/internal/models"
	"github.com/railswap/railswap/internal/repository"
	pkgerrors "github.com/railswap/railswap/pkg/errors"
)

type NegotiationService interface {
	// Post appends a chat message. The shared flag is only honored for
	// sellers; a buyer-submitted share flag is coerced to false.
	Post(ctx context.Context, ticketID int64, sender models.SenderRole, text string, shared bool) (*models.Message, error)
	History(ctx context.Context, ticketID int64) ([]models.Message, error)
	// RequestRelease records the buyer's release request. It requires a
	// prior seller share-confirmation and rejects a second request while an
	// earlier one is still unanswered.
	RequestRelease(ctx context.Context, ticketID int64) (*models.Message, error)
	// ConfirmRelease records the seller's transfer confirmation. It requires
	// a prior share-confirmation and unlocks payment initiation.
	ConfirmRelease(ctx context.Context, ticketID int64) (*models.Message, error)
}

type negotiationService struct {
	ticketRepo  repository.TicketRepository
	messageRepo repository.MessageRepository
}

func NewNegotiationService(
	ticketRepo repository.TicketRepository,
	messageRepo repository.MessageRepository,
) *negotiationService {
	return &negotiationService{
		ticketRepo:  ticketRepo,
		messageRepo: messageRepo,
	}
}

func (s *negotiationService) Post(ctx context.Context, ticketID int64, sender models.SenderRole, text string, shared bool) (*models.Message, error) {
	if sender != models.RoleBuyer && sender != models.RoleSeller {
		return nil, pkgerrors.ErrInvalidRole
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, pkgerrors.ErrEmptyMessage
	}
	if _, err := s.ticketRepo.GetByID(ctx, ticketID); err != nil {
		return nil, err
	}

	msg := &models.Message{
		TicketID: ticketID,
		Sender:   sender,
		Text:     text,
		Shared:   shared && sender == models.RoleSeller,
	}
	if _, err := s.messageRepo.Create(ctx, msg); err != nil {
		return nil, err
	}

	if msg.Shared {
		slog.Info("ticket details shared", "ticket_id", ticketID, "message_id", msg.ID)
	}
	return msg, nil
}

func (s *negotiationService) History(ctx context.Context, ticketID int64) ([]models.Message, error) {
	if _, err := s.ticketRepo.GetByID(ctx, ticketID); err != nil {
		return nil, err
	}
	return s.messageRepo.ListByTicket(ctx, ticketID)
}

func (s *negotiationService) RequestRelease(ctx context.Context, ticketID int64) (*models.Message, error) {
	if _, err := s.ticketRepo.GetByID(ctx, ticketID); err != nil {
		return nil, err
	}

	shared, err := s.messageRepo.HasShareConfirmation(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !shared {
		slog.Warn("release request before share", "ticket_id", ticketID)
		return nil, pkgerrors.ErrTicketNotShared
	}

	msgs, err := s.messageRepo.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if hasPendingReleaseRequest(msgs) {
		slog.Warn("duplicate release request", "ticket_id", ticketID)
		return nil, pkgerrors.ErrReleaseAlreadyRequested
	}

	msg := &models.Message{
		TicketID: ticketID,
		Sender:   models.RoleBuyer,
		Text:     models.ReleaseRequestText,
	}
	if _, err := s.messageRepo.Create(ctx, msg); err != nil {
		return nil, err
	}

	slog.Info("release requested", "ticket_id", ticketID, "message_id", msg.ID)
	return msg, nil
}

func (s *negotiationService) ConfirmRelease(ctx context.Context, ticketID int64) (*models.Message, error) {
	if _, err := s.ticketRepo.GetByID(ctx, ticketID); err != nil {
		return nil, err
	}

	shared, err := s.messageRepo.HasShareConfirmation(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !shared {
		slog.Warn("release confirmation without share", "ticket_id", ticketID)
		return nil, pkgerrors.ErrTicketNotShared
	}

	msg := &models.Message{
		TicketID: ticketID,
		Sender:   models.RoleSeller,
		Text:     models.ReleaseConfirmationText,
	}
	if _, err := s.messageRepo.Create(ctx, msg); err != nil {
		return nil, err
	}

	slog.Info("release confirmed", "ticket_id", ticketID, "message_id", msg.ID)
	return msg, nil
}

// hasPendingReleaseRequest walks the thread in order and reports whether the
// latest buyer release request is still unanswered: no seller share and no
// release confirmation after it.
func hasPendingReleaseRequest(msgs []models.Message) bool {
	pending := false
	for _, m := range msgs {
		switch {
		case m.Sender == models.RoleBuyer && m.Text == models.ReleaseRequestText:
			pending = true
		case m.Sender == models.RoleSeller && (m.Shared || m.Text == models.ReleaseConfirmationText):
			pending = false
		}
	}
	return pending
}
