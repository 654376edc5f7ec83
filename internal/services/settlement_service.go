package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	stderrors "errors"

	"github.com/railswap/railswap/internal/infrastructure/kafka"
	"github.com/railswap/railswap/internal/infrastructure/observability"
	"github.com/railswap/railswap/internal/infrastructure/payment"
	"github.com/railswap/railswap/internal/infrastructure/redis"
	"github.com/railswap/railswap/internal/models"
	"github.com/railswap/railswap/internal/repository"
	postgres "github.com/railswap/railswap/internal/repository/postgres"
	pkgerrors "github.com/railswap/railswap/pkg/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// commissionRate is the platform fee added on top of the listed price at
// payment time. The seller is credited the listed price only.
var commissionRate = decimal.NewFromFloat(0.10)

const settlementsTopic = "settlements"

type SettlementService interface {
	// InitiatePayment opens a checkout session for price plus commission and
	// marks the ticket payment-pending. Requires a confirmed release.
	InitiatePayment(ctx context.Context, ticketID int64, buyerEmail string) (*payment.Session, error)
	// Finalize settles a sale after the gateway confirms payment: it records
	// the sold ticket, credits the seller wallet, appends the ledger entry
	// and completes the ticket, all in one transaction.
	Finalize(ctx context.Context, checkoutSessionID string) (*models.SoldTicket, error)
	CancelPayment(ctx context.Context, ticketID int64) error
	GetSoldTicket(ctx context.Context, id int64) (*models.SoldTicket, error)
}

type settlementService struct {
	ticketRepo    repository.TicketRepository
	soldRepo      repository.SoldTicketRepository
	walletRepo    repository.WalletRepository
	walletTxRepo  repository.WalletTransactionRepository
	messageRepo   repository.MessageRepository
	transactor    postgres.Transactor
	gateway       payment.Gateway
	redisClient   redis.RedisClient
	kafkaProducer kafka.KafkaProducer
	currency      string
	publicBaseURL string
}

func NewSettlementService(
	ticketRepo repository.TicketRepository,
	soldRepo repository.SoldTicketRepository,
	walletRepo repository.WalletRepository,
	walletTxRepo repository.WalletTransactionRepository,
	messageRepo repository.MessageRepository,
	transactor postgres.Transactor,
	gateway payment.Gateway,
	redisClient redis.RedisClient,
	kafkaProducer kafka.KafkaProducer,
	currency string,
	publicBaseURL string,
) *settlementService {
	return &settlementService{
		ticketRepo:    ticketRepo,
		soldRepo:      soldRepo,
		walletRepo:    walletRepo,
		walletTxRepo:  walletTxRepo,
		messageRepo:   messageRepo,
		transactor:    transactor,
		gateway:       gateway,
		redisClient:   redisClient,
		kafkaProducer: kafkaProducer,
		currency:      currency,
		publicBaseURL: publicBaseURL,
	}
}

// SettlementAmount is the buyer-facing total: listed price plus commission.
func SettlementAmount(price decimal.Decimal) decimal.Decimal {
	return price.Add(price.Mul(commissionRate))
}

func (s *settlementService) InitiatePayment(ctx context.Context, ticketID int64, buyerEmail string) (*payment.Session, error) {
	tracer := otel.Tracer("settlement-service")
	ctx, span := tracer.Start(ctx, "InitiatePayment")
	defer span.End()
	span.SetAttributes(attribute.Int64("ticket_id", ticketID))

	if buyerEmail == "" {
		span.SetStatus(codes.Error, "missing buyer email")
		return nil, pkgerrors.ErrMissingBuyer
	}

	ticket, err := s.ticketRepo.GetByID(ctx, ticketID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "ticket not found")
		return nil, err
	}

	released, err := s.messageRepo.HasControlMessage(ctx, ticketID, models.RoleSeller, models.ReleaseConfirmationText)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if !released {
		slog.Warn("payment initiation before release confirmation", "ticket_id", ticketID)
		span.SetStatus(codes.Error, "release not confirmed")
		return nil, pkgerrors.ErrReleaseNotConfirmed
	}

	sold, err := s.soldRepo.ExistsByPNR(ctx, ticket.PNRNumber)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if sold {
		slog.Warn("payment attempt for sold pnr", "ticket_id", ticketID, "pnr_number", ticket.PNRNumber)
		span.SetStatus(codes.Error, "pnr already sold")
		return nil, pkgerrors.ErrPNRAlreadySold
	}

	total := SettlementAmount(ticket.Price)
	// Gateways price in the minor currency unit.
	unitAmount := total.Mul(decimal.NewFromInt(100)).Round(0).IntPart()

	session, err := s.gateway.CreateSession(ctx, &payment.CreateSessionRequest{
		Amount:      unitAmount,
		Currency:    s.currency,
		Description: fmt.Sprintf("From %s to %s on %s", ticket.FromLocation, ticket.ToLocation, ticket.TravelDate.Format("02-01-2006")),
		Metadata: map[string]string{
			"ticket_id":   strconv.FormatInt(ticket.ID, 10),
			"pnr_number":  ticket.PNRNumber,
			"buyer_email": buyerEmail,
		},
		SuccessURL: s.publicBaseURL + "/payment/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  fmt.Sprintf("%s/payment/cancel/%d", s.publicBaseURL, ticket.ID),
	})
	if err != nil {
		slog.Error("failed to create checkout session", "ticket_id", ticketID, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "gateway session failed")
		return nil, err
	}

	if err := s.ticketRepo.SetPaymentPending(ctx, ticket.ID, buyerEmail, session.ID); err != nil {
		span.RecordError(err)
		return nil, err
	}
	s.invalidateTicket(ctx, ticket.ID)

	slog.Info("payment initiated", "ticket_id", ticketID, "session_id", session.ID, "amount", total, "buyer_email", buyerEmail)
	return session, nil
}

func (s *settlementService) Finalize(ctx context.Context, checkoutSessionID string) (*models.SoldTicket, error) {
	var err error
	tracer := otel.Tracer("settlement-service")
	ctx, span := tracer.Start(ctx, "Finalize")
	defer span.End()
	span.SetAttributes(attribute.String("session_id", checkoutSessionID))

	defer func() {
		outcome := "success"
		if stderrors.Is(err, pkgerrors.ErrConflict) {
			outcome = "conflict"
		} else if err != nil {
			outcome = "error"
		}
		observability.SettlementsTotal.WithLabelValues(outcome).Inc()
	}()

	session, err := s.gateway.RetrieveSession(ctx, checkoutSessionID)
	if err != nil {
		slog.Error("failed to retrieve checkout session", "session_id", checkoutSessionID, "error", err)
		span.RecordError(err)
		return nil, err
	}

	// The session metadata is the only trusted link back to the ticket.
	ticketID, convErr := strconv.ParseInt(session.Metadata["ticket_id"], 10, 64)
	if convErr != nil {
		err = fmt.Errorf("%w: session %s has no ticket reference", pkgerrors.ErrValidation, checkoutSessionID)
		span.SetStatus(codes.Error, "missing ticket metadata")
		return nil, err
	}
	span.SetAttributes(attribute.Int64("ticket_id", ticketID))

	pay, err := s.gateway.RetrievePayment(ctx, session.PaymentID)
	if err != nil {
		slog.Error("failed to retrieve payment", "session_id", checkoutSessionID, "payment_id", session.PaymentID, "error", err)
		span.RecordError(err)
		return nil, err
	}
	if pay.Status != payment.PaymentSucceeded {
		err = fmt.Errorf("%w: payment %s is %s, not succeeded", pkgerrors.ErrPreconditionFailed, pay.ID, pay.Status)
		span.SetStatus(codes.Error, "payment not succeeded")
		return nil, err
	}

	ticket, err := s.ticketRepo.GetByID(ctx, ticketID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	var soldTicket *models.SoldTicket
	err = s.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		// Re-check under the transaction; the insert's unique constraint is
		// still the authoritative guard against a concurrent finalize.
		sold, err := s.soldRepo.ExistsByPNR(ctx, ticket.PNRNumber)
		if err != nil {
			return err
		}
		if sold {
			return pkgerrors.ErrPNRAlreadySold
		}

		wallet, err := s.walletRepo.GetBySellerID(ctx, ticket.WalletSellerID())
		if stderrors.Is(err, pkgerrors.ErrWalletNotFound) {
			wallet = &models.SellerWallet{
				SellerID: ticket.WalletSellerID(),
				Balance:  decimal.Zero,
				Currency: s.currency,
			}
			if _, err := s.walletRepo.Create(ctx, wallet); err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		// The seller receives the listed price; the commission stays with
		// the platform.
		if _, err := s.walletRepo.Credit(ctx, wallet.ID, ticket.Price); err != nil {
			return err
		}

		walletTx := &models.WalletTransaction{
			WalletID:    wallet.ID,
			Amount:      ticket.Price,
			Type:        models.TypeCredit,
			Description: fmt.Sprintf("Payment for ticket %d: %s to %s", ticket.ID, ticket.FromLocation, ticket.ToLocation),
			PaymentID:   pay.ID,
		}
		if _, err := s.walletTxRepo.Create(ctx, walletTx); err != nil {
			return err
		}

		soldTicket = &models.SoldTicket{
			PNRNumber:    ticket.PNRNumber,
			FromLocation: ticket.FromLocation,
			ToLocation:   ticket.ToLocation,
			TravelDate:   ticket.TravelDate,
			TrainNumber:  ticket.TrainNumber,
			BuyerEmail:   ticket.BuyerEmail,
			PaymentID:    pay.ID,
			SellerID:     ticket.SellerID,
			FromTicketID: ticket.ID,
		}
		if _, err := s.soldRepo.Create(ctx, soldTicket); err != nil {
			return err
		}

		if err := s.ticketRepo.SetPaymentStatus(ctx, ticket.ID, models.PaymentCompleted); err != nil {
			return err
		}

		confirmation := &models.Message{
			TicketID: ticket.ID,
			Sender:   models.RoleSystem,
			Text:     models.PurchaseConfirmationText(ticket.BuyerEmail),
			Shared:   true,
		}
		_, err = s.messageRepo.Create(ctx, confirmation)
		return err
	})
	if err != nil {
		if stderrors.Is(err, pkgerrors.ErrConflict) {
			slog.Warn("finalize lost double-sale race", "ticket_id", ticket.ID, "pnr_number", ticket.PNRNumber)
			span.SetStatus(codes.Error, "pnr already sold")
			return nil, err
		}
		slog.Error("settlement transaction failed", "ticket_id", ticket.ID, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "settlement failed")
		err = fmt.Errorf("%w: %v", pkgerrors.ErrFinalization, err)
		return nil, err
	}

	s.invalidateTicket(ctx, ticket.ID)
	s.publishSettlementEvent(soldTicket)

	slog.Info("sale settled",
		"ticket_id", ticket.ID,
		"sold_ticket_id", soldTicket.ID,
		"pnr_number", soldTicket.PNRNumber,
		"payment_id", pay.ID,
		"buyer_email", soldTicket.BuyerEmail)
	return soldTicket, nil
}

func (s *settlementService) CancelPayment(ctx context.Context, ticketID int64) error {
	if _, err := s.ticketRepo.GetByID(ctx, ticketID); err != nil {
		return err
	}
	if err := s.ticketRepo.SetPaymentStatus(ctx, ticketID, models.PaymentCancelled); err != nil {
		return err
	}
	s.invalidateTicket(ctx, ticketID)
	slog.Info("payment cancelled", "ticket_id", ticketID)
	return nil
}

func (s *settlementService) GetSoldTicket(ctx context.Context, id int64) (*models.SoldTicket, error) {
	return s.soldRepo.GetByID(ctx, id)
}

func (s *settlementService) invalidateTicket(ctx context.Context, ticketID int64) {
	ticketKey := fmt.Sprintf("ticket:%d", ticketID)
	if err := s.redisClient.Del(ctx, ticketKey); err != nil {
		slog.Error("failed to invalidate ticket cache", "ticket_id", ticketID, "error", err)
	}
}

// publishSettlementEvent emits the sold-ticket event asynchronously with
// bounded retries. A failed publish never unwinds the settlement.
func (s *settlementService) publishSettlementEvent(st *models.SoldTicket) {
	event := map[string]interface{}{
		"event_type":     "ticket_sold",
		"sold_ticket_id": st.ID,
		"ticket_id":      st.FromTicketID,
		"pnr_number":     st.PNRNumber,
		"seller_id":      st.SellerID,
		"buyer_email":    st.BuyerEmail,
		"payment_id":     st.PaymentID,
		"sold_at":        st.SoldAt.UTC().Format(time.RFC3339),
	}
	eventBytes, err := json.Marshal(event)
	if err != nil {
		slog.Error("failed to marshal settlement event", "sold_ticket_id", st.ID, "error", err)
		return
	}

	go func() {
		retries := 3
		for i := 0; i < retries; i++ {
			if err := s.kafkaProducer.Send(context.Background(), settlementsTopic, st.ID, eventBytes); err == nil {
				slog.Info("settlement event sent", "sold_ticket_id", st.ID, "pnr_number", st.PNRNumber)
				return
			}
			time.Sleep(time.Second * time.Duration(i+1))
		}
		slog.Error("failed to send settlement event after retries", "sold_ticket_id", st.ID)
	}()
}
