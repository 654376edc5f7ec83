package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/railswap/railswap/internal/infrastructure/observability"
	"github.com/railswap/railswap/internal/models"
	pkgerrors "github.com/railswap/railswap/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// uniqueViolation is the Postgres error code raised when an insert loses the
// sold_tickets.pnr_number uniqueness race.
const uniqueViolation = "23505"

type PostgresSoldTicketRepository struct {
	db *sql.DB
}

func NewPostgresSoldTicketRepository(db *sql.DB) *PostgresSoldTicketRepository {
	return &PostgresSoldTicketRepository{db: db}
}

func (r *PostgresSoldTicketRepository) Create(ctx context.Context, st *models.SoldTicket) (int64, error) {
	var err error
	tracer := otel.Tracer("sold-ticket-repository")
	ctx, span := tracer.Start(ctx, "CreateSoldTicket")
	defer span.End()

	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		observability.RepositoryCalls.WithLabelValues("CreateSoldTicket", status).Inc()
		observability.RepositoryDuration.WithLabelValues("CreateSoldTicket").Observe(time.Since(start).Seconds())
	}()

	span.SetAttributes(
		attribute.String("pnr_number", st.PNRNumber),
		attribute.Int64("from_ticket_id", st.FromTicketID),
		attribute.Int64("seller_id", st.SellerID),
	)

	query := `
		INSERT INTO sold_tickets (pnr_number, from_location, to_location, travel_date, train_number, buyer_email, payment_id, seller_id, from_ticket_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, sold_at`
	err = exec(ctx, r.db).QueryRowContext(ctx, query,
		st.PNRNumber, st.FromLocation, st.ToLocation, st.TravelDate,
		st.TrainNumber, st.BuyerEmail, st.PaymentID, st.SellerID, st.FromTicketID,
	).Scan(&st.ID, &st.SoldAt)
	if err != nil {
		var pqErr *pq.Error
		if stderrors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			slog.Warn("pnr already sold", "method", "Create", "pnr_number", st.PNRNumber)
			err = pkgerrors.ErrPNRAlreadySold
			return 0, err
		}
		slog.Error("failed to create sold ticket", "method", "Create", "pnr_number", st.PNRNumber, "error", err)
		return 0, fmt.Errorf("failed to create sold ticket: %w", err)
	}

	slog.Info("sold ticket recorded", "method", "Create", "id", st.ID, "pnr_number", st.PNRNumber, "buyer_email", st.BuyerEmail)
	return st.ID, nil
}

func (r *PostgresSoldTicketRepository) GetByID(ctx context.Context, id int64) (*models.SoldTicket, error) {
	query := `
		SELECT id, pnr_number, from_location, to_location, travel_date, train_number, buyer_email, payment_id, seller_id, from_ticket_id, sold_at
		FROM sold_tickets WHERE id = $1`
	var st models.SoldTicket
	err := exec(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&st.ID, &st.PNRNumber, &st.FromLocation, &st.ToLocation, &st.TravelDate,
		&st.TrainNumber, &st.BuyerEmail, &st.PaymentID, &st.SellerID,
		&st.FromTicketID, &st.SoldAt,
	)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.ErrSoldTicketNotFound
	}
	if err != nil {
		slog.Error("failed to get sold ticket", "method", "GetByID", "sold_ticket_id", id, "error", err)
		return nil, fmt.Errorf("failed to get sold ticket: %w", err)
	}
	return &st, nil
}

func (r *PostgresSoldTicketRepository) ExistsByPNR(ctx context.Context, pnr string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM sold_tickets WHERE pnr_number = $1)`
	var exists bool
	if err := exec(ctx, r.db).QueryRowContext(ctx, query, pnr).Scan(&exists); err != nil {
		slog.Error("failed to check sold pnr", "method", "ExistsByPNR", "pnr_number", pnr, "error", err)
		return false, fmt.Errorf("failed to check sold pnr: %w", err)
	}
	return exists, nil
}
