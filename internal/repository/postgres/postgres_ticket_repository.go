package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/railswap/railswap/internal/models"
	pkgerrors "github.com/railswap/railswap/pkg/errors"
	repo "github.com/railswap/railswap/internal/repository"
)

type PostgresTicketRepository struct {
	db *sql.DB
}

func NewPostgresTicketRepository(db *sql.DB) *PostgresTicketRepository {
	return &PostgresTicketRepository{db: db}
}

const ticketColumns = `id, title, price, description, artifact_ref, pnr_number, from_location, to_location, travel_date, train_number, passenger_name, seller_id, is_expired, payment_status, buyer_email, checkout_session_id, created_at`

func (r *PostgresTicketRepository) Create(ctx context.Context, t *models.Ticket) (int64, error) {
	query := `
		INSERT INTO tickets (title, price, description, artifact_ref, pnr_number, from_location, to_location, travel_date, train_number, passenger_name, seller_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at`
	err := exec(ctx, r.db).QueryRowContext(ctx, query,
		t.Title, t.Price, t.Description, t.ArtifactRef, t.PNRNumber,
		t.FromLocation, t.ToLocation, t.TravelDate, t.TrainNumber,
		t.PassengerName, t.SellerID,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		slog.Error("failed to create ticket", "method", "Create", "pnr_number", t.PNRNumber, "error", err)
		return 0, fmt.Errorf("failed to create ticket: %w", err)
	}
	slog.Info("ticket created", "method", "Create", "id", t.ID, "pnr_number", t.PNRNumber, "from", t.FromLocation, "to", t.ToLocation)
	return t.ID, nil
}

func (r *PostgresTicketRepository) GetByID(ctx context.Context, id int64) (*models.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id = $1`
	var t models.Ticket
	err := exec(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&t.ID, &t.Title, &t.Price, &t.Description, &t.ArtifactRef, &t.PNRNumber,
		&t.FromLocation, &t.ToLocation, &t.TravelDate, &t.TrainNumber,
		&t.PassengerName, &t.SellerID, &t.IsExpired, &t.PaymentStatus,
		&t.BuyerEmail, &t.CheckoutSessionID, &t.CreatedAt,
	)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.ErrTicketNotFound
	}
	if err != nil {
		slog.Error("failed to get ticket", "method", "GetByID", "ticket_id", id, "error", err)
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}
	return &t, nil
}

func (r *PostgresTicketRepository) List(ctx context.Context, filter repo.ListFilter) ([]models.Ticket, error) {
	query := `
		SELECT ` + ticketColumns + `
		FROM tickets
		WHERE is_expired = FALSE
		  AND from_location ILIKE '%' || $1 || '%'
		  AND to_location ILIKE '%' || $2 || '%'
		ORDER BY created_at DESC`
	rows, err := exec(ctx, r.db).QueryContext(ctx, query, filter.From, filter.To)
	if err != nil {
		slog.Error("failed to list tickets", "method", "List", "from", filter.From, "to", filter.To, "error", err)
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	defer rows.Close()

	var tickets []models.Ticket
	for rows.Next() {
		var t models.Ticket
		if err := rows.Scan(
			&t.ID, &t.Title, &t.Price, &t.Description, &t.ArtifactRef, &t.PNRNumber,
			&t.FromLocation, &t.ToLocation, &t.TravelDate, &t.TrainNumber,
			&t.PassengerName, &t.SellerID, &t.IsExpired, &t.PaymentStatus,
			&t.BuyerEmail, &t.CheckoutSessionID, &t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan ticket: %w", err)
		}
		tickets = append(tickets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	return tickets, nil
}

func (r *PostgresTicketRepository) ExpireBefore(ctx context.Context, today time.Time) (int64, error) {
	query := `UPDATE tickets SET is_expired = TRUE WHERE travel_date < $1 AND is_expired = FALSE`
	res, err := exec(ctx, r.db).ExecContext(ctx, query, today)
	if err != nil {
		slog.Error("failed to expire tickets", "method", "ExpireBefore", "today", today, "error", err)
		return 0, fmt.Errorf("failed to expire tickets: %w", err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to expire tickets: %w", err)
	}
	return count, nil
}

func (r *PostgresTicketRepository) SetPaymentPending(ctx context.Context, id int64, buyerEmail, checkoutSessionID string) error {
	query := `UPDATE tickets SET buyer_email = $2, checkout_session_id = $3, payment_status = $4 WHERE id = $1`
	res, err := exec(ctx, r.db).ExecContext(ctx, query, id, buyerEmail, checkoutSessionID, models.PaymentPending)
	if err != nil {
		slog.Error("failed to mark payment pending", "method", "SetPaymentPending", "ticket_id", id, "error", err)
		return fmt.Errorf("failed to mark payment pending: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return pkgerrors.ErrTicketNotFound
	}
	return nil
}

func (r *PostgresTicketRepository) SetPaymentStatus(ctx context.Context, id int64, status models.PaymentStatus) error {
	query := `UPDATE tickets SET payment_status = $2 WHERE id = $1`
	res, err := exec(ctx, r.db).ExecContext(ctx, query, id, status)
	if err != nil {
		slog.Error("failed to set payment status", "method", "SetPaymentStatus", "ticket_id", id, "status", status, "error", err)
		return fmt.Errorf("failed to set payment status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return pkgerrors.ErrTicketNotFound
	}
	return nil
}
