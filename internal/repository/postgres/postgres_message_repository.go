package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/railswap/railswap/internal/models"
)

type PostgresMessageRepository struct {
	db *sql.DB
}

func NewPostgresMessageRepository(db *sql.DB) *PostgresMessageRepository {
	return &PostgresMessageRepository{db: db}
}

func (r *PostgresMessageRepository) Create(ctx context.Context, m *models.Message) (int64, error) {
	query := `
		INSERT INTO messages (ticket_id, sender_type, message_text, is_ticket_shared)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`
	err := exec(ctx, r.db).QueryRowContext(ctx, query, m.TicketID, m.Sender, m.Text, m.Shared).
		Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		slog.Error("failed to create message", "method", "Create", "ticket_id", m.TicketID, "sender", m.Sender, "error", err)
		return 0, fmt.Errorf("failed to create message: %w", err)
	}
	return m.ID, nil
}

// ListByTicket returns the thread oldest first. The id tie-break keeps the
// order stable when two messages share a timestamp.
func (r *PostgresMessageRepository) ListByTicket(ctx context.Context, ticketID int64) ([]models.Message, error) {
	query := `
		SELECT id, ticket_id, sender_type, message_text, is_ticket_shared, created_at
		FROM messages
		WHERE ticket_id = $1
		ORDER BY created_at ASC, id ASC`
	rows, err := exec(ctx, r.db).QueryContext(ctx, query, ticketID)
	if err != nil {
		slog.Error("failed to list messages", "method", "ListByTicket", "ticket_id", ticketID, "error", err)
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.TicketID, &m.Sender, &m.Text, &m.Shared, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, nil
}

func (r *PostgresMessageRepository) HasShareConfirmation(ctx context.Context, ticketID int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM messages WHERE ticket_id = $1 AND sender_type = $2 AND is_ticket_shared = TRUE)`
	var exists bool
	if err := exec(ctx, r.db).QueryRowContext(ctx, query, ticketID, models.RoleSeller).Scan(&exists); err != nil {
		slog.Error("failed to check share confirmation", "method", "HasShareConfirmation", "ticket_id", ticketID, "error", err)
		return false, fmt.Errorf("failed to check share confirmation: %w", err)
	}
	return exists, nil
}

func (r *PostgresMessageRepository) HasControlMessage(ctx context.Context, ticketID int64, sender models.SenderRole, text string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM messages WHERE ticket_id = $1 AND sender_type = $2 AND message_text = $3)`
	var exists bool
	if err := exec(ctx, r.db).QueryRowContext(ctx, query, ticketID, sender, text).Scan(&exists); err != nil {
		slog.Error("failed to check control message", "method", "HasControlMessage", "ticket_id", ticketID, "error", err)
		return false, fmt.Errorf("failed to check control message: %w", err)
	}
	return exists, nil
}
