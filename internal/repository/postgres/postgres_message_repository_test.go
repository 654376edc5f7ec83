package repository_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/railswap/railswap/internal/models"
	postgres "github.com/railswap/railswap/internal/repository/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageRepositoryCreate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	r := postgres.NewPostgresMessageRepository(db)
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	msg := &models.Message{
		TicketID: 7,
		Sender:   models.RoleSeller,
		Text:     "details attached",
		Shared:   true,
	}

	mock.ExpectQuery(regexp.QuoteMeta(`
		INSERT INTO messages (ticket_id, sender_type, message_text, is_ticket_shared)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`)).
		WithArgs(msg.TicketID, msg.Sender, msg.Text, msg.Shared).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(11, now))

	id, err := r.Create(context.Background(), msg)
	require.NoError(t, err)
	assert.Equal(t, int64(11), id)
	assert.Equal(t, now, msg.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMessageRepositoryListByTicket(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	r := postgres.NewPostgresMessageRepository(db)
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT .+ FROM messages\\s+WHERE ticket_id .+ ORDER BY created_at ASC, id ASC").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "ticket_id", "sender_type", "message_text", "is_ticket_shared", "created_at"}).
			AddRow(1, 7, "buyer", "Is the seat confirmed?", false, now).
			AddRow(2, 7, "seller", "details attached", true, now.Add(time.Minute)))

	msgs, err := r.ListByTicket(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, models.RoleBuyer, msgs[0].Sender)
	assert.True(t, msgs[1].Shared)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMessageRepositoryHasShareConfirmation(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	r := postgres.NewPostgresMessageRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS (SELECT 1 FROM messages WHERE ticket_id = $1 AND sender_type = $2 AND is_ticket_shared = TRUE)`)).
		WithArgs(int64(7), models.RoleSeller).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	shared, err := r.HasShareConfirmation(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, shared)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMessageRepositoryHasControlMessage(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	r := postgres.NewPostgresMessageRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS (SELECT 1 FROM messages WHERE ticket_id = $1 AND sender_type = $2 AND message_text = $3)`)).
		WithArgs(int64(7), models.RoleSeller, models.ReleaseConfirmationText).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	confirmed, err := r.HasControlMessage(context.Background(), 7, models.RoleSeller, models.ReleaseConfirmationText)
	require.NoError(t, err)
	assert.False(t, confirmed)
	assert.NoError(t, mock.ExpectationsWereMet())
}
