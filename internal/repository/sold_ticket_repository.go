package repository

import (
	"context"

	"github.com/railswap/railswap/internal/models"
)

type SoldTicketRepository interface {
	// Create inserts the sold-ticket record. It returns ErrPNRAlreadySold when
	// the PNR unique constraint rejects the insert; that constraint is the
	// authoritative double-sale guard.
	Create(ctx context.Context, st *models.SoldTicket) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.SoldTicket, error)
	ExistsByPNR(ctx context.Context, pnr string) (bool, error)
}
