package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/railswap/railswap/internal/infrastructure/observability"
	"github.com/railswap/railswap/internal/infrastructure/redis"
	"github.com/railswap/railswap/internal/models"
	"github.com/railswap/railswap/internal/repository"
	pkgerrors "github.com/railswap/railswap/pkg/errors"
	"github.com/shopspring/decimal"

	stderrors "errors"
)

var pnrPattern = regexp.MustCompile(`^\d{10}$`)

// CreateTicketParams carries the upload form fields. TravelDate is the raw
// YYYY-MM-DD string; parsing is part of validation.
type CreateTicketParams struct {
	Title         string
	Price         decimal.Decimal
	Description   string
	ArtifactRef   string
	PNRNumber     string
	FromLocation  string
	ToLocation    string
	TravelDate    string
	TrainNumber   string
	PassengerName string
	SellerID      int64
}

type RegistryService interface {
	Create(ctx context.Context, params CreateTicketParams) (*models.Ticket, error)
	List(ctx context.Context, filter repository.ListFilter) ([]models.Ticket, error)
	Get(ctx context.Context, id int64) (*models.Ticket, error)
	// Sweep marks past-dated tickets expired. It runs once per inbound
	// request cycle, never on a timer; re-running after a failure is safe
	// because the predicate still matches whatever was rolled back.
	Sweep(ctx context.Context, today time.Time) (int64, error)
}

type registryService struct {
	ticketRepo  repository.TicketRepository
	soldRepo    repository.SoldTicketRepository
	redisClient redis.RedisClient
}

func NewRegistryService(
	ticketRepo repository.TicketRepository,
	soldRepo repository.SoldTicketRepository,
	redisClient redis.RedisClient,
) *registryService {
	return &registryService{
		ticketRepo:  ticketRepo,
		soldRepo:    soldRepo,
		redisClient: redisClient,
	}
}

func (s *registryService) Create(ctx context.Context, params CreateTicketParams) (*models.Ticket, error) {
	if strings.TrimSpace(params.Title) == "" {
		return nil, pkgerrors.MissingField("title")
	}
	if !params.Price.IsPositive() {
		return nil, pkgerrors.ErrInvalidPrice
	}
	if strings.TrimSpace(params.FromLocation) == "" {
		return nil, pkgerrors.MissingField("from_location")
	}
	if strings.TrimSpace(params.ToLocation) == "" {
		return nil, pkgerrors.MissingField("to_location")
	}
	if strings.TrimSpace(params.TrainNumber) == "" {
		return nil, pkgerrors.MissingField("train_number")
	}
	if strings.TrimSpace(params.PassengerName) == "" {
		return nil, pkgerrors.MissingField("passenger_name")
	}
	if strings.TrimSpace(params.PNRNumber) == "" {
		return nil, pkgerrors.MissingField("pnr_number")
	}
	if !pnrPattern.MatchString(params.PNRNumber) {
		return nil, pkgerrors.ErrInvalidPNR
	}
	if strings.TrimSpace(params.TravelDate) == "" {
		return nil, pkgerrors.MissingField("travel_date")
	}
	travelDate, err := time.Parse("2006-01-02", params.TravelDate)
	if err != nil {
		return nil, pkgerrors.ErrInvalidDate
	}

	// Pre-emptive double-sale block: a sold PNR can never be listed again.
	sold, err := s.soldRepo.ExistsByPNR(ctx, params.PNRNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to check sold pnr: %w", err)
	}
	if sold {
		slog.Warn("attempt to list already sold pnr", "pnr_number", params.PNRNumber)
		return nil, pkgerrors.ErrPNRAlreadySold
	}

	ticket := &models.Ticket{
		Title:         params.Title,
		Price:         params.Price,
		Description:   params.Description,
		ArtifactRef:   params.ArtifactRef,
		PNRNumber:     params.PNRNumber,
		FromLocation:  params.FromLocation,
		ToLocation:    params.ToLocation,
		TravelDate:    travelDate,
		TrainNumber:   params.TrainNumber,
		PassengerName: params.PassengerName,
		SellerID:      params.SellerID,
	}
	if _, err := s.ticketRepo.Create(ctx, ticket); err != nil {
		return nil, err
	}

	slog.Info("ticket listed", "ticket_id", ticket.ID, "pnr_number", ticket.PNRNumber, "price", ticket.Price)
	return ticket, nil
}

func (s *registryService) List(ctx context.Context, filter repository.ListFilter) ([]models.Ticket, error) {
	return s.ticketRepo.List(ctx, filter)
}

func (s *registryService) Get(ctx context.Context, id int64) (*models.Ticket, error) {
	ticketKey := fmt.Sprintf("ticket:%d", id)
	if cached, err := s.redisClient.Get(ctx, ticketKey); err == nil {
		var ticket models.Ticket
		if err := json.Unmarshal([]byte(cached), &ticket); err != nil {
			slog.Error("failed to unmarshal cached ticket", "ticket_id", id, "error", err)
		} else {
			return &ticket, nil
		}
	} else if !stderrors.Is(err, redis.ErrKeyNotFound) {
		slog.Error("failed to get ticket from Redis", "ticket_id", id, "error", err)
	}

	ticket, err := s.ticketRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if ticketBytes, err := json.Marshal(ticket); err == nil {
		if err := s.redisClient.Set(ctx, ticketKey, string(ticketBytes), 5*time.Minute); err != nil {
			slog.Error("failed to cache ticket", "ticket_id", id, "error", err)
		}
	}
	return ticket, nil
}

func (s *registryService) Sweep(ctx context.Context, today time.Time) (int64, error) {
	count, err := s.ticketRepo.ExpireBefore(ctx, today)
	if err != nil {
		slog.Error("expiry sweep failed", "error", err)
		return 0, err
	}
	if count > 0 {
		observability.TicketsExpired.Add(float64(count))
		slog.Info("marked tickets as expired", "count", count)
	}
	return count, nil
}
