package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/railswap/railswap/internal/cities"
	"github.com/railswap/railswap/internal/infrastructure/artifact"
	"github.com/railswap/railswap/internal/infrastructure/auth"
	"github.com/railswap/railswap/internal/models"
	"github.com/railswap/railswap/internal/repository"
	service "github.com/railswap/railswap/internal/services"
	pkgerrors "github.com/railswap/railswap/pkg/errors"
	"github.com/shopspring/decimal"
)

// maxUploadBytes caps ticket artifact uploads at 16 MiB.
const maxUploadBytes = 16 << 20

type Handler struct {
	registry    service.RegistryService
	negotiation service.NegotiationService
	settlement  service.SettlementService
	ledger      service.LedgerService
	artifacts   artifact.Store
}

func NewHandler(
	registry service.RegistryService,
	negotiation service.NegotiationService,
	settlement service.SettlementService,
	ledger service.LedgerService,
	artifacts artifact.Store,
) *Handler {
	return &Handler{
		registry:    registry,
		negotiation: negotiation,
		settlement:  settlement,
		ledger:      ledger,
		artifacts:   artifacts,
	}
}

func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/tickets", h.ListTickets).Methods("GET")
	r.HandleFunc("/tickets", h.UploadTicket).Methods("POST")
	r.HandleFunc("/tickets/{id:[0-9]+}", h.GetTicket).Methods("GET")
	r.HandleFunc("/tickets/{id:[0-9]+}/messages", h.GetHistory).Methods("GET")
	r.HandleFunc("/tickets/{id:[0-9]+}/messages", h.PostMessage).Methods("POST")
	r.HandleFunc("/tickets/{id:[0-9]+}/release-request", h.RequestRelease).Methods("POST")
	r.HandleFunc("/tickets/{id:[0-9]+}/release", h.ConfirmRelease).Methods("POST")
	r.HandleFunc("/tickets/{id:[0-9]+}/payment", h.InitiatePayment).Methods("POST")
	r.HandleFunc("/payment/success", h.PaymentSuccess).Methods("GET")
	r.HandleFunc("/payment/cancel/{id:[0-9]+}", h.PaymentCancel).Methods("GET")
	r.HandleFunc("/sold/{id:[0-9]+}/download", h.DownloadSoldTicket).Methods("GET")
	r.HandleFunc("/wallet", h.GetWallet).Methods("GET")
	r.HandleFunc("/wallet/transactions", h.GetWalletTransactions).Methods("GET")
	r.HandleFunc("/cities", h.SearchCities).Methods("GET")
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Error: err.Error()})
}

// writeDomainError maps the error taxonomy onto HTTP statuses.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, pkgerrors.ErrValidation):
		h.writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, pkgerrors.ErrNotFound):
		h.writeError(w, http.StatusNotFound, err)
	case errors.Is(err, pkgerrors.ErrConflict):
		h.writeError(w, http.StatusConflict, err)
	case errors.Is(err, pkgerrors.ErrPreconditionFailed):
		h.writeError(w, http.StatusPreconditionFailed, err)
	default:
		h.writeError(w, http.StatusInternalServerError, err)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
}

func (h *Handler) ListTickets(w http.ResponseWriter, r *http.Request) {
	filter := repository.ListFilter{
		From: r.URL.Query().Get("from"),
		To:   r.URL.Query().Get("to"),
	}
	tickets, err := h.registry.List(r.Context(), filter)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if tickets == nil {
		tickets = []models.Ticket{}
	}
	h.writeJSON(w, http.StatusOK, tickets)
}

func (h *Handler) UploadTicket(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid upload: %w", err))
		return
	}

	price, err := decimal.NewFromString(r.FormValue("price"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Errorf("%w: price must be a valid number", pkgerrors.ErrValidation))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, pkgerrors.MissingField("file"))
		return
	}
	defer file.Close()

	pnr := r.FormValue("pnr_number")
	ref, err := artifact.Ref(pnr, header.Filename)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	actor := auth.ActorFrom(r.Context())
	ticket, err := h.registry.Create(r.Context(), service.CreateTicketParams{
		Title:         r.FormValue("title"),
		Price:         price,
		Description:   r.FormValue("description"),
		ArtifactRef:   ref,
		PNRNumber:     pnr,
		FromLocation:  r.FormValue("from_location"),
		ToLocation:    r.FormValue("to_location"),
		TravelDate:    r.FormValue("travel_date"),
		TrainNumber:   r.FormValue("train_number"),
		PassengerName: r.FormValue("passenger_name"),
		SellerID:      actor.ID,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	// The listing row is the source of truth; persist the artifact after it.
	if _, err := h.artifacts.Save(pnr, header.Filename, file); err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, ticket)
}

func (h *Handler) GetTicket(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	ticket, err := h.registry.Get(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, ticket)
}

func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	messages, err := h.negotiation.History(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if messages == nil {
		messages = []models.Message{}
	}
	h.writeJSON(w, http.StatusOK, messages)
}

func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	var req struct {
		Message     string `json:"message"`
		ShareTicket bool   `json:"share_ticket"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	actor := auth.ActorFrom(r.Context())
	msg, err := h.negotiation.Post(r.Context(), id, actor.Role, req.Message, req.ShareTicket)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, msg)
}

func (h *Handler) RequestRelease(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	if actor := auth.ActorFrom(r.Context()); actor.Role != models.RoleBuyer {
		h.writeError(w, http.StatusForbidden, errors.New("only the buyer can request a release"))
		return
	}
	msg, err := h.negotiation.RequestRelease(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, msg)
}

func (h *Handler) ConfirmRelease(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	if actor := auth.ActorFrom(r.Context()); actor.Role != models.RoleSeller {
		h.writeError(w, http.StatusForbidden, errors.New("only the seller can confirm a release"))
		return
	}
	msg, err := h.negotiation.ConfirmRelease(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, msg)
}

func (h *Handler) InitiatePayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	session, err := h.settlement.InitiatePayment(r.Context(), id, req.Email)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]string{
		"session_id":   session.ID,
		"checkout_url": session.URL,
	})
}

func (h *Handler) PaymentSuccess(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		h.writeError(w, http.StatusBadRequest, pkgerrors.MissingField("session_id"))
		return
	}

	soldTicket, err := h.settlement.Finalize(r.Context(), sessionID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"sold_ticket":  soldTicket,
		"download_url": fmt.Sprintf("/sold/%d/download", soldTicket.ID),
	})
}

func (h *Handler) PaymentCancel(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.settlement.CancelPayment(r.Context(), id); err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": string(models.PaymentCancelled)})
}

func (h *Handler) DownloadSoldTicket(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	soldTicket, err := h.settlement.GetSoldTicket(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	ticket, err := h.registry.Get(r.Context(), soldTicket.FromTicketID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	rc, err := h.artifacts.Open(ticket.ArtifactRef)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=Ticket_%s_to_%s", soldTicket.FromLocation, soldTicket.ToLocation))
	w.Header().Set("Content-Type", "application/octet-stream")
	io.Copy(w, rc)
}

func (h *Handler) GetWallet(w http.ResponseWriter, r *http.Request) {
	actor := auth.ActorFrom(r.Context())
	wallet, err := h.ledger.GetWallet(r.Context(), actor.ID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, wallet)
}

func (h *Handler) GetWalletTransactions(w http.ResponseWriter, r *http.Request) {
	actor := auth.ActorFrom(r.Context())
	txs, err := h.ledger.GetTransactions(r.Context(), actor.ID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if txs == nil {
		txs = []models.WalletTransaction{}
	}
	h.writeJSON(w, http.StatusOK, txs)
}

func (h *Handler) SearchCities(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, cities.Search(r.URL.Query().Get("q")))
}
