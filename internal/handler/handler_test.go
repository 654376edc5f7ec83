package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/railswap/railswap/internal/infrastructure/auth"
	"github.com/railswap/railswap/internal/infrastructure/payment"
	"github.com/railswap/railswap/internal/models"
	"github.com/railswap/railswap/internal/repository"
	service "github.com/railswap/railswap/internal/services"
	pkgerrors "github.com/railswap/railswap/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Stub services returning canned results; the handler tests exercise routing,
// role gates and the error-to-status mapping, not business logic.

type stubRegistry struct {
	ticket *models.Ticket
	err    error
}

func (s *stubRegistry) Create(ctx context.Context, params service.CreateTicketParams) (*models.Ticket, error) {
	return s.ticket, s.err
}
func (s *stubRegistry) List(ctx context.Context, filter repository.ListFilter) ([]models.Ticket, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.ticket == nil {
		return nil, nil
	}
	return []models.Ticket{*s.ticket}, nil
}
func (s *stubRegistry) Get(ctx context.Context, id int64) (*models.Ticket, error) {
	return s.ticket, s.err
}
func (s *stubRegistry) Sweep(ctx context.Context, today time.Time) (int64, error) { return 0, nil }

type stubNegotiation struct {
	msg *models.Message
	err error
}

func (s *stubNegotiation) Post(ctx context.Context, ticketID int64, sender models.SenderRole, text string, shared bool) (*models.Message, error) {
	return s.msg, s.err
}
func (s *stubNegotiation) History(ctx context.Context, ticketID int64) ([]models.Message, error) {
	if s.err != nil {
		return nil, s.err
	}
	return nil, nil
}
func (s *stubNegotiation) RequestRelease(ctx context.Context, ticketID int64) (*models.Message, error) {
	return s.msg, s.err
}
func (s *stubNegotiation) ConfirmRelease(ctx context.Context, ticketID int64) (*models.Message, error) {
	return s.msg, s.err
}

type stubSettlement struct {
	session *payment.Session
	sold    *models.SoldTicket
	err     error
}

func (s *stubSettlement) InitiatePayment(ctx context.Context, ticketID int64, buyerEmail string) (*payment.Session, error) {
	return s.session, s.err
}
func (s *stubSettlement) Finalize(ctx context.Context, checkoutSessionID string) (*models.SoldTicket, error) {
	return s.sold, s.err
}
func (s *stubSettlement) CancelPayment(ctx context.Context, ticketID int64) error { return s.err }
func (s *stubSettlement) GetSoldTicket(ctx context.Context, id int64) (*models.SoldTicket, error) {
	return s.sold, s.err
}

type stubLedger struct {
	wallet *models.SellerWallet
	err    error
}

func (s *stubLedger) GetWallet(ctx context.Context, sellerID int64) (*models.SellerWallet, error) {
	return s.wallet, s.err
}
func (s *stubLedger) GetTransactions(ctx context.Context, sellerID int64) ([]models.WalletTransaction, error) {
	return nil, s.err
}

type stubArtifacts struct{}

func (stubArtifacts) Save(pnr, filename string, r io.Reader) (string, error) { return pnr + ".pdf", nil }
func (stubArtifacts) Open(ref string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("pdf bytes")), nil
}

func newTestRouter(reg *stubRegistry, neg *stubNegotiation, set *stubSettlement, led *stubLedger) *mux.Router {
	h := NewHandler(reg, neg, set, led, stubArtifacts{})
	r := mux.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func asRole(req *http.Request, role models.SenderRole) *http.Request {
	return req.WithContext(auth.WithActor(req.Context(), auth.Actor{Role: role}))
}

func TestErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", pkgerrors.ErrInvalidPNR, http.StatusBadRequest},
		{"not found", pkgerrors.ErrTicketNotFound, http.StatusNotFound},
		{"conflict", pkgerrors.ErrPNRAlreadySold, http.StatusConflict},
		{"precondition", pkgerrors.ErrTicketNotShared, http.StatusPreconditionFailed},
		{"finalization", pkgerrors.ErrFinalization, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := newTestRouter(&stubRegistry{err: tc.err}, &stubNegotiation{}, &stubSettlement{}, &stubLedger{})

			req := httptest.NewRequest(http.MethodGet, "/tickets/1", nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tc.status, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestListTicketsReturnsEmptyArray(t *testing.T) {
	router := newTestRouter(&stubRegistry{}, &stubNegotiation{}, &stubSettlement{}, &stubLedger{})

	req := httptest.NewRequest(http.MethodGet, "/tickets", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestReleaseRoleGates(t *testing.T) {
	msg := &models.Message{ID: 1, TicketID: 1, Text: models.ReleaseRequestText}
	router := newTestRouter(&stubRegistry{}, &stubNegotiation{msg: msg}, &stubSettlement{}, &stubLedger{})

	t.Run("seller cannot request a release", func(t *testing.T) {
		req := asRole(httptest.NewRequest(http.MethodPost, "/tickets/1/release-request", nil), models.RoleSeller)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("buyer requests a release", func(t *testing.T) {
		req := asRole(httptest.NewRequest(http.MethodPost, "/tickets/1/release-request", nil), models.RoleBuyer)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("buyer cannot confirm a release", func(t *testing.T) {
		req := asRole(httptest.NewRequest(http.MethodPost, "/tickets/1/release", nil), models.RoleBuyer)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("seller confirms a release", func(t *testing.T) {
		req := asRole(httptest.NewRequest(http.MethodPost, "/tickets/1/release", nil), models.RoleSeller)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusCreated, rec.Code)
	})
}

func TestUploadTicket(t *testing.T) {
	ticket := &models.Ticket{ID: 7, PNRNumber: "1234567890", Price: decimal.RequireFromString("500.00")}
	router := newTestRouter(&stubRegistry{ticket: ticket}, &stubNegotiation{}, &stubSettlement{}, &stubLedger{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for field, value := range map[string]string{
		"title":          "Chennai Express",
		"price":          "500.00",
		"pnr_number":     "1234567890",
		"from_location":  "Chennai",
		"to_location":    "Bangalore",
		"travel_date":    "2026-12-20",
		"train_number":   "12658",
		"passenger_name": "A Kumar",
	} {
		require.NoError(t, mw.WriteField(field, value))
	}
	fw, err := mw.CreateFormFile("file", "ticket.pdf")
	require.NoError(t, err)
	_, err = fw.Write([]byte("pdf bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/tickets", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var got models.Ticket
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, int64(7), got.ID)
}

func TestUploadTicketRejectsBadExtension(t *testing.T) {
	router := newTestRouter(&stubRegistry{}, &stubNegotiation{}, &stubSettlement{}, &stubLedger{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("price", "500.00"))
	fw, err := mw.CreateFormFile("file", "ticket.exe")
	require.NoError(t, err)
	_, err = fw.Write([]byte("bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/tickets", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPaymentSuccess(t *testing.T) {
	sold := &models.SoldTicket{ID: 3, PNRNumber: "1234567890"}
	router := newTestRouter(&stubRegistry{}, &stubNegotiation{}, &stubSettlement{sold: sold}, &stubLedger{})

	t.Run("missing session id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/payment/success", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("settles and links the download", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/payment/success?session_id=cs_123", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var body map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.JSONEq(t, `"/sold/3/download"`, string(body["download_url"]))
	})

	t.Run("replayed callback maps to conflict", func(t *testing.T) {
		conflicted := newTestRouter(&stubRegistry{}, &stubNegotiation{}, &stubSettlement{err: pkgerrors.ErrPNRAlreadySold}, &stubLedger{})
		req := httptest.NewRequest(http.MethodGet, "/payment/success?session_id=cs_123", nil)
		rec := httptest.NewRecorder()
		conflicted.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestDownloadSoldTicket(t *testing.T) {
	sold := &models.SoldTicket{ID: 3, FromTicketID: 7, FromLocation: "Chennai", ToLocation: "Bangalore"}
	ticket := &models.Ticket{ID: 7, ArtifactRef: "1234567890.pdf"}
	router := newTestRouter(&stubRegistry{ticket: ticket}, &stubNegotiation{}, &stubSettlement{sold: sold}, &stubLedger{})

	req := httptest.NewRequest(http.MethodGet, "/sold/3/download", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pdf bytes", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "Chennai_to_Bangalore")
}

func TestGetWallet(t *testing.T) {
	wallet := &models.SellerWallet{ID: 5, SellerID: 1, Balance: decimal.RequireFromString("500.00"), Currency: "inr"}
	router := newTestRouter(&stubRegistry{}, &stubNegotiation{}, &stubSettlement{}, &stubLedger{wallet: wallet})

	req := httptest.NewRequest(http.MethodGet, "/wallet", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got models.SellerWallet
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.True(t, got.Balance.Equal(decimal.RequireFromString("500.00")))
}

func TestSearchCities(t *testing.T) {
	router := newTestRouter(&stubRegistry{}, &stubNegotiation{}, &stubSettlement{}, &stubLedger{})

	req := httptest.NewRequest(http.MethodGet, "/cities?q=chen", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, []string{"Chennai"}, got)
}
