package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/railswap/railswap/internal/infrastructure/payment"
	"github.com/railswap/railswap/internal/infrastructure/redis"
	"github.com/railswap/railswap/internal/models"
	"github.com/railswap/railswap/internal/repository"
	pkgerrors "github.com/railswap/railswap/pkg/errors"
	"github.com/shopspring/decimal"
)

// In-memory fakes for the repository and collaborator interfaces. No
// generated mocks; plain fakes keep the tests self-contained.

type fakeTicketRepo struct {
	mu       sync.Mutex
	tickets  map[int64]*models.Ticket
	nextID   int64
	getCalls int
	clock    time.Time
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: map[int64]*models.Ticket{}, clock: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (r *fakeTicketRepo) tick() time.Time {
	r.clock = r.clock.Add(time.Second)
	return r.clock
}

func (r *fakeTicketRepo) Create(ctx context.Context, t *models.Ticket) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	t.ID = r.nextID
	t.CreatedAt = r.tick()
	cp := *t
	r.tickets[t.ID] = &cp
	return t.ID, nil
}

func (r *fakeTicketRepo) GetByID(ctx context.Context, id int64) (*models.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.getCalls++
	t, ok := r.tickets[id]
	if !ok {
		return nil, pkgerrors.ErrTicketNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *fakeTicketRepo) List(ctx context.Context, filter repository.ListFilter) ([]models.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Ticket
	for _, t := range r.tickets {
		if t.IsExpired {
			continue
		}
		if !strings.Contains(strings.ToLower(t.FromLocation), strings.ToLower(filter.From)) {
			continue
		}
		if !strings.Contains(strings.ToLower(t.ToLocation), strings.ToLower(filter.To)) {
			continue
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeTicketRepo) ExpireBefore(ctx context.Context, today time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, t := range r.tickets {
		if t.TravelDate.Before(today) && !t.IsExpired {
			t.IsExpired = true
			count++
		}
	}
	return count, nil
}

func (r *fakeTicketRepo) SetPaymentPending(ctx context.Context, id int64, buyerEmail, checkoutSessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[id]
	if !ok {
		return pkgerrors.ErrTicketNotFound
	}
	t.BuyerEmail = buyerEmail
	t.CheckoutSessionID = checkoutSessionID
	t.PaymentStatus = models.PaymentPending
	return nil
}

func (r *fakeTicketRepo) SetPaymentStatus(ctx context.Context, id int64, status models.PaymentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[id]
	if !ok {
		return pkgerrors.ErrTicketNotFound
	}
	t.PaymentStatus = status
	return nil
}

type fakeSoldTicketRepo struct {
	mu     sync.Mutex
	byPNR  map[string]*models.SoldTicket
	byID   map[int64]*models.SoldTicket
	nextID int64
}

func newFakeSoldTicketRepo() *fakeSoldTicketRepo {
	return &fakeSoldTicketRepo{byPNR: map[string]*models.SoldTicket{}, byID: map[int64]*models.SoldTicket{}}
}

func (r *fakeSoldTicketRepo) Create(ctx context.Context, st *models.SoldTicket) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byPNR[st.PNRNumber]; ok {
		return 0, pkgerrors.ErrPNRAlreadySold
	}
	r.nextID++
	st.ID = r.nextID
	st.SoldAt = time.Now().UTC()
	cp := *st
	r.byPNR[st.PNRNumber] = &cp
	r.byID[st.ID] = &cp
	return st.ID, nil
}

func (r *fakeSoldTicketRepo) GetByID(ctx context.Context, id int64) (*models.SoldTicket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.byID[id]
	if !ok {
		return nil, pkgerrors.ErrSoldTicketNotFound
	}
	cp := *st
	return &cp, nil
}

func (r *fakeSoldTicketRepo) ExistsByPNR(ctx context.Context, pnr string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.byPNR[pnr]
	return ok, nil
}

type fakeWalletRepo struct {
	mu      sync.Mutex
	wallets map[int64]*models.SellerWallet
	nextID  int64
}

func newFakeWalletRepo() *fakeWalletRepo {
	return &fakeWalletRepo{wallets: map[int64]*models.SellerWallet{}}
}

func (r *fakeWalletRepo) GetBySellerID(ctx context.Context, sellerID int64) (*models.SellerWallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, w := range r.wallets {
		if w.SellerID == sellerID {
			cp := *w
			return &cp, nil
		}
	}
	return nil, pkgerrors.ErrWalletNotFound
}

func (r *fakeWalletRepo) Create(ctx context.Context, w *models.SellerWallet) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	w.ID = r.nextID
	cp := *w
	r.wallets[w.ID] = &cp
	return w.ID, nil
}

func (r *fakeWalletRepo) Credit(ctx context.Context, walletID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[walletID]
	if !ok {
		return decimal.Zero, pkgerrors.ErrWalletNotFound
	}
	w.Balance = w.Balance.Add(amount)
	return w.Balance, nil
}

type fakeWalletTxRepo struct {
	mu     sync.Mutex
	txs    []models.WalletTransaction
	nextID int64
}

func (r *fakeWalletTxRepo) Create(ctx context.Context, tx *models.WalletTransaction) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	tx.ID = r.nextID
	tx.CreatedAt = time.Now().UTC()
	r.txs = append(r.txs, *tx)
	return tx.ID, nil
}

func (r *fakeWalletTxRepo) ListByWallet(ctx context.Context, walletID int64) ([]models.WalletTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.WalletTransaction
	for _, tx := range r.txs {
		if tx.WalletID == walletID {
			out = append(out, tx)
		}
	}
	return out, nil
}

type fakeMessageRepo struct {
	mu       sync.Mutex
	messages []models.Message
	nextID   int64
	clock    time.Time
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{clock: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (r *fakeMessageRepo) Create(ctx context.Context, m *models.Message) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	r.clock = r.clock.Add(time.Second)
	m.ID = r.nextID
	m.CreatedAt = r.clock
	r.messages = append(r.messages, *m)
	return m.ID, nil
}

func (r *fakeMessageRepo) ListByTicket(ctx context.Context, ticketID int64) ([]models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Message
	for _, m := range r.messages {
		if m.TicketID == ticketID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeMessageRepo) HasShareConfirmation(ctx context.Context, ticketID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages {
		if m.TicketID == ticketID && m.Sender == models.RoleSeller && m.Shared {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeMessageRepo) HasControlMessage(ctx context.Context, ticketID int64, sender models.SenderRole, text string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages {
		if m.TicketID == ticketID && m.Sender == sender && m.Text == text {
			return true, nil
		}
	}
	return false, nil
}

// fakeTransactor runs the function directly. The settlement re-checks the
// sold PNR as its first transactional step, so conflict paths bail out before
// any write even without rollback support.
type fakeTransactor struct{}

func (fakeTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeGateway struct {
	mu       sync.Mutex
	sessions map[string]*payment.Session
	requests []*payment.CreateSessionRequest
	nextID   int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{sessions: map[string]*payment.Session{}}
}

func (g *fakeGateway) CreateSession(ctx context.Context, req *payment.CreateSessionRequest) (*payment.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextID++
	g.requests = append(g.requests, req)
	s := &payment.Session{
		ID:        fmt.Sprintf("cs_%d", g.nextID),
		Status:    payment.SessionOpen,
		URL:       fmt.Sprintf("https://checkout.example/%d", g.nextID),
		PaymentID: fmt.Sprintf("pi_%d", g.nextID),
		Metadata:  req.Metadata,
	}
	g.sessions[s.ID] = s
	return s, nil
}

func (g *fakeGateway) RetrieveSession(ctx context.Context, id string) (*payment.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.sessions[id]
	if !ok {
		return nil, pkgerrors.ErrSessionNotFound
	}
	s.Status = payment.SessionComplete
	return s, nil
}

func (g *fakeGateway) RetrievePayment(ctx context.Context, id string) (*payment.Payment, error) {
	return &payment.Payment{ID: id, Status: payment.PaymentSucceeded}, nil
}

type fakeRedis struct {
	mu   sync.Mutex
	data map[string]string
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}}
}

func (r *fakeRedis) Get(ctx context.Context, key string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.data[key]
	if !ok {
		return "", redis.ErrKeyNotFound
	}
	return v, nil
}

func (r *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := value.(string); ok {
		r.data[key] = s
	}
	return nil
}

func (r *fakeRedis) Del(ctx context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.data, key)
	return nil
}

func (r *fakeRedis) Close() error { return nil }

type fakeKafkaProducer struct {
	mu    sync.Mutex
	sends []string
}

func (p *fakeKafkaProducer) Send(ctx context.Context, topic string, key int64, value []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sends = append(p.sends, topic)
	return nil
}

func (p *fakeKafkaProducer) Close() error { return nil }

func (p *fakeKafkaProducer) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sends)
}
