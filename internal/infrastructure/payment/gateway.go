package payment

import "context"

const (
	SessionOpen     = "open"
	SessionComplete = "complete"
	SessionExpired  = "expired"

	PaymentSucceeded = "succeeded"
)

// CreateSessionRequest describes a hosted checkout session. Amount is in the
// minor currency unit (paise for INR).
type CreateSessionRequest struct {
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Description string            `json:"description"`
	Metadata    map[string]string `json:"metadata"`
	SuccessURL  string            `json:"success_url"`
	CancelURL   string            `json:"cancel_url"`
}

// Session is the gateway's checkout session. Metadata is the only field the
// marketplace trusts to recover the ticket behind a callback.
type Session struct {
	ID        string            `json:"id"`
	Status    string            `json:"status"`
	URL       string            `json:"url"`
	PaymentID string            `json:"payment_id"`
	Metadata  map[string]string `json:"metadata"`
}

type Payment struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Gateway is the external payment processor boundary. The marketplace treats
// it as opaque: sessions are created before redirecting the buyer and
// retrieved when the gateway calls back.
type Gateway interface {
	CreateSession(ctx context.Context, req *CreateSessionRequest) (*Session, error)
	RetrieveSession(ctx context.Context, id string) (*Session, error)
	RetrievePayment(ctx context.Context, id string) (*Payment, error)
}
