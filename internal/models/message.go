package models

import "time"

type SenderRole string

const (
	RoleBuyer  SenderRole = "buyer"
	RoleSeller SenderRole = "seller"
	RoleSystem SenderRole = "system"
)

// Control message texts recognized by the settlement engine. Negotiation state
// is derived by scanning a ticket's thread for these, not stored separately.
const (
	ReleaseRequestText      = "[SYSTEM] Buyer has requested the ticket to be released."
	ReleaseConfirmationText = "[SYSTEM] Seller has confirmed the ticket transfer."
	purchasePrefix          = "[SYSTEM] Ticket has been successfully purchased by "
)

// PurchaseConfirmationText builds the system message recorded when a sale
// settles.
func PurchaseConfirmationText(buyerEmail string) string {
	return purchasePrefix + buyerEmail
}

// Message is one entry in a ticket's negotiation thread, immutable once
// created and ordered by creation time within the ticket.
type Message struct {
	ID       int64      `json:"id"`
	TicketID int64      `json:"ticket_id"`
	Sender   SenderRole `json:"sender_type"`
	Text     string     `json:"message_text"`
	// Shared marks the authoritative seller signal that the ticket details
	// (PNR included) have been disclosed to the buyer.
	Shared    bool      `json:"is_ticket_shared"`
	CreatedAt time.Time `json:"created_at"`
}
