package engine

import (
	"time"

	"github.com/abgdnv/orderbot/internal/catalog"
	"github.com/shopspring/decimal"
)

// Session is the per-user conversational state.
type Session struct {
	UserID         string           `json:"user_id"`
	State          State            `json:"state"`
	Cart           Cart             `json:"cart"`
	PendingProduct *catalog.Product `json:"pending_product,omitempty"`
	ShippingInfo   string           `json:"shipping_info,omitempty"`
	PaymentMethod  string           `json:"payment_method,omitempty"`
	// CheckoutID is the order ID reserved when the summary was shown. Confirming
	// the same summary twice proposes the same order.
	CheckoutID     string           `json:"checkout_id,omitempty"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// NewSession returns the session a user starts with: MENU and an empty cart.
func NewSession(userID string) *Session {
	return &Session{
		UserID: userID,
		State:  StateMenu,
		Cart:   Cart{Total: decimal.Zero},
	}
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() *Session {
	out := *s
	out.Cart = s.Cart.Clone()
	if s.PendingProduct != nil {
		p := *s.PendingProduct
		out.PendingProduct = &p
	}
	return &out
}

// ResetToMenu moves the session back to MENU and drops the pending product.
// The cart and collected checkout details are kept.
func (s *Session) ResetToMenu() {
	s.State = StateMenu
	s.PendingProduct = nil
}
