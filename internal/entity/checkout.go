package domain

import "time"

type SessionStatus string

const (
	SessionPending SessionStatus = "pending"
	SessionPaid    SessionStatus = "paid"
	SessionFailed  SessionStatus = "failed"
	SessionExpired SessionStatus = "expired"
)

type CartItem struct {
	SKU              string
	Quantity         int64
	UnitPriceMinor   int64 // fetched fresh from catalog, never trusted from the client
	DutyFreeEligible bool
}

type BillingAddress struct {
	Street     string
	City       string
	PostalCode string
	Country    string
}

// TaxContext is the duty-free routing captured at session creation. It is
// persisted so confirm-time re-pricing sees the same exemption the quote did.
type TaxContext struct {
	Origin        string
	Destination   string
	UserResidency string
}

type CheckoutSession struct {
	SessionID       string
	UserID          string
	Items           []CartItem
	SubtotalMinor   int64
	TaxMinor        int64
	ServiceFeeMinor int64
	TaxExemptMinor  int64
	LoyaltyMinor    int64
	AmountDueMinor  int64
	Currency        string
	Billing         BillingAddress
	ShippingOption  string
	Tax             TaxContext
	Status          SessionStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ExpiredAt reports whether the session passed its TTL relative to now.
func (s *CheckoutSession) ExpiredAt(now time.Time, ttl time.Duration) bool {
	return now.Sub(s.CreatedAt) > ttl
}
