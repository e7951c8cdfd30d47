package domain

import "time"

type IntentStatus string

const (
	IntentInitiated     IntentStatus = "initiated"
	IntentAuthorized    IntentStatus = "authorized"
	IntentCaptured      IntentStatus = "captured"
	IntentFailed        IntentStatus = "failed"
	IntentRefunded      IntentStatus = "refunded"
	IntentPendingReview IntentStatus = "pending_review"
)

// intentTransitions encodes the monotonic lifecycle:
// initiated -> {authorized|failed|pending_review} -> captured -> refunded.
// A terminal or later state never regresses.
var intentTransitions = map[IntentStatus][]IntentStatus{
	IntentInitiated:     {IntentAuthorized, IntentCaptured, IntentFailed, IntentPendingReview},
	IntentAuthorized:    {IntentCaptured, IntentFailed},
	IntentPendingReview: {IntentAuthorized, IntentCaptured, IntentFailed},
	IntentCaptured:      {IntentRefunded},
}

func (s IntentStatus) CanTransition(to IntentStatus) bool {
	for _, t := range intentTransitions[s] {
		if t == to {
			return true
		}
	}
	return false
}

func (s IntentStatus) Terminal() bool {
	return s == IntentFailed || s == IntentRefunded
}

type PaymentIntent struct {
	IntentID        string
	UserID          string
	OrderID         string
	AmountMinor     int64
	Currency        string
	Status          IntentStatus
	PaymentMethod   string
	GatewayRef      string // gateway-side intent reference, set at creation
	GatewayChargeID string // charge reference, set on capture
	RiskScore       *float64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type MethodType string

const (
	MethodCard         MethodType = "card"
	MethodWallet       MethodType = "wallet"
	MethodLoyaltyMiles MethodType = "loyalty_miles"
)

// PaymentMethod is a tokenized stored instrument. Rows are soft-deleted only;
// at most one default per user.
type PaymentMethod struct {
	MethodID  string
	UserID    string
	Type      MethodType
	GatewayID string
	CardBrand string
	Last4     string
	ExpMonth  int
	ExpYear   int
	IsDefault bool
	CreatedAt time.Time
	DeletedAt *time.Time
}
