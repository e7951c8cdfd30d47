package domain

import "time"

type RefundStatus string

const (
	RefundPending   RefundStatus = "pending"
	RefundSucceeded RefundStatus = "succeeded"
	RefundFailed    RefundStatus = "failed"
)

type Refund struct {
	RefundID      string
	ChargeID      string
	AmountMinor   int64
	Status        RefundStatus
	Reason        string
	FailureReason string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CurrencyRate is a cached exchange rate. RateMicros is rate-to-base scaled by 1e6
// so conversion stays in integer arithmetic. Stale rates are served, not fatal.
type CurrencyRate struct {
	CurrencyCode string
	RateMicros   int64
	FetchedAt    time.Time
}
