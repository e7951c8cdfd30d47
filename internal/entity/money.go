package domain

import "errors"

var ErrInvalidAmount = errors.New("invalid amount")

// Money is always integer minor units (cents, fils, ...). No floats in the money path.
type Money struct {
	Minor    int64
	Currency string
}

func (m Money) Validate() error {
	if m.Minor < 0 || m.Currency == "" {
		return ErrInvalidAmount
	}
	return nil
}

// rateScale is the fixed-point scale for exchange rates (micro-rates).
const rateScale = 1_000_000

// ConvertMinor converts an amount with a micro-scaled rate, rounding half-up.
// All arithmetic stays in int64.
func ConvertMinor(amountMinor, rateMicros int64) int64 {
	if amountMinor < 0 || rateMicros <= 0 {
		return 0
	}
	return (amountMinor*rateMicros + rateScale/2) / rateScale
}

// ClampMinor floors a computed amount at zero. Discounts and loyalty value may
// exceed the charged amount; the amount due never goes negative.
func ClampMinor(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}
