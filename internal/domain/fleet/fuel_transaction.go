package fleet

import (
	"time"

	"github.com/madisoncarter1234/fleetv3/internal/domain/values"
)

// FuelTransaction is one normalized fuel-card purchase. Gallons and Amount
// are optional upstream; a record missing both is unusable for volume and
// price analysis but still carries a timestamp for temporal analysis.
type FuelTransaction struct {
	VehicleID  string             `json:"vehicle_id"`
	DriverName string             `json:"driver_name,omitempty"`
	Timestamp  time.Time          `json:"timestamp"`
	Location   string             `json:"location"`
	Coordinate *values.Coordinate `json:"coordinate,omitempty"`
	Gallons    *float64           `json:"gallons,omitempty"`
	Amount     *float64           `json:"amount,omitempty"`
	CardLast4  string             `json:"card_last_4,omitempty"`
}

// HasGallons reports whether a positive gallon volume was recorded.
func (t FuelTransaction) HasGallons() bool {
	return t.Gallons != nil && *t.Gallons > 0
}

// HasAmount reports whether a positive dollar amount was recorded.
func (t FuelTransaction) HasAmount() bool {
	return t.Amount != nil && *t.Amount > 0
}

// Usable reports whether at least one of gallons or amount is present,
// the minimum for any volume or price analysis.
func (t FuelTransaction) Usable() bool {
	return t.HasGallons() || t.HasAmount()
}

// GallonsOrZero returns the recorded volume, or 0 when absent.
func (t FuelTransaction) GallonsOrZero() float64 {
	if t.Gallons == nil {
		return 0
	}
	return *t.Gallons
}

// AmountOrZero returns the recorded dollar amount, or 0 when absent.
func (t FuelTransaction) AmountOrZero() float64 {
	if t.Amount == nil {
		return 0
	}
	return *t.Amount
}

// PricePerGallon returns amount divided by gallons. The second return is
// false when either signal is missing.
func (t FuelTransaction) PricePerGallon() (float64, bool) {
	if !t.HasGallons() || !t.HasAmount() {
		return 0, false
	}
	return *t.Amount / *t.Gallons, true
}

// SameCalendarDay reports whether the transaction shares a calendar day
// with ts in the transaction's own location (timestamps are pre-normalized
// to one zone upstream).
func (t FuelTransaction) SameCalendarDay(ts time.Time) bool {
	y1, m1, d1 := t.Timestamp.Date()
	y2, m2, d2 := ts.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
