package values

import (
	"fmt"
	"time"
)

// TimeWindow is a half-open-free inclusive [Start, End] interval. Violations
// carry one; batches derive one per record stream.
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewTimeWindow orders the two bounds so Start never trails End.
func NewTimeWindow(a, b time.Time) TimeWindow {
	if b.Before(a) {
		a, b = b, a
	}
	return TimeWindow{Start: a, End: b}
}

// Instant returns a zero-length window at ts.
func Instant(ts time.Time) TimeWindow {
	return TimeWindow{Start: ts, End: ts}
}

// IsZero reports whether the window is unset.
func (w TimeWindow) IsZero() bool {
	return w.Start.IsZero() && w.End.IsZero()
}

// Duration returns End - Start.
func (w TimeWindow) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// Days returns the window length in whole days, never less than 1 so
// projection ratios stay finite.
func (w TimeWindow) Days() int {
	d := int(w.Duration().Hours() / 24)
	if d < 1 {
		return 1
	}
	return d
}

// Contains reports whether ts falls inside the window, bounds included.
func (w TimeWindow) Contains(ts time.Time) bool {
	return !ts.Before(w.Start) && !ts.After(w.End)
}

// Overlaps reports whether two windows share any instant.
func (w TimeWindow) Overlaps(other TimeWindow) bool {
	return !w.Start.After(other.End) && !other.Start.After(w.End)
}

// Gap returns the separation between two windows, or 0 when they overlap.
func (w TimeWindow) Gap(other TimeWindow) time.Duration {
	if w.Overlaps(other) {
		return 0
	}
	if w.End.Before(other.Start) {
		return other.Start.Sub(w.End)
	}
	return w.Start.Sub(other.End)
}

// Union returns the smallest window covering both.
func (w TimeWindow) Union(other TimeWindow) TimeWindow {
	if w.IsZero() {
		return other
	}
	if other.IsZero() {
		return w
	}
	u := w
	if other.Start.Before(u.Start) {
		u.Start = other.Start
	}
	if other.End.After(u.End) {
		u.End = other.End
	}
	return u
}

// Extend grows the window to include ts.
func (w TimeWindow) Extend(ts time.Time) TimeWindow {
	if w.IsZero() {
		return Instant(ts)
	}
	if ts.Before(w.Start) {
		w.Start = ts
	}
	if ts.After(w.End) {
		w.End = ts
	}
	return w
}

func (w TimeWindow) String() string {
	return fmt.Sprintf("[%s, %s]", w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339))
}
