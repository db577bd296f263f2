package violation

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/madisoncarter1234/fleetv3/internal/domain/errors"
	"github.com/madisoncarter1234/fleetv3/internal/domain/values"
)

// Violation is a scored, evidenced claim that a fleet policy or theft
// pattern occurred. Analyzers create candidates; only the consolidator may
// mutate them (merge, boost, append evidence); after financial scoring they
// are immutable.
type Violation struct {
	ID              uuid.UUID         `json:"id"`
	Type            Type              `json:"violation_type"`
	Confidence      float64           `json:"confidence"`
	Severity        Severity          `json:"severity"`
	EstimatedLoss   values.Money      `json:"estimated_loss"`
	Vehicles        []string          `json:"involved_vehicles"`
	Drivers         []string          `json:"involved_drivers,omitempty"`
	Locations       []string          `json:"locations,omitempty"`
	Window          values.TimeWindow `json:"time_window"`
	Evidence        []string          `json:"evidence"`
	SourceAnalyzers []string          `json:"source_analyzers"`
	// MergedCount is 1 for a raw candidate and the member count after
	// consolidation.
	MergedCount int `json:"merged_count"`
}

// New builds a candidate violation and enforces the construction
// invariants: at least one evidence fact, a non-negative loss, confidence
// inside [0,1], and at least one involved vehicle.
func New(t Type, analyzer string, vehicleID string, confidence float64, severity Severity, loss values.Money, window values.TimeWindow, evidence ...string) (*Violation, error) {
	if len(evidence) == 0 {
		return nil, errors.NewValidationError("VIOLATION_NO_EVIDENCE", "violation requires at least one evidence fact")
	}
	if loss.IsNegative() {
		return nil, errors.NewValidationError("VIOLATION_NEGATIVE_LOSS", "estimated loss must be non-negative")
	}
	if confidence < 0 || confidence > 1 {
		return nil, errors.NewValidationError("VIOLATION_BAD_CONFIDENCE",
			fmt.Sprintf("confidence %.3f outside [0, 1]", confidence))
	}
	if vehicleID == "" {
		return nil, errors.NewValidationError("VIOLATION_NO_VEHICLE", "violation requires a vehicle")
	}

	return &Violation{
		ID:              uuid.New(),
		Type:            t,
		Confidence:      confidence,
		Severity:        severity,
		EstimatedLoss:   loss,
		Vehicles:        []string{vehicleID},
		Window:          window,
		Evidence:        append([]string(nil), evidence...),
		SourceAnalyzers: []string{analyzer},
		MergedCount:     1,
	}, nil
}

// WithDriver records an involved driver.
func (v *Violation) WithDriver(driver string) *Violation {
	if driver != "" {
		v.Drivers = appendUnique(v.Drivers, driver)
	}
	return v
}

// WithLocation records an involved location.
func (v *Violation) WithLocation(location string) *Violation {
	if location != "" {
		v.Locations = appendUnique(v.Locations, location)
	}
	return v
}

// HalveConfidence applies a mitigation without suppressing the violation.
func (v *Violation) HalveConfidence() *Violation {
	v.Confidence /= 2
	return v
}

// BoostConfidence raises confidence by delta, capped at 1.0.
func (v *Violation) BoostConfidence(delta float64) {
	v.Confidence += delta
	if v.Confidence > 1 {
		v.Confidence = 1
	}
}

// Absorb folds another candidate into this one during consolidation:
// evidence and participants are unioned, severity takes the maximum, the
// window expands, and losses sum. Confidence corroboration is the
// consolidator's decision, not applied here.
func (v *Violation) Absorb(other *Violation) error {
	sum, err := v.EstimatedLoss.Add(other.EstimatedLoss)
	if err != nil {
		return err
	}
	v.EstimatedLoss = sum

	if other.Severity > v.Severity {
		v.Severity = other.Severity
	}
	if other.Confidence > v.Confidence {
		// Evidence ordering rule: higher-confidence member's facts lead.
		v.Evidence = append(append([]string(nil), other.Evidence...), v.Evidence...)
		v.Confidence = other.Confidence
	} else {
		v.Evidence = append(v.Evidence, other.Evidence...)
	}

	for _, veh := range other.Vehicles {
		v.Vehicles = appendUnique(v.Vehicles, veh)
	}
	for _, d := range other.Drivers {
		v.Drivers = appendUnique(v.Drivers, d)
	}
	for _, l := range other.Locations {
		v.Locations = appendUnique(v.Locations, l)
	}
	for _, a := range other.SourceAnalyzers {
		v.SourceAnalyzers = appendUnique(v.SourceAnalyzers, a)
	}
	v.Window = v.Window.Union(other.Window)
	v.MergedCount += other.MergedCount
	return nil
}

// SharesDimension reports whether two violations overlap on a grouping
// evidence dimension: location or driver.
func (v *Violation) SharesDimension(other *Violation) bool {
	return intersects(v.Locations, other.Locations) || intersects(v.Drivers, other.Drivers)
}

// PrimaryVehicle returns the first involved vehicle.
func (v *Violation) PrimaryVehicle() string {
	if len(v.Vehicles) == 0 {
		return ""
	}
	return v.Vehicles[0]
}

// Less is the deterministic report ordering: severity descending, then
// confidence descending, then earliest window start, with type and vehicle
// as final tie-breakers so identical inputs always order identically.
func (v *Violation) Less(other *Violation) bool {
	if v.Severity != other.Severity {
		return v.Severity > other.Severity
	}
	if v.Confidence != other.Confidence {
		return v.Confidence > other.Confidence
	}
	if !v.Window.Start.Equal(other.Window.Start) {
		return v.Window.Start.Before(other.Window.Start)
	}
	if v.Type != other.Type {
		return v.Type < other.Type
	}
	return v.PrimaryVehicle() < other.PrimaryVehicle()
}

// Sort orders a slice of violations deterministically.
func Sort(violations []*Violation) {
	sort.SliceStable(violations, func(i, j int) bool {
		return violations[i].Less(violations[j])
	})
}

func appendUnique(xs []string, x string) []string {
	for _, existing := range xs {
		if existing == x {
			return xs
		}
	}
	return append(xs, x)
}

func intersects(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}
