package violation

import "encoding/json"

// Type identifies the policy or theft pattern a violation claims.
type Type string

const (
	// Volume analysis
	TypeTankCapacity Type = "tank_capacity_exceeded"
	TypeRapidRefill  Type = "rapid_refill"
	TypeDailyExcess  Type = "daily_excess"

	// Statistical pattern analysis
	TypePatternDeviation Type = "pattern_deviation"
	TypeFrequencyAnomaly Type = "frequency_anomaly"
	TypeUnusualLocation  Type = "unusual_location"

	// Price analysis
	TypePriceExcess     Type = "price_excess"
	TypeNonFuelPurchase Type = "non_fuel_purchase"

	// MPG cross-validation
	TypeFuelDumping          Type = "fuel_dumping"
	TypeOdometerFraud        Type = "odometer_fraud"
	TypeIdleRefill           Type = "idle_refill"
	TypeExcessiveConsumption Type = "excessive_consumption"

	// Temporal analysis
	TypeAfterHours         Type = "after_hours"
	TypeImpossibleInterval Type = "impossible_interval"
	TypeIdleAbuse          Type = "idle_abuse"

	// Cross-source validation
	TypeLocationMismatch Type = "location_mismatch"
	TypeGhostJob         Type = "ghost_job"
	TypeSharedCardUse    Type = "shared_card_use"

	// Externally produced advisory candidates keep their own type when it
	// matches a known value; anything else lands here.
	TypeAdvisory Type = "advisory_flag"
)

var knownTypes = map[Type]bool{
	TypeTankCapacity:         true,
	TypeRapidRefill:          true,
	TypeDailyExcess:          true,
	TypePatternDeviation:     true,
	TypeFrequencyAnomaly:     true,
	TypeUnusualLocation:      true,
	TypePriceExcess:          true,
	TypeNonFuelPurchase:      true,
	TypeFuelDumping:          true,
	TypeOdometerFraud:        true,
	TypeIdleRefill:           true,
	TypeExcessiveConsumption: true,
	TypeAfterHours:           true,
	TypeImpossibleInterval:   true,
	TypeIdleAbuse:            true,
	TypeLocationMismatch:     true,
	TypeGhostJob:             true,
	TypeSharedCardUse:        true,
	TypeAdvisory:             true,
}

// ParseType resolves an externally supplied type name against the known
// set; unrecognized names collapse to TypeAdvisory.
func ParseType(s string) Type {
	if t := Type(s); knownTypes[t] {
		return t
	}
	return TypeAdvisory
}

// Severity is the business-impact tier of a violation, independent of
// confidence.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// ParseSeverity maps a severity name to its tier, defaulting to low for
// unrecognized input (advisory records are clamped, not rejected).
func ParseSeverity(s string) Severity {
	switch s {
	case "critical":
		return SeverityCritical
	case "high":
		return SeverityHigh
	case "medium":
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// Escalate returns the next tier up, capped at critical.
func (s Severity) Escalate() Severity {
	if s >= SeverityCritical {
		return SeverityCritical
	}
	return s + 1
}

func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Severity) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = ParseSeverity(raw)
	return nil
}
