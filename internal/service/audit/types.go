package audit

import (
	"time"

	"github.com/madisoncarter1234/fleetv3/internal/domain/fleet"
	"github.com/madisoncarter1234/fleetv3/internal/domain/values"
	"github.com/madisoncarter1234/fleetv3/internal/domain/violation"
	"github.com/madisoncarter1234/fleetv3/internal/service/detection"
	"github.com/madisoncarter1234/fleetv3/internal/service/financial"
)

// AuditRequest is one complete audit run's input: the normalized batch,
// optional externally-produced advisory candidates, and an optional
// explicit window. When the window is unset it derives from the record
// range.
type AuditRequest struct {
	Batch    fleet.Batch                   `json:"batch"`
	Advisory []detection.AdvisoryCandidate `json:"advisory,omitempty"`
	Window   values.TimeWindow             `json:"window,omitempty"`
}

// Report is the run's output: the ordered, immutable violation list plus
// the aggregates the report renderer consumes.
type Report struct {
	GeneratedAt time.Time              `json:"generated_at"`
	Window      values.TimeWindow      `json:"audit_window"`
	Violations  []*violation.Violation `json:"violations"`
	Summary     Summary                `json:"summary"`
}

// Summary aggregates the run for a non-technical reader.
type Summary struct {
	TotalViolations        int            `json:"total_violations"`
	ViolationsByType       map[string]int `json:"violations_by_type"`
	TotalEstimatedLoss     values.Money   `json:"total_estimated_loss"`
	ConfidenceWeightedLoss values.Money   `json:"confidence_weighted_loss"`
	WeeklyProjection       values.Money   `json:"weekly_projection"`
	MonthlyProjection      values.Money   `json:"monthly_projection"`
	AnnualProjection       values.Money   `json:"annual_projection"`

	HighRiskVehicles []string                           `json:"high_risk_vehicles"`
	PerVehicle       map[string]financial.VehicleImpact `json:"per_vehicle"`

	// Warnings carries soft run-level conditions, such as record streams
	// whose date ranges never overlap.
	Warnings []string          `json:"warnings,omitempty"`
	Insights FleetInsights     `json:"fleet_insights"`
	Dropped  fleet.DroppedRows `json:"dropped_rows"`
}

// FleetInsights is descriptive batch context, independent of violations.
type FleetInsights struct {
	Vehicles          int               `json:"vehicles"`
	FuelPurchases     int               `json:"fuel_purchases"`
	TotalGallons      float64           `json:"total_gallons"`
	TotalSpend        values.Money      `json:"total_spend"`
	DistinctLocations int               `json:"distinct_locations"`
	DateRange         values.TimeWindow `json:"date_range"`
}
