package detection

import (
	"context"

	"github.com/madisoncarter1234/fleetv3/internal/domain/fleet"
	"github.com/madisoncarter1234/fleetv3/internal/domain/violation"
	"github.com/madisoncarter1234/fleetv3/internal/service/baseline"
)

// Analyzer name tags, carried on every candidate as its source_analyzer.
const (
	AnalyzerVolume      = "fuel_volume"
	AnalyzerPattern     = "statistical_pattern"
	AnalyzerPrice       = "price"
	AnalyzerMPG         = "mpg_cross_validation"
	AnalyzerTemporal    = "temporal"
	AnalyzerCrossSource = "cross_source"
	AnalyzerAdvisory    = "advisory"
)

// Analyzer evaluates one vehicle's read-only record snapshot and emits an
// independent list of candidate violations. Analyzers never mutate input
// and never block on I/O, which makes the per-vehicle fan-out safe without
// locking.
type Analyzer interface {
	Name() string
	Analyze(ctx context.Context, in VehicleInput) ([]*violation.Violation, error)
}

// VehicleInput is the unit of work for one (vehicle, analyzer) pair. Fuel,
// GPS, and Jobs are scoped to the vehicle and ordered by timestamp;
// FleetFuel is the whole batch's fuel stream for checks that correlate
// across vehicles, such as shared-card use.
type VehicleInput struct {
	VehicleID string
	Profile   fleet.VehicleProfile
	Baseline  *baseline.Baseline
	Fuel      []fleet.FuelTransaction
	GPS       []fleet.GPSEvent
	Jobs      []fleet.JobRecord
	FleetFuel []fleet.FuelTransaction
}
