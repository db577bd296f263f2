package detection

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/madisoncarter1234/fleetv3/internal/domain/errors"
	"github.com/madisoncarter1234/fleetv3/internal/domain/fleet"
	"github.com/madisoncarter1234/fleetv3/internal/domain/values"
	"github.com/madisoncarter1234/fleetv3/internal/domain/violation"
	"github.com/madisoncarter1234/fleetv3/internal/infrastructure/config"
)

// MPGAnalyzer cross-validates fuel volume against GPS-derived distance
// between consecutive fills. A vehicle that buys fuel it never drives off
// is the strongest theft signal in the batch.
type MPGAnalyzer struct {
	cfg      config.MPGConfig
	refPrice float64
	logger   *slog.Logger
}

func NewMPGAnalyzer(cfg config.MPGConfig, refPrice float64, logger *slog.Logger) *MPGAnalyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &MPGAnalyzer{cfg: cfg, refPrice: refPrice, logger: logger}
}

func (a *MPGAnalyzer) Name() string { return AnalyzerMPG }

func (a *MPGAnalyzer) Analyze(ctx context.Context, in VehicleInput) ([]*violation.Violation, error) {
	if len(in.GPS) == 0 {
		return nil, errors.NewMissingSignalError(AnalyzerMPG, "gps")
	}
	if in.Profile.ExpectedMPG.Min <= 0 {
		return nil, errors.NewMissingSignalError(AnalyzerMPG, "expected_mpg")
	}

	var out []*violation.Violation
	for j := 1; j < len(in.Fuel); j++ {
		prev, cur := in.Fuel[j-1], in.Fuel[j]
		if !cur.HasGallons() {
			continue
		}
		miles, ok := distanceBetween(in.GPS, prev.Timestamp, cur.Timestamp)
		if !ok {
			continue
		}
		if v := a.checkInterval(in.VehicleID, prev, cur, miles, in.Profile.ExpectedMPG); v != nil {
			out = append(out, v)
		}
	}
	return out, nil
}

// checkInterval applies the consumption rules most severe first; exactly
// one rule fires per interval. The near-zero-travel refill is checked
// before any rate rule because MPG is meaningless when the vehicle never
// moved; fills under the consumption floor skip it and fall through to
// the rate rules. Loss is the fuel bought beyond what the traveled miles should
// have consumed at the expected rate.
func (a *MPGAnalyzer) checkInterval(vehicleID string, prev, cur fleet.FuelTransaction, miles float64, expected fleet.MPGRange) *violation.Violation {
	gallons := *cur.Gallons
	window := values.NewTimeWindow(prev.Timestamp, cur.Timestamp)

	if miles < a.cfg.MinMiles && gallons > a.cfg.MinGallonsConsumed {
		v, err := violation.New(
			violation.TypeIdleRefill, AnalyzerMPG, vehicleID,
			0.85, violation.SeverityHigh,
			lossUSD(a.cfg.IdleTheftShare*gallons*a.refPrice),
			window,
			fmt.Sprintf("refill of %.1f gallons after only %.1f miles of travel since the previous fill", gallons, miles),
		)
		if err != nil {
			a.logger.Error("building idle refill violation", "error", err)
			return nil
		}
		return v.WithDriver(cur.DriverName).WithLocation(cur.Location)
	}

	expectedMin := expected.Min
	actualMPG := miles / gallons
	excessGallons := gallons - miles/expected.Mid()
	loss := excessGallons * a.refPrice

	var (
		vType      violation.Type
		confidence float64
		severity   violation.Severity
		fact       string
	)
	switch {
	case actualMPG < expectedMin*a.cfg.FuelDumpingRatio:
		vType = violation.TypeFuelDumping
		confidence, severity = 0.95, violation.SeverityHigh
		fact = fmt.Sprintf("%.1f gallons purchased but only %.1f miles driven (%.1f MPG vs %.0f expected minimum), fuel is leaving the vehicle",
			gallons, miles, actualMPG, expectedMin)
	case actualMPG < expectedMin*a.cfg.OdometerRatio:
		vType = violation.TypeOdometerFraud
		confidence, severity = 0.90, violation.SeverityHigh
		fact = fmt.Sprintf("consumption rate of %.1f MPG is under half the %.0f MPG expected minimum, mileage is under-reported or fuel diverted",
			actualMPG, expectedMin)
	case actualMPG < expectedMin*a.cfg.ExcessiveRatio:
		vType = violation.TypeExcessiveConsumption
		confidence, severity = 0.75, violation.SeverityMedium
		fact = fmt.Sprintf("consumption rate of %.1f MPG against a %.0f MPG expected minimum", actualMPG, expectedMin)
	default:
		return nil
	}

	v, err := violation.New(vType, AnalyzerMPG, vehicleID, confidence, severity, lossUSD(loss), window, fact)
	if err != nil {
		a.logger.Error("building mpg violation", "error", err)
		return nil
	}
	return v.WithDriver(cur.DriverName).WithLocation(cur.Location)
}

// distanceBetween derives miles traveled in (start, end] from GPS events.
// A provider trip accumulator wins when present on both ends; otherwise
// point-to-point distance between consecutive pings is summed. The second
// return is false when the interval holds no GPS data at all.
func distanceBetween(events []fleet.GPSEvent, start, end time.Time) (float64, bool) {
	var window []fleet.GPSEvent
	for _, e := range events {
		if e.Timestamp.After(start) && !e.Timestamp.After(end) {
			window = append(window, e)
		}
	}
	if len(window) == 0 {
		return 0, false
	}

	first, last := window[0], window[len(window)-1]
	if first.TripMiles != nil && last.TripMiles != nil && *last.TripMiles >= *first.TripMiles {
		return *last.TripMiles - *first.TripMiles, true
	}

	total := 0.0
	for i := 1; i < len(window); i++ {
		a, b := window[i-1], window[i]
		if a.Coordinate.IsZero() || b.Coordinate.IsZero() {
			continue
		}
		total += a.Coordinate.DistanceMiles(b.Coordinate)
	}
	return total, true
}

var _ Analyzer = (*MPGAnalyzer)(nil)
