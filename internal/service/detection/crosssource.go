package detection

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/madisoncarter1234/fleetv3/internal/domain/fleet"
	"github.com/madisoncarter1234/fleetv3/internal/domain/values"
	"github.com/madisoncarter1234/fleetv3/internal/domain/violation"
	"github.com/madisoncarter1234/fleetv3/internal/infrastructure/config"
)

// CrossSourceAnalyzer correlates the three record streams: fuel purchases
// against GPS presence, scheduled jobs against site presence, and card
// identifiers across vehicles. The orchestrator withholds this analyzer
// entirely when the stream date ranges do not overlap.
type CrossSourceAnalyzer struct {
	cfg    config.CrossSourceConfig
	logger *slog.Logger
}

func NewCrossSourceAnalyzer(cfg config.CrossSourceConfig, logger *slog.Logger) *CrossSourceAnalyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &CrossSourceAnalyzer{cfg: cfg, logger: logger}
}

func (a *CrossSourceAnalyzer) Name() string { return AnalyzerCrossSource }

func (a *CrossSourceAnalyzer) Analyze(ctx context.Context, in VehicleInput) ([]*violation.Violation, error) {
	var out []*violation.Violation
	out = append(out, a.locationMismatches(in)...)
	out = append(out, a.ghostJobs(in)...)
	out = append(out, a.sharedCardUse(in)...)
	return out, nil
}

// locationMismatches flags fuel purchases with no GPS ping near the pump.
// A vehicle with no GPS records at all is a general outage, not evidence
// of theft, and produces nothing.
func (a *CrossSourceAnalyzer) locationMismatches(in VehicleInput) []*violation.Violation {
	if len(in.GPS) == 0 {
		return nil
	}
	sparse := a.sparseCoverage(in.GPS)

	var out []*violation.Violation
	for _, t := range in.Fuel {
		if t.Coordinate == nil {
			continue
		}
		if a.gpsNear(in.GPS, *t.Coordinate, t.Timestamp, a.cfg.LocationMatchMiles, a.cfg.LocationMatchWindow) {
			continue
		}

		confidence := 0.85
		evidence := []string{
			fmt.Sprintf("no GPS activity within %.1f miles and %.0f minutes of the fuel purchase at %s",
				a.cfg.LocationMatchMiles, a.cfg.LocationMatchWindow.Minutes(), t.Location),
		}
		if sparse {
			confidence = 0.60
			evidence = append(evidence, "vehicle reports GPS infrequently, absence is weaker evidence")
		}

		v, err := violation.New(
			violation.TypeLocationMismatch, AnalyzerCrossSource, in.VehicleID,
			confidence, violation.SeverityMedium,
			lossUSD(t.AmountOrZero()),
			values.Instant(t.Timestamp),
			evidence...,
		)
		if err != nil {
			a.logger.Error("building location mismatch violation", "error", err)
			continue
		}
		v.WithDriver(t.DriverName).WithLocation(t.Location)
		out = append(out, v)
	}
	return out
}

// ghostJobs flags scheduled jobs with no site presence during the job
// window. A nearby-time fuel purchase away from the site escalates the
// finding: the vehicle was active, just not working.
func (a *CrossSourceAnalyzer) ghostJobs(in VehicleInput) []*violation.Violation {
	var out []*violation.Violation
	for _, j := range in.Jobs {
		if !j.Auditable() || j.Coordinate == nil {
			continue
		}

		// Presence window runs longer after the scheduled start; crews
		// arrive late more often than early.
		start := j.ScheduledTime.Add(-a.cfg.GhostJobWindow)
		end := j.ScheduledTime.Add(2 * a.cfg.GhostJobWindow)
		present := false
		for _, e := range in.GPS {
			if e.Timestamp.Before(start) || e.Timestamp.After(end) {
				continue
			}
			if !e.Coordinate.IsZero() && e.Coordinate.WithinMiles(*j.Coordinate, a.cfg.GhostJobMiles) {
				present = true
				break
			}
		}
		if present {
			continue
		}

		severity := violation.SeverityHigh
		evidence := []string{
			fmt.Sprintf("no GPS presence within %.1f miles of job site %s during the scheduled window around %s",
				a.cfg.GhostJobMiles, j.Address, j.ScheduledTime.Format("Jan 2 15:04")),
		}
		for _, t := range in.Fuel {
			gap := t.Timestamp.Sub(j.ScheduledTime)
			if gap < 0 {
				gap = -gap
			}
			if gap > a.cfg.GhostJobWindow {
				continue
			}
			// A purchase with no location on file proves nothing either way.
			if t.Coordinate == nil || t.Coordinate.WithinMiles(*j.Coordinate, a.cfg.GhostJobMiles) {
				continue
			}
			severity = violation.SeverityCritical
			evidence = append(evidence, fmt.Sprintf("fuel purchased at %s near the scheduled time, away from the job site", t.Location))
			break
		}

		v, err := violation.New(
			violation.TypeGhostJob, AnalyzerCrossSource, in.VehicleID,
			0.80, severity,
			lossUSD(0),
			values.NewTimeWindow(start, end),
			evidence...,
		)
		if err != nil {
			a.logger.Error("building ghost job violation", "error", err)
			continue
		}
		v.WithDriver(j.DriverName).WithLocation(j.Address)
		out = append(out, v)
	}
	return out
}

// sharedCardUse flags one card identifier paying for two vehicles or
// drivers inside the correlation window. Each pair is reported once, from
// the vehicle of the earlier transaction.
func (a *CrossSourceAnalyzer) sharedCardUse(in VehicleInput) []*violation.Violation {
	var out []*violation.Violation
	for _, t1 := range in.Fuel {
		if t1.CardLast4 == "" {
			continue
		}
		for _, t2 := range in.FleetFuel {
			if t2.CardLast4 != t1.CardLast4 {
				continue
			}
			gap := t2.Timestamp.Sub(t1.Timestamp)
			if gap < 0 || gap > a.cfg.SharedCardWindow {
				continue
			}
			// Simultaneous swipes tie-break on vehicle ID so the pair is
			// reported exactly once and a row never matches itself.
			if gap == 0 && t2.VehicleID <= in.VehicleID {
				continue
			}
			crossVehicle := t2.VehicleID != in.VehicleID
			crossDriver := t1.DriverName != "" && t2.DriverName != "" && t1.DriverName != t2.DriverName

			var (
				confidence float64
				severity   violation.Severity
				fact       string
			)
			switch {
			case (crossVehicle || crossDriver) && gap <= a.cfg.SharedCardTightWindow:
				confidence, severity = 0.90, violation.SeverityCritical
				fact = fmt.Sprintf("card ending %s used for %s and %s only %.0f minutes apart",
					t1.CardLast4, t1.VehicleID, t2.VehicleID, gap.Minutes())
			case crossVehicle || crossDriver:
				confidence, severity = 0.75, violation.SeverityHigh
				fact = fmt.Sprintf("card ending %s used for %s and %s within %.0f minutes",
					t1.CardLast4, t1.VehicleID, t2.VehicleID, gap.Minutes())
			default:
				// Same vehicle twice in the window is often a pump retry.
				confidence, severity = 0.50, violation.SeverityMedium
				fact = fmt.Sprintf("card ending %s charged twice for %s within %.0f minutes",
					t1.CardLast4, t1.VehicleID, gap.Minutes())
			}

			v, err := violation.New(
				violation.TypeSharedCardUse, AnalyzerCrossSource, in.VehicleID,
				confidence, severity,
				lossUSD(t2.AmountOrZero()),
				values.NewTimeWindow(t1.Timestamp, t2.Timestamp),
				fact,
			)
			if err != nil {
				a.logger.Error("building shared card violation", "error", err)
				continue
			}
			if crossVehicle {
				v.Vehicles = append(v.Vehicles, t2.VehicleID)
			}
			v.WithDriver(t1.DriverName).WithDriver(t2.DriverName)
			v.WithLocation(t1.Location).WithLocation(t2.Location)
			out = append(out, v)
		}
	}
	return out
}

// gpsNear reports a ping inside both the distance and time envelopes.
func (a *CrossSourceAnalyzer) gpsNear(events []fleet.GPSEvent, at values.Coordinate, ts time.Time, maxMiles float64, window time.Duration) bool {
	for _, e := range events {
		gap := e.Timestamp.Sub(ts)
		if gap < 0 {
			gap = -gap
		}
		if gap > window {
			continue
		}
		if !e.Coordinate.IsZero() && e.Coordinate.WithinMiles(at, maxMiles) {
			return true
		}
	}
	return false
}

// sparseCoverage reports whether the vehicle's median ping gap exceeds the
// tolerance, making any single absence weak evidence.
func (a *CrossSourceAnalyzer) sparseCoverage(events []fleet.GPSEvent) bool {
	if len(events) < 2 {
		return true
	}
	gaps := make([]time.Duration, 0, len(events)-1)
	for i := 1; i < len(events); i++ {
		gaps = append(gaps, events[i].Timestamp.Sub(events[i-1].Timestamp))
	}
	sort.Slice(gaps, func(i, j int) bool { return gaps[i] < gaps[j] })
	return gaps[len(gaps)/2] > a.cfg.SparseCoverageMaxGap
}

var _ Analyzer = (*CrossSourceAnalyzer)(nil)
