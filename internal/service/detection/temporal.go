package detection

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/madisoncarter1234/fleetv3/internal/domain/fleet"
	"github.com/madisoncarter1234/fleetv3/internal/domain/values"
	"github.com/madisoncarter1234/fleetv3/internal/domain/violation"
	"github.com/madisoncarter1234/fleetv3/internal/infrastructure/config"
)

// TemporalAnalyzer flags activity at times the business was not operating:
// off-hours purchases and driving, refuels at two places the vehicle could
// not both reach, and extended business-hours idling.
type TemporalAnalyzer struct {
	hours    config.BusinessHoursConfig
	cfg      config.TemporalConfig
	refPrice float64
	logger   *slog.Logger
}

func NewTemporalAnalyzer(hours config.BusinessHoursConfig, cfg config.TemporalConfig, refPrice float64, logger *slog.Logger) *TemporalAnalyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &TemporalAnalyzer{hours: hours, cfg: cfg, refPrice: refPrice, logger: logger}
}

func (a *TemporalAnalyzer) Name() string { return AnalyzerTemporal }

func (a *TemporalAnalyzer) Analyze(ctx context.Context, in VehicleInput) ([]*violation.Violation, error) {
	var out []*violation.Violation
	out = append(out, a.afterHoursFuel(in)...)
	out = append(out, a.afterHoursDriving(in)...)
	out = append(out, a.impossibleIntervals(in)...)
	out = append(out, a.idleAbuse(in)...)
	return out, nil
}

func (a *TemporalAnalyzer) inBusinessHours(ts time.Time) bool {
	h := ts.Hour()
	return h >= a.hours.StartHour && h < a.hours.EndHour
}

// afterHoursConfidence scales with how far outside the window the activity
// sits: the deep-night band is near-certain misuse, the shoulder hours
// around the workday much less so. The band closes at the end hour on the
// dot; 05:01 is already shoulder territory.
func (a *TemporalAnalyzer) afterHoursConfidence(ts time.Time) float64 {
	h := ts.Hour()
	if h >= a.cfg.DeepNightStartHour && h <= a.cfg.DeepNightEndHour {
		if h < a.cfg.DeepNightEndHour || (ts.Minute() == 0 && ts.Second() == 0) {
			return a.cfg.DeepNightConf
		}
	}
	return a.cfg.ShoulderConf
}

// offDay reports whether ts falls on a weekend or configured holiday.
// Off-day activity escalates severity one tier; it is never a separate
// violation.
func (a *TemporalAnalyzer) offDay(ts time.Time) bool {
	if wd := ts.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return true
	}
	md := ts.Format("01-02")
	for _, h := range a.cfg.Holidays {
		if h == md {
			return true
		}
	}
	return false
}

func (a *TemporalAnalyzer) afterHoursFuel(in VehicleInput) []*violation.Violation {
	var out []*violation.Violation
	for _, t := range in.Fuel {
		if a.inBusinessHours(t.Timestamp) {
			continue
		}
		severity := violation.SeverityMedium
		evidence := []string{
			fmt.Sprintf("fuel purchase at %s, outside the %02d:00-%02d:00 business window",
				t.Timestamp.Format("15:04"), a.hours.StartHour, a.hours.EndHour),
		}
		if a.offDay(t.Timestamp) {
			severity = severity.Escalate()
			evidence = append(evidence, fmt.Sprintf("activity on %s, a non-working day", t.Timestamp.Format("Mon Jan 2")))
		}

		v, err := violation.New(
			violation.TypeAfterHours, AnalyzerTemporal, in.VehicleID,
			a.afterHoursConfidence(t.Timestamp), severity,
			lossUSD(t.AmountOrZero()),
			values.Instant(t.Timestamp),
			evidence...,
		)
		if err != nil {
			a.logger.Error("building after hours violation", "error", err)
			continue
		}
		v.WithDriver(t.DriverName).WithLocation(t.Location)
		out = append(out, v)
	}
	return out
}

// afterHoursDriving groups contiguous off-hours movement into one
// violation per run rather than one per ping.
func (a *TemporalAnalyzer) afterHoursDriving(in VehicleInput) []*violation.Violation {
	var out []*violation.Violation
	var run []fleet.GPSEvent
	flush := func() {
		if len(run) == 0 {
			return
		}
		first, last := run[0], run[len(run)-1]
		severity := violation.SeverityLow
		evidence := []string{
			fmt.Sprintf("vehicle driven %s to %s, outside the %02d:00-%02d:00 business window",
				first.Timestamp.Format("Jan 2 15:04"), last.Timestamp.Format("15:04"), a.hours.StartHour, a.hours.EndHour),
		}
		if a.offDay(first.Timestamp) {
			severity = severity.Escalate()
			evidence = append(evidence, fmt.Sprintf("activity on %s, a non-working day", first.Timestamp.Format("Mon Jan 2")))
		}
		v, err := violation.New(
			violation.TypeAfterHours, AnalyzerTemporal, in.VehicleID,
			a.afterHoursConfidence(first.Timestamp), severity,
			lossUSD(0),
			values.NewTimeWindow(first.Timestamp, last.Timestamp),
			evidence...,
		)
		if err != nil {
			a.logger.Error("building after hours driving violation", "error", err)
		} else {
			v.WithLocation(first.Location)
			out = append(out, v)
		}
		run = nil
	}

	for _, e := range in.GPS {
		if e.IsMoving() && !a.inBusinessHours(e.Timestamp) {
			run = append(run, e)
			continue
		}
		flush()
	}
	flush()
	return out
}

// impossibleIntervals flags refuel pairs too far apart for the time
// between them. Needs coordinates on both ends; name-only locations
// cannot be measured and are skipped.
func (a *TemporalAnalyzer) impossibleIntervals(in VehicleInput) []*violation.Violation {
	var out []*violation.Violation
	for j := 1; j < len(in.Fuel); j++ {
		earlier, later := in.Fuel[j-1], in.Fuel[j]
		if earlier.Coordinate == nil || later.Coordinate == nil {
			continue
		}
		gap := later.Timestamp.Sub(earlier.Timestamp)
		if gap >= a.cfg.ImpossibleIntervalMax {
			continue
		}
		miles := earlier.Coordinate.DistanceMiles(*later.Coordinate)
		if miles <= a.cfg.ImpossibleIntervalMiles {
			continue
		}

		v, err := violation.New(
			violation.TypeImpossibleInterval, AnalyzerTemporal, in.VehicleID,
			0.85, violation.SeverityHigh,
			lossUSD(later.AmountOrZero()),
			values.NewTimeWindow(earlier.Timestamp, later.Timestamp),
			fmt.Sprintf("purchases %.0f miles apart only %.0f minutes apart, one card user was not with the vehicle",
				miles, gap.Minutes()),
		)
		if err != nil {
			a.logger.Error("building impossible interval violation", "error", err)
			continue
		}
		v.WithDriver(earlier.DriverName).WithDriver(later.DriverName)
		v.WithLocation(earlier.Location).WithLocation(later.Location)
		out = append(out, v)
	}
	return out
}

// idleAbuse flags business-hours runs where the vehicle sat effectively
// still past the idle threshold, burning fuel without working.
func (a *TemporalAnalyzer) idleAbuse(in VehicleInput) []*violation.Violation {
	var out []*violation.Violation
	var run []fleet.GPSEvent
	flush := func() {
		defer func() { run = nil }()
		if len(run) < 2 {
			return
		}
		first, last := run[0], run[len(run)-1]
		dur := last.Timestamp.Sub(first.Timestamp)
		if dur < a.cfg.MinIdleDuration {
			return
		}
		hours := dur.Hours()
		v, err := violation.New(
			violation.TypeIdleAbuse, AnalyzerTemporal, in.VehicleID,
			0.60, violation.SeverityLow,
			lossUSD(hours*a.cfg.IdleGallonsPerHour*a.refPrice),
			values.NewTimeWindow(first.Timestamp, last.Timestamp),
			fmt.Sprintf("vehicle idle for %.0f minutes during business hours starting %s",
				dur.Minutes(), first.Timestamp.Format("Jan 2 15:04")),
		)
		if err != nil {
			a.logger.Error("building idle abuse violation", "error", err)
			return
		}
		v.WithLocation(first.Location)
		out = append(out, v)
	}

	for _, e := range in.GPS {
		idle := e.Status == fleet.GPSStatusIdle || e.SpeedMPH <= a.cfg.MaxIdleSpeedMPH
		if idle && a.inBusinessHours(e.Timestamp) {
			run = append(run, e)
			continue
		}
		flush()
	}
	flush()
	return out
}

var _ Analyzer = (*TemporalAnalyzer)(nil)
