package detection

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/madisoncarter1234/fleetv3/internal/domain/values"
	"github.com/madisoncarter1234/fleetv3/internal/domain/violation"
	"github.com/madisoncarter1234/fleetv3/internal/infrastructure/config"
)

// VolumeAnalyzer flags purchases that physically could not fit the tank:
// single fills past capacity, rapid back-to-back large fills, and daily
// totals past what one vehicle can burn.
type VolumeAnalyzer struct {
	cfg      config.VolumeConfig
	refPrice float64
	logger   *slog.Logger
}

func NewVolumeAnalyzer(cfg config.VolumeConfig, refPrice float64, logger *slog.Logger) *VolumeAnalyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &VolumeAnalyzer{cfg: cfg, refPrice: refPrice, logger: logger}
}

func (a *VolumeAnalyzer) Name() string { return AnalyzerVolume }

func (a *VolumeAnalyzer) Analyze(ctx context.Context, in VehicleInput) ([]*violation.Violation, error) {
	capacity := in.Profile.TankCapacityGallons
	if capacity <= 0 {
		return nil, nil
	}

	var out []*violation.Violation

	// Transactions claimed by a rapid-refill violation are excluded from
	// the daily-excess sum so one overfill never counts twice.
	claimed := make(map[int]bool)

	out = append(out, a.capacityViolations(in, capacity)...)
	rapid, claimedIdx := a.rapidRefillViolations(in, capacity)
	out = append(out, rapid...)
	for _, i := range claimedIdx {
		claimed[i] = true
	}
	out = append(out, a.dailyExcessViolations(in, capacity, claimed)...)

	return out, nil
}

// capacityViolations flags single purchases above capacity times the
// excess ratio. The comparison is strictly greater: a purchase landing
// exactly on the threshold passes.
func (a *VolumeAnalyzer) capacityViolations(in VehicleInput, capacity float64) []*violation.Violation {
	var out []*violation.Violation
	for _, t := range in.Fuel {
		if !t.HasGallons() {
			continue
		}
		gallons := *t.Gallons
		if gallons <= capacity*a.cfg.CapacityExcessRatio {
			continue
		}

		severity := violation.SeverityMedium
		if gallons > capacity*a.cfg.CapacitySevereRatio {
			severity = violation.SeverityHigh
		}
		v, err := violation.New(
			violation.TypeTankCapacity, AnalyzerVolume, in.VehicleID,
			0.95, severity,
			lossUSD((gallons-capacity)*a.refPrice),
			values.Instant(t.Timestamp),
			fmt.Sprintf("purchase of %.1f gallons exceeds tank capacity of %.0f gallons", gallons, capacity),
		)
		if err != nil {
			a.logger.Error("building tank capacity violation", "error", err)
			continue
		}
		v.WithDriver(t.DriverName).WithLocation(t.Location)
		out = append(out, v)
	}
	return out
}

// rapidRefillViolations flags a second large fill while the tank should
// still be full, and 24-hour combined totals no single tank explains. It
// returns the indices of transactions it claimed.
func (a *VolumeAnalyzer) rapidRefillViolations(in VehicleInput, capacity float64) ([]*violation.Violation, []int) {
	var out []*violation.Violation
	var claimed []int

	for j := 1; j < len(in.Fuel); j++ {
		earlier, later := in.Fuel[j-1], in.Fuel[j]
		if !earlier.HasGallons() || !later.HasGallons() {
			continue
		}
		gap := later.Timestamp.Sub(earlier.Timestamp)
		if gap > a.cfg.RapidRefillWindow {
			continue
		}
		if *later.Gallons <= capacity*a.cfg.RapidRefillLaterRatio {
			continue
		}

		emergency := *earlier.Gallons < a.cfg.EmergencyMinGallons || earlier.Location != later.Location
		if !emergency && *earlier.Gallons <= capacity*a.cfg.RapidRefillEarlierRatio {
			continue
		}

		confidence := 0.90
		evidence := []string{
			fmt.Sprintf("refill of %.1f gallons only %.1f hours after a %.1f gallon purchase, tank should still hold fuel",
				*later.Gallons, gap.Hours(), *earlier.Gallons),
		}
		if emergency {
			confidence /= 2
			evidence = append(evidence, "emergency refuel pattern: small or relocated earlier purchase")
		}

		v, err := violation.New(
			violation.TypeRapidRefill, AnalyzerVolume, in.VehicleID,
			confidence, violation.SeverityHigh,
			lossUSD((*earlier.Gallons+*later.Gallons-capacity)*a.refPrice),
			values.NewTimeWindow(earlier.Timestamp, later.Timestamp),
			evidence...,
		)
		if err != nil {
			a.logger.Error("building rapid refill violation", "error", err)
			continue
		}
		v.WithDriver(earlier.DriverName).WithDriver(later.DriverName)
		v.WithLocation(earlier.Location).WithLocation(later.Location)
		out = append(out, v)
		claimed = append(claimed, j-1, j)
	}

	// Combined rolling total: any trailing 24-hour span whose unclaimed
	// fills sum past the combined ratio.
	already := make(map[int]bool)
	for _, i := range claimed {
		already[i] = true
	}
	for j := range in.Fuel {
		if already[j] || !in.Fuel[j].HasGallons() {
			continue
		}
		total := 0.0
		var members []int
		for i := 0; i <= j; i++ {
			if already[i] || !in.Fuel[i].HasGallons() {
				continue
			}
			if in.Fuel[j].Timestamp.Sub(in.Fuel[i].Timestamp) > 24*time.Hour {
				continue
			}
			total += *in.Fuel[i].Gallons
			members = append(members, i)
		}
		if len(members) < 2 || total <= capacity*a.cfg.CombinedDayRatio {
			continue
		}

		first := in.Fuel[members[0]]
		last := in.Fuel[members[len(members)-1]]
		v, err := violation.New(
			violation.TypeRapidRefill, AnalyzerVolume, in.VehicleID,
			0.90, violation.SeverityHigh,
			lossUSD((total-capacity)*a.refPrice),
			values.NewTimeWindow(first.Timestamp, last.Timestamp),
			fmt.Sprintf("%d purchases totaling %.1f gallons within 24 hours against a %.0f gallon tank", len(members), total, capacity),
		)
		if err != nil {
			a.logger.Error("building combined refill violation", "error", err)
			continue
		}
		for _, i := range members {
			v.WithDriver(in.Fuel[i].DriverName).WithLocation(in.Fuel[i].Location)
			already[i] = true
			claimed = append(claimed, i)
		}
		out = append(out, v)
	}

	return out, claimed
}

// dailyExcessViolations flags calendar days whose unclaimed fills sum past
// the daily ratio.
func (a *VolumeAnalyzer) dailyExcessViolations(in VehicleInput, capacity float64, claimed map[int]bool) []*violation.Violation {
	type day struct {
		total   int
		gallons float64
		members []int
	}
	days := make(map[string]*day)
	order := []string{}
	for i, t := range in.Fuel {
		if claimed[i] || !t.HasGallons() {
			continue
		}
		key := t.Timestamp.Format("2006-01-02")
		d, ok := days[key]
		if !ok {
			d = &day{}
			days[key] = d
			order = append(order, key)
		}
		d.total++
		d.gallons += *t.Gallons
		d.members = append(d.members, i)
	}

	var out []*violation.Violation
	for _, key := range order {
		d := days[key]
		if d.gallons <= capacity*a.cfg.DailyExcessRatio {
			continue
		}
		first := in.Fuel[d.members[0]]
		last := in.Fuel[d.members[len(d.members)-1]]
		v, err := violation.New(
			violation.TypeDailyExcess, AnalyzerVolume, in.VehicleID,
			0.85, violation.SeverityHigh,
			lossUSD((d.gallons-capacity)*a.refPrice),
			values.NewTimeWindow(first.Timestamp, last.Timestamp),
			fmt.Sprintf("%d purchases on %s totaling %.1f gallons against a %.0f gallon tank", d.total, key, d.gallons, capacity),
		)
		if err != nil {
			a.logger.Error("building daily excess violation", "error", err)
			continue
		}
		for _, i := range d.members {
			v.WithDriver(in.Fuel[i].DriverName).WithLocation(in.Fuel[i].Location)
		}
		out = append(out, v)
	}
	return out
}

var _ Analyzer = (*VolumeAnalyzer)(nil)
