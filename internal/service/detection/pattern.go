package detection

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/madisoncarter1234/fleetv3/internal/domain/errors"
	"github.com/madisoncarter1234/fleetv3/internal/domain/values"
	"github.com/madisoncarter1234/fleetv3/internal/domain/violation"
	"github.com/madisoncarter1234/fleetv3/internal/infrastructure/config"
)

// PatternAnalyzer measures each purchase against the vehicle's own
// historical baseline. Only excess spend triggers; a driver suddenly
// spending less is not a violation.
type PatternAnalyzer struct {
	cfg    config.PatternConfig
	logger *slog.Logger
}

func NewPatternAnalyzer(cfg config.PatternConfig, logger *slog.Logger) *PatternAnalyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &PatternAnalyzer{cfg: cfg, logger: logger}
}

func (a *PatternAnalyzer) Name() string { return AnalyzerPattern }

func (a *PatternAnalyzer) Analyze(ctx context.Context, in VehicleInput) ([]*violation.Violation, error) {
	if in.Baseline == nil || in.Baseline.SampleCount < a.cfg.MinSamples {
		samples := 0
		if in.Baseline != nil {
			samples = in.Baseline.SampleCount
		}
		return nil, errors.NewInsufficientBaselineError(in.VehicleID, samples)
	}

	var out []*violation.Violation
	out = append(out, a.zScoreViolations(in)...)
	out = append(out, a.frequencyViolations(in)...)
	out = append(out, a.unusualLocationViolations(in)...)
	return out, nil
}

// zScoreViolations flags purchases whose dollar amount sits far above the
// vehicle's mean. A zero stddev means no variation to score against and is
// skipped, never treated as infinite deviation.
func (a *PatternAnalyzer) zScoreViolations(in VehicleInput) []*violation.Violation {
	bl := in.Baseline
	if !bl.HasAmountSignal() {
		return nil
	}

	var out []*violation.Violation
	for _, t := range in.Fuel {
		if !t.HasAmount() {
			continue
		}
		z := (*t.Amount - bl.MeanAmount) / bl.StddevAmount
		if z < a.cfg.ZScoreLow {
			continue
		}

		confidence, severity := a.scoreZ(z)
		v, err := violation.New(
			violation.TypePatternDeviation, AnalyzerPattern, in.VehicleID,
			confidence, severity,
			lossUSD(*t.Amount-bl.MeanAmount),
			values.Instant(t.Timestamp),
			fmt.Sprintf("purchase of $%.2f is %.1f standard deviations above the vehicle's $%.2f average", *t.Amount, z, bl.MeanAmount),
		)
		if err != nil {
			a.logger.Error("building pattern deviation violation", "error", err)
			continue
		}
		v.WithDriver(t.DriverName).WithLocation(t.Location)
		out = append(out, v)
	}
	return out
}

// scoreZ maps a z-score to confidence: the high band scales linearly from
// 0.85 at the high threshold to 1.0 one deviation above it, the low band
// from 0.65 to 0.84.
func (a *PatternAnalyzer) scoreZ(z float64) (float64, violation.Severity) {
	if z >= a.cfg.ZScoreHigh {
		conf := 0.85 + 0.15*(z-a.cfg.ZScoreHigh)
		if conf > 1 {
			conf = 1
		}
		return conf, violation.SeverityHigh
	}
	span := a.cfg.ZScoreHigh - a.cfg.ZScoreLow
	conf := 0.65 + 0.19*(z-a.cfg.ZScoreLow)/span
	return conf, violation.SeverityMedium
}

// frequencyViolations flags days with more purchases than the daily limit,
// independent of how much was spent.
func (a *PatternAnalyzer) frequencyViolations(in VehicleInput) []*violation.Violation {
	type day struct{ members []int }
	days := make(map[string]*day)
	order := []string{}
	for i, t := range in.Fuel {
		key := t.Timestamp.Format("2006-01-02")
		d, ok := days[key]
		if !ok {
			d = &day{}
			days[key] = d
			order = append(order, key)
		}
		d.members = append(d.members, i)
	}

	var out []*violation.Violation
	for _, key := range order {
		d := days[key]
		if len(d.members) <= a.cfg.DailyFrequencyLimit {
			continue
		}

		// Loss estimate covers only the purchases beyond the allowed count.
		extra := 0.0
		for _, i := range d.members[a.cfg.DailyFrequencyLimit:] {
			extra += in.Fuel[i].AmountOrZero()
		}
		first := in.Fuel[d.members[0]]
		last := in.Fuel[d.members[len(d.members)-1]]
		v, err := violation.New(
			violation.TypeFrequencyAnomaly, AnalyzerPattern, in.VehicleID,
			0.60, violation.SeverityMedium,
			lossUSD(extra),
			values.NewTimeWindow(first.Timestamp, last.Timestamp),
			fmt.Sprintf("%d fuel purchases on %s, more than the expected maximum of %d", len(d.members), key, a.cfg.DailyFrequencyLimit),
		)
		if err != nil {
			a.logger.Error("building frequency anomaly violation", "error", err)
			continue
		}
		for _, i := range d.members {
			v.WithDriver(in.Fuel[i].DriverName).WithLocation(in.Fuel[i].Location)
		}
		out = append(out, v)
	}
	return out
}

// unusualLocationViolations flags a station used exactly once by a vehicle
// that otherwise refuels at a stable set of stations. Low confidence: a
// one-off stop is often a legitimate route change.
func (a *PatternAnalyzer) unusualLocationViolations(in VehicleInput) []*violation.Violation {
	if len(in.Fuel) < a.cfg.MinSamples {
		return nil
	}
	counts := make(map[string]int)
	for _, t := range in.Fuel {
		if t.Location != "" {
			counts[t.Location]++
		}
	}
	if len(counts) <= 3 {
		return nil
	}

	var out []*violation.Violation
	for _, t := range in.Fuel {
		if t.Location == "" || counts[t.Location] != 1 {
			continue
		}
		v, err := violation.New(
			violation.TypeUnusualLocation, AnalyzerPattern, in.VehicleID,
			0.60, violation.SeverityMedium,
			lossUSD(0),
			values.Instant(t.Timestamp),
			fmt.Sprintf("single purchase at %s, a station this vehicle never otherwise uses", t.Location),
		)
		if err != nil {
			a.logger.Error("building unusual location violation", "error", err)
			continue
		}
		v.WithDriver(t.DriverName).WithLocation(t.Location)
		out = append(out, v)
	}
	return out
}

var _ Analyzer = (*PatternAnalyzer)(nil)
