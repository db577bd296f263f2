package detection

import (
	"log/slog"
	"time"

	"github.com/madisoncarter1234/fleetv3/internal/domain/values"
	"github.com/madisoncarter1234/fleetv3/internal/domain/violation"
)

// AdvisoryCandidate is a violation-shaped record produced outside the
// engine, typically by a generative advisory pass. Its presence is purely
// additive: detection behaves identically without it.
type AdvisoryCandidate struct {
	ViolationType string    `json:"violation_type"`
	VehicleID     string    `json:"vehicle_id"`
	DriverName    string    `json:"driver_name,omitempty"`
	Confidence    float64   `json:"confidence"`
	Severity      string    `json:"severity"`
	EstimatedLoss float64   `json:"estimated_loss"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	Location      string    `json:"location,omitempty"`
	Evidence      []string  `json:"evidence"`
}

// IntakeAdvisory converts external candidates into engine violations,
// clamping each to valid ranges. External input is not trusted to satisfy
// engine invariants: confidence is clamped to [0,1], negative losses go to
// zero, and candidates with no vehicle are dropped. Candidates without
// evidence get a single fact noting the missing detail rather than being
// silently discarded.
func IntakeAdvisory(candidates []AdvisoryCandidate, logger *slog.Logger) []*violation.Violation {
	if logger == nil {
		logger = slog.Default()
	}

	var out []*violation.Violation
	for _, c := range candidates {
		if c.VehicleID == "" {
			logger.Debug("advisory candidate dropped", "reason", "no vehicle", "type", c.ViolationType)
			continue
		}

		conf := c.Confidence
		if conf < 0 {
			conf = 0
		}
		if conf > 1 {
			conf = 1
		}
		evidence := c.Evidence
		if len(evidence) == 0 {
			evidence = []string{"advisory finding supplied without supporting detail"}
		}

		v, err := violation.New(
			violation.ParseType(c.ViolationType), AnalyzerAdvisory, c.VehicleID,
			conf, violation.ParseSeverity(c.Severity),
			lossUSD(c.EstimatedLoss),
			values.NewTimeWindow(c.Start, c.End),
			evidence...,
		)
		if err != nil {
			logger.Debug("advisory candidate dropped", "reason", err, "type", c.ViolationType)
			continue
		}
		v.WithDriver(c.DriverName).WithLocation(c.Location)
		out = append(out, v)
	}
	return out
}
