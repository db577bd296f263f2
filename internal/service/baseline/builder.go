package baseline

import (
	"log/slog"

	"github.com/montanaflynn/stats"

	"github.com/madisoncarter1234/fleetv3/internal/domain/errors"
	"github.com/madisoncarter1234/fleetv3/internal/domain/fleet"
)

// Baseline is one vehicle's historical purchasing profile. Pattern analysis
// measures deviation against it.
type Baseline struct {
	VehicleID        string  `json:"vehicle_id"`
	MeanAmount       float64 `json:"mean_amount"`
	StddevAmount     float64 `json:"stddev_amount"`
	MeanGallons      float64 `json:"mean_gallons"`
	StddevGallons    float64 `json:"stddev_gallons"`
	MeanIntervalDays float64 `json:"mean_interval_days"`
	SampleCount      int     `json:"sample_count"`
}

// Builder computes per-vehicle baselines from fuel history.
type Builder struct {
	minSamples int
	logger     *slog.Logger
}

// NewBuilder creates a baseline builder. Vehicles with fewer than minSamples
// usable transactions get no baseline rather than a zero-filled one.
func NewBuilder(minSamples int, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{minSamples: minSamples, logger: logger}
}

// Build computes the baseline for one vehicle from its transactions,
// ordered by timestamp. It fails softly: below the sample floor the error
// is an insufficient-baseline AppError, which callers treat as a skip.
func (b *Builder) Build(vehicleID string, txns []fleet.FuelTransaction) (*Baseline, error) {
	if len(txns) < b.minSamples {
		return nil, errors.NewInsufficientBaselineError(vehicleID, len(txns))
	}

	var amounts, gallons, intervals []float64
	var prev *fleet.FuelTransaction
	for i := range txns {
		t := txns[i]
		if t.HasAmount() {
			amounts = append(amounts, *t.Amount)
		}
		if t.HasGallons() {
			gallons = append(gallons, *t.Gallons)
		}
		if prev != nil {
			intervals = append(intervals, t.Timestamp.Sub(prev.Timestamp).Hours()/24)
		}
		prev = &txns[i]
	}

	if len(amounts) < b.minSamples && len(gallons) < b.minSamples {
		return nil, errors.NewInsufficientBaselineError(vehicleID, len(amounts))
	}

	bl := &Baseline{VehicleID: vehicleID, SampleCount: len(txns)}
	bl.MeanAmount, bl.StddevAmount = meanAndStddev(amounts)
	bl.MeanGallons, bl.StddevGallons = meanAndStddev(gallons)
	if len(intervals) > 0 {
		bl.MeanIntervalDays, _ = stats.Mean(intervals)
	}
	return bl, nil
}

// BuildTable builds baselines for every vehicle in the batch. Vehicles
// below the sample floor are simply absent from the table.
func (b *Builder) BuildTable(batch fleet.Batch) map[string]*Baseline {
	table := make(map[string]*Baseline)
	for _, id := range batch.VehicleIDs() {
		txns := batch.FuelForVehicle(id)
		if len(txns) == 0 {
			continue
		}
		bl, err := b.Build(id, txns)
		if err != nil {
			b.logger.Debug("baseline skipped", "vehicle_id", id, "samples", len(txns), "error", err)
			continue
		}
		table[id] = bl
	}
	return table
}

// HasAmountSignal reports whether the baseline can score dollar amounts.
func (bl *Baseline) HasAmountSignal() bool {
	return bl.StddevAmount > 0
}

func meanAndStddev(xs []float64) (float64, float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	mean, err := stats.Mean(xs)
	if err != nil {
		return 0, 0
	}
	if len(xs) < 2 {
		return mean, 0
	}
	sd, err := stats.StandardDeviationSample(xs)
	if err != nil {
		return mean, 0
	}
	return mean, sd
}
