package detection

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/madisoncarter1234/fleetv3/internal/domain/fleet"
	"github.com/madisoncarter1234/fleetv3/internal/domain/values"
	"github.com/madisoncarter1234/fleetv3/internal/domain/violation"
	"github.com/madisoncarter1234/fleetv3/internal/infrastructure/config"
)

// PriceAnalyzer checks every purchase carrying both gallons and amount
// against the regional price band. Records missing either signal are
// skipped per record, never failed.
type PriceAnalyzer struct {
	cfg    config.PriceConfig
	logger *slog.Logger
}

func NewPriceAnalyzer(cfg config.PriceConfig, logger *slog.Logger) *PriceAnalyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &PriceAnalyzer{cfg: cfg, logger: logger}
}

func (a *PriceAnalyzer) Name() string { return AnalyzerPrice }

func (a *PriceAnalyzer) Analyze(ctx context.Context, in VehicleInput) ([]*violation.Violation, error) {
	var out []*violation.Violation
	for _, t := range in.Fuel {
		ppg, ok := t.PricePerGallon()
		if !ok {
			continue
		}
		if v := a.check(in.VehicleID, t, ppg); v != nil {
			out = append(out, v)
		}
	}
	return out, nil
}

func (a *PriceAnalyzer) check(vehicleID string, t fleet.FuelTransaction, ppg float64) *violation.Violation {
	gallons, amount := *t.Gallons, *t.Amount
	mid := (a.cfg.BandFloor + a.cfg.BandCeil) / 2
	expected := gallons * mid

	var (
		vType      violation.Type
		confidence float64
		severity   violation.Severity
		loss       float64
		fact       string
	)
	switch {
	case amount > expected*(1+a.cfg.ExcessCostRatio):
		vType = violation.TypePriceExcess
		confidence = 0.75
		severity = violation.SeverityMedium
		loss = amount - expected
		fact = fmt.Sprintf("transaction of $%.2f is $%.2f over the expected cost of %.1f gallons at $%.2f/gal, consistent with non-fuel items on the ticket",
			amount, loss, gallons, mid)
	case ppg > a.cfg.BandCeil+a.cfg.CeilSlackUSD:
		vType = violation.TypePriceExcess
		confidence = 0.60
		severity = violation.SeverityLow
		loss = (ppg - a.cfg.BandCeil) * gallons
		fact = fmt.Sprintf("price of $%.2f/gal far above the $%.2f-$%.2f regional band", ppg, a.cfg.BandFloor, a.cfg.BandCeil)
	default:
		return nil
	}

	// Small-volume, mid-range tickets look like store consumables rather
	// than fuel. Mitigation, not suppression: the violation still surfaces
	// at reduced confidence.
	evidence := []string{fact}
	if gallons > 0 && gallons <= a.cfg.NonFuelMaxGallons &&
		amount >= a.cfg.NonFuelMinAmount && amount <= a.cfg.NonFuelMaxAmount {
		vType = violation.TypeNonFuelPurchase
		if confidence > 0.55 {
			confidence = 0.55
		}
		evidence = append(evidence, "volume and ticket size match a non-fuel consumable purchase")
	}

	v, err := violation.New(
		vType, AnalyzerPrice, vehicleID,
		confidence, severity,
		lossUSD(loss),
		values.Instant(t.Timestamp),
		evidence...,
	)
	if err != nil {
		a.logger.Error("building price violation", "error", err)
		return nil
	}
	return v.WithDriver(t.DriverName).WithLocation(t.Location)
}

var _ Analyzer = (*PriceAnalyzer)(nil)
