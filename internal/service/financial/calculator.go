package financial

import (
	"sort"

	"github.com/madisoncarter1234/fleetv3/internal/domain/values"
	"github.com/madisoncarter1234/fleetv3/internal/domain/violation"
	"github.com/madisoncarter1234/fleetv3/internal/infrastructure/config"
)

// Impact is the aggregate financial picture of one audit run. Projections
// scale the confidence-weighted loss to standard reporting periods; they
// are informational and never feed back into scoring.
type Impact struct {
	TotalLoss              values.Money `json:"total_estimated_loss"`
	ConfidenceWeightedLoss values.Money `json:"confidence_weighted_loss"`
	WeeklyProjection       values.Money `json:"weekly_projection"`
	MonthlyProjection      values.Money `json:"monthly_projection"`
	AnnualProjection       values.Money `json:"annual_projection"`

	HighRiskVehicles []string                 `json:"high_risk_vehicles"`
	PerVehicle       map[string]VehicleImpact `json:"per_vehicle"`
}

// VehicleImpact is one vehicle's share of the run's losses.
type VehicleImpact struct {
	TotalLoss         values.Money `json:"total_loss"`
	WeightedLoss      values.Money `json:"confidence_weighted_loss"`
	ViolationCount    int          `json:"violation_count"`
	Types             []string     `json:"violation_types"`
	WeeklyProjection  values.Money `json:"weekly_projection"`
	MonthlyProjection values.Money `json:"monthly_projection"`
}

// Calculator converts a consolidated violation list into loss aggregates.
type Calculator struct {
	cfg config.FinancialConfig
}

func NewCalculator(cfg config.FinancialConfig) *Calculator {
	return &Calculator{cfg: cfg}
}

// TierWeight maps a confidence to its loss-weighting tier. The cutoffs are
// configured, not derived; they were tuned against real fleets.
func (c *Calculator) TierWeight(confidence float64) float64 {
	switch {
	case confidence > c.cfg.HighConfidenceCutoff:
		return c.cfg.HighTierWeight
	case confidence >= c.cfg.LowConfidenceCutoff:
		return c.cfg.MidTierWeight
	default:
		return c.cfg.LowTierWeight
	}
}

// Assess computes the run's financial impact over its audit window. The
// violations are immutable by this stage; Assess only reads them.
func (c *Calculator) Assess(violations []*violation.Violation, window values.TimeWindow) (*Impact, error) {
	days := float64(window.Days())

	impact := &Impact{
		TotalLoss:              values.ZeroUSD(),
		ConfidenceWeightedLoss: values.ZeroUSD(),
		PerVehicle:             make(map[string]VehicleImpact),
	}
	highRisk := make(map[string]bool)

	for _, v := range violations {
		weighted := v.EstimatedLoss.MulFloat(c.TierWeight(v.Confidence)).RoundToNearestCent()

		total, err := impact.TotalLoss.Add(v.EstimatedLoss)
		if err != nil {
			return nil, err
		}
		impact.TotalLoss = total
		wTotal, err := impact.ConfidenceWeightedLoss.Add(weighted)
		if err != nil {
			return nil, err
		}
		impact.ConfidenceWeightedLoss = wTotal

		for _, vehicle := range v.Vehicles {
			if v.Severity >= violation.SeverityHigh {
				highRisk[vehicle] = true
			}
			pv, ok := impact.PerVehicle[vehicle]
			if !ok {
				pv = VehicleImpact{TotalLoss: values.ZeroUSD(), WeightedLoss: values.ZeroUSD()}
			}
			if pv.TotalLoss, err = pv.TotalLoss.Add(v.EstimatedLoss); err != nil {
				return nil, err
			}
			if pv.WeightedLoss, err = pv.WeightedLoss.Add(weighted); err != nil {
				return nil, err
			}
			pv.ViolationCount++
			pv.Types = appendUnique(pv.Types, string(v.Type))
			impact.PerVehicle[vehicle] = pv
		}
	}

	impact.WeeklyProjection = project(impact.ConfidenceWeightedLoss, 7, days)
	impact.MonthlyProjection = project(impact.ConfidenceWeightedLoss, 30, days)
	impact.AnnualProjection = project(impact.ConfidenceWeightedLoss, 365, days)

	for id, pv := range impact.PerVehicle {
		pv.WeeklyProjection = project(pv.WeightedLoss, 7, days)
		pv.MonthlyProjection = project(pv.WeightedLoss, 30, days)
		impact.PerVehicle[id] = pv
	}

	for id := range highRisk {
		impact.HighRiskVehicles = append(impact.HighRiskVehicles, id)
	}
	sort.Strings(impact.HighRiskVehicles)

	return impact, nil
}

func project(weighted values.Money, periodDays, windowDays float64) values.Money {
	return weighted.MulFloat(periodDays / windowDays).RoundToNearestCent()
}

func appendUnique(xs []string, x string) []string {
	for _, existing := range xs {
		if existing == x {
			return xs
		}
	}
	return append(xs, x)
}
