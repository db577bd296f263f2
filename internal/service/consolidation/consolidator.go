package consolidation

import (
	"log/slog"
	"sort"

	"github.com/madisoncarter1234/fleetv3/internal/domain/values"
	"github.com/madisoncarter1234/fleetv3/internal/domain/violation"
	"github.com/madisoncarter1234/fleetv3/internal/infrastructure/config"
)

// Consolidator merges analyzer candidates referring to the same real-world
// incident. Grouping is an explicit sweep over candidates sorted by
// vehicle and window start, so identical inputs always group identically.
type Consolidator struct {
	cfg    config.ConsolidationConfig
	logger *slog.Logger
}

func NewConsolidator(cfg config.ConsolidationConfig, logger *slog.Logger) *Consolidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consolidator{cfg: cfg, logger: logger}
}

// Consolidate groups candidates into incidents per vehicle and applies the
// merge rules: maximum severity, critical escalation when enough
// high-severity members stack, a single corroboration boost when distinct
// analyzers agree, and loss summed without double-counting volume checks
// that price the same fuel.
func (c *Consolidator) Consolidate(candidates []*violation.Violation) []*violation.Violation {
	byVehicle := make(map[string][]*violation.Violation)
	var vehicles []string
	for _, v := range candidates {
		key := v.PrimaryVehicle()
		if _, ok := byVehicle[key]; !ok {
			vehicles = append(vehicles, key)
		}
		byVehicle[key] = append(byVehicle[key], v)
	}
	sort.Strings(vehicles)

	var out []*violation.Violation
	for _, vehicle := range vehicles {
		out = append(out, c.consolidateVehicle(byVehicle[vehicle])...)
	}
	return out
}

func (c *Consolidator) consolidateVehicle(candidates []*violation.Violation) []*violation.Violation {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if !a.Window.Start.Equal(b.Window.Start) {
			return a.Window.Start.Before(b.Window.Start)
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		return a.Type < b.Type
	})

	var groups [][]*violation.Violation
	taken := make([]bool, len(candidates))
	for i, seed := range candidates {
		if taken[i] {
			continue
		}
		group := []*violation.Violation{seed}
		taken[i] = true
		for j := i + 1; j < len(candidates); j++ {
			if taken[j] {
				continue
			}
			if c.related(group, candidates[j]) {
				group = append(group, candidates[j])
				taken[j] = true
			}
		}
		groups = append(groups, group)
	}

	var out []*violation.Violation
	for _, g := range groups {
		out = append(out, c.merge(g))
	}
	return out
}

// related reports whether a candidate belongs to an open incident group:
// window within the grouping range of any member, plus a shared location
// or driver with that member. A candidate carrying neither dimension
// cannot contradict the grouping and joins on time alone.
func (c *Consolidator) related(group []*violation.Violation, v *violation.Violation) bool {
	for _, member := range group {
		if member.Window.Gap(v.Window) > c.cfg.GroupingWindow {
			continue
		}
		if member.SharesDimension(v) || dimensionless(member) || dimensionless(v) {
			return true
		}
	}
	return false
}

func dimensionless(v *violation.Violation) bool {
	return len(v.Locations) == 0 && len(v.Drivers) == 0
}

func (c *Consolidator) merge(group []*violation.Violation) *violation.Violation {
	head := group[0]
	if len(group) == 1 {
		return head
	}

	highMembers := 0
	analyzers := make(map[string]bool)
	for _, v := range group {
		if v.Severity >= violation.SeverityHigh {
			highMembers++
		}
		for _, a := range v.SourceAnalyzers {
			analyzers[a] = true
		}
	}

	// Loss is computed from the members' pre-merge figures: volume checks
	// pricing the same fuel count once, everything else sums. Absorb also
	// sums, so the total must be taken before the head mutates.
	loss := groupLoss(group)

	for _, v := range group[1:] {
		if err := head.Absorb(v); err != nil {
			c.logger.Error("absorbing candidate into incident", "error", err)
		}
	}
	head.EstimatedLoss = loss

	if highMembers >= c.cfg.CriticalMemberCount {
		head.Severity = violation.SeverityCritical
	}
	if len(analyzers) >= 2 {
		head.BoostConfidence(c.cfg.CorroborationBoost)
	}
	return head
}

// groupLoss totals an incident's loss: volume-family members overlap on
// the same physical fuel, so only the largest counts; everything else
// measures an independent loss channel and sums.
func groupLoss(group []*violation.Violation) (total values.Money) {
	total = values.ZeroUSD()
	maxVolume := values.ZeroUSD()
	for _, v := range group {
		if volumeFamily(v.Type) {
			if v.EstimatedLoss.Compare(maxVolume) > 0 {
				maxVolume = v.EstimatedLoss
			}
			continue
		}
		sum, err := total.Add(v.EstimatedLoss)
		if err != nil {
			continue
		}
		total = sum
	}
	sum, err := total.Add(maxVolume)
	if err != nil {
		return total
	}
	return sum
}

func volumeFamily(t violation.Type) bool {
	switch t {
	case violation.TypeTankCapacity, violation.TypeRapidRefill, violation.TypeDailyExcess:
		return true
	}
	return false
}
