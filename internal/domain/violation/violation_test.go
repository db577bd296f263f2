package violation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/madisoncarter1234/fleetv3/internal/domain/errors"
	"github.com/madisoncarter1234/fleetv3/internal/domain/values"
)

func window(startHour int, d time.Duration) values.TimeWindow {
	start := time.Date(2025, 3, 3, startHour, 0, 0, 0, time.UTC)
	return values.NewTimeWindow(start, start.Add(d))
}

func candidate(t *testing.T, vType Type, conf float64, sev Severity, loss float64, startHour int) *Violation {
	t.Helper()
	v, err := New(vType, "fuel_volume", "VAN-001", conf, sev,
		values.MustNewMoneyFromFloat(loss, "USD"), window(startHour, time.Hour), "a fact")
	require.NoError(t, err)
	return v
}

func TestNew_Invariants(t *testing.T) {
	w := window(10, time.Hour)
	loss := values.MustNewMoneyFromFloat(50, "USD")

	tests := []struct {
		name string
		run  func() (*Violation, error)
	}{
		{"no evidence", func() (*Violation, error) {
			return New(TypeTankCapacity, "fuel_volume", "VAN-001", 0.9, SeverityHigh, loss, w)
		}},
		{"confidence above one", func() (*Violation, error) {
			return New(TypeTankCapacity, "fuel_volume", "VAN-001", 1.2, SeverityHigh, loss, w, "fact")
		}},
		{"negative confidence", func() (*Violation, error) {
			return New(TypeTankCapacity, "fuel_volume", "VAN-001", -0.1, SeverityHigh, loss, w, "fact")
		}},
		{"no vehicle", func() (*Violation, error) {
			return New(TypeTankCapacity, "fuel_volume", "", 0.9, SeverityHigh, loss, w, "fact")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.run()
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
		})
	}

	v, err := New(TypeTankCapacity, "fuel_volume", "VAN-001", 0.9, SeverityHigh, loss, w, "fact")
	require.NoError(t, err)
	assert.Equal(t, 1, v.MergedCount)
	assert.Equal(t, []string{"fuel_volume"}, v.SourceAnalyzers)
	assert.NotEqual(t, "", v.ID.String())
}

func TestViolation_Absorb(t *testing.T) {
	head := candidate(t, TypeTankCapacity, 0.70, SeverityMedium, 26.25, 10)
	head.WithLocation("Shell Atlanta")
	other := candidate(t, TypeLocationMismatch, 0.85, SeverityHigh, 45, 11)
	other.WithLocation("Shell Atlanta").WithDriver("M. Diaz")
	other.SourceAnalyzers = []string{"cross_source"}
	other.Evidence = []string{"no ping near the purchase"}

	require.NoError(t, head.Absorb(other))

	assert.InDelta(t, 71.25, head.EstimatedLoss.ToFloat64(), 0.001)
	assert.Equal(t, SeverityHigh, head.Severity)
	assert.Equal(t, 0.85, head.Confidence)
	// The stronger member's facts lead the merged evidence.
	assert.Equal(t, "no ping near the purchase", head.Evidence[0])
	assert.Len(t, head.Evidence, 2)
	assert.Equal(t, []string{"Shell Atlanta"}, head.Locations)
	assert.Equal(t, []string{"M. Diaz"}, head.Drivers)
	assert.ElementsMatch(t, []string{"fuel_volume", "cross_source"}, head.SourceAnalyzers)
	assert.Equal(t, 2, head.MergedCount)
	assert.Equal(t, window(10, time.Hour).Start, head.Window.Start)
	assert.Equal(t, window(11, time.Hour).End, head.Window.End)
}

func TestViolation_ConfidenceAdjustments(t *testing.T) {
	v := candidate(t, TypeRapidRefill, 0.90, SeverityHigh, 50, 10)
	v.HalveConfidence()
	assert.InDelta(t, 0.45, v.Confidence, 0.001)

	v.BoostConfidence(0.10)
	assert.InDelta(t, 0.55, v.Confidence, 0.001)
	v.BoostConfidence(0.60)
	assert.Equal(t, 1.0, v.Confidence)
}

func TestViolation_SharesDimension(t *testing.T) {
	a := candidate(t, TypeTankCapacity, 0.9, SeverityHigh, 10, 10)
	a.WithLocation("Shell Atlanta")
	b := candidate(t, TypeAfterHours, 0.6, SeverityMedium, 5, 11)
	b.WithDriver("M. Diaz")

	assert.False(t, a.SharesDimension(b))
	b.WithLocation("Shell Atlanta")
	assert.True(t, a.SharesDimension(b))
}

func TestSort_Ordering(t *testing.T) {
	low := candidate(t, TypeIdleAbuse, 0.60, SeverityLow, 5, 9)
	highLateStart := candidate(t, TypeFuelDumping, 0.95, SeverityHigh, 80, 14)
	highEarlyStart := candidate(t, TypeTankCapacity, 0.95, SeverityHigh, 60, 8)
	critical := candidate(t, TypeSharedCardUse, 0.80, SeverityCritical, 100, 12)
	mediumStrong := candidate(t, TypePatternDeviation, 0.85, SeverityMedium, 40, 10)
	mediumWeak := candidate(t, TypeAfterHours, 0.65, SeverityMedium, 30, 10)

	vs := []*Violation{low, mediumWeak, highLateStart, mediumStrong, critical, highEarlyStart}
	Sort(vs)

	assert.Equal(t, []*Violation{critical, highEarlyStart, highLateStart, mediumStrong, mediumWeak, low}, vs)
}

func TestSeverity_ParseAndEscalate(t *testing.T) {
	assert.Equal(t, SeverityCritical, ParseSeverity("critical"))
	assert.Equal(t, SeverityLow, ParseSeverity("bogus"))
	assert.Equal(t, SeverityHigh, SeverityMedium.Escalate())
	assert.Equal(t, SeverityCritical, SeverityCritical.Escalate())
	assert.Equal(t, "medium", SeverityMedium.String())
}
