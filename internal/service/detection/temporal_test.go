package detection

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/madisoncarter1234/fleetv3/internal/domain/fleet"
	"github.com/madisoncarter1234/fleetv3/internal/domain/values"
	"github.com/madisoncarter1234/fleetv3/internal/domain/violation"
)

func newTemporal() *TemporalAnalyzer {
	return NewTemporalAnalyzer(testEngine.BusinessHours, testEngine.Temporal, testEngine.ReferenceFuelPrice, nil)
}

func TestTemporalAnalyzer_AfterHoursFuel(t *testing.T) {
	ctx := context.Background()
	a := newTemporal()

	tests := []struct {
		name     string
		ts       time.Time
		wantConf float64
		none     bool
	}{
		{name: "deep night purchase", ts: at(3, 3, 30), wantConf: 0.90},
		{name: "evening shoulder purchase", ts: at(3, 21, 0), wantConf: 0.65},
		{name: "early shoulder purchase", ts: at(3, 6, 15), wantConf: 0.65},
		{name: "band closes on the hour", ts: at(3, 5, 0), wantConf: 0.90},
		{name: "just past the deep-night band", ts: at(3, 5, 30), wantConf: 0.65},
		{name: "mid-day purchase", ts: at(3, 12, 0), none: true},
		{name: "window start is business hours", ts: at(3, 7, 0), none: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := VehicleInput{
				VehicleID: "VAN-001",
				Profile:   vanProfile("VAN-001"),
				Fuel:      []fleet.FuelTransaction{fuelTxn("VAN-001", tt.ts, 12, 45, "Shell Atlanta")},
			}
			got, err := a.Analyze(ctx, in)
			require.NoError(t, err)

			after := findByType(got, violation.TypeAfterHours)
			if tt.none {
				assert.Empty(t, after)
				return
			}
			require.Len(t, after, 1)
			assert.InDelta(t, tt.wantConf, after[0].Confidence, 0.001)
		})
	}
}

func TestTemporalAnalyzer_WeekendEscalation(t *testing.T) {
	ctx := context.Background()
	a := newTemporal()

	// March 2 2025 is a Sunday.
	weekend := time.Date(2025, 3, 2, 3, 0, 0, 0, time.UTC)
	in := VehicleInput{
		VehicleID: "VAN-001",
		Profile:   vanProfile("VAN-001"),
		Fuel:      []fleet.FuelTransaction{fuelTxn("VAN-001", weekend, 12, 45, "Shell Atlanta")},
	}
	got, err := a.Analyze(ctx, in)
	require.NoError(t, err)

	after := findByType(got, violation.TypeAfterHours)
	require.Len(t, after, 1, "weekend adds escalation, never a second violation")
	assert.Equal(t, violation.SeverityHigh, after[0].Severity)
}

func TestTemporalAnalyzer_ImpossibleInterval(t *testing.T) {
	ctx := context.Background()
	a := newTemporal()

	atlanta := values.MustNewCoordinate(33.749, -84.388)
	macon := values.MustNewCoordinate(32.841, -83.632)

	t1 := fuelTxn("VAN-001", at(3, 10, 0), 12, 45, "Shell Atlanta")
	t1.Coordinate = &atlanta
	t2 := fuelTxn("VAN-001", at(3, 11, 0), 14, 52, "Exxon Macon")
	t2.Coordinate = &macon

	in := VehicleInput{
		VehicleID: "VAN-001",
		Profile:   vanProfile("VAN-001"),
		Fuel:      []fleet.FuelTransaction{t1, t2},
	}
	got, err := a.Analyze(ctx, in)
	require.NoError(t, err)

	impossible := findByType(got, violation.TypeImpossibleInterval)
	require.Len(t, impossible, 1)
	assert.InDelta(t, 0.85, impossible[0].Confidence, 0.001)
	assert.Equal(t, violation.SeverityHigh, impossible[0].Severity)
	assert.Equal(t, []string{"Shell Atlanta", "Exxon Macon"}, impossible[0].Locations)
}

func TestTemporalAnalyzer_IdleAbuse(t *testing.T) {
	ctx := context.Background()
	a := newTemporal()

	var gps []fleet.GPSEvent
	for i := 0; i < 5; i++ {
		e := gpsPing("VAN-001", at(3, 10, i*10), 33.749, -84.388, 0)
		e.Status = fleet.GPSStatusIdle
		gps = append(gps, e)
	}
	in := VehicleInput{
		VehicleID: "VAN-001",
		Profile:   vanProfile("VAN-001"),
		GPS:       gps,
	}
	got, err := a.Analyze(ctx, in)
	require.NoError(t, err)

	idle := findByType(got, violation.TypeIdleAbuse)
	require.Len(t, idle, 1)
	assert.InDelta(t, 0.60, idle[0].Confidence, 0.001)
	assert.Equal(t, violation.SeverityLow, idle[0].Severity)
	// 40 idle minutes at 0.8 gal/h and the reference price.
	assert.InDelta(t, (40.0/60)*0.8*3.75, idle[0].EstimatedLoss.ToFloat64(), 0.01)
}
