package detection

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/madisoncarter1234/fleetv3/internal/domain/errors"
	"github.com/madisoncarter1234/fleetv3/internal/domain/fleet"
	"github.com/madisoncarter1234/fleetv3/internal/domain/violation"
	"github.com/madisoncarter1234/fleetv3/internal/service/baseline"
)

func testBaseline(vehicle string) *baseline.Baseline {
	return &baseline.Baseline{
		VehicleID:    vehicle,
		MeanAmount:   120,
		StddevAmount: 20,
		SampleCount:  10,
	}
}

func TestPatternAnalyzer_ZScore(t *testing.T) {
	ctx := context.Background()
	a := NewPatternAnalyzer(testEngine.Pattern, nil)

	tests := []struct {
		name         string
		amount       float64
		wantCount    int
		wantMinConf  float64
		wantMaxConf  float64
		wantSeverity violation.Severity
	}{
		{
			name:         "four deviations above the mean",
			amount:       200, // z = 4.0
			wantCount:    1,
			wantMinConf:  0.85,
			wantMaxConf:  1.0,
			wantSeverity: violation.SeverityHigh,
		},
		{
			name:         "between two and three deviations",
			amount:       170, // z = 2.5
			wantCount:    1,
			wantMinConf:  0.65,
			wantMaxConf:  0.84,
			wantSeverity: violation.SeverityMedium,
		},
		{
			name:      "normal purchase",
			amount:    130, // z = 0.5
			wantCount: 0,
		},
		{
			name:      "under-spend never triggers",
			amount:    20, // z = -5.0
			wantCount: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := VehicleInput{
				VehicleID: "VAN-001",
				Profile:   vanProfile("VAN-001"),
				Baseline:  testBaseline("VAN-001"),
				Fuel:      []fleet.FuelTransaction{fuelTxn("VAN-001", at(3, 10, 0), 12, tt.amount, "Shell Atlanta")},
			}
			got, err := a.Analyze(ctx, in)
			require.NoError(t, err)
			require.Len(t, got, tt.wantCount)
			if tt.wantCount == 0 {
				return
			}

			v := got[0]
			assert.Equal(t, violation.TypePatternDeviation, v.Type)
			assert.GreaterOrEqual(t, v.Confidence, tt.wantMinConf)
			assert.LessOrEqual(t, v.Confidence, tt.wantMaxConf)
			assert.Equal(t, tt.wantSeverity, v.Severity)
		})
	}
}

func TestPatternAnalyzer_InsufficientBaseline(t *testing.T) {
	ctx := context.Background()
	a := NewPatternAnalyzer(testEngine.Pattern, nil)

	in := VehicleInput{
		VehicleID: "VAN-001",
		Profile:   vanProfile("VAN-001"),
		Fuel:      []fleet.FuelTransaction{fuelTxn("VAN-001", at(3, 10, 0), 12, 200, "Shell Atlanta")},
	}
	got, err := a.Analyze(ctx, in)
	assert.Nil(t, got)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInsufficient))
}

func TestPatternAnalyzer_ZeroStddevSkipped(t *testing.T) {
	ctx := context.Background()
	a := NewPatternAnalyzer(testEngine.Pattern, nil)

	in := VehicleInput{
		VehicleID: "VAN-001",
		Profile:   vanProfile("VAN-001"),
		Baseline:  &baseline.Baseline{VehicleID: "VAN-001", MeanAmount: 120, StddevAmount: 0, SampleCount: 6},
		Fuel:      []fleet.FuelTransaction{fuelTxn("VAN-001", at(3, 10, 0), 12, 500, "Shell Atlanta")},
	}
	got, err := a.Analyze(ctx, in)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPatternAnalyzer_FrequencyAnomaly(t *testing.T) {
	ctx := context.Background()
	a := NewPatternAnalyzer(testEngine.Pattern, nil)

	in := VehicleInput{
		VehicleID: "VAN-001",
		Profile:   vanProfile("VAN-001"),
		Baseline:  testBaseline("VAN-001"),
		Fuel: []fleet.FuelTransaction{
			fuelTxn("VAN-001", at(3, 8, 0), 10, 120, "Shell Atlanta"),
			fuelTxn("VAN-001", at(3, 12, 0), 10, 118, "Shell Atlanta"),
			fuelTxn("VAN-001", at(3, 16, 0), 10, 122, "Shell Atlanta"),
		},
	}
	got, err := a.Analyze(ctx, in)
	require.NoError(t, err)

	freq := findByType(got, violation.TypeFrequencyAnomaly)
	require.Len(t, freq, 1)
	assert.Equal(t, 0.60, freq[0].Confidence)
	assert.Equal(t, violation.SeverityMedium, freq[0].Severity)
}

func TestPatternAnalyzer_UnusualLocation(t *testing.T) {
	ctx := context.Background()
	a := NewPatternAnalyzer(testEngine.Pattern, nil)

	fuel := []fleet.FuelTransaction{
		fuelTxn("VAN-001", at(1, 9, 0), 10, 120, "Shell Atlanta"),
		fuelTxn("VAN-001", at(3, 9, 0), 10, 118, "QT Marietta"),
		fuelTxn("VAN-001", at(5, 9, 0), 10, 121, "Shell Atlanta"),
		fuelTxn("VAN-001", at(8, 9, 0), 10, 119, "RaceTrac Decatur"),
		fuelTxn("VAN-001", at(11, 9, 0), 10, 120, "QT Marietta"),
		fuelTxn("VAN-001", at(14, 9, 0), 10, 117, "RaceTrac Decatur"),
		fuelTxn("VAN-001", at(17, 9, 0), 10, 123, "Exxon Macon"),
	}
	in := VehicleInput{
		VehicleID: "VAN-001",
		Profile:   vanProfile("VAN-001"),
		Baseline:  testBaseline("VAN-001"),
		Fuel:      fuel,
	}
	got, err := a.Analyze(ctx, in)
	require.NoError(t, err)

	unusual := findByType(got, violation.TypeUnusualLocation)
	require.Len(t, unusual, 1)
	assert.Equal(t, []string{"Exxon Macon"}, unusual[0].Locations)
	assert.Equal(t, 0.60, unusual[0].Confidence)
}
