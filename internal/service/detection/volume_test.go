package detection

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/madisoncarter1234/fleetv3/internal/domain/fleet"
	"github.com/madisoncarter1234/fleetv3/internal/domain/violation"
)

func TestVolumeAnalyzer_TankCapacity(t *testing.T) {
	ctx := context.Background()
	a := NewVolumeAnalyzer(testEngine.Volume, testEngine.ReferenceFuelPrice, nil)

	tests := []struct {
		name         string
		gallons      float64
		wantCount    int
		wantSeverity violation.Severity
		wantLoss     string
	}{
		{
			name:         "32 gallons into a 25 gallon van",
			gallons:      32,
			wantCount:    1,
			wantSeverity: violation.SeverityMedium,
			wantLoss:     "26.25",
		},
		{
			name:      "exactly at capacity does not trigger",
			gallons:   25,
			wantCount: 0,
		},
		{
			name:      "exactly at the 1.20x threshold does not trigger",
			gallons:   30,
			wantCount: 0,
		},
		{
			name:         "past the severe ratio escalates to high",
			gallons:      40,
			wantCount:    1,
			wantSeverity: violation.SeverityHigh,
			wantLoss:     "56.25",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := VehicleInput{
				VehicleID: "VAN-001",
				Profile:   vanProfile("VAN-001"),
				Fuel:      []fleet.FuelTransaction{fuelTxn("VAN-001", at(3, 10, 0), tt.gallons, 0, "Shell Atlanta")},
			}
			got, err := a.Analyze(ctx, in)
			require.NoError(t, err)
			require.Len(t, got, tt.wantCount)
			if tt.wantCount == 0 {
				return
			}

			v := got[0]
			assert.Equal(t, violation.TypeTankCapacity, v.Type)
			assert.Equal(t, 0.95, v.Confidence)
			assert.Equal(t, tt.wantSeverity, v.Severity)
			assert.Equal(t, "$"+tt.wantLoss, v.EstimatedLoss.String())
			assert.NotEmpty(t, v.Evidence)
		})
	}
}

func TestVolumeAnalyzer_RapidRefill(t *testing.T) {
	ctx := context.Background()
	a := NewVolumeAnalyzer(testEngine.Volume, testEngine.ReferenceFuelPrice, nil)

	t.Run("large refill while the tank should be full", func(t *testing.T) {
		in := VehicleInput{
			VehicleID: "TRUCK-002",
			Profile:   truckProfile("TRUCK-002"),
			Fuel: []fleet.FuelTransaction{
				fuelTxn("TRUCK-002", at(3, 8, 0), 38, 0, "QT Marietta"),
				fuelTxn("TRUCK-002", at(3, 14, 0), 50, 0, "QT Marietta"),
			},
		}
		got, err := a.Analyze(ctx, in)
		require.NoError(t, err)

		rapid := findByType(got, violation.TypeRapidRefill)
		require.Len(t, rapid, 1)
		assert.Equal(t, 0.90, rapid[0].Confidence)
		assert.Equal(t, violation.SeverityHigh, rapid[0].Severity)

		// The 50 gallon fill also breaks tank capacity on its own.
		assert.Len(t, findByType(got, violation.TypeTankCapacity), 1)
	})

	t.Run("small relocated earlier purchase halves confidence", func(t *testing.T) {
		in := VehicleInput{
			VehicleID: "TRUCK-002",
			Profile:   truckProfile("TRUCK-002"),
			Fuel: []fleet.FuelTransaction{
				fuelTxn("TRUCK-002", at(3, 8, 0), 3, 0, "Shell Atlanta"),
				fuelTxn("TRUCK-002", at(3, 14, 0), 50, 0, "QT Marietta"),
			},
		}
		got, err := a.Analyze(ctx, in)
		require.NoError(t, err)

		rapid := findByType(got, violation.TypeRapidRefill)
		require.Len(t, rapid, 1)
		assert.Equal(t, 0.45, rapid[0].Confidence)
		assert.Contains(t, joined(rapid[0].Evidence), "emergency")
	})

	t.Run("mid-size earlier fill at the same station is normal usage", func(t *testing.T) {
		in := VehicleInput{
			VehicleID: "TRUCK-002",
			Profile:   truckProfile("TRUCK-002"),
			Fuel: []fleet.FuelTransaction{
				fuelTxn("TRUCK-002", at(3, 8, 0), 20, 0, "QT Marietta"),
				fuelTxn("TRUCK-002", at(3, 14, 0), 30, 0, "QT Marietta"),
			},
		}
		got, err := a.Analyze(ctx, in)
		require.NoError(t, err)
		assert.Empty(t, findByType(got, violation.TypeRapidRefill))
	})
}

func TestVolumeAnalyzer_DailyExcess(t *testing.T) {
	ctx := context.Background()
	a := NewVolumeAnalyzer(testEngine.Volume, testEngine.ReferenceFuelPrice, nil)

	// Three mid-size fills on one day: no single pair trips the rapid rules
	// but the calendar day total passes twice the tank.
	in := VehicleInput{
		VehicleID: "VAN-001",
		Profile:   vanProfile("VAN-001"),
		Fuel: []fleet.FuelTransaction{
			fuelTxn("VAN-001", at(3, 7, 0), 18, 0, "Shell Atlanta"),
			fuelTxn("VAN-001", at(3, 22, 0), 17, 0, "QT Marietta"),
			fuelTxn("VAN-001", at(4, 9, 0), 16, 0, "Shell Atlanta"),
		},
	}
	got, err := a.Analyze(ctx, in)
	require.NoError(t, err)

	// Day one totals 35 gallons against a 50 gallon threshold, so nothing
	// fires; dropping the threshold exposes the rule.
	assert.Empty(t, findByType(got, violation.TypeDailyExcess))

	cfg := testEngine.Volume
	cfg.DailyExcessRatio = 1.2
	a = NewVolumeAnalyzer(cfg, testEngine.ReferenceFuelPrice, nil)
	got, err = a.Analyze(ctx, in)
	require.NoError(t, err)

	daily := findByType(got, violation.TypeDailyExcess)
	require.Len(t, daily, 1)
	assert.Equal(t, 0.85, daily[0].Confidence)
	assert.Equal(t, violation.SeverityHigh, daily[0].Severity)
	assert.Equal(t, []string{"Shell Atlanta", "QT Marietta"}, daily[0].Locations)
}

func findByType(vs []*violation.Violation, t violation.Type) []*violation.Violation {
	var out []*violation.Violation
	for _, v := range vs {
		if v.Type == t {
			out = append(out, v)
		}
	}
	return out
}

func joined(facts []string) string {
	out := ""
	for _, f := range facts {
		out += f + "\n"
	}
	return out
}
