package fleet

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d, hour int) time.Time {
	return time.Date(2025, 3, d, hour, 0, 0, 0, time.UTC)
}

func fptr(f float64) *float64 { return &f }

func TestBatch_SortedOrdersEveryStream(t *testing.T) {
	b := Batch{
		Fuel: []FuelTransaction{
			{VehicleID: "VAN-002", Timestamp: day(3, 12)},
			{VehicleID: "VAN-001", Timestamp: day(5, 9)},
			{VehicleID: "VAN-001", Timestamp: day(2, 9)},
		},
		GPS: []GPSEvent{
			{VehicleID: "VAN-001", Timestamp: day(4, 8)},
			{VehicleID: "VAN-001", Timestamp: day(2, 8)},
		},
		Jobs: []JobRecord{
			{JobID: "J-2", ScheduledTime: day(6, 10)},
			{JobID: "J-1", ScheduledTime: day(1, 10)},
		},
	}

	sorted := b.Sorted()

	assert.Equal(t, "VAN-001", sorted.Fuel[0].VehicleID)
	assert.Equal(t, day(2, 9), sorted.Fuel[0].Timestamp)
	assert.Equal(t, day(5, 9), sorted.Fuel[1].Timestamp)
	assert.Equal(t, "VAN-002", sorted.Fuel[2].VehicleID)
	assert.Equal(t, day(2, 8), sorted.GPS[0].Timestamp)
	assert.Equal(t, "J-1", sorted.Jobs[0].JobID)

	// The input slices must not move.
	assert.Equal(t, "VAN-002", b.Fuel[0].VehicleID)
}

func TestBatch_VehicleIDsUnion(t *testing.T) {
	b := Batch{
		Fuel: []FuelTransaction{{VehicleID: "VAN-002", Timestamp: day(3, 12)}},
		GPS:  []GPSEvent{{VehicleID: "VAN-001", Timestamp: day(3, 12)}},
		Jobs: []JobRecord{
			{JobID: "J-1", VehicleID: "TRUCK-009", ScheduledTime: day(3, 10)},
			{JobID: "J-2", DriverName: "M. Diaz", ScheduledTime: day(3, 11)},
		},
	}
	assert.Equal(t, []string{"TRUCK-009", "VAN-001", "VAN-002"}, b.VehicleIDs())
}

func TestBatch_AuditWindowSpansAllStreams(t *testing.T) {
	b := Batch{
		Fuel: []FuelTransaction{{VehicleID: "VAN-001", Timestamp: day(3, 12)}},
		GPS:  []GPSEvent{{VehicleID: "VAN-001", Timestamp: day(8, 7)}},
		Jobs: []JobRecord{{JobID: "J-1", ScheduledTime: day(1, 10)}},
	}
	w := b.AuditWindow()
	assert.Equal(t, day(1, 10), w.Start)
	assert.Equal(t, day(8, 7), w.End)
}

func TestBatch_SourcesAligned(t *testing.T) {
	aligned := Batch{
		Fuel: []FuelTransaction{
			{VehicleID: "VAN-001", Timestamp: day(2, 9)},
			{VehicleID: "VAN-001", Timestamp: day(9, 9)},
		},
		GPS: []GPSEvent{
			{VehicleID: "VAN-001", Timestamp: day(5, 8)},
			{VehicleID: "VAN-001", Timestamp: day(12, 8)},
		},
	}
	assert.True(t, aligned.SourcesAligned())

	disjoint := Batch{
		Fuel: []FuelTransaction{
			{VehicleID: "VAN-001", Timestamp: day(2, 9)},
			{VehicleID: "VAN-001", Timestamp: day(4, 9)},
		},
		GPS: []GPSEvent{
			{VehicleID: "VAN-001", Timestamp: day(20, 8)},
			{VehicleID: "VAN-001", Timestamp: day(25, 8)},
		},
	}
	assert.False(t, disjoint.SourcesAligned())

	// A single populated stream is trivially aligned with itself.
	fuelOnly := Batch{Fuel: []FuelTransaction{{VehicleID: "VAN-001", Timestamp: day(2, 9)}}}
	assert.True(t, fuelOnly.SourcesAligned())
}

func TestFuelTransaction_Signals(t *testing.T) {
	full := FuelTransaction{Gallons: fptr(20), Amount: fptr(75)}
	ppg, ok := full.PricePerGallon()
	require.True(t, ok)
	assert.InDelta(t, 3.75, ppg, 0.001)
	assert.True(t, full.Usable())

	noGallons := FuelTransaction{Amount: fptr(75)}
	_, ok = noGallons.PricePerGallon()
	assert.False(t, ok)
	assert.True(t, noGallons.Usable())
	assert.Equal(t, 0.0, noGallons.GallonsOrZero())

	empty := FuelTransaction{}
	assert.False(t, empty.Usable())
}

func TestFuelTransaction_SameCalendarDay(t *testing.T) {
	txn := FuelTransaction{Timestamp: day(3, 23)}
	assert.True(t, txn.SameCalendarDay(day(3, 0)))
	assert.False(t, txn.SameCalendarDay(day(4, 0)))
}

func TestGPSEvent_IsMoving(t *testing.T) {
	assert.True(t, GPSEvent{Status: GPSStatusMoving}.IsMoving())
	assert.True(t, GPSEvent{Status: GPSStatusUnknown, SpeedMPH: 25}.IsMoving())
	assert.False(t, GPSEvent{Status: GPSStatusUnknown, SpeedMPH: 1}.IsMoving())
	assert.False(t, GPSEvent{Status: GPSStatusIdle, SpeedMPH: 25}.IsMoving())
}

func TestJobRecord_Auditable(t *testing.T) {
	assert.True(t, JobRecord{JobID: "J-1", ScheduledTime: day(3, 10), Status: JobStatusScheduled}.Auditable())
	assert.False(t, JobRecord{JobID: "J-2", ScheduledTime: day(3, 10), Status: JobStatusCancelled}.Auditable())
	assert.False(t, JobRecord{JobID: "J-3"}.Auditable())
}

func TestProfileCatalog_Resolve(t *testing.T) {
	defaults := map[VehicleClass]ClassSpec{
		ClassVan:   {TankCapacityGallons: 25, ExpectedMPG: MPGRange{Min: 12, Max: 18}},
		ClassTruck: {TankCapacityGallons: 40, ExpectedMPG: MPGRange{Min: 7, Max: 12}},
	}
	catalog := NewProfileCatalog(defaults, []VehicleProfile{
		{VehicleID: "TRUCK-009", Class: ClassTruck, TankCapacityGallons: 55},
	})

	override := catalog.Resolve("TRUCK-009")
	assert.Equal(t, 55.0, override.TankCapacityGallons)
	assert.Equal(t, 7.0, override.ExpectedMPG.Min, "MPG falls back to the class default")

	unknown := catalog.Resolve("VAN-777")
	assert.Equal(t, ClassVan, unknown.Class)
	assert.Equal(t, 25.0, unknown.TankCapacityGallons)
	assert.InDelta(t, 15.0, unknown.ExpectedMPG.Mid(), 0.001)
}

func TestBatch_FuelWindowEmpty(t *testing.T) {
	var b Batch
	assert.True(t, b.FuelWindow().IsZero())
	assert.True(t, b.AuditWindow().IsZero())
}
