package detection

import (
	"time"

	"github.com/madisoncarter1234/fleetv3/internal/domain/fleet"
	"github.com/madisoncarter1234/fleetv3/internal/domain/values"
	"github.com/madisoncarter1234/fleetv3/internal/infrastructure/config"
)

var testEngine = config.Default().Engine

func fptr(f float64) *float64 { return &f }

func at(day int, hour, min int) time.Time {
	return time.Date(2025, 3, day, hour, min, 0, 0, time.UTC)
}

func fuelTxn(vehicle string, ts time.Time, gallons, amount float64, location string) fleet.FuelTransaction {
	t := fleet.FuelTransaction{
		VehicleID: vehicle,
		Timestamp: ts,
		Location:  location,
	}
	if gallons > 0 {
		t.Gallons = fptr(gallons)
	}
	if amount > 0 {
		t.Amount = fptr(amount)
	}
	return t
}

func gpsPing(vehicle string, ts time.Time, lat, lon, speed float64) fleet.GPSEvent {
	return fleet.GPSEvent{
		VehicleID:  vehicle,
		Timestamp:  ts,
		Coordinate: values.MustNewCoordinate(lat, lon),
		SpeedMPH:   speed,
	}
}

func vanProfile(vehicle string) fleet.VehicleProfile {
	return fleet.VehicleProfile{
		VehicleID:           vehicle,
		Class:               fleet.ClassVan,
		TankCapacityGallons: 25,
		ExpectedMPG:         fleet.MPGRange{Min: 12, Max: 18},
	}
}

func truckProfile(vehicle string) fleet.VehicleProfile {
	return fleet.VehicleProfile{
		VehicleID:           vehicle,
		Class:               fleet.ClassTruck,
		TankCapacityGallons: 40,
		ExpectedMPG:         fleet.MPGRange{Min: 7, Max: 12},
	}
}
