package fleet

import (
	"encoding/json"
	"time"

	"github.com/madisoncarter1234/fleetv3/internal/domain/values"
)

// GPSStatus describes what a vehicle was doing at a ping.
type GPSStatus int

const (
	GPSStatusUnknown GPSStatus = iota
	GPSStatusMoving
	GPSStatusIdle
)

func (s GPSStatus) String() string {
	switch s {
	case GPSStatusMoving:
		return "moving"
	case GPSStatusIdle:
		return "idle"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the status as its normalized string form.
func (s GPSStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON accepts the normalized status strings from the upstream
// normalizer; anything unrecognized degrades to unknown rather than erroring.
func (s *GPSStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = ParseGPSStatus(raw)
	return nil
}

// ParseGPSStatus maps a normalized status string to a GPSStatus.
func ParseGPSStatus(s string) GPSStatus {
	switch s {
	case "moving", "driving":
		return GPSStatusMoving
	case "idle", "stopped", "parked":
		return GPSStatusIdle
	default:
		return GPSStatusUnknown
	}
}

// GPSEvent is one normalized telematics ping.
type GPSEvent struct {
	VehicleID  string            `json:"vehicle_id"`
	Timestamp  time.Time         `json:"timestamp"`
	Location   string            `json:"location,omitempty"`
	Coordinate values.Coordinate `json:"coordinate"`
	SpeedMPH   float64           `json:"speed_mph"`
	Status     GPSStatus         `json:"status"`
	// TripMiles is an optional odometer-style accumulator some providers
	// emit. When present it is preferred over summed point-to-point
	// distance.
	TripMiles *float64 `json:"trip_miles,omitempty"`
}

// IsMoving reports whether the ping shows the vehicle in motion. Providers
// that omit a status still carry speed.
func (e GPSEvent) IsMoving() bool {
	if e.Status == GPSStatusMoving {
		return true
	}
	return e.Status == GPSStatusUnknown && e.SpeedMPH > 3
}
