package fleet

import (
	"sort"

	"github.com/madisoncarter1234/fleetv3/internal/domain/values"
)

// DroppedRows is the upstream normalizer's count of malformed rows it
// discarded per stream. The engine passes it through to the report
// untouched.
type DroppedRows struct {
	Fuel int `json:"fuel"`
	GPS  int `json:"gps"`
	Jobs int `json:"jobs"`
}

// Batch is the read-only normalized record set for one audit run.
type Batch struct {
	Fuel    []FuelTransaction `json:"fuel"`
	GPS     []GPSEvent        `json:"gps"`
	Jobs    []JobRecord       `json:"jobs"`
	Dropped DroppedRows       `json:"dropped_rows"`
}

// Sorted returns a copy of the batch with every stream ordered by
// (vehicle, timestamp). Analyzers rely on this ordering; the input slices
// are never mutated.
func (b Batch) Sorted() Batch {
	out := Batch{
		Fuel:    append([]FuelTransaction(nil), b.Fuel...),
		GPS:     append([]GPSEvent(nil), b.GPS...),
		Jobs:    append([]JobRecord(nil), b.Jobs...),
		Dropped: b.Dropped,
	}
	sort.SliceStable(out.Fuel, func(i, j int) bool {
		if out.Fuel[i].VehicleID != out.Fuel[j].VehicleID {
			return out.Fuel[i].VehicleID < out.Fuel[j].VehicleID
		}
		return out.Fuel[i].Timestamp.Before(out.Fuel[j].Timestamp)
	})
	sort.SliceStable(out.GPS, func(i, j int) bool {
		if out.GPS[i].VehicleID != out.GPS[j].VehicleID {
			return out.GPS[i].VehicleID < out.GPS[j].VehicleID
		}
		return out.GPS[i].Timestamp.Before(out.GPS[j].Timestamp)
	})
	sort.SliceStable(out.Jobs, func(i, j int) bool {
		return out.Jobs[i].ScheduledTime.Before(out.Jobs[j].ScheduledTime)
	})
	return out
}

// VehicleIDs returns the sorted union of vehicle IDs across all streams.
func (b Batch) VehicleIDs() []string {
	seen := make(map[string]struct{})
	for _, t := range b.Fuel {
		seen[t.VehicleID] = struct{}{}
	}
	for _, e := range b.GPS {
		seen[e.VehicleID] = struct{}{}
	}
	for _, j := range b.Jobs {
		if j.VehicleID != "" {
			seen[j.VehicleID] = struct{}{}
		}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// FuelForVehicle returns the vehicle's transactions in timestamp order.
func (b Batch) FuelForVehicle(vehicleID string) []FuelTransaction {
	var out []FuelTransaction
	for _, t := range b.Fuel {
		if t.VehicleID == vehicleID {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

// GPSForVehicle returns the vehicle's GPS events in timestamp order.
func (b Batch) GPSForVehicle(vehicleID string) []GPSEvent {
	var out []GPSEvent
	for _, e := range b.GPS {
		if e.VehicleID == vehicleID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

// FuelWindow returns the time range covered by fuel records.
func (b Batch) FuelWindow() values.TimeWindow {
	var w values.TimeWindow
	for _, t := range b.Fuel {
		w = w.Extend(t.Timestamp)
	}
	return w
}

// GPSWindow returns the time range covered by GPS records.
func (b Batch) GPSWindow() values.TimeWindow {
	var w values.TimeWindow
	for _, e := range b.GPS {
		w = w.Extend(e.Timestamp)
	}
	return w
}

// JobWindow returns the time range covered by job records.
func (b Batch) JobWindow() values.TimeWindow {
	var w values.TimeWindow
	for _, j := range b.Jobs {
		w = w.Extend(j.ScheduledTime)
	}
	return w
}

// AuditWindow returns the union of all stream windows.
func (b Batch) AuditWindow() values.TimeWindow {
	return b.FuelWindow().Union(b.GPSWindow()).Union(b.JobWindow())
}

// SourcesAligned reports whether every pair of populated streams overlaps
// in time. When false, cross-source checks are suppressed rather than
// reported falsely.
func (b Batch) SourcesAligned() bool {
	windows := []values.TimeWindow{}
	for _, w := range []values.TimeWindow{b.FuelWindow(), b.GPSWindow(), b.JobWindow()} {
		if !w.IsZero() {
			windows = append(windows, w)
		}
	}
	for i := 0; i < len(windows); i++ {
		for j := i + 1; j < len(windows); j++ {
			if !windows[i].Overlaps(windows[j]) {
				return false
			}
		}
	}
	return true
}
