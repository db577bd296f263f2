package fleet

import (
	"encoding/json"
	"fmt"
)

// VehicleClass is the closed set of fleet vehicle categories. Capacity and
// MPG expectations resolve through this enumeration instead of free-form
// vehicle-type strings.
type VehicleClass int

const (
	ClassVan VehicleClass = iota
	ClassPickup
	ClassTruck
	ClassHeavyTruck
)

func (c VehicleClass) String() string {
	switch c {
	case ClassVan:
		return "van"
	case ClassPickup:
		return "pickup"
	case ClassTruck:
		return "truck"
	case ClassHeavyTruck:
		return "heavy-truck"
	default:
		return "unknown"
	}
}

// ParseVehicleClass maps a normalized class name to a VehicleClass.
func ParseVehicleClass(s string) (VehicleClass, error) {
	switch s {
	case "van":
		return ClassVan, nil
	case "pickup":
		return ClassPickup, nil
	case "truck":
		return ClassTruck, nil
	case "heavy-truck", "heavy_truck":
		return ClassHeavyTruck, nil
	default:
		return ClassVan, fmt.Errorf("unknown vehicle class: %q", s)
	}
}

func (c VehicleClass) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *VehicleClass) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseVehicleClass(raw)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// MPGRange is the expected fuel-efficiency band for a vehicle.
type MPGRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Mid returns the midpoint of the expected band.
func (r MPGRange) Mid() float64 {
	return (r.Min + r.Max) / 2
}

// VehicleProfile carries per-vehicle physical expectations. Zero capacity
// or MPG values resolve to the class defaults at catalog lookup.
type VehicleProfile struct {
	VehicleID           string       `json:"vehicle_id"`
	Class               VehicleClass `json:"vehicle_class"`
	TankCapacityGallons float64      `json:"tank_capacity_gallons,omitempty"`
	ExpectedMPG         MPGRange     `json:"expected_mpg_range,omitempty"`
}

// ClassSpec holds the configured defaults for one vehicle class.
type ClassSpec struct {
	TankCapacityGallons float64
	ExpectedMPG         MPGRange
}

// ProfileCatalog resolves vehicle IDs to effective profiles. It is external
// configuration and the only state that outlives a single audit run.
type ProfileCatalog struct {
	classDefaults map[VehicleClass]ClassSpec
	overrides     map[string]VehicleProfile
}

// NewProfileCatalog builds a catalog from class defaults and per-vehicle
// overrides.
func NewProfileCatalog(defaults map[VehicleClass]ClassSpec, profiles []VehicleProfile) *ProfileCatalog {
	c := &ProfileCatalog{
		classDefaults: defaults,
		overrides:     make(map[string]VehicleProfile, len(profiles)),
	}
	for _, p := range profiles {
		c.overrides[p.VehicleID] = p
	}
	return c
}

// Resolve returns the effective profile for a vehicle: the registered
// override filled in with class defaults, or a plain class-default profile
// for unregistered vehicles (class van, the conservative smallest tank).
func (c *ProfileCatalog) Resolve(vehicleID string) VehicleProfile {
	p, ok := c.overrides[vehicleID]
	if !ok {
		p = VehicleProfile{VehicleID: vehicleID, Class: ClassVan}
	}

	spec := c.classDefaults[p.Class]
	if p.TankCapacityGallons <= 0 {
		p.TankCapacityGallons = spec.TankCapacityGallons
	}
	if p.ExpectedMPG.Min <= 0 || p.ExpectedMPG.Max <= 0 {
		p.ExpectedMPG = spec.ExpectedMPG
	}
	return p
}
