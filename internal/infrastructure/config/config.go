package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/madisoncarter1234/fleetv3/internal/domain/errors"
	"github.com/madisoncarter1234/fleetv3/internal/domain/fleet"
)

type Config struct {
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
	LogLevel    string `koanf:"log_level"`

	Engine EngineConfig `koanf:"engine"`
}

// EngineConfig is the audit run's full threshold surface. Every value here
// is a tuned default that operators may override per run; several were
// adjusted iteratively against real fleets to cut false positives, so none
// are compiled in.
type EngineConfig struct {
	// ReferenceFuelPrice is the regional $/gallon norm used for loss
	// estimates.
	ReferenceFuelPrice float64 `koanf:"reference_fuel_price" validate:"gt=0"`

	// Workers bounds the analyzer fan-out. Zero means GOMAXPROCS.
	Workers int `koanf:"workers" validate:"gte=0"`

	BusinessHours BusinessHoursConfig `koanf:"business_hours"`
	Volume        VolumeConfig        `koanf:"volume"`
	Pattern       PatternConfig       `koanf:"pattern"`
	Price         PriceConfig         `koanf:"price"`
	MPG           MPGConfig           `koanf:"mpg"`
	Temporal      TemporalConfig      `koanf:"temporal"`
	CrossSource   CrossSourceConfig   `koanf:"cross_source"`
	Consolidation ConsolidationConfig `koanf:"consolidation"`
	Financial     FinancialConfig     `koanf:"financial"`

	Classes  map[string]ClassConfig `koanf:"classes"`
	Vehicles []VehicleOverride      `koanf:"vehicles"`
}

type BusinessHoursConfig struct {
	StartHour int `koanf:"start_hour" validate:"gte=0,lte=23"`
	EndHour   int `koanf:"end_hour" validate:"gte=0,lte=23"`
}

type VolumeConfig struct {
	// CapacityExcessRatio: gallons above capacity×ratio trigger the
	// tank-capacity rule (strictly greater than).
	CapacityExcessRatio float64 `koanf:"capacity_excess_ratio" validate:"gt=1"`
	// CapacitySevereRatio escalates the tank-capacity rule to high severity.
	CapacitySevereRatio float64 `koanf:"capacity_severe_ratio" validate:"gt=1"`

	RapidRefillWindow time.Duration `koanf:"rapid_refill_window" validate:"gt=0"`
	// RapidRefillEarlierRatio: earlier purchase must exceed this share of
	// capacity for the rapid-refill pattern.
	RapidRefillEarlierRatio float64 `koanf:"rapid_refill_earlier_ratio" validate:"gt=0"`
	// RapidRefillLaterRatio: later purchase must exceed this multiple of
	// capacity.
	RapidRefillLaterRatio float64 `koanf:"rapid_refill_later_ratio" validate:"gt=0"`
	// CombinedDayRatio: alternative trigger on the 24-hour combined total.
	CombinedDayRatio float64 `koanf:"combined_day_ratio" validate:"gt=0"`
	// EmergencyMinGallons: an earlier purchase below this is read as an
	// emergency top-up, halving confidence instead of flagging outright.
	// Empirically tuned, not derived.
	EmergencyMinGallons float64 `koanf:"emergency_min_gallons" validate:"gte=0"`

	DailyExcessRatio float64 `koanf:"daily_excess_ratio" validate:"gt=0"`
}

type PatternConfig struct {
	// ZScoreHigh and above maps to confidence 0.85–1.0.
	ZScoreHigh float64 `koanf:"zscore_high" validate:"gt=0"`
	// ZScoreLow to ZScoreHigh maps to confidence 0.65–0.84.
	ZScoreLow float64 `koanf:"zscore_low" validate:"gt=0"`
	// MinSamples is the baseline floor; below it pattern analysis is
	// skipped for the vehicle, never defaulted.
	MinSamples int `koanf:"min_samples" validate:"gte=2"`
	// DailyFrequencyLimit purchases in one calendar day beyond this count
	// flag a frequency anomaly.
	DailyFrequencyLimit int `koanf:"daily_frequency_limit" validate:"gte=1"`
}

type PriceConfig struct {
	BandFloor float64 `koanf:"band_floor" validate:"gt=0"`
	BandCeil  float64 `koanf:"band_ceil" validate:"gt=0"`
	// CeilSlackUSD: $/gallon above the band ceiling before flagging.
	CeilSlackUSD float64 `koanf:"ceil_slack_usd" validate:"gte=0"`
	// ExcessCostRatio: total amount above gallons×band-midpoint by this
	// share flags excess cost.
	ExcessCostRatio float64 `koanf:"excess_cost_ratio" validate:"gt=0"`

	// Non-fuel consumable signature: small volume, mid-range ticket.
	NonFuelMaxGallons float64 `koanf:"non_fuel_max_gallons" validate:"gte=0"`
	NonFuelMinAmount  float64 `koanf:"non_fuel_min_amount" validate:"gte=0"`
	NonFuelMaxAmount  float64 `koanf:"non_fuel_max_amount" validate:"gte=0"`
}

type MPGConfig struct {
	FuelDumpingRatio   float64 `koanf:"fuel_dumping_ratio" validate:"gt=0,lt=1"`
	OdometerRatio      float64 `koanf:"odometer_ratio" validate:"gt=0,lt=1"`
	ExcessiveRatio     float64 `koanf:"excessive_ratio" validate:"gt=0,lt=1"`
	MinMiles           float64 `koanf:"min_miles" validate:"gt=0"`
	MinGallonsConsumed float64 `koanf:"min_gallons_consumed" validate:"gt=0"`
	// IdleTheftShare of a near-zero-travel refuel is assumed stolen.
	IdleTheftShare float64 `koanf:"idle_theft_share" validate:"gte=0,lte=1"`
}

type TemporalConfig struct {
	// Deep-night band carries the highest after-hours confidence.
	DeepNightStartHour int     `koanf:"deep_night_start_hour" validate:"gte=0,lte=23"`
	DeepNightEndHour   int     `koanf:"deep_night_end_hour" validate:"gte=0,lte=23"`
	DeepNightConf      float64 `koanf:"deep_night_confidence" validate:"gte=0,lte=1"`
	ShoulderConf       float64 `koanf:"shoulder_confidence" validate:"gte=0,lte=1"`

	ImpossibleIntervalMax   time.Duration `koanf:"impossible_interval_max" validate:"gt=0"`
	ImpossibleIntervalMiles float64       `koanf:"impossible_interval_miles" validate:"gt=0"`

	// Holidays are fixed dates in MM-DD form treated like weekends.
	Holidays []string `koanf:"holidays"`

	MaxIdleSpeedMPH    float64       `koanf:"max_idle_speed_mph" validate:"gte=0"`
	MinIdleDuration    time.Duration `koanf:"min_idle_duration" validate:"gt=0"`
	IdleGallonsPerHour float64       `koanf:"idle_gallons_per_hour" validate:"gte=0"`
}

type CrossSourceConfig struct {
	LocationMatchMiles  float64       `koanf:"location_match_miles" validate:"gt=0"`
	LocationMatchWindow time.Duration `koanf:"location_match_window" validate:"gt=0"`

	GhostJobWindow time.Duration `koanf:"ghost_job_window" validate:"gt=0"`
	GhostJobMiles  float64       `koanf:"ghost_job_miles" validate:"gt=0"`

	SharedCardWindow      time.Duration `koanf:"shared_card_window" validate:"gt=0"`
	SharedCardTightWindow time.Duration `koanf:"shared_card_tight_window" validate:"gt=0"`

	// SparseCoverageMaxGap: a vehicle whose median ping gap exceeds this is
	// treated as having sparse GPS, reducing location-mismatch confidence.
	SparseCoverageMaxGap time.Duration `koanf:"sparse_coverage_max_gap" validate:"gt=0"`
}

type ConsolidationConfig struct {
	GroupingWindow time.Duration `koanf:"grouping_window" validate:"gt=0"`
	// CorroborationBoost is added once when two or more distinct analyzers
	// agree on an incident.
	CorroborationBoost float64 `koanf:"corroboration_boost" validate:"gte=0,lte=1"`
	// CriticalMemberCount high-severity members escalate an incident to
	// critical.
	CriticalMemberCount int `koanf:"critical_member_count" validate:"gte=2"`
}

type FinancialConfig struct {
	// Tier cutoffs and weights for confidence-weighted loss. Preserved as
	// configuration because they were tuned empirically, not derived.
	HighConfidenceCutoff float64 `koanf:"high_confidence_cutoff" validate:"gt=0,lte=1"`
	LowConfidenceCutoff  float64 `koanf:"low_confidence_cutoff" validate:"gt=0,lte=1"`
	HighTierWeight       float64 `koanf:"high_tier_weight" validate:"gt=0,lte=1"`
	MidTierWeight        float64 `koanf:"mid_tier_weight" validate:"gt=0,lte=1"`
	LowTierWeight        float64 `koanf:"low_tier_weight" validate:"gt=0,lte=1"`
}

type ClassConfig struct {
	TankCapacityGallons float64 `koanf:"tank_capacity_gallons" validate:"gt=0"`
	MPGMin              float64 `koanf:"mpg_min" validate:"gt=0"`
	MPGMax              float64 `koanf:"mpg_max" validate:"gt=0"`
}

type VehicleOverride struct {
	VehicleID           string  `koanf:"vehicle_id" validate:"required"`
	Class               string  `koanf:"class"`
	TankCapacityGallons float64 `koanf:"tank_capacity_gallons" validate:"gte=0"`
	MPGMin              float64 `koanf:"mpg_min" validate:"gte=0"`
	MPGMax              float64 `koanf:"mpg_max" validate:"gte=0"`
}

// Load builds the configuration from defaults, an optional YAML file, and
// FLEET_-prefixed environment variables, highest precedence last.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("FLEET_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "FLEET_")), "_", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns the documented default configuration.
func Default() *Config {
	return &Config{
		Version:     "dev",
		Environment: "development",
		LogLevel:    "info",
		Engine: EngineConfig{
			ReferenceFuelPrice: 3.75,
			BusinessHours:      BusinessHoursConfig{StartHour: 7, EndHour: 18},
			Volume: VolumeConfig{
				CapacityExcessRatio:     1.20,
				CapacitySevereRatio:     1.50,
				RapidRefillWindow:       12 * time.Hour,
				RapidRefillEarlierRatio: 0.90,
				RapidRefillLaterRatio:   1.20,
				CombinedDayRatio:        2.0,
				EmergencyMinGallons:     5.0,
				DailyExcessRatio:        2.0,
			},
			Pattern: PatternConfig{
				ZScoreHigh:          3.0,
				ZScoreLow:           2.0,
				MinSamples:          5,
				DailyFrequencyLimit: 2,
			},
			Price: PriceConfig{
				BandFloor:         3.35,
				BandCeil:          4.15,
				CeilSlackUSD:      2.00,
				ExcessCostRatio:   0.50,
				NonFuelMaxGallons: 15,
				NonFuelMinAmount:  15,
				NonFuelMaxAmount:  60,
			},
			MPG: MPGConfig{
				FuelDumpingRatio:   0.30,
				OdometerRatio:      0.50,
				ExcessiveRatio:     0.70,
				MinMiles:           5,
				MinGallonsConsumed: 3,
				IdleTheftShare:     0.80,
			},
			Temporal: TemporalConfig{
				DeepNightStartHour:      2,
				DeepNightEndHour:        5,
				DeepNightConf:           0.90,
				ShoulderConf:            0.65,
				ImpossibleIntervalMax:   2 * time.Hour,
				ImpossibleIntervalMiles: 30,
				Holidays:                []string{"01-01", "07-04", "11-11", "12-25"},
				MaxIdleSpeedMPH:         3,
				MinIdleDuration:         10 * time.Minute,
				IdleGallonsPerHour:      0.8,
			},
			CrossSource: CrossSourceConfig{
				LocationMatchMiles:    1.0,
				LocationMatchWindow:   15 * time.Minute,
				GhostJobWindow:        30 * time.Minute,
				GhostJobMiles:         0.5,
				SharedCardWindow:      60 * time.Minute,
				SharedCardTightWindow: 30 * time.Minute,
				SparseCoverageMaxGap:  2 * time.Hour,
			},
			Consolidation: ConsolidationConfig{
				GroupingWindow:      2 * time.Hour,
				CorroborationBoost:  0.10,
				CriticalMemberCount: 3,
			},
			Financial: FinancialConfig{
				HighConfidenceCutoff: 0.8,
				LowConfidenceCutoff:  0.6,
				HighTierWeight:       1.0,
				MidTierWeight:        0.7,
				LowTierWeight:        0.4,
			},
			Classes: map[string]ClassConfig{
				"van":         {TankCapacityGallons: 25, MPGMin: 12, MPGMax: 18},
				"pickup":      {TankCapacityGallons: 30, MPGMin: 15, MPGMax: 25},
				"truck":       {TankCapacityGallons: 40, MPGMin: 7, MPGMax: 12},
				"heavy-truck": {TankCapacityGallons: 60, MPGMin: 4, MPGMax: 8},
			},
		},
	}
}

// Validate applies struct tags plus the cross-field checks that tags cannot
// express. Any failure is a ConfigurationError surfaced before processing.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.NewConfigurationError("CONFIG_INVALID", "configuration outside valid ranges").WithCause(err)
	}

	e := c.Engine
	if e.BusinessHours.StartHour >= e.BusinessHours.EndHour {
		return errors.NewConfigurationError("CONFIG_BUSINESS_HOURS",
			fmt.Sprintf("business hours start %d must precede end %d", e.BusinessHours.StartHour, e.BusinessHours.EndHour))
	}
	if e.Price.BandFloor >= e.Price.BandCeil {
		return errors.NewConfigurationError("CONFIG_PRICE_BAND",
			fmt.Sprintf("price band floor %.2f must be below ceiling %.2f", e.Price.BandFloor, e.Price.BandCeil))
	}
	if e.Pattern.ZScoreLow >= e.Pattern.ZScoreHigh {
		return errors.NewConfigurationError("CONFIG_ZSCORE",
			fmt.Sprintf("z-score low threshold %.2f must be below high threshold %.2f", e.Pattern.ZScoreLow, e.Pattern.ZScoreHigh))
	}
	if e.Financial.LowConfidenceCutoff >= e.Financial.HighConfidenceCutoff {
		return errors.NewConfigurationError("CONFIG_FINANCIAL_TIERS",
			fmt.Sprintf("low confidence cutoff %.2f must be below high cutoff %.2f", e.Financial.LowConfidenceCutoff, e.Financial.HighConfidenceCutoff))
	}
	if e.CrossSource.SharedCardTightWindow > e.CrossSource.SharedCardWindow {
		return errors.NewConfigurationError("CONFIG_SHARED_CARD",
			"shared card tight window cannot exceed the outer window")
	}
	for name, spec := range e.Classes {
		if _, err := fleet.ParseVehicleClass(name); err != nil {
			return errors.NewConfigurationError("CONFIG_VEHICLE_CLASS", err.Error())
		}
		if spec.MPGMin >= spec.MPGMax {
			return errors.NewConfigurationError("CONFIG_MPG_RANGE",
				fmt.Sprintf("class %s mpg_min %.1f must be below mpg_max %.1f", name, spec.MPGMin, spec.MPGMax))
		}
	}
	for _, v := range e.Vehicles {
		if v.Class != "" {
			if _, err := fleet.ParseVehicleClass(v.Class); err != nil {
				return errors.NewConfigurationError("CONFIG_VEHICLE_CLASS", err.Error())
			}
		}
		if (v.MPGMin == 0) != (v.MPGMax == 0) || (v.MPGMin != 0 && v.MPGMin >= v.MPGMax) {
			return errors.NewConfigurationError("CONFIG_MPG_RANGE",
				fmt.Sprintf("vehicle %s mpg override must set both bounds with min below max", v.VehicleID))
		}
	}
	return nil
}

// Catalog materializes the vehicle profile catalog from the class table and
// per-vehicle overrides.
func (c *Config) Catalog() (*fleet.ProfileCatalog, error) {
	defaults := make(map[fleet.VehicleClass]fleet.ClassSpec, len(c.Engine.Classes))
	for name, spec := range c.Engine.Classes {
		class, err := fleet.ParseVehicleClass(name)
		if err != nil {
			return nil, errors.NewConfigurationError("CONFIG_VEHICLE_CLASS", err.Error())
		}
		defaults[class] = fleet.ClassSpec{
			TankCapacityGallons: spec.TankCapacityGallons,
			ExpectedMPG:         fleet.MPGRange{Min: spec.MPGMin, Max: spec.MPGMax},
		}
	}

	profiles := make([]fleet.VehicleProfile, 0, len(c.Engine.Vehicles))
	for _, v := range c.Engine.Vehicles {
		p := fleet.VehicleProfile{
			VehicleID:           v.VehicleID,
			TankCapacityGallons: v.TankCapacityGallons,
			ExpectedMPG:         fleet.MPGRange{Min: v.MPGMin, Max: v.MPGMax},
		}
		if v.Class != "" {
			class, err := fleet.ParseVehicleClass(v.Class)
			if err != nil {
				return nil, errors.NewConfigurationError("CONFIG_VEHICLE_CLASS", err.Error())
			}
			p.Class = class
		}
		profiles = append(profiles, p)
	}

	return fleet.NewProfileCatalog(defaults, profiles), nil
}
