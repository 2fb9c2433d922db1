package scoring

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Band awards Points when a value is strictly above Above. Bands are checked in
// order and the first match wins, so they must be listed highest first.
type Band struct {
	Above  float64 `yaml:"above"`
	Points float64 `yaml:"points"`
	Reason string  `yaml:"reason"`
}

// Policy holds every threshold the engine uses.
type Policy struct {
	// Base from snow depth (cm). Below every band the thin-cover penalty applies.
	DepthBands      []Band  `yaml:"depthBands"`
	ThinCoverPoints float64 `yaml:"thinCoverPoints"`
	ThinCoverReason string  `yaml:"thinCoverReason"`

	// Fresh snowfall bonus (cm).
	FreshBands []Band `yaml:"freshBands"`

	// Temperature (°C): bonus inside the cold-smoke range, penalties above the warm bands.
	ColdSmokeMin    float64 `yaml:"coldSmokeMin"`
	ColdSmokeMax    float64 `yaml:"coldSmokeMax"`
	ColdSmokePoints float64 `yaml:"coldSmokePoints"`
	ColdSmokeReason string  `yaml:"coldSmokeReason"`
	WarmBands       []Band  `yaml:"warmBands"`

	// Wind (km/h). Above LiftsClosedAbove the score is capped below MehFloor.
	WindBands        []Band  `yaml:"windBands"`
	LiftsClosedAbove float64 `yaml:"liftsClosedAbove"`

	// Storm day: heavy fresh snow with moderate wind.
	StormFreshAbove float64 `yaml:"stormFreshAbove"`
	StormWindAbove  float64 `yaml:"stormWindAbove"`
	StormWindMax    float64 `yaml:"stormWindMax"`
	StormPoints     float64 `yaml:"stormPoints"`
	StormReason     string  `yaml:"stormReason"`

	// Crowd estimate, reported beside the score.
	WeekendCrowdPoints float64 `yaml:"weekendCrowdPoints"`
	PowderCrowdAbove   float64 `yaml:"powderCrowdAbove"`
	PowderCrowdPoints  float64 `yaml:"powderCrowdPoints"`

	// Slope condition (0..100).
	SlopeDepthCapCm       float64 `yaml:"slopeDepthCapCm"`
	SlopeWarmPerDegree    float64 `yaml:"slopeWarmPerDegree"`
	SlopeWindFreeKmh      float64 `yaml:"slopeWindFreeKmh"`
	SlopeWindPerKmh       float64 `yaml:"slopeWindPerKmh"`
	SlopeConditionEnabled bool    `yaml:"slopeConditionEnabled"`

	// Verdict floors: score >= GoFloor is GO, >= StormFloor is GO (storm),
	// >= MehFloor is MEH, anything else is SKIP.
	MehFloor   float64 `yaml:"mehFloor"`
	StormFloor float64 `yaml:"stormFloor"`
	GoFloor    float64 `yaml:"goFloor"`
}

// DefaultPolicy returns the canonical scoring policy.
func DefaultPolicy() Policy {
	return Policy{
		DepthBands: []Band{
			{Above: 150, Points: 40, Reason: "deep base"},
			{Above: 100, Points: 30, Reason: "solid base"},
			{Above: 50, Points: 20, Reason: "decent base"},
			{Above: 20, Points: 10, Reason: "thin base"},
		},
		ThinCoverPoints: -20,
		ThinCoverReason: "thin cover",

		FreshBands: []Band{
			{Above: 60, Points: 60, Reason: "deep powder"},
			{Above: 30, Points: 45, Reason: "powder day"},
			{Above: 15, Points: 30, Reason: "fresh snow"},
			{Above: 5, Points: 15, Reason: "dusting"},
		},

		ColdSmokeMin:    -8,
		ColdSmokeMax:    -2,
		ColdSmokePoints: 10,
		ColdSmokeReason: "cold smoke",
		WarmBands: []Band{
			{Above: 5, Points: -20, Reason: "slushy"},
			{Above: 2, Points: -10, Reason: "warm"},
		},

		WindBands: []Band{
			{Above: 80, Points: -50, Reason: "lifts closed"},
			{Above: 60, Points: -30, Reason: "very windy"},
			{Above: 40, Points: -15, Reason: "windy"},
			{Above: 25, Points: -5, Reason: "breezy"},
		},
		LiftsClosedAbove: 80,

		StormFreshAbove: 30,
		StormWindAbove:  25,
		StormWindMax:    60,
		StormPoints:     10,
		StormReason:     "storm day",

		WeekendCrowdPoints: 40,
		PowderCrowdAbove:   15,
		PowderCrowdPoints:  20,

		SlopeDepthCapCm:       150,
		SlopeWarmPerDegree:    4,
		SlopeWindFreeKmh:      25,
		SlopeWindPerKmh:       0.8,
		SlopeConditionEnabled: true,

		MehFloor:   20,
		StormFloor: 50,
		GoFloor:    70,
	}
}

// LoadPolicyFromFile overlays a YAML file onto DefaultPolicy. Keys absent from the
// file keep their default; a present band list replaces the default list.
func LoadPolicyFromFile(path string) (Policy, error) {
	p := DefaultPolicy()
	b, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read policy file: %w", err)
	}
	if err := yaml.Unmarshal(b, &p); err != nil {
		return p, fmt.Errorf("unmarshal policy: %w", err)
	}
	if err := p.Validate(); err != nil {
		return p, fmt.Errorf("policy %s: %w", path, err)
	}
	return p, nil
}

// Validate checks that verdict floors are strictly increasing and that every band
// list is ordered highest first. Fresh-snow bands must also award non-increasing,
// non-negative points so that more fresh snow never lowers the score.
func (p Policy) Validate() error {
	if !(p.MehFloor < p.StormFloor && p.StormFloor < p.GoFloor) {
		return fmt.Errorf("verdict floors must satisfy meh < storm < go, got %v, %v, %v", p.MehFloor, p.StormFloor, p.GoFloor)
	}
	if p.ColdSmokeMin > p.ColdSmokeMax {
		return errors.New("coldSmokeMin must not exceed coldSmokeMax")
	}
	if p.SlopeConditionEnabled && p.SlopeDepthCapCm <= 0 {
		return errors.New("slopeDepthCapCm must be positive")
	}
	for name, bands := range map[string][]Band{
		"depthBands": p.DepthBands,
		"freshBands": p.FreshBands,
		"warmBands":  p.WarmBands,
		"windBands":  p.WindBands,
	} {
		for i := 1; i < len(bands); i++ {
			if bands[i].Above >= bands[i-1].Above {
				return fmt.Errorf("%s must be ordered by descending threshold", name)
			}
		}
	}
	for i, b := range p.FreshBands {
		if b.Points < 0 {
			return errors.New("freshBands points must not be negative")
		}
		if i > 0 && b.Points > p.FreshBands[i-1].Points {
			return errors.New("freshBands points must not increase as the threshold drops")
		}
	}
	if p.StormPoints < 0 {
		return errors.New("stormPoints must not be negative")
	}
	return nil
}
