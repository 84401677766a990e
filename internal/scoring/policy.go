package scoring

import "go-produce-measure/pkg/models"

// DimensionBounds caps implausible measurements per object category,
// in centimeters.
type DimensionBounds struct {
	MinLength    float64
	MaxLength    float64
	MinThickness float64
	MaxThickness float64
}

// TypeProfile holds the per-type policy: plausible bounds plus the
// reference averages the truthfulness layer compares against.
type TypeProfile struct {
	Bounds       DimensionBounds
	RefLength    float64
	RefThickness float64
}

// ScorePolicy is the fixed scoring policy. The weights are presentation
// tuning constants, kept as named overridable values rather than inlined
// numbers.
type ScorePolicy struct {
	// Weights of the final score mix. Freshness (0-10) is rescaled to
	// the score range before mixing.
	OverallWeight   float64
	FreshnessWeight float64
	DimensionWeight float64

	MaxScore     float64
	MaxFreshness int

	Profiles       map[models.ObjectType]TypeProfile
	DefaultProfile TypeProfile
}

// DefaultScorePolicy returns the production policy table.
func DefaultScorePolicy() ScorePolicy {
	return ScorePolicy{
		OverallWeight:   0.6,
		FreshnessWeight: 0.25,
		DimensionWeight: 0.15,

		MaxScore:     9.5,
		MaxFreshness: 10,

		Profiles: map[models.ObjectType]TypeProfile{
			models.ObjectCucumber: {
				Bounds:    DimensionBounds{MinLength: 5, MaxLength: 40, MinThickness: 1, MaxThickness: 7},
				RefLength: 18, RefThickness: 3.5,
			},
			models.ObjectBanana: {
				Bounds:    DimensionBounds{MinLength: 6, MaxLength: 30, MinThickness: 1.5, MaxThickness: 6},
				RefLength: 18, RefThickness: 3.2,
			},
			models.ObjectEggplant: {
				Bounds:    DimensionBounds{MinLength: 8, MaxLength: 45, MinThickness: 3, MaxThickness: 12},
				RefLength: 22, RefThickness: 5.5,
			},
			models.ObjectZucchini: {
				Bounds:    DimensionBounds{MinLength: 6, MaxLength: 40, MinThickness: 2, MaxThickness: 9},
				RefLength: 20, RefThickness: 4.5,
			},
			models.ObjectCarrot: {
				Bounds:    DimensionBounds{MinLength: 5, MaxLength: 35, MinThickness: 1, MaxThickness: 6},
				RefLength: 17, RefThickness: 3,
			},
		},
		DefaultProfile: TypeProfile{
			Bounds:    DimensionBounds{MinLength: 3, MaxLength: 50, MinThickness: 0.5, MaxThickness: 15},
			RefLength: 18, RefThickness: 3.5,
		},
	}
}

// ProfileFor returns the profile for a type, falling back to the default
// profile for anything outside the table.
func (p ScorePolicy) ProfileFor(t models.ObjectType) TypeProfile {
	if profile, ok := p.Profiles[t]; ok {
		return profile
	}
	return p.DefaultProfile
}

// TruthPolicy tunes the decorative truthfulness heuristic.
type TruthPolicy struct {
	// Suspicion is a weighted mix of length excess over the type
	// reference and deviation of the length/thickness ratio from the
	// reference ratio.
	LengthWeight float64
	RatioWeight  float64

	SuspicionThreshold float64

	// Adjusted length = length × max(1-MaxShrink, 1-ShrinkFactor×suspicion).
	ShrinkFactor float64
	MaxShrink    float64

	MinFeatures int
	MaxFeatures int
}

// DefaultTruthPolicy returns the production truthfulness policy.
func DefaultTruthPolicy() TruthPolicy {
	return TruthPolicy{
		LengthWeight:       0.7,
		RatioWeight:        0.3,
		SuspicionThreshold: 0.35,
		ShrinkFactor:       0.5,
		MaxShrink:          0.35,
		MinFeatures:        2,
		MaxFeatures:        3,
	}
}
