// Package scoring turns normalized model estimates into the bounded,
// user-visible measurement record.
package scoring

import (
	"math"
	"math/rand"
	"strings"
	"sync"

	"go-produce-measure/internal/normalize"
	"go-produce-measure/pkg/models"
)

// Scorer applies the fixed scoring policies. The random source only
// affects canned comment and truthfulness message selection, never the
// numeric fields, and is injectable so tests can pin it.
type Scorer struct {
	policy ScorePolicy
	truth  TruthPolicy

	mu  sync.Mutex
	rng *rand.Rand
}

func NewScorer(policy ScorePolicy, truth TruthPolicy, rng *rand.Rand) *Scorer {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return &Scorer{policy: policy, truth: truth, rng: rng}
}

// NewDefaultScorer builds a scorer with the production policy tables.
func NewDefaultScorer() *Scorer {
	return NewScorer(DefaultScorePolicy(), DefaultTruthPolicy(), nil)
}

// Score derives the final result from a raw estimate. Output invariants:
// freshness is an integer in [0, 10], score is in [0.0, 9.5] with one
// decimal, length and thickness are finite positive numbers with one
// decimal.
func (s *Scorer) Score(est models.RawEstimate, truthMode bool) models.MeasurementResult {
	profile := s.policy.ProfileFor(est.ObjectType)

	overall := clamp(est.OverallScore, 0, s.policy.MaxScore)
	freshness := int(clamp(math.Round(est.FreshnessScore), 0, float64(s.policy.MaxFreshness)))

	length := round1(clamp(est.LengthEstimate, profile.Bounds.MinLength, profile.Bounds.MaxLength))
	thickness := round1(clamp(est.ThicknessEstimate, profile.Bounds.MinThickness, profile.Bounds.MaxThickness))

	// Freshness is rescaled from 0-10 to the score range before mixing.
	freshnessTerm := float64(freshness) / float64(s.policy.MaxFreshness) * s.policy.MaxScore
	dimTerm := s.dimensionScore(length, thickness, profile)

	score := s.policy.OverallWeight*overall +
		s.policy.FreshnessWeight*freshnessTerm +
		s.policy.DimensionWeight*dimTerm
	score = round1(clamp(score, 0, s.policy.MaxScore))

	// The normalizer's static placeholder means the model gave nothing
	// quotable, so it gets the same treatment as an empty comment.
	comment := strings.TrimSpace(est.CommentText)
	if comment == "" || comment == normalize.FallbackComment {
		comment = s.cannedComment(est.ObjectType, length, thickness, freshness)
	}

	result := models.MeasurementResult{
		Type:      est.ObjectType,
		Length:    length,
		Thickness: thickness,
		Freshness: freshness,
		Score:     score,
		Comment:   comment,
	}

	if truthMode {
		result.Truth = s.analyzeTruth(est.ObjectType, length, thickness)
	}
	return result
}

// dimensionScore rewards measurements close to the type reference:
// full marks at the reference, linearly down to zero at 100% deviation.
func (s *Scorer) dimensionScore(length, thickness float64, profile TypeProfile) float64 {
	lengthCloseness := 1 - math.Min(1, math.Abs(length-profile.RefLength)/profile.RefLength)
	thicknessCloseness := 1 - math.Min(1, math.Abs(thickness-profile.RefThickness)/profile.RefThickness)
	return (lengthCloseness + thicknessCloseness) / 2 * s.policy.MaxScore
}

func (s *Scorer) intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}

func (s *Scorer) shuffle(n int, swap func(i, j int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rng.Shuffle(n, swap)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
