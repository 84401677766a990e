package scoring

import (
	"math"

	"go-produce-measure/internal/logger"
	"go-produce-measure/pkg/models"
)

var suspiciousMessages = []string{
	"Physics would like a word with this measurement.",
	"Our lie detector started smoking. We adjusted the numbers for you.",
	"Bold claim. The camera angle says otherwise.",
	"Impressive, if true. It is probably not true.",
}

var honestMessages = []string{
	"Numbers check out. Respect.",
	"No funny business detected. A measurement of integrity.",
	"The camera does not lie today.",
}

var suspiciousFeaturePool = []string{
	"forced perspective detected",
	"suspicious camera proximity",
	"shadow angle looks rehearsed",
	"ruler conveniently absent",
	"wide-angle lens energy",
	"thumb positioned for scale inflation",
}

const truthErrorMessage = "Truth analysis hiccuped. We will assume the best of you."

// analyzeTruth computes the decorative suspicion verdict. Pure and
// deterministic given its inputs, except for message and feature
// selection. It never errors: a panic inside is replaced with a generic
// sub-result so entertainment can not break a measurement.
func (s *Scorer) analyzeTruth(t models.ObjectType, length, thickness float64) (ta *models.TruthAnalysis) {
	defer func() {
		if r := recover(); r != nil {
			logger.WithField("panic", r).Error("Truth analysis failed")
			ta = &models.TruthAnalysis{
				Suspicious:     false,
				AdjustedLength: length,
				Message:        truthErrorMessage,
			}
		}
	}()

	profile := s.policy.ProfileFor(t)
	refRatio := profile.RefLength / profile.RefThickness
	ratio := length / thickness

	lengthExcess := math.Max(0, (length-profile.RefLength)/profile.RefLength)
	ratioDeviation := math.Abs(ratio-refRatio) / refRatio

	suspicion := s.truth.LengthWeight*lengthExcess + s.truth.RatioWeight*ratioDeviation
	suspicion = math.Round(suspicion*100) / 100

	if suspicion < s.truth.SuspicionThreshold {
		return &models.TruthAnalysis{
			Suspicious:     false,
			SuspicionScore: suspicion,
			AdjustedLength: length,
			Message:        honestMessages[s.intn(len(honestMessages))],
		}
	}

	shrink := math.Max(1-s.truth.MaxShrink, 1-s.truth.ShrinkFactor*suspicion)
	return &models.TruthAnalysis{
		Suspicious:         true,
		SuspicionScore:     suspicion,
		AdjustedLength:     round1(length * shrink),
		Message:            suspiciousMessages[s.intn(len(suspiciousMessages))],
		SuspiciousFeatures: s.pickFeatures(),
	}
}

// pickFeatures samples a random subset of the canned feature labels.
func (s *Scorer) pickFeatures() []string {
	count := s.truth.MinFeatures
	if spread := s.truth.MaxFeatures - s.truth.MinFeatures; spread > 0 {
		count += s.intn(spread + 1)
	}
	if count > len(suspiciousFeaturePool) {
		count = len(suspiciousFeaturePool)
	}

	picked := make([]string, len(suspiciousFeaturePool))
	copy(picked, suspiciousFeaturePool)
	s.shuffle(len(picked), func(i, j int) {
		picked[i], picked[j] = picked[j], picked[i]
	})
	return picked[:count]
}
