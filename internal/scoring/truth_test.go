package scoring

import (
	"math/rand"
	"testing"

	"go-produce-measure/pkg/models"
)

func TestTruthHonestAtReferenceDimensions(t *testing.T) {
	scorer := newTestScorer(7)
	profile := DefaultScorePolicy().Profiles[models.ObjectBanana]

	ta := scorer.analyzeTruth(models.ObjectBanana, profile.RefLength, profile.RefThickness)

	if ta.Suspicious {
		t.Errorf("reference dimensions must not be suspicious, score %v", ta.SuspicionScore)
	}
	if ta.AdjustedLength != profile.RefLength {
		t.Errorf("honest verdict must keep the length, got %v", ta.AdjustedLength)
	}
	if ta.Message == "" {
		t.Error("message must be set")
	}
	if len(ta.SuspiciousFeatures) != 0 {
		t.Error("honest verdict must not list suspicious features")
	}
}

func TestTruthFlagsExaggeratedLength(t *testing.T) {
	scorer := newTestScorer(7)

	// A 30cm banana claim is well past the 18cm reference.
	ta := scorer.analyzeTruth(models.ObjectBanana, 30, 3.2)

	if !ta.Suspicious {
		t.Fatalf("expected suspicion for 30cm banana, score %v", ta.SuspicionScore)
	}
	if ta.AdjustedLength >= 30 {
		t.Errorf("adjusted length %v must shrink the claim", ta.AdjustedLength)
	}
	policy := DefaultTruthPolicy()
	floor := 30 * (1 - policy.MaxShrink)
	if ta.AdjustedLength < floor-0.1 {
		t.Errorf("adjusted length %v below bounded shrink floor %v", ta.AdjustedLength, floor)
	}
	if len(ta.SuspiciousFeatures) < policy.MinFeatures || len(ta.SuspiciousFeatures) > policy.MaxFeatures {
		t.Errorf("feature count %d outside [%d,%d]", len(ta.SuspiciousFeatures), policy.MinFeatures, policy.MaxFeatures)
	}
	if ta.Message == "" {
		t.Error("message must be set")
	}
}

func TestTruthFeaturesAreDistinct(t *testing.T) {
	scorer := newTestScorer(3)
	ta := scorer.analyzeTruth(models.ObjectCucumber, 40, 1)
	if !ta.Suspicious {
		t.Fatal("expected suspicion")
	}
	seen := map[string]bool{}
	for _, f := range ta.SuspiciousFeatures {
		if seen[f] {
			t.Errorf("duplicate feature %q", f)
		}
		seen[f] = true
	}
}

func TestTruthUnknownTypeUsesDefaultProfile(t *testing.T) {
	scorer := NewScorer(DefaultScorePolicy(), DefaultTruthPolicy(), rand.New(rand.NewSource(5)))
	ta := scorer.analyzeTruth("", 18, 3.5)
	if ta == nil {
		t.Fatal("truth analysis must always return a record")
	}
	if ta.Suspicious {
		t.Errorf("default reference dimensions must pass, score %v", ta.SuspicionScore)
	}
}

func TestTruthSuspicionDeterministic(t *testing.T) {
	a := newTestScorer(1).analyzeTruth(models.ObjectCarrot, 28, 2)
	b := newTestScorer(2).analyzeTruth(models.ObjectCarrot, 28, 2)
	if a.Suspicious != b.Suspicious || a.SuspicionScore != b.SuspicionScore || a.AdjustedLength != b.AdjustedLength {
		t.Error("suspicion verdict must not depend on the random source")
	}
}
