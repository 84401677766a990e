package models

// ObjectType identifies the category of produce the model believes it saw.
type ObjectType string

const (
	ObjectCucumber ObjectType = "cucumber"
	ObjectBanana   ObjectType = "banana"
	ObjectEggplant ObjectType = "eggplant"
	ObjectZucchini ObjectType = "zucchini"
	ObjectCarrot   ObjectType = "carrot"
)

// KnownObjectTypes lists every accepted object category.
// Anything outside this list is treated as unrecognized.
var KnownObjectTypes = []ObjectType{
	ObjectCucumber,
	ObjectBanana,
	ObjectEggplant,
	ObjectZucchini,
	ObjectCarrot,
}

// IsKnownObjectType reports whether t is one of the accepted categories.
func IsKnownObjectType(t ObjectType) bool {
	for _, known := range KnownObjectTypes {
		if t == known {
			return true
		}
	}
	return false
}

// MeasurementRequest carries one uploaded image through the pipeline.
// It is created per request and discarded afterwards, never persisted.
// The image format is sniffed from the bytes during validation, so no
// client-declared content type travels with the request.
type MeasurementRequest struct {
	Image     []byte
	TruthMode bool
}

// RawEstimate is the normalized output of the vision model call.
// Every field is always present and correctly typed after normalization,
// even when the upstream text was malformed.
type RawEstimate struct {
	ObjectType        ObjectType `json:"object_type"`
	MultipleObjects   bool       `json:"multiple_objects"`
	LowQuality        bool       `json:"low_quality"`
	LengthEstimate    float64    `json:"length_estimate"`
	ThicknessEstimate float64    `json:"thickness_estimate"`
	FreshnessScore    float64    `json:"freshness_score"`
	OverallScore      float64    `json:"overall_score"`
	CommentText       string     `json:"comment_text"`

	// ParseError is diagnostic only: set when structured parsing failed
	// and fallback extraction produced this estimate.
	ParseError string `json:"parse_error,omitempty"`
}

// MeasurementResult is the user-visible record returned to the client.
// Derived deterministically from a RawEstimate, never mutated afterwards.
type MeasurementResult struct {
	Type      ObjectType     `json:"type"`
	Length    float64        `json:"length"`
	Thickness float64        `json:"thickness"`
	Freshness int            `json:"freshness"`
	Score     float64        `json:"score"`
	Comment   string         `json:"comment"`
	Truth     *TruthAnalysis `json:"truth_analysis,omitempty"`
}

// TruthAnalysis is the decorative truthfulness sub-record, attached only
// when the client asked for it.
type TruthAnalysis struct {
	Suspicious         bool     `json:"suspicious"`
	SuspicionScore     float64  `json:"suspicion_score"`
	AdjustedLength     float64  `json:"adjusted_length"`
	Message            string   `json:"message"`
	SuspiciousFeatures []string `json:"suspicious_features,omitempty"`
}
