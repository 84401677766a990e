// Package normalize turns the loosely structured text returned by the
// vision model into a fully typed estimate. It never returns an error:
// a formatting hiccup upstream must degrade into a usable record, not a
// hard failure for the user.
package normalize

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"go-produce-measure/pkg/models"

	"github.com/arbovm/levenshtein"
)

// FallbackComment is returned when the model produced no usable sentence.
const FallbackComment = "Analysis incomplete. The inspector needs a clearer look, but the measurement stands."

const parseFailedNote = "structured parse failed, fallback extraction used"

var (
	// Non-nested brace scan: the measurement schema is flat, so the whole
	// object matches. Nested output falls through to the first/last
	// brace candidate and then to keyword extraction.
	braceCandidateRe = regexp.MustCompile(`\{[^{}]*\}`)

	controlCharRe    = regexp.MustCompile("[\x00-\x1f\x7f]+")
	trailingCommaRe  = regexp.MustCompile(`,\s*([}\]])`)
	duplicateCommaRe = regexp.MustCompile(`,(?:\s*,)+`)
	emptyValueRe     = regexp.MustCompile(`:\s*([,}])`)
	quoteSpacingRe   = regexp.MustCompile(`"\s+:`)

	lengthLabelRe    = regexp.MustCompile(`(?i)(?:length|長度|长度)[^0-9]{0,12}(\d+(?:\.\d+)?)`)
	thicknessLabelRe = regexp.MustCompile(`(?i)(?:thickness|width|diameter|粗細|粗细|直徑|直径)[^0-9]{0,12}(\d+(?:\.\d+)?)`)
	leadingNumberRe  = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

	sentenceSplitRe = regexp.MustCompile(`[.!?。！？;\n]`)
)

// Keyword tables for fallback extraction, English plus Traditional
// Chinese as the app's audience writes it.
var objectKeywords = []struct {
	objectType models.ObjectType
	keywords   []string
}{
	{models.ObjectCucumber, []string{"cucumber", "小黃瓜", "黃瓜", "青瓜"}},
	{models.ObjectBanana, []string{"banana", "香蕉"}},
	{models.ObjectEggplant, []string{"eggplant", "aubergine", "茄子"}},
	{models.ObjectZucchini, []string{"zucchini", "courgette", "櫛瓜"}},
	{models.ObjectCarrot, []string{"carrot", "紅蘿蔔", "胡蘿蔔"}},
}

var lowQualityKeywords = []string{"blur", "unclear", "too dark", "模糊", "不清楚", "看不清", "太暗"}

var multipleKeywords = []string{"multiple", "several", "more than one", "多個", "多个", "幾根", "几根", "多根"}

// Estimate normalizes raw model output into a fully populated record.
// Ordered attempts: cleaned-up strict parse of the best brace candidate,
// strict parse of the raw candidate, then keyword/regex fallback.
func Estimate(raw string) models.RawEstimate {
	text := stripCodeFences(strings.TrimSpace(raw))

	if candidate, ok := extractCandidate(text); ok {
		if m, err := parseObject(cleanupJSON(candidate)); err == nil {
			return sanitize(fromMap(m))
		}
		if m, err := parseObject(candidate); err == nil {
			return sanitize(fromMap(m))
		}
	}

	return sanitize(fallbackExtract(text))
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// extractCandidate picks the most promising JSON substring: the longest
// balanced-brace match, or everything between the first and last brace.
func extractCandidate(text string) (string, bool) {
	first := strings.Index(text, "{")
	last := strings.LastIndex(text, "}")
	if first < 0 || last <= first {
		return "", false
	}

	matches := braceCandidateRe.FindAllString(text, -1)
	candidate := ""
	for _, m := range matches {
		if len(m) > len(candidate) {
			candidate = m
		}
	}
	if candidate == "" {
		candidate = text[first : last+1]
	}
	return candidate, true
}

// cleanupJSON repairs the common ways the model mangles its own JSON.
func cleanupJSON(s string) string {
	s = controlCharRe.ReplaceAllString(s, " ")
	s = strings.ReplaceAll(s, "\n", " ")
	s = duplicateCommaRe.ReplaceAllString(s, ",")
	s = trailingCommaRe.ReplaceAllString(s, "$1")
	s = emptyValueRe.ReplaceAllString(s, ": null$1")
	s = quoteSpacingRe.ReplaceAllString(s, `":`)
	return s
}

func parseObject(candidate string) (map[string]any, error) {
	var m map[string]any
	if err := json.Unmarshal([]byte(candidate), &m); err != nil {
		return nil, err
	}
	return m, nil
}

func fromMap(m map[string]any) models.RawEstimate {
	return models.RawEstimate{
		ObjectType:        models.ObjectType(toString(m["objectType"])),
		MultipleObjects:   toBool(m["multipleObjects"]),
		LowQuality:        toBool(m["lowQuality"]),
		LengthEstimate:    toFloat(m["lengthEstimate"]),
		ThicknessEstimate: toFloat(m["thicknessEstimate"]),
		FreshnessScore:    toFloat(m["freshnessScore"]),
		OverallScore:      toFloat(m["overallScore"]),
		CommentText:       toString(m["commentText"]),
	}
}

// fallbackExtract recovers whatever it can from free-form text once
// structured parsing is off the table.
func fallbackExtract(text string) models.RawEstimate {
	lower := strings.ToLower(text)

	est := models.RawEstimate{
		FreshnessScore: 5,
		OverallScore:   5,
		ParseError:     parseFailedNote,
	}

	for _, entry := range objectKeywords {
		if containsAny(lower, entry.keywords) {
			est.ObjectType = entry.objectType
			break
		}
	}

	if v, ok := labelledNumber(lengthLabelRe, text); ok {
		est.LengthEstimate = v
	}
	if v, ok := labelledNumber(thicknessLabelRe, text); ok {
		est.ThicknessEstimate = v
	}

	est.CommentText = longestSentence(text)
	est.LowQuality = containsAny(lower, lowQualityKeywords)
	est.MultipleObjects = containsAny(lower, multipleKeywords)
	return est
}

func containsAny(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func labelledNumber(re *regexp.Regexp, text string) (float64, bool) {
	m := re.FindStringSubmatch(text)
	if len(m) < 2 {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// longestSentence returns the longest trimmed sentence of more than 15
// characters, or empty when nothing qualifies.
func longestSentence(text string) string {
	best := ""
	bestLen := 0
	for _, part := range sentenceSplitRe.Split(text, -1) {
		part = strings.TrimSpace(part)
		n := utf8.RuneCountInString(part)
		if n > 15 && n > bestLen {
			best = part
			bestLen = n
		}
	}
	return best
}

// sanitize enforces the field-level invariants regardless of which parse
// branch produced the estimate.
func sanitize(est models.RawEstimate) models.RawEstimate {
	est.ObjectType = sanitizeObjectType(string(est.ObjectType))
	est.LengthEstimate = sanitizeNumber(est.LengthEstimate)
	est.ThicknessEstimate = sanitizeNumber(est.ThicknessEstimate)
	est.FreshnessScore = sanitizeNumber(est.FreshnessScore)
	est.OverallScore = sanitizeNumber(est.OverallScore)
	if strings.TrimSpace(est.CommentText) == "" {
		est.CommentText = FallbackComment
	}
	return est
}

// sanitizeObjectType accepts only the fixed enumeration. Near-miss
// spellings from the model ("bananna", "Cucumber.") snap to the closest
// known type within levenshtein distance 2.
func sanitizeObjectType(s string) models.ObjectType {
	cleaned := strings.ToLower(strings.TrimSpace(s))
	cleaned = strings.TrimFunc(cleaned, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	if cleaned == "" {
		return ""
	}

	if t := models.ObjectType(cleaned); models.IsKnownObjectType(t) {
		return t
	}
	if utf8.RuneCountInString(cleaned) >= 4 {
		for _, known := range models.KnownObjectTypes {
			if levenshtein.Distance(cleaned, string(known)) <= 2 {
				return known
			}
		}
	}
	return ""
}

func sanitizeNumber(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func toBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "yes", "1":
			return true
		}
	case float64:
		return t != 0
	}
	return false
}

func toFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return sanitizeNumber(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0
		}
		return sanitizeNumber(f)
	case string:
		trimmed := strings.TrimSpace(t)
		if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return sanitizeNumber(f)
		}
		if m := leadingNumberRe.FindString(trimmed); m != "" {
			if f, err := strconv.ParseFloat(m, 64); err == nil {
				return sanitizeNumber(f)
			}
		}
	}
	return 0
}
