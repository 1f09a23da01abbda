package classifier

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/wolfman30/govsense/internal/classification"
)

// ParsePath records how a reply was understood.
type ParsePath string

const (
	ParseJSON  ParsePath = "json"
	ParseLines ParsePath = "lines"
)

const (
	defaultConfidence     = 0.75
	explanationFallbackCh = 200
)

type modelReply struct {
	Scores            map[string]float64 `json:"scores"`
	Reasoning         map[string]string  `json:"reasoning"`
	Classification    string             `json:"classification"`
	Confidence        *float64           `json:"confidence"`
	Explanation       string             `json:"explanation"`
	KeyFindings       []string           `json:"key_findings"`
	ContextReferences []string           `json:"context_references"`
	RedFlags          []string           `json:"red_flags"`
	OverallImpression string             `json:"overall_impression"`
	FinalScores       *struct {
		ConstructivePercentage float64 `json:"constructive_percentage"`
		DestructivePercentage  float64 `json:"destructive_percentage"`
		Classification         string  `json:"classification"`
	} `json:"final_scores"`
}

// ParseReply turns raw model output into a result. A JSON object anywhere in
// the output is preferred; otherwise CLASSIFICATION:/CONFIDENCE:/EXPLANATION:
// lines are read. The result always validates.
func ParseReply(raw string, now time.Time) (*classification.Result, ParsePath) {
	if r, ok := parseJSONReply(raw); ok {
		r.RawOutput = raw
		r.Timestamp = classification.NewInstant(now)
		return r, ParseJSON
	}
	r := parseLineReply(raw)
	r.RawOutput = raw
	r.Timestamp = classification.NewInstant(now)
	return r, ParseLines
}

// extractJSON returns the span from the first '{' to the last '}'.
func extractJSON(raw string) (string, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return raw[start : end+1], true
}

func parseJSONReply(raw string) (*classification.Result, bool) {
	body, ok := extractJSON(raw)
	if !ok {
		return nil, false
	}
	var reply modelReply
	if err := json.Unmarshal([]byte(body), &reply); err != nil {
		return nil, false
	}

	r := &classification.Result{
		Category:          categoryOrSearch(reply.Classification, raw),
		Confidence:        defaultConfidence,
		Explanation:       reply.Explanation,
		KeyFindings:       reply.KeyFindings,
		ContextReferences: reply.ContextReferences,
		RedFlags:          reply.RedFlags,
		OverallImpression: reply.OverallImpression,
	}
	if reply.Confidence != nil {
		r.Confidence = clamp(*reply.Confidence, 0, 1)
	}

	for key, v := range reply.Scores {
		c, err := classification.ParseCriterion(key)
		if err != nil {
			continue
		}
		if r.Scores == nil {
			r.Scores = make(map[classification.Criterion]int, len(classification.Criteria))
		}
		r.Scores[c] = int(math.Round(clamp(v, 0, 100)))
	}
	for key, text := range reply.Reasoning {
		c, err := classification.ParseCriterion(key)
		if err != nil || strings.TrimSpace(text) == "" {
			continue
		}
		if r.Reasoning == nil {
			r.Reasoning = make(map[classification.Criterion]string)
		}
		r.Reasoning[c] = text
	}
	if len(r.Reasoning) == 0 && len(r.Scores) > 0 {
		r.Reasoning = make(map[classification.Criterion]string, len(r.Scores))
		for c, score := range r.Scores {
			r.Reasoning[c] = classification.DefaultReasoning(score)
		}
	}

	if fs := reply.FinalScores; fs != nil {
		if band, ok := matchBand(fs.Classification); ok {
			r.FinalScores = &classification.FinalScores{
				ConstructivePercentage: clamp(fs.ConstructivePercentage, 0, 100),
				DestructivePercentage:  clamp(fs.DestructivePercentage, 0, 100),
				Classification:         band,
			}
		}
	}
	return r, true
}

func parseLineReply(raw string) *classification.Result {
	var category, explanation string
	confidence := 0.0
	for _, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "CLASSIFICATION:"):
			category = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(line, "CLASSIFICATION:")))
		case strings.HasPrefix(line, "CONFIDENCE:"):
			v, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimPrefix(line, "CONFIDENCE:")), 64)
			if err != nil {
				v = defaultConfidence
			}
			confidence = v
		case strings.HasPrefix(line, "EXPLANATION:"):
			explanation = strings.TrimSpace(strings.TrimPrefix(line, "EXPLANATION:"))
		}
	}
	if explanation == "" {
		explanation = truncateRunes(raw, explanationFallbackCh)
	}
	return &classification.Result{
		Category:    categoryOrSearch(category, raw),
		Confidence:  clamp(confidence, 0, 1),
		Explanation: explanation,
	}
}

// categoryOrSearch accepts a valid category, else looks for one mentioned in
// the raw output, else falls back to neutral.
func categoryOrSearch(candidate, raw string) classification.Category {
	if c, err := classification.ParseCategory(candidate); err == nil {
		return c
	}
	lower := strings.ToLower(raw)
	for _, c := range classification.Categories {
		if strings.Contains(lower, string(c)) {
			return c
		}
	}
	return classification.CategoryNeutral
}

func matchBand(s string) (classification.Band, bool) {
	s = strings.TrimSpace(s)
	for _, b := range []classification.Band{
		classification.BandStronglyConstructive,
		classification.BandConstructive,
		classification.BandNeutral,
		classification.BandDestructive,
	} {
		if strings.EqualFold(s, string(b)) {
			return b, true
		}
	}
	return "", false
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Min(math.Max(v, lo), hi)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
