package classification

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// FinalScores aggregates the two polarity groups. The percentages come from
// disjoint criteria and need not sum to 100.
type FinalScores struct {
	ConstructivePercentage float64 `json:"constructive_percentage"`
	DestructivePercentage  float64 `json:"destructive_percentage"`
	Classification         Band    `json:"classification"`
}

// Result is the payload returned by /classify_text and /classify_image.
type Result struct {
	Category          Category             `json:"classification,omitempty"`
	Confidence        float64              `json:"confidence"`
	Explanation       string               `json:"explanation"`
	RawOutput         string               `json:"raw_output,omitempty"`
	Timestamp         Instant              `json:"timestamp"`
	Scores            map[Criterion]int    `json:"scores,omitempty"`
	Reasoning         map[Criterion]string `json:"reasoning,omitempty"`
	KeyFindings       []string             `json:"key_findings,omitempty"`
	ContextReferences []string             `json:"context_references,omitempty"`
	RedFlags          []string             `json:"red_flags,omitempty"`
	OverallImpression string               `json:"overall_impression,omitempty"`
	FinalScores       *FinalScores         `json:"final_scores,omitempty"`
}

// ErrInvalidResult wraps every range or vocabulary violation found by Validate.
var ErrInvalidResult = errors.New("classification: invalid result")

// Validate checks score ranges and key vocabularies. Unknown criteria, bands
// or categories are errors rather than silently ignored.
func (r *Result) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: nil result", ErrInvalidResult)
	}
	var errs []error
	for c, score := range r.Scores {
		if !c.Valid() {
			errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownCriterion, c))
			continue
		}
		if score < 0 || score > 100 {
			errs = append(errs, fmt.Errorf("score %s=%d out of range", c, score))
		}
	}
	for c := range r.Reasoning {
		if !c.Valid() {
			errs = append(errs, fmt.Errorf("%w in reasoning: %q", ErrUnknownCriterion, c))
		}
	}
	if fs := r.FinalScores; fs != nil {
		if !inPercentRange(fs.ConstructivePercentage) {
			errs = append(errs, fmt.Errorf("constructive_percentage %.2f out of range", fs.ConstructivePercentage))
		}
		if !inPercentRange(fs.DestructivePercentage) {
			errs = append(errs, fmt.Errorf("destructive_percentage %.2f out of range", fs.DestructivePercentage))
		}
		if !fs.Classification.Valid() {
			errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownBand, fs.Classification))
		}
	}
	if r.Category != "" && !r.Category.Valid() {
		errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownCategory, r.Category))
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		errs = append(errs, fmt.Errorf("confidence %.2f out of range", r.Confidence))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidResult, errors.Join(errs...))
}

func inPercentRange(v float64) bool {
	return v >= 0 && v <= 100
}

// Clone returns a deep copy so callers cannot mutate a stored result.
func (r *Result) Clone() *Result {
	if r == nil {
		return nil
	}
	out := *r
	if r.Scores != nil {
		out.Scores = make(map[Criterion]int, len(r.Scores))
		for k, v := range r.Scores {
			out.Scores[k] = v
		}
	}
	if r.Reasoning != nil {
		out.Reasoning = make(map[Criterion]string, len(r.Reasoning))
		for k, v := range r.Reasoning {
			out.Reasoning[k] = v
		}
	}
	out.KeyFindings = cloneStrings(r.KeyFindings)
	out.ContextReferences = cloneStrings(r.ContextReferences)
	out.RedFlags = cloneStrings(r.RedFlags)
	if r.FinalScores != nil {
		fs := *r.FinalScores
		out.FinalScores = &fs
	}
	return &out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

// Instant is a timestamp that also accepts the zone-less ISO-8601 form
// ("2024-05-01T10:20:30.123456") some services emit.
type Instant struct {
	time.Time
}

var instantLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// NewInstant wraps t in UTC.
func NewInstant(t time.Time) Instant {
	return Instant{Time: t.UTC()}
}

// UnmarshalJSON implements json.Unmarshaler.
func (i *Instant) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		i.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("classification: timestamp must be a string: %w", err)
	}
	if s == "" {
		i.Time = time.Time{}
		return nil
	}
	for _, layout := range instantLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			i.Time = t
			return nil
		}
	}
	return fmt.Errorf("classification: unrecognised timestamp %q", s)
}

// MarshalJSON implements json.Marshaler.
func (i Instant) MarshalJSON() ([]byte, error) {
	if i.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(i.Time.Format(time.RFC3339Nano))
}
