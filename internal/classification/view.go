package classification

import (
	"fmt"
	"time"
)

// BandView is the aggregate verdict panel.
type BandView struct {
	Band         Band        `json:"band"`
	Display      DisplayBand `json:"display"`
	Constructive string      `json:"constructive"`
	Destructive  string      `json:"destructive"`
}

// CriterionRow is one line of the detailed score panel.
type CriterionRow struct {
	Criterion   Criterion `json:"criterion"`
	Label       string    `json:"label"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	Polarity    Polarity  `json:"polarity"`
	Score       int       `json:"score"`
	Tier        Tier      `json:"tier"`
	Reasoning   string    `json:"reasoning,omitempty"`
}

// View is a render-ready interpretation of a Result.
type View struct {
	Category          Category       `json:"category,omitempty"`
	CategoryLabel     string         `json:"category_label,omitempty"`
	CategoryIcon      string         `json:"category_icon,omitempty"`
	Confidence        string         `json:"confidence"`
	Band              *BandView      `json:"band,omitempty"`
	Explanation       string         `json:"explanation"`
	Criteria          []CriterionRow `json:"criteria,omitempty"`
	RedFlags          []string       `json:"red_flags,omitempty"`
	KeyFindings       []string       `json:"key_findings,omitempty"`
	ContextReferences []string       `json:"context_references,omitempty"`
	OverallImpression string         `json:"overall_impression,omitempty"`
	Timestamp         time.Time      `json:"timestamp"`
}

// Interpreter renders results with a fixed pair of presentation tables.
type Interpreter struct {
	criteria   *CriterionTable
	categories *CategoryTable
}

// NewInterpreter builds an interpreter. Nil tables fall back to the defaults.
func NewInterpreter(criteria *CriterionTable, categories *CategoryTable) *Interpreter {
	if criteria == nil {
		criteria = DefaultCriteria
	}
	if categories == nil {
		categories = DefaultCategories
	}
	return &Interpreter{criteria: criteria, categories: categories}
}

// Interpret is NewInterpreter(nil, nil).Interpret.
func Interpret(r *Result) (View, error) {
	return NewInterpreter(nil, nil).Interpret(r)
}

// Interpret maps r to a View. It has no side effects and may be called
// repeatedly on the same result.
func (in *Interpreter) Interpret(r *Result) (View, error) {
	if r == nil {
		return View{}, fmt.Errorf("%w: nil result", ErrInvalidResult)
	}
	v := View{
		Confidence:        fmt.Sprintf("%.1f%%", r.Confidence*100),
		Explanation:       r.Explanation,
		RedFlags:          cloneStrings(r.RedFlags),
		KeyFindings:       cloneStrings(r.KeyFindings),
		ContextReferences: cloneStrings(r.ContextReferences),
		OverallImpression: r.OverallImpression,
		Timestamp:         r.Timestamp.Time,
	}

	if r.Category != "" {
		info, err := in.categories.Lookup(r.Category)
		if err != nil {
			return View{}, err
		}
		v.Category = r.Category
		v.CategoryLabel = FormatLabel(string(r.Category))
		v.CategoryIcon = info.Icon
	}

	if fs := r.FinalScores; fs != nil {
		display, err := BandLabel(*fs)
		if err != nil {
			return View{}, err
		}
		v.Band = &BandView{
			Band:         fs.Classification,
			Display:      display,
			Constructive: fmt.Sprintf("%.2f%%", fs.ConstructivePercentage),
			Destructive:  fmt.Sprintf("%.2f%%", fs.DestructivePercentage),
		}
	}

	for c := range r.Scores {
		if !c.Valid() {
			return View{}, fmt.Errorf("%w: %q", ErrUnknownCriterion, c)
		}
	}
	for _, c := range Criteria {
		score, ok := r.Scores[c]
		if !ok {
			continue
		}
		info, err := in.criteria.Lookup(c)
		if err != nil {
			return View{}, err
		}
		v.Criteria = append(v.Criteria, CriterionRow{
			Criterion:   c,
			Label:       info.Label,
			Description: info.Description,
			Icon:        info.Icon,
			Polarity:    c.Polarity(),
			Score:       score,
			Tier:        ScoreTier(score),
			Reasoning:   r.Reasoning[c],
		})
	}
	return v, nil
}
