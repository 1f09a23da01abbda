// Package classification holds the classification result model returned by
// the GovSense service and the pure functions that interpret it for display.
package classification

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Criterion is one of the nine fixed scoring dimensions. The string value is
// the key used on the wire.
type Criterion string

const (
	CriterionFactualGrounding    Criterion = "keterkaitan_fakta"
	CriterionRespectfulTone      Criterion = "kejujuran_intelektual"
	CriterionSolutionOrientation Criterion = "mendorong_berpikir_kritis"
	CriterionIssueFocus          Criterion = "kesadaran_kekuasaan"
	CriterionSarcasmIntent       Criterion = "kreativitas"
	CriterionMisinformation      Criterion = "informasi_salah"
	CriterionHateSpeech          Criterion = "kebencian_perpecahan"
	CriterionPersonalAttacks     Criterion = "penghinaan_pribadi"
	CriterionProvocativeLanguage Criterion = "hasutan_bahaya"
)

// Polarity says which aggregate a criterion feeds.
type Polarity string

const (
	PolarityConstructive Polarity = "constructive"
	PolarityDestructive  Polarity = "destructive"
)

// Criteria lists every criterion in display order: constructive first.
var Criteria = []Criterion{
	CriterionFactualGrounding,
	CriterionRespectfulTone,
	CriterionSolutionOrientation,
	CriterionIssueFocus,
	CriterionSarcasmIntent,
	CriterionMisinformation,
	CriterionHateSpeech,
	CriterionPersonalAttacks,
	CriterionProvocativeLanguage,
}

var criterionPolarity = map[Criterion]Polarity{
	CriterionFactualGrounding:    PolarityConstructive,
	CriterionRespectfulTone:      PolarityConstructive,
	CriterionSolutionOrientation: PolarityConstructive,
	CriterionIssueFocus:          PolarityConstructive,
	CriterionSarcasmIntent:       PolarityConstructive,
	CriterionMisinformation:      PolarityDestructive,
	CriterionHateSpeech:          PolarityDestructive,
	CriterionPersonalAttacks:     PolarityDestructive,
	CriterionProvocativeLanguage: PolarityDestructive,
}

// ErrUnknownCriterion marks a criterion key outside the fixed set.
var ErrUnknownCriterion = errors.New("classification: unknown criterion")

// Valid reports whether c is one of the nine known criteria.
func (c Criterion) Valid() bool {
	_, ok := criterionPolarity[c]
	return ok
}

// Polarity returns the group c belongs to. It is empty for unknown keys.
func (c Criterion) Polarity() Polarity {
	return criterionPolarity[c]
}

// ParseCriterion validates a wire key.
func ParseCriterion(key string) (Criterion, error) {
	c := Criterion(strings.TrimSpace(key))
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCriterion, key)
	}
	return c, nil
}

// CriterionInfo is the presentation entry for one criterion.
type CriterionInfo struct {
	Label       string
	Description string
	Icon        string
}

// CriterionTable maps every criterion to its presentation entry.
type CriterionTable struct {
	entries map[Criterion]CriterionInfo
}

// NewCriterionTable builds a table and rejects it unless it covers exactly
// the nine known criteria.
func NewCriterionTable(entries map[Criterion]CriterionInfo) (*CriterionTable, error) {
	var unknown []string
	for c := range entries {
		if !c.Valid() {
			unknown = append(unknown, string(c))
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("%w: %s", ErrUnknownCriterion, strings.Join(unknown, ", "))
	}
	var missing []string
	for _, c := range Criteria {
		if _, ok := entries[c]; !ok {
			missing = append(missing, string(c))
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("classification: criterion table missing %s", strings.Join(missing, ", "))
	}

	copied := make(map[Criterion]CriterionInfo, len(entries))
	for c, info := range entries {
		copied[c] = info
	}
	return &CriterionTable{entries: copied}, nil
}

// MustCriterionTable is NewCriterionTable for package-level tables.
func MustCriterionTable(entries map[Criterion]CriterionInfo) *CriterionTable {
	t, err := NewCriterionTable(entries)
	if err != nil {
		panic(err)
	}
	return t
}

// Lookup returns the entry for c.
func (t *CriterionTable) Lookup(c Criterion) (CriterionInfo, error) {
	info, ok := t.entries[c]
	if !ok {
		return CriterionInfo{}, fmt.Errorf("%w: %q", ErrUnknownCriterion, c)
	}
	return info, nil
}

// DefaultCriteria carries the labels shown in the analysis panel.
var DefaultCriteria = MustCriterionTable(map[Criterion]CriterionInfo{
	CriterionFactualGrounding:    {Label: "Dasar Faktual", Description: "Factual grounding", Icon: "📊"},
	CriterionRespectfulTone:      {Label: "Nada & Respek", Description: "Respectful tone", Icon: "🎯"},
	CriterionSolutionOrientation: {Label: "Berorientasi Solusi", Description: "Solution orientation", Icon: "💡"},
	CriterionIssueFocus:          {Label: "Fokus pada Isu", Description: "Issue focus", Icon: "👁️"},
	CriterionSarcasmIntent:       {Label: "Niat Sarkasme", Description: "Sarcasm intent", Icon: "🎨"},
	CriterionMisinformation:      {Label: "Misinformasi", Description: "Misinformation", Icon: "❌"},
	CriterionHateSpeech:          {Label: "Ujaran Kebencian", Description: "Hate speech", Icon: "💢"},
	CriterionPersonalAttacks:     {Label: "Serangan Personal", Description: "Personal attacks", Icon: "🔥"},
	CriterionProvocativeLanguage: {Label: "Bahasa Provokatif", Description: "Provocative language", Icon: "⚠️"},
})
