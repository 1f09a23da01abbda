package classification

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Band is the coarse verdict the service derives from the nine scores.
type Band string

const (
	BandStronglyConstructive Band = "Sangat Membangun"
	BandConstructive         Band = "Membangun"
	BandNeutral              Band = "Netral"
	BandDestructive          Band = "Destruktif"
)

// DisplayBand is the presentation tier a band maps to.
type DisplayBand string

const (
	DisplayStronglyConstructive DisplayBand = "strongly-constructive"
	DisplayConstructive         DisplayBand = "constructive"
	DisplayNeutral              DisplayBand = "neutral"
	DisplayDestructive          DisplayBand = "destructive"
)

// ErrUnknownBand is returned for a band outside the fixed vocabulary.
var ErrUnknownBand = errors.New("classification: unknown band")

var bandDisplay = map[Band]DisplayBand{
	BandStronglyConstructive: DisplayStronglyConstructive,
	BandConstructive:         DisplayConstructive,
	BandNeutral:              DisplayNeutral,
	BandDestructive:          DisplayDestructive,
}

// Valid reports whether b is part of the band vocabulary.
func (b Band) Valid() bool {
	_, ok := bandDisplay[b]
	return ok
}

// BandLabel maps the service-supplied band to its presentation tier. The band
// is never recomputed from the scores. An unknown band yields DisplayNeutral
// together with an ErrUnknownBand error so callers can surface the drift.
func BandLabel(fs FinalScores) (DisplayBand, error) {
	if d, ok := bandDisplay[fs.Classification]; ok {
		return d, nil
	}
	return DisplayNeutral, fmt.Errorf("%w: %q", ErrUnknownBand, fs.Classification)
}

// Category is the single-label verdict (constructive, neutral, hate speech,
// unrelated) the service also reports.
type Category string

const (
	CategoryConstructive Category = "constructive"
	CategoryNeutral      Category = "neutral"
	CategoryHateSpeech   Category = "hate_speech"
	CategoryUnrelated    Category = "unrelated"
)

// Categories lists the category vocabulary in display order.
var Categories = []Category{
	CategoryConstructive,
	CategoryNeutral,
	CategoryHateSpeech,
	CategoryUnrelated,
}

// ErrUnknownCategory is returned for a category outside the vocabulary.
var ErrUnknownCategory = errors.New("classification: unknown category")

// Valid reports whether c is one of the four categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory normalizes and validates a category key.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
	}
	return c, nil
}

// CategoryInfo is the presentation entry for a category.
type CategoryInfo struct {
	Icon string
	Tone string
}

// CategoryTable maps each category to its presentation entry.
type CategoryTable struct {
	entries map[Category]CategoryInfo
}

// NewCategoryTable builds a table covering exactly the four categories.
func NewCategoryTable(entries map[Category]CategoryInfo) (*CategoryTable, error) {
	var unknown []string
	for c := range entries {
		if !c.Valid() {
			unknown = append(unknown, string(c))
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("%w: %s", ErrUnknownCategory, strings.Join(unknown, ", "))
	}
	for _, c := range Categories {
		if _, ok := entries[c]; !ok {
			return nil, fmt.Errorf("classification: category table missing %s", c)
		}
	}
	copied := make(map[Category]CategoryInfo, len(entries))
	for c, info := range entries {
		copied[c] = info
	}
	return &CategoryTable{entries: copied}, nil
}

// MustCategoryTable is NewCategoryTable for package-level tables.
func MustCategoryTable(entries map[Category]CategoryInfo) *CategoryTable {
	t, err := NewCategoryTable(entries)
	if err != nil {
		panic(err)
	}
	return t
}

// Lookup returns the entry for c.
func (t *CategoryTable) Lookup(c Category) (CategoryInfo, error) {
	info, ok := t.entries[c]
	if !ok {
		return CategoryInfo{}, fmt.Errorf("%w: %q", ErrUnknownCategory, c)
	}
	return info, nil
}

// DefaultCategories carries the icons shown next to the category verdict.
var DefaultCategories = MustCategoryTable(map[Category]CategoryInfo{
	CategoryConstructive: {Icon: "✅", Tone: "green"},
	CategoryNeutral:      {Icon: "ℹ️", Tone: "blue"},
	CategoryHateSpeech:   {Icon: "⚠️", Tone: "red"},
	CategoryUnrelated:    {Icon: "❓", Tone: "gray"},
})
