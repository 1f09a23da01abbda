package classification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBandLabel(t *testing.T) {
	tests := []struct {
		band Band
		want DisplayBand
	}{
		{BandStronglyConstructive, DisplayStronglyConstructive},
		{BandConstructive, DisplayConstructive},
		{BandNeutral, DisplayNeutral},
		{BandDestructive, DisplayDestructive},
	}
	for _, tt := range tests {
		got, err := BandLabel(FinalScores{Classification: tt.band})
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestBandLabelIgnoresScores(t *testing.T) {
	got, err := BandLabel(FinalScores{ConstructivePercentage: 2, DestructivePercentage: 97, Classification: BandStronglyConstructive})
	require.NoError(t, err)
	assert.Equal(t, DisplayStronglyConstructive, got)
}

func TestBandLabelUnknownFailsLoudly(t *testing.T) {
	got, err := BandLabel(FinalScores{Classification: "Very Constructive"})
	require.ErrorIs(t, err, ErrUnknownBand)
	assert.Equal(t, DisplayNeutral, got)
}

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory(" Hate_Speech ")
	require.NoError(t, err)
	assert.Equal(t, CategoryHateSpeech, c)

	_, err = ParseCategory("spam")
	assert.ErrorIs(t, err, ErrUnknownCategory)
}

func TestCategoryTableValidation(t *testing.T) {
	_, err := NewCategoryTable(map[Category]CategoryInfo{
		CategoryConstructive: {Icon: "✅"},
		CategoryNeutral:      {Icon: "ℹ️"},
		CategoryHateSpeech:   {Icon: "⚠️"},
	})
	assert.ErrorContains(t, err, "missing unrelated")

	_, err = NewCategoryTable(map[Category]CategoryInfo{
		CategoryConstructive: {}, CategoryNeutral: {}, CategoryHateSpeech: {}, CategoryUnrelated: {},
		"spam": {},
	})
	assert.ErrorIs(t, err, ErrUnknownCategory)

	info, err := DefaultCategories.Lookup(CategoryUnrelated)
	require.NoError(t, err)
	assert.Equal(t, "❓", info.Icon)
}

func TestCriterionTableValidation(t *testing.T) {
	entries := map[Criterion]CriterionInfo{}
	for _, c := range Criteria {
		entries[c] = CriterionInfo{Label: string(c)}
	}
	_, err := NewCriterionTable(entries)
	require.NoError(t, err)

	delete(entries, CriterionHateSpeech)
	_, err = NewCriterionTable(entries)
	assert.ErrorContains(t, err, string(CriterionHateSpeech))

	entries[CriterionHateSpeech] = CriterionInfo{}
	entries["toxicity"] = CriterionInfo{}
	_, err = NewCriterionTable(entries)
	assert.ErrorIs(t, err, ErrUnknownCriterion)

	assert.Panics(t, func() { MustCriterionTable(map[Criterion]CriterionInfo{}) })
}

func TestCriterionPolarity(t *testing.T) {
	constructive, destructive := 0, 0
	for _, c := range Criteria {
		switch c.Polarity() {
		case PolarityConstructive:
			constructive++
		case PolarityDestructive:
			destructive++
		}
	}
	assert.Equal(t, 5, constructive)
	assert.Equal(t, 4, destructive)

	_, err := ParseCriterion("toxicity")
	assert.ErrorIs(t, err, ErrUnknownCriterion)
	c, err := ParseCriterion("hasutan_bahaya")
	require.NoError(t, err)
	assert.Equal(t, CriterionProvocativeLanguage, c)
}
