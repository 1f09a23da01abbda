package classification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterpretHighestConstructiveTier(t *testing.T) {
	r := decodeSample(t)

	v, err := Interpret(r)
	require.NoError(t, err)

	require.NotNil(t, v.Band)
	assert.Equal(t, DisplayStronglyConstructive, v.Band.Display)
	assert.Equal(t, "85.00%", v.Band.Constructive)
	assert.Equal(t, "5.00%", v.Band.Destructive)
	assert.Equal(t, "Constructive", v.CategoryLabel)
	assert.Equal(t, "✅", v.CategoryIcon)
	assert.Equal(t, "92.0%", v.Confidence)

	require.Len(t, v.Criteria, 9)
	assert.Equal(t, CriterionFactualGrounding, v.Criteria[0].Criterion)
	assert.Equal(t, "Dasar Faktual", v.Criteria[0].Label)
	assert.Equal(t, TierHigh, v.Criteria[0].Tier)
	assert.Equal(t, "Mengutip data resmi.", v.Criteria[0].Reasoning)
	assert.Equal(t, TierMediumHigh, v.Criteria[2].Tier)
	assert.Equal(t, TierMediumLow, v.Criteria[4].Tier)
	assert.Equal(t, TierLow, v.Criteria[5].Tier)
	assert.Equal(t, PolarityDestructive, v.Criteria[8].Polarity)
}

func TestInterpretIsIdempotent(t *testing.T) {
	r := decodeSample(t)
	first, err := Interpret(r)
	require.NoError(t, err)
	second, err := Interpret(r)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestInterpretWithoutScores(t *testing.T) {
	v, err := Interpret(&Result{Category: CategoryUnrelated, Confidence: 0.5, Explanation: "not political"})
	require.NoError(t, err)
	assert.Nil(t, v.Band)
	assert.Empty(t, v.Criteria)
	assert.Equal(t, "Unrelated", v.CategoryLabel)
	assert.Equal(t, "50.0%", v.Confidence)
}

func TestInterpretRejectsSchemaDrift(t *testing.T) {
	r := decodeSample(t)
	r.FinalScores.Classification = "Luar Biasa"
	_, err := Interpret(r)
	assert.ErrorIs(t, err, ErrUnknownBand)

	r = decodeSample(t)
	r.Scores["toxicity"] = 3
	_, err = Interpret(r)
	assert.ErrorIs(t, err, ErrUnknownCriterion)

	r = decodeSample(t)
	r.Category = "spam"
	_, err = Interpret(r)
	assert.ErrorIs(t, err, ErrUnknownCategory)

	_, err = Interpret(nil)
	assert.ErrorIs(t, err, ErrInvalidResult)
}
