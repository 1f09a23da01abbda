package classification

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Tier is the display banding of a single 0-100 score.
type Tier string

const (
	TierHigh       Tier = "high"
	TierMediumHigh Tier = "medium-high"
	TierMediumLow  Tier = "medium-low"
	TierLow        Tier = "low"
)

// ScoreTier bands a criterion score: >=80 high, 60-79 medium-high,
// 40-59 medium-low, below 40 low.
func ScoreTier(score int) Tier {
	switch {
	case score >= 80:
		return TierHigh
	case score >= 60:
		return TierMediumHigh
	case score >= 40:
		return TierMediumLow
	default:
		return TierLow
	}
}

// DefaultReasoning is the justification used when the model scored a
// criterion without explaining it.
func DefaultReasoning(score int) string {
	switch ScoreTier(score) {
	case TierHigh:
		return fmt.Sprintf("Skor sangat baik (%d/100). Konten menunjukkan kualitas tinggi pada aspek ini.", score)
	case TierMediumHigh:
		return fmt.Sprintf("Skor baik (%d/100). Konten memenuhi standar pada aspek ini.", score)
	case TierMediumLow:
		return fmt.Sprintf("Skor cukup (%d/100). Konten perlu peningkatan pada aspek ini.", score)
	default:
		return fmt.Sprintf("Skor rendah (%d/100). Konten memiliki masalah signifikan pada aspek ini.", score)
	}
}

// FormatLabel turns a snake_case key into a display label: "hate_speech"
// becomes "Hate Speech". Only the first rune of each word changes.
func FormatLabel(key string) string {
	if key == "" {
		return ""
	}
	words := strings.Split(key, "_")
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		if size == 0 {
			continue
		}
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}
