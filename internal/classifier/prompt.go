package classifier

import (
	"fmt"
	"strings"

	"github.com/wolfman30/govsense/internal/classification"
)

const responseFormat = `Berikan analisis komprehensif dalam format JSON dengan field berikut (gunakan Bahasa Indonesia untuk semua penjelasan):
{
  "scores": {
%s
  },
  "classification": "constructive/neutral/hate_speech/unrelated",
  "confidence": 0.0-1.0,
  "explanation": "ringkasan singkat dalam Bahasa Indonesia",
  "key_findings": ["temuan1 dalam Bahasa Indonesia", "temuan2", "temuan3"],
  "context_references": ["referensi konteks politik terkini yang relevan", "sumber verifikasi fakta jika ada", "kontradiksi atau dukungan konteks"],
  "red_flags": ["bendera merah jika ada masalah serius dalam konten"],
  "overall_impression": "analisis detail dalam Bahasa Indonesia",
  "final_scores": {
    "constructive_percentage": 0-100,
    "destructive_percentage": 0-100,
    "classification": "Sangat Membangun/Membangun/Netral/Destruktif"
  }
}

Jika tidak bisa memberikan JSON, gunakan format:
CLASSIFICATION: [category]
CONFIDENCE: [0.0-1.0]
EXPLANATION: [penjelasan singkat dalam Bahasa Indonesia]
`

func scoreTemplate() string {
	lines := make([]string, len(classification.Criteria))
	for i, c := range classification.Criteria {
		sep := ","
		if i == len(classification.Criteria)-1 {
			sep = ""
		}
		lines[i] = fmt.Sprintf("    %q: 0-100%s", string(c), sep)
	}
	return strings.Join(lines, "\n")
}

// TextPrompt asks for an analysis of a piece of political text.
func TextPrompt(text string) string {
	var b strings.Builder
	b.WriteString("Analisis teks berikut tentang pemerintahan/politik dan berikan penilaian detail dalam Bahasa Indonesia:\n\n")
	fmt.Fprintf(&b, "Teks: %q\n\n", text)
	fmt.Fprintf(&b, responseFormat, scoreTemplate())
	return b.String()
}

// ImagePrompt asks for an analysis of an attached image.
func ImagePrompt() string {
	var b strings.Builder
	b.WriteString("Analisis gambar ini tentang pemerintahan/politik dan berikan penilaian detail dalam Bahasa Indonesia:\n\n")
	fmt.Fprintf(&b, responseFormat, scoreTemplate())
	return b.String()
}
