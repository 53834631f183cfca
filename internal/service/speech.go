package service

import (
	"strings"
	"unicode/utf8"

	"github.com/videodub/api/internal/model"
)

// Artifacts some prompt formats leave in translated text.
var speechArtifacts = []string{"---SEGMENT---", "###SEPARATOR###"}

// CombineSegmentTexts joins segment texts into one synthesis input.
func CombineSegmentTexts(segments []model.TranscriptSegment) string {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		text := seg.Text
		for _, artifact := range speechArtifacts {
			text = strings.ReplaceAll(text, artifact, "")
		}
		text = strings.TrimSpace(text)
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

// OptimizeForSpeech prepares translated text for synthesis. Only whitespace
// is normalized.
func OptimizeForSpeech(text, _ string) string {
	return strings.Join(strings.Fields(text), " ")
}

// truncateRunes cuts s to at most n runes. n <= 0 means no limit.
func truncateRunes(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
