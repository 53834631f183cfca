package service

import (
	"strings"
	"unicode/utf8"

	"github.com/videodub/api/internal/model"
)

// silenceMarker is what the transcriber emits for a pause.
const silenceMarker = "-"

// FilterSegments removes empty, silence and single-character segments while
// keeping order. Malformed segments are kept as they are.
func FilterSegments(segments []model.TranscriptSegment) ([]model.TranscriptSegment, int) {
	kept := make([]model.TranscriptSegment, 0, len(segments))
	dropped := 0

	for _, seg := range segments {
		if seg.Malformed || isSpeech(seg.Text) {
			kept = append(kept, seg)
			continue
		}
		dropped++
	}

	return kept, dropped
}

func isSpeech(text string) bool {
	text = strings.TrimSpace(text)
	return text != "" && text != silenceMarker && utf8.RuneCountInString(text) > 1
}
