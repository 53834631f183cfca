package model

import (
	"encoding/json"
)

// TranscriptSegment is a timestamped span of spoken text.
type TranscriptSegment struct {
	Start        float64 `json:"start"`
	End          float64 `json:"end"`
	Text         string  `json:"text"`
	OriginalText string  `json:"original_text,omitempty"`

	// Malformed marks an upstream entry that could not be read as
	// {start, end, text}. Raw keeps its original bytes so it can be
	// passed through untouched.
	Malformed bool            `json:"-"`
	Raw       json.RawMessage `json:"-"`
}

// MarshalJSON writes malformed segments back out in their original shape.
func (s TranscriptSegment) MarshalJSON() ([]byte, error) {
	if s.Malformed && len(s.Raw) > 0 {
		return s.Raw, nil
	}
	type plain TranscriptSegment
	return json.Marshal(plain(s))
}

// UnmarshalJSON never fails. Entries that are not objects carrying a
// string "text" field become malformed segments holding the raw bytes.
func (s *TranscriptSegment) UnmarshalJSON(data []byte) error {
	var probe struct {
		Start        *float64 `json:"start"`
		End          *float64 `json:"end"`
		Text         *string  `json:"text"`
		OriginalText string   `json:"original_text"`
	}
	if err := json.Unmarshal(data, &probe); err != nil || probe.Text == nil {
		*s = TranscriptSegment{Malformed: true, Raw: append(json.RawMessage(nil), data...)}
		return nil
	}

	seg := TranscriptSegment{Text: *probe.Text, OriginalText: probe.OriginalText}
	if probe.Start != nil {
		seg.Start = *probe.Start
	}
	if probe.End != nil {
		seg.End = *probe.End
	}
	if seg.End < seg.Start {
		seg.End = seg.Start
	}
	*s = seg
	return nil
}

// ParseSegments decodes a transcript payload entry by entry.
func ParseSegments(raw []json.RawMessage) []TranscriptSegment {
	segments := make([]TranscriptSegment, len(raw))
	for i, item := range raw {
		_ = segments[i].UnmarshalJSON(item)
	}
	return segments
}

// Transcript bundles the full text and ordered segments of one video.
type Transcript struct {
	Text     string              `json:"text"`
	Segments []TranscriptSegment `json:"segments"`
	VideoID  string              `json:"video_id"`
}

// Shot is one search hit inside a video's spoken content.
type Shot struct {
	VideoID string  `json:"video_id"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
}
