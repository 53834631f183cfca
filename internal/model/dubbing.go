package model

// DubRequest is the body of POST /api/dub-video.
type DubRequest struct {
	VideoURL       string `json:"youtube_url" validate:"required,url"`
	TargetLanguage string `json:"target_language" validate:"required,len=2,lowercase"`
	VoiceID        string `json:"voice_id,omitempty" validate:"omitempty,max=64"`
	CloneVoice     bool   `json:"clone_original_voice"`
}

// Payload converts the request into a worker payload.
func (r *DubRequest) Payload() DubJobPayload {
	return DubJobPayload{
		VideoURL:       r.VideoURL,
		TargetLanguage: r.TargetLanguage,
		VoiceID:        r.VoiceID,
		CloneVoice:     r.CloneVoice,
	}
}

// DubStartResponse is returned when a job is accepted.
type DubStartResponse struct {
	JobID   string    `json:"job_id"`
	Status  JobStatus `json:"status"`
	Message string    `json:"message"`
}

// PreviewRequest is the body of POST /api/preview-translation.
type PreviewRequest struct {
	VideoURL       string `json:"youtube_url" validate:"required,url"`
	TargetLanguage string `json:"target_language" validate:"required,len=2,lowercase"`
}

// PreviewResult holds transcripts produced without synthesis.
type PreviewResult struct {
	OriginalTranscript   *Transcript         `json:"original_transcript"`
	TranslatedTranscript []TranscriptSegment `json:"translated_transcript"`
	SourceLanguage       string              `json:"source_language"`
	TargetLanguage       string              `json:"target_language"`
	VideoID              string              `json:"video_id"`
}

// LanguagesResponse lists supported target languages.
type LanguagesResponse struct {
	Languages map[string]string `json:"languages"`
}

// VoicesResponse wraps GET /api/voices.
type VoicesResponse struct {
	Voices []Voice `json:"voices"`
}

// SearchResponse wraps GET /api/videos/:videoId/search.
type SearchResponse struct {
	VideoID string `json:"video_id"`
	Query   string `json:"query"`
	Shots   []Shot `json:"shots"`
}
