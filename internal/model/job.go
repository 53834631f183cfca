package model

import "time"

// DubbingJob is the status record of one asynchronous dubbing run.
type DubbingJob struct {
	ID             string         `json:"job_id"`
	Status         JobStatus      `json:"status"`
	Progress       int            `json:"progress"`
	Message        string         `json:"message"`
	Stage          Stage          `json:"stage,omitempty"`
	Result         *DubbingResult `json:"result,omitempty"`
	Error          string         `json:"error,omitempty"`
	ProcessingTime float64        `json:"processing_time,omitempty"` // seconds
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// JobUpdate carries the fields to merge into a job. Nil fields are left as is.
type JobUpdate struct {
	Status         *JobStatus
	Progress       *int
	Message        *string
	Stage          *Stage
	Result         *DubbingResult
	Error          *string
	ProcessingTime *float64
}

// Apply merges u into job.
func (u JobUpdate) Apply(job *DubbingJob) {
	if u.Status != nil {
		job.Status = *u.Status
	}
	if u.Progress != nil {
		job.Progress = clampProgress(*u.Progress)
	}
	if u.Message != nil {
		job.Message = *u.Message
	}
	if u.Stage != nil {
		job.Stage = *u.Stage
	}
	if u.Result != nil {
		job.Result = u.Result
	}
	if u.Error != nil {
		job.Error = *u.Error
	}
	if u.ProcessingTime != nil {
		job.ProcessingTime = *u.ProcessingTime
	}
}

func clampProgress(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// DubbingResult is the final artifact bundle of a completed job.
type DubbingResult struct {
	VideoURL             string              `json:"video_url"`
	OriginalVideoID      string              `json:"original_video_id"`
	SourceLanguage       string              `json:"source_language"`
	TargetLanguage       string              `json:"target_language"`
	VoiceID              string              `json:"voice_id"`
	Transcript           *Transcript         `json:"transcript"`
	TranslatedTranscript []TranscriptSegment `json:"translated_transcript"`
	AudioFilePath        string              `json:"audio_file_path,omitempty"`
	DemoMode             bool                `json:"demo_mode"`
	ProcessingTime       float64             `json:"processing_time,omitempty"`
}

// DubJobPayload is what the worker needs to run one job.
type DubJobPayload struct {
	VideoURL       string `json:"video_url"`
	TargetLanguage string `json:"target_language"`
	VoiceID        string `json:"voice_id,omitempty"`
	CloneVoice     bool   `json:"clone_voice"`
}
