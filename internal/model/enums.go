package model

// Job status values
type JobStatus string

const (
	JobStatusStarted    JobStatus = "started"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// IsTerminal reports whether no further updates are expected.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Stage is one step of the dubbing pipeline.
type Stage string

const (
	StageUploading         Stage = "uploading"
	StageTranscribing      Stage = "transcribing"
	StageDetectingLanguage Stage = "detecting_language"
	StageTranslating       Stage = "translating"
	StageOptimizing        Stage = "optimizing"
	StageResolvingVoice    Stage = "resolving_voice"
	StageSynthesizing      Stage = "synthesizing"
	StageMuxing            Stage = "muxing"
	StageCompleted         Stage = "completed"
	StageFailed            Stage = "failed"
)

var stageProgress = map[Stage]int{
	StageUploading:         10,
	StageTranscribing:      30,
	StageDetectingLanguage: 40,
	StageTranslating:       50,
	StageOptimizing:        60,
	StageResolvingVoice:    70,
	StageSynthesizing:      80,
	StageMuxing:            90,
	StageCompleted:         100,
	StageFailed:            0,
}

var stageMessages = map[Stage]string{
	StageUploading:         "Uploading video...",
	StageTranscribing:      "Extracting transcript...",
	StageDetectingLanguage: "Detecting source language...",
	StageTranslating:       "Translating transcript...",
	StageOptimizing:        "Preparing text for speech...",
	StageResolvingVoice:    "Selecting voice...",
	StageSynthesizing:      "Generating dubbed audio...",
	StageMuxing:            "Creating dubbed video...",
	StageCompleted:         "Dubbing completed successfully",
	StageFailed:            "Dubbing failed",
}

// Progress returns the job progress percentage reported for the stage.
func (s Stage) Progress() int {
	return stageProgress[s]
}

// Message returns the human readable status line for the stage.
func (s Stage) Message() string {
	return stageMessages[s]
}

// LanguageNames maps supported language codes to display names.
var LanguageNames = map[string]string{
	"en": "English",
	"es": "Spanish",
	"fr": "French",
	"de": "German",
	"it": "Italian",
	"pt": "Portuguese",
	"ru": "Russian",
	"ja": "Japanese",
	"ko": "Korean",
	"zh": "Chinese",
	"hi": "Hindi",
	"ar": "Arabic",
}

// LanguageName returns the display name for code, or code itself when unknown.
func LanguageName(code string) string {
	if name, ok := LanguageNames[code]; ok {
		return name
	}
	return code
}

// Voice identifiers
const (
	GlobalDefaultVoiceID = "EXAVITQu4vr4xnSDxMaL"
	DemoVoiceID          = "demo_multilingual_1"
	DemoVoicePrefix      = "demo_"
)

// DefaultVoices is the per-language default voice table.
var DefaultVoices = map[string]string{
	"en": "IKne3meq5aSn9XLyUdCD",
	"es": "JBFqnCBsd6RMkjVDRZzb",
	"fr": "N2lVS1w4EtoT3dr4eOWO",
	"de": "TX3LPaxmHKxFdv7VOQHJ",
	"it": "bIHbv24MWmeRgasZH58o",
	"pt": "cjVigY5qzO86Huf0OWal",
	"ru": "iP95p4xoKVk53GoZ742B",
	"ja": "nPczCjzI2devNBz1zQrb",
	"ko": "onwK4e9ZLuTAKqWW03F9",
	"zh": "pqHfZKP75CvOlQylNhV4",
	"hi": "IKne3meq5aSn9XLyUdCD",
	"ar": "onwK4e9ZLuTAKqWW03F9",
}

// DefaultVoiceFor returns the table voice for lang or the global default.
func DefaultVoiceFor(lang string) string {
	if id, ok := DefaultVoices[lang]; ok {
		return id
	}
	return GlobalDefaultVoiceID
}

// PlaceholderVideoURL is the last-resort result when no stream can be generated.
const PlaceholderVideoURL = "https://commondatastorage.googleapis.com/gtv-videos-bucket/sample/BigBuckBunny.mp4"
