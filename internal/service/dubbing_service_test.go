package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/videodub/api/internal/client"
	"github.com/videodub/api/internal/model"
)

type dubbingFixture struct {
	videos  *fakeVideoPlatform
	voices  *fakeVoices
	storage *fakeStorage
	llm     *fakeLLM
	tempDir string
}

func newDubbingFixture(t *testing.T) *dubbingFixture {
	t.Helper()
	return &dubbingFixture{
		videos: &fakeVideoPlatform{
			video:      &fakeVideo{id: "vid1"},
			segments:   holaMundo(),
			text:       "Hola - mundo",
			streamURL:  "https://stream.example.com/original.m3u8",
			audioID:    "aud1",
			composeURL: "https://stream.example.com/dubbed.m3u8",
		},
		voices: &fakeVoices{
			voices:   []model.Voice{{VoiceID: model.DefaultVoices["en"], Name: "Bella", Gender: "female", Age: "young"}},
			ttsAudio: []byte("ID3-fake-mp3"),
		},
		storage: newFakeStorage(),
		llm:     &fakeLLM{respond: respondByPrompt("es", `{"0":"Hello","1":"world"}`, nil)},
		tempDir: t.TempDir(),
	}
}

func (f *dubbingFixture) service(storage client.StorageClient) *DubbingService {
	logger := testLogger()
	translator := NewTranslationService(f.llm, logger)
	resolver := NewVoiceResolver(f.voices, logger)
	return NewDubbingService(f.videos, f.voices, storage, translator, resolver, DubbingOptions{
		MaxChars: 1000,
		TempDir:  f.tempDir,
	}, logger)
}

func tempFiles(t *testing.T, dir string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "*"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	return matches
}

func TestDubVideo_FullPipeline(t *testing.T) {
	f := newDubbingFixture(t)
	svc := f.service(f.storage)

	var stages []model.Stage
	result, err := svc.DubVideo(context.Background(), model.DubJobPayload{
		VideoURL:       "https://www.youtube.com/watch?v=abc",
		TargetLanguage: "en",
	}, func(s model.Stage) { stages = append(stages, s) })
	if err != nil {
		t.Fatalf("DubVideo: %v", err)
	}

	if result.VideoURL != f.videos.composeURL || result.DemoMode {
		t.Errorf("expected dubbed stream, got %+v", result)
	}
	if result.SourceLanguage != "es" || result.TargetLanguage != "en" {
		t.Errorf("unexpected languages: %s -> %s", result.SourceLanguage, result.TargetLanguage)
	}
	if result.VoiceID != model.DefaultVoices["en"] {
		t.Errorf("expected default English voice, got %q", result.VoiceID)
	}
	if len(result.TranslatedTranscript) != 2 || result.TranslatedTranscript[0].Text != "Hello" {
		t.Errorf("unexpected translation: %+v", result.TranslatedTranscript)
	}
	if len(result.Transcript.Segments) != 3 {
		t.Errorf("expected original transcript untouched, got %d segments", len(result.Transcript.Segments))
	}

	want := []model.Stage{
		model.StageUploading, model.StageTranscribing, model.StageDetectingLanguage,
		model.StageTranslating, model.StageOptimizing, model.StageResolvingVoice,
		model.StageSynthesizing, model.StageMuxing,
	}
	if len(stages) != len(want) {
		t.Fatalf("expected stages %v, got %v", want, stages)
	}
	for i := range want {
		if stages[i] != want[i] {
			t.Errorf("stage %d: expected %s, got %s", i, want[i], stages[i])
		}
	}

	if !strings.HasPrefix(f.videos.uploadedAudioURL, "https://signed.example.com/dubs/vid1/") {
		t.Errorf("expected signed audio URL, got %q", f.videos.uploadedAudioURL)
	}
	if len(f.storage.deleted) != 1 {
		t.Errorf("expected stored audio to be deleted, got %v", f.storage.deleted)
	}
	if _, err := os.Stat(result.AudioFilePath); err != nil {
		t.Errorf("expected audio file to exist until cleanup: %v", err)
	}

	svc.CleanupTempFiles(result.AudioFilePath)
	if files := tempFiles(t, f.tempDir); len(files) != 0 {
		t.Errorf("expected temp dir empty after cleanup, got %v", files)
	}
}

func TestDubVideo_SynthesisFailureReturnsOriginalStream(t *testing.T) {
	f := newDubbingFixture(t)
	f.voices.ttsErr = client.ErrInvalidVoice
	svc := f.service(f.storage)

	result, err := svc.DubVideo(context.Background(), model.DubJobPayload{VideoURL: "https://youtu.be/x", TargetLanguage: "en"}, nil)
	if err != nil {
		t.Fatalf("DubVideo: %v", err)
	}
	if !result.DemoMode || result.VideoURL != f.videos.streamURL {
		t.Errorf("expected original stream in demo mode, got %+v", result)
	}
	if f.videos.composed {
		t.Error("expected no composition after synthesis failure")
	}
}

func TestDubVideo_StreamFailureReturnsPlaceholder(t *testing.T) {
	f := newDubbingFixture(t)
	f.voices.ttsErr = errors.New("synthesis down")
	f.videos.streamErr = errors.New("stream down")
	svc := f.service(f.storage)

	result, err := svc.DubVideo(context.Background(), model.DubJobPayload{VideoURL: "https://youtu.be/x", TargetLanguage: "en"}, nil)
	if err != nil {
		t.Fatalf("DubVideo: %v", err)
	}
	if result.VideoURL != model.PlaceholderVideoURL || !result.DemoMode {
		t.Errorf("expected placeholder video, got %+v", result)
	}
}

func TestDubVideo_MuxFailureRemovesAudio(t *testing.T) {
	f := newDubbingFixture(t)
	f.videos.composeErr = errors.New("timeline failed")
	svc := f.service(f.storage)

	result, err := svc.DubVideo(context.Background(), model.DubJobPayload{VideoURL: "https://youtu.be/x", TargetLanguage: "en"}, nil)
	if err != nil {
		t.Fatalf("DubVideo: %v", err)
	}
	if !result.DemoMode || result.AudioFilePath != "" {
		t.Errorf("expected demo result without audio path, got %+v", result)
	}
	if files := tempFiles(t, f.tempDir); len(files) != 0 {
		t.Errorf("expected temp audio removed, got %v", files)
	}
}

func TestDubVideo_NoStorageFallsBack(t *testing.T) {
	f := newDubbingFixture(t)
	svc := f.service(nil)

	result, err := svc.DubVideo(context.Background(), model.DubJobPayload{VideoURL: "https://youtu.be/x", TargetLanguage: "en"}, nil)
	if err != nil {
		t.Fatalf("DubVideo: %v", err)
	}
	if !result.DemoMode || result.VideoURL != f.videos.streamURL {
		t.Errorf("expected demo fallback, got %+v", result)
	}
}

func TestDubVideo_SameLanguageSkipsTranslation(t *testing.T) {
	f := newDubbingFixture(t)
	svc := f.service(f.storage)

	result, err := svc.DubVideo(context.Background(), model.DubJobPayload{VideoURL: "https://youtu.be/x", TargetLanguage: "es"}, nil)
	if err != nil {
		t.Fatalf("DubVideo: %v", err)
	}
	if f.llm.batchCalls() != 0 {
		t.Errorf("expected no translation call, got %d", f.llm.batchCalls())
	}
	if len(result.TranslatedTranscript) != 3 {
		t.Fatalf("expected all segments kept, got %d", len(result.TranslatedTranscript))
	}
	for _, seg := range result.TranslatedTranscript {
		if seg.OriginalText != seg.Text {
			t.Errorf("expected original_text mirrored, got %+v", seg)
		}
	}
}

func TestDubVideo_DemoVoiceSkipsSynthesis(t *testing.T) {
	f := newDubbingFixture(t)
	svc := f.service(f.storage)

	result, err := svc.DubVideo(context.Background(), model.DubJobPayload{
		VideoURL:       "https://youtu.be/x",
		TargetLanguage: "en",
		VoiceID:        "demo_english_1",
	}, nil)
	if err != nil {
		t.Fatalf("DubVideo: %v", err)
	}
	if f.voices.ttsCalls != 0 {
		t.Errorf("expected synthesis skipped, got %d calls", f.voices.ttsCalls)
	}
	if !result.DemoMode || result.VoiceID != "demo_english_1" {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestDubVideo_TruncatesSynthesisText(t *testing.T) {
	f := newDubbingFixture(t)
	f.videos.segments = []model.TranscriptSegment{{Start: 0, End: 9, Text: strings.Repeat("palabra ", 300)}}
	f.llm.respond = respondByPrompt("es", `{"0":"`+strings.Repeat("word ", 300)+`"}`, nil)

	var synthesized string
	voices := &recordingVoices{fakeVoices: f.voices, text: &synthesized}
	logger := testLogger()
	svc := NewDubbingService(f.videos, voices, f.storage, NewTranslationService(f.llm, logger), NewVoiceResolver(voices, logger),
		DubbingOptions{MaxChars: 100, TempDir: f.tempDir}, logger)

	if _, err := svc.DubVideo(context.Background(), model.DubJobPayload{VideoURL: "https://youtu.be/x", TargetLanguage: "en"}, nil); err != nil {
		t.Fatalf("DubVideo: %v", err)
	}
	if len([]rune(synthesized)) != 100 {
		t.Errorf("expected 100 runes sent to synthesis, got %d", len([]rune(synthesized)))
	}
}

type recordingVoices struct {
	*fakeVoices
	text *string
}

func (r *recordingVoices) TextToSpeech(ctx context.Context, text, voiceID string) ([]byte, error) {
	*r.text = text
	return r.fakeVoices.TextToSpeech(ctx, text, voiceID)
}

func TestDubVideo_TranslationErrorsFailTheJob(t *testing.T) {
	tests := []struct {
		name    string
		respond func(client.CompletionRequest) (string, error)
		want    error
	}{
		{"malformed batch", respondByPrompt("es", "not json", nil), ErrMalformedBatch},
		{"rate limited", func(req client.CompletionRequest) (string, error) {
			if !req.JSON {
				return "es", nil
			}
			return "", &client.APIError{Service: "openai", StatusCode: 429}
		}, ErrTranslationRateLimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newDubbingFixture(t)
			f.llm.respond = tt.respond
			svc := f.service(f.storage)

			_, err := svc.DubVideo(context.Background(), model.DubJobPayload{VideoURL: "https://youtu.be/x", TargetLanguage: "en"}, nil)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestDubVideo_UploadFailure(t *testing.T) {
	f := newDubbingFixture(t)
	f.videos.uploadErr = &client.APIError{Service: "videodb", StatusCode: 400, Body: "bad url"}
	svc := f.service(f.storage)

	_, err := svc.DubVideo(context.Background(), model.DubJobPayload{VideoURL: "https://youtu.be/x", TargetLanguage: "en"}, nil)
	if err == nil || !strings.Contains(err.Error(), "failed to upload video") {
		t.Fatalf("expected upload error, got %v", err)
	}
}

func TestDubVideo_EmptyTranscriptTextUsesSegments(t *testing.T) {
	f := newDubbingFixture(t)
	f.videos.text = ""
	svc := f.service(f.storage)

	result, err := svc.DubVideo(context.Background(), model.DubJobPayload{VideoURL: "https://youtu.be/x", TargetLanguage: "en"}, nil)
	if err != nil {
		t.Fatalf("DubVideo: %v", err)
	}
	if result.Transcript.Text != "Hola - mundo" {
		t.Errorf("expected text rebuilt from segments, got %q", result.Transcript.Text)
	}
}

func TestPreviewTranslation(t *testing.T) {
	f := newDubbingFixture(t)
	svc := f.service(f.storage)

	preview, err := svc.PreviewTranslation(context.Background(), "https://youtu.be/x", "en")
	if err != nil {
		t.Fatalf("PreviewTranslation: %v", err)
	}
	if preview.VideoID != "vid1" || preview.SourceLanguage != "es" {
		t.Errorf("unexpected preview: %+v", preview)
	}
	if len(preview.TranslatedTranscript) != 2 {
		t.Errorf("expected 2 translated segments, got %d", len(preview.TranslatedTranscript))
	}
	if f.voices.ttsCalls != 0 {
		t.Error("expected no synthesis during preview")
	}
}

func TestAvailableVoices(t *testing.T) {
	f := newDubbingFixture(t)
	f.voices.voices = []model.Voice{
		{VoiceID: "a", Name: "Ana", Gender: "female", Age: "young", Languages: []string{"es"}},
		{VoiceID: "b", Name: "Bob", Languages: []string{"en"}},
		{VoiceID: "c", Name: "Multi"},
	}
	svc := f.service(f.storage)

	voices := svc.AvailableVoices(context.Background(), "es")
	if len(voices) != 2 || voices[0].VoiceID != "a" || voices[1].VoiceID != "c" {
		t.Fatalf("unexpected voices: %+v", voices)
	}
	if voices[0].DisplayName != "Ana (female, young)" {
		t.Errorf("unexpected display name %q", voices[0].DisplayName)
	}
	if voices[1].DisplayName != "Multi (unknown, unknown)" {
		t.Errorf("unexpected display name %q", voices[1].DisplayName)
	}

	if all := svc.AvailableVoices(context.Background(), ""); len(all) != 3 {
		t.Errorf("expected all voices without filter, got %d", len(all))
	}
}

func TestAvailableVoices_DemoOnFailure(t *testing.T) {
	f := newDubbingFixture(t)
	f.voices.listErr = errors.New("down")
	svc := f.service(f.storage)

	voices := svc.AvailableVoices(context.Background(), "")
	if len(voices) != len(model.DemoVoices()) {
		t.Fatalf("expected demo voices, got %+v", voices)
	}
	for _, v := range voices {
		if !model.IsDemoVoice(v.VoiceID) {
			t.Errorf("expected demo voice, got %q", v.VoiceID)
		}
	}
}

func TestSupportedLanguages(t *testing.T) {
	f := newDubbingFixture(t)
	svc := f.service(f.storage)

	langs := svc.SupportedLanguages()
	if langs["es"] != "Spanish" || len(langs) != len(model.LanguageNames) {
		t.Errorf("unexpected languages: %v", langs)
	}
	langs["xx"] = "mutated"
	if _, ok := svc.SupportedLanguages()["xx"]; ok {
		t.Error("expected a copy of the language table")
	}
}

func TestSearchSpokenContent(t *testing.T) {
	f := newDubbingFixture(t)
	f.videos.shots = []model.Shot{{VideoID: "vid1", Start: 1, End: 2, Text: "mundo"}}
	svc := f.service(f.storage)

	shots, err := svc.SearchSpokenContent(context.Background(), "vid1", "mundo")
	if err != nil {
		t.Fatalf("SearchSpokenContent: %v", err)
	}
	if len(shots) != 1 || shots[0].Text != "mundo" {
		t.Errorf("unexpected shots: %+v", shots)
	}
}

func TestDeleteVoice(t *testing.T) {
	f := newDubbingFixture(t)
	svc := f.service(f.storage)

	if err := svc.DeleteVoice(context.Background(), "cloned-1"); err != nil {
		t.Fatalf("DeleteVoice: %v", err)
	}
	if len(f.voices.deleted) != 1 || f.voices.deleted[0] != "cloned-1" {
		t.Errorf("unexpected deletions: %v", f.voices.deleted)
	}
}

func TestCleanupTempFiles_IgnoresMissing(t *testing.T) {
	f := newDubbingFixture(t)
	svc := f.service(f.storage)

	svc.CleanupTempFiles("", filepath.Join(f.tempDir, "never-existed.mp3"))
}
