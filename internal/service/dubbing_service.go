package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/videodub/api/internal/client"
	"github.com/videodub/api/internal/model"
)

const audioURLExpiry = time.Hour

var (
	errDemoVoice      = errors.New("demo voice selected, synthesis unavailable")
	errNoSpeech       = errors.New("no text to synthesize")
	errNoStorage      = errors.New("object storage not configured")
	errEmptySynthesis = errors.New("voice service returned no audio")
)

// VideoPlatform is the hosted video service used for ingest, transcription
// and composition.
type VideoPlatform interface {
	Upload(ctx context.Context, videoURL string) (client.VideoHandle, error)
	IndexSpokenWords(ctx context.Context, videoID string) error
	GetTranscript(ctx context.Context, videoID string) ([]model.TranscriptSegment, error)
	GetTranscriptText(ctx context.Context, videoID string) (string, error)
	GenerateStream(ctx context.Context, video client.VideoHandle) (string, error)
	UploadAudio(ctx context.Context, audioURL, name string) (string, error)
	ComposeDub(ctx context.Context, videoID, audioID string) (string, error)
	Search(ctx context.Context, videoID, query string) ([]model.Shot, error)
}

// ProgressFunc is called when the pipeline enters a stage.
type ProgressFunc func(stage model.Stage)

// DubbingOptions tunes the orchestrator.
type DubbingOptions struct {
	MaxChars  int
	TempDir   string
	Languages map[string]string
}

// DubbingService runs the dubbing pipeline
type DubbingService struct {
	videos     VideoPlatform
	voices     client.VoiceProvider
	storage    client.StorageClient
	translator *TranslationService
	resolver   *VoiceResolver
	opts       DubbingOptions
	logger     *slog.Logger
}

// NewDubbingService wires the pipeline. storage may be nil, in which case
// muxing is skipped and jobs finish in demo mode.
func NewDubbingService(
	videos VideoPlatform,
	voices client.VoiceProvider,
	storage client.StorageClient,
	translator *TranslationService,
	resolver *VoiceResolver,
	opts DubbingOptions,
	logger *slog.Logger,
) *DubbingService {
	if opts.TempDir == "" {
		opts.TempDir = os.TempDir()
	}
	if opts.Languages == nil {
		opts.Languages = model.LanguageNames
	}
	return &DubbingService{
		videos:     videos,
		voices:     voices,
		storage:    storage,
		translator: translator,
		resolver:   resolver,
		opts:       opts,
		logger:     logger.With("component", "dubbing"),
	}
}

// DubVideo runs every stage for one request. Failures after translation do
// not fail the job; the result then points at the original video and
// DemoMode is set.
func (s *DubbingService) DubVideo(ctx context.Context, req model.DubJobPayload, progress ProgressFunc) (*model.DubbingResult, error) {
	if progress == nil {
		progress = func(model.Stage) {}
	}
	log := s.logger.With("target_language", req.TargetLanguage)

	progress(model.StageUploading)
	video, err := s.videos.Upload(ctx, req.VideoURL)
	if err != nil {
		return nil, fmt.Errorf("failed to upload video: %w", err)
	}
	log = log.With("video_id", video.VideoID())
	log.Info("video uploaded")

	progress(model.StageTranscribing)
	transcript, err := s.transcribe(ctx, video.VideoID())
	if err != nil {
		return nil, err
	}
	log.Info("transcript extracted", "segments", len(transcript.Segments), "chars", len(transcript.Text))

	progress(model.StageDetectingLanguage)
	sourceLang := s.translator.DetectLanguage(ctx, transcript.Text)
	log.Info("source language detected", "source_language", sourceLang)

	progress(model.StageTranslating)
	translated, err := s.translate(ctx, transcript.Segments, sourceLang, req.TargetLanguage)
	if err != nil {
		return nil, err
	}

	progress(model.StageOptimizing)
	for i := range translated {
		if !translated[i].Malformed {
			translated[i].Text = OptimizeForSpeech(translated[i].Text, req.TargetLanguage)
		}
	}

	progress(model.StageResolvingVoice)
	voice := s.resolver.Resolve(ctx, VoiceRequest{
		Video:          video,
		VoiceID:        req.VoiceID,
		TargetLanguage: req.TargetLanguage,
		Clone:          req.CloneVoice,
	})

	result := &model.DubbingResult{
		OriginalVideoID:      video.VideoID(),
		SourceLanguage:       sourceLang,
		TargetLanguage:       req.TargetLanguage,
		VoiceID:              voice.VoiceID,
		Transcript:           transcript,
		TranslatedTranscript: translated,
	}

	videoURL, audioPath, err := s.synthesizeAndMux(ctx, video, translated, voice, progress)
	if err != nil {
		log.Warn("dubbing unavailable, returning original video", "voice_id", voice.VoiceID, "error", err)
		result.VideoURL = s.fallbackURL(ctx, video)
		result.DemoMode = true
		return result, nil
	}

	result.VideoURL = videoURL
	result.AudioFilePath = audioPath
	log.Info("dubbed video created", "voice_id", voice.VoiceID)
	return result, nil
}

func (s *DubbingService) transcribe(ctx context.Context, videoID string) (*model.Transcript, error) {
	if err := s.videos.IndexSpokenWords(ctx, videoID); err != nil {
		return nil, fmt.Errorf("failed to index spoken words: %w", err)
	}

	segments, err := s.videos.GetTranscript(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("failed to get transcript: %w", err)
	}

	text, err := s.videos.GetTranscriptText(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("failed to get transcript text: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		text = CombineSegmentTexts(segments)
	}

	return &model.Transcript{Text: text, Segments: segments, VideoID: videoID}, nil
}

func (s *DubbingService) translate(ctx context.Context, segments []model.TranscriptSegment, sourceLang, targetLang string) ([]model.TranscriptSegment, error) {
	if sourceLang == targetLang {
		s.logger.Info("source and target language match, skipping translation", "language", targetLang)
		out := make([]model.TranscriptSegment, len(segments))
		for i, seg := range segments {
			out[i] = seg
			out[i].OriginalText = seg.Text
		}
		return out, nil
	}

	translated, err := s.translator.TranslateSegments(ctx, segments, targetLang)
	if err != nil {
		return nil, fmt.Errorf("failed to translate transcript: %w", err)
	}
	return translated, nil
}

// synthesizeAndMux returns the dubbed stream URL and the local audio path.
// The audio file is removed again when muxing fails.
func (s *DubbingService) synthesizeAndMux(ctx context.Context, video client.VideoHandle, segments []model.TranscriptSegment, voice model.VoiceSelection, progress ProgressFunc) (string, string, error) {
	progress(model.StageSynthesizing)
	if voice.IsDemo || model.IsDemoVoice(voice.VoiceID) {
		return "", "", errDemoVoice
	}

	text := truncateRunes(CombineSegmentTexts(segments), s.opts.MaxChars)
	if text == "" {
		return "", "", errNoSpeech
	}

	if info, err := s.voices.GetVoice(ctx, voice.VoiceID); err != nil {
		s.logger.Warn("could not get voice info", "voice_id", voice.VoiceID, "error", err)
	} else if info != nil {
		info.Decorate()
		s.logger.Info("synthesizing speech", "voice", info.DisplayName, "voice_id", voice.VoiceID, "chars", len(text))
	}

	audio, err := s.voices.TextToSpeech(ctx, text, voice.VoiceID)
	if err != nil {
		return "", "", fmt.Errorf("failed to synthesize speech: %w", err)
	}
	if len(audio) == 0 {
		return "", "", errEmptySynthesis
	}

	audioPath := filepath.Join(s.opts.TempDir, fmt.Sprintf("dub_%s.mp3", uuid.New().String()))
	if err := os.WriteFile(audioPath, audio, 0o600); err != nil {
		return "", "", fmt.Errorf("failed to write audio file: %w", err)
	}

	progress(model.StageMuxing)
	videoURL, err := s.mux(ctx, video.VideoID(), audioPath)
	if err != nil {
		s.CleanupTempFiles(audioPath)
		return "", "", err
	}
	return videoURL, audioPath, nil
}

func (s *DubbingService) mux(ctx context.Context, videoID, audioPath string) (string, error) {
	if s.storage == nil {
		return "", errNoStorage
	}

	f, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("failed to open audio file: %w", err)
	}
	defer f.Close()

	key := fmt.Sprintf("dubs/%s/%s", videoID, filepath.Base(audioPath))
	if _, err := s.storage.Upload(ctx, key, f, "audio/mpeg"); err != nil {
		return "", fmt.Errorf("failed to store audio: %w", err)
	}
	defer func() {
		if err := s.storage.Delete(context.WithoutCancel(ctx), key); err != nil {
			s.logger.Warn("failed to delete stored audio", "key", key, "error", err)
		}
	}()

	audioURL, err := s.storage.GetSignedURL(ctx, key, audioURLExpiry)
	if err != nil {
		return "", fmt.Errorf("failed to sign audio url: %w", err)
	}

	audioID, err := s.videos.UploadAudio(ctx, audioURL, "dub_"+videoID)
	if err != nil {
		return "", fmt.Errorf("failed to upload audio: %w", err)
	}

	streamURL, err := s.videos.ComposeDub(ctx, videoID, audioID)
	if err != nil {
		return "", fmt.Errorf("failed to compose dubbed video: %w", err)
	}
	return streamURL, nil
}

func (s *DubbingService) fallbackURL(ctx context.Context, video client.VideoHandle) string {
	url, err := s.videos.GenerateStream(ctx, video)
	if err != nil || url == "" {
		s.logger.Warn("could not generate original stream, using placeholder", "video_id", video.VideoID(), "error", err)
		return model.PlaceholderVideoURL
	}
	return url
}

// PreviewTranslation runs upload, transcription, detection and translation
// without synthesis.
func (s *DubbingService) PreviewTranslation(ctx context.Context, videoURL, targetLang string) (*model.PreviewResult, error) {
	video, err := s.videos.Upload(ctx, videoURL)
	if err != nil {
		return nil, fmt.Errorf("failed to upload video: %w", err)
	}

	transcript, err := s.transcribe(ctx, video.VideoID())
	if err != nil {
		return nil, err
	}

	sourceLang := s.translator.DetectLanguage(ctx, transcript.Text)
	translated, err := s.translate(ctx, transcript.Segments, sourceLang, targetLang)
	if err != nil {
		return nil, err
	}

	return &model.PreviewResult{
		OriginalTranscript:   transcript,
		TranslatedTranscript: translated,
		SourceLanguage:       sourceLang,
		TargetLanguage:       targetLang,
		VideoID:              video.VideoID(),
	}, nil
}

// AvailableVoices lists decorated voices, optionally only those usable for
// language. The demo list is returned when the voice service fails.
func (s *DubbingService) AvailableVoices(ctx context.Context, language string) []model.Voice {
	voices, err := s.voices.ListVoices(ctx)
	if err != nil {
		s.logger.Warn("voice listing failed, returning demo voices", "error", err)
		voices = model.DemoVoices()
	}

	out := make([]model.Voice, 0, len(voices))
	for _, v := range voices {
		if language != "" && !v.SpeaksLanguage(language) {
			continue
		}
		v.Decorate()
		out = append(out, v)
	}
	return out
}

// SupportedLanguages returns code to display name for every target language.
func (s *DubbingService) SupportedLanguages() map[string]string {
	out := make(map[string]string, len(s.opts.Languages))
	for code, name := range s.opts.Languages {
		out[code] = name
	}
	return out
}

// SearchSpokenContent finds shots of an uploaded video whose speech matches query.
func (s *DubbingService) SearchSpokenContent(ctx context.Context, videoID, query string) ([]model.Shot, error) {
	if err := s.videos.IndexSpokenWords(ctx, videoID); err != nil {
		return nil, fmt.Errorf("failed to index spoken words: %w", err)
	}
	shots, err := s.videos.Search(ctx, videoID, query)
	if err != nil {
		return nil, fmt.Errorf("failed to search video: %w", err)
	}
	return shots, nil
}

// DeleteVoice removes a voice from the voice service, typically a clone.
func (s *DubbingService) DeleteVoice(ctx context.Context, voiceID string) error {
	if err := s.voices.DeleteVoice(ctx, voiceID); err != nil {
		return fmt.Errorf("failed to delete voice: %w", err)
	}
	s.logger.Info("voice deleted", "voice_id", voiceID)
	return nil
}

// CleanupTempFiles removes local files left by a job. Failures are logged.
func (s *DubbingService) CleanupTempFiles(paths ...string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("failed to remove temp file", "path", p, "error", err)
		}
	}
}
