package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/videodub/api/internal/client"
	"github.com/videodub/api/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeLLM struct {
	mu       sync.Mutex
	requests []client.CompletionRequest
	respond  func(req client.CompletionRequest) (string, error)
}

func (f *fakeLLM) Complete(_ context.Context, req client.CompletionRequest) (string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.respond == nil {
		return "", errors.New("no responder")
	}
	return f.respond(req)
}

func (f *fakeLLM) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeLLM) batchCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.requests {
		if r.JSON {
			n++
		}
	}
	return n
}

// respondByPrompt routes detection, batch and single-text requests.
func respondByPrompt(lang, batch string, single func(text string) (string, error)) func(client.CompletionRequest) (string, error) {
	return func(req client.CompletionRequest) (string, error) {
		switch {
		case strings.Contains(req.System, "language detection"):
			return lang, nil
		case req.JSON:
			return batch, nil
		case single != nil:
			return single(req.User)
		default:
			return "", errors.New("unexpected single translation")
		}
	}
}

type fakeVideo struct {
	id    string
	audio []byte
	err   error
}

func (v *fakeVideo) VideoID() string { return v.id }

func (v *fakeVideo) ExtractAudio(context.Context) (io.ReadCloser, error) {
	if v.err != nil {
		return nil, v.err
	}
	return io.NopCloser(strings.NewReader(string(v.audio))), nil
}

type plainVideo struct{ id string }

func (v plainVideo) VideoID() string { return v.id }

type fakeVideoPlatform struct {
	video      client.VideoHandle
	uploadErr  error
	segments   []model.TranscriptSegment
	text       string
	streamURL  string
	streamErr  error
	audioID    string
	audioErr   error
	composeURL string
	composeErr error
	shots      []model.Shot

	uploadedAudioURL string
	composed         bool
}

func (f *fakeVideoPlatform) Upload(context.Context, string) (client.VideoHandle, error) {
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	return f.video, nil
}

func (f *fakeVideoPlatform) IndexSpokenWords(context.Context, string) error { return nil }

func (f *fakeVideoPlatform) GetTranscript(context.Context, string) ([]model.TranscriptSegment, error) {
	return append([]model.TranscriptSegment(nil), f.segments...), nil
}

func (f *fakeVideoPlatform) GetTranscriptText(context.Context, string) (string, error) {
	return f.text, nil
}

func (f *fakeVideoPlatform) GenerateStream(context.Context, client.VideoHandle) (string, error) {
	return f.streamURL, f.streamErr
}

func (f *fakeVideoPlatform) UploadAudio(_ context.Context, audioURL, _ string) (string, error) {
	f.uploadedAudioURL = audioURL
	return f.audioID, f.audioErr
}

func (f *fakeVideoPlatform) ComposeDub(context.Context, string, string) (string, error) {
	f.composed = true
	return f.composeURL, f.composeErr
}

func (f *fakeVideoPlatform) Search(context.Context, string, string) ([]model.Shot, error) {
	return f.shots, nil
}

type fakeVoices struct {
	mu        sync.Mutex
	voices    []model.Voice
	listErr   error
	addID     string
	addErr    error
	ttsAudio  []byte
	ttsErr    error
	deleted   []string
	added     []*client.AddVoiceRequest
	ttsCalls  int
	ttsVoices []string
}

func (f *fakeVoices) ListVoices(context.Context) ([]model.Voice, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]model.Voice(nil), f.voices...), nil
}

func (f *fakeVoices) GetVoice(_ context.Context, voiceID string) (*model.Voice, error) {
	for _, v := range f.voices {
		if v.VoiceID == voiceID {
			v := v
			return &v, nil
		}
	}
	return nil, errors.New("voice not found")
}

func (f *fakeVoices) AddVoice(_ context.Context, req *client.AddVoiceRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.added = append(f.added, req)
	return f.addID, f.addErr
}

func (f *fakeVoices) TextToSpeech(_ context.Context, _ string, voiceID string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ttsCalls++
	f.ttsVoices = append(f.ttsVoices, voiceID)
	return f.ttsAudio, f.ttsErr
}

func (f *fakeVoices) DeleteVoice(_ context.Context, voiceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, voiceID)
	return nil
}

type fakeStorage struct {
	uploaded map[string][]byte
	deleted  []string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{uploaded: make(map[string][]byte)}
}

func (f *fakeStorage) Upload(_ context.Context, key string, body io.Reader, _ string) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	f.uploaded[key] = data
	return "https://cdn.example.com/" + key, nil
}

func (f *fakeStorage) Delete(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeStorage) GetSignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://signed.example.com/" + key, nil
}

func (f *fakeStorage) GetPublicURL(key string) string {
	return "https://cdn.example.com/" + key
}
