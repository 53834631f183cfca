package e2e

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/videodub/api/internal/client"
	"github.com/videodub/api/internal/config"
	"github.com/videodub/api/internal/handler"
	"github.com/videodub/api/internal/middleware"
	"github.com/videodub/api/internal/model"
	"github.com/videodub/api/internal/service"
	"github.com/videodub/api/internal/worker"
)

// testApp holds all components needed for testing
type testApp struct {
	app    *fiber.App
	runner *worker.Runner
	videos *fakeVideos
	voices *fakeVoices
	llm    *fakeLLM
}

type appOptions struct {
	missing []string
}

// setupApp builds the same routes as main.go over in-process fakes of the
// video, voice and LLM services. Redis is left out so rate limits pass.
func setupApp(t *testing.T, opts ...appOptions) *testApp {
	t.Helper()

	var o appOptions
	if len(opts) > 0 {
		o = opts[0]
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	validate := validator.New()
	languages := config.LanguagesConfig{Supported: []string{"en", "es", "fr"}}

	videos := &fakeVideos{
		segments: []model.TranscriptSegment{
			{Start: 0, End: 1.5, Text: "Hola"},
			{Start: 1.5, End: 2, Text: "-"},
			{Start: 2, End: 3.2, Text: "mundo"},
		},
		text:      "Hola - mundo",
		streamURL: "https://stream.example.com/original.m3u8",
	}
	voices := &fakeVoices{
		voices: []model.Voice{
			{VoiceID: "v-es", Name: "Lucia", Gender: "female", Age: "middle_aged", Languages: []string{"es"}},
			{VoiceID: "v-multi", Name: "Sam"},
		},
	}
	llm := &fakeLLM{detect: "es", batch: `{"0":"Hello","1":"world"}`}

	store := service.NewMemoryJobStore()
	translator := service.NewTranslationService(llm, logger)
	resolver := service.NewVoiceResolver(voices, logger)
	dubbingService := service.NewDubbingService(videos, voices, nil, translator, resolver, service.DubbingOptions{
		MaxChars: 1000,
		TempDir:  t.TempDir(),
		Languages: map[string]string{
			"en": "English",
			"es": "Spanish",
			"fr": "French",
		},
	}, logger)

	runner := worker.NewRunner(context.Background(), worker.NewDubbingWorker(store, dubbingService, logger), logger)
	jobService := service.NewJobService(store, runner, languages, logger)

	dubbingHandler := handler.NewDubbingHandler(jobService, dubbingService, languages.Supported, validate)
	voiceHandler := handler.NewVoiceHandler(dubbingService)
	systemHandler := handler.NewSystemHandler(dubbingService, map[string]bool{
		"videodb":    true,
		"openai":     true,
		"elevenlabs": true,
		"storage":    false,
		"redis":      false,
	}, o.missing)
	rateLimiter := middleware.NewRateLimiter(nil, logger)

	app := fiber.New()

	app.Get("/", systemHandler.Root)
	app.Get("/health", systemHandler.Health)

	api := app.Group("/api")
	api.Get("/languages", systemHandler.Languages)
	api.Get("/demo-video", systemHandler.DemoVideo)
	api.Get("/voices", voiceHandler.List)
	api.Delete("/voices/:voiceId", voiceHandler.Delete)
	api.Post("/preview-translation", rateLimiter.PreviewLimit(1), dubbingHandler.PreviewTranslation)
	api.Post("/dub-video", rateLimiter.DubLimit(1), dubbingHandler.DubVideo)
	api.Get("/job-status/:jobId", dubbingHandler.JobStatus)
	api.Get("/videos/:videoId/search", dubbingHandler.Search)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = runner.Wait(ctx)
	})

	return &testApp{app: app, runner: runner, videos: videos, voices: voices, llm: llm}
}

// waitForJob polls the status endpoint until the job is terminal.
func waitForJob(t *testing.T, ta *testApp, jobID string) map[string]interface{} {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ta.runner.Wait(ctx); err != nil {
		t.Fatalf("job did not finish: %v", err)
	}

	resp, err := doRequest(ta.app, http.MethodGet, "/api/job-status/"+jobID, "", nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)
	return parseJSON(t, resp)
}

// doRequest is a helper to perform HTTP requests against the test app.
func doRequest(app *fiber.App, method, path string, body string, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, path, bodyReader)
	if err != nil {
		return nil, err
	}

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return app.Test(req, -1)
}

// readBody reads and returns the response body as a string.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return string(b)
}

// parseJSON parses response body into a map.
func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body := readBody(t, resp)
	var result map[string]interface{}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, body)
	}
	return result
}

// assertStatus checks the HTTP status code.
func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

// errorCode extracts error.code from an error envelope.
func errorCode(t *testing.T, body map[string]interface{}) string {
	t.Helper()
	e, ok := body["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error envelope, got %v", body)
	}
	code, _ := e["code"].(string)
	return code
}

type fakeVideo struct{ id string }

func (v fakeVideo) VideoID() string { return v.id }

type fakeVideos struct {
	mu        sync.Mutex
	uploadErr error
	segments  []model.TranscriptSegment
	text      string
	streamURL string
	shots     []model.Shot
	uploads   int
}

func (f *fakeVideos) Upload(context.Context, string) (client.VideoHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	f.uploads++
	return fakeVideo{id: "vid-e2e"}, nil
}

func (f *fakeVideos) IndexSpokenWords(context.Context, string) error { return nil }

func (f *fakeVideos) GetTranscript(context.Context, string) ([]model.TranscriptSegment, error) {
	return append([]model.TranscriptSegment(nil), f.segments...), nil
}

func (f *fakeVideos) GetTranscriptText(context.Context, string) (string, error) { return f.text, nil }

func (f *fakeVideos) GenerateStream(context.Context, client.VideoHandle) (string, error) {
	return f.streamURL, nil
}

func (f *fakeVideos) UploadAudio(context.Context, string, string) (string, error) {
	return "", errors.New("not used")
}

func (f *fakeVideos) ComposeDub(context.Context, string, string) (string, error) {
	return "", errors.New("not used")
}

func (f *fakeVideos) Search(context.Context, string, string) ([]model.Shot, error) {
	return f.shots, nil
}

type fakeVoices struct {
	mu      sync.Mutex
	voices  []model.Voice
	listErr error
	deleted []string
}

func (f *fakeVoices) ListVoices(context.Context) ([]model.Voice, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]model.Voice(nil), f.voices...), nil
}

func (f *fakeVoices) GetVoice(context.Context, string) (*model.Voice, error) {
	return nil, errors.New("not found")
}

func (f *fakeVoices) AddVoice(context.Context, *client.AddVoiceRequest) (string, error) {
	return "", errors.New("cloning disabled")
}

func (f *fakeVoices) TextToSpeech(context.Context, string, string) ([]byte, error) {
	return []byte("ID3"), nil
}

func (f *fakeVoices) DeleteVoice(_ context.Context, voiceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, voiceID)
	return nil
}

type fakeLLM struct {
	mu       sync.Mutex
	detect   string
	batch    string
	batchErr error
	batches  int
}

func (f *fakeLLM) Complete(_ context.Context, req client.CompletionRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !req.JSON {
		return f.detect, nil
	}
	f.batches++
	if f.batchErr != nil {
		return "", f.batchErr
	}
	return f.batch, nil
}
