package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/videodub/api/internal/config"
	"github.com/videodub/api/internal/model"
)

var (
	// ErrVoiceAuth is returned when the voice service rejects the API key.
	ErrVoiceAuth = errors.New("voice service authentication failed, check ELEVENLABS_API_KEY")
	// ErrInvalidVoice is returned when synthesis is asked for an unknown voice.
	ErrInvalidVoice = errors.New("invalid voice id")
)

// VoiceProvider defines the voice service operations
type VoiceProvider interface {
	ListVoices(ctx context.Context) ([]model.Voice, error)
	GetVoice(ctx context.Context, voiceID string) (*model.Voice, error)
	AddVoice(ctx context.Context, req *AddVoiceRequest) (string, error)
	TextToSpeech(ctx context.Context, text, voiceID string) ([]byte, error)
	DeleteVoice(ctx context.Context, voiceID string) error
}

// AddVoiceRequest describes a voice clone upload
type AddVoiceRequest struct {
	Name        string
	Description string
	FileName    string
	Sample      io.Reader
}

// VoiceSettings are sent with every synthesis request
type VoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

type ttsRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings VoiceSettings `json:"voice_settings"`
}

type elevenVoice struct {
	VoiceID           string            `json:"voice_id"`
	Name              string            `json:"name"`
	Category          string            `json:"category"`
	Description       string            `json:"description"`
	Labels            map[string]string `json:"labels"`
	VerifiedLanguages []struct {
		Language string `json:"language"`
	} `json:"verified_languages"`
}

func (v elevenVoice) toModel() model.Voice {
	voice := model.Voice{
		VoiceID:     v.VoiceID,
		Name:        v.Name,
		Category:    v.Category,
		Description: v.Description,
		Gender:      v.Labels["gender"],
		Age:         v.Labels["age"],
		Accent:      v.Labels["accent"],
	}
	if voice.Description == "" {
		voice.Description = v.Labels["description"]
	}
	for _, l := range v.VerifiedLanguages {
		if l.Language != "" {
			voice.Languages = append(voice.Languages, l.Language)
		}
	}
	if lang := v.Labels["language"]; lang != "" && len(voice.Languages) == 0 {
		voice.Languages = []string{lang}
	}
	voice.Decorate()
	return voice
}

// ElevenLabsClient implements VoiceProvider for the ElevenLabs API
type ElevenLabsClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	modelID    string
	settings   VoiceSettings
	logger     *slog.Logger
}

// NewElevenLabsClient creates a new ElevenLabs API client
func NewElevenLabsClient(cfg *config.ElevenLabsConfig) *ElevenLabsClient {
	return &ElevenLabsClient{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		modelID: cfg.ModelID,
		settings: VoiceSettings{
			Stability:       cfg.Stability,
			SimilarityBoost: cfg.SimilarityBoost,
			Style:           cfg.Style,
			UseSpeakerBoost: cfg.SpeakerBoost,
		},
		logger: slog.Default().With("component", "elevenlabs"),
	}
}

// ListVoices returns every voice visible to the account
func (c *ElevenLabsClient) ListVoices(ctx context.Context) ([]model.Voice, error) {
	var result struct {
		Voices []elevenVoice `json:"voices"`
	}
	if err := c.getJSON(ctx, "/voices", &result); err != nil {
		return nil, err
	}

	voices := make([]model.Voice, 0, len(result.Voices))
	for _, v := range result.Voices {
		voices = append(voices, v.toModel())
	}
	return voices, nil
}

// GetVoice returns details of a single voice
func (c *ElevenLabsClient) GetVoice(ctx context.Context, voiceID string) (*model.Voice, error) {
	var result elevenVoice
	if err := c.getJSON(ctx, "/voices/"+voiceID, &result); err != nil {
		return nil, err
	}
	voice := result.toModel()
	return &voice, nil
}

// AddVoice uploads an audio sample and returns the new voice id
func (c *ElevenLabsClient) AddVoice(ctx context.Context, req *AddVoiceRequest) (string, error) {
	if !c.IsConfigured() {
		return "", ErrNotConfigured
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	_ = mw.WriteField("name", req.Name)
	_ = mw.WriteField("description", req.Description)

	fileName := req.FileName
	if fileName == "" {
		fileName = "sample.mp3"
	}
	part, err := mw.CreateFormFile("files", fileName)
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, req.Sample); err != nil {
		return "", fmt.Errorf("failed to write sample: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize form: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/voices/add", &body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	respBody, err := c.do(httpReq)
	if err != nil {
		return "", err
	}

	var result struct {
		VoiceID string `json:"voice_id"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if result.VoiceID == "" {
		return "", fmt.Errorf("no voice_id in response")
	}
	return result.VoiceID, nil
}

// TextToSpeech synthesizes text with voiceID and returns raw audio bytes
func (c *ElevenLabsClient) TextToSpeech(ctx context.Context, text, voiceID string) ([]byte, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}

	bodyBytes, err := json.Marshal(ttsRequest{
		Text:          text,
		ModelID:       c.modelID,
		VoiceSettings: c.settings,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/text-to-speech/"+voiceID, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	audio, err := c.do(req)
	if err != nil {
		switch StatusOf(err) {
		case http.StatusUnauthorized:
			return nil, fmt.Errorf("%w: %v", ErrVoiceAuth, err)
		case http.StatusUnprocessableEntity:
			return nil, fmt.Errorf("%w %q: %v", ErrInvalidVoice, voiceID, err)
		}
		return nil, err
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("empty audio response")
	}
	return audio, nil
}

// DeleteVoice removes a voice from the account
func (c *ElevenLabsClient) DeleteVoice(ctx context.Context, voiceID string) error {
	if !c.IsConfigured() {
		return ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/voices/"+voiceID, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	_, err = c.do(req)
	return err
}

// IsConfigured returns true if the client has valid configuration
func (c *ElevenLabsClient) IsConfigured() bool {
	return c.apiKey != ""
}

func (c *ElevenLabsClient) getJSON(ctx context.Context, endpoint string, result interface{}) error {
	if !c.IsConfigured() {
		return ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	respBody, err := c.do(req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

// do executes an authenticated request and returns the body of a 2xx response
func (c *ElevenLabsClient) do(req *http.Request) ([]byte, error) {
	req.Header.Set("xi-api-key", c.apiKey)

	c.logger.Debug("request", "method", req.Method, "path", req.URL.Path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("request failed", "method", req.Method, "path", req.URL.Path, "error", err)
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("non-2xx response", "method", req.Method, "path", req.URL.Path, "status", resp.StatusCode)
		return nil, &APIError{Service: "elevenlabs", StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	return respBody, nil
}
