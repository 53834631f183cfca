package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/videodub/api/internal/config"
	"github.com/videodub/api/internal/model"
)

// ErrNoAudioStream is returned when a video has no downloadable stream.
var ErrNoAudioStream = errors.New("video has no audio stream")

// VideoHandle is a reference to a video hosted by the video platform.
type VideoHandle interface {
	VideoID() string
}

// AudioExtractor is implemented by video handles that can hand out their
// audio track. Callers must close the returned reader.
type AudioExtractor interface {
	ExtractAudio(ctx context.Context) (io.ReadCloser, error)
}

// Video is a VideoDB video asset.
type Video struct {
	ID           string `json:"id"`
	CollectionID string `json:"collection_id"`
	Name         string `json:"name"`
	StreamURL    string `json:"stream_url"`
	PlayerURL    string `json:"player_url"`

	client *VideoDBClient
}

// VideoID implements VideoHandle.
func (v *Video) VideoID() string {
	return v.ID
}

// ExtractAudio downloads the video's stream as the audio source.
func (v *Video) ExtractAudio(ctx context.Context) (io.ReadCloser, error) {
	if v.StreamURL == "" || v.client == nil {
		return nil, ErrNoAudioStream
	}
	return v.client.download(ctx, v.StreamURL)
}

// VideoDBClient talks to the VideoDB REST API.
type VideoDBClient struct {
	httpClient   *http.Client
	baseURL      string
	apiKey       string
	pollInterval time.Duration
	pollTimeout  time.Duration
	logger       *slog.Logger
}

// envelope is the common VideoDB response wrapper. Long running calls answer
// with status "processing" and an output_url to poll.
type envelope struct {
	Success  bool            `json:"success"`
	Status   string          `json:"status"`
	Message  string          `json:"message"`
	Data     json.RawMessage `json:"data"`
	Response *envelope       `json:"response"`
}

const (
	statusProcessing = "processing"
	statusInProgress = "in progress"
	statusFailed     = "failed"
)

// NewVideoDBClient creates a new VideoDB API client
func NewVideoDBClient(cfg *config.VideoDBConfig) *VideoDBClient {
	interval := time.Duration(cfg.PollInterval) * time.Second
	if interval <= 0 {
		interval = 5 * time.Second
	}
	timeout := time.Duration(cfg.PollTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}

	return &VideoDBClient{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:       cfg.APIKey,
		pollInterval: interval,
		pollTimeout:  timeout,
		logger:       slog.Default().With("component", "videodb"),
	}
}

// Upload ingests a video from a public URL into the default collection
func (c *VideoDBClient) Upload(ctx context.Context, videoURL string) (VideoHandle, error) {
	var video Video
	body := map[string]string{"url": videoURL, "media_type": "video"}
	if err := c.post(ctx, "/collection/default/upload", body, &video); err != nil {
		return nil, fmt.Errorf("failed to upload video: %w", err)
	}
	if video.ID == "" {
		return nil, fmt.Errorf("failed to upload video: no id in response")
	}
	video.client = c
	return &video, nil
}

// UploadAudio ingests an audio file from a URL and returns its asset id
func (c *VideoDBClient) UploadAudio(ctx context.Context, audioURL, name string) (string, error) {
	var audio struct {
		ID string `json:"id"`
	}
	body := map[string]string{"url": audioURL, "media_type": "audio", "name": name}
	if err := c.post(ctx, "/collection/default/upload", body, &audio); err != nil {
		return "", fmt.Errorf("failed to upload audio: %w", err)
	}
	if audio.ID == "" {
		return "", fmt.Errorf("failed to upload audio: no id in response")
	}
	return audio.ID, nil
}

// IndexSpokenWords runs speech recognition on the video
func (c *VideoDBClient) IndexSpokenWords(ctx context.Context, videoID string) error {
	body := map[string]string{"index_type": "spoken_word"}
	if err := c.post(ctx, "/video/"+videoID+"/index", body, nil); err != nil {
		return fmt.Errorf("failed to index spoken words: %w", err)
	}
	return nil
}

type transcription struct {
	Text           string            `json:"text"`
	WordTimestamps []json.RawMessage `json:"word_timestamps"`
}

func (c *VideoDBClient) transcription(ctx context.Context, videoID string) (*transcription, error) {
	var t transcription
	if err := c.get(ctx, "/video/"+videoID+"/transcription?segmenter=sentence", &t); err != nil {
		return nil, fmt.Errorf("failed to get transcript: %w", err)
	}
	return &t, nil
}

// GetTranscript returns the ordered transcript segments of an indexed video
func (c *VideoDBClient) GetTranscript(ctx context.Context, videoID string) ([]model.TranscriptSegment, error) {
	t, err := c.transcription(ctx, videoID)
	if err != nil {
		return nil, err
	}
	return model.ParseSegments(t.WordTimestamps), nil
}

// GetTranscriptText returns the full transcript text of an indexed video
func (c *VideoDBClient) GetTranscriptText(ctx context.Context, videoID string) (string, error) {
	t, err := c.transcription(ctx, videoID)
	if err != nil {
		return "", err
	}
	return t.Text, nil
}

// GenerateStream returns a playable URL for the whole video
func (c *VideoDBClient) GenerateStream(ctx context.Context, video VideoHandle) (string, error) {
	if v, ok := video.(*Video); ok && v.StreamURL != "" {
		return v.StreamURL, nil
	}

	var stream struct {
		StreamURL string `json:"stream_url"`
	}
	body := map[string]interface{}{"timeline": []interface{}{}}
	if err := c.post(ctx, "/video/"+video.VideoID()+"/stream", body, &stream); err != nil {
		return "", fmt.Errorf("failed to generate stream: %w", err)
	}
	if stream.StreamURL == "" {
		return "", fmt.Errorf("failed to generate stream: empty stream url")
	}
	return stream.StreamURL, nil
}

type timelineAsset struct {
	AssetID            string   `json:"asset_id"`
	Start              float64  `json:"start"`
	End                *float64 `json:"end"`
	DisableOtherTracks bool     `json:"disable_other_tracks,omitempty"`
	FadeInDuration     float64  `json:"fade_in_duration,omitempty"`
	FadeOutDuration    float64  `json:"fade_out_duration,omitempty"`
}

type timelineItem struct {
	Type  string        `json:"type"`
	Start *float64      `json:"start,omitempty"`
	Asset timelineAsset `json:"asset"`
}

// ComposeDub compiles a timeline of the video with audioID overlaid at 0,
// muting the original tracks, and returns the new stream URL
func (c *VideoDBClient) ComposeDub(ctx context.Context, videoID, audioID string) (string, error) {
	zero := 0.0
	body := map[string]interface{}{
		"request_type": "compile",
		"timeline": []timelineItem{
			{Type: "inline", Asset: timelineAsset{AssetID: videoID}},
			{Type: "overlay", Start: &zero, Asset: timelineAsset{AssetID: audioID, DisableOtherTracks: true}},
		},
	}

	var stream struct {
		StreamURL string `json:"stream_url"`
	}
	if err := c.post(ctx, "/timeline", body, &stream); err != nil {
		return "", fmt.Errorf("failed to compose dubbed video: %w", err)
	}
	if stream.StreamURL == "" {
		return "", fmt.Errorf("failed to compose dubbed video: empty stream url")
	}
	return stream.StreamURL, nil
}

// Search runs a semantic search over the video's spoken words
func (c *VideoDBClient) Search(ctx context.Context, videoID, query string) ([]model.Shot, error) {
	var result struct {
		Results []struct {
			VideoID string       `json:"video_id"`
			Docs    []model.Shot `json:"docs"`
			Shots   []model.Shot `json:"shots"`
		} `json:"results"`
	}
	body := map[string]string{
		"index_type":  "spoken_word",
		"search_type": "semantic",
		"query":       query,
	}
	if err := c.post(ctx, "/video/"+videoID+"/search", body, &result); err != nil {
		return nil, fmt.Errorf("failed to search video: %w", err)
	}

	shots := []model.Shot{}
	for _, r := range result.Results {
		for _, s := range append(r.Docs, r.Shots...) {
			if s.VideoID == "" {
				s.VideoID = r.VideoID
			}
			shots = append(shots, s)
		}
	}
	return shots, nil
}

// GetVideo fetches a video by id
func (c *VideoDBClient) GetVideo(ctx context.Context, videoID string) (*Video, error) {
	var video Video
	if err := c.get(ctx, "/video/"+videoID, &video); err != nil {
		return nil, fmt.Errorf("failed to get video: %w", err)
	}
	video.client = c
	return &video, nil
}

// IsConfigured returns true if the client has valid configuration
func (c *VideoDBClient) IsConfigured() bool {
	return c.apiKey != ""
}

// post sends a POST request with JSON body
func (c *VideoDBClient) post(ctx context.Context, endpoint string, body interface{}, result interface{}) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.doRequest(ctx, req, result)
}

// get sends a GET request and parses JSON response
func (c *VideoDBClient) get(ctx context.Context, endpoint string, result interface{}) error {
	target := endpoint
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		target = c.baseURL + endpoint
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	return c.doRequest(ctx, req, result)
}

// doRequest executes a request, follows async output polling and decodes data into result
func (c *VideoDBClient) doRequest(ctx context.Context, req *http.Request, result interface{}) error {
	if !c.IsConfigured() {
		return ErrNotConfigured
	}

	env, err := c.send(req)
	if err != nil {
		return err
	}

	if isPending(env.Status) {
		var pending struct {
			OutputURL string `json:"output_url"`
		}
		if err := json.Unmarshal(env.Data, &pending); err != nil || pending.OutputURL == "" {
			return fmt.Errorf("processing response without output_url")
		}
		env, err = c.pollOutput(ctx, pending.OutputURL)
		if err != nil {
			return err
		}
	}

	if result == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

// pollOutput polls an async output URL until the operation leaves the processing state
func (c *VideoDBClient) pollOutput(ctx context.Context, outputURL string) (*envelope, error) {
	deadline := time.Now().Add(c.pollTimeout)
	attempt := 0

	for time.Now().Before(deadline) {
		attempt++

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, outputURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		env, err := c.send(req)
		if err != nil {
			return nil, err
		}

		if env.Response != nil {
			env = env.Response
		}

		c.logger.Debug("poll output", "attempt", attempt, "status", env.Status)

		switch {
		case isPending(env.Status):
		case env.Status == statusFailed:
			return nil, fmt.Errorf("videodb operation failed: %s", env.Message)
		default:
			return env, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}

	return nil, fmt.Errorf("videodb operation timed out after %v", c.pollTimeout)
}

func (c *VideoDBClient) send(req *http.Request) (*envelope, error) {
	req.Header.Set("x-access-token", c.apiKey)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("request", "method", req.Method, "url", redactURL(req.URL))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("request failed", "method", req.Method, "url", redactURL(req.URL), "error", err)
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{Service: "videodb", StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if !env.Success && !isPending(env.Status) && env.Response == nil {
		return nil, fmt.Errorf("videodb request failed: %s", env.Message)
	}
	return &env, nil
}

// download streams a remote file. The caller closes the body.
func (c *VideoDBClient) download(ctx context.Context, fileURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, &APIError{Service: "download", StatusCode: resp.StatusCode}
	}
	return resp.Body, nil
}

func isPending(status string) bool {
	return status == statusProcessing || status == statusInProgress
}

func redactURL(u *url.URL) string {
	clean := *u
	clean.RawQuery = ""
	return clean.String()
}
