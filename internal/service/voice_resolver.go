package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/videodub/api/internal/client"
	"github.com/videodub/api/internal/model"
)

const (
	minCloneSampleBytes = 1024
	maxCloneSampleBytes = 10 << 20
)

var errSampleTooSmall = errors.New("audio sample too small for cloning")

// VoiceRequest is the input to voice resolution for one job
type VoiceRequest struct {
	Video          client.VideoHandle
	VoiceID        string
	TargetLanguage string
	Clone          bool
}

type voiceStep struct {
	name string
	run  func(ctx context.Context, req VoiceRequest) (model.VoiceSelection, error)
}

// VoiceResolver picks the voice used for synthesis
type VoiceResolver struct {
	voices client.VoiceProvider
	logger *slog.Logger
}

func NewVoiceResolver(voices client.VoiceProvider, logger *slog.Logger) *VoiceResolver {
	return &VoiceResolver{
		voices: voices,
		logger: logger.With("component", "voice_resolver"),
	}
}

// Resolve walks the resolution steps in order and returns the first voice
// found. It always returns a usable selection; the demo voice is last.
func (r *VoiceResolver) Resolve(ctx context.Context, req VoiceRequest) model.VoiceSelection {
	for _, step := range r.steps(req) {
		sel, err := step.run(ctx, req)
		if err == nil && sel.VoiceID != "" {
			r.logger.Info("voice resolved",
				"step", step.name,
				"voice_id", sel.VoiceID,
				"cloned", sel.IsCloned,
				"demo", sel.IsDemo,
			)
			return sel
		}
		if err != nil {
			r.logger.Warn("voice step failed", "step", step.name, "error", err)
		}
	}
	return model.VoiceSelection{VoiceID: model.DemoVoiceID, IsDemo: true}
}

// A failed clone goes straight to the language default.
func (r *VoiceResolver) steps(req VoiceRequest) []voiceStep {
	clone := voiceStep{name: "clone", run: r.cloneVoice}
	explicit := voiceStep{name: "explicit", run: r.explicitVoice}
	fallback := voiceStep{name: "default", run: r.defaultVoice}

	if req.Clone {
		return []voiceStep{clone, fallback}
	}
	return []voiceStep{explicit, fallback}
}

func (r *VoiceResolver) explicitVoice(_ context.Context, req VoiceRequest) (model.VoiceSelection, error) {
	id := strings.TrimSpace(req.VoiceID)
	if id == "" {
		return model.VoiceSelection{}, nil
	}
	return model.VoiceSelection{VoiceID: id, IsDemo: model.IsDemoVoice(id)}, nil
}

func (r *VoiceResolver) defaultVoice(ctx context.Context, req VoiceRequest) (model.VoiceSelection, error) {
	if _, err := r.voices.ListVoices(ctx); err != nil {
		r.logger.Warn("voice service unreachable, using demo voice", "error", err)
		return model.VoiceSelection{VoiceID: model.DemoVoiceID, IsDemo: true}, nil
	}
	return model.VoiceSelection{VoiceID: model.DefaultVoiceFor(req.TargetLanguage)}, nil
}

func (r *VoiceResolver) cloneVoice(ctx context.Context, req VoiceRequest) (model.VoiceSelection, error) {
	if req.Video == nil {
		return model.VoiceSelection{}, fmt.Errorf("no video to clone from")
	}
	extractor, ok := req.Video.(client.AudioExtractor)
	if !ok {
		return model.VoiceSelection{}, fmt.Errorf("video %s does not expose audio", req.Video.VideoID())
	}

	audio, err := extractor.ExtractAudio(ctx)
	if err != nil {
		return model.VoiceSelection{}, fmt.Errorf("failed to extract audio: %w", err)
	}
	defer audio.Close()

	sample, err := io.ReadAll(io.LimitReader(audio, maxCloneSampleBytes))
	if err != nil {
		return model.VoiceSelection{}, fmt.Errorf("failed to read audio sample: %w", err)
	}
	if len(sample) < minCloneSampleBytes {
		return model.VoiceSelection{}, fmt.Errorf("%w: %d bytes", errSampleTooSmall, len(sample))
	}

	videoID := req.Video.VideoID()
	id, err := r.voices.AddVoice(ctx, &client.AddVoiceRequest{
		Name:        fmt.Sprintf("Cloned_Voice_%s_%s", videoID, req.TargetLanguage),
		Description: fmt.Sprintf("Voice cloned from video %s for %s dubbing", videoID, model.LanguageName(req.TargetLanguage)),
		FileName:    "sample.mp3",
		Sample:      bytes.NewReader(sample),
	})
	if err != nil {
		return model.VoiceSelection{}, fmt.Errorf("failed to clone voice: %w", err)
	}
	return model.VoiceSelection{VoiceID: id, IsCloned: true}, nil
}
