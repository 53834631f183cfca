package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode"

	"github.com/videodub/api/internal/client"
	"github.com/videodub/api/internal/model"
)

var (
	ErrMalformedBatch         = errors.New("translation service returned a malformed batch response")
	ErrTranslationRateLimited = errors.New("translation rate limit exceeded, wait and retry or raise the OpenAI quota")
	ErrTranslationAuth        = errors.New("translation authentication failed, check OPENAI_API_KEY")
)

const (
	// DefaultSourceLanguage is returned when detection fails.
	DefaultSourceLanguage = "en"

	detectionSampleRunes = 500
)

// Phrases models tend to put in front of a translation.
var translationPreambles = []string{
	"Here is the translation:",
	"Here's the translation:",
	"The translation is:",
	"Translation:",
	"Translated:",
	"The text appears to be",
	"Here is the",
	"This translates to:",
	"In English:",
	"In Spanish:",
	"In French:",
	"The word means:",
	"This means:",
}

// TranslationService translates transcripts and detects their language
type TranslationService struct {
	llm    client.ChatCompleter
	logger *slog.Logger
}

func NewTranslationService(llm client.ChatCompleter, logger *slog.Logger) *TranslationService {
	return &TranslationService{
		llm:    llm,
		logger: logger.With("component", "translation"),
	}
}

// TranslateSegments drops non-speech segments and translates the rest in one
// batched request keyed by position in the filtered sequence. Every returned
// segment keeps its timings and has OriginalText set to its text before
// translation.
func (s *TranslationService) TranslateSegments(ctx context.Context, segments []model.TranscriptSegment, targetLang string) ([]model.TranscriptSegment, error) {
	filtered, dropped := FilterSegments(segments)
	if dropped > 0 {
		s.logger.Debug("non-speech segments dropped", "dropped", dropped, "kept", len(filtered))
	}

	out := make([]model.TranscriptSegment, len(filtered))
	batch := make(map[string]string)

	for i, seg := range filtered {
		out[i] = seg
		out[i].OriginalText = seg.Text
		if !seg.Malformed {
			batch[strconv.Itoa(i)] = seg.Text
		}
	}

	if len(batch) == 0 {
		return out, nil
	}

	translations, err := s.translateBatch(ctx, batch, targetLang)
	if err != nil {
		return nil, err
	}

	fallbacks := 0
	for i := range out {
		key := strconv.Itoa(i)
		source, ok := batch[key]
		if !ok {
			continue
		}

		if translated := strings.TrimSpace(translations[key]); translated != "" {
			out[i].Text = translated
			continue
		}

		fallbacks++
		translated, err := s.TranslateText(ctx, source, targetLang)
		if err != nil || translated == "" {
			s.logger.Warn("segment fallback translation failed, keeping original", "segment", i, "error", err)
			continue
		}
		out[i].Text = translated
	}

	s.logger.Info("transcript translated",
		"segments", len(out),
		"batched", len(batch),
		"fallbacks", fallbacks,
		"target_language", targetLang,
	)
	return out, nil
}

func (s *TranslationService) translateBatch(ctx context.Context, batch map[string]string, targetLang string) (map[string]string, error) {
	payload, err := json.Marshal(batch)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal batch: %w", err)
	}

	response, err := s.llm.Complete(ctx, client.CompletionRequest{
		System: buildBatchSystemPrompt(targetLang),
		User:   string(payload),
		JSON:   true,
	})
	if err != nil {
		s.logger.Error("batch translation failed", "error", err)
		return nil, classifyTranslationError(err)
	}

	var translations map[string]string
	if err := json.Unmarshal([]byte(extractJSON(response)), &translations); err != nil {
		s.logger.Error("batch translation response is not a JSON object", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrMalformedBatch, err)
	}
	return translations, nil
}

// TranslateText translates a single text and removes chat preambles and
// wrapping quotes from the answer.
func (s *TranslationService) TranslateText(ctx context.Context, text, targetLang string) (string, error) {
	response, err := s.llm.Complete(ctx, client.CompletionRequest{
		System: fmt.Sprintf("Translate the following text to %s. Return only the translation, no explanations.", model.LanguageName(targetLang)),
		User:   text,
	})
	if err != nil {
		return "", classifyTranslationError(err)
	}
	return cleanTranslation(response), nil
}

// DetectLanguage returns the ISO 639-1 code of text, or DefaultSourceLanguage
// when it cannot be determined.
func (s *TranslationService) DetectLanguage(ctx context.Context, text string) string {
	sample := strings.TrimSpace(truncateRunes(text, detectionSampleRunes))
	if sample == "" {
		return DefaultSourceLanguage
	}

	prompt := fmt.Sprintf(`Detect the language of the following text and return only the ISO 639-1 language code (e.g., 'en', 'es', 'fr').

Text:
%s

Language code:`, sample)

	response, err := s.llm.Complete(ctx, client.CompletionRequest{
		System:      "You are a language detection expert. Return only the ISO 639-1 language code.",
		User:        prompt,
		MaxTokens:   10,
		Temperature: 0.1,
	})
	if err != nil {
		s.logger.Warn("language detection failed, using default", "default", DefaultSourceLanguage, "error", err)
		return DefaultSourceLanguage
	}

	code, ok := parseLanguageCode(response)
	if !ok {
		s.logger.Warn("unrecognized language detection response", "response", response)
		return DefaultSourceLanguage
	}
	return code
}

func buildBatchSystemPrompt(targetLang string) string {
	return fmt.Sprintf(`You are a professional translator for video dubbing.
Translate every value of the JSON object you receive to %s.
Answer with a JSON object that has exactly the same keys, each mapped to its translated text.
Do not add, drop or rename keys. Do not include any text outside the JSON object.`, model.LanguageName(targetLang))
}

func classifyTranslationError(err error) error {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.IsRateLimited():
			return fmt.Errorf("%w: %w", ErrTranslationRateLimited, err)
		case apiErr.IsAuth():
			return fmt.Errorf("%w: %w", ErrTranslationAuth, err)
		}
	}
	return err
}

// cleanTranslation keeps the text after the last known preamble and strips
// one layer of matching quotes.
func cleanTranslation(text string) string {
	text = strings.TrimSpace(text)
	lower := strings.ToLower(text)

	cut := -1
	for _, phrase := range translationPreambles {
		idx := strings.LastIndex(lower, strings.ToLower(phrase))
		if idx == -1 {
			continue
		}
		if end := idx + len(phrase); end > cut {
			cut = end
		}
	}
	if cut != -1 && cut <= len(text) {
		text = strings.TrimSpace(text[cut:])
	}

	if len(text) >= 2 {
		first, last := text[0], text[len(text)-1]
		if (first == '"' || first == '\'') && first == last {
			text = strings.TrimSpace(text[1 : len(text)-1])
		}
	}
	return text
}

// parseLanguageCode finds the first two-letter word in a detection answer.
func parseLanguageCode(response string) (string, bool) {
	words := strings.FieldsFunc(strings.ToLower(response), func(r rune) bool {
		return r > unicode.MaxASCII || !unicode.IsLetter(r)
	})
	for _, w := range words {
		if len(w) == 2 {
			return w, true
		}
	}
	return "", false
}

func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")

	if start != -1 && end != -1 && end > start {
		return s[start : end+1]
	}
	return s
}
