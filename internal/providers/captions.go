package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// fallbackCaptions replace a failed suggestion under the fallback policy
var fallbackCaptions = []string{"ありがとう", "了解", "おやすみ", "OK", "おつかれ", "よろしく", "ぺこり", "！！"}

// FallbackCaptions returns the built-in list truncated to count
func FallbackCaptions(count int) []string {
	if count > len(fallbackCaptions) {
		count = len(fallbackCaptions)
	}
	if count < 0 {
		count = 0
	}
	out := make([]string, count)
	copy(out, fallbackCaptions[:count])
	return out
}

// StripFences removes markdown code fences around a model response
func StripFences(response string) string {
	response = strings.TrimSpace(response)
	response = strings.ReplaceAll(response, "```json", "")
	response = strings.ReplaceAll(response, "```", "")
	return strings.TrimSpace(response)
}

// ParseCaptions decodes a JSON array of strings, tolerating fence noise.
// Blank entries are dropped and the result is capped at count.
func ParseCaptions(response string, count int) ([]string, error) {
	var raw []string
	if err := json.Unmarshal([]byte(StripFences(response)), &raw); err != nil {
		return nil, fmt.Errorf("%w: failed to parse captions: %w", ErrSuggestionFailed, err)
	}

	captions := make([]string, 0, len(raw))
	for _, c := range raw {
		if c = strings.TrimSpace(c); c != "" {
			captions = append(captions, c)
		}
	}
	if count > 0 && len(captions) > count {
		captions = captions[:count]
	}
	if len(captions) == 0 {
		return nil, fmt.Errorf("%w: response contained no captions", ErrSuggestionFailed)
	}
	return captions, nil
}

// Suggest asks gen for count captions. With fallback set, any failure is
// logged and replaced by the built-in list; otherwise it is returned
// wrapped in ErrSuggestionFailed.
func Suggest(ctx context.Context, gen Generator, count int, topic string, fallback bool) ([]string, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: count must be positive, got %d", ErrSuggestionFailed, count)
	}

	captions, err := gen.SuggestCaptions(ctx, count, topic)
	if err == nil {
		return captions, nil
	}

	if fallback {
		slog.Error("Suggestion Error, using built-in captions", "err", err)
		return FallbackCaptions(count), nil
	}

	if errors.Is(err, ErrSuggestionFailed) {
		return nil, err
	}
	return nil, fmt.Errorf("%w: %w", ErrSuggestionFailed, Classify(err))
}
