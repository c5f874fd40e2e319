package providers

import (
	"context"

	"github.com/lehigh-university-libraries/stampmaker/internal/models"
)

// ImageRequest carries everything needed to render one sticker
type ImageRequest struct {
	References  []models.ReferenceImage
	Style       models.Style
	Caption     string
	ExtraPrompt string
}

// Generator defines the remote generation service
type Generator interface {
	// SuggestCaptions returns at most count short captions for topic
	SuggestCaptions(ctx context.Context, count int, topic string) ([]string, error)
	// GenerateImage returns the rendered sticker as a data URI
	GenerateImage(ctx context.Context, req ImageRequest) (string, error)
}
