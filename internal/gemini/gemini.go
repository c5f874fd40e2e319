package gemini

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/lehigh-university-libraries/stampmaker/internal/credentials"
	"github.com/lehigh-university-libraries/stampmaker/internal/imagecodec"
	"github.com/lehigh-university-libraries/stampmaker/internal/providers"
	"google.golang.org/api/option"
)

// Config selects models and output constraints
type Config struct {
	ImageModel  string
	TextModel   string
	AspectRatio string
	ImageSize   string
}

// Gemini is a generation provider for Google Gemini
type Gemini struct {
	creds  credentials.Source
	config Config
	opts   []option.ClientOption
}

// New returns a new Gemini provider. Extra client options are appended to
// the API key option on every call.
func New(creds credentials.Source, config Config, opts ...option.ClientOption) *Gemini {
	return &Gemini{creds: creds, config: config, opts: opts}
}

// newClient binds a fresh client to whatever key is current, since the
// selected key may change between calls.
func (g *Gemini) newClient(ctx context.Context) (*genai.Client, error) {
	apiKey, err := g.creds.APIKey(ctx)
	if err != nil {
		return nil, err
	}

	opts := append([]option.ClientOption{option.WithAPIKey(apiKey)}, g.opts...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create new gemini client: %w", err)
	}
	return client, nil
}

// SuggestCaptions asks the text model for count short captions
func (g *Gemini) SuggestCaptions(ctx context.Context, count int, topic string) ([]string, error) {
	client, err := g.newClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", providers.ErrSuggestionFailed, err)
	}
	defer client.Close()

	model := client.GenerativeModel(g.config.TextModel)
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = &genai.Schema{
		Type: genai.TypeArray,
		Items: &genai.Schema{
			Type:        genai.TypeString,
			Description: providers.CaptionItemDescription,
		},
	}
	model.SystemInstruction = genai.NewUserContent(genai.Text(providers.CaptionSystemInstruction))

	resp, err := model.GenerateContent(ctx, genai.Text(providers.BuildCaptionPrompt(count, topic)))
	if err != nil {
		return nil, providers.Classify(fmt.Errorf("failed to generate content: %w", err))
	}

	raw := responseText(resp)
	if raw == "" {
		raw = "[]"
	}
	captions, err := providers.ParseCaptions(raw, count)
	if err != nil {
		return nil, err
	}

	slog.Info("Suggested captions", "provider", "gemini", "model", g.config.TextModel, "count", len(captions))
	return captions, nil
}

// GenerateImage renders one sticker and returns it as a data URI
func (g *Gemini) GenerateImage(ctx context.Context, req providers.ImageRequest) (string, error) {
	client, err := g.newClient(ctx)
	if err != nil {
		return "", err
	}
	defer client.Close()

	parts, err := requestParts(req, providers.ImageSpec{
		AspectRatio: g.config.AspectRatio,
		ImageSize:   g.config.ImageSize,
	})
	if err != nil {
		return "", err
	}

	model := client.GenerativeModel(g.config.ImageModel)

	slog.Debug("Requesting stamp image", "model", g.config.ImageModel, "caption", req.Caption, "references", len(req.References))
	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		slog.Error("Gemini API Error", "caption", req.Caption, "err", err)
		return "", providers.Classify(fmt.Errorf("failed to generate content: %w", err))
	}

	uri, err := extractImage(resp)
	if err != nil {
		return "", err
	}

	slog.Info("Generated stamp image", "provider", "gemini", "model", g.config.ImageModel, "caption", req.Caption)
	return uri, nil
}

func requestParts(req providers.ImageRequest, spec providers.ImageSpec) ([]genai.Part, error) {
	parts := []genai.Part{genai.Text(providers.BuildStampPrompt(req, spec))}
	for _, ref := range req.References {
		data, err := base64.StdEncoding.DecodeString(ref.Data)
		if err != nil {
			return nil, &imagecodec.FileReadError{Name: ref.Name, Err: err}
		}
		parts = append(parts, genai.Blob{MIMEType: ref.MIMEType, Data: data})
	}
	return parts, nil
}

// extractImage returns the first inline image of the first candidate
func extractImage(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates returned from Gemini", providers.ErrNoImageReturned)
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return "", fmt.Errorf("%w: empty content returned from Gemini", providers.ErrNoImageReturned)
	}

	for _, part := range candidate.Content.Parts {
		if blob, ok := part.(genai.Blob); ok && len(blob.Data) > 0 {
			mimeType := blob.MIMEType
			if mimeType == "" {
				mimeType = "image/png"
			}
			return imagecodec.DataURI(mimeType, blob.Data), nil
		}
	}

	return "", fmt.Errorf("%w: no image data found in Gemini response", providers.ErrNoImageReturned)
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return b.String()
}
