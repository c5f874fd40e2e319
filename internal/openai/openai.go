package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/stampmaker/internal/credentials"
	"github.com/lehigh-university-libraries/stampmaker/internal/imagecodec"
	"github.com/lehigh-university-libraries/stampmaker/internal/models"
	"github.com/lehigh-university-libraries/stampmaker/internal/providers"
)

// Config selects endpoint and models
type Config struct {
	BaseURL    string
	ImageModel string
	TextModel  string
	Size       string
}

// OpenAI is a generation provider for the OpenAI REST API
type OpenAI struct {
	creds      credentials.Source
	config     Config
	HTTPClient *http.Client
}

// New returns a new OpenAI provider
func New(creds credentials.Source, config Config) *OpenAI {
	config.BaseURL = strings.TrimSuffix(config.BaseURL, "/")
	return &OpenAI{
		creds:  creds,
		config: config,
		HTTPClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

// SuggestCaptions asks the chat model for a JSON object holding count captions
func (o *OpenAI) SuggestCaptions(ctx context.Context, count int, topic string) ([]string, error) {
	apiKey, err := o.creds.APIKey(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", providers.ErrSuggestionFailed, err)
	}

	requestBody, err := json.Marshal(map[string]any{
		"model": o.config.TextModel,
		"messages": []map[string]string{
			{
				"role":    "system",
				"content": providers.CaptionSystemInstruction + ` Respond as {"captions": [...]}.`,
			},
			{
				"role":    "user",
				"content": providers.BuildCaptionPrompt(count, topic),
			},
		},
		"temperature":     0.9,
		"response_format": map[string]string{"type": "json_object"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	var response struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := o.post(ctx, apiKey, "/chat/completions", "application/json", bytes.NewReader(requestBody), &response); err != nil {
		return nil, err
	}

	if len(response.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices returned from OpenAI", providers.ErrSuggestionFailed)
	}

	content := providers.StripFences(response.Choices[0].Message.Content)
	var wrapped struct {
		Captions []string `json:"captions"`
	}
	if err := json.Unmarshal([]byte(content), &wrapped); err == nil && len(wrapped.Captions) > 0 {
		raw, _ := json.Marshal(wrapped.Captions)
		content = string(raw)
	}

	captions, err := providers.ParseCaptions(content, count)
	if err != nil {
		return nil, err
	}
	slog.Info("Suggested captions", "provider", "openai", "model", o.config.TextModel, "count", len(captions))
	return captions, nil
}

// GenerateImage renders one sticker. Reference images go through the
// edits endpoint; without references the generations endpoint is used.
func (o *OpenAI) GenerateImage(ctx context.Context, req providers.ImageRequest) (string, error) {
	apiKey, err := o.creds.APIKey(ctx)
	if err != nil {
		return "", err
	}

	prompt := providers.BuildStampPrompt(req, providers.ImageSpec{ImageSize: o.config.Size})

	var response struct {
		Data []struct {
			B64JSON string `json:"b64_json"`
		} `json:"data"`
	}

	if len(req.References) == 0 {
		requestBody, err := json.Marshal(map[string]any{
			"model":  o.config.ImageModel,
			"prompt": prompt,
			"n":      1,
			"size":   o.config.Size,
		})
		if err != nil {
			return "", fmt.Errorf("failed to marshal request body: %w", err)
		}
		err = o.post(ctx, apiKey, "/images/generations", "application/json", bytes.NewReader(requestBody), &response)
		if err != nil {
			return "", err
		}
	} else {
		body, contentType, err := o.editsBody(prompt, req.References)
		if err != nil {
			return "", err
		}
		if err := o.post(ctx, apiKey, "/images/edits", contentType, body, &response); err != nil {
			return "", err
		}
	}

	if len(response.Data) == 0 || response.Data[0].B64JSON == "" {
		return "", fmt.Errorf("%w: no image data found in OpenAI response", providers.ErrNoImageReturned)
	}

	data, err := base64.StdEncoding.DecodeString(response.Data[0].B64JSON)
	if err != nil {
		return "", fmt.Errorf("%w: failed to decode image payload: %w", providers.ErrNoImageReturned, err)
	}

	slog.Info("Generated stamp image", "provider", "openai", "model", o.config.ImageModel, "caption", req.Caption)
	return imagecodec.DataURI("image/png", data), nil
}

func (o *OpenAI) editsBody(prompt string, refs []models.ReferenceImage) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := map[string]string{
		"model":  o.config.ImageModel,
		"prompt": prompt,
		"n":      "1",
		"size":   o.config.Size,
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", fmt.Errorf("failed to write form field %s: %w", k, err)
		}
	}

	for i, ref := range refs {
		data, err := base64.StdEncoding.DecodeString(ref.Data)
		if err != nil {
			return nil, "", &imagecodec.FileReadError{Name: ref.Name, Err: err}
		}
		name := ref.Name
		if name == "" {
			name = fmt.Sprintf("reference-%d", i+1)
		}

		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image[]"; filename=%q`, name))
		h.Set("Content-Type", ref.MIMEType)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create image part: %w", err)
		}
		if _, err := part.Write(data); err != nil {
			return nil, "", fmt.Errorf("failed to write image part: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finish multipart body: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

func (o *OpenAI) post(ctx context.Context, apiKey, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, "POST", o.config.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create new request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := o.HTTPClient.Do(req)
	if err != nil {
		return providers.Classify(fmt.Errorf("failed to send request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return providers.ClassifyStatus(resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return providers.Classify(fmt.Errorf("failed to decode response body: %w", err))
	}
	return nil
}
