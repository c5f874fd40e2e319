package models

import (
	"strings"
	"time"
)

// StampRequest is one caption configuration: the text rendered on the
// sticker plus an optional pose/expression modifier.
type StampRequest struct {
	Text             string `json:"text" yaml:"text"`
	AdditionalPrompt string `json:"additional_prompt,omitempty" yaml:"prompt,omitempty"`
}

// Active reports whether the request has a non-blank caption.
func (r StampRequest) Active() bool {
	return strings.TrimSpace(r.Text) != ""
}

// ReferenceImage is an encoded photo anchoring the character design
type ReferenceImage struct {
	Name     string `json:"name,omitempty"`
	Data     string `json:"-"` // base64 payload, no data URI prefix
	MIMEType string `json:"mime_type"`
}

// GeneratedStamp is the immutable result of one successful generation call
type GeneratedStamp struct {
	ID        string    `json:"id" yaml:"id"`
	ImageURL  string    `json:"image_url" yaml:"-"` // data URI
	Caption   string    `json:"caption" yaml:"caption"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// Progress counts completed items against the active total of a batch run
type Progress struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

// Done reports whether every item of the run has been resolved.
func (p Progress) Done() bool {
	return p.Total > 0 && p.Completed >= p.Total
}
