package models

import (
	"fmt"
	"strings"
)

// Style is an art-style preset for a sticker set
type Style struct {
	Key        string `json:"key"`
	Label      string `json:"label"`
	Descriptor string `json:"descriptor"`
}

// DefaultStyleKey is selected when a session starts
const DefaultStyleKey = "chibi"

var styles = []Style{
	{
		Key:        "anime",
		Label:      "アニメ風",
		Descriptor: "Modern Japanese Anime style, cel-shaded, vibrant colors, clean lines, high quality illustration, anime character",
	},
	{
		Key:        "chibi",
		Label:      "ミニキャラ",
		Descriptor: "Super Deformed (SD) Chibi style, big head small body, kawaii, cute, thick outlines, sticker art, mascot",
	},
	{
		Key:        "sketch",
		Label:      "手書き風",
		Descriptor: "Hand-drawn colored sketch style, pencil texture, warm atmosphere, artistic, loose lines, rough touch",
	},
	{
		Key:        "american-cartoon",
		Label:      "ポップアート",
		Descriptor: "Western Cartoon style, bold thick black outlines, flat pop colors, exaggerated expressions, comic book style",
	},
	{
		Key:        "3d",
		Label:      "3Dフィギュア",
		Descriptor: "3D Render style, clay material, plasticky, soft lighting, toy-like, isometric view, 3d character",
	},
	{
		Key:        "pixel",
		Label:      "ドット絵",
		Descriptor: "Pixel Art style, 16-bit retro game aesthetic, dot art, limited color palette, retro game",
	},
	{
		Key:        "retro-pop",
		Label:      "レトロモダン",
		Descriptor: "Retro Pop Art, 80s city pop vibe, pastel neon colors, stylish, lo-fi aesthetic, fashionable",
	},
}

// Styles returns the presets in display order
func Styles() []Style {
	out := make([]Style, len(styles))
	copy(out, styles)
	return out
}

// LookupStyle finds a preset by key, case-insensitively
func LookupStyle(key string) (Style, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	for _, s := range styles {
		if s.Key == key {
			return s, nil
		}
	}
	return Style{}, fmt.Errorf("unknown style %q", key)
}

// DefaultStyle returns the chibi preset
func DefaultStyle() Style {
	s, _ := LookupStyle(DefaultStyleKey)
	return s
}
