package export

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
	"unicode"

	"github.com/lehigh-university-libraries/stampmaker/internal/imagecodec"
	"github.com/lehigh-university-libraries/stampmaker/internal/models"
	"gopkg.in/yaml.v3"
)

// ManifestName is written next to the exported images
const ManifestName = "manifest.yaml"

const maxCaptionRunes = 32

// Manifest describes one export directory
type Manifest struct {
	GeneratedAt time.Time `yaml:"generated_at"`
	Style       string    `yaml:"style,omitempty"`
	Stamps      []Entry   `yaml:"stamps"`
}

// Entry is one exported stamp
type Entry struct {
	File      string    `yaml:"file"`
	ID        string    `yaml:"id"`
	Caption   string    `yaml:"caption"`
	CreatedAt time.Time `yaml:"created_at"`
}

// FileName names the n-th stamp (zero based) after its caption
func FileName(n int, caption, mimeType string) string {
	return fmt.Sprintf("stamp-%02d-%s%s", n+1, slug(caption), extension(mimeType))
}

// Image decodes a stamp's data URI
func Image(stamp models.GeneratedStamp) (mimeType string, data []byte, err error) {
	mimeType, data, err = imagecodec.DecodeDataURI(stamp.ImageURL)
	if err != nil {
		return "", nil, fmt.Errorf("failed to decode stamp %s: %w", stamp.ID, err)
	}
	return mimeType, data, nil
}

// WriteDir writes every stamp plus a manifest into dir. Stamps are given
// newest first, as the gallery holds them, and numbered oldest first.
func WriteDir(dir, style string, stamps []models.GeneratedStamp) (*Manifest, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	ordered := slices.Clone(stamps)
	slices.Reverse(ordered)

	manifest := &Manifest{
		GeneratedAt: time.Now(),
		Style:       style,
		Stamps:      make([]Entry, 0, len(ordered)),
	}

	for i, stamp := range ordered {
		mimeType, data, err := Image(stamp)
		if err != nil {
			return nil, err
		}
		name := FileName(i, stamp.Caption, mimeType)
		if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", name, err)
		}
		manifest.Stamps = append(manifest.Stamps, Entry{
			File:      name,
			ID:        stamp.ID,
			Caption:   stamp.Caption,
			CreatedAt: stamp.CreatedAt,
		})
	}

	out, err := yaml.Marshal(manifest)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestName), out, 0644); err != nil {
		return nil, fmt.Errorf("failed to write manifest: %w", err)
	}

	slog.Info("Exported stamps", "dir", dir, "count", len(manifest.Stamps))
	return manifest, nil
}

func slug(caption string) string {
	var b strings.Builder
	n := 0
	dash := false
	for _, r := range strings.TrimSpace(caption) {
		if n >= maxCaptionRunes {
			break
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
		} else if !dash {
			b.WriteRune('-')
			dash = true
		}
		n++
	}
	s := strings.Trim(b.String(), "-")
	if s == "" {
		return "stamp"
	}
	return s
}

func extension(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".png"
	}
}
