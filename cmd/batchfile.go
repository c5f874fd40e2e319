package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/lehigh-university-libraries/stampmaker/internal/models"
	"gopkg.in/yaml.v3"
)

// batchFile is the YAML form of one generate run
//
//	style: chibi
//	prompt: glasses, blue shirt
//	references: [me.png]
//	stamps:
//	  - text: ありがとう
//	    prompt: bowing
type batchFile struct {
	Style      string                `yaml:"style,omitempty"`
	Prompt     string                `yaml:"prompt,omitempty"`
	References []string              `yaml:"references,omitempty"`
	Stamps     []models.StampRequest `yaml:"stamps"`
}

// loadBatchFile reads path. Reference paths resolve against its directory.
func loadBatchFile(path string) (*batchFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}

	var b batchFile
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to parse batch file %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	for i, ref := range b.References {
		if !filepath.IsAbs(ref) {
			b.References[i] = filepath.Join(dir, ref)
		}
	}
	return &b, nil
}
