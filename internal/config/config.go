package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Policy values
const (
	SuggestFallback = "fallback"
	SuggestStrict   = "strict"

	FailureHalt     = "halt"
	FailureContinue = "continue"

	HostlessOptimistic = "optimistic"
	HostlessStrict     = "strict"

	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// DefaultPath is read when --config is not given and the file exists
const DefaultPath = "stampmaker.yaml"

// Config drives the gate, the form shell and the generation clients
type Config struct {
	Password           string   `yaml:"password"`
	BatchSizes         []int    `yaml:"batch_sizes"`
	DefaultCaption     string   `yaml:"default_caption"`
	DefaultContext     string   `yaml:"default_context"`
	MaxReferenceImages int      `yaml:"max_reference_images"`
	Port               string   `yaml:"port"`
	Provider           string   `yaml:"provider"`
	KeyEnv             []string `yaml:"key_env"`
	KeyFile            string   `yaml:"key_file"`
	Gemini             Gemini   `yaml:"gemini"`
	OpenAI             OpenAI   `yaml:"openai"`
	Policies           Policies `yaml:"policies"`
}

// Gemini holds model selection for the Gemini provider
type Gemini struct {
	ImageModel  string `yaml:"image_model"`
	TextModel   string `yaml:"text_model"`
	AspectRatio string `yaml:"aspect_ratio"`
	ImageSize   string `yaml:"image_size"`
}

// OpenAI holds model selection for the OpenAI provider
type OpenAI struct {
	BaseURL    string `yaml:"base_url"`
	ImageModel string `yaml:"image_model"`
	TextModel  string `yaml:"text_model"`
	Size       string `yaml:"size"`
}

// Policies holds the per-deployment behavior knobs
type Policies struct {
	Suggestion string `yaml:"suggestion"`
	Failure    string `yaml:"failure"`
	Hostless   string `yaml:"hostless"`
}

// Default returns the configuration used when no file is present
func Default() *Config {
	keyFile := ""
	if dir, err := os.UserConfigDir(); err == nil {
		keyFile = filepath.Join(dir, "stampmaker", "api_key")
	}
	return &Config{
		Password:           "linklelab",
		BatchSizes:         []int{8, 16},
		DefaultCaption:     "ありがとう",
		DefaultContext:     "日常で使いやすいスタンプセット",
		MaxReferenceImages: 3,
		Port:               "8888",
		Provider:           ProviderGemini,
		KeyEnv:             []string{"API_KEY", "GEMINI_API_KEY"},
		KeyFile:            keyFile,
		Gemini: Gemini{
			ImageModel:  "gemini-3-pro-image-preview",
			TextModel:   "gemini-3-flash-preview",
			AspectRatio: "1:1",
			ImageSize:   "1K",
		},
		OpenAI: OpenAI{
			BaseURL:    "https://api.openai.com/v1",
			ImageModel: "gpt-image-1",
			TextModel:  "gpt-4o",
			Size:       "1024x1024",
		},
		Policies: Policies{
			Suggestion: SuggestFallback,
			Failure:    FailureHalt,
			Hostless:   HostlessOptimistic,
		},
	}
}

// Load reads path over the defaults, then applies environment overrides.
// A missing file at DefaultPath is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	overrides := map[string]*string{
		"STAMPMAKER_PASSWORD": &c.Password,
		"STAMPMAKER_PROVIDER": &c.Provider,
		"STAMPMAKER_KEY_FILE": &c.KeyFile,
		"STAMPMAKER_PORT":     &c.Port,
		"OPENAI_BASE_URL":     &c.OpenAI.BaseURL,
	}
	for name, dst := range overrides {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}

	// model overrides follow the selected provider
	if v := os.Getenv("STAMPMAKER_IMAGE_MODEL"); v != "" {
		*c.imageModel() = v
	}
	if v := os.Getenv("STAMPMAKER_TEXT_MODEL"); v != "" {
		*c.textModel() = v
	}
}

func (c *Config) imageModel() *string {
	if c.Provider == ProviderOpenAI {
		return &c.OpenAI.ImageModel
	}
	return &c.Gemini.ImageModel
}

func (c *Config) textModel() *string {
	if c.Provider == ProviderOpenAI {
		return &c.OpenAI.TextModel
	}
	return &c.Gemini.TextModel
}

// Validate rejects configurations the shell cannot run with
func (c *Config) Validate() error {
	var errs []error

	if c.Password == "" {
		errs = append(errs, errors.New("password must not be empty"))
	}
	if len(c.BatchSizes) == 0 {
		errs = append(errs, errors.New("batch_sizes must list at least one size"))
	}
	for _, n := range c.BatchSizes {
		if n <= 0 {
			errs = append(errs, fmt.Errorf("batch size %d must be positive", n))
		}
	}
	if c.MaxReferenceImages <= 0 {
		errs = append(errs, fmt.Errorf("max_reference_images must be positive, got %d", c.MaxReferenceImages))
	}
	if !slices.Contains([]string{ProviderGemini, ProviderOpenAI}, c.Provider) {
		errs = append(errs, fmt.Errorf("unsupported provider: %s", c.Provider))
	}
	if !slices.Contains([]string{SuggestFallback, SuggestStrict}, c.Policies.Suggestion) {
		errs = append(errs, fmt.Errorf("unknown suggestion policy: %s", c.Policies.Suggestion))
	}
	if !slices.Contains([]string{FailureHalt, FailureContinue}, c.Policies.Failure) {
		errs = append(errs, fmt.Errorf("unknown failure policy: %s", c.Policies.Failure))
	}
	if !slices.Contains([]string{HostlessOptimistic, HostlessStrict}, c.Policies.Hostless) {
		errs = append(errs, fmt.Errorf("unknown hostless policy: %s", c.Policies.Hostless))
	}
	if len(c.KeyEnv) == 0 {
		errs = append(errs, errors.New("key_env must name at least one variable"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// DefaultBatchSize is the first configured size
func (c *Config) DefaultBatchSize() int {
	return c.BatchSizes[0]
}

// AllowsBatchSize reports whether n is one of the configured tabs.
func (c *Config) AllowsBatchSize(n int) bool {
	return slices.Contains(c.BatchSizes, n)
}

// ImageModel returns the image model of the selected provider
func (c *Config) ImageModel() string {
	return *c.imageModel()
}

// TextModel returns the caption model of the selected provider
func (c *Config) TextModel() string {
	return *c.textModel()
}

// KeySelectionEnabled reports whether host-managed key selection is configured.
// Setting key_file to "" or "none" disables it.
func (c *Config) KeySelectionEnabled() bool {
	f := strings.TrimSpace(c.KeyFile)
	return f != "" && f != "none"
}

// KeyEnvNames lists the environment variables searched for the API key.
// The OpenAI provider also reads OPENAI_API_KEY first.
func (c *Config) KeyEnvNames() []string {
	if c.Provider == ProviderOpenAI && !slices.Contains(c.KeyEnv, "OPENAI_API_KEY") {
		return append([]string{"OPENAI_API_KEY"}, c.KeyEnv...)
	}
	return slices.Clone(c.KeyEnv)
}
