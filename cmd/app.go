package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lehigh-university-libraries/stampmaker/internal/config"
	"github.com/lehigh-university-libraries/stampmaker/internal/credentials"
	"github.com/lehigh-university-libraries/stampmaker/internal/gemini"
	"github.com/lehigh-university-libraries/stampmaker/internal/openai"
	"github.com/lehigh-university-libraries/stampmaker/internal/providers"
	"github.com/lehigh-university-libraries/stampmaker/internal/readiness"
	"github.com/lehigh-university-libraries/stampmaker/internal/studio"
)

// app is the wiring shared by every command
type app struct {
	cfg    *config.Config
	env    *credentials.Environment
	host   *credentials.FileHost
	probe  *readiness.Probe
	gen    providers.Generator
	studio *studio.Studio
}

// newApp loads configuration and wires credentials, readiness, the
// provider and the studio. mutate, if set, adjusts the loaded config.
func newApp(ctx context.Context, configPath string, mutate func(*config.Config)) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if mutate != nil {
		mutate(cfg)
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	a := &app{cfg: cfg, env: credentials.NewEnvironment(cfg.KeyEnvNames()...)}

	var host credentials.Host
	if cfg.KeySelectionEnabled() {
		a.host = credentials.NewFileHost(cfg.KeyFile)
		host = a.host
	}

	a.probe = readiness.New(a.env, host, cfg.Policies.Hostless != config.HostlessStrict)
	a.probe.Check(ctx)

	creds := credentials.Resolve(a.env, host)
	switch cfg.Provider {
	case config.ProviderOpenAI:
		a.gen = openai.New(creds, openai.Config{
			BaseURL:    cfg.OpenAI.BaseURL,
			ImageModel: cfg.OpenAI.ImageModel,
			TextModel:  cfg.OpenAI.TextModel,
			Size:       cfg.OpenAI.Size,
		})
	case config.ProviderGemini:
		a.gen = gemini.New(creds, gemini.Config{
			ImageModel:  cfg.Gemini.ImageModel,
			TextModel:   cfg.Gemini.TextModel,
			AspectRatio: cfg.Gemini.AspectRatio,
			ImageSize:   cfg.Gemini.ImageSize,
		})
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}

	a.studio, err = studio.New(cfg, a.gen, a.probe)
	if err != nil {
		return nil, err
	}

	slog.Debug("Configuration loaded",
		"provider", cfg.Provider,
		"image_model", cfg.ImageModel(),
		"text_model", cfg.TextModel(),
		"key_state", a.probe.State(),
		"key_source", creds.Kind())
	return a, nil
}

// ensureKey offers key selection when the probe is not ready and a host
// can select one
func (a *app) ensureKey(ctx context.Context) error {
	if a.probe.Ready() || !a.probe.HasHost() {
		return nil
	}
	return a.probe.RequestSelection(ctx)
}
