package studio

import (
	"context"
	"log/slog"
	"strings"

	"github.com/lehigh-university-libraries/stampmaker/internal/batch"
	"github.com/lehigh-university-libraries/stampmaker/internal/config"
	"github.com/lehigh-university-libraries/stampmaker/internal/gate"
	"github.com/lehigh-university-libraries/stampmaker/internal/models"
	"github.com/lehigh-university-libraries/stampmaker/internal/providers"
	"github.com/lehigh-university-libraries/stampmaker/internal/readiness"
)

// Studio runs session actions behind the access gate and key readiness
type Studio struct {
	cfg          *config.Config
	gate         *gate.Gate
	probe        *readiness.Probe
	gen          providers.Generator
	orchestrator *batch.Orchestrator
}

// New wires a studio from configuration
func New(cfg *config.Config, gen providers.Generator, probe *readiness.Probe) (*Studio, error) {
	policy, err := batch.ParsePolicy(cfg.Policies.Failure)
	if err != nil {
		return nil, err
	}
	return &Studio{
		cfg:          cfg,
		gate:         gate.New(cfg.Password),
		probe:        probe,
		gen:          gen,
		orchestrator: batch.New(gen, probe, policy),
	}, nil
}

// NewSession returns a session on the default tab
func (s *Studio) NewSession(id string) *Session {
	return newSession(id, s.cfg)
}

// Probe exposes the key readiness probe
func (s *Studio) Probe() *readiness.Probe {
	return s.probe
}

// Unlocked reports whether the session's password input opens the gate
func (s *Studio) Unlocked(sess *Session) bool {
	return s.gate.Open(sess.passwordInput())
}

// View snapshots sess with its gate state
func (s *Studio) View(sess *Session) View {
	return sess.View(s.Unlocked(sess))
}

// Generate runs a batch over the session form. The gate is checked first,
// then key readiness. Stamps land in the session gallery as they complete;
// obs, if not nil, sees the same events.
func (s *Studio) Generate(ctx context.Context, sess *Session, obs batch.Observer) (*batch.Outcome, error) {
	if err := s.gate.Check(sess.passwordInput()); err != nil {
		sess.fail(err)
		return nil, err
	}
	if err := s.probe.Require(); err != nil {
		sess.fail(err)
		return nil, err
	}
	if err := sess.begin(); err != nil {
		return nil, err
	}

	sess.OnProgress(models.Progress{})

	var observer batch.Observer = sess
	if obs != nil {
		observer = batch.Multi(sess, obs)
	}

	out, err := s.orchestrator.Run(ctx, batch.Job{
		Requests:     sess.Items(),
		References:   sess.References(),
		Style:        sess.Style(),
		SharedPrompt: sess.SharedPrompt(),
	}, observer)
	sess.finish(err)
	return out, err
}

// Suggest replaces the session items with suggested captions, one per
// slot of the current tab. The shared prompt is the topic.
func (s *Studio) Suggest(ctx context.Context, sess *Session) ([]string, error) {
	if err := s.gate.Check(sess.passwordInput()); err != nil {
		sess.fail(err)
		return nil, err
	}
	if err := sess.begin(); err != nil {
		return nil, err
	}

	topic := strings.TrimSpace(sess.SharedPrompt())
	if topic == "" {
		topic = s.cfg.DefaultContext
	}

	fallback := s.cfg.Policies.Suggestion != config.SuggestStrict
	captions, err := providers.Suggest(ctx, s.gen, sess.BatchSize(), topic, fallback)
	if err == nil {
		sess.ApplySuggestions(captions)
		slog.Info("Applied caption suggestions", "session_id", sess.ID, "count", len(captions))
	}
	sess.finish(err)
	return captions, err
}
