package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lehigh-university-libraries/stampmaker/internal/credentials"
	"github.com/lehigh-university-libraries/stampmaker/internal/imagecodec"
	"github.com/lehigh-university-libraries/stampmaker/internal/models"
	"github.com/lehigh-university-libraries/stampmaker/internal/providers"
)

// ErrEmptyBatch means no request had a non-blank caption
var ErrEmptyBatch = errors.New("no stamp captions entered")

// FailurePolicy decides what a run does after a failed item
type FailurePolicy int

const (
	// Halt stops the run at the first failed item
	Halt FailurePolicy = iota
	// Continue records the failure and moves on. A rejected key still halts.
	Continue
)

// ParsePolicy maps "halt" / "continue" to a FailurePolicy
func ParsePolicy(s string) (FailurePolicy, error) {
	switch s {
	case "", "halt":
		return Halt, nil
	case "continue":
		return Continue, nil
	default:
		return Halt, fmt.Errorf("unknown failure policy: %s", s)
	}
}

func (p FailurePolicy) String() string {
	if p == Continue {
		return "continue"
	}
	return "halt"
}

// Job is one batch run request
type Job struct {
	Requests     []models.StampRequest
	References   []imagecodec.File
	Style        models.Style
	SharedPrompt string
}

// Invalidator is told when the remote side rejects the credential
type Invalidator interface {
	Invalidate()
}

// Orchestrator drives one remote generation call at a time
type Orchestrator struct {
	gen    providers.Generator
	keys   Invalidator
	policy FailurePolicy

	now   func() time.Time
	newID func() string
}

// New returns an orchestrator. keys may be nil.
func New(gen providers.Generator, keys Invalidator, policy FailurePolicy) *Orchestrator {
	return &Orchestrator{
		gen:    gen,
		keys:   keys,
		policy: policy,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Active returns the requests with non-blank captions, in order
func Active(requests []models.StampRequest) []models.StampRequest {
	active := make([]models.StampRequest, 0, len(requests))
	for _, r := range requests {
		if r.Active() {
			active = append(active, r)
		}
	}
	return active
}

// Run generates a stamp per active request, strictly in order. Validation
// and reference-file errors return a nil Outcome before any remote call.
// Otherwise the Outcome is always returned, holding the stamps produced so
// far, and the error is Outcome.Err().
func (o *Orchestrator) Run(ctx context.Context, job Job, obs Observer) (*Outcome, error) {
	if obs == nil {
		obs = Hooks{}
	}

	active := Active(job.Requests)
	if len(active) == 0 {
		return nil, ErrEmptyBatch
	}

	out := &Outcome{
		Status:   Completed,
		Progress: models.Progress{Completed: 0, Total: len(active)},
		Stamps:   []models.GeneratedStamp{},
	}
	obs.OnProgress(out.Progress)

	refs, err := imagecodec.EncodeAll(job.References)
	if err != nil {
		slog.Error("Failed to read reference images", "err", err)
		return nil, err
	}

	slog.Info("Starting batch run",
		"total", len(active),
		"style", job.Style.Key,
		"references", len(refs),
		"policy", o.policy.String())

	for i, item := range active {
		if err := ctx.Err(); err != nil {
			out.cancel(err)
			break
		}

		slog.Info("Generating stamp", "index", i, "caption", item.Text, "progress", fmt.Sprintf("%d/%d", out.Progress.Completed, out.Progress.Total))

		url, err := o.gen.GenerateImage(ctx, providers.ImageRequest{
			References:  refs,
			Style:       job.Style,
			Caption:     item.Text,
			ExtraPrompt: providers.JoinPrompt(job.SharedPrompt, item.AdditionalPrompt),
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				out.cancel(ctxErr)
				break
			}

			itemErr := &ItemError{Index: i, Caption: item.Text, Err: classify(err)}
			out.Failures = append(out.Failures, itemErr)
			out.Status = PartialFailure
			slog.Error("Stamp generation failed", "index", i, "caption", item.Text, "err", err)

			rejected := errors.Is(itemErr.Err, providers.ErrKeyInvalid)
			if rejected && o.keys != nil {
				o.keys.Invalidate()
			}
			obs.OnItemError(itemErr)

			if rejected || o.policy == Halt {
				break
			}
			continue
		}

		stamp := models.GeneratedStamp{
			ID:        o.newID(),
			ImageURL:  url,
			Caption:   item.Text,
			CreatedAt: o.now(),
		}
		out.Stamps = append([]models.GeneratedStamp{stamp}, out.Stamps...)
		out.Progress.Completed++

		obs.OnStamp(stamp)
		obs.OnProgress(out.Progress)
	}

	slog.Info("Batch run finished",
		"status", out.Status,
		"completed", out.Progress.Completed,
		"total", out.Progress.Total,
		"failures", len(out.Failures))

	return out, out.Err()
}

// classify treats a missing key like a refused one so the caller
// re-prompts in either case.
func classify(err error) error {
	if errors.Is(err, credentials.ErrNoCredential) && !errors.Is(err, providers.ErrKeyInvalid) {
		return fmt.Errorf("%w: %w", providers.ErrKeyInvalid, err)
	}
	return providers.Classify(err)
}
