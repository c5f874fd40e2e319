package readiness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/lehigh-university-libraries/stampmaker/internal/credentials"
)

// ErrKeyNotReady means generation was requested without a usable credential
var ErrKeyNotReady = errors.New("API key is not ready")

// ErrNoHost means key selection was requested but no host capability exists
var ErrNoHost = errors.New("no key selection capability available")

// State of the probe
type State string

const (
	Checking       State = "checking"
	Ready          State = "ready"
	NeedsSelection State = "needs_selection"
)

// Probe decides whether a usable key is available. With neither an
// environment key nor a host, the state follows Optimistic: Ready when
// true (the first remote call then fails with the real error), otherwise
// NeedsSelection.
type Probe struct {
	env        *credentials.Environment
	host       credentials.Host
	optimistic bool

	mu    sync.RWMutex
	state State
}

// New creates a probe in the Checking state. host may be nil.
func New(env *credentials.Environment, host credentials.Host, optimistic bool) *Probe {
	return &Probe{
		env:        env,
		host:       host,
		optimistic: optimistic,
		state:      Checking,
	}
}

// Check evaluates the transition policy and returns the resulting state
func (p *Probe) Check(ctx context.Context) State {
	p.set(Checking)

	state := p.evaluate(ctx)
	p.set(state)
	slog.Debug("Key readiness checked", "state", state)
	return state
}

func (p *Probe) evaluate(ctx context.Context) State {
	if p.env != nil && p.env.Present() {
		return Ready
	}

	if p.host != nil {
		ok, err := p.host.HasSelectedKey(ctx)
		if err != nil {
			slog.Error("Error checking API key status", "err", err)
			return NeedsSelection
		}
		if ok {
			return Ready
		}
		return NeedsSelection
	}

	if p.optimistic {
		return Ready
	}
	return NeedsSelection
}

// RequestSelection opens the host selection flow and moves to Ready
// without re-verifying: the host does not confirm the selection, so the
// next remote call is the real check.
func (p *Probe) RequestSelection(ctx context.Context) error {
	if p.host == nil {
		return ErrNoHost
	}
	if err := p.host.OpenKeySelection(ctx); err != nil {
		slog.Error("Key selection failed", "err", err)
		return fmt.Errorf("key selection failed: %w", err)
	}
	p.set(Ready)
	return nil
}

// Invalidate downgrades to NeedsSelection after the remote side rejected the key
func (p *Probe) Invalidate() {
	p.set(NeedsSelection)
	slog.Warn("API key rejected, key selection required")
}

// State returns the current state
func (p *Probe) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// Ready reports whether generation may start
func (p *Probe) Ready() bool {
	return p.State() == Ready
}

// HasHost reports whether a selection action can be offered
func (p *Probe) HasHost() bool {
	return p.host != nil
}

// Require returns ErrKeyNotReady unless the probe is Ready
func (p *Probe) Require() error {
	if !p.Ready() {
		return ErrKeyNotReady
	}
	return nil
}

func (p *Probe) set(s State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = s
}
