package credentials

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrNoCredential means no source could supply an API key
var ErrNoCredential = errors.New("no API key configured")

// Kind identifies where a key came from
type Kind string

const (
	EnvironmentSupplied Kind = "environment"
	HostManaged         Kind = "host"
)

// Source supplies the API key used for one remote call
type Source interface {
	Kind() Kind
	APIKey(ctx context.Context) (string, error)
}

// Host is a key-selection capability outside the process environment
type Host interface {
	HasSelectedKey(ctx context.Context) (bool, error)
	// OpenKeySelection starts the selection flow. Returning nil does not
	// confirm that a key was actually selected.
	OpenKeySelection(ctx context.Context) error
	SelectedKey(ctx context.Context) (string, error)
}

// Environment reads the key from the first non-empty variable in Names
type Environment struct {
	Names  []string
	Lookup func(string) string
}

// NewEnvironment returns an environment source over os.Getenv
func NewEnvironment(names ...string) *Environment {
	return &Environment{Names: names, Lookup: os.Getenv}
}

func (e *Environment) Kind() Kind { return EnvironmentSupplied }

// Present reports whether a usable key is set
func (e *Environment) Present() bool {
	_, ok := e.lookup()
	return ok
}

func (e *Environment) APIKey(ctx context.Context) (string, error) {
	if key, ok := e.lookup(); ok {
		return key, nil
	}
	return "", fmt.Errorf("%w: set %s", ErrNoCredential, strings.Join(e.Names, " or "))
}

func (e *Environment) lookup() (string, bool) {
	lookup := e.Lookup
	if lookup == nil {
		lookup = os.Getenv
	}
	for _, name := range e.Names {
		if key := strings.TrimSpace(lookup(name)); usable(key) {
			return key, true
		}
	}
	return "", false
}

// usable rejects empty values and the "undefined" placeholder some
// deployment tools inject for unset secrets.
func usable(key string) bool {
	return key != "" && key != "undefined"
}

// Managed reads the key a Host has stored
type Managed struct {
	Host Host
}

func (m *Managed) Kind() Kind { return HostManaged }

func (m *Managed) APIKey(ctx context.Context) (string, error) {
	key, err := m.Host.SelectedKey(ctx)
	if err != nil {
		return "", err
	}
	if !usable(strings.TrimSpace(key)) {
		return "", fmt.Errorf("%w: no key selected", ErrNoCredential)
	}
	return strings.TrimSpace(key), nil
}

type resolver struct {
	env  *Environment
	host Host
}

// Resolve returns a Source preferring the environment key and falling back
// to the host selection. host may be nil.
func Resolve(env *Environment, host Host) Source {
	return &resolver{env: env, host: host}
}

func (r *resolver) Kind() Kind {
	if r.env != nil && r.env.Present() {
		return EnvironmentSupplied
	}
	if r.host != nil {
		return HostManaged
	}
	return EnvironmentSupplied
}

func (r *resolver) APIKey(ctx context.Context) (string, error) {
	if r.env != nil && r.env.Present() {
		return r.env.APIKey(ctx)
	}
	if r.host != nil {
		return (&Managed{Host: r.host}).APIKey(ctx)
	}
	if r.env != nil {
		return r.env.APIKey(ctx)
	}
	return "", ErrNoCredential
}
