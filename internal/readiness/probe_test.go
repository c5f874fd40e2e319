package readiness

import (
	"context"
	"errors"
	"testing"

	"github.com/lehigh-university-libraries/stampmaker/internal/credentials"
)

type fakeHost struct {
	selected  bool
	checkErr  error
	openErr   error
	openCalls int
}

func (h *fakeHost) HasSelectedKey(ctx context.Context) (bool, error) {
	return h.selected, h.checkErr
}

func (h *fakeHost) OpenKeySelection(ctx context.Context) error {
	h.openCalls++
	return h.openErr
}

func (h *fakeHost) SelectedKey(ctx context.Context) (string, error) {
	if h.selected {
		return "host-key", nil
	}
	return "", nil
}

func env(value string) *credentials.Environment {
	return &credentials.Environment{
		Names:  []string{"API_KEY"},
		Lookup: func(string) string { return value },
	}
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name       string
		env        string
		host       *fakeHost
		optimistic bool
		expected   State
	}{
		{name: "environment key wins", env: "abc", host: &fakeHost{}, expected: Ready},
		{name: "placeholder is not a key", env: "undefined", host: &fakeHost{}, expected: NeedsSelection},
		{name: "host already selected", host: &fakeHost{selected: true}, expected: Ready},
		{name: "host without selection", host: &fakeHost{}, expected: NeedsSelection},
		{name: "host error", host: &fakeHost{checkErr: errors.New("boom")}, expected: NeedsSelection},
		{name: "hostless optimistic", optimistic: true, expected: Ready},
		{name: "hostless strict", optimistic: false, expected: NeedsSelection},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var host credentials.Host
			if tt.host != nil {
				host = tt.host
			}
			p := New(env(tt.env), host, tt.optimistic)
			if p.State() != Checking {
				t.Errorf("Expected initial state checking, got %s", p.State())
			}
			if got := p.Check(context.Background()); got != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, got)
			}
			if p.State() != tt.expected {
				t.Errorf("State not stored: %s", p.State())
			}
		})
	}
}

func TestRequestSelectionIsOptimistic(t *testing.T) {
	host := &fakeHost{}
	p := New(env(""), host, false)
	p.Check(context.Background())

	if err := p.Require(); !errors.Is(err, ErrKeyNotReady) {
		t.Fatalf("Expected ErrKeyNotReady, got %v", err)
	}

	if err := p.RequestSelection(context.Background()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if host.openCalls != 1 {
		t.Errorf("Expected one selection call, got %d", host.openCalls)
	}
	// host still reports no key, but the transition does not re-verify
	if !p.Ready() {
		t.Error("Expected Ready after selection")
	}
}

func TestRequestSelectionFailure(t *testing.T) {
	p := New(env(""), &fakeHost{openErr: errors.New("closed")}, false)
	p.Check(context.Background())

	if err := p.RequestSelection(context.Background()); err == nil {
		t.Error("Expected error")
	}
	if p.Ready() {
		t.Error("Failed selection must not mark Ready")
	}

	hostless := New(env(""), nil, true)
	if err := hostless.RequestSelection(context.Background()); !errors.Is(err, ErrNoHost) {
		t.Errorf("Expected ErrNoHost, got %v", err)
	}
}

func TestInvalidate(t *testing.T) {
	p := New(env("abc"), nil, true)
	p.Check(context.Background())
	p.Invalidate()
	if p.State() != NeedsSelection {
		t.Errorf("Expected needs_selection, got %s", p.State())
	}
	if p.Require() == nil {
		t.Error("Expected Require to fail after invalidation")
	}
}
