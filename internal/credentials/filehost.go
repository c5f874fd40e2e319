package credentials

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"
)

// ErrNotInteractive is returned when key selection needs a terminal
var ErrNotInteractive = errors.New("key selection requires an interactive terminal")

// FileHost keeps the selected key in a private file and selects a new one
// by prompting on a terminal.
type FileHost struct {
	Path string
	In   io.Reader
	Out  io.Writer
}

// NewFileHost prompts on stdin/stderr
func NewFileHost(path string) *FileHost {
	return &FileHost{Path: path, In: os.Stdin, Out: os.Stderr}
}

func (h *FileHost) HasSelectedKey(ctx context.Context) (bool, error) {
	key, err := h.SelectedKey(ctx)
	if err != nil {
		return false, err
	}
	return usable(key), nil
}

func (h *FileHost) SelectedKey(ctx context.Context) (string, error) {
	data, err := os.ReadFile(h.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read key file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// OpenKeySelection prompts for a key and stores it. An empty answer
// leaves the current selection untouched.
func (h *FileHost) OpenKeySelection(ctx context.Context) error {
	if f, ok := h.In.(*os.File); ok && !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd()) {
		return ErrNotInteractive
	}

	fmt.Fprintln(h.Out, "An API key with billing enabled is required to generate stamps.")
	fmt.Fprintln(h.Out, "See https://ai.google.dev/gemini-api/docs/billing for details.")
	fmt.Fprint(h.Out, "API key: ")

	// On cancel the reader stays blocked until h.In yields a line or EOF.
	// The buffered channels let it exit without a receiver.
	lines := make(chan string, 1)
	errs := make(chan error, 1)
	go func() {
		line, err := bufio.NewReader(h.In).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			errs <- err
			return
		}
		lines <- line
	}()

	var key string
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errs:
		return fmt.Errorf("failed to read key: %w", err)
	case line := <-lines:
		key = strings.TrimSpace(line)
	}

	if key == "" {
		slog.Info("Key selection dismissed")
		return nil
	}
	return h.Store(key)
}

// Store writes key to the key file with owner-only permissions
func (h *FileHost) Store(key string) error {
	if err := os.MkdirAll(filepath.Dir(h.Path), 0700); err != nil {
		return fmt.Errorf("failed to create key directory: %w", err)
	}
	if err := os.WriteFile(h.Path, []byte(strings.TrimSpace(key)+"\n"), 0600); err != nil {
		return fmt.Errorf("failed to write key file: %w", err)
	}
	slog.Info("API key selected", "path", h.Path)
	return nil
}
