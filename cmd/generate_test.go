package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/joho/godotenv"
	"github.com/lehigh-university-libraries/stampmaker/internal/config"
	"github.com/lehigh-university-libraries/stampmaker/internal/providers"
	"github.com/lehigh-university-libraries/stampmaker/internal/readiness"
	"github.com/lehigh-university-libraries/stampmaker/internal/studio"
)

type nopGenerator struct{}

func (nopGenerator) SuggestCaptions(ctx context.Context, count int, topic string) ([]string, error) {
	return nil, nil
}

func (nopGenerator) GenerateImage(ctx context.Context, req providers.ImageRequest) (string, error) {
	return "", nil
}

func TestFillSessionFromBatchFile(t *testing.T) {
	dir := t.TempDir()
	batch := `style: pixel
prompt: 眼鏡、青い服
references: [me.png]
stamps:
  - text: ありがとう
    prompt: お辞儀
  - text: OK
`
	path := filepath.Join(dir, "batch.yaml")
	if err := os.WriteFile(path, []byte(batch), 0644); err != nil {
		t.Fatal(err)
	}

	st, err := studio.New(config.Default(), nopGenerator{}, readiness.New(nil, nil, true))
	if err != nil {
		t.Fatal(err)
	}
	sess := st.NewSession("cli")

	opts := &generateOptions{batchPath: path, captions: []string{"extra"}, password: "linklelab"}
	if err := fillSession(sess, opts); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	items := sess.Items()
	if len(items) != 3 || items[0].AdditionalPrompt != "お辞儀" || items[2].Text != "extra" {
		t.Errorf("Unexpected items: %+v", items)
	}
	if sess.Style().Key != "pixel" || sess.SharedPrompt() != "眼鏡、青い服" {
		t.Errorf("Unexpected style/prompt: %s / %s", sess.Style().Key, sess.SharedPrompt())
	}
	refs := sess.References()
	if len(refs) != 1 || refs[0].Name() != "me.png" {
		t.Errorf("Unexpected references: %v", refs)
	}
	if !st.Unlocked(sess) {
		t.Error("Expected password to unlock the session")
	}
}

func TestFillSessionFlagsOverrideFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "batch.yaml")
	if err := os.WriteFile(path, []byte("style: pixel\nstamps: [{text: a}]\n"), 0644); err != nil {
		t.Fatal(err)
	}

	st, err := studio.New(config.Default(), nopGenerator{}, readiness.New(nil, nil, true))
	if err != nil {
		t.Fatal(err)
	}
	sess := st.NewSession("cli")
	if err := fillSession(sess, &generateOptions{batchPath: path, style: "sketch", size: 16}); err != nil {
		t.Fatal(err)
	}
	if sess.Style().Key != "sketch" {
		t.Errorf("Expected flag style, got %s", sess.Style().Key)
	}
	if sess.BatchSize() != 16 {
		t.Errorf("Expected batch size 16, got %d", sess.BatchSize())
	}

	if err := fillSession(st.NewSession("cli"), &generateOptions{size: 9}); err == nil {
		t.Error("Expected unsupported batch size error")
	}
}

func TestFillSessionPasswordFromDotEnv(t *testing.T) {
	t.Setenv(passwordEnv, "")
	os.Unsetenv(passwordEnv)

	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte(passwordEnv+"=linklelab\n"), 0644); err != nil {
		t.Fatal(err)
	}

	// the command is built before PersistentPreRun loads .env
	cmd := newGenerateCmd(new(string))
	if err := godotenv.Load(envPath); err != nil {
		t.Fatal(err)
	}
	if err := cmd.ParseFlags(nil); err != nil {
		t.Fatal(err)
	}
	password, err := cmd.Flags().GetString("password")
	if err != nil {
		t.Fatal(err)
	}

	st, err := studio.New(config.Default(), nopGenerator{}, readiness.New(nil, nil, true))
	if err != nil {
		t.Fatal(err)
	}
	sess := st.NewSession("cli")
	if err := fillSession(sess, &generateOptions{password: password}); err != nil {
		t.Fatal(err)
	}
	if !st.Unlocked(sess) {
		t.Error("Expected password from .env to unlock the session")
	}

	if got := accessPassword("explicit"); got != "explicit" {
		t.Errorf("Expected flag to win over env, got %q", got)
	}
}
