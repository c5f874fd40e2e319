package imagecodec

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.White)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestEncode(t *testing.T) {
	data := pngBytes(t)

	img, err := Encode(BytesFile("face.png", data))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if img.MIMEType != "image/png" {
		t.Errorf("Expected image/png, got %s", img.MIMEType)
	}
	if img.Data != base64.StdEncoding.EncodeToString(data) {
		t.Error("Payload does not match input bytes")
	}
	if img.Name != "face.png" {
		t.Errorf("Expected name face.png, got %s", img.Name)
	}
}

func TestEncodeFailures(t *testing.T) {
	truncated := pngBytes(t)[:20]

	tests := []struct {
		name string
		file File
	}{
		{name: "empty", file: BytesFile("empty.png", nil)},
		{name: "not an image", file: BytesFile("notes.txt", []byte("hello world"))},
		{name: "corrupt png", file: BytesFile("broken.png", truncated)},
		{name: "missing path", file: PathFile(filepath.Join(os.TempDir(), "does-not-exist.png"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Encode(tt.file)
			var fre *FileReadError
			if !errors.As(err, &fre) {
				t.Fatalf("Expected FileReadError, got %v", err)
			}
			if fre.Name != tt.file.Name() {
				t.Errorf("Expected name %s, got %s", tt.file.Name(), fre.Name)
			}
		})
	}
}

func TestEncodeAllStopsAtFirstFailure(t *testing.T) {
	good := BytesFile("a.png", pngBytes(t))
	bad := BytesFile("b.png", []byte("garbage"))

	imgs, err := EncodeAll([]File{good, bad, good})
	if err == nil {
		t.Fatal("Expected error")
	}
	if imgs != nil {
		t.Errorf("Expected no images on failure, got %d", len(imgs))
	}

	imgs, err = EncodeAll([]File{good, good})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(imgs) != 2 {
		t.Errorf("Expected 2 images, got %d", len(imgs))
	}
}

func TestPathFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ref.png")
	if err := os.WriteFile(path, pngBytes(t), 0644); err != nil {
		t.Fatal(err)
	}

	img, err := Encode(PathFile(path))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if img.Name != "ref.png" {
		t.Errorf("Expected ref.png, got %s", img.Name)
	}
}

func TestDataURIRoundTrip(t *testing.T) {
	data := pngBytes(t)
	uri := DataURI("image/png", data)

	mimeType, decoded, err := DecodeDataURI(uri)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if mimeType != "image/png" {
		t.Errorf("Expected image/png, got %s", mimeType)
	}
	if !bytes.Equal(decoded, data) {
		t.Error("Decoded bytes differ")
	}

	for _, bad := range []string{"http://example.com/a.png", "data:image/png;base64", "data:image/png,abc"} {
		if _, _, err := DecodeDataURI(bad); err == nil {
			t.Errorf("Expected error for %q", bad)
		}
	}
}
