package imagecodec

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/lehigh-university-libraries/stampmaker/internal/models"
)

// MaxFileSize caps a single reference image
const MaxFileSize = 10 * 1024 * 1024

// FileReadError reports a reference image that could not be read or decoded
type FileReadError struct {
	Name string
	Err  error
}

func (e *FileReadError) Error() string {
	return fmt.Sprintf("failed to read reference image %s: %v", e.Name, e.Err)
}

func (e *FileReadError) Unwrap() error {
	return e.Err
}

// File is a user-selected reference image not yet encoded
type File interface {
	Name() string
	Open() (io.ReadCloser, error)
}

type pathFile string

// PathFile returns a File backed by the local filesystem
func PathFile(path string) File {
	return pathFile(path)
}

func (p pathFile) Name() string { return filepath.Base(string(p)) }

func (p pathFile) Open() (io.ReadCloser, error) { return os.Open(string(p)) }

type bytesFile struct {
	name string
	data []byte
}

// BytesFile returns a File over already-uploaded bytes
func BytesFile(name string, data []byte) File {
	return bytesFile{name: name, data: data}
}

func (b bytesFile) Name() string { return b.name }

func (b bytesFile) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(b.data)), nil
}

// Encode reads f and returns its base64 payload and MIME type.
// The content must sniff as an image; PNG, JPEG and GIF must also decode.
func Encode(f File) (models.ReferenceImage, error) {
	rc, err := f.Open()
	if err != nil {
		return models.ReferenceImage{}, &FileReadError{Name: f.Name(), Err: err}
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, MaxFileSize+1))
	if err != nil {
		return models.ReferenceImage{}, &FileReadError{Name: f.Name(), Err: err}
	}
	if len(data) > MaxFileSize {
		return models.ReferenceImage{}, &FileReadError{Name: f.Name(), Err: errors.New("file too large (max 10MB)")}
	}

	mimeType, err := sniff(data)
	if err != nil {
		return models.ReferenceImage{}, &FileReadError{Name: f.Name(), Err: err}
	}

	return models.ReferenceImage{
		Name:     f.Name(),
		Data:     base64.StdEncoding.EncodeToString(data),
		MIMEType: mimeType,
	}, nil
}

// EncodeAll encodes files in order and stops at the first failure
func EncodeAll(files []File) ([]models.ReferenceImage, error) {
	out := make([]models.ReferenceImage, 0, len(files))
	for _, f := range files {
		img, err := Encode(f)
		if err != nil {
			return nil, err
		}
		out = append(out, img)
	}
	return out, nil
}

func sniff(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("file is empty")
	}

	mimeType := http.DetectContentType(data)
	if !strings.HasPrefix(mimeType, "image/") {
		return "", fmt.Errorf("unsupported content type %s", mimeType)
	}

	switch mimeType {
	case "image/png", "image/jpeg", "image/gif":
		if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
			return "", fmt.Errorf("failed to decode image: %w", err)
		}
	}

	return mimeType, nil
}

// DataURI renders raw image bytes as a data URI
func DataURI(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURI splits a base64 data URI into its MIME type and bytes
func DecodeDataURI(uri string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", nil, errors.New("not a data URI")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, errors.New("malformed data URI")
	}
	mimeType, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return "", nil, errors.New("data URI is not base64 encoded")
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("failed to decode data URI payload: %w", err)
	}
	return mimeType, data, nil
}
