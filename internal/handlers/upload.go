package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/lehigh-university-libraries/stampmaker/internal/imagecodec"
	"github.com/lehigh-university-libraries/stampmaker/internal/studio"
)

// handleReferences serves POST (add) and DELETE /{index} (remove)
func (h *Handler) handleReferences(w http.ResponseWriter, r *http.Request, session *studio.Session, rest []string) {
	switch {
	case r.Method == "POST" && len(rest) == 0:
		h.handleUpload(w, r, session)
	case r.Method == "DELETE" && len(rest) == 1:
		index, err := strconv.Atoi(rest[0])
		if err != nil {
			h.writeError(w, "Invalid reference index", http.StatusBadRequest)
			return
		}
		if err := session.RemoveReference(index); err != nil {
			h.writeFailure(w, err, session, nil)
			return
		}
		h.writeJSON(w, h.studio.View(session))
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request, session *studio.Session) {
	var files []imagecodec.File
	var err error

	// Check if this is a JSON request with image URL
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		files, err = h.urlFiles(r)
	} else {
		files, err = h.formFiles(r)
	}
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	// validate now so a bad file is reported at upload, not mid-run
	for _, f := range files {
		if _, err := imagecodec.Encode(f); err != nil {
			h.writeFailure(w, err, session, nil)
			return
		}
	}

	dropped := session.AddReferences(files...)
	slog.Info("Reference images added", "session_id", session.ID, "count", len(files), "dropped", dropped)

	h.writeJSON(w, map[string]any{
		"session": h.studio.View(session),
		"added":   len(files) - dropped,
		"dropped": dropped,
	})
}

func (h *Handler) formFiles(r *http.Request) ([]imagecodec.File, error) {
	if err := r.ParseMultipartForm(imagecodec.MaxFileSize); err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}

	headers := r.MultipartForm.File["file"]
	if len(headers) == 0 {
		headers = r.MultipartForm.File["files"]
	}
	if len(headers) == 0 {
		return nil, fmt.Errorf("file is required")
	}

	files := make([]imagecodec.File, 0, len(headers))
	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to read file: %w", err)
		}

		// Limit file size to 10MB
		fileData, err := io.ReadAll(io.LimitReader(file, imagecodec.MaxFileSize+1))
		file.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read file contents: %w", err)
		}
		if len(fileData) > imagecodec.MaxFileSize {
			return nil, fmt.Errorf("file too large (max 10MB): %s", header.Filename)
		}

		files = append(files, imagecodec.BytesFile(header.Filename, fileData))
	}
	return files, nil
}

func (h *Handler) urlFiles(r *http.Request) ([]imagecodec.File, error) {
	var request struct {
		ImageURL string `json:"image_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if request.ImageURL == "" {
		return nil, fmt.Errorf("image_url is required")
	}

	data, err := h.downloadImage(r, request.ImageURL)
	if err != nil {
		return nil, err
	}

	filename := path.Base(request.ImageURL)
	if filename == "" || filename == "." || filename == "/" {
		filename = "reference"
	}
	return []imagecodec.File{imagecodec.BytesFile(filename, data)}, nil
}

func (h *Handler) downloadImage(r *http.Request, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(r.Context(), "GET", imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, imagecodec.MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	if len(data) > imagecodec.MaxFileSize {
		return nil, fmt.Errorf("file too large (max 10MB)")
	}
	return data, nil
}
