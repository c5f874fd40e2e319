package handlers

import (
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/lehigh-university-libraries/stampmaker/internal/export"
	"github.com/lehigh-university-libraries/stampmaker/internal/studio"
)

// handleStamp serves GET /stamps/{stampID} as a downloadable image
func (h *Handler) handleStamp(w http.ResponseWriter, r *http.Request, session *studio.Session, rest []string) {
	if r.Method != "GET" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if len(rest) != 1 {
		h.writeError(w, "Not found", http.StatusNotFound)
		return
	}

	stamps := session.Stamps()
	for i, stamp := range stamps {
		if stamp.ID != rest[0] {
			continue
		}
		mimeType, data, err := export.Image(stamp)
		if err != nil {
			h.writeError(w, err.Error(), http.StatusInternalServerError)
			return
		}
		// gallery is newest first; number from the oldest
		name := export.FileName(len(stamps)-1-i, stamp.Caption, mimeType)
		w.Header().Set("Content-Type", mimeType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename*=UTF-8''%s", url.PathEscape(name)))
		if _, err := w.Write(data); err != nil {
			h.writeError(w, "Unable to write stamp: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}
	h.writeError(w, "Stamp not found", http.StatusNotFound)
}

// HandleStatic serves the browser front end from the static directory
func (h *Handler) HandleStatic(w http.ResponseWriter, r *http.Request) {
	file := strings.TrimPrefix(r.URL.Path, "/")
	if file == "" {
		file = "index.html"
	}

	// Prevent directory traversal attacks
	if strings.Contains(file, "..") {
		http.Error(w, "Invalid file path", http.StatusBadRequest)
		return
	}
	if h.staticDir == "" {
		http.NotFound(w, r)
		return
	}

	// Set appropriate content type based on file extension
	switch {
	case strings.HasSuffix(file, ".css"):
		w.Header().Set("Content-Type", "text/css")
	case strings.HasSuffix(file, ".js"):
		w.Header().Set("Content-Type", "application/javascript")
	case strings.HasSuffix(file, ".html"):
		w.Header().Set("Content-Type", "text/html")
	}

	http.ServeFile(w, r, filepath.Join(h.staticDir, filepath.FromSlash(file)))
}
