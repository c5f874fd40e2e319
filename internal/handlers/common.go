package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/lehigh-university-libraries/stampmaker/internal/batch"
	"github.com/lehigh-university-libraries/stampmaker/internal/credentials"
	"github.com/lehigh-university-libraries/stampmaker/internal/gate"
	"github.com/lehigh-university-libraries/stampmaker/internal/imagecodec"
	"github.com/lehigh-university-libraries/stampmaker/internal/readiness"
	"github.com/lehigh-university-libraries/stampmaker/internal/storage"
	"github.com/lehigh-university-libraries/stampmaker/internal/studio"
)

type Handler struct {
	studio       *studio.Studio
	sessionStore *storage.SessionStore
	env          *credentials.Environment
	staticDir    string
	httpClient   *http.Client
}

// New returns a handler over st. env backs /api/health and may be nil.
func New(st *studio.Studio, env *credentials.Environment, staticDir string) *Handler {
	return &Handler{
		studio:       st,
		sessionStore: storage.New(),
		env:          env,
		staticDir:    staticDir,
		httpClient:   http.DefaultClient,
	}
}

// Routes registers every endpoint on mux
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/api/health", h.HandleHealth)
	mux.HandleFunc("/api/key", h.HandleKey)
	mux.HandleFunc("/api/key/check", h.HandleKeyCheck)
	mux.HandleFunc("/api/styles", h.HandleStyles)
	mux.HandleFunc("/api/sessions", h.HandleSessions)
	mux.HandleFunc("/api/sessions/", h.HandleSessionDetail)
	mux.HandleFunc("/", h.HandleStatic)
	mux.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("Unable to write healthcheck", "err", err)
		}
	})
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data any) {
	h.writeJSONStatus(w, http.StatusOK, data)
}

func (h *Handler) writeJSONStatus(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message)
	http.Error(w, message, code)
}

type errorResponse struct {
	Error   string       `json:"error"`
	Message string       `json:"message"`
	Session *studio.View `json:"session,omitempty"`
	Outcome any          `json:"outcome,omitempty"`
}

// writeFailure maps an error kind to a status and renders the remediation message
func (h *Handler) writeFailure(w http.ResponseWriter, err error, session *studio.Session, outcome *batch.Outcome) {
	code := statusFor(err)
	slog.Error("Request failed", "status", code, "err", err)

	resp := errorResponse{Error: err.Error(), Message: studio.Message(err)}
	if session != nil {
		view := h.studio.View(session)
		resp.Session = &view
	}
	if outcome != nil {
		resp.Outcome = outcome
	}
	h.writeJSONStatus(w, code, resp)
}

func statusFor(err error) int {
	var readErr *imagecodec.FileReadError
	switch {
	case errors.Is(err, gate.ErrAccessDenied):
		return http.StatusForbidden
	case errors.Is(err, readiness.ErrKeyNotReady):
		return http.StatusPreconditionFailed
	case errors.Is(err, batch.ErrEmptyBatch),
		errors.As(err, &readErr),
		errors.Is(err, studio.ErrBatchSize),
		errors.Is(err, studio.ErrIndex),
		errors.Is(err, studio.ErrUnknownStyle):
		return http.StatusBadRequest
	case errors.Is(err, studio.ErrBusy):
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}

// Session helpers
func (h *Handler) getSessionOrError(w http.ResponseWriter, sessionID string) (*studio.Session, bool) {
	session, exists := h.sessionStore.Get(sessionID)
	if !exists {
		h.writeError(w, "Session not found", http.StatusNotFound)
		return nil, false
	}
	return session, true
}

// decodeForm applies an optional JSON form body to session
func (h *Handler) decodeForm(r *http.Request, session *studio.Session) error {
	if r.ContentLength == 0 {
		return nil
	}
	var form studio.Form
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	return session.Apply(form)
}
