package handlers

import (
	"net/http"

	"github.com/lehigh-university-libraries/stampmaker/internal/studio"
)

func (h *Handler) handleSuggest(w http.ResponseWriter, r *http.Request, session *studio.Session) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := h.decodeForm(r, session); err != nil {
		h.writeError(w, "Invalid form: "+err.Error(), http.StatusBadRequest)
		return
	}

	captions, err := h.studio.Suggest(r.Context(), session)
	if err != nil {
		h.writeFailure(w, err, session, nil)
		return
	}
	h.writeJSON(w, map[string]any{
		"captions": captions,
		"session":  h.studio.View(session),
	})
}

// handleGenerate runs the batch for the length of the request. Progress is
// visible to concurrent GETs of the session while it runs; a client
// disconnect cancels the remaining items.
func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request, session *studio.Session) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := h.decodeForm(r, session); err != nil {
		h.writeError(w, "Invalid form: "+err.Error(), http.StatusBadRequest)
		return
	}

	outcome, err := h.studio.Generate(r.Context(), session, nil)
	if err != nil {
		h.writeFailure(w, err, session, outcome)
		return
	}
	h.writeJSON(w, map[string]any{
		"outcome": outcome,
		"session": h.studio.View(session),
	})
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request, session *studio.Session) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := session.Reset(); err != nil {
		h.writeFailure(w, err, session, nil)
		return
	}
	h.writeJSON(w, h.studio.View(session))
}
