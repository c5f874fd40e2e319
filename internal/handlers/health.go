package handlers

import (
	"net/http"

	"github.com/lehigh-university-libraries/stampmaker/internal/models"
	"github.com/lehigh-university-libraries/stampmaker/internal/readiness"
)

type keyStatus struct {
	State     readiness.State `json:"state"`
	Ready     bool            `json:"ready"`
	CanSelect bool            `json:"can_select"`
}

// HandleHealth reports whether the server was started with an environment key
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	status := "missing"
	if h.env != nil && h.env.Present() {
		status = "ok"
	}
	h.writeJSON(w, map[string]string{"status": status})
}

func (h *Handler) HandleKey(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.writeJSON(w, h.keyStatus())
}

// HandleKeyCheck re-evaluates readiness, e.g. after `stampmaker key select`
func (h *Handler) HandleKeyCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.studio.Probe().Check(r.Context())
	h.writeJSON(w, h.keyStatus())
}

func (h *Handler) keyStatus() keyStatus {
	p := h.studio.Probe()
	return keyStatus{
		State:     p.State(),
		Ready:     p.Ready(),
		CanSelect: p.HasHost(),
	}
}

func (h *Handler) HandleStyles(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.writeJSON(w, models.Styles())
}
