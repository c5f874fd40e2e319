package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/lehigh-university-libraries/stampmaker/internal/studio"
)

func (h *Handler) HandleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		sessions := h.sessionStore.GetAll()
		sessionList := make([]studio.View, 0, len(sessions))
		for _, session := range sessions {
			sessionList = append(sessionList, h.studio.View(session))
		}
		h.writeJSON(w, sessionList)
	case "POST":
		session := h.sessionStore.Create(h.studio.NewSession)
		if err := h.decodeForm(r, session); err != nil {
			h.sessionStore.Delete(session.ID)
			h.writeError(w, "Invalid form: "+err.Error(), http.StatusBadRequest)
			return
		}
		h.writeJSONStatus(w, http.StatusCreated, h.studio.View(session))
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleSessionDetail routes /api/sessions/{id}[/...]
func (h *Handler) HandleSessionDetail(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/sessions/"), "/"), "/")
	sessionID := parts[0]

	session, ok := h.getSessionOrError(w, sessionID)
	if !ok {
		return
	}

	if len(parts) == 1 {
		h.handleSession(w, r, session)
		return
	}

	switch parts[1] {
	case "references":
		h.handleReferences(w, r, session, parts[2:])
	case "suggest":
		h.handleSuggest(w, r, session)
	case "generate":
		h.handleGenerate(w, r, session)
	case "reset":
		h.handleReset(w, r, session)
	case "stamps":
		h.handleStamp(w, r, session, parts[2:])
	default:
		h.writeError(w, "Not found", http.StatusNotFound)
	}
}

func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request, session *studio.Session) {
	switch r.Method {
	case "GET":
		h.writeJSON(w, h.studio.View(session))
	case "PUT":
		var form studio.Form
		if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
			h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
			return
		}
		if err := session.Apply(form); err != nil {
			h.writeFailure(w, err, session, nil)
			return
		}
		h.writeJSON(w, h.studio.View(session))
	case "DELETE":
		if session.Busy() {
			h.writeFailure(w, studio.ErrBusy, session, nil)
			return
		}
		h.sessionStore.Delete(session.ID)
		w.WriteHeader(http.StatusNoContent)
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
