package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/forkful/backoffice/internal/audit"
)

// handleAuditLog returns one page of audit entries, newest first. Entries
// filter by action, resource_type, actor_id, and a created_at range.
func (s *Server) handleAuditLog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := s.audits.List(r.Context(), audit.ListOptions{
		Action:       q.Get("action"),
		ResourceType: q.Get("resource_type"),
		ActorID:      q.Get("actor_id"),
		Start:        q.Get("start"),
		End:          q.Get("end"),
		Page:         parseIntParam(r, "page", 1),
		PageSize:     parseIntParam(r, "page_size", 0), // zero lets the recorder default it
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, page)
}

// handleAuditLogEntry returns one audit entry by id.
func (s *Server) handleAuditLogEntry(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid audit entry id")
		return
	}

	entry, err := s.audits.Get(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if entry == nil {
		writeError(w, http.StatusNotFound, "audit entry not found")
		return
	}
	writeJSON(w, entry)
}
