package web

import (
	"net/http"

	mw "github.com/forkful/backoffice/internal/web/middleware"
)

// handleCreate inserts one row and returns the stored version.
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	item, err := decodeItem(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(item) == 0 {
		writeError(w, http.StatusBadRequest, "empty request body")
		return
	}

	created, err := s.mgr.Create(r.Context(), resourceType(r), item, mw.ActorID(r.Context()))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, created)
}

// handleUpdate applies a partial update and returns the stored row.
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	item, err := decodeItem(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(item) == 0 {
		writeError(w, http.StatusBadRequest, "empty request body")
		return
	}

	row, err := s.mgr.Update(r.Context(), resourceType(r), id, item, mw.ActorID(r.Context()))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if row == nil {
		writeError(w, http.StatusNotFound, "resource not found")
		return
	}
	writeJSON(w, row)
}

// handleDelete removes one row and returns what was deleted.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	row, err := s.mgr.Delete(r.Context(), resourceType(r), id, mw.ActorID(r.Context()))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if row == nil {
		writeError(w, http.StatusNotFound, "resource not found")
		return
	}
	writeJSON(w, map[string]any{"deleted": row})
}
