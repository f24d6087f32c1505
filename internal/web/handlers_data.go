package web

import "net/http"

// handleList returns one page of rows for a resource type, honoring the
// page, page_size, sort, dir, search, and filter[column] parameters.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	result, err := s.mgr.FindAll(r.Context(), resourceType(r), parseListQuery(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// handleGet returns a single row by id.
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	row, err := s.mgr.FindByID(r.Context(), resourceType(r), id)
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

// handleLookup returns the id to name map that feeds reference selectors.
func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	lookup, err := s.mgr.GetLookup(r.Context(), resourceType(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, lookup)
}
