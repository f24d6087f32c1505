package web

import (
	"context"
	"net/http"
	"time"
)

// handleHealthz reports liveness and database reachability.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	var one int
	if err := s.mgr.DB().QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		writeJSONStatus(w, http.StatusServiceUnavailable, map[string]string{
			"status":   "degraded",
			"database": "unreachable",
		})
		return
	}

	writeJSON(w, map[string]string{"status": "ok"})
}

// handleResourceTypes lists the registered resource types with the field
// metadata admin clients need to build forms.
func (s *Server) handleResourceTypes(w http.ResponseWriter, r *http.Request) {
	reg := s.mgr.Registry()

	types := reg.Types()
	out := make([]map[string]any, 0, len(types))
	for _, t := range types {
		d, err := reg.Descriptor(t)
		if err != nil {
			continue
		}
		out = append(out, map[string]any{
			"type":           d.Type,
			"createFields":   d.CreateFields,
			"updateFields":   d.UpdateFields,
			"requiredFields": d.RequiredFields(),
			"hasLookup":      d.HasNameColumn(),
		})
	}

	writeJSON(w, map[string]any{"resources": out})
}

// handleImportStatus reports bulk limiter occupancy so clients can back
// off before submitting a large import.
func (s *Server) handleImportStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.limiter.Status())
}
