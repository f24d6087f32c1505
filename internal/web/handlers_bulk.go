package web

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/forkful/backoffice/internal/audit"
	mw "github.com/forkful/backoffice/internal/web/middleware"
)

var errEmptyImport = errors.New("empty import: provide at least one item")

// handleBulkAdd imports a batch of items inside one transaction, with
// per-item failures isolated by savepoints. The body is a JSON array, or
// CSV when the Content-Type is text/csv.
func (s *Server) handleBulkAdd(w http.ResponseWriter, r *http.Request) {
	items, err := s.decodeItems(w, r)
	if err != nil {
		s.respondErrorStatus(w, r, err, http.StatusBadRequest)
		return
	}
	if len(items) == 0 {
		s.respondErrorStatus(w, r, errEmptyImport, http.StatusBadRequest)
		return
	}

	if err := s.limiter.Acquire(r.Context()); err != nil {
		if errors.Is(err, ErrTooManyImports) {
			w.Header().Set("Retry-After", strconv.Itoa(int(s.limiter.maxWait.Seconds())))
		}
		s.respondError(w, r, err)
		return
	}
	defer s.limiter.Release()

	result, err := s.mgr.BulkAdd(r.Context(), resourceType(r), items, mw.ActorID(r.Context()))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// handleBulkValidate dry-runs import validation: it returns cleaned items
// and per-item problems without writing anything.
func (s *Server) handleBulkValidate(w http.ResponseWriter, r *http.Request) {
	items, err := s.decodeItems(w, r)
	if err != nil {
		s.respondErrorStatus(w, r, err, http.StatusBadRequest)
		return
	}

	result, err := s.quality.ValidateBulkData(r.Context(), resourceType(r), items)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// handleCheckExisting reports which items already have a likely match in
// the database, so clients can warn before importing duplicates.
func (s *Server) handleCheckExisting(w http.ResponseWriter, r *http.Request) {
	items, err := s.decodeItems(w, r)
	if err != nil {
		s.respondErrorStatus(w, r, err, http.StatusBadRequest)
		return
	}

	checks, err := s.mgr.CheckExisting(r.Context(), resourceType(r), items)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"checks": checks})
}

// handleRollbackBatch deletes every row a bulk import created. The batch
// id from the import response identifies the rows through the audit log,
// and a batch can only be rolled back once.
func (s *Server) handleRollbackBatch(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "batchId")
	if _, err := uuid.Parse(batchID); err != nil {
		writeError(w, http.StatusBadRequest, "invalid batch id")
		return
	}

	entries, err := s.audits.FindByBatch(r.Context(), batchID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	var imported *audit.Entry
	for i := range entries {
		switch entries[i].Action {
		case audit.ActionBulkAdd:
			imported = &entries[i]
		case audit.ActionBulkRollback:
			writeError(w, http.StatusConflict, "batch already rolled back")
			return
		}
	}
	if imported == nil {
		writeError(w, http.StatusNotFound, "batch not found")
		return
	}

	ids := createdIDs(imported.Detail)
	if len(ids) == 0 {
		writeError(w, http.StatusConflict, "batch created no rows")
		return
	}

	deleted, err := s.mgr.RollbackBatch(r.Context(), imported.ResourceType, batchID, ids, mw.ActorID(r.Context()))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, map[string]any{
		"batchId":      batchID,
		"resourceType": imported.ResourceType,
		"rowsDeleted":  deleted,
	})
}

// createdIDs pulls the created row ids out of a bulk_add audit detail.
// Entries read back from the database arrive as []any of float64 through
// the JSON round trip; entries still in memory hold []int64.
func createdIDs(detail map[string]any) []int64 {
	switch raw := detail["created_ids"].(type) {
	case []int64:
		return raw
	case []any:
		ids := make([]int64, 0, len(raw))
		for _, v := range raw {
			switch n := v.(type) {
			case float64:
				ids = append(ids, int64(n))
			case int64:
				ids = append(ids, n)
			case int:
				ids = append(ids, int64(n))
			}
		}
		return ids
	default:
		return nil
	}
}
