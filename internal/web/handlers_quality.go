package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/forkful/backoffice/internal/quality"
	mw "github.com/forkful/backoffice/internal/web/middleware"
)

// handleAnalyze scans a resource type and returns proposed cleanups,
// relationship fills, and place-data fills. Nothing is written; each
// proposal waits for an explicit apply.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	changes, err := s.quality.Analyze(r.Context(), resourceType(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"changes": changes, "count": len(changes)})
}

// handleChangesByIDs re-derives the current proposals and filters them to
// the requested ids. Ids that no longer reproduce are dropped, which is
// how a client discovers that a row moved underneath its review.
func (s *Server) handleChangesByIDs(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ChangeIDs []string `json:"changeIds"`
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.ChangeIDs) == 0 {
		writeError(w, http.StatusBadRequest, "changeIds is required")
		return
	}

	changes, err := s.quality.GetChangesByIDs(r.Context(), resourceType(r), req.ChangeIDs)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"changes": changes, "count": len(changes)})
}

// handleApplyChanges applies reviewed proposals inside one transaction.
// Stale values and vanished rows are reported per change without failing
// the rest of the batch.
func (s *Server) handleApplyChanges(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Changes []quality.ProposedChange `json:"changes"`
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.quality.ApplyChanges(r.Context(), resourceType(r), req.Changes, quality.ApplyOptions{
		ActorID: mw.ActorID(r.Context()),
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// handleRejectChanges stamps rejection outcomes for proposals. Nothing is
// written to the database; rejection is bookkeeping for the client.
func (s *Server) handleRejectChanges(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Changes []quality.ProposedChange `json:"changes"`
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	outcomes := s.quality.RejectChanges(resourceType(r), req.Changes)
	writeJSON(w, map[string]any{"changes": outcomes, "count": len(outcomes)})
}

// handleApproveSubmission promotes a pending submission into a first-class
// resource. The new row and the status transition commit together or not
// at all.
func (s *Server) handleApproveSubmission(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sub, err := s.mgr.FindByID(r.Context(), "submissions", id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if sub == nil {
		writeError(w, http.StatusNotFound, "submission not found")
		return
	}

	itemType, itemData, err := submissionPayload(sub)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := s.quality.ApproveSubmission(r.Context(), id, itemType, itemData, mw.ActorID(r.Context()))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if created == nil {
		writeError(w, http.StatusConflict, "submission was already reviewed")
		return
	}
	writeJSON(w, map[string]any{"created": created, "itemType": itemType})
}

// handleRejectSubmission marks a pending submission rejected with a
// reviewer-supplied reason.
func (s *Server) handleRejectSubmission(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Reason) == "" {
		writeError(w, http.StatusBadRequest, "reason is required")
		return
	}

	row, err := s.quality.RejectSubmission(r.Context(), id, req.Reason, mw.ActorID(r.Context()))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if row == nil {
		writeError(w, http.StatusConflict, "submission is not pending")
		return
	}
	writeJSON(w, row)
}

// submissionPayload extracts the declared target type and candidate
// resource data from a submission row. item_data arrives as a decoded
// object when the driver unwraps jsonb, or as raw JSON text otherwise.
func submissionPayload(sub map[string]any) (string, map[string]any, error) {
	itemType, _ := sub["item_type"].(string)
	if itemType == "" {
		return "", nil, errors.New("submission has no item_type")
	}

	switch data := sub["item_data"].(type) {
	case map[string]any:
		return itemType, data, nil
	case []byte:
		var m map[string]any
		if err := json.Unmarshal(data, &m); err != nil {
			return "", nil, errors.New("submission item_data is not a valid JSON document")
		}
		return itemType, m, nil
	case string:
		var m map[string]any
		if err := json.Unmarshal([]byte(data), &m); err != nil {
			return "", nil, errors.New("submission item_data is not a valid JSON document")
		}
		return itemType, m, nil
	default:
		return "", nil, errors.New("submission has no item_data")
	}
}
