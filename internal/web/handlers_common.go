package web

// handlers_common.go holds the request-parsing helpers shared across
// handlers.

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/forkful/backoffice/internal/statement"
)

// Request body caps. Single-row payloads are small; imports carry up to
// Bulk.MaxItems rows plus CSV overhead.
const (
	maxBodyBytes       = 1 << 20  // 1 MB
	maxImportBodyBytes = 32 << 20 // 32 MB
)

// resourceType pulls the {type} URL parameter.
func resourceType(r *http.Request) string {
	return chi.URLParam(r, "type")
}

// parseIDParam parses the {id} URL parameter as a positive integer.
func parseIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		return 0, errors.New("id must be a positive integer")
	}
	return id, nil
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// parseListQuery assembles paging, sorting, search, and column filters for
// list endpoints. filter[column]=value pairs pass through as given; the
// statement layer drops keys that do not name a known column.
func parseListQuery(r *http.Request) statement.ListQuery {
	q := statement.ListQuery{
		Page:     parseIntParam(r, "page", 1),
		PageSize: parseIntParam(r, "page_size", 0), // zero lets the manager default it
		SortCol:  r.URL.Query().Get("sort"),
		SortDir:  r.URL.Query().Get("dir"),
		Search:   r.URL.Query().Get("search"),
	}

	for key, values := range r.URL.Query() {
		if !strings.HasPrefix(key, "filter[") || !strings.HasSuffix(key, "]") {
			continue
		}
		col := key[len("filter[") : len(key)-1]
		if col == "" || len(values) == 0 || values[0] == "" {
			continue
		}
		if q.Filters == nil {
			q.Filters = make(map[string]string)
		}
		q.Filters[col] = values[0]
	}

	return q
}

// decodeItem decodes a single-resource JSON body.
func decodeItem(w http.ResponseWriter, r *http.Request) (map[string]any, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var item map[string]any
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		return nil, errors.New("invalid request body")
	}
	return item, nil
}

// decodeItems decodes an import payload: CSV when the Content-Type says
// so, otherwise a bare JSON array of items.
func (s *Server) decodeItems(w http.ResponseWriter, r *http.Request) ([]map[string]any, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBodyBytes)

	if isCSV(r) {
		return decodeCSVItems(r.Body, s.cfg.Bulk.MaxItems)
	}

	var items []map[string]any
	if err := json.NewDecoder(r.Body).Decode(&items); err != nil {
		return nil, errors.New("invalid request body: expected a JSON array of items")
	}
	if len(items) > s.cfg.Bulk.MaxItems {
		return nil, fmt.Errorf("too many items: imports are limited to %d rows per request", s.cfg.Bulk.MaxItems)
	}
	return items, nil
}

func isCSV(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	return strings.Contains(ct, "text/csv") || strings.Contains(ct, "application/csv")
}
