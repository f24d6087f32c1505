package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/forkful/backoffice/internal/audit"
)

func doRequest(t *testing.T, s *Server, method, target string, body io.Reader, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decoding response %q: %v", w.Body.String(), err)
	}
}

func TestHealthz(t *testing.T) {
	db := &fakeDB{stubs: []stub{
		{match: "SELECT 1", cols: []string{"?column?"}, rows: [][]any{{1}}},
	}}
	s, _ := newTestServer(db, nil)

	w := doRequest(t, s, http.MethodGet, "/healthz", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var body map[string]string
	decodeBody(t, w, &body)
	if body["status"] != "ok" {
		t.Errorf("status field = %q, want ok", body["status"])
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
}

func TestHealthz_DatabaseDown(t *testing.T) {
	// No stub for SELECT 1, so the probe scan fails.
	s, _ := newTestServer(&fakeDB{}, nil)

	w := doRequest(t, s, http.MethodGet, "/healthz", nil, nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}

	var body map[string]string
	decodeBody(t, w, &body)
	if body["status"] != "degraded" || body["database"] != "unreachable" {
		t.Errorf("body = %v", body)
	}
}

func TestSecurityHeaders(t *testing.T) {
	db := &fakeDB{stubs: []stub{
		{match: "SELECT 1", cols: []string{"?column?"}, rows: [][]any{{1}}},
	}}
	s, _ := newTestServer(db, nil)

	w := doRequest(t, s, http.MethodGet, "/healthz", nil, nil)
	checks := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "strict-origin-when-cross-origin",
	}
	for header, want := range checks {
		if got := w.Header().Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}
}

func TestResourceTypes(t *testing.T) {
	s, _ := newTestServer(&fakeDB{}, nil)

	w := doRequest(t, s, http.MethodGet, "/api/resources", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	var body struct {
		Resources []struct {
			Type           string   `json:"type"`
			CreateFields   []string `json:"createFields"`
			RequiredFields []string `json:"requiredFields"`
			HasLookup      bool     `json:"hasLookup"`
		} `json:"resources"`
	}
	decodeBody(t, w, &body)

	if len(body.Resources) == 0 {
		t.Fatal("no resource types returned")
	}
	var cities bool
	for _, res := range body.Resources {
		if res.Type == "cities" {
			cities = true
			if len(res.CreateFields) == 0 {
				t.Error("cities has no create fields")
			}
			if !res.HasLookup {
				t.Error("cities should have a lookup")
			}
		}
	}
	if !cities {
		t.Errorf("cities missing from %+v", body.Resources)
	}
}

func TestList(t *testing.T) {
	db := &fakeDB{stubs: []stub{
		{match: "SELECT COUNT(*)", cols: []string{"count"}, rows: [][]any{{int64(2)}}},
		{
			match: "ORDER BY",
			cols:  []string{"id", "name", "state"},
			rows: [][]any{
				{int64(1), "Austin", "TX"},
				{int64(2), "Houston", "TX"},
			},
		},
	}}
	s, _ := newTestServer(db, nil)

	w := doRequest(t, s, http.MethodGet, "/api/resources/cities?page=1&page_size=10&sort=name&dir=asc", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	var body struct {
		Items      []map[string]any `json:"items"`
		Pagination struct {
			CurrentPage  int   `json:"currentPage"`
			TotalItems   int64 `json:"totalItems"`
			TotalPages   int   `json:"totalPages"`
			ItemsPerPage int   `json:"itemsPerPage"`
		} `json:"pagination"`
	}
	decodeBody(t, w, &body)

	if len(body.Items) != 2 {
		t.Fatalf("got %d items, want 2", len(body.Items))
	}
	if body.Items[0]["name"] != "Austin" {
		t.Errorf("first item = %v", body.Items[0])
	}
	if body.Pagination.TotalItems != 2 || body.Pagination.CurrentPage != 1 {
		t.Errorf("pagination = %+v", body.Pagination)
	}
	if body.Pagination.ItemsPerPage != 10 {
		t.Errorf("itemsPerPage = %d, want the requested 10", body.Pagination.ItemsPerPage)
	}
}

func TestList_UnknownType(t *testing.T) {
	s, _ := newTestServer(&fakeDB{}, nil)

	w := doRequest(t, s, http.MethodGet, "/api/resources/unicorns", nil, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", w.Code, w.Body.String())
	}

	var body ErrorResponse
	decodeBody(t, w, &body)
	if body.Code != "RES001" {
		t.Errorf("code = %q, want RES001", body.Code)
	}
	if body.Message == "" || body.Action == "" {
		t.Errorf("response missing guidance: %+v", body)
	}
}

func TestGet(t *testing.T) {
	db := &fakeDB{stubs: []stub{
		{match: "WHERE t.id = $1", cols: []string{"id", "name"}, rows: [][]any{{int64(7), "Austin"}}},
	}}
	s, _ := newTestServer(db, nil)

	w := doRequest(t, s, http.MethodGet, "/api/resources/cities/7", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	var row map[string]any
	decodeBody(t, w, &row)
	if row["name"] != "Austin" {
		t.Errorf("row = %v", row)
	}
}

func TestGet_NotFound(t *testing.T) {
	s, _ := newTestServer(&fakeDB{}, nil)

	w := doRequest(t, s, http.MethodGet, "/api/resources/cities/99", nil, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404: %s", w.Code, w.Body.String())
	}
}

func TestGet_BadID(t *testing.T) {
	s, _ := newTestServer(&fakeDB{}, nil)

	for _, id := range []string{"abc", "0", "-4"} {
		w := doRequest(t, s, http.MethodGet, "/api/resources/cities/"+id, nil, nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("id %q: status = %d, want 400", id, w.Code)
		}
	}
}

func TestLookup(t *testing.T) {
	db := &fakeDB{stubs: []stub{
		{
			match: `SELECT id, name FROM "cities"`,
			cols:  []string{"id", "name"},
			rows:  [][]any{{int64(1), "Austin"}, {int64(2), "Houston"}},
		},
	}}
	s, _ := newTestServer(db, nil)

	w := doRequest(t, s, http.MethodGet, "/api/lookup/cities", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	var lookup map[string]string
	decodeBody(t, w, &lookup)
	if lookup["1"] != "Austin" || lookup["2"] != "Houston" {
		t.Errorf("lookup = %v", lookup)
	}
}

func TestCreate(t *testing.T) {
	db := &fakeDB{stubs: []stub{
		{
			match: `INSERT INTO "cities"`,
			cols:  []string{"id", "name", "state"},
			rows:  [][]any{{int64(1), "Austin", "TX"}},
		},
	}}
	s, rec := newTestServer(db, nil)

	body := strings.NewReader(`{"name":"Austin","state":"TX"}`)
	w := doRequest(t, s, http.MethodPost, "/api/resources/cities", body, map[string]string{
		"Content-Type": "application/json",
		"X-Actor-Id":   "admin-7",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}

	var row map[string]any
	decodeBody(t, w, &row)
	if row["id"] != float64(1) {
		t.Errorf("row = %v", row)
	}

	creates := rec.byAction(audit.ActionResourceCreate)
	if len(creates) != 1 {
		t.Fatalf("got %d create audit entries, want 1", len(creates))
	}
	if creates[0].ActorID != "admin-7" {
		t.Errorf("audit actor = %q, want admin-7 from the X-Actor-Id header", creates[0].ActorID)
	}
}

func TestCreate_InvalidBody(t *testing.T) {
	s, _ := newTestServer(&fakeDB{}, nil)

	w := doRequest(t, s, http.MethodPost, "/api/resources/cities", strings.NewReader("not json"), nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestCreate_EmptyBody(t *testing.T) {
	s, _ := newTestServer(&fakeDB{}, nil)

	w := doRequest(t, s, http.MethodPost, "/api/resources/cities", strings.NewReader("{}"), nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestUpdate(t *testing.T) {
	db := &fakeDB{stubs: []stub{
		{
			match: `UPDATE "cities"`,
			cols:  []string{"id", "name"},
			rows:  [][]any{{int64(7), "Austin"}},
		},
	}}
	s, _ := newTestServer(db, nil)

	body := strings.NewReader(`{"name":"Austin"}`)
	w := doRequest(t, s, http.MethodPut, "/api/resources/cities/7", body, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	var row map[string]any
	decodeBody(t, w, &row)
	if row["name"] != "Austin" {
		t.Errorf("row = %v", row)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	s, _ := newTestServer(&fakeDB{}, nil)

	body := strings.NewReader(`{"name":"Austin"}`)
	w := doRequest(t, s, http.MethodPut, "/api/resources/cities/99", body, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404: %s", w.Code, w.Body.String())
	}
}

func TestDelete(t *testing.T) {
	db := &fakeDB{stubs: []stub{
		{
			match: `DELETE FROM "cities"`,
			cols:  []string{"id", "name"},
			rows:  [][]any{{int64(3), "Waco"}},
		},
	}}
	s, _ := newTestServer(db, nil)

	w := doRequest(t, s, http.MethodDelete, "/api/resources/cities/3", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	var body struct {
		Deleted map[string]any `json:"deleted"`
	}
	decodeBody(t, w, &body)
	if body.Deleted["name"] != "Waco" {
		t.Errorf("deleted = %v", body.Deleted)
	}
}

func TestDelete_NotFound(t *testing.T) {
	s, _ := newTestServer(&fakeDB{}, nil)

	w := doRequest(t, s, http.MethodDelete, "/api/resources/cities/99", nil, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestImportStatus(t *testing.T) {
	s, _ := newTestServer(&fakeDB{}, nil)

	w := doRequest(t, s, http.MethodGet, "/api/import-status", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	var status LimiterStatus
	decodeBody(t, w, &status)
	if status.MaxConcurrent != 2 || status.Available != 2 || status.Active != 0 {
		t.Errorf("status = %+v", status)
	}
}

func TestRateLimit(t *testing.T) {
	db := &fakeDB{stubs: []stub{
		{match: "SELECT 1", cols: []string{"?column?"}, rows: [][]any{{1}}},
	}}
	cfg := testConfig()
	cfg.Rate.Enabled = true
	cfg.Rate.RequestsPerMinute = 2
	s, _ := newTestServer(db, cfg)

	for i := 0; i < 2; i++ {
		w := doRequest(t, s, http.MethodGet, "/healthz", nil, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i+1, w.Code)
		}
	}

	w := doRequest(t, s, http.MethodGet, "/healthz", nil, nil)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "60" {
		t.Errorf("Retry-After = %q, want 60", got)
	}
}
