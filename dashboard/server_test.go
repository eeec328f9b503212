package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"madrid-dashboard/config"
	"madrid-dashboard/storage"
)

func newTestServer(t *testing.T) (*Server, *Orchestrator) {
	t.Helper()
	o := newTestOrchestrator(t)
	s, err := NewServer(ServerConfig{
		AllowedOrigins: []string{"http://localhost:8501"},
		Palette:        config.Palette{Primary: "4CAF50", Secondary: "81C784", Accent: "A5D6A7", Light: "C8E6C9"},
	}, o)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return s, o
}

func do(t *testing.T, s *Server, method, target, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/healthz", "", "")
	if rec.Code != http.StatusOK {
		t.Errorf("status: got %d, want 200", rec.Code)
	}
	if rec.Header().Get("X-Trace-ID") == "" {
		t.Error("expected a trace id header")
	}
}

func TestIndexRendersEveryTab(t *testing.T) {
	s, _ := newTestServer(t)
	for _, tab := range Tabs {
		rec := do(t, s, http.MethodGet, "/?tab="+string(tab), "", "")
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status %d: %s", tab, rec.Code, rec.Body.String())
			continue
		}
		if !strings.Contains(rec.Body.String(), "Madrid real estate") {
			t.Errorf("%s: page missing title", tab)
		}
	}

	if rec := do(t, s, http.MethodGet, "/?tab=bogus", "", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bogus tab: got %d, want 400", rec.Code)
	}
}

func TestIndexTabSwitchIsShared(t *testing.T) {
	s, o := newTestServer(t)

	if rec := do(t, s, http.MethodGet, "/?tab=details", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("switch: status %d", rec.Code)
	}
	if got := o.Latest().Session.Tab; got != TabDetails {
		t.Errorf("session tab: got %q, want %q", got, TabDetails)
	}

	// A second client without ?tab= sees the tab the first one picked.
	rec := do(t, s, http.MethodGet, "/", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("index: status %d", rec.Code)
	}
	if got := o.Latest().Session.Tab; got != TabDetails {
		t.Errorf("after plain GET: got %q, want %q", got, TabDetails)
	}
}

func TestEventsAPI(t *testing.T) {
	s, o := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/events", "application/json",
		`[{"kind":"set_rooms","rooms":[3,4]},{"kind":"set_tab","tab":"analysis"}]`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d: %s", rec.Code, rec.Body.String())
	}
	var got stateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Header.Filtered != 2 || got.Session.Tab != TabAnalysis {
		t.Errorf("got %+v", got)
	}

	rec = do(t, s, http.MethodPost, "/api/events", "application/json",
		`{"kind":"set_area_range","min":100,"max":10}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid range: got %d, want 400", rec.Code)
	}
	if o.Latest().Filtered.Len() != 2 {
		t.Error("a rejected event must keep the previous selection")
	}

	if rec := do(t, s, http.MethodPost, "/api/events", "application/json", `{nope`); rec.Code != http.StatusBadRequest {
		t.Errorf("malformed body: got %d, want 400", rec.Code)
	}
}

func TestViewsAPI(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/views/data", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	var body struct {
		Header Header   `json:"header"`
		View   DataView `json:"view"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.View.Count != 5 || len(body.View.Rows) != 5 || body.Header.AgencyCount != 3 {
		t.Errorf("got %+v", body)
	}

	if rec := do(t, s, http.MethodGet, "/api/views/nope", "", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown view: got %d, want 404", rec.Code)
	}
	for _, path := range []string{"/api/state", "/api/options", "/api/metrics", "/api/views/conclusions"} {
		if rec := do(t, s, http.MethodGet, path, "", ""); rec.Code != http.StatusOK {
			t.Errorf("%s: got %d", path, rec.Code)
		}
	}
}

func TestChartEndpoint(t *testing.T) {
	s, o := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/charts/rooms.png", "", "")
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("rooms: got %d %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	if rec := do(t, s, http.MethodGet, "/charts/unknown.png", "", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown chart: got %d, want 404", rec.Code)
	}

	if _, err := o.Dispatch(context.Background(), Event{Kind: SetPriceRange, Min: 0, Max: 1}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if rec := do(t, s, http.MethodGet, "/charts/rooms.png", "", ""); rec.Code != http.StatusNoContent {
		t.Errorf("empty selection: got %d, want 204", rec.Code)
	}
}

func TestFiltersFormAndReset(t *testing.T) {
	s, o := newTestServer(t)

	form := url.Values{
		"price_min": {"100000"},
		"price_max": {"500000"},
		"area_min":  {"0"},
		"area_max":  {"120"},
		"locations": {"Salamanca"},
		"tab":       {"details"},
	}
	rec := do(t, s, http.MethodPost, "/filters", "application/x-www-form-urlencoded", form.Encode())
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status: got %d: %s", rec.Code, rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); loc != "/?tab=details" {
		t.Errorf("Location: got %q", loc)
	}
	if n := o.Latest().Filtered.Len(); n != 2 {
		t.Errorf("filtered: got %d rows, want 2", n)
	}

	form.Set("price_min", "abc")
	if rec := do(t, s, http.MethodPost, "/filters", "application/x-www-form-urlencoded", form.Encode()); rec.Code != http.StatusBadRequest {
		t.Errorf("bad number: got %d, want 400", rec.Code)
	}

	if rec := do(t, s, http.MethodPost, "/reset", "", ""); rec.Code != http.StatusSeeOther {
		t.Errorf("reset: got %d", rec.Code)
	}
	if n := o.Latest().Filtered.Len(); n != 5 {
		t.Errorf("after reset: got %d rows, want 5", n)
	}
}

func TestExports(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/export/listings.csv", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("csv: got %d", rec.Code)
	}
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(lines) != 6 || lines[0] != strings.Join(storage.ExportColumns, ",") {
		t.Errorf("csv: got %q", lines)
	}

	rec = do(t, s, http.MethodGet, "/export/listings.xlsx", "", "")
	if rec.Code != http.StatusOK || !strings.HasPrefix(rec.Body.String(), "PK") {
		t.Errorf("xlsx: got %d, %d bytes", rec.Code, rec.Body.Len())
	}
}
