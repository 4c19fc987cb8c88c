package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/caelumdev/journal-api/pkg/cache"
	"github.com/caelumdev/journal-api/pkg/content"
)

type testEnv struct {
	srv      *Server
	ts       *httptest.Server
	store    *content.Store
	recorder *cache.Recorder
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := content.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to open content store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	recorder := cache.NewRecorder()

	// The warmer targets the test server itself, which does not exist yet
	// when the warmer is built, so route through a late-bound handler.
	var handler http.Handler
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(ts.Close)

	srv, err := New(Config{
		Content:  store,
		Recorder: recorder,
		Warmer:   cache.NewWarmer(ts.URL),
		DevMode:  true,
	})
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}
	handler = srv.Handler()

	return &testEnv{srv: srv, ts: ts, store: store, recorder: recorder}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, headers map[string]string) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to encode request body: %v", err)
		}
	}

	req, err := http.NewRequest(method, e.ts.URL+path, &buf)
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

type testEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string      `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details"`
	} `json:"error"`
	Timestamp string `json:"timestamp"`
}

func decodeEnvelope(t *testing.T, resp *http.Response) testEnvelope {
	t.Helper()
	var env testEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("Failed to decode envelope: %v", err)
	}
	return env
}

func (e *testEnv) seedJournal(t *testing.T, slug string, status content.Status, category string, tags []string) {
	t.Helper()
	body := map[string]interface{}{
		"slug":     slug,
		"title":    "Entry " + slug,
		"body":     "Body of " + slug,
		"status":   string(status),
		"category": category,
		"tags":     tags,
	}
	resp := e.do(t, http.MethodPost, "/api/journals", body, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Seeding %s: expected 201, got %d", slug, resp.StatusCode)
	}
}

func TestListJournals_MissThenConditionalHit(t *testing.T) {
	env := newTestEnv(t)
	env.seedJournal(t, "first-post", content.StatusPublished, "go", []string{"web"})

	resp := env.do(t, http.MethodGet, "/api/public/journals", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	etag := resp.Header.Get("ETag")
	if etag == "" || !strings.HasPrefix(etag, `"`) {
		t.Fatalf("Expected quoted ETag header, got %q", etag)
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "public, max-age=300, stale-while-revalidate=60" {
		t.Errorf("Unexpected Cache-Control: %q", cc)
	}
	if got := resp.Header.Get("X-Cache-Config"); got != "journal-list" {
		t.Errorf("Expected X-Cache-Config journal-list, got %q", got)
	}
	if resp.Header.Get("Last-Modified") == "" {
		t.Error("Expected Last-Modified header")
	}

	env2 := decodeEnvelope(t, resp)
	if !env2.Success {
		t.Error("Expected success envelope")
	}

	resp304 := env.do(t, http.MethodGet, "/api/public/journals", nil, map[string]string{
		"If-None-Match": etag,
	})
	if resp304.StatusCode != http.StatusNotModified {
		t.Fatalf("Expected 304 on matching If-None-Match, got %d", resp304.StatusCode)
	}
	if cc := resp304.Header.Get("Cache-Control"); cc != "public, max-age=0, must-revalidate" {
		t.Errorf("Expected revalidation Cache-Control on 304, got %q", cc)
	}

	totals := env.recorder.Totals()
	if totals.Hits < 1 {
		t.Errorf("Expected at least one recorded hit, got %d", totals.Hits)
	}
	if totals.Misses < 1 {
		t.Errorf("Expected at least one recorded miss, got %d", totals.Misses)
	}
}

func TestGetJournal_PublishedAndConditional(t *testing.T) {
	env := newTestEnv(t)
	env.seedJournal(t, "hello-world", content.StatusPublished, "", nil)

	resp := env.do(t, http.MethodGet, "/api/public/journals/hello-world", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("X-Cache-Config"); got != "journal-published" {
		t.Errorf("Expected X-Cache-Config journal-published, got %q", got)
	}

	env2 := decodeEnvelope(t, resp)
	var j content.Journal
	if err := json.Unmarshal(env2.Data, &j); err != nil {
		t.Fatalf("Failed to decode journal: %v", err)
	}
	if j.Slug != "hello-world" {
		t.Errorf("Expected slug hello-world, got %q", j.Slug)
	}
	if j.PublishedAt.IsZero() {
		t.Error("Expected publishedAt to be set")
	}

	etag := resp.Header.Get("ETag")
	resp304 := env.do(t, http.MethodGet, "/api/public/journals/hello-world", nil, map[string]string{
		"If-None-Match": etag,
	})
	if resp304.StatusCode != http.StatusNotModified {
		t.Fatalf("Expected 304, got %d", resp304.StatusCode)
	}
}

func TestGetJournal_DraftHiddenWithoutPreview(t *testing.T) {
	env := newTestEnv(t)
	env.seedJournal(t, "wip", content.StatusDraft, "", nil)

	resp := env.do(t, http.MethodGet, "/api/public/journals/wip", nil, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("Expected 404 for draft without preview, got %d", resp.StatusCode)
	}
	env2 := decodeEnvelope(t, resp)
	if env2.Error == nil || env2.Error.Code != CodeNotFound {
		t.Fatalf("Expected NOT_FOUND error envelope, got %+v", env2.Error)
	}

	preview := env.do(t, http.MethodGet, "/api/public/journals/wip?preview=true", nil, nil)
	if preview.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200 for draft preview, got %d", preview.StatusCode)
	}
	if cc := preview.Header.Get("Cache-Control"); !strings.Contains(cc, "private") || !strings.Contains(cc, "no-cache") {
		t.Errorf("Expected private no-cache policy for draft, got %q", cc)
	}
	if got := preview.Header.Get("X-Cache-Config"); got != "journal-draft" {
		t.Errorf("Expected X-Cache-Config journal-draft, got %q", got)
	}
}

func TestGetJournal_Unknown(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/api/public/journals/nope", nil, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d", resp.StatusCode)
	}
	env2 := decodeEnvelope(t, resp)
	if env2.Success {
		t.Error("Expected failure envelope")
	}
	if env2.Error.Code != CodeNotFound {
		t.Errorf("Expected code NOT_FOUND, got %q", env2.Error.Code)
	}
}

func TestListJournals_ValidatesParameters(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		path string
	}{
		{"zero page", "/api/public/journals?page=0"},
		{"non-numeric page", "/api/public/journals?page=abc"},
		{"limit too large", "/api/public/journals?limit=500"},
		{"negative limit", "/api/public/journals?limit=-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(t, http.MethodGet, tt.path, nil, nil)
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("Expected 400, got %d", resp.StatusCode)
			}
			env2 := decodeEnvelope(t, resp)
			if env2.Error == nil || env2.Error.Code != CodeValidation {
				t.Fatalf("Expected VALIDATION_ERROR, got %+v", env2.Error)
			}
		})
	}
}

func TestListJournals_Pagination(t *testing.T) {
	env := newTestEnv(t)
	for i := 1; i <= 5; i++ {
		env.seedJournal(t, fmt.Sprintf("entry-%d", i), content.StatusPublished, "", nil)
	}

	resp := env.do(t, http.MethodGet, "/api/public/journals?page=2&limit=2", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	env2 := decodeEnvelope(t, resp)
	var list struct {
		Items      []content.Journal `json:"items"`
		Pagination struct {
			Page       int   `json:"page"`
			Limit      int   `json:"limit"`
			Total      int64 `json:"total"`
			TotalPages int   `json:"totalPages"`
		} `json:"pagination"`
	}
	if err := json.Unmarshal(env2.Data, &list); err != nil {
		t.Fatalf("Failed to decode list: %v", err)
	}

	if len(list.Items) != 2 {
		t.Errorf("Expected 2 items, got %d", len(list.Items))
	}
	if list.Pagination.Total != 5 {
		t.Errorf("Expected total 5, got %d", list.Pagination.Total)
	}
	if list.Pagination.TotalPages != 3 {
		t.Errorf("Expected 3 pages, got %d", list.Pagination.TotalPages)
	}
}

func TestPatchJournal_PublishInvalidatesListings(t *testing.T) {
	env := newTestEnv(t)
	env.seedJournal(t, "draft-post", content.StatusDraft, "go", []string{"web"})

	// Render the public list once so its key exists in the recorder.
	env.do(t, http.MethodGet, "/api/public/journals", nil, nil)

	before := env.recorder.Totals().Misses

	resp := env.do(t, http.MethodPatch, "/api/journals/draft-post",
		map[string]string{"status": "published"}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200 on patch, got %d", resp.StatusCode)
	}

	env2 := decodeEnvelope(t, resp)
	var j content.Journal
	if err := json.Unmarshal(env2.Data, &j); err != nil {
		t.Fatalf("Failed to decode journal: %v", err)
	}
	if j.Status != content.StatusPublished {
		t.Errorf("Expected status published, got %q", j.Status)
	}
	if j.PublishedAt.IsZero() {
		t.Error("Expected publishedAt to be set on publish")
	}

	after := env.recorder.Totals().Misses
	if after <= before {
		t.Errorf("Expected invalidation to record misses, before=%d after=%d", before, after)
	}

	snapshot := env.recorder.Snapshot()
	for _, key := range []string{"journals:list", "journals:detail", "categories:list", "tags:list"} {
		if m, ok := snapshot[key]; !ok || m.Misses == 0 {
			t.Errorf("Expected invalidation miss recorded for %q", key)
		}
	}
}

func TestCreateJournal_Validation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"missing slug", map[string]interface{}{"title": "No Slug"}},
		{"missing title", map[string]interface{}{"slug": "no-title"}},
		{"bad status", map[string]interface{}{"slug": "s", "title": "T", "status": "archived"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(t, http.MethodPost, "/api/journals", tt.body, nil)
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("Expected 400, got %d", resp.StatusCode)
			}
		})
	}

	env.seedJournal(t, "taken", content.StatusDraft, "", nil)
	resp := env.do(t, http.MethodPost, "/api/journals",
		map[string]interface{}{"slug": "taken", "title": "Again"}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("Expected 400 on duplicate slug, got %d", resp.StatusCode)
	}
}

func TestDeleteJournal(t *testing.T) {
	env := newTestEnv(t)
	env.seedJournal(t, "short-lived", content.StatusPublished, "", nil)

	resp := env.do(t, http.MethodDelete, "/api/journals/short-lived", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	resp = env.do(t, http.MethodGet, "/api/public/journals/short-lived", nil, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("Expected 404 after delete, got %d", resp.StatusCode)
	}

	resp = env.do(t, http.MethodDelete, "/api/journals/short-lived", nil, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("Expected 404 on second delete, got %d", resp.StatusCode)
	}
}

func TestListCategoriesAndTags(t *testing.T) {
	env := newTestEnv(t)
	env.seedJournal(t, "a", content.StatusPublished, "go", []string{"web", "cache"})
	env.seedJournal(t, "b", content.StatusDraft, "go", []string{"web"})

	resp := env.do(t, http.MethodGet, "/api/public/categories", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("X-Cache-Config"); got != "category-list" {
		t.Errorf("Expected X-Cache-Config category-list, got %q", got)
	}

	env2 := decodeEnvelope(t, resp)
	var categories []content.Category
	if err := json.Unmarshal(env2.Data, &categories); err != nil {
		t.Fatalf("Failed to decode categories: %v", err)
	}
	if len(categories) != 1 {
		t.Fatalf("Expected 1 category, got %d", len(categories))
	}
	// Counts only consider published entries.
	if categories[0].Count != 1 {
		t.Errorf("Expected category count 1, got %d", categories[0].Count)
	}

	tagResp := env.do(t, http.MethodGet, "/api/public/tags", nil, nil)
	env3 := decodeEnvelope(t, tagResp)
	var tags []content.Tag
	if err := json.Unmarshal(env3.Data, &tags); err != nil {
		t.Fatalf("Failed to decode tags: %v", err)
	}
	if len(tags) != 2 {
		t.Errorf("Expected 2 tags, got %d", len(tags))
	}
}

func TestSearchUsesVolatilePolicy(t *testing.T) {
	env := newTestEnv(t)
	env.seedJournal(t, "searchable", content.StatusPublished, "", nil)

	resp := env.do(t, http.MethodGet, "/api/public/journals?search=searchable", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("X-Cache-Config"); got != "search-results" {
		t.Errorf("Expected X-Cache-Config search-results, got %q", got)
	}
	if cc := resp.Header.Get("Cache-Control"); !strings.Contains(cc, "max-age=120") {
		t.Errorf("Expected max-age=120 for search results, got %q", cc)
	}
}

func TestCacheMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.seedJournal(t, "m", content.StatusPublished, "", nil)

	env.do(t, http.MethodGet, "/api/public/journals", nil, nil)

	resp := env.do(t, http.MethodGet, "/api/cache/metrics", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	env2 := decodeEnvelope(t, resp)
	var metrics struct {
		Summary cache.KeyMetrics            `json:"summary"`
		Keys    map[string]cache.KeyMetrics `json:"keys"`
	}
	if err := json.Unmarshal(env2.Data, &metrics); err != nil {
		t.Fatalf("Failed to decode metrics: %v", err)
	}
	if metrics.Summary.Total == 0 {
		t.Error("Expected non-zero totals after a request")
	}
	if len(metrics.Keys) == 0 {
		t.Error("Expected per-key metrics after a request")
	}
}

func TestClearCacheMetrics(t *testing.T) {
	env := newTestEnv(t)
	env.seedJournal(t, "m", content.StatusPublished, "", nil)
	env.do(t, http.MethodGet, "/api/public/journals", nil, nil)

	resp := env.do(t, http.MethodDelete, "/api/cache/metrics?hours=abc", nil, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("Expected 400 for bad hours, got %d", resp.StatusCode)
	}

	resp = env.do(t, http.MethodDelete, "/api/cache/metrics", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if env.recorder.Len() != 0 {
		t.Errorf("Expected recorder cleared, still has %d entries", env.recorder.Len())
	}
}

func TestWarmCache(t *testing.T) {
	env := newTestEnv(t)
	env.seedJournal(t, "warm-me", content.StatusPublished, "", nil)

	resp := env.do(t, http.MethodPost, "/api/cache/warm",
		map[string]interface{}{"urls": []string{
			"/api/public/journals/warm-me",
			"/api/public/journals/no-such-entry",
		}}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	env2 := decodeEnvelope(t, resp)
	var result struct {
		Warmed []string `json:"warmed"`
		Count  int      `json:"count"`
	}
	if err := json.Unmarshal(env2.Data, &result); err != nil {
		t.Fatalf("Failed to decode warm result: %v", err)
	}

	warmed := make(map[string]bool, len(result.Warmed))
	for _, u := range result.Warmed {
		warmed[u] = true
	}
	if !warmed["/api/public/journals/warm-me"] {
		t.Error("Expected queued URL to be warmed")
	}
	if warmed["/api/public/journals/no-such-entry"] {
		t.Error("404 target must not be reported as warmed")
	}
	for _, popular := range []string{"/api/public/journals?limit=10", "/api/public/categories", "/api/public/tags"} {
		if !warmed[popular] {
			t.Errorf("Expected popular URL %q to be warmed", popular)
		}
	}
}

func TestWarmTargetsListing(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/api/cache/warm", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	env2 := decodeEnvelope(t, resp)
	var data struct {
		Popular []string `json:"popular"`
	}
	if err := json.Unmarshal(env2.Data, &data); err != nil {
		t.Fatalf("Failed to decode warm targets: %v", err)
	}
	if len(data.Popular) != 3 {
		t.Errorf("Expected 3 popular targets, got %d", len(data.Popular))
	}
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/health", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200 from /health, got %d", resp.StatusCode)
	}

	resp = env.do(t, http.MethodGet, "/metrics", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200 from /metrics, got %d", resp.StatusCode)
	}
}
