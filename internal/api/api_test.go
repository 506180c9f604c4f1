package api_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/JaimeStill/book-search/internal/api"
	"github.com/JaimeStill/book-search/internal/books"
	"github.com/JaimeStill/book-search/internal/config"
	"github.com/JaimeStill/book-search/internal/infrastructure"
	"github.com/JaimeStill/book-search/internal/search"
	"github.com/JaimeStill/book-search/pkg/lifecycle"
	"github.com/JaimeStill/book-search/pkg/middleware"
	"github.com/JaimeStill/book-search/pkg/module"
	"github.com/JaimeStill/book-search/pkg/pagination"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeBooks struct{}

func (f fakeBooks) Handler() *books.Handler {
	return books.NewHandler(f, discard, pagination.Config{DefaultPageSize: 20, MaxPageSize: 100})
}

func (fakeBooks) List(_ context.Context, page pagination.PageRequest, _ books.Filters) (*pagination.PageResult[books.Book], error) {
	result := pagination.NewPageResult([]books.Book{{ID: "1", Title: "One"}}, 1, page.Page, page.PageSize)
	return &result, nil
}

func (fakeBooks) Find(_ context.Context, id string) (*books.Book, error) {
	if id != "1" {
		return nil, books.ErrNotFound
	}
	return &books.Book{ID: "1", Title: "One"}, nil
}

func (fakeBooks) Recommendations(context.Context, string, int) ([]books.Recommendation, error) {
	return []books.Recommendation{}, nil
}

func (fakeBooks) Sync(context.Context) (books.SyncResult, error) { return books.SyncResult{}, nil }

func (fakeBooks) Start(*lifecycle.Coordinator) error { return nil }

type fakeSearch struct{}

func (f fakeSearch) Handler() *search.Handler {
	return search.NewHandler(f, discard, 1<<20, nil)
}

func (fakeSearch) Image(context.Context, []byte, int) ([]books.Recommendation, error) {
	return []books.Recommendation{}, nil
}

func (fakeSearch) Document(context.Context, string, int) ([]books.Recommendation, error) {
	return []books.Recommendation{{ID: "1", Title: "One", Similarity: 0.9}}, nil
}

func newServer(t *testing.T) (*httptest.Server, *prometheus.Registry) {
	t.Helper()

	cfg := &config.Config{Version: "test", Domain: "http://localhost:8080"}
	if err := cfg.API.Finalize(); err != nil {
		t.Fatalf("api config: %v", err)
	}

	reg := prometheus.NewRegistry()
	runtime := &api.Runtime{
		Infrastructure: &infrastructure.Infrastructure{Logger: discard, Registry: reg},
		Pagination:     cfg.API.Pagination,
		Metrics:        middleware.NewMetrics("test", reg),
	}
	domain := &api.Domain{Books: fakeBooks{}, Search: fakeSearch{}}

	m, err := api.NewModule(cfg, runtime, domain)
	if err != nil {
		t.Fatalf("NewModule() error = %v", err)
	}

	router := module.NewRouter()
	router.Mount(m)
	return httptest.NewServer(router), reg
}

func TestModule_OpenAPI(t *testing.T) {
	srv, _ := newServer(t)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/openapi.json")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var doc struct {
		Info struct {
			Title   string `json:"title"`
			Version string `json:"version"`
		} `json:"info"`
		Paths      map[string]map[string]any `json:"paths"`
		Components struct {
			Schemas map[string]any `json:"schemas"`
		} `json:"components"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		t.Fatal(err)
	}

	if doc.Info.Version != "test" {
		t.Errorf("version = %q, want test", doc.Info.Version)
	}

	want := map[string]string{
		"/api/books":                      "get",
		"/api/books/{id}":                 "get",
		"/api/books/{id}/recommendations": "get",
		"/api/search/image":               "post",
		"/api/search/document":            "post",
	}
	for path, method := range want {
		if _, ok := doc.Paths[path][method]; !ok {
			t.Errorf("missing %s %s", method, path)
		}
	}

	for _, schema := range []string{"Book", "BookPageResult", "Recommendation", "SearchResults", "DocumentRequest"} {
		if _, ok := doc.Components.Schemas[schema]; !ok {
			t.Errorf("missing schema %s", schema)
		}
	}
}

func TestModule_Routes(t *testing.T) {
	srv, reg := newServer(t)
	defer srv.Close()

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"list", "GET", "/api/books", "", http.StatusOK},
		{"find", "GET", "/api/books/1", "", http.StatusOK},
		{"find trailing slash", "GET", "/api/books/1/", "", http.StatusOK},
		{"find missing", "GET", "/api/books/2", "", http.StatusNotFound},
		{"document search", "POST", "/api/search/document", `{"query": "whale"}`, http.StatusOK},
		{"unknown", "GET", "/api/nothing", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, srv.URL+tt.path, strings.NewReader(tt.body))
			if err != nil {
				t.Fatal(err)
			}
			if tt.body != "" {
				req.Header.Set("Content-Type", "application/json")
			}

			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			if resp.Header.Get(middleware.RequestIDHeader) == "" {
				t.Error("missing request id header")
			}
		})
	}

	n, err := testutil.GatherAndCount(reg, "test_http_requests_total")
	if err != nil {
		t.Fatalf("GatherAndCount() error = %v", err)
	}
	if n < 4 {
		t.Errorf("request series = %d, want at least 4", n)
	}
}
