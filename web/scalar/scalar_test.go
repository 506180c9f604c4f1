package scalar_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/JaimeStill/book-search/pkg/module"
	"github.com/JaimeStill/book-search/web/scalar"
)

func TestModule(t *testing.T) {
	m, err := scalar.NewModule("/scalar", "/api/openapi.json")
	if err != nil {
		t.Fatalf("NewModule() error = %v", err)
	}

	router := module.NewRouter()
	router.Mount(m)

	tests := []struct {
		path   string
		status int
	}{
		{"/scalar", http.StatusOK},
		{"/scalar/", http.StatusOK},
		{"/scalar/missing", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if tt.status == http.StatusOK && !strings.Contains(rec.Body.String(), `data-url="/api/openapi.json"`) {
				t.Error("page does not reference the OpenAPI document")
			}
		})
	}
}
