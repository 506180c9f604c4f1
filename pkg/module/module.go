// Package module mounts self-contained HTTP handlers under single-segment
// URL prefixes, each with its own middleware stack.
package module

import (
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/JaimeStill/book-search/pkg/middleware"
)

// Module is a handler served under a prefix such as "/api".
type Module struct {
	prefix     string
	router     http.Handler
	middleware middleware.System
	build      sync.Once
	handler    http.Handler
}

// New creates a Module. It panics when prefix is not a single segment
// with a leading slash; prefixes are fixed at startup.
func New(prefix string, router http.Handler) *Module {
	if err := validatePrefix(prefix); err != nil {
		panic(err)
	}
	return &Module{
		prefix:     prefix,
		router:     router,
		middleware: middleware.New(),
	}
}

// Prefix returns the mount prefix.
func (m *Module) Prefix() string {
	return m.prefix
}

// Use adds middleware around the module handler. Middleware added after
// the first call to Handler or Serve is ignored.
func (m *Module) Use(mw func(http.Handler) http.Handler) {
	m.middleware.Use(mw)
}

// Handler returns the module handler wrapped in its middleware. The chain
// is built on the first call and reused.
func (m *Module) Handler() http.Handler {
	m.build.Do(func() {
		m.handler = m.middleware.Apply(m.router)
	})
	return m.handler
}

// Serve strips the prefix from the request path and dispatches to Handler.
func (m *Module) Serve(w http.ResponseWriter, req *http.Request) {
	path := strings.TrimPrefix(req.URL.Path, m.prefix)
	if path == "" {
		path = "/"
	}

	r2 := req.Clone(req.Context())
	r2.URL.Path = path
	r2.URL.RawPath = ""

	m.Handler().ServeHTTP(w, r2)
}

func validatePrefix(prefix string) error {
	if prefix == "" {
		return fmt.Errorf("module prefix must not be empty")
	}
	if !strings.HasPrefix(prefix, "/") {
		return fmt.Errorf("module prefix %q must start with /", prefix)
	}
	if prefix == "/" || strings.Count(prefix, "/") != 1 {
		return fmt.Errorf("module prefix %q must be a single path segment", prefix)
	}
	return nil
}
