package module

import (
	"net/http"
	"strings"
)

// Router dispatches to mounted modules by first path segment and to a
// native ServeMux for everything else.
type Router struct {
	native  *http.ServeMux
	modules map[string]*Module
}

// NewRouter creates an empty Router.
func NewRouter() *Router {
	return &Router{
		native:  http.NewServeMux(),
		modules: make(map[string]*Module),
	}
}

// HandleNative registers a ServeMux pattern outside any module.
func (r *Router) HandleNative(pattern string, handler http.HandlerFunc) {
	r.native.HandleFunc(pattern, handler)
}

// HandleNativeHandler is HandleNative for an http.Handler.
func (r *Router) HandleNativeHandler(pattern string, handler http.Handler) {
	r.native.Handle(pattern, handler)
}

// Mount registers m under its prefix. Module paths are normalized by
// trimming trailing slashes before dispatch.
func (r *Router) Mount(m *Module) {
	r.modules[m.prefix] = m
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if m, ok := r.modules[firstSegment(req.URL.Path)]; ok {
		path := req.URL.Path
		if len(path) > 1 {
			path = strings.TrimRight(path, "/")
		}
		if path != req.URL.Path {
			req = req.Clone(req.Context())
			req.URL.Path = path
			req.URL.RawPath = ""
		}
		m.Serve(w, req)
		return
	}

	r.native.ServeHTTP(w, req)
}

func firstSegment(path string) string {
	if path == "" || path[0] != '/' {
		return ""
	}
	rest := path[1:]
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		rest = rest[:i]
	}
	if rest == "" {
		return ""
	}
	return "/" + rest
}
