package web

import (
	"bytes"
	"io/fs"
	"net/http"
	"path"
	"time"
)

// PublicRoute is a GET route for a single public file.
type PublicRoute struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc
}

// DistServer serves the files under subdir of fsys at URL prefix.
func DistServer(fsys fs.FS, subdir, prefix string) http.HandlerFunc {
	sub, err := fs.Sub(fsys, subdir)
	if err != nil {
		return http.NotFound
	}
	server := http.StripPrefix(prefix, http.FileServerFS(sub))
	return server.ServeHTTP
}

// PublicFile serves one file from subdir of fsys, with its content type
// detected from the name.
func PublicFile(fsys fs.FS, subdir, name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := fs.ReadFile(fsys, path.Join(subdir, name))
		if err != nil {
			http.NotFound(w, r)
			return
		}
		http.ServeContent(w, r, name, time.Time{}, bytes.NewReader(data))
	}
}

// PublicFileRoutes returns a root-level GET route for each named file.
func PublicFileRoutes(fsys fs.FS, subdir string, names ...string) []PublicRoute {
	routes := make([]PublicRoute, 0, len(names))
	for _, name := range names {
		routes = append(routes, PublicRoute{
			Method:  http.MethodGet,
			Pattern: "/" + name,
			Handler: PublicFile(fsys, subdir, name),
		})
	}
	return routes
}

// ServeEmbeddedFile serves data with a fixed content type.
func ServeEmbeddedFile(data []byte, contentType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		w.Write(data)
	}
}
