// Package scalar serves the interactive API reference rendered by Scalar.
package scalar

import (
	"bytes"
	_ "embed"
	"html/template"
	"net/http"

	"github.com/JaimeStill/book-search/pkg/middleware"
	"github.com/JaimeStill/book-search/pkg/module"
)

//go:embed index.html
var indexHTML string

var index = template.Must(template.New("index").Parse(indexHTML))

// NewModule creates the reference module at prefix, loading the OpenAPI
// document from specURL.
func NewModule(prefix, specURL string) (*module.Module, error) {
	var buf bytes.Buffer
	if err := index.Execute(&buf, struct{ SpecURL string }{specURL}); err != nil {
		return nil, err
	}
	page := buf.Bytes()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write(page)
	})

	m := module.New(prefix, mux)
	m.Use(middleware.TrimSlash())
	return m, nil
}
