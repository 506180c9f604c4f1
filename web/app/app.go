// Package app serves the browser client: one server-rendered shell per
// view in the route table, the client bundle, and the dataset files the
// views display.
package app

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/JaimeStill/book-search/pkg/middleware"
	"github.com/JaimeStill/book-search/pkg/web"
)

//go:embed dist/*
var distFS embed.FS

//go:embed public/*
var publicFS embed.FS

//go:embed public/site.webmanifest
var manifest []byte

//go:embed server/layouts/*
var layoutFS embed.FS

//go:embed server/views/*
var viewFS embed.FS

const layout = "app.html"

var publicFiles = []string{
	"favicon.svg",
}

var views = []web.ViewDef{
	{Name: "home", Route: "/{$}", Template: "home.html", Title: "Home", Bundle: "app"},
	{Name: "image-search", Route: "/search-image", Template: "image-search.html", Title: "Search by Cover", Bundle: "app"},
	{Name: "document-search", Route: "/search-document", Template: "document-search.html", Title: "Search by Text", Bundle: "app"},
	{Name: "book-detail", Route: "/book/{id}", Template: "book-detail.html", Title: "Book", Bundle: "app"},
}

var notFoundView = web.ViewDef{Name: "not-found", Template: "404.html", Title: "Not Found", Bundle: "app"}

// Options configure the app handler. Data is the dataset served under
// /data; nil disables it. Logger and Metrics are optional.
type Options struct {
	APIBase string
	Data    fs.FS
	Logger  *slog.Logger
	Metrics *middleware.Metrics
}

// App is the client application handler.
type App struct {
	table     *web.ViewTable
	templates *web.TemplateSet
	handler   http.Handler
}

// NewTable builds the route table of client views.
func NewTable() (*web.ViewTable, error) {
	return web.NewViewTable(views)
}

// New parses the view templates and builds the handler.
func New(opts Options) (*App, error) {
	table, err := NewTable()
	if err != nil {
		return nil, err
	}

	if opts.APIBase == "" {
		opts.APIBase = "/api"
	}

	funcs := template.FuncMap{
		"url": func(name string, pairs ...string) (string, error) {
			if len(pairs)%2 != 0 {
				return "", fmt.Errorf("url %s: odd number of parameter arguments", name)
			}
			params := make(map[string]string, len(pairs)/2)
			for i := 0; i < len(pairs); i += 2 {
				params[pairs[i]] = pairs[i+1]
			}
			return table.URL(name, params)
		},
		"asset": func(name string) string { return "/dist/" + name },
		"api":   func() string { return opts.APIBase },
	}

	ts, err := web.NewTemplateSet(
		layoutFS,
		viewFS,
		"server/layouts/*.html",
		"server/views",
		"",
		append(table.Views(), notFoundView),
		funcs,
	)
	if err != nil {
		return nil, err
	}

	a := &App{table: table, templates: ts}
	a.handler = a.buildHandler(opts)
	return a, nil
}

// Table returns the route table.
func (a *App) Table() *web.ViewTable { return a.table }

// Handler returns the app handler wrapped in its middleware.
func (a *App) Handler() http.Handler { return a.handler }

func (a *App) buildHandler(opts Options) http.Handler {
	notFound := a.templates.ErrorHandler(layout, notFoundView, http.StatusNotFound)

	r := web.NewRouter()
	r.SetFallback(func(w http.ResponseWriter, req *http.Request) {
		m, ok := a.table.Resolve(req.URL.EscapedPath())
		if !ok {
			notFound(w, req)
			return
		}
		if req.Method != http.MethodGet && req.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		req.Pattern = "GET " + m.View.Route
		a.templates.ServeMatch(w, layout, m)
	})

	r.HandleFunc("GET /dist/", web.DistServer(distFS, "dist", "/dist"))

	for _, route := range web.PublicFileRoutes(publicFS, "public", publicFiles...) {
		r.HandleFunc(route.Method+" "+route.Pattern, route.Handler)
	}
	r.HandleFunc("GET /site.webmanifest", web.ServeEmbeddedFile(manifest, "application/manifest+json"))

	if opts.Data != nil {
		r.HandleFunc("GET /data/{path...}", dataHandler(opts.Data, notFound))
	}

	mw := middleware.New()
	mw.Use(middleware.TrimSlash())
	if opts.Logger != nil {
		mw.Use(middleware.Logger(opts.Logger.With("module", "app")))
	}
	if opts.Metrics != nil {
		mw.Use(opts.Metrics.Middleware("/*"))
	}
	return mw.Apply(r)
}

// dataHandler serves regular files from fsys. Directories and invalid
// paths are answered with notFound.
func dataHandler(fsys fs.FS, notFound http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("path")
		if !fs.ValidPath(name) {
			notFound(w, r)
			return
		}

		info, err := fs.Stat(fsys, name)
		if err != nil || info.IsDir() {
			notFound(w, r)
			return
		}

		http.ServeFileFS(w, r, fsys, name)
	}
}
