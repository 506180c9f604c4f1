// Package web serves server-rendered views from pre-parsed Go templates.
// Views are declared once in a ViewTable; templates are parsed at startup
// so a broken template fails the process rather than a request.
package web

import (
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
)

// ViewDef binds a named route to the template that renders it.
type ViewDef struct {
	Name     string
	Route    string
	Template string
	Title    string
	Bundle   string
}

// ViewData is passed to every view template. BasePath prefixes generated
// URLs; Params holds the route parameters bound for this request.
type ViewData struct {
	Name     string
	Title    string
	Bundle   string
	BasePath string
	Params   map[string]string
	Data     any
}

// TemplateSet holds one parsed template tree per view: the shared layouts
// cloned and extended with the view's own template.
type TemplateSet struct {
	views    map[string]*template.Template
	basePath string
}

// NewTemplateSet parses the layouts matching layoutGlob and, for each view,
// a clone of them extended with the view template from viewSubdir.
func NewTemplateSet(layoutFS, viewFS fs.FS, layoutGlob, viewSubdir, basePath string, views []ViewDef, funcs template.FuncMap) (*TemplateSet, error) {
	layouts, err := template.New("").Funcs(funcs).ParseFS(layoutFS, layoutGlob)
	if err != nil {
		return nil, fmt.Errorf("parse layouts: %w", err)
	}

	viewSub, err := fs.Sub(viewFS, viewSubdir)
	if err != nil {
		return nil, err
	}

	parsed := make(map[string]*template.Template, len(views))
	for _, v := range views {
		if _, ok := parsed[v.Template]; ok {
			continue
		}

		t, err := layouts.Clone()
		if err != nil {
			return nil, fmt.Errorf("clone layouts for %s: %w", v.Template, err)
		}
		if _, err := t.ParseFS(viewSub, v.Template); err != nil {
			return nil, fmt.Errorf("parse template %s: %w", v.Template, err)
		}
		parsed[v.Template] = t
	}

	return &TemplateSet{
		views:    parsed,
		basePath: basePath,
	}, nil
}

// BasePath returns the base path stamped into every ViewData.
func (ts *TemplateSet) BasePath() string {
	return ts.basePath
}

// Render executes layout from the template tree built for view.
func (ts *TemplateSet) Render(w http.ResponseWriter, layout, view string, data ViewData) error {
	t, ok := ts.views[view]
	if !ok {
		return fmt.Errorf("template not found: %s", view)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return t.ExecuteTemplate(w, layout, data)
}

// ServeMatch renders the view of a resolved Match with its bound parameters.
func (ts *TemplateSet) ServeMatch(w http.ResponseWriter, layout string, m Match) {
	data := ts.viewData(m.View)
	data.Params = m.Params

	if err := ts.Render(w, layout, m.View.Template, data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// ErrorHandler renders view with the given status code.
func (ts *TemplateSet) ErrorHandler(layout string, view ViewDef, status int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, ok := ts.views[view.Template]
		if !ok {
			http.Error(w, http.StatusText(status), status)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		t.ExecuteTemplate(w, layout, ts.viewData(view))
	}
}

func (ts *TemplateSet) viewData(view ViewDef) ViewData {
	return ViewData{
		Name:     view.Name,
		Title:    view.Title,
		Bundle:   view.Bundle,
		BasePath: ts.basePath,
	}
}
