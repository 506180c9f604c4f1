// Package routes registers groups of handlers on a ServeMux and describes
// them in an OpenAPI specification in the same pass.
package routes

import (
	"net/http"

	"github.com/JaimeStill/book-search/pkg/openapi"
)

// Route is a single endpoint within a Group.
type Route struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc
	OpenAPI *openapi.Operation
}

// Group represents a collection of routes under a common URL prefix.
// Groups can contain child groups for hierarchical route organization.
type Group struct {
	Prefix      string
	Tags        []string
	Description string
	Routes      []Route
	Children    []Group
	Schemas     map[string]*openapi.Schema
}

// AddToSpec documents the group's routes under basePath. Routes without an
// operation are left undocumented; operations without tags inherit the
// group's.
func (g Group) AddToSpec(basePath string, spec *openapi.Spec) {
	g.addToSpec(basePath, spec)
}

func (g Group) addToSpec(prefix string, spec *openapi.Spec) {
	full := prefix + g.Prefix

	if len(g.Schemas) > 0 {
		spec.Components.AddSchemas(g.Schemas)
	}

	for _, r := range g.Routes {
		if r.OpenAPI == nil {
			continue
		}
		if len(r.OpenAPI.Tags) == 0 {
			r.OpenAPI.Tags = g.Tags
		}
		spec.AddOperation(r.Method, full+r.Pattern, r.OpenAPI)
	}

	for _, child := range g.Children {
		child.addToSpec(full, spec)
	}
}

// Register mounts every group on mux relative to the module root and adds
// them to spec under basePath.
func Register(mux *http.ServeMux, basePath string, spec *openapi.Spec, groups ...Group) {
	for _, g := range groups {
		g.register(mux, "")
		g.AddToSpec(basePath, spec)
	}
}

func (g Group) register(mux *http.ServeMux, prefix string) {
	full := prefix + g.Prefix
	for _, r := range g.Routes {
		mux.HandleFunc(r.Method+" "+full+r.Pattern, r.Handler)
	}
	for _, child := range g.Children {
		child.register(mux, full)
	}
}
