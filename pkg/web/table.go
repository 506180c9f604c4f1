package web

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	ErrUnknownView  = errors.New("unknown view")
	ErrMissingParam = errors.New("missing route parameter")
)

// Match is the result of resolving a path against a ViewTable.
type Match struct {
	View   ViewDef
	Params map[string]string
}

// ViewTable is an immutable, validated set of views. It resolves paths to
// views and builds paths from view names. Safe for concurrent use.
type ViewTable struct {
	views  []ViewDef
	byName map[string]int
	routes []compiledRoute
}

type compiledRoute struct {
	segments []segment
	literals int
}

type segment struct {
	literal string
	param   string
}

// NewViewTable validates views and compiles their routes. Names and routes
// must be unique and non-empty, and routes must start with "/". Parameter
// segments are written {name}; "/{$}" matches the root exactly.
func NewViewTable(views []ViewDef) (*ViewTable, error) {
	t := &ViewTable{
		views:  make([]ViewDef, len(views)),
		byName: make(map[string]int, len(views)),
		routes: make([]compiledRoute, len(views)),
	}
	copy(t.views, views)

	seenRoutes := make(map[string]string, len(views))

	for i, v := range t.views {
		if v.Name == "" {
			return nil, fmt.Errorf("view %d: name required", i)
		}
		if _, dup := t.byName[v.Name]; dup {
			return nil, fmt.Errorf("view %q: duplicate name", v.Name)
		}
		if !strings.HasPrefix(v.Route, "/") {
			return nil, fmt.Errorf("view %q: route %q must start with /", v.Name, v.Route)
		}

		route, err := compileRoute(v.Route)
		if err != nil {
			return nil, fmt.Errorf("view %q: %w", v.Name, err)
		}

		shape := route.shape()
		if other, dup := seenRoutes[shape]; dup {
			return nil, fmt.Errorf("view %q: route %q duplicates view %q", v.Name, v.Route, other)
		}
		seenRoutes[shape] = v.Name

		t.byName[v.Name] = i
		t.routes[i] = route
	}

	return t, nil
}

// Views returns the views in declaration order.
func (t *ViewTable) Views() []ViewDef {
	out := make([]ViewDef, len(t.views))
	copy(out, t.views)
	return out
}

// Lookup finds a view by name.
func (t *ViewTable) Lookup(name string) (ViewDef, bool) {
	i, ok := t.byName[name]
	if !ok {
		return ViewDef{}, false
	}
	return t.views[i], true
}

// Resolve finds the view that serves path and binds its parameters.
// When several routes match, the one with the most literal segments wins.
func (t *ViewTable) Resolve(path string) (Match, bool) {
	parts, ok := splitPath(path)
	if !ok {
		return Match{}, false
	}

	best := -1
	var bestParams map[string]string

	for i, route := range t.routes {
		params, ok := route.match(parts)
		if !ok {
			continue
		}
		if best < 0 || route.literals > t.routes[best].literals {
			best = i
			bestParams = params
		}
	}

	if best < 0 {
		return Match{}, false
	}
	return Match{View: t.views[best], Params: bestParams}, true
}

// URL builds the path for the named view, escaping parameter values.
// Parameters not used by the route are ignored.
func (t *ViewTable) URL(name string, params map[string]string) (string, error) {
	i, ok := t.byName[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownView, name)
	}

	route := t.routes[i]
	if len(route.segments) == 0 {
		return "/", nil
	}

	var b strings.Builder
	for _, seg := range route.segments {
		b.WriteByte('/')
		if seg.param == "" {
			b.WriteString(seg.literal)
			continue
		}

		v, ok := params[seg.param]
		if !ok || v == "" {
			return "", fmt.Errorf("%w: %s requires %q", ErrMissingParam, name, seg.param)
		}
		b.WriteString(url.PathEscape(v))
	}
	return b.String(), nil
}

func compileRoute(pattern string) (compiledRoute, error) {
	if pattern == "/" || pattern == "/{$}" {
		return compiledRoute{}, nil
	}

	raw := strings.Split(strings.TrimPrefix(pattern, "/"), "/")
	route := compiledRoute{segments: make([]segment, 0, len(raw))}
	names := make(map[string]bool)

	for _, s := range raw {
		switch {
		case s == "":
			return compiledRoute{}, fmt.Errorf("route %q has an empty segment", pattern)
		case strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}"):
			name := s[1 : len(s)-1]
			if name == "" || name == "$" || strings.ContainsAny(name, "{}.") {
				return compiledRoute{}, fmt.Errorf("route %q has an invalid parameter %q", pattern, s)
			}
			if names[name] {
				return compiledRoute{}, fmt.Errorf("route %q repeats parameter %q", pattern, name)
			}
			names[name] = true
			route.segments = append(route.segments, segment{param: name})
		case strings.ContainsAny(s, "{}"):
			return compiledRoute{}, fmt.Errorf("route %q has a malformed segment %q", pattern, s)
		default:
			route.segments = append(route.segments, segment{literal: s})
			route.literals++
		}
	}

	return route, nil
}

// shape identifies routes that match the same paths regardless of
// parameter names.
func (r compiledRoute) shape() string {
	if len(r.segments) == 0 {
		return "/"
	}
	var b strings.Builder
	for _, seg := range r.segments {
		b.WriteByte('/')
		if seg.param != "" {
			b.WriteString("{}")
		} else {
			b.WriteString(seg.literal)
		}
	}
	return b.String()
}

func (r compiledRoute) match(parts []string) (map[string]string, bool) {
	if len(parts) != len(r.segments) {
		return nil, false
	}

	var params map[string]string
	for i, seg := range r.segments {
		if seg.param == "" {
			if parts[i] != seg.literal {
				return nil, false
			}
			continue
		}

		v, err := url.PathUnescape(parts[i])
		if err != nil || v == "" {
			return nil, false
		}
		if params == nil {
			params = make(map[string]string)
		}
		params[seg.param] = v
	}
	return params, true
}

// splitPath returns the segments of an absolute path. The root yields no
// segments; empty segments (including a trailing slash) do not resolve.
func splitPath(path string) ([]string, bool) {
	if !strings.HasPrefix(path, "/") {
		return nil, false
	}
	if path == "/" {
		return nil, true
	}

	parts := strings.Split(path[1:], "/")
	for _, p := range parts {
		if p == "" {
			return nil, false
		}
	}
	return parts, true
}
