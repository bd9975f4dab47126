package middleware

import (
	"fmt"
	"net/http"
	"strings"
)

// RouteMatcher decides whether a request targets a protected route. Patterns
// are compiled once; matching allocates nothing.
//
// A pattern is a path template, optionally prefixed with a method:
//
//	/session/active
//	POST /session/profile
//	/playlists/:id/tracks
//
// Literal segments match exactly. A ":name" segment matches any single
// non-empty segment. Segment counts must be equal, so "/a/:x/b" matches
// "/a/123/b" but not "/a/1/2/b". A trailing slash is ignored.
type RouteMatcher struct {
	routes []compiledRoute
}

type compiledRoute struct {
	method   string
	pattern  string
	segments []routeSegment
}

type routeSegment struct {
	literal string
	param   bool
}

// NewRouteMatcher compiles patterns. An empty list protects nothing.
func NewRouteMatcher(patterns []string) (*RouteMatcher, error) {
	m := &RouteMatcher{routes: make([]compiledRoute, 0, len(patterns))}
	for _, p := range patterns {
		r, err := compileRoute(p)
		if err != nil {
			return nil, err
		}
		m.routes = append(m.routes, r)
	}
	return m, nil
}

// MustRouteMatcher is NewRouteMatcher for static pattern lists.
func MustRouteMatcher(patterns ...string) *RouteMatcher {
	m, err := NewRouteMatcher(patterns)
	if err != nil {
		panic(err)
	}
	return m
}

func compileRoute(pattern string) (compiledRoute, error) {
	raw := strings.TrimSpace(pattern)
	r := compiledRoute{pattern: raw}

	if method, path, ok := strings.Cut(raw, " "); ok {
		method = strings.ToUpper(strings.TrimSpace(method))
		if !validMethod(method) {
			return compiledRoute{}, fmt.Errorf("route %q: unknown method %q", pattern, method)
		}
		r.method = method
		raw = strings.TrimSpace(path)
	}

	if !strings.HasPrefix(raw, "/") {
		return compiledRoute{}, fmt.Errorf("route %q: path must start with /", pattern)
	}

	for _, seg := range splitPath(raw) {
		if seg == "" {
			return compiledRoute{}, fmt.Errorf("route %q: empty segment", pattern)
		}
		if strings.HasPrefix(seg, ":") {
			if len(seg) == 1 {
				return compiledRoute{}, fmt.Errorf("route %q: unnamed parameter", pattern)
			}
			r.segments = append(r.segments, routeSegment{param: true})
			continue
		}
		r.segments = append(r.segments, routeSegment{literal: seg})
	}
	return r, nil
}

func validMethod(m string) bool {
	switch m {
	case http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
		http.MethodPatch, http.MethodDelete, http.MethodOptions:
		return true
	}
	return false
}

// Match reports whether method and path hit any protected route.
func (m *RouteMatcher) Match(method, path string) bool {
	if m == nil {
		return false
	}
	for i := range m.routes {
		if m.routes[i].match(method, path) {
			return true
		}
	}
	return false
}

// Patterns returns the source patterns in compile order.
func (m *RouteMatcher) Patterns() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.routes))
	for i := range m.routes {
		out[i] = m.routes[i].pattern
	}
	return out
}

func (r *compiledRoute) match(method, path string) bool {
	if r.method != "" && r.method != method {
		return false
	}

	path = trimPath(path)
	for _, seg := range r.segments {
		if path == "" {
			return false
		}
		var cur string
		if i := strings.IndexByte(path, '/'); i >= 0 {
			cur, path = path[:i], path[i+1:]
		} else {
			cur, path = path, ""
		}

		if cur == "" {
			return false
		}
		if !seg.param && cur != seg.literal {
			return false
		}
	}
	return path == ""
}

// trimPath drops the leading slash and one trailing slash.
func trimPath(p string) string {
	p = strings.TrimPrefix(p, "/")
	return strings.TrimSuffix(p, "/")
}

func splitPath(p string) []string {
	p = trimPath(p)
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
