package edge

import "strings"

// Route binds a path pattern to a worker index. See RouteIndex for the
// priority and matching rules.
type Route struct {
	Pattern     string
	WorkerIndex int
	IsWildcard  bool
	PrefixLen   int
}

// newRoute builds a Route from a raw pattern string, per the grammar in
// SPEC_FULL.md section 6.2: a trailing "*" marks a prefix wildcard.
func newRoute(pattern string, workerIndex int) Route {
	if strings.HasSuffix(pattern, "*") {
		return Route{
			Pattern:     pattern,
			WorkerIndex: workerIndex,
			IsWildcard:  true,
			PrefixLen:   len(pattern) - 1,
		}
	}
	return Route{
		Pattern:     pattern,
		WorkerIndex: workerIndex,
		IsWildcard:  false,
		PrefixLen:   len(pattern),
	}
}

// RouteIndex is an ordered, priority-sorted sequence of Routes. Priority is
// (non-wildcard before wildcard) then (longer prefix before shorter
// prefix); ties keep insertion order (stable sort).
type RouteIndex struct {
	routes []Route
}

// NewRouteIndex returns an empty RouteIndex.
func NewRouteIndex() *RouteIndex {
	return &RouteIndex{}
}

// less reports whether a is strictly higher priority than b.
func (ri *RouteIndex) less(a, b Route) bool {
	if a.IsWildcard != b.IsWildcard {
		return !a.IsWildcard
	}
	return a.PrefixLen > b.PrefixLen
}

// Add inserts a route, maintaining priority order with stable tie-breaking
// on insertion order. Duplicate patterns are allowed; the earlier-inserted
// one is matched first.
func (ri *RouteIndex) Add(pattern string, workerIndex int) {
	r := newRoute(pattern, workerIndex)

	pos := len(ri.routes)
	for i, existing := range ri.routes {
		if ri.less(r, existing) {
			pos = i
			break
		}
	}

	ri.routes = append(ri.routes, Route{})
	copy(ri.routes[pos+1:], ri.routes[pos:])
	ri.routes[pos] = r
}

// Match returns the worker index of the first route (in priority order)
// whose pattern matches path, or -1 if none match.
func (ri *RouteIndex) Match(path string) int {
	for _, r := range ri.routes {
		if r.IsWildcard {
			if strings.HasPrefix(path, r.Pattern[:r.PrefixLen]) {
				return r.WorkerIndex
			}
			continue
		}
		if path == r.Pattern {
			return r.WorkerIndex
		}
	}
	return -1
}

// Len returns the number of registered routes.
func (ri *RouteIndex) Len() int {
	return len(ri.routes)
}
