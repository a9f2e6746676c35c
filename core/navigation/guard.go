// Package navigation holds the client route table and the action throttle.
package navigation

import "strings"

// DefaultRoute is where unknown paths are sent.
const DefaultRoute = "/dashboard"

// Routes are the client routes served by the single page app.
var Routes = []string{
	"/",
	"/login",
	"/dashboard",
	"/payers",
	"/payers/:id",
	"/debtors",
	"/payments",
	"/faculties",
	"/groups",
	"/settings",
	"/stats",
}

// Guard resolves requested paths against a route table.
type Guard struct {
	routes       [][]string
	defaultRoute string
}

// NewGuard builds a Guard. Route segments starting with ":" match any non-empty segment.
func NewGuard(defaultRoute string, routes ...string) *Guard {
	g := &Guard{defaultRoute: defaultRoute}
	for _, r := range routes {
		g.routes = append(g.routes, split(r))
	}
	return g
}

// DefaultGuard guards Routes, falling back to DefaultRoute.
func DefaultGuard() *Guard {
	return NewGuard(DefaultRoute, Routes...)
}

func (g *Guard) Default() string { return g.defaultRoute }

// Resolve returns path when it matches a known route, and the default route otherwise.
func (g *Guard) Resolve(path string) (string, bool) {
	if g.Match(path) {
		return path, true
	}
	return g.defaultRoute, false
}

func (g *Guard) Match(path string) bool {
	segs := split(path)
	for _, r := range g.routes {
		if matches(r, segs) {
			return true
		}
	}
	return false
}

func matches(route, segs []string) bool {
	if len(route) != len(segs) {
		return false
	}
	for i, rs := range route {
		if strings.HasPrefix(rs, ":") {
			if segs[i] == "" {
				return false
			}
			continue
		}
		if rs != segs[i] {
			return false
		}
	}
	return true
}

func split(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}
