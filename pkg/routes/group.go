package routes

import "net/http"

// Group nests routes under a shared prefix. Child prefixes are appended
// to their parent's.
type Group struct {
	Prefix   string
	Routes   []Route
	Children []Group
}

// Walk calls fn for every route in groups with its fully prefixed path.
func Walk(fn func(path string, route Route), groups ...Group) {
	for _, g := range groups {
		walk("", g, fn)
	}
}

func walk(parent string, g Group, fn func(string, Route)) {
	prefix := parent + g.Prefix
	for _, r := range g.Routes {
		fn(prefix+r.Pattern, r)
	}
	for _, child := range g.Children {
		walk(prefix, child, fn)
	}
}

// Register adds every route in groups to mux as "METHOD path".
func Register(mux *http.ServeMux, groups ...Group) {
	Walk(func(path string, r Route) {
		mux.HandleFunc(r.Method+" "+path, r.Handler)
	}, groups...)
}
