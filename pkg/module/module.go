// Package module mounts self-contained HTTP handlers under single-segment
// path prefixes, each with its own middleware chain.
package module

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/JaimeStill/concierge/pkg/middleware"
)

// Module serves an inner router beneath a prefix such as "/api". The
// inner router sees paths with the prefix removed.
type Module struct {
	prefix string
	router http.Handler
	chain  middleware.Chain
}

// New creates a Module. It panics when prefix is empty, lacks a leading
// slash, or has more than one segment.
func New(prefix string, router http.Handler) *Module {
	if err := validatePrefix(prefix); err != nil {
		panic(err)
	}
	return &Module{prefix: prefix, router: router}
}

// Prefix returns the module's path prefix.
func (m *Module) Prefix() string {
	return m.prefix
}

// Use appends middleware to the module's chain. The first middleware
// added is outermost.
func (m *Module) Use(mw middleware.Middleware) {
	m.chain.Use(mw)
}

// Handler returns the inner router wrapped with the module's middleware.
func (m *Module) Handler() http.Handler {
	return m.chain.Then(m.router)
}

// ServeHTTP strips the prefix and dispatches to the wrapped router.
func (m *Module) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	path := strings.TrimPrefix(req.URL.Path, m.prefix)
	if path == "" {
		path = "/"
	}

	inner := req.Clone(req.Context())
	inner.URL.Path = path
	inner.URL.RawPath = ""

	m.Handler().ServeHTTP(w, inner)
}

func validatePrefix(prefix string) error {
	switch {
	case prefix == "":
		return fmt.Errorf("module prefix cannot be empty")
	case !strings.HasPrefix(prefix, "/"):
		return fmt.Errorf("module prefix must start with /: %s", prefix)
	case strings.Count(prefix, "/") != 1:
		return fmt.Errorf("module prefix must be a single path segment: %s", prefix)
	}
	return nil
}

// Router dispatches to mounted modules by first path segment and falls
// back to a native ServeMux for everything else.
type Router struct {
	modules map[string]*Module
	native  *http.ServeMux
}

// NewRouter creates an empty Router.
func NewRouter() *Router {
	return &Router{
		modules: make(map[string]*Module),
		native:  http.NewServeMux(),
	}
}

// HandleNative registers a handler on the fallback mux.
func (r *Router) HandleNative(pattern string, handler http.HandlerFunc) {
	r.native.HandleFunc(pattern, handler)
}

// Mount registers m under its prefix. It panics when the prefix is
// already mounted.
func (r *Router) Mount(m *Module) {
	if _, exists := r.modules[m.prefix]; exists {
		panic(fmt.Sprintf("module prefix already mounted: %s", m.prefix))
	}
	r.modules[m.prefix] = m
}

// ServeHTTP trims a trailing slash and dispatches by first path segment.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if p := req.URL.Path; len(p) > 1 && strings.HasSuffix(p, "/") {
		req.URL.Path = strings.TrimSuffix(p, "/")
	}

	if m, ok := r.modules[firstSegment(req.URL.Path)]; ok {
		m.ServeHTTP(w, req)
		return
	}
	r.native.ServeHTTP(w, req)
}

func firstSegment(path string) string {
	rest := strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		rest = rest[:i]
	}
	return "/" + rest
}
