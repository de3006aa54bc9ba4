// Package middleware provides the HTTP middleware shared by mounted modules.
package middleware

import "net/http"

// Middleware wraps a handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Chain is an ordered middleware stack. The first entry added is the
// outermost wrapper and sees the request first.
type Chain []Middleware

// Use appends mw to the chain.
func (c *Chain) Use(mw ...Middleware) {
	*c = append(*c, mw...)
}

// Then wraps handler with every middleware in the chain.
func (c Chain) Then(handler http.Handler) http.Handler {
	for i := len(c) - 1; i >= 0; i-- {
		handler = c[i](handler)
	}
	return handler
}
