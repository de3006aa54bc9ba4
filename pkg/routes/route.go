// Package routes declares HTTP endpoints as data so modules can register
// and enumerate them.
package routes

import "net/http"

// Route binds an HTTP method and pattern to a handler.
type Route struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc
}
