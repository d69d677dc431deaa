// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package route

import (
	"net/http"
	"strings"
)

// AuthPolicy states whether a route requires authentication.
type AuthPolicy int

const (
	// AuthDefault defers to the compile time default, see [DefaultAuth].
	AuthDefault AuthPolicy = iota

	// AuthRequired consults the authenticator before the handler runs.
	AuthRequired

	// AuthNone serves the route without authentication.
	AuthNone
)

// String implements the [fmt.Stringer] interface.
func (p AuthPolicy) String() string {
	switch p {
	case AuthDefault:
		return "default"
	case AuthRequired:
		return "required"
	case AuthNone:
		return "none"
	default:
		return "unknown"
	}
}

func (p AuthPolicy) required(def bool) bool {
	switch p {
	case AuthRequired:
		return true
	case AuthNone:
		return false
	default:
		return def
	}
}

// Docs holds the documentation metadata of a route.
type Docs struct {
	// Tag groups operations in the documentation. Defaults to the module name.
	Tag string

	// OperationID is the unique public name of the route, used by generated
	// clients. Defaults to the route name.
	OperationID string

	Summary     string
	Description string
	Deprecated  bool
}

// Spec declares the contract of a single route.
//
// Body, Query, Params and Response name schemas of the registry passed to
// [Compile]. An empty name means the route does not declare that schema.
type Spec struct {
	Method string

	// Path is appended to the module prefix and must begin with "/".
	// Path parameters are written as ":name" or "{name}".
	Path string

	Auth AuthPolicy

	Body     string
	Query    string
	Params   string
	Response string

	Docs Docs
}

// Module is a named, path prefixed group of routes keyed by route name.
type Module struct {
	Prefix string
	Routes map[string]Spec
}

// Server maps module names to their [Module].
type Server map[string]Module

var methods = []string{
	http.MethodGet,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
}

func normalizeMethod(method string) (string, bool) {
	method = strings.ToUpper(method)
	for _, m := range methods {
		if m == method {
			return method, true
		}
	}
	return method, false
}
