// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package route

import (
	"errors"
	"fmt"
	"reflect"
)

// ErrNoResponse is returned when a handler of a route with a response
// schema returns neither a response nor an error.
var ErrNoResponse = errors.New("route: handler returned no response")

// RouteError names the module and route a compile error belongs to.
type RouteError struct {
	Module string
	Route  string
	Err    error
}

// Error implements the [error] interface.
func (e RouteError) Error() string {
	return fmt.Sprintf("%s.%s: %v", e.Module, e.Route, e.Err)
}

// Unwrap returns the underlying error.
func (e RouteError) Unwrap() error {
	return e.Err
}

// InvalidRouteError is returned for a route with an unsupported method or
// a malformed path.
type InvalidRouteError struct {
	Reason string
}

// Error implements the [error] interface.
func (e InvalidRouteError) Error() string {
	return "invalid route: " + e.Reason
}

// DuplicateRouteError is returned when two routes resolve to the same
// method and URL.
type DuplicateRouteError struct {
	Method string
	URL    string
}

// Error implements the [error] interface.
func (e DuplicateRouteError) Error() string {
	return fmt.Sprintf("duplicate route: %s %s", e.Method, e.URL)
}

// DuplicateOperationError is returned when two routes share an operation id.
type DuplicateOperationError struct {
	OperationID string
}

// Error implements the [error] interface.
func (e DuplicateOperationError) Error() string {
	return "duplicate operation id: " + e.OperationID
}

// MissingHandlerError is returned for a declared route without a [Binding].
type MissingHandlerError struct {
	Module string
	Route  string
}

// Error implements the [error] interface.
func (e MissingHandlerError) Error() string {
	return fmt.Sprintf("missing handler for route: %s.%s", e.Module, e.Route)
}

// UnknownRouteError is returned for a [Binding] whose module or route is
// not declared by the [Server].
type UnknownRouteError struct {
	Module string
	Route  string
}

// Error implements the [error] interface.
func (e UnknownRouteError) Error() string {
	return fmt.Sprintf("handler bound to undeclared route: %s.%s", e.Module, e.Route)
}

// BindingMismatchError is returned when a [Binding] type parameter differs
// from the Go type of the schema declared by its route.
type BindingMismatchError struct {
	// In is one of "query", "params", "body" or "response".
	In     string
	Schema string
	Want   reflect.Type
	Got    reflect.Type
}

// Error implements the [error] interface.
func (e BindingMismatchError) Error() string {
	if e.Schema == "" {
		return fmt.Sprintf("%s is not declared, binding expects %s instead of route.None", e.In, e.Got)
	}
	return fmt.Sprintf("%s schema %s is %s, binding expects %s", e.In, e.Schema, e.Want, e.Got)
}
