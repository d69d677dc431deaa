// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package route

import (
	"context"
	"reflect"

	"github.com/z5labs/blueprint/rest"
)

// None is the type parameter of a [Handler] for a schema the route
// does not declare.
type None struct{}

var noneType = reflect.TypeFor[None]()

// Request is the input of a [Handler].
//
// Only the fields whose schema is declared by the route are populated,
// the others hold the zero [None].
type Request[Q, P, B any] struct {
	Query  Q
	Params P
	Body   B

	// Instance is the compiled server the route belongs to.
	Instance *Instance
}

// Handler serves a route whose query, params, body and response schemas
// are the Go types Q, P, B and R.
type Handler[Q, P, B, R any] interface {
	Handle(context.Context, *Request[Q, P, B]) (*R, error)
}

// HandlerFunc is an adapter to allow the use of ordinary functions as [Handler]s.
type HandlerFunc[Q, P, B, R any] func(context.Context, *Request[Q, P, B]) (*R, error)

// Handle implements the [Handler] interface.
func (f HandlerFunc[Q, P, B, R]) Handle(ctx context.Context, req *Request[Q, P, B]) (*R, error) {
	return f(ctx, req)
}

type bindingTypes struct {
	query    reflect.Type
	params   reflect.Type
	body     reflect.Type
	response reflect.Type
}

// Binding is a type erased [Handler] created by [Bind] or [BindFunc].
// The zero value is treated as a missing handler.
type Binding struct {
	types  bindingTypes
	invoke func(context.Context, rest.Input, *Instance) (any, error)
}

// Bind creates a [Binding] from h.
func Bind[Q, P, B, R any](h Handler[Q, P, B, R]) Binding {
	return Binding{
		types: bindingTypes{
			query:    reflect.TypeFor[Q](),
			params:   reflect.TypeFor[P](),
			body:     reflect.TypeFor[B](),
			response: reflect.TypeFor[R](),
		},
		invoke: func(ctx context.Context, in rest.Input, inst *Instance) (any, error) {
			req := &Request[Q, P, B]{
				Query:    deref[Q](in.Query),
				Params:   deref[P](in.Params),
				Body:     deref[B](in.Body),
				Instance: inst,
			}

			resp, err := h.Handle(ctx, req)
			if err != nil {
				return nil, err
			}
			if reflect.TypeFor[R]() == noneType {
				return nil, nil
			}
			if resp == nil {
				return nil, ErrNoResponse
			}
			return resp, nil
		},
	}
}

// BindFunc creates a [Binding] from an ordinary function.
func BindFunc[Q, P, B, R any](f func(context.Context, *Request[Q, P, B]) (*R, error)) Binding {
	return Bind[Q, P, B, R](HandlerFunc[Q, P, B, R](f))
}

func (b Binding) valid() bool {
	return b.invoke != nil
}

// deref returns the value v points to. Decoded inputs are always *T
// since their schema type was checked against T at compile time.
func deref[T any](v any) T {
	var zero T
	if v == nil {
		return zero
	}
	p, ok := v.(*T)
	if !ok || p == nil {
		return zero
	}
	return *p
}

// ModuleImpl maps route names to their [Binding].
type ModuleImpl map[string]Binding

// Impl maps module names to their [ModuleImpl].
type Impl map[string]ModuleImpl
