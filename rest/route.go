// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package rest

import (
	"context"
	"net/http"
	"strings"

	"github.com/z5labs/blueprint/schema"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Route describes a single endpoint to be installed on an [Api].
//
// Query, Params and Body are validated and decoded before the [RouteHandler]
// is invoked. Response only affects the OpenAPI document, writing the
// response is left to the [RouteHandler].
type Route struct {
	Method  string
	Pattern string

	Query    *schema.Schema
	Params   *schema.Schema
	Body     *schema.Schema
	Response *schema.Schema

	Tags        []string
	OperationID string
	Summary     string
	Description string
	Deprecated  bool

	// Secured marks the route as requiring authentication in the
	// OpenAPI document. Enforcement is the [RouteHandler]'s job.
	Secured bool
}

// Input holds the decoded request values of a [Route].
//
// Each field is a pointer to a value of the corresponding schema type
// or nil if the route does not declare that schema.
type Input struct {
	Query  any
	Params any
	Body   any
}

// RouteHandler serves requests which passed validation.
type RouteHandler interface {
	ServeRoute(http.ResponseWriter, *http.Request, Input)
}

// RouteHandlerFunc is an adapter to allow the use of ordinary functions
// as [RouteHandler]s.
type RouteHandlerFunc func(http.ResponseWriter, *http.Request, Input)

// ServeRoute implements the [RouteHandler] interface.
func (f RouteHandlerFunc) ServeRoute(w http.ResponseWriter, r *http.Request, in Input) {
	f(w, r, in)
}

// RegisterRoute installs the route on the router and documents it in the
// OpenAPI document.
//
// Every schema referenced by the route must have been published with
// [Api.RegisterSchema]. A route whose method and pattern, or whose
// operation id, is already registered is rejected. Patterns differing only
// in placeholder names conflict.
func (api *Api) RegisterRoute(rt Route, h RouteHandler) error {
	method := strings.ToUpper(rt.Method)
	if api.HasRoute(method, rt.Pattern) {
		return RouteConflictError{Method: method, Pattern: rt.Pattern}
	}
	if rt.OperationID != "" {
		if _, exists := api.opIDs[rt.OperationID]; exists {
			return OperationConflictError{OperationID: rt.OperationID}
		}
	}

	for _, s := range []*schema.Schema{rt.Query, rt.Params, rt.Body, rt.Response} {
		if s == nil {
			continue
		}
		if _, published := api.schemas[s.Name()]; !published {
			return UnpublishedSchemaError{Name: s.Name()}
		}
	}

	op := operation(rt)
	if rt.Secured {
		api.ensureSecurityScheme()
	}

	err := api.def.AddOperation(method, rt.Pattern, op)
	if err != nil {
		return err
	}

	if rt.OperationID != "" {
		api.opIDs[rt.OperationID] = struct{}{}
	}
	api.handle(method, rt.Pattern, otelhttp.WithRouteTag(rt.Pattern, &routeHandler{
		tracer:       api.tracer,
		route:        rt,
		next:         h,
		maxBodyBytes: api.maxBodyBytes,
	}))
	return nil
}

type routeHandler struct {
	tracer       trace.Tracer
	route        Route
	next         RouteHandler
	maxBodyBytes int64
}

// ServeHTTP implements the [http.Handler] interface.
func (h *routeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.route.Body != nil && h.maxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	}

	in, err := h.readInput(r.Context(), r)
	if err != nil {
		WriteError(r.Context(), w, err)
		return
	}

	h.next.ServeRoute(w, r, in)
}

func (h *routeHandler) readInput(ctx context.Context, r *http.Request) (Input, error) {
	_, span := h.tracer.Start(ctx, "routeHandler.readInput")
	defer span.End()

	var in Input
	var err error
	if h.route.Query != nil {
		in.Query, err = decodeQuery(*h.route.Query, r.URL.Query())
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return in, err
		}
	}
	if h.route.Params != nil {
		in.Params, err = decodeParams(*h.route.Params, chi.RouteContext(ctx))
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return in, err
		}
	}
	if h.route.Body != nil {
		in.Body, err = decodeBody(*h.route.Body, r)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return in, err
		}
	}
	return in, nil
}
