// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package rest

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/z5labs/blueprint"
	"github.com/z5labs/blueprint/health"
	"github.com/z5labs/blueprint/schema"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/swaggest/openapi-go/openapi3"
	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/z5labs/sdk-go/ptr"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// BearerAuthScheme is the name of the OpenAPI security scheme
// referenced by every secured route.
const BearerAuthScheme = "bearerAuth"

// DetailSchemaName is the component name of the error response schema.
const DetailSchemaName = "ErrorDetail"

// ApiOptions holds configuration values used when constructing an [Api].
type ApiOptions struct {
	readiness health.Monitor
	liveness  health.Monitor
	metrics   http.Handler
	docsPath  string
	log       *slog.Logger

	maxBodyBytes int64
}

// ApiOption is an interface for configuring an [Api].
type ApiOption interface {
	ApplyApiOption(*ApiOptions)
}

type apiOptionFunc func(*ApiOptions)

func (f apiOptionFunc) ApplyApiOption(ao *ApiOptions) {
	f(ao)
}

// Readiness registers the [health.Monitor] reported at GET /health/readiness.
//
// See [Liveness, Readiness, and Startup Probes] for more details.
//
// [Liveness, Readiness, and Startup Probes]: https://kubernetes.io/docs/concepts/configuration/liveness-readiness-startup-probes/
func Readiness(m health.Monitor) ApiOption {
	return apiOptionFunc(func(ao *ApiOptions) {
		ao.readiness = m
	})
}

// Liveness registers the [health.Monitor] reported at GET /health/liveness.
func Liveness(m health.Monitor) ApiOption {
	return apiOptionFunc(func(ao *ApiOptions) {
		ao.liveness = m
	})
}

// Metrics serves the given handler at GET /metrics.
func Metrics(h http.Handler) ApiOption {
	return apiOptionFunc(func(ao *ApiOptions) {
		ao.metrics = h
	})
}

// DocsPath sets the path prefix of the documentation UI. It defaults
// to "/docs". An empty path disables the documentation UI.
func DocsPath(path string) ApiOption {
	return apiOptionFunc(func(ao *ApiOptions) {
		ao.docsPath = path
	})
}

// MaxBodyBytes limits the size of request bodies decoded for routes.
// Larger bodies are answered with 413. It defaults to 1 MB, zero disables
// the limit.
func MaxBodyBytes(n int64) ApiOption {
	return apiOptionFunc(func(ao *ApiOptions) {
		ao.maxBodyBytes = n
	})
}

// Logger sets the logger used for request logs and engine errors.
func Logger(log *slog.Logger) ApiOption {
	return apiOptionFunc(func(ao *ApiOptions) {
		ao.log = log
	})
}

type routeKey struct {
	method  string
	pattern string
}

func newRouteKey(method, pattern string) routeKey {
	return routeKey{
		method:  strings.ToUpper(method),
		pattern: CanonicalPattern(pattern),
	}
}

// Api is an OpenAPI-compliant [http.Handler] with a route table built from
// [Route]s and the [schema.Schema]s they reference.
//
// # Standard Features
//
// Every Api automatically provides:
//   - OpenAPI 3.0 document at GET /openapi.json
//   - Swagger UI at GET /docs/
//   - Liveness probe at GET /health/liveness
//   - Readiness probe at GET /health/readiness
//   - JSON {"detail": ...} bodies for 404 and 405 responses
//
// Routes and schemas are registered during startup. An Api must not be
// modified once it starts serving requests.
type Api struct {
	router  *chi.Mux
	def     *openapi3.Spec
	log     *slog.Logger
	tracer  trace.Tracer
	schemas map[string]reflect.Type
	routes  map[routeKey]struct{}
	opIDs   map[string]struct{}

	maxBodyBytes int64
}

// NewApi creates a new [Api] with the specified title and version.
//
// Example:
//
//	api := rest.NewApi(
//	    "Bookstore API",
//	    "v2.1.0",
//	    rest.Readiness(readinessMonitor),
//	)
func NewApi(title, version string, opts ...ApiOption) *Api {
	ao := &ApiOptions{
		readiness: health.Healthy(),
		liveness:  health.Healthy(),
		docsPath:  "/docs",
		log:       blueprint.Logger("github.com/z5labs/blueprint/rest"),

		maxBodyBytes: 1 << 20,
	}
	for _, opt := range opts {
		opt.ApplyApiOption(ao)
	}

	api := &Api{
		router: chi.NewMux(),
		def: &openapi3.Spec{
			Openapi: "3.0.3",
			Info: openapi3.Info{
				Title:   title,
				Version: version,
			},
		},
		log:     ao.log,
		tracer:  otel.Tracer("github.com/z5labs/blueprint/rest"),
		schemas: make(map[string]reflect.Type),
		routes:  make(map[routeKey]struct{}),
		opIDs:   make(map[string]struct{}),

		maxBodyBytes: ao.maxBodyBytes,
	}

	api.router.Use(middleware.RequestID, echoRequestID, logRequests(ao.log))

	api.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteDetail(r.Context(), w, http.StatusNotFound, "Not Found")
	})
	api.router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteDetail(r.Context(), w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	api.handle(http.MethodGet, "/openapi.json", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		enc := json.NewEncoder(w)
		err := enc.Encode(api.def)
		if err == nil {
			return
		}
		api.log.ErrorContext(
			r.Context(),
			"failed to encode openapi schema to json",
			slog.Any("error", err),
		)
	}))

	if ao.docsPath != "" {
		api.handle(http.MethodGet, ao.docsPath, http.RedirectHandler(ao.docsPath+"/index.html", http.StatusMovedPermanently))
		api.handle(http.MethodGet, ao.docsPath+"/*", httpSwagger.Handler(httpSwagger.URL("/openapi.json")))
	}

	api.handle(http.MethodGet, "/health/readiness", healthHandler(ao.readiness))
	api.handle(http.MethodGet, "/health/liveness", healthHandler(ao.liveness))
	if ao.metrics != nil {
		api.handle(http.MethodGet, "/metrics", ao.metrics)
	}

	// Always published so every error response can reference it.
	err := api.RegisterSchema(schema.Define[Detail](DetailSchemaName).Schema)
	if err != nil {
		panic(err)
	}

	return api
}

// RegisterSchema publishes a named schema to the OpenAPI document so routes
// can reference it.
//
// Registration is idempotent: publishing the same name with the same Go type
// again is a no-op. Publishing a name with a different Go type returns a
// [SchemaConflictError].
func (api *Api) RegisterSchema(s schema.Schema) error {
	name := s.Name()
	if name == "" {
		return schema.ErrEmptyName
	}

	typ, exists := api.schemas[name]
	if exists {
		if typ == s.Type() {
			return nil
		}
		return SchemaConflictError{
			Name:     name,
			Existing: typ,
			Given:    s.Type(),
		}
	}

	js := s.JSONSchema()
	var sor openapi3.SchemaOrRef
	sor.FromJSONSchema(js.ToSchemaOrBool())

	api.def.ComponentsEns().SchemasEns().WithMapOfSchemaOrRefValuesItem(name, sor)
	api.schemas[name] = s.Type()
	return nil
}

// SchemaType returns the Go type published under name.
func (api *Api) SchemaType(name string) (reflect.Type, bool) {
	typ, ok := api.schemas[name]
	return typ, ok
}

// HasRoute reports whether a handler is registered for method and a
// pattern matching the same requests, including the operational endpoints
// every [Api] provides. Placeholder names are ignored, see [CanonicalPattern].
func (api *Api) HasRoute(method, pattern string) bool {
	_, ok := api.routes[newRouteKey(method, pattern)]
	return ok
}

// HasOperation reports whether a route with the operation id is registered.
func (api *Api) HasOperation(id string) bool {
	_, ok := api.opIDs[id]
	return ok
}

// Spec returns the OpenAPI document describing every registered route.
func (api *Api) Spec() *openapi3.Spec {
	return api.def
}

// ServeHTTP implements the [http.Handler] interface.
func (api *Api) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	api.router.ServeHTTP(w, req)
}

func (api *Api) handle(method, pattern string, h http.Handler) {
	api.routes[newRouteKey(method, pattern)] = struct{}{}
	api.router.Method(method, pattern, h)
}

func (api *Api) ensureSecurityScheme() {
	schemes := api.def.ComponentsEns().SecuritySchemesEns()
	if _, exists := schemes.MapOfSecuritySchemeOrRefValues[BearerAuthScheme]; exists {
		return
	}

	schemes.WithMapOfSecuritySchemeOrRefValuesItem(
		BearerAuthScheme,
		openapi3.SecuritySchemeOrRef{
			SecurityScheme: &openapi3.SecurityScheme{
				HTTPSecurityScheme: &openapi3.HTTPSecurityScheme{
					Scheme:       "bearer",
					BearerFormat: ptr.Ref("JWT"),
				},
			},
		},
	)
}
