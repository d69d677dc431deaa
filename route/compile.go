// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package route

import (
	"errors"
	"log/slog"
	"maps"
	"reflect"
	"slices"
	"sort"
	"strings"

	"github.com/z5labs/blueprint"
	"github.com/z5labs/blueprint/auth"
	"github.com/z5labs/blueprint/metrics"
	"github.com/z5labs/blueprint/rest"
	"github.com/z5labs/blueprint/schema"

	"go.opentelemetry.io/otel"
)

// CompileOptions holds configuration values used by [Compile].
type CompileOptions struct {
	defaultAuth   bool
	authenticator auth.Authenticator
	metrics       *metrics.Collector
	errHandler    rest.ErrorHandler
	log           *slog.Logger
}

// CompileOption is an interface for configuring [Compile].
type CompileOption interface {
	ApplyCompileOption(*CompileOptions)
}

type compileOptionFunc func(*CompileOptions)

func (f compileOptionFunc) ApplyCompileOption(co *CompileOptions) {
	f(co)
}

// DefaultAuth sets whether routes with [AuthDefault] require authentication.
// Routes require authentication unless this is set to false.
func DefaultAuth(required bool) CompileOption {
	return compileOptionFunc(func(co *CompileOptions) {
		co.defaultAuth = required
	})
}

// Authenticate sets the [auth.Authenticator] consulted for auth-required
// routes. Without one every auth-required request is denied.
func Authenticate(a auth.Authenticator) CompileOption {
	return compileOptionFunc(func(co *CompileOptions) {
		co.authenticator = a
	})
}

// Metrics records every dispatched request with c.
func Metrics(c *metrics.Collector) CompileOption {
	return compileOptionFunc(func(co *CompileOptions) {
		co.metrics = c
	})
}

// OnError overrides the [rest.ErrorHandler] used for handler errors.
// The default is [rest.DetailErrorHandler].
func OnError(eh rest.ErrorHandler) CompileOption {
	return compileOptionFunc(func(co *CompileOptions) {
		co.errHandler = eh
	})
}

// Logger sets the logger used for unrecognized handler errors.
func Logger(log *slog.Logger) CompileOption {
	return compileOptionFunc(func(co *CompileOptions) {
		co.log = log
	})
}

// Operation describes a compiled route in the documentation index.
type Operation struct {
	Module string
	Route  string

	Method string
	URL    string

	Tag         string
	OperationID string
	Summary     string
	Description string
	Deprecated  bool

	AuthRequired bool

	// Schema names, empty when not declared.
	Query    string
	Params   string
	Body     string
	Response string
}

// Instance is a compiled server.
//
// It is read-only and safe for concurrent use.
type Instance struct {
	api        *rest.Api
	registry   *schema.Registry
	operations []Operation
	log        *slog.Logger
}

// Api returns the [rest.Api] the routes were installed on.
func (inst *Instance) Api() *rest.Api {
	return inst.api
}

// Registry returns the sealed schema registry of the server.
func (inst *Instance) Registry() *schema.Registry {
	return inst.registry
}

// Logger returns the logger handlers can use for request scoped logs.
func (inst *Instance) Logger() *slog.Logger {
	return inst.log
}

// Operations returns every compiled route sorted by operation id.
func (inst *Instance) Operations() []Operation {
	return slices.Clone(inst.operations)
}

// Operation returns the compiled route with the given operation id.
func (inst *Instance) Operation(id string) (Operation, bool) {
	i, found := sort.Find(len(inst.operations), func(i int) int {
		return strings.Compare(id, inst.operations[i].OperationID)
	})
	if !found {
		return Operation{}, false
	}
	return inst.operations[i], true
}

type plan struct {
	op      Operation
	route   rest.Route
	binding Binding
}

// Compile checks srv and impl against reg and installs every route on api.
//
// All routes are checked before any is installed. When a check fails
// nothing is installed and every failure is returned joined with
// [errors.Join], each wrapped in a [RouteError] naming its route.
// Compile seals reg.
func Compile(api *rest.Api, reg *schema.Registry, srv Server, impl Impl, opts ...CompileOption) (*Instance, error) {
	co := &CompileOptions{
		defaultAuth:   true,
		authenticator: auth.DenyAll,
		log:           blueprint.Logger("github.com/z5labs/blueprint/route"),
	}
	for _, opt := range opts {
		opt.ApplyCompileOption(co)
	}
	reg.Seal()

	c := &compiler{
		api:     api,
		reg:     reg,
		co:      co,
		urls:    make(map[string]string),
		opIDs:   make(map[string]string),
		planned: make([]plan, 0),
	}
	c.checkSchemas()
	for _, moduleName := range slices.Sorted(maps.Keys(srv)) {
		module := srv[moduleName]
		for _, routeName := range slices.Sorted(maps.Keys(module.Routes)) {
			c.planRoute(moduleName, routeName, module, impl)
		}
	}
	c.checkUnknownBindings(srv, impl)

	if len(c.errs) > 0 {
		return nil, errors.Join(c.errs...)
	}

	inst := &Instance{
		api:      api,
		registry: reg,
		log:      co.log,
	}
	for _, p := range c.planned {
		inst.operations = append(inst.operations, p.op)
	}
	slices.SortFunc(inst.operations, func(a, b Operation) int {
		return strings.Compare(a.OperationID, b.OperationID)
	})

	for _, s := range reg.Schemas() {
		err := api.RegisterSchema(s)
		if err != nil {
			return nil, err
		}
	}
	tracer := otel.Tracer("github.com/z5labs/blueprint/route")
	for _, p := range c.planned {
		errHandler := co.errHandler
		if errHandler == nil {
			errHandler = rest.DetailErrorHandler(co.log.With(slog.String("operation_id", p.op.OperationID)))
		}

		d := &dispatcher{
			op:            p.op,
			binding:       p.binding,
			instance:      inst,
			authenticator: co.authenticator,
			errHandler:    errHandler,
			metrics:       co.metrics,
			log:           co.log,
			tracer:        tracer,
		}
		err := api.RegisterRoute(p.route, d)
		if err != nil {
			return nil, RouteError{Module: p.op.Module, Route: p.op.Route, Err: err}
		}
	}
	return inst, nil
}

// MustCompile is like [Compile] but panics if the server does not compile.
func MustCompile(api *rest.Api, reg *schema.Registry, srv Server, impl Impl, opts ...CompileOption) *Instance {
	inst, err := Compile(api, reg, srv, impl, opts...)
	if err != nil {
		panic(err)
	}
	return inst
}

type compiler struct {
	api *rest.Api
	reg *schema.Registry
	co  *CompileOptions

	// method+url and operation id to the "module.route" claiming them
	urls  map[string]string
	opIDs map[string]string

	planned []plan
	errs    []error
}

func (c *compiler) fail(module, route string, err error) {
	c.errs = append(c.errs, RouteError{Module: module, Route: route, Err: err})
}

func (c *compiler) checkSchemas() {
	for _, s := range c.reg.Schemas() {
		typ, published := c.api.SchemaType(s.Name())
		if !published || typ == s.Type() {
			continue
		}
		c.errs = append(c.errs, rest.SchemaConflictError{
			Name:     s.Name(),
			Existing: typ,
			Given:    s.Type(),
		})
	}
}

func (c *compiler) planRoute(moduleName, routeName string, module Module, impl Impl) {
	spec := module.Routes[routeName]
	failed := false
	fail := func(err error) {
		failed = true
		c.fail(moduleName, routeName, err)
	}

	method, ok := normalizeMethod(spec.Method)
	if !ok {
		fail(InvalidRouteError{Reason: "unsupported method: " + spec.Method})
	}

	url, err := JoinPath(module.Prefix, spec.Path)
	if err != nil {
		fail(err)
	}

	rt := rest.Route{
		Method:      method,
		Pattern:     url,
		Summary:     spec.Docs.Summary,
		Description: spec.Docs.Description,
		Deprecated:  spec.Docs.Deprecated,
	}
	refs := []struct {
		name   string
		target **schema.Schema
	}{
		{name: spec.Query, target: &rt.Query},
		{name: spec.Params, target: &rt.Params},
		{name: spec.Body, target: &rt.Body},
		{name: spec.Response, target: &rt.Response},
	}
	resolved := true
	for _, ref := range refs {
		if ref.name == "" {
			continue
		}
		s, err := c.reg.Resolve(ref.name)
		if err != nil {
			resolved = false
			fail(err)
			continue
		}
		*ref.target = &s
	}

	if rt.Params != nil && url != "" {
		placeholders := rest.PathParams(url)
		for _, name := range rt.Params.Properties() {
			if !slices.Contains(placeholders, name) {
				fail(InvalidRouteError{Reason: "params property " + name + " is not a parameter of " + url})
			}
		}
	}

	op := Operation{
		Module:       moduleName,
		Route:        routeName,
		Method:       method,
		URL:          url,
		Tag:          spec.Docs.Tag,
		OperationID:  spec.Docs.OperationID,
		Summary:      spec.Docs.Summary,
		Description:  spec.Docs.Description,
		Deprecated:   spec.Docs.Deprecated,
		AuthRequired: spec.Auth.required(c.co.defaultAuth),
		Query:        spec.Query,
		Params:       spec.Params,
		Body:         spec.Body,
		Response:     spec.Response,
	}
	if op.Tag == "" {
		op.Tag = moduleName
	}
	if op.OperationID == "" {
		op.OperationID = routeName
	}
	rt.Tags = []string{op.Tag}
	rt.OperationID = op.OperationID
	rt.Secured = op.AuthRequired

	b, bound := impl[moduleName][routeName]
	if !bound || !b.valid() {
		c.errs = append(c.errs, MissingHandlerError{Module: moduleName, Route: routeName})
		failed = true
	} else if resolved {
		for _, err := range checkBinding(b.types, rt) {
			fail(err)
		}
	}

	self := moduleName + "." + routeName
	if url != "" && ok {
		key := method + " " + rest.CanonicalPattern(url)
		if _, taken := c.urls[key]; taken || c.api.HasRoute(method, url) {
			fail(DuplicateRouteError{Method: method, URL: url})
		} else {
			c.urls[key] = self
		}
	}
	if _, taken := c.opIDs[op.OperationID]; taken || c.api.HasOperation(op.OperationID) {
		fail(DuplicateOperationError{OperationID: op.OperationID})
	} else {
		c.opIDs[op.OperationID] = self
	}

	if failed {
		return
	}
	c.planned = append(c.planned, plan{
		op:      op,
		route:   rt,
		binding: b,
	})
}

func checkBinding(types bindingTypes, rt rest.Route) []error {
	pairs := []struct {
		in  string
		s   *schema.Schema
		got reflect.Type
	}{
		{in: "query", s: rt.Query, got: types.query},
		{in: "params", s: rt.Params, got: types.params},
		{in: "body", s: rt.Body, got: types.body},
		{in: "response", s: rt.Response, got: types.response},
	}

	var errs []error
	for _, pair := range pairs {
		if pair.s == nil {
			if pair.got != noneType {
				errs = append(errs, BindingMismatchError{In: pair.in, Want: noneType, Got: pair.got})
			}
			continue
		}
		if pair.got != pair.s.Type() {
			errs = append(errs, BindingMismatchError{
				In:     pair.in,
				Schema: pair.s.Name(),
				Want:   pair.s.Type(),
				Got:    pair.got,
			})
		}
	}
	return errs
}

func (c *compiler) checkUnknownBindings(srv Server, impl Impl) {
	for _, moduleName := range slices.Sorted(maps.Keys(impl)) {
		module, declared := srv[moduleName]
		for _, routeName := range slices.Sorted(maps.Keys(impl[moduleName])) {
			if declared {
				if _, ok := module.Routes[routeName]; ok {
					continue
				}
			}
			c.errs = append(c.errs, UnknownRouteError{Module: moduleName, Route: routeName})
		}
	}
}
