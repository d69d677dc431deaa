// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package route compiles declarative server specifications into live,
// validated and documented HTTP routes.
//
// A [Server] groups [Module]s of route [Spec]s which reference schemas from
// a [schema.Registry] by name. An [Impl] supplies one [Binding] per route,
// created with [Bind] or [BindFunc] from a handler whose type parameters are
// the Go types of the referenced schemas. [Compile] checks the whole triple
// at startup and installs every route on a [rest.Api]:
//
//	reg, _ := schema.NewRegistry(
//		schema.Define[HelloQuery]("HelloQuery"),
//		schema.Define[HelloResponse]("HelloResponse"),
//	)
//
//	srv := route.Server{
//		"hello": {
//			Prefix: "/hello",
//			Routes: map[string]route.Spec{
//				"getHelloWorld": {
//					Method:   http.MethodGet,
//					Path:     "/",
//					Auth:     route.AuthNone,
//					Query:    "HelloQuery",
//					Response: "HelloResponse",
//				},
//			},
//		},
//	}
//
//	impl := route.Impl{
//		"hello": {
//			"getHelloWorld": route.BindFunc(getHelloWorld),
//		},
//	}
//
//	inst, err := route.Compile(api, reg, srv, impl)
//
// Every request to a compiled route goes through the same pipeline: the
// [rest.Api] validates and decodes the request, the authenticator is
// consulted for auth-required routes, the handler is invoked and its result
// or error is written. Errors are always sent as {"detail": "..."}.
package route
