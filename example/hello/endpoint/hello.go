// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package endpoint declares the schemas, routes and handlers of the hello service.
package endpoint

import (
	"context"
	"net/http"

	"github.com/z5labs/blueprint/auth"
	"github.com/z5labs/blueprint/rest"
	"github.com/z5labs/blueprint/route"
	"github.com/z5labs/blueprint/schema"
)

// HelloQuery is the query string of getHelloWorld.
type HelloQuery struct {
	Recipient string `json:"recipient,omitempty" description:"Who to greet. Defaults to World."`
}

// HelloResponse is the greeting returned by getHelloWorld.
type HelloResponse struct {
	Hello string `json:"hello" required:"true"`
}

// WhoAmIResponse describes the authenticated caller.
type WhoAmIResponse struct {
	Subject string `json:"subject" required:"true"`
	Scope   string `json:"scope,omitempty"`
}

// Schemas returns the registry of every schema the service references.
func Schemas() (*schema.Registry, error) {
	return schema.NewRegistry(
		schema.Define[HelloQuery]("HelloQuery"),
		schema.Define[HelloResponse]("HelloResponse"),
		schema.Define[WhoAmIResponse]("WhoAmIResponse"),
	)
}

// Server declares the modules and routes of the service.
func Server() route.Server {
	return route.Server{
		"hello": {
			Prefix: "/hello",
			Routes: map[string]route.Spec{
				"getHelloWorld": {
					Method:   http.MethodGet,
					Path:     "/",
					Auth:     route.AuthNone,
					Query:    "HelloQuery",
					Response: "HelloResponse",
					Docs: route.Docs{
						Summary: "Greet someone",
					},
				},
			},
		},
		"me": {
			Prefix: "/me",
			Routes: map[string]route.Spec{
				"getWhoAmI": {
					Method:   http.MethodGet,
					Path:     "/",
					Response: "WhoAmIResponse",
					Docs: route.Docs{
						Summary:     "Describe the caller",
						Description: "Requires a bearer token signed with AUTH_SECRET.",
					},
				},
			},
		},
	}
}

// Impl binds a handler to every route of [Server].
func Impl() route.Impl {
	return route.Impl{
		"hello": {
			"getHelloWorld": route.BindFunc(GetHelloWorld),
		},
		"me": {
			"getWhoAmI": route.BindFunc(GetWhoAmI),
		},
	}
}

// GetHelloWorld greets the recipient.
func GetHelloWorld(ctx context.Context, req *route.Request[HelloQuery, route.None, route.None]) (*HelloResponse, error) {
	recipient := req.Query.Recipient
	if recipient == "" {
		recipient = "World"
	}
	return &HelloResponse{Hello: recipient}, nil
}

// GetWhoAmI returns the claims the caller authenticated with.
func GetWhoAmI(ctx context.Context, req *route.Request[route.None, route.None, route.None]) (*WhoAmIResponse, error) {
	claims, ok := auth.ClaimsFromContext(ctx)
	if !ok {
		return nil, rest.Error(http.StatusForbidden, "no identity")
	}
	return &WhoAmIResponse{
		Subject: claims.Subject,
		Scope:   claims.Scope,
	}, nil
}
