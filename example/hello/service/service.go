// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package service assembles the hello API and its runtime.
package service

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/z5labs/blueprint/app"
	"github.com/z5labs/blueprint/auth"
	"github.com/z5labs/blueprint/config"
	"github.com/z5labs/blueprint/example/hello/endpoint"
	"github.com/z5labs/blueprint/health"
	httpserver "github.com/z5labs/blueprint/http"
	"github.com/z5labs/blueprint/metrics"
	"github.com/z5labs/blueprint/otel"
	"github.com/z5labs/blueprint/rest"
	"github.com/z5labs/blueprint/route"
)

// Title and Version are published in the OpenAPI document.
const (
	Title   = "Hello API"
	Version = "v0.1.0"
)

// Options configure [NewApi].
type Options struct {
	Config    config.Config
	Readiness health.Monitor
	Metrics   *metrics.Collector
}

// NewApi compiles the hello routes into a new [rest.Api].
func NewApi(opts Options) (*rest.Api, *route.Instance, error) {
	apiOpts := []rest.ApiOption{}
	if opts.Readiness != nil {
		apiOpts = append(apiOpts, rest.Readiness(opts.Readiness))
	}
	if opts.Metrics != nil {
		apiOpts = append(apiOpts, rest.Metrics(opts.Metrics.Handler()))
	}
	if opts.Config.HTTP.MaxBodyBytes > 0 {
		apiOpts = append(apiOpts, rest.MaxBodyBytes(opts.Config.HTTP.MaxBodyBytes))
	}
	api := rest.NewApi(Title, Version, apiOpts...)

	authenticator, err := authenticator(opts.Config)
	if err != nil {
		return nil, nil, err
	}

	reg, err := endpoint.Schemas()
	if err != nil {
		return nil, nil, err
	}

	inst, err := route.Compile(
		api,
		reg,
		endpoint.Server(),
		endpoint.Impl(),
		route.Authenticate(authenticator),
		route.Metrics(opts.Metrics),
	)
	if err != nil {
		return nil, nil, err
	}
	return api, inst, nil
}

// authenticator verifies bearer tokens signed with the configured secret.
// Without a secret every auth-required route answers 401.
func authenticator(cfg config.Config) (auth.Authenticator, error) {
	if cfg.AuthSecret == "" {
		return auth.DenyAll, nil
	}

	v, err := auth.NewJWTVerifier([]byte(cfg.AuthSecret))
	if err != nil {
		return nil, err
	}
	return auth.Bearer(v), nil
}

// Build returns the runtime of the hello service.
//
// The readiness probe reports healthy once the server is listening and
// turns unhealthy as soon as shutdown begins, before in flight requests
// are drained.
func Build(cfg config.Config, logHandler slog.Handler) app.Builder[otel.Runtime] {
	svc := app.WithLifecycle(func(ctx context.Context, lc *app.Lifecycle) (httpserver.App, error) {
		ready := new(health.Binary)
		lc.OnShutdown(func(ctx context.Context) error {
			ready.MarkUnhealthy()
			return nil
		})

		api, _, err := NewApi(Options{
			Config:    cfg,
			Readiness: ready,
			Metrics:   metrics.New(),
		})
		if err != nil {
			return httpserver.App{}, err
		}

		srv := httpserver.NewServer(httpserver.FromConfig(cfg))
		a, err := httpserver.Build(srv, app.Of[http.Handler](api)).Build(ctx)
		if err != nil {
			return httpserver.App{}, err
		}

		ready.MarkHealthy()
		return a, nil
	})

	return otel.Build(otel.FromConfig(cfg, logHandler), svc)
}
