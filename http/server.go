// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package http runs an [http.Handler] as an [app.Runtime].
package http

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/z5labs/blueprint/app"
	"github.com/z5labs/blueprint/config"

	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Server holds the settings of an HTTP server.
type Server struct {
	Addr                         string
	Listener                     net.Listener
	TLSConfig                    *tls.Config
	DisableGeneralOptionsHandler bool
	ReadTimeout                  time.Duration
	ReadHeaderTimeout            time.Duration
	WriteTimeout                 time.Duration
	IdleTimeout                  time.Duration
	MaxHeaderBytes               int
	ShutdownTimeout              time.Duration
}

// ServerOption configures a [Server].
type ServerOption func(*Server)

// Addr sets the address to listen on, in the form "host:port".
func Addr(addr string) ServerOption {
	return func(srv *Server) {
		srv.Addr = addr
	}
}

// Listener serves on an already bound listener instead of [Server.Addr].
func Listener(ln net.Listener) ServerOption {
	return func(srv *Server) {
		srv.Listener = ln
	}
}

// TLS wraps the listener with TLS.
func TLS(cfg *tls.Config) ServerOption {
	return func(srv *Server) {
		srv.TLSConfig = cfg
	}
}

// DisableGeneralOptionsHandler controls whether the server automatically
// replies to "OPTIONS *" requests.
func DisableGeneralOptionsHandler(disable bool) ServerOption {
	return func(srv *Server) {
		srv.DisableGeneralOptionsHandler = disable
	}
}

// ReadTimeout sets the maximum duration for reading an entire request.
func ReadTimeout(d time.Duration) ServerOption {
	return func(srv *Server) {
		srv.ReadTimeout = d
	}
}

// ReadHeaderTimeout sets the maximum duration for reading request headers.
func ReadHeaderTimeout(d time.Duration) ServerOption {
	return func(srv *Server) {
		srv.ReadHeaderTimeout = d
	}
}

// WriteTimeout sets the maximum duration before timing out writes of the response.
func WriteTimeout(d time.Duration) ServerOption {
	return func(srv *Server) {
		srv.WriteTimeout = d
	}
}

// IdleTimeout sets the maximum duration to wait for the next request when
// keep-alives are enabled.
func IdleTimeout(d time.Duration) ServerOption {
	return func(srv *Server) {
		srv.IdleTimeout = d
	}
}

// MaxHeaderBytes sets the maximum size of request headers.
func MaxHeaderBytes(n int) ServerOption {
	return func(srv *Server) {
		srv.MaxHeaderBytes = n
	}
}

// ShutdownTimeout bounds how long in flight requests are given to finish
// once the server is stopping. Zero waits indefinitely.
func ShutdownTimeout(d time.Duration) ServerOption {
	return func(srv *Server) {
		srv.ShutdownTimeout = d
	}
}

// FromConfig applies the listen address and HTTP settings of cfg.
func FromConfig(cfg config.Config) ServerOption {
	return func(srv *Server) {
		srv.Addr = cfg.Addr()
		srv.ReadTimeout = cfg.HTTP.ReadTimeout
		srv.ReadHeaderTimeout = cfg.HTTP.ReadHeaderTimeout
		srv.WriteTimeout = cfg.HTTP.WriteTimeout
		srv.IdleTimeout = cfg.HTTP.IdleTimeout
		srv.MaxHeaderBytes = cfg.HTTP.MaxHeaderBytes
	}
}

// NewServer creates a new [Server].
//
// Default values:
//   - Addr: ":4000"
//   - ReadTimeout: 5 seconds
//   - ReadHeaderTimeout: 2 seconds
//   - WriteTimeout: 10 seconds
//   - IdleTimeout: 120 seconds
//   - MaxHeaderBytes: 1048576 bytes (1 MB)
//   - ShutdownTimeout: 30 seconds
func NewServer(options ...ServerOption) Server {
	srv := Server{
		Addr:              ":4000",
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		ShutdownTimeout:   30 * time.Second,
	}

	for _, option := range options {
		option(&srv)
	}

	return srv
}

func (srv Server) listen() (net.Listener, error) {
	ln := srv.Listener
	if ln == nil {
		var err error
		ln, err = net.Listen("tcp", srv.Addr)
		if err != nil {
			return nil, err
		}
	}
	if srv.TLSConfig != nil {
		ln = tls.NewListener(ln, srv.TLSConfig)
	}
	return ln, nil
}

// App is a runnable HTTP server.
type App struct {
	ls              net.Listener
	srv             *http.Server
	shutdownTimeout time.Duration
}

// Addr returns the address the server is listening on.
func (a App) Addr() net.Addr {
	return a.ls.Addr()
}

// Run serves requests until the context is cancelled and then shuts the
// server down gracefully.
func (a App) Run(ctx context.Context) error {
	pool := pool.New().WithContext(ctx).WithCancelOnError()

	pool.Go(func(ctx context.Context) error {
		return a.srv.Serve(a.ls)
	})

	pool.Go(func(ctx context.Context) error {
		<-ctx.Done()

		shutdownCtx := context.Background()
		if a.shutdownTimeout > 0 {
			var cancel context.CancelFunc
			shutdownCtx, cancel = context.WithTimeout(shutdownCtx, a.shutdownTimeout)
			defer cancel()
		}
		return a.srv.Shutdown(shutdownCtx)
	})

	err := pool.Wait()
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Build returns an [app.Builder] which binds the [Server]'s listener and
// serves the built handler, instrumented with OpenTelemetry.
func Build(srv Server, b app.Builder[http.Handler]) app.Builder[App] {
	return app.Map(b, func(ctx context.Context, h http.Handler) (App, error) {
		ln, err := srv.listen()
		if err != nil {
			return App{}, err
		}

		httpServer := &http.Server{
			Handler:                      otelhttp.NewHandler(h, "blueprint"),
			DisableGeneralOptionsHandler: srv.DisableGeneralOptionsHandler,
			ReadTimeout:                  srv.ReadTimeout,
			ReadHeaderTimeout:            srv.ReadHeaderTimeout,
			WriteTimeout:                 srv.WriteTimeout,
			IdleTimeout:                  srv.IdleTimeout,
			MaxHeaderBytes:               srv.MaxHeaderBytes,
		}

		return App{
			ls:              ln,
			srv:             httpServer,
			shutdownTimeout: srv.ShutdownTimeout,
		}, nil
	})
}
