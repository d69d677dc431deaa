// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package app composes the startup and shutdown of a blueprint service.
//
// A service is a chain of [Builder]s: configuration feeds route compilation,
// whose [net/http.Handler] is mapped into a listening server, which is
// wrapped by the telemetry SDK. Every step may fail and nothing listens
// until the whole chain has been built, so a service with an invalid route
// table exits with a [BuildError] before accepting connections.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// Builder constructs one link of a service chain.
type Builder[T any] interface {
	Build(context.Context) (T, error)
}

// BuilderFunc is an adapter to allow the use of ordinary functions as [Builder]s.
type BuilderFunc[T any] func(context.Context) (T, error)

// Build implements the [Builder] interface.
func (f BuilderFunc[T]) Build(ctx context.Context) (T, error) {
	return f(ctx)
}

// Of returns a [Builder] which always builds v.
func Of[T any](v T) Builder[T] {
	return BuilderFunc[T](func(context.Context) (T, error) {
		return v, nil
	})
}

// Bind feeds the output of builder into binder. The second builder is never
// built if the first fails.
func Bind[A, B any](builder Builder[A], binder func(A) Builder[B]) Builder[B] {
	return BuilderFunc[B](func(ctx context.Context) (B, error) {
		a, err := builder.Build(ctx)
		if err != nil {
			var zero B
			return zero, err
		}
		return binder(a).Build(ctx)
	})
}

// Map converts the output of builder with f, for example a compiled
// handler into a server bound to its listener.
func Map[A, B any](builder Builder[A], f func(context.Context, A) (B, error)) Builder[B] {
	return Bind(builder, func(a A) Builder[B] {
		return BuilderFunc[B](func(ctx context.Context) (B, error) {
			return f(ctx, a)
		})
	})
}

// Runtime serves until its context is cancelled.
type Runtime interface {
	Run(context.Context) error
}

// RuntimeFunc is an adapter to allow the use of ordinary functions as [Runtime]s.
type RuntimeFunc func(context.Context) error

// Run implements the [Runtime] interface.
func (f RuntimeFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// BuildError is returned by [Run] when the service could not be built.
type BuildError struct {
	Cause error
}

// Error implements the [error] interface.
func (e BuildError) Error() string {
	return fmt.Sprintf("failed to build service: %v", e.Cause)
}

// Unwrap returns the underlying cause.
func (e BuildError) Unwrap() error {
	return e.Cause
}

// Run builds the [Runtime] and runs it. The context given to both is
// cancelled once the process receives SIGINT or SIGTERM. Build failures
// are returned as a [BuildError].
func Run[T Runtime](ctx context.Context, builder Builder[T]) error {
	sigCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rt, err := builder.Build(sigCtx)
	if err != nil {
		return BuildError{Cause: err}
	}

	return rt.Run(sigCtx)
}

// LogError logs a non-nil error returned by [Run] with the given handler,
// telling build failures apart from failures while serving.
func LogError(handler slog.Handler, err error) {
	if err == nil {
		return
	}

	msg := "service failed"
	var buildErr BuildError
	if errors.As(err, &buildErr) {
		msg = "service could not be built"
	}

	log := slog.New(handler)
	log.Error(msg, slog.Any("error", err))
}
