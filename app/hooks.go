// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package app

import (
	"context"
	"errors"
)

// HookFunc is run at a stage of a service's lifecycle.
type HookFunc func(context.Context) error

// Lifecycle collects hooks while a service is being built.
//
// Shutdown hooks run, in registration order, as soon as the service is
// asked to stop and before the wrapped [Runtime] observes the cancellation.
// Post-run hooks run, in registration order, after the wrapped [Runtime]
// has returned. Every hook runs even if an earlier one fails.
type Lifecycle struct {
	shutdown []HookFunc
	postRun  []HookFunc
}

// OnShutdown registers a hook run when the service begins stopping.
func (l *Lifecycle) OnShutdown(hook HookFunc) {
	l.shutdown = append(l.shutdown, hook)
}

// OnPostRun registers a hook run after the service has stopped.
func (l *Lifecycle) OnPostRun(hook HookFunc) {
	l.postRun = append(l.postRun, hook)
}

type lifecycleRuntime struct {
	inner    Runtime
	shutdown []HookFunc
	postRun  []HookFunc
}

// Run implements the [Runtime] interface.
func (rt lifecycleRuntime) Run(ctx context.Context) error {
	// Hooks must still be able to do work once ctx is cancelled.
	hookCtx := context.WithoutCancel(ctx)

	innerCtx, cancel := context.WithCancel(hookCtx)
	defer cancel()

	var shutdownErr error
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)

		select {
		case <-ctx.Done():
			shutdownErr = runHooks(hookCtx, rt.shutdown)
			cancel()
		case <-innerCtx.Done():
		}
	}()

	runErr := rt.inner.Run(innerCtx)
	cancel()
	<-stopped

	postRunErr := runHooks(hookCtx, rt.postRun)
	return errors.Join(runErr, shutdownErr, postRunErr)
}

func runHooks(ctx context.Context, hooks []HookFunc) error {
	var errs []error
	for _, hook := range hooks {
		err := hook(ctx)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WithLifecycle wraps a [Runtime] constructor with lifecycle hook support.
//
// Example usage:
//
//	builder := app.WithLifecycle(func(ctx context.Context, lc *app.Lifecycle) (httpserver.App, error) {
//	    ready := new(health.Binary)
//	    ready.MarkHealthy()
//	    lc.OnShutdown(func(ctx context.Context) error {
//	        ready.MarkUnhealthy()
//	        return nil
//	    })
//	    return buildApp(ctx, ready)
//	})
func WithLifecycle[T Runtime](f func(context.Context, *Lifecycle) (T, error)) Builder[Runtime] {
	return BuilderFunc[Runtime](func(ctx context.Context) (Runtime, error) {
		lc := &Lifecycle{}

		inner, err := f(ctx, lc)
		if err != nil {
			return nil, err
		}

		return lifecycleRuntime{
			inner:    inner,
			shutdown: lc.shutdown,
			postRun:  lc.postRun,
		}, nil
	})
}
