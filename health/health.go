// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package health provides the monitors reported by the readiness and
// liveness probes of a blueprint API.
package health

import (
	"context"
	"errors"
	"sync/atomic"
)

// Monitor represents anything which can report its current state of health.
type Monitor interface {
	Healthy(context.Context) (bool, error)
}

// Func is an adapter to allow the use of ordinary functions as [Monitor]s.
type Func func(context.Context) (bool, error)

// Healthy implements the [Monitor] interface.
func (f Func) Healthy(ctx context.Context) (bool, error) {
	return f(ctx)
}

// Healthy returns a [Monitor] which always reports healthy.
func Healthy() Monitor {
	return Func(func(context.Context) (bool, error) {
		return true, nil
	})
}

// Failing returns a [Monitor] which always reports unhealthy with err.
func Failing(err error) Monitor {
	return Func(func(context.Context) (bool, error) {
		return false, err
	})
}

// Binary is a [Monitor] which simply has 2 states: healthy or unhealthy.
// It is safe for concurrent use. The zero value represents an unhealthy state.
//
// The example service flips a Binary to unhealthy once shutdown begins
// so the readiness probe stops routing traffic to a draining process.
type Binary struct {
	healthy atomic.Bool
}

// MarkUnhealthy changes the state to unhealthy.
func (b *Binary) MarkUnhealthy() {
	b.healthy.Store(false)
}

// MarkHealthy changes that state to healthy.
func (b *Binary) MarkHealthy() {
	b.healthy.Store(true)
}

// Healthy implements the [Monitor] interface.
func (b *Binary) Healthy(ctx context.Context) (bool, error) {
	return b.healthy.Load(), nil
}

// AllMonitor is healthy only when every one of its [Monitor]s is healthy.
// Every monitor is checked and their errors are joined with [errors.Join].
type AllMonitor []Monitor

// All returns an [AllMonitor] over ms.
func All(ms ...Monitor) AllMonitor {
	return AllMonitor(ms)
}

// Healthy implements the [Monitor] interface.
func (am AllMonitor) Healthy(ctx context.Context) (bool, error) {
	allHealthy := true
	var errs []error
	for _, m := range am {
		healthy, err := m.Healthy(ctx)
		if err != nil {
			errs = append(errs, err)
		}
		allHealthy = allHealthy && healthy && err == nil
	}
	return allHealthy, errors.Join(errs...)
}

// AnyMonitor is healthy as soon as one of its [Monitor]s is healthy.
//
// Errors are only returned when no monitor reports healthy.
type AnyMonitor []Monitor

// Any returns an [AnyMonitor] over ms.
func Any(ms ...Monitor) AnyMonitor {
	return AnyMonitor(ms)
}

// Healthy implements the [Monitor] interface.
func (am AnyMonitor) Healthy(ctx context.Context) (bool, error) {
	errs := make([]error, 0, len(am))
	for _, m := range am {
		healthy, err := m.Healthy(ctx)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if healthy {
			return true, nil
		}
	}
	return false, errors.Join(errs...)
}
