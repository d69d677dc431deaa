// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package auth provides the authentication hook consulted before
// auth-required routes are handled.
package auth

import (
	"context"
	"errors"
	"net/http"
)

var (
	// ErrDenied is returned by [DenyAll].
	ErrDenied = errors.New("auth: access denied")

	// ErrMissingCredentials is returned when a request carries no credentials.
	ErrMissingCredentials = errors.New("auth: missing credentials")

	// ErrNotGranted is returned when an [Authenticator] neither granted
	// access nor returned an error.
	ErrNotGranted = errors.New("auth: access not granted")
)

// Authenticator decides whether a request may access an auth-required route.
//
// Access is granted only when Authenticate returns a non-nil context and a
// nil error. The returned context replaces the request context for the
// handler, which allows authenticators to attach identities.
type Authenticator interface {
	Authenticate(context.Context, *http.Request) (context.Context, error)
}

// Func is an adapter to allow the use of ordinary functions as [Authenticator]s.
type Func func(context.Context, *http.Request) (context.Context, error)

// Authenticate implements the [Authenticator] interface.
func (f Func) Authenticate(ctx context.Context, r *http.Request) (context.Context, error) {
	return f(ctx, r)
}

// DenyAll is an [Authenticator] which never grants access.
var DenyAll Authenticator = Func(func(context.Context, *http.Request) (context.Context, error) {
	return nil, ErrDenied
})

// AllowAll is an [Authenticator] which grants every request.
var AllowAll Authenticator = Func(func(ctx context.Context, _ *http.Request) (context.Context, error) {
	return ctx, nil
})

// Authenticate runs a with the request and enforces the grant contract
// of [Authenticator]. A nil a denies every request.
func Authenticate(ctx context.Context, a Authenticator, r *http.Request) (context.Context, error) {
	if a == nil {
		return nil, ErrDenied
	}

	authCtx, err := a.Authenticate(ctx, r.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	if authCtx == nil {
		return nil, ErrNotGranted
	}
	return authCtx, nil
}
