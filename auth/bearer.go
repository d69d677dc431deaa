// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// TokenVerifier validates a bearer token and returns its claims.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*Claims, error)
}

// InvalidTokenError wraps the reason a bearer token was rejected.
type InvalidTokenError struct {
	Cause error
}

// Error implements the [error] interface.
func (e InvalidTokenError) Error() string {
	return fmt.Sprintf("auth: invalid bearer token: %v", e.Cause)
}

// Unwrap returns the underlying cause.
func (e InvalidTokenError) Unwrap() error {
	return e.Cause
}

type claimsCtxKey struct{}

// ClaimsFromContext returns the claims stored by a [Bearer] authenticator.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsCtxKey{}).(*Claims)
	return claims, ok && claims != nil
}

// ContextWithClaims returns a copy of ctx carrying claims.
func ContextWithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsCtxKey{}, claims)
}

// Bearer returns an [Authenticator] which reads the token from the
// "Authorization: Bearer <token>" header and verifies it with v.
// The verified claims are available through [ClaimsFromContext].
func Bearer(v TokenVerifier) Authenticator {
	return Func(func(ctx context.Context, r *http.Request) (context.Context, error) {
		token, ok := bearerToken(r)
		if !ok {
			return nil, ErrMissingCredentials
		}

		claims, err := v.VerifyToken(ctx, token)
		if err != nil {
			return nil, InvalidTokenError{Cause: err}
		}
		return ContextWithClaims(ctx, claims), nil
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
