// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrEmptySecret is returned by [NewJWTVerifier] for an empty signing secret.
var ErrEmptySecret = errors.New("auth: jwt secret must not be empty")

// Claims are the JWT claims understood by [JWTVerifier].
type Claims struct {
	Scope string `json:"scope,omitempty"`
	jwt.RegisteredClaims
}

// JWTOption configures a [JWTVerifier].
type JWTOption func(*JWTVerifier)

// Issuer requires tokens to carry the given "iss" claim.
func Issuer(iss string) JWTOption {
	return func(v *JWTVerifier) {
		v.issuer = iss
	}
}

// Audience requires tokens to carry the given "aud" claim.
func Audience(aud string) JWTOption {
	return func(v *JWTVerifier) {
		v.audience = aud
	}
}

// Leeway allows for clock skew when validating time based claims.
func Leeway(d time.Duration) JWTOption {
	return func(v *JWTVerifier) {
		v.leeway = d
	}
}

// JWTVerifier is a [TokenVerifier] for HMAC-SHA256 signed JWTs.
// It is safe for concurrent use.
type JWTVerifier struct {
	secret   []byte
	issuer   string
	audience string
	leeway   time.Duration
}

// NewJWTVerifier returns a [JWTVerifier] for tokens signed with secret.
func NewJWTVerifier(secret []byte, opts ...JWTOption) (*JWTVerifier, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}

	v := &JWTVerifier{
		secret: secret,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// VerifyToken implements the [TokenVerifier] interface.
func (v *JWTVerifier) VerifyToken(ctx context.Context, token string) (*Claims, error) {
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
	}
	if v.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(v.audience))
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, parserOpts...)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// Sign issues a token for subject which expires after ttl. Every token
// gets a random id.
func (v *JWTVerifier) Sign(subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if v.audience != "" {
		claims.Audience = jwt.ClaimStrings{v.audience}
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
