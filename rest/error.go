// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package rest

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
)

// HTTPError is an application error carrying the status code and message
// sent to the client as {"detail": message}.
type HTTPError struct {
	Status  int
	Message string
}

// Error returns a [HTTPError] with the given status code and message.
//
// Example:
//
//	return nil, rest.Error(http.StatusForbidden, "forbidden")
func Error(status int, message string) error {
	return HTTPError{
		Status:  status,
		Message: message,
	}
}

// Error implements the [error] interface.
func (e HTTPError) Error() string {
	return fmt.Sprintf("http error %d: %s", e.Status, e.Message)
}

// WriteHttpResponse implements [HttpResponseWriter]. A status outside
// 200-999 is answered with 500 {"detail": "internal error"}.
func (e HTTPError) WriteHttpResponse(ctx context.Context, w http.ResponseWriter) {
	if e.Status < 200 || e.Status > 999 {
		logger.ErrorContext(
			ctx,
			"invalid http error status",
			slog.Int("status", e.Status),
			slog.String("detail", e.Message),
		)
		WriteDetail(ctx, w, http.StatusInternalServerError, InternalErrorDetail)
		return
	}
	WriteDetail(ctx, w, e.Status, e.Message)
}

// ValidationError is returned when a request does not match the schemas
// of its route. It results in a 400 Bad Request.
type ValidationError struct {
	// In is one of [InQuery], [InParams] or [InBody].
	In     string
	Detail string
	Cause  error
}

// Error implements the [error] interface.
func (e ValidationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Detail, e.Cause)
	}
	return e.Detail
}

// Unwrap returns the underlying cause.
func (e ValidationError) Unwrap() error {
	return e.Cause
}

// WriteHttpResponse implements [HttpResponseWriter].
func (e ValidationError) WriteHttpResponse(ctx context.Context, w http.ResponseWriter) {
	WriteDetail(ctx, w, http.StatusBadRequest, e.Detail)
}

// InvalidContentTypeError is returned when a request body is not JSON.
type InvalidContentTypeError struct {
	ContentType string
}

// Error implements the [error] interface.
func (e InvalidContentTypeError) Error() string {
	return fmt.Sprintf("invalid content type for request: %s", e.ContentType)
}

// WriteHttpResponse implements [HttpResponseWriter].
func (e InvalidContentTypeError) WriteHttpResponse(ctx context.Context, w http.ResponseWriter) {
	WriteDetail(ctx, w, http.StatusUnsupportedMediaType, fmt.Sprintf("Unsupported Media Type: %s", e.ContentType))
}

// UnauthorizedError is returned when a request to a secured route
// is not granted access. The cause is never sent to the client.
type UnauthorizedError struct {
	Cause error
}

// Error implements the [error] interface.
func (e UnauthorizedError) Error() string {
	if e.Cause == nil {
		return "unauthorized"
	}
	return fmt.Sprintf("unauthorized: %v", e.Cause)
}

// Unwrap returns the underlying cause.
func (e UnauthorizedError) Unwrap() error {
	return e.Cause
}

// WriteHttpResponse implements [HttpResponseWriter].
func (e UnauthorizedError) WriteHttpResponse(ctx context.Context, w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	WriteDetail(ctx, w, http.StatusUnauthorized, "Not authenticated")
}

// SchemaConflictError is returned when a schema name is published
// twice with different Go types.
type SchemaConflictError struct {
	Name     string
	Existing reflect.Type
	Given    reflect.Type
}

// Error implements the [error] interface.
func (e SchemaConflictError) Error() string {
	return fmt.Sprintf("schema %s already published for %s: %s", e.Name, e.Existing, e.Given)
}

// UnpublishedSchemaError is returned when a route references a schema
// which was not published with [Api.RegisterSchema].
type UnpublishedSchemaError struct {
	Name string
}

// Error implements the [error] interface.
func (e UnpublishedSchemaError) Error() string {
	return fmt.Sprintf("schema not published: %s", e.Name)
}

// RouteConflictError is returned when a method and pattern are registered twice.
type RouteConflictError struct {
	Method  string
	Pattern string
}

// Error implements the [error] interface.
func (e RouteConflictError) Error() string {
	return fmt.Sprintf("route already registered: %s %s", e.Method, e.Pattern)
}

// OperationConflictError is returned when an operation id is registered twice.
type OperationConflictError struct {
	OperationID string
}

// Error implements the [error] interface.
func (e OperationConflictError) Error() string {
	return fmt.Sprintf("operation id already registered: %s", e.OperationID)
}
