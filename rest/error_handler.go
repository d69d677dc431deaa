// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package rest

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
)

// InternalErrorDetail is the detail sent for every unrecognized error.
const InternalErrorDetail = "internal error"

// HttpResponseWriter is an interface for errors that can write their own HTTP responses.
//
// This allows custom error types to control status codes and response bodies.
type HttpResponseWriter interface {
	WriteHttpResponse(context.Context, http.ResponseWriter)
}

// ErrorHandler handles errors that occur during request processing.
type ErrorHandler interface {
	OnError(context.Context, http.ResponseWriter, error)
}

// ErrorHandlerFunc is a function adapter that implements [ErrorHandler].
type ErrorHandlerFunc func(context.Context, http.ResponseWriter, error)

// OnError implements the [ErrorHandler] interface.
func (f ErrorHandlerFunc) OnError(ctx context.Context, w http.ResponseWriter, err error) {
	f(ctx, w, err)
}

// DetailErrorHandler returns the default [ErrorHandler].
//
// Errors implementing [HttpResponseWriter], anywhere in their chain, write
// their own response. Every other error is logged and answered with
// 500 {"detail": "internal error"} so internal details never reach the client.
func DetailErrorHandler(log *slog.Logger) ErrorHandler {
	return ErrorHandlerFunc(func(ctx context.Context, w http.ResponseWriter, err error) {
		var hrw HttpResponseWriter
		if errors.As(err, &hrw) {
			log.DebugContext(
				ctx,
				"sending error response",
				slog.String("request_id", RequestID(ctx)),
				slog.Any("error", err),
			)
			hrw.WriteHttpResponse(ctx, w)
			return
		}

		log.ErrorContext(
			ctx,
			"unhandled error",
			slog.String("request_id", RequestID(ctx)),
			slog.Any("error", err),
		)
		WriteDetail(ctx, w, http.StatusInternalServerError, InternalErrorDetail)
	})
}

// WriteError writes err with the [DetailErrorHandler] using the rest logger.
func WriteError(ctx context.Context, w http.ResponseWriter, err error) {
	DetailErrorHandler(logger).OnError(ctx, w, err)
}
