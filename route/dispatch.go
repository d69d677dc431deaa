// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package route

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/z5labs/blueprint/auth"
	"github.com/z5labs/blueprint/metrics"
	"github.com/z5labs/blueprint/rest"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/z5labs/sdk-go/try"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type dispatcher struct {
	op            Operation
	binding       Binding
	instance      *Instance
	authenticator auth.Authenticator
	errHandler    rest.ErrorHandler
	metrics       *metrics.Collector
	log           *slog.Logger
	tracer        trace.Tracer
}

// ServeRoute implements the [rest.RouteHandler] interface.
func (d *dispatcher) ServeRoute(w http.ResponseWriter, r *http.Request, in rest.Input) {
	start := time.Now()

	ctx, span := d.tracer.Start(
		r.Context(),
		"dispatcher.ServeRoute",
		trace.WithAttributes(
			attribute.String("operation.id", d.op.OperationID),
			attribute.Bool("auth.required", d.op.AuthRequired),
		),
	)
	defer span.End()

	ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

	err := d.serve(ctx, ww, r, in)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		d.onError(ctx, ww, err)
	}

	status := ww.Status()
	if status == 0 {
		status = http.StatusOK
	}
	d.metrics.ObserveRequest(d.op.OperationID, d.op.Method, status, time.Since(start))
}

// onError hands err to the error handler. A panicking error handler still
// results in a single 500 response when nothing was written yet.
func (d *dispatcher) onError(ctx context.Context, w middleware.WrapResponseWriter, err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		d.log.ErrorContext(
			ctx,
			"error handler panicked",
			slog.String("operation_id", d.op.OperationID),
			slog.Any("error", err),
			slog.Any("panic", r),
		)
		if w.Status() != 0 {
			return
		}
		rest.WriteDetail(ctx, w, http.StatusInternalServerError, rest.InternalErrorDetail)
	}()

	d.errHandler.OnError(ctx, w, err)
}

// recoverPanic turns a panic into a [try.PanicError] whose value is always
// an error, so unwrapping it is safe.
func recoverPanic(err *error) {
	r := recover()
	if r == nil {
		return
	}

	cause, ok := r.(error)
	if !ok {
		cause = fmt.Errorf("%v", r)
	}
	*err = try.PanicError{Value: cause}
}

func (d *dispatcher) serve(ctx context.Context, w http.ResponseWriter, r *http.Request, in rest.Input) (err error) {
	defer recoverPanic(&err)

	if d.op.AuthRequired {
		ctx, err = auth.Authenticate(ctx, d.authenticator, r)
		if err != nil {
			d.metrics.AuthFailure(d.op.OperationID)
			return rest.UnauthorizedError{Cause: err}
		}
	}

	resp, err := d.binding.invoke(ctx, in, d.instance)
	if err != nil {
		return err
	}
	if resp == nil {
		w.WriteHeader(http.StatusOK)
		return nil
	}

	b, err := json.Marshal(resp)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, werr := w.Write(b)
	if werr != nil {
		d.log.WarnContext(
			ctx,
			"failed to write response",
			slog.String("operation_id", d.op.OperationID),
			slog.Any("error", werr),
		)
	}
	return nil
}
