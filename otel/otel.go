// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package otel installs the OpenTelemetry SDK for the lifetime of a service.
//
// Logs written through [blueprint.Logger] are always handed to the SDK
// logger provider. Traces and metrics are exported over OTLP only when an
// endpoint is configured, otherwise no-op providers are installed.
package otel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/z5labs/blueprint/app"
	"github.com/z5labs/blueprint/config"

	"github.com/z5labs/sdk-go/try"
	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.38.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// OTLP transport protocols.
const (
	ProtocolGRPC = "grpc"
	ProtocolHTTP = "http/protobuf"
)

// UnknownProtocolError is returned for an OTLP protocol other than
// [ProtocolGRPC] or [ProtocolHTTP].
type UnknownProtocolError struct {
	Protocol string
}

// Error implements the [error] interface.
func (e UnknownProtocolError) Error() string {
	return fmt.Sprintf("otel: unknown otlp protocol: %q", e.Protocol)
}

// SDK configures the OpenTelemetry providers.
type SDK struct {
	Telemetry config.Telemetry

	// LogHandler receives every log record emitted at or above LogLevel.
	// Nil discards log records unless they are exported over OTLP.
	LogHandler slog.Handler
	LogLevel   slog.Level

	// BatchTimeout bounds how long spans and log records are buffered
	// before being exported. Defaults to 5 seconds.
	BatchTimeout time.Duration

	// MetricInterval is the OTLP metric export interval. Defaults to 30 seconds.
	MetricInterval time.Duration
}

// FromConfig returns the [SDK] described by cfg which writes log records to h.
func FromConfig(cfg config.Config, h slog.Handler) SDK {
	return SDK{
		Telemetry:  cfg.Telemetry,
		LogHandler: h,
		LogLevel:   cfg.LogLevel,
	}
}

func (sdk SDK) exporting() bool {
	return sdk.Telemetry.Endpoint != ""
}

func (sdk SDK) batchTimeout() time.Duration {
	if sdk.BatchTimeout > 0 {
		return sdk.BatchTimeout
	}
	return 5 * time.Second
}

func (sdk SDK) metricInterval() time.Duration {
	if sdk.MetricInterval > 0 {
		return sdk.MetricInterval
	}
	return 30 * time.Second
}

// Runtime runs a service with the OpenTelemetry providers installed
// globally and shuts them down once the service returns.
type Runtime struct {
	inner          app.Runtime
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	loggerProvider log.LoggerProvider
}

// Build installs the providers described by sdk before building the
// wrapped service so that its loggers and tracers are bound to them.
func Build[T app.Runtime](sdk SDK, builder app.Builder[T]) app.Builder[Runtime] {
	return app.BuilderFunc[Runtime](func(ctx context.Context) (rt Runtime, err error) {
		rsc, err := newResource(sdk.Telemetry)
		if err != nil {
			return Runtime{}, err
		}

		tp, err := newTracerProvider(ctx, sdk, rsc)
		if err != nil {
			return Runtime{}, err
		}
		mp, err := newMeterProvider(ctx, sdk, rsc)
		if err != nil {
			return Runtime{}, err
		}
		lp, err := newLoggerProvider(ctx, sdk, rsc)
		if err != nil {
			return Runtime{}, err
		}
		defer func() {
			if err != nil {
				try.Close(&err, shutdown(tp, mp, lp))
			}
		}()

		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.Baggage{},
			propagation.TraceContext{},
		))
		otel.SetTracerProvider(tp)
		otel.SetMeterProvider(mp)
		global.SetLoggerProvider(lp)

		if sdk.exporting() {
			err = runtime.Start(
				runtime.WithMeterProvider(mp),
				runtime.WithMinimumReadMemStatsInterval(time.Second),
			)
			if err != nil {
				return Runtime{}, err
			}
		}

		inner, err := builder.Build(ctx)
		if err != nil {
			return Runtime{}, err
		}

		return Runtime{
			inner:          inner,
			tracerProvider: tp,
			meterProvider:  mp,
			loggerProvider: lp,
		}, nil
	})
}

// Run implements the [app.Runtime] interface.
func (rt Runtime) Run(ctx context.Context) (err error) {
	defer try.Close(&err, shutdown(
		rt.tracerProvider,
		rt.meterProvider,
		rt.loggerProvider,
	))

	return rt.inner.Run(ctx)
}

type closerFunc func() error

func (f closerFunc) Close() error {
	return f()
}

type shutdowner interface {
	Shutdown(context.Context) error
}

func shutdown(vs ...any) closerFunc {
	return func() error {
		var errs []error
		for _, v := range vs {
			s, ok := v.(shutdowner)
			if !ok {
				continue
			}

			err := s.Shutdown(context.Background())
			if err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
}

func newResource(t config.Telemetry) (*resource.Resource, error) {
	return resource.New(
		context.Background(),
		resource.WithTelemetrySDK(),
		resource.WithAttributes(
			semconv.ServiceName(t.ServiceName),
			semconv.ServiceVersion(t.ServiceVersion),
		),
	)
}

func newTracerProvider(ctx context.Context, sdk SDK, rsc *resource.Resource) (trace.TracerProvider, error) {
	if !sdk.exporting() {
		return tracenoop.NewTracerProvider(), nil
	}

	exp, err := newSpanExporter(ctx, sdk.Telemetry)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(rsc),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(sdk.Telemetry.SampleRatio))),
		sdktrace.WithBatcher(exp, sdktrace.WithBatchTimeout(sdk.batchTimeout())),
	)
	return tp, nil
}

func newSpanExporter(ctx context.Context, t config.Telemetry) (sdktrace.SpanExporter, error) {
	switch t.Protocol {
	case ProtocolGRPC:
		return otlptracegrpc.New(ctx, otlptracegrpc.WithEndpointURL(t.Endpoint))
	case ProtocolHTTP:
		return otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(t.Endpoint))
	default:
		return nil, UnknownProtocolError{Protocol: t.Protocol}
	}
}

func newMeterProvider(ctx context.Context, sdk SDK, rsc *resource.Resource) (metric.MeterProvider, error) {
	if !sdk.exporting() {
		return metricnoop.NewMeterProvider(), nil
	}

	exp, err := newMetricExporter(ctx, sdk.Telemetry)
	if err != nil {
		return nil, err
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(rsc),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(
			exp,
			sdkmetric.WithInterval(sdk.metricInterval()),
		)),
	)
	return mp, nil
}

func newMetricExporter(ctx context.Context, t config.Telemetry) (sdkmetric.Exporter, error) {
	switch t.Protocol {
	case ProtocolGRPC:
		return otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithEndpointURL(t.Endpoint))
	case ProtocolHTTP:
		return otlpmetrichttp.New(ctx, otlpmetrichttp.WithEndpointURL(t.Endpoint))
	default:
		return nil, UnknownProtocolError{Protocol: t.Protocol}
	}
}

func newLoggerProvider(ctx context.Context, sdk SDK, rsc *resource.Resource) (*sdklog.LoggerProvider, error) {
	opts := []sdklog.LoggerProviderOption{
		sdklog.WithResource(rsc),
	}
	if sdk.LogHandler != nil {
		opts = append(opts, sdklog.WithProcessor(
			minSeverity(sdklog.NewSimpleProcessor(&slogExporter{handler: sdk.LogHandler}), sdk.LogLevel),
		))
	}
	if sdk.exporting() {
		exp, err := newLogExporter(ctx, sdk.Telemetry)
		if err != nil {
			return nil, err
		}
		opts = append(opts, sdklog.WithProcessor(
			minSeverity(sdklog.NewBatchProcessor(exp, sdklog.WithExportInterval(sdk.batchTimeout())), sdk.LogLevel),
		))
	}
	return sdklog.NewLoggerProvider(opts...), nil
}

func newLogExporter(ctx context.Context, t config.Telemetry) (sdklog.Exporter, error) {
	switch t.Protocol {
	case ProtocolGRPC:
		return otlploggrpc.New(ctx, otlploggrpc.WithEndpointURL(t.Endpoint))
	case ProtocolHTTP:
		return otlploghttp.New(ctx, otlploghttp.WithEndpointURL(t.Endpoint))
	default:
		return nil, UnknownProtocolError{Protocol: t.Protocol}
	}
}
