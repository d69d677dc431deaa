// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package otel

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// severityOffset maps slog levels onto OpenTelemetry severities.
const severityOffset = log.SeverityDebug - log.Severity(slog.LevelDebug)

func severityOf(level slog.Level) log.Severity {
	return log.Severity(level) + severityOffset
}

func levelOf(sev log.Severity) slog.Level {
	return slog.Level(sev - severityOffset)
}

// slogExporter writes log records to a [slog.Handler].
type slogExporter struct {
	handler slog.Handler
}

// Export implements the [sdklog.Exporter] interface.
func (s *slogExporter) Export(ctx context.Context, records []sdklog.Record) error {
	for _, record := range records {
		sr := slog.NewRecord(record.Timestamp(), levelOf(record.Severity()), record.Body().AsString(), 0)

		record.WalkAttributes(func(kv log.KeyValue) bool {
			sr.AddAttrs(slog.Attr{
				Key:   kv.Key,
				Value: slogValue(kv.Value),
			})
			return true
		})

		sr.AddAttrs(slog.String("logger", record.InstrumentationScope().Name))
		if record.TraceID().IsValid() {
			sr.AddAttrs(slog.Group(
				"otel",
				slog.String("trace_id", record.TraceID().String()),
				slog.String("span_id", record.SpanID().String()),
			))
		}

		err := s.handler.Handle(ctx, sr)
		if err != nil {
			return err
		}
	}
	return nil
}

// ForceFlush implements the [sdklog.Exporter] interface.
func (s *slogExporter) ForceFlush(ctx context.Context) error {
	return nil
}

// Shutdown implements the [sdklog.Exporter] interface.
func (s *slogExporter) Shutdown(ctx context.Context) error {
	return nil
}

func slogValue(v log.Value) slog.Value {
	switch v.Kind() {
	case log.KindBool:
		return slog.BoolValue(v.AsBool())
	case log.KindBytes:
		return slog.AnyValue(v.AsBytes())
	case log.KindFloat64:
		return slog.Float64Value(v.AsFloat64())
	case log.KindInt64:
		return slog.Int64Value(v.AsInt64())
	case log.KindString:
		return slog.StringValue(v.AsString())
	case log.KindMap:
		kvs := v.AsMap()
		attrs := make([]slog.Attr, len(kvs))
		for i, kv := range kvs {
			attrs[i] = slog.Attr{Key: kv.Key, Value: slogValue(kv.Value)}
		}
		return slog.GroupValue(attrs...)
	case log.KindSlice:
		vs := v.AsSlice()
		vals := make([]any, len(vs))
		for i := range vs {
			vals[i] = slogValue(vs[i]).Any()
		}
		return slog.AnyValue(vals)
	default:
		return slog.StringValue(v.String())
	}
}

// severityProcessor drops records below a minimum severity before they
// reach the wrapped processor.
type severityProcessor struct {
	inner sdklog.Processor
	min   log.Severity
}

func minSeverity(inner sdklog.Processor, level slog.Level) *severityProcessor {
	return &severityProcessor{
		inner: inner,
		min:   severityOf(level),
	}
}

// OnEmit implements the [sdklog.Processor] interface.
func (p *severityProcessor) OnEmit(ctx context.Context, record *sdklog.Record) error {
	if record.Severity() < p.min {
		return nil
	}
	return p.inner.OnEmit(ctx, record)
}

// Shutdown implements the [sdklog.Processor] interface.
func (p *severityProcessor) Shutdown(ctx context.Context) error {
	return p.inner.Shutdown(ctx)
}

// ForceFlush implements the [sdklog.Processor] interface.
func (p *severityProcessor) ForceFlush(ctx context.Context) error {
	return p.inner.ForceFlush(ctx)
}
