// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package blueprint builds HTTP APIs from declarative specifications.
//
// An API is described by three values: a [schema.Registry] of named data
// schemas, a [route.Server] of modules and routes referencing those schemas
// by name, and a [route.Impl] binding a handler to every route. Compiling
// them with [route.Compile] installs validated, documented and optionally
// authenticated routes on a [rest.Api].
package blueprint

import (
	"log/slog"

	"go.opentelemetry.io/contrib/bridges/otelslog"
)

// Logger returns a [slog.Logger] which emits records through the
// OpenTelemetry log bridge under the given instrumentation scope name.
func Logger(name string) *slog.Logger {
	return otelslog.NewLogger(name)
}

// LogHandler returns the [slog.Handler] backing [Logger].
func LogHandler(name string) slog.Handler {
	return otelslog.NewHandler(name)
}
