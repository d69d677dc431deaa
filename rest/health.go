// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package rest

import (
	"log/slog"
	"net/http"

	"github.com/z5labs/blueprint/health"
)

func healthHandler(m health.Monitor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		healthy, err := m.Healthy(ctx)
		if err != nil {
			logger.WarnContext(ctx, "health monitor returned an error", slog.Any("error", err))
		}
		if !healthy || err != nil {
			WriteDetail(ctx, w, http.StatusServiceUnavailable, http.StatusText(http.StatusServiceUnavailable))
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}
