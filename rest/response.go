// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package rest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/z5labs/blueprint"
)

var logger = blueprint.Logger("github.com/z5labs/blueprint/rest")

// Detail is the body of every error response.
type Detail struct {
	Detail string `json:"detail" required:"true"`
}

// WriteJSON writes v as a JSON response with the given status code.
func WriteJSON(ctx context.Context, w http.ResponseWriter, status int, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(b)
	return err
}

// WriteDetail writes {"detail": msg} with the given status code.
func WriteDetail(ctx context.Context, w http.ResponseWriter, status int, msg string) {
	err := WriteJSON(ctx, w, status, Detail{Detail: msg})
	if err == nil {
		return
	}
	logger.ErrorContext(ctx, "failed to write error detail", slog.Any("error", err))
}
