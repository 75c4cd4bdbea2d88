package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/myrjola/aivisibility/internal/errors"
)

const healthCheckTimeout = 2 * time.Second

// healthy reports whether the server can take visitors. The lead database must answer; the analysis
// backend is not checked because wizard pages explain its outages themselves.
func (app *application) healthy(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	if err := app.db.ReadOnly.PingContext(ctx); err != nil {
		app.logger.LogAttrs(ctx, slog.LevelError, "health check failed", errors.SlogError(errors.Wrap(err, "ping database")))
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"unavailable"}`))
		return
	}
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
