// Package httptransport is the thin admin HTTP layer: health, metrics and
// read-only run history. It delegates to stores without embedding migration
// logic so transport concerns remain isolated.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mailmove/internal/platform/middleware"
	"mailmove/pkg/platform/httputil"
)

// Handler carries the dependencies of the admin endpoints.
type Handler struct {
	runs   RunStore
	logger *slog.Logger
}

func NewHandler(runs RunStore, logger *slog.Logger) *Handler {
	return &Handler{runs: runs, logger: logger}
}

// NewRouter wires the admin surface. Run endpoints are guarded by the admin
// token when a hash is configured; health and metrics stay open for probes
// and scrapers.
func NewRouter(h *Handler, adminTokenHash string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)

	r.Get("/healthz", handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/admin", func(r chi.Router) {
		if adminTokenHash != "" {
			r.Use(middleware.RequireAdminToken(adminTokenHash, h.logger))
		}
		r.Get("/runs", h.handleRecentRuns)
		r.Get("/runs/{runID}", h.handleGetRun)
	})

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
