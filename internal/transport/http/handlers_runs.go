package httptransport

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"mailmove/internal/platform/middleware"
	"mailmove/internal/runs"
	dErrors "mailmove/pkg/domain-errors"
	"mailmove/pkg/platform/httputil"
	"mailmove/pkg/platform/sentinel"
)

// RunStore is the read side of the run history consumed by the admin API.
type RunStore interface {
	Get(ctx context.Context, runID string) (runs.Summary, error)
	Recent(ctx context.Context, limit int) ([]runs.Summary, error)
}

type runResponse struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	DryRun     bool      `json:"dry_run"`
	OldDomains []string  `json:"old_domains"`
	NewDomain  string    `json:"new_domain"`
	Processed  int       `json:"processed"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
	Skipped    int       `json:"skipped"`
	Simulated  int       `json:"simulated"`
}

func toRunResponse(s runs.Summary) runResponse {
	return runResponse{
		RunID:      s.RunID,
		StartedAt:  s.StartedAt,
		FinishedAt: s.FinishedAt,
		DryRun:     s.DryRun,
		OldDomains: s.OldDomains,
		NewDomain:  s.NewDomain,
		Processed:  s.Processed,
		Succeeded:  s.Succeeded,
		Failed:     s.Failed,
		Skipped:    s.Skipped,
		Simulated:  s.Simulated,
	}
}

// handleRecentRuns handles GET /admin/runs requests.
func (h *Handler) handleRecentRuns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.runs == nil {
		h.notConfigured(w)
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 200 {
			httputil.WriteJSON(w, http.StatusBadRequest, map[string]string{
				"error":             "validation",
				"error_description": "limit must be an integer between 1 and 200",
			})
			return
		}
		limit = n
	}

	summaries, err := h.runs.Recent(ctx, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "listing runs failed",
			"error", err,
			"request_id", middleware.GetRequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}

	out := make([]runResponse, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, toRunResponse(s))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"runs": out})
}

// handleGetRun handles GET /admin/runs/{runID} requests.
func (h *Handler) handleGetRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.runs == nil {
		h.notConfigured(w)
		return
	}

	runID := chi.URLParam(r, "runID")
	summary, err := h.runs.Get(ctx, runID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			err = dErrors.Wrap(err, dErrors.CodeNotFound, "unknown run")
		}
		h.logger.WarnContext(ctx, "run lookup failed",
			"run_id", runID,
			"error", err,
			"request_id", middleware.GetRequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toRunResponse(summary))
}

func (h *Handler) notConfigured(w http.ResponseWriter) {
	httputil.WriteJSON(w, http.StatusNotImplemented, map[string]string{
		"error":             "not_configured",
		"error_description": "run history requires a postgres store",
	})
}
