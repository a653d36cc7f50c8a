package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/backlinefm/backline/internal/api/middleware"
	"github.com/backlinefm/backline/internal/catalog"
	"github.com/backlinefm/backline/internal/catalogsync"
	"github.com/backlinefm/backline/internal/ratelimit"
)

func (r *Router) handleStats(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, r.statsService.Dashboard(req.Context()))
}

func (r *Router) handleSyncArtists(w http.ResponseWriter, req *http.Request) {
	r.runSync(w, req, "new_artists", func() (*catalogsync.Result, error) {
		return r.orchestrator.Run(req.Context(), catalogsync.ModeNew)
	})
}

func (r *Router) handleSyncRefresh(w http.ResponseWriter, req *http.Request) {
	r.runSync(w, req, "refresh", func() (*catalogsync.Result, error) {
		return r.orchestrator.Run(req.Context(), catalogsync.ModeRefresh)
	})
}

func (r *Router) handleSyncReleases(w http.ResponseWriter, req *http.Request) {
	r.runSync(w, req, "releases", func() (*catalogsync.Result, error) {
		return r.orchestrator.SyncReleases(req.Context())
	})
}

// runSync applies the shared sync rate limit and error mapping. Row-level
// failures are reported inside the summary with a 200; only run-level
// failures (auth, roster read) produce an error status.
func (r *Router) runSync(w http.ResponseWriter, req *http.Request, mode string, run func() (*catalogsync.Result, error)) {
	ident := middleware.IdentityFromContext(req.Context())
	if d := r.rateLimitService.Check(req.Context(), ident.UserID, ratelimit.OpAdminSync); !d.Allowed {
		w.Header().Set("Retry-After", strconv.Itoa(int(d.RetryAfter.Seconds())))
		writeJSON(w, http.StatusTooManyRequests, map[string]string{
			"error": "sync was triggered too recently, please wait",
		})
		return
	}
	r.rateLimitService.Record(req.Context(), ident.UserID, ratelimit.OpAdminSync, mode)

	result, err := run()
	if err != nil {
		var authErr *catalog.AuthError
		if errors.As(err, &authErr) {
			r.logger.Error("sync aborted, catalog authentication failed", "mode", mode, "error", err)
			writeJSON(w, http.StatusBadGateway, map[string]any{
				"error":  "catalog authentication failed",
				"result": result,
			})
			return
		}
		r.logger.Error("sync failed", "mode", mode, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, result)
}
