// Package api exposes the JSON API consumed by the label's web frontend
// and admin console.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/backlinefm/backline/internal/api/middleware"
	"github.com/backlinefm/backline/internal/auth"
	"github.com/backlinefm/backline/internal/catalogsync"
	"github.com/backlinefm/backline/internal/playlist"
	"github.com/backlinefm/backline/internal/ratelimit"
	"github.com/backlinefm/backline/internal/roster"
	"github.com/backlinefm/backline/internal/stats"
	"github.com/backlinefm/backline/internal/submission"
)

// RouterDeps bundles all dependencies needed by the HTTP router.
type RouterDeps struct {
	AuthService       *auth.Service
	RosterService     *roster.Service
	SubmissionService *submission.Service
	PlaylistService   *playlist.Service
	StatsService      *stats.Service
	RateLimitService  *ratelimit.Service
	Orchestrator      *catalogsync.Orchestrator
	Logger            *slog.Logger
	BasePath          string
}

// Router sets up all HTTP routes for the application.
type Router struct {
	authService       *auth.Service
	rosterService     *roster.Service
	submissionService *submission.Service
	playlistService   *playlist.Service
	statsService      *stats.Service
	rateLimitService  *ratelimit.Service
	orchestrator      *catalogsync.Orchestrator
	logger            *slog.Logger
	basePath          string
}

// NewRouter creates a new Router with all routes configured.
func NewRouter(deps RouterDeps) *Router {
	return &Router{
		authService:       deps.AuthService,
		rosterService:     deps.RosterService,
		submissionService: deps.SubmissionService,
		playlistService:   deps.PlaylistService,
		statsService:      deps.StatsService,
		rateLimitService:  deps.RateLimitService,
		orchestrator:      deps.Orchestrator,
		logger:            deps.Logger,
		basePath:          deps.BasePath,
	}
}

// Handler returns the fully configured HTTP handler with middleware applied.
func (r *Router) Handler() http.Handler {
	authMw := middleware.Auth(r.authService)
	adminOnly := middleware.RequireAdmin()
	publicPostLimit := middleware.NewIPRateLimiter(time.Second, 5)
	mux := http.NewServeMux()
	bp := r.basePath

	// Public routes (no auth)
	mux.HandleFunc("GET "+bp+"/api/v1/health", r.handleHealth)
	mux.HandleFunc("GET "+bp+"/api/v1/artists", r.handleListArtists)
	mux.HandleFunc("GET "+bp+"/api/v1/artists/{id}", r.handleGetArtist)
	mux.HandleFunc("GET "+bp+"/api/v1/playlists", r.handleShowcase)
	mux.Handle("POST "+bp+"/api/v1/submissions",
		publicPostLimit.Middleware(http.HandlerFunc(r.handleCreateSubmission)))
	mux.Handle("POST "+bp+"/api/v1/auth/login",
		publicPostLimit.Middleware(http.HandlerFunc(r.handleLogin)))
	mux.Handle("POST "+bp+"/api/v1/auth/setup",
		publicPostLimit.Middleware(http.HandlerFunc(r.handleSetup)))

	// Protected routes (auth required)
	mux.HandleFunc("POST "+bp+"/api/v1/auth/logout", wrapAuth(r.handleLogout, authMw))
	mux.HandleFunc("GET "+bp+"/api/v1/auth/me", wrapAuth(r.handleMe, authMw))
	mux.HandleFunc("POST "+bp+"/api/v1/admin/artists", wrapAuth(r.handleCreateArtist, authMw))
	mux.HandleFunc("PUT "+bp+"/api/v1/admin/artists/{id}", wrapAuth(r.handleUpdateArtist, authMw))
	mux.HandleFunc("DELETE "+bp+"/api/v1/admin/artists/{id}", wrapAuth(r.handleDeleteArtist, authMw))
	mux.HandleFunc("GET "+bp+"/api/v1/admin/submissions", wrapAuth(r.handleListSubmissions, authMw))
	mux.HandleFunc("GET "+bp+"/api/v1/admin/submissions/{id}", wrapAuth(r.handleGetSubmission, authMw))
	mux.HandleFunc("PUT "+bp+"/api/v1/admin/submissions/{id}/status", wrapAuth(r.handleUpdateSubmissionStatus, authMw))
	mux.HandleFunc("DELETE "+bp+"/api/v1/admin/submissions/{id}", wrapAuth(r.handleDeleteSubmission, authMw))
	mux.HandleFunc("PUT "+bp+"/api/v1/admin/playlists", wrapAuth(r.handleUpsertPlaylist, authMw))
	mux.HandleFunc("DELETE "+bp+"/api/v1/admin/playlists/{id}", wrapAuth(r.handleDeletePlaylist, authMw))
	mux.HandleFunc("GET "+bp+"/api/v1/admin/stats", wrapAuth(r.handleStats, authMw))

	// Admin-only routes (role check on top of auth)
	mux.HandleFunc("POST "+bp+"/api/v1/admin/users", wrapAuth(adminOnly(r.handleCreateUser), authMw))
	mux.HandleFunc("POST "+bp+"/api/v1/admin/sync/artists", wrapAuth(adminOnly(r.handleSyncArtists), authMw))
	mux.HandleFunc("POST "+bp+"/api/v1/admin/sync/refresh", wrapAuth(adminOnly(r.handleSyncRefresh), authMw))
	mux.HandleFunc("POST "+bp+"/api/v1/admin/sync/releases", wrapAuth(adminOnly(r.handleSyncReleases), authMw))

	// Apply logging to all requests
	return middleware.Logging(r.logger)(mux)
}

// wrapAuth wraps a handler function with auth middleware.
func wrapAuth(fn http.HandlerFunc, authMw func(http.Handler) http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authMw(fn).ServeHTTP(w, r)
	}
}
