package handlers

import (
	"net/http"

	"kidshield/internal/metrics"
)

// Handlers groups the resource handlers mounted by NewRouter
type Handlers struct {
	Auth     *AuthHandler
	Children *ChildHandler
	Rules    *RuleHandler
	Events   *EventHandler
}

// NewRouter registers every route and wraps the mux with CORS and request
// logging
func NewRouter(h Handlers, middleware *Middleware) http.Handler {
	mux := http.NewServeMux()

	// Public routes
	mux.HandleFunc("GET /health", Health)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("POST /auth/register", middleware.RateLimit(h.Auth.Register))
	mux.HandleFunc("POST /auth/login", middleware.RateLimit(h.Auth.Login))

	// Family routes
	mux.HandleFunc("POST /children", middleware.RequireAuth(h.Children.CreateChild))
	mux.HandleFunc("GET /children", middleware.RequireAuth(h.Children.ListChildren))
	mux.HandleFunc("GET /rules", middleware.RequireAuth(h.Rules.ListRules))
	mux.HandleFunc("POST /rules", middleware.RequireAuth(h.Rules.UpsertRule))
	mux.HandleFunc("POST /events", middleware.RequireAuth(h.Events.RecordEvent))
	mux.HandleFunc("GET /policy", middleware.RequireAuth(h.Rules.GetPolicy))

	return middleware.Logging(middleware.CORS(mux))
}
