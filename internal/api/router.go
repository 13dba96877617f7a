package api

import (
	"net/http"
	"time"

	"github.com/randytsao24/walkwise/internal/api/handlers"
	"github.com/randytsao24/walkwise/internal/config"
)

// Deps are the services the router exposes. Only Navigator is required.
type Deps struct {
	Navigator handlers.Navigator
	History   handlers.HistoryProvider
	// Stream serves the live event websocket.
	Stream   http.Handler
	Checks   map[string]handlers.Check
	Gauges   map[string]handlers.Gauge
	Defaults handlers.Defaults
}

// NewRouter creates and configures the HTTP router with all routes and middleware
func NewRouter(cfg *config.Config, deps Deps) http.Handler {
	mux := http.NewServeMux()

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(deps.Navigator, deps.Checks, deps.Gauges)
	rootHandler := handlers.NewRootHandler()
	navHandler := handlers.NewNavigationHandler(deps.Navigator, deps.History, deps.Defaults)

	protect := func(h http.HandlerFunc) http.Handler { return h }
	if cfg.JWTSecret != "" {
		auth := Auth([]byte(cfg.JWTSecret))
		protect = func(h http.HandlerFunc) http.Handler { return auth(h) }
	}

	// Core routes
	mux.HandleFunc("GET /", rootHandler.Index)
	mux.HandleFunc("GET /api", rootHandler.Index)
	mux.HandleFunc("GET /health", healthHandler.Health)

	// Session control
	mux.Handle("POST /navigation/route", protect(navHandler.SetupRoute))
	mux.Handle("POST /navigation/start", protect(navHandler.Start))
	mux.Handle("POST /navigation/clear", protect(navHandler.Clear))

	// Device input
	mux.Handle("POST /navigation/fix", protect(navHandler.Fix))
	mux.Handle("POST /navigation/location-error", protect(navHandler.LocationError))
	mux.Handle("POST /navigation/transcript", protect(navHandler.Transcript))

	// Read-only
	mux.Handle("GET /navigation/status", protect(navHandler.Status))
	mux.Handle("GET /navigation/history", protect(navHandler.History))

	// Route setup waits for the directions provider, so allow for its
	// timeout on top of the usual budget.
	timeout := 15 * time.Second
	if cfg.HTTPTimeout > 0 {
		timeout += cfg.HTTPTimeout
	}

	// The websocket outlives any request timeout.
	root := http.NewServeMux()
	root.Handle("/", Timeout(timeout)(mux))
	if deps.Stream != nil {
		root.Handle("GET /navigation/events", protect(deps.Stream.ServeHTTP))
	}

	// Apply middleware stack
	handler := Chain(root,
		Recovery,
		Logging,
		CORS,
	)

	return handler
}
