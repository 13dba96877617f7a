package handlers

import (
	"net/http"
)

type RootHandler struct{}

func NewRootHandler() *RootHandler {
	return &RootHandler{}
}

func (h *RootHandler) Index(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":        "walkwise",
		"description": "Turn-by-turn voice guidance for pedestrians",
		"version":     "1.0.0",
		"endpoints": map[string]string{
			"GET /":                           "API information",
			"GET /health":                     "Health check",
			"POST /navigation/route":          "Compute a route {origin, destination, mode, auto_start, testing_mode}",
			"POST /navigation/start":          "Start guidance on the route awaiting confirmation",
			"POST /navigation/clear":          "End the session",
			"POST /navigation/fix":            "Report a position {lat, lng, accuracy, timestamp}",
			"POST /navigation/location-error": "Report a location failure {message}",
			"POST /navigation/transcript":     "Deliver recognized speech {text}",
			"GET /navigation/status":          "Current session state",
			"GET /navigation/history":         "Recent navigation events",
			"GET /navigation/events":          "Live event stream (websocket)",
		},
	})
}

func (h *RootHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]any{
		"error":   "Route not found",
		"message": "Check the root endpoint (/) for available routes",
	})
}
