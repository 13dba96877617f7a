// Package handlers contains HTTP request handlers
package handlers

import (
	"context"
	"net/http"
	"time"
)

// Check reports whether a dependency is reachable.
type Check func(ctx context.Context) error

// Gauge reports a point-in-time value, such as the speech backlog.
type Gauge func() any

type HealthHandler struct {
	startTime time.Time
	nav       Navigator
	checks    map[string]Check
	gauges    map[string]Gauge
}

func NewHealthHandler(nav Navigator, checks map[string]Check, gauges map[string]Gauge) *HealthHandler {
	return &HealthHandler{startTime: time.Now(), nav: nav, checks: checks, gauges: gauges}
}

// Health reports uptime, the navigation state, runtime gauges and each
// dependency. A failed dependency degrades the service but does not fail
// the check, since every one of them is optional.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := "OK"
	deps := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			deps[name] = err.Error()
			status = "DEGRADED"
			continue
		}
		deps[name] = "OK"
	}

	body := map[string]any{
		"status":       status,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
		"version":      "1.0.0",
		"uptime":       time.Since(h.startTime).String(),
		"dependencies": deps,
	}
	if h.nav != nil {
		body["navigation"] = h.nav.Status().State
	}
	if len(h.gauges) > 0 {
		rt := make(map[string]any, len(h.gauges))
		for name, g := range h.gauges {
			rt[name] = g()
		}
		body["runtime"] = rt
	}
	writeJSON(w, http.StatusOK, body)
}
