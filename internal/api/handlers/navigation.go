package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/randytsao24/walkwise/internal/journal"
	"github.com/randytsao24/walkwise/internal/models"
	"github.com/randytsao24/walkwise/internal/navigation"
	"github.com/randytsao24/walkwise/internal/route"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// Defaults are applied to route requests that leave options unset.
type Defaults struct {
	AutoStart   bool
	TestingMode bool
}

type NavigationHandler struct {
	nav      Navigator
	history  HistoryProvider
	defaults Defaults
	now      func() time.Time
}

func NewNavigationHandler(nav Navigator, history HistoryProvider, defaults Defaults) *NavigationHandler {
	return &NavigationHandler{
		nav:      nav,
		history:  history,
		defaults: defaults,
		now:      time.Now,
	}
}

// SetupRoute computes a route and waits until it is ready to start.
func (h *NavigationHandler) SetupRoute(w http.ResponseWriter, r *http.Request) {
	var req models.RouteRequest
	if err := decode(w, r, &req); err != nil {
		writeBadRequest(w, "Body must be a JSON route request")
		return
	}
	if req.Origin == "" || req.Destination == "" {
		writeBadRequest(w, "origin and destination are required")
		return
	}
	mode, err := route.ParseMode(req.Mode)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	setup := navigation.SetupRequest{
		Origin:      req.Origin,
		Destination: req.Destination,
		Mode:        mode,
		AutoStart:   h.defaults.AutoStart,
		TestingMode: h.defaults.TestingMode,
	}
	if req.AutoStart != nil {
		setup.AutoStart = *req.AutoStart
	}
	if req.TestingMode != nil {
		setup.TestingMode = *req.TestingMode
	}

	if err := h.nav.SetupRoute(r.Context(), setup); err != nil {
		writeError(w, err)
		return
	}
	h.writeStatus(w)
}

func (h *NavigationHandler) Start(w http.ResponseWriter, r *http.Request) {
	if err := h.nav.StartNavigation(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	h.writeStatus(w)
}

func (h *NavigationHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.nav.ClearRoute(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	h.writeStatus(w)
}

// Fix accepts a position report. Coordinates are validated here so the
// device gets immediate feedback; the controller treats bad fixes as
// location failures.
func (h *NavigationHandler) Fix(w http.ResponseWriter, r *http.Request) {
	var req models.FixRequest
	if err := decode(w, r, &req); err != nil {
		writeBadRequest(w, "Body must be a JSON position fix")
		return
	}
	fix, err := req.Fix(h.now())
	if err == nil && !fix.Point.Valid() {
		err = navigation.ErrInvalidCoordinates
	}
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.nav.PushFix(r.Context(), fix); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"accepted": true})
}

func (h *NavigationHandler) LocationError(w http.ResponseWriter, r *http.Request) {
	var req models.LocationErrorRequest
	if err := decode(w, r, &req); err != nil {
		writeBadRequest(w, "Body must be a JSON location error")
		return
	}
	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		msg = "device reported a location error"
	}
	if err := h.nav.ReportLocationFailure(r.Context(), errors.New(msg)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"accepted": true})
}

func (h *NavigationHandler) Transcript(w http.ResponseWriter, r *http.Request) {
	var req models.TranscriptRequest
	if err := decode(w, r, &req); err != nil {
		writeBadRequest(w, "Body must be a JSON transcript")
		return
	}
	if err := h.nav.PushTranscript(r.Context(), req.Text); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"accepted": true,
		"command":  navigation.ParseCommand(req.Text).String(),
	})
}

func (h *NavigationHandler) Status(w http.ResponseWriter, r *http.Request) {
	h.writeStatus(w)
}

func (h *NavigationHandler) writeStatus(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"status":  h.nav.Status(),
	})
}

// History returns recently journaled events, newest first.
func (h *NavigationHandler) History(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQueryParam(r, "limit", defaultHistoryLimit, 1, maxHistoryLimit)

	entries := []journal.Entry{}
	if h.history != nil {
		var err error
		entries, err = h.history.Recent(r.Context(), limit)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{
				Error:   "Failed to read history",
				Message: err.Error(),
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"events":  entries,
		"count":   len(entries),
	})
}
