package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/randytsao24/walkwise/internal/models"
	"github.com/randytsao24/walkwise/internal/navigation"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// statusFor maps controller errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, navigation.ErrInvalidCoordinates):
		return http.StatusBadRequest
	case errors.Is(err, navigation.ErrNoRouteFound):
		return http.StatusNotFound
	case errors.Is(err, navigation.ErrInvalidRoute):
		return http.StatusUnprocessableEntity
	case errors.Is(err, navigation.ErrBusy),
		errors.Is(err, navigation.ErrReentrancyExceeded),
		errors.Is(err, navigation.ErrNotReady),
		errors.Is(err, navigation.ErrCancelled):
		return http.StatusConflict
	case errors.Is(err, navigation.ErrStopped):
		return http.StatusServiceUnavailable
	case errors.Is(err, navigation.ErrLocationUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

var errorTitles = map[int]string{
	http.StatusBadRequest:          "Invalid request",
	http.StatusNotFound:            "No route found",
	http.StatusUnprocessableEntity: "Route cannot be followed",
	http.StatusConflict:            "Navigation busy",
	http.StatusServiceUnavailable:  "Navigation unavailable",
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if errors.Is(err, navigation.ErrBusy) {
		w.Header().Set("Retry-After", "1")
	}
	title, ok := errorTitles[status]
	if !ok {
		title = "Internal error"
	}
	writeJSON(w, status, models.ErrorResponse{
		Error:   title,
		Kind:    navigation.ErrorKind(err),
		Message: err.Error(),
	})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, models.ErrorResponse{
		Error:   "Invalid request",
		Message: message,
	})
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(v)
}

func parseIntQueryParam(r *http.Request, name string, defaultVal, min, max int) int {
	str := r.URL.Query().Get(name)
	if str == "" {
		return defaultVal
	}

	val, err := strconv.Atoi(str)
	if err != nil {
		return defaultVal
	}

	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
