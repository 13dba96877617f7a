package navigation

import (
	"errors"

	"github.com/randytsao24/walkwise/internal/location"
	"github.com/randytsao24/walkwise/internal/route"
)

var (
	ErrInvalidCoordinates = location.ErrInvalidCoordinates
	ErrNoRouteFound       = route.ErrNoRouteFound
	ErrInvalidRoute       = route.ErrInvalidRoute

	// ErrLocationUnavailable marks a failed or unusable position report.
	// It pauses step advancement until the next valid fix.
	ErrLocationUnavailable = errors.New("location unavailable")

	// ErrReentrancyExceeded is returned when route setup had to wait for
	// teardown more times than the policy allows. The controller stays in
	// the Error state until ClearRoute is called.
	ErrReentrancyExceeded = errors.New("route setup retried too many times")

	// ErrBusy rejects control calls that arrive while a previous session
	// is still being cleaned up. Callers may retry shortly.
	ErrBusy = errors.New("cleanup in progress")

	ErrNotReady  = errors.New("no route is awaiting confirmation")
	ErrCancelled = errors.New("route setup cancelled")
	ErrStopped   = errors.New("navigation controller stopped")
)

// ErrorKind returns a short stable name for err, used in events and API
// responses.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidCoordinates):
		return "InvalidCoordinates"
	case errors.Is(err, ErrInvalidRoute):
		return "InvalidRoute"
	case errors.Is(err, ErrNoRouteFound):
		return "NoRouteFound"
	case errors.Is(err, ErrLocationUnavailable):
		return "LocationUnavailable"
	case errors.Is(err, ErrReentrancyExceeded):
		return "ReentrancyExceeded"
	case errors.Is(err, ErrBusy):
		return "Busy"
	case errors.Is(err, ErrNotReady):
		return "NotReady"
	case errors.Is(err, ErrCancelled):
		return "Cancelled"
	case errors.Is(err, ErrStopped):
		return "Stopped"
	default:
		return "Internal"
	}
}
