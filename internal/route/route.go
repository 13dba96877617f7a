// Package route holds the immutable route model a navigation session
// follows: ordered maneuver steps plus the polyline geometry between them.
package route

import (
	"errors"
	"fmt"
	"strings"

	"github.com/randytsao24/walkwise/internal/location"
)

var (
	// ErrInvalidRoute is returned when route data cannot be followed,
	// e.g. a polyline with fewer than two points or no steps.
	ErrInvalidRoute = errors.New("invalid route")

	// ErrNoRouteFound is returned by directions providers that could not
	// produce a route between the requested points.
	ErrNoRouteFound = errors.New("no route found")
)

// Mode is the transport mode a route is computed for.
type Mode string

const (
	Walking Mode = "walking"
	Cycling Mode = "cycling"
	Driving Mode = "driving"
)

// ParseMode maps user input to a Mode. An empty string means walking.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return Walking, nil
	case Walking, Cycling, Driving:
		return m, nil
	default:
		return "", fmt.Errorf("unknown transport mode %q", s)
	}
}

// Step is one maneuver along the route.
type Step struct {
	Index       int            `json:"index"`
	Instruction string         `json:"instruction"`
	Anchor      location.Point `json:"anchor"`
	// Distance is the length in meters of the leg that ends at this step,
	// when the provider reports it.
	Distance float64 `json:"distance,omitempty"`
}

// Route is an ordered list of steps and the flattened polyline they lie on.
// The polyline usually has many more points than there are steps. A Route
// is never modified after New returns it.
type Route struct {
	steps    []Step
	polyline []location.Point
	distance float64
}

// New validates the inputs and builds a Route. Steps are re-indexed in
// order. The slices are copied so callers cannot mutate the route later.
func New(steps []Step, polyline []location.Point) (*Route, error) {
	if len(polyline) < 2 {
		return nil, fmt.Errorf("%w: polyline has %d points, need at least 2", ErrInvalidRoute, len(polyline))
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("%w: no steps", ErrInvalidRoute)
	}
	for i, p := range polyline {
		if !p.Valid() {
			return nil, fmt.Errorf("%w: polyline point %d (%v) out of range", ErrInvalidRoute, i, p)
		}
	}

	r := &Route{
		steps:    make([]Step, len(steps)),
		polyline: make([]location.Point, len(polyline)),
	}
	for i, s := range steps {
		if !s.Anchor.Valid() {
			return nil, fmt.Errorf("%w: step %d anchor (%v) out of range", ErrInvalidRoute, i, s.Anchor)
		}
		s.Index = i
		r.steps[i] = s
	}
	copy(r.polyline, polyline)

	for i := 1; i < len(r.polyline); i++ {
		r.distance += location.Distance(r.polyline[i-1], r.polyline[i])
	}
	return r, nil
}

// StepCount returns the number of maneuver steps.
func (r *Route) StepCount() int {
	return len(r.steps)
}

// Step returns step i. It panics if i is out of range, like a slice index.
func (r *Route) Step(i int) Step {
	return r.steps[i]
}

// Steps returns a copy of all steps.
func (r *Route) Steps() []Step {
	out := make([]Step, len(r.steps))
	copy(out, r.steps)
	return out
}

// Polyline returns a copy of the route geometry.
func (r *Route) Polyline() []location.Point {
	out := make([]location.Point, len(r.polyline))
	copy(out, r.polyline)
	return out
}

// PointCount returns the number of polyline points.
func (r *Route) PointCount() int {
	return len(r.polyline)
}

// Segment returns the endpoints of polyline segment i, i.e. points i and
// i+1. ok is false when i does not name a segment.
func (r *Route) Segment(i int) (start, end location.Point, ok bool) {
	if i < 0 || i+1 >= len(r.polyline) {
		return location.Point{}, location.Point{}, false
	}
	return r.polyline[i], r.polyline[i+1], true
}

// Length returns the polyline length in meters.
func (r *Route) Length() float64 {
	return r.distance
}
