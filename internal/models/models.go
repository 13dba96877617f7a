// Package models defines the JSON bodies of the HTTP API.
package models

import (
	"fmt"
	"time"

	"github.com/randytsao24/walkwise/internal/location"
)

// RouteRequest asks for a new route. Coordinates are "lat,lng" strings.
type RouteRequest struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	Mode        string `json:"mode"`
	// AutoStart and TestingMode fall back to the server defaults when
	// omitted.
	AutoStart   *bool `json:"auto_start,omitempty"`
	TestingMode *bool `json:"testing_mode,omitempty"`
}

// FixRequest is a position report from the walker's device.
type FixRequest struct {
	Lat       *float64   `json:"lat"`
	Lng       *float64   `json:"lng"`
	Accuracy  float64    `json:"accuracy"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// Fix converts the request, stamping it with now when the device sent no
// timestamp.
func (r FixRequest) Fix(now time.Time) (location.Fix, error) {
	if r.Lat == nil || r.Lng == nil {
		return location.Fix{}, fmt.Errorf("%w: lat and lng are required", location.ErrInvalidCoordinates)
	}
	fix := location.Fix{
		Point:     location.Point{Lat: *r.Lat, Lng: *r.Lng},
		Accuracy:  r.Accuracy,
		Timestamp: now,
	}
	if r.Timestamp != nil {
		fix.Timestamp = *r.Timestamp
	}
	return fix, nil
}

type LocationErrorRequest struct {
	Message string `json:"message"`
}

type TranscriptRequest struct {
	Text string `json:"text"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message,omitempty"`
}
