// Package directions computes walking routes with an OSRM server and
// caches them.
package directions

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/randytsao24/walkwise/internal/location"
	"github.com/randytsao24/walkwise/internal/route"
)

// profiles maps transport modes to OSRM routing profiles.
var profiles = map[route.Mode]string{
	route.Walking: "foot",
	route.Cycling: "bike",
	route.Driving: "driving",
}

// OSRM fetches routes from an OSRM HTTP server.
type OSRM struct {
	baseURL string
	client  *http.Client
	log     *slog.Logger
}

// NewOSRM creates a client for the server at baseURL.
func NewOSRM(baseURL string, timeout time.Duration, log *slog.Logger) *OSRM {
	if log == nil {
		log = slog.Default()
	}
	return &OSRM{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: timeout,
		},
		log: log.With("component", "osrm"),
	}
}

type osrmResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
		Geometry struct {
			Coordinates [][]float64 `json:"coordinates"`
		} `json:"geometry"`
		Legs []struct {
			Steps []osrmStep `json:"steps"`
		} `json:"legs"`
	} `json:"routes"`
}

type osrmStep struct {
	Name     string  `json:"name"`
	Distance float64 `json:"distance"`
	Maneuver struct {
		Type         string    `json:"type"`
		Modifier     string    `json:"modifier"`
		Location     []float64 `json:"location"`
		BearingAfter float64   `json:"bearing_after"`
		Exit         int       `json:"exit"`
	} `json:"maneuver"`
}

// Route requests a route with turn-by-turn steps. Each step is anchored at
// its maneuver location; steps without instruction text are dropped.
func (o *OSRM) Route(ctx context.Context, origin, destination location.Point, mode route.Mode) (*route.Route, error) {
	profile, ok := profiles[mode]
	if !ok {
		return nil, fmt.Errorf("unsupported transport mode %q", mode)
	}

	url := fmt.Sprintf("%s/route/v1/%s/%.6f,%.6f;%.6f,%.6f?overview=full&geometries=geojson&steps=true",
		o.baseURL, profile, origin.Lng, origin.Lat, destination.Lng, destination.Lat)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	start := time.Now()
	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching route: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	var parsed osrmResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("%w: osrm returned %d", route.ErrNoRouteFound, resp.StatusCode)
		}
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || parsed.Code != "Ok" {
		return nil, fmt.Errorf("%w: osrm returned %d %s %s", route.ErrNoRouteFound, resp.StatusCode, parsed.Code, parsed.Message)
	}
	if len(parsed.Routes) == 0 {
		return nil, fmt.Errorf("%w: osrm returned no routes", route.ErrNoRouteFound)
	}

	r := parsed.Routes[0]
	polyline := make([]location.Point, 0, len(r.Geometry.Coordinates))
	for _, pair := range r.Geometry.Coordinates {
		if len(pair) < 2 {
			return nil, fmt.Errorf("%w: malformed coordinate %v", route.ErrInvalidRoute, pair)
		}
		polyline = append(polyline, location.Point{Lat: pair[1], Lng: pair[0]})
	}

	var steps []route.Step
	for _, leg := range r.Legs {
		for _, s := range leg.Steps {
			text := Instruction(s.Maneuver.Type, s.Maneuver.Modifier, s.Name, s.Maneuver.BearingAfter, s.Maneuver.Exit)
			if text == "" || len(s.Maneuver.Location) < 2 {
				continue
			}
			steps = append(steps, route.Step{
				Instruction: text,
				Anchor:      location.Point{Lat: s.Maneuver.Location[1], Lng: s.Maneuver.Location[0]},
				Distance:    s.Distance,
			})
		}
	}

	built, err := route.New(steps, polyline)
	if err != nil {
		return nil, err
	}
	o.log.Debug("route fetched",
		"mode", mode,
		"steps", built.StepCount(),
		"points", built.PointCount(),
		"distance_m", r.Distance,
		"elapsed", time.Since(start))
	return built, nil
}
