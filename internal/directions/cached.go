package directions

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/randytsao24/walkwise/internal/cache"
	"github.com/randytsao24/walkwise/internal/location"
	"github.com/randytsao24/walkwise/internal/route"
)

// Provider computes routes.
type Provider interface {
	Route(ctx context.Context, origin, destination location.Point, mode route.Mode) (*route.Route, error)
}

// Cached serves routes from memory, then Redis, then the wrapped provider,
// and writes fetched routes back to both tiers. Concurrent requests for
// the same key share one upstream call. Cache failures are logged and
// never fail a request.
type Cached struct {
	next   Provider
	memory *cache.Cache[*route.Route]
	shared *cache.Redis
	group  singleflight.Group
	log    *slog.Logger
}

// NewCached wraps next. shared may be nil.
func NewCached(next Provider, memory *cache.Cache[*route.Route], shared *cache.Redis, log *slog.Logger) *Cached {
	if log == nil {
		log = slog.Default()
	}
	return &Cached{
		next:   next,
		memory: memory,
		shared: shared,
		log:    log.With("component", "route-cache"),
	}
}

// Key identifies a route request. Coordinates are rounded to about a meter.
func Key(origin, destination location.Point, mode route.Mode) string {
	return fmt.Sprintf("route:%s:%.5f,%.5f:%.5f,%.5f", mode, origin.Lat, origin.Lng, destination.Lat, destination.Lng)
}

func (c *Cached) Route(ctx context.Context, origin, destination location.Point, mode route.Mode) (*route.Route, error) {
	key := Key(origin, destination, mode)
	if r, ok := c.memory.Get(key); ok {
		c.log.Debug("route cache hit", "tier", "memory", "key", key)
		return r, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		var dto routeDTO
		found, err := c.shared.Get(ctx, key, &dto)
		if err != nil {
			c.log.Warn("route cache read failed", "key", key, "error", err)
		}
		if found {
			r, err := dto.route()
			if err == nil {
				c.log.Debug("route cache hit", "tier", "redis", "key", key)
				c.memory.Set(key, r)
				return r, nil
			}
			c.log.Warn("discarding bad cached route", "key", key, "error", err)
		}

		r, err := c.next.Route(ctx, origin, destination, mode)
		if err != nil {
			return nil, err
		}
		c.memory.Set(key, r)
		if err := c.shared.Set(ctx, key, newRouteDTO(r)); err != nil {
			c.log.Warn("route cache write failed", "key", key, "error", err)
		}
		return r, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*route.Route), nil
}

// routeDTO is the msgpack form of a route stored in Redis.
type routeDTO struct {
	Steps    []stepDTO    `msgpack:"steps"`
	Polyline [][2]float64 `msgpack:"polyline"`
}

type stepDTO struct {
	Instruction string  `msgpack:"instruction"`
	Lat         float64 `msgpack:"lat"`
	Lng         float64 `msgpack:"lng"`
	Distance    float64 `msgpack:"distance"`
}

func newRouteDTO(r *route.Route) routeDTO {
	var dto routeDTO
	for _, s := range r.Steps() {
		dto.Steps = append(dto.Steps, stepDTO{
			Instruction: s.Instruction,
			Lat:         s.Anchor.Lat,
			Lng:         s.Anchor.Lng,
			Distance:    s.Distance,
		})
	}
	for _, p := range r.Polyline() {
		dto.Polyline = append(dto.Polyline, [2]float64{p.Lat, p.Lng})
	}
	return dto
}

func (dto routeDTO) route() (*route.Route, error) {
	steps := make([]route.Step, len(dto.Steps))
	for i, s := range dto.Steps {
		steps[i] = route.Step{
			Instruction: s.Instruction,
			Anchor:      location.Point{Lat: s.Lat, Lng: s.Lng},
			Distance:    s.Distance,
		}
	}
	polyline := make([]location.Point, len(dto.Polyline))
	for i, p := range dto.Polyline {
		polyline[i] = location.Point{Lat: p[0], Lng: p[1]}
	}
	return route.New(steps, polyline)
}
