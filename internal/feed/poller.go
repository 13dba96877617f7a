// Package feed reads the pedestrian's position from a GTFS-realtime
// VehiclePositions feed.
package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"

	"github.com/randytsao24/walkwise/internal/location"
)

// ErrVehicleNotFound is reported when the feed has no position for the
// configured vehicle.
var ErrVehicleNotFound = errors.New("vehicle not in feed")

// Handler receives what the poller reads. navigation.Controller
// implements it.
type Handler interface {
	PushFix(ctx context.Context, fix location.Fix) error
	ReportLocationFailure(ctx context.Context, cause error) error
}

type Config struct {
	URL       string
	VehicleID string
	Interval  time.Duration
	Timeout   time.Duration
	// MaxFailures is the number of consecutive failed polls before the
	// handler is told the location is unavailable. Zero means 3.
	MaxFailures int
}

// Poller is a location source backed by a GTFS-realtime feed. Start and
// Stop are idempotent.
type Poller struct {
	cfg    Config
	client *http.Client
	log    *slog.Logger

	mu      sync.Mutex
	handler Handler
	cancel  context.CancelFunc
}

func NewPoller(cfg Config, log *slog.Logger) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = 2 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 3
	}
	if log == nil {
		log = slog.Default()
	}
	return &Poller{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		log: log.With("component", "feed", "vehicle", cfg.VehicleID),
	}
}

// Bind sets where fixes and failures are delivered.
func (p *Poller) Bind(h Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handler = h
}

func (p *Poller) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.handler == nil {
		return errors.New("feed poller has no handler")
	}
	if p.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	go p.run(ctx, p.handler)
	p.log.Info("feed polling started", "url", p.cfg.URL, "interval", p.cfg.Interval)
	return nil
}

// Stop does not wait for an in-flight poll; its results are discarded.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel == nil {
		return
	}
	p.cancel()
	p.cancel = nil
	p.log.Info("feed polling stopped")
}

// Running reports whether the poller is started.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

func (p *Poller) run(ctx context.Context, h Handler) {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	var last time.Time
	failures := 0
	for {
		fix, err := p.Fetch(ctx)
		switch {
		case ctx.Err() != nil:
			return
		case err != nil:
			failures++
			p.log.Warn("feed poll failed", "error", err, "failures", failures)
			if failures == p.cfg.MaxFailures {
				h.ReportLocationFailure(ctx, err)
			}
		default:
			failures = 0
			if fix.Timestamp.After(last) {
				last = fix.Timestamp
				if err := h.PushFix(ctx, fix); err != nil && ctx.Err() == nil {
					p.log.Warn("delivering fix", "error", err)
				}
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Fetch reads the feed once and returns the configured vehicle's position.
func (p *Poller) Fetch(ctx context.Context) (location.Fix, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.URL, nil)
	if err != nil {
		return location.Fix{}, fmt.Errorf("building request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return location.Fix{}, fmt.Errorf("fetching feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return location.Fix{}, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return location.Fix{}, fmt.Errorf("reading response: %w", err)
	}

	feed := &gtfs.FeedMessage{}
	if err := proto.Unmarshal(body, feed); err != nil {
		return location.Fix{}, fmt.Errorf("parsing protobuf: %w", err)
	}
	return VehicleFix(feed, p.cfg.VehicleID)
}

// VehicleFix extracts the position of vehicleID from a feed. The vehicle
// is matched by descriptor id, falling back to the entity id. Positions
// without a timestamp take the feed header's.
func VehicleFix(feed *gtfs.FeedMessage, vehicleID string) (location.Fix, error) {
	for _, entity := range feed.GetEntity() {
		vp := entity.GetVehicle()
		if vp == nil || vp.GetPosition() == nil {
			continue
		}
		id := vp.GetVehicle().GetId()
		if id == "" {
			id = entity.GetId()
		}
		if id != vehicleID {
			continue
		}

		ts := vp.GetTimestamp()
		if ts == 0 {
			ts = feed.GetHeader().GetTimestamp()
		}
		fix := location.Fix{
			Point: location.Point{
				Lat: float64(vp.GetPosition().GetLatitude()),
				Lng: float64(vp.GetPosition().GetLongitude()),
			},
			Timestamp: time.Unix(int64(ts), 0),
		}
		if ts == 0 {
			fix.Timestamp = time.Now()
		}
		if !fix.Point.Valid() {
			return location.Fix{}, fmt.Errorf("%w: vehicle %s at %v", location.ErrInvalidCoordinates, vehicleID, fix.Point)
		}
		return fix, nil
	}
	return location.Fix{}, fmt.Errorf("%w: %s", ErrVehicleNotFound, vehicleID)
}
