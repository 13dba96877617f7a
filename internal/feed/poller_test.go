package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"

	"github.com/randytsao24/walkwise/internal/location"
)

type recordingHandler struct {
	mu       sync.Mutex
	fixes    []location.Fix
	failures []error
}

func (h *recordingHandler) PushFix(ctx context.Context, fix location.Fix) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fixes = append(h.fixes, fix)
	return nil
}

func (h *recordingHandler) ReportLocationFailure(ctx context.Context, cause error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failures = append(h.failures, cause)
	return nil
}

func (h *recordingHandler) counts() (int, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.fixes), len(h.failures)
}

func feedMessage(ts uint64, entities ...*gtfs.FeedEntity) *gtfs.FeedMessage {
	return &gtfs.FeedMessage{
		Header: &gtfs.FeedHeader{
			GtfsRealtimeVersion: proto.String("2.0"),
			Timestamp:           proto.Uint64(ts),
		},
		Entity: entities,
	}
}

func vehicle(entityID, vehicleID string, lat, lng float32, ts uint64) *gtfs.FeedEntity {
	vp := &gtfs.VehiclePosition{
		Position: &gtfs.Position{
			Latitude:  proto.Float32(lat),
			Longitude: proto.Float32(lng),
		},
	}
	if vehicleID != "" {
		vp.Vehicle = &gtfs.VehicleDescriptor{Id: proto.String(vehicleID)}
	}
	if ts != 0 {
		vp.Timestamp = proto.Uint64(ts)
	}
	return &gtfs.FeedEntity{Id: proto.String(entityID), Vehicle: vp}
}

func serveFeed(t *testing.T, msg *gtfs.FeedMessage) *httptest.Server {
	t.Helper()
	data, err := proto.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal feed: %v", err)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-protobuf")
		w.Write(data)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestVehicleFix(t *testing.T) {
	msg := feedMessage(1700000100,
		vehicle("e1", "bus-7", 40.70, -73.90, 1700000000),
		vehicle("cane-1", "", 40.7484, -73.9857, 0),
	)

	fix, err := VehicleFix(msg, "cane-1")
	if err != nil {
		t.Fatal(err)
	}
	if d := location.Distance(fix.Point, location.Point{Lat: 40.7484, Lng: -73.9857}); d > 1 {
		t.Errorf("fix %v is %.1fm off", fix.Point, d)
	}
	if !fix.Timestamp.Equal(time.Unix(1700000100, 0)) {
		t.Errorf("expected header timestamp, got %v", fix.Timestamp)
	}

	fix, err = VehicleFix(msg, "bus-7")
	if err != nil {
		t.Fatal(err)
	}
	if !fix.Timestamp.Equal(time.Unix(1700000000, 0)) {
		t.Errorf("expected vehicle timestamp, got %v", fix.Timestamp)
	}

	if _, err := VehicleFix(msg, "missing"); !errors.Is(err, ErrVehicleNotFound) {
		t.Errorf("expected ErrVehicleNotFound, got %v", err)
	}
}

func TestVehicleFixRejectsBadPosition(t *testing.T) {
	msg := feedMessage(1, vehicle("cane-1", "", 95, 10, 1))
	if _, err := VehicleFix(msg, "cane-1"); !errors.Is(err, location.ErrInvalidCoordinates) {
		t.Errorf("expected ErrInvalidCoordinates, got %v", err)
	}
}

func TestPollerDeliversNewFixesOnly(t *testing.T) {
	srv := serveFeed(t, feedMessage(1700000000, vehicle("cane-1", "", 40.7484, -73.9857, 1700000000)))
	h := &recordingHandler{}
	p := NewPoller(Config{URL: srv.URL, VehicleID: "cane-1", Interval: 5 * time.Millisecond}, nil)
	p.Bind(h)

	if err := p.Start(); err != nil {
		t.Fatal(err)
	}
	if err := p.Start(); err != nil {
		t.Fatal(err)
	}
	defer p.Stop()

	waitFor(t, "first fix", func() bool { n, _ := h.counts(); return n == 1 })
	time.Sleep(30 * time.Millisecond)
	if n, _ := h.counts(); n != 1 {
		t.Errorf("expected one fix for an unchanged timestamp, got %d", n)
	}
}

func TestPollerReportsRepeatedFailures(t *testing.T) {
	var polls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		polls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	h := &recordingHandler{}
	p := NewPoller(Config{URL: srv.URL, VehicleID: "cane-1", Interval: 5 * time.Millisecond, MaxFailures: 2}, nil)
	p.Bind(h)
	p.Start()
	defer p.Stop()

	waitFor(t, "failure report", func() bool { _, n := h.counts(); return n == 1 })
	waitFor(t, "more polls", func() bool { return polls.Load() >= 5 })
	if _, n := h.counts(); n != 1 {
		t.Errorf("expected a single failure report per outage, got %d", n)
	}
}

func TestPollerStop(t *testing.T) {
	var polls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		polls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	p := NewPoller(Config{URL: srv.URL, VehicleID: "cane-1", Interval: 5 * time.Millisecond}, nil)
	p.Stop()
	if err := p.Start(); err == nil {
		t.Fatal("expected error without a handler")
	}

	p.Bind(&recordingHandler{})
	p.Start()
	waitFor(t, "a poll", func() bool { return polls.Load() > 0 })
	p.Stop()
	p.Stop()
	if p.Running() {
		t.Fatal("expected poller stopped")
	}

	time.Sleep(20 * time.Millisecond)
	settled := polls.Load()
	time.Sleep(30 * time.Millisecond)
	if polls.Load() != settled {
		t.Error("expected polling to stop")
	}
}
