package directions

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/randytsao24/walkwise/internal/location"
	"github.com/randytsao24/walkwise/internal/route"
)

const sampleRoute = `{
  "code": "Ok",
  "routes": [{
    "distance": 412.3,
    "duration": 296.1,
    "geometry": {"coordinates": [[-73.9857, 40.7484], [-73.9857, 40.7502], [-73.9880, 40.7502]]},
    "legs": [{
      "steps": [
        {"name": "5th Avenue", "distance": 200.1,
         "maneuver": {"type": "depart", "location": [-73.9857, 40.7484], "bearing_after": 2}},
        {"name": "West 34th Street", "distance": 212.2,
         "maneuver": {"type": "turn", "modifier": "left", "location": [-73.9857, 40.7502]}},
        {"name": "", "distance": 0,
         "maneuver": {"type": "notification", "location": [-73.9860, 40.7502]}},
        {"name": "", "distance": 0,
         "maneuver": {"type": "arrive", "location": [-73.9880, 40.7502]}}
      ]
    }]
  }]
}`

var (
	from = location.Point{Lat: 40.7484, Lng: -73.9857}
	to   = location.Point{Lat: 40.7502, Lng: -73.9880}
)

func TestOSRMRoute(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery = r.URL.Path, r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(sampleRoute))
	}))
	defer srv.Close()

	o := NewOSRM(srv.URL, 5*time.Second, nil)
	r, err := o.Route(context.Background(), from, to, route.Walking)
	if err != nil {
		t.Fatalf("Route: %v", err)
	}

	if gotPath != "/route/v1/foot/-73.985700,40.748400;-73.988000,40.750200" {
		t.Errorf("unexpected path %s", gotPath)
	}
	if !strings.Contains(gotQuery, "steps=true") || !strings.Contains(gotQuery, "geometries=geojson") {
		t.Errorf("unexpected query %s", gotQuery)
	}

	if r.PointCount() != 3 {
		t.Errorf("expected 3 polyline points, got %d", r.PointCount())
	}
	want := []string{
		"Head north on 5th Avenue",
		"Turn left onto West 34th Street",
		"You have arrived at your destination",
	}
	steps := r.Steps()
	if len(steps) != len(want) {
		t.Fatalf("expected %d steps, got %+v", len(want), steps)
	}
	for i, s := range steps {
		if s.Instruction != want[i] {
			t.Errorf("step %d: got %q, want %q", i, s.Instruction, want[i])
		}
	}
	if steps[1].Anchor != (location.Point{Lat: 40.7502, Lng: -73.9857}) {
		t.Errorf("turn anchored at %v", steps[1].Anchor)
	}
}

func TestOSRMProfiles(t *testing.T) {
	tests := []struct {
		mode    route.Mode
		profile string
	}{
		{route.Walking, "foot"},
		{route.Cycling, "bike"},
		{route.Driving, "driving"},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if !strings.HasPrefix(r.URL.Path, "/route/v1/"+tt.profile+"/") {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				w.Write([]byte(sampleRoute))
			}))
			defer srv.Close()

			if _, err := NewOSRM(srv.URL, time.Second, nil).Route(context.Background(), from, to, tt.mode); err != nil {
				t.Fatal(err)
			}
		})
	}
}

func TestOSRMErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"no route code", http.StatusBadRequest, `{"code":"NoRoute","message":"Impossible route between points"}`, route.ErrNoRouteFound},
		{"server error", http.StatusInternalServerError, `oops`, route.ErrNoRouteFound},
		{"empty routes", http.StatusOK, `{"code":"Ok","routes":[]}`, route.ErrNoRouteFound},
		{"single point", http.StatusOK, `{"code":"Ok","routes":[{"geometry":{"coordinates":[[-73.98,40.74]]},"legs":[{"steps":[{"maneuver":{"type":"arrive","location":[-73.98,40.74]}}]}]}]}`, route.ErrInvalidRoute},
		{"no steps", http.StatusOK, `{"code":"Ok","routes":[{"geometry":{"coordinates":[[-73.98,40.74],[-73.99,40.75]]},"legs":[]}]}`, route.ErrInvalidRoute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewOSRM(srv.URL, time.Second, nil).Route(context.Background(), from, to, route.Walking)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestOSRMHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewOSRM(srv.URL, 5*time.Second, nil).Route(ctx, from, to, route.Walking); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestInstruction(t *testing.T) {
	tests := []struct {
		kind, modifier, street string
		bearing                float64
		exit                   int
		want                   string
	}{
		{"depart", "", "Main St", 92, 0, "Head east on Main St"},
		{"depart", "", "", 350, 0, "Head north"},
		{"turn", "right", "Elm St", 0, 0, "Turn right onto Elm St"},
		{"turn", "slight left", "", 0, 0, "Make a slight left"},
		{"continue", "straight", "Broadway", 0, 0, "Continue straight onto Broadway"},
		{"continue", "uturn", "", 0, 0, "Make a U-turn"},
		{"roundabout", "", "Oak Ave", 0, 2, "Enter the roundabout and take exit 2 onto Oak Ave"},
		{"new name", "straight", "", 0, 0, ""},
		{"notification", "", "", 0, 0, ""},
		{"arrive", "", "", 0, 0, "You have arrived at your destination"},
	}
	for _, tt := range tests {
		if got := Instruction(tt.kind, tt.modifier, tt.street, tt.bearing, tt.exit); got != tt.want {
			t.Errorf("Instruction(%q, %q, %q) = %q, want %q", tt.kind, tt.modifier, tt.street, got, tt.want)
		}
	}
}

func TestCompass(t *testing.T) {
	tests := map[float64]string{0: "north", 44: "northeast", 180: "south", 269: "west", 337.6: "north", -10: "north"}
	for bearing, want := range tests {
		if got := Compass(bearing); got != want {
			t.Errorf("Compass(%v) = %s, want %s", bearing, got, want)
		}
	}
}
