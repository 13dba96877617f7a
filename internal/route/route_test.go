package route

import (
	"errors"
	"testing"

	"github.com/randytsao24/walkwise/internal/location"
)

var origin = location.Point{Lat: 40.7484, Lng: -73.9857}

func straightLine(n int, spacing float64) []location.Point {
	pts := make([]location.Point, n)
	for i := range pts {
		pts[i] = location.Offset(origin, float64(i)*spacing, 0)
	}
	return pts
}

func TestNewValidates(t *testing.T) {
	steps := []Step{{Instruction: "Head north", Anchor: origin}}

	tests := []struct {
		name     string
		steps    []Step
		polyline []location.Point
	}{
		{"no polyline", steps, nil},
		{"single point", steps, straightLine(1, 10)},
		{"no steps", nil, straightLine(3, 10)},
		{"bad anchor", []Step{{Instruction: "x", Anchor: location.Point{Lat: 100}}}, straightLine(3, 10)},
		{"bad polyline point", steps, []location.Point{origin, {Lat: 0, Lng: 200}}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.steps, tc.polyline)
			if !errors.Is(err, ErrInvalidRoute) {
				t.Errorf("err = %v, want ErrInvalidRoute", err)
			}
		})
	}
}

func TestRouteIsImmutable(t *testing.T) {
	steps := []Step{
		{Index: 7, Instruction: "Head north", Anchor: origin},
		{Index: 3, Instruction: "Arrive", Anchor: location.Offset(origin, 100, 0)},
	}
	poly := straightLine(5, 25)

	r, err := New(steps, poly)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	steps[0].Instruction = "changed"
	poly[0] = location.Point{}
	if r.Step(0).Instruction != "Head north" {
		t.Error("route step changed after caller mutated input")
	}
	if r.Polyline()[0] != origin {
		t.Error("route polyline changed after caller mutated input")
	}

	for i := 0; i < r.StepCount(); i++ {
		if r.Step(i).Index != i {
			t.Errorf("step %d has index %d", i, r.Step(i).Index)
		}
	}

	if got := r.Length(); got < 99 || got > 101 {
		t.Errorf("Length = %.2f, want ~100", got)
	}
}

func TestSegment(t *testing.T) {
	r, err := New([]Step{{Instruction: "Head north", Anchor: origin}}, straightLine(3, 10))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, _, ok := r.Segment(1); !ok {
		t.Error("segment 1 should exist")
	}
	if _, _, ok := r.Segment(2); ok {
		t.Error("segment 2 should not exist for a 3-point polyline")
	}
	if _, _, ok := r.Segment(-1); ok {
		t.Error("negative segment should not exist")
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", Walking, false},
		{"Walking", Walking, false},
		{" cycling ", Cycling, false},
		{"driving", Driving, false},
		{"teleport", "", true},
	}
	for _, tc := range tests {
		got, err := ParseMode(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseMode(%q) err = %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("ParseMode(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
