package navigation

import (
	"testing"
	"time"

	"github.com/randytsao24/walkwise/internal/location"
	"github.com/randytsao24/walkwise/internal/route"
)

var origin = location.Point{Lat: 40.7484, Lng: -73.9857}

var t0 = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

// north returns the point m meters north of origin; the test route runs
// straight north from there.
func north(m float64) location.Point {
	return location.Offset(origin, m, 0)
}

func fixAt(p location.Point, ts time.Time) location.Fix {
	return location.Fix{Point: p, Accuracy: 5, Timestamp: ts}
}

// testRoute is 400m due north with a left turn at 200m and a right turn
// at 400m.
func testRoute(t *testing.T) *route.Route {
	t.Helper()
	var poly []location.Point
	for m := 0.0; m <= 400; m += 50 {
		poly = append(poly, north(m))
	}
	r, err := route.New([]route.Step{
		{Instruction: "Turn left on Main St", Anchor: north(200)},
		{Instruction: "Turn right onto Elm St", Anchor: north(400)},
	}, poly)
	if err != nil {
		t.Fatalf("route.New: %v", err)
	}
	return r
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// assertSubsequence checks that want appears in got in order, possibly
// with other entries in between.
func assertSubsequence(t *testing.T, got, want []string) {
	t.Helper()
	i := 0
	for _, g := range got {
		if i < len(want) && g == want[i] {
			i++
		}
	}
	if i != len(want) {
		t.Fatalf("expected %q in order within %q", want, got)
	}
}

func count(list []string, s string) int {
	n := 0
	for _, v := range list {
		if v == s {
			n++
		}
	}
	return n
}
