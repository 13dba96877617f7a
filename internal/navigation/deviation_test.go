package navigation

import (
	"testing"
	"time"

	"github.com/randytsao24/walkwise/internal/location"
)

// drift walks north 10m per fix while drifting east 3m per fix, starting
// 1m east of the route. Fixes are 3s apart.
func drift(i int) location.Fix {
	p := location.Offset(origin, 10*float64(i), 1+3*float64(i))
	return fixAt(p, t0.Add(time.Duration(i)*3*time.Second))
}

func TestDeviationWarnsOnceAfterLimit(t *testing.T) {
	r := testRoute(t)
	d := NewDeviationDetector(DefaultPolicy())
	var s DeviationState

	fired := map[int]DeviationKind{}
	for i := 0; i < 10; i++ {
		if ev, ok := d.Evaluate(drift(i), r, &s); ok {
			fired[i] = ev.Kind
		}
	}

	if len(fired) != 2 {
		t.Fatalf("expected 2 events, got %v", fired)
	}
	if fired[0] != OnTrackPositiveFeedback {
		t.Errorf("fix 0: expected on-track feedback, got %v", fired[0])
	}
	// 16m, 19m and 22m are the first three fixes beyond 15m.
	if fired[7] != OffRouteWarning {
		t.Errorf("fix 7: expected off-route warning, got %v", fired[7])
	}
	if !s.OffRoute || !s.Warned {
		t.Errorf("expected off route and warned, got %+v", s)
	}
	if s.Counter != 5 {
		t.Errorf("expected counter 5 after moving away twice more, got %d", s.Counter)
	}
}

func TestDeviationBackOnRoute(t *testing.T) {
	r := testRoute(t)
	d := NewDeviationDetector(DefaultPolicy())
	var s DeviationState

	for i := 0; i < 10; i++ {
		d.Evaluate(drift(i), r, &s)
	}
	if !s.OffRoute {
		t.Fatal("expected to be off route before walking back")
	}

	last := drift(9).Timestamp
	var kinds []DeviationKind
	for j, east := range []float64{20, 12, 4, 1} {
		p := location.Offset(origin, 100+10*float64(j), east)
		fix := fixAt(p, last.Add(time.Duration(j+1)*3*time.Second))
		if ev, ok := d.Evaluate(fix, r, &s); ok {
			kinds = append(kinds, ev.Kind)
		}
	}

	if len(kinds) != 1 || kinds[0] != BackOnRoute {
		t.Fatalf("expected exactly one BackOnRoute, got %v", kinds)
	}
	if s.Counter != 0 || s.OffRoute || s.Warned {
		t.Errorf("expected reset detector state, got %+v", s)
	}
}

func TestDeviationRateLimitAndMovementFilter(t *testing.T) {
	r := testRoute(t)
	d := NewDeviationDetector(DefaultPolicy())
	var s DeviationState

	if _, ok := d.Evaluate(fixAt(origin, t0), r, &s); !ok {
		t.Fatal("first fix should be evaluated")
	}

	// Too soon, even though far off the route.
	if _, ok := d.Evaluate(fixAt(location.Offset(origin, 0, 100), t0.Add(time.Second)), r, &s); ok {
		t.Error("fix within the check interval should be ignored")
	}
	if !s.LastFixTime.Equal(t0) {
		t.Errorf("ignored fix must not update state, last fix time %v", s.LastFixTime)
	}

	// Late enough but barely moved.
	if _, ok := d.Evaluate(fixAt(location.Offset(origin, 2, 0), t0.Add(30*time.Second)), r, &s); ok {
		t.Error("fix under the movement threshold should be ignored")
	}
	if !s.LastFixTime.Equal(t0) {
		t.Errorf("ignored fix must not update state, last fix time %v", s.LastFixTime)
	}

	// Out-of-order fixes are older than the last one and never pass.
	if _, ok := d.Evaluate(fixAt(location.Offset(origin, 0, 100), t0.Add(-time.Minute)), r, &s); ok {
		t.Error("fix older than the last evaluated fix should be ignored")
	}
}

func TestDeviationCooldownSuppressesFeedback(t *testing.T) {
	r := testRoute(t)
	d := NewDeviationDetector(DefaultPolicy())
	var s DeviationState

	var n int
	for i := 0; i < 5; i++ {
		fix := fixAt(north(10*float64(i)), t0.Add(time.Duration(i)*3*time.Second))
		if ev, ok := d.Evaluate(fix, r, &s); ok && ev.Kind == OnTrackPositiveFeedback {
			n++
		}
	}
	// t=0s and t=12s.
	if n != 2 {
		t.Errorf("expected 2 on-track messages in 12s, got %d", n)
	}
}

func TestDeviationExhaustedSegment(t *testing.T) {
	r := testRoute(t)
	d := NewDeviationDetector(DefaultPolicy())
	s := DeviationState{SegmentIndex: r.PointCount() - 1}

	if _, ok := d.Evaluate(fixAt(location.Offset(origin, 0, 500), t0), r, &s); ok {
		t.Error("no event expected once the polyline is exhausted")
	}

	d.AdvanceSegment(r, &s)
	if s.SegmentIndex != r.PointCount()-1 {
		t.Errorf("segment index moved past sentinel: %d", s.SegmentIndex)
	}
}

func TestDeviationStateReset(t *testing.T) {
	s := DeviationState{SegmentIndex: 3, Counter: 2, OffRoute: true, Warned: true, LastDistance: 20}
	s.Reset()
	if s != (DeviationState{}) {
		t.Errorf("expected zero state, got %+v", s)
	}
}

func TestAdvanceSegmentResetsCounter(t *testing.T) {
	r := testRoute(t)
	d := NewDeviationDetector(DefaultPolicy())
	var s DeviationState

	off := func(n float64, i int) location.Fix {
		return fixAt(location.Offset(origin, n, 20), t0.Add(time.Duration(i)*3*time.Second))
	}
	for i, n := range []float64{10, 20} {
		if ev, ok := d.Evaluate(off(n, i), r, &s); ok {
			t.Fatalf("fix %d: unexpected event %v", i, ev.Kind)
		}
	}
	if s.Counter != 2 {
		t.Fatalf("expected counter 2 before advancing, got %d", s.Counter)
	}

	d.AdvanceSegment(r, &s)
	if s.SegmentIndex != 1 || s.Counter != 0 {
		t.Fatalf("expected segment 1 with counter 0, got %+v", s)
	}

	if ev, ok := d.Evaluate(off(30, 2), r, &s); ok {
		t.Fatalf("unexpected event after advancing: %v", ev.Kind)
	}
	if s.Counter != 1 || s.OffRoute || s.Warned {
		t.Errorf("expected counter 1 and no warning, got %+v", s)
	}
}
