package navigation

import (
	"testing"

	"github.com/randytsao24/walkwise/internal/location"
	"github.com/randytsao24/walkwise/internal/route"
)

func TestStepAdvancer(t *testing.T) {
	r := testRoute(t)
	p := DefaultPolicy()
	a := NewStepAdvancer(p, NewDeviationDetector(p))

	var progress ProgressState
	progress.Reset()
	var dev DeviationState

	if a.Evaluate(fixAt(north(180), t0), r, &progress, &dev) {
		t.Fatal("20m from the anchor should not advance")
	}
	if !a.Evaluate(fixAt(north(190), t0), r, &progress, &dev) {
		t.Fatal("10m from the anchor should advance")
	}
	if progress.StepIndex != 1 || dev.SegmentIndex != 1 {
		t.Errorf("expected step 1 segment 1, got step %d segment %d", progress.StepIndex, dev.SegmentIndex)
	}
	if a.Evaluate(fixAt(north(190), t0), r, &progress, &dev) {
		t.Error("next anchor is 210m away, should not advance")
	}
}

func TestStepAdvancerOneStepPerFix(t *testing.T) {
	r, err := route.New([]route.Step{
		{Instruction: "Turn left", Anchor: north(100)},
		{Instruction: "Turn right", Anchor: north(105)},
	}, []location.Point{north(0), north(105)})
	if err != nil {
		t.Fatal(err)
	}
	p := DefaultPolicy()
	a := NewStepAdvancer(p, NewDeviationDetector(p))
	var progress ProgressState
	var dev DeviationState

	fix := fixAt(north(102), t0)
	a.Evaluate(fix, r, &progress, &dev)
	if progress.StepIndex != 1 {
		t.Fatalf("expected a single step advance, got index %d", progress.StepIndex)
	}
	// The polyline has a single segment, so the second advance stops at
	// the exhausted sentinel.
	a.Evaluate(fix, r, &progress, &dev)
	if progress.StepIndex != 2 || dev.SegmentIndex != 1 {
		t.Errorf("expected step 2 segment 1, got step %d segment %d", progress.StepIndex, dev.SegmentIndex)
	}
	if a.Evaluate(fix, r, &progress, &dev) {
		t.Error("advancer must not move past the last step")
	}
}

func TestProgressStateReset(t *testing.T) {
	var p ProgressState
	p.markEarly(0)
	p.markFinal(0)
	p.StepIndex = 2
	p.Reset()
	if p.StepIndex != 0 || len(p.AnnouncedEarly) != 0 || len(p.AnnouncedFinal) != 0 {
		t.Errorf("expected empty progress, got %+v", p)
	}
}
