package navigation

import (
	"sort"

	"github.com/randytsao24/walkwise/internal/location"
	"github.com/randytsao24/walkwise/internal/route"
)

// ProgressState tracks which step the walker is heading for and which
// announcements were already made.
type ProgressState struct {
	StepIndex      int
	AnnouncedEarly map[int]struct{}
	AnnouncedFinal map[int]struct{}
}

func (p *ProgressState) Reset() {
	p.StepIndex = 0
	p.AnnouncedEarly = make(map[int]struct{})
	p.AnnouncedFinal = make(map[int]struct{})
}

func (p *ProgressState) markEarly(i int) bool {
	if p.AnnouncedEarly == nil {
		p.AnnouncedEarly = make(map[int]struct{})
	}
	if _, ok := p.AnnouncedEarly[i]; ok {
		return false
	}
	p.AnnouncedEarly[i] = struct{}{}
	return true
}

func (p *ProgressState) markFinal(i int) bool {
	if p.AnnouncedFinal == nil {
		p.AnnouncedFinal = make(map[int]struct{})
	}
	if _, ok := p.AnnouncedFinal[i]; ok {
		return false
	}
	p.AnnouncedFinal[i] = struct{}{}
	return true
}

func sortedKeys(m map[int]struct{}) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}

// StepAdvancer moves to the next step once the walker is within the
// arrival radius of the current step's anchor.
type StepAdvancer struct {
	policy   Policy
	detector *DeviationDetector
}

func NewStepAdvancer(policy Policy, detector *DeviationDetector) *StepAdvancer {
	return &StepAdvancer{policy: policy, detector: detector}
}

// Evaluate advances at most one step per fix and reports whether it did.
// The caller announces the new current step.
func (a *StepAdvancer) Evaluate(fix location.Fix, r *route.Route, p *ProgressState, dev *DeviationState) bool {
	if p.StepIndex >= r.StepCount() {
		return false
	}
	anchor := r.Step(p.StepIndex).Anchor
	if location.Distance(fix.Point, anchor) >= a.policy.ArrivalRadius {
		return false
	}

	p.StepIndex++
	a.detector.AdvanceSegment(r, dev)
	return true
}
