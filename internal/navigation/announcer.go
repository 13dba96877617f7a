package navigation

import (
	"fmt"
	"strings"

	"github.com/randytsao24/walkwise/internal/location"
	"github.com/randytsao24/walkwise/internal/route"
)

type AnnouncementKind int

const (
	EarlyAnnouncement AnnouncementKind = iota + 1
	FinalAnnouncement
)

func (k AnnouncementKind) String() string {
	if k == EarlyAnnouncement {
		return "early"
	}
	return "final"
}

// Announcement is a distance-triggered instruction for one step.
type Announcement struct {
	Kind      AnnouncementKind
	StepIndex int
	Text      string
}

// AnnouncementScheduler emits an early and a final call for each step,
// each at most once per step index.
type AnnouncementScheduler struct {
	policy Policy
}

func NewAnnouncementScheduler(policy Policy) *AnnouncementScheduler {
	return &AnnouncementScheduler{policy: policy}
}

// Evaluate checks the distance from fix to the current step's anchor
// against the early window and the final radius.
func (s *AnnouncementScheduler) Evaluate(fix location.Fix, r *route.Route, p *ProgressState) []Announcement {
	return s.EvaluateStep(fix, r, p, p.StepIndex)
}

// EvaluateStep is Evaluate for step i instead of the current step. The
// controller uses it to judge the step a fix was heading for after the
// advancer has already moved past it.
func (s *AnnouncementScheduler) EvaluateStep(fix location.Fix, r *route.Route, p *ProgressState, i int) []Announcement {
	if i < 0 || i >= r.StepCount() {
		return nil
	}
	step := r.Step(i)
	feet := location.MetersToFeet(location.Distance(fix.Point, step.Anchor))

	var out []Announcement
	if feet > s.policy.EarlyMinFeet && feet < s.policy.EarlyMaxFeet && p.markEarly(i) {
		short := SimplifyInstruction(step.Instruction)
		out = append(out, Announcement{
			Kind:      EarlyAnnouncement,
			StepIndex: i,
			Text:      fmt.Sprintf("In %.0f feet, %s", s.policy.EarlyMaxFeet, strings.ToLower(short)),
		})
	}
	if feet <= s.policy.FinalFeet && p.markFinal(i) {
		out = append(out, Announcement{
			Kind:      FinalAnnouncement,
			StepIndex: i,
			Text:      SimplifyInstruction(step.Instruction),
		})
	}
	return out
}
