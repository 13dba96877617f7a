package navigation

import (
	"fmt"
	"time"

	"github.com/randytsao24/walkwise/internal/location"
	"github.com/randytsao24/walkwise/internal/route"
)

// DeviationKind classifies a deviation detector outcome.
type DeviationKind int

const (
	OffRouteWarning DeviationKind = iota + 1
	BackOnRoute
	OnTrackPositiveFeedback
)

func (k DeviationKind) String() string {
	switch k {
	case OffRouteWarning:
		return "off_route"
	case BackOnRoute:
		return "back_on_route"
	case OnTrackPositiveFeedback:
		return "on_track"
	default:
		return fmt.Sprintf("DeviationKind(%d)", int(k))
	}
}

func (k DeviationKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Phrase is the sentence spoken for the event kind.
func (k DeviationKind) Phrase() string {
	switch k {
	case OffRouteWarning:
		return OffRoutePhrase
	case BackOnRoute:
		return BackOnRoutePhrase
	case OnTrackPositiveFeedback:
		return OnTrackPhrase
	default:
		return ""
	}
}

// DeviationEvent is emitted when the detector has something to tell the walker.
type DeviationEvent struct {
	Kind     DeviationKind `json:"kind"`
	Distance float64       `json:"distance_m"`
	Time     time.Time     `json:"time"`
}

// DeviationState is the detector's memory between fixes.
type DeviationState struct {
	// SegmentIndex is the polyline segment the walker is expected to be on.
	// It equals PointCount-1 once the polyline is exhausted.
	SegmentIndex int
	Counter      int
	OffRoute     bool
	// Warned latches after an off-route warning until the walker is back.
	Warned bool

	LastDistance     float64
	LastFix          location.Fix
	LastFixTime      time.Time
	LastFeedbackTime time.Time
}

// Reset returns s to the state of a fresh session.
func (s *DeviationState) Reset() {
	*s = DeviationState{}
}

// DeviationDetector decides whether the walker has strayed from the route
// segment they are expected to be on. It is stateless; all memory lives in
// the DeviationState passed to each call.
type DeviationDetector struct {
	policy Policy
}

func NewDeviationDetector(policy Policy) *DeviationDetector {
	return &DeviationDetector{policy: policy}
}

// Evaluate processes one fix. Fixes arriving less than MinCheckInterval
// after the previous evaluated fix, or closer than MovementThreshold to it,
// are ignored. The first fix of a session is always evaluated.
func (d *DeviationDetector) Evaluate(fix location.Fix, r *route.Route, s *DeviationState) (DeviationEvent, bool) {
	start, end, ok := r.Segment(s.SegmentIndex)
	if !ok {
		return DeviationEvent{}, false
	}

	now := fix.Timestamp
	if !s.LastFixTime.IsZero() {
		if now.Sub(s.LastFixTime) < d.policy.MinCheckInterval {
			return DeviationEvent{}, false
		}
		if location.Distance(fix.Point, s.LastFix.Point) < d.policy.MovementThreshold {
			return DeviationEvent{}, false
		}
	}

	dist := location.PerpendicularDistance(fix.Point, start, end)
	movingAway := s.LastDistance > 0 && dist > s.LastDistance+d.policy.MovingAwayMargin

	var (
		ev    DeviationEvent
		fired bool
	)
	if dist > d.policy.DeviationThreshold {
		if movingAway || !s.OffRoute {
			s.Counter++
			if s.Counter >= d.policy.DeviationLimit && !s.Warned && d.cooledDown(s, now) {
				s.OffRoute = true
				s.Warned = true
				s.LastFeedbackTime = now
				ev, fired = DeviationEvent{Kind: OffRouteWarning, Distance: dist, Time: now}, true
			}
		}
	} else {
		if s.OffRoute {
			s.LastFeedbackTime = now
			ev, fired = DeviationEvent{Kind: BackOnRoute, Distance: dist, Time: now}, true
		}
		s.Counter = 0
		s.OffRoute = false
		s.Warned = false

		if !fired && dist < d.policy.OnTrackDistance && d.cooledDown(s, now) {
			s.LastFeedbackTime = now
			ev, fired = DeviationEvent{Kind: OnTrackPositiveFeedback, Distance: dist, Time: now}, true
		}
	}

	s.LastDistance = dist
	s.LastFix = fix
	s.LastFixTime = now
	return ev, fired
}

func (d *DeviationDetector) cooledDown(s *DeviationState, now time.Time) bool {
	return s.LastFeedbackTime.IsZero() || now.Sub(s.LastFeedbackTime) >= d.policy.FeedbackCooldown
}

// AdvanceSegment moves the expected segment forward by one, stopping at
// the exhausted sentinel. Off-route counts against the old segment are
// dropped.
func (d *DeviationDetector) AdvanceSegment(r *route.Route, s *DeviationState) {
	if s.SegmentIndex < r.PointCount()-1 {
		s.SegmentIndex++
		s.Counter = 0
	}
}
