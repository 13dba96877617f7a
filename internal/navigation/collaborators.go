package navigation

import (
	"context"

	"github.com/randytsao24/walkwise/internal/location"
	"github.com/randytsao24/walkwise/internal/route"
)

// Directions computes a route between two points.
type Directions interface {
	Route(ctx context.Context, origin, destination location.Point, mode route.Mode) (*route.Route, error)
}

// LocationSource delivers fixes to the controller while started. Stop must
// be safe to call when not started.
type LocationSource interface {
	Start() error
	Stop()
}

// VoiceRecognizer delivers transcripts to the controller while started.
// Stop must be safe to call when not started.
type VoiceRecognizer interface {
	Start() error
	Stop()
}

// Speaker plays utterances one at a time. Interrupt drops whatever is
// playing or queued before speaking; Cancel drops everything.
type Speaker interface {
	Speak(text string)
	Interrupt(text string)
	Cancel()
}

// Settings exposes user preferences read before each utterance.
type Settings interface {
	VoiceFeedbackEnabled() bool
}

// ExecutionWindow keeps the process allowed to run while guidance is
// active, e.g. with the screen off.
type ExecutionWindow interface {
	Acquire(reason string) Lease
}

// Lease is held while a resource is in use. Release is idempotent.
type Lease interface {
	Release()
}

// EventSink receives controller events. Publish must not block.
type EventSink interface {
	Publish(Event)
}

// MultiSink fans an event out to several sinks.
type MultiSink []EventSink

func (m MultiSink) Publish(ev Event) {
	for _, s := range m {
		if s != nil {
			s.Publish(ev)
		}
	}
}

type nopSource struct{}

func (nopSource) Start() error { return nil }
func (nopSource) Stop()        {}

type nopSpeaker struct{}

func (nopSpeaker) Speak(string)     {}
func (nopSpeaker) Interrupt(string) {}
func (nopSpeaker) Cancel()          {}

type nopLease struct{}

func (nopLease) Release() {}

type nopWindow struct{}

func (nopWindow) Acquire(string) Lease { return nopLease{} }

type nopSink struct{}

func (nopSink) Publish(Event) {}
