// Package speech plays navigation utterances one at a time through a
// voice backend and keeps the execution window open while speaking.
package speech

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/randytsao24/walkwise/internal/navigation"
)

// Backend renders one utterance. Say returns when the utterance finished
// playing or ctx is done.
type Backend interface {
	Say(ctx context.Context, text string) error
}

// Estimate is how long text is expected to take to speak.
func Estimate(text string) time.Duration {
	return time.Duration(len(text))*100*time.Millisecond + 3*time.Second
}

// Queue implements navigation.Speaker. Utterances are played in order with
// at most one in flight. Each holds an execution window lease for at most
// its estimated duration.
type Queue struct {
	backend Backend
	window  navigation.ExecutionWindow
	log     *slog.Logger

	mu      sync.Mutex
	pending []string
	current context.CancelFunc
	wake    chan struct{}
}

// NewQueue creates a queue. window may be nil.
func NewQueue(backend Backend, window navigation.ExecutionWindow, log *slog.Logger) *Queue {
	if log == nil {
		log = slog.Default()
	}
	return &Queue{
		backend: backend,
		window:  window,
		log:     log.With("component", "speech"),
		wake:    make(chan struct{}, 1),
	}
}

// Speak queues text behind whatever is playing.
func (q *Queue) Speak(text string) {
	q.mu.Lock()
	q.pending = append(q.pending, text)
	q.mu.Unlock()
	q.signal()
}

// Interrupt stops the current utterance, drops the queue and speaks text.
func (q *Queue) Interrupt(text string) {
	q.mu.Lock()
	q.stopLocked()
	q.pending = append(q.pending, text)
	q.mu.Unlock()
	q.signal()
}

// Cancel stops the current utterance and drops the queue.
func (q *Queue) Cancel() {
	q.mu.Lock()
	q.stopLocked()
	q.mu.Unlock()
}

// Pending returns the number of queued utterances, not counting the one
// playing.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

func (q *Queue) stopLocked() {
	q.pending = nil
	if q.current != nil {
		q.current()
		q.current = nil
	}
}

func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Run plays queued utterances until ctx is cancelled.
func (q *Queue) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			q.Cancel()
			return nil
		case <-q.wake:
		}
		for q.next(ctx) {
		}
	}
}

// next plays the head of the queue and reports whether there was one.
func (q *Queue) next(ctx context.Context) bool {
	q.mu.Lock()
	if len(q.pending) == 0 || ctx.Err() != nil {
		q.mu.Unlock()
		return false
	}
	text := q.pending[0]
	q.pending = q.pending[1:]
	uctx, cancel := context.WithTimeout(ctx, Estimate(text))
	q.current = cancel
	q.mu.Unlock()

	var lease navigation.Lease
	if q.window != nil {
		lease = q.window.Acquire("speech")
	}
	start := time.Now()
	err := q.backend.Say(uctx, text)
	interrupted := errors.Is(uctx.Err(), context.Canceled)
	cancel()
	if lease != nil {
		lease.Release()
	}

	q.mu.Lock()
	// Interrupt may already have replaced current with nil.
	q.current = nil
	q.mu.Unlock()

	switch {
	case interrupted:
		q.log.Debug("utterance interrupted", "text", text, "elapsed", time.Since(start))
	case err != nil && !errors.Is(err, context.DeadlineExceeded):
		q.log.Warn("utterance failed", "text", text, "error", err)
	default:
		q.log.Debug("utterance finished", "text", text, "elapsed", time.Since(start))
	}
	return true
}

// LogVoice is a Backend that only logs what would be spoken.
type LogVoice struct {
	Logger *slog.Logger
}

func (v LogVoice) Say(ctx context.Context, text string) error {
	log := v.Logger
	if log == nil {
		log = slog.Default()
	}
	log.Info("speak", "text", text)
	return nil
}
