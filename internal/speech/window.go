package speech

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/randytsao24/walkwise/internal/navigation"
)

// Window is a counted execution window. It is open while any lease is
// held. Releasing a lease twice has no effect.
type Window struct {
	log *slog.Logger

	mu      sync.Mutex
	holders map[string]int
	count   int
}

func NewWindow(log *slog.Logger) *Window {
	if log == nil {
		log = slog.Default()
	}
	return &Window{
		log:     log.With("component", "window"),
		holders: make(map[string]int),
	}
}

func (w *Window) Acquire(reason string) navigation.Lease {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.count++
	w.holders[reason]++
	if w.count == 1 {
		w.log.Debug("execution window opened", "reason", reason)
	}
	return &lease{window: w, reason: reason}
}

func (w *Window) release(reason string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.count--
	if w.holders[reason]--; w.holders[reason] <= 0 {
		delete(w.holders, reason)
	}
	if w.count == 0 {
		w.log.Debug("execution window closed", "reason", reason)
	}
}

// Active reports whether any lease is held.
func (w *Window) Active() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count > 0
}

// Holders returns the number of held leases per reason.
func (w *Window) Holders() map[string]int {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[string]int, len(w.holders))
	for k, v := range w.holders {
		out[k] = v
	}
	return out
}

type lease struct {
	window *Window
	reason string
	once   sync.Once
}

func (l *lease) Release() {
	l.once.Do(func() { l.window.release(l.reason) })
}

// Settings holds user preferences that may change while navigating.
type Settings struct {
	voiceFeedback atomic.Bool
}

func NewSettings(voiceFeedback bool) *Settings {
	s := &Settings{}
	s.voiceFeedback.Store(voiceFeedback)
	return s
}

func (s *Settings) VoiceFeedbackEnabled() bool {
	return s.voiceFeedback.Load()
}

func (s *Settings) SetVoiceFeedback(enabled bool) {
	s.voiceFeedback.Store(enabled)
}
