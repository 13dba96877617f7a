// Package journal records navigation events for later review.
package journal

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/randytsao24/walkwise/internal/navigation"
)

// Entry is one recorded event.
type Entry struct {
	Time      time.Time `bson:"time" json:"time"`
	Type      string    `bson:"type" json:"type"`
	From      string    `bson:"from,omitempty" json:"from,omitempty"`
	To        string    `bson:"to,omitempty" json:"to,omitempty"`
	Text      string    `bson:"text,omitempty" json:"text,omitempty"`
	StepIndex *int      `bson:"step_index,omitempty" json:"step_index,omitempty"`
	Kind      string    `bson:"kind,omitempty" json:"kind,omitempty"`
	Message   string    `bson:"message,omitempty" json:"message,omitempty"`
	DistanceM float64   `bson:"distance_m,omitempty" json:"distance_m,omitempty"`
}

// FromEvent flattens a controller event.
func FromEvent(ev navigation.Event) Entry {
	e := Entry{
		Time:      ev.Time,
		Type:      string(ev.Type),
		From:      ev.From,
		To:        ev.To,
		Text:      ev.Text,
		StepIndex: ev.StepIndex,
		Kind:      ev.Kind,
		Message:   ev.Message,
	}
	if ev.Deviation != nil {
		e.Kind = ev.Deviation.Kind.String()
		e.DistanceM = ev.Deviation.Distance
	}
	return e
}

type Journal interface {
	Record(ctx context.Context, e Entry) error
	// Recent returns up to limit entries, newest first.
	Recent(ctx context.Context, limit int) ([]Entry, error)
}

// Memory keeps the most recent entries in a ring.
type Memory struct {
	mu      sync.RWMutex
	entries []Entry
	next    int
	full    bool
}

func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = 1000
	}
	return &Memory{entries: make([]Entry, capacity)}
}

func (m *Memory) Record(ctx context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[m.next] = e
	m.next = (m.next + 1) % len(m.entries)
	if m.next == 0 {
		m.full = true
	}
	return nil
}

func (m *Memory) Recent(ctx context.Context, limit int) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := m.next
	if m.full {
		n = len(m.entries)
	}
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]Entry, 0, limit)
	for i := 1; i <= limit; i++ {
		out = append(out, m.entries[(m.next-i+len(m.entries))%len(m.entries)])
	}
	return out, nil
}

// Sink adapts a Journal to navigation.EventSink. Events are written by a
// single goroutine; when the buffer is full new events are dropped.
type Sink struct {
	journal Journal
	events  chan navigation.Event
	dropped atomic.Int64
	log     *slog.Logger
}

func NewSink(j Journal, buffer int, log *slog.Logger) *Sink {
	if buffer <= 0 {
		buffer = 256
	}
	if log == nil {
		log = slog.Default()
	}
	return &Sink{
		journal: j,
		events:  make(chan navigation.Event, buffer),
		log:     log.With("component", "journal"),
	}
}

func (s *Sink) Publish(ev navigation.Event) {
	select {
	case s.events <- ev:
	default:
		if s.dropped.Add(1)%100 == 1 {
			s.log.Warn("journal buffer full, dropping events", "dropped", s.dropped.Load())
		}
	}
}

// Dropped returns the number of events discarded so far.
func (s *Sink) Dropped() int64 {
	return s.dropped.Load()
}

// Run writes events until ctx is cancelled, then flushes what is already
// buffered.
func (s *Sink) Run(ctx context.Context) error {
	for {
		select {
		case ev := <-s.events:
			s.write(ctx, ev)
		case <-ctx.Done():
			flush, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			for {
				select {
				case ev := <-s.events:
					s.write(flush, ev)
				default:
					return nil
				}
			}
		}
	}
}

func (s *Sink) write(ctx context.Context, ev navigation.Event) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.journal.Record(ctx, FromEvent(ev)); err != nil {
		s.log.Warn("recording event", "type", ev.Type, "error", err)
	}
}
