package journal

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/randytsao24/walkwise/internal/navigation"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func entry(i int) Entry {
	return Entry{Time: t0.Add(time.Duration(i) * time.Second), Type: "state", To: "navigating"}
}

func TestMemoryRecent(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(3)

	got, _ := m.Recent(ctx, 10)
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}

	for i := 0; i < 5; i++ {
		m.Record(ctx, entry(i))
	}
	got, _ = m.Recent(ctx, 0)
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(got))
	}
	for i, want := range []int{4, 3, 2} {
		if !got[i].Time.Equal(entry(want).Time) {
			t.Errorf("entry %d: expected %v, got %v", i, entry(want).Time, got[i].Time)
		}
	}

	got, _ = m.Recent(ctx, 1)
	if len(got) != 1 || !got[0].Time.Equal(entry(4).Time) {
		t.Errorf("expected newest entry only, got %v", got)
	}
}

func TestFromEvent(t *testing.T) {
	step := 2
	e := FromEvent(navigation.Event{
		Type:      navigation.EventDeviation,
		Time:      t0,
		StepIndex: &step,
		Deviation: &navigation.DeviationEvent{Kind: navigation.OffRouteWarning, Distance: 31.5},
	})
	if e.Type != "deviation" || e.Kind != "off_route" || e.DistanceM != 31.5 || *e.StepIndex != 2 {
		t.Errorf("unexpected entry %+v", e)
	}
}

type failingJournal struct {
	mu    sync.Mutex
	calls int
}

func (f *failingJournal) Record(ctx context.Context, e Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return errors.New("disk full")
}

func (f *failingJournal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	return nil, nil
}

func TestSinkWritesEvents(t *testing.T) {
	mem := NewMemory(10)
	s := NewSink(mem, 10, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	s.Publish(navigation.Event{Type: navigation.EventState, Time: t0, To: "navigating"})
	s.Publish(navigation.Event{Type: navigation.EventUtterance, Time: t0.Add(time.Second), Text: "Turn left", Spoken: true})
	cancel()
	<-done

	got, _ := mem.Recent(context.Background(), 0)
	if len(got) != 2 {
		t.Fatalf("expected buffered events to be flushed, got %d", len(got))
	}
	if got[0].Text != "Turn left" {
		t.Errorf("expected newest first, got %+v", got[0])
	}
}

func TestSinkDropsWhenFull(t *testing.T) {
	s := NewSink(NewMemory(10), 2, nil)
	for i := 0; i < 5; i++ {
		s.Publish(navigation.Event{Type: navigation.EventState})
	}
	if s.Dropped() != 3 {
		t.Errorf("expected 3 dropped, got %d", s.Dropped())
	}
}

func TestSinkSurvivesJournalErrors(t *testing.T) {
	j := &failingJournal{}
	s := NewSink(j, 4, nil)
	ctx, cancel := context.WithCancel(context.Background())
	s.Publish(navigation.Event{Type: navigation.EventState})
	s.Publish(navigation.Event{Type: navigation.EventState})
	cancel()
	s.Run(ctx)

	if j.calls != 2 {
		t.Errorf("expected 2 attempts, got %d", j.calls)
	}
}

func TestMongo(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("record", func(mt *mtest.T) {
		m := &Mongo{collection: mt.Coll}
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		if err := m.Record(context.Background(), entry(1)); err != nil {
			t.Fatalf("Record: %v", err)
		}
	})

	mt.Run("recent", func(mt *mtest.T) {
		m := &Mongo{collection: mt.Coll}
		ns := mt.DB.Name() + "." + mt.Coll.Name()
		first := mtest.CreateCursorResponse(1, ns, mtest.FirstBatch,
			bson.D{{Key: "time", Value: t0.Add(2 * time.Second)}, {Key: "type", Value: "utterance"}, {Key: "text", Value: "Turn left"}},
			bson.D{{Key: "time", Value: t0}, {Key: "type", Value: "state"}, {Key: "to", Value: "navigating"}},
		)
		last := mtest.CreateCursorResponse(0, ns, mtest.NextBatch)
		mt.AddMockResponses(first, last)

		got, err := m.Recent(context.Background(), 2)
		if err != nil {
			t.Fatalf("Recent: %v", err)
		}
		if len(got) != 2 || got[0].Text != "Turn left" || got[1].To != "navigating" {
			t.Errorf("unexpected entries %+v", got)
		}
	})

	mt.Run("insert error", func(mt *mtest.T) {
		m := &Mongo{collection: mt.Coll}
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "duplicate key"}))
		if err := m.Record(context.Background(), entry(1)); err == nil {
			t.Error("expected write error")
		}
	})
}
