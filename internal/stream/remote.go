package stream

import (
	"context"
	"time"

	"github.com/randytsao24/walkwise/internal/speech"
)

// RemoteSensor asks connected clients to start or stop a sensor. The
// readings themselves come back through the HTTP API. Clients that
// connect later receive the last request.
type RemoteSensor struct {
	hub         *Hub
	name        string
	start, stop string
}

// NewRemoteLocation controls the client's location updates.
func NewRemoteLocation(h *Hub) *RemoteSensor {
	return &RemoteSensor{hub: h, name: "location", start: FrameLocationStart, stop: FrameLocationStop}
}

// NewRemoteRecognizer controls the client's speech recognizer.
func NewRemoteRecognizer(h *Hub) *RemoteSensor {
	return &RemoteSensor{hub: h, name: "listen", start: FrameListenStart, stop: FrameListenStop}
}

func (s *RemoteSensor) Start() error {
	s.hub.setSensor(s.name, s.start)
	return nil
}

func (s *RemoteSensor) Stop() {
	s.hub.setSensor(s.name, s.stop)
}

// Voice is a speech backend that has clients speak the text. Say returns
// after the estimated speaking time, or sends a cancel frame if ctx ends
// first.
type Voice struct {
	Hub *Hub
}

func (v Voice) Say(ctx context.Context, text string) error {
	v.Hub.Broadcast(Frame{Type: FrameSpeak, Text: text})
	t := time.NewTimer(speech.Estimate(text))
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		if ctx.Err() == context.Canceled {
			v.Hub.Broadcast(Frame{Type: FrameSpeakCancel})
		}
		return ctx.Err()
	}
}
