package eventstream

import (
	"context"
	"gui-agent/internal/entity"
	"gui-agent/pkg/logg"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const streamName = "EventStream"

type Handler func(entity.Event)

// Stream is an append-only session event log. Handlers run synchronously in append order.
type Stream struct {
	logger *zap.Logger

	mu       sync.RWMutex
	events   []entity.Event
	handlers map[string]Handler
}

func New(logger *zap.Logger) *Stream {
	return &Stream{
		logger:   logger.With(zap.String(logg.Layer, streamName)),
		handlers: make(map[string]Handler),
	}
}

// Append stamps the event with an ID and timestamp when missing, stores it and
// notifies subscribers.
func (s *Stream) Append(event entity.Event) entity.Event {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	s.mu.Lock()
	s.events = append(s.events, event)
	handlers := make([]Handler, 0, len(s.handlers))
	for _, h := range s.handlers {
		handlers = append(handlers, h)
	}
	s.mu.Unlock()

	s.logger.Debug("Event appended",
		zap.String(logg.Event, string(event.Type)),
		zap.String("event_id", event.ID),
	)

	for _, h := range handlers {
		h(event)
	}

	return event
}

// Subscribe registers h and returns its subscription ID.
func (s *Stream) Subscribe(h Handler) string {
	id := uuid.NewString()

	s.mu.Lock()
	s.handlers[id] = h
	s.mu.Unlock()

	return id
}

func (s *Stream) Unsubscribe(id string) {
	s.mu.Lock()
	delete(s.handlers, id)
	s.mu.Unlock()
}

// Events returns a copy of the log, optionally filtered by type.
func (s *Stream) Events(types ...entity.EventType) []entity.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(types) == 0 {
		return slices.Clone(s.events)
	}

	var out []entity.Event

	for _, e := range s.events {
		if slices.Contains(types, e.Type) {
			out = append(out, e)
		}
	}

	return out
}

// Latest returns the most recent event of type t.
func (s *Stream) Latest(t entity.EventType) (entity.Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range slices.Backward(s.events) {
		if e.Type == t {
			return e, true
		}
	}

	return entity.Event{}, false
}

// Passthrough is the default image compressor; it returns images unchanged.
type Passthrough struct{}

func (Passthrough) Compress(_ context.Context, base64Image string) (string, error) {
	return base64Image, nil
}
