package eventstream

import (
	"context"
	"gui-agent/internal/entity"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAppend_StampsAndStores(t *testing.T) {
	s := New(zap.NewNop())

	e := s.Append(entity.Event{Type: entity.EventUserMessage, Content: "open example.com"})
	assert.NotEmpty(t, e.ID)
	assert.False(t, e.Timestamp.IsZero())

	fixed := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	kept := s.Append(entity.Event{ID: "given", Type: entity.EventSystem, Timestamp: fixed})
	assert.Equal(t, "given", kept.ID)
	assert.Equal(t, fixed, kept.Timestamp)

	assert.Len(t, s.Events(), 2)
	assert.Equal(t, []entity.Event{e}, s.Events(entity.EventUserMessage))
}

func TestEvents_ReturnsCopy(t *testing.T) {
	s := New(zap.NewNop())
	s.Append(entity.Event{Type: entity.EventUserMessage, Content: "a"})

	events := s.Events()
	events[0].Content = "changed"

	assert.Equal(t, "a", s.Events()[0].Content)
}

func TestSubscribe(t *testing.T) {
	s := New(zap.NewNop())

	var seen []entity.EventType
	id := s.Subscribe(func(e entity.Event) {
		seen = append(seen, e.Type)
	})

	s.Append(entity.Event{Type: entity.EventToolCall})
	s.Append(entity.Event{Type: entity.EventToolResult})
	s.Unsubscribe(id)
	s.Append(entity.Event{Type: entity.EventEnvironmentInput})

	assert.Equal(t, []entity.EventType{entity.EventToolCall, entity.EventToolResult}, seen)
}

func TestLatest(t *testing.T) {
	s := New(zap.NewNop())

	_, ok := s.Latest(entity.EventEnvironmentInput)
	assert.False(t, ok)

	s.Append(entity.Event{Type: entity.EventEnvironmentInput, Content: "first"})
	s.Append(entity.Event{Type: entity.EventToolCall})
	s.Append(entity.Event{Type: entity.EventEnvironmentInput, Content: "second"})

	e, ok := s.Latest(entity.EventEnvironmentInput)
	require.True(t, ok)
	assert.Equal(t, "second", e.Content)
}

func TestPassthrough(t *testing.T) {
	out, err := Passthrough{}.Compress(context.Background(), "AAAA")
	require.NoError(t, err)
	assert.Equal(t, "AAAA", out)
}
