package adapters

import (
	"context"
	"gui-agent/internal/entity"
	"gui-agent/internal/eventstream"
)

type AgentService interface {
	Execute(ctx context.Context, taskDescription string) (*entity.Task, error)
	Stop()
}

// EventLog is the read side of a session's event stream.
type EventLog interface {
	Subscribe(h eventstream.Handler) string
	Unsubscribe(id string)
	Events(types ...entity.EventType) []entity.Event
}
