package ports

import (
	"context"
	"gui-agent/internal/entity"
	"time"
)

// Operator is the execution backend contract shared by every concrete target.
type Operator interface {
	Initialize(ctx context.Context) error
	SupportedActions() []entity.ActionType
	ScreenContext() (entity.ScreenContext, error)
	Screenshot(ctx context.Context) (*entity.ScreenshotOutput, error)
	Execute(ctx context.Context, params entity.ExecuteParams) (*entity.ExecuteOutput, error)
	Close(ctx context.Context) error
}

type OperatorProvider interface {
	GetInstance(ctx context.Context) (Operator, error)
	GetMode() entity.AgentMode
}

// ChunkStream yields model chunks until io.EOF.
type ChunkStream interface {
	Recv() (entity.StreamChunk, error)
	Close() error
}

type ModelClient interface {
	StreamChat(ctx context.Context, req entity.ChatRequest) (ChunkStream, error)
}

type EventSink interface {
	Append(event entity.Event) entity.Event
	Events(types ...entity.EventType) []entity.Event
}

type Compressor interface {
	Compress(ctx context.Context, base64Image string) (string, error)
}

type MetricsRecorder interface {
	ObserveAction(backend string, action entity.ActionType, success bool, elapsed time.Duration)
	ObserveScreenshot(backend string, success bool, elapsed time.Duration)
	IncParseFailure()
	IncIteration(mode entity.ModeID)
	IncOperatorInit(backend string, success bool)
}
