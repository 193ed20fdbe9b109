package usecase

import (
	"gui-agent/internal/config"
	"gui-agent/internal/opmanager"
	"gui-agent/internal/ports"
	"gui-agent/internal/toolcall"
	"gui-agent/internal/usecase/adapters"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ConsoleSessionID names the single session driven from the terminal.
const ConsoleSessionID = "console"

type Service struct {
	Agent  adapters.AgentService
	Events adapters.EventLog
}

type Params struct {
	fx.In

	Logger     *zap.Logger
	Config     *config.Config
	Registry   *opmanager.Registry
	Model      ports.ModelClient
	Engine     *toolcall.Engine
	Compressor ports.Compressor
	Recorder   ports.MetricsRecorder
}

func NewUsecase(params Params) *Service {
	factory := newServiceFactory(params)
	events := factory.CreateEventStream()

	return &Service{
		Agent:  factory.CreateAgentService(ConsoleSessionID, events),
		Events: events,
	}
}
