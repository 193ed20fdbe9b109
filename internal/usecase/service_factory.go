package usecase

import (
	"context"
	"gui-agent/internal/config"
	"gui-agent/internal/entity"
	"gui-agent/internal/eventstream"
	"gui-agent/internal/usecase/adapters"
	"gui-agent/pkg/logg"

	"go.uber.org/zap"
)

type serviceFactory struct {
	deps Params
}

func newServiceFactory(deps Params) *serviceFactory {
	return &serviceFactory{
		deps: deps,
	}
}

func (f *serviceFactory) CreateEventStream() *eventstream.Stream {
	return eventstream.New(f.deps.Logger)
}

// CreateAgentService binds an agent to the session's operator, restoring the
// session's manager for the configured mode.
func (f *serviceFactory) CreateAgentService(sessionID string, events *eventstream.Stream) adapters.AgentService {
	mode := agentMode(f.deps.Config.AgentConfig)
	provider := f.deps.Registry.Restore(context.Background(), sessionID, mode)

	return NewAgentService(AgentServiceParams{
		Config:     f.deps.Config,
		Logger:     f.deps.Logger.With(zap.String(logg.SessionID, sessionID)),
		Provider:   provider,
		Model:      f.deps.Model,
		Engine:     f.deps.Engine,
		Events:     events,
		Compressor: f.deps.Compressor,
		Recorder:   f.deps.Recorder,
	})
}

func agentMode(cfg *config.AgentConfig) entity.AgentMode {
	mode := entity.DefaultAgentMode()

	if cfg.Mode != "" {
		mode.ID = entity.ModeID(cfg.Mode)
	}

	if cfg.BrowserMode != "" {
		mode.BrowserMode = entity.BrowserMode(cfg.BrowserMode)
	}

	mode.Link = cfg.Link

	return mode
}
