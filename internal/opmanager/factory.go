package opmanager

import (
	"errors"
	"fmt"
	"gui-agent/internal/config"
	"gui-agent/internal/entity"
	"gui-agent/internal/operator"
	"gui-agent/internal/operator/android"
	"gui-agent/internal/operator/browser"
	"gui-agent/internal/operator/desktop"
	"gui-agent/internal/operator/hybrid"
	"gui-agent/internal/ports"
	"gui-agent/pkg/apperr"

	"go.uber.org/zap"
)

// Factory builds an uninitialized operator for a mode.
type Factory interface {
	Create(mode entity.AgentMode) (ports.Operator, error)
}

type FactoryFunc func(mode entity.AgentMode) (ports.Operator, error)

func (f FactoryFunc) Create(mode entity.AgentMode) (ports.Operator, error) {
	return f(mode)
}

var errNoEndpoint = errors.New("remote browser mode needs BROWSER_WS_ENDPOINT")

type BackendFactory struct {
	config   *config.Config
	logger   *zap.Logger
	recorder ports.MetricsRecorder
}

func NewBackendFactory(cfg *config.Config, logger *zap.Logger, recorder ports.MetricsRecorder) *BackendFactory {
	return &BackendFactory{config: cfg, logger: logger, recorder: recorder}
}

func (f *BackendFactory) Create(mode entity.AgentMode) (ports.Operator, error) {
	const op = "Create"

	backend, err := f.backend(mode)
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeInvalidArgument, err, map[string]any{
			apperr.MetaReason: "unsupported_mode",
			apperr.MetaMode:   fmt.Sprintf("%s/%s", mode.ID, mode.BrowserMode),
		})
	}

	return operator.NewLifecycle(backend, f.logger, f.recorder), nil
}

func (f *BackendFactory) backend(mode entity.AgentMode) (operator.Backend, error) {
	if mode.ID == entity.ModeGame {
		return hybrid.NewGame(f.config.SandboxConfig, mode.Link, f.logger), nil
	}

	switch mode.BrowserMode {
	case "", entity.BrowserModeHybrid:
		return hybrid.NewHybrid(f.config.SandboxConfig, f.logger), nil
	case entity.BrowserModeLocal:
		cfg := *f.config.BrowserConfig
		cfg.WSEndpoint = ""

		return browser.New(&cfg, f.logger), nil
	case entity.BrowserModeRemote:
		if f.config.BrowserConfig.WSEndpoint == "" {
			return nil, errNoEndpoint
		}

		return browser.New(f.config.BrowserConfig, f.logger), nil
	case entity.BrowserModeDesktop:
		return desktop.New(f.config.DesktopConfig, f.logger), nil
	case entity.BrowserModeAndroid:
		return android.New(f.config.AndroidConfig, f.logger), nil
	default:
		return nil, fmt.Errorf("unknown browser mode %q", mode.BrowserMode)
	}
}
