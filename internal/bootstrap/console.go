package bootstrap

import (
	"context"
	"gui-agent/internal/config"
	"gui-agent/internal/console"
	"gui-agent/pkg/logg"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// runConsole starts the console once the graph is up. The operator itself is created
// lazily by the first task.
func runConsole(lc fx.Lifecycle, consoleInterface *console.Interface, config *config.Config, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("Starting GUI Agent Console Interface...",
				zap.String(logg.Mode, config.AgentConfig.Mode),
				zap.String(logg.Backend, config.AgentConfig.BrowserMode),
			)

			go func() {
				if err := consoleInterface.Start(); err != nil {
					logger.Error("Console interface error", zap.Error(err))
				}
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Shutting down GUI Agent...")

			return consoleInterface.Stop()
		},
	})
}
