package bootstrap

import (
	"context"
	"gui-agent/internal/ai"
	"gui-agent/internal/config"
	"gui-agent/internal/console"
	"gui-agent/internal/eventstream"
	"gui-agent/internal/metrics"
	"gui-agent/internal/opmanager"
	"gui-agent/internal/parser"
	"gui-agent/internal/ports"
	"gui-agent/internal/toolcall"
	"gui-agent/internal/usecase"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func NewApp() *fx.App {
	return fx.New(
		fx.Provide(
			config.GetConfig,
			newLogger,

			fx.Annotate(newMetricsRegistry,
				fx.As(new(prometheus.Registerer)),
				fx.As(new(prometheus.Gatherer)),
			),
			fx.Annotate(metrics.NewCollector, fx.As(new(ports.MetricsRecorder))),

			newParser,
			toolcall.NewEngine,
			fx.Annotate(ai.NewClient, fx.As(new(ports.ModelClient))),
			fx.Annotate(newCompressor, fx.As(new(ports.Compressor))),

			fx.Annotate(opmanager.NewBackendFactory, fx.As(new(opmanager.Factory))),
			newRegistry,

			usecase.NewUsecase,

			console.NewInterface,
		),

		fx.Invoke(
			newTraceProvider,
			runMetricsServer,
			runConsole,
		),

		fx.StartTimeout(10*time.Second),
	)
}

func newParser(logger *zap.Logger) parser.Parser {
	return parser.NewStrategy(nil, parser.NewDefaultParser(logger))
}

func newCompressor() eventstream.Passthrough {
	return eventstream.Passthrough{}
}

func newRegistry(lc fx.Lifecycle, config *config.Config, factory opmanager.Factory, logger *zap.Logger) *opmanager.Registry {
	registry := opmanager.NewRegistry(factory, logger, config.AgentConfig.InitTimeout)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return registry.Close(ctx)
		},
	})

	return registry
}
