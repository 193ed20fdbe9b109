package bootstrap

import (
	"context"
	"fmt"
	"gui-agent/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gopkg.in/natefinch/lumberjack.v2"
)

const serviceName = "gui-agent"

// newTraceProvider installs the global tracer provider. Spans are exported only when
// TRACE_FILE is set; stdout belongs to the console.
func newTraceProvider(lc fx.Lifecycle, config *config.Config, logger *zap.Logger) (*sdktrace.TracerProvider, error) {
	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			attribute.String("agent.mode", config.AgentConfig.Mode),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create trace resource: %w", err)
	}

	options := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}

	if path := config.AppConfig.TraceFile; path != "" {
		exporter, err := stdouttrace.New(
			stdouttrace.WithWriter(&lumberjack.Logger{
				Filename:   path,
				MaxSize:    logFileMaxSizeMB,
				MaxBackups: logFileMaxBackups,
				MaxAge:     logFileMaxAgeDays,
			}),
		)
		if err != nil {
			return nil, fmt.Errorf("create trace exporter: %w", err)
		}

		options = append(options, sdktrace.WithBatcher(exporter))
		logger.Info("Exporting traces", zap.String("file", path))
	}

	tp := sdktrace.NewTracerProvider(options...)

	otel.SetTracerProvider(tp)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return tp.Shutdown(ctx)
		},
	})

	return tp, nil
}
