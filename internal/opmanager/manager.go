package opmanager

import (
	"context"
	"errors"
	"gui-agent/internal/entity"
	"gui-agent/internal/ports"
	"gui-agent/pkg/apperr"
	"gui-agent/pkg/logg"
	"gui-agent/pkg/tracing"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	managerName   = "OperatorManager"
	managerTracer = "opmanager.manager"
	instanceKey   = "operator"
)

var ErrClosed = errors.New("operator manager is closed")

// Manager owns the operator of one session. The operator is built and initialized
// at most once at a time; a failed attempt is not cached, so the next call retries.
type Manager struct {
	mode        entity.AgentMode
	factory     Factory
	logger      *zap.Logger
	tracer      trace.Tracer
	initTimeout time.Duration

	group singleflight.Group

	mu       sync.Mutex
	instance ports.Operator
	closed   bool
}

// New returns a manager; initTimeout bounds one initialization, zero means no bound.
func New(mode entity.AgentMode, factory Factory, logger *zap.Logger, initTimeout time.Duration) *Manager {
	return &Manager{
		mode:    mode,
		factory: factory,
		logger: logger.With(
			zap.String(logg.Layer, managerName),
			zap.String(logg.Mode, string(mode.ID)),
			zap.String(logg.Backend, string(mode.BrowserMode)),
		),
		tracer:      otel.Tracer(managerTracer),
		initTimeout: initTimeout,
	}
}

func (m *Manager) GetMode() entity.AgentMode {
	return m.mode
}

func (m *Manager) cached() (ports.Operator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}

	return m.instance, nil
}

// GetInstance returns the initialized operator, creating it on first use. Concurrent
// callers share one initialization; each caller can still give up through its ctx.
func (m *Manager) GetInstance(ctx context.Context) (instance ports.Operator, err error) {
	const op = "GetInstance"
	logger := m.logger.With(zap.String(logg.Operation, op))

	instance, err = m.cached()
	if err != nil || instance != nil {
		return instance, err
	}

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op,
		attribute.String("mode", string(m.mode.ID)))
	defer func() {
		step.End(err)
	}()

	ch := m.group.DoChan(instanceKey, func() (any, error) {
		return m.create(context.WithoutCancel(ctx), logger)
	})

	select {
	case <-ctx.Done():
		return nil, apperr.Wrap(op, apperr.CodeCancelledByUser, ctx.Err(), map[string]any{
			apperr.MetaStage: apperr.StageInit,
		})
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}

		step.AddEvent("operator ready", attribute.Bool("shared", res.Shared))

		return res.Val.(ports.Operator), nil
	}
}

func (m *Manager) create(ctx context.Context, logger *zap.Logger) (ports.Operator, error) {
	const op = "create"

	if instance, err := m.cached(); err != nil || instance != nil {
		return instance, err
	}

	instance, err := m.factory.Create(m.mode)
	if err != nil {
		return nil, err
	}

	if m.initTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.initTimeout)
		defer cancel()
	}

	logger.Info("Initializing operator")

	if err := instance.Initialize(ctx); err != nil {
		logger.Error("Operator initialization failed", zap.Error(err))

		if closeErr := instance.Close(context.WithoutCancel(ctx)); closeErr != nil {
			logger.Warn("Failed to close operator after failed initialization", zap.Error(closeErr))
		}

		return nil, apperr.Wrap(op, apperr.CodeInitializationFailed, err, map[string]any{
			apperr.MetaStage: apperr.StageInit,
			apperr.MetaMode:  string(m.mode.ID),
		})
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		if err := instance.Close(ctx); err != nil {
			logger.Warn("Failed to close operator created after shutdown", zap.Error(err))
		}

		return nil, ErrClosed
	}

	m.instance = instance
	logger.Info("Operator initialized")

	return instance, nil
}

// Close disposes the cached operator. The manager refuses new instances afterwards.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	instance := m.instance
	m.instance = nil
	m.closed = true
	m.mu.Unlock()

	if instance == nil {
		return nil
	}

	m.logger.Info("Closing operator")

	return instance.Close(ctx)
}
