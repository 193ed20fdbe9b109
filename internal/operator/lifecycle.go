package operator

import (
	"context"
	"errors"
	"fmt"
	"gui-agent/internal/coords"
	"gui-agent/internal/entity"
	"gui-agent/internal/metrics"
	"gui-agent/internal/ports"
	"gui-agent/pkg/apperr"
	"gui-agent/pkg/logg"
	"gui-agent/pkg/tracing"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	lifecycleName   = "Operator"
	lifecycleTracer = "operator.lifecycle"
)

type State int32

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateExecuting
	StateScreenshotting
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateExecuting:
		return "executing"
	case StateScreenshotting:
		return "screenshotting"
	case StateDisposed:
		return "disposed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Backend is the driver half of an operator. Lifecycle guarantees that Execute only
// sees supported actions with valid coordinates, one at a time.
type Backend interface {
	Name() string
	SupportedActions() []entity.ActionType
	Initialize(ctx context.Context) (entity.ScreenContext, error)
	Screenshot(ctx context.Context) (*entity.ScreenshotOutput, error)
	Execute(ctx context.Context, action entity.Action, screen entity.ScreenContext) error
	// Cleanup runs after a failed action, e.g. to release held buttons.
	Cleanup(ctx context.Context)
	Close(ctx context.Context) error
}

// Lifecycle implements ports.Operator on top of a Backend.
type Lifecycle struct {
	backend   Backend
	logger    *zap.Logger
	tracer    trace.Tracer
	recorder  ports.MetricsRecorder
	supported []entity.ActionType

	// opMu serializes initialization, execution and capture.
	opMu   sync.Mutex
	mu     sync.RWMutex
	state  State
	screen entity.ScreenContext
}

func NewLifecycle(backend Backend, logger *zap.Logger, recorder ports.MetricsRecorder) *Lifecycle {
	if recorder == nil {
		recorder = metrics.Nop{}
	}

	return &Lifecycle{
		backend: backend,
		logger: logger.With(
			zap.String(logg.Layer, lifecycleName),
			zap.String(logg.Backend, backend.Name()),
		),
		tracer:    otel.Tracer(lifecycleTracer),
		recorder:  recorder,
		supported: slices.Clone(backend.SupportedActions()),
		state:     StateUninitialized,
	}
}

func (l *Lifecycle) Name() string {
	return l.backend.Name()
}

func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.state
}

func (l *Lifecycle) setState(s State) {
	l.mu.Lock()
	l.state = s
	l.mu.Unlock()
}

func (l *Lifecycle) SupportedActions() []entity.ActionType {
	return slices.Clone(l.supported)
}

func (l *Lifecycle) ScreenContext() (entity.ScreenContext, error) {
	const op = "ScreenContext"

	l.mu.RLock()
	defer l.mu.RUnlock()

	switch l.state {
	case StateUninitialized, StateInitializing:
		return entity.ScreenContext{}, apperr.WrapErrorWithReason(op, apperr.CodeNotInitialized, "operator_not_initialized")
	case StateDisposed:
		return entity.ScreenContext{}, apperr.WrapErrorWithReason(op, apperr.CodeDisposed, "operator_disposed")
	}

	return l.screen, nil
}

// Initialize is idempotent. A failed attempt leaves the operator uninitialized so a
// later call can retry.
func (l *Lifecycle) Initialize(ctx context.Context) (err error) {
	l.opMu.Lock()
	defer l.opMu.Unlock()

	return l.initializeLocked(ctx)
}

func (l *Lifecycle) initializeLocked(ctx context.Context) (err error) {
	const op = "Initialize"
	logger := l.logger.With(zap.String(logg.Operation, op))

	switch l.State() {
	case StateDisposed:
		return apperr.WrapErrorWithReason(op, apperr.CodeDisposed, "operator_disposed")
	case StateUninitialized:
	default:
		return nil
	}

	ctx, step := tracing.StartSpan(ctx, l.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	l.setState(StateInitializing)
	logger.Info("Initializing operator")

	screen, err := l.backend.Initialize(ctx)
	l.recorder.IncOperatorInit(l.backend.Name(), err == nil)

	if err != nil {
		l.setState(StateUninitialized)

		return apperr.Wrap(op, apperr.CodeInitializationFailed, err, map[string]any{
			apperr.MetaReason:  "backend_initialize_failed",
			apperr.MetaStage:   apperr.StageInit,
			apperr.MetaBackend: l.backend.Name(),
		})
	}

	l.mu.Lock()
	l.screen = screen
	l.state = StateReady
	l.mu.Unlock()

	logger.Info("Operator ready",
		zap.Int("screen_width", screen.ScreenWidth),
		zap.Int("screen_height", screen.ScreenHeight))

	return nil
}

func (l *Lifecycle) supports(t entity.ActionType) bool {
	return slices.Contains(l.supported, t)
}

// Execute runs the batch strictly in order. The whole batch is checked before the
// first backend call; a failing action aborts the rest and triggers backend cleanup.
func (l *Lifecycle) Execute(ctx context.Context, params entity.ExecuteParams) (out *entity.ExecuteOutput, err error) {
	const op = "Execute"
	logger := l.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, l.tracer, logger, op,
		attribute.Int("actions", len(params.Actions)))
	defer func() {
		step.End(err)
	}()

	for _, action := range params.Actions {
		if !l.supports(action.Type) {
			return nil, apperr.Wrap(op, apperr.CodeUnsupportedAction,
				fmt.Errorf("unsupported action type %q for %s operator", action.Type, l.backend.Name()),
				map[string]any{
					apperr.MetaAction:  string(action.Type),
					apperr.MetaBackend: l.backend.Name(),
				})
		}

		if err := coords.Validate(action); err != nil {
			return nil, err
		}
	}

	l.opMu.Lock()
	defer l.opMu.Unlock()

	if err := l.initializeLocked(ctx); err != nil {
		return nil, err
	}

	l.setState(StateExecuting)
	defer l.restoreReady()

	screen := l.currentScreen()

	for _, action := range params.Actions {
		switch action.Type {
		case entity.ActionFinished:
			return &entity.ExecuteOutput{Status: entity.StatusEnd}, nil
		case entity.ActionCallUser:
			return &entity.ExecuteOutput{Status: entity.StatusCallUser}, nil
		}

		started := time.Now()
		actionLogger := logger.With(zap.String(logg.Action, string(action.Type)))
		actionLogger.Debug("Executing action", zap.Stringer("action", action))
		step.AddEvent("execute", attribute.String("action", string(action.Type)))

		execErr := l.backend.Execute(ctx, action, screen)
		l.recorder.ObserveAction(l.backend.Name(), action.Type, execErr == nil, time.Since(started))

		if execErr != nil {
			actionLogger.Warn("Action failed, running cleanup", zap.Error(execErr))
			l.backend.Cleanup(context.WithoutCancel(ctx))

			code := apperr.CodeActionFailed
			if errors.Is(execErr, context.Canceled) || errors.Is(execErr, context.DeadlineExceeded) {
				code = apperr.CodeCancelledByUser
			}

			return nil, apperr.Wrap(op, code,
				fmt.Errorf("execute action %s failed: %w", action.Type, execErr),
				map[string]any{
					apperr.MetaAction:  string(action.Type),
					apperr.MetaStage:   apperr.StageExecution,
					apperr.MetaBackend: l.backend.Name(),
				})
		}
	}

	return &entity.ExecuteOutput{Status: entity.StatusSuccess}, nil
}

func (l *Lifecycle) Screenshot(ctx context.Context) (out *entity.ScreenshotOutput, err error) {
	const op = "Screenshot"
	logger := l.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, l.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	l.opMu.Lock()
	defer l.opMu.Unlock()

	if err := l.initializeLocked(ctx); err != nil {
		return nil, err
	}

	l.setState(StateScreenshotting)
	defer l.restoreReady()

	started := time.Now()
	out, err = l.backend.Screenshot(ctx)
	l.recorder.ObserveScreenshot(l.backend.Name(), err == nil, time.Since(started))

	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeScreenshotFailed, err, map[string]any{
			apperr.MetaStage:   apperr.StageScreenshot,
			apperr.MetaBackend: l.backend.Name(),
		})
	}

	if out.Status == "" {
		out.Status = entity.StatusSuccess
	}

	if out.Viewport != nil && out.Viewport.Width > 0 && out.Viewport.Height > 0 {
		l.mu.Lock()
		l.screen = l.screen.WithViewport(*out.Viewport)
		l.mu.Unlock()

		step.AddEvent("viewport refreshed",
			attribute.Int("width", out.Viewport.Width),
			attribute.Int("height", out.Viewport.Height))
	}

	return out, nil
}

func (l *Lifecycle) Close(ctx context.Context) (err error) {
	const op = "Close"
	logger := l.logger.With(zap.String(logg.Operation, op))

	l.opMu.Lock()
	defer l.opMu.Unlock()

	prev := l.State()
	if prev == StateDisposed {
		return nil
	}

	l.setState(StateDisposed)

	if prev == StateUninitialized {
		return nil
	}

	logger.Info("Closing operator")

	if err := l.backend.Close(ctx); err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason:  "backend_close_failed",
			apperr.MetaBackend: l.backend.Name(),
		})
	}

	return nil
}

func (l *Lifecycle) currentScreen() entity.ScreenContext {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.screen
}

func (l *Lifecycle) restoreReady() {
	l.mu.Lock()
	if l.state != StateDisposed {
		l.state = StateReady
	}
	l.mu.Unlock()
}
