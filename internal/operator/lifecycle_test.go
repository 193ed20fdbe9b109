package operator

import (
	"context"
	"errors"
	"gui-agent/internal/entity"
	"gui-agent/pkg/apperr"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeBackend struct {
	mu        sync.Mutex
	supported []entity.ActionType
	screen    entity.ScreenContext
	initErr   error
	failOn    entity.ActionType
	viewport  *entity.Size

	inits    int
	executed []entity.ActionType
	points   []entity.Point
	cleanups int
	closed   int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		supported: []entity.ActionType{
			entity.ActionClick, entity.ActionTypeText, entity.ActionScroll,
			entity.ActionDrag, entity.ActionWait, entity.ActionFinished, entity.ActionCallUser,
		},
		screen: entity.ScreenContext{ScreenWidth: 1280, ScreenHeight: 1024, ScaleX: 1, ScaleY: 1},
	}
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) SupportedActions() []entity.ActionType { return f.supported }

func (f *fakeBackend) Initialize(context.Context) (entity.ScreenContext, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.inits++
	if f.initErr != nil {
		return entity.ScreenContext{}, f.initErr
	}

	return f.screen, nil
}

func (f *fakeBackend) Screenshot(context.Context) (*entity.ScreenshotOutput, error) {
	return &entity.ScreenshotOutput{Base64: "aGk=", URL: "https://example.com", Viewport: f.viewport}, nil
}

func (f *fakeBackend) Execute(ctx context.Context, action entity.Action, screen entity.ScreenContext) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	f.executed = append(f.executed, action.Type)

	if in, ok := action.Inputs.(entity.PointInputs); ok {
		p, _, err := ResolvePoint(&in.Point, screen)
		if err != nil {
			return err
		}

		f.points = append(f.points, p)
	}

	if action.Type == f.failOn {
		return errors.New("element detached")
	}

	return nil
}

func (f *fakeBackend) Cleanup(context.Context) {
	f.mu.Lock()
	f.cleanups++
	f.mu.Unlock()
}

func (f *fakeBackend) Close(context.Context) error {
	f.closed++

	return nil
}

func click(x, y float64) entity.Action {
	return entity.Action{Type: entity.ActionClick, Inputs: entity.PointInputs{Point: entity.NormalizedCoordinates(x, y)}}
}

func TestLifecycle_LazyIdempotentInit(t *testing.T) {
	backend := newFakeBackend()
	op := NewLifecycle(backend, zap.NewNop(), nil)

	_, err := op.ScreenContext()
	assert.True(t, apperr.HasCode(err, apperr.CodeNotInitialized))

	_, err = op.Execute(context.Background(), entity.ExecuteParams{Actions: []entity.Action{click(0.1, 0.1)}})
	require.NoError(t, err)
	require.NoError(t, op.Initialize(context.Background()))
	_, err = op.Screenshot(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, backend.inits)
	assert.Equal(t, StateReady, op.State())

	screen, err := op.ScreenContext()
	require.NoError(t, err)
	assert.Equal(t, 1280, screen.ScreenWidth)
}

func TestLifecycle_FailedInitIsRetried(t *testing.T) {
	backend := newFakeBackend()
	backend.initErr = errors.New("sandbox unreachable")
	op := NewLifecycle(backend, zap.NewNop(), nil)

	err := op.Initialize(context.Background())
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeInitializationFailed))
	assert.Equal(t, StateUninitialized, op.State())

	backend.initErr = nil
	require.NoError(t, op.Initialize(context.Background()))
	assert.Equal(t, 2, backend.inits)
}

func TestLifecycle_NormalizedCenterMapsToPixels(t *testing.T) {
	backend := newFakeBackend()
	op := NewLifecycle(backend, zap.NewNop(), nil)

	out, err := op.Execute(context.Background(), entity.ExecuteParams{Actions: []entity.Action{click(0.5, 0.5)}})
	require.NoError(t, err)
	assert.Equal(t, entity.StatusSuccess, out.Status)

	require.Len(t, backend.points, 1)
	assert.Equal(t, entity.Point{X: 640, Y: 512}, backend.points[0])
}

func TestLifecycle_UnsupportedActionRejectsWholeBatch(t *testing.T) {
	backend := newFakeBackend()
	op := NewLifecycle(backend, zap.NewNop(), nil)

	_, err := op.Execute(context.Background(), entity.ExecuteParams{Actions: []entity.Action{
		click(0.1, 0.1),
		{Type: entity.ActionNavigateBack, Inputs: entity.NoInputs{}},
	}})

	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeUnsupportedAction))
	assert.Empty(t, backend.executed)
	assert.Zero(t, backend.inits)
}

func TestLifecycle_InvalidCoordinatesBeforeBackend(t *testing.T) {
	backend := newFakeBackend()
	op := NewLifecycle(backend, zap.NewNop(), nil)

	_, err := op.Execute(context.Background(), entity.ExecuteParams{Actions: []entity.Action{
		click(0.2, 0.2),
		{Type: entity.ActionClick, Inputs: entity.PointInputs{}},
	}})

	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeInvalidCoordinates))
	assert.Empty(t, backend.executed)
}

func TestLifecycle_FailureAbortsRemainingAndCleansUp(t *testing.T) {
	backend := newFakeBackend()
	backend.failOn = entity.ActionTypeText
	op := NewLifecycle(backend, zap.NewNop(), nil)

	_, err := op.Execute(context.Background(), entity.ExecuteParams{Actions: []entity.Action{
		click(0.1, 0.1),
		{Type: entity.ActionTypeText, Inputs: entity.TypeInputs{Content: "hello"}},
		click(0.3, 0.3),
	}})

	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeActionFailed))
	assert.Contains(t, err.Error(), "execute action type failed")
	assert.Contains(t, err.Error(), "element detached")
	assert.Equal(t, []entity.ActionType{entity.ActionClick, entity.ActionTypeText}, backend.executed)
	assert.Equal(t, 1, backend.cleanups)
	assert.Equal(t, StateReady, op.State())
}

func TestLifecycle_TerminalActionsSkipBackend(t *testing.T) {
	tests := []struct {
		name   string
		action entity.Action
		want   entity.OutputStatus
	}{
		{name: "finished", action: entity.Action{Type: entity.ActionFinished, Inputs: entity.FinishedInputs{Content: "ok"}}, want: entity.StatusEnd},
		{name: "call user", action: entity.Action{Type: entity.ActionCallUser, Inputs: entity.NoInputs{}}, want: entity.StatusCallUser},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := newFakeBackend()
			op := NewLifecycle(backend, zap.NewNop(), nil)

			out, err := op.Execute(context.Background(), entity.ExecuteParams{Actions: []entity.Action{tt.action}})
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.Status)
			assert.Empty(t, backend.executed)
		})
	}
}

func TestLifecycle_CancellationReturnsToReady(t *testing.T) {
	backend := newFakeBackend()
	op := NewLifecycle(backend, zap.NewNop(), nil)
	require.NoError(t, op.Initialize(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := op.Execute(ctx, entity.ExecuteParams{Actions: []entity.Action{click(0.1, 0.1)}})
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeCancelledByUser))
	assert.Equal(t, StateReady, op.State())
	assert.Equal(t, 1, backend.cleanups)
}

func TestLifecycle_ScreenshotRefreshesViewport(t *testing.T) {
	backend := newFakeBackend()
	backend.viewport = &entity.Size{Width: 800, Height: 600}
	op := NewLifecycle(backend, zap.NewNop(), nil)

	out, err := op.Screenshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, entity.StatusSuccess, out.Status)
	assert.Equal(t, "https://example.com", out.URL)

	screen, err := op.ScreenContext()
	require.NoError(t, err)
	assert.Equal(t, 800, screen.ScreenWidth)
	assert.Equal(t, 600, screen.ScreenHeight)
	assert.Equal(t, 1.0, screen.ScaleX)
}

func TestLifecycle_Close(t *testing.T) {
	backend := newFakeBackend()
	op := NewLifecycle(backend, zap.NewNop(), nil)
	require.NoError(t, op.Initialize(context.Background()))

	require.NoError(t, op.Close(context.Background()))
	require.NoError(t, op.Close(context.Background()))
	assert.Equal(t, 1, backend.closed)
	assert.Equal(t, StateDisposed, op.State())

	_, err := op.Execute(context.Background(), entity.ExecuteParams{Actions: []entity.Action{click(0.1, 0.1)}})
	assert.True(t, apperr.HasCode(err, apperr.CodeDisposed))
}
