package opmanager

import (
	"context"
	"errors"
	"gui-agent/internal/config"
	"gui-agent/internal/entity"
	"gui-agent/internal/ports"
	"gui-agent/pkg/apperr"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeOperator struct {
	initErr error
	release <-chan struct{}
	inits   *atomic.Int32
	closed  atomic.Bool
}

func (o *fakeOperator) Initialize(ctx context.Context) error {
	o.inits.Add(1)

	if o.release != nil {
		select {
		case <-o.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return o.initErr
}

func (o *fakeOperator) SupportedActions() []entity.ActionType { return nil }

func (o *fakeOperator) ScreenContext() (entity.ScreenContext, error) {
	return entity.ScreenContext{}, nil
}

func (o *fakeOperator) Screenshot(context.Context) (*entity.ScreenshotOutput, error) {
	return &entity.ScreenshotOutput{}, nil
}

func (o *fakeOperator) Execute(context.Context, entity.ExecuteParams) (*entity.ExecuteOutput, error) {
	return &entity.ExecuteOutput{Status: entity.StatusSuccess}, nil
}

func (o *fakeOperator) Close(context.Context) error {
	o.closed.Store(true)

	return nil
}

type fakeFactory struct {
	mu      sync.Mutex
	created []*fakeOperator
	inits   atomic.Int32
	initErr error
	release chan struct{}
}

func (f *fakeFactory) Create(entity.AgentMode) (ports.Operator, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	op := &fakeOperator{initErr: f.initErr, release: f.release, inits: &f.inits}
	f.created = append(f.created, op)

	return op, nil
}

func (f *fakeFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.created)
}

var gui = entity.AgentMode{ID: entity.ModeGUI, BrowserMode: entity.BrowserModeHybrid}

func TestGetInstance_ConcurrentCallersShareOneInitialization(t *testing.T) {
	factory := &fakeFactory{release: make(chan struct{})}
	m := New(gui, factory, zap.NewNop(), time.Second)

	const callers = 8

	var wg sync.WaitGroup
	results := make([]ports.Operator, callers)

	for i := range callers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			op, err := m.GetInstance(context.Background())
			assert.NoError(t, err)
			results[i] = op
		}()
	}

	// let the callers pile up on the in-flight initialization
	time.Sleep(20 * time.Millisecond)
	close(factory.release)
	wg.Wait()

	assert.Equal(t, int32(1), factory.inits.Load())
	assert.Equal(t, 1, factory.count())

	for _, op := range results {
		assert.Same(t, results[0], op)
	}

	again, err := m.GetInstance(context.Background())
	require.NoError(t, err)
	assert.Same(t, results[0], again)

	require.NoError(t, m.Close(context.Background()))
}

func TestGetInstance_FailureIsNotCached(t *testing.T) {
	factory := &fakeFactory{initErr: errors.New("sandbox unreachable")}
	m := New(gui, factory, zap.NewNop(), time.Second)

	_, err := m.GetInstance(context.Background())
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeInitializationFailed))
	assert.True(t, factory.created[0].closed.Load())

	factory.initErr = nil

	op, err := m.GetInstance(context.Background())
	require.NoError(t, err)
	require.NotNil(t, op)
	assert.Equal(t, 2, factory.count())
}

func TestGetInstance_CallerCancellation(t *testing.T) {
	factory := &fakeFactory{release: make(chan struct{})}
	m := New(gui, factory, zap.NewNop(), time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.GetInstance(ctx)
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeCancelledByUser))

	// the shared initialization keeps going for other callers
	close(factory.release)

	op, err := m.GetInstance(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, op)
	assert.Equal(t, 1, factory.count())
}

func TestGetInstance_InitTimeout(t *testing.T) {
	factory := &fakeFactory{release: make(chan struct{})}
	defer close(factory.release)

	m := New(gui, factory, zap.NewNop(), 20*time.Millisecond)

	_, err := m.GetInstance(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGetMode(t *testing.T) {
	mode := entity.AgentMode{ID: entity.ModeGame, Link: "https://play.example.com"}
	m := New(mode, &fakeFactory{}, zap.NewNop(), 0)

	assert.Equal(t, mode, m.GetMode())
}

func TestClose(t *testing.T) {
	factory := &fakeFactory{}
	m := New(gui, factory, zap.NewNop(), 0)

	require.NoError(t, m.Close(context.Background()))

	_, err := m.GetInstance(context.Background())
	require.ErrorIs(t, err, ErrClosed)

	m = New(gui, factory, zap.NewNop(), 0)
	_, err = m.GetInstance(context.Background())
	require.NoError(t, err)

	require.NoError(t, m.Close(context.Background()))
	assert.True(t, factory.created[0].closed.Load())
	require.NoError(t, m.Close(context.Background()))
}

func TestRegistry(t *testing.T) {
	factory := &fakeFactory{}
	r := NewRegistry(factory, zap.NewNop(), 0)

	_, ok := r.Get("s1")
	assert.False(t, ok)

	m1 := r.Restore(context.Background(), "s1", gui)
	assert.Same(t, m1, r.Restore(context.Background(), "s1", gui))

	_, err := m1.GetInstance(context.Background())
	require.NoError(t, err)

	game := entity.AgentMode{ID: entity.ModeGame, Link: "play.example.com"}
	m2 := r.Restore(context.Background(), "s1", game)
	assert.NotSame(t, m1, m2)
	assert.True(t, factory.created[0].closed.Load())

	got, ok := r.Get("s1")
	require.True(t, ok)
	assert.Equal(t, game, got.GetMode())

	m3 := r.Restore(context.Background(), "s2", gui)
	_, err = m3.GetInstance(context.Background())
	require.NoError(t, err)

	require.NoError(t, r.Remove(context.Background(), "s2"))
	assert.True(t, factory.created[1].closed.Load())

	require.NoError(t, r.Close(context.Background()))
	_, ok = r.Get("s1")
	assert.False(t, ok)
}

func TestBackendFactory(t *testing.T) {
	cfg := &config.Config{
		BrowserConfig: &config.BrowserConfig{},
		SandboxConfig: &config.SandboxConfig{URL: "http://localhost:8080"},
		DesktopConfig: &config.DesktopConfig{},
		AndroidConfig: &config.AndroidConfig{ADB: "adb"},
	}
	f := NewBackendFactory(cfg, zap.NewNop(), nil)

	tests := []struct {
		mode    entity.AgentMode
		actions []entity.ActionType
		wantErr bool
	}{
		{mode: gui, actions: []entity.ActionType{entity.ActionNavigate}},
		{mode: entity.AgentMode{ID: entity.ModeGame}, actions: []entity.ActionType{entity.ActionRelease}},
		{mode: entity.AgentMode{ID: entity.ModeGUI, BrowserMode: entity.BrowserModeLocal}, actions: []entity.ActionType{entity.ActionNavigateBack}},
		{mode: entity.AgentMode{ID: entity.ModeGUI, BrowserMode: entity.BrowserModeDesktop}, actions: []entity.ActionType{entity.ActionMouseDown}},
		{mode: entity.AgentMode{ID: entity.ModeGUI, BrowserMode: entity.BrowserModeAndroid}, actions: []entity.ActionType{entity.ActionOpenApp}},
		{mode: entity.AgentMode{ID: entity.ModeGUI, BrowserMode: entity.BrowserModeRemote}, wantErr: true},
		{mode: entity.AgentMode{ID: entity.ModeGUI, BrowserMode: "vr"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode.ID)+"/"+string(tt.mode.BrowserMode), func(t *testing.T) {
			op, err := f.Create(tt.mode)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperr.HasCode(err, apperr.CodeInvalidArgument))

				return
			}

			require.NoError(t, err)
			assert.Subset(t, op.SupportedActions(), tt.actions)
		})
	}
}
