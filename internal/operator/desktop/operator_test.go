package desktop

import (
	"context"
	"encoding/base64"
	"errors"
	"gui-agent/internal/config"
	"gui-agent/internal/entity"
	"gui-agent/internal/operator"
	"gui-agent/pkg/apperr"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRunner struct {
	calls   []string
	outputs map[string]string
	failOn  string
}

func (r *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	line := strings.Join(append([]string{name}, args...), " ")
	r.calls = append(r.calls, line)

	if r.failOn != "" && strings.HasPrefix(line, r.failOn) {
		return nil, errors.New("exit status 1")
	}

	for prefix, out := range r.outputs {
		if strings.HasPrefix(line, prefix) {
			return []byte(out), nil
		}
	}

	return nil, nil
}

func newTestOperator() (*Operator, *fakeRunner) {
	runner := &fakeRunner{outputs: map[string]string{
		"xdotool getdisplaygeometry": "1920 1080\n",
		"import -window root":        "\x89PNG",
	}}

	cfg := &config.DesktopConfig{Display: ":1", Xdotool: "xdotool", ImportBin: "import"}
	x := NewX11(cfg, runner)

	op := newOperator(x, x, zap.NewNop())
	op.settle = 0

	return op, runner
}

var screen = entity.ScreenContext{ScreenWidth: 1920, ScreenHeight: 1080, ScaleX: 1, ScaleY: 1}

func TestInitialize_ReadsGeometry(t *testing.T) {
	op, _ := newTestOperator()

	got, err := op.Initialize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, screen, got)
}

func TestInitialize_BadGeometry(t *testing.T) {
	op, runner := newTestOperator()
	runner.outputs["xdotool getdisplaygeometry"] = "garbage"

	_, err := op.Initialize(context.Background())
	require.Error(t, err)
}

func TestScreenshot(t *testing.T) {
	op, runner := newTestOperator()

	out, err := op.Screenshot(context.Background())
	require.NoError(t, err)

	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("\x89PNG")), out.Base64)
	assert.Nil(t, out.Viewport)
	assert.Equal(t, []string{"import -window root -display :1 png:-"}, runner.calls)
}

func TestExecute_Pointer(t *testing.T) {
	point := entity.NormalizedCoordinates(0.5, 0.5)

	tests := []struct {
		action entity.ActionType
		want   []string
	}{
		{entity.ActionClick, []string{"xdotool mousemove --sync 960 540", "xdotool click --repeat 1 1"}},
		{entity.ActionDoubleClick, []string{"xdotool mousemove --sync 960 540", "xdotool click --repeat 2 1"}},
		{entity.ActionRightClick, []string{"xdotool mousemove --sync 960 540", "xdotool click --repeat 1 3"}},
		{entity.ActionMiddleClick, []string{"xdotool mousemove --sync 960 540", "xdotool click --repeat 1 2"}},
		{entity.ActionMouseMove, []string{"xdotool mousemove --sync 960 540"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.action), func(t *testing.T) {
			op, runner := newTestOperator()

			err := op.Execute(context.Background(), entity.Action{Type: tt.action, Inputs: entity.PointInputs{Point: point}}, screen)
			require.NoError(t, err)
			assert.Equal(t, tt.want, runner.calls)
		})
	}
}

func TestExecute_ButtonWithoutPoint(t *testing.T) {
	op, runner := newTestOperator()

	err := op.Execute(context.Background(), entity.Action{Type: entity.ActionMouseDown, Inputs: entity.ButtonInputs{Button: entity.ButtonRight}}, screen)
	require.NoError(t, err)

	assert.Equal(t, []string{"xdotool mousedown 3"}, runner.calls)
}

func TestExecute_Drag(t *testing.T) {
	op, runner := newTestOperator()

	err := op.Execute(context.Background(), entity.Action{
		Type: entity.ActionDrag,
		Inputs: entity.DragInputs{
			Start: entity.NormalizedCoordinates(0, 0),
			End:   entity.NormalizedCoordinates(0.5, 0.5),
		},
	}, screen)
	require.NoError(t, err)

	require.Len(t, runner.calls, 2+operator.DragSteps+1)
	assert.Equal(t, "xdotool mousedown 1", runner.calls[1])
	assert.Equal(t, "xdotool mousemove --sync 96 54", runner.calls[2])
	assert.Equal(t, "xdotool mousemove --sync 960 540", runner.calls[len(runner.calls)-2])
	assert.Equal(t, "xdotool mouseup 1", runner.calls[len(runner.calls)-1])
}

func TestExecute_Scroll(t *testing.T) {
	tests := []struct {
		direction entity.Direction
		want      string
	}{
		{entity.DirectionUp, "xdotool click --repeat 5 4"},
		{entity.DirectionDown, "xdotool click --repeat 5 5"},
		{entity.DirectionLeft, "xdotool click --repeat 5 6"},
		{entity.DirectionRight, "xdotool click --repeat 5 7"},
	}

	for _, tt := range tests {
		t.Run(string(tt.direction), func(t *testing.T) {
			op, runner := newTestOperator()
			p := entity.NormalizedCoordinates(0.25, 0.25)

			err := op.Execute(context.Background(), entity.Action{
				Type:   entity.ActionScroll,
				Inputs: entity.ScrollInputs{Point: &p, Direction: tt.direction},
			}, screen)
			require.NoError(t, err)

			assert.Equal(t, []string{"xdotool mousemove --sync 480 270", tt.want}, runner.calls)
		})
	}
}

func TestExecute_TypeAndKeys(t *testing.T) {
	op, runner := newTestOperator()

	for _, a := range []entity.Action{
		{Type: entity.ActionTypeText, Inputs: entity.TypeInputs{Content: `hello world\n`}},
		{Type: entity.ActionHotkey, Inputs: entity.KeyInputs{Key: "Ctrl+Shift+T"}},
		{Type: entity.ActionPress, Inputs: entity.KeyInputs{Key: "pagedown"}},
		{Type: entity.ActionRelease, Inputs: entity.KeyInputs{Key: "cmd a"}},
	} {
		require.NoError(t, op.Execute(context.Background(), a, screen))
	}

	assert.Equal(t, []string{
		"xdotool type --delay 30 -- hello world",
		"xdotool key Return",
		"xdotool key ctrl+shift+t",
		"xdotool key Next",
		"xdotool keyup a",
		"xdotool keyup super",
	}, runner.calls)
}

func TestLifecycle_FailureReleasesButton(t *testing.T) {
	op, runner := newTestOperator()
	runner.failOn = "xdotool mousemove --sync 960"
	lc := operator.NewLifecycle(op, zap.NewNop(), nil)

	_, err := lc.Execute(context.Background(), entity.ExecuteParams{Actions: []entity.Action{{
		Type: entity.ActionDrag,
		Inputs: entity.DragInputs{
			Start: entity.NormalizedCoordinates(0, 0),
			End:   entity.NormalizedCoordinates(0.5, 0.5),
		},
	}}})

	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeActionFailed))
	assert.Contains(t, err.Error(), "execute action drag failed")
	assert.Equal(t, "xdotool mouseup 1", runner.calls[len(runner.calls)-1])
}

func TestLifecycle_RejectsNavigation(t *testing.T) {
	op, runner := newTestOperator()
	lc := operator.NewLifecycle(op, zap.NewNop(), nil)

	_, err := lc.Execute(context.Background(), entity.ExecuteParams{Actions: []entity.Action{{
		Type:   entity.ActionNavigate,
		Inputs: entity.NavigateInputs{URL: "example.com"},
	}}})

	assert.True(t, apperr.HasCode(err, apperr.CodeUnsupportedAction))
	assert.Empty(t, runner.calls)
}
