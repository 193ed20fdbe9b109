package android

import (
	"context"
	"encoding/base64"
	"gui-agent/internal/config"
	"gui-agent/internal/entity"
	"gui-agent/internal/operator"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRunner struct {
	calls   []string
	outputs map[string]string
}

func (r *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	line := strings.Join(append([]string{name}, args...), " ")
	r.calls = append(r.calls, line)

	for p, out := range r.outputs {
		if strings.HasPrefix(line, p) {
			return []byte(out), nil
		}
	}

	return nil, nil
}

func newTestOperator() (*Operator, *fakeRunner) {
	runner := &fakeRunner{outputs: map[string]string{
		"adb -s emulator-5554 shell wm size":          "Physical size: 1080x2400\n",
		"adb -s emulator-5554 exec-out screencap -p":  "\x89PNG",
		"adb -s emulator-5554 shell pm list packages": "package:com.android.settings\npackage:com.android.settings.intelligence\n",
	}}

	op := newOperator(NewADB(&config.AndroidConfig{ADB: "adb", Serial: "emulator-5554"}, runner), zap.NewNop())
	op.pause = 0
	op.step = 0

	return op, runner
}

var screen = entity.ScreenContext{ScreenWidth: 1080, ScreenHeight: 2400, ScaleX: 1, ScaleY: 1}

const prefix = "adb -s emulator-5554 shell "

func TestInitialize(t *testing.T) {
	op, _ := newTestOperator()

	got, err := op.Initialize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, screen, got)
}

func TestScreenSize_PrefersOverride(t *testing.T) {
	runner := &fakeRunner{outputs: map[string]string{
		"adb shell wm size": "Physical size: 1440x3200\nOverride size: 1080x2400\n",
	}}
	adb := NewADB(&config.AndroidConfig{ADB: "adb"}, runner)

	w, h, err := adb.ScreenSize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1080, w)
	assert.Equal(t, 2400, h)
}

func TestScreenshot(t *testing.T) {
	op, _ := newTestOperator()

	out, err := op.Screenshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("\x89PNG")), out.Base64)
}

func TestExecute_Touch(t *testing.T) {
	point := entity.NormalizedCoordinates(0.5, 0.25)

	tests := []struct {
		action entity.ActionType
		want   []string
	}{
		{entity.ActionClick, []string{prefix + "input tap 540 600"}},
		{entity.ActionDoubleClick, []string{prefix + "input tap 540 600", prefix + "input tap 540 600"}},
		{entity.ActionLongPress, []string{prefix + "input swipe 540 600 540 600 1000"}},
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

func TestExecute_DragUsesMotionEvents(t *testing.T) {
	op, runner := newTestOperator()

	err := op.Execute(context.Background(), entity.Action{
		Type: entity.ActionDrag,
		Inputs: entity.DragInputs{
			Start: entity.NormalizedCoordinates(0.1, 0.5),
			End:   entity.NormalizedCoordinates(0.9, 0.5),
		},
	}, screen)
	require.NoError(t, err)

	require.Len(t, runner.calls, operator.DragSteps+2)
	assert.Equal(t, prefix+"input motionevent DOWN 108 1200", runner.calls[0])
	assert.Equal(t, prefix+"input motionevent MOVE 972 1200", runner.calls[operator.DragSteps])
	assert.Equal(t, prefix+"input motionevent UP 972 1200", runner.calls[operator.DragSteps+1])
}

func TestExecute_ScrollSwipesAgainstDirection(t *testing.T) {
	tests := []struct {
		direction entity.Direction
		want      string
	}{
		{entity.DirectionDown, "input swipe 540 1200 540 240 500"},
		{entity.DirectionUp, "input swipe 540 1200 540 2160 500"},
		{entity.DirectionLeft, "input swipe 540 1200 972 1200 500"},
		{entity.DirectionRight, "input swipe 540 1200 108 1200 500"},
	}

	for _, tt := range tests {
		t.Run(string(tt.direction), func(t *testing.T) {
			op, runner := newTestOperator()

			err := op.Execute(context.Background(), entity.Action{
				Type:   entity.ActionScroll,
				Inputs: entity.ScrollInputs{Direction: tt.direction},
			}, screen)
			require.NoError(t, err)
			assert.Equal(t, []string{prefix + tt.want}, runner.calls)
		})
	}
}

func TestExecute_Text(t *testing.T) {
	op, runner := newTestOperator()

	require.NoError(t, op.Execute(context.Background(), entity.Action{
		Type:   entity.ActionTypeText,
		Inputs: entity.TypeInputs{Content: "it's 5 & up\n"},
	}, screen))
	require.NoError(t, op.Execute(context.Background(), entity.Action{
		Type:   entity.ActionTypeText,
		Inputs: entity.TypeInputs{Content: "你好"},
	}, screen))

	assert.Equal(t, []string{
		prefix + `input text it\'s%s5%s\&%sup`,
		prefix + "input keyevent KEYCODE_ENTER",
		prefix + "am broadcast -a ADB_INPUT_B64 --es msg " + base64.StdEncoding.EncodeToString([]byte("你好")),
	}, runner.calls)
}

func TestExecute_Keys(t *testing.T) {
	op, runner := newTestOperator()

	for _, a := range []entity.Action{
		{Type: entity.ActionPressHome, Inputs: entity.NoInputs{}},
		{Type: entity.ActionPressBack, Inputs: entity.NoInputs{}},
		{Type: entity.ActionPress, Inputs: entity.KeyInputs{Key: "volume_up"}},
		{Type: entity.ActionHotkey, Inputs: entity.KeyInputs{Key: "ctrl a"}},
		{Type: entity.ActionPress, Inputs: entity.KeyInputs{Key: "camera"}},
	} {
		require.NoError(t, op.Execute(context.Background(), a, screen))
	}

	assert.Equal(t, []string{
		prefix + "input keyevent KEYCODE_HOME",
		prefix + "input keyevent KEYCODE_BACK",
		prefix + "input keyevent KEYCODE_VOLUME_UP",
		prefix + "input keycombination KEYCODE_CTRL_LEFT KEYCODE_A",
		prefix + "input keyevent KEYCODE_CAMERA",
	}, runner.calls)
}

func TestExecute_OpenApp(t *testing.T) {
	op, runner := newTestOperator()

	require.NoError(t, op.Execute(context.Background(), entity.Action{
		Type:   entity.ActionOpenApp,
		Inputs: entity.AppInputs{AppName: "Settings"},
	}, screen))
	require.NoError(t, op.Execute(context.Background(), entity.Action{
		Type:   entity.ActionOpenApp,
		Inputs: entity.AppInputs{AppName: "com.android.chrome"},
	}, screen))

	assert.Equal(t, []string{
		prefix + "pm list packages settings",
		prefix + "monkey -p com.android.settings -c android.intent.category.LAUNCHER 1",
		prefix + "monkey -p com.android.chrome -c android.intent.category.LAUNCHER 1",
	}, runner.calls)
}

func TestOpenApp_NoMatch(t *testing.T) {
	op, runner := newTestOperator()
	runner.outputs["adb -s emulator-5554 shell pm list packages"] = ""

	err := op.Execute(context.Background(), entity.Action{
		Type:   entity.ActionOpenApp,
		Inputs: entity.AppInputs{AppName: "nothing"},
	}, screen)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no installed package matches "nothing"`)
}
