package android

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"gui-agent/internal/config"
	"gui-agent/internal/entity"
	"gui-agent/internal/operator"
	"gui-agent/pkg/logg"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	operatorName    = "AndroidOperator"
	defaultWait     = 5 * time.Second
	longPressMs     = 1000
	scrollMs        = 500
	doubleTapPause  = 80 * time.Millisecond
	swipeStepsDelay = 10 * time.Millisecond
)

var supportedActions = []entity.ActionType{
	entity.ActionClick,
	entity.ActionDoubleClick,
	entity.ActionLongPress,
	entity.ActionDrag,
	entity.ActionScroll,
	entity.ActionTypeText,
	entity.ActionHotkey,
	entity.ActionPress,
	entity.ActionPressHome,
	entity.ActionPressBack,
	entity.ActionOpenApp,
	entity.ActionWait,
	entity.ActionCallUser,
	entity.ActionFinished,
}

// Device is the adb surface the operator drives, implemented by *ADB.
type Device interface {
	ScreenSize(ctx context.Context) (int, int, error)
	Screencap(ctx context.Context) ([]byte, error)
	Tap(ctx context.Context, x, y float64) error
	Swipe(ctx context.Context, x1, y1, x2, y2 float64, durationMs int) error
	Motion(ctx context.Context, kind string, x, y float64) error
	Text(ctx context.Context, text string) error
	KeyEvent(ctx context.Context, codes ...string) error
	Launch(ctx context.Context, pkg string) error
	FindPackage(ctx context.Context, filter string) (string, error)
}

type Operator struct {
	device Device
	logger *zap.Logger
	pause  time.Duration
	step   time.Duration
}

func New(cfg *config.AndroidConfig, logger *zap.Logger) *Operator {
	return newOperator(NewADB(cfg, operator.NewExecRunner(logger)), logger)
}

func newOperator(d Device, logger *zap.Logger) *Operator {
	return &Operator{
		device: d,
		logger: logger.With(zap.String(logg.Layer, operatorName)),
		pause:  doubleTapPause,
		step:   swipeStepsDelay,
	}
}

func (o *Operator) Name() string {
	return "android"
}

func (o *Operator) SupportedActions() []entity.ActionType {
	return slices.Clone(supportedActions)
}

func (o *Operator) Initialize(ctx context.Context) (entity.ScreenContext, error) {
	width, height, err := o.device.ScreenSize(ctx)
	if err != nil {
		return entity.ScreenContext{}, fmt.Errorf("read device screen size: %w", err)
	}

	o.logger.Info("Device attached", zap.Int("width", width), zap.Int("height", height))

	return entity.ScreenContext{ScreenWidth: width, ScreenHeight: height, ScaleX: 1, ScaleY: 1}, nil
}

func (o *Operator) Screenshot(ctx context.Context) (*entity.ScreenshotOutput, error) {
	data, err := o.device.Screencap(ctx)
	if err != nil {
		return nil, err
	}

	if len(data) == 0 {
		return nil, errors.New("empty screencap")
	}

	return &entity.ScreenshotOutput{
		Status: entity.StatusSuccess,
		Base64: base64.StdEncoding.EncodeToString(data),
	}, nil
}

func (o *Operator) Execute(ctx context.Context, action entity.Action, screen entity.ScreenContext) error {
	switch action.Type {
	case entity.ActionWait:
		return operator.Sleep(ctx, operator.WaitDuration(action, defaultWait))
	case entity.ActionPressHome:
		return o.device.KeyEvent(ctx, "KEYCODE_HOME")
	case entity.ActionPressBack:
		return o.device.KeyEvent(ctx, "KEYCODE_BACK")
	}

	switch in := action.Inputs.(type) {
	case entity.PointInputs:
		return o.touch(ctx, action.Type, in.Point, screen)
	case entity.DragInputs:
		return o.drag(ctx, in, screen)
	case entity.ScrollInputs:
		return o.scroll(ctx, in, screen)
	case entity.TypeInputs:
		return o.typeText(ctx, in.Content)
	case entity.KeyInputs:
		return o.keys(ctx, in.Key)
	case entity.AppInputs:
		return o.openApp(ctx, in.AppName)
	}

	return fmt.Errorf("no handler for %s", action.Type)
}

func (o *Operator) touch(ctx context.Context, t entity.ActionType, c entity.Coordinates, screen entity.ScreenContext) error {
	p, _, err := operator.ResolvePoint(&c, screen)
	if err != nil {
		return err
	}

	switch t {
	case entity.ActionLongPress:
		return o.device.Swipe(ctx, p.X, p.Y, p.X, p.Y, longPressMs)
	case entity.ActionDoubleClick:
		if err := o.device.Tap(ctx, p.X, p.Y); err != nil {
			return err
		}

		if err := operator.Sleep(ctx, o.pause); err != nil {
			return err
		}

		return o.device.Tap(ctx, p.X, p.Y)
	default:
		return o.device.Tap(ctx, p.X, p.Y)
	}
}

func (o *Operator) drag(ctx context.Context, in entity.DragInputs, screen entity.ScreenContext) error {
	start, _, err := operator.ResolvePoint(&in.Start, screen)
	if err != nil {
		return err
	}

	end, _, err := operator.ResolvePoint(&in.End, screen)
	if err != nil {
		return err
	}

	if err := o.device.Motion(ctx, "DOWN", start.X, start.Y); err != nil {
		return err
	}

	for _, p := range operator.Interpolate(start, end, operator.DragSteps) {
		if err := operator.Sleep(ctx, o.step); err != nil {
			return err
		}

		if err := o.device.Motion(ctx, "MOVE", p.X, p.Y); err != nil {
			return err
		}
	}

	return o.device.Motion(ctx, "UP", end.X, end.Y)
}

// scroll swipes against the scroll direction: scrolling down drags the finger up,
// scrolling left drags it to the right.
func (o *Operator) scroll(ctx context.Context, in entity.ScrollInputs, screen entity.ScreenContext) error {
	start, ok, err := operator.ResolvePoint(in.Point, screen)
	if err != nil {
		return err
	}

	if !ok {
		start = entity.Point{X: float64(screen.ScreenWidth) / 2, Y: float64(screen.ScreenHeight) / 2}
	}

	dx, dy := operator.ScrollDelta(in.Direction, screen.ScreenWidth, screen.ScreenHeight)
	if dx == 0 && dy == 0 {
		return fmt.Errorf("unsupported scroll direction %q", in.Direction)
	}

	endX := clamp(start.X+dx/2, float64(screen.ScreenWidth-1))
	endY := clamp(start.Y-dy/2, float64(screen.ScreenHeight-1))

	return o.device.Swipe(ctx, start.X, start.Y, endX, endY, scrollMs)
}

func clamp(v, limit float64) float64 {
	return max(0, min(v, limit))
}

func (o *Operator) typeText(ctx context.Context, content string) error {
	text, submit := operator.StripSubmit(content)
	if text == "" && !submit {
		return errors.New("content is required when type")
	}

	if text != "" {
		if err := o.device.Text(ctx, text); err != nil {
			return err
		}
	}

	if submit {
		return o.device.KeyEvent(ctx, "KEYCODE_ENTER")
	}

	return nil
}

func (o *Operator) keys(ctx context.Context, expr string) error {
	keys := operator.SplitKeys(expr)
	if len(keys) == 0 {
		return operator.ErrEmptyKey
	}

	codes := keycodes(keys)
	o.logger.Debug("Sending key events", zap.String("keys", strings.Join(codes, " ")))

	return o.device.KeyEvent(ctx, codes...)
}

// openApp launches by package name; a plain app name is resolved against the
// installed packages first.
func (o *Operator) openApp(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("app_name is required when open_app")
	}

	pkg := name
	if !strings.Contains(name, ".") {
		found, err := o.device.FindPackage(ctx, strings.ToLower(strings.ReplaceAll(name, " ", "")))
		if err != nil {
			return err
		}

		pkg = found
	}

	o.logger.Info("Launching app", zap.String("package", pkg))

	return o.device.Launch(ctx, pkg)
}

func (o *Operator) Cleanup(context.Context) {}

func (o *Operator) Close(context.Context) error {
	return nil
}
