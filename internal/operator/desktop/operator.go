package desktop

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
	operatorName = "DesktopOperator"
	defaultWait  = 5 * time.Second
	wheelClicks  = 5
	typeDelayMs  = 30
	clickSettle  = 100 * time.Millisecond
)

// Button is an X pointer button number.
type Button int

const (
	ButtonLeft       Button = 1
	ButtonMiddle     Button = 2
	ButtonRight      Button = 3
	ButtonWheelUp    Button = 4
	ButtonWheelDown  Button = 5
	ButtonWheelLeft  Button = 6
	ButtonWheelRight Button = 7
)

var supportedActions = []entity.ActionType{
	entity.ActionClick,
	entity.ActionDoubleClick,
	entity.ActionRightClick,
	entity.ActionMiddleClick,
	entity.ActionMouseMove,
	entity.ActionMouseDown,
	entity.ActionMouseUp,
	entity.ActionDrag,
	entity.ActionScroll,
	entity.ActionTypeText,
	entity.ActionHotkey,
	entity.ActionPress,
	entity.ActionRelease,
	entity.ActionWait,
	entity.ActionCallUser,
	entity.ActionFinished,
}

// Inputter synthesizes pointer and keyboard input in screen pixels.
type Inputter interface {
	MoveTo(ctx context.Context, x, y float64) error
	Click(ctx context.Context, button Button, count int) error
	MouseDown(ctx context.Context, button Button) error
	MouseUp(ctx context.Context, button Button) error
	Wheel(ctx context.Context, button Button, clicks int) error
	Type(ctx context.Context, text string, delayMs int) error
	KeyTap(ctx context.Context, keys []string) error
	KeyDown(ctx context.Context, key string) error
	KeyUp(ctx context.Context, key string) error
	ScreenSize(ctx context.Context) (int, int, error)
}

type Screenshotter interface {
	Capture(ctx context.Context) ([]byte, error)
}

type Operator struct {
	input  Inputter
	shot   Screenshotter
	logger *zap.Logger
	settle time.Duration
}

func New(cfg *config.DesktopConfig, logger *zap.Logger) *Operator {
	var env []string
	if cfg.Display != "" {
		env = append(env, "DISPLAY="+cfg.Display)
	}

	x := NewX11(cfg, operator.NewExecRunner(logger, env...))

	return newOperator(x, x, logger)
}

func newOperator(input Inputter, shot Screenshotter, logger *zap.Logger) *Operator {
	return &Operator{
		input:  input,
		shot:   shot,
		logger: logger.With(zap.String(logg.Layer, operatorName)),
		settle: clickSettle,
	}
}

func (o *Operator) Name() string {
	return "desktop"
}

func (o *Operator) SupportedActions() []entity.ActionType {
	return slices.Clone(supportedActions)
}

func (o *Operator) Initialize(ctx context.Context) (entity.ScreenContext, error) {
	width, height, err := o.input.ScreenSize(ctx)
	if err != nil {
		return entity.ScreenContext{}, fmt.Errorf("read screen size: %w", err)
	}

	o.logger.Info("Desktop attached", zap.Int("width", width), zap.Int("height", height))

	return entity.ScreenContext{ScreenWidth: width, ScreenHeight: height, ScaleX: 1, ScaleY: 1}, nil
}

func (o *Operator) Screenshot(ctx context.Context) (*entity.ScreenshotOutput, error) {
	data, err := o.shot.Capture(ctx)
	if err != nil {
		return nil, err
	}

	if len(data) == 0 {
		return nil, errors.New("empty screenshot")
	}

	return &entity.ScreenshotOutput{
		Status: entity.StatusSuccess,
		Base64: base64.StdEncoding.EncodeToString(data),
	}, nil
}

func (o *Operator) Execute(ctx context.Context, action entity.Action, screen entity.ScreenContext) error {
	if action.Type == entity.ActionWait {
		return operator.Sleep(ctx, operator.WaitDuration(action, defaultWait))
	}

	switch in := action.Inputs.(type) {
	case entity.PointInputs:
		return o.pointer(ctx, action.Type, in.Point, screen)
	case entity.ButtonInputs:
		return o.button(ctx, action.Type, in, screen)
	case entity.DragInputs:
		return o.drag(ctx, in, screen)
	case entity.ScrollInputs:
		return o.scroll(ctx, in, screen)
	case entity.TypeInputs:
		return o.typeText(ctx, in.Content)
	case entity.KeyInputs:
		return o.keys(ctx, action.Type, in.Key)
	}

	return fmt.Errorf("no handler for %s", action.Type)
}

func (o *Operator) pointer(ctx context.Context, t entity.ActionType, c entity.Coordinates, screen entity.ScreenContext) error {
	p, _, err := operator.ResolvePoint(&c, screen)
	if err != nil {
		return err
	}

	if err := o.input.MoveTo(ctx, p.X, p.Y); err != nil {
		return err
	}

	switch t {
	case entity.ActionMouseMove:
		return nil
	case entity.ActionDoubleClick:
		return o.input.Click(ctx, ButtonLeft, 2)
	case entity.ActionRightClick:
		return o.input.Click(ctx, ButtonRight, 1)
	case entity.ActionMiddleClick:
		return o.input.Click(ctx, ButtonMiddle, 1)
	}

	if err := o.input.Click(ctx, ButtonLeft, 1); err != nil {
		return err
	}

	return operator.Sleep(ctx, o.settle)
}

func toButton(b entity.MouseButton) Button {
	switch b {
	case entity.ButtonRight:
		return ButtonRight
	case entity.ButtonMiddle:
		return ButtonMiddle
	default:
		return ButtonLeft
	}
}

func (o *Operator) button(ctx context.Context, t entity.ActionType, in entity.ButtonInputs, screen entity.ScreenContext) error {
	p, ok, err := operator.ResolvePoint(in.Point, screen)
	if err != nil {
		return err
	}

	if ok {
		if err := o.input.MoveTo(ctx, p.X, p.Y); err != nil {
			return err
		}
	}

	if t == entity.ActionMouseUp {
		return o.input.MouseUp(ctx, toButton(in.Button))
	}

	return o.input.MouseDown(ctx, toButton(in.Button))
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

	if err := o.input.MoveTo(ctx, start.X, start.Y); err != nil {
		return err
	}

	if err := o.input.MouseDown(ctx, ButtonLeft); err != nil {
		return err
	}

	for _, p := range operator.Interpolate(start, end, operator.DragSteps) {
		if err := o.input.MoveTo(ctx, p.X, p.Y); err != nil {
			return err
		}
	}

	return o.input.MouseUp(ctx, ButtonLeft)
}

func (o *Operator) scroll(ctx context.Context, in entity.ScrollInputs, screen entity.ScreenContext) error {
	p, ok, err := operator.ResolvePoint(in.Point, screen)
	if err != nil {
		return err
	}

	if ok {
		if err := o.input.MoveTo(ctx, p.X, p.Y); err != nil {
			return err
		}
	}

	dx, dy := operator.ScrollDelta(in.Direction, screen.ScreenWidth, screen.ScreenHeight)

	var button Button

	switch {
	case dy > 0:
		button = ButtonWheelDown
	case dy < 0:
		button = ButtonWheelUp
	case dx > 0:
		button = ButtonWheelLeft
	case dx < 0:
		button = ButtonWheelRight
	default:
		return fmt.Errorf("unsupported scroll direction %q", in.Direction)
	}

	return o.input.Wheel(ctx, button, wheelClicks)
}

func (o *Operator) typeText(ctx context.Context, content string) error {
	text, submit := operator.StripSubmit(content)
	if text == "" && !submit {
		return errors.New("content is required when type")
	}

	if text != "" {
		if err := o.input.Type(ctx, text, typeDelayMs); err != nil {
			return err
		}
	}

	if submit {
		return o.input.KeyTap(ctx, []string{"Return"})
	}

	return nil
}

func (o *Operator) keys(ctx context.Context, t entity.ActionType, expr string) error {
	keys, err := operator.MapKeys(expr, keysymMap)
	if err != nil {
		return err
	}

	if t == entity.ActionRelease {
		for _, k := range slices.Backward(keys) {
			if err := o.input.KeyUp(ctx, k); err != nil {
				return err
			}
		}

		return nil
	}

	o.logger.Debug("Pressing keys", zap.String("keys", strings.Join(keys, "+")))

	return o.input.KeyTap(ctx, keys)
}

func (o *Operator) Cleanup(ctx context.Context) {
	if err := o.input.MouseUp(ctx, ButtonLeft); err != nil {
		o.logger.Debug("Mouse release during cleanup failed", zap.Error(err))
	}
}

func (o *Operator) Close(context.Context) error {
	return nil
}
