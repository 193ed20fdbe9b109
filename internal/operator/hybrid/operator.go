package hybrid

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"gui-agent/internal/config"
	"gui-agent/internal/entity"
	"gui-agent/internal/operator"
	"gui-agent/pkg/logg"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	operatorName  = "HybridOperator"
	defaultWidth  = 1280
	defaultHeight = 1024
	defaultWait   = 3 * time.Second
	scrollClicks  = 10
	submitWait    = 5 * time.Second
)

var (
	hybridActions = []entity.ActionType{
		entity.ActionNavigate,
		entity.ActionNavigateBack,
		entity.ActionWait,
		entity.ActionMouseMove,
		entity.ActionClick,
		entity.ActionDoubleClick,
		entity.ActionRightClick,
		entity.ActionMiddleClick,
		entity.ActionDrag,
		entity.ActionTypeText,
		entity.ActionHotkey,
		entity.ActionPress,
		entity.ActionScroll,
		entity.ActionCallUser,
		entity.ActionFinished,
	}

	gameActions = []entity.ActionType{
		entity.ActionCallUser,
		entity.ActionFinished,
		entity.ActionWait,
		entity.ActionMouseDown,
		entity.ActionMouseUp,
		entity.ActionMouseMove,
		entity.ActionClick,
		entity.ActionDoubleClick,
		entity.ActionRightClick,
		entity.ActionMiddleClick,
		entity.ActionDrag,
		entity.ActionTypeText,
		entity.ActionHotkey,
		entity.ActionPress,
		entity.ActionRelease,
		entity.ActionScroll,
	}
)

var errNoNavigator = errors.New("sandbox browser is not attached")

// device is the sandbox input surface, implemented by *Computer.
type device interface {
	MoveTo(ctx context.Context, x, y float64) error
	Click(ctx context.Context, x, y float64, button string) error
	RightClick(ctx context.Context, x, y float64) error
	DoubleClick(ctx context.Context, x, y float64) error
	MouseDown(ctx context.Context, button string) error
	MouseUp(ctx context.Context, button string) error
	DragTo(ctx context.Context, x, y float64) error
	Scroll(ctx context.Context, dx, dy int) error
	Type(ctx context.Context, text string) error
	Press(ctx context.Context, key string) error
	KeyDown(ctx context.Context, key string) error
	KeyUp(ctx context.Context, key string) error
	Hotkey(ctx context.Context, keys []string) error
	Screenshot(ctx context.Context) ([]byte, error)
	Info(ctx context.Context) (BrowserInfo, error)
}

type dialFunc func(ctx context.Context, cdpURL string) (Navigator, error)

// Operator composes the sandbox input device with a CDP navigator. The game variant
// drops navigation actions and opens its target link once at start.
type Operator struct {
	name      string
	supported []entity.ActionType
	device    device
	dial      dialFunc
	nav       Navigator
	targetURL string
	logger    *zap.Logger

	width  int
	height int
}

func NewHybrid(cfg *config.SandboxConfig, logger *zap.Logger) *Operator {
	return newOperator("hybrid", hybridActions, NewComputer(cfg, logger), defaultDialer(cfg, logger), "", logger)
}

func NewGame(cfg *config.SandboxConfig, link string, logger *zap.Logger) *Operator {
	return newOperator("game", gameActions, NewComputer(cfg, logger), defaultDialer(cfg, logger), link, logger)
}

func defaultDialer(cfg *config.SandboxConfig, logger *zap.Logger) dialFunc {
	return func(ctx context.Context, cdpURL string) (Navigator, error) {
		return dialNavigator(ctx, cdpURL, [2]int{defaultWidth, defaultHeight}, cfg.Timeout, logger)
	}
}

func newOperator(name string, supported []entity.ActionType, d device, dial dialFunc, targetURL string, logger *zap.Logger) *Operator {
	return &Operator{
		name:      name,
		supported: supported,
		device:    d,
		dial:      dial,
		targetURL: targetURL,
		logger:    logger.With(zap.String(logg.Layer, operatorName), zap.String(logg.Mode, name)),
		width:     defaultWidth,
		height:    defaultHeight,
	}
}

func (o *Operator) Name() string {
	return o.name
}

func (o *Operator) SupportedActions() []entity.ActionType {
	return slices.Clone(o.supported)
}

func (o *Operator) screen() entity.ScreenContext {
	return entity.ScreenContext{ScreenWidth: o.width, ScreenHeight: o.height, ScaleX: 1, ScaleY: 1}
}

func (o *Operator) Initialize(ctx context.Context) (entity.ScreenContext, error) {
	data, err := o.device.Screenshot(ctx)
	if err != nil {
		return entity.ScreenContext{}, fmt.Errorf("ping sandbox: %w", err)
	}

	o.measure(data)

	info, err := o.device.Info(ctx)
	if err != nil {
		return entity.ScreenContext{}, fmt.Errorf("read sandbox browser info: %w", err)
	}

	nav, err := o.dial(ctx, info.CDPURL)
	if err != nil {
		return entity.ScreenContext{}, fmt.Errorf("attach sandbox browser: %w", err)
	}
	o.nav = nav

	o.logger.Info("Sandbox browser attached")

	if o.name == "game" {
		if o.targetURL == "" {
			o.logger.Warn("Game operator has no target link")
		} else {
			url := operator.EnsureScheme(o.targetURL)
			if err := nav.Navigate(ctx, url); err != nil {
				return entity.ScreenContext{}, fmt.Errorf("open game %s: %w", url, err)
			}

			o.logger.Info("Game opened", zap.String(logg.URL, url))
		}
	}

	return o.screen(), nil
}

// measure refreshes the screen size from an encoded image, keeping the previous size
// when the header cannot be read.
func (o *Operator) measure(data []byte) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		o.logger.Debug("Screenshot dimensions unreadable", zap.Error(err))

		return
	}

	if cfg.Width > 0 && cfg.Height > 0 {
		o.width, o.height = cfg.Width, cfg.Height
	}
}

func (o *Operator) Screenshot(ctx context.Context) (*entity.ScreenshotOutput, error) {
	data, err := o.device.Screenshot(ctx)
	if err != nil {
		return nil, err
	}

	o.measure(data)

	out := &entity.ScreenshotOutput{
		Status:   entity.StatusSuccess,
		Base64:   base64.StdEncoding.EncodeToString(data),
		Viewport: &entity.Size{Width: o.width, Height: o.height},
	}

	if o.nav != nil {
		url, err := o.nav.URL(ctx)
		if err != nil {
			o.logger.Warn("Failed to get page url", zap.Error(err))
		}

		out.URL = url
	}

	return out, nil
}

func (o *Operator) Execute(ctx context.Context, action entity.Action, screen entity.ScreenContext) error {
	switch action.Type {
	case entity.ActionNavigate:
		if o.nav == nil {
			return errNoNavigator
		}

		in, _ := action.Inputs.(entity.NavigateInputs)

		return o.nav.Navigate(ctx, operator.EnsureScheme(in.URL))
	case entity.ActionNavigateBack:
		if o.nav == nil {
			return errNoNavigator
		}

		return o.nav.Back(ctx)
	case entity.ActionWait:
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

	switch t {
	case entity.ActionMouseMove:
		return o.device.MoveTo(ctx, p.X, p.Y)
	case entity.ActionDoubleClick:
		return o.device.DoubleClick(ctx, p.X, p.Y)
	case entity.ActionRightClick:
		return o.device.RightClick(ctx, p.X, p.Y)
	case entity.ActionMiddleClick:
		return o.device.Click(ctx, p.X, p.Y, string(entity.ButtonMiddle))
	default:
		return o.device.Click(ctx, p.X, p.Y, string(entity.ButtonLeft))
	}
}

func (o *Operator) button(ctx context.Context, t entity.ActionType, in entity.ButtonInputs, screen entity.ScreenContext) error {
	p, ok, err := operator.ResolvePoint(in.Point, screen)
	if err != nil {
		return err
	}

	if ok {
		if err := o.device.MoveTo(ctx, p.X, p.Y); err != nil {
			return err
		}
	}

	button := string(in.Button)
	if button == "" {
		button = string(entity.ButtonLeft)
	}

	if t == entity.ActionMouseUp {
		return o.device.MouseUp(ctx, button)
	}

	return o.device.MouseDown(ctx, button)
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

	if err := o.device.MoveTo(ctx, start.X, start.Y); err != nil {
		return err
	}

	if err := o.device.MouseDown(ctx, string(entity.ButtonLeft)); err != nil {
		return err
	}

	if err := o.device.DragTo(ctx, end.X, end.Y); err != nil {
		return err
	}

	return o.device.MouseUp(ctx, string(entity.ButtonLeft))
}

func (o *Operator) scroll(ctx context.Context, in entity.ScrollInputs, screen entity.ScreenContext) error {
	p, ok, err := operator.ResolvePoint(in.Point, screen)
	if err != nil {
		return err
	}

	if ok {
		if err := o.device.MoveTo(ctx, p.X, p.Y); err != nil {
			return err
		}
	}

	dx, dy := wheelClicks(operator.ScrollDelta(in.Direction, screen.ScreenWidth, screen.ScreenHeight))
	if dx == 0 && dy == 0 {
		return fmt.Errorf("unsupported scroll direction %q", in.Direction)
	}

	return o.device.Scroll(ctx, dx, dy)
}

// wheelClicks converts a canonical scroll delta into sandbox wheel clicks, where a
// positive dy scrolls up.
func wheelClicks(dx, dy float64) (int, int) {
	var cx, cy int

	switch {
	case dy > 0:
		cy = -scrollClicks
	case dy < 0:
		cy = scrollClicks
	}

	switch {
	case dx > 0:
		cx = scrollClicks
	case dx < 0:
		cx = -scrollClicks
	}

	return cx, cy
}

func (o *Operator) typeText(ctx context.Context, content string) error {
	text, submit := operator.StripSubmit(strings.TrimRight(content, " \t"))
	if strings.TrimSpace(text) == "" && !submit {
		return errors.New("content is required when type")
	}

	if text != "" {
		if err := o.device.Type(ctx, text); err != nil {
			return err
		}
	}

	if !submit {
		return nil
	}

	var navigated <-chan struct{}
	if o.nav != nil {
		navigated = o.nav.NavigationSignal()
	}

	if err := o.device.Press(ctx, "enter"); err != nil {
		return err
	}

	if navigated != nil && !operator.WaitForSignal(ctx, navigated, submitWait) {
		o.logger.Debug("No navigation after submit")
	}

	return nil
}

func (o *Operator) keys(ctx context.Context, t entity.ActionType, expr string) error {
	keys, err := operator.MapKeys(expr, keyNameMap)
	if err != nil {
		return err
	}

	if t == entity.ActionRelease {
		for _, k := range slices.Backward(keys) {
			if err := o.device.KeyUp(ctx, k); err != nil {
				return err
			}
		}

		return nil
	}

	o.logger.Debug("Pressing keys", zap.String("keys", strings.Join(keys, "+")))

	if len(keys) > 1 {
		return o.device.Hotkey(ctx, keys)
	}

	return o.device.Press(ctx, keys[0])
}

// Cleanup releases the left button so an interrupted drag does not leave it held.
func (o *Operator) Cleanup(ctx context.Context) {
	if err := o.device.MouseUp(ctx, string(entity.ButtonLeft)); err != nil {
		o.logger.Debug("Mouse release during cleanup failed", zap.Error(err))
	}
}

func (o *Operator) Close(context.Context) error {
	if o.nav == nil {
		return nil
	}

	return o.nav.Close()
}
