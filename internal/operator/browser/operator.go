package browser

import (
	"context"
	"encoding/base64"
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
	operatorName   = "BrowserOperator"
	defaultWait    = 5 * time.Second
	navigationWait = 5 * time.Second
)

var searchEngines = map[string]string{
	"google": "https://www.google.com",
	"bing":   "https://www.bing.com",
	"baidu":  "https://www.baidu.com",
}

var supportedActions = []entity.ActionType{
	entity.ActionDrag,
	entity.ActionNavigate,
	entity.ActionNavigateBack,
	entity.ActionClick,
	entity.ActionDoubleClick,
	entity.ActionRightClick,
	entity.ActionTypeText,
	entity.ActionHotkey,
	entity.ActionPress,
	entity.ActionRelease,
	entity.ActionScroll,
	entity.ActionWait,
	entity.ActionFinished,
	entity.ActionCallUser,
}

// timing holds the settle delays around pointer actions.
type timing struct {
	beforeMove  time.Duration
	afterMove   time.Duration
	afterAction time.Duration
	dragStep    time.Duration
	highlight   time.Duration
}

var humanTiming = timing{
	beforeMove:  300 * time.Millisecond,
	afterMove:   100 * time.Millisecond,
	afterAction: 800 * time.Millisecond,
	dragStep:    30 * time.Millisecond,
	highlight:   300 * time.Millisecond,
}

// Operator drives a chromium page through playwright. It is used both for a locally
// launched browser and for one attached over CDP.
type Operator struct {
	config  *config.BrowserConfig
	session session
	logger  *zap.Logger
	timing  timing
	name    string
}

func New(cfg *config.BrowserConfig, logger *zap.Logger) *Operator {
	return newOperator(cfg, newPlaywrightSession(cfg, logger), logger)
}

func newOperator(cfg *config.BrowserConfig, s session, logger *zap.Logger) *Operator {
	name := "local_browser"
	if cfg.WSEndpoint != "" {
		name = "remote_browser"
	}

	return &Operator{
		config:  cfg,
		session: s,
		logger:  logger.With(zap.String(logg.Layer, operatorName)),
		timing:  humanTiming,
		name:    name,
	}
}

func (o *Operator) Name() string {
	return o.name
}

func (o *Operator) SupportedActions() []entity.ActionType {
	return slices.Clone(supportedActions)
}

func (o *Operator) Initialize(ctx context.Context) (entity.ScreenContext, error) {
	if err := o.session.Launch(ctx); err != nil {
		return entity.ScreenContext{}, err
	}

	page, err := o.session.ActivePage(ctx)
	if err != nil {
		return entity.ScreenContext{}, err
	}

	if home, ok := searchEngines[strings.ToLower(o.config.SearchEngine)]; ok && isBlank(page.URL()) {
		o.logger.Info("Opening start page", zap.String(logg.URL, home))

		if err := page.Goto(home); err != nil {
			o.logger.Warn("Start page failed to open", zap.Error(err))
		}
	}

	size := page.Viewport()
	if size.Width == 0 || size.Height == 0 {
		size = entity.Size{Width: o.config.ViewportWidth, Height: o.config.ViewportHeight}
	}

	// Playwright input is expressed in CSS pixels, so the device pixel ratio stays out of the mapping.
	return entity.ScreenContext{ScreenWidth: size.Width, ScreenHeight: size.Height, ScaleX: 1, ScaleY: 1}, nil
}

func isBlank(url string) bool {
	return url == "" || url == "about:blank"
}

func (o *Operator) Screenshot(ctx context.Context) (*entity.ScreenshotOutput, error) {
	page, err := o.session.ActivePage(ctx)
	if err != nil {
		return nil, err
	}

	if o.config.ShowWaterFlow {
		o.evaluate(page, waterFlowScript(true), nil)
		defer o.evaluate(page, waterFlowScript(false), nil)
	}

	if o.config.HighlightClickable {
		o.evaluate(page, highlightClickableScript(), nil)
		defer o.evaluate(page, removeHighlightsScript(), nil)

		if err := operator.Sleep(ctx, o.timing.highlight); err != nil {
			return nil, err
		}
	}

	o.evaluate(page, hideOverlaysScript(), nil)
	defer o.evaluate(page, restoreOverlaysScript(), nil)

	started := time.Now()

	data, err := page.Screenshot()
	if err != nil {
		return nil, fmt.Errorf("capture page: %w", err)
	}

	o.logger.Debug("Screenshot taken", zap.Duration("elapsed", time.Since(started)))

	size := page.Viewport()

	out := &entity.ScreenshotOutput{
		Status: entity.StatusSuccess,
		Base64: base64.StdEncoding.EncodeToString(data),
		URL:    page.URL(),
	}

	if size.Width > 0 && size.Height > 0 {
		out.Viewport = &size
	}

	return out, nil
}

// evaluate runs a cosmetic script. Overlay failures never fail an action.
func (o *Operator) evaluate(page Page, script string, arg any) {
	if err := page.Evaluate(script, arg); err != nil {
		o.logger.Debug("Overlay script failed", zap.Error(err))
	}
}

func (o *Operator) Execute(ctx context.Context, action entity.Action, screen entity.ScreenContext) error {
	page, err := o.session.ActivePage(ctx)
	if err != nil {
		return err
	}

	if o.config.ShowActionInfo {
		o.evaluate(page, actionInfoScript(), action.String())
	}

	switch in := action.Inputs.(type) {
	case entity.PointInputs:
		return o.click(ctx, page, action.Type, in.Point, screen)
	case entity.DragInputs:
		return o.drag(ctx, page, in, screen)
	case entity.ScrollInputs:
		return o.scroll(ctx, page, in, screen)
	case entity.TypeInputs:
		return o.typeText(ctx, page, in.Content)
	case entity.KeyInputs:
		return o.keys(page, action.Type, in.Key)
	case entity.NavigateInputs:
		url := operator.EnsureScheme(in.URL)
		o.logger.Info("Navigating", zap.String(logg.URL, url))

		return page.Goto(url)
	case entity.WaitInputs:
		return operator.Sleep(ctx, operator.WaitDuration(action, defaultWait))
	}

	if action.Type == entity.ActionNavigateBack {
		return page.GoBack()
	}

	return fmt.Errorf("no handler for %s", action.Type)
}

func (o *Operator) click(ctx context.Context, page Page, t entity.ActionType, c entity.Coordinates, screen entity.ScreenContext) error {
	p, _, err := operator.ResolvePoint(&c, screen)
	if err != nil {
		return err
	}

	o.evaluate(page, clickIndicatorScript(), []float64{p.X, p.Y})

	if err := operator.Sleep(ctx, o.timing.beforeMove); err != nil {
		return err
	}

	if err := page.MouseMove(p.X, p.Y); err != nil {
		return err
	}

	if err := operator.Sleep(ctx, o.timing.afterMove); err != nil {
		return err
	}

	switch t {
	case entity.ActionDoubleClick:
		err = page.Click(p.X, p.Y, entity.ButtonLeft, 2)
	case entity.ActionRightClick:
		err = page.Click(p.X, p.Y, entity.ButtonRight, 1)
	default:
		err = page.Click(p.X, p.Y, entity.ButtonLeft, 1)
	}

	if err != nil {
		return err
	}

	return operator.Sleep(ctx, o.timing.afterAction)
}

func (o *Operator) drag(ctx context.Context, page Page, in entity.DragInputs, screen entity.ScreenContext) error {
	start, _, err := operator.ResolvePoint(&in.Start, screen)
	if err != nil {
		return err
	}

	end, _, err := operator.ResolvePoint(&in.End, screen)
	if err != nil {
		return err
	}

	o.evaluate(page, dragIndicatorScript(), []float64{start.X, start.Y, end.X, end.Y})

	if err := operator.Sleep(ctx, o.timing.beforeMove); err != nil {
		return err
	}

	if err := page.MouseMove(start.X, start.Y); err != nil {
		return err
	}

	if err := operator.Sleep(ctx, o.timing.afterMove); err != nil {
		return err
	}

	if err := page.MouseDown(entity.ButtonLeft); err != nil {
		return err
	}

	for _, p := range operator.Interpolate(start, end, operator.DragSteps) {
		if err := page.MouseMove(p.X, p.Y); err != nil {
			return err
		}

		if err := operator.Sleep(ctx, o.timing.dragStep); err != nil {
			return err
		}
	}

	if err := operator.Sleep(ctx, o.timing.afterMove); err != nil {
		return err
	}

	if err := page.MouseUp(entity.ButtonLeft); err != nil {
		return err
	}

	return operator.Sleep(ctx, o.timing.afterAction)
}

func (o *Operator) scroll(ctx context.Context, page Page, in entity.ScrollInputs, screen entity.ScreenContext) error {
	p, ok, err := operator.ResolvePoint(in.Point, screen)
	if err != nil {
		return err
	}

	if ok {
		if err := page.MouseMove(p.X, p.Y); err != nil {
			return err
		}

		if err := operator.Sleep(ctx, o.timing.afterMove); err != nil {
			return err
		}
	}

	dx, dy := operator.ScrollDelta(in.Direction, screen.ScreenWidth, screen.ScreenHeight)

	// Browser wheel deltas grow to the right, the canonical delta grows to the left.
	return page.Wheel(-dx, dy)
}

func (o *Operator) typeText(ctx context.Context, page Page, content string) error {
	text, submit := operator.StripSubmit(content)
	if strings.TrimSpace(text) == "" && !submit {
		o.logger.Warn("No content to type")

		return nil
	}

	if text != "" {
		if err := page.Type(text, operator.HumanDelay()); err != nil {
			return err
		}
	}

	if !submit {
		return nil
	}

	if err := operator.Sleep(ctx, 50*time.Millisecond); err != nil {
		return err
	}

	navigated := page.NavigationSignal()

	if err := page.Press("Enter"); err != nil {
		return err
	}

	if !operator.WaitForSignal(ctx, navigated, navigationWait) {
		o.logger.Debug("No navigation after submit")
	}

	return nil
}

func (o *Operator) keys(page Page, t entity.ActionType, expr string) error {
	keys, err := operator.MapKeys(expr, keyTable)
	if err != nil {
		return err
	}

	switch t {
	case entity.ActionPress:
		for _, k := range keys {
			if err := page.KeyDown(k); err != nil {
				return err
			}
		}

		return nil
	case entity.ActionRelease:
		for _, k := range slices.Backward(keys) {
			if err := page.KeyUp(k); err != nil {
				return err
			}
		}

		return nil
	default:
		return page.Press(strings.Join(keys, "+"))
	}
}

// Cleanup releases the left button so a failed drag does not leave it held.
func (o *Operator) Cleanup(ctx context.Context) {
	page, err := o.session.ActivePage(ctx)
	if err != nil {
		return
	}

	if err := page.MouseUp(entity.ButtonLeft); err != nil {
		o.logger.Debug("Mouse release during cleanup failed", zap.Error(err))
	}
}

func (o *Operator) Close(ctx context.Context) error {
	return o.session.Close(ctx)
}
