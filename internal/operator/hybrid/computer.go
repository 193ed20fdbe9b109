package hybrid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"gui-agent/internal/config"
	"gui-agent/pkg/apperr"
	"gui-agent/pkg/logg"
	"gui-agent/pkg/tracing"
	"io"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	computerName   = "SandboxComputer"
	computerTracer = "operator.hybrid.computer"

	actionsPath    = "/v1/browser/actions"
	screenshotPath = "/v1/browser/screenshot"
	infoPath       = "/v1/browser/info"
)

// Sandbox action types.
const (
	actionMoveTo      = "MOVE_TO"
	actionClick       = "CLICK"
	actionRightClick  = "RIGHT_CLICK"
	actionDoubleClick = "DOUBLE_CLICK"
	actionMouseDown   = "MOUSE_DOWN"
	actionMouseUp     = "MOUSE_UP"
	actionDragTo      = "DRAG_TO"
	actionScroll      = "SCROLL"
	actionTyping      = "TYPING"
	actionPress       = "PRESS"
	actionKeyDown     = "KEY_DOWN"
	actionKeyUp       = "KEY_UP"
	actionHotkey      = "HOTKEY"
)

type actionRequest struct {
	ActionType string   `json:"action_type"`
	X          *float64 `json:"x,omitempty"`
	Y          *float64 `json:"y,omitempty"`
	Button     string   `json:"button,omitempty"`
	NumClicks  int      `json:"num_clicks,omitempty"`
	DX         int      `json:"dx,omitempty"`
	DY         int      `json:"dy,omitempty"`
	Text       string   `json:"text,omitempty"`
	Key        string   `json:"key,omitempty"`
	Keys       []string `json:"keys,omitempty"`
}

type actionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type BrowserInfo struct {
	CDPURL    string `json:"cdp_url"`
	UserAgent string `json:"user_agent"`
}

// Computer is the sandbox input device. Every round trip is rate limited and bounded
// by the configured timeout.
type Computer struct {
	baseURL    string
	config     *config.SandboxConfig
	logger     *zap.Logger
	tracer     trace.Tracer
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewComputer(cfg *config.SandboxConfig, logger *zap.Logger) *Computer {
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}

	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}

	return &Computer{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		config:     cfg,
		logger:     logger.With(zap.String(logg.Layer, computerName)),
		tracer:     otel.Tracer(computerTracer),
		httpClient: &http.Client{},
		limiter:    rate.NewLimiter(limit, burst),
	}
}

func point(x, y float64) (*float64, *float64) {
	return &x, &y
}

func (c *Computer) MoveTo(ctx context.Context, x, y float64) error {
	req := actionRequest{ActionType: actionMoveTo}
	req.X, req.Y = point(x, y)

	return c.act(ctx, req)
}

func (c *Computer) Click(ctx context.Context, x, y float64, button string) error {
	req := actionRequest{ActionType: actionClick, Button: button}
	req.X, req.Y = point(x, y)

	return c.act(ctx, req)
}

func (c *Computer) RightClick(ctx context.Context, x, y float64) error {
	req := actionRequest{ActionType: actionRightClick}
	req.X, req.Y = point(x, y)

	return c.act(ctx, req)
}

func (c *Computer) DoubleClick(ctx context.Context, x, y float64) error {
	req := actionRequest{ActionType: actionDoubleClick}
	req.X, req.Y = point(x, y)

	return c.act(ctx, req)
}

func (c *Computer) MouseDown(ctx context.Context, button string) error {
	return c.act(ctx, actionRequest{ActionType: actionMouseDown, Button: button})
}

func (c *Computer) MouseUp(ctx context.Context, button string) error {
	return c.act(ctx, actionRequest{ActionType: actionMouseUp, Button: button})
}

func (c *Computer) DragTo(ctx context.Context, x, y float64) error {
	req := actionRequest{ActionType: actionDragTo}
	req.X, req.Y = point(x, y)

	return c.act(ctx, req)
}

// Scroll takes wheel clicks. Positive dy scrolls up, positive dx scrolls left.
func (c *Computer) Scroll(ctx context.Context, dx, dy int) error {
	return c.act(ctx, actionRequest{ActionType: actionScroll, DX: dx, DY: dy})
}

func (c *Computer) Type(ctx context.Context, text string) error {
	return c.act(ctx, actionRequest{ActionType: actionTyping, Text: text})
}

func (c *Computer) Press(ctx context.Context, key string) error {
	return c.act(ctx, actionRequest{ActionType: actionPress, Key: key})
}

func (c *Computer) KeyDown(ctx context.Context, key string) error {
	return c.act(ctx, actionRequest{ActionType: actionKeyDown, Key: key})
}

func (c *Computer) KeyUp(ctx context.Context, key string) error {
	return c.act(ctx, actionRequest{ActionType: actionKeyUp, Key: key})
}

func (c *Computer) Hotkey(ctx context.Context, keys []string) error {
	return c.act(ctx, actionRequest{ActionType: actionHotkey, Keys: keys})
}

func (c *Computer) act(ctx context.Context, action actionRequest) (err error) {
	const op = "Action"
	logger := c.logger.With(zap.String(logg.Operation, op), zap.String(logg.Action, action.ActionType))

	ctx, step := tracing.StartSpan(ctx, c.tracer, logger, op,
		attribute.String("action_type", action.ActionType))
	defer func() {
		step.End(err)
	}()

	body, err := json.Marshal(action)
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "marshal_failed",
			apperr.MetaStage:  apperr.StageSandbox,
		})
	}

	respBody, err := c.do(ctx, http.MethodPost, actionsPath, body)
	if err != nil {
		return err
	}

	var resp actionResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "unmarshal_failed",
			apperr.MetaStage:  apperr.StageSandbox,
		})
	}

	if !resp.Success {
		message := resp.Message
		if message == "" {
			message = "unknown error"
		}

		return apperr.Wrap(op, apperr.CodeActionFailed, fmt.Errorf("sandbox rejected %s: %s", action.ActionType, message), map[string]any{
			apperr.MetaReason: "sandbox_rejected",
			apperr.MetaStage:  apperr.StageSandbox,
			apperr.MetaAction: action.ActionType,
		})
	}

	return nil
}

// Screenshot returns the raw PNG bytes of the sandbox display.
func (c *Computer) Screenshot(ctx context.Context) (data []byte, err error) {
	const op = "Screenshot"
	logger := c.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, c.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	data, err = c.do(ctx, http.MethodGet, screenshotPath, nil)
	if err != nil {
		return nil, err
	}

	if len(data) == 0 {
		return nil, apperr.WrapErrorWithReason(op, apperr.CodeScreenshotFailed, "empty_screenshot")
	}

	step.AddEvent("screenshot received", attribute.Int("bytes", len(data)))

	return data, nil
}

func (c *Computer) Info(ctx context.Context) (info BrowserInfo, err error) {
	const op = "Info"
	logger := c.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, c.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	body, err := c.do(ctx, http.MethodGet, infoPath, nil)
	if err != nil {
		return BrowserInfo{}, err
	}

	// The sandbox wraps payloads as {"data": {...}} on some versions.
	var envelope struct {
		Data *BrowserInfo `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Data != nil {
		return *envelope.Data, nil
	}

	if err := json.Unmarshal(body, &info); err != nil {
		return BrowserInfo{}, apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "unmarshal_failed",
			apperr.MetaStage:  apperr.StageSandbox,
		})
	}

	return info, nil
}

func (c *Computer) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	const op = "do"

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, apperr.Wrap(op, apperr.CodeTimeout, err, map[string]any{
			apperr.MetaReason: "rate_limit_wait_failed",
			apperr.MetaStage:  apperr.StageSandbox,
		})
	}

	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "request_create_failed",
			apperr.MetaStage:  apperr.StageSandbox,
		})
	}

	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeUnavailable, err, map[string]any{
			apperr.MetaReason: "http_request_failed",
			apperr.MetaStage:  apperr.StageSandbox,
			apperr.MetaURL:    c.baseURL + path,
		})
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "read_body_failed",
			apperr.MetaStage:  apperr.StageSandbox,
		})
	}

	if resp.StatusCode != http.StatusOK {
		return nil, apperr.Wrap(op, apperr.CodeUnavailable, fmt.Errorf("sandbox error (status %d): %s", resp.StatusCode, string(respBody)), map[string]any{
			apperr.MetaReason: "sandbox_error",
			apperr.MetaStage:  apperr.StageSandbox,
			"status_code":     resp.StatusCode,
		})
	}

	return respBody, nil
}
