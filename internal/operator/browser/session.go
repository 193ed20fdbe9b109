package browser

import (
	"context"
	"errors"
	"fmt"
	"gui-agent/internal/config"
	"gui-agent/pkg/apperr"
	"gui-agent/pkg/logg"
	"gui-agent/pkg/tracing"
	"os"

	"github.com/playwright-community/playwright-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	sessionName   = "BrowserSession"
	sessionTracer = "operator.browser.session"
	userAgent     = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
)

var launchArgs = []string{
	"--disable-blink-features=AutomationControlled",
	"--disable-dev-shm-usage",
	"--no-sandbox",
}

// playwrightSession owns the playwright driver and the browser it launched or attached to.
type playwrightSession struct {
	config *config.BrowserConfig
	logger *zap.Logger
	tracer trace.Tracer

	playwright     *playwright.Playwright
	browser        playwright.Browser
	browserContext playwright.BrowserContext
	page           playwright.Page
}

func newPlaywrightSession(cfg *config.BrowserConfig, logger *zap.Logger) *playwrightSession {
	return &playwrightSession{
		config: cfg,
		logger: logger.With(zap.String(logg.Layer, sessionName)),
		tracer: otel.Tracer(sessionTracer),
	}
}

func (s *playwrightSession) remote() bool {
	return s.config.WSEndpoint != ""
}

func (s *playwrightSession) Launch(ctx context.Context) (err error) {
	const op = "Launch"
	logger := s.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op, attribute.Bool("remote", s.remote()))
	defer func() {
		step.End(err)
	}()

	if !s.remote() {
		step.AddEvent("installing playwright")

		if err := playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}}); err != nil {
			return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
				apperr.MetaReason: "playwright_install_failed",
				apperr.MetaStage:  apperr.StageBrowser,
			})
		}
	}

	step.AddEvent("starting playwright")

	pw, err := playwright.Run()
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "playwright_start_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}
	s.playwright = pw

	switch {
	case s.remote():
		return s.connectRemote(ctx)
	case s.config.UserDataDir != "":
		return s.launchPersistent(ctx)
	default:
		return s.launchNew(ctx)
	}
}

func (s *playwrightSession) connectRemote(ctx context.Context) (err error) {
	const op = "connectRemote"
	logger := s.logger.With(zap.String(logg.Operation, op), zap.String(logg.URL, s.config.WSEndpoint))

	_, step := tracing.StartSpan(ctx, s.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	logger.Info("Attaching to remote browser")

	browser, err := s.playwright.Chromium.ConnectOverCDP(s.config.WSEndpoint, playwright.BrowserTypeConnectOverCDPOptions{
		Timeout: playwright.Float(float64(s.config.Timeout)),
	})
	if err != nil {
		return apperr.Wrap(op, apperr.CodeUnavailable, err, map[string]any{
			apperr.MetaReason: "connect_over_cdp_failed",
			apperr.MetaStage:  apperr.StageBrowser,
			apperr.MetaURL:    s.config.WSEndpoint,
		})
	}
	s.browser = browser

	if contexts := browser.Contexts(); len(contexts) > 0 {
		s.browserContext = contexts[0]
	} else {
		browserContext, err := browser.NewContext(s.contextOptions())
		if err != nil {
			return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
				apperr.MetaReason: "context_create_failed",
				apperr.MetaStage:  apperr.StageBrowser,
			})
		}
		s.browserContext = browserContext
	}

	return s.selectPage(op)
}

func (s *playwrightSession) launchPersistent(ctx context.Context) (err error) {
	const op = "launchPersistent"
	logger := s.logger.With(zap.String(logg.Operation, op))

	_, step := tracing.StartSpan(ctx, s.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	logger.Info("Launching persistent browser context")

	if err := os.MkdirAll(s.config.UserDataDir, 0755); err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "mkdir_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}

	browserContext, err := s.playwright.Chromium.LaunchPersistentContext(s.config.UserDataDir, playwright.BrowserTypeLaunchPersistentContextOptions{
		Headless:          playwright.Bool(s.config.Headless),
		SlowMo:            playwright.Float(float64(s.config.SlowMo)),
		Viewport:          s.viewport(),
		UserAgent:         playwright.String(userAgent),
		AcceptDownloads:   playwright.Bool(true),
		JavaScriptEnabled: playwright.Bool(true),
		IgnoreHttpsErrors: playwright.Bool(true),
		Args:              launchArgs,
	})
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "launch_persistent_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}

	s.browserContext = browserContext

	return s.selectPage(op)
}

func (s *playwrightSession) launchNew(ctx context.Context) (err error) {
	const op = "launchNew"
	logger := s.logger.With(zap.String(logg.Operation, op))

	_, step := tracing.StartSpan(ctx, s.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	logger.Info("Launching new browser")

	browser, err := s.playwright.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(s.config.Headless),
		SlowMo:   playwright.Float(float64(s.config.SlowMo)),
		Args:     launchArgs,
	})
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "browser_launch_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}
	s.browser = browser

	browserContext, err := browser.NewContext(s.contextOptions())
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "context_create_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}

	s.browserContext = browserContext

	return s.selectPage(op)
}

func (s *playwrightSession) viewport() *playwright.Size {
	return &playwright.Size{Width: s.config.ViewportWidth, Height: s.config.ViewportHeight}
}

func (s *playwrightSession) contextOptions() playwright.BrowserNewContextOptions {
	return playwright.BrowserNewContextOptions{
		Viewport:          s.viewport(),
		UserAgent:         playwright.String(userAgent),
		AcceptDownloads:   playwright.Bool(true),
		JavaScriptEnabled: playwright.Bool(true),
	}
}

func (s *playwrightSession) selectPage(op string) error {
	if pages := s.browserContext.Pages(); len(pages) > 0 {
		s.page = pages[0]
		s.logger.Info("Using existing page")

		return nil
	}

	page, err := s.browserContext.NewPage()
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "new_page_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}
	s.page = page
	s.logger.Info("Created new page")

	return nil
}

// ActivePage prefers a visible tab, so pages opened by the site itself are followed.
func (s *playwrightSession) ActivePage(ctx context.Context) (Page, error) {
	if s.browserContext == nil {
		return nil, errors.New("browser context is nil")
	}

	for _, p := range s.browserContext.Pages() {
		if p.IsClosed() {
			continue
		}

		state, err := p.Evaluate("() => document.visibilityState")
		if err != nil {
			s.logger.Debug("Visibility check failed", zap.String(logg.URL, p.URL()), zap.Error(err))

			continue
		}

		if state == "visible" {
			s.page = p

			return s.wrap(p), nil
		}
	}

	if s.page != nil && !s.page.IsClosed() {
		return s.wrap(s.page), nil
	}

	s.logger.Info("No active pages found, creating new page")

	page, err := s.browserContext.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create new page: %w", err)
	}
	s.page = page

	return s.wrap(page), nil
}

func (s *playwrightSession) wrap(p playwright.Page) Page {
	return &playwrightPage{page: p, timeout: float64(s.config.Timeout)}
}

func (s *playwrightSession) Close(ctx context.Context) (err error) {
	const op = "Close"
	logger := s.logger.With(zap.String(logg.Operation, op))

	_, step := tracing.StartSpan(ctx, s.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	if s.remote() {
		logger.Info("Detaching from remote browser")
	} else if s.browserContext != nil {
		if err := s.browserContext.Close(); err != nil {
			logger.Warn("Failed to close context", zap.Error(err))
		}
	}

	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			logger.Warn("Failed to close browser", zap.Error(err))
		}
	}

	if s.playwright != nil {
		if err := s.playwright.Stop(); err != nil {
			return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
				apperr.MetaReason: "playwright_stop_failed",
			})
		}
	}

	logger.Info("Browser session closed")

	return nil
}
