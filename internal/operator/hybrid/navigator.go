package hybrid

import (
	"context"
	"errors"
	"fmt"
	"gui-agent/pkg/logg"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// Navigator is the page-level capability the sandbox input device lacks.
type Navigator interface {
	Navigate(ctx context.Context, url string) error
	Back(ctx context.Context) error
	URL(ctx context.Context) (string, error)
	// NavigationSignal fires once on the next main frame navigation.
	NavigationSignal() <-chan struct{}
	Close() error
}

// cdpNavigator attaches to the sandbox browser over its CDP endpoint.
type cdpNavigator struct {
	logger  *zap.Logger
	timeout time.Duration

	tabCtx    context.Context
	cancelTab context.CancelFunc
	cancelAll func()

	mu      sync.Mutex
	waiters []chan struct{}
}

func dialNavigator(ctx context.Context, cdpURL string, viewport [2]int, timeout time.Duration, logger *zap.Logger) (*cdpNavigator, error) {
	allocCtx, cancelAlloc := chromedp.NewRemoteAllocator(context.Background(), cdpURL)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, args ...any) {
		logger.Debug(fmt.Sprintf(format, args...))
	}))

	n := &cdpNavigator{
		logger:  logger.With(zap.String(logg.URL, cdpURL)),
		timeout: timeout,
		cancelAll: func() {
			cancelBrowser()
			cancelAlloc()
		},
	}

	targets, err := chromedp.Targets(browserCtx)
	if err != nil {
		n.cancelAll()

		return nil, fmt.Errorf("list sandbox targets: %w", err)
	}

	n.tabCtx, n.cancelTab = browserCtx, func() {}

	for _, t := range targets {
		if t.Type == "page" {
			n.tabCtx, n.cancelTab = chromedp.NewContext(browserCtx, chromedp.WithTargetID(t.TargetID))
			n.logger.Debug("Attached to existing page", zap.String(logg.URL, t.URL))

			break
		}
	}

	chromedp.ListenTarget(n.tabCtx, func(ev any) {
		if e, ok := ev.(*page.EventFrameNavigated); ok && e.Frame.ParentID == "" {
			n.notify()
		}
	})

	err = n.run(ctx, emulation.SetDeviceMetricsOverride(int64(viewport[0]), int64(viewport[1]), 1, false))
	if err != nil {
		n.Close()

		return nil, fmt.Errorf("set sandbox viewport: %w", err)
	}

	return n, nil
}

// run executes actions on the tab, bounded by both the caller context and the timeout.
func (n *cdpNavigator) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(n.tabCtx, n.timeout)
	defer cancel()

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return errors.Join(ctx.Err(), err)
	}

	return err
}

func (n *cdpNavigator) Navigate(ctx context.Context, url string) error {
	return n.run(ctx, chromedp.Navigate(url))
}

func (n *cdpNavigator) Back(ctx context.Context) error {
	return n.run(ctx, chromedp.NavigateBack())
}

func (n *cdpNavigator) URL(ctx context.Context) (string, error) {
	var url string
	if err := n.run(ctx, chromedp.Location(&url)); err != nil {
		return "", err
	}

	return url, nil
}

func (n *cdpNavigator) NavigationSignal() <-chan struct{} {
	ch := make(chan struct{})

	n.mu.Lock()
	n.waiters = append(n.waiters, ch)
	n.mu.Unlock()

	return ch
}

func (n *cdpNavigator) notify() {
	n.mu.Lock()
	waiters := n.waiters
	n.waiters = nil
	n.mu.Unlock()

	for _, ch := range waiters {
		close(ch)
	}
}

func (n *cdpNavigator) Close() error {
	n.cancelTab()
	n.cancelAll()

	return nil
}
