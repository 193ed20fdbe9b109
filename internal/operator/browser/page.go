package browser

import (
	"context"
	"gui-agent/internal/entity"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Page is the slice of a browser tab the operator drives. Coordinates are CSS pixels.
type Page interface {
	MouseMove(x, y float64) error
	MouseDown(button entity.MouseButton) error
	MouseUp(button entity.MouseButton) error
	Click(x, y float64, button entity.MouseButton, count int) error
	Wheel(dx, dy float64) error
	Type(text string, delay time.Duration) error
	Press(combo string) error
	KeyDown(key string) error
	KeyUp(key string) error
	Goto(url string) error
	GoBack() error
	Screenshot() ([]byte, error)
	Viewport() entity.Size
	URL() string
	Evaluate(script string, arg any) error
	// NavigationSignal fires once on the next main frame navigation.
	NavigationSignal() <-chan struct{}
}

type session interface {
	Launch(ctx context.Context) error
	ActivePage(ctx context.Context) (Page, error)
	Close(ctx context.Context) error
}

type playwrightPage struct {
	page    playwright.Page
	timeout float64
}

var _ Page = (*playwrightPage)(nil)

func mouseButton(b entity.MouseButton) *playwright.MouseButton {
	switch b {
	case entity.ButtonRight:
		return playwright.MouseButtonRight
	case entity.ButtonMiddle:
		return playwright.MouseButtonMiddle
	default:
		return playwright.MouseButtonLeft
	}
}

func (p *playwrightPage) MouseMove(x, y float64) error {
	return p.page.Mouse().Move(x, y)
}

func (p *playwrightPage) MouseDown(button entity.MouseButton) error {
	return p.page.Mouse().Down(playwright.MouseDownOptions{Button: mouseButton(button)})
}

func (p *playwrightPage) MouseUp(button entity.MouseButton) error {
	return p.page.Mouse().Up(playwright.MouseUpOptions{Button: mouseButton(button)})
}

func (p *playwrightPage) Click(x, y float64, button entity.MouseButton, count int) error {
	return p.page.Mouse().Click(x, y, playwright.MouseClickOptions{
		Button:     mouseButton(button),
		ClickCount: playwright.Int(count),
	})
}

func (p *playwrightPage) Wheel(dx, dy float64) error {
	return p.page.Mouse().Wheel(dx, dy)
}

func (p *playwrightPage) Type(text string, delay time.Duration) error {
	return p.page.Keyboard().Type(text, playwright.KeyboardTypeOptions{
		Delay: playwright.Float(float64(delay.Milliseconds())),
	})
}

func (p *playwrightPage) Press(combo string) error {
	return p.page.Keyboard().Press(combo)
}

func (p *playwrightPage) KeyDown(key string) error {
	return p.page.Keyboard().Down(key)
}

func (p *playwrightPage) KeyUp(key string) error {
	return p.page.Keyboard().Up(key)
}

func (p *playwrightPage) Goto(url string) error {
	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		Timeout:   playwright.Float(p.timeout),
		WaitUntil: playwright.WaitUntilStateCommit,
	})

	return err
}

func (p *playwrightPage) GoBack() error {
	_, err := p.page.GoBack(playwright.PageGoBackOptions{
		Timeout:   playwright.Float(p.timeout),
		WaitUntil: playwright.WaitUntilStateCommit,
	})

	return err
}

func (p *playwrightPage) Screenshot() ([]byte, error) {
	return p.page.Screenshot(playwright.PageScreenshotOptions{
		Type:     playwright.ScreenshotTypeJpeg,
		Quality:  playwright.Int(75),
		FullPage: playwright.Bool(false),
	})
}

func (p *playwrightPage) Viewport() entity.Size {
	size := p.page.ViewportSize()
	if size == nil {
		return entity.Size{}
	}

	return entity.Size{Width: size.Width, Height: size.Height}
}

func (p *playwrightPage) URL() string {
	return p.page.URL()
}

func (p *playwrightPage) Evaluate(script string, arg any) error {
	var err error
	if arg == nil {
		_, err = p.page.Evaluate(script)
	} else {
		_, err = p.page.Evaluate(script, arg)
	}

	return err
}

func (p *playwrightPage) NavigationSignal() <-chan struct{} {
	signal := make(chan struct{})
	p.page.Once("framenavigated", func(frame playwright.Frame) {
		if frame.ParentFrame() == nil {
			close(signal)
		}
	})

	return signal
}
