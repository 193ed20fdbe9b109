package desktop

import (
	"context"
	"fmt"
	"gui-agent/internal/config"
	"gui-agent/internal/operator"
	"strconv"
	"strings"
)

// X11 drives the display with xdotool and captures it with ImageMagick's import.
type X11 struct {
	runner    operator.CommandRunner
	xdotool   string
	importBin string
	display   string
}

func NewX11(cfg *config.DesktopConfig, runner operator.CommandRunner) *X11 {
	return &X11{
		runner:    runner,
		xdotool:   cfg.Xdotool,
		importBin: cfg.ImportBin,
		display:   cfg.Display,
	}
}

func coord(v float64) string {
	return strconv.Itoa(int(v + 0.5))
}

func (x *X11) run(ctx context.Context, args ...string) error {
	_, err := x.runner.Run(ctx, x.xdotool, args...)

	return err
}

func (x *X11) MoveTo(ctx context.Context, px, py float64) error {
	return x.run(ctx, "mousemove", "--sync", coord(px), coord(py))
}

func (x *X11) Click(ctx context.Context, button Button, count int) error {
	if count < 1 {
		count = 1
	}

	return x.run(ctx, "click", "--repeat", strconv.Itoa(count), strconv.Itoa(int(button)))
}

func (x *X11) MouseDown(ctx context.Context, button Button) error {
	return x.run(ctx, "mousedown", strconv.Itoa(int(button)))
}

func (x *X11) MouseUp(ctx context.Context, button Button) error {
	return x.run(ctx, "mouseup", strconv.Itoa(int(button)))
}

func (x *X11) Wheel(ctx context.Context, button Button, clicks int) error {
	return x.Click(ctx, button, clicks)
}

func (x *X11) Type(ctx context.Context, text string, delayMs int) error {
	return x.run(ctx, "type", "--delay", strconv.Itoa(delayMs), "--", text)
}

func (x *X11) KeyTap(ctx context.Context, keys []string) error {
	return x.run(ctx, "key", strings.Join(keys, "+"))
}

func (x *X11) KeyDown(ctx context.Context, key string) error {
	return x.run(ctx, "keydown", key)
}

func (x *X11) KeyUp(ctx context.Context, key string) error {
	return x.run(ctx, "keyup", key)
}

// ScreenSize parses `xdotool getdisplaygeometry`, which prints "W H".
func (x *X11) ScreenSize(ctx context.Context) (int, int, error) {
	out, err := x.runner.Run(ctx, x.xdotool, "getdisplaygeometry")
	if err != nil {
		return 0, 0, err
	}

	fields := strings.Fields(string(out))
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("unexpected display geometry %q", strings.TrimSpace(string(out)))
	}

	width, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, 0, fmt.Errorf("parse display width: %w", err)
	}

	height, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, 0, fmt.Errorf("parse display height: %w", err)
	}

	return width, height, nil
}

func (x *X11) Capture(ctx context.Context) ([]byte, error) {
	args := []string{"-window", "root"}
	if x.display != "" {
		args = append(args, "-display", x.display)
	}

	return x.runner.Run(ctx, x.importBin, append(args, "png:-")...)
}
