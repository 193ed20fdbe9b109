package android

import (
	"context"
	"encoding/base64"
	"fmt"
	"gui-agent/internal/config"
	"gui-agent/internal/operator"
	"regexp"
	"strconv"
	"strings"
)

const inputB64Action = "ADB_INPUT_B64"

var sizePattern = regexp.MustCompile(`(Physical|Override) size:\s*(\d+)x(\d+)`)

// ADB wraps the adb binary for one device.
type ADB struct {
	runner operator.CommandRunner
	bin    string
	serial string
}

func NewADB(cfg *config.AndroidConfig, runner operator.CommandRunner) *ADB {
	return &ADB{runner: runner, bin: cfg.ADB, serial: cfg.Serial}
}

func (a *ADB) args(args ...string) []string {
	if a.serial == "" {
		return args
	}

	return append([]string{"-s", a.serial}, args...)
}

func (a *ADB) shell(ctx context.Context, args ...string) ([]byte, error) {
	return a.runner.Run(ctx, a.bin, a.args(append([]string{"shell"}, args...)...)...)
}

func px(v float64) string {
	return strconv.Itoa(int(v + 0.5))
}

// ScreenSize prefers the override size reported by `wm size` over the physical one.
func (a *ADB) ScreenSize(ctx context.Context) (int, int, error) {
	out, err := a.shell(ctx, "wm", "size")
	if err != nil {
		return 0, 0, err
	}

	var width, height int

	for _, m := range sizePattern.FindAllStringSubmatch(string(out), -1) {
		w, _ := strconv.Atoi(m[2])
		h, _ := strconv.Atoi(m[3])

		if width == 0 || m[1] == "Override" {
			width, height = w, h
		}
	}

	if width == 0 || height == 0 {
		return 0, 0, fmt.Errorf("unexpected wm size output %q", strings.TrimSpace(string(out)))
	}

	return width, height, nil
}

func (a *ADB) Screencap(ctx context.Context) ([]byte, error) {
	return a.runner.Run(ctx, a.bin, a.args("exec-out", "screencap", "-p")...)
}

func (a *ADB) Tap(ctx context.Context, x, y float64) error {
	_, err := a.shell(ctx, "input", "tap", px(x), px(y))

	return err
}

func (a *ADB) Swipe(ctx context.Context, x1, y1, x2, y2 float64, durationMs int) error {
	_, err := a.shell(ctx, "input", "swipe", px(x1), px(y1), px(x2), px(y2), strconv.Itoa(durationMs))

	return err
}

// Motion sends a single touch event; kind is DOWN, MOVE or UP.
func (a *ADB) Motion(ctx context.Context, kind string, x, y float64) error {
	_, err := a.shell(ctx, "input", "motionevent", kind, px(x), px(y))

	return err
}

// Text types ASCII through `input text`. Anything else goes through the ADBKeyBoard
// broadcast, which must be the active IME on the device.
func (a *ADB) Text(ctx context.Context, text string) error {
	if !isASCII(text) {
		_, err := a.shell(ctx, "am", "broadcast", "-a", inputB64Action, "--es", "msg",
			base64.StdEncoding.EncodeToString([]byte(text)))

		return err
	}

	_, err := a.shell(ctx, "input", "text", escapeText(text))

	return err
}

func (a *ADB) KeyEvent(ctx context.Context, codes ...string) error {
	if len(codes) > 1 {
		_, err := a.shell(ctx, append([]string{"input", "keycombination"}, codes...)...)

		return err
	}

	_, err := a.shell(ctx, "input", "keyevent", codes[0])

	return err
}

func (a *ADB) Launch(ctx context.Context, pkg string) error {
	_, err := a.shell(ctx, "monkey", "-p", pkg, "-c", "android.intent.category.LAUNCHER", "1")

	return err
}

// FindPackage returns the first installed package whose name contains filter.
func (a *ADB) FindPackage(ctx context.Context, filter string) (string, error) {
	out, err := a.shell(ctx, "pm", "list", "packages", filter)
	if err != nil {
		return "", err
	}

	for line := range strings.Lines(string(out)) {
		if pkg, ok := strings.CutPrefix(strings.TrimSpace(line), "package:"); ok && pkg != "" {
			return pkg, nil
		}
	}

	return "", fmt.Errorf("no installed package matches %q", filter)
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}

	return true
}

var textEscaper = strings.NewReplacer(
	" ", "%s",
	"\\", "\\\\",
	"\"", "\\\"",
	"'", "\\'",
	"&", "\\&",
	"<", "\\<",
	">", "\\>",
	"|", "\\|",
	";", "\\;",
	"(", "\\(",
	")", "\\)",
	"$", "\\$",
	"`", "\\`",
	"*", "\\*",
	"?", "\\?",
	"~", "\\~",
	"#", "\\#",
)

// escapeText quotes text for the device shell and `input text`, which reads %s as a space.
func escapeText(s string) string {
	return textEscaper.Replace(s)
}
