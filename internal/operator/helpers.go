package operator

import (
	"context"
	"errors"
	"gui-agent/internal/coords"
	"gui-agent/internal/entity"
	"math/rand/v2"
	"strings"
	"time"
)

const (
	// ScrollFraction is the share of the viewport covered by one scroll action.
	ScrollFraction = 0.8
	DragSteps      = 10
)

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func EnsureScheme(url string) string {
	url = strings.TrimSpace(url)
	if url == "" || strings.Contains(url, "://") || strings.HasPrefix(url, "about:") {
		return url
	}

	return "https://" + url
}

// ScrollDelta returns the canonical scroll offset for a direction. Positive Y scrolls
// down, negative X scrolls right. Backends translate it into their own wheel units.
func ScrollDelta(direction entity.Direction, width, height int) (dx, dy float64) {
	vertical := float64(height) * ScrollFraction
	horizontal := float64(width) * ScrollFraction

	switch direction {
	case entity.DirectionUp:
		return 0, -vertical
	case entity.DirectionDown:
		return 0, vertical
	case entity.DirectionLeft:
		return horizontal, 0
	case entity.DirectionRight:
		return -horizontal, 0
	default:
		return 0, 0
	}
}

// Interpolate returns steps points from just after from up to and including to.
func Interpolate(from, to entity.Point, steps int) []entity.Point {
	if steps < 1 {
		steps = 1
	}

	points := make([]entity.Point, 0, steps)
	for i := 1; i <= steps; i++ {
		t := float64(i) / float64(steps)
		points = append(points, entity.Point{
			X: from.X + (to.X-from.X)*t,
			Y: from.Y + (to.Y-from.Y)*t,
		})
	}

	return points
}

// SplitKeys lowercases a hotkey expression such as "ctrl shift t" or "Ctrl+C" and
// splits it into key names.
func SplitKeys(expr string) []string {
	return strings.FieldsFunc(strings.ToLower(expr), func(r rune) bool {
		return r == ' ' || r == '\t' || r == '+'
	})
}

var ErrEmptyKey = errors.New("no key specified")

// MapKeys splits expr and maps every token through table. Unknown tokens pass
// through unchanged.
func MapKeys(expr string, table map[string]string) ([]string, error) {
	keys := SplitKeys(expr)
	if len(keys) == 0 {
		return nil, ErrEmptyKey
	}

	for i, k := range keys {
		if mapped, ok := table[k]; ok {
			keys[i] = mapped
		}
	}

	return keys, nil
}

// StripSubmit removes a trailing newline, real or escaped, and reports whether the
// text should be submitted with Enter.
func StripSubmit(text string) (string, bool) {
	switch {
	case strings.HasSuffix(text, `\n`):
		return strings.TrimSuffix(text, `\n`), true
	case strings.HasSuffix(text, "\n"):
		return strings.TrimSuffix(text, "\n"), true
	default:
		return text, false
	}
}

// WaitForSignal reports whether signal fired before timeout. It never fails.
func WaitForSignal(ctx context.Context, signal <-chan struct{}, timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-signal:
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}

// HumanDelay is the per-keystroke typing delay.
func HumanDelay() time.Duration {
	return time.Duration(20+rand.Float64()*30) * time.Millisecond
}

// WaitDuration converts a wait action into a duration, falling back to def.
func WaitDuration(a entity.Action, def time.Duration) time.Duration {
	in, ok := a.Inputs.(entity.WaitInputs)
	if !ok || in.Seconds <= 0 {
		return def
	}

	return time.Duration(in.Seconds * float64(time.Second))
}

// ResolvePoint maps the action's point to screen pixels.
func ResolvePoint(c *entity.Coordinates, screen entity.ScreenContext) (entity.Point, bool, error) {
	if c == nil || c.IsEmpty() {
		return entity.Point{}, false, nil
	}

	p, err := coords.ToReal(*c, screen)
	if err != nil {
		return entity.Point{}, false, err
	}

	return p, true, nil
}
