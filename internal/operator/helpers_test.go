package operator

import (
	"context"
	"gui-agent/internal/entity"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestScrollDelta(t *testing.T) {
	tests := []struct {
		direction entity.Direction
		dx, dy    float64
	}{
		{entity.DirectionDown, 0, 800},
		{entity.DirectionUp, 0, -800},
		{entity.DirectionLeft, 1600, 0},
		{entity.DirectionRight, -1600, 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.direction), func(t *testing.T) {
			dx, dy := ScrollDelta(tt.direction, 2000, 1000)
			assert.InDelta(t, tt.dx, dx, 1e-9)
			assert.InDelta(t, tt.dy, dy, 1e-9)
		})
	}
}

func TestEnsureScheme(t *testing.T) {
	assert.Equal(t, "https://example.com", EnsureScheme("example.com"))
	assert.Equal(t, "http://example.com", EnsureScheme("http://example.com"))
	assert.Equal(t, "about:blank", EnsureScheme("about:blank"))
	assert.Equal(t, "", EnsureScheme("  "))
}

func TestInterpolate_EndsAtTarget(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		from := entity.Point{X: rapid.Float64Range(0, 4000).Draw(t, "fx"), Y: rapid.Float64Range(0, 4000).Draw(t, "fy")}
		to := entity.Point{X: rapid.Float64Range(0, 4000).Draw(t, "tx"), Y: rapid.Float64Range(0, 4000).Draw(t, "ty")}
		steps := rapid.IntRange(1, 50).Draw(t, "steps")

		points := Interpolate(from, to, steps)

		if len(points) != steps {
			t.Fatalf("got %d points, want %d", len(points), steps)
		}

		last := points[len(points)-1]
		if diff := last.X - to.X; diff > 1e-6 || diff < -1e-6 {
			t.Fatalf("last x %v, want %v", last.X, to.X)
		}

		if diff := last.Y - to.Y; diff > 1e-6 || diff < -1e-6 {
			t.Fatalf("last y %v, want %v", last.Y, to.Y)
		}
	})
}

func TestSplitKeys(t *testing.T) {
	assert.Equal(t, []string{"ctrl", "shift", "t"}, SplitKeys("Ctrl Shift T"))
	assert.Equal(t, []string{"ctrl", "c"}, SplitKeys("ctrl+c"))
	assert.Empty(t, SplitKeys("   "))
}

func TestMapKeys(t *testing.T) {
	table := map[string]string{"ctrl": "Control", "enter": "Enter"}

	keys, err := MapKeys("Ctrl Enter x", table)
	require.NoError(t, err)
	assert.Equal(t, []string{"Control", "Enter", "x"}, keys)

	_, err = MapKeys("", table)
	require.ErrorIs(t, err, ErrEmptyKey)
}

func TestStripSubmit(t *testing.T) {
	text, submit := StripSubmit("hello\n")
	assert.Equal(t, "hello", text)
	assert.True(t, submit)

	text, submit = StripSubmit(`query\n`)
	assert.Equal(t, "query", text)
	assert.True(t, submit)

	text, submit = StripSubmit("plain")
	assert.Equal(t, "plain", text)
	assert.False(t, submit)
}

func TestWaitDuration(t *testing.T) {
	def := 5 * time.Second

	assert.Equal(t, def, WaitDuration(entity.Action{Type: entity.ActionWait, Inputs: entity.WaitInputs{}}, def))
	assert.Equal(t, 1500*time.Millisecond, WaitDuration(entity.Action{Type: entity.ActionWait, Inputs: entity.WaitInputs{Seconds: 1.5}}, def))
}

func TestSleep_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Sleep(ctx, time.Hour)
	require.ErrorIs(t, err, context.Canceled)
}

func TestWaitForSignal(t *testing.T) {
	fired := make(chan struct{})
	close(fired)

	assert.True(t, WaitForSignal(context.Background(), fired, time.Second))
	assert.False(t, WaitForSignal(context.Background(), make(chan struct{}), 10*time.Millisecond))
}

func TestHumanDelay_Range(t *testing.T) {
	for range 100 {
		d := HumanDelay()
		assert.GreaterOrEqual(t, d, 20*time.Millisecond)
		assert.Less(t, d, 50*time.Millisecond)
	}
}
