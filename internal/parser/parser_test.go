package parser

import (
	"gui-agent/internal/entity"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"
)

func newTestParser() *DefaultParser {
	return NewDefaultParser(zap.NewNop())
}

func TestParse_ClickPoint(t *testing.T) {
	resp := newTestParser().Parse("click(point='<point>100 200</point>')")

	require.Empty(t, resp.ErrorMessage)
	require.Len(t, resp.Actions, 1)
	assert.Equal(t, entity.ActionClick, resp.Actions[0].Type)

	in, ok := resp.Actions[0].Inputs.(entity.PointInputs)
	require.True(t, ok)
	require.NotNil(t, in.Point.Raw)
	assert.Equal(t, entity.Point{X: 100, Y: 200}, *in.Point.Raw)
	assert.Nil(t, in.Point.Normalized)
}

func TestParse_ThoughtAndAction(t *testing.T) {
	text := "Thought: The search box is at the top.\nAction: type(content='golang\\n')"

	resp := newTestParser().Parse(text)

	require.Empty(t, resp.ErrorMessage)
	assert.Equal(t, "The search box is at the top.", resp.ReasoningContent)
	require.Len(t, resp.Actions, 1)
	assert.Equal(t, entity.TypeInputs{Content: "golang\n"}, resp.Actions[0].Inputs)
}

func TestParse_ProseBeforeActionIsNotScanned(t *testing.T) {
	text := "Thought: I could click(point='<point>1 1</point>') but scrolling is better.\nAction: scroll(direction='down')"

	resp := newTestParser().Parse(text)

	require.Empty(t, resp.ErrorMessage)
	require.Len(t, resp.Actions, 1)
	assert.Equal(t, entity.ActionScroll, resp.Actions[0].Type)
}

func TestParse_MultipleActionsKeepEmissionOrder(t *testing.T) {
	text := "Action: click(point='<point>10 20</point>')\n\ntype(content='hello')\n\nhotkey(key='ctrl enter')"

	resp := newTestParser().Parse(text)

	require.Empty(t, resp.ErrorMessage)
	require.Len(t, resp.Actions, 3)
	assert.Equal(t, entity.ActionClick, resp.Actions[0].Type)
	assert.Equal(t, entity.ActionTypeText, resp.Actions[1].Type)
	assert.Equal(t, entity.ActionHotkey, resp.Actions[2].Type)
}

func TestParse_FinishedTerminatesSequence(t *testing.T) {
	text := "Action: click(point='<point>10 20</point>')\nfinished(content='done')\nclick(point='<point>30 40</point>')"

	resp := newTestParser().Parse(text)

	require.Empty(t, resp.ErrorMessage)
	require.Len(t, resp.Actions, 2)
	assert.Equal(t, entity.ActionFinished, resp.Actions[1].Type)
	assert.Equal(t, "done", resp.Actions[1].Content())
}

func TestParse_AliasFolding(t *testing.T) {
	tests := []struct {
		text string
		want entity.ActionType
	}{
		{"left_click(point='<point>1 2</point>')", entity.ActionClick},
		{"left_single(start_box='(1,2)')", entity.ActionClick},
		{"left_double(point='<point>1 2</point>')", entity.ActionDoubleClick},
		{"right_single(point='[1, 2]')", entity.ActionRightClick},
		{"select(start_box='<point>1 2</point>', end_box='<point>3 4</point>')", entity.ActionDrag},
		{"swipe(start_point='<point>1 2</point>', end_point='<point>3 4</point>')", entity.ActionDrag},
		{"hover(point='<point>1 2</point>')", entity.ActionMouseMove},
		{"go_back()", entity.ActionNavigateBack},
		{"open_url(url='example.com')", entity.ActionNavigate},
	}

	p := newTestParser()

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			resp := p.Parse(tt.text)

			require.Empty(t, resp.ErrorMessage)
			require.Len(t, resp.Actions, 1)
			assert.Equal(t, tt.want, resp.Actions[0].Type)
		})
	}
}

func TestParse_PointFormats(t *testing.T) {
	tests := []struct {
		value string
		want  entity.Point
	}{
		{"'<point>100 200</point>'", entity.Point{X: 100, Y: 200}},
		{"'<point>100,200</point>'", entity.Point{X: 100, Y: 200}},
		{"<point>100 200</point>", entity.Point{X: 100, Y: 200}},
		{"'(100,200)'", entity.Point{X: 100, Y: 200}},
		{"(100, 200)", entity.Point{X: 100, Y: 200}},
		{"'[100, 200]'", entity.Point{X: 100, Y: 200}},
		{"'<bbox>100 200 300 400</bbox>'", entity.Point{X: 200, Y: 300}},
		{"'12.5 7.25'", entity.Point{X: 12.5, Y: 7.25}},
	}

	p := newTestParser()

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			resp := p.Parse("click(point=" + tt.value + ")")

			require.Empty(t, resp.ErrorMessage)
			require.Len(t, resp.Actions, 1)

			point, ok := resp.Actions[0].Point()
			require.True(t, ok)
			assert.Equal(t, tt.want, *point.Raw)
		})
	}
}

func TestParse_Failures(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"prose only", "I am not sure what to do next."},
		{"unterminated quote", "Action: type(content='hello)"},
		{"unterminated call", "Action: click(point='<point>1 2</point>'"},
		{"missing point", "Action: click()"},
		{"bad point", "Action: click(point='somewhere')"},
		{"bad direction", "Action: scroll(direction='sideways')"},
		{"empty hotkey", "Action: hotkey(key='  ')"},
		{"unknown only", "Action: teleport(x=1)"},
	}

	p := newTestParser()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := p.Parse(tt.text)

			assert.True(t, strings.HasPrefix(resp.ErrorMessage, ErrorMessagePrefix), resp.ErrorMessage)
			assert.Empty(t, resp.Actions)
		})
	}
}

func TestParse_ThinkAndEnvironmentTags(t *testing.T) {
	text := "<think>Need to open the menu.</think>\n<computer_env>\nAction: click(point='<point>100 200</point>')\n</computer_env>"

	resp := newTestParser().Parse(text)

	require.Empty(t, resp.ErrorMessage)
	assert.Equal(t, "Need to open the menu.", resp.ReasoningContent)
	require.Len(t, resp.Actions, 1)
	assert.Equal(t, entity.ActionClick, resp.Actions[0].Type)
}

func TestParse_AnswerTagIsFinished(t *testing.T) {
	resp := newTestParser().Parse("<think>All done.</think>\n<answer>\nThe answer is 42.\n</answer>")

	require.Empty(t, resp.ErrorMessage)
	require.Len(t, resp.Actions, 1)
	assert.Equal(t, entity.ActionFinished, resp.Actions[0].Type)
	assert.Equal(t, "The answer is 42.", resp.Actions[0].Content())
}

func TestParse_PositionalArguments(t *testing.T) {
	resp := newTestParser().Parse("Action: navigate('https://example.com')\n\nwait(2)")

	require.Empty(t, resp.ErrorMessage)
	require.Len(t, resp.Actions, 2)
	assert.Equal(t, entity.NavigateInputs{URL: "https://example.com"}, resp.Actions[0].Inputs)
	assert.Equal(t, entity.WaitInputs{Seconds: 2}, resp.Actions[1].Inputs)
}

func TestStrategy(t *testing.T) {
	fallback := newTestParser()

	t.Run("custom result wins", func(t *testing.T) {
		custom := func(string) *entity.ParsedResponse {
			return &entity.ParsedResponse{Actions: []entity.Action{{Type: entity.ActionWait, Inputs: entity.WaitInputs{}}}}
		}

		resp := NewStrategy(custom, fallback).Parse("click(point='<point>1 2</point>')")

		require.Len(t, resp.Actions, 1)
		assert.Equal(t, entity.ActionWait, resp.Actions[0].Type)
	})

	t.Run("nil falls back", func(t *testing.T) {
		calls := 0
		custom := func(string) *entity.ParsedResponse {
			calls++

			return nil
		}

		resp := NewStrategy(custom, fallback).Parse("click(point='<point>1 2</point>')")

		assert.Equal(t, 1, calls)
		require.Len(t, resp.Actions, 1)
		assert.Equal(t, entity.ActionClick, resp.Actions[0].Type)
	})

	t.Run("no custom", func(t *testing.T) {
		resp := NewStrategy(nil, fallback).Parse("wait()")

		require.Len(t, resp.Actions, 1)
	})
}

func TestParseToolCall(t *testing.T) {
	p := newTestParser()

	t.Run("grammar payload", func(t *testing.T) {
		resp := p.ParseToolCall("gui_action", `{"action":"click(point='<point>5 6</point>')","thought":"press it"}`)

		require.Empty(t, resp.ErrorMessage)
		assert.Equal(t, "press it", resp.ReasoningContent)
		require.Len(t, resp.Actions, 1)
		assert.Equal(t, entity.ActionClick, resp.Actions[0].Type)
	})

	t.Run("field payload", func(t *testing.T) {
		resp := p.ParseToolCall("scroll", `{"point":[500,600],"direction":"up"}`)

		require.Empty(t, resp.ErrorMessage)
		require.Len(t, resp.Actions, 1)

		in := resp.Actions[0].Inputs.(entity.ScrollInputs)
		assert.Equal(t, entity.DirectionUp, in.Direction)
		assert.Equal(t, entity.Point{X: 500, Y: 600}, *in.Point.Raw)
	})

	t.Run("bad json", func(t *testing.T) {
		resp := p.ParseToolCall("click", `{`)

		assert.NotEmpty(t, resp.ErrorMessage)
		assert.Empty(t, resp.Actions)
	})
}

func TestSerialize_RoundTrip(t *testing.T) {
	p := newTestParser()
	contentGen := rapid.StringMatching(`[a-zA-Z0-9 .,'"!?()\n\\]{0,40}`)

	rapid.Check(t, func(t *rapid.T) {
		x := float64(rapid.IntRange(0, 1000).Draw(t, "x"))
		y := float64(rapid.IntRange(0, 1000).Draw(t, "y"))
		content := contentGen.Draw(t, "content")

		actions := []entity.Action{
			{Type: entity.ActionClick, Inputs: entity.PointInputs{Point: entity.RawCoordinates(x, y)}},
			{Type: entity.ActionDrag, Inputs: entity.DragInputs{Start: entity.RawCoordinates(x, y), End: entity.RawCoordinates(y, x)}},
			{Type: entity.ActionTypeText, Inputs: entity.TypeInputs{Content: content}},
			{Type: entity.ActionFinished, Inputs: entity.FinishedInputs{Content: content}},
		}

		for _, want := range actions {
			resp := p.Parse(Serialize(want))

			require.Empty(t, resp.ErrorMessage, Serialize(want))
			require.Len(t, resp.Actions, 1)
			assert.Equal(t, want, resp.Actions[0])
		}
	})
}

func TestAssemblePrompt(t *testing.T) {
	types := []entity.ActionType{entity.ActionClick, entity.ActionFinished}

	prompt := AssemblePrompt("## Action Space\n"+ActionSpacePlaceholder+"\n## Note", types)

	assert.Contains(t, prompt, "click(point='<point>x1 y1</point>')")
	assert.Contains(t, prompt, "finished(content='xxx')")
	assert.NotContains(t, prompt, "scroll(")
	assert.NotContains(t, prompt, ActionSpacePlaceholder)

	appended := AssemblePrompt("You are a GUI agent.", types)
	assert.True(t, strings.HasPrefix(appended, "You are a GUI agent.\n\n## Action Space\n"))
}
