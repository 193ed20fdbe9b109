package parser

import (
	"fmt"
	"gui-agent/internal/entity"
	"strconv"
	"strings"
)

const ActionSpacePlaceholder = "{{action_space}}"

// Serialize renders an action back into the call grammar for conversation history.
func Serialize(a entity.Action) string {
	switch in := a.Inputs.(type) {
	case entity.PointInputs:
		return fmt.Sprintf("%s(point='%s')", a.Type, formatPoint(in.Point))
	case entity.ButtonInputs:
		var args []string
		if in.Point != nil {
			args = append(args, fmt.Sprintf("point='%s'", formatPoint(*in.Point)))
		}

		if in.Button != "" {
			args = append(args, fmt.Sprintf("button='%s'", in.Button))
		}

		return fmt.Sprintf("%s(%s)", a.Type, strings.Join(args, ", "))
	case entity.DragInputs:
		return fmt.Sprintf("%s(start_point='%s', end_point='%s')", a.Type, formatPoint(in.Start), formatPoint(in.End))
	case entity.ScrollInputs:
		if in.Point == nil {
			return fmt.Sprintf("%s(direction='%s')", a.Type, in.Direction)
		}

		return fmt.Sprintf("%s(point='%s', direction='%s')", a.Type, formatPoint(*in.Point), in.Direction)
	case entity.TypeInputs:
		return fmt.Sprintf("%s(content='%s')", a.Type, escape(in.Content))
	case entity.KeyInputs:
		return fmt.Sprintf("%s(key='%s')", a.Type, escape(in.Key))
	case entity.NavigateInputs:
		return fmt.Sprintf("%s(url='%s')", a.Type, escape(in.URL))
	case entity.WaitInputs:
		if in.Seconds == 0 {
			return fmt.Sprintf("%s()", a.Type)
		}

		return fmt.Sprintf("%s(time='%s')", a.Type, strconv.FormatFloat(in.Seconds, 'f', -1, 64))
	case entity.AppInputs:
		return fmt.Sprintf("%s(app_name='%s')", a.Type, escape(in.AppName))
	case entity.FinishedInputs:
		return fmt.Sprintf("%s(content='%s')", a.Type, escape(in.Content))
	default:
		return fmt.Sprintf("%s()", a.Type)
	}
}

func formatPoint(c entity.Coordinates) string {
	p := c.Raw
	if p == nil {
		p = c.Normalized
	}

	if p == nil {
		return ""
	}

	return fmt.Sprintf("<point>%s %s</point>",
		strconv.FormatFloat(p.X, 'f', -1, 64),
		strconv.FormatFloat(p.Y, 'f', -1, 64))
}

var escaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`, "\n", `\n`)

func escape(s string) string {
	return escaper.Replace(s)
}

var actionGrammar = map[entity.ActionType]string{
	entity.ActionClick:        "click(point='<point>x1 y1</point>')",
	entity.ActionDoubleClick:  "double_click(point='<point>x1 y1</point>')",
	entity.ActionRightClick:   "right_click(point='<point>x1 y1</point>')",
	entity.ActionMiddleClick:  "middle_click(point='<point>x1 y1</point>')",
	entity.ActionMouseMove:    "mouse_move(point='<point>x1 y1</point>') # Move the pointer without clicking.",
	entity.ActionMouseDown:    "mouse_down(point='<point>x1 y1</point>', button='left') # Press a mouse button and keep it held.",
	entity.ActionMouseUp:      "mouse_up(point='<point>x1 y1</point>', button='left') # Release a held mouse button.",
	entity.ActionDrag:         "drag(start_point='<point>x1 y1</point>', end_point='<point>x2 y2</point>')",
	entity.ActionScroll:       "scroll(point='<point>x1 y1</point>', direction='down or up or right or left') # Show more information on the `direction` side.",
	entity.ActionTypeText:     `type(content='xxx') # Use escape characters \', \", and \n in content part to ensure we can parse the content in normal python string format. If you want to submit your input, use \n at the end of content.`,
	entity.ActionHotkey:       "hotkey(key='ctrl c') # Split keys with a space and use lowercase. Also, do not use more than 3 keys in one hotkey action.",
	entity.ActionPress:        "press(key='enter') # Press a single key.",
	entity.ActionRelease:      "release(key='shift') # Release a key that is held down.",
	entity.ActionNavigate:     "navigate(url='xxx') # Open the url in the current page.",
	entity.ActionNavigateBack: "navigate_back() # Go back to the previous page.",
	entity.ActionLongPress:    "long_press(point='<point>x1 y1</point>')",
	entity.ActionPressHome:    "press_home()",
	entity.ActionPressBack:    "press_back()",
	entity.ActionOpenApp:      "open_app(app_name='')",
	entity.ActionWait:         "wait() # Sleep for a few seconds and take a screenshot to check for any changes.",
	entity.ActionCallUser:     "call_user() # Submit the task and call the user when the task is unsolvable, or when you need the user's help.",
	entity.ActionFinished:     `finished(content='xxx') # Use escape characters \', \", and \n in content part to ensure we can parse the content in normal python string format.`,
}

// ActionSpace renders the grammar lines for the given action types in order.
func ActionSpace(types []entity.ActionType) string {
	lines := make([]string, 0, len(types))

	for _, t := range types {
		if line, ok := actionGrammar[t]; ok {
			lines = append(lines, line)
		}
	}

	return strings.Join(lines, "\n")
}

// AssemblePrompt substitutes the action space into template. Without a placeholder
// the action space is appended.
func AssemblePrompt(template string, types []entity.ActionType) string {
	space := ActionSpace(types)

	if strings.Contains(template, ActionSpacePlaceholder) {
		return strings.ReplaceAll(template, ActionSpacePlaceholder, space)
	}

	return strings.TrimRight(template, "\n") + "\n\n## Action Space\n" + space + "\n"
}
