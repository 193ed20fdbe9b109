package parser

import (
	"fmt"
	"gui-agent/internal/entity"
	"slices"
	"strconv"
	"strings"
)

var typeAliases = map[string]entity.ActionType{
	"click":           entity.ActionClick,
	"left_click":      entity.ActionClick,
	"left_single":     entity.ActionClick,
	"tap":             entity.ActionClick,
	"double_click":    entity.ActionDoubleClick,
	"left_double":     entity.ActionDoubleClick,
	"right_click":     entity.ActionRightClick,
	"right_single":    entity.ActionRightClick,
	"middle_click":    entity.ActionMiddleClick,
	"mouse_move":      entity.ActionMouseMove,
	"move_to":         entity.ActionMouseMove,
	"move":            entity.ActionMouseMove,
	"hover":           entity.ActionMouseMove,
	"mouse_down":      entity.ActionMouseDown,
	"mouse_up":        entity.ActionMouseUp,
	"drag":            entity.ActionDrag,
	"select":          entity.ActionDrag,
	"swipe":           entity.ActionDrag,
	"left_click_drag": entity.ActionDrag,
	"scroll":          entity.ActionScroll,
	"type":            entity.ActionTypeText,
	"hotkey":          entity.ActionHotkey,
	"press":           entity.ActionPress,
	"release":         entity.ActionRelease,
	"navigate":        entity.ActionNavigate,
	"open_url":        entity.ActionNavigate,
	"goto":            entity.ActionNavigate,
	"navigate_back":   entity.ActionNavigateBack,
	"go_back":         entity.ActionNavigateBack,
	"long_press":      entity.ActionLongPress,
	"press_home":      entity.ActionPressHome,
	"press_back":      entity.ActionPressBack,
	"open_app":        entity.ActionOpenApp,
	"wait":            entity.ActionWait,
	"call_user":       entity.ActionCallUser,
	"finished":        entity.ActionFinished,
}

// CanonicalType folds an action name and its aliases onto the canonical vocabulary.
func CanonicalType(name string) (entity.ActionType, bool) {
	t, ok := typeAliases[strings.ToLower(strings.TrimSpace(name))]

	return t, ok
}

type field struct {
	name    string
	aliases []string
}

var (
	pointField     = field{"point", []string{"point", "start_box", "start_point", "box", "coordinate", "coordinates", "position"}}
	startField     = field{"start", []string{"start", "start_point", "start_box", "from"}}
	endField       = field{"end", []string{"end", "end_point", "end_box", "to"}}
	directionField = field{"direction", []string{"direction"}}
	contentField   = field{"content", []string{"content", "text", "value", "answer"}}
	keyField       = field{"key", []string{"key", "keys", "hotkey"}}
	urlField       = field{"url", []string{"url", "link", "href"}}
	timeField      = field{"time", []string{"time", "seconds", "duration"}}
	appField       = field{"app_name", []string{"app_name", "app", "name", "package"}}
	buttonField    = field{"button", []string{"button"}}
)

// fields lists each type's arguments in positional order.
var fields = map[entity.ActionType][]field{
	entity.ActionClick:       {pointField},
	entity.ActionDoubleClick: {pointField},
	entity.ActionRightClick:  {pointField},
	entity.ActionMiddleClick: {pointField},
	entity.ActionMouseMove:   {pointField},
	entity.ActionLongPress:   {pointField},
	entity.ActionMouseDown:   {pointField, buttonField},
	entity.ActionMouseUp:     {pointField, buttonField},
	entity.ActionDrag:        {startField, endField},
	entity.ActionScroll:      {pointField, directionField},
	entity.ActionTypeText:    {contentField},
	entity.ActionHotkey:      {keyField},
	entity.ActionPress:       {keyField},
	entity.ActionRelease:     {keyField},
	entity.ActionNavigate:    {urlField},
	entity.ActionWait:        {timeField},
	entity.ActionOpenApp:     {appField},
	entity.ActionFinished:    {contentField},
}

func resolveArgs(typ entity.ActionType, args []roughArg) map[string]string {
	known := fields[typ]
	out := make(map[string]string, len(known))
	positional := 0

	for _, arg := range args {
		if arg.key == "" {
			if positional < len(known) {
				if _, taken := out[known[positional].name]; !taken {
					out[known[positional].name] = arg.value
				}
			}

			positional++

			continue
		}

		for _, f := range known {
			if slices.Contains(f.aliases, arg.key) {
				out[f.name] = arg.value

				break
			}
		}
	}

	return out
}

// standardize maps one rough call onto a canonical action, enforcing per-type required fields.
func standardize(call roughCall) (entity.Action, error) {
	typ, ok := CanonicalType(call.name)
	if !ok {
		return entity.Action{}, fmt.Errorf("unknown action %q", call.name)
	}

	args := resolveArgs(typ, call.args)
	action := entity.Action{Type: typ}

	switch typ {
	case entity.ActionClick, entity.ActionDoubleClick, entity.ActionRightClick, entity.ActionMiddleClick,
		entity.ActionMouseMove, entity.ActionLongPress:
		point, err := requirePoint(typ, args, pointField.name)
		if err != nil {
			return entity.Action{}, err
		}

		action.Inputs = entity.PointInputs{Point: point}
	case entity.ActionMouseDown, entity.ActionMouseUp:
		point, err := optionalPoint(args, pointField.name)
		if err != nil {
			return entity.Action{}, err
		}

		action.Inputs = entity.ButtonInputs{Point: point, Button: entity.MouseButton(strings.ToLower(args[buttonField.name]))}
	case entity.ActionDrag:
		start, err := requirePoint(typ, args, startField.name)
		if err != nil {
			return entity.Action{}, err
		}

		end, err := requirePoint(typ, args, endField.name)
		if err != nil {
			return entity.Action{}, err
		}

		action.Inputs = entity.DragInputs{Start: start, End: end}
	case entity.ActionScroll:
		point, err := optionalPoint(args, pointField.name)
		if err != nil {
			return entity.Action{}, err
		}

		direction, ok := entity.ParseDirection(strings.ToLower(strings.TrimSpace(args[directionField.name])))
		if !ok {
			return entity.Action{}, fmt.Errorf("scroll requires direction up, down, left or right, got %q", args[directionField.name])
		}

		action.Inputs = entity.ScrollInputs{Point: point, Direction: direction}
	case entity.ActionTypeText:
		content, ok := args[contentField.name]
		if !ok {
			return entity.Action{}, fmt.Errorf("type requires content")
		}

		action.Inputs = entity.TypeInputs{Content: content}
	case entity.ActionHotkey, entity.ActionPress, entity.ActionRelease:
		key := strings.TrimSpace(args[keyField.name])
		if key == "" {
			return entity.Action{}, fmt.Errorf("%s requires key", typ)
		}

		action.Inputs = entity.KeyInputs{Key: key}
	case entity.ActionNavigate:
		url := strings.TrimSpace(args[urlField.name])
		if url == "" {
			return entity.Action{}, fmt.Errorf("navigate requires url")
		}

		action.Inputs = entity.NavigateInputs{URL: url}
	case entity.ActionWait:
		var seconds float64

		if raw := strings.TrimSpace(args[timeField.name]); raw != "" {
			v, err := strconv.ParseFloat(strings.TrimSuffix(raw, "s"), 64)
			if err != nil || v < 0 {
				return entity.Action{}, fmt.Errorf("wait time %q is not a duration in seconds", raw)
			}

			seconds = v
		}

		action.Inputs = entity.WaitInputs{Seconds: seconds}
	case entity.ActionOpenApp:
		app := strings.TrimSpace(args[appField.name])
		if app == "" {
			return entity.Action{}, fmt.Errorf("open_app requires app_name")
		}

		action.Inputs = entity.AppInputs{AppName: app}
	case entity.ActionFinished:
		action.Inputs = entity.FinishedInputs{Content: args[contentField.name]}
	default:
		action.Inputs = entity.NoInputs{}
	}

	return action, nil
}

func requirePoint(typ entity.ActionType, args map[string]string, name string) (entity.Coordinates, error) {
	raw, ok := args[name]
	if !ok || strings.TrimSpace(raw) == "" {
		return entity.Coordinates{}, fmt.Errorf("%s requires %s", typ, name)
	}

	point, err := parsePoint(raw)
	if err != nil {
		return entity.Coordinates{}, fmt.Errorf("%s %s: %w", typ, name, err)
	}

	return point, nil
}

func optionalPoint(args map[string]string, name string) (*entity.Coordinates, error) {
	raw, ok := args[name]
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	point, err := parsePoint(raw)
	if err != nil {
		return nil, err
	}

	return &point, nil
}
