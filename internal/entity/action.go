package entity

import (
	"encoding/json"
	"fmt"
)

type ActionType string

const (
	ActionClick        ActionType = "click"
	ActionDoubleClick  ActionType = "double_click"
	ActionRightClick   ActionType = "right_click"
	ActionMiddleClick  ActionType = "middle_click"
	ActionMouseMove    ActionType = "mouse_move"
	ActionMouseDown    ActionType = "mouse_down"
	ActionMouseUp      ActionType = "mouse_up"
	ActionDrag         ActionType = "drag"
	ActionScroll       ActionType = "scroll"
	ActionTypeText     ActionType = "type"
	ActionHotkey       ActionType = "hotkey"
	ActionPress        ActionType = "press"
	ActionRelease      ActionType = "release"
	ActionNavigate     ActionType = "navigate"
	ActionNavigateBack ActionType = "navigate_back"
	ActionLongPress    ActionType = "long_press"
	ActionPressHome    ActionType = "press_home"
	ActionPressBack    ActionType = "press_back"
	ActionOpenApp      ActionType = "open_app"
	ActionWait         ActionType = "wait"
	ActionCallUser     ActionType = "call_user"
	ActionFinished     ActionType = "finished"
)

// IsTerminal reports whether the action ends the run instead of touching the backend.
func (t ActionType) IsTerminal() bool {
	return t == ActionFinished
}

type Direction string

const (
	DirectionUp    Direction = "up"
	DirectionDown  Direction = "down"
	DirectionLeft  Direction = "left"
	DirectionRight Direction = "right"
)

func ParseDirection(s string) (Direction, bool) {
	switch d := Direction(s); d {
	case DirectionUp, DirectionDown, DirectionLeft, DirectionRight:
		return d, true
	default:
		return "", false
	}
}

type MouseButton string

const (
	ButtonLeft   MouseButton = "left"
	ButtonRight  MouseButton = "right"
	ButtonMiddle MouseButton = "middle"
)

// Inputs is the closed set of per-type action payloads.
type Inputs interface {
	inputs()
}

type PointInputs struct {
	Point Coordinates `json:"point"`
}

type ButtonInputs struct {
	Point  *Coordinates `json:"point,omitempty"`
	Button MouseButton  `json:"button,omitempty"`
}

type DragInputs struct {
	Start Coordinates `json:"start"`
	End   Coordinates `json:"end"`
}

type ScrollInputs struct {
	Point     *Coordinates `json:"point,omitempty"`
	Direction Direction    `json:"direction"`
}

type TypeInputs struct {
	Content string `json:"content"`
}

type KeyInputs struct {
	Key string `json:"key"`
}

type NavigateInputs struct {
	URL string `json:"url"`
}

type WaitInputs struct {
	// Seconds is zero when the backend default applies.
	Seconds float64 `json:"time,omitempty"`
}

type AppInputs struct {
	AppName string `json:"app_name"`
}

type FinishedInputs struct {
	Content string `json:"content"`
}

type NoInputs struct{}

func (PointInputs) inputs()    {}
func (ButtonInputs) inputs()   {}
func (DragInputs) inputs()     {}
func (ScrollInputs) inputs()   {}
func (TypeInputs) inputs()     {}
func (KeyInputs) inputs()      {}
func (NavigateInputs) inputs() {}
func (WaitInputs) inputs()     {}
func (AppInputs) inputs()      {}
func (FinishedInputs) inputs() {}
func (NoInputs) inputs()       {}

type Action struct {
	Type   ActionType
	Inputs Inputs
}

func (a Action) MarshalJSON() ([]byte, error) {
	inputs := a.Inputs
	if inputs == nil {
		inputs = NoInputs{}
	}

	return json.Marshal(struct {
		Type   ActionType `json:"type"`
		Inputs Inputs     `json:"inputs"`
	}{
		Type:   a.Type,
		Inputs: inputs,
	})
}

func (a Action) String() string {
	return fmt.Sprintf("%s%+v", a.Type, a.Inputs)
}

// Point returns the primary target point of pointer actions.
func (a Action) Point() (*Coordinates, bool) {
	switch in := a.Inputs.(type) {
	case PointInputs:
		return &in.Point, true
	case ButtonInputs:
		return in.Point, in.Point != nil
	case ScrollInputs:
		return in.Point, in.Point != nil
	case DragInputs:
		return &in.Start, true
	default:
		return nil, false
	}
}

// Content returns the text carried by type and finished actions.
func (a Action) Content() string {
	switch in := a.Inputs.(type) {
	case TypeInputs:
		return in.Content
	case FinishedInputs:
		return in.Content
	default:
		return ""
	}
}

type ParsedResponse struct {
	ReasoningContent string
	Actions          []Action
	ErrorMessage     string
}

func (r *ParsedResponse) Failed() bool {
	return r.ErrorMessage != ""
}

type ExecuteParams struct {
	Actions          []Action
	ReasoningContent string
}

type OutputStatus string

const (
	StatusSuccess  OutputStatus = "success"
	StatusError    OutputStatus = "error"
	StatusEnd      OutputStatus = "end"
	StatusCallUser OutputStatus = "call_user"
)

type ExecuteOutput struct {
	Status       OutputStatus
	ErrorMessage string
}

type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type ScreenshotOutput struct {
	Status OutputStatus
	Base64 string
	// URL is set only by browser-like backends.
	URL string
	// Viewport is set when the backend viewport may change between turns.
	Viewport *Size
}
