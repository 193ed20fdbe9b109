package coords

import (
	"gui-agent/internal/entity"
)

// ToUIAction converts a normalized action into the percent-based shape rendered by front-ends.
func ToUIAction(a entity.Action) *entity.UIAction {
	ui := &entity.UIAction{Type: a.Type}

	switch in := a.Inputs.(type) {
	case entity.PointInputs:
		ui.StartX, ui.StartY = percent(&in.Point)
	case entity.ButtonInputs:
		ui.StartX, ui.StartY = percent(in.Point)
	case entity.DragInputs:
		ui.StartX, ui.StartY = percent(&in.Start)
		ui.EndX, ui.EndY = percent(&in.End)
	case entity.ScrollInputs:
		ui.StartX, ui.StartY = percent(in.Point)
		ui.Direction = in.Direction
	case entity.TypeInputs:
		ui.Content = in.Content
	case entity.FinishedInputs:
		ui.Content = in.Content
	case entity.KeyInputs:
		ui.Key = in.Key
	case entity.NavigateInputs:
		ui.URL = in.URL
	}

	return ui
}

func percent(c *entity.Coordinates) (*float64, *float64) {
	if c == nil || c.Normalized == nil {
		return nil, nil
	}

	x := c.Normalized.X * 100
	y := c.Normalized.Y * 100

	return &x, &y
}
