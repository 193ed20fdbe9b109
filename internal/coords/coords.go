package coords

import (
	"errors"
	"fmt"
	"gui-agent/internal/entity"
	"gui-agent/pkg/apperr"
)

const DefaultDivisor = 1000.0

const (
	DetailLow  = "low"
	DetailHigh = "high"
	DetailAuto = "auto"
)

var ErrInvalidCoordinates = errors.New("invalid coordinates")

// Normalizer maps model-space points onto fractions of the screen.
type Normalizer struct {
	DivisorX float64
	DivisorY float64
}

func New(divisor float64) Normalizer {
	if divisor <= 0 {
		divisor = DefaultDivisor
	}

	return Normalizer{DivisorX: divisor, DivisorY: divisor}
}

func (n Normalizer) Normalize(c entity.Coordinates) entity.Coordinates {
	if c.Raw == nil {
		return c
	}

	raw := *c.Raw

	return entity.Coordinates{
		Raw: &raw,
		Normalized: &entity.Point{
			X: raw.X / n.DivisorX,
			Y: raw.Y / n.DivisorY,
		},
	}
}

// NormalizeAction returns a copy of a with every coordinate field normalized.
func (n Normalizer) NormalizeAction(a entity.Action) entity.Action {
	switch in := a.Inputs.(type) {
	case entity.PointInputs:
		in.Point = n.Normalize(in.Point)
		a.Inputs = in
	case entity.ButtonInputs:
		in.Point = n.normalizePtr(in.Point)
		a.Inputs = in
	case entity.ScrollInputs:
		in.Point = n.normalizePtr(in.Point)
		a.Inputs = in
	case entity.DragInputs:
		in.Start = n.Normalize(in.Start)
		in.End = n.Normalize(in.End)
		a.Inputs = in
	}

	return a
}

func (n Normalizer) normalizePtr(c *entity.Coordinates) *entity.Coordinates {
	if c == nil {
		return nil
	}

	normalized := n.Normalize(*c)

	return &normalized
}

// ToReal resolves the backend pixel a coordinate points at.
// A non-positive scale is treated as 1.
func ToReal(c entity.Coordinates, screen entity.ScreenContext) (entity.Point, error) {
	const op = "coords.ToReal"

	if c.Normalized != nil {
		return entity.Point{
			X: c.Normalized.X * float64(screen.ScreenWidth) * scale(screen.ScaleX),
			Y: c.Normalized.Y * float64(screen.ScreenHeight) * scale(screen.ScaleY),
		}, nil
	}

	if c.Raw != nil {
		return *c.Raw, nil
	}

	return entity.Point{}, apperr.Wrap(op, apperr.CodeInvalidCoordinates, ErrInvalidCoordinates, map[string]any{
		apperr.MetaReason: "missing_raw_and_normalized",
		apperr.MetaStage:  apperr.StageNormalize,
	})
}

func scale(s float64) float64 {
	if s <= 0 {
		return 1
	}

	return s
}

// Validate fails when a required coordinate field has neither raw nor normalized set.
func Validate(a entity.Action) error {
	const op = "coords.Validate"

	check := func(field string, c *entity.Coordinates) error {
		if c != nil && !c.IsEmpty() {
			return nil
		}

		return apperr.Wrap(op, apperr.CodeInvalidCoordinates,
			fmt.Errorf("%w: %s.%s", ErrInvalidCoordinates, a.Type, field),
			map[string]any{
				apperr.MetaField:  field,
				apperr.MetaAction: string(a.Type),
				apperr.MetaStage:  apperr.StageNormalize,
			})
	}

	switch in := a.Inputs.(type) {
	case entity.PointInputs:
		return check("point", &in.Point)
	case entity.DragInputs:
		if err := check("start", &in.Start); err != nil {
			return err
		}

		return check("end", &in.End)
	case entity.ButtonInputs:
		if in.Point != nil {
			return check("point", in.Point)
		}
	case entity.ScrollInputs:
		if in.Point != nil {
			return check("point", in.Point)
		}
	}

	return nil
}

// DetailFor picks the image detail hint sent along with a screenshot.
func DetailFor(width, height int) string {
	pixels := width * height

	switch {
	case pixels <= 1024*1024:
		return DetailLow
	case pixels <= 2048*1960:
		return DetailHigh
	default:
		return DetailAuto
	}
}
