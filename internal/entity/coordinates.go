package entity

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Coordinates struct {
	Raw        *Point `json:"raw,omitempty"`
	Normalized *Point `json:"normalized,omitempty"`
}

func RawCoordinates(x, y float64) Coordinates {
	return Coordinates{Raw: &Point{X: x, Y: y}}
}

func NormalizedCoordinates(x, y float64) Coordinates {
	return Coordinates{Normalized: &Point{X: x, Y: y}}
}

func (c Coordinates) IsEmpty() bool {
	return c.Raw == nil && c.Normalized == nil
}

type ScreenContext struct {
	ScreenWidth  int     `json:"screenWidth"`
	ScreenHeight int     `json:"screenHeight"`
	ScaleX       float64 `json:"scaleX"`
	ScaleY       float64 `json:"scaleY"`
}

func (s ScreenContext) WithViewport(size Size) ScreenContext {
	s.ScreenWidth = size.Width
	s.ScreenHeight = size.Height

	return s
}
