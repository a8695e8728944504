package valueobjects

import "fmt"

// Rect is a grid-cell rectangle: position (X, Y) plus footprint (W, H).
// Coordinates are column/row indices, not pixels; the frontend converts
// using the active breakpoint's column width.
type Rect struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// NewRect creates a validated Rect
func NewRect(x, y, w, h int) (Rect, error) {
	r := Rect{X: x, Y: y, W: w, H: h}
	if err := r.Validate(); err != nil {
		return Rect{}, err
	}
	return r, nil
}

// Validate checks the coordinate and footprint bounds
func (r Rect) Validate() error {
	if r.X < 0 || r.Y < 0 {
		return fmt.Errorf("rect position must be non-negative, got (%d,%d)", r.X, r.Y)
	}
	if r.W < 1 || r.H < 1 {
		return fmt.Errorf("rect footprint must be at least 1x1, got %dx%d", r.W, r.H)
	}
	return nil
}

// Bottom returns the first row below the rectangle
func (r Rect) Bottom() int {
	return r.Y + r.H
}

// Right returns the first column to the right of the rectangle
func (r Rect) Right() int {
	return r.X + r.W
}

// Overlaps reports whether two rectangles share any grid cell
func (r Rect) Overlaps(other Rect) bool {
	if r.Right() <= other.X || other.Right() <= r.X {
		return false
	}
	if r.Bottom() <= other.Y || other.Bottom() <= r.Y {
		return false
	}
	return true
}

// Equals checks if two rectangles are identical
func (r Rect) Equals(other Rect) bool {
	return r == other
}

// ClampToColumns narrows and shifts the rectangle so it fits a grid with
// the given column count. Width shrinks before position moves so a widget
// dragged on a wide screen stays visible on a narrow one.
func (r Rect) ClampToColumns(columns int) Rect {
	out := r
	if out.W > columns {
		out.W = columns
	}
	if out.Right() > columns {
		out.X = columns - out.W
	}
	if out.X < 0 {
		out.X = 0
	}
	return out
}
