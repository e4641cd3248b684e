// Package geometry holds the pixel-space primitives shared by the view tree
// and the orientation transform.
package geometry

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"

	"github.com/hpungsan/hdcview/internal/errors"
)

// boundsPattern matches "[x0,y0][x1,y1]" and nothing else.
var boundsPattern = regexp.MustCompile(`^\[(\d+),(\d+)\]\[(\d+),(\d+)\]$`)

// Point is a coordinate pair in device pixels.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Rect is an on-screen rectangle given by its top-left and bottom-right corners.
type Rect struct {
	Min Point
	Max Point
}

// Size is the derived width and height of a Rect.
type Size struct {
	Width  int
	Height int
}

// ParseBounds parses a bounds string of the form "[x0,y0][x1,y1]".
// Corner ordering is not validated.
func ParseBounds(raw string) (Rect, error) {
	m := boundsPattern.FindStringSubmatch(raw)
	if m == nil {
		return Rect{}, errors.NewMalformedBounds(raw)
	}

	var n [4]int
	for i := range n {
		v, err := strconv.Atoi(m[i+1])
		if err != nil {
			// digits that overflow int
			return Rect{}, errors.NewMalformedBounds(raw)
		}
		n[i] = v
	}

	return Rect{
		Min: Point{X: n[0], Y: n[1]},
		Max: Point{X: n[2], Y: n[3]},
	}, nil
}

// Size returns the rectangle's dimensions. A rectangle whose corners are
// reversed yields negative dimensions.
func (r Rect) Size() Size {
	return Size{
		Width:  r.Max.X - r.Min.X,
		Height: r.Max.Y - r.Min.Y,
	}
}

// Center returns the midpoint of the rectangle, rounded down.
func (r Rect) Center() Point {
	return Point{
		X: (r.Min.X + r.Max.X) / 2,
		Y: (r.Min.Y + r.Max.Y) / 2,
	}
}

// String renders the rectangle in bounds notation.
func (r Rect) String() string {
	return fmt.Sprintf("[%d,%d][%d,%d]", r.Min.X, r.Min.Y, r.Max.X, r.Max.Y)
}

// MarshalJSON encodes the rectangle as [[x0,y0],[x1,y1]].
func (r Rect) MarshalJSON() ([]byte, error) {
	return json.Marshal([2][2]int{
		{r.Min.X, r.Min.Y},
		{r.Max.X, r.Max.Y},
	})
}

// UnmarshalJSON decodes the [[x0,y0],[x1,y1]] form.
func (r *Rect) UnmarshalJSON(data []byte) error {
	var corners [2][2]int
	if err := json.Unmarshal(data, &corners); err != nil {
		return err
	}
	r.Min = Point{X: corners[0][0], Y: corners[0][1]}
	r.Max = Point{X: corners[1][0], Y: corners[1][1]}
	return nil
}

// String renders the size as "W*H".
func (s Size) String() string {
	return fmt.Sprintf("%d*%d", s.Width, s.Height)
}
