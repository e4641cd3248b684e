package display

import (
	"github.com/hpungsan/hdcview/internal/errors"
	"github.com/hpungsan/hdcview/internal/geometry"
)

// Transform maps p, authored in orientation from, into orientation to using
// the current display dimensions.
//
// Only the two axis-swapping destinations are corrected: into 1 the point
// becomes (W-y, x) and into 3 it becomes (y, H-x). Every other pair of
// differing orientations, such as 0 to 2, passes the point through as is.
func Transform(p geometry.Point, from, to int, info Info) (geometry.Point, error) {
	if from == to {
		return p, nil
	}

	switch to {
	case 1:
		if info.Width == nil {
			return geometry.Point{}, errors.NewDisplayUnavailable("width")
		}
		return geometry.Point{X: *info.Width - p.Y, Y: p.X}, nil
	case 3:
		if info.Height == nil {
			return geometry.Point{}, errors.NewDisplayUnavailable("height")
		}
		return geometry.Point{X: p.Y, Y: *info.Height - p.X}, nil
	}

	return p, nil
}
