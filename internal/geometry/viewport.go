// Package geometry holds the rectangle and reserved-margin math used to
// carve usable screen area out of output geometry.
package geometry

// Viewport is a pixel rectangle. It is a plain value with no identity.
type Viewport struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Strut describes the screen-edge space reserved by a dock window, per
// _NET_WM_STRUT_PARTIAL: a margin on each edge plus the coordinate range
// along the perpendicular axis for which the margin is valid.
type Strut struct {
	Left   int
	Right  int
	Top    int
	Bottom int

	LeftStartY   int
	LeftEndY     int
	RightStartY  int
	RightEndY    int
	TopStartX    int
	TopEndX      int
	BottomStartX int
	BottomEndX   int
}

// WithoutStrut returns the viewport shrunk by the strut. screenWidth and
// screenHeight are the dimensions of the whole screen (the bounding
// extent of all outputs): the right and bottom margins are measured from
// those edges. Each margin applies only when the strut's extent along
// the perpendicular axis falls within the viewport's span on that axis,
// so a dock on one output does not shrink the others.
func (v Viewport) WithoutStrut(screenWidth, screenHeight int, s Strut) Viewport {
	left := v.X
	right := v.X + v.Width
	top := v.Y
	bottom := v.Y + v.Height
	if s.Left > 0 && s.LeftStartY >= top && s.LeftEndY <= bottom {
		left = max(left, s.Left)
	}
	if s.Right > 0 && s.RightStartY >= top && s.RightEndY <= bottom {
		right = min(right, screenWidth-s.Right)
	}
	if s.Top > 0 && s.TopStartX >= left && s.TopEndX <= right {
		top = max(top, s.Top)
	}
	if s.Bottom > 0 && s.BottomStartX >= left && s.BottomEndX <= right {
		bottom = min(bottom, screenHeight-s.Bottom)
	}
	return Viewport{
		X:      left,
		Y:      top,
		Width:  right - left,
		Height: bottom - top,
	}
}
