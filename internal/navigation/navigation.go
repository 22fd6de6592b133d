// Package navigation picks the next window in a direction from a set of
// placed rectangles.
//
// Two policies are provided. Line only considers windows whose extent
// straddles the focused window's center line, which matches how columns
// line up under the tiling layouts. Center compares window centers
// inside a 45-degree cone, which also finds diagonal neighbours across
// outputs with unequal geometry.
package navigation

import (
	"sort"

	"github.com/tilde-wm/tilde/internal/geometry"
	"github.com/tilde-wm/tilde/internal/layout"
)

// Direction of travel on screen. Y grows downwards, per X11.
type Direction int

const (
	Up Direction = iota
	Down
	Left
	Right
)

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	case Left:
		return "left"
	default:
		return "right"
	}
}

// Policy selects the best placement in a direction relative to the
// focused rectangle, or reports that there is none. The focused
// rectangle itself is never a candidate.
type Policy interface {
	NextWindow(dir Direction, focus geometry.Viewport, windows []layout.Placement) (layout.Placement, bool)
}

// Line qualifies a candidate when its rectangle lies on the correct
// side of the focused center and its span on the perpendicular axis
// straddles that center. The nearest candidate along the travel axis
// wins.
type Line struct{}

func (Line) NextWindow(dir Direction, focus geometry.Viewport, windows []layout.Placement) (layout.Placement, bool) {
	centerX := focus.X + focus.Width/2
	centerY := focus.Y + focus.Height/2

	var candidates []layout.Placement
	for _, w := range windows {
		if w.Region == focus {
			continue
		}
		vp := w.Region
		ok := false
		switch dir {
		case Up:
			ok = vp.Y <= centerY && vp.X <= centerX && vp.X+vp.Width >= centerX
		case Down:
			ok = vp.Y >= centerY && vp.X <= centerX && vp.X+vp.Width >= centerX
		case Left:
			ok = vp.X <= centerX && vp.Y <= centerY && vp.Y+vp.Height >= centerY
		case Right:
			ok = vp.X >= centerX && vp.Y <= centerY && vp.Y+vp.Height >= centerY
		}
		if ok {
			candidates = append(candidates, w)
		}
	}
	if len(candidates) == 0 {
		return layout.Placement{}, false
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		switch dir {
		case Up, Down:
			return candidates[i].Region.Y < candidates[j].Region.Y
		default:
			return candidates[i].Region.X < candidates[j].Region.X
		}
	})
	switch dir {
	case Up, Left:
		return candidates[len(candidates)-1], true
	default:
		return candidates[0], true
	}
}

// Center compares window centers. Every direction is normalized to a
// rightward comparison by rotating the delta between candidate center
// and focus center; a candidate qualifies when it lies strictly ahead
// and within a 45-degree cone. The nearest candidate by Manhattan
// distance wins, ties going to the one less far ahead.
type Center struct{}

func (Center) NextWindow(dir Direction, focus geometry.Viewport, windows []layout.Placement) (layout.Placement, bool) {
	focusX := focus.X + focus.Width/2
	focusY := focus.Y + focus.Height/2

	var best layout.Placement
	bestDist, bestAhead := 0, 0
	found := false
	for _, w := range windows {
		if w.Region == focus {
			continue
		}
		dx := w.Region.X + w.Region.Width/2 - focusX
		dy := w.Region.Y + w.Region.Height/2 - focusY

		var ahead, aside int
		switch dir {
		case Right:
			ahead, aside = dx, dy
		case Left:
			ahead, aside = -dx, dy
		case Down:
			ahead, aside = dy, dx
		case Up:
			ahead, aside = -dy, dx
		}
		if ahead <= 0 || abs(aside) > ahead {
			continue
		}
		dist := abs(dx) + abs(dy)
		if !found || dist < bestDist || (dist == bestDist && ahead < bestAhead) {
			best, bestDist, bestAhead, found = w, dist, ahead, true
		}
	}
	return best, found
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
