package layout

import (
	"github.com/BurntSushi/xgb/xproto"

	"github.com/tilde-wm/tilde/internal/geometry"
	"github.com/tilde-wm/tilde/internal/stack"
)

// ThreeColumn partitions the group's windows over three columns and
// stacks each column's windows vertically. One or two windows get the
// degenerate single- and two-column arrangements.
type ThreeColumn struct {
	name    string
	padding int
}

func NewThreeColumn(name string, padding int) *ThreeColumn {
	return &ThreeColumn{name: name, padding: padding}
}

func (l *ThreeColumn) Name() string {
	return l.name
}

// columnSizes splits n >= 3 windows over three columns as equally as
// possible. A remainder of 2 goes to the first two columns; a remainder
// of 1 goes to the middle column.
func columnSizes(n int) [3]int {
	base := n / 3
	switch n % 3 {
	case 2:
		return [3]int{base + 1, base + 1, base}
	default:
		return [3]int{base, base + n%3, base}
	}
}

func (l *ThreeColumn) Layout(vp geometry.Viewport, windows *stack.Stack[xproto.Window]) []Placement {
	ws := windows.Values()
	switch len(ws) {
	case 0:
		return nil
	case 1:
		return []Placement{{Window: ws[0], Region: vp}}
	case 2:
		leftWidth := (vp.Width - l.padding) / 3
		return []Placement{
			{Window: ws[0], Region: geometry.Viewport{
				X: vp.X, Y: vp.Y, Width: leftWidth, Height: vp.Height,
			}},
			{Window: ws[1], Region: geometry.Viewport{
				X:      vp.X + leftWidth + l.padding,
				Y:      vp.Y,
				Width:  vp.Width - l.padding - leftWidth,
				Height: vp.Height,
			}},
		}
	}

	sizes := columnSizes(len(ws))
	colWidth := (vp.Width - 2*l.padding) / 3
	lastWidth := vp.Width - 2*l.padding - 2*colWidth

	placements := make([]Placement, 0, len(ws))
	next := 0
	for col := 0; col < 3; col++ {
		count := sizes[col]
		if count == 0 {
			continue
		}
		x := vp.X + col*(colWidth+l.padding)
		width := colWidth
		if col == 2 {
			width = lastWidth
		}
		rowHeight := (vp.Height - (count-1)*l.padding) / count
		for row := 0; row < count; row++ {
			placements = append(placements, Placement{
				Window: ws[next],
				Region: geometry.Viewport{
					X:      x,
					Y:      vp.Y + row*(rowHeight+l.padding),
					Width:  width,
					Height: rowHeight,
				},
			})
			next++
		}
	}
	return placements
}
