package layout

import (
	"github.com/BurntSushi/xgb/xproto"

	"github.com/tilde-wm/tilde/internal/geometry"
	"github.com/tilde-wm/tilde/internal/stack"
)

// TiledLayout gives every window an equal-width column, full height,
// with padding between and around the columns.
type TiledLayout struct {
	name    string
	padding int
}

func NewTiledLayout(name string, padding int) *TiledLayout {
	return &TiledLayout{name: name, padding: padding}
}

func (l *TiledLayout) Name() string {
	return l.name
}

func (l *TiledLayout) Layout(vp geometry.Viewport, windows *stack.Stack[xproto.Window]) []Placement {
	n := windows.Len()
	if n == 0 {
		return nil
	}
	tileWidth := (vp.Width-l.padding)/n - l.padding
	placements := make([]Placement, 0, n)
	for i, w := range windows.Values() {
		placements = append(placements, Placement{
			Window: w,
			Region: geometry.Viewport{
				X:      vp.X + l.padding + i*(tileWidth+l.padding),
				Y:      vp.Y + l.padding,
				Width:  tileWidth,
				Height: vp.Height - 2*l.padding,
			},
		})
	}
	return placements
}
