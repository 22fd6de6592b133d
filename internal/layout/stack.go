package layout

import (
	"github.com/BurntSushi/xgb/xproto"

	"github.com/tilde-wm/tilde/internal/geometry"
	"github.com/tilde-wm/tilde/internal/stack"
)

// StackLayout shows only the focused window, full-screen minus padding.
// Every other window in the group is hidden.
type StackLayout struct {
	name    string
	padding int
}

func NewStackLayout(name string, padding int) *StackLayout {
	return &StackLayout{name: name, padding: padding}
}

func (l *StackLayout) Name() string {
	return l.name
}

func (l *StackLayout) Layout(vp geometry.Viewport, windows *stack.Stack[xproto.Window]) []Placement {
	focused, ok := windows.Focused()
	if !ok {
		return nil
	}
	return []Placement{{
		Window: focused,
		Region: geometry.Viewport{
			X:      vp.X + l.padding,
			Y:      vp.Y + l.padding,
			Width:  vp.Width - 2*l.padding,
			Height: vp.Height - 2*l.padding,
		},
	}}
}
