package wm

import (
	"github.com/BurntSushi/xgb/xproto"

	"github.com/tilde-wm/tilde/internal/layout"
)

// Group is a named workspace: an active layout and, when the group has
// windows, a focused window. Groups are created once at startup and
// live for the whole process; the manager owns which windows belong to
// which group.
type Group struct {
	name     string
	layoutID int
	focused  xproto.Window
	hasFocus bool
}

// NewGroup resolves defaultLayout by name against the shared layout
// list, falling back to the first layout when the name is unknown.
func NewGroup(name, defaultLayout string, layouts []layout.Layout) *Group {
	layoutID := 0
	for i, l := range layouts {
		if l.Name() == defaultLayout {
			layoutID = i
			break
		}
	}
	return &Group{name: name, layoutID: layoutID}
}

func (g *Group) Name() string {
	return g.name
}

// Focused returns the group's focused window, if the group has one.
func (g *Group) Focused() (xproto.Window, bool) {
	return g.focused, g.hasFocus
}

func (g *Group) setFocus(w xproto.Window) {
	g.focused = w
	g.hasFocus = true
}

func (g *Group) clearFocus() {
	g.focused = 0
	g.hasFocus = false
}

func (g *Group) cycleLayout(count int) {
	g.layoutID = (g.layoutID + 1) % count
}
