// Package layout turns an ordered stack of windows into pixel
// rectangles within a viewport.
//
// Layouts are pure: they never talk to the X server and never mutate
// their input. Applying the computed placements (mapping, configuring
// and unmapping windows) is the window manager's job.
package layout

import (
	"github.com/BurntSushi/xgb/xproto"

	"github.com/tilde-wm/tilde/internal/geometry"
	"github.com/tilde-wm/tilde/internal/stack"
)

// Placement assigns a window a rectangle. A window absent from a
// layout's result is hidden.
type Placement struct {
	Window xproto.Window
	Region geometry.Viewport
}

// Layout computes placements for the windows of one group on one
// output. Implementations are selected by name from configuration.
type Layout interface {
	Name() string
	Layout(vp geometry.Viewport, windows *stack.Stack[xproto.Window]) []Placement
}
