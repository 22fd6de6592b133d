package wm

import (
	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/tilde-wm/tilde/internal/geometry"
)

// WindowType classifies a top-level window per _NET_WM_WINDOW_TYPE.
type WindowType int

const (
	TypeDesktop WindowType = iota
	TypeDock
	TypeToolbar
	TypeMenu
	TypeUtility
	TypeSplash
	TypeDialog
	TypeDropdownMenu
	TypePopupMenu
	TypeTooltip
	TypeNotification
	TypeCombo
	TypeDnd
	TypeNormal
)

// OutputInfo is the geometry of one physical output as reported by the
// display server.
type OutputInfo struct {
	ID   randr.Crtc
	Geom geometry.Viewport
}

// Connection is the display-server surface the window manager consumes.
// The real implementation lives in internal/x11; tests substitute a
// recording fake. All calls are made from the single event-loop
// goroutine.
type Connection interface {
	// TopLevelWindows lists the existing top-level windows at startup.
	TopLevelWindows() ([]xproto.Window, error)
	// Outputs lists the display outputs, including disabled ones
	// (reported with zero size).
	Outputs() ([]OutputInfo, error)

	WindowTypes(xproto.Window) []WindowType
	// OverrideRedirect reads the window's attributes. Windows whose
	// attributes cannot be read are treated as unmanageable.
	OverrideRedirect(xproto.Window) (bool, error)
	// Strut returns the window's reserved-margin hint, or nil.
	Strut(xproto.Window) *geometry.Strut

	MapWindow(xproto.Window)
	UnmapWindow(xproto.Window)
	ConfigureWindow(xproto.Window, geometry.Viewport)
	// CloseWindow asks the window to close via WM_DELETE_WINDOW when
	// the window supports it, destroying it otherwise.
	CloseWindow(xproto.Window)

	// EnableTracking/DisableTracking toggle event reporting for a
	// window. The manager brackets its own map/unmap/configure calls
	// with these so that self-inflicted events are not mistaken for
	// application activity.
	EnableTracking(xproto.Window)
	DisableTracking(xproto.Window)
	// EnableKeyEvents grabs the configured key combinations on the
	// window so bound commands fire regardless of input focus.
	EnableKeyEvents(xproto.Window)

	SetFocus(xproto.Window)
	ClearFocus()

	// PublishDesktops exposes the group list, the index of the group on
	// the current output and the managed windows via EWMH, for pagers
	// and bars.
	PublishDesktops(names []string, current int, windows []xproto.Window)

	// NextEvent blocks until the next event. Events arrive strictly in
	// server order.
	NextEvent() (Event, error)
}

// Event is one display-server event, already translated into the
// manager's vocabulary.
type Event interface {
	event()
}

// MapRequestEvent reports a window asking to be shown.
type MapRequestEvent struct {
	Window xproto.Window
}

// UnmapEvent reports a window unmapped by its application.
type UnmapEvent struct {
	Window xproto.Window
}

// DestroyEvent reports a destroyed window.
type DestroyEvent struct {
	Window xproto.Window
}

// KeyEvent reports a grabbed key combination, in the same textual form
// used to configure it (for example "mod1-shift-j").
type KeyEvent struct {
	Combo string
}

// EnterEvent reports the pointer entering a window.
type EnterEvent struct {
	Window xproto.Window
}

// OutputChangeEvent reports an output appearing, moving or, when the
// geometry is zero-sized, disappearing.
type OutputChangeEvent struct {
	Output randr.Crtc
	Geom   geometry.Viewport
}

func (MapRequestEvent) event()   {}
func (UnmapEvent) event()        {}
func (DestroyEvent) event()      {}
func (KeyEvent) event()          {}
func (EnterEvent) event()        {}
func (OutputChangeEvent) event() {}
