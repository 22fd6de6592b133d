package x11

import (
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/xprop"
	log "github.com/sirupsen/logrus"

	"github.com/tilde-wm/tilde/internal/geometry"
	"github.com/tilde-wm/tilde/internal/wm"
)

var windowTypeAtoms = map[string]wm.WindowType{
	"_NET_WM_WINDOW_TYPE_DESKTOP":       wm.TypeDesktop,
	"_NET_WM_WINDOW_TYPE_DOCK":          wm.TypeDock,
	"_NET_WM_WINDOW_TYPE_TOOLBAR":       wm.TypeToolbar,
	"_NET_WM_WINDOW_TYPE_MENU":          wm.TypeMenu,
	"_NET_WM_WINDOW_TYPE_UTILITY":       wm.TypeUtility,
	"_NET_WM_WINDOW_TYPE_SPLASH":        wm.TypeSplash,
	"_NET_WM_WINDOW_TYPE_DIALOG":        wm.TypeDialog,
	"_NET_WM_WINDOW_TYPE_DROPDOWN_MENU": wm.TypeDropdownMenu,
	"_NET_WM_WINDOW_TYPE_POPUP_MENU":    wm.TypePopupMenu,
	"_NET_WM_WINDOW_TYPE_TOOLTIP":       wm.TypeTooltip,
	"_NET_WM_WINDOW_TYPE_NOTIFICATION":  wm.TypeNotification,
	"_NET_WM_WINDOW_TYPE_COMBO":         wm.TypeCombo,
	"_NET_WM_WINDOW_TYPE_DND":           wm.TypeDnd,
	"_NET_WM_WINDOW_TYPE_NORMAL":        wm.TypeNormal,
}

// TopLevelWindows lists the mapped top-level windows, for adopting an
// already-running session.
func (c *Connection) TopLevelWindows() ([]xproto.Window, error) {
	tree, err := xproto.QueryTree(c.xu.Conn(), c.root).Reply()
	if err != nil {
		return nil, err
	}
	var out []xproto.Window
	for _, w := range tree.Children {
		attrs, err := xproto.GetWindowAttributes(c.xu.Conn(), w).Reply()
		if err != nil {
			continue
		}
		if attrs.MapState == xproto.MapStateViewable {
			out = append(out, w)
		}
	}
	return out, nil
}

// WindowTypes reads _NET_WM_WINDOW_TYPE. A window without the property
// counts as a normal window.
func (c *Connection) WindowTypes(w xproto.Window) []wm.WindowType {
	names, err := ewmh.WmWindowTypeGet(c.xu, w)
	if err != nil || len(names) == 0 {
		return []wm.WindowType{wm.TypeNormal}
	}
	var out []wm.WindowType
	for _, name := range names {
		if t, ok := windowTypeAtoms[name]; ok {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return []wm.WindowType{wm.TypeNormal}
	}
	return out
}

func (c *Connection) OverrideRedirect(w xproto.Window) (bool, error) {
	attrs, err := xproto.GetWindowAttributes(c.xu.Conn(), w).Reply()
	if err != nil {
		return false, err
	}
	return attrs.OverrideRedirect, nil
}

// Strut reads the window's reserved-margin hint. Docks that only set
// the pre-EWMH _NET_WM_STRUT get full-width spans.
func (c *Connection) Strut(w xproto.Window) *geometry.Strut {
	if sp, err := ewmh.WmStrutPartialGet(c.xu, w); err == nil {
		return &geometry.Strut{
			Left:         int(sp.Left),
			Right:        int(sp.Right),
			Top:          int(sp.Top),
			Bottom:       int(sp.Bottom),
			LeftStartY:   int(sp.LeftStartY),
			LeftEndY:     int(sp.LeftEndY),
			RightStartY:  int(sp.RightStartY),
			RightEndY:    int(sp.RightEndY),
			TopStartX:    int(sp.TopStartX),
			TopEndX:      int(sp.TopEndX),
			BottomStartX: int(sp.BottomStartX),
			BottomEndX:   int(sp.BottomEndX),
		}
	}
	if s, err := ewmh.WmStrutGet(c.xu, w); err == nil {
		screen := c.xu.Screen()
		width := int(screen.WidthInPixels)
		height := int(screen.HeightInPixels)
		return &geometry.Strut{
			Left:       int(s.Left),
			Right:      int(s.Right),
			Top:        int(s.Top),
			Bottom:     int(s.Bottom),
			LeftEndY:   height - 1,
			RightEndY:  height - 1,
			TopEndX:    width - 1,
			BottomEndX: width - 1,
		}
	}
	return nil
}

func (c *Connection) MapWindow(w xproto.Window) {
	xproto.MapWindow(c.xu.Conn(), w)
}

func (c *Connection) UnmapWindow(w xproto.Window) {
	xproto.UnmapWindow(c.xu.Conn(), w)
}

func (c *Connection) ConfigureWindow(w xproto.Window, vp geometry.Viewport) {
	xproto.ConfigureWindow(
		c.xu.Conn(), w,
		xproto.ConfigWindowX|xproto.ConfigWindowY|xproto.ConfigWindowWidth|xproto.ConfigWindowHeight,
		[]uint32{uint32(vp.X), uint32(vp.Y), uint32(vp.Width), uint32(vp.Height)},
	)
}

// CloseWindow asks the window to close via WM_DELETE_WINDOW when the
// window speaks the protocol, and destroys it outright otherwise.
func (c *Connection) CloseWindow(w xproto.Window) {
	protocols, _ := icccm.WmProtocolsGet(c.xu, w)
	supportsDelete := false
	for _, p := range protocols {
		if p == "WM_DELETE_WINDOW" {
			supportsDelete = true
			break
		}
	}
	if !supportsDelete {
		if err := xproto.DestroyWindowChecked(c.xu.Conn(), w).Check(); err != nil {
			log.WithField("window", w).WithError(err).Warn("could not destroy window")
		}
		return
	}

	wmProtocols, err := xprop.Atm(c.xu, "WM_PROTOCOLS")
	if err != nil {
		log.WithError(err).Warn("could not intern WM_PROTOCOLS")
		return
	}
	wmDelete, err := xprop.Atm(c.xu, "WM_DELETE_WINDOW")
	if err != nil {
		log.WithError(err).Warn("could not intern WM_DELETE_WINDOW")
		return
	}
	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: w,
		Type:   wmProtocols,
		Data:   xproto.ClientMessageDataUnionData32New([]uint32{uint32(wmDelete), 0, 0, 0, 0}),
	}
	xproto.SendEvent(c.xu.Conn(), false, w, xproto.EventMaskNoEvent, string(ev.Bytes()))
}

const trackedEvents = xproto.EventMaskEnterWindow | xproto.EventMaskStructureNotify

func (c *Connection) EnableTracking(w xproto.Window) {
	xproto.ChangeWindowAttributes(c.xu.Conn(), w, xproto.CwEventMask, []uint32{trackedEvents})
}

func (c *Connection) DisableTracking(w xproto.Window) {
	xproto.ChangeWindowAttributes(c.xu.Conn(), w, xproto.CwEventMask, []uint32{xproto.EventMaskNoEvent})
}

func (c *Connection) SetFocus(w xproto.Window) {
	xproto.SetInputFocus(c.xu.Conn(), xproto.InputFocusPointerRoot, w, xproto.TimeCurrentTime)
	if err := ewmh.ActiveWindowSet(c.xu, w); err != nil {
		log.WithField("window", w).WithError(err).Debug("could not set _NET_ACTIVE_WINDOW")
	}
}

func (c *Connection) ClearFocus() {
	xproto.SetInputFocus(c.xu.Conn(), xproto.InputFocusPointerRoot, c.root, xproto.TimeCurrentTime)
	if err := ewmh.ActiveWindowSet(c.xu, 0); err != nil {
		log.WithError(err).Debug("could not clear _NET_ACTIVE_WINDOW")
	}
}
