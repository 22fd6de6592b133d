package x11

import (
	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/tilde-wm/tilde/internal/geometry"
	"github.com/tilde-wm/tilde/internal/wm"
)

// NextEvent blocks until an event the manager cares about arrives.
// Events that are handled entirely inside this package (configure
// requests, unmatched key presses, X errors) are absorbed and the wait
// continues.
func (c *Connection) NextEvent() (wm.Event, error) {
	for {
		ev, xerr := c.xu.Conn().WaitForEvent()
		if ev == nil && xerr == nil {
			return nil, errors.New("X connection closed")
		}
		if xerr != nil {
			log.WithField("error", xerr.Error()).Debug("X error")
			continue
		}

		switch e := ev.(type) {
		case xproto.MapRequestEvent:
			return wm.MapRequestEvent{Window: e.Window}, nil
		case xproto.UnmapNotifyEvent:
			return wm.UnmapEvent{Window: e.Window}, nil
		case xproto.DestroyNotifyEvent:
			return wm.DestroyEvent{Window: e.Window}, nil
		case xproto.EnterNotifyEvent:
			return wm.EnterEvent{Window: e.Event}, nil
		case xproto.KeyPressEvent:
			mods := e.State &^ uint16(xproto.ModMaskLock|xproto.ModMask2)
			if combo, ok := c.grabs[grab{mods: mods, code: e.Detail}]; ok {
				return wm.KeyEvent{Combo: combo}, nil
			}
		case xproto.ConfigureRequestEvent:
			// Unmanaged and soon-to-be-managed windows get what they ask
			// for; managed windows are re-placed on the next
			// reconciliation anyway.
			c.grantConfigure(e)
		case randr.NotifyEvent:
			if e.SubCode == randr.NotifyCrtcChange {
				cc := e.U.Cc
				return wm.OutputChangeEvent{
					Output: cc.Crtc,
					Geom: geometry.Viewport{
						X:      int(cc.X),
						Y:      int(cc.Y),
						Width:  int(cc.Width),
						Height: int(cc.Height),
					},
				}, nil
			}
		}
	}
}

func (c *Connection) grantConfigure(e xproto.ConfigureRequestEvent) {
	vals := make([]uint32, 0, 7)
	// Value order follows the mask's bit order.
	if e.ValueMask&xproto.ConfigWindowX != 0 {
		vals = append(vals, uint32(e.X))
	}
	if e.ValueMask&xproto.ConfigWindowY != 0 {
		vals = append(vals, uint32(e.Y))
	}
	if e.ValueMask&xproto.ConfigWindowWidth != 0 {
		vals = append(vals, uint32(e.Width))
	}
	if e.ValueMask&xproto.ConfigWindowHeight != 0 {
		vals = append(vals, uint32(e.Height))
	}
	if e.ValueMask&xproto.ConfigWindowBorderWidth != 0 {
		vals = append(vals, uint32(e.BorderWidth))
	}
	if e.ValueMask&xproto.ConfigWindowSibling != 0 {
		vals = append(vals, uint32(e.Sibling))
	}
	if e.ValueMask&xproto.ConfigWindowStackMode != 0 {
		vals = append(vals, uint32(e.StackMode))
	}
	xproto.ConfigureWindow(c.xu.Conn(), e.Window, e.ValueMask, vals)
}
