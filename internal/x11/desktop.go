package x11

import (
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	log "github.com/sirupsen/logrus"
)

// PublishDesktops exposes the group list and managed windows through
// the EWMH desktop properties, so pagers and bars can display them.
// Failures are logged and ignored: the properties are advisory.
func (c *Connection) PublishDesktops(names []string, current int, windows []xproto.Window) {
	if err := ewmh.NumberOfDesktopsSet(c.xu, uint(len(names))); err != nil {
		log.WithError(err).Debug("could not set _NET_NUMBER_OF_DESKTOPS")
	}
	if err := ewmh.DesktopNamesSet(c.xu, names); err != nil {
		log.WithError(err).Debug("could not set _NET_DESKTOP_NAMES")
	}
	if err := ewmh.CurrentDesktopSet(c.xu, uint(current)); err != nil {
		log.WithError(err).Debug("could not set _NET_CURRENT_DESKTOP")
	}
	if err := ewmh.ClientListSet(c.xu, windows); err != nil {
		log.WithError(err).Debug("could not set _NET_CLIENT_LIST")
	}
}
