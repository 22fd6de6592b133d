// Package x11 is the display-server collaborator: it owns the X
// connection and translates between the manager's vocabulary and the
// wire protocol.
package x11

import (
	"strings"

	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// grab identifies one grabbed key: the modifier mask and the keycode.
type grab struct {
	mods uint16
	code xproto.Keycode
}

// Connection manages the X11 connection and core X resources.
type Connection struct {
	xu   *xgbutil.XUtil
	root xproto.Window

	combos []string
	grabs  map[grab]string
}

// Connect establishes a connection to the X11 server and initializes
// the required extensions.
func Connect() (*Connection, error) {
	xu, err := xgbutil.NewConn()
	if err != nil {
		return nil, errors.Wrap(err, "connecting to the X server")
	}
	keybind.Initialize(xu)
	if err := randr.Init(xu.Conn()); err != nil {
		return nil, errors.Wrap(err, "initializing randr")
	}
	return &Connection{
		xu:    xu,
		root:  xu.RootWin(),
		grabs: map[grab]string{},
	}, nil
}

// InstallAsWM registers for substructure redirection on the root window
// and grabs the given key combinations. Only one client may redirect
// the root's substructure, so this fails when another window manager is
// running.
func (c *Connection) InstallAsWM(combos []string) error {
	err := xproto.ChangeWindowAttributesChecked(
		c.xu.Conn(), c.root, xproto.CwEventMask,
		[]uint32{xproto.EventMaskSubstructureRedirect | xproto.EventMaskSubstructureNotify},
	).Check()
	if err != nil {
		return errors.Wrap(err, "another window manager is already running")
	}

	if err := randr.SelectInputChecked(c.xu.Conn(), c.root, randr.NotifyMaskCrtcChange).Check(); err != nil {
		return errors.Wrap(err, "selecting randr events")
	}

	c.combos = combos
	return c.grabKeys(c.root)
}

// Close cleanly disconnects from the X11 server.
func (c *Connection) Close() {
	c.xu.Conn().Close()
}

// EnableKeyEvents grabs the configured key combinations on a window, so
// bound commands fire even when the window holds a keyboard grab of its
// own.
func (c *Connection) EnableKeyEvents(w xproto.Window) {
	if err := c.grabKeys(w); err != nil {
		log.WithField("window", w).WithError(err).Warn("could not grab keys")
	}
}

// lock modifiers are ignored when matching grabbed keys.
var lockVariants = []uint16{0, xproto.ModMaskLock, xproto.ModMask2, xproto.ModMaskLock | xproto.ModMask2}

func (c *Connection) grabKeys(w xproto.Window) error {
	for _, combo := range c.combos {
		mods, codes, err := c.parseCombo(combo)
		if err != nil {
			return err
		}
		for _, code := range codes {
			for _, lock := range lockVariants {
				err := xproto.GrabKeyChecked(
					c.xu.Conn(), true, w, mods|lock, code,
					xproto.GrabModeAsync, xproto.GrabModeAsync,
				).Check()
				if err != nil {
					return errors.Wrapf(err, "grabbing %q", combo)
				}
			}
			c.grabs[grab{mods: mods, code: code}] = combo
		}
	}
	return nil
}

// parseCombo splits "mod1-shift-j" into a modifier mask and the
// keycodes bound to the final keysym name.
func (c *Connection) parseCombo(combo string) (uint16, []xproto.Keycode, error) {
	parts := strings.Split(combo, "-")
	if len(parts) == 0 || parts[len(parts)-1] == "" {
		return 0, nil, errors.Errorf("empty key combination %q", combo)
	}
	var mods uint16
	for _, part := range parts[:len(parts)-1] {
		switch strings.ToLower(part) {
		case "shift":
			mods |= xproto.ModMaskShift
		case "control", "ctrl":
			mods |= xproto.ModMaskControl
		case "mod1", "alt":
			mods |= xproto.ModMask1
		case "mod2":
			mods |= xproto.ModMask2
		case "mod3":
			mods |= xproto.ModMask3
		case "mod4", "super":
			mods |= xproto.ModMask4
		case "mod5":
			mods |= xproto.ModMask5
		default:
			return 0, nil, errors.Errorf("unknown modifier %q in %q", part, combo)
		}
	}
	key := parts[len(parts)-1]
	codes := keybind.StrToKeycodes(c.xu, key)
	if len(codes) == 0 {
		return 0, nil, errors.Errorf("no keycode for %q in %q", key, combo)
	}
	return mods, codes, nil
}
