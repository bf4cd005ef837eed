package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
)

// Connection is glkit's own X server connection. It is separate from the
// windowing layer's connection so that glkit can drain its error queue
// without stealing the application's events.
type Connection struct {
	XUtil  *xgbutil.XUtil
	Root   xproto.Window
	Screen int

	traps *Trapper
}

// NewConnection connects to the X server named display (":0"; empty uses
// $DISPLAY) and selects screen.
func NewConnection(display string, screen int) (*Connection, error) {
	xu, err := xgbutil.NewConnDisplay(display)
	if err != nil {
		return nil, fmt.Errorf("connect to X display %q: %w", display, err)
	}

	roots := xu.Setup().Roots
	if screen < 0 || screen >= len(roots) {
		xu.Conn().Close()
		return nil, fmt.Errorf("X display %q has no screen %d", display, screen)
	}

	return &Connection{
		XUtil:  xu,
		Root:   roots[screen].Root,
		Screen: screen,
		traps:  NewTrapper(xgbWire{xu.Conn()}),
	}, nil
}

// Conn returns the raw protocol connection.
func (c *Connection) Conn() *xgb.Conn {
	return c.XUtil.Conn()
}

// Traps returns the connection's error trapper.
func (c *Connection) Traps() *Trapper {
	return c.traps
}

// Close cleanly disconnects from the X11 server
func (c *Connection) Close() {
	c.XUtil.Conn().Close()
}
