package x11

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/xwindow"
)

// WindowSize returns the live size of a window as the server sees it.
func (c *Connection) WindowSize(id xproto.Window) (width, height int, err error) {
	geom, err := xwindow.New(c.XUtil, id).Geometry()
	if err != nil {
		return 0, 0, fmt.Errorf("window 0x%x geometry: %w", uint32(id), err)
	}
	return geom.Width(), geom.Height(), nil
}

// ResizeWindow resizes a window. ConfigureWindow has no reply, so a bad
// window is reported through the error trap.
func (c *Connection) ResizeWindow(id xproto.Window, width, height int) error {
	trap := c.traps.Begin()
	xwindow.New(c.XUtil, id).Resize(width, height)
	return trap.End()
}

// WindowVisual returns the visual a window was created with.
func (c *Connection) WindowVisual(id xproto.Window) (xproto.Visualid, error) {
	attrs, err := xproto.GetWindowAttributes(c.Conn(), id).Reply()
	if err != nil {
		return 0, fmt.Errorf("window 0x%x attributes: %w", uint32(id), err)
	}
	return attrs.Visual, nil
}

// WindowLabel names a window for log output: its title, then its WM_CLASS,
// then its id.
func (c *Connection) WindowLabel(id xproto.Window) string {
	if title, err := ewmh.WmNameGet(c.XUtil, id); err == nil {
		if title = strings.TrimSpace(title); title != "" {
			return title
		}
	}
	if title, err := icccm.WmNameGet(c.XUtil, id); err == nil {
		if title = strings.TrimSpace(title); title != "" {
			return title
		}
	}
	if class, err := icccm.WmClassGet(c.XUtil, id); err == nil {
		if cls := strings.TrimSpace(class.Class); cls != "" {
			return cls
		}
	}
	return fmt.Sprintf("0x%x", uint32(id))
}
