// Package handle describes the native display, window and pixmap handles a
// windowing layer passes to glkit. A zero Display (Platform Headless) asks for
// an offscreen display with no native connection.
package handle

import "fmt"

// Platform tags the windowing system a handle belongs to.
type Platform uint8

const (
	Headless Platform = iota
	Wayland
	Xlib
	Xcb
	Windows
	AppKit
)

func (p Platform) String() string {
	switch p {
	case Headless:
		return "headless"
	case Wayland:
		return "wayland"
	case Xlib:
		return "xlib"
	case Xcb:
		return "xcb"
	case Windows:
		return "windows"
	case AppKit:
		return "appkit"
	default:
		return fmt.Sprintf("platform(%d)", uint8(p))
	}
}

// IsX11 reports whether p is one of the X11 client library tags.
func (p Platform) IsX11() bool {
	return p == Xlib || p == Xcb
}

// Display identifies a connection to the native graphics service.
//
// Ptr holds the wl_display*, Display* or xcb_connection_t* of the windowing
// layer. Name is the X11 display string (":0"); an empty Name falls back to
// $DISPLAY. On Windows Ptr is the HINSTANCE and may be zero.
type Display struct {
	Platform Platform
	Ptr      uintptr
	Name     string
	Screen   int
}

// HeadlessDisplay returns the handle requesting an offscreen display.
func HeadlessDisplay() Display {
	return Display{Platform: Headless}
}

func (d Display) String() string {
	if d.Name != "" {
		return fmt.Sprintf("%s(%s)", d.Platform, d.Name)
	}
	return d.Platform.String()
}

// Window identifies a native window.
//
// Wayland: Ptr is the wl_surface*. X11: ID is the window XID and VisualID the
// visual it was created with. Windows: Ptr is the HWND. AppKit: Ptr is the
// NSView*.
type Window struct {
	Platform Platform
	Ptr      uintptr
	ID       uint32
	VisualID uint32
}

// Valid reports whether w carries an identifier for its platform.
func (w Window) Valid() bool {
	switch w.Platform {
	case Xlib, Xcb:
		return w.ID != 0
	case Wayland, Windows, AppKit:
		return w.Ptr != 0
	default:
		return false
	}
}

// Pixmap identifies a native off-screen pixmap: the XID on X11 or the HBITMAP
// on Windows.
type Pixmap struct {
	Platform Platform
	Ptr      uintptr
	ID       uint32
}

// Valid reports whether p carries an identifier for its platform.
func (p Pixmap) Valid() bool {
	switch p.Platform {
	case Xlib, Xcb:
		return p.ID != 0
	case Windows:
		return p.Ptr != 0
	default:
		return false
	}
}
