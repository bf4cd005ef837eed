//go:build linux

package x11

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/BurntSushi/xgb"
	"github.com/ebitengine/purego"

	"github.com/1broseidon/glkit/internal/platform"
)

var (
	xlibOnce sync.Once
	xlibErr  error

	xOpenDisplay     func(name string) uintptr
	xCloseDisplay    func(dpy uintptr) int32
	xDisplayString   func(dpy uintptr) string
	xSync            func(dpy uintptr, discard bool) int32
	xNextRequest     func(dpy uintptr) uint64
	xSetErrorHandler func(handler uintptr) uintptr
	xQueryExtension  func(dpy uintptr, name string, opcode, event, errBase *int32) bool
	xFree            func(p uintptr) int32
)

func loadXlib() error {
	xlibOnce.Do(func() {
		var (
			lib uintptr
			err error
		)
		for _, name := range []string{"libX11.so.6", "libX11.so"} {
			lib, err = purego.Dlopen(name, purego.RTLD_LAZY|purego.RTLD_GLOBAL)
			if err == nil {
				break
			}
		}
		if err != nil {
			xlibErr = &platform.Error{
				Kind:    platform.KindNotFound,
				Op:      "load libX11",
				Message: "libX11 is not installed",
				Err:     err,
			}
			return
		}
		purego.RegisterLibFunc(&xOpenDisplay, lib, "XOpenDisplay")
		purego.RegisterLibFunc(&xCloseDisplay, lib, "XCloseDisplay")
		purego.RegisterLibFunc(&xDisplayString, lib, "XDisplayString")
		purego.RegisterLibFunc(&xSync, lib, "XSync")
		purego.RegisterLibFunc(&xNextRequest, lib, "XNextRequest")
		purego.RegisterLibFunc(&xSetErrorHandler, lib, "XSetErrorHandler")
		purego.RegisterLibFunc(&xQueryExtension, lib, "XQueryExtension")
		purego.RegisterLibFunc(&xFree, lib, "XFree")
	})
	return xlibErr
}

// Xlib is the Xlib Display* glkit issues client library calls on: the
// windowing layer's own display, or one glkit opened by name.
type Xlib struct {
	Ptr   uintptr
	owned bool
	wire  *xlibWire
	traps *Trapper
	glx   bool
}

// OpenXlib wraps the Display* ptr, or opens the display called name when ptr
// is zero. Errors of requests issued on it are caught by a process-wide
// Xlib error handler and surface through Traps.
func OpenXlib(ptr uintptr, name string) (*Xlib, error) {
	if err := loadXlib(); err != nil {
		return nil, err
	}
	owned := false
	if ptr == 0 {
		ptr = xOpenDisplay(name)
		if ptr == 0 {
			return nil, fmt.Errorf("open X display %q", name)
		}
		owned = true
	}

	var opcode, event, errBase int32
	hasGLX := xQueryExtension(ptr, "GLX", &opcode, &event, &errBase)
	w := &xlibWire{dpy: ptr}
	if hasGLX {
		w.glxBase = int(errBase)
	}
	installErrorHandler(w)
	return &Xlib{Ptr: ptr, owned: owned, wire: w, traps: NewTrapper(w), glx: hasGLX}, nil
}

// HasGLX reports whether the server advertises the GLX extension.
func (x *Xlib) HasGLX() bool { return x.glx }

// Name returns the display string the connection was opened with.
func (x *Xlib) Name() string { return xDisplayString(x.Ptr) }

// Traps returns the bracketing for requests issued on the display.
func (x *Xlib) Traps() *Trapper { return x.traps }

// Free releases memory Xlib or libGL allocated.
func (x *Xlib) Free(p uintptr) {
	if p != 0 {
		xFree(p)
	}
}

// Close stops routing the display's errors to glkit and closes it if glkit
// opened it.
func (x *Xlib) Close() {
	x.traps.Drain()
	removeErrorHandler(x.wire)
	if x.owned {
		xCloseDisplay(x.Ptr)
	}
}

// xErrorEvent mirrors Xlib's XErrorEvent on LP64.
type xErrorEvent struct {
	typ         int32
	_           int32
	display     uintptr
	resourceID  uint64
	serial      uint64
	errorCode   uint8
	requestCode uint8
	minorCode   uint8
}

// The Xlib error handler is per process. glkit's handler keeps errors of
// displays with an open bracket and passes every other error to the handler
// it replaced.
var handler struct {
	sync.Mutex
	installed bool
	prev      uintptr
	wires     map[uintptr]*xlibWire
}

func installErrorHandler(w *xlibWire) {
	handler.Lock()
	defer handler.Unlock()
	if !handler.installed {
		handler.wires = make(map[uintptr]*xlibWire)
		handler.prev = xSetErrorHandler(purego.NewCallback(onXError))
		handler.installed = true
	}
	handler.wires[w.dpy] = w
}

func removeErrorHandler(w *xlibWire) {
	handler.Lock()
	defer handler.Unlock()
	if handler.wires[w.dpy] == w {
		delete(handler.wires, w.dpy)
	}
}

func onXError(dpy, event uintptr) uintptr {
	ev := (*xErrorEvent)(unsafe.Pointer(event))
	handler.Lock()
	w := handler.wires[dpy]
	prev := handler.prev
	handler.Unlock()

	if w != nil && w.push(ev) {
		return 0
	}
	if prev != 0 {
		r, _, _ := purego.SyscallN(prev, dpy, event)
		return r
	}
	return 0
}

// xlibWire drives a Trapper over an Xlib display. Xlib reports errors by
// calling the error handler from inside XSync, so poll only hands back what
// the handler queued.
type xlibWire struct {
	dpy     uintptr
	glxBase int

	mu      sync.Mutex
	bracket bool
	queue   []xgb.Error
}

// mark opens a bracket at the last request issued.
func (w *xlibWire) mark() uint16 {
	w.mu.Lock()
	w.bracket = true
	w.mu.Unlock()
	return uint16(xNextRequest(w.dpy) - 1)
}

func (w *xlibWire) sync() (uint16, error) {
	xSync(w.dpy, false)
	return uint16(xNextRequest(w.dpy) - 1), nil
}

// poll pops one queued error. Once the queue runs dry after a sync the
// bracket is over and later errors go to the previous handler again.
func (w *xlibWire) poll() (xgb.Event, xgb.Error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.queue) == 0 {
		w.bracket = false
		return nil, nil
	}
	e := w.queue[0]
	w.queue = w.queue[1:]
	return nil, e
}

func (w *xlibWire) push(ev *xErrorEvent) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.bracket {
		return false
	}
	w.queue = append(w.queue, XlibError{
		Name:     xlibErrorName(ev.errorCode, w.glxBase),
		Code:     ev.errorCode,
		Request:  ev.requestCode,
		Minor:    ev.minorCode,
		Serial:   ev.serial,
		Resource: ev.resourceID,
	})
	return true
}
