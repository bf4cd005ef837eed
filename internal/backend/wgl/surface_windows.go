//go:build windows

package wgl

import (
	"unsafe"

	"github.com/ebitengine/purego"
	"golang.org/x/sys/windows"

	"github.com/1broseidon/glkit/handle"
	"github.com/1broseidon/glkit/internal/platform"
)

// bitmap mirrors the Win32 BITMAP.
type bitmap struct {
	Type       int32
	Width      int32
	Height     int32
	WidthBytes int32
	Planes     uint16
	BitsPixel  uint16
	Bits       uintptr
}

type surface struct {
	d      *display
	typ    platform.SurfaceType
	format pixelFormat

	hwnd    uintptr
	hdc     uintptr
	hbitmap uintptr
	pbuffer uintptr

	width, height int
}

func (d *display) CreateWindowSurface(cfg platform.NativeConfig, win handle.Window, width, height int, _ platform.SurfaceAttributes) (platform.Surface, error) {
	const op = "create window surface"
	if win.Platform != handle.Windows || win.Ptr == 0 {
		return nil, platform.NewError(platform.KindBadNativeWindow, platform.BackendWGL, op, "not a Win32 window: %s", win.Platform)
	}
	hdc, _, err := procGetDC.Call(win.Ptr)
	if hdc == 0 {
		return nil, win32Error(lastError(err), platform.KindBadNativeWindow, op, "GetDC failed")
	}
	format := cfg.Raw.(pixelFormat)
	if err := setPixelFormat(hdc, format, op); err != nil {
		procReleaseDC.Call(win.Ptr, hdc)
		return nil, err
	}
	return &surface{d: d, typ: platform.WindowSurface, format: format, hwnd: win.Ptr, hdc: hdc, width: width, height: height}, nil
}

func (d *display) CreatePixmapSurface(cfg platform.NativeConfig, pix handle.Pixmap, _ platform.SurfaceAttributes) (platform.Surface, error) {
	const op = "create pixmap surface"
	if pix.Platform != handle.Windows || pix.Ptr == 0 {
		return nil, platform.NewError(platform.KindBadNativePixmap, platform.BackendWGL, op, "not a Win32 bitmap: %s", pix.Platform)
	}
	hdc, _, err := procCreateCompatibleDC.Call(0)
	if hdc == 0 {
		return nil, win32Error(lastError(err), platform.KindOutOfMemory, op, "CreateCompatibleDC failed")
	}
	if prev, _, err := procSelectObject.Call(hdc, pix.Ptr); prev == 0 {
		procDeleteDC.Call(hdc)
		return nil, win32Error(lastError(err), platform.KindBadNativePixmap, op, "SelectObject failed")
	}
	format := cfg.Raw.(pixelFormat)
	if err := setPixelFormat(hdc, format, op); err != nil {
		procDeleteDC.Call(hdc)
		return nil, err
	}
	return &surface{d: d, typ: platform.PixmapSurface, format: format, hdc: hdc, hbitmap: pix.Ptr}, nil
}

func (d *display) CreatePbufferSurface(cfg platform.NativeConfig, width, height int, attrs platform.SurfaceAttributes) (platform.Surface, error) {
	const op = "create pbuffer surface"
	if d.fns.createPbuffer == 0 || d.fns.getPbufferDC == 0 {
		return nil, platform.NewError(platform.KindNotSupported, platform.BackendWGL, op, "WGL_ARB_pbuffer is not available")
	}
	format := cfg.Raw.(pixelFormat)
	list := pbufferAttribs(attrs)
	pb, _, errno := purego.SyscallN(d.fns.createPbuffer, d.hdc, uintptr(format), uintptr(width), uintptr(height),
		uintptr(unsafe.Pointer(&list[0])))
	if pb == 0 {
		return nil, win32Error(uint32(errno), platform.KindBadAttribute, op, "wglCreatePbufferARB failed")
	}
	hdc, _, errno := purego.SyscallN(d.fns.getPbufferDC, pb)
	if hdc == 0 {
		if d.fns.destroyPbuffer != 0 {
			purego.SyscallN(d.fns.destroyPbuffer, pb)
		}
		return nil, win32Error(uint32(errno), platform.KindOutOfMemory, op, "wglGetPbufferDCARB failed")
	}
	return &surface{d: d, typ: platform.PbufferSurface, format: format, hdc: hdc, pbuffer: pb, width: width, height: height}, nil
}

func (s *surface) Type() platform.SurfaceType { return s.typ }

func (s *surface) Size() (int, int, error) {
	const op = "surface size"
	switch s.typ {
	case platform.WindowSurface:
		var r windows.Rect
		if ok, _, err := procGetClientRect.Call(s.hwnd, uintptr(unsafe.Pointer(&r))); ok == 0 {
			return 0, 0, win32Error(lastError(err), platform.KindBadNativeWindow, op, "GetClientRect failed")
		}
		return int(r.Right - r.Left), int(r.Bottom - r.Top), nil
	case platform.PixmapSurface:
		var bm bitmap
		if n, _, err := procGetObjectW.Call(s.hbitmap, unsafe.Sizeof(bm), uintptr(unsafe.Pointer(&bm))); n == 0 {
			return 0, 0, win32Error(lastError(err), platform.KindBadNativePixmap, op, "GetObjectW failed")
		}
		return int(bm.Width), int(bm.Height), nil
	}
	if s.d.fns.queryPbuffer != 0 {
		var w, h int32
		r1, _, _ := purego.SyscallN(s.d.fns.queryPbuffer, s.pbuffer, wglPbufferWidth, uintptr(unsafe.Pointer(&w)))
		r2, _, _ := purego.SyscallN(s.d.fns.queryPbuffer, s.pbuffer, wglPbufferHeight, uintptr(unsafe.Pointer(&h)))
		if r1 != 0 && r2 != 0 {
			return int(w), int(h), nil
		}
	}
	return s.width, s.height, nil
}

// Resize sets the window's client area to width x height, growing the outer
// frame by the window's border and caption.
func (s *surface) Resize(width, height int) error {
	const op = "resize"
	if s.typ != platform.WindowSurface {
		return platform.NewError(platform.KindNotSupported, platform.BackendWGL, op, "%s surfaces cannot be resized", s.typ)
	}
	style := getWindowLong(s.hwnd, gwlStyle)
	exStyle := getWindowLong(s.hwnd, gwlExStyle)
	r := windows.Rect{Right: int32(width), Bottom: int32(height)}
	if ok, _, err := procAdjustWindowRectEx.Call(uintptr(unsafe.Pointer(&r)), uintptr(uint32(style)), 0, uintptr(uint32(exStyle))); ok == 0 {
		return win32Error(lastError(err), platform.KindBadNativeWindow, op, "AdjustWindowRectEx failed")
	}
	if ok, _, err := procSetWindowPos.Call(s.hwnd, 0, 0, 0,
		uintptr(r.Right-r.Left), uintptr(r.Bottom-r.Top),
		swpNoMove|swpNoZOrder|swpNoActivate); ok == 0 {
		return win32Error(lastError(err), platform.KindBadNativeWindow, op, "SetWindowPos failed")
	}
	s.width, s.height = width, height
	return nil
}

func getWindowLong(hwnd uintptr, index int32) uintptr {
	r, _, _ := procGetWindowLongW.Call(hwnd, uintptr(index))
	return r
}

func (s *surface) SwapBuffers(platform.Context) error {
	if ok, _, err := procSwapBuffers.Call(s.hdc); ok == 0 {
		return win32Error(lastError(err), platform.KindBadSurface, "swap buffers", "SwapBuffers failed")
	}
	return nil
}

// SwapBuffersWithDamage presents the whole surface; WGL has no partial
// present.
func (s *surface) SwapBuffersWithDamage(ctx platform.Context, _ []platform.Rect) error {
	return s.SwapBuffers(ctx)
}

func (s *surface) SupportsDamage() bool { return false }

func (s *surface) SetSwapInterval(_ platform.Context, interval platform.SwapInterval) error {
	const op = "set swap interval"
	if s.d.fns.swapInterval == 0 {
		return platform.NewError(platform.KindNotSupported, platform.BackendWGL, op, "WGL_EXT_swap_control is not available")
	}
	if ok, _, errno := purego.SyscallN(s.d.fns.swapInterval, uintptr(interval)); ok == 0 {
		return win32Error(uint32(errno), platform.KindBadParameter, op, "wglSwapIntervalEXT failed")
	}
	return nil
}

// BufferAge is always 0: WGL cannot report buffer age.
func (s *surface) BufferAge() (int, error) { return 0, nil }

func (s *surface) Raw() uintptr { return s.hdc }

func (s *surface) Destroy() error {
	switch s.typ {
	case platform.WindowSurface:
		procReleaseDC.Call(s.hwnd, s.hdc)
	case platform.PixmapSurface:
		procDeleteDC.Call(s.hdc)
	case platform.PbufferSurface:
		if s.d.fns.releasePbufferDC != 0 {
			purego.SyscallN(s.d.fns.releasePbufferDC, s.pbuffer, s.hdc)
		}
		if s.d.fns.destroyPbuffer != 0 {
			if ok, _, errno := purego.SyscallN(s.d.fns.destroyPbuffer, s.pbuffer); ok == 0 {
				return win32Error(uint32(errno), platform.KindBadSurface, "destroy surface", "wglDestroyPbufferARB failed")
			}
		}
	}
	s.hdc = 0
	return nil
}
