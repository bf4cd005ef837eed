//go:build windows

package wgl

import (
	"fmt"
	"sync"
	"syscall"
	"unsafe"

	"github.com/ebitengine/purego"
	"golang.org/x/sys/windows"

	"github.com/1broseidon/glkit/handle"
	"github.com/1broseidon/glkit/internal/platform"
)

var (
	user32   = windows.NewLazySystemDLL("user32.dll")
	gdi32    = windows.NewLazySystemDLL("gdi32.dll")
	kernel32 = windows.NewLazySystemDLL("kernel32.dll")
	opengl32 = windows.NewLazySystemDLL("opengl32.dll")

	procGetDC              = user32.NewProc("GetDC")
	procReleaseDC          = user32.NewProc("ReleaseDC")
	procGetClientRect      = user32.NewProc("GetClientRect")
	procSetWindowPos       = user32.NewProc("SetWindowPos")
	procGetWindowLongW     = user32.NewProc("GetWindowLongW")
	procAdjustWindowRectEx = user32.NewProc("AdjustWindowRectEx")
	procCreateWindowExW    = user32.NewProc("CreateWindowExW")
	procDestroyWindow      = user32.NewProc("DestroyWindow")
	procRegisterClassExW   = user32.NewProc("RegisterClassExW")
	procDefWindowProcW     = user32.NewProc("DefWindowProcW")

	procGetModuleHandleW = kernel32.NewProc("GetModuleHandleW")

	procChoosePixelFormat   = gdi32.NewProc("ChoosePixelFormat")
	procDescribePixelFormat = gdi32.NewProc("DescribePixelFormat")
	procSetPixelFormat      = gdi32.NewProc("SetPixelFormat")
	procGetPixelFormat      = gdi32.NewProc("GetPixelFormat")
	procSwapBuffers         = gdi32.NewProc("SwapBuffers")
	procCreateCompatibleDC  = gdi32.NewProc("CreateCompatibleDC")
	procDeleteDC            = gdi32.NewProc("DeleteDC")
	procSelectObject        = gdi32.NewProc("SelectObject")
	procGetObjectW          = gdi32.NewProc("GetObjectW")

	procWglCreateContext     = opengl32.NewProc("wglCreateContext")
	procWglDeleteContext     = opengl32.NewProc("wglDeleteContext")
	procWglMakeCurrent       = opengl32.NewProc("wglMakeCurrent")
	procWglGetProcAddress    = opengl32.NewProc("wglGetProcAddress")
	procWglShareLists        = opengl32.NewProc("wglShareLists")
	procWglGetCurrentContext = opengl32.NewProc("wglGetCurrentContext")
	procWglGetCurrentDC      = opengl32.NewProc("wglGetCurrentDC")
	procGlGetString          = opengl32.NewProc("glGetString")
)

const (
	csOwnDC        = 0x20
	wsOverlapped   = 0x00CF0000
	wsClipSiblings = 0x04000000
	wsClipChildren = 0x02000000
	cwUseDefault   = 0x80000000
	gwlStyle       = -16
	gwlExStyle     = -20
	swpNoMove      = 0x2
	swpNoZOrder    = 0x4
	swpNoActivate  = 0x10
	glVendor       = 0x1F00
	glRenderer     = 0x1F01
	glVersion      = 0x1F02
	dummyClassName = "glkitDummyWindow"
)

type wndClassEx struct {
	Size       uint32
	Style      uint32
	WndProc    uintptr
	ClsExtra   int32
	WndExtra   int32
	Instance   uintptr
	Icon       uintptr
	Cursor     uintptr
	Background uintptr
	MenuName   *uint16
	ClassName  *uint16
	IconSm     uintptr
}

var (
	loadOnce sync.Once
	loadErr  error

	classOnce sync.Once
	classErr  error
)

func loadLibraries() error {
	loadOnce.Do(func() {
		for _, dll := range []*windows.LazyDLL{opengl32, gdi32, user32, kernel32} {
			if err := dll.Load(); err != nil {
				loadErr = &platform.Error{
					Kind:    platform.KindNotFound,
					Backend: platform.BackendWGL,
					Op:      "load " + dll.Name,
					Message: dll.Name + " is not available",
					Err:     err,
				}
				return
			}
		}
	})
	return loadErr
}

func lastError(err error) uint32 {
	if errno, ok := err.(syscall.Errno); ok {
		return uint32(errno)
	}
	return 0
}

func init() {
	platform.Register(backend{})
}

type backend struct{}

func (backend) Name() string { return platform.BackendWGL }

func (backend) Priority() int { return 100 }

func (backend) Recognizes(p handle.Platform) bool { return p == handle.Windows }

func (backend) Open(h handle.Display, _ platform.OpenOptions) (platform.Display, error) {
	if err := loadLibraries(); err != nil {
		return nil, err
	}
	d := &display{hinst: h.Ptr}
	if d.hinst == 0 {
		d.hinst, _, _ = procGetModuleHandleW.Call(0)
	}
	if err := d.createDummy(); err != nil {
		return nil, err
	}
	if err := d.loadExtensions(); err != nil {
		d.destroyDummy()
		return nil, err
	}
	platform.Logger().Debug("wgl: display opened", "vendor", d.vendor, "renderer", d.renderer, "version", d.glVersion,
		"extensions", len(d.ext))
	return d, nil
}

// extFuncs holds WGL extension entry points, zero when missing.
type extFuncs struct {
	getExtensionsString    uintptr
	getPixelFormatAttribiv uintptr
	createContextAttribs   uintptr
	swapInterval           uintptr
	makeContextCurrent     uintptr
	createPbuffer          uintptr
	getPbufferDC           uintptr
	releasePbufferDC       uintptr
	destroyPbuffer         uintptr
	queryPbuffer           uintptr
}

type display struct {
	hinst uintptr
	// The hidden window gives WGL a DC for extension loading, config
	// enumeration and pbuffer creation.
	hwnd, hdc uintptr

	fns      extFuncs
	ext      extensions
	features platform.Features

	vendor, renderer, glVersion string
}

var _ platform.Display = (*display)(nil)

func (d *display) createDummy() error {
	const op = "create helper window"
	classOnce.Do(func() {
		name, _ := windows.UTF16PtrFromString(dummyClassName)
		wc := wndClassEx{
			Style:     csOwnDC,
			WndProc:   procDefWindowProcW.Addr(),
			Instance:  d.hinst,
			ClassName: name,
		}
		wc.Size = uint32(unsafe.Sizeof(wc))
		if r, _, err := procRegisterClassExW.Call(uintptr(unsafe.Pointer(&wc))); r == 0 {
			classErr = win32Error(lastError(err), platform.KindInitializationFailed, op, "RegisterClassExW failed")
		}
	})
	if classErr != nil {
		return classErr
	}

	class, _ := windows.UTF16PtrFromString(dummyClassName)
	title, _ := windows.UTF16PtrFromString("glkit")
	hwnd, _, err := procCreateWindowExW.Call(0,
		uintptr(unsafe.Pointer(class)), uintptr(unsafe.Pointer(title)),
		wsOverlapped|wsClipSiblings|wsClipChildren,
		cwUseDefault, cwUseDefault, cwUseDefault, cwUseDefault,
		0, 0, d.hinst, 0)
	if hwnd == 0 {
		return win32Error(lastError(err), platform.KindInitializationFailed, op, "CreateWindowExW failed")
	}
	hdc, _, err := procGetDC.Call(hwnd)
	if hdc == 0 {
		procDestroyWindow.Call(hwnd)
		return win32Error(lastError(err), platform.KindInitializationFailed, op, "GetDC failed")
	}
	d.hwnd, d.hdc = hwnd, hdc

	pfd := pixelFormatDescriptor{
		Version:     1,
		Flags:       pfdDrawToWindow | pfdSupportOpenGL | pfdDoubleBuffer,
		PixelType:   pfdTypeRGBA,
		ColorBits:   32,
		DepthBits:   24,
		StencilBits: 8,
	}
	pfd.Size = uint16(unsafe.Sizeof(pfd))
	format, _, err := procChoosePixelFormat.Call(hdc, uintptr(unsafe.Pointer(&pfd)))
	if format == 0 {
		d.destroyDummy()
		return win32Error(lastError(err), platform.KindInitializationFailed, op, "ChoosePixelFormat failed")
	}
	if r, _, err := procSetPixelFormat.Call(hdc, format, uintptr(unsafe.Pointer(&pfd))); r == 0 {
		d.destroyDummy()
		return win32Error(lastError(err), platform.KindInitializationFailed, op, "SetPixelFormat failed")
	}
	return nil
}

func (d *display) destroyDummy() {
	if d.hdc != 0 {
		procReleaseDC.Call(d.hwnd, d.hdc)
		d.hdc = 0
	}
	if d.hwnd != 0 {
		procDestroyWindow.Call(d.hwnd)
		d.hwnd = 0
	}
}

// loadExtensions makes a throwaway legacy context current on the helper
// window, since wglGetProcAddress only works with a current context. The
// calling thread's previous binding is restored.
func (d *display) loadExtensions() error {
	const op = "load extensions"
	ctx, _, err := procWglCreateContext.Call(d.hdc)
	if ctx == 0 {
		return win32Error(lastError(err), platform.KindInitializationFailed, op, "wglCreateContext failed")
	}
	defer procWglDeleteContext.Call(ctx)

	prevCtx, _, _ := procWglGetCurrentContext.Call()
	prevDC, _, _ := procWglGetCurrentDC.Call()
	if r, _, err := procWglMakeCurrent.Call(d.hdc, ctx); r == 0 {
		return win32Error(lastError(err), platform.KindInitializationFailed, op, "wglMakeCurrent failed")
	}
	defer procWglMakeCurrent.Call(prevDC, prevCtx)

	for _, f := range []struct {
		dst  *uintptr
		name string
	}{
		{&d.fns.getExtensionsString, "wglGetExtensionsStringARB"},
		{&d.fns.getPixelFormatAttribiv, "wglGetPixelFormatAttribivARB"},
		{&d.fns.createContextAttribs, "wglCreateContextAttribsARB"},
		{&d.fns.swapInterval, "wglSwapIntervalEXT"},
		{&d.fns.makeContextCurrent, "wglMakeContextCurrentARB"},
		{&d.fns.createPbuffer, "wglCreatePbufferARB"},
		{&d.fns.getPbufferDC, "wglGetPbufferDCARB"},
		{&d.fns.releasePbufferDC, "wglReleasePbufferDCARB"},
		{&d.fns.destroyPbuffer, "wglDestroyPbufferARB"},
		{&d.fns.queryPbuffer, "wglQueryPbufferARB"},
	} {
		*f.dst = wglProc(f.name)
	}

	if d.fns.getExtensionsString != 0 {
		r, _, _ := purego.SyscallN(d.fns.getExtensionsString, d.hdc)
		d.ext = parseExtensions(cString(r))
	} else {
		d.ext = extensions{}
	}
	d.features = d.ext.features()
	if d.fns.createPbuffer == 0 {
		delete(d.ext, "WGL_ARB_pbuffer")
	}

	d.vendor = glString(glVendor)
	d.renderer = glString(glRenderer)
	d.glVersion = glString(glVersion)
	return nil
}

// wglProc resolves an extension entry point. wglGetProcAddress signals
// failure with small sentinel values as well as zero.
func wglProc(name string) uintptr {
	p, err := windows.BytePtrFromString(name)
	if err != nil {
		return 0
	}
	r, _, _ := procWglGetProcAddress.Call(uintptr(unsafe.Pointer(p)))
	switch r {
	case 0, 1, 2, 3, ^uintptr(0):
		return 0
	}
	return r
}

func cString(p uintptr) string {
	if p == 0 {
		return ""
	}
	return windows.BytePtrToString((*byte)(unsafe.Pointer(p)))
}

func glString(name uintptr) string {
	r, _, _ := procGlGetString.Call(name)
	return cString(r)
}

func (d *display) VersionString() string {
	return fmt.Sprintf("WGL %s %s %s", d.glVersion, d.vendor, d.renderer)
}

func (d *display) Features() platform.Features { return d.features }

// SynchronizedCreation is false: pixel formats are set on shared DCs and the
// extension pointers are loaded per display.
func (d *display) SynchronizedCreation() bool { return false }

// pixelFormat is a config's native reference: the 1-based index into the
// device's pixel formats.
type pixelFormat int

func (d *display) Configs() ([]platform.NativeConfig, error) {
	const op = "get pixel formats"
	var pfd pixelFormatDescriptor
	size := unsafe.Sizeof(pfd)

	var count int
	if d.fns.getPixelFormatAttribiv != 0 {
		attr := int32(wglNumberPixelFormats)
		var n int32
		r, _, errno := purego.SyscallN(d.fns.getPixelFormatAttribiv, d.hdc, 1, 0, 1,
			uintptr(unsafe.Pointer(&attr)), uintptr(unsafe.Pointer(&n)))
		if r == 0 {
			return nil, win32Error(uint32(errno), platform.KindOS, op, "wglGetPixelFormatAttribivARB failed")
		}
		count = int(n)
	} else {
		r, _, err := procDescribePixelFormat.Call(d.hdc, 1, size, 0)
		if r == 0 {
			return nil, win32Error(lastError(err), platform.KindOS, op, "DescribePixelFormat failed")
		}
		count = int(r)
	}

	var out []platform.NativeConfig
	values := make([]int32, len(pixelFormatQuery))
	for i := 1; i <= count; i++ {
		var (
			a  platform.ConfigAttribs
			ok bool
		)
		if d.fns.getPixelFormatAttribiv != 0 {
			r, _, _ := purego.SyscallN(d.fns.getPixelFormatAttribiv, d.hdc, uintptr(i), 0, uintptr(len(pixelFormatQuery)),
				uintptr(unsafe.Pointer(&pixelFormatQuery[0])), uintptr(unsafe.Pointer(&values[0])))
			if r == 0 {
				continue
			}
			a, ok = decodeARB(values, d.ext)
		} else {
			if r, _, _ := procDescribePixelFormat.Call(d.hdc, uintptr(i), size, uintptr(unsafe.Pointer(&pfd))); r == 0 {
				continue
			}
			a, ok = decodePFD(pfd, d.ext)
		}
		if !ok {
			continue
		}
		out = append(out, platform.NativeConfig{Attribs: a, Index: len(out), Raw: pixelFormat(i)})
	}
	return out, nil
}

// setPixelFormat gives hdc the config's pixel format. A DC's format can be
// set once; a DC that already has a different one is a mismatch.
func setPixelFormat(hdc uintptr, format pixelFormat, op string) error {
	cur, _, _ := procGetPixelFormat.Call(hdc)
	if int(cur) == int(format) {
		return nil
	}
	if cur != 0 {
		return platform.NewError(platform.KindBadMatch, platform.BackendWGL, op,
			"device context already has pixel format %d, config needs %d", cur, format)
	}
	var pfd pixelFormatDescriptor
	procDescribePixelFormat.Call(hdc, uintptr(format), unsafe.Sizeof(pfd), uintptr(unsafe.Pointer(&pfd)))
	if r, _, err := procSetPixelFormat.Call(hdc, uintptr(format), uintptr(unsafe.Pointer(&pfd))); r == 0 {
		return win32Error(lastError(err), platform.KindBadConfig, op, "SetPixelFormat failed")
	}
	return nil
}

func (d *display) CreateContext(cfg platform.NativeConfig, attrs platform.ContextAttributes, share platform.Context) (platform.Context, error) {
	if !legacyOnly(attrs) && d.fns.createContextAttribs == 0 {
		return nil, platform.NewError(platform.KindNotSupported, platform.BackendWGL, "create context",
			"context attributes need WGL_ARB_create_context")
	}
	c := &context{d: d, format: cfg.Raw.(pixelFormat), cfg: cfg.Attribs, attrs: attrs}
	if share != nil {
		c.share = share.(*context)
	}
	return c, nil
}

func (d *display) MakeCurrent(ctx platform.Context, draw, read platform.Surface) error {
	const op = "make current"
	c := ctx.(*context)
	if c.hglrc == 0 {
		return platform.NewError(platform.KindBadContext, platform.BackendWGL, op, "context has not been finalized")
	}
	if draw == nil {
		return platform.NewError(platform.KindNotSupported, platform.BackendWGL, op, "WGL cannot make a context current without a surface")
	}
	ds := draw.(*surface)
	if read != nil && read != draw {
		if d.fns.makeContextCurrent == 0 {
			return platform.NewError(platform.KindNotSupported, platform.BackendWGL, op, "separate read surfaces need WGL_ARB_make_current_read")
		}
		r, _, errno := purego.SyscallN(d.fns.makeContextCurrent, ds.hdc, read.(*surface).hdc, c.hglrc)
		if r == 0 {
			return win32Error(uint32(errno), platform.KindBadContext, op, "wglMakeContextCurrentARB failed")
		}
		return nil
	}
	if r, _, err := procWglMakeCurrent.Call(ds.hdc, c.hglrc); r == 0 {
		return win32Error(lastError(err), platform.KindBadContext, op, "wglMakeCurrent failed")
	}
	return nil
}

func (d *display) ReleaseCurrent(platform.Context) error {
	if r, _, err := procWglMakeCurrent.Call(0, 0); r == 0 {
		return win32Error(lastError(err), platform.KindBadContext, "release current", "wglMakeCurrent failed")
	}
	return nil
}

// GetProcAddress tries wglGetProcAddress, then the OpenGL 1.1 exports of
// opengl32.dll, which wglGetProcAddress does not return.
func (d *display) GetProcAddress(name string) uintptr {
	if p := wglProc(name); p != 0 {
		return p
	}
	proc := opengl32.NewProc(name)
	if proc.Find() != nil {
		return 0
	}
	return proc.Addr()
}

func (d *display) Close() error {
	d.destroyDummy()
	return nil
}

// context is created pending and finalized against the DC of the first
// surface it is made current with.
type context struct {
	d      *display
	format pixelFormat
	cfg    platform.ConfigAttribs
	attrs  platform.ContextAttributes
	share  *context

	hglrc uintptr
}

var _ platform.DeferredContext = (*context)(nil)

func (c *context) Raw() uintptr { return c.hglrc }

func (c *context) Pending() bool { return c.hglrc == 0 }

func (c *context) Finalize(s platform.Surface) error {
	const op = "create context"
	if c.hglrc != 0 {
		return nil
	}
	sf := s.(*surface)
	if sf.format != c.format {
		return platform.NewError(platform.KindBadMatch, platform.BackendWGL, op,
			"surface pixel format %d differs from context pixel format %d", sf.format, c.format)
	}
	var share uintptr
	if c.share != nil {
		if c.share.hglrc == 0 {
			return platform.NewError(platform.KindBadContext, platform.BackendWGL, op, "share context has not been finalized")
		}
		share = c.share.hglrc
	}

	if c.d.fns.createContextAttribs != 0 {
		list := contextAttribs(c.attrs, c.cfg, c.d.features)
		r, _, errno := purego.SyscallN(c.d.fns.createContextAttribs, sf.hdc, share, uintptr(unsafe.Pointer(&list[0])))
		if r == 0 {
			return win32Error(uint32(errno), platform.KindBadContext, op, "wglCreateContextAttribsARB failed")
		}
		c.hglrc = r
	} else {
		r, _, err := procWglCreateContext.Call(sf.hdc)
		if r == 0 {
			return win32Error(lastError(err), platform.KindBadContext, op, "wglCreateContext failed")
		}
		if share != 0 {
			if ok, _, err := procWglShareLists.Call(share, r); ok == 0 {
				procWglDeleteContext.Call(r)
				return win32Error(lastError(err), platform.KindBadMatch, op, "wglShareLists failed")
			}
		}
		c.hglrc = r
	}
	platform.Logger().Debug("wgl: context finalized", "format", int(c.format), "hglrc", fmt.Sprintf("%#x", c.hglrc))
	return nil
}

func (c *context) Destroy() error {
	if c.hglrc == 0 {
		return nil
	}
	if r, _, err := procWglDeleteContext.Call(c.hglrc); r == 0 {
		return win32Error(lastError(err), platform.KindBadContext, "destroy context", "wglDeleteContext failed")
	}
	c.hglrc = 0
	return nil
}
