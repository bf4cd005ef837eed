//go:build linux

package egl

import (
	"sync"

	"github.com/BurntSushi/xgb/xproto"

	"github.com/1broseidon/glkit/handle"
	"github.com/1broseidon/glkit/internal/platform"
)

type surface struct {
	d    *display
	typ  platform.SurfaceType
	surf uintptr

	// wl is the wl_egl_window behind a Wayland window surface.
	wl  uintptr
	xid uint32

	mu            sync.Mutex
	width, height int
}

func (d *display) CreateWindowSurface(cfg platform.NativeConfig, win handle.Window, width, height int, attrs platform.SurfaceAttributes) (platform.Surface, error) {
	const op = "create window surface"
	if win.Platform != d.platform && !(win.Platform.IsX11() && d.platform.IsX11()) {
		return nil, platform.NewError(platform.KindBadNativeWindow, platform.BackendEGL, op,
			"%s window on a %s display", win.Platform, d.platform)
	}

	s := &surface{d: d, typ: platform.WindowSurface, width: width, height: height}
	var native uintptr
	switch win.Platform {
	case handle.Wayland:
		wl, err := loadWaylandEGL()
		if err != nil {
			return nil, err
		}
		s.wl = wl.WindowCreate(win.Ptr, int32(width), int32(height))
		if s.wl == 0 {
			return nil, platform.NewError(platform.KindOutOfMemory, platform.BackendEGL, op, "wl_egl_window_create failed")
		}
		native = s.wl
	case handle.Xlib, handle.Xcb:
		s.xid = win.ID
		native = uintptr(win.ID)
	default:
		return nil, platform.NewError(platform.KindBadNativeWindow, platform.BackendEGL, op, "unsupported window platform %s", win.Platform)
	}

	list := surfaceAttribs(platform.WindowSurface, width, height, attrs, d.features)
	s.surf = d.l.CreateWindowSurface(d.dpy, cfg.Raw.(uintptr), native, list)
	if s.surf == 0 {
		err := d.l.lastError(op)
		if s.wl != 0 {
			wlLib.WindowDestroy(s.wl)
		}
		return nil, err
	}
	return s, nil
}

func (d *display) CreatePixmapSurface(cfg platform.NativeConfig, pix handle.Pixmap, attrs platform.SurfaceAttributes) (platform.Surface, error) {
	const op = "create pixmap surface"
	if !pix.Platform.IsX11() || !d.platform.IsX11() {
		return nil, platform.NewError(platform.KindBadNativePixmap, platform.BackendEGL, op,
			"%s pixmaps are not supported on a %s display", pix.Platform, d.platform)
	}
	list := surfaceAttribs(platform.PixmapSurface, 0, 0, attrs, d.features)
	surf := d.l.CreatePixmapSurface(d.dpy, cfg.Raw.(uintptr), uintptr(pix.ID), list)
	if surf == 0 {
		return nil, d.l.lastError(op)
	}
	return &surface{d: d, typ: platform.PixmapSurface, surf: surf, xid: pix.ID}, nil
}

func (d *display) CreatePbufferSurface(cfg platform.NativeConfig, width, height int, attrs platform.SurfaceAttributes) (platform.Surface, error) {
	list := surfaceAttribs(platform.PbufferSurface, width, height, attrs, d.features)
	surf := d.l.CreatePbufferSurface(d.dpy, cfg.Raw.(uintptr), list)
	if surf == 0 {
		return nil, d.l.lastError("create pbuffer surface")
	}
	return &surface{d: d, typ: platform.PbufferSurface, surf: surf, width: width, height: height}, nil
}

func (s *surface) Type() platform.SurfaceType { return s.typ }

func (s *surface) query(attr int32, op string) (int, error) {
	var v int32
	if s.d.l.QuerySurface(s.d.dpy, s.surf, attr, &v) == 0 {
		return 0, s.d.l.lastError(op)
	}
	return int(v), nil
}

func (s *surface) Size() (int, int, error) {
	switch {
	case s.wl != 0:
		// The client owns a Wayland window's size; EGL only learns it on
		// the next swap.
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.width, s.height, nil
	case s.typ == platform.WindowSurface && s.d.x != nil:
		return s.d.x.WindowSize(xproto.Window(s.xid))
	}
	w, err := s.query(eglWidth, "surface size")
	if err != nil {
		return 0, 0, err
	}
	h, err := s.query(eglHeight, "surface size")
	if err != nil {
		return 0, 0, err
	}
	return w, h, nil
}

func (s *surface) Resize(width, height int) error {
	const op = "resize"
	switch {
	case s.typ != platform.WindowSurface:
		return platform.NewError(platform.KindNotSupported, platform.BackendEGL, op, "%s surfaces cannot be resized", s.typ)
	case s.wl != 0:
		s.mu.Lock()
		defer s.mu.Unlock()
		wlLib.WindowResize(s.wl, int32(width), int32(height), 0, 0)
		s.width, s.height = width, height
		return nil
	case s.d.x != nil:
		return platform.Wrap(s.d.x.ResizeWindow(xproto.Window(s.xid), width, height),
			platform.KindBadNativeWindow, platform.BackendEGL, op)
	}
	return platform.NewError(platform.KindNotSupported, platform.BackendEGL, op, "no X connection to resize the window")
}

func (s *surface) SwapBuffers(platform.Context) error {
	if s.d.l.SwapBuffers(s.d.dpy, s.surf) == 0 {
		return s.d.l.lastError("swap buffers")
	}
	return nil
}

func (s *surface) SwapBuffersWithDamage(ctx platform.Context, rects []platform.Rect) error {
	if !s.SupportsDamage() {
		return s.SwapBuffers(ctx)
	}
	if s.d.l.SwapBuffersWithDamage(s.d.dpy, s.surf, damageRects(rects), int32(len(rects))) == 0 {
		return s.d.l.lastError("swap buffers with damage")
	}
	return nil
}

func (s *surface) SupportsDamage() bool {
	return s.d.l.hasSwapBuffersWithDamage && s.d.features.Has(platform.FeaturePartialPresent)
}

// SetSwapInterval applies to the surface bound on the calling thread, which
// the caller guarantees is s.
func (s *surface) SetSwapInterval(_ platform.Context, interval platform.SwapInterval) error {
	if s.d.l.SwapInterval(s.d.dpy, int32(interval)) == 0 {
		return s.d.l.lastError("set swap interval")
	}
	return nil
}

func (s *surface) BufferAge() (int, error) {
	if !s.d.ext.any("EGL_EXT_buffer_age", "EGL_KHR_partial_update") {
		return 0, nil
	}
	return s.query(eglBufferAgeEXT, "buffer age")
}

func (s *surface) Raw() uintptr { return s.surf }

func (s *surface) Destroy() error {
	if s.d.l.DestroySurface(s.d.dpy, s.surf) == 0 {
		return s.d.l.lastError("destroy surface")
	}
	if s.wl != 0 {
		wlLib.WindowDestroy(s.wl)
		s.wl = 0
	}
	return nil
}
