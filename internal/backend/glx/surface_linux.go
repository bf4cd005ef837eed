//go:build linux

package glx

import (
	"github.com/BurntSushi/xgb/xproto"

	"github.com/1broseidon/glkit/handle"
	"github.com/1broseidon/glkit/internal/platform"
)

type surface struct {
	d   *display
	typ platform.SurfaceType
	// xid is the X window or pixmap the GLX drawable wraps; zero for
	// pbuffers.
	xid      uint32
	drawable uintptr
	// width and height are the creation size of a pbuffer.
	width, height int
}

func (d *display) CreateWindowSurface(cfg platform.NativeConfig, win handle.Window, width, height int, attrs platform.SurfaceAttributes) (platform.Surface, error) {
	const op = "create window surface"
	fb := cfg.Raw.(fbconfig)

	visual := win.VisualID
	if visual == 0 {
		v, err := d.conn.WindowVisual(xproto.Window(win.ID))
		if err != nil {
			return nil, platform.Wrap(err, platform.KindBadNativeWindow, platform.BackendGLX, op)
		}
		visual = uint32(v)
	}
	if fb.visual != 0 && visual != fb.visual {
		return nil, platform.NewError(platform.KindBadMatch, platform.BackendGLX, op,
			"window visual 0x%x does not match config visual 0x%x", visual, fb.visual)
	}

	trap := d.xl.Traps().Begin()
	id := glXCreateWindow(d.xl.Ptr, fb.ptr, uintptr(win.ID), nil)
	if err := created(id, trap.End(), platform.KindBadNativeWindow, op); err != nil {
		return nil, err
	}

	platform.Logger().Debug("glx: window surface created", "window", d.conn.WindowLabel(xproto.Window(win.ID)),
		"glxwindow", uint32(id))
	return &surface{d: d, typ: platform.WindowSurface, xid: win.ID, drawable: id}, nil
}

func (d *display) CreatePixmapSurface(cfg platform.NativeConfig, pix handle.Pixmap, attrs platform.SurfaceAttributes) (platform.Surface, error) {
	const op = "create pixmap surface"
	fb := cfg.Raw.(fbconfig)

	trap := d.xl.Traps().Begin()
	id := glXCreatePixmap(d.xl.Ptr, fb.ptr, uintptr(pix.ID), nil)
	if err := created(id, trap.End(), platform.KindBadNativePixmap, op); err != nil {
		return nil, err
	}
	return &surface{d: d, typ: platform.PixmapSurface, xid: pix.ID, drawable: id}, nil
}

func (d *display) CreatePbufferSurface(cfg platform.NativeConfig, width, height int, attrs platform.SurfaceAttributes) (platform.Surface, error) {
	const op = "create pbuffer surface"
	fb := cfg.Raw.(fbconfig)

	list := attribList(pbufferAttribs(width, height, attrs))
	trap := d.xl.Traps().Begin()
	id := glXCreatePbuffer(d.xl.Ptr, fb.ptr, &list[0])
	if err := created(id, trap.End(), platform.KindOutOfMemory, op); err != nil {
		return nil, err
	}
	return &surface{d: d, typ: platform.PbufferSurface, drawable: id, width: width, height: height}, nil
}

// created checks the XID a glXCreate* call returned.
func created(id uintptr, trapErr error, kind platform.Kind, op string) error {
	if trapErr != nil {
		return platform.Wrap(trapErr, kind, platform.BackendGLX, op)
	}
	if id == 0 {
		return platform.NewError(kind, platform.BackendGLX, op, "libGL returned no drawable")
	}
	return nil
}

func (s *surface) Type() platform.SurfaceType { return s.typ }

func (s *surface) Size() (int, int, error) {
	switch s.typ {
	case platform.WindowSurface:
		return s.d.conn.WindowSize(xproto.Window(s.xid))
	case platform.PixmapSurface:
		geom, err := xproto.GetGeometry(s.d.conn.Conn(), xproto.Drawable(s.xid)).Reply()
		if err != nil {
			return 0, 0, replyError(err, "surface size")
		}
		return int(geom.Width), int(geom.Height), nil
	}

	// A largest-pbuffer request may have been granted a smaller size.
	var w, h uint32
	trap := s.d.xl.Traps().Begin()
	glXQueryDrawable(s.d.xl.Ptr, s.drawable, glxWidth, &w)
	glXQueryDrawable(s.d.xl.Ptr, s.drawable, glxHeight, &h)
	if err := trap.End(); err != nil || w == 0 || h == 0 {
		return s.width, s.height, nil
	}
	return int(w), int(h), nil
}

func (s *surface) Resize(width, height int) error {
	if s.typ != platform.WindowSurface {
		return platform.NewError(platform.KindNotSupported, platform.BackendGLX, "resize", "%s surfaces cannot be resized", s.typ)
	}
	return platform.Wrap(s.d.conn.ResizeWindow(xproto.Window(s.xid), width, height),
		platform.KindBadNativeWindow, platform.BackendGLX, "resize")
}

func (s *surface) SwapBuffers(platform.Context) error {
	trap := s.d.xl.Traps().Begin()
	glXSwapBuffers(s.d.xl.Ptr, s.drawable)
	return platform.Wrap(trap.End(), platform.KindBadSurface, platform.BackendGLX, "swap buffers")
}

// SwapBuffersWithDamage swaps the whole surface; GLX has no partial
// present.
func (s *surface) SwapBuffersWithDamage(ctx platform.Context, _ []platform.Rect) error {
	return s.SwapBuffers(ctx)
}

func (s *surface) SupportsDamage() bool { return false }

// SetSwapInterval prefers GLX_EXT_swap_control, which names the drawable.
// GLX_MESA_swap_control acts on the current drawable, which glkit has
// checked to be s.
func (s *surface) SetSwapInterval(_ platform.Context, interval platform.SwapInterval) error {
	const op = "set swap interval"
	if s.typ != platform.WindowSurface {
		return platform.NewError(platform.KindNotSupported, platform.BackendGLX, op, "%s surfaces have no swap interval", s.typ)
	}
	switch {
	case s.d.ext["GLX_EXT_swap_control"] && glXSwapIntervalEXT != nil:
		trap := s.d.xl.Traps().Begin()
		glXSwapIntervalEXT(s.d.xl.Ptr, s.drawable, int32(interval))
		return platform.Wrap(trap.End(), platform.KindBadSurface, platform.BackendGLX, op)
	case s.d.ext["GLX_MESA_swap_control"] && glXSwapIntervalMESA != nil:
		trap := s.d.xl.Traps().Begin()
		rc := glXSwapIntervalMESA(uint32(interval))
		if err := trap.End(); err != nil {
			return platform.Wrap(err, platform.KindBadSurface, platform.BackendGLX, op)
		}
		if rc != 0 {
			return platform.NativeError(platform.KindBadParameter, platform.BackendGLX, op, int64(rc), "glXSwapIntervalMESA failed")
		}
		return nil
	}
	return platform.NewError(platform.KindNotSupported, platform.BackendGLX, op, "no GLX swap control extension")
}

func (s *surface) BufferAge() (int, error) {
	if !s.d.ext["GLX_EXT_buffer_age"] {
		return 0, nil
	}
	var age uint32
	trap := s.d.xl.Traps().Begin()
	glXQueryDrawable(s.d.xl.Ptr, s.drawable, glxBackBufferAgeEXT, &age)
	if err := trap.End(); err != nil {
		return 0, platform.Wrap(err, platform.KindBadSurface, platform.BackendGLX, "buffer age")
	}
	return int(age), nil
}

func (s *surface) Raw() uintptr { return s.drawable }

func (s *surface) Destroy() error {
	trap := s.d.xl.Traps().Begin()
	switch s.typ {
	case platform.WindowSurface:
		glXDestroyWindow(s.d.xl.Ptr, s.drawable)
	case platform.PixmapSurface:
		glXDestroyPixmap(s.d.xl.Ptr, s.drawable)
	case platform.PbufferSurface:
		glXDestroyPbuffer(s.d.xl.Ptr, s.drawable)
	}
	return platform.Wrap(trap.End(), platform.KindBadSurface, platform.BackendGLX, "destroy surface")
}
