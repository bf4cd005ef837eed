//go:build darwin

package cgl

import (
	"github.com/ebitengine/purego/objc"

	"github.com/1broseidon/glkit/handle"
	"github.com/1broseidon/glkit/internal/platform"
)

const (
	glTextureRectangle = 0x84F5
	glRGB              = 0x1907
	glRGBA             = 0x1908
)

// surface is an NSView or a CGL pbuffer. View calls must happen on the
// AppKit main thread.
type surface struct {
	d       *display
	typ     platform.SurfaceType
	view    objc.ID
	pbuffer uintptr

	width, height int
}

func (d *display) CreateWindowSurface(_ platform.NativeConfig, win handle.Window, width, height int, _ platform.SurfaceAttributes) (platform.Surface, error) {
	const op = "create window surface"
	if win.Platform != handle.AppKit || win.Ptr == 0 {
		return nil, platform.NewError(platform.KindBadNativeWindow, platform.BackendCGL, op, "not an NSView: %s", win.Platform)
	}
	if _, err := loadAppKit(); err != nil {
		return nil, err
	}
	return &surface{d: d, typ: platform.WindowSurface, view: objc.ID(win.Ptr), width: width, height: height}, nil
}

func (d *display) CreatePixmapSurface(platform.NativeConfig, handle.Pixmap, platform.SurfaceAttributes) (platform.Surface, error) {
	return nil, platform.NewError(platform.KindNotSupported, platform.BackendCGL, "create pixmap surface", "macOS has no native pixmaps")
}

func (d *display) CreatePbufferSurface(cfg platform.NativeConfig, width, height int, _ platform.SurfaceAttributes) (platform.Surface, error) {
	format := uint32(glRGB)
	if cfg.Attribs.Alpha > 0 {
		format = glRGBA
	}
	var pb uintptr
	if err := d.l.check(d.l.CreatePBuffer(int32(width), int32(height), glTextureRectangle, format, 0, &pb), "create pbuffer surface"); err != nil {
		return nil, err
	}
	return &surface{d: d, typ: platform.PbufferSurface, pbuffer: pb, width: width, height: height}, nil
}

// attach points c at the surface before it becomes current.
func (s *surface) attach(c *context) error {
	if s.typ == platform.PbufferSurface {
		return s.d.l.check(s.d.l.SetPBuffer(c.cgl, s.pbuffer, 0, 0, c.screen), "make current")
	}
	ak, err := loadAppKit()
	if err != nil {
		return err
	}
	if c.ns == 0 {
		c.ns = ak.nsOpenGLContext.Send(ak.selAlloc).Send(ak.selInitWithCGLContext, c.cgl)
		if c.ns == 0 {
			return platform.NewError(platform.KindBadContext, platform.BackendCGL, "make current", "NSOpenGLContext rejected the CGL context")
		}
	}
	if c.view != s.view {
		c.ns.Send(ak.selSetView, s.view)
		c.view = s.view
	}
	c.ns.Send(ak.selUpdate)
	return nil
}

func (s *surface) Type() platform.SurfaceType { return s.typ }

// backing returns the view's size in pixels and the points-to-pixels scale.
func (s *surface) backing() (nsRect, float64) {
	ak, _ := loadAppKit()
	bounds := objc.Send[nsRect](s.view, ak.selBounds)
	px := objc.Send[nsRect](s.view, ak.selConvertRectToBacking, bounds)
	scale := 1.0
	if bounds.Size.Width > 0 {
		scale = px.Size.Width / bounds.Size.Width
	}
	return px, scale
}

func (s *surface) Size() (int, int, error) {
	if s.typ == platform.WindowSurface {
		px, _ := s.backing()
		return int(px.Size.Width), int(px.Size.Height), nil
	}
	var (
		w, h           int32
		target, format uint32
		mipmap         int32
	)
	if s.d.l.DescribePBuffer(s.pbuffer, &w, &h, &target, &format, &mipmap) != errNoError {
		return s.width, s.height, nil
	}
	return int(w), int(h), nil
}

// Resize sets the view's frame so its backing store is width x height
// pixels. Attached contexts pick the change up on their next make-current.
func (s *surface) Resize(width, height int) error {
	if s.typ != platform.WindowSurface {
		return platform.NewError(platform.KindNotSupported, platform.BackendCGL, "resize", "%s surfaces cannot be resized", s.typ)
	}
	ak, err := loadAppKit()
	if err != nil {
		return err
	}
	_, scale := s.backing()
	s.view.Send(ak.selSetFrameSize, nsSize{Width: float64(width) / scale, Height: float64(height) / scale})
	s.width, s.height = width, height
	return nil
}

func (s *surface) SwapBuffers(ctx platform.Context) error {
	return s.d.l.check(s.d.l.FlushDrawable(ctx.(*context).cgl), "swap buffers")
}

func (s *surface) SwapBuffersWithDamage(ctx platform.Context, _ []platform.Rect) error {
	return s.SwapBuffers(ctx)
}

func (s *surface) SupportsDamage() bool { return false }

// SetSwapInterval clamps to 1; CGL only syncs to every vblank or none.
func (s *surface) SetSwapInterval(ctx platform.Context, interval platform.SwapInterval) error {
	v := int32(0)
	if interval > 0 {
		v = 1
	}
	return s.d.l.check(s.d.l.SetParameter(ctx.(*context).cgl, cpSwapInterval, &v), "set swap interval")
}

func (s *surface) BufferAge() (int, error) { return 0, nil }

func (s *surface) Raw() uintptr {
	if s.typ == platform.PbufferSurface {
		return s.pbuffer
	}
	return uintptr(s.view)
}

func (s *surface) Destroy() error {
	if s.typ == platform.PbufferSurface {
		return s.d.l.check(s.d.l.DestroyPBuffer(s.pbuffer), "destroy surface")
	}
	return nil
}
