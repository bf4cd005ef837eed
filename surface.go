package glkit

import (
	"github.com/1broseidon/glkit/handle"
	"github.com/1broseidon/glkit/internal/platform"
)

// Surface is a drawable created from a Config: a native window, a native
// pixmap or a backend-allocated pbuffer.
//
// A Surface must not be used from two threads while a context is current on
// it elsewhere. Release the binding with MakeNotCurrent first.
type Surface struct {
	display *Display
	native  platform.Surface
	config  Config
	typ     SurfaceType
	attrs   SurfaceAttributes

	// Guarded by bindMu. pins counts make-current calls in flight on s.
	destroyed bool
	pins      int
}

// CreateWindowSurface wraps the native window w. width and height are the
// window's current size; backends that cannot query it live use them as the
// initial drawable size.
func (d *Display) CreateWindowSurface(cfg Config, w handle.Window, width, height int, attrs SurfaceAttributes) (*Surface, error) {
	const op = "create window surface"
	if err := d.checkSurface(cfg, WindowSurface, attrs, op); err != nil {
		return nil, err
	}
	if !w.Valid() {
		return nil, newError(platform.KindBadNativeWindow, d.backend, op, "invalid %s window handle", w.Platform)
	}
	if width <= 0 || height <= 0 {
		return nil, newError(platform.KindBadParameter, d.backend, op, "invalid size %dx%d", width, height)
	}
	return d.newSurface(cfg, WindowSurface, attrs, op, func() (platform.Surface, error) {
		return d.native.CreateWindowSurface(cfg.native, w, width, height, attrs)
	})
}

// CreatePixmapSurface wraps the native pixmap p.
func (d *Display) CreatePixmapSurface(cfg Config, p handle.Pixmap, attrs SurfaceAttributes) (*Surface, error) {
	const op = "create pixmap surface"
	if err := d.checkSurface(cfg, PixmapSurface, attrs, op); err != nil {
		return nil, err
	}
	if !p.Valid() {
		return nil, newError(platform.KindBadNativePixmap, d.backend, op, "invalid %s pixmap handle", p.Platform)
	}
	return d.newSurface(cfg, PixmapSurface, attrs, op, func() (platform.Surface, error) {
		return d.native.CreatePixmapSurface(cfg.native, p, attrs)
	})
}

// CreatePbufferSurface allocates an off-screen buffer of a fixed size.
// Unless attrs.LargestPbuffer is set, a size above the config's maximum is
// rejected with ErrBadParameter.
func (d *Display) CreatePbufferSurface(cfg Config, width, height int, attrs SurfaceAttributes) (*Surface, error) {
	const op = "create pbuffer surface"
	if err := d.checkSurface(cfg, PbufferSurface, attrs, op); err != nil {
		return nil, err
	}
	if width <= 0 || height <= 0 {
		return nil, newError(platform.KindBadParameter, d.backend, op, "invalid size %dx%d", width, height)
	}
	a := cfg.Attribs()
	if !attrs.LargestPbuffer && a.MaxPbufferWidth != 0 && a.MaxPbufferHeight != 0 &&
		(uint32(width) > a.MaxPbufferWidth || uint32(height) > a.MaxPbufferHeight) {
		return nil, newError(platform.KindBadParameter, d.backend, op,
			"%dx%d exceeds the config maximum %dx%d", width, height, a.MaxPbufferWidth, a.MaxPbufferHeight)
	}
	return d.newSurface(cfg, PbufferSurface, attrs, op, func() (platform.Surface, error) {
		return d.native.CreatePbufferSurface(cfg.native, width, height, attrs)
	})
}

func (d *Display) checkSurface(cfg Config, typ SurfaceType, attrs SurfaceAttributes, op string) error {
	if err := d.checkConfig(cfg, op); err != nil {
		return err
	}
	if !cfg.SurfaceTypes().Has(typ.Mask()) {
		return newError(platform.KindBadConfig, d.backend, op, "%s does not support %s surfaces", cfg, typ)
	}
	if attrs.SRGB && !cfg.SRGBCapable() {
		return newError(platform.KindBadConfig, d.backend, op, "%s is not sRGB capable", cfg)
	}
	return nil
}

func (d *Display) newSurface(cfg Config, typ SurfaceType, attrs SurfaceAttributes, op string, fn func() (platform.Surface, error)) (*Surface, error) {
	s := &Surface{display: d, config: cfg, typ: typ, attrs: attrs}
	err := d.create(op, func() error {
		ns, err := fn()
		if err != nil {
			return err
		}
		s.native = ns
		return nil
	})
	if err != nil {
		return nil, err
	}
	platform.Logger().Debug("glkit: surface created", "backend", d.backend, "type", typ, "config", cfg.Index())
	return s, nil
}

// Type returns the surface variant.
func (s *Surface) Type() SurfaceType { return s.typ }

// Config returns the config the surface was created from.
func (s *Surface) Config() Config { return s.config }

// Display returns the owning display.
func (s *Surface) Display() *Display { return s.display }

// Attributes returns the creation attributes.
func (s *Surface) Attributes() SurfaceAttributes { return s.attrs }

// Raw returns the native drawable handle.
func (s *Surface) Raw() uintptr { return s.native.Raw() }

// IsSingleBuffered reports whether rendering goes straight to the front
// buffer.
func (s *Surface) IsSingleBuffered() bool {
	return s.attrs.SingleBuffer || !s.config.Attribs().DoubleBuffered
}

func (s *Surface) isDestroyed() bool {
	bindMu.Lock()
	defer bindMu.Unlock()
	return s.destroyed
}

func (s *Surface) check(op string) error {
	if s.isDestroyed() {
		return newError(platform.KindBadSurface, s.display.backend, op, "surface was destroyed")
	}
	return s.display.checkOpen(op)
}

// Size returns the live drawable size. For window surfaces it reflects the
// native window, including resizes made by the window system.
func (s *Surface) Size() (width, height int, err error) {
	if err := s.check("surface size"); err != nil {
		return 0, 0, err
	}
	w, h, err := s.native.Size()
	if err != nil {
		return 0, 0, platform.Wrap(err, platform.KindOS, s.display.backend, "surface size")
	}
	return w, h, nil
}

// Width returns the live width, or 0 when the size cannot be queried.
func (s *Surface) Width() int {
	w, _, err := s.Size()
	if err != nil {
		return 0
	}
	return w
}

// Height returns the live height, or 0 when the size cannot be queried.
func (s *Surface) Height() int {
	_, h, err := s.Size()
	if err != nil {
		return 0
	}
	return h
}

// Resize resizes a window surface's drawable. Pixmap and pbuffer surfaces
// have a fixed size and fail with ErrNotSupported.
func (s *Surface) Resize(width, height int) error {
	const op = "resize"
	if err := s.check(op); err != nil {
		return err
	}
	if s.typ != WindowSurface {
		return newError(platform.KindNotSupported, s.display.backend, op, "%s surfaces have a fixed size", s.typ)
	}
	if width <= 0 || height <= 0 {
		return newError(platform.KindBadParameter, s.display.backend, op, "invalid size %dx%d", width, height)
	}
	if err := s.native.Resize(width, height); err != nil {
		return platform.Wrap(err, platform.KindOS, s.display.backend, op)
	}
	return nil
}

// checkCurrent verifies ctx is usable with s on the calling thread.
func (s *Surface) checkCurrent(ctx *PossiblyCurrentContext, op string) (*contextState, error) {
	if err := s.check(op); err != nil {
		return nil, err
	}
	st, err := ctx.take(op)
	if err != nil {
		return nil, err
	}
	if st.display != s.display {
		return nil, newError(platform.KindPlatformMismatch, s.display.backend, op, "context belongs to another display")
	}
	if !st.current() {
		return nil, newError(platform.KindContextMismatch, s.display.backend, op, "context is not current on the calling thread")
	}
	return st, nil
}

// SwapBuffers presents the back buffer. ctx must be current on the calling
// thread.
func (s *Surface) SwapBuffers(ctx *PossiblyCurrentContext) error {
	const op = "swap buffers"
	st, err := s.checkCurrent(ctx, op)
	if err != nil {
		return err
	}
	if err := s.native.SwapBuffers(st.native); err != nil {
		return platform.Wrap(err, platform.KindOS, s.display.backend, op)
	}
	return nil
}

// SwapBuffersWithDamage presents only rects when the backend supports partial
// presentation and presents the whole buffer otherwise. An empty rects is a
// full swap.
func (s *Surface) SwapBuffersWithDamage(ctx *PossiblyCurrentContext, rects []Rect) error {
	const op = "swap buffers with damage"
	st, err := s.checkCurrent(ctx, op)
	if err != nil {
		return err
	}
	if len(rects) == 0 || !s.native.SupportsDamage() {
		if err := s.native.SwapBuffers(st.native); err != nil {
			return platform.Wrap(err, platform.KindOS, s.display.backend, op)
		}
		return nil
	}
	if err := s.native.SwapBuffersWithDamage(st.native, rects); err != nil {
		return platform.Wrap(err, platform.KindOS, s.display.backend, op)
	}
	return nil
}

// SetSwapInterval sets how many vblanks a swap waits for. DontWait disables
// vsync.
func (s *Surface) SetSwapInterval(ctx *PossiblyCurrentContext, interval SwapInterval) error {
	const op = "set swap interval"
	st, err := s.checkCurrent(ctx, op)
	if err != nil {
		return err
	}
	if !s.display.features.Has(FeatureSwapControl) {
		return newError(platform.KindNotSupported, s.display.backend, op, "swap control is unavailable")
	}
	a := s.config.Attribs()
	if a.MaxSwapInterval != 0 && (uint32(interval) < uint32(a.MinSwapInterval) || uint32(interval) > uint32(a.MaxSwapInterval)) {
		platform.Logger().Debug("glkit: swap interval outside config range, native layer clamps", "interval", interval,
			"min", a.MinSwapInterval, "max", a.MaxSwapInterval)
	}
	if err := s.native.SetSwapInterval(st.native, interval); err != nil {
		return platform.Wrap(err, platform.KindOS, s.display.backend, op)
	}
	return nil
}

// BufferAge returns the age of the back buffer in frames, 0 when its
// contents are undefined.
func (s *Surface) BufferAge() (int, error) {
	if err := s.check("buffer age"); err != nil {
		return 0, err
	}
	age, err := s.native.BufferAge()
	if err != nil {
		return 0, platform.Wrap(err, platform.KindOS, s.display.backend, "buffer age")
	}
	return age, nil
}

// Destroy releases the native drawable. It fails with ErrBadAccess while a
// context is current on s on any thread.
func (s *Surface) Destroy() error {
	const op = "destroy surface"
	bindMu.Lock()
	if s.destroyed {
		bindMu.Unlock()
		return nil
	}
	if boundLocked(s) {
		bindMu.Unlock()
		return newError(platform.KindBadAccess, s.display.backend, op, "surface is bound to a current context")
	}
	s.destroyed = true
	bindMu.Unlock()
	return s.display.destroy(op, s.native.Destroy)
}

func (s *Surface) String() string {
	return s.typ.String() + " surface (" + s.config.String() + ")"
}
