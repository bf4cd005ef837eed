//go:build linux

package egl

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"

	"github.com/1broseidon/glkit/handle"
	"github.com/1broseidon/glkit/internal/platform"
	"github.com/1broseidon/glkit/internal/x11"
)

func init() {
	platform.Register(backend{})
}

type backend struct{}

func (backend) Name() string { return platform.BackendEGL }

func (backend) Priority() int { return 90 }

func (backend) Recognizes(p handle.Platform) bool {
	switch p {
	case handle.Wayland, handle.Xlib, handle.Xcb, handle.Headless:
		return true
	}
	return false
}

// nativePlatform returns the eglGetPlatformDisplay platform and attributes
// for a handle.
func nativePlatform(h handle.Display) (uint32, []int32) {
	switch h.Platform {
	case handle.Wayland:
		return eglPlatformWaylandKHR, []int32{eglNone}
	case handle.Xlib:
		return eglPlatformX11KHR, []int32{eglPlatformX11ScreenKHR, int32(h.Screen), eglNone}
	case handle.Xcb:
		return eglPlatformXCBEXT, []int32{eglPlatformXCBScreenEXT, int32(h.Screen), eglNone}
	}
	return eglPlatformSurfacelessMesa, []int32{eglNone}
}

var platformExtensions = map[uint32][]string{
	eglPlatformWaylandKHR:      {"EGL_KHR_platform_wayland", "EGL_EXT_platform_wayland"},
	eglPlatformX11KHR:          {"EGL_KHR_platform_x11", "EGL_EXT_platform_x11"},
	eglPlatformXCBEXT:          {"EGL_EXT_platform_xcb"},
	eglPlatformSurfacelessMesa: {"EGL_MESA_platform_surfaceless"},
}

func (backend) Open(h handle.Display, opts platform.OpenOptions) (platform.Display, error) {
	const op = "open display"
	l, err := load()
	if err != nil {
		return nil, err
	}
	if h.Platform == handle.Wayland && h.Ptr == 0 {
		return nil, platform.NewError(platform.KindBadParameter, platform.BackendEGL, op, "wayland display handle is nil")
	}

	log := platform.Logger()
	client := parseExtensions(l.QueryString(0, eglExtensions))
	plat, attribs := nativePlatform(h)

	var dpy uintptr
	if l.hasPlatformDisplay && client.any(platformExtensions[plat]...) {
		dpy = l.GetPlatformDisplayEXT(plat, h.Ptr, attribs)
	} else {
		switch h.Platform {
		case handle.Xcb:
			return nil, platform.NewError(platform.KindNotSupported, platform.BackendEGL, op, "libEGL has no XCB platform")
		case handle.Headless:
			log.Warn("egl: surfaceless platform unavailable, using the default display")
		}
		dpy = l.GetDisplay(h.Ptr)
	}
	if dpy == 0 {
		if err := nativeError(l.GetError(), op); err != nil {
			return nil, err
		}
		return nil, platform.NewError(platform.KindNotSupported, platform.BackendEGL, op, "no EGL display for %s", h)
	}

	var major, minor int32
	err = displays.acquire(dpy, func() error {
		if l.Initialize(dpy, &major, &minor) == 0 {
			return l.lastError("initialize")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	d := &display{
		l:            l,
		dpy:          dpy,
		platform:     h.Platform,
		ver:          platform.Version{Major: uint8(major), Minor: uint8(minor)},
		vendor:       l.QueryString(dpy, eglVendor),
		version:      l.QueryString(dpy, eglVersion),
		ext:          parseExtensions(l.QueryString(dpy, eglExtensions)),
		visualFilter: opts.X11VisualID,
	}
	d.features = features(d.ext, d.ver)

	if h.Platform.IsX11() {
		// A private connection serves visual alpha, window size and resize.
		conn, err := x11.NewConnection(h.Name, h.Screen)
		if err != nil {
			log.Debug("egl: no X connection, window geometry comes from EGL", "error", err)
		} else {
			d.x = conn
		}
	}

	log.Debug("egl: display opened", "display", h.String(), "vendor", d.vendor, "version", d.version,
		"client_apis", l.QueryString(dpy, eglClientAPIs))
	return d, nil
}

type display struct {
	l        *lib
	dpy      uintptr
	platform handle.Platform

	ver          platform.Version
	vendor       string
	version      string
	ext          extensions
	features     platform.Features
	visualFilter uint32

	x *x11.Connection
}

var _ platform.Display = (*display)(nil)

func (d *display) VersionString() string {
	return fmt.Sprintf("EGL %s %s", d.version, d.vendor)
}

func (d *display) Features() platform.Features { return d.features }

// SynchronizedCreation is true: EGL entry points are thread-safe.
func (d *display) SynchronizedCreation() bool { return true }

func (d *display) Configs() ([]platform.NativeConfig, error) {
	const op = "get configs"
	var n int32
	if d.l.GetConfigs(d.dpy, nil, 0, &n) == 0 {
		return nil, d.l.lastError(op)
	}
	if n == 0 {
		return nil, nil
	}
	raw := make([]uintptr, n)
	if d.l.GetConfigs(d.dpy, raw, n, &n) == 0 {
		return nil, d.l.lastError(op)
	}

	opts := decodeOptions{
		features:     d.features,
		needVisual:   d.platform.IsX11(),
		visualFilter: d.visualFilter,
	}
	if d.x != nil {
		visuals := d.x.Visuals()
		opts.alphaVisual = func(id uint32) bool {
			v, ok := visuals[xproto.Visualid(id)]
			return ok && v.Alpha
		}
	}

	var out []platform.NativeConfig
	for _, c := range raw[:n] {
		q := func(attr int32) (int32, bool) {
			var v int32
			ok := d.l.GetConfigAttrib(d.dpy, c, attr, &v) != 0
			return v, ok
		}
		a, ok := decodeConfig(q, opts)
		if !ok {
			continue
		}
		out = append(out, platform.NativeConfig{Attribs: a, Index: len(out), Raw: c})
	}
	return out, nil
}

func (d *display) CreateContext(cfg platform.NativeConfig, attrs platform.ContextAttributes, share platform.Context) (platform.Context, error) {
	const op = "create context"
	list, api := contextAttribs(attrs, cfg.Attribs, d.ver, d.features, d.ext)
	if d.l.BindAPI(api) == 0 {
		return nil, d.l.lastError("bind api")
	}
	var shareCtx uintptr
	if share != nil {
		shareCtx = share.(*context).ctx
	}
	ctx := d.l.CreateContext(d.dpy, cfg.Raw.(uintptr), shareCtx, list)
	if ctx == 0 {
		return nil, d.l.lastError(op)
	}
	platform.Logger().Debug("egl: context created", "context", fmt.Sprintf("%#x", ctx), "attribs", len(list)/2)
	return &context{d: d, ctx: ctx, api: api}, nil
}

func (d *display) MakeCurrent(ctx platform.Context, draw, read platform.Surface) error {
	c := ctx.(*context)
	// The bound API is per thread.
	if d.l.BindAPI(c.api) == 0 {
		return d.l.lastError("bind api")
	}
	var ds, rs uintptr
	if draw != nil {
		ds = draw.(*surface).surf
	}
	if read != nil {
		rs = read.(*surface).surf
	}
	if d.l.MakeCurrent(d.dpy, ds, rs, c.ctx) == 0 {
		return d.l.lastError("make current")
	}
	return nil
}

func (d *display) ReleaseCurrent(ctx platform.Context) error {
	c := ctx.(*context)
	if d.l.BindAPI(c.api) == 0 {
		return d.l.lastError("bind api")
	}
	if d.l.MakeCurrent(d.dpy, 0, 0, 0) == 0 {
		return d.l.lastError("release current")
	}
	return nil
}

func (d *display) GetProcAddress(name string) uintptr {
	return d.l.GetProcAddress(name)
}

// Close terminates the EGLDisplay only when no other glkit display shares
// it. An EGLDisplay the application also uses outside glkit is still
// terminated by the last glkit Close.
func (d *display) Close() error {
	if d.x != nil {
		d.x.Close()
	}
	return displays.release(d.dpy, func() error {
		if d.l.Terminate(d.dpy) == 0 {
			return d.l.lastError("terminate")
		}
		platform.Logger().Debug("egl: display terminated")
		return nil
	})
}

type context struct {
	d   *display
	ctx uintptr
	api uint32
}

func (c *context) Raw() uintptr { return c.ctx }

func (c *context) Destroy() error {
	if c.d.l.DestroyContext(c.d.dpy, c.ctx) == 0 {
		return c.d.l.lastError("destroy context")
	}
	return nil
}
