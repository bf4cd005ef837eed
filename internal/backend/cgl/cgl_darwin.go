//go:build darwin

package cgl

import (
	"fmt"
	"sync"

	"github.com/ebitengine/purego"
	"github.com/ebitengine/purego/objc"

	"github.com/1broseidon/glkit/handle"
	"github.com/1broseidon/glkit/internal/platform"
)

func init() {
	platform.Register(backend{})
}

type backend struct{}

func (backend) Name() string { return platform.BackendCGL }

func (backend) Priority() int { return 80 }

func (backend) Recognizes(p handle.Platform) bool {
	return p == handle.AppKit || p == handle.Headless
}

func (backend) Open(h handle.Display, _ platform.OpenOptions) (platform.Display, error) {
	l, err := load()
	if err != nil {
		return nil, err
	}
	d := &display{l: l, headless: h.Platform == handle.Headless}
	l.GetVersion(&d.major, &d.minor)
	d.features = platform.FeatureSwapControl |
		platform.FeatureMultisamplingPixelFormats |
		platform.FeatureFloatPixelFormat |
		platform.FeatureSurfacelessContext
	platform.Logger().Debug("cgl: display opened", "display", h.String(), "version", fmt.Sprintf("%d.%d", d.major, d.minor))
	return d, nil
}

// pixelFormat is a config's native reference: a CGLPixelFormatObj, the
// virtual screen it was described on and the profile it was chosen with.
type pixelFormat struct {
	obj     uintptr
	screen  int32
	profile int32
}

type display struct {
	l        *lib
	headless bool
	features platform.Features

	major, minor int32

	mu      sync.Mutex
	configs []platform.NativeConfig
	// formats holds every pixel format object a config refers to.
	formats []uintptr
}

var _ platform.Display = (*display)(nil)

func (d *display) VersionString() string {
	return fmt.Sprintf("CGL %d.%d", d.major, d.minor)
}

func (d *display) Features() platform.Features { return d.features }

// SynchronizedCreation is false: AppKit objects and the cached pixel
// formats are not safe for concurrent creation.
func (d *display) SynchronizedCreation() bool { return false }

// Configs walks the template grid once; the pixel format objects stay alive
// until Close since contexts are created from them.
func (d *display) Configs() ([]platform.NativeConfig, error) {
	const op = "choose pixel format"
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.configs != nil {
		return d.configs, nil
	}

	log := platform.Logger()
	seen := make(map[formatKey]bool)
	out := []platform.NativeConfig{}
	for _, t := range templates() {
		var (
			pix uintptr
			n   int32
		)
		if err := d.l.check(d.l.ChoosePixelFormat(t.attribs(), &pix, &n), op); err != nil {
			log.Debug("cgl: pixel format template rejected", "profile", fmt.Sprintf("%#x", t.profile), "error", err)
			continue
		}
		if pix == 0 {
			continue
		}
		used := false
		for screen := int32(0); screen < n; screen++ {
			q := func(attr int32) (int32, bool) {
				var v int32
				ok := d.l.DescribePixelFormat(pix, screen, attr, &v) == errNoError
				return v, ok
			}
			a, ok := decodePixelFormat(q, t.profile)
			if !ok {
				continue
			}
			if d.headless {
				a.SurfaceTypes &^= platform.SurfaceWindow
			}
			key := formatKey{profile: t.profile, screen: screen, attribs: a}
			if seen[key] {
				continue
			}
			seen[key] = true
			used = true
			out = append(out, platform.NativeConfig{
				Attribs: a,
				Index:   len(out),
				Raw:     pixelFormat{obj: pix, screen: screen, profile: t.profile},
			})
		}
		if used {
			d.formats = append(d.formats, pix)
		} else {
			d.l.DestroyPixelFormat(pix)
		}
	}
	d.configs = out
	return out, nil
}

func (d *display) CreateContext(cfg platform.NativeConfig, attrs platform.ContextAttributes, share platform.Context) (platform.Context, error) {
	const op = "create context"
	pf := cfg.Raw.(pixelFormat)
	if err := checkContext(attrs, cfg.Attribs, pf.profile); err != nil {
		return nil, err
	}
	var shareCtx uintptr
	if share != nil {
		shareCtx = share.(*context).cgl
	}
	var ctx uintptr
	if err := d.l.check(d.l.CreateContext(pf.obj, shareCtx, &ctx), op); err != nil {
		return nil, err
	}
	if err := d.l.check(d.l.SetVirtualScreen(ctx, pf.screen), op); err != nil {
		d.l.DestroyContext(ctx)
		return nil, err
	}
	if cfg.Attribs.Transparency {
		opacity := int32(0)
		d.l.SetParameter(ctx, cpSurfaceOpacity, &opacity)
	}
	if attrs.Debug {
		platform.Logger().Debug("cgl: debug contexts are not available, creating a regular context")
	}
	return &context{d: d, cgl: ctx, screen: pf.screen}, nil
}

func (d *display) MakeCurrent(ctx platform.Context, draw, read platform.Surface) error {
	const op = "make current"
	c := ctx.(*context)
	if read != nil && read != draw {
		return platform.NewError(platform.KindNotSupported, platform.BackendCGL, op, "CGL has no separate read surface")
	}
	if draw == nil {
		c.detach()
	} else if err := draw.(*surface).attach(c); err != nil {
		return err
	}
	return d.l.check(d.l.SetCurrentContext(c.cgl), op)
}

func (d *display) ReleaseCurrent(platform.Context) error {
	return d.l.check(d.l.SetCurrentContext(0), "release current")
}

func (d *display) GetProcAddress(name string) uintptr {
	p, err := purego.Dlsym(d.l.handle, name)
	if err != nil {
		return 0
	}
	return p
}

func (d *display) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, pix := range d.formats {
		d.l.DestroyPixelFormat(pix)
	}
	d.formats, d.configs = nil, nil
	return nil
}

type context struct {
	d      *display
	cgl    uintptr
	screen int32

	// ns wraps cgl once the context is attached to a view.
	ns   objc.ID
	view objc.ID
}

func (c *context) Raw() uintptr { return c.cgl }

// detach unbinds whatever drawable the context renders to.
func (c *context) detach() {
	if c.ns != 0 {
		ak, _ := loadAppKit()
		c.ns.Send(ak.selClearDrawable)
		c.view = 0
	}
	c.d.l.ClearDrawable(c.cgl)
}

func (c *context) Destroy() error {
	if c.ns != 0 {
		ak, _ := loadAppKit()
		c.ns.Send(ak.selClearDrawable)
		c.ns.Send(ak.selRelease)
		c.ns = 0
	}
	return c.d.l.check(c.d.l.DestroyContext(c.cgl), "destroy context")
}
