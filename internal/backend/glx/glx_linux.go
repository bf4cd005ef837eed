//go:build linux

package glx

import (
	"fmt"
	"unsafe"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/1broseidon/glkit/handle"
	"github.com/1broseidon/glkit/internal/platform"
	"github.com/1broseidon/glkit/internal/x11"
)

func init() {
	platform.Register(backend{})
}

type backend struct{}

func (backend) Name() string { return platform.BackendGLX }

func (backend) Priority() int { return 100 }

func (backend) Recognizes(p handle.Platform) bool { return p.IsX11() }

// Open drives GLX on the windowing layer's Display* when the handle is an
// Xlib one. XCB handles carry no Display*, so glkit opens its own Xlib
// connection to the same server; GLX drawables are server resources and
// work across connections.
func (backend) Open(h handle.Display, opts platform.OpenOptions) (platform.Display, error) {
	const op = "open display"
	if err := loadLibGL(); err != nil {
		return nil, err
	}

	var ptr uintptr
	if h.Platform == handle.Xlib {
		ptr = h.Ptr
	}
	xl, err := x11.OpenXlib(ptr, h.Name)
	if err != nil {
		return nil, platform.Wrap(err, platform.KindInitializationFailed, platform.BackendGLX, op)
	}
	if !xl.HasGLX() {
		xl.Close()
		return nil, platform.NewError(platform.KindNotSupported, platform.BackendGLX, op, "X server has no GLX extension")
	}

	var major, minor int32
	if !glXQueryVersion(xl.Ptr, &major, &minor) {
		xl.Close()
		return nil, platform.NewError(platform.KindInitializationFailed, platform.BackendGLX, op, "glXQueryVersion failed")
	}
	if major < 1 || (major == 1 && minor < 3) {
		xl.Close()
		return nil, platform.NewError(platform.KindNotSupported, platform.BackendGLX, op,
			"GLX %d.%d is older than 1.3", major, minor)
	}

	// A private xgb connection serves visuals, window geometry and resize
	// without touching the windowing layer's event queue.
	name := h.Name
	if name == "" {
		name = xl.Name()
	}
	conn, err := x11.NewConnection(name, h.Screen)
	if err != nil {
		xl.Close()
		return nil, platform.Wrap(err, platform.KindInitializationFailed, platform.BackendGLX, op)
	}

	screen := int32(conn.Screen)
	d := &display{
		xl:           xl,
		conn:         conn,
		screen:       screen,
		major:        major,
		minor:        minor,
		vendor:       glXQueryServerString(xl.Ptr, screen, glxVendor),
		client:       glXGetClientString(xl.Ptr, glxVendor),
		extString:    glXQueryExtensionsString(xl.Ptr, screen),
		visualFilter: opts.X11VisualID,
	}
	d.ext = parseExtensions(d.extString)
	d.features = d.ext.features()

	platform.Logger().Debug("glx: display opened", "display", h.String(), "vendor", d.vendor, "client", d.client,
		"version", fmt.Sprintf("%d.%d", d.major, d.minor), "own_connection", ptr == 0)
	return d, nil
}

type display struct {
	xl     *x11.Xlib
	conn   *x11.Connection
	screen int32

	major, minor int32
	vendor       string
	client       string
	extString    string
	ext          extensions
	features     platform.Features
	visualFilter uint32
}

var _ platform.Display = (*display)(nil)

func (d *display) VersionString() string {
	return fmt.Sprintf("GLX %d.%d %s (client %s)", d.major, d.minor, d.vendor, d.client)
}

func (d *display) Features() platform.Features { return d.features }

// SynchronizedCreation is true: every libGL call runs inside an error trap,
// and traps on one display never overlap.
func (d *display) SynchronizedCreation() bool { return true }

func (d *display) Configs() ([]platform.NativeConfig, error) {
	const op = "get fbconfigs"
	var n int32
	trap := d.xl.Traps().Begin()
	arr := glXGetFBConfigs(d.xl.Ptr, d.screen, &n)
	if err := trap.End(); err != nil {
		d.xl.Free(arr)
		return nil, platform.Wrap(err, platform.KindOS, platform.BackendGLX, op)
	}
	if arr == 0 || n <= 0 {
		return nil, nil
	}
	handles := append([]uintptr(nil), unsafe.Slice((*uintptr)(unsafe.Pointer(arr)), int(n))...)
	d.xl.Free(arr)

	props := make([]uint32, 0, len(handles)*len(fbAttribNames)*2)
	byID := make(map[uint32]uintptr, len(handles))
	for _, fb := range handles {
		for _, name := range fbAttribNames {
			var v int32
			if glXGetFBConfigAttrib(d.xl.Ptr, fb, int32(name), &v) != 0 {
				v = 0
			}
			if name == glxFBConfigID {
				byID[uint32(v)] = fb
			}
			props = append(props, name, uint32(v))
		}
	}

	visuals := d.conn.Visuals()
	alpha := func(id uint32) bool {
		v, ok := visuals[xproto.Visualid(id)]
		return ok && v.Alpha
	}
	out := decodeFBConfigs(props, len(handles), len(fbAttribNames), d.ext, d.visualFilter, alpha)
	for i := range out {
		fb := out[i].Raw.(fbconfig)
		fb.ptr = byID[fb.id]
		out[i].Raw = fb
	}
	return out, nil
}

func (d *display) CreateContext(cfg platform.NativeConfig, attrs platform.ContextAttributes, share platform.Context) (platform.Context, error) {
	const op = "create context"
	fb := cfg.Raw.(fbconfig)

	arb := d.ext["GLX_ARB_create_context"] && glXCreateContextAttribsARB != nil
	if !arb && attrs != (platform.ContextAttributes{}) {
		return nil, platform.NewError(platform.KindNotSupported, platform.BackendGLX, op,
			"context attributes need GLX_ARB_create_context")
	}
	var shareCtx uintptr
	if share != nil {
		shareCtx = share.(*context).ctx
	}

	var ctx uintptr
	trap := d.xl.Traps().Begin()
	if arb {
		list := attribList(contextAttribs(attrs, cfg.Attribs, d.features))
		ctx = glXCreateContextAttribsARB(d.xl.Ptr, fb.ptr, shareCtx, true, &list[0])
	} else {
		ctx = glXCreateNewContext(d.xl.Ptr, fb.ptr, glxRGBAType, shareCtx, true)
	}
	err := trap.End()
	if err == nil && ctx == 0 {
		err = platform.NewError(platform.KindBadContext, platform.BackendGLX, op, "libGL returned no context")
	}
	if err != nil {
		if ctx != 0 {
			glXDestroyContext(d.xl.Ptr, ctx)
		}
		return nil, platform.Wrap(err, platform.KindBadContext, platform.BackendGLX, op)
	}

	direct := glXIsDirect(d.xl.Ptr, ctx)
	if !direct {
		platform.Logger().Warn("glx: context is indirect, rendering goes through the X server", "fbconfig", fb.id)
	}
	platform.Logger().Debug("glx: context created", "fbconfig", fb.id, "direct", direct)
	return &context{d: d, ctx: ctx}, nil
}

func (d *display) MakeCurrent(ctx platform.Context, draw, read platform.Surface) error {
	gc := ctx.(*context)
	var dr, rd uintptr
	if draw != nil {
		dr = draw.(*surface).drawable
	}
	if read != nil {
		rd = read.(*surface).drawable
	}
	trap := d.xl.Traps().Begin()
	ok := glXMakeContextCurrent(d.xl.Ptr, dr, rd, gc.ctx)
	return callError(ok, trap.End(), platform.KindBadMatch, "make current")
}

// ReleaseCurrent releases the calling thread's current context, which
// glkit has checked to be ctx.
func (d *display) ReleaseCurrent(platform.Context) error {
	trap := d.xl.Traps().Begin()
	ok := glXMakeContextCurrent(d.xl.Ptr, 0, 0, 0)
	return callError(ok, trap.End(), platform.KindBadContext, "release current")
}

func (d *display) GetProcAddress(name string) uintptr {
	return glXGetProcAddressARB(name)
}

func (d *display) Close() error {
	d.xl.Close()
	d.conn.Traps().Drain()
	d.conn.Close()
	return nil
}

type context struct {
	d   *display
	ctx uintptr
}

func (c *context) Raw() uintptr { return c.ctx }

func (c *context) Destroy() error {
	trap := c.d.xl.Traps().Begin()
	glXDestroyContext(c.d.xl.Ptr, c.ctx)
	return platform.Wrap(trap.End(), platform.KindBadContext, platform.BackendGLX, "destroy context")
}

// callError reports a libGL call returning Bool. The X error trapped for the
// call wins; a bare False becomes kind.
func callError(ok bool, trapErr error, kind platform.Kind, op string) error {
	if trapErr != nil {
		return platform.Wrap(trapErr, platform.KindOS, platform.BackendGLX, op)
	}
	if !ok {
		return platform.NewError(kind, platform.BackendGLX, op, "libGL reported failure")
	}
	return nil
}

// replyError maps the error of an xgb request with a reply. An xgb.Error is
// a protocol error for that request; anything else means the connection
// broke.
func replyError(err error, op string) error {
	if xerr, ok := err.(xgb.Error); ok {
		return platform.Wrap(x11.MapError(xerr), platform.KindOS, platform.BackendGLX, op)
	}
	return platform.Wrap(err, platform.KindDisplayLost, platform.BackendGLX, op)
}
