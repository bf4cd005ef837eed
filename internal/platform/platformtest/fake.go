// Package platformtest provides an in-memory backend for exercising glkit
// without a display server. Its configs, window sizes and native failures are
// fully scripted by the test.
package platformtest

import (
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/1broseidon/glkit/handle"
	"github.com/1broseidon/glkit/internal/platform"
)

// Name is the registry name of the fake backend.
const Name = "fake"

// DefaultConfigs is the native enumeration the fake reports unless a test
// overrides Backend.ConfigList. Depth never exceeds 24 bits.
func DefaultConfigs() []platform.ConfigAttribs {
	all := platform.SurfaceWindow | platform.SurfacePixmap | platform.SurfacePbuffer
	gl := platform.APIOpenGL | platform.APIGLES2 | platform.APIGLES3
	return []platform.ConfigAttribs{
		{Red: 5, Green: 6, Blue: 5, Depth: 16, DoubleBuffered: true, HardwareAccelerated: true,
			SurfaceTypes: platform.SurfaceWindow | platform.SurfacePbuffer, APIs: platform.APIOpenGL | platform.APIGLES2,
			MaxSwapInterval: 1, MaxPbufferWidth: 4096, MaxPbufferHeight: 4096},
		{Red: 8, Green: 8, Blue: 8, Alpha: 8, Depth: 24, Stencil: 8, DoubleBuffered: true, HardwareAccelerated: true,
			SurfaceTypes: all, APIs: gl, MaxSwapInterval: 1, MaxPbufferWidth: 4096, MaxPbufferHeight: 4096},
		{Red: 8, Green: 8, Blue: 8, Alpha: 8, Depth: 24, Stencil: 8, Samples: 4, DoubleBuffered: true, HardwareAccelerated: true,
			SurfaceTypes: all, APIs: gl, MaxSwapInterval: 1, MaxPbufferWidth: 4096, MaxPbufferHeight: 4096},
		{Red: 8, Green: 8, Blue: 8, Alpha: 8, Depth: 16, DoubleBuffered: true,
			SurfaceTypes: platform.SurfaceWindow | platform.SurfacePbuffer, APIs: gl, MaxSwapInterval: 1,
			MaxPbufferWidth: 2048, MaxPbufferHeight: 2048},
		{Red: 8, Green: 8, Blue: 8, Alpha: 8, Depth: 24, Stencil: 8, SRGB: true, DoubleBuffered: true, HardwareAccelerated: true,
			SurfaceTypes: all, APIs: gl, MaxSwapInterval: 1, MaxPbufferWidth: 4096, MaxPbufferHeight: 4096},
		{Red: 10, Green: 10, Blue: 10, Alpha: 2, Depth: 24, Stencil: 8, DoubleBuffered: true, HardwareAccelerated: true,
			SurfaceTypes: platform.SurfaceWindow, APIs: platform.APIOpenGL, MaxSwapInterval: 1},
	}
}

// Backend is a scripted platform.Backend.
type Backend struct {
	ConfigList   []platform.ConfigAttribs
	Platforms    []handle.Platform
	Prio         int
	FeatureSet   platform.Features
	Synchronized bool
	// Deferred makes contexts pending until made current with a surface.
	Deferred bool
	OpenErr  error
	// OnMakeCurrent runs inside every native MakeCurrent before it takes
	// effect.
	OnMakeCurrent func()

	BackendName string

	mu       sync.Mutex
	calls    []string
	failures map[string]error
	windows  map[uint32]*[2]int
	nextID   uintptr
	// current is the per-thread current slot. Like a real driver it spans
	// every display of the backend.
	current map[uint64]*Context
	// opens counts the open displays sharing one native display. Opening
	// the same handle twice yields the same native display, as
	// eglGetPlatformDisplay does.
	opens map[string]int
}

var _ platform.Backend = (*Backend)(nil)

// New returns a headless fake with DefaultConfigs and every feature except
// partial present.
func New() *Backend {
	return &Backend{
		ConfigList: DefaultConfigs(),
		Platforms:  []handle.Platform{handle.Headless, handle.Xlib},
		Prio:       1000,
		FeatureSet: platform.FeatureSwapControl | platform.FeatureSurfacelessContext |
			platform.FeatureMultisamplingPixelFormats | platform.FeatureSRGBFramebuffers |
			platform.FeatureCreateESContext,
		Synchronized: true,
		windows:      make(map[uint32]*[2]int),
		failures:     make(map[string]error),
		current:      make(map[uint64]*Context),
		opens:        make(map[string]int),
	}
}

func (b *Backend) Name() string {
	if b.BackendName != "" {
		return b.BackendName
	}
	return Name
}

func (b *Backend) Priority() int { return b.Prio }

func (b *Backend) Recognizes(p handle.Platform) bool {
	for _, q := range b.Platforms {
		if q == p {
			return true
		}
	}
	return false
}

func (b *Backend) Open(h handle.Display, opts platform.OpenOptions) (platform.Display, error) {
	b.record("Open")
	if b.OpenErr != nil {
		return nil, b.OpenErr
	}
	key := h.String()
	b.mu.Lock()
	b.opens[key]++
	b.mu.Unlock()
	return &Display{b: b, key: key}, nil
}

// NativeCurrent returns the context the fake believes is current on the
// calling thread, whichever display it came from.
func (b *Backend) NativeCurrent() *Context {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current[platform.ThreadID()]
}

// Initialized reports whether the native display behind handle h is still
// initialized, that is whether any display opened on it is still open.
func (b *Backend) Initialized(h handle.Display) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.opens[h.String()] > 0
}

// FailNext makes the next native call named op fail with err.
func (b *Backend) FailNext(op string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[op] = err
}

// Calls returns the native calls issued so far.
func (b *Backend) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

// CallCount returns how many times op was issued.
func (b *Backend) CallCount(op string) int {
	n := 0
	for _, c := range b.Calls() {
		if c == op {
			n++
		}
	}
	return n
}

// AddWindow creates a native window of the given size and returns its handle.
func (b *Backend) AddWindow(width, height int) handle.Window {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := uint32(b.nextID)
	b.windows[id] = &[2]int{width, height}
	return handle.Window{Platform: handle.Xlib, ID: id}
}

// ResizeWindow changes a window's size behind glkit's back, as a window
// manager would.
func (b *Backend) ResizeWindow(w handle.Window, width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sz, ok := b.windows[w.ID]; ok {
		sz[0], sz[1] = width, height
	}
}

func (b *Backend) record(op string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, op)
	if err, ok := b.failures[op]; ok {
		delete(b.failures, op)
		return err
	}
	return nil
}

func (b *Backend) newID() uintptr {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	return b.nextID
}

// Display is the fake's open connection.
type Display struct {
	b   *Backend
	key string

	mu     sync.Mutex
	closed bool
}

func (d *Display) VersionString() string { return "fake 1.5" }
func (d *Display) Features() platform.Features { return d.b.FeatureSet }
func (d *Display) SynchronizedCreation() bool { return d.b.Synchronized }
func (d *Display) Backend() *Backend { return d.b }

func (d *Display) Configs() ([]platform.NativeConfig, error) {
	if err := d.b.record("Configs"); err != nil {
		return nil, err
	}
	out := make([]platform.NativeConfig, len(d.b.ConfigList))
	for i, a := range d.b.ConfigList {
		out[i] = platform.NativeConfig{Attribs: a, Index: i, Raw: i}
	}
	return out, nil
}

func (d *Display) CreateContext(cfg platform.NativeConfig, attrs platform.ContextAttributes, share platform.Context) (platform.Context, error) {
	if err := d.b.record("CreateContext"); err != nil {
		return nil, err
	}
	if attrs.ResolveAPI(cfg.Attribs) == platform.ContextAPIGLES && !d.b.FeatureSet.Has(platform.FeatureCreateESContext) {
		return nil, platform.NewError(platform.KindNotSupported, Name, "CreateContext", "gles contexts unavailable")
	}
	ctx := &Context{d: d, id: d.b.newID(), Attrs: attrs, pending: d.b.Deferred}
	if share != nil {
		ctx.Shared = share.(*Context)
	}
	return ctx, nil
}

func (d *Display) CreateWindowSurface(cfg platform.NativeConfig, win handle.Window, width, height int, attrs platform.SurfaceAttributes) (platform.Surface, error) {
	if err := d.b.record("CreateWindowSurface"); err != nil {
		return nil, err
	}
	d.b.mu.Lock()
	_, ok := d.b.windows[win.ID]
	d.b.mu.Unlock()
	if !ok {
		return nil, platform.NativeError(platform.KindBadNativeWindow, Name, "CreateWindowSurface", 0x300B, "unknown window")
	}
	return &Surface{d: d, typ: platform.WindowSurface, window: win.ID, id: d.b.newID(), Attrs: attrs, DoubleBuffered: cfg.Attribs.DoubleBuffered}, nil
}

func (d *Display) CreatePixmapSurface(cfg platform.NativeConfig, pix handle.Pixmap, attrs platform.SurfaceAttributes) (platform.Surface, error) {
	if err := d.b.record("CreatePixmapSurface"); err != nil {
		return nil, err
	}
	return &Surface{d: d, typ: platform.PixmapSurface, width: 256, height: 256, id: d.b.newID(), Attrs: attrs}, nil
}

func (d *Display) CreatePbufferSurface(cfg platform.NativeConfig, width, height int, attrs platform.SurfaceAttributes) (platform.Surface, error) {
	if err := d.b.record("CreatePbufferSurface"); err != nil {
		return nil, err
	}
	return &Surface{d: d, typ: platform.PbufferSurface, width: width, height: height, id: d.b.newID(), Attrs: attrs, DoubleBuffered: cfg.Attribs.DoubleBuffered}, nil
}

func (d *Display) MakeCurrent(ctx platform.Context, draw, read platform.Surface) error {
	if err := d.b.record("MakeCurrent"); err != nil {
		return err
	}
	if d.b.OnMakeCurrent != nil {
		d.b.OnMakeCurrent()
	}
	if err := d.checkInitialized("MakeCurrent"); err != nil {
		return err
	}
	c := ctx.(*Context)
	if c.destroyed {
		return platform.NativeError(platform.KindBadContext, Name, "MakeCurrent", 0x3006, "context destroyed")
	}
	tid := platform.ThreadID()
	b := d.b
	b.mu.Lock()
	defer b.mu.Unlock()
	for t, cur := range b.current {
		if cur == c && t != tid {
			delete(b.current, t)
		}
	}
	b.current[tid] = c
	if draw != nil {
		c.Draw = draw.(*Surface)
	} else {
		c.Draw = nil
	}
	return nil
}

// ReleaseCurrent empties the calling thread's slot whatever is in it, the
// way eglMakeCurrent(EGL_NO_CONTEXT) does.
func (d *Display) ReleaseCurrent(ctx platform.Context) error {
	if err := d.b.record("ReleaseCurrent"); err != nil {
		return err
	}
	d.b.mu.Lock()
	defer d.b.mu.Unlock()
	delete(d.b.current, platform.ThreadID())
	return nil
}

// NativeCurrent returns the context current on the calling thread.
func (d *Display) NativeCurrent() *Context {
	return d.b.NativeCurrent()
}

func (d *Display) checkInitialized(op string) error {
	d.b.mu.Lock()
	defer d.b.mu.Unlock()
	if d.b.opens[d.key] == 0 {
		return platform.NativeError(platform.KindDisplayLost, Name, op, 0x3001, "display not initialized")
	}
	return nil
}

var knownProcs = map[string]bool{
	"glClear":      true,
	"glClearColor": true,
	"glViewport":   true,
	"glGetString":  true,
	"glFlush":      true,
}

func (d *Display) GetProcAddress(name string) uintptr {
	if !knownProcs[name] {
		return 0
	}
	h := fnv.New32a()
	h.Write([]byte(name))
	return uintptr(h.Sum32()) | 1
}

func (d *Display) Close() error {
	if err := d.b.record("Close"); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	d.b.mu.Lock()
	d.b.opens[d.key]--
	d.b.mu.Unlock()
	return nil
}

// Closed reports whether the native connection was torn down.
func (d *Display) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// Context is the fake native context.
type Context struct {
	d         *Display
	id        uintptr
	pending   bool
	destroyed bool

	Attrs  platform.ContextAttributes
	Shared *Context
	Draw   *Surface
}

var _ platform.DeferredContext = (*Context)(nil)

func (c *Context) Raw() uintptr { return c.id }
func (c *Context) Pending() bool { return c.pending }

func (c *Context) Finalize(s platform.Surface) error {
	if err := c.d.b.record("Finalize"); err != nil {
		return err
	}
	if s.Type() != platform.WindowSurface {
		return platform.NewError(platform.KindBadSurface, Name, "Finalize", "deferred contexts finalize on windows only, got %s", s.Type())
	}
	c.pending = false
	return nil
}

func (c *Context) Destroy() error {
	if err := c.d.b.record("DestroyContext"); err != nil {
		return err
	}
	c.destroyed = true
	b := c.d.b
	b.mu.Lock()
	defer b.mu.Unlock()
	for t, cur := range b.current {
		if cur == c {
			delete(b.current, t)
		}
	}
	return nil
}

// Destroyed reports whether Destroy ran.
func (c *Context) Destroyed() bool { return c.destroyed }

// Surface is the fake native drawable.
type Surface struct {
	d      *Display
	typ    platform.SurfaceType
	id     uintptr
	window uint32
	width  int
	height int

	Attrs          platform.SurfaceAttributes
	DoubleBuffered bool
	Swaps          int
	DamageSwaps    int
	LastDamage     []platform.Rect
	Interval       platform.SwapInterval
	destroyed      bool
}

func (s *Surface) Type() platform.SurfaceType { return s.typ }
func (s *Surface) Raw() uintptr { return s.id }

func (s *Surface) Size() (int, int, error) {
	if s.typ != platform.WindowSurface {
		return s.width, s.height, nil
	}
	s.d.b.mu.Lock()
	defer s.d.b.mu.Unlock()
	sz, ok := s.d.b.windows[s.window]
	if !ok {
		return 0, 0, platform.NativeError(platform.KindBadNativeWindow, Name, "Size", 0x300B, "window gone")
	}
	return sz[0], sz[1], nil
}

func (s *Surface) Resize(width, height int) error {
	if err := s.d.b.record("Resize"); err != nil {
		return err
	}
	if s.typ != platform.WindowSurface {
		return platform.NewError(platform.KindNotSupported, Name, "Resize", "%s surfaces have a fixed size", s.typ)
	}
	s.d.b.mu.Lock()
	defer s.d.b.mu.Unlock()
	if sz, ok := s.d.b.windows[s.window]; ok {
		sz[0], sz[1] = width, height
	}
	return nil
}

func (s *Surface) SwapBuffers(ctx platform.Context) error {
	if err := s.d.b.record("SwapBuffers"); err != nil {
		return err
	}
	if err := s.d.checkInitialized("SwapBuffers"); err != nil {
		return err
	}
	s.Swaps++
	return nil
}

func (s *Surface) SupportsDamage() bool {
	return s.d.b.FeatureSet.Has(platform.FeaturePartialPresent)
}

func (s *Surface) SwapBuffersWithDamage(ctx platform.Context, rects []platform.Rect) error {
	if !s.SupportsDamage() {
		return platform.NewError(platform.KindNotSupported, Name, "SwapBuffersWithDamage", "no partial present")
	}
	if err := s.d.b.record("SwapBuffersWithDamage"); err != nil {
		return err
	}
	s.DamageSwaps++
	s.LastDamage = append([]platform.Rect(nil), rects...)
	return nil
}

func (s *Surface) SetSwapInterval(ctx platform.Context, interval platform.SwapInterval) error {
	if err := s.d.b.record("SetSwapInterval"); err != nil {
		return err
	}
	s.Interval = interval
	return nil
}

func (s *Surface) BufferAge() (int, error) {
	if s.Swaps == 0 {
		return 0, nil
	}
	if s.DoubleBuffered {
		return 2, nil
	}
	return 1, nil
}

func (s *Surface) Destroy() error {
	if err := s.d.b.record("DestroySurface"); err != nil {
		return err
	}
	s.destroyed = true
	return nil
}

// Destroyed reports whether Destroy ran.
func (s *Surface) Destroyed() bool { return s.destroyed }

func (s *Surface) String() string {
	return fmt.Sprintf("fake %s surface #%d", s.typ, s.id)
}
