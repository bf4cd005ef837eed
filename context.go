package glkit

import (
	"sync"
	"sync/atomic"

	"github.com/1broseidon/glkit/internal/platform"
)

// ContextAttributes are the creation parameters of a context.
type ContextAttributes struct {
	API             ContextAPI
	Version         Version
	Profile         Profile
	Robustness      Robustness
	ReleaseBehavior ReleaseBehavior
	Debug           bool
	Priority        Priority
	// Share makes server-side objects (textures, buffers) of another
	// context from the same display visible to the new one.
	Share SharedContext
}

// SharedContext is implemented by *NotCurrentContext and
// *PossiblyCurrentContext.
type SharedContext interface {
	sharedState() *contextState
}

func (a ContextAttributes) native() platform.ContextAttributes {
	return platform.ContextAttributes{
		API:             a.API,
		Version:         a.Version,
		Profile:         a.Profile,
		Robustness:      a.Robustness,
		ReleaseBehavior: a.ReleaseBehavior,
		Debug:           a.Debug,
		Priority:        a.Priority,
	}
}

// contextState is the native context shared by the two typestate handles.
type contextState struct {
	display *Display
	native  platform.Context
	config  Config
	attrs   ContextAttributes

	// op serializes state transitions of this context.
	op sync.Mutex

	destroyed bool

	// Guarded by bindMu.
	thread     uint64
	draw, read *Surface
}

// The native current slot belongs to the OS thread, not to a display: making
// a context of one display current releases whatever another display had
// current there. bindings mirrors that slot for every display in the process.
var (
	bindMu   sync.Mutex
	bindings = make(map[uint64]*contextState)
)

// NotCurrentContext is a context that is not current on any thread. Making it
// current consumes the handle and yields a *PossiblyCurrentContext.
type NotCurrentContext struct {
	st    *contextState
	spent atomic.Bool
}

// PossiblyCurrentContext is a context that was made current. It may have been
// replaced on its thread since; IsCurrent tells.
type PossiblyCurrentContext struct {
	st    *contextState
	spent atomic.Bool
}

func (c *NotCurrentContext) sharedState() *contextState      { return c.st }
func (c *PossiblyCurrentContext) sharedState() *contextState { return c.st }

// CreateContext creates a context for cfg. The context starts NotCurrent.
func (d *Display) CreateContext(cfg Config, attrs ContextAttributes) (*NotCurrentContext, error) {
	const op = "create context"
	if err := d.checkConfig(cfg, op); err != nil {
		return nil, err
	}
	if err := d.checkContextFeatures(cfg, attrs); err != nil {
		return nil, err
	}

	var share platform.Context
	if attrs.Share != nil {
		ss := attrs.Share.sharedState()
		if ss == nil || ss.display != d {
			return nil, newError(platform.KindPlatformMismatch, d.backend, op, "shared context belongs to another display")
		}
		ss.op.Lock()
		destroyed := ss.destroyed
		ss.op.Unlock()
		if destroyed {
			return nil, newError(platform.KindBadContext, d.backend, op, "shared context was destroyed")
		}
		share = ss.native
	}

	st := &contextState{display: d, config: cfg, attrs: attrs}
	err := d.create(op, func() error {
		nc, err := d.native.CreateContext(cfg.native, attrs.native(), share)
		if err != nil {
			return err
		}
		st.native = nc
		return nil
	})
	if err != nil {
		return nil, err
	}
	platform.Logger().Debug("glkit: context created", "backend", d.backend, "config", cfg.Index(), "shared", share != nil)
	return &NotCurrentContext{st: st}, nil
}

func (d *Display) checkContextFeatures(cfg Config, attrs ContextAttributes) error {
	const op = "create context"
	switch attrs.Robustness {
	case RobustNoError:
		if !d.features.Has(FeatureContextNoError) {
			return newError(platform.KindNotSupported, d.backend, op, "no-error contexts are unavailable")
		}
	case RobustNoResetNotification, RobustLoseContextOnReset:
		if !d.features.Has(FeatureContextRobustness) {
			return newError(platform.KindNotSupported, d.backend, op, "robust contexts are unavailable")
		}
	}
	if attrs.ReleaseBehavior == ReleaseNone && !d.features.Has(FeatureContextReleaseBehavior) {
		return newError(platform.KindNotSupported, d.backend, op, "release behavior control is unavailable")
	}
	api := attrs.native().ResolveAPI(cfg.Attribs())
	if api == ContextAPIGLES && !d.features.Has(FeatureCreateESContext) {
		return newError(platform.KindNotSupported, d.backend, op, "GLES contexts are unavailable")
	}
	if cfg.APIs() != 0 {
		if api == ContextAPIOpenGL && !cfg.APIs().Has(APIOpenGL) {
			return newError(platform.KindBadConfig, d.backend, op, "config does not support OpenGL")
		}
		if api == ContextAPIGLES && cfg.APIs()&(APIGLES1|APIGLES2|APIGLES3) == 0 {
			return newError(platform.KindBadConfig, d.backend, op, "config does not support GLES")
		}
	}
	return nil
}

func (c *NotCurrentContext) take(op string) (*contextState, error) {
	if c == nil || c.st == nil {
		return nil, newError(platform.KindBadContext, "", op, "nil context")
	}
	if c.spent.Load() {
		return nil, newError(platform.KindContextConsumed, c.st.display.backend, op, "not-current handle already converted")
	}
	return c.st, nil
}

func (c *PossiblyCurrentContext) take(op string) (*contextState, error) {
	if c == nil || c.st == nil {
		return nil, newError(platform.KindBadContext, "", op, "nil context")
	}
	if c.spent.Load() {
		return nil, newError(platform.KindContextConsumed, c.st.display.backend, op, "possibly-current handle already converted")
	}
	return c.st, nil
}

// MakeCurrent binds the context to the calling OS thread and s, for both
// drawing and reading. On failure the context stays NotCurrent and c remains
// usable.
func (c *NotCurrentContext) MakeCurrent(s *Surface) (*PossiblyCurrentContext, error) {
	return c.MakeCurrentDrawRead(s, s)
}

// MakeCurrentDrawRead binds the context with separate draw and read surfaces.
func (c *NotCurrentContext) MakeCurrentDrawRead(draw, read *Surface) (*PossiblyCurrentContext, error) {
	const op = "make current"
	st, err := c.take(op)
	if err != nil {
		return nil, err
	}
	if draw == nil || read == nil {
		return nil, newError(platform.KindBadSurface, st.display.backend, op, "nil surface; use MakeCurrentSurfaceless")
	}
	if err := st.makeCurrent(draw, read); err != nil {
		return nil, err
	}
	return c.convert(), nil
}

// MakeCurrentSurfaceless binds the context to the calling thread without a
// drawable, for offscreen work through framebuffer objects.
func (c *NotCurrentContext) MakeCurrentSurfaceless() (*PossiblyCurrentContext, error) {
	st, err := c.take("make current surfaceless")
	if err != nil {
		return nil, err
	}
	if err := st.makeCurrent(nil, nil); err != nil {
		return nil, err
	}
	return c.convert(), nil
}

// TreatAsPossiblyCurrent converts c without any native call. Use it only when
// the native context is already current on the calling thread, for example
// when a host process made it current.
func (c *NotCurrentContext) TreatAsPossiblyCurrent() (*PossiblyCurrentContext, error) {
	st, err := c.take("treat as current")
	if err != nil {
		return nil, err
	}
	st.op.Lock()
	defer st.op.Unlock()
	if st.destroyed {
		return nil, newError(platform.KindBadContext, st.display.backend, "treat as current", "context was destroyed")
	}
	bindMu.Lock()
	bindLocked(st, platform.ThreadID(), nil, nil)
	bindMu.Unlock()
	return c.convert(), nil
}

func (c *NotCurrentContext) convert() *PossiblyCurrentContext {
	c.spent.Store(true)
	return &PossiblyCurrentContext{st: c.st}
}

// Destroy releases the native context.
func (c *NotCurrentContext) Destroy() error {
	st, err := c.take("destroy context")
	if err != nil {
		return err
	}
	c.spent.Store(true)
	return st.destroy()
}

// Config returns the config the context was created from.
func (c *NotCurrentContext) Config() Config { return c.st.config }

// Display returns the owning display.
func (c *NotCurrentContext) Display() *Display { return c.st.display }

// Attributes returns the creation attributes.
func (c *NotCurrentContext) Attributes() ContextAttributes { return c.st.attrs }

// Raw returns the native context handle.
func (c *NotCurrentContext) Raw() uintptr { return c.st.native.Raw() }

// MakeCurrent rebinds the context to s on the calling thread. Calling it
// again with the surface it is already current on, from the same thread, is a
// no-op.
func (c *PossiblyCurrentContext) MakeCurrent(s *Surface) error {
	return c.MakeCurrentDrawRead(s, s)
}

// MakeCurrentDrawRead rebinds with separate draw and read surfaces.
func (c *PossiblyCurrentContext) MakeCurrentDrawRead(draw, read *Surface) error {
	const op = "make current"
	st, err := c.take(op)
	if err != nil {
		return err
	}
	if draw == nil || read == nil {
		return newError(platform.KindBadSurface, st.display.backend, op, "nil surface; use MakeCurrentSurfaceless")
	}
	return st.makeCurrent(draw, read)
}

// MakeCurrentSurfaceless rebinds the context without a drawable.
func (c *PossiblyCurrentContext) MakeCurrentSurfaceless() error {
	st, err := c.take("make current surfaceless")
	if err != nil {
		return err
	}
	return st.makeCurrent(nil, nil)
}

// MakeNotCurrent releases the calling thread's binding and returns the
// NotCurrent handle. It fails with ErrContextMismatch when the context is not
// the calling thread's current one.
func (c *PossiblyCurrentContext) MakeNotCurrent() (*NotCurrentContext, error) {
	st, err := c.take("make not current")
	if err != nil {
		return nil, err
	}
	if err := st.makeNotCurrent(); err != nil {
		return nil, err
	}
	c.spent.Store(true)
	return &NotCurrentContext{st: st}, nil
}

// IsCurrent reports whether the context is current on the calling thread.
func (c *PossiblyCurrentContext) IsCurrent() bool {
	if c == nil || c.st == nil || c.spent.Load() {
		return false
	}
	return c.st.current()
}

// Destroy releases the native context. If it is current on the calling
// thread that binding is released first; other threads' contexts are left
// alone.
func (c *PossiblyCurrentContext) Destroy() error {
	st, err := c.take("destroy context")
	if err != nil {
		return err
	}
	c.spent.Store(true)
	return st.destroy()
}

func (c *PossiblyCurrentContext) Config() Config                { return c.st.config }
func (c *PossiblyCurrentContext) Display() *Display             { return c.st.display }
func (c *PossiblyCurrentContext) Attributes() ContextAttributes { return c.st.attrs }
func (c *PossiblyCurrentContext) Raw() uintptr                  { return c.st.native.Raw() }

// current reports whether st is current on the calling thread.
func (st *contextState) current() bool {
	bindMu.Lock()
	defer bindMu.Unlock()
	return bindings[platform.ThreadID()] == st
}

func (st *contextState) makeCurrent(draw, read *Surface) error {
	const op = "make current"
	d := st.display
	st.op.Lock()
	defer st.op.Unlock()

	if st.destroyed {
		return newError(platform.KindBadContext, d.backend, op, "context was destroyed")
	}
	if err := d.checkOpen(op); err != nil {
		return err
	}
	for _, s := range []*Surface{draw, read} {
		if s != nil && s.display != d {
			return newError(platform.KindPlatformMismatch, d.backend, op, "surface belongs to another display")
		}
	}

	tid := platform.ThreadID()
	bindMu.Lock()
	if st.thread == tid && bindings[tid] == st && st.draw == draw && st.read == read {
		bindMu.Unlock()
		return nil
	}
	// Pin the surfaces until the binding is recorded so Destroy cannot free
	// them under the native call.
	for _, s := range []*Surface{draw, read} {
		if s != nil && s.destroyed {
			bindMu.Unlock()
			return newError(platform.KindBadSurface, d.backend, op, "surface was destroyed")
		}
	}
	pin(draw, read, 1)
	bindMu.Unlock()

	err := st.makeCurrentNative(draw, read)

	bindMu.Lock()
	pin(draw, read, -1)
	if err == nil {
		bindLocked(st, tid, draw, read)
	}
	bindMu.Unlock()
	return err
}

func (st *contextState) makeCurrentNative(draw, read *Surface) error {
	const op = "make current"
	d := st.display
	if draw == nil {
		if !d.features.Has(FeatureSurfacelessContext) {
			return newError(platform.KindNotSupported, d.backend, op, "surfaceless contexts are unavailable")
		}
		if dc, ok := st.native.(platform.DeferredContext); ok && dc.Pending() {
			return newError(platform.KindNotSupported, d.backend, op, "context needs a surface before it can be made current")
		}
	} else if dc, ok := st.native.(platform.DeferredContext); ok && dc.Pending() {
		if err := dc.Finalize(draw.native); err != nil {
			return platform.Wrap(err, platform.KindOS, d.backend, "finalize context")
		}
	}

	var nd, nr platform.Surface
	if draw != nil {
		nd, nr = draw.native, read.native
	}
	if err := d.native.MakeCurrent(st.native, nd, nr); err != nil {
		return platform.Wrap(err, platform.KindOS, d.backend, op)
	}
	return nil
}

// pin adjusts the in-flight make-current count of draw and read. Callers
// hold bindMu.
func pin(draw, read *Surface, delta int) {
	if draw != nil {
		draw.pins += delta
	}
	if read != nil && read != draw {
		read.pins += delta
	}
}

// bindLocked records st as current on tid. The context previously current on
// tid, from any display, is implicitly replaced, and st leaves any other
// thread it was current on, as the native layer does. Callers hold bindMu.
func bindLocked(st *contextState, tid uint64, draw, read *Surface) {
	if prev := bindings[tid]; prev != nil && prev != st {
		prev.thread = 0
		prev.draw, prev.read = nil, nil
	}
	if st.thread != 0 && st.thread != tid && bindings[st.thread] == st {
		platform.Logger().Debug("glkit: context moved between threads", "backend", st.display.backend, "from", st.thread, "to", tid)
		delete(bindings, st.thread)
	}
	bindings[tid] = st
	st.thread = tid
	st.draw, st.read = draw, read
}

func unbindLocked(st *contextState) {
	if st.thread != 0 && bindings[st.thread] == st {
		delete(bindings, st.thread)
	}
	st.thread = 0
	st.draw, st.read = nil, nil
}

func (st *contextState) makeNotCurrent() error {
	const op = "make not current"
	d := st.display
	st.op.Lock()
	defer st.op.Unlock()

	if st.destroyed {
		return newError(platform.KindBadContext, d.backend, op, "context was destroyed")
	}
	if !st.current() {
		return newError(platform.KindContextMismatch, d.backend, op, "context is not current on the calling thread")
	}
	if err := d.native.ReleaseCurrent(st.native); err != nil {
		return platform.Wrap(err, platform.KindOS, d.backend, op)
	}
	bindMu.Lock()
	unbindLocked(st)
	bindMu.Unlock()
	return nil
}

func (st *contextState) destroy() error {
	d := st.display
	st.op.Lock()
	defer st.op.Unlock()
	if st.destroyed {
		return nil
	}

	if st.current() {
		if err := d.native.ReleaseCurrent(st.native); err != nil {
			platform.Logger().Warn("glkit: releasing context before destroy failed", "backend", d.backend, "error", err)
		}
	}
	bindMu.Lock()
	unbindLocked(st)
	bindMu.Unlock()

	st.destroyed = true
	return d.destroy("destroy context", st.native.Destroy)
}

// boundLocked reports whether s is the draw or read surface of a context
// current on some thread, or of a make-current still in flight. Callers hold
// bindMu.
func boundLocked(s *Surface) bool {
	if s.pins > 0 {
		return true
	}
	for _, st := range bindings {
		if st.draw == s || st.read == s {
			return true
		}
	}
	return false
}
