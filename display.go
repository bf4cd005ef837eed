package glkit

import (
	"errors"
	"sync"

	"github.com/1broseidon/glkit/handle"
	"github.com/1broseidon/glkit/internal/platform"
)

// DisplayOptions steer backend selection.
type DisplayOptions struct {
	// Preference restricts or orders the backends tried.
	Preference Preference
	// Backend forces one backend by name ("egl", "glx", "wgl", "cgl").
	// It takes precedence over Preference.
	Backend string
	// X11VisualID asks X11 backends to only expose configs for this visual.
	X11VisualID uint32
	// Registry overrides the set of compiled-in backends. nil uses the
	// default registry.
	Registry *platform.Registry
}

// Display is a connection to a native graphics service. It is safe to
// enumerate configs from several goroutines. A Display cannot be closed while
// any Context or Surface created from it is alive.
type Display struct {
	backend  string
	native   platform.Display
	features Features

	// createMu serializes object creation for backends that are not
	// internally synchronized.
	createMu  sync.Mutex
	serialize bool

	mu       sync.Mutex
	children int
	closed   bool
}

// NewDisplay connects to the graphics service identified by h. Pass
// handle.HeadlessDisplay() for an offscreen display.
//
// Backends are tried in priority order; one that fails to load its client
// library or to connect is skipped. When every candidate fails the error is
// ErrNoBackendAvailable wrapping each failure, or the only failure when there
// was a single candidate.
func NewDisplay(h handle.Display, opts DisplayOptions) (*Display, error) {
	reg := opts.Registry
	if reg == nil {
		reg = platform.DefaultRegistry()
	}

	var candidates []platform.Backend
	if opts.Backend != "" {
		b, err := reg.Named(opts.Backend, h.Platform)
		if err != nil {
			return nil, err
		}
		candidates = []platform.Backend{b}
	} else {
		var err error
		candidates, err = reg.Candidates(h.Platform, opts.Preference)
		if err != nil {
			return nil, err
		}
	}

	log := platform.Logger()
	var errs []error
	for _, b := range candidates {
		nd, err := b.Open(h, platform.OpenOptions{X11VisualID: opts.X11VisualID})
		if err != nil {
			log.Warn("glkit: backend unavailable, trying next", "backend", b.Name(), "display", h.String(), "error", err)
			errs = append(errs, err)
			continue
		}
		log.Info("glkit: display opened", "backend", b.Name(), "display", h.String(), "version", nd.VersionString())
		return &Display{
			backend:   b.Name(),
			native:    nd,
			features:  nd.Features(),
			serialize: !nd.SynchronizedCreation(),
		}, nil
	}

	if len(errs) == 1 {
		return nil, errs[0]
	}
	return nil, &platform.Error{
		Kind:    platform.KindNoBackendAvailable,
		Op:      "open display",
		Message: "every candidate backend failed",
		Err:     errors.Join(errs...),
	}
}

// Backend names the native stack behind d.
func (d *Display) Backend() string { return d.backend }

// VersionString reports the native implementation's version and vendor.
func (d *Display) VersionString() string { return d.native.VersionString() }

// Features reports the optional capabilities of d.
func (d *Display) Features() Features { return d.features }

// Configs returns every native config in native enumeration order.
func (d *Display) Configs() ([]Config, error) {
	if err := d.checkOpen("configs"); err != nil {
		return nil, err
	}
	native, err := d.native.Configs()
	if err != nil {
		return nil, platform.Wrap(err, platform.KindOS, d.backend, "configs")
	}
	out := make([]Config, len(native))
	for i, n := range native {
		out[i] = Config{native: n, display: d}
	}
	return out, nil
}

// FindConfigs returns the configs satisfying r, best first. An unsatisfiable
// r yields an empty slice and a nil error.
func (d *Display) FindConfigs(r Requirements) ([]Config, error) {
	all, err := d.Configs()
	if err != nil {
		return nil, err
	}
	out := SelectConfigs(all, r)
	platform.Logger().Debug("glkit: configs matched", "backend", d.backend, "candidates", len(all), "matched", len(out))
	return out, nil
}

// FindConfig returns the best config for r or ErrNoAvailablePixelFormat.
func (d *Display) FindConfig(r Requirements) (Config, error) {
	cfgs, err := d.FindConfigs(r)
	if err != nil {
		return Config{}, err
	}
	if len(cfgs) == 0 {
		return Config{}, newError(platform.KindNoAvailablePixelFormat, d.backend, "find config", "no config satisfies the requirements")
	}
	return cfgs[0], nil
}

// GetProcAddress resolves a GL entry point. The result is only meaningful
// while a context from d is current on the calling thread; unknown names
// yield 0.
func (d *Display) GetProcAddress(name string) uintptr {
	d.mu.Lock()
	closed := d.closed
	d.mu.Unlock()
	if closed {
		return 0
	}
	return d.native.GetProcAddress(name)
}

// Close tears down the native connection. It fails with ErrDisplayInUse while
// any Context or Surface from d is alive. Closing twice is a no-op.
func (d *Display) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	if d.children > 0 {
		return newError(platform.KindDisplayInUse, d.backend, "close display", "%d contexts or surfaces still alive", d.children)
	}
	if err := d.native.Close(); err != nil {
		return platform.Wrap(err, platform.KindOS, d.backend, "close display")
	}
	d.closed = true
	platform.Logger().Info("glkit: display closed", "backend", d.backend)
	return nil
}

// Live returns the number of contexts and surfaces created from d that have
// not been destroyed.
func (d *Display) Live() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.children
}

func (d *Display) checkOpen(op string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return newError(platform.KindDisplayLost, d.backend, op, "display is closed")
	}
	return nil
}

func (d *Display) checkConfig(cfg Config, op string) error {
	if cfg.display != d {
		return newError(platform.KindPlatformMismatch, d.backend, op, "config was not enumerated by this display")
	}
	return nil
}

// create runs a native creation call, serialized when the backend requires
// it. The child slot is reserved first so Close cannot race the creation.
func (d *Display) create(op string, fn func() error) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return newError(platform.KindDisplayLost, d.backend, op, "display is closed")
	}
	d.children++
	d.mu.Unlock()

	if d.serialize {
		d.createMu.Lock()
		defer d.createMu.Unlock()
	}
	if err := fn(); err != nil {
		d.mu.Lock()
		d.children--
		d.mu.Unlock()
		return platform.Wrap(err, platform.KindOS, d.backend, op)
	}
	return nil
}

// destroy runs a native destruction call and releases the child slot. The
// slot is released even when the native call fails: the object is unusable
// either way.
func (d *Display) destroy(op string, fn func() error) error {
	if d.serialize {
		d.createMu.Lock()
		defer d.createMu.Unlock()
	}
	err := fn()
	d.mu.Lock()
	d.children--
	d.mu.Unlock()
	return platform.Wrap(err, platform.KindOS, d.backend, op)
}
