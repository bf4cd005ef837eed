package platform

import (
	"fmt"
	"sort"
	"sync"

	"github.com/1broseidon/glkit/handle"
)

// Backend names of the built-in backends.
const (
	BackendEGL = "egl"
	BackendGLX = "glx"
	BackendWGL = "wgl"
	BackendCGL = "cgl"
)

// Preference restricts or reorders the backends tried for a display.
type Preference uint8

const (
	// PreferAuto tries every backend recognizing the handle, highest
	// priority first.
	PreferAuto Preference = iota
	PreferEGL
	PreferGLX
	PreferWGL
	PreferCGL
	PreferEGLThenGLX
	PreferGLXThenEGL
	PreferEGLThenWGL
	PreferWGLThenEGL
)

var preferenceOrder = map[Preference][]string{
	PreferEGL:        {BackendEGL},
	PreferGLX:        {BackendGLX},
	PreferWGL:        {BackendWGL},
	PreferCGL:        {BackendCGL},
	PreferEGLThenGLX: {BackendEGL, BackendGLX},
	PreferGLXThenEGL: {BackendGLX, BackendEGL},
	PreferEGLThenWGL: {BackendEGL, BackendWGL},
	PreferWGLThenEGL: {BackendWGL, BackendEGL},
}

var preferenceNames = map[string]Preference{
	"auto":         PreferAuto,
	"egl":          PreferEGL,
	"glx":          PreferGLX,
	"wgl":          PreferWGL,
	"cgl":          PreferCGL,
	"egl_then_glx": PreferEGLThenGLX,
	"glx_then_egl": PreferGLXThenEGL,
	"egl_then_wgl": PreferEGLThenWGL,
	"wgl_then_egl": PreferWGLThenEGL,
}

// ParsePreference converts a config string such as "egl_then_glx".
func ParsePreference(s string) (Preference, error) {
	if s == "" {
		return PreferAuto, nil
	}
	p, ok := preferenceNames[s]
	if !ok {
		return PreferAuto, fmt.Errorf("unknown backend preference %q", s)
	}
	return p, nil
}

func (p Preference) String() string {
	for name, v := range preferenceNames {
		if v == p {
			return name
		}
	}
	return fmt.Sprintf("preference(%d)", uint8(p))
}

// Registry holds the backends compiled into the process.
type Registry struct {
	mu       sync.RWMutex
	backends map[string]Backend
}

// NewRegistry creates an empty registry. Most code uses the default one
// through Register.
func NewRegistry() *Registry {
	return &Registry{backends: make(map[string]Backend)}
}

var defaultRegistry = NewRegistry()

// DefaultRegistry returns the registry built-in backends add themselves to.
func DefaultRegistry() *Registry { return defaultRegistry }

// Register adds b to the default registry, replacing any backend of the same
// name.
func Register(b Backend) { defaultRegistry.Register(b) }

func (r *Registry) Register(b Backend) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backends[b.Name()] = b
}

func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.backends, name)
}

// Get returns the backend registered under name.
func (r *Registry) Get(name string) (Backend, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.backends[name]
	return b, ok
}

// List returns all backends sorted by priority, highest first, then by name.
func (r *Registry) List() []Backend {
	r.mu.RLock()
	out := make([]Backend, 0, len(r.backends))
	for _, b := range r.backends {
		out = append(out, b)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority() != out[j].Priority() {
			return out[i].Priority() > out[j].Priority()
		}
		return out[i].Name() < out[j].Name()
	})
	return out
}

// Candidates returns, in the order they should be tried, the backends that
// recognize platform p under preference pref. It fails with
// ErrNoBackendAvailable when none do.
func (r *Registry) Candidates(p handle.Platform, pref Preference) ([]Backend, error) {
	var out []Backend
	if pref == PreferAuto {
		for _, b := range r.List() {
			if b.Recognizes(p) {
				out = append(out, b)
			}
		}
	} else {
		for _, name := range preferenceOrder[pref] {
			if b, ok := r.Get(name); ok && b.Recognizes(p) {
				out = append(out, b)
			}
		}
	}
	if len(out) == 0 {
		return nil, NewError(KindNoBackendAvailable, "", "select backend",
			"no compiled backend recognizes platform %s (preference %s)", p, pref)
	}
	return out, nil
}

// Named returns the backend called name if it recognizes p.
func (r *Registry) Named(name string, p handle.Platform) (Backend, error) {
	b, ok := r.Get(name)
	if !ok {
		return nil, NewError(KindNoBackendAvailable, name, "select backend", "backend is not compiled in")
	}
	if !b.Recognizes(p) {
		return nil, NewError(KindNoBackendAvailable, name, "select backend", "backend does not handle platform %s", p)
	}
	return b, nil
}
