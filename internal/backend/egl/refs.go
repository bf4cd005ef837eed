package egl

import "sync"

// eglGetDisplay and eglGetPlatformDisplay hand out one EGLDisplay per native
// display, and eglTerminate invalidates every context and surface made on
// it. refs counts the glkit displays sharing each EGLDisplay so that only the
// last Close terminates it.
type refs struct {
	mu sync.Mutex
	n  map[uintptr]int
}

var displays = &refs{n: make(map[uintptr]int)}

// acquire runs initialize and counts one more user of dpy. eglInitialize on
// an initialized display only reports its version, so every user calls it.
// A failed initialize leaves dpy uncounted.
func (r *refs) acquire(dpy uintptr, initialize func() error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := initialize(); err != nil {
		return err
	}
	r.n[dpy]++
	return nil
}

// release drops one user of dpy and runs terminate when it was the last.
func (r *refs) release(dpy uintptr, terminate func() error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch r.n[dpy] {
	case 0:
		return nil
	case 1:
		delete(r.n, dpy)
		return terminate()
	default:
		r.n[dpy]--
		return nil
	}
}

func (r *refs) count(dpy uintptr) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.n[dpy]
}
