package egl

import (
	"errors"
	"testing"
)

func TestRefs_TerminateWithLastUser(t *testing.T) {
	r := &refs{n: make(map[uintptr]int)}
	inits, terms := 0, 0
	initialize := func() error { inits++; return nil }
	terminate := func() error { terms++; return nil }

	const dpy = 0x1000
	for i := 0; i < 2; i++ {
		if err := r.acquire(dpy, initialize); err != nil {
			t.Fatalf("acquire: %v", err)
		}
	}
	if inits != 2 || r.count(dpy) != 2 {
		t.Fatalf("expected 2 initializes and 2 users, got %d and %d", inits, r.count(dpy))
	}

	if err := r.release(dpy, terminate); err != nil {
		t.Fatalf("release: %v", err)
	}
	if terms != 0 {
		t.Fatalf("expected the shared display kept alive, got %d terminates", terms)
	}
	if err := r.release(dpy, terminate); err != nil {
		t.Fatalf("release: %v", err)
	}
	if terms != 1 || r.count(dpy) != 0 {
		t.Fatalf("expected one terminate by the last user, got %d", terms)
	}
	if err := r.release(dpy, terminate); err != nil || terms != 1 {
		t.Fatalf("expected an extra release to be ignored, got %v and %d terminates", err, terms)
	}
}

func TestRefs_FailedInitializeNotCounted(t *testing.T) {
	r := &refs{n: make(map[uintptr]int)}
	boom := errors.New("not initialized")
	if err := r.acquire(0x2000, func() error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("expected the initialize error, got %v", err)
	}
	if n := r.count(0x2000); n != 0 {
		t.Fatalf("expected no users, got %d", n)
	}
}

func TestRefs_DisplaysAreIndependent(t *testing.T) {
	r := &refs{n: make(map[uintptr]int)}
	ok := func() error { return nil }
	r.acquire(0x1, ok)
	r.acquire(0x2, ok)

	terminated := map[uintptr]bool{}
	r.release(0x1, func() error { terminated[0x1] = true; return nil })
	if !terminated[0x1] || r.count(0x2) != 1 {
		t.Fatalf("expected only the first display terminated, got %v", terminated)
	}
}
