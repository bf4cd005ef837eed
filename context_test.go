package glkit

import (
	"errors"
	"runtime"
	"testing"

	"github.com/1broseidon/glkit/internal/platform"
	"github.com/1broseidon/glkit/internal/platform/platformtest"
)

// bindingsOf counts the threads with a context of d current.
func bindingsOf(d *Display) int {
	bindMu.Lock()
	defer bindMu.Unlock()
	n := 0
	for _, st := range bindings {
		if st.display == d {
			n++
		}
	}
	return n
}

func newContextAndPbuffer(t *testing.T, d *Display) (*NotCurrentContext, *Surface) {
	t.Helper()
	cfg := configAt(t, d, 1)
	ctx, err := d.CreateContext(cfg, ContextAttributes{})
	if err != nil {
		t.Fatalf("create context: %v", err)
	}
	surf, err := d.CreatePbufferSurface(cfg, 64, 64, SurfaceAttributes{})
	if err != nil {
		t.Fatalf("create pbuffer: %v", err)
	}
	return ctx, surf
}

func TestMakeCurrent_Reentrant(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	d, b := newFakeDisplay(t, nil)
	nc, surf := newContextAndPbuffer(t, d)
	cur, err := nc.MakeCurrent(surf)
	if err != nil {
		t.Fatalf("make current: %v", err)
	}
	if err := cur.MakeCurrent(surf); err != nil {
		t.Fatalf("re-entrant make current: %v", err)
	}
	if n := b.CallCount("MakeCurrent"); n != 1 {
		t.Fatalf("expected 1 native MakeCurrent, got %d", n)
	}
	if !cur.IsCurrent() {
		t.Fatalf("expected context current")
	}

	other, err := d.CreatePbufferSurface(nc.Config(), 16, 16, SurfaceAttributes{})
	if err != nil {
		t.Fatalf("create pbuffer: %v", err)
	}
	if err := cur.MakeCurrent(other); err != nil {
		t.Fatalf("rebind: %v", err)
	}
	if n := b.CallCount("MakeCurrent"); n != 2 {
		t.Fatalf("expected rebinding to another surface to reach the backend, got %d calls", n)
	}
}

func TestMakeCurrent_ConsumesHandle(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	d, _ := newFakeDisplay(t, nil)
	nc, surf := newContextAndPbuffer(t, d)
	cur, err := nc.MakeCurrent(surf)
	if err != nil {
		t.Fatalf("make current: %v", err)
	}
	if _, err := nc.MakeCurrent(surf); !errors.Is(err, ErrContextConsumed) {
		t.Fatalf("expected ErrContextConsumed, got %v", err)
	}
	if err := nc.Destroy(); !errors.Is(err, ErrContextConsumed) {
		t.Fatalf("expected ErrContextConsumed from destroy, got %v", err)
	}

	back, err := cur.MakeNotCurrent()
	if err != nil {
		t.Fatalf("make not current: %v", err)
	}
	if cur.IsCurrent() {
		t.Fatalf("expected spent handle to report not current")
	}
	if err := cur.MakeCurrent(surf); !errors.Is(err, ErrContextConsumed) {
		t.Fatalf("expected ErrContextConsumed, got %v", err)
	}
	if err := back.Destroy(); err != nil {
		t.Fatalf("destroy: %v", err)
	}
}

func TestMakeCurrent_FailureKeepsHandle(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	d, b := newFakeDisplay(t, nil)
	nc, surf := newContextAndPbuffer(t, d)
	b.FailNext("MakeCurrent", platform.NativeError(platform.KindBadMatch, platformtest.Name, "MakeCurrent", 0x3009, "EGL_BAD_MATCH"))
	if _, err := nc.MakeCurrent(surf); !errors.Is(err, ErrBadMatch) {
		t.Fatalf("expected ErrBadMatch, got %v", err)
	}
	if _, err := nc.MakeCurrent(surf); err != nil {
		t.Fatalf("expected handle usable after failure, got %v", err)
	}
}

func TestMakeNotCurrent_OtherThread(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	d, _ := newFakeDisplay(t, nil)
	nc, surf := newContextAndPbuffer(t, d)

	a := newWorker(t)
	var cur *PossiblyCurrentContext
	a.run(func() {
		var err error
		cur, err = nc.MakeCurrent(surf)
		if err != nil {
			t.Errorf("make current on worker: %v", err)
		}
	})
	if cur == nil {
		t.FailNow()
	}
	if cur.IsCurrent() {
		t.Fatalf("expected context not current on the test thread")
	}
	if _, err := cur.MakeNotCurrent(); !errors.Is(err, ErrContextMismatch) {
		t.Fatalf("expected ErrContextMismatch, got %v", err)
	}
	a.run(func() {
		if _, err := cur.MakeNotCurrent(); err != nil {
			t.Errorf("make not current on owning thread: %v", err)
		}
	})
}

func TestMakeCurrent_CrossThreadTakeover(t *testing.T) {
	d, _ := newFakeDisplay(t, nil)
	nc, surf := newContextAndPbuffer(t, d)
	a, b := newWorker(t), newWorker(t)

	var cur *PossiblyCurrentContext
	a.run(func() {
		var err error
		if cur, err = nc.MakeCurrent(surf); err != nil {
			t.Errorf("make current on a: %v", err)
		}
	})
	if cur == nil {
		t.FailNow()
	}
	b.run(func() {
		if err := cur.MakeCurrent(surf); err != nil {
			t.Errorf("make current on b: %v", err)
		}
		if !cur.IsCurrent() {
			t.Errorf("expected context current on b")
		}
	})
	a.run(func() {
		if cur.IsCurrent() {
			t.Errorf("expected context to have left a")
		}
		if _, err := cur.MakeNotCurrent(); !errors.Is(err, ErrContextMismatch) {
			t.Errorf("expected ErrContextMismatch on a, got %v", err)
		}
	})

	if n := bindingsOf(d); n != 1 {
		t.Fatalf("expected exactly one binding after takeover, got %d", n)
	}
}

func TestMakeCurrent_ReplacesPreviousContext(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	d, _ := newFakeDisplay(t, nil)
	first, surf := newContextAndPbuffer(t, d)
	second, err := d.CreateContext(first.Config(), ContextAttributes{})
	if err != nil {
		t.Fatalf("create context: %v", err)
	}
	c1, err := first.MakeCurrent(surf)
	if err != nil {
		t.Fatalf("make current: %v", err)
	}
	c2, err := second.MakeCurrent(surf)
	if err != nil {
		t.Fatalf("make current: %v", err)
	}
	if c1.IsCurrent() || !c2.IsCurrent() {
		t.Fatalf("expected the second context to replace the first")
	}
}

func TestMakeCurrentSurfaceless(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	d, _ := newFakeDisplay(t, nil)
	nc, _ := newContextAndPbuffer(t, d)
	cur, err := nc.MakeCurrentSurfaceless()
	if err != nil {
		t.Fatalf("surfaceless: %v", err)
	}
	if !cur.IsCurrent() {
		t.Fatalf("expected context current")
	}

	d2, _ := newFakeDisplay(t, func(b *platformtest.Backend) {
		b.FeatureSet &^= platform.FeatureSurfacelessContext
	})
	nc2, _ := newContextAndPbuffer(t, d2)
	if _, err := nc2.MakeCurrentSurfaceless(); !errors.Is(err, ErrNotSupported) {
		t.Fatalf("expected ErrNotSupported, got %v", err)
	}
}

func TestTreatAsPossiblyCurrent(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	d, b := newFakeDisplay(t, nil)
	nc, _ := newContextAndPbuffer(t, d)
	cur, err := nc.TreatAsPossiblyCurrent()
	if err != nil {
		t.Fatalf("treat as current: %v", err)
	}
	if b.CallCount("MakeCurrent") != 0 {
		t.Fatalf("expected no native call")
	}
	if !cur.IsCurrent() {
		t.Fatalf("expected binding recorded on the calling thread")
	}
	if _, err := nc.TreatAsPossiblyCurrent(); !errors.Is(err, ErrContextConsumed) {
		t.Fatalf("expected ErrContextConsumed for a spent handle, got %v", err)
	}
	var none *NotCurrentContext
	if _, err := none.TreatAsPossiblyCurrent(); !errors.Is(err, ErrBadContext) {
		t.Fatalf("expected ErrBadContext for a nil handle, got %v", err)
	}
}

func TestDeferredContext(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	d, b := newFakeDisplay(t, func(b *platformtest.Backend) { b.Deferred = true })
	cfg := configAt(t, d, 1)
	nc, err := d.CreateContext(cfg, ContextAttributes{})
	if err != nil {
		t.Fatalf("create context: %v", err)
	}
	if _, err := nc.MakeCurrentSurfaceless(); !errors.Is(err, ErrNotSupported) {
		t.Fatalf("expected pending context to refuse surfaceless, got %v", err)
	}

	pb, err := d.CreatePbufferSurface(cfg, 8, 8, SurfaceAttributes{})
	if err != nil {
		t.Fatalf("create pbuffer: %v", err)
	}
	if _, err := nc.MakeCurrent(pb); !errors.Is(err, ErrBadSurface) {
		t.Fatalf("expected finalize on a pbuffer to fail, got %v", err)
	}

	win := b.AddWindow(640, 480)
	surf, err := d.CreateWindowSurface(cfg, win, 640, 480, SurfaceAttributes{})
	if err != nil {
		t.Fatalf("create window surface: %v", err)
	}
	cur, err := nc.MakeCurrent(surf)
	if err != nil {
		t.Fatalf("make current: %v", err)
	}
	if err := cur.MakeCurrent(pb); err != nil {
		t.Fatalf("rebind finalized context: %v", err)
	}
	if n := b.CallCount("Finalize"); n != 2 {
		t.Fatalf("expected finalize attempted twice, got %d", n)
	}
}

func TestCreateContext_FeatureChecks(t *testing.T) {
	d, _ := newFakeDisplay(t, nil)
	cfg := configAt(t, d, 1)
	cases := map[string]ContextAttributes{
		"robust":   {Robustness: RobustLoseContextOnReset},
		"no error": {Robustness: RobustNoError},
		"release":  {ReleaseBehavior: ReleaseNone},
	}
	for name, attrs := range cases {
		if _, err := d.CreateContext(cfg, attrs); !errors.Is(err, ErrNotSupported) {
			t.Fatalf("%s: expected ErrNotSupported, got %v", name, err)
		}
	}

	glOnly := configAt(t, d, 5)
	if _, err := d.CreateContext(glOnly, ContextAttributes{API: ContextAPIGLES}); !errors.Is(err, ErrBadConfig) {
		t.Fatalf("expected ErrBadConfig for GLES on a GL-only config, got %v", err)
	}
	if d.Live() != 0 {
		t.Fatalf("expected rejected creations to leave no children, got %d", d.Live())
	}
}

func TestCreateContext_PlatformMismatch(t *testing.T) {
	d1, _ := newFakeDisplay(t, nil)
	d2, _ := newFakeDisplay(t, nil)
	cfg1 := configAt(t, d1, 1)

	if _, err := d2.CreateContext(cfg1, ContextAttributes{}); !errors.Is(err, ErrPlatformMismatch) {
		t.Fatalf("expected ErrPlatformMismatch for a foreign config, got %v", err)
	}
	if _, err := d2.CreateContext(NewConfig(cfg1.Attribs(), 0), ContextAttributes{}); !errors.Is(err, ErrPlatformMismatch) {
		t.Fatalf("expected ErrPlatformMismatch for a display-less config, got %v", err)
	}

	share, err := d1.CreateContext(cfg1, ContextAttributes{})
	if err != nil {
		t.Fatalf("create context: %v", err)
	}
	if _, err := d2.CreateContext(configAt(t, d2, 1), ContextAttributes{Share: share}); !errors.Is(err, ErrPlatformMismatch) {
		t.Fatalf("expected ErrPlatformMismatch for a foreign share, got %v", err)
	}
}

func TestCreateContext_Share(t *testing.T) {
	d, _ := newFakeDisplay(t, nil)
	cfg := configAt(t, d, 1)
	first, err := d.CreateContext(cfg, ContextAttributes{})
	if err != nil {
		t.Fatalf("create context: %v", err)
	}
	second, err := d.CreateContext(cfg, ContextAttributes{Share: first, Version: Version{Major: 3, Minor: 3}})
	if err != nil {
		t.Fatalf("create shared context: %v", err)
	}
	nc := second.st.native.(*platformtest.Context)
	if nc.Shared != first.st.native.(*platformtest.Context) {
		t.Fatalf("expected native share to be passed through")
	}
	if nc.Attrs.Version != (Version{Major: 3, Minor: 3}) {
		t.Fatalf("expected version 3.3, got %+v", nc.Attrs.Version)
	}

	if err := first.Destroy(); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if _, err := d.CreateContext(cfg, ContextAttributes{Share: first}); !errors.Is(err, ErrBadContext) {
		t.Fatalf("expected ErrBadContext sharing a destroyed context, got %v", err)
	}
}

func TestDestroy_CurrentContext(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	d, b := newFakeDisplay(t, nil)
	nc, surf := newContextAndPbuffer(t, d)
	cur, err := nc.MakeCurrent(surf)
	if err != nil {
		t.Fatalf("make current: %v", err)
	}
	native := cur.st.native.(*platformtest.Context)
	if err := cur.Destroy(); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if !native.Destroyed() {
		t.Fatalf("expected native context destroyed")
	}
	if b.CallCount("ReleaseCurrent") != 1 {
		t.Fatalf("expected the binding released before destroy")
	}
	if nativeDisplay(t, d).NativeCurrent() != nil {
		t.Fatalf("expected nothing current natively")
	}
	if err := surf.Destroy(); err != nil {
		t.Fatalf("expected surface free after context destroy, got %v", err)
	}
	if d.Live() != 0 {
		t.Fatalf("expected no live children, got %d", d.Live())
	}
}

func TestDestroy_OtherThreadLeavesBinding(t *testing.T) {
	d, b := newFakeDisplay(t, nil)
	nc, surf := newContextAndPbuffer(t, d)
	other, err := d.CreateContext(nc.Config(), ContextAttributes{})
	if err != nil {
		t.Fatalf("create context: %v", err)
	}

	a := newWorker(t)
	a.run(func() {
		if _, err := nc.MakeCurrent(surf); err != nil {
			t.Errorf("make current: %v", err)
		}
	})
	if err := other.Destroy(); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if b.CallCount("ReleaseCurrent") != 0 {
		t.Fatalf("expected no release for a context not current here")
	}
	if n := bindingsOf(d); n != 1 {
		t.Fatalf("expected the worker's binding to survive, got %d bindings", n)
	}
}

func TestMakeCurrent_AcrossDisplays(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	b := platformtest.New()
	d1 := openFakeDisplay(t, b)
	d2 := openFakeDisplay(t, b)
	nc1, s1 := newContextAndPbuffer(t, d1)
	nc2, s2 := newContextAndPbuffer(t, d2)

	c1, err := nc1.MakeCurrent(s1)
	if err != nil {
		t.Fatalf("make current on first display: %v", err)
	}
	c2, err := nc2.MakeCurrent(s2)
	if err != nil {
		t.Fatalf("make current on second display: %v", err)
	}
	if c1.IsCurrent() {
		t.Fatalf("expected the second display's context to replace the first")
	}
	if !c2.IsCurrent() {
		t.Fatalf("expected the second display's context current")
	}

	native2 := c2.st.native.(*platformtest.Context)
	if _, err := c1.MakeNotCurrent(); !errors.Is(err, ErrContextMismatch) {
		t.Fatalf("expected ErrContextMismatch, got %v", err)
	}
	if n := b.CallCount("ReleaseCurrent"); n != 0 {
		t.Fatalf("expected no native release, got %d", n)
	}
	if b.NativeCurrent() != native2 {
		t.Fatalf("expected the second display's context still current natively")
	}

	if err := c1.Destroy(); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if n := b.CallCount("ReleaseCurrent"); n != 0 {
		t.Fatalf("expected destroy to leave the current context alone, got %d releases", n)
	}
	if b.NativeCurrent() != native2 || !c2.IsCurrent() {
		t.Fatalf("expected the second display's context to survive")
	}
	if err := s1.Destroy(); err != nil {
		t.Fatalf("expected the replaced surface free, got %v", err)
	}
	if err := s2.Destroy(); !errors.Is(err, ErrBadAccess) {
		t.Fatalf("expected ErrBadAccess for the bound surface, got %v", err)
	}
}

func TestSurfaceDestroy_DuringMakeCurrent(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	d, b := newFakeDisplay(t, func(b *platformtest.Backend) {
		b.OnMakeCurrent = func() {
			close(entered)
			<-release
		}
	})
	nc, surf := newContextAndPbuffer(t, d)

	w := newWorker(t)
	done := make(chan error, 1)
	go w.run(func() {
		_, err := nc.MakeCurrent(surf)
		done <- err
	})

	<-entered
	if err := surf.Destroy(); !errors.Is(err, ErrBadAccess) {
		t.Fatalf("expected ErrBadAccess while make current is in flight, got %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("make current: %v", err)
	}
	if n := b.CallCount("DestroySurface"); n != 0 {
		t.Fatalf("expected the surface to survive, got %d native destroys", n)
	}
	if n := bindingsOf(d); n != 1 {
		t.Fatalf("expected the worker's binding recorded, got %d", n)
	}
}

func TestSurfaceDestroy_AfterFailedMakeCurrent(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	d, b := newFakeDisplay(t, nil)
	nc, surf := newContextAndPbuffer(t, d)
	b.FailNext("MakeCurrent", platform.NativeError(platform.KindBadMatch, platformtest.Name, "MakeCurrent", 0x3009, "mismatch"))
	if _, err := nc.MakeCurrent(surf); err == nil {
		t.Fatalf("expected make current to fail")
	}
	if err := surf.Destroy(); err != nil {
		t.Fatalf("expected the surface free after a failed make current, got %v", err)
	}
}
