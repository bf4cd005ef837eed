//go:build linux

package egl

import (
	"sync"

	"github.com/ebitengine/purego"

	"github.com/1broseidon/glkit/internal/platform"
)

// lib is the libEGL entry point table. EGLDisplay, EGLConfig, EGLContext and
// EGLSurface are opaque pointers and travel as uintptr.
type lib struct {
	GetError             func() int32
	GetDisplay           func(native uintptr) uintptr
	Initialize           func(dpy uintptr, major, minor *int32) uint32
	Terminate            func(dpy uintptr) uint32
	QueryString          func(dpy uintptr, name int32) string
	GetConfigs           func(dpy uintptr, configs []uintptr, size int32, num *int32) uint32
	GetConfigAttrib      func(dpy, config uintptr, attr int32, value *int32) uint32
	BindAPI              func(api uint32) uint32
	CreateContext        func(dpy, config, share uintptr, attribs []int32) uintptr
	DestroyContext       func(dpy, ctx uintptr) uint32
	MakeCurrent          func(dpy, draw, read, ctx uintptr) uint32
	CreateWindowSurface  func(dpy, config, win uintptr, attribs []int32) uintptr
	CreatePixmapSurface  func(dpy, config, pix uintptr, attribs []int32) uintptr
	CreatePbufferSurface func(dpy, config uintptr, attribs []int32) uintptr
	DestroySurface       func(dpy, surf uintptr) uint32
	QuerySurface         func(dpy, surf uintptr, attr int32, value *int32) uint32
	SwapBuffers          func(dpy, surf uintptr) uint32
	SwapInterval         func(dpy uintptr, interval int32) uint32
	GetProcAddress       func(name string) uintptr

	// Optional entry points, zero when the library lacks them.
	GetPlatformDisplayEXT    func(platform uint32, native uintptr, attribs []int32) uintptr
	SwapBuffersWithDamage    func(dpy, surf uintptr, rects []int32, n int32) uint32
	hasPlatformDisplay       bool
	hasSwapBuffersWithDamage bool
}

var (
	eglOnce sync.Once
	eglLib  *lib
	eglErr  error
)

// load binds libEGL once per process.
func load() (*lib, error) {
	eglOnce.Do(func() {
		var (
			h   uintptr
			err error
		)
		for _, name := range []string{"libEGL.so.1", "libEGL.so"} {
			h, err = purego.Dlopen(name, purego.RTLD_LAZY|purego.RTLD_GLOBAL)
			if err == nil {
				break
			}
		}
		if err != nil {
			eglErr = &platform.Error{
				Kind:    platform.KindNotFound,
				Backend: platform.BackendEGL,
				Op:      "load libEGL",
				Message: "libEGL is not installed",
				Err:     err,
			}
			return
		}

		l := &lib{}
		for _, fn := range []struct {
			ptr  any
			name string
		}{
			{&l.GetError, "eglGetError"},
			{&l.GetDisplay, "eglGetDisplay"},
			{&l.Initialize, "eglInitialize"},
			{&l.Terminate, "eglTerminate"},
			{&l.QueryString, "eglQueryString"},
			{&l.GetConfigs, "eglGetConfigs"},
			{&l.GetConfigAttrib, "eglGetConfigAttrib"},
			{&l.BindAPI, "eglBindAPI"},
			{&l.CreateContext, "eglCreateContext"},
			{&l.DestroyContext, "eglDestroyContext"},
			{&l.MakeCurrent, "eglMakeCurrent"},
			{&l.CreateWindowSurface, "eglCreateWindowSurface"},
			{&l.CreatePixmapSurface, "eglCreatePixmapSurface"},
			{&l.CreatePbufferSurface, "eglCreatePbufferSurface"},
			{&l.DestroySurface, "eglDestroySurface"},
			{&l.QuerySurface, "eglQuerySurface"},
			{&l.SwapBuffers, "eglSwapBuffers"},
			{&l.SwapInterval, "eglSwapInterval"},
			{&l.GetProcAddress, "eglGetProcAddress"},
		} {
			sym, err := purego.Dlsym(h, fn.name)
			if err != nil {
				eglErr = platform.Wrap(err, platform.KindNotFound, platform.BackendEGL, "load libEGL")
				return
			}
			purego.RegisterFunc(fn.ptr, sym)
		}

		if p := l.GetProcAddress("eglGetPlatformDisplayEXT"); p != 0 {
			purego.RegisterFunc(&l.GetPlatformDisplayEXT, p)
			l.hasPlatformDisplay = true
		}
		for _, name := range []string{"eglSwapBuffersWithDamageKHR", "eglSwapBuffersWithDamageEXT"} {
			if p := l.GetProcAddress(name); p != 0 {
				purego.RegisterFunc(&l.SwapBuffersWithDamage, p)
				l.hasSwapBuffersWithDamage = true
				break
			}
		}
		eglLib = l
	})
	return eglLib, eglErr
}

// lastError returns the calling thread's EGL error as a glkit error.
func (l *lib) lastError(op string) error {
	if err := nativeError(l.GetError(), op); err != nil {
		return err
	}
	return platform.NewError(platform.KindMisc, platform.BackendEGL, op, "call failed without an EGL error")
}

// waylandEGL is libwayland-egl, which wraps a wl_surface into the native
// window EGL expects.
type waylandEGL struct {
	WindowCreate    func(surface uintptr, width, height int32) uintptr
	WindowDestroy   func(win uintptr)
	WindowResize    func(win uintptr, width, height, dx, dy int32)
	GetAttachedSize func(win uintptr, width, height *int32)
}

var (
	wlOnce sync.Once
	wlLib  *waylandEGL
	wlErr  error
)

func loadWaylandEGL() (*waylandEGL, error) {
	wlOnce.Do(func() {
		h, err := purego.Dlopen("libwayland-egl.so.1", purego.RTLD_LAZY|purego.RTLD_GLOBAL)
		if err != nil {
			wlErr = &platform.Error{
				Kind:    platform.KindNotFound,
				Backend: platform.BackendEGL,
				Op:      "load libwayland-egl",
				Message: "libwayland-egl is not installed",
				Err:     err,
			}
			return
		}
		w := &waylandEGL{}
		purego.RegisterLibFunc(&w.WindowCreate, h, "wl_egl_window_create")
		purego.RegisterLibFunc(&w.WindowDestroy, h, "wl_egl_window_destroy")
		purego.RegisterLibFunc(&w.WindowResize, h, "wl_egl_window_resize")
		purego.RegisterLibFunc(&w.GetAttachedSize, h, "wl_egl_window_get_attached_size")
		wlLib = w
	})
	return wlLib, wlErr
}
