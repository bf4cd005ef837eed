//go:build linux

package glx

import (
	"sync"

	"github.com/ebitengine/purego"

	"github.com/1broseidon/glkit/internal/platform"
)

var (
	libGLOnce sync.Once
	libGLErr  error

	glXQueryVersion          func(dpy uintptr, major, minor *int32) bool
	glXQueryExtensionsString func(dpy uintptr, screen int32) string
	glXQueryServerString     func(dpy uintptr, screen, name int32) string
	glXGetClientString       func(dpy uintptr, name int32) string
	glXGetFBConfigs          func(dpy uintptr, screen int32, n *int32) uintptr
	glXGetFBConfigAttrib     func(dpy, cfg uintptr, attrib int32, value *int32) int32
	glXCreateNewContext      func(dpy, cfg uintptr, renderType int32, share uintptr, direct bool) uintptr
	glXDestroyContext        func(dpy, ctx uintptr)
	glXIsDirect              func(dpy, ctx uintptr) bool
	glXMakeContextCurrent    func(dpy, draw, read, ctx uintptr) bool
	glXCreateWindow          func(dpy, cfg, win uintptr, attribs *int32) uintptr
	glXDestroyWindow         func(dpy, win uintptr)
	glXCreatePixmap          func(dpy, cfg, pixmap uintptr, attribs *int32) uintptr
	glXDestroyPixmap         func(dpy, pixmap uintptr)
	glXCreatePbuffer         func(dpy, cfg uintptr, attribs *int32) uintptr
	glXDestroyPbuffer        func(dpy, pbuf uintptr)
	glXQueryDrawable         func(dpy, draw uintptr, attrib int32, value *uint32)
	glXSwapBuffers           func(dpy, draw uintptr)
	glXGetProcAddressARB     func(name string) uintptr

	// Extension entry points; nil when libGL does not export them.
	glXCreateContextAttribsARB func(dpy, cfg, share uintptr, direct bool, attribs *int32) uintptr
	glXSwapIntervalEXT         func(dpy, draw uintptr, interval int32)
	glXSwapIntervalMESA        func(interval uint32) int32
)

// loadLibGL binds libGL once per process. Every GLX call goes through it so
// that libGL tracks the contexts it makes current, and GL entry points from
// glXGetProcAddressARB dispatch to them.
func loadLibGL() error {
	libGLOnce.Do(func() {
		var (
			lib uintptr
			err error
		)
		for _, name := range []string{"libGL.so.1", "libGL.so", "libGLX.so.0"} {
			lib, err = purego.Dlopen(name, purego.RTLD_LAZY|purego.RTLD_GLOBAL)
			if err == nil {
				break
			}
		}
		if err != nil {
			libGLErr = &platform.Error{
				Kind:    platform.KindNotFound,
				Backend: platform.BackendGLX,
				Op:      "load libGL",
				Message: "libGL is not installed",
				Err:     err,
			}
			return
		}
		if _, err := purego.Dlsym(lib, "glXCreateNewContext"); err != nil {
			libGLErr = platform.Wrap(err, platform.KindNotSupported, platform.BackendGLX, "load libGL")
			return
		}

		purego.RegisterLibFunc(&glXQueryVersion, lib, "glXQueryVersion")
		purego.RegisterLibFunc(&glXQueryExtensionsString, lib, "glXQueryExtensionsString")
		purego.RegisterLibFunc(&glXQueryServerString, lib, "glXQueryServerString")
		purego.RegisterLibFunc(&glXGetClientString, lib, "glXGetClientString")
		purego.RegisterLibFunc(&glXGetFBConfigs, lib, "glXGetFBConfigs")
		purego.RegisterLibFunc(&glXGetFBConfigAttrib, lib, "glXGetFBConfigAttrib")
		purego.RegisterLibFunc(&glXCreateNewContext, lib, "glXCreateNewContext")
		purego.RegisterLibFunc(&glXDestroyContext, lib, "glXDestroyContext")
		purego.RegisterLibFunc(&glXIsDirect, lib, "glXIsDirect")
		purego.RegisterLibFunc(&glXMakeContextCurrent, lib, "glXMakeContextCurrent")
		purego.RegisterLibFunc(&glXCreateWindow, lib, "glXCreateWindow")
		purego.RegisterLibFunc(&glXDestroyWindow, lib, "glXDestroyWindow")
		purego.RegisterLibFunc(&glXCreatePixmap, lib, "glXCreatePixmap")
		purego.RegisterLibFunc(&glXDestroyPixmap, lib, "glXDestroyPixmap")
		purego.RegisterLibFunc(&glXCreatePbuffer, lib, "glXCreatePbuffer")
		purego.RegisterLibFunc(&glXDestroyPbuffer, lib, "glXDestroyPbuffer")
		purego.RegisterLibFunc(&glXQueryDrawable, lib, "glXQueryDrawable")
		purego.RegisterLibFunc(&glXSwapBuffers, lib, "glXSwapBuffers")
		purego.RegisterLibFunc(&glXGetProcAddressARB, lib, "glXGetProcAddressARB")

		// glXGetProcAddressARB returns a stub for any name, so these are
		// only called when the matching extension is advertised.
		if p := glXGetProcAddressARB("glXCreateContextAttribsARB"); p != 0 {
			purego.RegisterFunc(&glXCreateContextAttribsARB, p)
		}
		if p := glXGetProcAddressARB("glXSwapIntervalEXT"); p != 0 {
			purego.RegisterFunc(&glXSwapIntervalEXT, p)
		}
		if p := glXGetProcAddressARB("glXSwapIntervalMESA"); p != 0 {
			purego.RegisterFunc(&glXSwapIntervalMESA, p)
		}
	})
	return libGLErr
}
