//go:build darwin

package cgl

import (
	"sync"

	"github.com/ebitengine/purego"
	"github.com/ebitengine/purego/objc"

	"github.com/1broseidon/glkit/internal/platform"
)

const (
	openGLFramework = "/System/Library/Frameworks/OpenGL.framework/OpenGL"
	appKitFramework = "/System/Library/Frameworks/AppKit.framework/AppKit"
)

// lib is OpenGL.framework's CGL entry points.
type lib struct {
	handle uintptr

	ChoosePixelFormat   func(attribs []int32, pix *uintptr, npix *int32) int32
	DescribePixelFormat func(pix uintptr, screen, attrib int32, value *int32) int32
	DestroyPixelFormat  func(pix uintptr) int32
	CreateContext       func(pix, share uintptr, ctx *uintptr) int32
	DestroyContext      func(ctx uintptr) int32
	SetCurrentContext   func(ctx uintptr) int32
	GetCurrentContext   func() uintptr
	SetVirtualScreen    func(ctx uintptr, screen int32) int32
	FlushDrawable       func(ctx uintptr) int32
	SetParameter        func(ctx uintptr, pname int32, params *int32) int32
	ErrorString         func(code int32) string
	GetVersion          func(major, minor *int32)

	CreatePBuffer   func(width, height int32, target, internalFormat uint32, maxLevel int32, pbuffer *uintptr) int32
	DescribePBuffer func(pbuffer uintptr, width, height *int32, target, internalFormat *uint32, mipmap *int32) int32
	DestroyPBuffer  func(pbuffer uintptr) int32
	SetPBuffer      func(ctx, pbuffer uintptr, face uint32, level, screen int32) int32
	ClearDrawable   func(ctx uintptr) int32
}

var (
	libOnce sync.Once
	libInst *lib
	libErr  error
)

func load() (*lib, error) {
	libOnce.Do(func() {
		h, err := purego.Dlopen(openGLFramework, purego.RTLD_LAZY|purego.RTLD_GLOBAL)
		if err != nil {
			libErr = &platform.Error{
				Kind:    platform.KindNotFound,
				Backend: platform.BackendCGL,
				Op:      "load OpenGL.framework",
				Message: "OpenGL.framework is not available",
				Err:     err,
			}
			return
		}
		l := &lib{handle: h}
		purego.RegisterLibFunc(&l.ChoosePixelFormat, h, "CGLChoosePixelFormat")
		purego.RegisterLibFunc(&l.DescribePixelFormat, h, "CGLDescribePixelFormat")
		purego.RegisterLibFunc(&l.DestroyPixelFormat, h, "CGLDestroyPixelFormat")
		purego.RegisterLibFunc(&l.CreateContext, h, "CGLCreateContext")
		purego.RegisterLibFunc(&l.DestroyContext, h, "CGLDestroyContext")
		purego.RegisterLibFunc(&l.SetCurrentContext, h, "CGLSetCurrentContext")
		purego.RegisterLibFunc(&l.GetCurrentContext, h, "CGLGetCurrentContext")
		purego.RegisterLibFunc(&l.SetVirtualScreen, h, "CGLSetVirtualScreen")
		purego.RegisterLibFunc(&l.FlushDrawable, h, "CGLFlushDrawable")
		purego.RegisterLibFunc(&l.SetParameter, h, "CGLSetParameter")
		purego.RegisterLibFunc(&l.ErrorString, h, "CGLErrorString")
		purego.RegisterLibFunc(&l.GetVersion, h, "CGLGetVersion")
		purego.RegisterLibFunc(&l.CreatePBuffer, h, "CGLCreatePBuffer")
		purego.RegisterLibFunc(&l.DescribePBuffer, h, "CGLDescribePBuffer")
		purego.RegisterLibFunc(&l.DestroyPBuffer, h, "CGLDestroyPBuffer")
		purego.RegisterLibFunc(&l.SetPBuffer, h, "CGLSetPBuffer")
		purego.RegisterLibFunc(&l.ClearDrawable, h, "CGLClearDrawable")
		libInst = l
	})
	return libInst, libErr
}

func (l *lib) check(code int32, op string) error {
	return cglError(code, op, l.ErrorString)
}

// appKit holds the Objective-C selectors window surfaces use.
type appKit struct {
	nsOpenGLContext objc.ID

	selAlloc                objc.SEL
	selInitWithCGLContext   objc.SEL
	selRelease              objc.SEL
	selSetView              objc.SEL
	selView                 objc.SEL
	selUpdate               objc.SEL
	selClearDrawable        objc.SEL
	selBounds               objc.SEL
	selConvertRectToBacking objc.SEL
	selSetFrameSize         objc.SEL
}

var (
	appKitOnce sync.Once
	appKitInst *appKit
	appKitErr  error
)

func loadAppKit() (*appKit, error) {
	appKitOnce.Do(func() {
		if _, err := purego.Dlopen(appKitFramework, purego.RTLD_LAZY|purego.RTLD_GLOBAL); err != nil {
			appKitErr = &platform.Error{
				Kind:    platform.KindNotFound,
				Backend: platform.BackendCGL,
				Op:      "load AppKit.framework",
				Message: "AppKit is not available",
				Err:     err,
			}
			return
		}
		class := objc.GetClass("NSOpenGLContext")
		if class == 0 {
			appKitErr = platform.NewError(platform.KindNotFound, platform.BackendCGL, "load AppKit.framework", "NSOpenGLContext is missing")
			return
		}
		appKitInst = &appKit{
			nsOpenGLContext:         objc.ID(class),
			selAlloc:                objc.RegisterName("alloc"),
			selInitWithCGLContext:   objc.RegisterName("initWithCGLContextObj:"),
			selRelease:              objc.RegisterName("release"),
			selSetView:              objc.RegisterName("setView:"),
			selView:                 objc.RegisterName("view"),
			selUpdate:               objc.RegisterName("update"),
			selClearDrawable:        objc.RegisterName("clearDrawable"),
			selBounds:               objc.RegisterName("bounds"),
			selConvertRectToBacking: objc.RegisterName("convertRectToBacking:"),
			selSetFrameSize:         objc.RegisterName("setFrameSize:"),
		}
	})
	return appKitInst, appKitErr
}

type nsPoint struct{ X, Y float64 }

type nsSize struct{ Width, Height float64 }

type nsRect struct {
	Origin nsPoint
	Size   nsSize
}
