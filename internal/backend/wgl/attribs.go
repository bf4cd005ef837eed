// Package wgl drives OpenGL contexts on Windows through opengl32.dll and
// the WGL ARB extensions. WGL needs a window DC with a pixel format before
// it can create a context, so contexts made before any surface are
// finalized on their first make-current.
package wgl

import (
	"strings"

	"github.com/1broseidon/glkit/internal/platform"
)

// PIXELFORMATDESCRIPTOR flags.
const (
	pfdDoubleBuffer       = 0x1
	pfdDrawToWindow       = 0x4
	pfdDrawToBitmap       = 0x8
	pfdSupportOpenGL      = 0x20
	pfdGenericFormat      = 0x40
	pfdGenericAccelerated = 0x1000
	pfdTypeRGBA           = 0
	pfdMainPlane          = 0
)

// pixelFormatDescriptor mirrors the Win32 PIXELFORMATDESCRIPTOR.
type pixelFormatDescriptor struct {
	Size           uint16
	Version        uint16
	Flags          uint32
	PixelType      uint8
	ColorBits      uint8
	RedBits        uint8
	RedShift       uint8
	GreenBits      uint8
	GreenShift     uint8
	BlueBits       uint8
	BlueShift      uint8
	AlphaBits      uint8
	AlphaShift     uint8
	AccumBits      uint8
	AccumRedBits   uint8
	AccumGreenBits uint8
	AccumBlueBits  uint8
	AccumAlphaBits uint8
	DepthBits      uint8
	StencilBits    uint8
	AuxBuffers     uint8
	LayerType      uint8
	Reserved       uint8
	LayerMask      uint32
	VisibleMask    uint32
	DamageMask     uint32
}

// WGL_ARB_pixel_format attributes and values.
const (
	wglNumberPixelFormats = 0x2000
	wglDrawToWindow       = 0x2001
	wglDrawToBitmap       = 0x2002
	wglAcceleration       = 0x2003
	wglTransparent        = 0x200A
	wglSupportOpenGL      = 0x2010
	wglDoubleBuffer       = 0x2011
	wglPixelType          = 0x2013
	wglRedBits            = 0x2015
	wglGreenBits          = 0x2017
	wglBlueBits           = 0x2019
	wglAlphaBits          = 0x201B
	wglDepthBits          = 0x2022
	wglStencilBits        = 0x2023
	wglNoAcceleration     = 0x2025
	wglTypeRGBA           = 0x202B
	wglDrawToPbuffer      = 0x202D
	wglMaxPbufferWidth    = 0x202F
	wglMaxPbufferHeight   = 0x2030
	wglPbufferLargest     = 0x2033
	wglPbufferWidth       = 0x2034
	wglPbufferHeight      = 0x2035
	wglSampleBuffers      = 0x2041
	wglSamples            = 0x2042
	wglFramebufferSRGB    = 0x20A9
	wglTypeRGBAFloat      = 0x21A0
)

// pixelFormatQuery lists the attributes read for every pixel format, in
// the order decodeARB expects them.
var pixelFormatQuery = []int32{
	wglDrawToWindow, wglDrawToBitmap, wglAcceleration, wglTransparent,
	wglSupportOpenGL, wglDoubleBuffer, wglPixelType,
	wglRedBits, wglGreenBits, wglBlueBits, wglAlphaBits, wglDepthBits, wglStencilBits,
	wglDrawToPbuffer, wglMaxPbufferWidth, wglMaxPbufferHeight,
	wglSampleBuffers, wglSamples, wglFramebufferSRGB,
}

// WGL_ARB_create_context attributes.
const (
	wglContextMajorVersion     = 0x2091
	wglContextMinorVersion     = 0x2092
	wglContextFlags            = 0x2094
	wglContextProfileMask      = 0x9126
	wglContextReleaseBehavior  = 0x2097
	wglContextReleaseNone      = 0
	wglContextResetStrategy    = 0x8256
	wglNoResetNotification     = 0x8261
	wglLoseContextOnReset      = 0x8252
	wglContextOpenGLNoError    = 0x31B3
	wglContextDebugBit         = 0x1
	wglContextRobustAccessBit  = 0x4
	wglContextCoreProfileBit   = 0x1
	wglContextCompatProfileBit = 0x2
	wglContextES2ProfileBit    = 0x4
)

// Win32 error codes glkit maps to kinds.
const (
	errorInvalidHandle       = 6
	errorNotEnoughMemory     = 8
	errorInvalidParameter    = 87
	errorInvalidWindowHandle = 1400
	errorDCNotFound          = 1425
	errorInvalidPixelFormat  = 2000
	errorInvalidOperation    = 4317
	errorInvalidVersionARB   = 0x2095
	errorInvalidProfileARB   = 0x2096
	errorIncompatibleDevice  = 0x2054
)

var errorKinds = map[uint32]platform.Kind{
	errorInvalidHandle:       platform.KindBadNativeWindow,
	errorNotEnoughMemory:     platform.KindOutOfMemory,
	errorInvalidParameter:    platform.KindBadParameter,
	errorInvalidWindowHandle: platform.KindBadNativeWindow,
	errorDCNotFound:          platform.KindBadNativeWindow,
	errorInvalidPixelFormat:  platform.KindBadConfig,
	errorInvalidOperation:    platform.KindBadContext,
	errorInvalidVersionARB:   platform.KindNotSupported,
	errorInvalidProfileARB:   platform.KindNotSupported,
	errorIncompatibleDevice:  platform.KindBadMatch,
}

// win32Error converts a GetLastError code. fallback applies to codes with no
// specific kind.
func win32Error(code uint32, fallback platform.Kind, op, msg string) error {
	kind, ok := errorKinds[code]
	if !ok {
		kind = fallback
	}
	return platform.NativeError(kind, platform.BackendWGL, op, int64(code), msg)
}

type extensions map[string]bool

func parseExtensions(s string) extensions {
	out := make(extensions)
	for _, e := range strings.Fields(s) {
		out[e] = true
	}
	return out
}

func (e extensions) any(names ...string) bool {
	for _, n := range names {
		if e[n] {
			return true
		}
	}
	return false
}

func (e extensions) features() platform.Features {
	var f platform.Features
	if e["WGL_ARB_create_context_robustness"] {
		f |= platform.FeatureContextRobustness
	}
	if e["WGL_ARB_create_context_no_error"] {
		f |= platform.FeatureContextNoError
	}
	if e.any("WGL_ARB_pixel_format_float", "WGL_ATI_pixel_format_float") {
		f |= platform.FeatureFloatPixelFormat
	}
	if e["WGL_EXT_swap_control"] {
		f |= platform.FeatureSwapControl
	}
	if e["WGL_ARB_context_flush_control"] {
		f |= platform.FeatureContextReleaseBehavior
	}
	if e.any("WGL_EXT_create_context_es2_profile", "WGL_EXT_create_context_es_profile") {
		f |= platform.FeatureCreateESContext
	}
	if e["WGL_ARB_multisample"] {
		f |= platform.FeatureMultisamplingPixelFormats
	}
	if e.any("WGL_ARB_framebuffer_sRGB", "WGL_EXT_framebuffer_sRGB") {
		f |= platform.FeatureSRGBFramebuffers
	}
	return f
}

// apis returns the API mask every pixel format of a display supports.
func (e extensions) apis() platform.API {
	a := platform.APIOpenGL
	if e.any("WGL_EXT_create_context_es2_profile", "WGL_EXT_create_context_es_profile") {
		a |= platform.APIGLES2 | platform.APIGLES3
	}
	return a
}

// decodePFD reads a DescribePixelFormat result. Formats without OpenGL
// support, colour-index formats and overlay planes are skipped.
func decodePFD(pfd pixelFormatDescriptor, ext extensions) (platform.ConfigAttribs, bool) {
	var a platform.ConfigAttribs
	if pfd.Flags&pfdSupportOpenGL == 0 || pfd.PixelType != pfdTypeRGBA || pfd.LayerType != pfdMainPlane {
		return a, false
	}
	if pfd.Flags&pfdDrawToWindow != 0 {
		a.SurfaceTypes |= platform.SurfaceWindow
	}
	if pfd.Flags&pfdDrawToBitmap != 0 {
		a.SurfaceTypes |= platform.SurfacePixmap
	}
	if a.SurfaceTypes == 0 {
		return a, false
	}

	a.Red, a.Green, a.Blue, a.Alpha = pfd.RedBits, pfd.GreenBits, pfd.BlueBits, pfd.AlphaBits
	a.Depth, a.Stencil = pfd.DepthBits, pfd.StencilBits
	a.DoubleBuffered = pfd.Flags&pfdDoubleBuffer != 0
	a.HardwareAccelerated = pfd.Flags&pfdGenericFormat == 0 || pfd.Flags&pfdGenericAccelerated != 0
	a.APIs = ext.apis()
	if ext["WGL_EXT_swap_control"] && a.SurfaceTypes.Has(platform.SurfaceWindow) {
		a.MaxSwapInterval = 0xFFFF
	}
	return a, true
}

// decodeARB reads the values of pixelFormatQuery for one pixel format.
func decodeARB(values []int32, ext extensions) (platform.ConfigAttribs, bool) {
	var a platform.ConfigAttribs
	if len(values) < len(pixelFormatQuery) {
		return a, false
	}
	v := make(map[int32]int32, len(values))
	for i, attr := range pixelFormatQuery {
		v[attr] = values[i]
	}

	if v[wglSupportOpenGL] == 0 {
		return a, false
	}
	switch v[wglPixelType] {
	case wglTypeRGBA:
	case wglTypeRGBAFloat:
		a.FloatPixels = true
	default:
		return a, false
	}

	if v[wglDrawToWindow] != 0 {
		a.SurfaceTypes |= platform.SurfaceWindow
	}
	if v[wglDrawToBitmap] != 0 {
		a.SurfaceTypes |= platform.SurfacePixmap
	}
	if v[wglDrawToPbuffer] != 0 && ext["WGL_ARB_pbuffer"] {
		a.SurfaceTypes |= platform.SurfacePbuffer
		a.MaxPbufferWidth = uint32(v[wglMaxPbufferWidth])
		a.MaxPbufferHeight = uint32(v[wglMaxPbufferHeight])
	}
	if a.SurfaceTypes == 0 {
		return a, false
	}

	a.Red = uint8(v[wglRedBits])
	a.Green = uint8(v[wglGreenBits])
	a.Blue = uint8(v[wglBlueBits])
	a.Alpha = uint8(v[wglAlphaBits])
	a.Depth = uint8(v[wglDepthBits])
	a.Stencil = uint8(v[wglStencilBits])
	if v[wglSampleBuffers] != 0 {
		a.Samples = uint8(v[wglSamples])
	}
	a.SRGB = v[wglFramebufferSRGB] != 0
	a.Transparency = v[wglTransparent] != 0
	a.DoubleBuffered = v[wglDoubleBuffer] != 0
	a.HardwareAccelerated = v[wglAcceleration] != wglNoAcceleration
	a.APIs = ext.apis()
	if ext["WGL_EXT_swap_control"] && a.SurfaceTypes.Has(platform.SurfaceWindow) {
		a.MaxSwapInterval = 0xFFFF
	}
	return a, true
}

// contextAttribs builds the zero-terminated wglCreateContextAttribsARB list.
// WGL has no priority attribute.
func contextAttribs(attrs platform.ContextAttributes, cfg platform.ConfigAttribs, f platform.Features) []int32 {
	var list []int32
	add := func(k, v int32) { list = append(list, k, v) }

	cv := attrs.Version
	gles := attrs.ResolveAPI(cfg) == platform.ContextAPIGLES
	if gles && cv.IsZero() {
		cv = platform.Version{Major: 2}
	}
	if !cv.IsZero() {
		add(wglContextMajorVersion, int32(cv.Major))
		add(wglContextMinorVersion, int32(cv.Minor))
	}

	switch {
	case gles:
		add(wglContextProfileMask, wglContextES2ProfileBit)
	case attrs.Profile == platform.ProfileCore:
		add(wglContextProfileMask, wglContextCoreProfileBit)
	case attrs.Profile == platform.ProfileCompatibility:
		add(wglContextProfileMask, wglContextCompatProfileBit)
	}

	var flags int32
	if attrs.Debug {
		flags |= wglContextDebugBit
	}
	switch attrs.Robustness {
	case platform.RobustNoResetNotification:
		flags |= wglContextRobustAccessBit
		add(wglContextResetStrategy, wglNoResetNotification)
	case platform.RobustLoseContextOnReset:
		flags |= wglContextRobustAccessBit
		add(wglContextResetStrategy, wglLoseContextOnReset)
	case platform.RobustNoError:
		add(wglContextOpenGLNoError, 1)
	}
	if flags != 0 {
		add(wglContextFlags, flags)
	}
	if attrs.ReleaseBehavior == platform.ReleaseNone && f.Has(platform.FeatureContextReleaseBehavior) {
		add(wglContextReleaseBehavior, wglContextReleaseNone)
	}
	return append(list, 0)
}

func pbufferAttribs(attrs platform.SurfaceAttributes) []int32 {
	if attrs.LargestPbuffer {
		return []int32{wglPbufferLargest, 1, 0}
	}
	return []int32{0}
}

// legacyOnly reports whether attrs can be met by plain wglCreateContext.
func legacyOnly(attrs platform.ContextAttributes) bool {
	return attrs.API != platform.ContextAPIGLES &&
		attrs.Version.IsZero() &&
		attrs.Profile == platform.ProfileDefault &&
		attrs.Robustness == platform.NotRobust &&
		!attrs.Debug &&
		attrs.ReleaseBehavior == platform.ReleaseFlush
}
