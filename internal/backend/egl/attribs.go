// Package egl drives OpenGL and OpenGL ES contexts through the Khronos EGL
// client library: on Wayland, on X11 and headless through Mesa's
// surfaceless platform. libEGL is bound at run time with purego.
package egl

import (
	"strings"

	"github.com/1broseidon/glkit/internal/platform"
)

// Error codes.
const (
	eglSuccess           = 0x3000
	eglNotInitialized    = 0x3001
	eglBadAccess         = 0x3002
	eglBadAlloc          = 0x3003
	eglBadAttribute      = 0x3004
	eglBadConfig         = 0x3005
	eglBadContext        = 0x3006
	eglBadCurrentSurface = 0x3007
	eglBadDisplay        = 0x3008
	eglBadMatch          = 0x3009
	eglBadNativePixmap   = 0x300A
	eglBadNativeWindow   = 0x300B
	eglBadParameter      = 0x300C
	eglBadSurface        = 0x300D
	eglContextLost       = 0x300E
)

// Config attributes and values.
const (
	eglAlphaSize        = 0x3021
	eglBlueSize         = 0x3022
	eglGreenSize        = 0x3023
	eglRedSize          = 0x3024
	eglDepthSize        = 0x3025
	eglStencilSize      = 0x3026
	eglConfigCaveat     = 0x3027
	eglConfigID         = 0x3028
	eglMaxPbufferHeight = 0x302A
	eglMaxPbufferWidth  = 0x302C
	eglNativeVisualID   = 0x302E
	eglSamples          = 0x3031
	eglSampleBuffers    = 0x3032
	eglSurfaceType      = 0x3033
	eglTransparentType  = 0x3034
	eglNone             = 0x3038
	eglMinSwapInterval  = 0x303B
	eglMaxSwapInterval  = 0x303C
	eglColorBufferType  = 0x303F
	eglRenderableType   = 0x3040
	eglSlowConfig       = 0x3050
	eglTransparentRGB   = 0x3052
	eglRGBBuffer        = 0x308E

	eglColorComponentTypeEXT      = 0x3339
	eglColorComponentTypeFloatEXT = 0x333B

	eglPbufferBit = 0x1
	eglPixmapBit  = 0x2
	eglWindowBit  = 0x4

	eglOpenGLESBit  = 0x1
	eglOpenGLES2Bit = 0x4
	eglOpenGLBit    = 0x8
	eglOpenGLES3Bit = 0x40
)

// Strings, surfaces and APIs.
const (
	eglVendor     = 0x3053
	eglVersion    = 0x3054
	eglExtensions = 0x3055
	eglClientAPIs = 0x308D

	eglHeight           = 0x3056
	eglWidth            = 0x3057
	eglLargestPbuffer   = 0x3058
	eglBackBuffer       = 0x3084
	eglSingleBuffer     = 0x3085
	eglRenderBuffer     = 0x3086
	eglGLColorspace     = 0x309D
	eglGLColorspaceSRGB = 0x3089
	eglBufferAgeEXT     = 0x313D

	eglOpenGLESAPI = 0x30A0
	eglOpenGLAPI   = 0x30A2
)

// Context attributes.
const (
	eglContextMajorVersion        = 0x3098
	eglContextMinorVersion        = 0x30FB
	eglContextFlagsKHR            = 0x30FC
	eglContextOpenGLProfileMask   = 0x30FD
	eglContextOpenGLDebug         = 0x31B0
	eglContextOpenGLRobustAccess  = 0x31B2
	eglContextOpenGLNoErrorKHR    = 0x31B3
	eglContextResetStrategy       = 0x31BD
	eglNoResetNotification        = 0x31BE
	eglLoseContextOnReset         = 0x31BF
	eglContextReleaseBehaviorKHR  = 0x2097
	eglContextReleaseBehaviorNone = 0
	eglContextPriorityLevelIMG    = 0x3100
	eglContextPriorityHighIMG     = 0x3101
	eglContextPriorityMediumIMG   = 0x3102
	eglContextPriorityLowIMG      = 0x3103
	eglContextPriorityRealtimeNV  = 0x3357

	eglContextCoreProfileBit   = 0x1
	eglContextCompatProfileBit = 0x2
	eglContextDebugBitKHR      = 0x1
	eglContextRobustBitKHR     = 0x4
)

// Platforms for eglGetPlatformDisplay.
const (
	eglPlatformX11KHR          = 0x31D5
	eglPlatformX11ScreenKHR    = 0x31D6
	eglPlatformWaylandKHR      = 0x31D8
	eglPlatformXCBEXT          = 0x31DC
	eglPlatformXCBScreenEXT    = 0x31DE
	eglPlatformSurfacelessMesa = 0x31DD
)

var errorNames = map[int32]string{
	eglSuccess:           "EGL_SUCCESS",
	eglNotInitialized:    "EGL_NOT_INITIALIZED",
	eglBadAccess:         "EGL_BAD_ACCESS",
	eglBadAlloc:          "EGL_BAD_ALLOC",
	eglBadAttribute:      "EGL_BAD_ATTRIBUTE",
	eglBadConfig:         "EGL_BAD_CONFIG",
	eglBadContext:        "EGL_BAD_CONTEXT",
	eglBadCurrentSurface: "EGL_BAD_CURRENT_SURFACE",
	eglBadDisplay:        "EGL_BAD_DISPLAY",
	eglBadMatch:          "EGL_BAD_MATCH",
	eglBadNativePixmap:   "EGL_BAD_NATIVE_PIXMAP",
	eglBadNativeWindow:   "EGL_BAD_NATIVE_WINDOW",
	eglBadParameter:      "EGL_BAD_PARAMETER",
	eglBadSurface:        "EGL_BAD_SURFACE",
	eglContextLost:       "EGL_CONTEXT_LOST",
}

var errorKinds = map[int32]platform.Kind{
	eglNotInitialized:    platform.KindInitializationFailed,
	eglBadAccess:         platform.KindBadAccess,
	eglBadAlloc:          platform.KindOutOfMemory,
	eglBadAttribute:      platform.KindBadAttribute,
	eglBadConfig:         platform.KindBadConfig,
	eglBadContext:        platform.KindBadContext,
	eglBadCurrentSurface: platform.KindBadSurface,
	eglBadDisplay:        platform.KindDisplayLost,
	eglBadMatch:          platform.KindBadMatch,
	eglBadNativePixmap:   platform.KindBadNativePixmap,
	eglBadNativeWindow:   platform.KindBadNativeWindow,
	eglBadParameter:      platform.KindBadParameter,
	eglBadSurface:        platform.KindBadSurface,
	eglContextLost:       platform.KindContextLost,
}

func errorName(code int32) string {
	if n, ok := errorNames[code]; ok {
		return n
	}
	return "unknown EGL error"
}

// nativeError converts an eglGetError code. It returns nil for
// EGL_SUCCESS, which some drivers report after a failed call.
func nativeError(code int32, op string) error {
	if code == eglSuccess {
		return nil
	}
	kind, ok := errorKinds[code]
	if !ok {
		kind = platform.KindMisc
	}
	return platform.NativeError(kind, platform.BackendEGL, op, int64(code), errorName(code))
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

// features derives the display capabilities from its extension string and
// EGL version.
func features(e extensions, ver platform.Version) platform.Features {
	f := platform.FeatureSwapControl | platform.FeatureCreateESContext | platform.FeatureMultisamplingPixelFormats

	egl15 := ver.AtLeast(platform.Version{Major: 1, Minor: 5})
	if egl15 || e.any("EGL_EXT_create_context_robustness") {
		f |= platform.FeatureContextRobustness
	}
	if e["EGL_KHR_create_context_no_error"] {
		f |= platform.FeatureContextNoError
	}
	if e["EGL_EXT_pixel_format_float"] {
		f |= platform.FeatureFloatPixelFormat
	}
	if e["EGL_KHR_context_flush_control"] {
		f |= platform.FeatureContextReleaseBehavior
	}
	if egl15 || e["EGL_KHR_gl_colorspace"] {
		f |= platform.FeatureSRGBFramebuffers
	}
	if e.any("EGL_KHR_swap_buffers_with_damage", "EGL_EXT_swap_buffers_with_damage") {
		f |= platform.FeaturePartialPresent
	}
	if e["EGL_KHR_surfaceless_context"] {
		f |= platform.FeatureSurfacelessContext
	}
	return f
}

// configQuery reads one attribute of one EGLConfig.
type configQuery func(attr int32) (int32, bool)

// decodeOptions carry the display-wide facts decodeConfig needs.
type decodeOptions struct {
	features platform.Features
	// needVisual drops the window bit from configs without a native visual,
	// as X11 windows need one.
	needVisual   bool
	visualFilter uint32
	alphaVisual  func(uint32) bool
}

// decodeConfig turns one EGLConfig into attributes. ok is false for configs
// glkit cannot use: luminance buffers, no GL or GLES support, no surface
// type, or a visual other than the requested one.
func decodeConfig(q configQuery, opts decodeOptions) (a platform.ConfigAttribs, ok bool) {
	get := func(attr int32) int32 {
		v, _ := q(attr)
		return v
	}

	if get(eglColorBufferType) != eglRGBBuffer {
		return a, false
	}

	rt := get(eglRenderableType)
	if rt&eglOpenGLBit != 0 {
		a.APIs |= platform.APIOpenGL
	}
	if rt&eglOpenGLESBit != 0 {
		a.APIs |= platform.APIGLES1
	}
	if rt&eglOpenGLES2Bit != 0 {
		a.APIs |= platform.APIGLES2
	}
	if rt&eglOpenGLES3Bit != 0 {
		a.APIs |= platform.APIGLES3
	}
	if a.APIs == 0 {
		return a, false
	}

	a.VisualID = uint32(get(eglNativeVisualID))
	if opts.visualFilter != 0 && a.VisualID != opts.visualFilter {
		return a, false
	}

	st := get(eglSurfaceType)
	if st&eglWindowBit != 0 && (!opts.needVisual || a.VisualID != 0) {
		a.SurfaceTypes |= platform.SurfaceWindow
		a.DoubleBuffered = true
	}
	if st&eglPixmapBit != 0 {
		a.SurfaceTypes |= platform.SurfacePixmap
	}
	if st&eglPbufferBit != 0 {
		a.SurfaceTypes |= platform.SurfacePbuffer
	}
	if a.SurfaceTypes == 0 {
		return a, false
	}

	a.Red = uint8(get(eglRedSize))
	a.Green = uint8(get(eglGreenSize))
	a.Blue = uint8(get(eglBlueSize))
	a.Alpha = uint8(get(eglAlphaSize))
	a.Depth = uint8(get(eglDepthSize))
	a.Stencil = uint8(get(eglStencilSize))
	if get(eglSampleBuffers) != 0 {
		a.Samples = uint8(get(eglSamples))
	}
	a.HardwareAccelerated = get(eglConfigCaveat) != eglSlowConfig
	a.MaxPbufferWidth = uint32(get(eglMaxPbufferWidth))
	a.MaxPbufferHeight = uint32(get(eglMaxPbufferHeight))
	if a.SurfaceTypes.Has(platform.SurfaceWindow) {
		a.MinSwapInterval = uint16(get(eglMinSwapInterval))
		a.MaxSwapInterval = uint16(get(eglMaxSwapInterval))
	}

	// sRGB is a surface attribute in EGL; every config can back an sRGB
	// surface when the display has the colorspace extension.
	a.SRGB = opts.features.Has(platform.FeatureSRGBFramebuffers)
	if opts.features.Has(platform.FeatureFloatPixelFormat) {
		a.FloatPixels = get(eglColorComponentTypeEXT) == eglColorComponentTypeFloatEXT
	}
	a.Transparency = get(eglTransparentType) == eglTransparentRGB ||
		(a.VisualID != 0 && opts.alphaVisual != nil && opts.alphaVisual(a.VisualID))
	return a, true
}

// contextAttribs builds the eglCreateContext attribute list, terminated by
// EGL_NONE, and returns the API to bind before creating the context.
func contextAttribs(attrs platform.ContextAttributes, cfg platform.ConfigAttribs, ver platform.Version, f platform.Features, ext extensions) (list []int32, api uint32) {
	add := func(k, v int32) { list = append(list, k, v) }
	egl15 := ver.AtLeast(platform.Version{Major: 1, Minor: 5})
	khr := egl15 || ext["EGL_KHR_create_context"]

	api = eglOpenGLAPI
	cv := attrs.Version
	if attrs.ResolveAPI(cfg) == platform.ContextAPIGLES {
		api = eglOpenGLESAPI
		if cv.IsZero() {
			cv = platform.Version{Major: 2}
			if !cfg.APIs.Has(platform.APIGLES2) && cfg.APIs.Has(platform.APIGLES1) {
				cv = platform.Version{Major: 1}
			}
		}
	}

	if !cv.IsZero() {
		add(eglContextMajorVersion, int32(cv.Major))
		if khr {
			add(eglContextMinorVersion, int32(cv.Minor))
		}
	}

	if api == eglOpenGLAPI && khr {
		switch attrs.Profile {
		case platform.ProfileCore:
			add(eglContextOpenGLProfileMask, eglContextCoreProfileBit)
		case platform.ProfileCompatibility:
			add(eglContextOpenGLProfileMask, eglContextCompatProfileBit)
		}
	}

	var flags int32
	switch attrs.Robustness {
	case platform.RobustNoResetNotification, platform.RobustLoseContextOnReset:
		strategy := int32(eglNoResetNotification)
		if attrs.Robustness == platform.RobustLoseContextOnReset {
			strategy = eglLoseContextOnReset
		}
		if egl15 {
			add(eglContextOpenGLRobustAccess, 1)
		} else {
			flags |= eglContextRobustBitKHR
		}
		add(eglContextResetStrategy, strategy)
	case platform.RobustNoError:
		add(eglContextOpenGLNoErrorKHR, 1)
	}

	if attrs.Debug && attrs.Robustness != platform.RobustNoError {
		if egl15 {
			add(eglContextOpenGLDebug, 1)
		} else if khr {
			flags |= eglContextDebugBitKHR
		}
	}
	if flags != 0 {
		add(eglContextFlagsKHR, flags)
	}

	if attrs.ReleaseBehavior == platform.ReleaseNone && f.Has(platform.FeatureContextReleaseBehavior) {
		add(eglContextReleaseBehaviorKHR, eglContextReleaseBehaviorNone)
	}

	if ext["EGL_IMG_context_priority"] {
		switch attrs.Priority {
		case platform.PriorityLow:
			add(eglContextPriorityLevelIMG, eglContextPriorityLowIMG)
		case platform.PriorityMedium:
			add(eglContextPriorityLevelIMG, eglContextPriorityMediumIMG)
		case platform.PriorityHigh:
			add(eglContextPriorityLevelIMG, eglContextPriorityHighIMG)
		case platform.PriorityRealtime:
			if ext["EGL_NV_context_priority_realtime"] {
				add(eglContextPriorityLevelIMG, eglContextPriorityRealtimeNV)
			} else {
				add(eglContextPriorityLevelIMG, eglContextPriorityHighIMG)
			}
		}
	}

	return append(list, eglNone), api
}

// surfaceAttribs builds a window, pixmap or pbuffer attribute list.
// width and height are only used for pbuffers.
func surfaceAttribs(typ platform.SurfaceType, width, height int, attrs platform.SurfaceAttributes, f platform.Features) []int32 {
	var list []int32
	if attrs.SRGB && f.Has(platform.FeatureSRGBFramebuffers) {
		list = append(list, eglGLColorspace, eglGLColorspaceSRGB)
	}
	switch typ {
	case platform.WindowSurface:
		buf := int32(eglBackBuffer)
		if attrs.SingleBuffer {
			buf = eglSingleBuffer
		}
		list = append(list, eglRenderBuffer, buf)
	case platform.PbufferSurface:
		list = append(list, eglWidth, int32(width), eglHeight, int32(height))
		if attrs.LargestPbuffer {
			list = append(list, eglLargestPbuffer, 1)
		}
	}
	return append(list, eglNone)
}

// damageRects flattens rectangles into the x, y, width, height quadruples
// eglSwapBuffersWithDamage takes.
func damageRects(rects []platform.Rect) []int32 {
	out := make([]int32, 0, len(rects)*4)
	for _, r := range rects {
		out = append(out, int32(r.X), int32(r.Y), int32(r.Width), int32(r.Height))
	}
	return out
}
