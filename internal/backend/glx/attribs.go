// Package glx drives OpenGL contexts on X11 through libGL's GLX API, bound
// at run time with purego on the windowing layer's Xlib display. X errors of
// those calls are bracketed by request serial; window geometry comes from a
// private xgb connection.
package glx

import (
	"strings"

	"github.com/1broseidon/glkit/internal/platform"
)

// GLX attribute tokens.
const (
	glxVendor     = 1
	glxVersion    = 2
	glxExtensions = 3

	glxLevel        = 3
	glxDoubleBuffer = 5
	glxRedSize      = 8
	glxGreenSize    = 9
	glxBlueSize     = 10
	glxAlphaSize    = 11
	glxDepthSize    = 12
	glxStencilSize  = 13

	glxConfigCaveat     = 0x20
	glxTransparentType  = 0x23
	glxSlowConfig       = 0x8001
	glxTransparentRGB   = 0x8008
	glxVisualID         = 0x800B
	glxDrawableType     = 0x8010
	glxRenderType       = 0x8011
	glxFBConfigID       = 0x8013
	glxRGBAType         = 0x8014
	glxMaxPbufferWidth  = 0x8016
	glxMaxPbufferHeight = 0x8017

	glxPreservedContents = 0x801B
	glxLargestPbuffer    = 0x801C
	glxWidth             = 0x801D
	glxHeight            = 0x801E
	glxPbufferHeight     = 0x8040
	glxPbufferWidth      = 0x8041

	glxWindowBit  = 0x1
	glxPixmapBit  = 0x2
	glxPbufferBit = 0x4

	glxRGBABit      = 0x1
	glxRGBAFloatBit = 0x4

	glxSampleBuffers          = 100000
	glxSamples                = 100001
	glxFramebufferSRGBCapable = 0x20B2

	glxSwapIntervalEXT    = 0x20F1
	glxMaxSwapIntervalEXT = 0x20F2
	glxBackBufferAgeEXT   = 0x20F4

	glxContextMajorVersion    = 0x2091
	glxContextMinorVersion    = 0x2092
	glxContextFlags           = 0x2094
	glxContextProfileMask     = 0x9126
	glxContextReleaseBehavior = 0x2097
	glxContextReleaseNone     = 0
	glxContextResetStrategy   = 0x8256
	glxNoResetNotification    = 0x8261
	glxLoseContextOnReset     = 0x8252
	glxContextOpenGLNoError   = 0x31B3

	glxContextDebugBit         = 0x1
	glxContextRobustAccessBit  = 0x4
	glxContextCoreProfileBit   = 0x1
	glxContextCompatProfileBit = 0x2
	glxContextES2ProfileBit    = 0x4
)

// extensions is a parsed GLX_EXTENSIONS string.
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
	if e["GLX_ARB_create_context_robustness"] {
		f |= platform.FeatureContextRobustness
	}
	if e["GLX_ARB_create_context_no_error"] {
		f |= platform.FeatureContextNoError
	}
	if e.any("GLX_ARB_fbconfig_float", "GLX_EXT_fbconfig_packed_float") {
		f |= platform.FeatureFloatPixelFormat
	}
	if e.any("GLX_EXT_swap_control", "GLX_MESA_swap_control") {
		f |= platform.FeatureSwapControl
	}
	if e["GLX_ARB_context_flush_control"] {
		f |= platform.FeatureContextReleaseBehavior
	}
	if e.any("GLX_EXT_create_context_es2_profile", "GLX_EXT_create_context_es_profile") {
		f |= platform.FeatureCreateESContext
	}
	if e["GLX_ARB_multisample"] {
		f |= platform.FeatureMultisamplingPixelFormats
	}
	if e.any("GLX_ARB_framebuffer_sRGB", "GLX_EXT_framebuffer_sRGB") {
		f |= platform.FeatureSRGBFramebuffers
	}
	if e["GLX_ARB_create_context"] {
		f |= platform.FeatureSurfacelessContext
	}
	return f
}

// fbconfig is one decoded GLXFBConfig. ptr is libGL's handle for it.
type fbconfig struct {
	id     uint32
	visual uint32
	ptr    uintptr
}

// fbAttribNames are the attributes read from every GLXFBConfig, in the
// layout decodeFBConfigs expects.
var fbAttribNames = []uint32{
	glxFBConfigID, glxVisualID, glxRenderType, glxDrawableType, glxLevel,
	glxRedSize, glxGreenSize, glxBlueSize, glxAlphaSize, glxDepthSize, glxStencilSize,
	glxDoubleBuffer, glxConfigCaveat, glxSampleBuffers, glxSamples,
	glxFramebufferSRGBCapable, glxTransparentType, glxMaxPbufferWidth, glxMaxPbufferHeight,
}

// decodeFBConfigs splits a flat property list into configs. Each config is
// numProps (name, value) pairs. Configs without RGBA rendering or
// without any drawable type are skipped; so are configs not on visualFilter
// when it is non-zero. alphaVisual reports whether an X visual carries
// per-pixel alpha.
func decodeFBConfigs(props []uint32, numConfigs, numProps int, ext extensions, visualFilter uint32, alphaVisual func(uint32) bool) []platform.NativeConfig {
	var out []platform.NativeConfig
	stride := numProps * 2
	for i := 0; i < numConfigs && (i+1)*stride <= len(props); i++ {
		kv := make(map[uint32]uint32, numProps)
		chunk := props[i*stride : (i+1)*stride]
		for j := 0; j+1 < len(chunk); j += 2 {
			kv[chunk[j]] = chunk[j+1]
		}

		if kv[glxRenderType]&(glxRGBABit|glxRGBAFloatBit) == 0 || kv[glxLevel] != 0 {
			continue
		}
		if visualFilter != 0 && kv[glxVisualID] != visualFilter {
			continue
		}

		a := platform.ConfigAttribs{
			Red:                 uint8(kv[glxRedSize]),
			Green:               uint8(kv[glxGreenSize]),
			Blue:                uint8(kv[glxBlueSize]),
			Alpha:               uint8(kv[glxAlphaSize]),
			Depth:               uint8(kv[glxDepthSize]),
			Stencil:             uint8(kv[glxStencilSize]),
			DoubleBuffered:      kv[glxDoubleBuffer] != 0,
			HardwareAccelerated: kv[glxConfigCaveat] != glxSlowConfig,
			FloatPixels:         kv[glxRenderType]&glxRGBAFloatBit != 0,
			SRGB:                kv[glxFramebufferSRGBCapable] != 0,
			MaxPbufferWidth:     kv[glxMaxPbufferWidth],
			MaxPbufferHeight:    kv[glxMaxPbufferHeight],
			VisualID:            kv[glxVisualID],
			APIs:                platform.APIOpenGL,
		}
		if kv[glxSampleBuffers] != 0 {
			a.Samples = uint8(kv[glxSamples])
		}

		dt := kv[glxDrawableType]
		if dt&glxWindowBit != 0 && a.VisualID != 0 {
			a.SurfaceTypes |= platform.SurfaceWindow
		}
		if dt&glxPixmapBit != 0 {
			a.SurfaceTypes |= platform.SurfacePixmap
		}
		if dt&glxPbufferBit != 0 {
			a.SurfaceTypes |= platform.SurfacePbuffer
		}
		if a.SurfaceTypes == 0 {
			continue
		}

		a.Transparency = kv[glxTransparentType] == glxTransparentRGB ||
			(a.VisualID != 0 && alphaVisual != nil && alphaVisual(a.VisualID))

		if ext.any("GLX_EXT_create_context_es2_profile", "GLX_EXT_create_context_es_profile") {
			a.APIs |= platform.APIGLES2 | platform.APIGLES3
		}
		if ext["GLX_EXT_create_context_es_profile"] {
			a.APIs |= platform.APIGLES1
		}
		if ext.any("GLX_EXT_swap_control", "GLX_MESA_swap_control") && a.SurfaceTypes.Has(platform.SurfaceWindow) {
			a.MaxSwapInterval = 0xFFFF
		}

		out = append(out, platform.NativeConfig{
			Attribs: a,
			Index:   len(out),
			Raw:     fbconfig{id: kv[glxFBConfigID], visual: kv[glxVisualID]},
		})
	}
	return out
}

// contextAttribs builds the GLX_ARB_create_context attribute list. GLX has
// no priority attribute, so Priority is dropped.
func contextAttribs(attrs platform.ContextAttributes, cfg platform.ConfigAttribs, f platform.Features) []uint32 {
	var out []uint32
	add := func(k, v uint32) { out = append(out, k, v) }

	api := attrs.ResolveAPI(cfg)
	ver := attrs.Version
	if api == platform.ContextAPIGLES && ver.IsZero() {
		ver = platform.Version{Major: 2}
	}
	if !ver.IsZero() {
		add(glxContextMajorVersion, uint32(ver.Major))
		add(glxContextMinorVersion, uint32(ver.Minor))
	}

	switch {
	case api == platform.ContextAPIGLES:
		add(glxContextProfileMask, glxContextES2ProfileBit)
	case attrs.Profile == platform.ProfileCore:
		add(glxContextProfileMask, glxContextCoreProfileBit)
	case attrs.Profile == platform.ProfileCompatibility:
		add(glxContextProfileMask, glxContextCompatProfileBit)
	}

	var flags uint32
	if attrs.Debug {
		flags |= glxContextDebugBit
	}
	switch attrs.Robustness {
	case platform.RobustNoResetNotification:
		flags |= glxContextRobustAccessBit
		add(glxContextResetStrategy, glxNoResetNotification)
	case platform.RobustLoseContextOnReset:
		flags |= glxContextRobustAccessBit
		add(glxContextResetStrategy, glxLoseContextOnReset)
	case platform.RobustNoError:
		add(glxContextOpenGLNoError, 1)
	}
	if flags != 0 {
		add(glxContextFlags, flags)
	}

	if attrs.ReleaseBehavior == platform.ReleaseNone && f.Has(platform.FeatureContextReleaseBehavior) {
		add(glxContextReleaseBehavior, glxContextReleaseNone)
	}
	return out
}

func pbufferAttribs(width, height int, attrs platform.SurfaceAttributes) []uint32 {
	out := []uint32{
		glxPbufferWidth, uint32(width),
		glxPbufferHeight, uint32(height),
		glxPreservedContents, 1,
	}
	if attrs.LargestPbuffer {
		out = append(out, glxLargestPbuffer, 1)
	}
	return out
}

// attribList converts a (name, value) list to the zero-terminated int array
// libGL expects.
func attribList(list []uint32) []int32 {
	out := make([]int32, 0, len(list)+1)
	for _, v := range list {
		out = append(out, int32(v))
	}
	return append(out, 0)
}
