// Package cgl drives OpenGL on macOS through OpenGL.framework. Window
// surfaces attach the CGL context to an NSView through an NSOpenGLContext;
// pbuffers and surfaceless contexts need no AppKit.
package cgl

import (
	"fmt"

	"github.com/1broseidon/glkit/internal/platform"
)

// CGLPixelFormatAttribute values.
const (
	pfaTerminator        = 0
	pfaDoubleBuffer      = 5
	pfaColorSize         = 8
	pfaAlphaSize         = 11
	pfaDepthSize         = 12
	pfaStencilSize       = 13
	pfaSampleBuffers     = 55
	pfaSamples           = 56
	pfaColorFloat        = 58
	pfaMultisample       = 59
	pfaRendererID        = 70
	pfaAccelerated       = 73
	pfaClosestPolicy     = 74
	pfaAllowOffline      = 96
	pfaOpenGLProfile     = 99
	pfaVirtualScreenCnt  = 128
	rendererGenericFloat = 0x00020400

	profileLegacy = 0x1000
	profile32Core = 0x3200
	profile41Core = 0x4100
)

// CGLContextParameter values.
const (
	cpSwapInterval   = 222
	cpSurfaceOpacity = 236
)

// CGLError codes.
const (
	errNoError         = 0
	errBadAttribute    = 10000
	errBadProperty     = 10001
	errBadPixelFormat  = 10002
	errBadRendererInfo = 10003
	errBadContext      = 10004
	errBadDrawable     = 10005
	errBadDisplay      = 10006
	errBadState        = 10007
	errBadValue        = 10008
	errBadMatch        = 10009
	errBadEnumeration  = 10010
	errBadOffScreen    = 10011
	errBadFullScreen   = 10012
	errBadWindow       = 10013
	errBadAddress      = 10014
	errBadCodeModule   = 10015
	errBadAlloc        = 10016
	errBadConnection   = 10017
)

var errorKinds = map[int32]platform.Kind{
	errBadAttribute:    platform.KindBadAttribute,
	errBadProperty:     platform.KindBadParameter,
	errBadPixelFormat:  platform.KindBadConfig,
	errBadRendererInfo: platform.KindBadParameter,
	errBadContext:      platform.KindBadContext,
	errBadDrawable:     platform.KindBadSurface,
	errBadDisplay:      platform.KindDisplayLost,
	errBadState:        platform.KindBadAccess,
	errBadValue:        platform.KindBadParameter,
	errBadMatch:        platform.KindBadMatch,
	errBadEnumeration:  platform.KindBadParameter,
	errBadOffScreen:    platform.KindBadSurface,
	errBadFullScreen:   platform.KindBadSurface,
	errBadWindow:       platform.KindBadNativeWindow,
	errBadAddress:      platform.KindBadParameter,
	errBadCodeModule:   platform.KindNotFound,
	errBadAlloc:        platform.KindOutOfMemory,
	errBadConnection:   platform.KindDisplayLost,
}

// cglError converts a CGLError. describe supplies CGLErrorString when the
// framework is loaded. Success is nil.
func cglError(code int32, op string, describe func(int32) string) error {
	if code == errNoError {
		return nil
	}
	kind, ok := errorKinds[code]
	if !ok {
		kind = platform.KindMisc
	}
	msg := fmt.Sprintf("CGL error %d", code)
	if describe != nil {
		if s := describe(code); s != "" {
			msg = s
		}
	}
	return platform.NativeError(kind, platform.BackendCGL, op, int64(code), msg)
}

// template is one CGLChoosePixelFormat request of the enumeration grid.
type template struct {
	profile  int32
	alpha    bool
	depth    int32
	stencil  int32
	samples  int32
	float    bool
	software bool
}

// attribs builds the zero-terminated CGLChoosePixelFormat list.
func (t template) attribs() []int32 {
	list := []int32{pfaOpenGLProfile, t.profile, pfaDoubleBuffer, pfaClosestPolicy, pfaAllowOffline}
	if t.float {
		list = append(list, pfaColorFloat, pfaColorSize, 64)
	} else {
		list = append(list, pfaColorSize, 24)
	}
	if t.alpha {
		list = append(list, pfaAlphaSize, 8)
	}
	if t.depth > 0 {
		list = append(list, pfaDepthSize, t.depth)
	}
	if t.stencil > 0 {
		list = append(list, pfaStencilSize, t.stencil)
	}
	if t.samples > 0 {
		list = append(list, pfaMultisample, pfaSampleBuffers, 1, pfaSamples, t.samples)
	}
	if t.software {
		list = append(list, pfaRendererID, rendererGenericFloat)
	} else {
		list = append(list, pfaAccelerated)
	}
	return append(list, pfaTerminator)
}

// templates is the grid the display walks to enumerate pixel formats. CGL
// has no way to list every format, so the grid spans the combinations a
// caller can ask for.
func templates() []template {
	var out []template
	for _, profile := range []int32{profile41Core, profile32Core, profileLegacy} {
		for _, software := range []bool{false, true} {
			for _, alpha := range []bool{true, false} {
				for _, ds := range [][2]int32{{24, 8}, {0, 0}, {32, 0}} {
					for _, samples := range []int32{0, 4} {
						out = append(out, template{
							profile:  profile,
							alpha:    alpha,
							depth:    ds[0],
							stencil:  ds[1],
							samples:  samples,
							software: software,
						})
					}
				}
			}
			out = append(out, template{profile: profile, alpha: true, depth: 24, stencil: 8, float: true, software: software})
		}
	}
	return out
}

// describeFunc reads one attribute of a virtual screen of a pixel format.
type describeFunc func(attr int32) (int32, bool)

// decodePixelFormat reads back what CGL chose for one virtual screen. The
// profile becomes the config's OpenGL version ceiling.
func decodePixelFormat(q describeFunc, profile int32) (platform.ConfigAttribs, bool) {
	var a platform.ConfigAttribs
	get := func(attr int32) int32 {
		v, _ := q(attr)
		return v
	}
	color, ok := q(pfaColorSize)
	if !ok || color == 0 {
		return a, false
	}

	a.Alpha = uint8(get(pfaAlphaSize))
	a.FloatPixels = get(pfaColorFloat) != 0
	// CGL reports the colour size including alpha for 32-bit formats.
	rgb := color
	if rgb > 24 && !a.FloatPixels && a.Alpha > 0 {
		rgb -= int32(a.Alpha)
	}
	per := uint8(rgb / 3)
	if a.FloatPixels {
		per = uint8(color / 4)
	}
	a.Red, a.Green, a.Blue = per, per, per

	a.Depth = uint8(get(pfaDepthSize))
	a.Stencil = uint8(get(pfaStencilSize))
	if get(pfaSampleBuffers) > 0 {
		a.Samples = uint8(get(pfaSamples))
	}
	a.DoubleBuffered = get(pfaDoubleBuffer) != 0
	a.HardwareAccelerated = get(pfaAccelerated) != 0
	a.Transparency = a.Alpha > 0
	a.SurfaceTypes = platform.SurfaceWindow | platform.SurfacePbuffer
	a.APIs = platform.APIOpenGL
	a.MaxSwapInterval = 1
	a.MaxPbufferWidth, a.MaxPbufferHeight = 16384, 16384
	return a, true
}

// profileVersion is the highest OpenGL version a profile provides.
func profileVersion(profile int32) platform.Version {
	switch profile {
	case profile41Core:
		return platform.Version{Major: 4, Minor: 1}
	case profile32Core:
		return platform.Version{Major: 3, Minor: 2}
	}
	return platform.Version{Major: 2, Minor: 1}
}

// checkContext rejects attributes CGL cannot honour for a pixel format of
// the given profile. The profile fixes the context version on macOS.
func checkContext(attrs platform.ContextAttributes, cfg platform.ConfigAttribs, profile int32) error {
	const op = "create context"
	if attrs.ResolveAPI(cfg) == platform.ContextAPIGLES {
		return platform.NewError(platform.KindNotSupported, platform.BackendCGL, op, "CGL has no OpenGL ES")
	}
	if attrs.Robustness != platform.NotRobust {
		return platform.NewError(platform.KindNotSupported, platform.BackendCGL, op, "CGL has no robust contexts")
	}
	v := attrs.Version
	if v.IsZero() {
		return nil
	}
	ceiling := profileVersion(profile)
	if !ceiling.AtLeast(v) {
		return platform.NewError(platform.KindBadMatch, platform.BackendCGL, op,
			"pixel format provides OpenGL %d.%d, %d.%d requested", ceiling.Major, ceiling.Minor, v.Major, v.Minor)
	}
	if attrs.Profile == platform.ProfileCompatibility && v.Major >= 3 {
		return platform.NewError(platform.KindNotSupported, platform.BackendCGL, op, "compatibility contexts stop at OpenGL 2.1")
	}
	return nil
}

// formatKey identifies a described format so the grid does not yield the
// same format twice.
type formatKey struct {
	profile int32
	screen  int32
	attribs platform.ConfigAttribs
}
