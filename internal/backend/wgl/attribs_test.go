package wgl

import (
	"errors"
	"testing"

	"github.com/1broseidon/glkit/internal/platform"
)

func arbValues(overrides map[int32]int32) []int32 {
	base := map[int32]int32{
		wglDrawToWindow:     1,
		wglAcceleration:     0x2027,
		wglSupportOpenGL:    1,
		wglDoubleBuffer:     1,
		wglPixelType:        wglTypeRGBA,
		wglRedBits:          8,
		wglGreenBits:        8,
		wglBlueBits:         8,
		wglAlphaBits:        8,
		wglDepthBits:        24,
		wglStencilBits:      8,
		wglDrawToPbuffer:    1,
		wglMaxPbufferWidth:  8192,
		wglMaxPbufferHeight: 8192,
	}
	for k, v := range overrides {
		base[k] = v
	}
	out := make([]int32, len(pixelFormatQuery))
	for i, attr := range pixelFormatQuery {
		out[i] = base[attr]
	}
	return out
}

func TestDecodeARB(t *testing.T) {
	ext := parseExtensions("WGL_ARB_pixel_format WGL_ARB_pbuffer WGL_EXT_swap_control")
	a, ok := decodeARB(arbValues(map[int32]int32{wglSampleBuffers: 1, wglSamples: 4, wglFramebufferSRGB: 1}), ext)
	if !ok {
		t.Fatalf("expected pixel format to decode")
	}
	if a.Red != 8 || a.Alpha != 8 || a.Depth != 24 || a.Stencil != 8 {
		t.Fatalf("unexpected sizes: %+v", a)
	}
	if a.Samples != 4 || !a.SRGB || !a.DoubleBuffered || !a.HardwareAccelerated {
		t.Fatalf("unexpected flags: %+v", a)
	}
	if !a.SurfaceTypes.Has(platform.SurfaceWindow | platform.SurfacePbuffer) {
		t.Fatalf("expected window and pbuffer support, got %v", a.SurfaceTypes)
	}
	if a.MaxPbufferWidth != 8192 {
		t.Fatalf("expected max pbuffer width 8192, got %d", a.MaxPbufferWidth)
	}
	if a.MaxSwapInterval != 0xFFFF {
		t.Fatalf("expected swap control range, got %d", a.MaxSwapInterval)
	}
	if a.APIs != platform.APIOpenGL {
		t.Fatalf("expected OpenGL only, got %v", a.APIs)
	}
}

func TestDecodeARB_Rejects(t *testing.T) {
	ext := parseExtensions("WGL_ARB_pixel_format")
	cases := map[string]map[int32]int32{
		"no opengl":   {wglSupportOpenGL: 0},
		"color index": {wglPixelType: 0x202C},
		"no drawable": {wglDrawToWindow: 0, wglDrawToPbuffer: 0},
	}
	for name, o := range cases {
		if _, ok := decodeARB(arbValues(o), ext); ok {
			t.Fatalf("%s: expected pixel format to be skipped", name)
		}
	}
	if _, ok := decodeARB([]int32{1, 2}, ext); ok {
		t.Fatalf("expected short value list to be skipped")
	}
}

func TestDecodeARB_PbufferNeedsExtension(t *testing.T) {
	a, ok := decodeARB(arbValues(nil), parseExtensions("WGL_ARB_pixel_format"))
	if !ok {
		t.Fatalf("expected pixel format to decode")
	}
	if a.SurfaceTypes.Has(platform.SurfacePbuffer) {
		t.Fatalf("expected no pbuffer support without WGL_ARB_pbuffer")
	}
	if a.MaxSwapInterval != 0 {
		t.Fatalf("expected no swap control, got %d", a.MaxSwapInterval)
	}
}

func TestDecodeARB_FloatAndSoftware(t *testing.T) {
	a, ok := decodeARB(arbValues(map[int32]int32{wglPixelType: wglTypeRGBAFloat, wglAcceleration: wglNoAcceleration}),
		parseExtensions("WGL_ARB_pixel_format_float"))
	if !ok {
		t.Fatalf("expected float pixel format to decode")
	}
	if !a.FloatPixels {
		t.Fatalf("expected float pixels")
	}
	if a.HardwareAccelerated {
		t.Fatalf("expected software pixel format")
	}
}

func TestDecodePFD(t *testing.T) {
	pfd := pixelFormatDescriptor{
		Flags:       pfdSupportOpenGL | pfdDrawToWindow | pfdDoubleBuffer,
		PixelType:   pfdTypeRGBA,
		RedBits:     8,
		GreenBits:   8,
		BlueBits:    8,
		AlphaBits:   8,
		DepthBits:   24,
		StencilBits: 8,
	}
	a, ok := decodePFD(pfd, parseExtensions("WGL_EXT_create_context_es2_profile"))
	if !ok {
		t.Fatalf("expected descriptor to decode")
	}
	if a.Red != 8 || a.Depth != 24 || !a.DoubleBuffered || !a.HardwareAccelerated {
		t.Fatalf("unexpected attribs: %+v", a)
	}
	if a.APIs != platform.APIOpenGL|platform.APIGLES2|platform.APIGLES3 {
		t.Fatalf("expected OpenGL and GLES, got %v", a.APIs)
	}

	pfd.Flags |= pfdGenericFormat
	if a, _ := decodePFD(pfd, nil); a.HardwareAccelerated {
		t.Fatalf("expected generic format to be software")
	}
	pfd.Flags |= pfdGenericAccelerated
	if a, _ := decodePFD(pfd, nil); !a.HardwareAccelerated {
		t.Fatalf("expected generic accelerated format to be hardware")
	}

	pfd.Flags &^= pfdSupportOpenGL
	if _, ok := decodePFD(pfd, nil); ok {
		t.Fatalf("expected descriptor without OpenGL to be skipped")
	}
}

func attrValue(list []int32, key int32) (int32, bool) {
	for i := 0; i+1 < len(list); i += 2 {
		if list[i] == key {
			return list[i+1], true
		}
	}
	return 0, false
}

func TestContextAttribs(t *testing.T) {
	cfg := platform.ConfigAttribs{APIs: platform.APIOpenGL}
	attrs := platform.ContextAttributes{
		Version:         platform.Version{Major: 4, Minor: 6},
		Profile:         platform.ProfileCore,
		Debug:           true,
		Robustness:      platform.RobustLoseContextOnReset,
		ReleaseBehavior: platform.ReleaseNone,
	}
	list := contextAttribs(attrs, cfg, platform.FeatureContextReleaseBehavior)
	if list[len(list)-1] != 0 {
		t.Fatalf("expected zero terminator, got %v", list)
	}
	checks := map[int32]int32{
		wglContextMajorVersion:    4,
		wglContextMinorVersion:    6,
		wglContextProfileMask:     wglContextCoreProfileBit,
		wglContextFlags:           wglContextDebugBit | wglContextRobustAccessBit,
		wglContextResetStrategy:   wglLoseContextOnReset,
		wglContextReleaseBehavior: wglContextReleaseNone,
	}
	for k, want := range checks {
		if got, ok := attrValue(list, k); !ok || got != want {
			t.Fatalf("attribute %#x: expected %d, got %d (present %v)", k, want, got, ok)
		}
	}
}

func TestContextAttribs_GLESAndNoError(t *testing.T) {
	cfg := platform.ConfigAttribs{APIs: platform.APIGLES2}
	list := contextAttribs(platform.ContextAttributes{Robustness: platform.RobustNoError}, cfg, 0)
	if v, _ := attrValue(list, wglContextMajorVersion); v != 2 {
		t.Fatalf("expected GLES 2 default, got %d", v)
	}
	if v, _ := attrValue(list, wglContextProfileMask); v != wglContextES2ProfileBit {
		t.Fatalf("expected ES2 profile bit, got %d", v)
	}
	if v, ok := attrValue(list, wglContextOpenGLNoError); !ok || v != 1 {
		t.Fatalf("expected no-error attribute")
	}
	if _, ok := attrValue(list, wglContextReleaseBehavior); ok {
		t.Fatalf("expected no release behavior without the feature")
	}
}

func TestLegacyOnly(t *testing.T) {
	if !legacyOnly(platform.ContextAttributes{}) {
		t.Fatalf("expected default attributes to be legacy")
	}
	if legacyOnly(platform.ContextAttributes{Version: platform.Version{Major: 3, Minor: 3}}) {
		t.Fatalf("expected versioned context to need ARB")
	}
	if legacyOnly(platform.ContextAttributes{API: platform.ContextAPIGLES}) {
		t.Fatalf("expected GLES context to need ARB")
	}
}

func TestPbufferAttribs(t *testing.T) {
	if got := pbufferAttribs(platform.SurfaceAttributes{}); len(got) != 1 || got[0] != 0 {
		t.Fatalf("expected empty list, got %v", got)
	}
	if got := pbufferAttribs(platform.SurfaceAttributes{LargestPbuffer: true}); got[0] != wglPbufferLargest || got[1] != 1 {
		t.Fatalf("expected largest pbuffer attribute, got %v", got)
	}
}

func TestWin32Error(t *testing.T) {
	err := win32Error(errorInvalidPixelFormat, platform.KindMisc, "set pixel format", "SetPixelFormat failed")
	if platform.KindOf(err) != platform.KindBadConfig {
		t.Fatalf("expected BadConfig, got %v", platform.KindOf(err))
	}
	if !errors.Is(err, platform.ErrOS) {
		t.Fatalf("expected native error to match ErrOS")
	}

	err = win32Error(12345, platform.KindBadSurface, "swap buffers", "SwapBuffers failed")
	if platform.KindOf(err) != platform.KindBadSurface {
		t.Fatalf("expected fallback kind, got %v", platform.KindOf(err))
	}
	var ge *platform.Error
	if !errors.As(err, &ge) || ge.Code != 12345 || ge.Backend != platform.BackendWGL {
		t.Fatalf("unexpected error: %#v", err)
	}
}

func TestExtensionFeatures(t *testing.T) {
	f := parseExtensions("WGL_ARB_create_context_robustness WGL_EXT_swap_control WGL_ARB_multisample WGL_EXT_framebuffer_sRGB").features()
	for _, want := range []platform.Features{
		platform.FeatureContextRobustness,
		platform.FeatureSwapControl,
		platform.FeatureMultisamplingPixelFormats,
		platform.FeatureSRGBFramebuffers,
	} {
		if !f.Has(want) {
			t.Fatalf("expected feature %v in %v", want, f)
		}
	}
	if f.Has(platform.FeatureCreateESContext) || f.Has(platform.FeaturePartialPresent) {
		t.Fatalf("unexpected features %v", f)
	}
}
