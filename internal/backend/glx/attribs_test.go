package glx

import (
	"testing"

	"github.com/1broseidon/glkit/internal/platform"
)

// fbProps lays out configs the way Configs reads them from libGL: every
// config carries fbAttribNames in order.
func fbProps(configs ...map[uint32]uint32) ([]uint32, int) {
	var out []uint32
	for _, c := range configs {
		for _, n := range fbAttribNames {
			out = append(out, n, c[n])
		}
	}
	return out, len(fbAttribNames)
}

// lookup finds key in a flat (name, value) attribute list.
func lookup(list []uint32, key uint32) (uint32, bool) {
	for i := 0; i+1 < len(list); i += 2 {
		if list[i] == key {
			return list[i+1], true
		}
	}
	return 0, false
}


func rgba8(id, visual uint32) map[uint32]uint32 {
	return map[uint32]uint32{
		glxFBConfigID:       id,
		glxVisualID:         visual,
		glxRenderType:       glxRGBABit,
		glxDrawableType:     glxWindowBit | glxPixmapBit | glxPbufferBit,
		glxRedSize:          8,
		glxGreenSize:        8,
		glxBlueSize:         8,
		glxAlphaSize:        8,
		glxDepthSize:        24,
		glxStencilSize:      8,
		glxDoubleBuffer:     1,
		glxMaxPbufferWidth:  4096,
		glxMaxPbufferHeight: 4096,
	}
}

func TestDecodeFBConfigs(t *testing.T) {
	slow := rgba8(0x72, 0x22)
	slow[glxConfigCaveat] = glxSlowConfig
	slow[glxSampleBuffers] = 1
	slow[glxSamples] = 4
	slow[glxFramebufferSRGBCapable] = 1

	props, n := fbProps(rgba8(0x71, 0x21), slow)
	ext := parseExtensions("GLX_ARB_create_context GLX_EXT_create_context_es2_profile GLX_EXT_swap_control")
	got := decodeFBConfigs(props, 2, n, ext, 0, nil)
	if len(got) != 2 {
		t.Fatalf("expected 2 configs, got %d", len(got))
	}

	a := got[0].Attribs
	if a.Red != 8 || a.Alpha != 8 || a.Depth != 24 || a.Stencil != 8 {
		t.Fatalf("unexpected bit sizes: %+v", a)
	}
	if !a.HardwareAccelerated || !a.DoubleBuffered {
		t.Fatalf("expected accelerated double-buffered config, got %+v", a)
	}
	if a.SurfaceTypes != platform.SurfaceWindow|platform.SurfacePixmap|platform.SurfacePbuffer {
		t.Fatalf("expected all surface types, got %b", a.SurfaceTypes)
	}
	if !a.APIs.Has(platform.APIOpenGL | platform.APIGLES2) {
		t.Fatalf("expected GL and GLES2, got %b", a.APIs)
	}
	if a.APIs.Has(platform.APIGLES1) {
		t.Fatalf("expected no GLES1 without es_profile")
	}
	if a.MaxSwapInterval == 0 {
		t.Fatalf("expected swap range with GLX_EXT_swap_control")
	}
	if a.VisualID != 0x21 || got[0].Raw.(fbconfig).id != 0x71 {
		t.Fatalf("expected fbconfig 0x71 on visual 0x21, got %+v", got[0].Raw)
	}

	b := got[1].Attribs
	if b.HardwareAccelerated {
		t.Fatalf("expected slow config to be unaccelerated")
	}
	if b.Samples != 4 || !b.SRGB {
		t.Fatalf("expected 4 samples and sRGB, got %+v", b)
	}
	if got[1].Index != 1 {
		t.Fatalf("expected index 1, got %d", got[1].Index)
	}
}

func TestDecodeFBConfigs_Skips(t *testing.T) {
	colorIndex := rgba8(1, 0x21)
	colorIndex[glxRenderType] = 0x2

	overlay := rgba8(2, 0x21)
	overlay[glxLevel] = 1

	noDrawable := rgba8(3, 0)
	noDrawable[glxDrawableType] = glxWindowBit // window without a visual

	ok := rgba8(4, 0x21)

	props, n := fbProps(colorIndex, overlay, noDrawable, ok)
	got := decodeFBConfigs(props, 4, n, extensions{}, 0, nil)
	if len(got) != 1 {
		t.Fatalf("expected 1 config, got %d", len(got))
	}
	if got[0].Raw.(fbconfig).id != 4 || got[0].Index != 0 {
		t.Fatalf("expected config 4 at index 0, got %+v", got[0])
	}
}

func TestDecodeFBConfigs_VisualFilterAndAlpha(t *testing.T) {
	props, n := fbProps(rgba8(1, 0x21), rgba8(2, 0x40))
	alpha := func(v uint32) bool { return v == 0x40 }

	got := decodeFBConfigs(props, 2, n, extensions{}, 0x40, alpha)
	if len(got) != 1 {
		t.Fatalf("expected 1 config for visual 0x40, got %d", len(got))
	}
	if !got[0].Attribs.Transparency {
		t.Fatalf("expected transparency from an alpha visual")
	}

	got = decodeFBConfigs(props, 2, n, extensions{}, 0, alpha)
	if got[0].Attribs.Transparency {
		t.Fatalf("expected visual 0x21 to be opaque")
	}
}

func TestDecodeFBConfigs_ShortList(t *testing.T) {
	props, n := fbProps(rgba8(1, 0x21))
	got := decodeFBConfigs(props, 3, n, extensions{}, 0, nil)
	if len(got) != 1 {
		t.Fatalf("expected truncated list to yield 1 config, got %d", len(got))
	}
}

func TestExtensionFeatures(t *testing.T) {
	ext := parseExtensions("GLX_ARB_create_context  GLX_ARB_create_context_robustness\nGLX_MESA_swap_control GLX_ARB_framebuffer_sRGB")
	f := ext.features()
	if !f.Has(platform.FeatureContextRobustness | platform.FeatureSRGBFramebuffers | platform.FeatureSurfacelessContext) {
		t.Fatalf("expected robustness, sRGB and surfaceless, got %b", f)
	}
	if !f.Has(platform.FeatureSwapControl) {
		t.Fatalf("expected MESA swap control to count")
	}
	if f.Has(platform.FeatureCreateESContext) {
		t.Fatalf("expected no ES context support")
	}
}

func TestContextAttribs(t *testing.T) {
	attrs := platform.ContextAttributes{
		Version:    platform.Version{Major: 3, Minor: 3},
		Profile:    platform.ProfileCore,
		Robustness: platform.RobustLoseContextOnReset,
		Debug:      true,
	}
	list := contextAttribs(attrs, platform.ConfigAttribs{APIs: platform.APIOpenGL}, 0)

	want := map[uint32]uint32{
		glxContextMajorVersion:  3,
		glxContextMinorVersion:  3,
		glxContextProfileMask:   glxContextCoreProfileBit,
		glxContextFlags:         glxContextDebugBit | glxContextRobustAccessBit,
		glxContextResetStrategy: glxLoseContextOnReset,
	}
	for k, v := range want {
		got, ok := lookup(list, k)
		if !ok || got != v {
			t.Fatalf("attribute 0x%x: expected 0x%x, got 0x%x (present %v)", k, v, got, ok)
		}
	}
	if _, ok := lookup(list, glxContextReleaseBehavior); ok {
		t.Fatalf("expected no release behavior by default")
	}
}

func TestContextAttribs_GLES(t *testing.T) {
	attrs := platform.ContextAttributes{API: platform.ContextAPIGLES, ReleaseBehavior: platform.ReleaseNone}
	list := contextAttribs(attrs, platform.ConfigAttribs{}, platform.FeatureContextReleaseBehavior)

	if v, _ := lookup(list, glxContextProfileMask); v != glxContextES2ProfileBit {
		t.Fatalf("expected ES2 profile bit, got 0x%x", v)
	}
	if v, _ := lookup(list, glxContextMajorVersion); v != 2 {
		t.Fatalf("expected default ES major 2, got %d", v)
	}
	if v, ok := lookup(list, glxContextReleaseBehavior); !ok || v != glxContextReleaseNone {
		t.Fatalf("expected release none, got %d (present %v)", v, ok)
	}
}

func TestPbufferAttribs(t *testing.T) {
	list := pbufferAttribs(640, 480, platform.SurfaceAttributes{LargestPbuffer: true})
	if w, _ := lookup(list, glxPbufferWidth); w != 640 {
		t.Fatalf("expected width 640, got %d", w)
	}
	if h, _ := lookup(list, glxPbufferHeight); h != 480 {
		t.Fatalf("expected height 480, got %d", h)
	}
	if v, ok := lookup(list, glxLargestPbuffer); !ok || v != 1 {
		t.Fatalf("expected largest pbuffer flag")
	}
}

func TestAttribList(t *testing.T) {
	got := attribList([]uint32{glxPbufferWidth, 640, glxPbufferHeight, 480})
	want := []int32{glxPbufferWidth, 640, glxPbufferHeight, 480, 0}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	if empty := attribList(nil); len(empty) != 1 || empty[0] != 0 {
		t.Fatalf("expected a lone terminator, got %v", empty)
	}
}
