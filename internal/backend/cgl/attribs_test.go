package cgl

import (
	"errors"
	"testing"

	"github.com/1broseidon/glkit/internal/platform"
)

func describe(values map[int32]int32) describeFunc {
	return func(attr int32) (int32, bool) {
		v, ok := values[attr]
		return v, ok || attr != pfaColorSize
	}
}

func TestCGLError(t *testing.T) {
	if err := cglError(errNoError, "op", nil); err != nil {
		t.Fatalf("expected nil for success, got %v", err)
	}
	err := cglError(errBadPixelFormat, "create context", func(int32) string { return "invalid pixel format" })
	if platform.KindOf(err) != platform.KindBadConfig {
		t.Fatalf("expected BadConfig, got %v", platform.KindOf(err))
	}
	var ge *platform.Error
	if !errors.As(err, &ge) || ge.Message != "invalid pixel format" || ge.Code != errBadPixelFormat {
		t.Fatalf("unexpected error: %#v", err)
	}
	if !errors.Is(err, platform.ErrOS) {
		t.Fatalf("expected native error to match ErrOS")
	}
	if platform.KindOf(cglError(42, "op", nil)) != platform.KindMisc {
		t.Fatalf("expected unknown code to map to Misc")
	}
	if platform.KindOf(cglError(errBadAlloc, "op", nil)) != platform.KindOutOfMemory {
		t.Fatalf("expected BadAlloc to map to OutOfMemory")
	}
}

func TestTemplateAttribs(t *testing.T) {
	list := template{profile: profile41Core, alpha: true, depth: 24, stencil: 8, samples: 4}.attribs()
	if list[len(list)-1] != pfaTerminator {
		t.Fatalf("expected terminator, got %v", list)
	}
	if list[0] != pfaOpenGLProfile || list[1] != profile41Core {
		t.Fatalf("expected profile first, got %v", list)
	}
	want := map[int32]bool{pfaMultisample: false, pfaAccelerated: false, pfaAlphaSize: false, pfaStencilSize: false}
	for _, v := range list {
		if _, ok := want[v]; ok {
			want[v] = true
		}
	}
	for k, found := range want {
		if !found {
			t.Fatalf("expected attribute %d in %v", k, list)
		}
	}

	sw := template{profile: profileLegacy, software: true}.attribs()
	for i, v := range sw {
		if v == pfaAccelerated {
			t.Fatalf("software template must not require acceleration: %v", sw)
		}
		if v == pfaRendererID && sw[i+1] != rendererGenericFloat {
			t.Fatalf("expected generic renderer, got %#x", sw[i+1])
		}
	}
}

func TestTemplatesCoverProfiles(t *testing.T) {
	profiles := map[int32]int{}
	floats := 0
	for _, tpl := range templates() {
		profiles[tpl.profile]++
		if tpl.float {
			floats++
		}
	}
	if len(profiles) != 3 {
		t.Fatalf("expected 3 profiles, got %v", profiles)
	}
	if floats != 6 {
		t.Fatalf("expected a float template per profile and renderer, got %d", floats)
	}
}

func TestDecodePixelFormat(t *testing.T) {
	a, ok := decodePixelFormat(describe(map[int32]int32{
		pfaColorSize:     32,
		pfaAlphaSize:     8,
		pfaDepthSize:     24,
		pfaStencilSize:   8,
		pfaSampleBuffers: 1,
		pfaSamples:       4,
		pfaDoubleBuffer:  1,
		pfaAccelerated:   1,
	}), profile41Core)
	if !ok {
		t.Fatalf("expected pixel format to decode")
	}
	if a.Red != 8 || a.Green != 8 || a.Blue != 8 || a.Alpha != 8 {
		t.Fatalf("unexpected colour sizes: %+v", a)
	}
	if a.Depth != 24 || a.Stencil != 8 || a.Samples != 4 {
		t.Fatalf("unexpected ancillary sizes: %+v", a)
	}
	if !a.DoubleBuffered || !a.HardwareAccelerated || !a.Transparency {
		t.Fatalf("unexpected flags: %+v", a)
	}
	if !a.SurfaceTypes.Has(platform.SurfaceWindow|platform.SurfacePbuffer) || a.APIs != platform.APIOpenGL {
		t.Fatalf("unexpected surface types %v or apis %v", a.SurfaceTypes, a.APIs)
	}
}

func TestDecodePixelFormat_NoAlphaAndFloat(t *testing.T) {
	a, ok := decodePixelFormat(describe(map[int32]int32{pfaColorSize: 24}), profileLegacy)
	if !ok || a.Red != 8 || a.Alpha != 0 || a.Transparency {
		t.Fatalf("unexpected opaque format: %+v", a)
	}
	if a.Samples != 0 || a.HardwareAccelerated {
		t.Fatalf("unexpected flags: %+v", a)
	}

	f, ok := decodePixelFormat(describe(map[int32]int32{pfaColorSize: 64, pfaAlphaSize: 16, pfaColorFloat: 1}), profile32Core)
	if !ok || !f.FloatPixels || f.Red != 16 {
		t.Fatalf("unexpected float format: %+v", f)
	}

	if _, ok := decodePixelFormat(describe(map[int32]int32{}), profileLegacy); ok {
		t.Fatalf("expected format without colour to be skipped")
	}
}

func TestCheckContext(t *testing.T) {
	cfg := platform.ConfigAttribs{APIs: platform.APIOpenGL}
	cases := []struct {
		name    string
		attrs   platform.ContextAttributes
		profile int32
		want    platform.Kind
		ok      bool
	}{
		{"default", platform.ContextAttributes{}, profileLegacy, 0, true},
		{"core 4.1", platform.ContextAttributes{Version: platform.Version{Major: 4, Minor: 1}, Profile: platform.ProfileCore}, profile41Core, 0, true},
		{"core 3.3 on 4.1", platform.ContextAttributes{Version: platform.Version{Major: 3, Minor: 3}}, profile41Core, 0, true},
		{"4.5", platform.ContextAttributes{Version: platform.Version{Major: 4, Minor: 5}}, profile41Core, platform.KindBadMatch, false},
		{"3.2 on legacy", platform.ContextAttributes{Version: platform.Version{Major: 3, Minor: 2}}, profileLegacy, platform.KindBadMatch, false},
		{"gles", platform.ContextAttributes{API: platform.ContextAPIGLES}, profile41Core, platform.KindNotSupported, false},
		{"robust", platform.ContextAttributes{Robustness: platform.RobustLoseContextOnReset}, profile41Core, platform.KindNotSupported, false},
		{"compat 3.2", platform.ContextAttributes{Version: platform.Version{Major: 3, Minor: 2}, Profile: platform.ProfileCompatibility}, profile32Core, platform.KindNotSupported, false},
	}
	for _, tc := range cases {
		err := checkContext(tc.attrs, cfg, tc.profile)
		if tc.ok {
			if err != nil {
				t.Fatalf("%s: expected no error, got %v", tc.name, err)
			}
			continue
		}
		if platform.KindOf(err) != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestProfileVersion(t *testing.T) {
	if v := profileVersion(profile32Core); v != (platform.Version{Major: 3, Minor: 2}) {
		t.Fatalf("expected 3.2, got %+v", v)
	}
	if v := profileVersion(profileLegacy); v != (platform.Version{Major: 2, Minor: 1}) {
		t.Fatalf("expected 2.1, got %+v", v)
	}
}
