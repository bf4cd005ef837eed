package glkit

import (
	"errors"
	"testing"

	"github.com/1broseidon/glkit/internal/platform/platformtest"
)

func fakeConfigs() []Config {
	attrs := platformtest.DefaultConfigs()
	out := make([]Config, len(attrs))
	for i, a := range attrs {
		out[i] = NewConfig(a, i)
	}
	return out
}

func indices(cfgs []Config) []int {
	out := make([]int, len(cfgs))
	for i, c := range cfgs {
		out[i] = c.Index()
	}
	return out
}

func TestSelectConfigs_HeadlessScenario(t *testing.T) {
	r := Requirements{
		Depth:               AtLeast(16),
		HardwareAccelerated: AccelRequire,
	}.RGBA(Exactly(8))

	got := SelectConfigs(fakeConfigs(), r)
	if len(got) == 0 {
		t.Fatalf("expected matches")
	}
	if got[0].Index() != 1 {
		t.Fatalf("expected config 1 to win, got order %v", indices(got))
	}
	for _, c := range got {
		if !c.HardwareAccelerated() {
			t.Fatalf("expected only accelerated configs, got %v", c)
		}
	}
}

func TestSelectConfigs_Deterministic(t *testing.T) {
	r := DefaultRequirements()
	first := indices(SelectConfigs(fakeConfigs(), r))
	for i := 0; i < 5; i++ {
		again := indices(SelectConfigs(fakeConfigs(), r))
		if len(again) != len(first) {
			t.Fatalf("expected %v, got %v", first, again)
		}
		for j := range first {
			if first[j] != again[j] {
				t.Fatalf("expected %v, got %v", first, again)
			}
		}
	}
}

func TestSelectConfigs_EveryResultSatisfies(t *testing.T) {
	reqs := []Requirements{
		{},
		DefaultRequirements(),
		{Samples: Exactly(4)},
		{SRGB: Yes},
		{SurfaceTypes: SurfacePixmap},
		{HardwareAccelerated: AccelForbid},
		{MinESVersion: Version{Major: 3}},
	}
	for i, r := range reqs {
		for _, c := range SelectConfigs(fakeConfigs(), r) {
			if !r.Satisfied(c.Attribs()) {
				t.Fatalf("requirements %d: %v does not satisfy", i, c)
			}
		}
	}
}

func TestSelectConfigs_Unsatisfiable(t *testing.T) {
	got := SelectConfigs(fakeConfigs(), Requirements{Depth: AtLeast(64)})
	if len(got) != 0 {
		t.Fatalf("expected no matches, got %v", indices(got))
	}

	d, _ := newFakeDisplay(t, nil)
	cfgs, err := d.FindConfigs(Requirements{Depth: AtLeast(64)})
	if err != nil {
		t.Fatalf("expected no error for an empty result, got %v", err)
	}
	if len(cfgs) != 0 {
		t.Fatalf("expected empty result, got %v", indices(cfgs))
	}
	if _, err := d.FindConfig(Requirements{Depth: AtLeast(64)}); !errors.Is(err, ErrNoAvailablePixelFormat) {
		t.Fatalf("expected ErrNoAvailablePixelFormat, got %v", err)
	}
}

func TestSelectConfigs_PreferHardware(t *testing.T) {
	got := SelectConfigs(fakeConfigs(), Requirements{Alpha: AtLeast(8)})
	last := got[len(got)-1]
	if last.HardwareAccelerated() {
		t.Fatalf("expected the software config last, got order %v", indices(got))
	}

	got = SelectConfigs(fakeConfigs(), Requirements{Alpha: AtLeast(8), HardwareAccelerated: AccelDontCare})
	if len(got) != 4 {
		t.Fatalf("expected 4 alpha configs, got %v", indices(got))
	}
}

func TestSelectConfigs_WasteAndSamples(t *testing.T) {
	// With depth 16 requested the 16-bit software config wastes the least,
	// but acceleration outranks waste.
	got := SelectConfigs(fakeConfigs(), Requirements{Red: AtLeast(8), Depth: AtLeast(16)})
	if got[0].Index() != 1 {
		t.Fatalf("expected config 1 first, got %v", indices(got))
	}

	got = SelectConfigs(fakeConfigs(), Requirements{Samples: Exactly(4)})
	if len(got) != 1 || got[0].Index() != 2 {
		t.Fatalf("expected only the multisampled config, got %v", indices(got))
	}
}

func TestSelectConfigs_SRGBLastUnlessRequested(t *testing.T) {
	r := DefaultRequirements()
	got := indices(SelectConfigs(fakeConfigs(), r))
	pos := map[int]int{}
	for i, idx := range got {
		pos[idx] = i
	}
	if pos[4] < pos[1] {
		t.Fatalf("expected sRGB config after config 1, got %v", got)
	}

	r.SRGB = Yes
	got = indices(SelectConfigs(fakeConfigs(), r))
	if len(got) != 1 || got[0] != 4 {
		t.Fatalf("expected only the sRGB config, got %v", got)
	}
}

func TestSelectConfigs_TiesKeepNativeOrder(t *testing.T) {
	a := DefaultRequirements()
	same := NewConfig(fakeConfigs()[1].Attribs(), 7)
	got := SelectConfigs([]Config{same, fakeConfigs()[1]}, a)
	if len(got) != 2 || got[0].Index() != 1 || got[1].Index() != 7 {
		t.Fatalf("expected native order on ties, got %v", indices(got))
	}
}

func TestRequirements_SwapAndPbufferLimits(t *testing.T) {
	r := Requirements{SwapInterval: &SwapIntervalRange{Min: 0, Max: 4}}
	if got := SelectConfigs(fakeConfigs(), r); len(got) != 0 {
		t.Fatalf("expected no config covering interval 4, got %v", indices(got))
	}
	r = Requirements{MaxPbufferWidth: 4000, MaxPbufferHeight: 4000}
	for _, c := range SelectConfigs(fakeConfigs(), r) {
		if c.Index() == 3 || c.Index() == 5 {
			t.Fatalf("expected configs with small pbuffers to be excluded, got %v", c)
		}
	}
}
