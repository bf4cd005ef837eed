package glkit

import (
	"fmt"
	"sort"

	"github.com/1broseidon/glkit/internal/platform"
)

// Config is an immutable framebuffer format enumerated by a Display. Many
// contexts and surfaces may share one Config.
type Config struct {
	native  platform.NativeConfig
	display *Display
}

// NewConfig builds a display-less Config from attributes, for feeding
// SelectConfigs in tests and tools. It cannot create contexts or surfaces.
func NewConfig(attribs ConfigAttribs, index int) Config {
	return Config{native: platform.NativeConfig{Attribs: attribs, Index: index}}
}

// Attribs returns the decoded attributes.
func (c Config) Attribs() ConfigAttribs { return c.native.Attribs }

// Index is the config's position in native enumeration order.
func (c Config) Index() int { return c.native.Index }

// Display returns the display that enumerated c, or nil for NewConfig values.
func (c Config) Display() *Display { return c.display }

func (c Config) HardwareAccelerated() bool { return c.native.Attribs.HardwareAccelerated }
func (c Config) SRGBCapable() bool { return c.native.Attribs.SRGB }
func (c Config) SurfaceTypes() SurfaceTypeMask { return c.native.Attribs.SurfaceTypes }
func (c Config) APIs() API { return c.native.Attribs.APIs }
func (c Config) Samples() uint8 { return c.native.Attribs.Samples }

func (c Config) String() string {
	a := c.native.Attribs
	return fmt.Sprintf("config#%d r%dg%db%da%d d%d s%d ms%d srgb=%v hw=%v",
		c.native.Index, a.Red, a.Green, a.Blue, a.Alpha, a.Depth, a.Stencil, a.Samples, a.SRGB, a.HardwareAccelerated)
}

// SelectConfigs returns the candidates satisfying r, best first. It is a pure
// function of its inputs: identical candidates and requirements always give
// the identical order. Ties fall back to native enumeration order.
func SelectConfigs(candidates []Config, r Requirements) []Config {
	type scored struct {
		cfg Config
		key rank
	}
	kept := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		if !r.Satisfied(c.native.Attribs) {
			continue
		}
		kept = append(kept, scored{cfg: c, key: r.rank(c.native.Attribs, c.native.Index)})
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].key.less(kept[j].key)
	})
	out := make([]Config, len(kept))
	for i, s := range kept {
		out[i] = s.cfg
	}
	return out
}
