package glkit

// Comparator says how a requested value is compared with a config's.
type Comparator uint8

const (
	DontCare Comparator = iota
	Exact
	Minimum
)

// Bits is a requested bit depth (or sample count) and its comparator.
// The zero value matches anything.
type Bits struct {
	Value uint8
	Cmp   Comparator
}

// Exactly requests exactly v bits.
func Exactly(v uint8) Bits { return Bits{Value: v, Cmp: Exact} }

// AtLeast requests v or more bits.
func AtLeast(v uint8) Bits { return Bits{Value: v, Cmp: Minimum} }

func (b Bits) matches(have uint8) bool {
	switch b.Cmp {
	case Exact:
		return have == b.Value
	case Minimum:
		return have >= b.Value
	default:
		return true
	}
}

// waste is the number of bits a config carries beyond a minimum request.
// Exact and don't-care requests waste nothing.
func (b Bits) waste(have uint8) int {
	if b.Cmp != Minimum {
		return 0
	}
	return int(have) - int(b.Value)
}

// Tristate is a boolean requirement that may be left open.
type Tristate uint8

const (
	Either Tristate = iota
	Yes
	No
)

func (t Tristate) matches(have bool) bool {
	switch t {
	case Yes:
		return have
	case No:
		return !have
	default:
		return true
	}
}

// Acceleration is the hardware acceleration requirement.
type Acceleration uint8

const (
	// AccelPrefer ranks hardware-accelerated configs first but keeps
	// software ones.
	AccelPrefer Acceleration = iota
	AccelRequire
	AccelForbid
	AccelDontCare
)

// SwapIntervalRange is a swap interval range a config must cover.
type SwapIntervalRange struct {
	Min, Max uint16
}

// Requirements select configs. The zero value accepts every config.
type Requirements struct {
	Red, Green, Blue, Alpha Bits
	Depth, Stencil          Bits
	// Samples with Exact matches the count only; Minimum allows more.
	Samples Bits

	SRGB         Tristate
	FloatPixels  Tristate
	Transparency Tristate
	// SingleBuffer Yes asks for single-buffered configs, No for
	// double-buffered ones.
	SingleBuffer Tristate

	HardwareAccelerated Acceleration

	// SurfaceTypes must be a subset of the config's supported types.
	SurfaceTypes SurfaceTypeMask
	// APIs must be a subset of the config's supported APIs.
	APIs API
	// MinESVersion adds the GLES API bit for that major version.
	MinESVersion Version

	SwapInterval *SwapIntervalRange

	MaxPbufferWidth, MaxPbufferHeight uint32

	// NativeVisualID restricts X11 configs to one visual when non-zero.
	NativeVisualID uint32
}

// DefaultRequirements asks for an RGB8 double-buffered window config with at
// least 8 bits of alpha, 24 of depth and 8 of stencil.
func DefaultRequirements() Requirements {
	return Requirements{
		Red:          AtLeast(8),
		Green:        AtLeast(8),
		Blue:         AtLeast(8),
		Alpha:        AtLeast(8),
		Depth:        AtLeast(24),
		Stencil:      AtLeast(8),
		SingleBuffer: No,
		SurfaceTypes: SurfaceWindow,
	}
}

// RGBA sets all four color channels to the same comparator and value.
func (r Requirements) RGBA(b Bits) Requirements {
	r.Red, r.Green, r.Blue, r.Alpha = b, b, b, b
	return r
}

func (r Requirements) requiredAPIs() API {
	want := r.APIs
	switch {
	case r.MinESVersion.Major >= 3:
		want |= APIGLES3
	case r.MinESVersion.Major == 2:
		want |= APIGLES2
	case r.MinESVersion.Major == 1:
		want |= APIGLES1
	}
	return want
}

// Satisfied reports whether a config meets every hard constraint in r.
func (r Requirements) Satisfied(a ConfigAttribs) bool {
	if !r.Red.matches(a.Red) || !r.Green.matches(a.Green) || !r.Blue.matches(a.Blue) || !r.Alpha.matches(a.Alpha) {
		return false
	}
	if !r.Depth.matches(a.Depth) || !r.Stencil.matches(a.Stencil) || !r.Samples.matches(a.Samples) {
		return false
	}
	if !r.SRGB.matches(a.SRGB) || !r.FloatPixels.matches(a.FloatPixels) || !r.Transparency.matches(a.Transparency) {
		return false
	}
	if !r.SingleBuffer.matches(!a.DoubleBuffered) {
		return false
	}
	switch r.HardwareAccelerated {
	case AccelRequire:
		if !a.HardwareAccelerated {
			return false
		}
	case AccelForbid:
		if a.HardwareAccelerated {
			return false
		}
	}
	if !a.SurfaceTypes.Has(r.SurfaceTypes) || !a.APIs.Has(r.requiredAPIs()) {
		return false
	}
	if r.SwapInterval != nil && (a.MinSwapInterval > r.SwapInterval.Min || a.MaxSwapInterval < r.SwapInterval.Max) {
		return false
	}
	if a.MaxPbufferWidth < r.MaxPbufferWidth || a.MaxPbufferHeight < r.MaxPbufferHeight {
		return false
	}
	if r.NativeVisualID != 0 && a.VisualID != r.NativeVisualID {
		return false
	}
	return true
}

// rank orders candidates that already satisfy r. Keys compare
// lexicographically, lower first.
type rank struct {
	api    int
	accel  int
	waste  int
	msaa   int
	srgb   int
	native int
}

func (k rank) less(o rank) bool {
	switch {
	case k.api != o.api:
		return k.api < o.api
	case k.accel != o.accel:
		return k.accel < o.accel
	case k.waste != o.waste:
		return k.waste < o.waste
	case k.msaa != o.msaa:
		return k.msaa < o.msaa
	case k.srgb != o.srgb:
		return k.srgb < o.srgb
	default:
		return k.native < o.native
	}
}

func (r Requirements) rank(a ConfigAttribs, index int) rank {
	var k rank
	// Without an explicit API request the default context is desktop GL.
	if r.requiredAPIs() == 0 && a.APIs&APIOpenGL == 0 {
		k.api = 1
	}
	if r.HardwareAccelerated == AccelPrefer && !a.HardwareAccelerated {
		k.accel = 1
	}
	k.waste = r.Red.waste(a.Red) + r.Green.waste(a.Green) + r.Blue.waste(a.Blue) +
		r.Alpha.waste(a.Alpha) + r.Depth.waste(a.Depth) + r.Stencil.waste(a.Stencil)
	if r.Samples.Cmp != Exact {
		k.msaa = int(a.Samples) - int(r.Samples.Value)
	}
	if r.SRGB == Either && a.SRGB {
		k.srgb = 1
	}
	k.native = index
	return k
}
