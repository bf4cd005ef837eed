package platform

import "github.com/1broseidon/glkit/handle"

// API is a bitmask of rendering APIs a config or display supports.
type API uint8

const (
	APIOpenGL API = 1 << iota
	APIGLES1
	APIGLES2
	APIGLES3
)

// Has reports whether all bits of want are set in a.
func (a API) Has(want API) bool { return a&want == want }

// SurfaceType is the kind of drawable a Surface wraps.
type SurfaceType uint8

const (
	WindowSurface SurfaceType = iota
	PixmapSurface
	PbufferSurface
)

func (t SurfaceType) String() string {
	switch t {
	case WindowSurface:
		return "window"
	case PixmapSurface:
		return "pixmap"
	case PbufferSurface:
		return "pbuffer"
	default:
		return "unknown"
	}
}

// Mask returns the SurfaceTypeMask bit for t.
func (t SurfaceType) Mask() SurfaceTypeMask { return 1 << t }

// SurfaceTypeMask is the set of surface types a config can back.
type SurfaceTypeMask uint8

const (
	SurfaceWindow  SurfaceTypeMask = 1 << WindowSurface
	SurfacePixmap  SurfaceTypeMask = 1 << PixmapSurface
	SurfacePbuffer SurfaceTypeMask = 1 << PbufferSurface
)

// Has reports whether all bits of want are set in m.
func (m SurfaceTypeMask) Has(want SurfaceTypeMask) bool { return m&want == want }

// Version is a major.minor API version. The zero value means "unspecified".
type Version struct {
	Major uint8
	Minor uint8
}

func (v Version) IsZero() bool { return v.Major == 0 && v.Minor == 0 }

// AtLeast reports whether v >= o.
func (v Version) AtLeast(o Version) bool {
	if v.Major != o.Major {
		return v.Major > o.Major
	}
	return v.Minor >= o.Minor
}

// ConfigAttribs describes one framebuffer format.
type ConfigAttribs struct {
	Red, Green, Blue, Alpha uint8
	Depth, Stencil          uint8
	Samples                 uint8

	SRGB                bool
	FloatPixels         bool
	Transparency        bool
	DoubleBuffered      bool
	HardwareAccelerated bool

	SurfaceTypes SurfaceTypeMask
	APIs         API

	MinSwapInterval, MaxSwapInterval  uint16
	MaxPbufferWidth, MaxPbufferHeight uint32

	// VisualID is the X11 visual backing window surfaces, zero elsewhere.
	VisualID uint32
}

// ColorBits returns red+green+blue.
func (a ConfigAttribs) ColorBits() int {
	return int(a.Red) + int(a.Green) + int(a.Blue)
}

// NativeConfig is a backend's enumerated config: decoded attributes, the
// position in native enumeration order and the backend's own reference.
type NativeConfig struct {
	Attribs ConfigAttribs
	Index   int
	Raw     any
}

// ContextAPI selects the rendering API family for a context.
type ContextAPI uint8

const (
	// ContextAPIDefault picks OpenGL when the config supports it, GLES
	// otherwise.
	ContextAPIDefault ContextAPI = iota
	ContextAPIOpenGL
	ContextAPIGLES
)

type Profile uint8

const (
	ProfileDefault Profile = iota
	ProfileCore
	ProfileCompatibility
)

type Robustness uint8

const (
	NotRobust Robustness = iota
	RobustNoError
	RobustNoResetNotification
	RobustLoseContextOnReset
)

// ReleaseBehavior controls whether a context flushes when released.
type ReleaseBehavior uint8

const (
	ReleaseFlush ReleaseBehavior = iota
	ReleaseNone
)

type Priority uint8

const (
	PriorityDefault Priority = iota
	PriorityLow
	PriorityMedium
	PriorityHigh
	PriorityRealtime
)

// ContextAttributes are the native creation parameters of a context.
type ContextAttributes struct {
	API             ContextAPI
	Version         Version
	Profile         Profile
	Robustness      Robustness
	ReleaseBehavior ReleaseBehavior
	Debug           bool
	Priority        Priority
}

// ResolveAPI turns ContextAPIDefault into a concrete API for cfg.
func (a ContextAttributes) ResolveAPI(cfg ConfigAttribs) ContextAPI {
	if a.API != ContextAPIDefault {
		return a.API
	}
	if cfg.APIs&APIOpenGL != 0 || cfg.APIs == 0 {
		return ContextAPIOpenGL
	}
	return ContextAPIGLES
}

// SurfaceAttributes are the native creation parameters of a surface.
type SurfaceAttributes struct {
	SRGB           bool
	SingleBuffer   bool
	LargestPbuffer bool
}

// Rect is a damage rectangle with its origin at the bottom-left corner, as
// the native partial-present extensions expect.
type Rect struct {
	X, Y          int
	Width, Height int
}

// SwapInterval is the number of vblanks a swap waits for. DontWait disables
// vsync.
type SwapInterval uint32

const DontWait SwapInterval = 0

// Features is the set of optional capabilities a display advertises.
type Features uint32

const (
	FeatureContextRobustness Features = 1 << iota
	FeatureContextNoError
	FeatureFloatPixelFormat
	FeatureSwapControl
	FeatureContextReleaseBehavior
	FeatureCreateESContext
	FeatureMultisamplingPixelFormats
	FeatureSRGBFramebuffers
	FeaturePartialPresent
	FeatureSurfacelessContext
)

func (f Features) Has(want Features) bool { return f&want == want }

// OpenOptions carries platform hints into Backend.Open.
type OpenOptions struct {
	X11VisualID uint32
}

// Backend is a native graphics stack glkit can drive. Backends register
// themselves with Register from an init function.
type Backend interface {
	Name() string
	Priority() int
	Recognizes(p handle.Platform) bool
	Open(h handle.Display, opts OpenOptions) (Display, error)
}

// Display is a backend's open connection.
type Display interface {
	VersionString() string
	Features() Features
	// SynchronizedCreation reports whether creating and destroying objects
	// against this display is safe from several goroutines at once.
	SynchronizedCreation() bool

	Configs() ([]NativeConfig, error)
	CreateContext(cfg NativeConfig, attrs ContextAttributes, share Context) (Context, error)
	CreateWindowSurface(cfg NativeConfig, win handle.Window, width, height int, attrs SurfaceAttributes) (Surface, error)
	CreatePixmapSurface(cfg NativeConfig, pix handle.Pixmap, attrs SurfaceAttributes) (Surface, error)
	CreatePbufferSurface(cfg NativeConfig, width, height int, attrs SurfaceAttributes) (Surface, error)

	// MakeCurrent binds ctx to the calling OS thread. draw and read are
	// both nil for a surfaceless binding.
	MakeCurrent(ctx Context, draw, read Surface) error
	// ReleaseCurrent unbinds ctx from the calling OS thread.
	ReleaseCurrent(ctx Context) error
	GetProcAddress(name string) uintptr

	Close() error
}

// Context is a backend's native rendering context.
type Context interface {
	Raw() uintptr
	Destroy() error
}

// DeferredContext is a context whose native creation needs a drawable.
// Finalize runs before the first make-current with a surface.
type DeferredContext interface {
	Context
	Pending() bool
	Finalize(s Surface) error
}

// Surface is a backend's native drawable.
type Surface interface {
	Type() SurfaceType
	Size() (width, height int, err error)
	Resize(width, height int) error
	SwapBuffers(ctx Context) error
	SwapBuffersWithDamage(ctx Context, rects []Rect) error
	SupportsDamage() bool
	SetSwapInterval(ctx Context, interval SwapInterval) error
	BufferAge() (int, error)
	Raw() uintptr
	Destroy() error
}
