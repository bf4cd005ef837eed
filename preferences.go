package glkit

import (
	"io"
	"log/slog"

	"github.com/1broseidon/glkit/internal/config"
	"github.com/1broseidon/glkit/internal/platform"
)

// Preferences are the user-level defaults read from glkit/config.yaml under
// the XDG config directories and the GLKIT_BACKEND, GLKIT_LOG_LEVEL and
// DISPLAY environment variables.
type Preferences struct {
	Display      DisplayOptions
	Context      ContextAttributes
	Requirements Requirements
	SwapInterval SwapInterval
	// X11Display is the X display name to connect to, ":0" style.
	X11Display string
	LogLevel   slog.Level
}

// LoadPreferences layers the system and user preference files. Missing
// files yield the defaults.
func LoadPreferences() (Preferences, error) {
	res, err := config.LoadWithSources()
	if err != nil {
		return Preferences{}, err
	}
	return preferencesFromConfig(res.Config)
}

// LoadPreferencesFrom reads the preferences file at path.
func LoadPreferencesFrom(path string) (Preferences, error) {
	res, err := config.LoadFromPath(path)
	if err != nil {
		return Preferences{}, err
	}
	return preferencesFromConfig(res.Config)
}

func preferencesFromConfig(c *config.Config) (Preferences, error) {
	pref, err := platform.ParsePreference(c.Preference)
	if err != nil {
		return Preferences{}, err
	}
	level, err := config.ParseLogLevel(c.LogLevel)
	if err != nil {
		return Preferences{}, err
	}

	r := DefaultRequirements()
	r.Depth = AtLeast(uint8(c.Requirements.Depth))
	r.Stencil = AtLeast(uint8(c.Requirements.Stencil))
	if c.Requirements.Samples > 0 {
		r.Samples = Exactly(uint8(c.Requirements.Samples))
	}
	switch c.Requirements.SRGB {
	case "yes":
		r.SRGB = Yes
	case "no":
		r.SRGB = No
	}
	switch c.Requirements.HardwareAcceleration {
	case "require":
		r.HardwareAccelerated = AccelRequire
	case "forbid":
		r.HardwareAccelerated = AccelForbid
	case "dont_care":
		r.HardwareAccelerated = AccelDontCare
	}

	return Preferences{
		Display: DisplayOptions{
			Preference: pref,
			Backend:    c.Backend,
		},
		Context:      ContextAttributes{Debug: c.DebugContext},
		Requirements: r,
		SwapInterval: SwapInterval(c.SwapInterval),
		X11Display:   c.X11Display,
		LogLevel:     level,
	}, nil
}

// NewLogger returns a text logger writing to w at the preferred level,
// suitable for SetLogger.
func (p Preferences) NewLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: p.LogLevel}))
}
