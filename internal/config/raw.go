package config

type RawRequirements struct {
	Depth                *int    `yaml:"depth"`
	Stencil              *int    `yaml:"stencil"`
	Samples              *int    `yaml:"samples"`
	SRGB                 *string `yaml:"srgb"`
	HardwareAcceleration *string `yaml:"hardware_acceleration"`
}

// RawConfig is one file as written: unset keys stay nil so that the system
// and user files can be layered.
type RawConfig struct {
	Backend      *string          `yaml:"backend"`
	Preference   *string          `yaml:"preference"`
	LogLevel     *string          `yaml:"log_level"`
	SwapInterval *int             `yaml:"swap_interval"`
	DebugContext *bool            `yaml:"debug_context"`
	X11Display   *string          `yaml:"x11_display"`
	Requirements *RawRequirements `yaml:"requirements"`
}

func (c RawConfig) merge(overlay RawConfig) RawConfig {
	out := c

	if overlay.Backend != nil {
		out.Backend = overlay.Backend
	}
	if overlay.Preference != nil {
		out.Preference = overlay.Preference
	}
	if overlay.LogLevel != nil {
		out.LogLevel = overlay.LogLevel
	}
	if overlay.SwapInterval != nil {
		out.SwapInterval = overlay.SwapInterval
	}
	if overlay.DebugContext != nil {
		out.DebugContext = overlay.DebugContext
	}
	if overlay.X11Display != nil {
		out.X11Display = overlay.X11Display
	}
	if overlay.Requirements != nil {
		base := RawRequirements{}
		if out.Requirements != nil {
			base = *out.Requirements
		}
		merged := mergeRawRequirements(base, *overlay.Requirements)
		out.Requirements = &merged
	}
	return out
}

func mergeRawRequirements(base RawRequirements, overlay RawRequirements) RawRequirements {
	out := base
	if overlay.Depth != nil {
		out.Depth = overlay.Depth
	}
	if overlay.Stencil != nil {
		out.Stencil = overlay.Stencil
	}
	if overlay.Samples != nil {
		out.Samples = overlay.Samples
	}
	if overlay.SRGB != nil {
		out.SRGB = overlay.SRGB
	}
	if overlay.HardwareAcceleration != nil {
		out.HardwareAcceleration = overlay.HardwareAcceleration
	}
	return out
}
