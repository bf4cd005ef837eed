package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/1broseidon/glkit/internal/platform"
)

// Requirements are the default framebuffer requirements applied when an
// application does not set its own.
type Requirements struct {
	Depth   int `yaml:"depth"`
	Stencil int `yaml:"stencil"`
	// Samples is an exact multisample count; 0 means no multisampling.
	Samples int `yaml:"samples"`
	// SRGB is "either", "yes" or "no".
	SRGB string `yaml:"srgb"`
	// HardwareAcceleration is "prefer", "require", "forbid" or "dont_care".
	HardwareAcceleration string `yaml:"hardware_acceleration"`
}

// Config is the effective glkit preferences file.
type Config struct {
	// Backend forces one backend by name; empty selects by Preference.
	Backend      string       `yaml:"backend,omitempty"`
	Preference   string       `yaml:"preference"`
	LogLevel     string       `yaml:"log_level"`
	SwapInterval int          `yaml:"swap_interval"`
	DebugContext bool         `yaml:"debug_context"`
	X11Display   string       `yaml:"x11_display,omitempty"`
	Requirements Requirements `yaml:"requirements"`
}

func DefaultConfig() *Config {
	return &Config{
		Preference:   "auto",
		LogLevel:     "warning",
		SwapInterval: 1,
		Requirements: Requirements{
			Depth:                24,
			Stencil:              8,
			SRGB:                 "either",
			HardwareAcceleration: "prefer",
		},
	}
}

var knownBackends = []string{
	platform.BackendEGL,
	platform.BackendGLX,
	platform.BackendWGL,
	platform.BackendCGL,
}

func (c *Config) Validate() error {
	if c.Backend != "" {
		ok := false
		for _, b := range knownBackends {
			if c.Backend == b {
				ok = true
				break
			}
		}
		if !ok {
			return &ValidationError{Path: "backend", Err: fmt.Errorf("backend must be one of: %s", strings.Join(knownBackends, ", "))}
		}
	}
	if _, err := platform.ParsePreference(c.Preference); err != nil {
		return &ValidationError{Path: "preference", Err: err}
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return &ValidationError{Path: "log_level", Err: err}
	}
	if c.SwapInterval < 0 {
		return &ValidationError{Path: "swap_interval", Err: fmt.Errorf("swap_interval must be >= 0")}
	}
	if err := validateBits("requirements.depth", c.Requirements.Depth); err != nil {
		return err
	}
	if err := validateBits("requirements.stencil", c.Requirements.Stencil); err != nil {
		return err
	}
	if err := validateBits("requirements.samples", c.Requirements.Samples); err != nil {
		return err
	}
	switch c.Requirements.SRGB {
	case "either", "yes", "no":
	default:
		return &ValidationError{Path: "requirements.srgb", Err: fmt.Errorf("srgb must be one of: either, yes, no")}
	}
	switch c.Requirements.HardwareAcceleration {
	case "prefer", "require", "forbid", "dont_care":
	default:
		return &ValidationError{Path: "requirements.hardware_acceleration", Err: fmt.Errorf("hardware_acceleration must be one of: prefer, require, forbid, dont_care")}
	}
	return nil
}

func validateBits(path string, v int) error {
	if v < 0 || v > 255 {
		return &ValidationError{Path: path, Err: fmt.Errorf("must be between 0 and 255")}
	}
	return nil
}

// ParseLogLevel maps a log_level value to a slog level.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warning", "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("log_level must be one of: debug, info, warning, error")
	}
}
