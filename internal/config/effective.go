package config

import (
	"fmt"
	"strings"
)

type ValidationError struct {
	Path   string
	Source Source
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Source.Kind == SourceFile && e.Source.File != "" && e.Source.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %v", e.Source.File, e.Source.Line, e.Source.Column, e.Path, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }

// BuildEffectiveConfig layers raw over the defaults and validates the result.
func BuildEffectiveConfig(raw RawConfig) (*Config, error) {
	cfg := DefaultConfig()

	if raw.Backend != nil {
		cfg.Backend = strings.ToLower(strings.TrimSpace(*raw.Backend))
	}
	if raw.Preference != nil {
		cfg.Preference = strings.ToLower(strings.TrimSpace(*raw.Preference))
	}
	if raw.LogLevel != nil {
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(*raw.LogLevel))
	}
	if raw.SwapInterval != nil {
		cfg.SwapInterval = *raw.SwapInterval
	}
	if raw.DebugContext != nil {
		cfg.DebugContext = *raw.DebugContext
	}
	if raw.X11Display != nil {
		cfg.X11Display = *raw.X11Display
	}
	if r := raw.Requirements; r != nil {
		cfg.Requirements.Depth = derefInt(r.Depth, cfg.Requirements.Depth)
		cfg.Requirements.Stencil = derefInt(r.Stencil, cfg.Requirements.Stencil)
		cfg.Requirements.Samples = derefInt(r.Samples, cfg.Requirements.Samples)
		if r.SRGB != nil {
			cfg.Requirements.SRGB = strings.ToLower(*r.SRGB)
		}
		if r.HardwareAcceleration != nil {
			cfg.Requirements.HardwareAcceleration = strings.ToLower(*r.HardwareAcceleration)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Env variables that override the file.
const (
	EnvBackend  = "GLKIT_BACKEND"
	EnvLogLevel = "GLKIT_LOG_LEVEL"
	EnvDisplay  = "DISPLAY"
)

// applyEnv overrides file values from the environment. DISPLAY only fills an
// x11_display the file left empty. It returns the YAML paths it changed.
func applyEnv(cfg *Config, getenv func(string) string) []string {
	var changed []string
	if v := strings.TrimSpace(getenv(EnvBackend)); v != "" {
		cfg.Backend = strings.ToLower(v)
		changed = append(changed, "backend")
	}
	if v := strings.TrimSpace(getenv(EnvLogLevel)); v != "" {
		cfg.LogLevel = strings.ToLower(v)
		changed = append(changed, "log_level")
	}
	if cfg.X11Display == "" {
		if v := getenv(EnvDisplay); v != "" {
			cfg.X11Display = v
			changed = append(changed, "x11_display")
		}
	}
	return changed
}

func derefInt(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}
