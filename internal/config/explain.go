package config

import (
	"fmt"
)

// Explain returns the effective value at a YAML path and where it came from.
//
// Supported paths:
//
//	backend
//	preference
//	log_level
//	swap_interval
//	debug_context
//	x11_display
//	requirements.depth
//	requirements.stencil
//	requirements.samples
//	requirements.srgb
//	requirements.hardware_acceleration
func Explain(res *LoadResult, path string) (any, Source, error) {
	if res == nil || res.Config == nil {
		return nil, Source{}, fmt.Errorf("no config loaded")
	}
	if path == "" {
		return nil, Source{}, fmt.Errorf("path is empty")
	}

	value, err := lookupValue(res.Config, path)
	if err != nil {
		return nil, Source{}, err
	}
	if src, ok := res.Sources[path]; ok {
		return value, src, nil
	}
	return value, Source{Kind: SourceDefault, Name: "defaults"}, nil
}

func lookupValue(cfg *Config, path string) (any, error) {
	switch path {
	case "backend":
		return cfg.Backend, nil
	case "preference":
		return cfg.Preference, nil
	case "log_level":
		return cfg.LogLevel, nil
	case "swap_interval":
		return cfg.SwapInterval, nil
	case "debug_context":
		return cfg.DebugContext, nil
	case "x11_display":
		return cfg.X11Display, nil
	case "requirements.depth":
		return cfg.Requirements.Depth, nil
	case "requirements.stencil":
		return cfg.Requirements.Stencil, nil
	case "requirements.samples":
		return cfg.Requirements.Samples, nil
	case "requirements.srgb":
		return cfg.Requirements.SRGB, nil
	case "requirements.hardware_acceleration":
		return cfg.Requirements.HardwareAcceleration, nil
	default:
		return nil, fmt.Errorf("unknown path: %s", path)
	}
}
