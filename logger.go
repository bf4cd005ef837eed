package glkit

import (
	"log/slog"

	"github.com/1broseidon/glkit/internal/platform"
)

// SetLogger configures the logger used by glkit and its backends. By default
// glkit produces no log output. Pass nil to restore the silent default.
//
// Levels used:
//   - [slog.LevelDebug]: native calls and config ranking
//   - [slog.LevelInfo]: backend selection, display lifecycle
//   - [slog.LevelWarn]: backend fallbacks, X errors with no pending request
func SetLogger(l *slog.Logger) {
	platform.SetLogger(l)
}

// Logger returns the logger glkit currently writes to.
func Logger() *slog.Logger {
	return platform.Logger()
}
