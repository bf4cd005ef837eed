package glkit

import "github.com/1broseidon/glkit/internal/platform"

// Sentinel errors. Every error returned by glkit is an *Error; test for a
// category with errors.Is(err, glkit.ErrNotSupported). ErrOS matches any
// error carrying a native error code.
var (
	ErrNoAvailablePixelFormat = platform.ErrNoAvailablePixelFormat
	ErrNoBackendAvailable     = platform.ErrNoBackendAvailable
	ErrOS                     = platform.ErrOS
	ErrNotSupported           = platform.ErrNotSupported
	ErrPlatformMismatch       = platform.ErrPlatformMismatch
	ErrContextMismatch        = platform.ErrContextMismatch
	ErrContextLost            = platform.ErrContextLost
	ErrDisplayLost            = platform.ErrDisplayLost
	ErrNotFound               = platform.ErrNotFound
	ErrInitializationFailed   = platform.ErrInitializationFailed
	ErrBadAccess              = platform.ErrBadAccess
	ErrOutOfMemory            = platform.ErrOutOfMemory
	ErrBadAttribute           = platform.ErrBadAttribute
	ErrBadContext             = platform.ErrBadContext
	ErrBadConfig              = platform.ErrBadConfig
	ErrBadSurface             = platform.ErrBadSurface
	ErrBadMatch               = platform.ErrBadMatch
	ErrBadParameter           = platform.ErrBadParameter
	ErrBadNativeWindow        = platform.ErrBadNativeWindow
	ErrBadNativePixmap        = platform.ErrBadNativePixmap
	ErrDisplayInUse           = platform.ErrDisplayInUse
	ErrContextConsumed        = platform.ErrContextConsumed
)

func newError(kind platform.Kind, backend, op, format string, args ...any) error {
	return platform.NewError(kind, backend, op, format, args...)
}
