package platform

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an Error. Every backend maps its native error reporting
// into one of these.
type Kind uint8

const (
	KindMisc Kind = iota
	KindNoAvailablePixelFormat
	KindNoBackendAvailable
	KindOS
	KindNotSupported
	KindPlatformMismatch
	KindContextMismatch
	KindContextLost
	KindDisplayLost
	KindNotFound
	KindInitializationFailed
	KindBadAccess
	KindOutOfMemory
	KindBadAttribute
	KindBadContext
	KindBadConfig
	KindBadSurface
	KindBadMatch
	KindBadParameter
	KindBadNativeWindow
	KindBadNativePixmap
	KindDisplayInUse
	KindContextConsumed
)

var kindNames = map[Kind]string{
	KindMisc:                   "misc platform error",
	KindNoAvailablePixelFormat: "no available pixel format",
	KindNoBackendAvailable:     "no backend available",
	KindOS:                     "os error",
	KindNotSupported:           "not supported",
	KindPlatformMismatch:       "platform mismatch",
	KindContextMismatch:        "context is not current on this thread",
	KindContextLost:            "context lost",
	KindDisplayLost:            "display lost",
	KindNotFound:               "not found",
	KindInitializationFailed:   "initialization failed",
	KindBadAccess:              "bad access",
	KindOutOfMemory:            "out of memory",
	KindBadAttribute:           "bad attribute",
	KindBadContext:             "bad context",
	KindBadConfig:              "bad config",
	KindBadSurface:             "bad surface",
	KindBadMatch:               "bad match",
	KindBadParameter:           "bad parameter",
	KindBadNativeWindow:        "bad native window",
	KindBadNativePixmap:        "bad native pixmap",
	KindDisplayInUse:           "display still has live contexts or surfaces",
	KindContextConsumed:        "context handle already consumed",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Error is the error value returned by every fallible glkit operation.
//
// Code carries the backend's native error code (EGL error, X error code,
// GetLastError, CGLError) when HasCode is set.
type Error struct {
	Kind    Kind
	Backend string
	Op      string
	Code    int64
	HasCode bool
	Message string
	Err     error

	sentinel bool
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString("glkit: ")
	if e.Backend != "" {
		sb.WriteString(e.Backend)
		sb.WriteString(": ")
	}
	if e.Op != "" {
		sb.WriteString(e.Op)
		sb.WriteString(": ")
	}
	if e.HasCode {
		fmt.Fprintf(&sb, "[0x%x] ", e.Code)
	}
	if e.Message != "" {
		sb.WriteString(e.Message)
	} else {
		sb.WriteString(e.Kind.String())
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinel errors by kind. ErrOS additionally matches every error
// that carries a native code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || !t.sentinel {
		return false
	}
	if t.Kind == KindOS && e.HasCode {
		return true
	}
	return t.Kind == e.Kind
}

func sentinel(k Kind) *Error { return &Error{Kind: k, sentinel: true} }

var (
	ErrNoAvailablePixelFormat = sentinel(KindNoAvailablePixelFormat)
	ErrNoBackendAvailable     = sentinel(KindNoBackendAvailable)
	ErrOS                     = sentinel(KindOS)
	ErrNotSupported           = sentinel(KindNotSupported)
	ErrPlatformMismatch       = sentinel(KindPlatformMismatch)
	ErrContextMismatch        = sentinel(KindContextMismatch)
	ErrContextLost            = sentinel(KindContextLost)
	ErrDisplayLost            = sentinel(KindDisplayLost)
	ErrNotFound               = sentinel(KindNotFound)
	ErrInitializationFailed   = sentinel(KindInitializationFailed)
	ErrBadAccess              = sentinel(KindBadAccess)
	ErrOutOfMemory            = sentinel(KindOutOfMemory)
	ErrBadAttribute           = sentinel(KindBadAttribute)
	ErrBadContext             = sentinel(KindBadContext)
	ErrBadConfig              = sentinel(KindBadConfig)
	ErrBadSurface             = sentinel(KindBadSurface)
	ErrBadMatch               = sentinel(KindBadMatch)
	ErrBadParameter           = sentinel(KindBadParameter)
	ErrBadNativeWindow        = sentinel(KindBadNativeWindow)
	ErrBadNativePixmap        = sentinel(KindBadNativePixmap)
	ErrDisplayInUse           = sentinel(KindDisplayInUse)
	ErrContextConsumed        = sentinel(KindContextConsumed)
)

// NewError builds an Error without a native code.
func NewError(kind Kind, backend, op, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Backend: backend,
		Op:      op,
		Message: fmt.Sprintf(format, args...),
	}
}

// NativeError builds an Error for a failed native call.
func NativeError(kind Kind, backend, op string, code int64, message string) *Error {
	return &Error{
		Kind:    kind,
		Backend: backend,
		Op:      op,
		Code:    code,
		HasCode: true,
		Message: message,
	}
}

// Wrap attaches backend and op context to err, keeping its kind when err is
// already an *Error.
func Wrap(err error, kind Kind, backend, op string) error {
	if err == nil {
		return nil
	}
	var ge *Error
	if errors.As(err, &ge) {
		out := *ge
		out.sentinel = false
		if out.Backend == "" {
			out.Backend = backend
		}
		if out.Op == "" {
			out.Op = op
		}
		return &out
	}
	return &Error{Kind: kind, Backend: backend, Op: op, Err: err}
}

// KindOf returns the kind of err, or KindMisc when err is not an *Error.
func KindOf(err error) Kind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return KindMisc
}
