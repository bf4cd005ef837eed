package x11

import (
	"strings"
	"sync"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/1broseidon/glkit/internal/platform"
)

// X errors for requests without replies are delivered asynchronously: on the
// event queue of an xgb connection, or to the error handler of an Xlib
// display. A Trap brackets a group of requests by sequence number so that an
// error is returned to the call that caused it and to no other.
//
//	trap := xl.Traps().Begin()
//	ctx := glXCreateNewContext(xl.Ptr, ...)
//	if err := trap.End(); err != nil { ... }

// wire is the part of the connection a Trapper drives.
type wire interface {
	// mark issues a request that cannot fail and returns its sequence.
	mark() uint16
	// sync performs a round trip and returns its sequence. Every error for
	// an earlier request has been queued once it returns.
	sync() (uint16, error)
	poll() (xgb.Event, xgb.Error)
}

type xgbWire struct{ c *xgb.Conn }

func (w xgbWire) mark() uint16 {
	return xproto.NoOperation(w.c).Sequence
}

func (w xgbWire) sync() (uint16, error) {
	cookie := xproto.GetInputFocus(w.c)
	_, err := cookie.Reply()
	return cookie.Sequence, err
}

func (w xgbWire) poll() (xgb.Event, xgb.Error) {
	return w.c.PollForEvent()
}

// Trapper owns a connection's error queue. Brackets are serialized, so
// requests of concurrent calls never share a sequence range.
type Trapper struct {
	w wire

	call    sync.Mutex
	mu      sync.Mutex
	pending []xgb.Error
}

func NewTrapper(w wire) *Trapper {
	return &Trapper{w: w}
}

// Trap is one bracketed group of requests.
type Trap struct {
	t     *Trapper
	start uint16
	done  bool
}

// Begin opens a bracket. Requests issued after it returns belong to it, and
// no other bracket can open until End.
func (t *Trapper) Begin() *Trap {
	t.call.Lock()
	return &Trap{t: t, start: t.w.mark()}
}

// Drain collects queued errors outside any bracket and logs them as stray.
func (t *Trapper) Drain() {
	t.call.Lock()
	defer t.call.Unlock()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.collect()
	for _, e := range t.pending {
		logStray(e)
	}
	t.pending = t.pending[:0]
}

func (t *Trapper) collect() {
	for {
		ev, xerr := t.w.poll()
		if ev == nil && xerr == nil {
			return
		}
		if xerr != nil {
			t.pending = append(t.pending, xerr)
		} else {
			platform.Logger().Debug("x11: dropping event on glkit connection", "event", ev.String())
		}
	}
}

func logStray(e xgb.Error) {
	platform.Logger().Warn("x11: error with no pending request", "error", e.Error(), "sequence", e.SequenceId())
}

// inRange reports whether seq lies in (start, end] on the 16-bit sequence
// circle.
func inRange(seq, start, end uint16) bool {
	d := seq - start
	return d != 0 && d <= end-start
}

// End closes the bracket, waits for the server to process every request in
// it and returns the first X error any of them caused, mapped to a glkit
// error. Further errors from the same bracket are logged, and errors from
// outside it are logged as stray and never returned.
func (tr *Trap) End() error {
	if tr.done {
		return nil
	}
	tr.done = true
	t := tr.t
	defer t.call.Unlock()

	end, syncErr := t.w.sync()

	t.mu.Lock()
	t.collect()
	var mine []xgb.Error
	for _, e := range t.pending {
		if inRange(e.SequenceId(), tr.start, end) {
			mine = append(mine, e)
		} else {
			logStray(e)
		}
	}
	t.pending = t.pending[:0]
	t.mu.Unlock()

	if len(mine) == 0 {
		if syncErr != nil {
			return &platform.Error{
				Kind:    platform.KindDisplayLost,
				Message: "X server round trip failed",
				Err:     syncErr,
			}
		}
		return nil
	}
	for _, e := range mine[1:] {
		platform.Logger().Debug("x11: additional error in trapped call", "error", e.Error())
	}
	return MapError(mine[0])
}

var errorKinds = map[string]platform.Kind{
	// core protocol
	"Request":        platform.KindBadParameter,
	"Value":          platform.KindBadParameter,
	"Window":         platform.KindBadNativeWindow,
	"Pixmap":         platform.KindBadNativePixmap,
	"Atom":           platform.KindBadParameter,
	"Cursor":         platform.KindBadParameter,
	"Font":           platform.KindBadParameter,
	"Match":          platform.KindBadMatch,
	"Drawable":       platform.KindBadSurface,
	"Access":         platform.KindBadAccess,
	"Alloc":          platform.KindOutOfMemory,
	"Colormap":       platform.KindBadParameter,
	"GContext":       platform.KindBadParameter,
	"IDChoice":       platform.KindBadParameter,
	"Name":           platform.KindNotFound,
	"Length":         platform.KindBadParameter,
	"Implementation": platform.KindNotSupported,

	// GLX
	"BadContext":                platform.KindBadContext,
	"BadContextState":           platform.KindBadContext,
	"BadContextTag":             platform.KindBadContext,
	"BadDrawable":               platform.KindBadSurface,
	"BadPixmap":                 platform.KindBadNativePixmap,
	"BadCurrentWindow":          platform.KindBadSurface,
	"BadCurrentDrawable":        platform.KindBadSurface,
	"BadRenderRequest":          platform.KindBadParameter,
	"BadLargeRequest":           platform.KindBadParameter,
	"BadFBConfig":               platform.KindBadConfig,
	"BadPbuffer":                platform.KindBadSurface,
	"BadWindow":                 platform.KindBadNativeWindow,
	"GLXBadProfileARB":          platform.KindNotSupported,
	"UnsupportedPrivateRequest": platform.KindNotSupported,
}

// errorToken returns the leading word of an xgb error string such as
// "BadMatch {NiceName: Match, ...}".
func errorToken(s string) string {
	if i := strings.IndexAny(s, " {"); i >= 0 {
		return s[:i]
	}
	return s
}

func errorName(s string) string {
	return strings.TrimPrefix(errorToken(s), "Bad")
}

// ErrorKind classifies an X or GLX protocol error. GLX error names already
// start with "Bad" and may carry the prefix twice.
func ErrorKind(e xgb.Error) platform.Kind {
	raw := errorToken(e.Error())
	if k, ok := errorKinds[strings.TrimPrefix(raw, "Bad")]; ok {
		return k
	}
	if k, ok := errorKinds[raw]; ok {
		return k
	}
	return platform.KindOS
}

// MapError converts an X error into a glkit error. Code carries the
// offending resource id. The caller fills in the backend and operation with
// platform.Wrap.
func MapError(e xgb.Error) error {
	return &platform.Error{
		Kind:    ErrorKind(e),
		Message: "X error " + errorName(e.Error()),
		Code:    int64(e.BadId()),
		HasCode: true,
		Err:     &ProtocolError{X: e},
	}
}

// ProtocolError carries the xgb error behind a glkit error; recover it with
// errors.As.
type ProtocolError struct {
	X xgb.Error
}

func (e *ProtocolError) Error() string { return e.X.Error() }
