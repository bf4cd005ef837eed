package x11

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/BurntSushi/xgb"

	"github.com/1broseidon/glkit/internal/platform"
)

type fakeXError struct {
	name string
	seq  uint16
	bad  uint32
}

func (e fakeXError) SequenceId() uint16 { return e.seq }
func (e fakeXError) BadId() uint32      { return e.bad }
func (e fakeXError) Error() string {
	return fmt.Sprintf("%s {NiceName: x, Sequence: %d, BadValue: %d}", e.name, e.seq, e.bad)
}

type fakeEvent struct{}

func (fakeEvent) Bytes() []byte  { return nil }
func (fakeEvent) String() string { return "MapNotify" }

// fakeWire hands out sequence numbers like a connection would and lets a
// test queue errors as the server would report them.
type fakeWire struct {
	mu     sync.Mutex
	seq    uint16
	queue  []any
	synced func(end uint16)
}

func (w *fakeWire) next() uint16 {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.seq++
	return w.seq
}

func (w *fakeWire) mark() uint16 { return w.next() }

func (w *fakeWire) sync() (uint16, error) {
	end := w.next()
	if w.synced != nil {
		w.synced(end)
	}
	return end, nil
}

func (w *fakeWire) poll() (xgb.Event, xgb.Error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.queue) == 0 {
		return nil, nil
	}
	item := w.queue[0]
	w.queue = w.queue[1:]
	switch v := item.(type) {
	case xgb.Error:
		return nil, v
	case xgb.Event:
		return v, nil
	}
	return nil, nil
}

func (w *fakeWire) push(items ...any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.queue = append(w.queue, items...)
}

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	platform.SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { platform.SetLogger(nil) })
	return &buf
}

func TestInRange(t *testing.T) {
	tests := []struct {
		seq, start, end uint16
		want            bool
	}{
		{5, 4, 10, true},
		{10, 4, 10, true},
		{4, 4, 10, false},
		{11, 4, 10, false},
		{3, 4, 10, false},
		// wrapped around
		{2, 0xfffe, 5, true},
		{0xffff, 0xfffe, 5, true},
		{0, 0xfffe, 5, true},
		{6, 0xfffe, 5, false},
		{0xfffd, 0xfffe, 5, false},
	}
	for _, tt := range tests {
		if got := inRange(tt.seq, tt.start, tt.end); got != tt.want {
			t.Fatalf("inRange(%d, %d, %d): expected %v, got %v", tt.seq, tt.start, tt.end, tt.want, got)
		}
	}
}

func TestTrap_NoErrors(t *testing.T) {
	w := &fakeWire{}
	tr := NewTrapper(w).Begin()
	w.next()
	if err := tr.End(); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestTrap_ReturnsErrorInBracket(t *testing.T) {
	w := &fakeWire{}
	traps := NewTrapper(w)

	tr := traps.Begin()
	req := w.next()
	w.push(fakeXError{name: "BadMatch", seq: req, bad: 0x400001})

	err := tr.End()
	if err == nil {
		t.Fatalf("expected error")
	}
	if !errors.Is(err, platform.ErrBadMatch) {
		t.Fatalf("expected ErrBadMatch, got %v", err)
	}
	var perr *ProtocolError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ProtocolError in chain, got %v", err)
	}
	if perr.X.SequenceId() != req {
		t.Fatalf("expected sequence %d, got %d", req, perr.X.SequenceId())
	}
	var gerr *platform.Error
	if !errors.As(err, &gerr) || gerr.Code != 0x400001 {
		t.Fatalf("expected code 0x400001, got %v", err)
	}
}

func TestTrap_StrayErrorLoggedNotReturned(t *testing.T) {
	logs := captureLogs(t)
	w := &fakeWire{}
	traps := NewTrapper(w)

	// An unchecked request issued outside any bracket fails late.
	stray := w.next()

	tr := traps.Begin()
	w.next()
	w.push(fakeXError{name: "BadWindow", seq: stray})

	if err := tr.End(); err != nil {
		t.Fatalf("expected stray error to be ignored, got %v", err)
	}
	if !strings.Contains(logs.String(), "error with no pending request") {
		t.Fatalf("expected stray error to be logged, got %q", logs.String())
	}
}

func TestTrap_ErrorAfterSyncBelongsToNobody(t *testing.T) {
	captureLogs(t)
	w := &fakeWire{}
	traps := NewTrapper(w)

	tr := traps.Begin()
	w.next()
	w.synced = func(end uint16) {
		w.push(fakeXError{name: "BadAlloc", seq: end + 1})
	}
	if err := tr.End(); err != nil {
		t.Fatalf("expected error past the bracket to be ignored, got %v", err)
	}
}

func TestTrap_WrapAround(t *testing.T) {
	w := &fakeWire{seq: 0xfffd}
	traps := NewTrapper(w)

	tr := traps.Begin() // 0xfffe
	w.next()            // 0xffff
	req := w.next()     // 0x0000
	w.push(fakeXError{name: "BadBadContext", seq: req})

	err := tr.End()
	if !errors.Is(err, platform.ErrBadContext) {
		t.Fatalf("expected ErrBadContext across wrap, got %v", err)
	}
}

func TestTrap_FirstErrorWinsAndEventsDropped(t *testing.T) {
	w := &fakeWire{}
	traps := NewTrapper(w)

	tr := traps.Begin()
	a := w.next()
	b := w.next()
	w.push(fakeEvent{}, fakeXError{name: "BadValue", seq: a}, fakeXError{name: "BadAccess", seq: b})

	err := tr.End()
	if !errors.Is(err, platform.ErrBadParameter) {
		t.Fatalf("expected first error (BadValue) to win, got %v", err)
	}
	if len(w.queue) != 0 {
		t.Fatalf("expected queue drained")
	}
}

func TestTrap_SequentialBracketsDoNotShareErrors(t *testing.T) {
	w := &fakeWire{}
	traps := NewTrapper(w)

	first := traps.Begin()
	w.next()
	if err := first.End(); err != nil {
		t.Fatalf("first: %v", err)
	}

	second := traps.Begin()
	req := w.next()
	w.push(fakeXError{name: "BadPixmap", seq: req})
	if err := second.End(); !errors.Is(err, platform.ErrBadNativePixmap) {
		t.Fatalf("expected ErrBadNativePixmap, got %v", err)
	}
}

func TestTrap_EndTwiceIsNoop(t *testing.T) {
	w := &fakeWire{}
	tr := NewTrapper(w).Begin()
	if err := tr.End(); err != nil {
		t.Fatalf("end: %v", err)
	}
	if err := tr.End(); err != nil {
		t.Fatalf("second end: %v", err)
	}
}

func TestErrorKind(t *testing.T) {
	tests := map[string]platform.Kind{
		"BadMatch":            platform.KindBadMatch,
		"BadAlloc":            platform.KindOutOfMemory,
		"BadWindow":           platform.KindBadNativeWindow,
		"BadBadContext":       platform.KindBadContext,
		"BadBadFBConfig":      platform.KindBadConfig,
		"BadBadPbuffer":       platform.KindBadSurface,
		"BadGLXBadProfileARB": platform.KindNotSupported,
		"BadContext":          platform.KindBadContext,
		"BadSomethingNew":     platform.KindOS,
	}
	for name, want := range tests {
		if got := ErrorKind(fakeXError{name: name}); got != want {
			t.Fatalf("ErrorKind(%s): expected %v, got %v", name, want, got)
		}
	}
}

func TestHasAlpha(t *testing.T) {
	if !hasAlpha(32, 0xff0000|0xff00|0xff) {
		t.Fatalf("expected depth-32 visual with 24 rgb bits to have alpha")
	}
	if hasAlpha(24, 0xff0000|0xff00|0xff) {
		t.Fatalf("expected depth-24 visual to have no alpha")
	}
}
