package x11

import (
	"errors"
	"testing"

	"github.com/1broseidon/glkit/internal/platform"
)

func TestXlibErrorName(t *testing.T) {
	tests := []struct {
		code    uint8
		glxBase int
		want    string
	}{
		{8, 0, "BadMatch"},
		{17, 0, "BadImplementation"},
		{160, 160, "BadContext"},
		{169, 160, "BadFBConfig"},
		{173, 160, "GLXBadProfileARB"},
		{174, 160, "XError174"},
		{160, 0, "XError160"},
		{0, 0, "XError0"},
	}
	for _, tt := range tests {
		if got := xlibErrorName(tt.code, tt.glxBase); got != tt.want {
			t.Fatalf("xlibErrorName(%d, %d): expected %s, got %s", tt.code, tt.glxBase, tt.want, got)
		}
	}
}

func TestXlibError_MapsLikeProtocolErrors(t *testing.T) {
	tests := []struct {
		name string
		want error
	}{
		{"BadMatch", platform.ErrBadMatch},
		{"BadValue", platform.ErrBadParameter},
		{"BadAlloc", platform.ErrOutOfMemory},
		{"BadContext", platform.ErrBadContext},
		{"BadFBConfig", platform.ErrBadConfig},
		{"BadWindow", platform.ErrBadNativeWindow},
		{"GLXBadProfileARB", platform.ErrNotSupported},
	}
	for _, tt := range tests {
		err := MapError(XlibError{Name: tt.name, Serial: 0x10005, Resource: 0x400002})
		if !errors.Is(err, tt.want) {
			t.Fatalf("%s: expected %v, got %v", tt.name, tt.want, err)
		}
	}
}

func TestTrap_XlibErrorSerialTruncated(t *testing.T) {
	w := &fakeWire{seq: 0xfffe}
	traps := NewTrapper(w)

	tr := traps.Begin()
	req := w.next()
	w.push(XlibError{Name: "BadMatch", Code: 8, Serial: 0x30000 | uint64(req), Resource: 0x400001})
	err := tr.End()
	if !errors.Is(err, platform.ErrBadMatch) {
		t.Fatalf("expected ErrBadMatch, got %v", err)
	}
	var gerr *platform.Error
	if !errors.As(err, &gerr) || gerr.Code != 0x400001 {
		t.Fatalf("expected the resource id as code, got %v", err)
	}
}
