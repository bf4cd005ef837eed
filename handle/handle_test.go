package handle

import "testing"

func TestWindowValid(t *testing.T) {
	cases := []struct {
		name string
		w    Window
		want bool
	}{
		{"x11 with id", Window{Platform: Xlib, ID: 42}, true},
		{"x11 without id", Window{Platform: Xcb, Ptr: 1}, false},
		{"wayland surface", Window{Platform: Wayland, Ptr: 0xdead}, true},
		{"wayland nil", Window{Platform: Wayland}, false},
		{"headless", Window{Platform: Headless, Ptr: 1, ID: 1}, false},
	}
	for _, tc := range cases {
		if got := tc.w.Valid(); got != tc.want {
			t.Fatalf("%s: expected Valid()=%v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestPixmapValid(t *testing.T) {
	if !(Pixmap{Platform: Xlib, ID: 7}).Valid() {
		t.Fatalf("expected x11 pixmap with id to be valid")
	}
	if (Pixmap{Platform: Wayland, Ptr: 7}).Valid() {
		t.Fatalf("expected wayland pixmap to be invalid")
	}
}

func TestDisplayString(t *testing.T) {
	if got := (Display{Platform: Xlib, Name: ":1"}).String(); got != "xlib(:1)" {
		t.Fatalf("expected xlib(:1), got %q", got)
	}
	if got := HeadlessDisplay().String(); got != "headless" {
		t.Fatalf("expected headless, got %q", got)
	}
	if !Xcb.IsX11() || Wayland.IsX11() {
		t.Fatalf("unexpected IsX11 classification")
	}
}
