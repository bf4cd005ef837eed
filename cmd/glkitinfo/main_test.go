package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/1broseidon/glkit"
	"github.com/1broseidon/glkit/handle"
	"github.com/1broseidon/glkit/internal/config"
)

func TestFormatFeatures(t *testing.T) {
	if got := formatFeatures(0); got != "none" {
		t.Fatalf("expected none, got %q", got)
	}
	got := formatFeatures(glkit.FeatureSwapControl | glkit.FeatureSurfacelessContext)
	if got != "swap_control, surfaceless" {
		t.Fatalf("expected swap_control, surfaceless, got %q", got)
	}
}

func TestPrintConfigTable_TruncatesToWidth(t *testing.T) {
	rows := []configRow{{Index: 3, Red: 8, Green: 8, Blue: 8, Alpha: 8, Depth: 24, Stencil: 8, Accelerated: true, Surfaces: "window,pixmap,pbuffer"}}

	var buf bytes.Buffer
	printConfigTable(&buf, rows, 0)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header and one row, got %q", buf.String())
	}
	if !strings.Contains(lines[1], "8/8/8/8") || !strings.HasSuffix(lines[1], "window,pixmap,pbuffer") {
		t.Fatalf("unexpected row %q", lines[1])
	}

	buf.Reset()
	printConfigTable(&buf, rows, 20)
	for _, l := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if len(l) > 20 {
			t.Fatalf("expected lines of at most 20 columns, got %q", l)
		}
	}
}

func TestFormatSource(t *testing.T) {
	cases := []struct {
		src  config.Source
		want string
	}{
		{config.Source{Kind: config.SourceFile, File: "/c.yaml", Line: 3, Column: 5}, "file:/c.yaml:3:5"},
		{config.Source{Kind: config.SourceEnv, Name: "GLKIT_BACKEND"}, "env:GLKIT_BACKEND"},
		{config.Source{Kind: config.SourceDefault}, "default"},
	}
	for _, tc := range cases {
		if got := formatSource(tc.src); got != tc.want {
			t.Fatalf("expected %q, got %q", tc.want, got)
		}
	}
}

func TestDisplayHandle_Headless(t *testing.T) {
	h := displayHandle(glkit.Preferences{X11Display: ":0"}, true)
	if h.Platform != handle.Headless {
		t.Fatalf("expected headless, got %v", h.Platform)
	}
}
