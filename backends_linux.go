package glkit

// GLX is tried before EGL on X11; EGL serves Wayland and headless.
import (
	_ "github.com/1broseidon/glkit/internal/backend/egl"
	_ "github.com/1broseidon/glkit/internal/backend/glx"
)
