// Package glkit creates OpenGL and OpenGL ES rendering contexts and drawable
// surfaces on whichever native graphics stack the host provides: EGL on
// Wayland and headless systems, GLX on X11, WGL on Windows and CGL on macOS.
//
// The typical flow is
//
//	d, err := glkit.NewDisplay(handle.HeadlessDisplay(), glkit.DisplayOptions{})
//	cfg, err := d.FindConfig(glkit.Requirements{Depth: glkit.AtLeast(16)})
//	ctx, err := d.CreateContext(cfg, glkit.ContextAttributes{})
//	surf, err := d.CreatePbufferSurface(cfg, 64, 64, glkit.SurfaceAttributes{})
//	cur, err := ctx.MakeCurrent(surf)
//	gl.InitWithProcAddrFunc(d.GetProcAddress)
//
// A context's "current" binding is per OS thread. Goroutines that make a
// context current must call runtime.LockOSThread first and keep it locked
// while the context is in use.
package glkit

import "github.com/1broseidon/glkit/internal/platform"

type (
	API               = platform.API
	SurfaceType       = platform.SurfaceType
	SurfaceTypeMask   = platform.SurfaceTypeMask
	Version           = platform.Version
	ConfigAttribs     = platform.ConfigAttribs
	ContextAPI        = platform.ContextAPI
	Profile           = platform.Profile
	Robustness        = platform.Robustness
	ReleaseBehavior   = platform.ReleaseBehavior
	Priority          = platform.Priority
	SurfaceAttributes = platform.SurfaceAttributes
	Rect              = platform.Rect
	SwapInterval      = platform.SwapInterval
	Features          = platform.Features
	Preference        = platform.Preference
	Error             = platform.Error
	ErrorKind         = platform.Kind
)

const (
	APIOpenGL = platform.APIOpenGL
	APIGLES1  = platform.APIGLES1
	APIGLES2  = platform.APIGLES2
	APIGLES3  = platform.APIGLES3

	WindowSurface  = platform.WindowSurface
	PixmapSurface  = platform.PixmapSurface
	PbufferSurface = platform.PbufferSurface

	SurfaceWindow  = platform.SurfaceWindow
	SurfacePixmap  = platform.SurfacePixmap
	SurfacePbuffer = platform.SurfacePbuffer

	ContextAPIDefault = platform.ContextAPIDefault
	ContextAPIOpenGL  = platform.ContextAPIOpenGL
	ContextAPIGLES    = platform.ContextAPIGLES

	ProfileDefault       = platform.ProfileDefault
	ProfileCore          = platform.ProfileCore
	ProfileCompatibility = platform.ProfileCompatibility

	NotRobust                 = platform.NotRobust
	RobustNoError             = platform.RobustNoError
	RobustNoResetNotification = platform.RobustNoResetNotification
	RobustLoseContextOnReset  = platform.RobustLoseContextOnReset

	ReleaseFlush = platform.ReleaseFlush
	ReleaseNone  = platform.ReleaseNone

	PriorityDefault  = platform.PriorityDefault
	PriorityLow      = platform.PriorityLow
	PriorityMedium   = platform.PriorityMedium
	PriorityHigh     = platform.PriorityHigh
	PriorityRealtime = platform.PriorityRealtime

	DontWait = platform.DontWait

	FeatureContextRobustness         = platform.FeatureContextRobustness
	FeatureContextNoError            = platform.FeatureContextNoError
	FeatureFloatPixelFormat          = platform.FeatureFloatPixelFormat
	FeatureSwapControl               = platform.FeatureSwapControl
	FeatureContextReleaseBehavior    = platform.FeatureContextReleaseBehavior
	FeatureCreateESContext           = platform.FeatureCreateESContext
	FeatureMultisamplingPixelFormats = platform.FeatureMultisamplingPixelFormats
	FeatureSRGBFramebuffers          = platform.FeatureSRGBFramebuffers
	FeaturePartialPresent            = platform.FeaturePartialPresent
	FeatureSurfacelessContext        = platform.FeatureSurfacelessContext

	PreferAuto       = platform.PreferAuto
	PreferEGL        = platform.PreferEGL
	PreferGLX        = platform.PreferGLX
	PreferWGL        = platform.PreferWGL
	PreferCGL        = platform.PreferCGL
	PreferEGLThenGLX = platform.PreferEGLThenGLX
	PreferGLXThenEGL = platform.PreferGLXThenEGL
	PreferEGLThenWGL = platform.PreferEGLThenWGL
	PreferWGLThenEGL = platform.PreferWGLThenEGL
)
