package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/1broseidon/glkit"
	"github.com/1broseidon/glkit/handle"
	"github.com/1broseidon/glkit/internal/config"
)

func main() {
	if len(os.Args) < 2 {
		printMainUsage(os.Stdout)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "info":
		os.Exit(runInfo(os.Args[2:]))
	case "configs":
		os.Exit(runConfigs(os.Args[2:]))
	case "check":
		os.Exit(runCheck(os.Args[2:]))
	case "config":
		os.Exit(runConfig(os.Args[2:]))
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printMainUsage(os.Stderr)
		os.Exit(2)
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: glkitinfo <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  info                Show the selected backend, version and features")
	fmt.Fprintln(w, "  configs             List configs, best match first")
	fmt.Fprintln(w, "  check               Create a context on a pbuffer and query the GL")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  config validate     Validate preferences")
	fmt.Fprintln(w, "  config print        Print preferences")
	fmt.Fprintln(w, "  config explain      Explain a preference value")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Display options (info, configs, check):")
	fmt.Fprintln(w, "  --path PATH         Preferences file (default: XDG config layers)")
	fmt.Fprintln(w, "  --backend NAME      Force a backend (egl, glx, wgl, cgl)")
	fmt.Fprintln(w, "  --headless          Use an offscreen display")
}

// displayFlags are the flags shared by every command that opens a display.
type displayFlags struct {
	path     *string
	backend  *string
	headless *bool
}

func addDisplayFlags(fs *flag.FlagSet) displayFlags {
	return displayFlags{
		path:     fs.String("path", "", "Preferences file path (default: XDG config layers)"),
		backend:  fs.String("backend", "", "Force a backend by name"),
		headless: fs.Bool("headless", false, "Use an offscreen display"),
	}
}

func (f displayFlags) preferences() (glkit.Preferences, error) {
	if *f.path == "" {
		return glkit.LoadPreferences()
	}
	return glkit.LoadPreferencesFrom(*f.path)
}

// open loads preferences, installs the logger and opens the display they
// describe.
func (f displayFlags) open() (*glkit.Display, glkit.Preferences, error) {
	prefs, err := f.preferences()
	if err != nil {
		return nil, prefs, err
	}
	glkit.SetLogger(prefs.NewLogger(os.Stderr))

	opts := prefs.Display
	if *f.backend != "" {
		opts.Backend = strings.ToLower(*f.backend)
	}
	d, err := glkit.NewDisplay(displayHandle(prefs, *f.headless), opts)
	return d, prefs, err
}

func displayHandle(prefs glkit.Preferences, headless bool) handle.Display {
	if headless {
		return handle.HeadlessDisplay()
	}
	switch runtime.GOOS {
	case "windows":
		return handle.Display{Platform: handle.Windows}
	case "darwin":
		return handle.HeadlessDisplay()
	}
	if prefs.X11Display == "" {
		return handle.HeadlessDisplay()
	}
	return handle.Display{Platform: handle.Xlib, Name: prefs.X11Display}
}

var featureNames = []struct {
	f    glkit.Features
	name string
}{
	{glkit.FeatureContextRobustness, "robustness"},
	{glkit.FeatureContextNoError, "no_error"},
	{glkit.FeatureFloatPixelFormat, "float_pixels"},
	{glkit.FeatureSwapControl, "swap_control"},
	{glkit.FeatureContextReleaseBehavior, "release_behavior"},
	{glkit.FeatureCreateESContext, "gles"},
	{glkit.FeatureMultisamplingPixelFormats, "multisampling"},
	{glkit.FeatureSRGBFramebuffers, "srgb"},
	{glkit.FeaturePartialPresent, "partial_present"},
	{glkit.FeatureSurfacelessContext, "surfaceless"},
}

func formatFeatures(f glkit.Features) string {
	var names []string
	for _, fn := range featureNames {
		if f.Has(fn.f) {
			names = append(names, fn.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ", ")
}

func runInfo(args []string) int {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	df := addDisplayFlags(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	d, _, err := df.open()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer d.Close()

	cfgs, err := d.Configs()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("backend:  %s\n", d.Backend())
	fmt.Printf("version:  %s\n", d.VersionString())
	fmt.Printf("features: %s\n", formatFeatures(d.Features()))
	fmt.Printf("configs:  %d\n", len(cfgs))
	return 0
}

type configRow struct {
	Index       int    `json:"index"`
	Red         uint8  `json:"red"`
	Green       uint8  `json:"green"`
	Blue        uint8  `json:"blue"`
	Alpha       uint8  `json:"alpha"`
	Depth       uint8  `json:"depth"`
	Stencil     uint8  `json:"stencil"`
	Samples     uint8  `json:"samples"`
	SRGB        bool   `json:"srgb"`
	Accelerated bool   `json:"accelerated"`
	Surfaces    string `json:"surfaces"`
}

func newConfigRow(c glkit.Config) configRow {
	a := c.Attribs()
	var surfaces []string
	for _, t := range []glkit.SurfaceType{glkit.WindowSurface, glkit.PixmapSurface, glkit.PbufferSurface} {
		if a.SurfaceTypes.Has(t.Mask()) {
			surfaces = append(surfaces, t.String())
		}
	}
	return configRow{
		Index: c.Index(), Red: a.Red, Green: a.Green, Blue: a.Blue, Alpha: a.Alpha,
		Depth: a.Depth, Stencil: a.Stencil, Samples: a.Samples,
		SRGB: a.SRGB, Accelerated: a.HardwareAccelerated,
		Surfaces: strings.Join(surfaces, ","),
	}
}

func runConfigs(args []string) int {
	fs := flag.NewFlagSet("configs", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	df := addDisplayFlags(fs)
	all := fs.Bool("all", false, "List every config in native order instead of matching preferences")
	jsonOut := fs.Bool("json", false, "Output JSON")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	d, prefs, err := df.open()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer d.Close()

	var cfgs []glkit.Config
	if *all {
		cfgs, err = d.Configs()
	} else {
		cfgs, err = d.FindConfigs(prefs.Requirements)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	rows := make([]configRow, len(cfgs))
	for i, c := range cfgs {
		rows[i] = newConfigRow(c)
	}
	if *jsonOut {
		data, err := json.MarshalIndent(rows, "", "  ")
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Println(string(data))
		return 0
	}
	if len(rows) == 0 {
		fmt.Println("No matching configs.")
		return 0
	}
	printConfigTable(os.Stdout, rows, terminalWidth())
	return 0
}

// terminalWidth returns the width of stdout, or 0 when it is not a terminal.
func terminalWidth() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return 0
	}
	w, _, err := term.GetSize(fd)
	if err != nil {
		return 0
	}
	return w
}

func printConfigTable(w io.Writer, rows []configRow, width int) {
	line := func(s string) {
		if width > 0 && len(s) > width {
			s = s[:width]
		}
		fmt.Fprintln(w, s)
	}
	line(fmt.Sprintf("%-5s %-11s %-5s %-4s %-4s %-4s %-4s %s", "IDX", "RGBA", "DEPTH", "STEN", "MS", "SRGB", "HW", "SURFACES"))
	for _, r := range rows {
		line(fmt.Sprintf("%-5d %-11s %-5d %-4d %-4d %-4s %-4s %s",
			r.Index, fmt.Sprintf("%d/%d/%d/%d", r.Red, r.Green, r.Blue, r.Alpha),
			r.Depth, r.Stencil, r.Samples, yesNo(r.SRGB), yesNo(r.Accelerated), r.Surfaces))
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func runCheck(args []string) int {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	df := addDisplayFlags(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	// Contexts are bound to OS threads.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	d, prefs, err := df.open()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer d.Close()

	r := prefs.Requirements
	r.SurfaceTypes = glkit.SurfacePbuffer
	cfg, err := d.FindConfig(r)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	log := glkit.Logger()
	log.Debug("check: config chosen", "config", cfg.String())

	nc, err := d.CreateContext(cfg, prefs.Context)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	surf, err := d.CreatePbufferSurface(cfg, 64, 64, glkit.SurfaceAttributes{})
	if err != nil {
		nc.Destroy()
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer surf.Destroy()

	cur, err := nc.MakeCurrent(surf)
	if err != nil {
		nc.Destroy()
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer func() {
		back, err := cur.MakeNotCurrent()
		if err != nil {
			log.Warn("check: release failed", "error", err)
			cur.Destroy()
			return
		}
		if err := back.Destroy(); err != nil {
			log.Warn("check: destroy failed", "error", err)
		}
	}()

	if err := surf.SetSwapInterval(cur, prefs.SwapInterval); err != nil {
		log.Info("check: swap interval not applied", "error", err)
	}

	fmt.Printf("backend: %s\n", d.Backend())
	fmt.Printf("config:  %s\n", cfg)
	for _, name := range []string{"glGetString", "glClear", "glViewport", "glFlush"} {
		fmt.Printf("%-12s %#x\n", name+":", d.GetProcAddress(name))
	}
	if err := surf.SwapBuffers(cur); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	age, err := surf.BufferAge()
	if err != nil {
		log.Debug("check: buffer age unavailable", "error", err)
	}
	fmt.Printf("buffer age after swap: %d\n", age)
	return 0
}

func runConfig(args []string) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, "  glkitinfo config validate [--path PATH]")
		fmt.Fprintln(os.Stderr, "  glkitinfo config print [--path PATH] [--effective|--defaults]")
		fmt.Fprintln(os.Stderr, "  glkitinfo config explain [--path PATH] <yaml.path>")
		return 2
	}

	load := func(path string) (*config.LoadResult, error) {
		if path == "" {
			return config.LoadWithSources()
		}
		return config.LoadFromPath(path)
	}

	switch args[0] {
	case "validate":
		fs := flag.NewFlagSet("validate", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", "Preferences file path (default: XDG config layers)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		res, err := load(*path)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		if len(res.Files) == 0 {
			fmt.Println("config: ok (defaults only)")
			return 0
		}
		fmt.Printf("config: ok (%s)\n", strings.Join(res.Files, ", "))
		return 0

	case "print":
		fs := flag.NewFlagSet("print", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", "Preferences file path (default: XDG config layers)")
		printDefaults := fs.Bool("defaults", false, "Print built-in defaults (no files)")
		printEffective := fs.Bool("effective", false, "Print effective preferences (default)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}

		cfg := config.DefaultConfig()
		if !*printDefaults {
			_ = printEffective // default
			res, err := load(*path)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				return 1
			}
			cfg = res.Config
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Print(string(data))
		return 0

	case "explain":
		fs := flag.NewFlagSet("explain", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", "Preferences file path (default: XDG config layers)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if fs.NArg() < 1 {
			fmt.Fprintln(os.Stderr, "explain requires <yaml.path>")
			return 2
		}
		queryPath := fs.Arg(0)

		res, err := load(*path)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		value, src, err := config.Explain(res, queryPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		out, err := yaml.Marshal(value)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Printf("path: %s\n", queryPath)
		fmt.Printf("source: %s\n", formatSource(src))
		fmt.Printf("value:\n%s", string(out))
		return 0

	default:
		fmt.Fprintf(os.Stderr, "Unknown config subcommand: %s\n", args[0])
		return 2
	}
}

func formatSource(src config.Source) string {
	switch src.Kind {
	case config.SourceFile:
		if src.File == "" {
			return "file"
		}
		if src.Line > 0 {
			return fmt.Sprintf("file:%s:%d:%d", src.File, src.Line, src.Column)
		}
		return "file:" + src.File
	case config.SourceEnv:
		return "env:" + src.Name
	case config.SourceDefault:
		if src.Name != "" {
			return "default:" + src.Name
		}
		return "default"
	default:
		return string(src.Kind)
	}
}
