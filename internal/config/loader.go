package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type SourceKind string

const (
	SourceDefault SourceKind = "default"
	SourceFile    SourceKind = "file"
	SourceEnv     SourceKind = "env"
)

type Source struct {
	Kind   SourceKind
	Name   string // env variable for env sources
	File   string
	Line   int
	Column int
}

type LoadResult struct {
	Config  *Config
	Sources map[string]Source // YAML-path -> last writer source
	Files   []string          // preference files applied, lowest layer first
}

const configFile = "glkit/config.yaml"

// SearchPaths lists the preference files glkit layers, lowest precedence
// first: each XDG_CONFIG_DIRS entry in reverse order, then the user file
// under XDG_CONFIG_HOME.
func SearchPaths() ([]string, error) {
	return searchPaths(os.Getenv)
}

func searchPaths(getenv func(string) string) ([]string, error) {
	dirs := getenv("XDG_CONFIG_DIRS")
	if dirs == "" {
		dirs = "/etc/xdg"
	}
	var paths []string
	list := filepath.SplitList(dirs)
	for i := len(list) - 1; i >= 0; i-- {
		if filepath.IsAbs(list[i]) {
			paths = append(paths, filepath.Join(list[i], configFile))
		}
	}
	user, err := userPath(getenv)
	if err != nil {
		return nil, err
	}
	return append(paths, user), nil
}

func DefaultConfigPath() (string, error) {
	return userPath(os.Getenv)
}

func userPath(getenv func(string) string) (string, error) {
	if home := getenv("XDG_CONFIG_HOME"); filepath.IsAbs(home) {
		return filepath.Join(home, configFile), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", configFile), nil
}

// Load reads the preferences from the standard locations, applying
// environment overrides. No files at all yields the defaults.
func Load() (*Config, error) {
	res, err := LoadWithSources()
	if err != nil {
		return nil, err
	}
	return res.Config, nil
}

// LoadWithSources loads preferences and returns file-level sources for
// introspection.
func LoadWithSources() (*LoadResult, error) {
	paths, err := SearchPaths()
	if err != nil {
		return nil, err
	}
	return loadLayers(paths, os.Getenv)
}

// LoadFromPath loads a single preferences file in place of the standard
// locations.
func LoadFromPath(path string) (*LoadResult, error) {
	return loadFromPath(path, os.Getenv)
}

func loadFromPath(path string, getenv func(string) string) (*LoadResult, error) {
	return loadLayers([]string{path}, getenv)
}

// loadLayers applies each existing file in paths over the previous ones.
// Missing files are skipped.
func loadLayers(paths []string, getenv func(string) string) (*LoadResult, error) {
	raw := RawConfig{}
	sources := map[string]Source{}
	var files []string

	for _, path := range paths {
		fileRaw, fileSources, err := loadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		raw = raw.merge(fileRaw)
		for key, src := range fileSources {
			sources[key] = src
		}
		files = append(files, path)
	}

	cfg, err := BuildEffectiveConfig(raw)
	if err != nil {
		return nil, attachSourceContext(err, sources)
	}

	envNames := map[string]string{
		"backend":     EnvBackend,
		"log_level":   EnvLogLevel,
		"x11_display": EnvDisplay,
	}
	for _, p := range applyEnv(cfg, getenv) {
		sources[p] = Source{Kind: SourceEnv, Name: envNames[p]}
	}
	if err := cfg.Validate(); err != nil {
		return nil, attachSourceContext(err, sources)
	}

	return &LoadResult{
		Config:  cfg,
		Sources: sources,
		Files:   files,
	}, nil
}

// loadFile decodes one preferences file. The returned error wraps
// fs.ErrNotExist when the file is absent.
func loadFile(path string) (RawConfig, map[string]Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return RawConfig{}, nil, err
		}
		return RawConfig{}, nil, fmt.Errorf("%s: failed to read: %w", path, err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return RawConfig{}, nil, fmt.Errorf("%s: failed to parse yaml: %w", path, err)
	}

	var raw RawConfig
	if err := decodeStrictYAML(data, &raw); err != nil {
		return RawConfig{}, nil, fmt.Errorf("%s: %w", path, err)
	}
	return raw, collectSources(&doc, path), nil
}

func decodeStrictYAML(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		if err == io.EOF {
			return nil
		}
		return err
	}
	return nil
}

func collectSources(doc *yaml.Node, file string) map[string]Source {
	out := make(map[string]Source)
	node := doc
	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		node = node.Content[0]
	}
	collectSourcesRec(node, file, "", out)
	return out
}

// collectSourcesRec records the position of every mapping value under its
// dotted key path, e.g. "requirements.samples".
func collectSourcesRec(node *yaml.Node, file string, prefix string, out map[string]Source) {
	if node == nil || node.Kind != yaml.MappingNode {
		return
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		valNode := node.Content[i+1]
		path := node.Content[i].Value
		if prefix != "" {
			path = prefix + "." + path
		}
		out[path] = Source{
			Kind:   SourceFile,
			File:   file,
			Line:   valNode.Line,
			Column: valNode.Column,
		}
		collectSourcesRec(valNode, file, path, out)
	}
}

func attachSourceContext(err error, sources map[string]Source) error {
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Path == "" {
		return err
	}
	if src, ok := sources[verr.Path]; ok {
		verr.Source = src
	}
	return verr
}
