// Package config loads outmux.toml, which supplies defaults for command
// flags shared by every compiler invocation of a build.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// FileName is the configuration file searched for from the working directory up.
const FileName = "outmux.toml"

// Config mirrors outmux.toml.
type Config struct {
	Filter FilterConfig `toml:"filter"`
	Server ServerConfig `toml:"server"`
	Trace  TraceConfig  `toml:"trace"`
}

// FilterConfig holds defaults for `outmux filter`.
type FilterConfig struct {
	Color            string   `toml:"color"`
	Arch             string   `toml:"arch"`
	Target           string   `toml:"target"`
	ExcludedSuffixes []string `toml:"excluded_suffixes"`
}

// ServerConfig holds defaults for `outmux serve`.
type ServerConfig struct {
	Socket      string `toml:"socket"`
	Expect      int    `toml:"expect"`
	MaxConns    int    `toml:"max_conns"`
	MaxRecord   uint32 `toml:"max_record"`
	LogFile     string `toml:"log_file"`
	Journal     string `toml:"journal"`
	MetricsAddr string `toml:"metrics_addr"`
	UI          string `toml:"ui"`
}

// TraceConfig holds tracing defaults.
type TraceConfig struct {
	Output string `toml:"output"`
	Level  string `toml:"level"`
}

// File is a loaded configuration and where it came from.
type File struct {
	Path   string
	Root   string
	Config Config
}

// Find walks up from startDir looking for FileName.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Load decodes the file at path. Unknown keys are rejected.
func Load(path string) (*File, error) {
	var cfg Config
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return nil, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if cfg.Server.Expect < 0 {
		return nil, fmt.Errorf("%s: [server].expect must not be negative", path)
	}
	if cfg.Server.MaxConns < 0 {
		return nil, fmt.Errorf("%s: [server].max_conns must not be negative", path)
	}
	return &File{Path: path, Root: filepath.Dir(path), Config: cfg}, nil
}

// Discover finds and loads the nearest outmux.toml. found is false when
// there is none.
func Discover(startDir string) (*File, bool, error) {
	path, ok, err := Find(startDir)
	if err != nil || !ok {
		return nil, ok, err
	}
	file, err := Load(path)
	if err != nil {
		return nil, true, err
	}
	return file, true, nil
}
