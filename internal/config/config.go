// Package config loads clipshuffle settings from defaults, an optional TOML
// file, and command-line overrides.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// FileName is the project-local configuration file picked up when no
// explicit path is given.
const FileName = "clipshuffle.toml"

// Default values.
const (
	DefaultInput          = "timeline.xml"
	DefaultOutput         = "timeline_processed.xml"
	DefaultSegmentSeconds = 6
	DefaultFPS            = 25
	DefaultAttemptFactor  = 10.0
)

// ErrNotFound is returned when an explicitly requested config file does not exist.
var ErrNotFound = errors.New("config file not found")

// Logging contains configuration for log output.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Config holds the settings of one clipshuffle run.
type Config struct {
	Input           string  `toml:"input"`
	Output          string  `toml:"output"`
	SegmentSeconds  int     `toml:"segment_seconds"`
	DefaultFPS      int     `toml:"default_fps"`      // Used when the sequence has no rate.
	Seed            uint64  `toml:"seed"`             // 0 seeds from the clock.
	AttemptFactor   float64 `toml:"attempt_factor"`   // Shuffle attempts per segment.
	PreviewPlaylist string  `toml:"preview_playlist"` // Empty disables the playlist.
	Logging         Logging `toml:"logging"`

	// ConfigPath is the file the values were read from, if any.
	ConfigPath string `toml:"-"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Input:          DefaultInput,
		Output:         DefaultOutput,
		SegmentSeconds: DefaultSegmentSeconds,
		DefaultFPS:     DefaultFPS,
		AttemptFactor:  DefaultAttemptFactor,
		Logging: Logging{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load resolves, parses, and validates a configuration file on top of
// Default(). It returns the resolved path and whether a file was read.
// An empty path looks for clipshuffle.toml in the working directory and
// falls back to defaults when there is none.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		cfg.ConfigPath = resolvedPath
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolvedPath, err)
		}
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			return "", false, fmt.Errorf("resolve config path: %w", err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return "", false, fmt.Errorf("%w: %s", ErrNotFound, abs)
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		if info.IsDir() {
			return "", false, fmt.Errorf("config path %s is a directory", abs)
		}
		return abs, true, nil
	}

	projectPath, err := filepath.Abs(FileName)
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return projectPath, false, nil
}

func (c *Config) normalize() {
	c.Input = strings.TrimSpace(c.Input)
	c.Output = strings.TrimSpace(c.Output)
	c.PreviewPlaylist = strings.TrimSpace(c.PreviewPlaylist)
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
}

// CreateSample writes a sample configuration file to the specified location.
// An existing file is left alone unless force is set.
func CreateSample(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file %s already exists", path)
		}
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
