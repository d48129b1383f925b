// Package config loads the limn CLI configuration file, a TOML document
// looked up at an explicit path or at the user config directory
// (limn/config.toml). Missing files yield defaults, not errors.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"
)

// Config controls CLI-level behavior.
type Config struct {
	// CachePath is the location of the SQLite parse-result cache.
	// Empty disables caching.
	CachePath string `toml:"cache_path"`

	// MaxDepth bounds injection resolution depth.
	MaxDepth int `toml:"max_depth"`

	// Jobs is the number of files parsed concurrently.
	Jobs int `toml:"jobs"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		MaxDepth: 5,
		Jobs:     runtime.NumCPU(),
	}
}

// DefaultPath returns the conventional config file location, or "" when
// the user config directory cannot be determined.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "limn", "config.toml")
}

// Load reads the config at path, falling back to DefaultPath when path
// is empty. A missing file at the fallback location is not an error; a
// missing file at an explicit path is.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
		if path == "" {
			return cfg, nil
		}
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("config: %s: %w", path, err)
	}

	if cfg.MaxDepth < 0 {
		cfg.MaxDepth = 0
	}
	if cfg.Jobs < 1 {
		cfg.Jobs = 1
	}
	return cfg, nil
}
