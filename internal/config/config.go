// Package config loads bough.toml, the per-repository settings file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/jward/bough/internal/logging"
)

// FileName is the settings file looked up at the repository root.
const FileName = "bough.toml"

// Config holds repository settings. Command-line flags override it.
type Config struct {
	// DB is the index database path, relative to the repository root.
	DB string `toml:"db"`

	// ScriptsDir, when set, holds lint scripts that replace the built-in ones.
	ScriptsDir string `toml:"scripts_dir"`

	// Parallel enables the parallel indexing pipeline.
	Parallel bool `toml:"parallel"`

	// MaxFileSize caps the size of parsed files in bytes. Zero keeps the
	// parser default.
	MaxFileSize int64 `toml:"max_file_size"`

	// Format is the default output format: text, json or yaml.
	Format string `toml:"format"`

	// Exclude lists glob patterns of paths skipped while indexing.
	Exclude []string `toml:"exclude"`

	Log LogConfig `toml:"log"`
}

// LogConfig is the [log] table.
type LogConfig struct {
	Level string `toml:"level"`
	JSON  bool   `toml:"json"`
}

// Default returns the settings used when no file exists.
func Default() Config {
	return Config{
		DB:       filepath.Join(".bough", "index.db"),
		Parallel: true,
		Format:   "text",
		Log:      LogConfig{Level: "info"},
	}
}

// Load reads path on top of Default. Unknown keys are an error so typos do
// not go unnoticed.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Find loads root/bough.toml, or returns Default when there is none.
func Find(root string) (Config, error) {
	path := filepath.Join(root, FileName)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, err
	}
	return Load(path)
}

// Validate checks enumerated fields.
func (c Config) Validate() error {
	switch c.Format {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("format %q: want text, json or yaml", c.Format)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.MaxFileSize < 0 {
		return fmt.Errorf("max_file_size must not be negative")
	}
	for _, pat := range c.Exclude {
		if _, err := filepath.Match(pat, ""); err != nil {
			return fmt.Errorf("exclude pattern %q: %w", pat, err)
		}
	}
	return nil
}

// Excluded reports whether the slash-separated relative path matches one of
// the exclude patterns, either as a whole or by its base name.
func (c Config) Excluded(rel string) bool {
	for _, pat := range c.Exclude {
		if ok, _ := filepath.Match(pat, rel); ok {
			return true
		}
		if ok, _ := filepath.Match(pat, filepath.Base(rel)); ok {
			return true
		}
	}
	return false
}

// DBPath resolves DB against root unless it is absolute.
func (c Config) DBPath(root string) string {
	if filepath.IsAbs(c.DB) {
		return c.DB
	}
	return filepath.Join(root, c.DB)
}

// LoggerConfig converts the [log] table for the logging package.
func (c Config) LoggerConfig() logging.Config {
	level, _ := logging.ParseLevel(c.Log.Level)
	return logging.Config{Level: level, JSON: c.Log.JSON, Service: "bough"}
}
