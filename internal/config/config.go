// Package config loads papyrus.toml, the per-directory defaults for the CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"papyrus/internal/cache"
	"papyrus/internal/game"
	"papyrus/internal/trace"
)

// FileName is the name looked up from the working directory upward.
const FileName = "papyrus.toml"

// Config mirrors papyrus.toml.
type Config struct {
	Game  GameConfig  `toml:"game"`
	Trace TraceConfig `toml:"trace"`
	Cache CacheConfig `toml:"cache"`
	Clean CleanConfig `toml:"clean"`

	// Path is the file the values came from; empty for defaults.
	Path string `toml:"-"`
}

type GameConfig struct {
	Variant string `toml:"variant"`
	Str32   bool   `toml:"str32"`
}

type TraceConfig struct {
	Level  string `toml:"level"`
	Output string `toml:"output"`
	Mode   string `toml:"mode"`
	Format string `toml:"format"`
}

type CacheConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

type CleanConfig struct {
	Unattached bool `toml:"unattached"`
	Undefined  bool `toml:"undefined"`
	Terminated bool `toml:"terminated"`
}

// Default returns the values used when no papyrus.toml is found.
func Default() Config {
	return Config{
		Game:  GameConfig{Variant: "skyrim-se"},
		Trace: TraceConfig{Level: "off", Output: "-", Mode: "stream", Format: "auto"},
		Cache: CacheConfig{Enabled: true},
		Clean: CleanConfig{Unattached: true, Undefined: true, Terminated: true},
	}
}

// Find walks up from startDir to locate papyrus.toml.
func Find(startDir string) (path string, ok bool, err error) {
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

// Load decodes path over the defaults. Keys absent from the file keep their
// default values.
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
	cfg.Path = path
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Discover finds papyrus.toml from startDir upward and loads it, or returns
// the defaults when there is none.
func Discover(startDir string) (Config, error) {
	path, ok, err := Find(startDir)
	if err != nil {
		return Config{}, err
	}
	if !ok {
		return Default(), nil
	}
	return Load(path)
}

// Validate checks the enumerated values.
func (c Config) Validate() error {
	if _, err := c.Variant(); err != nil {
		return fmt.Errorf("[game].variant: %w", err)
	}
	if _, err := trace.ParseLevel(c.Trace.Level); err != nil {
		return fmt.Errorf("[trace].level: %w", err)
	}
	if _, err := trace.ParseMode(c.Trace.Mode); err != nil {
		return fmt.Errorf("[trace].mode: %w", err)
	}
	if _, err := trace.ParseFormat(c.Trace.Format); err != nil {
		return fmt.Errorf("[trace].format: %w", err)
	}
	return nil
}

// Variant resolves [game] into an engine variant.
func (c Config) Variant() (game.Variant, error) {
	v, err := game.Parse(c.Game.Variant)
	if err != nil {
		return game.Variant{}, err
	}
	if c.Game.Str32 {
		v.Str32 = true
	}
	return v, v.Validate()
}

// CacheDir returns [cache].dir, or the per-user default when it is empty.
// Relative paths are taken from the directory holding papyrus.toml.
func (c Config) CacheDir() (string, error) {
	dir := strings.TrimSpace(c.Cache.Dir)
	if dir == "" {
		return cache.DefaultDir("papyrus")
	}
	if !filepath.IsAbs(dir) && c.Path != "" {
		dir = filepath.Join(filepath.Dir(c.Path), dir)
	}
	return dir, nil
}
