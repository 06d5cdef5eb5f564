package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"papyrus/internal/cache"
	"papyrus/internal/config"
	"papyrus/internal/game"
	"papyrus/internal/pipeline"
)

// settings is papyrus.toml overlaid with the global flags.
type settings struct {
	cfg         config.Config
	variant     game.Variant
	useColor    bool
	ui          uiMode
	timings     bool
	maxFindings int
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to get config flag: %w", err)
	}
	if path != "" {
		return config.Load(path)
	}
	return config.Discover(".")
}

func resolveSettings(cmd *cobra.Command) (*settings, error) {
	flags := cmd.Root().PersistentFlags()
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	gameFlag, err := flags.GetString("game")
	if err != nil {
		return nil, fmt.Errorf("failed to get game flag: %w", err)
	}
	if gameFlag != "" {
		cfg.Game.Variant = gameFlag
	}
	if flags.Changed("str32") {
		if cfg.Game.Str32, err = flags.GetBool("str32"); err != nil {
			return nil, fmt.Errorf("failed to get str32 flag: %w", err)
		}
	}
	variant, err := cfg.Variant()
	if err != nil {
		return nil, err
	}

	colorFlag, err := flags.GetString("color")
	if err != nil {
		return nil, fmt.Errorf("failed to get color flag: %w", err)
	}
	useColor, err := readColorMode(colorFlag)
	if err != nil {
		return nil, err
	}
	// fatih/color is used by the pretty printers and the version banner.
	color.NoColor = !useColor

	uiFlag, err := flags.GetString("ui")
	if err != nil {
		return nil, fmt.Errorf("failed to get ui flag: %w", err)
	}
	mode, err := readUIMode(uiFlag)
	if err != nil {
		return nil, err
	}
	timings, err := flags.GetBool("timings")
	if err != nil {
		return nil, fmt.Errorf("failed to get timings flag: %w", err)
	}
	maxFindings, err := flags.GetInt("max-findings")
	if err != nil {
		return nil, fmt.Errorf("failed to get max-findings flag: %w", err)
	}

	return &settings{
		cfg:         cfg,
		variant:     variant,
		useColor:    useColor,
		ui:          mode,
		timings:     timings,
		maxFindings: maxFindings,
	}, nil
}

func readColorMode(value string) (bool, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "auto":
		return isTerminal(os.Stdout), nil
	case "on":
		return true, nil
	case "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid --color value %q (expected auto|on|off)", value)
	}
}

// openCache returns nil when caching is disabled; a nil cache is valid and
// ignores every call.
func (s *settings) openCache(enabled bool) (*cache.DiskCache, error) {
	if !enabled || !s.cfg.Cache.Enabled {
		return nil, nil
	}
	dir, err := s.cfg.CacheDir()
	if err != nil {
		return nil, err
	}
	return cache.Open(dir)
}

func (s *settings) pipelineOptions() pipeline.Options {
	return pipeline.Options{
		Variant:     s.variant,
		MaxFindings: s.maxFindings,
		Timings:     s.timings,
	}
}
