// Package config loads the TOML-backed run configuration for the
// simulator CLI, grounded on the retrieval pack's TOML-based config
// pattern (lookbusy1344-arm_emulator) rather than the teacher, which only
// has plain CLI flags.
package config

import (
	"os"

	"github.com/BurntSushi/toml"
)

// Config holds every run-time toggle spec.md exposes as a design choice:
// cache/pipelining enablement, the source file to assemble, and a fixed
// breakpoint list to install before running.
type Config struct {
	CacheEnabled bool     `toml:"cache_enabled"`
	Pipelining   bool     `toml:"pipelining"`
	SourcePath   string   `toml:"source_path"`
	Breakpoints  []uint32 `toml:"breakpoints"`
	MaxSteps     uint64   `toml:"max_steps"`
}

// Default returns the configuration the CLI falls back to when no config
// file is given: cache and pipelining both on, unbounded run.
func Default() Config {
	return Config{CacheEnabled: true, Pipelining: true}
}

// Load reads and parses a TOML config file at path, starting from
// Default() so an omitted field keeps its default value.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
