// Package config loads service and experiment configuration: embedded YAML
// defaults, an optional user overlay, then environment secrets.
package config

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/talgya/tribe-world/internal/engine"
	"github.com/talgya/tribe-world/internal/experiment"
	"github.com/talgya/tribe-world/internal/social"
	"github.com/talgya/tribe-world/internal/world"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// AdminKeyEnv names the environment variable holding the admin bearer token.
const AdminKeyEnv = "WORLDSIM_ADMIN_KEY"

// Config holds all configuration parameters.
type Config struct {
	LogLevel    string            `yaml:"log_level"`
	World       WorldConfig       `yaml:"world"`
	Simulation  SimulationConfig  `yaml:"simulation"`
	Persistence PersistenceConfig `yaml:"persistence"`
	API         APIConfig         `yaml:"api"`
	Experiment  ExperimentConfig  `yaml:"experiment"`
	Policy      social.Policy     `yaml:"policy"`

	// AdminKey comes from the environment only.
	AdminKey string `yaml:"-"`
}

// WorldConfig holds world generation settings.
type WorldConfig struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Seed   string `yaml:"seed"`
	Noise  string `yaml:"noise"`
}

// SimulationConfig holds tick loop settings.
type SimulationConfig struct {
	InitialAgents      int           `yaml:"initial_agents"`
	TickInterval       time.Duration `yaml:"tick_interval"`
	Speed              float64       `yaml:"speed"`
	AutosaveEveryTicks uint64        `yaml:"autosave_every_ticks"`
	MaxTicks           uint64        `yaml:"max_ticks"`
}

// PersistenceConfig holds storage locations.
type PersistenceConfig struct {
	DBPath        string `yaml:"db_path"`
	SnapshotDir   string `yaml:"snapshot_dir"`
	KeepSnapshots int    `yaml:"keep_snapshots"`
}

// APIConfig holds HTTP server settings.
type APIConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// ExperimentConfig holds batch experiment settings.
type ExperimentConfig struct {
	Runs        int    `yaml:"runs"`
	TicksPerRun int    `yaml:"ticks_per_run"`
	WorldSize   int    `yaml:"world_size"`
	BaseSeed    string `yaml:"base_seed"`
	Parallelism int    `yaml:"parallelism"`
}

// Load reads the embedded defaults, then overlays the file at path when path
// is non-empty. Fields absent from the file keep their defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{Policy: social.DefaultPolicy()}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	cfg.AdminKey = os.Getenv(AdminKeyEnv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the simulation cannot run with.
func (c *Config) Validate() error {
	if c.World.Width < 2 || c.World.Height < 2 {
		return fmt.Errorf("config: world must be at least 2x2, got %dx%d", c.World.Width, c.World.Height)
	}
	switch world.NoiseKind(c.World.Noise) {
	case world.NoiseValue, world.NoiseSimplex:
	default:
		return fmt.Errorf("config: unknown noise %q (want value or simplex)", c.World.Noise)
	}
	if c.Simulation.TickInterval <= 0 {
		return fmt.Errorf("config: tick_interval must be positive")
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.API.Enabled && (c.API.Port <= 0 || c.API.Port > 65535) {
		return fmt.Errorf("config: api port %d out of range", c.API.Port)
	}
	return nil
}

// SlogLevel returns the configured log level.
func (c *Config) SlogLevel() slog.Level {
	lvl, _ := parseLevel(c.LogLevel)
	return lvl
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("config: unknown log_level %q", s)
}

// GenConfig returns the world generation settings.
func (c *Config) GenConfig() world.GenConfig {
	return world.GenConfig{
		Width:  c.World.Width,
		Height: c.World.Height,
		Seed:   c.World.Seed,
		Noise:  world.NoiseKind(c.World.Noise),
	}
}

// SimConfig returns the settings for a new simulation.
func (c *Config) SimConfig() engine.Config {
	return engine.Config{
		World:         c.GenConfig(),
		InitialAgents: c.Simulation.InitialAgents,
		Policy:        c.Policy,
	}
}

// BatchConfig returns the experiment batch settings.
func (c *Config) BatchConfig() experiment.Config {
	return experiment.Config{
		Runs:          c.Experiment.Runs,
		TicksPerRun:   c.Experiment.TicksPerRun,
		WorldSize:     c.Experiment.WorldSize,
		BaseSeed:      c.Experiment.BaseSeed,
		Parallelism:   c.Experiment.Parallelism,
		InitialAgents: c.Simulation.InitialAgents,
		Noise:         world.NoiseKind(c.World.Noise),
		Policy:        c.Policy,
	}
}

// WriteYAML saves the effective configuration, without secrets.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
