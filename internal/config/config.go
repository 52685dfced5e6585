package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/tilesim/core/internal/core/ecs"
	"github.com/tilesim/core/internal/core/pool"
	"go.uber.org/multierr"
)

var ErrInvalid = errors.New("invalid config")

type Config struct {
	World   WorldConfig   `toml:"world"`
	Pool    PoolConfig    `toml:"pool"`
	Sim     SimConfig     `toml:"sim"`
	Logging LoggingConfig `toml:"logging"`
}

// WorldConfig holds the fixed ECS capacities, validated once at startup.
type WorldConfig struct {
	MaxEntities   int `toml:"max_entities"`
	MaxComponents int `toml:"max_components"` // at most 32
	MaxSystems    int `toml:"max_systems"`
}

// PoolConfig lists one value per size class (16 .. 2048 bytes).
type PoolConfig struct {
	BlocksPerChunk   []int `toml:"blocks_per_chunk"`
	MaxChunks        []int `toml:"max_chunks"`
	DetectCorruption bool  `toml:"detect_corruption"`
}

type SimConfig struct {
	Width      int32         `toml:"width"`
	Height     int32         `toml:"height"`
	Spawn      int           `toml:"spawn"`
	ViewRadius int32         `toml:"view_radius"`
	FrameRate  time.Duration `toml:"frame_rate"`
	MaxFrames  int           `toml:"max_frames"` // 0 = run until quit
	StatsEvery int           `toml:"stats_every"`
	SchemaPath string        `toml:"schema_path"`
	ScriptsDir string        `toml:"scripts_dir"`
	Seed       int64         `toml:"seed"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports every out-of-range value at once.
func (c *Config) Validate() error {
	var err error
	bad := func(format string, args ...any) {
		err = multierr.Append(err, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if c.World.MaxEntities <= 0 || c.World.MaxEntities > ecs.MaxEntities {
		bad("world.max_entities %d not in (0, %d]", c.World.MaxEntities, ecs.MaxEntities)
	}
	if c.World.MaxComponents <= 0 || c.World.MaxComponents > ecs.MaxComponents {
		bad("world.max_components %d not in (0, %d]", c.World.MaxComponents, ecs.MaxComponents)
	}
	if c.World.MaxSystems <= 0 {
		bad("world.max_systems %d must be positive", c.World.MaxSystems)
	}

	if n := len(c.Pool.BlocksPerChunk); n != 0 && n != pool.NumClasses {
		bad("pool.blocks_per_chunk has %d entries, want %d", n, pool.NumClasses)
	}
	if n := len(c.Pool.MaxChunks); n != 0 && n != pool.NumClasses {
		bad("pool.max_chunks has %d entries, want %d", n, pool.NumClasses)
	}
	for i, v := range c.Pool.BlocksPerChunk {
		if v <= 0 {
			bad("pool.blocks_per_chunk[%d] = %d must be positive", i, v)
		}
	}
	for i, v := range c.Pool.MaxChunks {
		if v < 0 {
			bad("pool.max_chunks[%d] = %d must not be negative", i, v)
		}
	}

	if c.Sim.Width <= 0 || c.Sim.Height <= 0 {
		bad("sim map %dx%d must be positive", c.Sim.Width, c.Sim.Height)
	}
	if c.Sim.Spawn < 0 || c.Sim.Spawn > c.World.MaxEntities {
		bad("sim.spawn %d not in [0, max_entities]", c.Sim.Spawn)
	}
	if c.Sim.FrameRate < 0 {
		bad("sim.frame_rate %s must not be negative", c.Sim.FrameRate)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		bad("logging.format %q must be json or console", c.Logging.Format)
	}
	return err
}

// ECS converts the world section for ecs.NewWorld.
func (c *Config) ECS() ecs.WorldConfig {
	return ecs.WorldConfig{
		MaxEntities:   c.World.MaxEntities,
		MaxComponents: c.World.MaxComponents,
	}
}

// PoolConfig converts the pool section for pool.New; missing entries keep
// the stock values.
func (c *Config) PoolConfig() pool.Config {
	pc := pool.DefaultConfig()
	copy(pc.BlocksPerChunk[:], c.Pool.BlocksPerChunk)
	copy(pc.MaxChunks[:], c.Pool.MaxChunks)
	pc.DetectCorruption = c.Pool.DetectCorruption
	return pc
}

func defaults() *Config {
	return &Config{
		World: WorldConfig{
			MaxEntities:   4096,
			MaxComponents: ecs.MaxComponents,
			MaxSystems:    32,
		},
		Pool: PoolConfig{
			DetectCorruption: true,
		},
		Sim: SimConfig{
			Width:      80,
			Height:     50,
			Spawn:      200,
			ViewRadius: 8,
			FrameRate:  100 * time.Millisecond,
			MaxFrames:  0,
			StatsEvery: 100,
			SchemaPath: "data/yaml/components.yaml",
			ScriptsDir: "scripts",
			Seed:       1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
