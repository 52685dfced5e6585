package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tilesim.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultsAreValid(t *testing.T) {
	if err := defaults().Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[world]
max_entities = 128

[pool]
blocks_per_chunk = [8, 8, 8, 8, 4, 4, 2, 2]
max_chunks = [1, 2, 3, 4, 5, 6, 7, 8]
detect_corruption = false

[sim]
frame_rate = "250ms"
max_frames = 10
spawn = 20
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.World.MaxEntities != 128 || cfg.World.MaxSystems != 32 {
		t.Fatalf("world = %+v", cfg.World)
	}
	if cfg.Sim.FrameRate != 250*time.Millisecond || cfg.Sim.MaxFrames != 10 {
		t.Fatalf("sim = %+v", cfg.Sim)
	}
	if cfg.Logging.Format != "console" {
		t.Fatalf("logging default lost: %+v", cfg.Logging)
	}

	pc := cfg.PoolConfig()
	if pc.DetectCorruption || pc.BlocksPerChunk[7] != 2 || pc.MaxChunks[2] != 3 {
		t.Fatalf("pool config = %+v", pc)
	}
	if wc := cfg.ECS(); wc.MaxEntities != 128 || wc.MaxComponents != 32 {
		t.Fatalf("ecs config = %+v", wc)
	}
}

func TestLoadReportsEveryProblem(t *testing.T) {
	path := writeConfig(t, `
[world]
max_entities = 0
max_components = 33

[pool]
blocks_per_chunk = [1, 2]

[logging]
format = "xml"
`)
	_, err := Load(path)
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("err = %v", err)
	}
	for _, want := range []string{"max_entities", "max_components", "blocks_per_chunk", "logging.format"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q missing %s", err, want)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatal("expected error")
	}
}
