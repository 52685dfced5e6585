package main

import (
	"math/rand"
	"testing"

	"github.com/tilesim/core/internal/component"
	"github.com/tilesim/core/internal/config"
	"github.com/tilesim/core/internal/core/ecs"
	"github.com/tilesim/core/internal/core/pool"
	"go.uber.org/zap"
)

func TestSpawnWorld(t *testing.T) {
	p := pool.New(pool.DefaultConfig(), zap.NewNop())
	w, err := ecs.NewWorld(ecs.WorldConfig{MaxEntities: 64, MaxComponents: 8}, p, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	c, err := component.Register(w)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.RegisterComponent("Flammable", 1); err != nil {
		t.Fatal(err)
	}

	sim := config.SimConfig{Width: 20, Height: 10, Spawn: 9}
	player, err := spawnWorld(w, c, sim, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatal(err)
	}
	if got := w.Entities().Count(); got != 9 {
		t.Fatalf("spawned %d entities, want 9", got)
	}
	if tag, _ := c.Tag.Get(player); tag.Kind != component.KindPlayer {
		t.Fatalf("player tag = %d", tag.Kind)
	}
	if pos, _ := c.Position.Get(player); pos != (component.Position{X: 10, Y: 5}) {
		t.Fatalf("player at %+v", pos)
	}

	items := 0
	w.Each(c.Lifetime.Mask(), func(e ecs.EntityID) {
		items++
		if !w.HasByName(e, "flammable") {
			t.Fatalf("item %d not flammable", e.Index())
		}
	})
	if items != 2 {
		t.Fatalf("items = %d, want 2", items)
	}
}

func TestSpawnWorldEmpty(t *testing.T) {
	p := pool.New(pool.DefaultConfig(), zap.NewNop())
	w, err := ecs.NewWorld(ecs.WorldConfig{MaxEntities: 4, MaxComponents: 8}, p, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	c, err := component.Register(w)
	if err != nil {
		t.Fatal(err)
	}
	player, err := spawnWorld(w, c, config.SimConfig{Width: 4, Height: 4}, rand.New(rand.NewSource(1)))
	if err != nil || !player.IsNil() || w.Entities().Count() != 0 {
		t.Fatalf("spawn 0: player=%v err=%v count=%d", player, err, w.Entities().Count())
	}
}

func TestNewLoggerFormats(t *testing.T) {
	for _, format := range []string{"console", "json"} {
		log, err := newLogger(config.LoggingConfig{Level: "debug", Format: format})
		if err != nil {
			t.Fatalf("%s: %v", format, err)
		}
		if !log.Core().Enabled(zap.DebugLevel) {
			t.Fatalf("%s: debug not enabled", format)
		}
	}
	log, err := newLogger(config.LoggingConfig{Level: "nonsense", Format: "console"})
	if err != nil {
		t.Fatal(err)
	}
	if log.Core().Enabled(zap.DebugLevel) {
		t.Fatal("unknown level should fall back to info")
	}
}
