package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/profile"
	"github.com/tilesim/core/internal/component"
	"github.com/tilesim/core/internal/config"
	"github.com/tilesim/core/internal/core/ecs"
	"github.com/tilesim/core/internal/core/pool"
	coresys "github.com/tilesim/core/internal/core/system"
	"github.com/tilesim/core/internal/data"
	"github.com/tilesim/core/internal/scripting"
	"github.com/tilesim/core/internal/system"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfgPath := flag.String("config", "config/tilesim.toml", "path to the TOML config")
	profMode := flag.String("profile", "", "cpu or mem; writes a pprof file to the working directory")
	flag.Parse()

	if p := os.Getenv("TILESIM_CONFIG"); p != "" {
		*cfgPath = p
	}

	// 1. Load config
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	switch *profMode {
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	case "mem":
		defer profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	case "":
	default:
		return fmt.Errorf("unknown profile mode %q", *profMode)
	}

	// 3. Allocator and world
	mem := pool.New(cfg.PoolConfig(), log.Named("pool"))
	defer mem.Shutdown()

	world, err := ecs.NewWorld(cfg.ECS(), mem, log.Named("ecs"))
	if err != nil {
		return fmt.Errorf("create world: %w", err)
	}
	defer world.Shutdown()

	// 4. Component table: typed components first so their ids are fixed,
	// then the schema's byte components.
	comps, err := component.Register(world)
	if err != nil {
		return fmt.Errorf("register components: %w", err)
	}
	schema, err := data.LoadComponentSchema(cfg.Sim.SchemaPath)
	if err != nil {
		return fmt.Errorf("load component schema: %w", err)
	}
	if _, err := schema.Register(world); err != nil {
		return fmt.Errorf("register schema components: %w", err)
	}

	// 5. Systems, in run order
	sched := coresys.NewScheduler(world, cfg.World.MaxSystems, log.Named("scheduler"))

	vis := system.NewVisibilityCache(comps, mem, cfg.Sim.ViewRadius, log.Named("visibility"))
	defer vis.Close()
	census := system.NewCensus(world, comps, cfg.Sim.StatsEvery, log.Named("census"))

	builtin := []coresys.Descriptor{
		system.NewMovementSystem(comps, cfg.Sim.Width, cfg.Sim.Height),
		system.NewLifetimeSystem(comps),
		vis.Descriptor(),
		census.Descriptor(),
	}
	for _, d := range builtin {
		if err := sched.Register(d); err != nil {
			return fmt.Errorf("register system: %w", err)
		}
	}

	lua := scripting.NewEngine(world, log.Named("lua"))
	defer lua.Close()
	scripted, err := lua.LoadDir(cfg.Sim.ScriptsDir)
	if err != nil {
		return fmt.Errorf("load scripts: %w", err)
	}
	for _, d := range scripted {
		if err := sched.Register(d); err != nil {
			return fmt.Errorf("register script system: %w", err)
		}
	}

	// 6. Populate
	rng := rand.New(rand.NewSource(cfg.Sim.Seed))
	player, err := spawnWorld(world, comps, cfg.Sim, rng)
	if err != nil {
		return fmt.Errorf("spawn: %w", err)
	}
	vis.Follow(player)

	log.Info("simulation ready",
		zap.String("world", world.ID().String()),
		zap.Int("entities", world.Entities().Count()),
		zap.Int("components", world.Registry().Len()),
		zap.Strings("systems", sched.Systems()),
	)

	// 7. Frame loop
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var tick <-chan time.Time
	if cfg.Sim.FrameRate > 0 {
		ticker := time.NewTicker(cfg.Sim.FrameRate)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		if !sched.RunAll() {
			break
		}
		if cfg.Sim.MaxFrames > 0 && sched.Frame() >= uint64(cfg.Sim.MaxFrames) {
			break
		}
		if cfg.Sim.StatsEvery > 0 && sched.Frame()%uint64(cfg.Sim.StatsEvery) == 0 {
			mem.LogStats()
		}
		if tick == nil {
			select {
			case sig := <-sigCh:
				log.Info("signal received", zap.String("signal", sig.String()))
				world.RequestQuit()
			default:
			}
			continue
		}
		select {
		case sig := <-sigCh:
			// checked between passes only
			log.Info("signal received", zap.String("signal", sig.String()))
			world.RequestQuit()
		case <-tick:
		}
	}

	log.Info("simulation stopped",
		zap.Uint64("frames", sched.Frame()),
		zap.Int("entities", world.Entities().Count()),
		zap.Int("visible", vis.Len()),
	)
	mem.LogStats()
	if err := mem.Validate(); err != nil {
		log.Error("pool validation failed", zap.Error(err))
	}
	return nil
}

// spawnWorld creates one player in the centre and fills the rest of the
// configured population with monsters and short-lived items.
func spawnWorld(w *ecs.World, c *component.Set, sim config.SimConfig, rng *rand.Rand) (ecs.EntityID, error) {
	if sim.Spawn <= 0 {
		return ecs.Nil, nil
	}
	player, err := w.CreateEntity()
	if err != nil {
		return ecs.Nil, err
	}
	c.Position.Set(player, component.Position{X: sim.Width / 2, Y: sim.Height / 2})
	c.Velocity.Set(player, component.Velocity{DX: 1})
	c.Tag.Set(player, component.Tag{Kind: component.KindPlayer})

	flammable := w.Registry().ID("Flammable")
	for i := 1; i < sim.Spawn; i++ {
		e, err := w.CreateEntity()
		if err != nil {
			return player, err
		}
		c.Position.Set(e, component.Position{X: rng.Int31n(sim.Width), Y: rng.Int31n(sim.Height)})
		if i%4 == 0 {
			c.Tag.Set(e, component.Tag{Kind: component.KindItem})
			c.Lifetime.Set(e, component.Lifetime{Frames: 20 + rng.Int31n(200)})
			w.Add(e, flammable, []byte{1})
			continue
		}
		c.Tag.Set(e, component.Tag{Kind: component.KindMonster})
		c.Velocity.Set(e, component.Velocity{DX: rng.Int31n(3) - 1, DY: rng.Int31n(3) - 1})
	}
	return player, nil
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
