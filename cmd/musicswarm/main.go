package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/tochemey/goakt/v3/actor"
	golog "github.com/tochemey/goakt/v3/log"

	"github.com/lao-tseu-is-alive/go-music-swarm/internal/control"
	"github.com/lao-tseu-is-alive/go-music-swarm/internal/flock"
	"github.com/lao-tseu-is-alive/go-music-swarm/internal/simulation"
	"github.com/lao-tseu-is-alive/go-music-swarm/internal/store"
	"github.com/lao-tseu-is-alive/go-music-swarm/internal/telemetry"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml or config.json (empty = use defaults)")
	logFormat := flag.String("log-format", "text", "Log format: text or json")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn or error")
	maxTicks := flag.Int("max-ticks", -1, "Stop after N ticks (0 = unlimited, -1 = use config)")
	seed := flag.Uint64("seed", 0, "RNG seed (0 = use config, then time-based)")
	scriptPath := flag.String("script", "", "JSON-lines file of scheduled control commands")
	writeConfig := flag.String("write-config", "", "Write the effective config as YAML to this path")
	generate := flag.Bool("generate", false, "Give groups without a behavior file a generated one")
	flag.Parse()

	logger, err := newLogger(*logFormat, *logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	slog.SetDefault(logger)

	if err := run(logger, options{
		configPath:  *configPath,
		maxTicks:    *maxTicks,
		seed:        *seed,
		scriptPath:  *scriptPath,
		writeConfig: *writeConfig,
		generate:    *generate,
		debugActors: *logLevel == "debug",
	}); err != nil {
		logger.Error("swarm failed", "error", err)
		os.Exit(1)
	}
}

type options struct {
	configPath  string
	maxTicks    int
	seed        uint64
	scriptPath  string
	writeConfig string
	generate    bool
	debugActors bool
}

func newLogger(format, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid -log-level %q: %w", level, err)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "text":
		return slog.New(slog.NewTextHandler(os.Stderr, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(os.Stdout, opts)), nil
	default:
		return nil, fmt.Errorf("invalid -log-format %q", format)
	}
}

func run(logger *slog.Logger, opts options) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Configuration
	cfg := simulation.DefaultConfig()
	if opts.configPath != "" {
		loaded, err := simulation.LoadConfig(opts.configPath, "")
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if opts.maxTicks >= 0 {
		cfg.Run.MaxTicks = opts.maxTicks
	}
	if opts.seed != 0 {
		cfg.World.Seed = opts.seed
	}
	if cfg.World.Seed == 0 {
		cfg.World.Seed = uint64(time.Now().UnixNano())
	}
	if opts.writeConfig != "" {
		if err := os.MkdirAll(filepath.Dir(opts.writeConfig), 0755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
		if err := cfg.WriteYAML(opts.writeConfig); err != nil {
			return err
		}
	}

	// 2. Telemetry
	observers := flock.MultiObserver{}
	if cfg.Telemetry.CSVPath != "" {
		rec, err := telemetry.CreateCSVRecorder(cfg.Telemetry.CSVPath)
		if err != nil {
			return err
		}
		defer func() {
			if err := rec.Close(); err != nil {
				logger.Error("telemetry", "error", err)
			} else {
				logger.Info("telemetry written", "path", cfg.Telemetry.CSVPath, "rows", rec.Rows())
			}
		}()
		observers = append(observers, rec)
	}
	if cfg.Telemetry.LogEvents {
		observers = append(observers, telemetry.NewLogObserver(logger))
	}

	// 3. World and behaviors
	w, err := simulation.NewWorld(cfg, observers, logger)
	if err != nil {
		return err
	}
	if opts.generate {
		lib, err := store.NewStore(cfg.Store.Kind, cfg.Store.Path)
		if err != nil {
			return err
		}
		if err := lib.Init(ctx); err != nil {
			return fmt.Errorf("opening behavior library: %w", err)
		}
		defer lib.Close()
		rng := rand.New(rand.NewPCG(cfg.World.Seed, uint64(len(cfg.Groups))))
		saved, err := cfg.GenerateBehaviors(ctx, w, lib, rng)
		if err != nil {
			return err
		}
		for _, e := range saved {
			logger.Info("generated behavior", "id", e.ID, "name", e.Name)
		}
	}

	var script []control.ScriptEntry
	if opts.scriptPath != "" {
		f, err := os.Open(opts.scriptPath)
		if err != nil {
			return fmt.Errorf("opening script: %w", err)
		}
		script, err = control.ReadScript(f)
		f.Close()
		if err != nil {
			return err
		}
	}

	// 4. Actors
	var actorLogger golog.Logger = golog.DiscardLogger
	if opts.debugActors {
		actorLogger = golog.DefaultLogger
	}
	system, err := actor.NewActorSystem("MusicSwarm",
		actor.WithLogger(actorLogger),
		actor.WithActorInitMaxRetries(3))
	if err != nil {
		return fmt.Errorf("creating actor system: %w", err)
	}
	if err := system.Start(ctx); err != nil {
		return fmt.Errorf("starting actor system: %w", err)
	}
	defer func() { _ = system.Stop(context.Background()) }()

	game, err := simulation.GetNewGame(ctx, cfg, system, w, script, logger)
	if err != nil {
		return err
	}
	if err := game.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}

	for _, s := range w.Statistics() {
		logger.Info("final group",
			"group", s.Group,
			"size", s.Size,
			"mean_speed", s.MeanSpeed,
			"mean_position", s.MeanPosition.String(),
		)
	}
	return nil
}
