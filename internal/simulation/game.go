package simulation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tochemey/goakt/v3/actor"

	"github.com/lao-tseu-is-alive/go-music-swarm/internal/control"
	"github.com/lao-tseu-is-alive/go-music-swarm/internal/flock"
	"github.com/lao-tseu-is-alive/go-music-swarm/pkg/behavior"
)

// Game drives a world actor: it sends one tick per frame, replays a command
// script at the scheduled ticks and keeps the latest snapshot.
type Game struct {
	System   actor.ActorSystem
	ctx      context.Context
	worldPID *actor.PID
	client   *control.Client
	world    *flock.World
	logger   *slog.Logger

	snapshotCh   chan *Snapshot
	lastSnapshot *Snapshot

	script []control.ScriptEntry
	// next is the first script entry not yet sent.
	next int

	interval time.Duration
	maxTicks uint64
}

// GetNewGame spawns the world actor inside system.
func GetNewGame(ctx context.Context, cfg *Config, system actor.ActorSystem, w *flock.World, script []control.ScriptEntry, logger *slog.Logger) (*Game, error) {
	if logger == nil {
		logger = slog.Default()
	}
	// 1. Create Channels for communication
	snapshotCh := make(chan *Snapshot, 10) // Buffer to avoid blocking

	// 2. Spawn World Actor
	worldActor := NewWorldActor(w, snapshotCh,
		control.WithDecodeOptions(behavior.DecodeOptions{UseNumberBank: cfg.Behavior.UseNumberBank}),
		control.WithLogger(logger),
	)
	worldPID, err := system.Spawn(ctx, "world", worldActor)
	if err != nil {
		return nil, fmt.Errorf("failed to spawn world: %w", err)
	}

	return &Game{
		System:       system,
		ctx:          ctx,
		worldPID:     worldPID,
		client:       control.NewClient(worldPID, control.DefaultAskTimeout),
		world:        w,
		logger:       logger,
		snapshotCh:   snapshotCh,
		lastSnapshot: &Snapshot{}, // Avoid nil pointer
		script:       script,
		interval:     time.Duration(cfg.Run.TickIntervalMs) * time.Millisecond,
		maxTicks:     uint64(cfg.Run.MaxTicks),
	}, nil
}

// Update sends the script commands that are due and then advances the world
// by one tick. Rejected script commands are logged and skipped.
func (g *Game) Update() error {
	for g.next < len(g.script) && g.script[g.next].At <= g.world.Ticks() {
		entry := g.script[g.next]
		g.next++
		if _, err := g.client.Do(g.ctx, entry.Command); err != nil {
			g.logger.Warn("script command failed", "at", entry.At, "command", entry.Command.String(), "error", err)
		}
	}

	if _, err := g.client.Tick(g.ctx); err != nil {
		return err
	}

	// Drain Channel
Loop:
	for {
		select {
		case s := <-g.snapshotCh:
			g.lastSnapshot = s
		default:
			break Loop
		}
	}
	return nil
}

// Done reports whether the configured number of ticks has been reached.
func (g *Game) Done() bool {
	return g.maxTicks > 0 && g.world.Ticks() >= g.maxTicks
}

// Run calls Update at the configured interval until Done or until the
// context ends. A zero interval runs as fast as the world steps.
func (g *Game) Run(ctx context.Context) error {
	g.logger.Info("starting simulation",
		"interval", g.interval,
		"max_ticks", g.maxTicks,
		"script_commands", len(g.script),
	)

	var tick <-chan time.Time
	if g.interval > 0 {
		ticker := time.NewTicker(g.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for !g.Done() {
		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}
		if err := g.Update(); err != nil {
			return fmt.Errorf("tick %d: %w", g.world.Ticks()+1, err)
		}
	}
	g.logger.Info("max ticks reached", "tick", g.world.Ticks())
	return nil
}

// Do forwards one command to the world actor.
func (g *Game) Do(cmd control.Command) (control.Reply, error) {
	return g.client.Do(g.ctx, cmd)
}

// LastSnapshot returns the most recent snapshot received, possibly empty.
func (g *Game) LastSnapshot() *Snapshot {
	return g.lastSnapshot
}

func (g *Game) World() *flock.World {
	return g.world
}
