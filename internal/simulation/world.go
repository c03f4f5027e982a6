package simulation

import (
	"time"

	"github.com/tochemey/goakt/v3/actor"
	"github.com/tochemey/goakt/v3/goaktpb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/lao-tseu-is-alive/go-music-swarm/internal/control"
	"github.com/lao-tseu-is-alive/go-music-swarm/internal/flock"
)

// Snapshot is what the world actor publishes after each tick.
type Snapshot struct {
	Tick  uint64
	Stats []flock.Stats
}

// WorldActor owns the authoritative flock.World. Ticks and control commands
// arrive through its mailbox, so they are applied one at a time and in
// arrival order. Every message is answered, callers use Ask.
type WorldActor struct {
	world      *flock.World
	controller *control.Controller
	// Communication with the driver, may be nil
	snapshotCh chan<- *Snapshot

	// --- Benchmark Stats ---
	ticks       int
	commands    int
	rejected    int
	lastLogTime time.Time
}

var _ actor.Actor = (*WorldActor)(nil)

// NewWorldActor wraps w. Snapshots are offered on snapshotCh without
// blocking; a slow reader misses ticks.
func NewWorldActor(w *flock.World, snapshotCh chan<- *Snapshot, opts ...control.ControllerOption) *WorldActor {
	return &WorldActor{
		world:       w,
		controller:  control.NewController(w, opts...),
		snapshotCh:  snapshotCh,
		lastLogTime: time.Now(),
	}
}

func (w *WorldActor) PreStart(ctx *actor.Context) error {
	ctx.ActorSystem().Logger().Infof("World %s holds %d groups", ctx.ActorName(), w.world.NumGroups())
	return nil
}

func (w *WorldActor) Receive(ctx *actor.ReceiveContext) {
	switch msg := ctx.Message().(type) {
	case *goaktpb.PostStart:
		ctx.Logger().Infof("World started at tick %d", w.world.Ticks())

	case *structpb.Struct:
		cmd, err := control.CommandFromProto(msg)
		var reply control.Reply
		if err != nil {
			reply = control.Reply{Err: err}
		} else {
			reply, _ = w.controller.Apply(cmd)
		}
		w.count(cmd, reply)

		resp, err := reply.ToProto()
		if err != nil {
			ctx.Logger().Errorf("World failed to encode reply to %s: %v", cmd.Address, err)
			return
		}
		ctx.Response(resp)

		if cmd.Address == "/tick" && reply.Err == nil {
			w.logBenchmarks(ctx)
			w.pushSnapshot(reply.Tick)
		}

	default:
		ctx.Unhandled()
	}
}

func (w *WorldActor) count(cmd control.Command, reply control.Reply) {
	switch {
	case reply.Err != nil:
		w.rejected++
	case cmd.Address == "/tick":
		w.ticks++
	default:
		w.commands++
	}
}

func (w *WorldActor) logBenchmarks(ctx *actor.ReceiveContext) {
	if time.Since(w.lastLogTime) >= time.Second {
		ctx.Logger().Infof("TICK RATE: %d/sec (commands: %d, rejected: %d) | tick %d",
			w.ticks, w.commands, w.rejected, w.world.Ticks())
		w.ticks = 0
		w.commands = 0
		w.rejected = 0
		w.lastLogTime = time.Now()
	}
}

func (w *WorldActor) pushSnapshot(tick uint64) {
	if w.snapshotCh == nil {
		return
	}
	select {
	case w.snapshotCh <- &Snapshot{Tick: tick, Stats: w.world.Statistics()}:
	default:
		// driver busy, skip
	}
}

func (w *WorldActor) PostStop(ctx *actor.Context) error {
	ctx.ActorSystem().Logger().Infof("World stopped at tick %d", w.world.Ticks())
	return nil
}
