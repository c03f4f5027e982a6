// Package flock runs the multi-group boids simulation: agents, the groups
// that own them, and the World that advances every group one tick at a
// time.
package flock

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"

	"github.com/lao-tseu-is-alive/go-music-swarm/pkg/behavior"
	"github.com/lao-tseu-is-alive/go-music-swarm/pkg/geometry"
)

// ErrNoSuchGroup is returned for group ids outside 1..NumGroups.
var ErrNoSuchGroup = errors.New("no such group")

const (
	DefaultBoundaryThreshold = 5.0
	DefaultRandomMagnitude   = 1.0
)

// Options configures a World.
type Options struct {
	// Extent is the full width, height and depth of the box the agents
	// live in. The box is centered on the origin.
	Extent            geometry.Vector3D
	BoundaryThreshold float64
	RandomMagnitude   float64
	Wind              geometry.Vector3D
	// Seed makes spawning and random motion reproducible. Each group draws
	// from its own stream derived from Seed and its id.
	Seed   uint64
	Groups []GroupOptions

	Observer Observer
	Logger   *slog.Logger
}

// World holds every group and the settings shared by all of them.
// Group ids are 1-based; groups[0] is always nil.
type World struct {
	groups            []*Group
	extent            geometry.Vector3D
	boundaryThreshold float64
	randomMagnitude   float64
	observer          Observer
	logger            *slog.Logger

	windMu sync.RWMutex
	wind   geometry.Vector3D

	stepMu sync.Mutex
	ticks  atomic.Uint64
}

// NewWorld builds the groups described by opts and spawns their agents.
func NewWorld(opts Options) (*World, error) {
	if opts.Extent.X <= 0 || opts.Extent.Y <= 0 || opts.Extent.Z <= 0 {
		return nil, fmt.Errorf("world extent must be positive, got %v", opts.Extent)
	}
	if !opts.Wind.IsFinite() {
		return nil, fmt.Errorf("wind must be finite, got %v", opts.Wind)
	}
	if opts.Observer == nil {
		opts.Observer = NopObserver{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	w := &World{
		groups:            make([]*Group, len(opts.Groups)+1),
		extent:            opts.Extent,
		boundaryThreshold: opts.BoundaryThreshold,
		randomMagnitude:   opts.RandomMagnitude,
		observer:          opts.Observer,
		logger:            opts.Logger,
		wind:              opts.Wind,
	}
	for i, g := range opts.Groups {
		id := i + 1
		if g.Size < 0 {
			return nil, fmt.Errorf("group %d: negative size %d", id, g.Size)
		}
		rng := rand.New(rand.NewPCG(opts.Seed, uint64(id)))
		w.groups[id] = newGroup(id, opts.Extent, rng, g)
		w.logger.Debug("group created", "group", id, "size", g.Size, "mode", g.Mode)
	}
	return w, nil
}

// NumGroups returns the number of groups; valid ids are 1..NumGroups.
func (w *World) NumGroups() int {
	return len(w.groups) - 1
}

// Group returns the group with the given 1-based id.
func (w *World) Group(id int) (*Group, error) {
	if id < 1 || id >= len(w.groups) {
		return nil, fmt.Errorf("group %d: %w", id, ErrNoSuchGroup)
	}
	return w.groups[id], nil
}

// Groups returns the groups in id order.
func (w *World) Groups() []*Group {
	return w.groups[1:]
}

func (w *World) Extent() geometry.Vector3D {
	return w.extent
}

func (w *World) Wind() geometry.Vector3D {
	w.windMu.RLock()
	defer w.windMu.RUnlock()
	return w.wind
}

// SetWind changes the wind applied from the next agent update on.
func (w *World) SetWind(v geometry.Vector3D) error {
	if !v.IsFinite() {
		return fmt.Errorf("wind must be finite, got %v", v)
	}
	w.windMu.Lock()
	defer w.windMu.Unlock()
	w.wind = v
	return nil
}

// Ticks returns the number of completed calls to Step.
func (w *World) Ticks() uint64 {
	return w.ticks.Load()
}

// Step advances the simulation by one tick.
//
// Groups are visited in id order and agents in index order. Each agent is
// committed as soon as it is computed, so agents later in the tick see the
// moved positions of agents earlier in the tick. Once every group has
// moved, expired agents are removed.
func (w *World) Step() {
	w.stepMu.Lock()
	defer w.stepMu.Unlock()

	tick := w.ticks.Load() + 1
	wind := w.Wind()

	for _, g := range w.groups[1:] {
		g.mu.Lock()
		for _, a := range g.agents {
			w.advance(g, a, wind)
		}
		stats, ok := computeStats(g.id, g.agents)
		g.mu.Unlock()

		if ok {
			stats.Tick = tick
			w.observer.GroupStatistics(stats)
		}
	}

	for _, g := range w.groups[1:] {
		if n := g.RemoveExpired(); n > 0 {
			w.logger.Debug("expired agents removed", "group", g.id, "count", n, "tick", tick)
		}
	}
	w.ticks.Store(tick)
}

// advance runs one agent update. The caller holds own.mu.
func (w *World) advance(own *Group, a *Agent, wind geometry.Vector3D) {
	a.age++

	var (
		acc            geometry.Vector3D
		sumPos, sumVel geometry.Vector3D
		nOwn, nAll     int
	)
	radius := a.params[behavior.NeighborRadius]
	separation := a.params[behavior.SeparationWeight]

	for _, other := range w.groups[1:] {
		if other != own {
			other.mu.Lock()
		}
		for _, b := range other.agents {
			d := a.position.DistanceTo(b.position)
			if d <= 0 || d > radius {
				continue
			}
			acc = acc.Add(a.position.Sub(b.position).Mul(separation / (d * d)))
			nAll++
			if other == own {
				sumPos = sumPos.Add(b.position)
				sumVel = sumVel.Add(b.velocity)
				nOwn++
				w.observer.Connect(a.State(), b.State())
			}
			if d < a.proximityThreshold {
				w.observer.Proximity(a.State(), b.State())
			}
		}
		if other != own {
			other.mu.Unlock()
		}
	}
	a.params[behavior.NeighborsOwnGroup] = float64(nOwn)
	a.params[behavior.NeighborsAllGroups] = float64(nAll)

	if nOwn > 0 {
		n := float64(nOwn)
		cohesion := sumPos.Mul(1 / n).Sub(a.position).Mul(a.params[behavior.CohesionWeight])
		alignment := sumVel.Mul(1 / n).Sub(a.velocity).Mul(a.params[behavior.AlignmentWeight])
		acc = acc.Add(cohesion).Add(alignment)
	}

	if tree := own.tree.Load(); tree != nil {
		tree.Execute(a)
	}

	if own.rng.Float64() < a.params[behavior.RandomMotionProbability] {
		m := w.randomMagnitude
		acc = acc.Add(geometry.NewVector(own.uniform(m), own.uniform(m), own.uniform(m)))
	}

	a.pending = a.pending.Add(acc).Add(wind)
	a.pending = a.pending.Limit(a.params[behavior.MaxSpeed])
	a.pending = a.pending.Add(w.pacekeeping(a))
	a.pending = a.pending.Add(w.boundary(a))
	a.pending = a.pending.Mul(a.params[behavior.VelocityScale])

	a.velocity = a.pending
	a.position = a.position.Add(a.velocity)
}

// pacekeeping pulls the pending speed toward normal speed. At zero speed
// there is no direction to scale, so the correction is zero.
func (w *World) pacekeeping(a *Agent) geometry.Vector3D {
	speed := a.pending.Len()
	if speed == 0 {
		return geometry.Zero
	}
	k := (a.params[behavior.NormalSpeed] - speed) / speed * a.params[behavior.PacekeepingWeight]
	return a.pending.Mul(k)
}

// boundary pushes an agent back toward the center on each axis where it is
// within the sensing threshold of a face of the box.
func (w *World) boundary(a *Agent) geometry.Vector3D {
	push := a.params[behavior.MaxSpeed]
	axis := func(pos, extent float64) float64 {
		half := extent / 2
		switch {
		case pos < -half+w.boundaryThreshold:
			return push
		case pos > half-w.boundaryThreshold:
			return -push
		default:
			return 0
		}
	}
	return geometry.NewVector(
		axis(a.position.X, w.extent.X),
		axis(a.position.Y, w.extent.Y),
		axis(a.position.Z, w.extent.Z),
	)
}

// Statistics summarizes every non-empty group.
func (w *World) Statistics() []Stats {
	var out []Stats
	for _, g := range w.groups[1:] {
		if s, ok := g.Statistics(); ok {
			s.Tick = w.Ticks()
			out = append(out, s)
		}
	}
	return out
}
