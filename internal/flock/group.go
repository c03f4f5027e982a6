package flock

import (
	"math/rand/v2"
	"sync"
	"sync/atomic"

	"github.com/lao-tseu-is-alive/go-music-swarm/pkg/behavior"
	"github.com/lao-tseu-is-alive/go-music-swarm/pkg/geometry"
)

// Lifespan is the age past which agents of a mortal group are removed.
const Lifespan = 200

// initialSpeedComponent bounds each component of a new agent's velocity.
const initialSpeedComponent = 1.0

// GroupOptions describes one group at world construction.
type GroupOptions struct {
	Size int
	Mode Mode
	// Params, when set, is used as the template instead of Mode.
	Params   *Params
	Behavior *behavior.Node
	Mortal   bool
}

// Group owns a set of agents that share one behavior tree and one
// template. Every read scan and every structural change of the agent list
// happens under mu.
type Group struct {
	id     int
	extent geometry.Vector3D

	mu       sync.Mutex
	agents   []*Agent
	template Params
	mortal   bool
	rng      *rand.Rand

	tree atomic.Pointer[behavior.Node]
}

func newGroup(id int, extent geometry.Vector3D, rng *rand.Rand, opts GroupOptions) *Group {
	g := &Group{
		id:     id,
		extent: extent,
		mortal: opts.Mortal,
		rng:    rng,
	}
	switch {
	case opts.Params != nil:
		g.template = *opts.Params
	case opts.Mode == ModeRandom:
		g.template = RandomParams(rng)
	default:
		g.template = DefaultParams()
	}
	g.tree.Store(opts.Behavior)
	g.Resize(opts.Size)
	return g
}

func (g *Group) ID() int {
	return g.id
}

// Len returns the current number of agents.
func (g *Group) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.agents)
}

// Resize grows the group with agents at random lattice positions, or
// shrinks it by dropping the highest indices first. Negative sizes are
// treated as zero.
func (g *Group) Resize(n int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	n = max(n, 0)
	for len(g.agents) < n {
		g.spawnLocked(g.randomPosition())
	}
	if len(g.agents) > n {
		clear(g.agents[n:])
		g.agents = g.agents[:n]
	}
}

// Spawn adds one agent at position and returns its state.
func (g *Group) Spawn(position geometry.Vector3D) AgentState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.spawnLocked(position).State()
}

func (g *Group) spawnLocked(position geometry.Vector3D) *Agent {
	velocity := geometry.NewVector(
		g.uniform(initialSpeedComponent),
		g.uniform(initialSpeedComponent),
		g.uniform(initialSpeedComponent),
	)
	a := newAgent(g.id, len(g.agents), position, velocity, g.template)
	g.agents = append(g.agents, a)
	return a
}

// randomPosition picks an integer point of the world box centered on the
// origin.
func (g *Group) randomPosition() geometry.Vector3D {
	axis := func(extent float64) float64 {
		w := max(int(extent), 0)
		return float64(g.rng.IntN(w+1) - w/2)
	}
	return geometry.NewVector(axis(g.extent.X), axis(g.extent.Y), axis(g.extent.Z))
}

// uniform returns a value in [-m, m).
func (g *Group) uniform(m float64) float64 {
	return g.rng.Float64()*2*m - m
}

// RemoveExpired drops agents older than Lifespan when the group is mortal
// and returns how many were removed. The scan runs backwards and fills
// each hole with the last agent, so every agent is examined once and ids
// stay equal to indices.
func (g *Group) RemoveExpired() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.mortal {
		return 0
	}
	removed := 0
	for i := len(g.agents) - 1; i >= 0; i-- {
		if g.agents[i].age <= Lifespan {
			continue
		}
		last := len(g.agents) - 1
		g.agents[i] = g.agents[last]
		g.agents[i].id = i
		g.agents[last] = nil
		g.agents = g.agents[:last]
		removed++
	}
	return removed
}

// Behavior returns the tree shared by the group's agents. It may be nil.
func (g *Group) Behavior() *behavior.Node {
	return g.tree.Load()
}

// ReplaceBehavior swaps the shared tree for every current and future agent.
// A tick in flight uses either the old or the new tree for each agent.
func (g *Group) ReplaceBehavior(tree *behavior.Node) {
	g.tree.Store(tree)
}

// Params returns a copy of the group template.
func (g *Group) Params() Params {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.template
}

// SetParam stores v in the template and writes it, clamped, to every agent.
func (g *Group) SetParam(id behavior.ParamID, v float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.template.Set(id, v)
	for _, a := range g.agents {
		a.SetParam(id, v)
	}
}

// SetProximityThreshold updates the template and every agent.
func (g *Group) SetProximityThreshold(v float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.template.ProximityThreshold = v
	for _, a := range g.agents {
		a.SetProximityThreshold(v)
	}
}

func (g *Group) SetMortality(on bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.mortal = on
}

func (g *Group) Mortal() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mortal
}

// Agents returns a copy of every agent's state, in index order.
func (g *Group) Agents() []AgentState {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]AgentState, len(g.agents))
	for i, a := range g.agents {
		out[i] = a.State()
	}
	return out
}

// ParamValues returns the live value of id for every agent, in index order.
func (g *Group) ParamValues(id behavior.ParamID) []float64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]float64, len(g.agents))
	for i, a := range g.agents {
		out[i] = a.Param(id)
	}
	return out
}

// Statistics summarizes the group. It reports false for an empty group.
func (g *Group) Statistics() (Stats, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return computeStats(g.id, g.agents)
}
