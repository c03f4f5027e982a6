package flock

import (
	"math"

	"github.com/lao-tseu-is-alive/go-music-swarm/pkg/behavior"
	"github.com/lao-tseu-is-alive/go-music-swarm/pkg/geometry"
)

// accessor describes how one parameter id is read and clamped.
type accessor struct {
	lo, hi float64
	// upper, when set, replaces hi with a bound that depends on the agent.
	upper func(a *Agent) float64
	// unclamped ids store any value written.
	unclamped bool
	// read, when set, replaces the stored value on live reads.
	read func(a *Agent) float64
}

// accessors is indexed by behavior.ParamID. Its length is the size of the
// enumeration, so every id has exactly one entry.
var accessors = [behavior.NumParams]accessor{
	behavior.VelocityScale:           {lo: 0, hi: 0.1},
	behavior.MaxSpeed:                {lo: 2, hi: 10},
	behavior.NormalSpeed:             {lo: 1, upper: func(a *Agent) float64 { return a.params[behavior.MaxSpeed] }},
	behavior.NeighborRadius:          {lo: 10, hi: 100},
	behavior.SeparationWeight:        {lo: 0, hi: 100},
	behavior.AlignmentWeight:         {lo: 0, hi: 1},
	behavior.CohesionWeight:          {lo: 0, hi: 1},
	behavior.PacekeepingWeight:       {lo: 0, hi: 1},
	behavior.RandomMotionProbability: {lo: 0, hi: 0.5},
	behavior.NeighborsOwnGroup:       {unclamped: true},
	behavior.NeighborsAllGroups:      {unclamped: true, read: func(*Agent) float64 { return 1 }},
}

// Range returns the clamp range of a tunable id for this agent.
func (a *Agent) Range(id behavior.ParamID) (lo, hi float64, ok bool) {
	if !id.Valid() {
		return 0, 0, false
	}
	acc := accessors[id]
	if acc.unclamped {
		return math.Inf(-1), math.Inf(1), true
	}
	hi = acc.hi
	if acc.upper != nil {
		hi = acc.upper(a)
	}
	return acc.lo, hi, true
}

// Agent is one flocking entity. Agents belong to a Group and are only
// touched while that group's lock is held.
type Agent struct {
	id    int
	group int

	position geometry.Vector3D
	velocity geometry.Vector3D
	pending  geometry.Vector3D
	age      int

	params             [behavior.NumParams]float64
	proximityThreshold float64
}

func newAgent(group, id int, position, velocity geometry.Vector3D, p Params) *Agent {
	a := &Agent{
		id:       id,
		group:    group,
		position: position,
		velocity: velocity,
		pending:  velocity,
	}
	a.apply(p)
	return a
}

// apply writes every template value through the clamp. MaxSpeed goes
// first so NormalSpeed is clamped against the new bound.
func (a *Agent) apply(p Params) {
	for id := behavior.ParamID(0); int(id) < behavior.NumTunable; id++ {
		a.SetParam(id, p.Value(id))
	}
	a.proximityThreshold = p.ProximityThreshold
}

// Param implements behavior.Target.
func (a *Agent) Param(id behavior.ParamID) float64 {
	if !id.Valid() {
		return id.Literal()
	}
	if read := accessors[id].read; read != nil {
		return read(a)
	}
	return a.params[id]
}

// SetParam implements behavior.Target. Tunable values are clamped into
// their range; NaN writes are dropped. Ids outside the enumeration are
// ignored.
func (a *Agent) SetParam(id behavior.ParamID, v float64) {
	if !id.Valid() {
		return
	}
	acc := accessors[id]
	if acc.unclamped {
		a.params[id] = v
		return
	}
	if math.IsNaN(v) {
		return
	}
	lo, hi, _ := a.Range(id)
	a.params[id] = min(max(v, lo), hi)

	if id == behavior.MaxSpeed && a.params[behavior.NormalSpeed] > a.params[behavior.MaxSpeed] {
		a.params[behavior.NormalSpeed] = a.params[behavior.MaxSpeed]
	}
}

func (a *Agent) ID() int                         { return a.id }
func (a *Agent) GroupID() int                    { return a.group }
func (a *Agent) Position() geometry.Vector3D     { return a.position }
func (a *Agent) Velocity() geometry.Vector3D     { return a.velocity }
func (a *Agent) Age() int                        { return a.age }
func (a *Agent) ProximityThreshold() float64     { return a.proximityThreshold }
func (a *Agent) NeighborsOwnGroup() int          { return int(a.params[behavior.NeighborsOwnGroup]) }
func (a *Agent) NeighborsAllGroups() int         { return int(a.params[behavior.NeighborsAllGroups]) }
func (a *Agent) SetProximityThreshold(v float64) { a.proximityThreshold = v }

// AgentState is a value copy of an agent, handed to observers.
type AgentState struct {
	Group    int               `json:"group"`
	ID       int               `json:"id"`
	Position geometry.Vector3D `json:"position"`
	Velocity geometry.Vector3D `json:"velocity"`
	Age      int               `json:"age"`
}

func (a *Agent) State() AgentState {
	return AgentState{
		Group:    a.group,
		ID:       a.id,
		Position: a.position,
		Velocity: a.velocity,
		Age:      a.age,
	}
}
