package flock

import (
	"fmt"
	"math/rand/v2"

	"github.com/lao-tseu-is-alive/go-music-swarm/pkg/behavior"
)

// Mode selects how a group picks its template parameters.
type Mode string

const (
	ModeDefault Mode = "default"
	ModeRandom  Mode = "random"
)

// ParseMode accepts "default" or "random".
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeDefault, "":
		return ModeDefault, nil
	case ModeRandom:
		return ModeRandom, nil
	default:
		return "", fmt.Errorf("unknown group mode %q", s)
	}
}

// Params is a group template: the values given to newly spawned agents.
// Values are stored as written and clamped when they reach an agent.
type Params struct {
	VelocityScale           float64 `json:"velocity_scale" yaml:"velocity_scale"`
	MaxSpeed                float64 `json:"max_speed" yaml:"max_speed"`
	NormalSpeed             float64 `json:"normal_speed" yaml:"normal_speed"`
	NeighborRadius          float64 `json:"neighbor_radius" yaml:"neighbor_radius"`
	SeparationWeight        float64 `json:"separation_weight" yaml:"separation_weight"`
	AlignmentWeight         float64 `json:"alignment_weight" yaml:"alignment_weight"`
	CohesionWeight          float64 `json:"cohesion_weight" yaml:"cohesion_weight"`
	PacekeepingWeight       float64 `json:"pacekeeping_weight" yaml:"pacekeeping_weight"`
	RandomMotionProbability float64 `json:"random_motion_probability" yaml:"random_motion_probability"`
	ProximityThreshold      float64 `json:"proximity_threshold" yaml:"proximity_threshold"`
}

// DefaultParams returns the shared defaults used by ModeDefault groups.
func DefaultParams() Params {
	return Params{
		VelocityScale:           1.0,
		MaxSpeed:                12.0,
		NormalSpeed:             10.0,
		NeighborRadius:          200.0,
		SeparationWeight:        100.0,
		AlignmentWeight:         0.5,
		CohesionWeight:          0.5,
		PacekeepingWeight:       0.5,
		RandomMotionProbability: 0.0,
		ProximityThreshold:      10.0,
	}
}

// RandomParams draws a template for ModeRandom groups. The proximity
// threshold keeps its default.
func RandomParams(rng *rand.Rand) Params {
	p := DefaultParams()
	p.VelocityScale = rng.Float64() * 0.1
	p.MaxSpeed = max(rng.Float64()*10, 2)
	p.NormalSpeed = max(rng.Float64()*p.MaxSpeed, 1)
	p.NeighborRadius = float64(rng.IntN(91) + 10)
	p.SeparationWeight = rng.Float64() * 100
	p.AlignmentWeight = rng.Float64()
	p.CohesionWeight = rng.Float64()
	p.PacekeepingWeight = rng.Float64()
	p.RandomMotionProbability = rng.Float64() / 2
	return p
}

// Value returns the template value for a tunable id, 0 otherwise.
func (p Params) Value(id behavior.ParamID) float64 {
	if f := p.field(id); f != nil {
		return *f
	}
	return 0
}

// Set stores v for a tunable id. Other ids are ignored.
func (p *Params) Set(id behavior.ParamID, v float64) {
	if f := p.field(id); f != nil {
		*f = v
	}
}

func (p *Params) field(id behavior.ParamID) *float64 {
	switch id {
	case behavior.VelocityScale:
		return &p.VelocityScale
	case behavior.MaxSpeed:
		return &p.MaxSpeed
	case behavior.NormalSpeed:
		return &p.NormalSpeed
	case behavior.NeighborRadius:
		return &p.NeighborRadius
	case behavior.SeparationWeight:
		return &p.SeparationWeight
	case behavior.AlignmentWeight:
		return &p.AlignmentWeight
	case behavior.CohesionWeight:
		return &p.CohesionWeight
	case behavior.PacekeepingWeight:
		return &p.PacekeepingWeight
	case behavior.RandomMotionProbability:
		return &p.RandomMotionProbability
	default:
		return nil
	}
}
