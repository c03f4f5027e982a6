package behavior

import "fmt"

// ParamID is the stable small-integer key of one agent value a behavior
// node can read or write.
type ParamID int

const (
	VelocityScale ParamID = iota
	MaxSpeed
	NormalSpeed
	NeighborRadius
	SeparationWeight
	AlignmentWeight
	CohesionWeight
	PacekeepingWeight
	RandomMotionProbability
	NeighborsOwnGroup
	// NeighborsAllGroups is writable, but a live read always yields 1.
	NeighborsAllGroups

	// NumParams is the size of the id enumeration (0..10).
	NumParams = int(NeighborsAllGroups) + 1
	// NumTunable counts the clamped motion parameters (0..8).
	NumTunable = int(RandomMotionProbability) + 1
)

var paramNames = [NumParams]string{
	"Velocity Scale",
	"Max Speed",
	"Normal Speed",
	"Neighborhood Radius",
	"Separation Weight",
	"Alignment Weight",
	"Cohesion Weight",
	"Pacekeeping Weight",
	"Random Motion Probability",
	"Num Neighbors Own Flock",
	"Num Neighbors All Flocks",
}

// Valid reports whether id belongs to the 0..10 enumeration.
// Any other id is a degenerate constant whose value is the id itself.
func (id ParamID) Valid() bool {
	return id >= 0 && int(id) < NumParams
}

// Literal is the value an out-of-range id stands for.
func (id ParamID) Literal() float64 {
	return float64(id)
}

func (id ParamID) String() string {
	if id.Valid() {
		return paramNames[id]
	}
	return fmt.Sprintf("%d", int(id))
}

// Target is the generic by-id view of an agent that a behavior tree
// evaluates against. Implementations clamp on SetParam.
type Target interface {
	Param(id ParamID) float64
	SetParam(id ParamID, v float64)
}
