package behavior

import "math/rand/v2"

// DefaultMaxDepth bounds the depth of generated trees.
const DefaultMaxDepth = 4

// maxBranchLength is the exclusive upper bound on steps per branch.
const maxBranchLength = 9

// GenerateOptions tunes Generate.
type GenerateOptions struct {
	// MaxDepth is the maximum number of nodes along the generated chain.
	// Zero means DefaultMaxDepth.
	MaxDepth int
	// FirstID is the id given to the root record. Zero means 1.
	FirstID int
}

// Generate produces a random definition: a chain of records where each
// record gets a child with probability 1/2 until MaxDepth is reached.
// Operands are drawn into the number banks, so the records are meaningful
// with and without DecodeOptions.UseNumberBank.
func Generate(rng *rand.Rand, opts GenerateOptions) []Record {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.FirstID == 0 {
		opts.FirstID = 1
	}

	var records []Record
	for depth := 0; ; depth++ {
		r := randomRecord(rng, depth)
		id := opts.FirstID + depth
		r.ID = &id
		records = append(records, r)
		if depth >= opts.MaxDepth-1 || rng.IntN(2) != 0 {
			break
		}
		records[depth].SubbehaviorIDs = IDList{id + 1}
	}
	return records
}

func randomRecord(rng *rand.Rand, depth int) Record {
	r := Record{
		ComparatorID:    rng.IntN(3),
		PropertyAID:     rng.IntN(NumTunable),
		PropertyBID:     rng.IntN(NumTunable),
		RandomPropertyB: rng.IntN(2) == 0,
		DepthLevel:      depth,
	}
	r.IfPropertyIDs, r.IfActionIDs, r.IfNumberBank = randomBranch(rng)
	r.ElsePropertyIDs, r.ElseActionIDs, r.ElseNumberBank = randomBranch(rng)
	for id := ParamID(0); int(id) < NumTunable; id++ {
		r.SetSnapshot(id, RandomValue(rng, id))
	}
	return r
}

func randomBranch(rng *rand.Rand) (targets, actions IDList, bank NumberList) {
	n := rng.IntN(maxBranchLength)
	targets = make(IDList, n)
	actions = make(IDList, n)
	bank = make(NumberList, n)
	for i := range n {
		targets[i] = rng.IntN(NumTunable)
		actions[i] = rng.IntN(3)
		bank[i] = RandomValue(rng, ParamID(targets[i]))
	}
	return targets, actions, bank
}

// RandomValue draws a plausible value for a tunable parameter.
// It returns 0 for ids outside the tunable range.
func RandomValue(rng *rand.Rand, id ParamID) float64 {
	switch id {
	case VelocityScale:
		return rng.Float64() / 10
	case MaxSpeed, NormalSpeed:
		return float64(rng.IntN(9) + 2)
	case NeighborRadius:
		return float64(rng.IntN(91) + 10)
	case SeparationWeight:
		return float64(rng.IntN(101))
	case AlignmentWeight, CohesionWeight, PacekeepingWeight:
		return rng.Float64()
	case RandomMotionProbability:
		return rng.Float64() / 2
	default:
		return 0
	}
}
