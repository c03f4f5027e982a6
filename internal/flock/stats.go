package flock

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/lao-tseu-is-alive/go-music-swarm/pkg/geometry"
)

// Stats summarizes one group after it has been advanced.
type Stats struct {
	Tick  uint64 `json:"tick"`
	Group int    `json:"group"`
	Size  int    `json:"size"`

	MeanPosition geometry.Vector3D `json:"mean_position"`
	MeanVelocity geometry.Vector3D `json:"mean_velocity"`
	MeanSpeed    float64           `json:"mean_speed"`

	// Mean absolute deviations from the means above.
	DevPosition geometry.Vector3D `json:"dev_position"`
	DevVelocity geometry.Vector3D `json:"dev_velocity"`
	DevSpeed    float64           `json:"dev_speed"`
}

const (
	colPX = iota
	colPY
	colPZ
	colVX
	colVY
	colVZ
	colSpeed
	numCols
)

func computeStats(group int, agents []*Agent) (Stats, bool) {
	if len(agents) == 0 {
		return Stats{Group: group}, false
	}

	var cols [numCols][]float64
	for c := range cols {
		cols[c] = make([]float64, len(agents))
	}
	for i, a := range agents {
		cols[colPX][i] = a.position.X
		cols[colPY][i] = a.position.Y
		cols[colPZ][i] = a.position.Z
		cols[colVX][i] = a.velocity.X
		cols[colVY][i] = a.velocity.Y
		cols[colVZ][i] = a.velocity.Z
		cols[colSpeed][i] = a.velocity.Len()
	}

	var mean, dev [numCols]float64
	for c := range cols {
		mean[c] = stat.Mean(cols[c], nil)
		dev[c] = meanAbsDeviation(cols[c], mean[c])
	}

	return Stats{
		Group:        group,
		Size:         len(agents),
		MeanPosition: geometry.NewVector(mean[colPX], mean[colPY], mean[colPZ]),
		MeanVelocity: geometry.NewVector(mean[colVX], mean[colVY], mean[colVZ]),
		MeanSpeed:    mean[colSpeed],
		DevPosition:  geometry.NewVector(dev[colPX], dev[colPY], dev[colPZ]),
		DevVelocity:  geometry.NewVector(dev[colVX], dev[colVY], dev[colVZ]),
		DevSpeed:     dev[colSpeed],
	}, true
}

func meanAbsDeviation(xs []float64, mean float64) float64 {
	d := make([]float64, len(xs))
	for i, x := range xs {
		d[i] = math.Abs(x - mean)
	}
	return stat.Mean(d, nil)
}
