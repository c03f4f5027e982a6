// Package telemetry records what happens in a swarm: group statistics as
// CSV rows and neighbor events as log lines.
package telemetry

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/gocarina/gocsv"

	"github.com/lao-tseu-is-alive/go-music-swarm/internal/flock"
)

// Row is one group statistics report, flattened for CSV.
type Row struct {
	Tick      uint64  `csv:"tick"`
	Group     int     `csv:"group"`
	Size      int     `csv:"size"`
	MeanX     float64 `csv:"mean_x"`
	MeanY     float64 `csv:"mean_y"`
	MeanZ     float64 `csv:"mean_z"`
	MeanVX    float64 `csv:"mean_vx"`
	MeanVY    float64 `csv:"mean_vy"`
	MeanVZ    float64 `csv:"mean_vz"`
	MeanSpeed float64 `csv:"mean_speed"`
	DevX      float64 `csv:"dev_x"`
	DevY      float64 `csv:"dev_y"`
	DevZ      float64 `csv:"dev_z"`
	DevVX     float64 `csv:"dev_vx"`
	DevVY     float64 `csv:"dev_vy"`
	DevVZ     float64 `csv:"dev_vz"`
	DevSpeed  float64 `csv:"dev_speed"`
	// Events raised by agents of the group since its previous row.
	Proximity int `csv:"proximity_events"`
	Connects  int `csv:"connect_events"`
}

// NewRow flattens s.
func NewRow(s flock.Stats) Row {
	return Row{
		Tick:      s.Tick,
		Group:     s.Group,
		Size:      s.Size,
		MeanX:     s.MeanPosition.X,
		MeanY:     s.MeanPosition.Y,
		MeanZ:     s.MeanPosition.Z,
		MeanVX:    s.MeanVelocity.X,
		MeanVY:    s.MeanVelocity.Y,
		MeanVZ:    s.MeanVelocity.Z,
		MeanSpeed: s.MeanSpeed,
		DevX:      s.DevPosition.X,
		DevY:      s.DevPosition.Y,
		DevZ:      s.DevPosition.Z,
		DevVX:     s.DevVelocity.X,
		DevVY:     s.DevVelocity.Y,
		DevVZ:     s.DevVelocity.Z,
		DevSpeed:  s.DevSpeed,
	}
}

type eventCounts struct {
	proximity, connects int
}

// CSVRecorder is a flock.Observer writing one Row per statistics report.
// Observer callbacks cannot fail, so the first write error is kept and
// returned by Err and Close.
type CSVRecorder struct {
	mu            sync.Mutex
	out           io.Writer
	closer        io.Closer
	headerWritten bool
	counts        map[int]*eventCounts
	rows          int
	err           error
}

var _ flock.Observer = (*CSVRecorder)(nil)

func NewCSVRecorder(out io.Writer) *CSVRecorder {
	return &CSVRecorder{out: out, counts: make(map[int]*eventCounts)}
}

// CreateCSVRecorder creates (or truncates) the file at path, making its
// directory when needed.
func CreateCSVRecorder(path string) (*CSVRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating telemetry directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}
	r := NewCSVRecorder(f)
	r.closer = f
	return r, nil
}

func (r *CSVRecorder) count(group int) *eventCounts {
	c, ok := r.counts[group]
	if !ok {
		c = &eventCounts{}
		r.counts[group] = c
	}
	return c
}

func (r *CSVRecorder) Connect(a, _ flock.AgentState) {
	r.mu.Lock()
	r.count(a.Group).connects++
	r.mu.Unlock()
}

func (r *CSVRecorder) Proximity(a, _ flock.AgentState) {
	r.mu.Lock()
	r.count(a.Group).proximity++
	r.mu.Unlock()
}

func (r *CSVRecorder) GroupStatistics(s flock.Stats) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row := NewRow(s)
	if c, ok := r.counts[s.Group]; ok {
		row.Proximity, row.Connects = c.proximity, c.connects
		*c = eventCounts{}
	}
	if r.err != nil {
		return
	}
	if err := r.write(row); err != nil {
		r.err = err
	}
}

func (r *CSVRecorder) write(row Row) error {
	records := []Row{row}
	if !r.headerWritten {
		// First write includes headers
		if err := gocsv.Marshal(records, r.out); err != nil {
			return fmt.Errorf("writing telemetry: %w", err)
		}
		r.headerWritten = true
	} else {
		if err := gocsv.MarshalWithoutHeaders(records, r.out); err != nil {
			return fmt.Errorf("writing telemetry: %w", err)
		}
	}
	r.rows++
	return nil
}

// Rows returns the number of rows written so far.
func (r *CSVRecorder) Rows() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rows
}

func (r *CSVRecorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Close closes the underlying file when the recorder created it.
func (r *CSVRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closer != nil {
		if err := r.closer.Close(); err != nil && r.err == nil {
			r.err = fmt.Errorf("closing telemetry: %w", err)
		}
		r.closer = nil
	}
	return r.err
}

// ReadRows parses a file written by CSVRecorder.
func ReadRows(in io.Reader) ([]Row, error) {
	var rows []Row
	if err := gocsv.Unmarshal(in, &rows); err != nil {
		return nil, fmt.Errorf("reading telemetry: %w", err)
	}
	return rows, nil
}
