package telemetry

import (
	"context"
	"log/slog"

	"github.com/lao-tseu-is-alive/go-music-swarm/internal/flock"
)

// LogObserver logs neighbor events and statistics at debug level.
type LogObserver struct {
	logger *slog.Logger
}

var _ flock.Observer = LogObserver{}

func NewLogObserver(logger *slog.Logger) LogObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return LogObserver{logger: logger.With("component", "telemetry")}
}

func (l LogObserver) enabled() bool {
	return l.logger.Enabled(context.Background(), slog.LevelDebug)
}

func (l LogObserver) Connect(a, b flock.AgentState) {
	if !l.enabled() {
		return
	}
	l.logger.Debug("connect",
		"group", a.Group, "agent", a.ID,
		"other_group", b.Group, "other", b.ID,
	)
}

func (l LogObserver) Proximity(a, b flock.AgentState) {
	if !l.enabled() {
		return
	}
	l.logger.Debug("proximity",
		"group", a.Group, "agent", a.ID,
		"other_group", b.Group, "other", b.ID,
		"distance", a.Position.DistanceTo(b.Position),
	)
}

func (l LogObserver) GroupStatistics(s flock.Stats) {
	l.logger.Debug("group statistics",
		"tick", s.Tick,
		"group", s.Group,
		"size", s.Size,
		"mean_speed", s.MeanSpeed,
		"mean_position", s.MeanPosition.String(),
	)
}
