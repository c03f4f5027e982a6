package simulation

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/lao-tseu-is-alive/go-music-swarm/internal/flock"
	"github.com/lao-tseu-is-alive/go-music-swarm/pkg/behavior"
	"github.com/lao-tseu-is-alive/go-music-swarm/pkg/geometry"
)

// LoadBehavior reads and decodes one definition file.
func LoadBehavior(path string, opts behavior.DecodeOptions) (*behavior.Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read behavior %s: %w", path, err)
	}
	tree, err := behavior.DecodeWithOptions(data, opts)
	if err != nil {
		return nil, fmt.Errorf("behavior %s: %w", path, err)
	}
	return tree, nil
}

// WorldOptions turns the configuration into flock.Options. Behavior files
// named by groups are decoded here, so a bad definition fails the whole
// setup before any agent moves.
func (c *Config) WorldOptions(observer flock.Observer, logger *slog.Logger) (flock.Options, error) {
	decode := behavior.DecodeOptions{UseNumberBank: c.Behavior.UseNumberBank}

	groups := make([]flock.GroupOptions, len(c.Groups))
	for i, g := range c.Groups {
		mode, err := flock.ParseMode(g.Mode)
		if err != nil {
			return flock.Options{}, fmt.Errorf("group %d: %w", i+1, err)
		}
		groups[i] = flock.GroupOptions{
			Size:   g.Size,
			Mode:   mode,
			Params: g.Params,
			Mortal: g.Mortal,
		}
		if g.Behavior != "" {
			tree, err := LoadBehavior(g.Behavior, decode)
			if err != nil {
				return flock.Options{}, fmt.Errorf("group %d: %w", i+1, err)
			}
			groups[i].Behavior = tree
			logger.Debug("behavior loaded", "group", i+1, "path", g.Behavior, "nodes", tree.Size())
		}
	}

	return flock.Options{
		Extent:            geometry.NewVector(c.World.Width, c.World.Height, c.World.Depth),
		BoundaryThreshold: c.World.BoundaryThreshold,
		RandomMagnitude:   c.World.RandomMagnitude,
		Wind:              c.World.Wind,
		Seed:              c.World.Seed,
		Groups:            groups,
		Observer:          observer,
		Logger:            logger,
	}, nil
}

// NewWorld builds the world described by c.
func NewWorld(c *Config, observer flock.Observer, logger *slog.Logger) (*flock.World, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opts, err := c.WorldOptions(observer, logger)
	if err != nil {
		return nil, err
	}
	w, err := flock.NewWorld(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to build world: %w", err)
	}
	logger.Info("world ready",
		"groups", w.NumGroups(),
		"extent", w.Extent().String(),
		"seed", c.World.Seed,
	)
	return w, nil
}
