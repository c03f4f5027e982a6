package simulation

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/lao-tseu-is-alive/go-music-swarm/internal/flock"
	"github.com/lao-tseu-is-alive/go-music-swarm/internal/store"
	"github.com/lao-tseu-is-alive/go-music-swarm/pkg/behavior"
)

// GenerateEntry draws a random definition and saves it in lib as unrated.
func GenerateEntry(ctx context.Context, lib store.Store, rng *rand.Rand, name string, opts behavior.GenerateOptions) (store.Entry, []behavior.Record, error) {
	records := behavior.Generate(rng, opts)
	data, err := behavior.Encode(records)
	if err != nil {
		return store.Entry{}, nil, fmt.Errorf("encoding generated behavior: %w", err)
	}
	if name == "" {
		name = fmt.Sprintf("generated-%s", time.Now().UTC().Format("20060102-150405.000"))
	}
	e, err := lib.Save(ctx, store.Entry{Name: name, Definition: data})
	if err != nil {
		return store.Entry{}, nil, fmt.Errorf("saving generated behavior: %w", err)
	}
	return e, records, nil
}

// GenerateBehaviors gives every group that has no tree a freshly generated
// one. Each definition is recorded in lib so it can be rated afterwards.
func (c *Config) GenerateBehaviors(ctx context.Context, w *flock.World, lib store.Store, rng *rand.Rand) ([]store.Entry, error) {
	decode := behavior.DecodeOptions{UseNumberBank: c.Behavior.UseNumberBank}
	gen := behavior.GenerateOptions{MaxDepth: c.Behavior.MaxDepth}

	var saved []store.Entry
	for _, g := range w.Groups() {
		if g.Behavior() != nil {
			continue
		}
		e, records, err := GenerateEntry(ctx, lib, rng, fmt.Sprintf("group-%d-%d", g.ID(), time.Now().UnixNano()), gen)
		if err != nil {
			return saved, err
		}
		tree, err := behavior.Build(records, decode)
		if err != nil {
			return saved, fmt.Errorf("group %d: %w", g.ID(), err)
		}
		g.ReplaceBehavior(tree)
		saved = append(saved, e)
	}
	return saved, nil
}

// LoadEntry decodes a stored behavior.
func LoadEntry(ctx context.Context, lib store.Store, id string, opts behavior.DecodeOptions) (*behavior.Node, store.Entry, error) {
	e, ok, err := lib.Get(ctx, id)
	if err != nil {
		return nil, store.Entry{}, err
	}
	if !ok {
		return nil, store.Entry{}, fmt.Errorf("behavior %s not found", id)
	}
	tree, err := behavior.DecodeWithOptions(e.Definition, opts)
	if err != nil {
		return nil, e, fmt.Errorf("behavior %s: %w", id, err)
	}
	return tree, e, nil
}
