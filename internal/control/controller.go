package control

import (
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/lao-tseu-is-alive/go-music-swarm/internal/flock"
	"github.com/lao-tseu-is-alive/go-music-swarm/pkg/behavior"
	"github.com/lao-tseu-is-alive/go-music-swarm/pkg/geometry"
)

// Controller applies commands to a world. Every handler checks all of its
// arguments before touching the world, so a rejected command changes
// nothing.
type Controller struct {
	world  *flock.World
	decode behavior.DecodeOptions
	logger *slog.Logger
	routes map[string]route
}

type route struct {
	// minArgs..maxArgs is the accepted arity.
	minArgs, maxArgs int
	handle           func(c *Controller, cmd Command) (Reply, error)
}

type ControllerOption func(*Controller)

// WithDecodeOptions sets how /behavior payloads are decoded.
func WithDecodeOptions(opts behavior.DecodeOptions) ControllerOption {
	return func(c *Controller) { c.decode = opts }
}

func WithLogger(l *slog.Logger) ControllerOption {
	return func(c *Controller) { c.logger = l }
}

// paramAddresses maps per-group setters to the parameter they write.
var paramAddresses = map[string]behavior.ParamID{
	"/velocity":     behavior.VelocityScale,
	"/maxSpeed":     behavior.MaxSpeed,
	"/normalSpeed":  behavior.NormalSpeed,
	"/neighbordist": behavior.NeighborRadius,
	"/sepwt":        behavior.SeparationWeight,
	"/algwt":        behavior.AlignmentWeight,
	"/cohwt":        behavior.CohesionWeight,
	"/pacewt":       behavior.PacekeepingWeight,
	"/randmotprob":  behavior.RandomMotionProbability,
}

func NewController(w *flock.World, opts ...ControllerOption) *Controller {
	c := &Controller{
		world:  w,
		logger: slog.Default(),
		routes: map[string]route{
			"/flockSize":     {2, 2, (*Controller).flockSize},
			"/proxThresh":    {2, 2, (*Controller).proximityThreshold},
			"/mortality":     {2, 2, (*Controller).mortality},
			"/windVector":    {3, 4, (*Controller).windVector},
			"/newBoidSource": {4, 5, (*Controller).newBoidSource},
			"/behavior":      {1, 1, (*Controller).replaceBehavior},
			"/stats":         {0, 0, (*Controller).stats},
			"/tick":          {0, 0, (*Controller).tick},
		},
	}
	for addr := range paramAddresses {
		c.routes[addr] = route{2, 2, (*Controller).setParam}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Addresses lists every address the controller understands.
func (c *Controller) Addresses() []string {
	out := make([]string, 0, len(c.routes))
	for addr := range c.routes {
		out = append(out, addr)
	}
	sort.Strings(out)
	return out
}

// Apply runs cmd against the world. The returned Reply always names the
// address; its Err mirrors the returned error.
func (c *Controller) Apply(cmd Command) (Reply, error) {
	r, ok := c.routes[cmd.Address]
	if !ok {
		return c.fail(cmd, fmt.Errorf("%w: %q", ErrUnknownAddress, cmd.Address))
	}
	if n := len(cmd.Args); n < r.minArgs || n > r.maxArgs {
		return c.fail(cmd, fmt.Errorf("%w: %s takes %s arguments, got %d",
			ErrBadArguments, cmd.Address, arity(r.minArgs, r.maxArgs), n))
	}
	for i, a := range cmd.Args {
		if math.IsNaN(a) || math.IsInf(a, 0) {
			return c.fail(cmd, fmt.Errorf("%w: %s argument %d is %v", ErrBadArguments, cmd.Address, i, a))
		}
	}
	reply, err := r.handle(c, cmd)
	if err != nil {
		return c.fail(cmd, err)
	}
	reply.Address = cmd.Address
	c.logger.Debug("command applied", "command", cmd.String())
	return reply, nil
}

func (c *Controller) fail(cmd Command, err error) (Reply, error) {
	c.logger.Warn("command rejected", "address", cmd.Address, "error", err)
	return Reply{Address: cmd.Address, Err: err}, err
}

func arity(lo, hi int) string {
	if lo == hi {
		return fmt.Sprint(lo)
	}
	return fmt.Sprintf("%d to %d", lo, hi)
}

// group resolves a 1-based group argument.
func (c *Controller) group(v float64) (*flock.Group, error) {
	if v != math.Trunc(v) {
		return nil, fmt.Errorf("%w: group id %g is not an integer", ErrBadArguments, v)
	}
	return c.world.Group(int(v))
}

func (c *Controller) setParam(cmd Command) (Reply, error) {
	g, err := c.group(cmd.Args[1])
	if err != nil {
		return Reply{}, err
	}
	g.SetParam(paramAddresses[cmd.Address], cmd.Args[0])
	return Reply{}, nil
}

func (c *Controller) flockSize(cmd Command) (Reply, error) {
	n := cmd.Args[0]
	if n < 0 || n != math.Trunc(n) {
		return Reply{}, fmt.Errorf("%w: flock size %g", ErrBadArguments, n)
	}
	g, err := c.group(cmd.Args[1])
	if err != nil {
		return Reply{}, err
	}
	g.Resize(int(n))
	return Reply{}, nil
}

func (c *Controller) proximityThreshold(cmd Command) (Reply, error) {
	if cmd.Args[0] < 0 {
		return Reply{}, fmt.Errorf("%w: negative proximity threshold %g", ErrBadArguments, cmd.Args[0])
	}
	g, err := c.group(cmd.Args[1])
	if err != nil {
		return Reply{}, err
	}
	g.SetProximityThreshold(cmd.Args[0])
	return Reply{}, nil
}

func (c *Controller) mortality(cmd Command) (Reply, error) {
	on := cmd.Args[0]
	if on != 0 && on != 1 {
		return Reply{}, fmt.Errorf("%w: mortality must be 0 or 1, got %g", ErrBadArguments, on)
	}
	g, err := c.group(cmd.Args[1])
	if err != nil {
		return Reply{}, err
	}
	g.SetMortality(on == 1)
	return Reply{}, nil
}

// windVector sets the world wind. The optional group argument is accepted
// for compatibility and must name an existing group, but wind is shared.
func (c *Controller) windVector(cmd Command) (Reply, error) {
	if len(cmd.Args) == 4 {
		if _, err := c.group(cmd.Args[3]); err != nil {
			return Reply{}, err
		}
	}
	return Reply{}, c.world.SetWind(geometry.NewVector(cmd.Args[0], cmd.Args[1], cmd.Args[2]))
}

func (c *Controller) newBoidSource(cmd Command) (Reply, error) {
	g, err := c.group(cmd.Args[3])
	if err != nil {
		return Reply{}, err
	}
	g.Spawn(geometry.NewVector(cmd.Args[0], cmd.Args[1], cmd.Args[2]))
	return Reply{}, nil
}

// replaceBehavior replaces the tree of a group with the definition in the
// payload. An empty payload removes the tree.
func (c *Controller) replaceBehavior(cmd Command) (Reply, error) {
	g, err := c.group(cmd.Args[0])
	if err != nil {
		return Reply{}, err
	}
	if cmd.Payload == "" {
		g.ReplaceBehavior(nil)
		return Reply{}, nil
	}
	tree, err := behavior.DecodeWithOptions([]byte(cmd.Payload), c.decode)
	if err != nil {
		return Reply{}, err
	}
	g.ReplaceBehavior(tree)
	c.logger.Debug("behavior replaced", "group", g.ID(), "tree", tree.String())
	return Reply{}, nil
}

func (c *Controller) stats(Command) (Reply, error) {
	return c.snapshot(), nil
}

func (c *Controller) tick(Command) (Reply, error) {
	c.world.Step()
	return c.snapshot(), nil
}

func (c *Controller) snapshot() Reply {
	groups := c.world.Groups()
	r := Reply{Tick: c.world.Ticks(), Sizes: make([]int, len(groups))}
	for i, g := range groups {
		r.Sizes[i] = g.Len()
	}
	return r
}
