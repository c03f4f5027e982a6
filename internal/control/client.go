package control

import (
	"context"
	"fmt"
	"time"

	"github.com/tochemey/goakt/v3/actor"
	"google.golang.org/protobuf/types/known/structpb"
)

const DefaultAskTimeout = 5 * time.Second

// Client sends commands to the actor that owns a world and waits for its
// reply.
type Client struct {
	pid     *actor.PID
	timeout time.Duration
}

func NewClient(pid *actor.PID, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultAskTimeout
	}
	return &Client{pid: pid, timeout: timeout}
}

// Do sends cmd and returns the reply. A command rejected by the controller
// comes back as an error that still matches the package sentinels.
func (c *Client) Do(ctx context.Context, cmd Command) (Reply, error) {
	msg, err := cmd.ToProto()
	if err != nil {
		return Reply{}, err
	}
	resp, err := actor.Ask(ctx, c.pid, msg, c.timeout)
	if err != nil {
		return Reply{}, fmt.Errorf("sending %s: %w", cmd.Address, err)
	}
	s, ok := resp.(*structpb.Struct)
	if !ok {
		return Reply{}, fmt.Errorf("sending %s: unexpected reply %T", cmd.Address, resp)
	}
	reply := ReplyFromProto(s)
	return reply, reply.Err
}

// Tick advances the world one step.
func (c *Client) Tick(ctx context.Context) (Reply, error) {
	return c.Do(ctx, Command{Address: "/tick"})
}

func (c *Client) Stats(ctx context.Context) (Reply, error) {
	return c.Do(ctx, Command{Address: "/stats"})
}
