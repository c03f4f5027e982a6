// Package control is the command surface of a running swarm. Commands carry
// an address and numeric arguments, travel between actors as
// *structpb.Struct and are applied to a flock.World by a Controller.
package control

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"
	"strings"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/lao-tseu-is-alive/go-music-swarm/internal/flock"
	"github.com/lao-tseu-is-alive/go-music-swarm/pkg/behavior"
)

var (
	ErrUnknownAddress = errors.New("unknown address")
	ErrBadArguments   = errors.New("bad arguments")
)

// Command is one control message, e.g. {"/sepwt", [40, 2], ""} sets the
// separation weight of group 2.
type Command struct {
	Address string
	Args    []float64
	Payload string
}

func (c Command) String() string {
	var sb strings.Builder
	sb.WriteString(c.Address)
	for _, a := range c.Args {
		fmt.Fprintf(&sb, " %g", a)
	}
	if c.Payload != "" {
		fmt.Fprintf(&sb, " <%d bytes>", len(c.Payload))
	}
	return sb.String()
}

// ToProto converts the command to its wire form.
func (c Command) ToProto() (*structpb.Struct, error) {
	args := make([]any, len(c.Args))
	for i, a := range c.Args {
		args[i] = a
	}
	fields := map[string]any{
		"address": c.Address,
		"args":    args,
	}
	if c.Payload != "" {
		fields["payload"] = c.Payload
	}
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("encoding command %s: %w", c.Address, err)
	}
	return s, nil
}

// CommandFromProto is the inverse of Command.ToProto.
func CommandFromProto(s *structpb.Struct) (Command, error) {
	fields := s.GetFields()
	addr, ok := fields["address"]
	if !ok || addr.GetStringValue() == "" {
		return Command{}, fmt.Errorf("%w: missing address", ErrBadArguments)
	}
	cmd := Command{
		Address: addr.GetStringValue(),
		Payload: fields["payload"].GetStringValue(),
	}
	for i, v := range fields["args"].GetListValue().GetValues() {
		n, ok := v.GetKind().(*structpb.Value_NumberValue)
		if !ok {
			return Command{}, fmt.Errorf("%w: %s argument %d is not a number", ErrBadArguments, cmd.Address, i)
		}
		cmd.Args = append(cmd.Args, n.NumberValue)
	}
	return cmd, nil
}

// ParseCommand decodes a JSON object such as
// {"address": "/cohwt", "args": [0.8, 1]}.
func ParseCommand(line []byte) (Command, error) {
	s := &structpb.Struct{}
	if err := protojson.Unmarshal(line, s); err != nil {
		return Command{}, fmt.Errorf("decoding command: %w", err)
	}
	return CommandFromProto(s)
}

// ScriptEntry schedules a command to run once the world has completed At
// ticks.
type ScriptEntry struct {
	At      uint64
	Command Command
}

// ReadScript reads JSON lines of the form
//
//	{"at": 120, "address": "/flockSize", "args": [50, 2]}
//
// Blank lines and lines starting with # are skipped. Entries come back
// ordered by At, keeping file order for equal ticks.
func ReadScript(r io.Reader) ([]ScriptEntry, error) {
	var entries []ScriptEntry
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		s := &structpb.Struct{}
		if err := protojson.Unmarshal([]byte(text), s); err != nil {
			return nil, fmt.Errorf("script line %d: %w", line, err)
		}
		var at uint64
		if v, ok := s.GetFields()["at"]; ok {
			n := v.GetNumberValue()
			if n < 0 || n != math.Trunc(n) {
				return nil, fmt.Errorf("script line %d: %w: at must be a tick count", line, ErrBadArguments)
			}
			at = uint64(n)
		}
		cmd, err := CommandFromProto(s)
		if err != nil {
			return nil, fmt.Errorf("script line %d: %w", line, err)
		}
		entries = append(entries, ScriptEntry{At: at, Command: cmd})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading script: %w", err)
	}
	slices.SortStableFunc(entries, func(a, b ScriptEntry) int {
		switch {
		case a.At < b.At:
			return -1
		case a.At > b.At:
			return 1
		}
		return 0
	})
	return entries, nil
}

// Reply is the answer to a command. Sizes holds the agent count of every
// group in id order; it is filled by /stats and /tick.
type Reply struct {
	Address string
	Tick    uint64
	Sizes   []int
	Err     error
}

var errorCodes = []struct {
	code string
	err  error
}{
	{"unknown_address", ErrUnknownAddress},
	{"bad_arguments", ErrBadArguments},
	{"no_such_group", flock.ErrNoSuchGroup},
	{"definition", behavior.ErrDefinition},
}

func errorCode(err error) string {
	for _, c := range errorCodes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "internal"
}

// ToProto converts the reply to its wire form. A failed command travels as
// an error code plus message so the sentinel survives the trip.
func (r Reply) ToProto() (*structpb.Struct, error) {
	sizes := make([]any, len(r.Sizes))
	for i, n := range r.Sizes {
		sizes[i] = n
	}
	fields := map[string]any{
		"address": r.Address,
		"tick":    float64(r.Tick),
		"sizes":   sizes,
	}
	if r.Err != nil {
		fields["code"] = errorCode(r.Err)
		fields["error"] = r.Err.Error()
	}
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("encoding reply %s: %w", r.Address, err)
	}
	return s, nil
}

// ReplyFromProto is the inverse of Reply.ToProto.
func ReplyFromProto(s *structpb.Struct) Reply {
	fields := s.GetFields()
	r := Reply{
		Address: fields["address"].GetStringValue(),
		Tick:    uint64(fields["tick"].GetNumberValue()),
	}
	for _, v := range fields["sizes"].GetListValue().GetValues() {
		r.Sizes = append(r.Sizes, int(v.GetNumberValue()))
	}
	if code := fields["code"].GetStringValue(); code != "" {
		msg := fields["error"].GetStringValue()
		r.Err = errors.New(msg)
		for _, c := range errorCodes {
			if c.code == code {
				r.Err = fmt.Errorf("%w (%s)", c.err, msg)
				break
			}
		}
	}
	return r
}
