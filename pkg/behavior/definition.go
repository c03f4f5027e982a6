package behavior

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed definition.schema.json
var definitionSchemaJSON string

var definitionSchema = jsonschema.MustCompileString("definition.schema.json", definitionSchemaJSON)

// ErrDefinition is matched by every error returned while decoding or
// building a tree.
var ErrDefinition = errors.New("invalid behavior definition")

var errMissing = errors.New("missing value")

// DefinitionError locates a decoding failure. Record is -1 when the failure
// concerns the document as a whole.
type DefinitionError struct {
	Record int
	Field  string
	Err    error
}

func (e *DefinitionError) Error() string {
	switch {
	case e.Record < 0:
		return fmt.Sprintf("%v: %v", ErrDefinition, e.Err)
	case e.Field == "":
		return fmt.Sprintf("%v: record %d: %v", ErrDefinition, e.Record, e.Err)
	default:
		return fmt.Sprintf("%v: record %d: %s: %v", ErrDefinition, e.Record, e.Field, e.Err)
	}
}

func (e *DefinitionError) Unwrap() []error {
	return []error{ErrDefinition, e.Err}
}

// IDList is a list of small integers. It decodes from a comma separated
// string ("8,7"), a bare integer, or a JSON array, and encodes as a string.
type IDList []int

func (l *IDList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*l = nil
		return nil
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		ids, err := parseIDs(s)
		if err != nil {
			return err
		}
		*l = ids
		return nil
	case len(b) > 0 && b[0] == '[':
		var ids []int
		if err := json.Unmarshal(b, &ids); err != nil {
			return err
		}
		*l = ids
		return nil
	default:
		var id int
		if err := json.Unmarshal(b, &id); err != nil {
			return err
		}
		*l = IDList{id}
		return nil
	}
}

func (l IDList) MarshalJSON() ([]byte, error) {
	parts := make([]string, len(l))
	for i, id := range l {
		parts[i] = strconv.Itoa(id)
	}
	return json.Marshal(strings.Join(parts, ","))
}

func parseIDs(s string) ([]int, error) {
	var ids []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("bad id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Number is an optional float that may be written as a JSON number or as a
// numeric string.
type Number struct {
	Value float64
	Valid bool
}

// Num returns a present Number.
func Num(v float64) Number {
	return Number{Value: v, Valid: true}
}

func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*n = Number{}
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return fmt.Errorf("bad number %q: %w", s, err)
		}
		*n = Num(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*n = Num(v)
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(strconv.FormatFloat(n.Value, 'g', -1, 64))
}

// NumberList is a list of floats, written as a comma separated string or a
// JSON array.
type NumberList []float64

func (l *NumberList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*l = nil
		return nil
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		var out NumberList
		for _, part := range strings.Split(s, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			v, err := strconv.ParseFloat(part, 64)
			if err != nil {
				return fmt.Errorf("bad number %q: %w", part, err)
			}
			out = append(out, v)
		}
		*l = out
		return nil
	default:
		var vs []float64
		if err := json.Unmarshal(b, &vs); err != nil {
			return err
		}
		*l = vs
		return nil
	}
}

// Record is one serialized node. Field names follow the persisted format
// used by the behavior workshop.
type Record struct {
	ID              *int       `json:"id,omitempty"`
	Name            string     `json:"name,omitempty"`
	ComparatorID    int        `json:"comparator_id"`
	PropertyAID     int        `json:"property_a_id"`
	PropertyBID     int        `json:"property_b_id"`
	RandomPropertyB bool       `json:"random_property_b"`
	DepthLevel      int        `json:"depth_level"`
	IfPropertyIDs   IDList     `json:"if_property_ids"`
	IfActionIDs     IDList     `json:"if_action_ids"`
	ElsePropertyIDs IDList     `json:"else_property_ids"`
	ElseActionIDs   IDList     `json:"else_action_ids"`
	IfNumberBank    NumberList `json:"if_number_bank,omitempty"`
	ElseNumberBank  NumberList `json:"else_number_bank,omitempty"`
	SubbehaviorIDs  IDList     `json:"subbehavior_ids,omitempty"`

	VelocityScale         Number `json:"velocity_scale"`
	MaxSpeed              Number `json:"max_speed"`
	NormalSpeed           Number `json:"normal_speed"`
	NeighborhoodRadius    Number `json:"neighborhood_radius"`
	SeparationWeight      Number `json:"separation_weight"`
	AlignmentWeight       Number `json:"alignment_weight"`
	CohesionWeight        Number `json:"cohesion_weight"`
	PacekeepingWeight     Number `json:"pacekeeping_weight"`
	RandMotionProbability Number `json:"rand_motion_probability"`
}

// snapshotFields lists the snapshot keys in ParamID order.
var snapshotFields = [NumTunable]string{
	"velocity_scale",
	"max_speed",
	"normal_speed",
	"neighborhood_radius",
	"separation_weight",
	"alignment_weight",
	"cohesion_weight",
	"pacekeeping_weight",
	"rand_motion_probability",
}

func (r *Record) snapshotField(id ParamID) *Number {
	switch id {
	case VelocityScale:
		return &r.VelocityScale
	case MaxSpeed:
		return &r.MaxSpeed
	case NormalSpeed:
		return &r.NormalSpeed
	case NeighborRadius:
		return &r.NeighborhoodRadius
	case SeparationWeight:
		return &r.SeparationWeight
	case AlignmentWeight:
		return &r.AlignmentWeight
	case CohesionWeight:
		return &r.CohesionWeight
	case PacekeepingWeight:
		return &r.PacekeepingWeight
	case RandomMotionProbability:
		return &r.RandMotionProbability
	default:
		return nil
	}
}

// SetSnapshot stores v as the snapshot value of id. Ids outside the tunable
// range are ignored.
func (r *Record) SetSnapshot(id ParamID, v float64) {
	if f := r.snapshotField(id); f != nil {
		*f = Num(v)
	}
}

// DecodeOptions tunes how records become nodes.
type DecodeOptions struct {
	// UseNumberBank binds if_number_bank / else_number_bank as action
	// operands. When false every action uses DefaultOperand.
	UseNumberBank bool
}

// Decode parses a JSON definition and builds its tree with default options.
func Decode(data []byte) (*Node, error) {
	return DecodeWithOptions(data, DecodeOptions{})
}

// DecodeWithOptions parses a JSON definition and builds its tree.
func DecodeWithOptions(data []byte, opts DecodeOptions) (*Node, error) {
	records, err := ParseRecords(data)
	if err != nil {
		return nil, err
	}
	return Build(records, opts)
}

// ParseRecords validates data against the definition schema and decodes
// each record.
func ParseRecords(data []byte) ([]Record, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &DefinitionError{Record: -1, Err: err}
	}
	if err := definitionSchema.Validate(doc); err != nil {
		return nil, &DefinitionError{Record: -1, Err: err}
	}

	var raws []map[string]json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, &DefinitionError{Record: -1, Err: err}
	}
	records := make([]Record, 0, len(raws))
	for i, raw := range raws {
		r, err := decodeRecord(i, raw)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, nil
}

func decodeRecord(index int, raw map[string]json.RawMessage) (Record, error) {
	var r Record
	fields := []struct {
		name     string
		dst      any
		required bool
	}{
		{"id", &r.ID, false},
		{"name", &r.Name, false},
		{"comparator_id", &r.ComparatorID, true},
		{"property_a_id", &r.PropertyAID, true},
		{"property_b_id", &r.PropertyBID, true},
		{"random_property_b", &r.RandomPropertyB, true},
		{"depth_level", &r.DepthLevel, true},
		{"if_property_ids", &r.IfPropertyIDs, true},
		{"if_action_ids", &r.IfActionIDs, true},
		{"else_property_ids", &r.ElsePropertyIDs, true},
		{"else_action_ids", &r.ElseActionIDs, true},
		{"if_number_bank", &r.IfNumberBank, false},
		{"else_number_bank", &r.ElseNumberBank, false},
		{"subbehavior_ids", &r.SubbehaviorIDs, false},
	}
	for _, f := range fields {
		v, ok := raw[f.name]
		if !ok || isNull(v) {
			if f.required {
				return r, &DefinitionError{Record: index, Field: f.name, Err: errMissing}
			}
			continue
		}
		if err := json.Unmarshal(v, f.dst); err != nil {
			return r, &DefinitionError{Record: index, Field: f.name, Err: err}
		}
	}

	for id := ParamID(0); int(id) < NumTunable; id++ {
		name := snapshotFields[id]
		dst := r.snapshotField(id)
		v, ok := raw[name]
		if ok {
			if err := json.Unmarshal(v, dst); err != nil {
				return r, &DefinitionError{Record: index, Field: name, Err: err}
			}
		}
		// A missing random motion probability means "never".
		if !dst.Valid && id != RandomMotionProbability {
			return r, &DefinitionError{Record: index, Field: name, Err: errMissing}
		}
	}
	return r, nil
}

func isNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

// Build assembles records into a tree and returns its root, records[0].
//
// When every record carries an id, children are resolved through
// subbehavior_ids. When no record carries one, every record after the first
// becomes a direct child of the root.
func Build(records []Record, opts DecodeOptions) (*Node, error) {
	if len(records) == 0 {
		return nil, &DefinitionError{Record: -1, Err: errors.New("no records")}
	}
	nodes := make([]*Node, len(records))
	for i := range records {
		n, err := records[i].node(i, opts)
		if err != nil {
			return nil, err
		}
		nodes[i] = n
	}
	if err := link(records, nodes); err != nil {
		return nil, err
	}
	return nodes[0], nil
}

func (r *Record) node(index int, opts DecodeOptions) (*Node, error) {
	n := &Node{
		Comparator:     Comparator(r.ComparatorID),
		Left:           ParamID(r.PropertyAID),
		Right:          ParamID(r.PropertyBID),
		RightIsLiteral: r.RandomPropertyB,
		Depth:          r.DepthLevel,
	}
	for id := ParamID(0); int(id) < NumTunable; id++ {
		n.Snapshot[id] = r.snapshotField(id).Value
	}

	var bank NumberList
	if opts.UseNumberBank {
		bank = r.IfNumberBank
	}
	then, err := steps(index, "if", r.IfActionIDs, r.IfPropertyIDs, bank)
	if err != nil {
		return nil, err
	}
	if opts.UseNumberBank {
		bank = r.ElseNumberBank
	}
	otherwise, err := steps(index, "else", r.ElseActionIDs, r.ElsePropertyIDs, bank)
	if err != nil {
		return nil, err
	}
	n.Then, n.Else = then, otherwise
	return n, nil
}

func steps(index int, branch string, actions, targets IDList, bank NumberList) ([]Step, error) {
	if len(actions) != len(targets) {
		return nil, &DefinitionError{
			Record: index,
			Field:  branch + "_action_ids",
			Err:    fmt.Errorf("%d actions for %d properties", len(actions), len(targets)),
		}
	}
	if len(bank) > 0 && len(bank) != len(actions) {
		return nil, &DefinitionError{
			Record: index,
			Field:  branch + "_number_bank",
			Err:    fmt.Errorf("%d operands for %d actions", len(bank), len(actions)),
		}
	}
	out := make([]Step, len(actions))
	for i := range actions {
		out[i] = NewStep(Action(actions[i]), ParamID(targets[i]))
		if len(bank) > 0 {
			out[i].Operand = bank[i]
		}
	}
	return out, nil
}

func link(records []Record, nodes []*Node) error {
	withID := 0
	missing := -1
	for i := range records {
		if records[i].ID != nil {
			withID++
		} else if missing < 0 {
			missing = i
		}
	}
	switch withID {
	case 0:
		nodes[0].Children = append(nodes[0].Children, nodes[1:]...)
		return nil
	case len(records):
	default:
		return &DefinitionError{Record: missing, Field: "id", Err: errMissing}
	}

	index := make(map[int]int, len(records))
	for i := range records {
		id := *records[i].ID
		if _, dup := index[id]; dup {
			return &DefinitionError{Record: i, Field: "id", Err: fmt.Errorf("duplicate id %d", id)}
		}
		index[id] = i
	}

	parent := make([]int, len(records))
	for i := range parent {
		parent[i] = -1
	}
	for i := range records {
		for _, childID := range records[i].SubbehaviorIDs {
			j, ok := index[childID]
			if !ok {
				return &DefinitionError{Record: i, Field: "subbehavior_ids", Err: fmt.Errorf("unknown id %d", childID)}
			}
			if j == 0 {
				return &DefinitionError{Record: i, Field: "subbehavior_ids", Err: errors.New("the root cannot be a child")}
			}
			if parent[j] >= 0 {
				return &DefinitionError{
					Record: i,
					Field:  "subbehavior_ids",
					Err:    fmt.Errorf("id %d is already a child of record %d", childID, parent[j]),
				}
			}
			parent[j] = i
			nodes[i].Children = append(nodes[i].Children, nodes[j])
		}
	}

	// Each record has at most one parent and the root has none, so a walk
	// from the root terminates. Anything it misses sits on a detached cycle
	// or was never referenced.
	seen := make(map[*Node]bool, len(nodes))
	nodes[0].Walk(func(n *Node) { seen[n] = true })
	for i, n := range nodes {
		if !seen[n] {
			return &DefinitionError{Record: i, Err: errors.New("not reachable from the root")}
		}
	}
	return nil
}

// Encode serializes records back into the JSON definition format.
func Encode(records []Record) ([]byte, error) {
	return json.MarshalIndent(records, "", "  ")
}
