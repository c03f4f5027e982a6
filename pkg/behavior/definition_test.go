package behavior

import (
	"encoding/json"
	"errors"
	"math/rand/v2"
	"os"
	"testing"
)

func loadDefinition(t *testing.T) []map[string]any {
	t.Helper()
	data, err := os.ReadFile("testdata/antonette.json")
	if err != nil {
		t.Fatalf("read testdata: %v", err)
	}
	var doc []map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("unmarshal testdata: %v", err)
	}
	return doc
}

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

func TestDecode_Chain(t *testing.T) {
	root, err := Decode(mustMarshal(t, loadDefinition(t)))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if got := root.Size(); got != 4 {
		t.Errorf("Size() = %d; want 4", got)
	}
	if got := root.MaxDepthLevel(); got != 3 {
		t.Errorf("MaxDepthLevel() = %d; want 3", got)
	}
	if root.Comparator != LessThan || root.Left != AlignmentWeight || root.Right != AlignmentWeight {
		t.Errorf("root condition = %v %v %v", root.Left, root.Comparator, root.Right)
	}
	if len(root.Then) != 8 || len(root.Else) != 6 {
		t.Fatalf("root branches = %d/%d steps; want 8/6", len(root.Then), len(root.Else))
	}
	if s := root.Then[0]; s.Action != Decrement || s.Target != RandomMotionProbability || s.Operand != DefaultOperand {
		t.Errorf("root.Then[0] = %+v", s)
	}
	if s := root.Else[3]; s.Action != SetTo || s.Target != AlignmentWeight {
		t.Errorf("root.Else[3] = %+v", s)
	}

	// Snapshots are stored as written; clamping only happens on agents.
	if got := root.Snapshot[CohesionWeight]; got != 5 {
		t.Errorf("root cohesion snapshot = %v; want 5", got)
	}
	if got := root.Snapshot[RandomMotionProbability]; got != 0 {
		t.Errorf("null random motion snapshot = %v; want 0", got)
	}
	if root.Snapshot[NeighborsOwnGroup] != 0 || root.Snapshot[NeighborsAllGroups] != 0 {
		t.Error("neighbor count snapshots should be 0")
	}

	leaf := root.Children[0].Children[0].Children[0]
	if len(leaf.Children) != 0 || leaf.Depth != 3 || len(leaf.Else) != 0 {
		t.Errorf("leaf = %+v", leaf)
	}
}

func TestDecode_NumberBank(t *testing.T) {
	data := mustMarshal(t, loadDefinition(t))

	root, err := DecodeWithOptions(data, DecodeOptions{UseNumberBank: true})
	if err != nil {
		t.Fatalf("DecodeWithOptions() error = %v", err)
	}
	if got := root.Then[4].Operand; got != 80 {
		t.Errorf("root.Then[4].Operand = %v; want 80", got)
	}
	if got := root.Children[0].Children[0].Else[0].Operand; got != 23 {
		t.Errorf("depth 2 else operand = %v; want 23", got)
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(doc []map[string]any) any
		record int
		field  string
	}{
		{
			name:   "not an array",
			mutate: func(doc []map[string]any) any { return doc[0] },
			record: -1,
		},
		{
			name:   "missing required field",
			mutate: func(doc []map[string]any) any { delete(doc[1], "comparator_id"); return doc },
			record: -1,
		},
		{
			name:   "null snapshot",
			mutate: func(doc []map[string]any) any { doc[2]["max_speed"] = nil; return doc },
			record: 2,
			field:  "max_speed",
		},
		{
			name:   "unparsable number",
			mutate: func(doc []map[string]any) any { doc[1]["cohesion_weight"] = "lots"; return doc },
			record: 1,
			field:  "cohesion_weight",
		},
		{
			name:   "mismatched branch",
			mutate: func(doc []map[string]any) any { doc[0]["if_action_ids"] = "1,1"; return doc },
			record: 0,
			field:  "if_action_ids",
		},
		{
			name:   "unknown child",
			mutate: func(doc []map[string]any) any { doc[3]["subbehavior_ids"] = "999"; return doc },
			record: 3,
			field:  "subbehavior_ids",
		},
		{
			name:   "shared child",
			mutate: func(doc []map[string]any) any { doc[0]["subbehavior_ids"] = "41,40"; return doc },
			record: 1,
			field:  "subbehavior_ids",
		},
		{
			name:   "root as child",
			mutate: func(doc []map[string]any) any { doc[3]["subbehavior_ids"] = "127"; return doc },
			record: 3,
			field:  "subbehavior_ids",
		},
		{
			name: "detached cycle",
			mutate: func(doc []map[string]any) any {
				doc[0]["subbehavior_ids"] = nil
				doc[3]["subbehavior_ids"] = "41"
				return doc
			},
			record: 1,
		},
		{
			name:   "partial ids",
			mutate: func(doc []map[string]any) any { delete(doc[2], "id"); return doc },
			record: 2,
			field:  "id",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := mustMarshal(t, tt.mutate(loadDefinition(t)))
			root, err := Decode(data)
			if err == nil {
				t.Fatalf("Decode() = %v; want error", root)
			}
			if root != nil {
				t.Error("Decode() returned a partial tree")
			}
			if !errors.Is(err, ErrDefinition) {
				t.Errorf("error %v does not match ErrDefinition", err)
			}
			var de *DefinitionError
			if !errors.As(err, &de) {
				t.Fatalf("error %T is not a *DefinitionError", err)
			}
			if de.Record != tt.record || de.Field != tt.field {
				t.Errorf("error at record %d field %q; want record %d field %q (%v)", de.Record, de.Field, tt.record, tt.field, err)
			}
		})
	}
}

func TestDecode_BankMismatch(t *testing.T) {
	doc := loadDefinition(t)
	doc[0]["if_number_bank"] = "1,2"
	data := mustMarshal(t, doc)

	if _, err := Decode(data); err != nil {
		t.Errorf("Decode() without number banks error = %v", err)
	}
	_, err := DecodeWithOptions(data, DecodeOptions{UseNumberBank: true})
	var de *DefinitionError
	if !errors.As(err, &de) || de.Field != "if_number_bank" {
		t.Errorf("DecodeWithOptions() error = %v; want if_number_bank failure", err)
	}
}

func TestDecode_FlatLayout(t *testing.T) {
	doc := loadDefinition(t)
	for _, r := range doc {
		delete(r, "id")
		delete(r, "subbehavior_ids")
	}

	root, err := Decode(mustMarshal(t, doc))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(root.Children) != 3 {
		t.Fatalf("root has %d children; want 3", len(root.Children))
	}
	for i, c := range root.Children {
		if len(c.Children) != 0 {
			t.Errorf("child %d has children", i)
		}
	}
}

func TestIDList_Forms(t *testing.T) {
	tests := []struct {
		in   string
		want []int
	}{
		{`"8,7,5"`, []int{8, 7, 5}},
		{`" 3 , 4 "`, []int{3, 4}},
		{`""`, nil},
		{`41`, []int{41}},
		{`[1,2]`, []int{1, 2}},
		{`null`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var l IDList
			if err := json.Unmarshal([]byte(tt.in), &l); err != nil {
				t.Fatalf("Unmarshal(%s) error = %v", tt.in, err)
			}
			if len(l) != len(tt.want) {
				t.Fatalf("Unmarshal(%s) = %v; want %v", tt.in, l, tt.want)
			}
			for i := range l {
				if l[i] != tt.want[i] {
					t.Errorf("Unmarshal(%s)[%d] = %d; want %d", tt.in, i, l[i], tt.want[i])
				}
			}
		})
	}

	var l IDList
	if err := json.Unmarshal([]byte(`"1,x"`), &l); err == nil {
		t.Error("Unmarshal of a bad id list should fail")
	}
}

func TestEncode_GeneratedRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for range 20 {
		records := Generate(rng, GenerateOptions{})
		data, err := Encode(records)
		if err != nil {
			t.Fatalf("Encode() error = %v", err)
		}
		root, err := DecodeWithOptions(data, DecodeOptions{UseNumberBank: true})
		if err != nil {
			t.Fatalf("decode generated definition: %v\n%s", err, data)
		}
		if got := root.Size(); got != len(records) {
			t.Errorf("Size() = %d; want %d", got, len(records))
		}
	}
}
