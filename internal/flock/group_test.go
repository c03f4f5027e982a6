package flock

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/lao-tseu-is-alive/go-music-swarm/pkg/behavior"
	"github.com/lao-tseu-is-alive/go-music-swarm/pkg/geometry"
)

func newTestGroup(size int) *Group {
	return newGroup(1, geometry.NewVector(640, 480, 200), rand.New(rand.NewPCG(7, 1)), GroupOptions{Size: size})
}

func TestGroup_Resize(t *testing.T) {
	tests := []struct {
		name       string
		start, to  int
		wantLength int
	}{
		{"grow", 3, 8, 8},
		{"shrink", 8, 3, 3},
		{"same", 5, 5, 5},
		{"to zero", 4, 0, 0},
		{"negative", 4, -2, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGroup(tt.start)
			g.Resize(tt.to)
			if got := g.Len(); got != tt.wantLength {
				t.Errorf("Len() = %d; want %d", got, tt.wantLength)
			}
			for i, a := range g.Agents() {
				if a.ID != i {
					t.Errorf("agent at %d has id %d", i, a.ID)
				}
			}
		})
	}
}

func TestGroup_ResizeIdempotent(t *testing.T) {
	g := newTestGroup(2)
	g.Resize(6)
	before := g.Agents()
	g.Resize(6)
	after := g.Agents()

	if len(after) != 6 {
		t.Fatalf("Len() = %d; want 6", len(after))
	}
	for i := range before {
		if before[i] != after[i] {
			t.Errorf("agent %d changed on second resize: %+v -> %+v", i, before[i], after[i])
		}
	}
}

func TestGroup_ShrinkDropsHighestIndices(t *testing.T) {
	g := newTestGroup(6)
	before := g.Agents()
	g.Resize(2)
	after := g.Agents()
	for i := range after {
		if after[i] != before[i] {
			t.Errorf("agent %d = %+v; want survivor %+v", i, after[i], before[i])
		}
	}
}

func TestGroup_SpawnInsideBox(t *testing.T) {
	g := newTestGroup(200)
	for _, a := range g.Agents() {
		p := a.Position
		if math.Abs(p.X) > 320 || math.Abs(p.Y) > 240 || math.Abs(p.Z) > 100 {
			t.Fatalf("agent %d spawned outside the box at %v", a.ID, p)
		}
		if p.X != math.Trunc(p.X) || p.Y != math.Trunc(p.Y) || p.Z != math.Trunc(p.Z) {
			t.Fatalf("agent %d spawned off the lattice at %v", a.ID, p)
		}
		v := a.Velocity
		if math.Abs(v.X) > 1 || math.Abs(v.Y) > 1 || math.Abs(v.Z) > 1 {
			t.Fatalf("agent %d initial velocity %v", a.ID, v)
		}
	}

	s := g.Spawn(geometry.NewVector(1, 2, 3))
	if s.ID != 200 || s.Position != geometry.NewVector(1, 2, 3) {
		t.Errorf("Spawn() = %+v", s)
	}
}

func TestGroup_RemoveExpired(t *testing.T) {
	ages := []int{0, 201, 50, 300, 300, 10, 250}
	setup := func(mortal bool) *Group {
		g := newTestGroup(len(ages))
		g.SetMortality(mortal)
		for i, a := range g.agents {
			a.age = ages[i]
		}
		return g
	}

	if n := setup(false).RemoveExpired(); n != 0 {
		t.Errorf("immortal group removed %d agents", n)
	}

	g := setup(true)
	if n := g.RemoveExpired(); n != 4 {
		t.Errorf("RemoveExpired() = %d; want 4", n)
	}
	if g.Len() != 3 {
		t.Fatalf("Len() = %d; want 3", g.Len())
	}
	seen := map[int]bool{}
	for i, a := range g.Agents() {
		if a.ID != i {
			t.Errorf("agent at %d has id %d", i, a.ID)
		}
		if a.Age > Lifespan {
			t.Errorf("expired agent survived: %+v", a)
		}
		seen[a.Age] = true
	}
	for _, age := range []int{0, 50, 10} {
		if !seen[age] {
			t.Errorf("agent aged %d was removed", age)
		}
	}
}

func TestGroup_SetParam(t *testing.T) {
	g := newTestGroup(5)
	g.SetParam(behavior.SeparationWeight, 250)

	for i, v := range g.ParamValues(behavior.SeparationWeight) {
		if v != 100 {
			t.Errorf("agent %d separation = %v; want clamped 100", i, v)
		}
	}
	if got := g.Params().SeparationWeight; got != 250 {
		t.Errorf("template separation = %v; want 250 as written", got)
	}

	g.Resize(7)
	if got := g.ParamValues(behavior.SeparationWeight)[6]; got != 100 {
		t.Errorf("new agent separation = %v; want 100", got)
	}

	g.SetProximityThreshold(33)
	g.mu.Lock()
	for _, a := range g.agents {
		if a.ProximityThreshold() != 33 {
			t.Errorf("agent %d proximity = %v", a.id, a.ProximityThreshold())
		}
	}
	g.mu.Unlock()
}

func TestGroup_ReplaceBehavior(t *testing.T) {
	g := newTestGroup(1)
	if g.Behavior() != nil {
		t.Fatal("new group should have no behavior")
	}
	tree := &behavior.Node{}
	g.ReplaceBehavior(tree)
	if g.Behavior() != tree {
		t.Error("ReplaceBehavior() did not swap the tree")
	}
}

func TestGroup_Statistics(t *testing.T) {
	g := newTestGroup(0)
	if _, ok := g.Statistics(); ok {
		t.Error("empty group reported statistics")
	}

	place(g, geometry.NewVector(0, 0, 0), geometry.NewVector(4, 2, -2))
	g.agents[0].velocity = geometry.NewVector(3, 4, 0)
	g.agents[1].velocity = geometry.NewVector(-3, 0, 2)

	s, ok := g.Statistics()
	if !ok {
		t.Fatal("Statistics() not ok")
	}
	checks := []struct {
		name      string
		got, want geometry.Vector3D
	}{
		{"mean position", s.MeanPosition, geometry.NewVector(2, 1, -1)},
		{"dev position", s.DevPosition, geometry.NewVector(2, 1, 1)},
		{"mean velocity", s.MeanVelocity, geometry.NewVector(0, 2, 1)},
		{"dev velocity", s.DevVelocity, geometry.NewVector(3, 2, 1)},
	}
	for _, c := range checks {
		if !c.got.Eq(c.want) {
			t.Errorf("%s = %v; want %v", c.name, c.got, c.want)
		}
	}
	wantSpeed := (5 + math.Sqrt(13)) / 2
	if math.Abs(s.MeanSpeed-wantSpeed) > 1e-9 {
		t.Errorf("mean speed = %v; want %v", s.MeanSpeed, wantSpeed)
	}
	if math.Abs(s.DevSpeed-(5-wantSpeed)) > 1e-9 {
		t.Errorf("speed deviation = %v; want %v", s.DevSpeed, 5-wantSpeed)
	}
	if s.Size != 2 || s.Group != 1 {
		t.Errorf("size/group = %d/%d", s.Size, s.Group)
	}
}

func TestMultiObserver(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	m := MultiObserver{a, NopObserver{}, b}
	m.Connect(AgentState{ID: 1}, AgentState{ID: 2})
	m.Proximity(AgentState{}, AgentState{})
	m.GroupStatistics(Stats{Group: 3})

	for _, r := range []*recorder{a, b} {
		if len(r.connects) != 1 || len(r.proximity) != 1 || len(r.stats) != 1 {
			t.Errorf("recorder got %d/%d/%d events", len(r.connects), len(r.proximity), len(r.stats))
		}
	}
}

func BenchmarkWorld_Step(b *testing.B) {
	w, err := NewWorld(Options{
		Extent:            geometry.NewVector(640, 480, 200),
		BoundaryThreshold: DefaultBoundaryThreshold,
		RandomMagnitude:   DefaultRandomMagnitude,
		Groups:            []GroupOptions{{Size: 100}, {Size: 100, Mode: ModeRandom}},
	})
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		w.Step()
	}
}
