package behavior

import (
	"math/rand/v2"
	"testing"
)

func TestGenerate_Shape(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	lengths := map[int]int{}
	for range 200 {
		records := Generate(rng, GenerateOptions{})
		if len(records) < 1 || len(records) > DefaultMaxDepth {
			t.Fatalf("generated %d records; want 1..%d", len(records), DefaultMaxDepth)
		}
		lengths[len(records)]++

		for i, r := range records {
			if r.ID == nil || *r.ID != i+1 {
				t.Fatalf("record %d id = %v; want %d", i, r.ID, i+1)
			}
			if r.DepthLevel != i {
				t.Errorf("record %d depth = %d", i, r.DepthLevel)
			}
			last := i == len(records)-1
			if last != (len(r.SubbehaviorIDs) == 0) {
				t.Errorf("record %d subbehaviors = %v (last=%v)", i, r.SubbehaviorIDs, last)
			}
			if len(r.IfActionIDs) != len(r.IfPropertyIDs) || len(r.IfNumberBank) != len(r.IfActionIDs) {
				t.Errorf("record %d if branch lengths differ", i)
			}
			if len(r.ElseActionIDs) != len(r.ElsePropertyIDs) || len(r.ElseNumberBank) != len(r.ElseActionIDs) {
				t.Errorf("record %d else branch lengths differ", i)
			}
		}
	}
	// With a fair coin every chain length should show up in 200 draws.
	for n := 1; n <= DefaultMaxDepth; n++ {
		if lengths[n] == 0 {
			t.Errorf("no chain of length %d generated", n)
		}
	}
}

func TestGenerate_Options(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	for range 50 {
		records := Generate(rng, GenerateOptions{MaxDepth: 1, FirstID: 40})
		if len(records) != 1 {
			t.Fatalf("MaxDepth 1 produced %d records", len(records))
		}
		if *records[0].ID != 40 {
			t.Errorf("root id = %d; want 40", *records[0].ID)
		}
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	a := Generate(rand.New(rand.NewPCG(9, 9)), GenerateOptions{})
	b := Generate(rand.New(rand.NewPCG(9, 9)), GenerateOptions{})
	ea, _ := Encode(a)
	eb, _ := Encode(b)
	if string(ea) != string(eb) {
		t.Error("same seed produced different definitions")
	}
}

func TestRandomValue_Ranges(t *testing.T) {
	ranges := [NumTunable][2]float64{
		{0, 0.1}, {2, 10}, {2, 10}, {10, 100}, {0, 100}, {0, 1}, {0, 1}, {0, 1}, {0, 0.5},
	}
	rng := rand.New(rand.NewPCG(5, 6))
	for id := ParamID(0); int(id) < NumTunable; id++ {
		for range 500 {
			v := RandomValue(rng, id)
			if v < ranges[id][0] || v > ranges[id][1] {
				t.Fatalf("RandomValue(%v) = %v; want within %v", id, v, ranges[id])
			}
		}
	}
	if got := RandomValue(rng, NeighborsOwnGroup); got != 0 {
		t.Errorf("RandomValue(NeighborsOwnGroup) = %v; want 0", got)
	}
}

func TestTournament(t *testing.T) {
	type rated struct {
		name   string
		rating int
	}
	population := []rated{{"a", 1}, {"b", 5}, {"c", 3}, {"d", 0}, {"e", 9}, {"f", 2}}
	rng := rand.New(rand.NewPCG(10, 20))

	chosen := Tournament(rng, population, func(r rated) int { return r.rating })
	if len(chosen) != len(population)/2 {
		t.Fatalf("Tournament() chose %d; want %d", len(chosen), len(population)/2)
	}

	// Selection pressure: winners average above the population mean.
	total, picks := 0, 0
	for range 1000 {
		for _, c := range Tournament(rng, population, func(r rated) int { return r.rating }) {
			total += c.rating
			picks++
		}
	}
	if mean := float64(total) / float64(picks); mean <= 20.0/6 {
		t.Errorf("mean winner rating = %.2f; want above %.2f", mean, 20.0/6)
	}

	if got := Tournament(rng, population[:1], func(r rated) int { return r.rating }); got != nil {
		t.Errorf("Tournament() of one = %v; want nil", got)
	}
}
