package behavior

import "math/rand/v2"

// Tournament picks len(population)/2 members by binary tournament: two
// members are drawn uniformly with replacement and the better rated one is
// kept. Ties go to the second draw.
func Tournament[T any](rng *rand.Rand, population []T, rating func(T) int) []T {
	if len(population) < 2 {
		return nil
	}
	chosen := make([]T, 0, len(population)/2)
	for len(chosen) < len(population)/2 {
		a := population[rng.IntN(len(population))]
		b := population[rng.IntN(len(population))]
		if rating(a) > rating(b) {
			chosen = append(chosen, a)
		} else {
			chosen = append(chosen, b)
		}
	}
	return chosen
}
