package markov

import (
	"math/rand"

	"github.com/jsphweid/improv/util"
)

// Choose draws an index with probability proportional to its weight, using
// a cumulative sum over a uniform draw in [0, total). Entries with zero
// weight are never drawn. It returns -1 when nothing has weight.
func Choose(rng *rand.Rand, weights []float64) int {
	total := util.Sum(weights)
	if total <= 0 {
		return -1
	}

	r := rng.Float64() * total
	var cum float64
	for i, w := range weights {
		cum += w
		if r < cum {
			return i
		}
	}

	// rounding left r at the very top of the range
	for i := len(weights) - 1; i >= 0; i-- {
		if weights[i] > 0 {
			return i
		}
	}
	return -1
}
