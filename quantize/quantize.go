package quantize

import (
	"math"
	"sort"

	"github.com/jsphweid/improv/constants"
	"github.com/jsphweid/improv/util"
	"golang.org/x/exp/slices"
)

// Quantizer snaps tick values to a fixed, ascending set of allowed durations.
// It is immutable after New and safe for concurrent use.
type Quantizer struct {
	durations []int
	quantum   int
}

func New(resolution int, subdivisions []int, forbidden []int) *Quantizer {
	wholeNote := resolution * constants.BeatsPerWhole
	durations := []int{wholeNote}
	quantum := wholeNote

	for _, den := range subdivisions {
		for num := 0; num < den; num++ {
			if slices.Contains(forbidden, num) {
				continue
			}
			base := roundHalfUp(float64(wholeNote) * float64(num) / float64(den))
			if base > 0 {
				quantum = util.Min(quantum, base)
			}
			// dyadic multiples: x1, x2, x4, x8
			for i := 0; i < 4; i++ {
				d := base << i
				if !slices.Contains(durations, d) {
					durations = append(durations, d)
				}
			}
		}
	}
	sort.Ints(durations)

	return &Quantizer{durations: durations, quantum: quantum}
}

// Durations returns a copy of the allowed durations, ascending
func (q *Quantizer) Durations() []int {
	return slices.Clone(q.durations)
}

// Quantum is the smallest nonzero allowed duration, also the onset grid step
func (q *Quantizer) Quantum() int {
	return q.quantum
}

// Nearest returns the allowed duration closest to ticks; the smaller one wins
// ties. A zero result is replaced with the smallest nonzero duration unless
// allowZero is set.
func (q *Quantizer) Nearest(ticks int, allowZero bool) int {
	best := q.durations[0]
	bestDiff := util.Abs(ticks - best)
	for _, d := range q.durations[1:] {
		if diff := util.Abs(ticks - d); diff < bestDiff {
			best, bestDiff = d, diff
		}
	}
	if best == 0 && !allowZero {
		return q.smallestNonzero()
	}
	return best
}

// Grid snaps an absolute tick position to a multiple of the quantum
func (q *Quantizer) Grid(ticks int) int {
	return roundHalfUp(float64(ticks)/float64(q.quantum)) * q.quantum
}

func (q *Quantizer) smallestNonzero() int {
	for _, d := range q.durations {
		if d > 0 {
			return d
		}
	}
	return q.quantum
}

func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}
