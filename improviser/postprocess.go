package improviser

import (
	"math"

	"github.com/jsphweid/improv/constants"
	"github.com/jsphweid/improv/model"
	"github.com/jsphweid/improv/util"
)

const (
	minChordVelocity = 0.3
	maxChordVelocity = 0.8
)

// applyLegato cuts a note short where the next note of the same pitch starts
// before it ends. Notes must be ordered by onset.
func applyLegato(notes []model.Note, smallest int) {
	last := make(map[int]int)
	for i := range notes {
		note := &notes[i]
		if j, ok := last[note.Pitch]; ok {
			prev := &notes[j]
			if prev.OnsetTicks+prev.DurationTicks > note.OnsetTicks {
				d := note.OnsetTicks - prev.OnsetTicks
				if d <= 0 {
					d = smallest
				}
				prev.DurationTicks = d
			}
		}
		last[note.Pitch] = i
	}
}

// shapeVelocity gives bigger chords more weight, smoothed over time, and
// pulls the extremes of the keyboard towards a middle velocity. Notes must
// be ordered by onset.
func shapeVelocity(notes []model.Note, chordSizes map[int]int, smoothing float64) {
	v := -1.0
	onset := -1
	for i := range notes {
		note := &notes[i]
		if note.OnsetTicks != onset || v < 0 {
			onset = note.OnsetTicks
			target := chordVelocity(chordSizes[onset])
			if v < 0 {
				v = target
			} else {
				v = smoothing*v + (1-smoothing)*target
			}
		}
		note.Velocity = taper(note.Pitch, v)
	}
}

// chordVelocity maps a chord size to [0.3, 0.8)
func chordVelocity(size int) float64 {
	if size < 1 {
		size = 1
	}
	return minChordVelocity + (maxChordVelocity-minChordVelocity)*(1-1/float64(size))
}

// taper narrows the distance of v from 0.5 with a cosine over the piano
// range: full in the middle, none at either end.
func taper(pitch int, v float64) float64 {
	span := float64(constants.PianoHigh - constants.PianoLow)
	x := util.Clamp(float64(pitch-constants.PianoLow)/span, 0, 1)
	return 0.5 + (v-0.5)*math.Cos(math.Pi*(x-0.5))
}
