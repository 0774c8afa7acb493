package sequence

import (
	"github.com/jsphweid/improv/model"
	"github.com/jsphweid/improv/quantize"
)

// Builder converts one file's sorted note events into the state sequence the
// markov engine is trained on.
type Builder struct {
	quantizer  *quantize.Quantizer
	chordAware bool
}

func New(q *quantize.Quantizer, chordAware bool) *Builder {
	return &Builder{quantizer: q, chordAware: chordAware}
}

// Build expects events sorted by onset then pitch. Notes sharing an onset
// form a chord; repeated pitches within a chord are dropped. The last note
// has no successor and yields no state.
func (b *Builder) Build(events []model.NoteEvent) []model.State {
	events = Dedupe(events)
	if len(events) < 2 {
		return nil
	}
	nextOnsets := nextDistinctOnsets(events)

	states := make([]model.State, 0, len(events)-1)
	for i := 0; i < len(events)-1; i++ {
		note := events[i]
		state := model.State{
			Pitch:    int32(note.Pitch),
			Delta:    int32(b.quantizer.Nearest(events[i+1].OnsetTicks-note.OnsetTicks, true)),
			Duration: int32(note.DurationTicks),
		}
		if b.chordAware && nextOnsets[i] >= 0 {
			state.ChordDelta = int32(b.quantizer.Nearest(nextOnsets[i]-note.OnsetTicks, false))
		}
		states = append(states, state)
	}
	return states
}

// Dedupe drops events repeating the pitch of an earlier event at the same
// onset. Input must be sorted by onset then pitch.
func Dedupe(events []model.NoteEvent) []model.NoteEvent {
	res := make([]model.NoteEvent, 0, len(events))
	for i, e := range events {
		if i > 0 && e.OnsetTicks == events[i-1].OnsetTicks && e.Pitch == events[i-1].Pitch {
			continue
		}
		res = append(res, e)
	}
	return res
}

// nextDistinctOnsets returns, per event, the first later onset that differs
// from its own, or -1.
func nextDistinctOnsets(events []model.NoteEvent) []int {
	res := make([]int, len(events))
	next := -1
	for i := len(events) - 1; i >= 0; i-- {
		res[i] = next
		if i > 0 && events[i-1].OnsetTicks != events[i].OnsetTicks {
			next = events[i].OnsetTicks
		}
	}
	return res
}
