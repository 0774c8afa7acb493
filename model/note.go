package model

// NoteEvent is a single quantized note as read from one input file.
type NoteEvent struct {
	OnsetTicks    int
	Pitch         int
	DurationTicks int
}

// State is the symbol the markov chain is trained on.
//
// Delta is the distance to the next note of the same file (zero inside a
// chord). ChordDelta is the distance from the note's onset to the next
// distinct onset and is shared by every member of a chord.
type State struct {
	Pitch      int32
	Delta      int32
	Duration   int32
	ChordDelta int32
}

type Note struct {
	OnsetTicks    int
	Pitch         int
	DurationTicks int

	// 0..1, scaled to a MIDI velocity on encode
	Velocity float64
}
