// Package theory holds the little music theory the improviser needs: pitch
// names, the transposition that normalizes a key to C major / A minor, and a
// correction table that pulls any pitch into a diatonic key.
package theory

import (
	"github.com/jsphweid/improv/constants"
	"github.com/jsphweid/improv/model"
)

var pitchNames = map[string]int{
	"C":  0,
	"C#": 1,
	"Db": 1,
	"D":  2,
	"D#": 3,
	"Eb": 3,
	"E":  4,
	"F":  5,
	"F#": 6,
	"Gb": 6,
	"G":  7,
	"G#": 8,
	"Ab": 8,
	"A":  9,
	"A#": 10,
	"Bb": 10,
	"B":  11,
}

var keyNames = [12]string{"C", "C#", "D", "Eb", "E", "F", "F#", "G", "Ab", "A", "Bb", "B"}

// correction by interval above the tonic
var corrections = map[model.Mode][12]int{
	model.Major: {0, -1, 0, +1, 0, 0, +1, 0, -1, 0, +1, 0},
	model.Minor: {0, -1, 0, 0, -1, 0, +1, 0, 0, -1, 0, -1},
}

var orderedNames = []string{"C", "C#", "Db", "D", "D#", "Eb", "E", "F", "F#", "Gb", "G", "G#", "Ab", "A", "A#", "Bb", "B"}

// PitchNames lists every accepted key name in chromatic order
func PitchNames() []string {
	return append([]string(nil), orderedNames...)
}

func PitchClass(name string) (int, bool) {
	pc, ok := pitchNames[name]
	return pc, ok
}

func KeyName(pc int) string {
	return keyNames[mod12(pc)]
}

func ValidMode(mode model.Mode) bool {
	_, ok := corrections[mode]
	return ok
}

// TranspositionInterval returns the interval that moves key to C major (or A
// minor), picking the direction with the smaller absolute value. Unknown or
// missing keys do not transpose.
func TranspositionInterval(key string, mode model.Mode) int {
	pc, ok := PitchClass(key)
	if !ok || !ValidMode(mode) {
		return 0
	}
	target := 0
	if mode == model.Minor {
		target = -3
	}
	a := target - pc
	b := a + 12
	if abs(a) < abs(b) {
		return a
	}
	return b
}

// KeyFromSignature converts an SMF key signature (count of sharps when
// positive, flats when negative) to a tonic name.
func KeyFromSignature(sharpsFlats int, minor bool) model.KeySignature {
	tonic := mod12(sharpsFlats * 7)
	mode := model.Major
	if minor {
		tonic = mod12(tonic + 9)
		mode = model.Minor
	}
	return model.KeySignature{Key: KeyName(tonic), Mode: mode}
}

// SharpsFlats is the inverse of KeyFromSignature, preferring flats for
// tonics that are conventionally written with them.
func SharpsFlats(key string, mode model.Mode) int {
	pc, ok := PitchClass(key)
	if !ok {
		return 0
	}
	if mode == model.Minor {
		pc = mod12(pc + 3)
	}
	// pc = 7*sf mod 12, and 7 is its own inverse mod 12
	sf := mod12(pc * 7)
	if sf > 6 {
		sf -= 12
	}
	return sf
}

// Conform moves pitch to the nearest degree of the diatonic scale built on
// tonic, keeping the result inside the MIDI range.
func Conform(pitch, tonic int, mode model.Mode) int {
	table, ok := corrections[mode]
	if !ok {
		return pitch
	}
	p := pitch + table[mod12(pitch-tonic)]
	if p > constants.MaxPitch {
		p -= 12
	}
	if p < constants.MinPitch {
		p += 12
	}
	return p
}

func InKey(pitch, tonic int, mode model.Mode) bool {
	table, ok := corrections[mode]
	return ok && table[mod12(pitch-tonic)] == 0
}

// Transpose moves a pitch class by interval, wrapping around the octave
func Transpose(pc, interval int) int {
	return mod12(pc + interval)
}

func mod12(v int) int {
	return ((v % 12) + 12) % 12
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
