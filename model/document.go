package model

type Mode string

const (
	Major Mode = "major"
	Minor Mode = "minor"
)

type KeySignature struct {
	Key  string
	Mode Mode
}

type TrackNote struct {
	OnsetTicks    int
	DurationTicks int
	Pitch         int
}

// Track holds the notes of one channel of one SMF track.
type Track struct {
	Name         string
	Channel      int
	IsPercussion bool
	Notes        []TrackNote
}

// Document is a decoded MIDI file.
type Document struct {
	Name          string
	Resolution    int
	KeySignatures []KeySignature
	Tracks        []Track
}

// Song is a generated note stream plus the metadata the encoder needs.
type Song struct {
	Resolution int
	TempoBPM   float64
	Key        string
	Mode       Mode
	Notes      []Note
}
