package constants

import "os"

func GetOutDir() string {
	path := os.Getenv("OUT_PATH")
	if path != "" {
		return path
	}
	return "./out"
}

// GetMediaDir returns the directory serve retrains from. Unlike the CLI,
// the server can start without one, so an empty string means unset.
func GetMediaDir() string {
	return os.Getenv("MEDIA_PATH")
}

func GetConfigPath() string {
	path := os.Getenv("IMPROV_CONFIG")
	if path != "" {
		return path
	}
	return "./improv.json"
}

// 4 beats to a whole note
const BeatsPerWhole = 4

// highest order a Context can hold
const MaxOrder = 12

const MinPitch = 0
const MaxPitch = 127

// lowest and highest key of an 88-key piano
const PianoLow = 21
const PianoHigh = 108

const DefaultTempo = 90
const DefaultMaxNotes = 500
