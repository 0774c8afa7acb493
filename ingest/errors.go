package ingest

import "fmt"

// DecodeError reports a MIDI document that could not be read or that holds
// values outside of what MIDI allows.
type DecodeError struct {
	File string
	Err  error
}

func (e *DecodeError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("decode: %v", e.Err)
	}
	return fmt.Sprintf("decode %s: %v", e.File, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
