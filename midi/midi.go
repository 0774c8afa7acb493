package midi

import (
	"bytes"
	"io"
	"os"
	"path/filepath"

	"github.com/jsphweid/improv/ingest"
	"github.com/jsphweid/improv/model"
	"github.com/jsphweid/improv/theory"
	"github.com/pkg/errors"
	"gitlab.com/gomidi/midi/v2/smf"
)

const percussionChannel = 9

func ReadMidiFile(path string) (model.Document, error) {
	dat, err := os.ReadFile(path)
	if err != nil {
		return model.Document{}, &ingest.DecodeError{File: path, Err: errors.Wrap(err, "reading midi file")}
	}
	return Decode(bytes.NewReader(dat), filepath.Base(path))
}

// Decode parses a standard MIDI file into a Document. Notes are paired
// per track, channel and key; notes still sounding at the end of a track
// end there.
func Decode(r io.Reader, name string) (doc model.Document, e error) {
	// handle panics
	// https://github.com/gomidi/midi/issues/20
	defer func() {
		if r := recover(); r != nil {
			e = &ingest.DecodeError{File: name, Err: errors.Errorf("codec panic: %v", r)}
		}
	}()

	s, err := smf.ReadFrom(r)
	if err != nil {
		return model.Document{}, &ingest.DecodeError{File: name, Err: errors.Wrap(err, "parsing midi file")}
	}

	ticks, ok := s.TimeFormat.(smf.MetricTicks)
	if !ok {
		return model.Document{}, &ingest.DecodeError{File: name, Err: errors.New("SMPTE time format is not supported")}
	}

	doc.Name = name
	doc.Resolution = int(ticks.Resolution())
	for _, events := range s.Tracks {
		tracks, keys := decodeTrack(events)
		doc.KeySignatures = append(doc.KeySignatures, keys...)
		doc.Tracks = append(doc.Tracks, tracks...)
	}
	return doc, nil
}

type noteKey struct {
	channel uint8
	key     uint8
}

// decodeTrack splits one SMF track into one Track per channel, in order of
// each channel's first note, so drums sharing a format 0 track with melodic
// parts are flagged on their own. A track without notes still yields one
// empty Track.
func decodeTrack(events smf.Track) ([]model.Track, []model.KeySignature) {
	var name string
	var keys []model.KeySignature
	var channels []uint8
	byChannel := make(map[uint8]*model.Track)
	pressed := make(map[noteKey][]int)

	trackFor := func(channel uint8) *model.Track {
		t, ok := byChannel[channel]
		if !ok {
			t = &model.Track{Channel: int(channel), IsPercussion: channel == percussionChannel}
			byChannel[channel] = t
			channels = append(channels, channel)
		}
		return t
	}

	var absTicks int
	for _, event := range events {
		absTicks += int(event.Delta)
		var channel, key, velocity uint8
		var sharpsFlats uint8
		var isMajor, isFlat bool
		switch {
		case event.Message.GetNoteOn(&channel, &key, &velocity) && velocity > 0:
			nk := noteKey{channel, key}
			pressed[nk] = append(pressed[nk], absTicks)
			trackFor(channel)
		case event.Message.GetNoteOn(&channel, &key, &velocity),
			event.Message.GetNoteOff(&channel, &key, &velocity):
			nk := noteKey{channel, key}
			onsets := pressed[nk]
			if len(onsets) == 0 {
				continue
			}
			t := trackFor(channel)
			t.Notes = append(t.Notes, model.TrackNote{
				OnsetTicks:    onsets[0],
				DurationTicks: absTicks - onsets[0],
				Pitch:         int(key),
			})
			pressed[nk] = onsets[1:]
		case event.Message.GetMetaKeySig(nil, &sharpsFlats, &isMajor, &isFlat):
			sf := int(sharpsFlats)
			if isFlat {
				sf = -sf
			}
			keys = append(keys, theory.KeyFromSignature(sf, !isMajor))
		case event.Message.GetMetaTrackName(&name):
		}
	}

	// close anything left hanging at the end of the track
	for nk, onsets := range pressed {
		t := trackFor(nk.channel)
		for _, onset := range onsets {
			t.Notes = append(t.Notes, model.TrackNote{
				OnsetTicks:    onset,
				DurationTicks: absTicks - onset,
				Pitch:         int(nk.key),
			})
		}
	}

	if len(channels) == 0 {
		return []model.Track{{Name: name}}, keys
	}
	tracks := make([]model.Track, 0, len(channels))
	for _, channel := range channels {
		t := byChannel[channel]
		t.Name = name
		tracks = append(tracks, *t)
	}
	return tracks, keys
}
