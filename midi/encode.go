package midi

import (
	"bytes"
	"math"
	"sort"

	"github.com/jsphweid/improv/model"
	"github.com/jsphweid/improv/theory"
	"github.com/jsphweid/improv/util"
	"github.com/pkg/errors"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

type noteEdge struct {
	tick     int
	on       bool
	pitch    uint8
	velocity uint8
}

// Encode writes song as a two track SMF: a conductor track with meter,
// tempo and key, and one track holding the notes on channel 1.
func Encode(song *model.Song) ([]byte, error) {
	if song.Resolution <= 0 || song.Resolution > math.MaxUint16 {
		return nil, errors.Errorf("resolution out of range: %d", song.Resolution)
	}

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(song.Resolution)

	var conductor smf.Track
	conductor.Add(0, smf.MetaMeter(4, 4))
	conductor.Add(0, smf.MetaTempo(song.TempoBPM))
	if song.Key != "" {
		conductor.Add(0, keySignature(song.Key, song.Mode))
	}
	conductor.Close(0)
	if err := s.Add(conductor); err != nil {
		return nil, errors.Wrap(err, "adding conductor track")
	}

	var track smf.Track
	var last int
	for _, edge := range noteEdges(song.Notes) {
		delta := uint32(edge.tick - last)
		if edge.on {
			track.Add(delta, gomidi.NoteOn(0, edge.pitch, edge.velocity))
		} else {
			track.Add(delta, gomidi.NoteOff(0, edge.pitch))
		}
		last = edge.tick
	}
	track.Close(0)
	if err := s.Add(track); err != nil {
		return nil, errors.Wrap(err, "adding note track")
	}

	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		return nil, errors.Wrap(err, "writing midi file")
	}
	return buf.Bytes(), nil
}

// noteEdges flattens notes into on/off edges ordered by tick, releasing
// notes before striking new ones on the same tick.
func noteEdges(notes []model.Note) []noteEdge {
	edges := make([]noteEdge, 0, len(notes)*2)
	for _, n := range notes {
		pitch := uint8(util.Clamp(n.Pitch, 0, 127))
		edges = append(edges,
			noteEdge{tick: n.OnsetTicks, on: true, pitch: pitch, velocity: Velocity(n.Velocity)},
			noteEdge{tick: n.OnsetTicks + n.DurationTicks, on: false, pitch: pitch},
		)
	}
	sort.SliceStable(edges, func(i, j int) bool {
		if edges[i].tick != edges[j].tick {
			return edges[i].tick < edges[j].tick
		}
		return !edges[i].on && edges[j].on
	})
	return edges
}

// Velocity maps 0..1 to a MIDI velocity that still sounds
func Velocity(v float64) uint8 {
	return uint8(util.Clamp(int(math.Round(v*127)), 1, 127))
}

func keySignature(key string, mode model.Mode) smf.Message {
	sf := theory.SharpsFlats(key, mode)
	return smf.MetaKey(0, mode != model.Minor, uint8(util.Abs(sf)), sf < 0)
}
