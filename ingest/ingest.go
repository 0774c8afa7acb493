package ingest

import (
	"math"
	"sort"

	"github.com/jsphweid/improv/constants"
	"github.com/jsphweid/improv/model"
	"github.com/jsphweid/improv/quantize"
	"github.com/jsphweid/improv/theory"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Ingestor turns a decoded document into quantized note events at a common
// resolution, normalized to C major / A minor.
type Ingestor struct {
	quantizer  *quantize.Quantizer
	resolution int
}

func New(q *quantize.Quantizer, resolution int) *Ingestor {
	return &Ingestor{quantizer: q, resolution: resolution}
}

// Ingest processes one document. The result is built locally and only
// returned when the whole document was valid.
func (in *Ingestor) Ingest(doc model.Document) ([]model.NoteEvent, error) {
	logger := log.WithFields(log.Fields{
		"function": "Ingestor.Ingest",
		"file":     doc.Name,
	})

	if doc.Resolution <= 0 {
		return nil, &DecodeError{File: doc.Name, Err: errors.Errorf("invalid resolution %d", doc.Resolution)}
	}
	ratio := float64(in.resolution) / float64(doc.Resolution)
	transp := Transposition(doc)

	var events []model.NoteEvent
	var dropped int
	for t, track := range doc.Tracks {
		if track.IsPercussion {
			logger.Debugf("Skipping percussion track %d", t)
			continue
		}
		for _, note := range track.Notes {
			if err := validate(note); err != nil {
				return nil, &DecodeError{File: doc.Name, Err: errors.Wrapf(err, "track %d", t)}
			}

			pitch := note.Pitch + transp
			if pitch < constants.MinPitch || pitch > constants.MaxPitch {
				dropped++
				continue
			}

			onset := in.quantizer.Grid(scale(note.OnsetTicks, ratio))
			duration := in.quantizer.Grid(scale(note.DurationTicks, ratio))
			events = append(events, model.NoteEvent{
				OnsetTicks:    onset,
				Pitch:         pitch,
				DurationTicks: in.quantizer.Nearest(duration, false),
			})
		}
	}
	if dropped > 0 {
		logger.Debugf("Dropped %d notes transposed out of range", dropped)
	}

	SortEvents(events)
	return events, nil
}

// Transposition is the interval that moves the document's first declared key
// to C major / A minor. Without a key signature nothing is transposed.
func Transposition(doc model.Document) int {
	if len(doc.KeySignatures) == 0 {
		return 0
	}
	ks := doc.KeySignatures[0]
	return theory.TranspositionInterval(ks.Key, ks.Mode)
}

// SortEvents orders by onset, then pitch
func SortEvents(events []model.NoteEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].OnsetTicks != events[j].OnsetTicks {
			return events[i].OnsetTicks < events[j].OnsetTicks
		}
		return events[i].Pitch < events[j].Pitch
	})
}

func validate(note model.TrackNote) error {
	if note.Pitch < constants.MinPitch || note.Pitch > constants.MaxPitch {
		return errors.Errorf("pitch %d out of range", note.Pitch)
	}
	if note.OnsetTicks < 0 || note.DurationTicks < 0 {
		return errors.Errorf("negative ticks (onset %d, duration %d)", note.OnsetTicks, note.DurationTicks)
	}
	return nil
}

func scale(ticks int, ratio float64) int {
	return int(math.Floor(float64(ticks)*ratio + 0.5))
}
