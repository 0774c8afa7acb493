package improviser

import (
	"sort"

	"github.com/jsphweid/improv/constants"
	"github.com/jsphweid/improv/markov"
	"github.com/jsphweid/improv/midi"
	"github.com/jsphweid/improv/model"
	"github.com/jsphweid/improv/theory"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type GenerateOptions struct {
	MaxNotes int
	TempoBPM float64
	Key      string
	Mode     model.Mode

	// 0..1, how strongly a run favours transitions it already took
	Reinforcement float64

	// pull every pitch into the requested key
	EnforceKey bool
}

func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{
		MaxNotes: constants.DefaultMaxNotes,
		TempoBPM: constants.DefaultTempo,
		Key:      "C",
		Mode:     model.Major,
	}
}

func (o GenerateOptions) Validate() error {
	if o.MaxNotes <= 0 {
		return errors.Wrapf(ErrInvalidArgument, "max notes must be positive, got %d", o.MaxNotes)
	}
	if o.TempoBPM <= 0 {
		return errors.Wrapf(ErrInvalidArgument, "tempo must be positive, got %v", o.TempoBPM)
	}
	if _, ok := theory.PitchClass(o.Key); !ok {
		return errors.Wrapf(ErrInvalidArgument, "unknown key %q", o.Key)
	}
	if !theory.ValidMode(o.Mode) {
		return errors.Wrapf(ErrInvalidArgument, "mode must be major or minor, got %q", o.Mode)
	}
	if o.Reinforcement < 0 || o.Reinforcement > 1 {
		return errors.Wrapf(ErrInvalidArgument, "reinforcement must be in [0, 1], got %v", o.Reinforcement)
	}
	return nil
}

// Generate renders a new song and encodes it as a standard MIDI file
func (im *Improviser) Generate(opts GenerateOptions) ([]byte, error) {
	song, err := im.GenerateSong(opts)
	if err != nil {
		return nil, err
	}
	return midi.Encode(song)
}

func (im *Improviser) GenerateSong(opts GenerateOptions) (*model.Song, error) {
	logger := log.WithFields(log.Fields{
		"function": "Improviser.GenerateSong",
		"order":    im.Order(),
	})

	if err := opts.Validate(); err != nil {
		return nil, err
	}

	r := newRenderer(opts)
	_, err := im.engine.Run(opts.MaxNotes, markov.RunOptions{Reinforcement: opts.Reinforcement}, r.place)
	if err != nil {
		return nil, err
	}

	song := im.finish(opts, r)
	logger.Debugf("Generated %d notes", len(song.Notes))
	return song, nil
}

func (im *Improviser) finish(opts GenerateOptions, r *renderer) *model.Song {
	applyLegato(r.notes, im.quantizer.Quantum())
	shapeVelocity(r.notes, r.chordSizes, im.cfg.VelocitySmoothing)
	sortNotes(r.notes)

	return &model.Song{
		Resolution: im.cfg.Resolution,
		TempoBPM:   opts.TempoBPM,
		Key:        opts.Key,
		Mode:       opts.Mode,
		Notes:      r.notes,
	}
}

// renderer places predicted states on a timeline
type renderer struct {
	transp  int
	tonic   int
	mode    model.Mode
	enforce bool

	cursor     int
	notes      []model.Note
	chordSizes map[int]int
	struck     map[int]map[int]bool
}

func newRenderer(opts GenerateOptions) *renderer {
	tonic, _ := theory.PitchClass(opts.Key)
	return &renderer{
		transp:     theory.TranspositionInterval(opts.Key, opts.Mode),
		tonic:      tonic,
		mode:       opts.Mode,
		enforce:    opts.EnforceKey,
		chordSizes: make(map[int]int),
		struck:     make(map[int]map[int]bool),
	}
}

func (r *renderer) place(s model.State) {
	pitch := int(s.Pitch) - r.transp
	if r.enforce {
		pitch = theory.Conform(pitch, r.tonic, r.mode)
	}
	for pitch > constants.MaxPitch {
		pitch -= 12
	}
	for pitch < constants.MinPitch {
		pitch += 12
	}

	// no unisons
	if !r.struck[r.cursor][pitch] {
		if r.struck[r.cursor] == nil {
			r.struck[r.cursor] = make(map[int]bool)
		}
		r.struck[r.cursor][pitch] = true
		r.chordSizes[r.cursor]++
		r.notes = append(r.notes, model.Note{
			OnsetTicks:    r.cursor,
			Pitch:         pitch,
			DurationTicks: int(s.Duration),
		})
	}
	r.cursor += int(s.Delta)
}

func sortNotes(notes []model.Note) {
	sort.SliceStable(notes, func(i, j int) bool {
		if notes[i].OnsetTicks != notes[j].OnsetTicks {
			return notes[i].OnsetTicks < notes[j].OnsetTicks
		}
		return notes[i].Pitch < notes[j].Pitch
	})
}
