package improviser

import (
	"github.com/jsphweid/improv/markov"
	"github.com/jsphweid/improv/midi"
	"github.com/jsphweid/improv/model"
	log "github.com/sirupsen/logrus"
)

// Stage is one pass of a refinement pipeline: the engine used for the pass
// and the states it generated.
type Stage struct {
	Order  int
	Engine *markov.Engine
	Output []model.State
}

// EngineFactory returns a fresh, empty engine of the given order
type EngineFactory func(order int) (*markov.Engine, error)

// Refine runs bootstrap, then repeatedly trains a fresh engine one order
// higher on the previous stage's output and runs that, until maxOrder is
// reached. It stops early when a stage's output is too short to train the
// next order. The last stage holds the final output.
func Refine(bootstrap *markov.Engine, factory EngineFactory, maxOrder, steps int, opts markov.RunOptions) ([]Stage, error) {
	logger := log.WithFields(log.Fields{
		"function": "Refine",
	})

	var stages []Stage
	engine := bootstrap
	for {
		out, err := engine.Run(steps, opts, nil)
		if err != nil {
			return stages, err
		}
		stages = append(stages, Stage{Order: engine.Order(), Engine: engine, Output: out})
		logger.Debugf("Stage at order %d produced %d states", engine.Order(), len(out))

		if engine.Order() >= maxOrder {
			break
		}
		next, err := factory(engine.Order() + 1)
		if err != nil {
			return stages, err
		}
		next.Build(out)
		if next.Empty() {
			logger.Debugf("Stopping before order %d, output too short", next.Order())
			break
		}
		engine = next
	}
	return stages, nil
}

// GenerateRecursively is Generate with multi-pass refinement up to the
// configured max order.
func (im *Improviser) GenerateRecursively(opts GenerateOptions) ([]byte, error) {
	song, _, err := im.GenerateSongRecursively(opts)
	if err != nil {
		return nil, err
	}
	return midi.Encode(song)
}

// GenerateSongRecursively bootstraps from a copy of the trained model, so
// the trained model itself is never modified.
func (im *Improviser) GenerateSongRecursively(opts GenerateOptions) (*model.Song, []Stage, error) {
	if err := opts.Validate(); err != nil {
		return nil, nil, err
	}

	runOpts := markov.RunOptions{Reinforcement: opts.Reinforcement}
	stages, err := Refine(im.engine.Clone(), im.newEngine, im.cfg.MaxOrder, opts.MaxNotes, runOpts)
	if err != nil {
		return nil, stages, err
	}

	r := newRenderer(opts)
	for _, s := range stages[len(stages)-1].Output {
		r.place(s)
	}
	return im.finish(opts, r), stages, nil
}
