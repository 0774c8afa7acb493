// Package improviser learns a markov model from MIDI documents and renders
// new songs from it.
//
// An Improviser is not safe for concurrent use; callers serialize Train
// and Generate calls on one instance.
package improviser

import (
	"math/rand"
	"time"

	"github.com/jsphweid/improv/config"
	"github.com/jsphweid/improv/ingest"
	"github.com/jsphweid/improv/markov"
	"github.com/jsphweid/improv/model"
	"github.com/jsphweid/improv/quantize"
	"github.com/jsphweid/improv/sequence"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

var ErrInvalidArgument = errors.New("invalid argument")

type Improviser struct {
	cfg       *config.Config
	quantizer *quantize.Quantizer
	ingestor  *ingest.Ingestor
	builder   *sequence.Builder
	engine    *markov.Engine
	rng       *rand.Rand
}

func New(cfg *config.Config) (*Improviser, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(ErrInvalidArgument, err.Error())
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	q := quantize.New(cfg.Resolution, cfg.Subdivisions, cfg.ForbiddenNumerators)
	im := &Improviser{
		cfg:       cfg,
		quantizer: q,
		ingestor:  ingest.New(q, cfg.Resolution),
		builder:   sequence.New(q, cfg.ChordAware),
		rng:       rand.New(rand.NewSource(seed)),
	}

	engine, err := im.newEngine(cfg.Order)
	if err != nil {
		return nil, err
	}
	im.engine = engine
	return im, nil
}

func (im *Improviser) newEngine(order int) (*markov.Engine, error) {
	return markov.New(order, markov.Options{
		ReinforcementCeiling: im.cfg.ReinforcementCeiling,
		Rand:                 im.rng,
	})
}

// Reset forgets everything learned
func (im *Improviser) Reset() {
	im.engine.Reset()
}

func (im *Improviser) SetOrder(order int, reset bool) error {
	if err := im.engine.SetOrder(order, reset); err != nil {
		return errors.Wrap(ErrInvalidArgument, err.Error())
	}
	return nil
}

func (im *Improviser) Order() int {
	return im.engine.Order()
}

func (im *Improviser) Config() *config.Config {
	return im.cfg
}

func (im *Improviser) Quantizer() *quantize.Quantizer {
	return im.quantizer
}

func (im *Improviser) Stats() markov.Stats {
	return im.engine.Stats()
}

// Transitions returns the outgoing counts of c, nil if c was never seen
func (im *Improviser) Transitions(c markov.Context) map[markov.Context]int {
	return im.engine.Transitions(c)
}

// Weights returns the total outgoing weight of every learned context
func (im *Improviser) Weights() map[markov.Context]int {
	return im.engine.Weights()
}

// Parse ingests every document and returns one state sequence per document.
// The first malformed document aborts the whole call.
func (im *Improviser) Parse(docs []model.Document) ([][]model.State, error) {
	logger := log.WithFields(log.Fields{
		"function": "Improviser.Parse",
	})

	sequences := make([][]model.State, 0, len(docs))
	for _, doc := range docs {
		events, err := im.ingestor.Ingest(doc)
		if err != nil {
			return nil, err
		}
		states := im.builder.Build(events)
		logger.Debugf("%s: %d notes, %d states", doc.Name, len(events), len(states))
		sequences = append(sequences, states)
	}
	return sequences, nil
}

// Train replaces the model with one learned from docs. Every document is
// parsed before the model is touched, so a failure leaves the previous
// model in place.
func (im *Improviser) Train(docs []model.Document) error {
	logger := log.WithFields(log.Fields{
		"function": "Improviser.Train",
		"order":    im.Order(),
	})

	sequences, err := im.Parse(docs)
	if err != nil {
		return err
	}

	im.engine.Reset()
	var states int
	for _, seq := range sequences {
		im.engine.Build(seq)
		states += len(seq)
	}

	stats := im.engine.Stats()
	if stats.Contexts == 0 {
		logger.Warnf("Trained on %d files but learned nothing; files need more than %d notes", len(docs), im.Order()+1)
		return nil
	}
	logger.Infof("Trained on %d files: %d states, %d contexts, %d transitions",
		len(docs), states, stats.Contexts, stats.Transitions)
	return nil
}
