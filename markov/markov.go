// Package markov implements a variable order markov chain over note states.
//
// An Engine owns one transition table and one set of context weights. Build
// accumulates into them; Reset clears them. Build must not run concurrently
// with any other call on the same Engine. Run never touches the trained
// table: reinforcement is applied to a per-run overlay.
package markov

import (
	"math"
	"math/rand"
	"time"

	"github.com/jsphweid/improv/constants"
	"github.com/jsphweid/improv/model"
	"github.com/jsphweid/improv/util"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

var ErrEmptyModel = errors.New("markov: model is empty, build it before running")

const DefaultReinforcementCeiling = 2.0 / 3.0

type Options struct {
	// defaults to DefaultReinforcementCeiling
	ReinforcementCeiling float64

	// defaults to a clock seeded source
	Rand *rand.Rand
}

// row keeps counts together with the order keys were first seen in, so that
// a seeded source always produces the same draws.
type row struct {
	keys   []Context
	counts map[Context]int
}

func newRow() *row {
	return &row{counts: make(map[Context]int)}
}

func (r *row) add(c Context, n int) {
	if _, ok := r.counts[c]; !ok {
		r.keys = append(r.keys, c)
	}
	r.counts[c] += n
}

func (r *row) clone() *row {
	res := &row{
		keys:   append([]Context(nil), r.keys...),
		counts: make(map[Context]int, len(r.counts)),
	}
	for k, v := range r.counts {
		res.counts[k] = v
	}
	return res
}

type Engine struct {
	order   int
	table   map[Context]*row
	weights *row
	ceiling float64
	rng     *rand.Rand
}

func New(order int, opts Options) (*Engine, error) {
	if err := validateOrder(order); err != nil {
		return nil, err
	}
	if opts.ReinforcementCeiling == 0 {
		opts.ReinforcementCeiling = DefaultReinforcementCeiling
	}
	if opts.ReinforcementCeiling < 0 || opts.ReinforcementCeiling >= 1 {
		return nil, errors.Errorf("markov: reinforcement ceiling must be in (0, 1), got %v", opts.ReinforcementCeiling)
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	e := &Engine{
		order:   order,
		ceiling: opts.ReinforcementCeiling,
		rng:     opts.Rand,
	}
	e.Reset()
	return e, nil
}

func (e *Engine) Reset() {
	e.table = make(map[Context]*row)
	e.weights = newRow()
}

// SetOrder changes the context width. Contexts built at the old order stay
// in the table unless reset is set, so callers should only skip the reset
// when they mean to mix orders.
func (e *Engine) SetOrder(order int, reset bool) error {
	if err := validateOrder(order); err != nil {
		return err
	}
	if reset {
		e.Reset()
	}
	e.order = order
	return nil
}

func (e *Engine) Order() int {
	return e.order
}

func (e *Engine) Empty() bool {
	return len(e.weights.keys) == 0
}

// Build slides a window of Order states over seq, counting each window and
// each transition between consecutive windows. Sequences of Order states or
// fewer add nothing.
func (e *Engine) Build(seq []model.State) {
	numFrames := len(seq) - e.order
	var prev Context
	hasPrev := false

	for i := 0; i < numFrames; i++ {
		curr := NewContext(seq[i : i+e.order]...)
		if _, ok := e.table[curr]; !ok {
			e.table[curr] = newRow()
			e.weights.add(curr, 0)
		}
		if hasPrev {
			e.table[prev].add(curr, 1)
		}
		e.weights.add(curr, 1)
		prev, hasPrev = curr, true
	}
}

// Clone returns an independent copy of the trained model sharing the
// random source.
func (e *Engine) Clone() *Engine {
	res := &Engine{
		order:   e.order,
		table:   make(map[Context]*row, len(e.table)),
		weights: e.weights.clone(),
		ceiling: e.ceiling,
		rng:     e.rng,
	}
	for k, r := range e.table {
		res.table[k] = r.clone()
	}
	return res
}

func (e *Engine) Weight(c Context) int {
	return e.weights.counts[c]
}

func (e *Engine) Weights() map[Context]int {
	res := make(map[Context]int, len(e.weights.counts))
	for k, v := range e.weights.counts {
		res[k] = v
	}
	return res
}

// Transitions returns the outgoing counts of c, nil if c was never seen
func (e *Engine) Transitions(c Context) map[Context]int {
	r, ok := e.table[c]
	if !ok {
		return nil
	}
	res := make(map[Context]int, len(r.counts))
	for k, v := range r.counts {
		res[k] = v
	}
	return res
}

type Stats struct {
	Order       int
	Contexts    int
	Transitions int
	DeadEnds    int
	TotalWeight int
}

func (e *Engine) Stats() Stats {
	s := Stats{Order: e.order, Contexts: len(e.weights.keys)}
	for _, r := range e.table {
		s.Transitions += len(r.keys)
		if len(r.keys) == 0 {
			s.DeadEnds++
		}
	}
	for _, w := range e.weights.counts {
		s.TotalWeight += w
	}
	return s
}

type RunOptions struct {
	// exponent of the boost applied to a chosen edge, 0 disables it
	Reinforcement float64

	// stop at the first dead end instead of restarting from the weights
	NoRestart bool
}

// Run walks the chain for up to maxSteps transitions, emitting the oldest
// state of every context it leaves. With a nil emit the states are
// collected and returned instead.
//
// A context without outgoing transitions restarts the walk from the context
// weights without consuming a step, or ends it when NoRestart is set or no
// context has any transition at all.
func (e *Engine) Run(maxSteps int, opts RunOptions, emit func(model.State)) ([]model.State, error) {
	logger := log.WithFields(log.Fields{
		"function": "Engine.Run",
		"order":    e.order,
	})

	if e.Empty() {
		return nil, ErrEmptyModel
	}

	var out []model.State
	if emit == nil {
		emit = func(s model.State) {
			out = append(out, s)
		}
	}

	work := make(overlay)
	live := e.hasTransitions()
	current := e.pickInitial()
	restarts := 0

	for step := 0; step < maxSteps; {
		base := e.table[current]
		if base == nil || len(base.keys) == 0 {
			if opts.NoRestart || !live {
				break
			}
			current = e.pickInitial()
			restarts++
			continue
		}

		weights := work.weights(current, base)
		i := Choose(e.rng, weights)
		next := base.keys[i]

		emit(current.First())

		if opts.Reinforcement > 0 && len(base.keys) > 1 {
			work.reinforce(current, next, weights[i], weights, opts.Reinforcement, e.ceiling)
		}

		current = next
		step++
	}

	logger.Debugf("Finished run with %d restarts", restarts)
	return out, nil
}

func (e *Engine) pickInitial() Context {
	weights := make([]float64, len(e.weights.keys))
	for i, k := range e.weights.keys {
		weights[i] = float64(e.weights.counts[k])
	}
	return e.weights.keys[Choose(e.rng, weights)]
}

func (e *Engine) hasTransitions() bool {
	for _, r := range e.table {
		if len(r.keys) > 0 {
			return true
		}
	}
	return false
}

// overlay holds the working weight of every edge reinforced during one run.
// Edges missing from it still carry their trained count.
type overlay map[Context]map[Context]float64

func (o overlay) weights(from Context, base *row) []float64 {
	boosted := o[from]
	res := make([]float64, len(base.keys))
	for i, k := range base.keys {
		if w, ok := boosted[k]; ok {
			res[i] = w
		} else {
			res[i] = float64(base.counts[k])
		}
	}
	return res
}

// reinforce multiplies the chosen edge by 2^factor while its share of the
// outgoing weight is below ceiling, capping it so the share after the boost
// is at most ceiling.
func (o overlay) reinforce(from, to Context, chosen float64, weights []float64, factor, ceiling float64) {
	sum := util.Sum(weights)
	if chosen/sum >= ceiling {
		return
	}

	boosted := chosen * math.Pow(2, factor)
	limit := ceiling * (sum - chosen) / (1 - ceiling)
	if o[from] == nil {
		o[from] = make(map[Context]float64)
	}
	o[from][to] = math.Min(boosted, limit)
}

func validateOrder(order int) error {
	if order < 1 || order > constants.MaxOrder {
		return errors.Errorf("markov: order must be in [1, %d], got %d", constants.MaxOrder, order)
	}
	return nil
}
