package markov

import (
	"math/rand"
	"testing"

	"github.com/jsphweid/improv/model"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func st(pitch int32) model.State {
	return model.State{Pitch: pitch, Delta: 240, Duration: 240}
}

func newEngine(t *testing.T, order int, seed int64) *Engine {
	e, err := New(order, Options{Rand: rand.New(rand.NewSource(seed))})
	require.NoError(t, err)
	return e
}

func randomSequence(rng *rand.Rand, n int) []model.State {
	seq := make([]model.State, n)
	for i := range seq {
		seq[i] = st(int32(60 + rng.Intn(5)))
	}
	return seq
}

func TestBuildWeightsSumToFrames(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for order := 1; order <= 4; order++ {
		for _, n := range []int{order, order + 1, 10, 57} {
			e := newEngine(t, order, 1)
			e.Build(randomSequence(rng, n))

			total := 0
			for _, w := range e.Weights() {
				total += w
			}
			assert.Equal(t, n-order, total, "order %d, length %d", order, n)
		}
	}
}

func TestBuildOrderOneExample(t *testing.T) {
	e := newEngine(t, 1, 1)
	e.Build([]model.State{st(60), st(62), st(60)})

	a, b := NewContext(st(60)), NewContext(st(62))
	assert := assert.New(t)
	assert.Equal(map[Context]int{a: 1, b: 1}, e.Weights())
	assert.Equal(map[Context]int{b: 1}, e.Transitions(a))
	assert.Empty(e.Transitions(b))
	assert.Equal("[[60,240,240]]", a.String())
}

func TestBuildAccumulatesUntilReset(t *testing.T) {
	e := newEngine(t, 1, 1)
	seq := []model.State{st(60), st(62), st(64)}
	e.Build(seq)
	e.Build(seq)

	a, b := NewContext(st(60)), NewContext(st(62))
	assert := assert.New(t)
	assert.Equal(2, e.Weight(a))
	assert.Equal(map[Context]int{b: 2}, e.Transitions(a))

	e.Reset()
	assert.True(e.Empty())
	assert.Nil(e.Transitions(a))
}

func TestBuildDoesNotLinkSeparateCalls(t *testing.T) {
	e := newEngine(t, 1, 1)
	e.Build([]model.State{st(60), st(62), st(64)})
	e.Build([]model.State{st(70), st(72), st(74)})

	assert.Empty(t, e.Transitions(NewContext(st(62))))
}

func TestSetOrder(t *testing.T) {
	e := newEngine(t, 2, 1)
	e.Build([]model.State{st(60), st(62), st(64)})

	assert := assert.New(t)
	assert.Error(e.SetOrder(0, true))
	assert.Error(e.SetOrder(13, true))
	assert.Equal(2, e.Order())

	require.NoError(t, e.SetOrder(3, false))
	assert.False(e.Empty())
	require.NoError(t, e.SetOrder(1, true))
	assert.True(e.Empty())
	assert.Equal(1, e.Order())
}

func TestNewRejectsBadOptions(t *testing.T) {
	_, err := New(0, Options{})
	assert.Error(t, err)
	_, err = New(1, Options{ReinforcementCeiling: 1.5})
	assert.Error(t, err)
}

func TestChooseIsProportional(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	weights := []float64{1, 3}
	const draws = 200000
	hits := 0
	for i := 0; i < draws; i++ {
		if Choose(rng, weights) == 1 {
			hits++
		}
	}
	assert.InDelta(t, 0.75, float64(hits)/draws, 0.01)
}

func TestChooseSkipsZeroWeights(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 1000; i++ {
		assert.Equal(t, 1, Choose(rng, []float64{0, 2, 0}))
	}
	assert.Equal(t, -1, Choose(rng, []float64{0, 0}))
	assert.Equal(t, -1, Choose(rng, nil))
}

func TestRunEmptyModel(t *testing.T) {
	e := newEngine(t, 1, 1)
	_, err := e.Run(10, RunOptions{}, nil)
	assert.True(t, errors.Is(err, ErrEmptyModel))
}

func TestRunOnlyFollowsTrainedTransitions(t *testing.T) {
	e := newEngine(t, 1, 3)
	e.Build([]model.State{st(60), st(62), st(60), st(64), st(62), st(60), st(65)})

	out, err := e.Run(500, RunOptions{Reinforcement: 0.5}, nil)
	require.NoError(t, err)
	assert.Len(t, out, 500)

	weights := e.Weights()
	for i, s := range out {
		_, ok := weights[NewContext(s)]
		require.True(t, ok, "emitted untrained state %v", s)
		if i > 0 {
			prev := NewContext(out[i-1])
			// a restart may separate two emissions; otherwise the edge was trained
			if _, ok := e.Transitions(prev)[NewContext(s)]; !ok {
				assert.Empty(t, e.Transitions(prev), "untrained edge %v -> %v", out[i-1], s)
			}
		}
	}
}

func TestRunWithoutRestartStopsAtFirstDeadEnd(t *testing.T) {
	e := newEngine(t, 1, 1)
	// windows 60, 62, 64; 64 has no successor
	e.Build([]model.State{st(60), st(62), st(64), st(66)})

	valid := [][]model.State{{st(60), st(62)}, {st(62)}, nil}
	for seed := int64(0); seed < 50; seed++ {
		e.rng = rand.New(rand.NewSource(seed))
		out, err := e.Run(100, RunOptions{NoRestart: true}, nil)
		require.NoError(t, err)
		assert.Contains(t, valid, out)
	}

	for seed := int64(0); seed < 20; seed++ {
		e.rng = rand.New(rand.NewSource(seed))
		out, err := e.Run(1, RunOptions{NoRestart: true}, nil)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(out), 1)
	}
}

func TestRunRestartsWithoutConsumingSteps(t *testing.T) {
	e := newEngine(t, 1, 1)
	e.Build([]model.State{st(60), st(62), st(64), st(66)})

	out, err := e.Run(25, RunOptions{}, nil)
	require.NoError(t, err)
	assert.Len(t, out, 25)
}

func TestRunWithNoTransitionsTerminates(t *testing.T) {
	e := newEngine(t, 1, 1)
	e.Build([]model.State{st(60), st(62)})
	require.False(t, e.Empty())

	out, err := e.Run(10, RunOptions{}, nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRunCallback(t *testing.T) {
	e := newEngine(t, 2, 1)
	e.Build([]model.State{st(60), st(62), st(64), st(60), st(62), st(64), st(60), st(62)})

	var got []model.State
	out, err := e.Run(12, RunOptions{}, func(s model.State) {
		got = append(got, s)
	})
	require.NoError(t, err)
	assert.Nil(t, out)
	assert.Len(t, got, 12)
}

func TestRunIsReproducibleWithSeed(t *testing.T) {
	seq := randomSequence(rand.New(rand.NewSource(5)), 200)
	run := func() []model.State {
		e := newEngine(t, 2, 99)
		e.Build(seq)
		out, err := e.Run(100, RunOptions{Reinforcement: 1}, nil)
		require.NoError(t, err)
		return out
	}
	assert.Equal(t, run(), run())
}

func TestRunLeavesTrainedTableAlone(t *testing.T) {
	e := newEngine(t, 1, 4)
	seq := randomSequence(rand.New(rand.NewSource(3)), 300)
	e.Build(seq)

	before := make(map[Context]map[Context]int)
	for c := range e.Weights() {
		before[c] = e.Transitions(c)
	}
	weights := e.Weights()

	_, err := e.Run(1000, RunOptions{Reinforcement: 1}, nil)
	require.NoError(t, err)

	for c := range before {
		assert.Equal(t, before[c], e.Transitions(c))
	}
	assert.Equal(t, weights, e.Weights())
}

func TestReinforceIsBounded(t *testing.T) {
	from, to := NewContext(st(60)), NewContext(st(62))
	cases := []struct {
		weights []float64
		chosen  int
		factor  float64
	}{
		{[]float64{1, 1}, 0, 1},
		{[]float64{1, 9}, 0, 1},
		{[]float64{5, 1, 1}, 0, 1},
		{[]float64{1, 1, 1, 1}, 2, 0.3},
		{[]float64{3, 1}, 0, 1},
	}
	for _, c := range cases {
		o := make(overlay)
		o.reinforce(from, to, c.weights[c.chosen], c.weights, c.factor, DefaultReinforcementCeiling)

		var sum float64
		for _, w := range c.weights {
			sum += w
		}
		before := c.weights[c.chosen] / sum

		after := before
		if w, ok := o[from][to]; ok {
			after = w / (sum - c.weights[c.chosen] + w)
		}
		if before < DefaultReinforcementCeiling {
			assert.GreaterOrEqual(t, after, before)
			assert.LessOrEqual(t, after, DefaultReinforcementCeiling+1e-12)
		} else {
			// already dominant edges are left as they are
			assert.Equal(t, before, after)
		}
	}
}

func TestReinforceSkipsDominantEdge(t *testing.T) {
	from, to := NewContext(st(60)), NewContext(st(62))
	o := make(overlay)
	o.reinforce(from, to, 3, []float64{3, 1}, 1, DefaultReinforcementCeiling)
	assert.Empty(t, o)
}

func TestClone(t *testing.T) {
	e := newEngine(t, 1, 1)
	e.Build([]model.State{st(60), st(62), st(64)})
	c := e.Clone()
	c.Build([]model.State{st(60), st(62), st(64)})

	assert.Equal(t, 1, e.Weight(NewContext(st(60))))
	assert.Equal(t, 2, c.Weight(NewContext(st(60))))
}

func TestStats(t *testing.T) {
	e := newEngine(t, 1, 1)
	e.Build([]model.State{st(60), st(62), st(60), st(64)})
	assert.Equal(t, Stats{Order: 1, Contexts: 2, Transitions: 2, DeadEnds: 0, TotalWeight: 3}, e.Stats())
}

func TestNewContextPanicsPastMaxOrder(t *testing.T) {
	assert.Panics(t, func() {
		NewContext(make([]model.State, 13)...)
	})
}
