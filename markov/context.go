package markov

import (
	"fmt"
	"strings"

	"github.com/jsphweid/improv/constants"
	"github.com/jsphweid/improv/model"
)

// Context is a window of consecutive states. It is comparable, so two
// contexts holding the same states are the same map key.
type Context struct {
	states [constants.MaxOrder]model.State
	n      uint8
}

// NewContext copies states into a Context. It panics when given more than
// constants.MaxOrder states.
func NewContext(states ...model.State) Context {
	if len(states) > constants.MaxOrder {
		panic(fmt.Sprintf("markov: context of %d states exceeds max order %d", len(states), constants.MaxOrder))
	}
	var c Context
	copy(c.states[:], states)
	c.n = uint8(len(states))
	return c
}

// First is the oldest state of the window, the one a run emits
func (c Context) First() model.State {
	return c.states[0]
}

func (c Context) String() string {
	parts := make([]string, c.n)
	for i, s := range c.states[:c.n] {
		parts[i] = FormatState(s)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func FormatState(s model.State) string {
	if s.ChordDelta == 0 {
		return fmt.Sprintf("[%d,%d,%d]", s.Pitch, s.Delta, s.Duration)
	}
	return fmt.Sprintf("[%d,%d,%d,%d]", s.Pitch, s.Delta, s.Duration, s.ChordDelta)
}
