// Package policy implements action sources for the environments: a
// manual source reading human input, an imitation source driven by a
// behaviour-cloned network, and a Gaussian exploration source.
package policy

import (
	"github.com/samuelfneumann/retrolearn/environment"
	"github.com/samuelfneumann/retrolearn/timestep"
)

// Manual selects actions from the directional inputs a human is
// holding down
type Manual struct {
	env   environment.Environment
	input environment.Input
}

// NewManual returns a new Manual policy for an environment
func NewManual(env environment.Environment) *Manual {
	return &Manual{env: env}
}

// SetInput records the inputs currently held down
func (m *Manual) SetInput(in environment.Input) {
	m.input = in
}

// SelectAction returns the environment's smoothed manual action
func (m *Manual) SelectAction(timestep.TimeStep) (environment.Action, error) {
	return m.env.Manual(m.input), nil
}
