package environment

import (
	"fmt"

	"github.com/samuelfneumann/retrolearn/timestep"
)

// Ender determines when an episode of a rollout should end. If an
// episode should end, End marks the TimeStep as the last one.
type Ender interface {
	End(*timestep.TimeStep) bool
}

// StepLimit ends episodes at a fixed number of steps
type StepLimit struct {
	episodeSteps int
}

// NewStepLimit returns a new StepLimit that ends episodes after
// episodeSteps steps
func NewStepLimit(episodeSteps int) *StepLimit {
	if episodeSteps <= 0 {
		panic(fmt.Sprintf("newStepLimit: episode steps must be positive, "+
			"have %d", episodeSteps))
	}
	return &StepLimit{episodeSteps}
}

// End determines whether the episode should end at the argument
// TimeStep
func (s *StepLimit) End(t *timestep.TimeStep) bool {
	if t.Number >= s.episodeSteps {
		t.SetEnd(timestep.Timeout)
		return true
	}
	return false
}

// FunctionEnder ends an episode when its function returns true
type FunctionEnder struct {
	f       func(*timestep.TimeStep) bool
	endType timestep.EndType
}

// NewFunctionEnder returns a new FunctionEnder
func NewFunctionEnder(f func(*timestep.TimeStep) bool,
	endType timestep.EndType) *FunctionEnder {
	return &FunctionEnder{f, endType}
}

// End determines whether the episode should end at the argument
// TimeStep
func (f *FunctionEnder) End(t *timestep.TimeStep) bool {
	if f.f(t) {
		t.SetEnd(f.endType)
		return true
	}
	return false
}

// NewBumpEnder returns an Ender that fails an episode once the
// environment's collision indicator exceeds threshold, but only after
// more than after steps have been taken since the first.
func NewBumpEnder(e Environment, threshold float64, after int) *FunctionEnder {
	return NewFunctionEnder(func(t *timestep.TimeStep) bool {
		return e.Bump() > threshold && t.Number-1 > after
	}, timestep.Failure)
}

// Enders combines multiple Enders. The first Ender that ends an
// episode determines its EndType.
type Enders []Ender

// End determines whether any of the Enders ends the episode
func (e Enders) End(t *timestep.TimeStep) bool {
	for _, ender := range e {
		if ender.End(t) {
			return true
		}
	}
	return false
}
