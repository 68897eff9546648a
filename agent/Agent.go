// Package agent defines the interfaces of action sources: policies
// that choose an action for an environment at every step
package agent

import (
	"github.com/samuelfneumann/retrolearn/environment"
	"github.com/samuelfneumann/retrolearn/timestep"
)

// Policy represents an action source.
//
// Policies determine how actions are selected on each step of an
// environment. Selected actions are always within the environment's
// action bounds.
type Policy interface {
	SelectAction(t timestep.TimeStep) (environment.Action, error)
}

// Evaler is a Policy that can be switched between a training mode,
// in which it explores, and an evaluation mode, in which it acts
// greedily
type Evaler interface {
	Policy
	Eval()        // Set policy to evaluation mode
	Train()       // Set policy to training mode
	IsEval() bool // Indicates if in evaluation mode
}
