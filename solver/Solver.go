// Package solver implements functionality to wrap Gorgonia Solvers
// so that they can be named in configuration files.
package solver

import (
	"fmt"
	"strings"

	G "gorgonia.org/gorgonia"
)

// Type describes different types of solvers that are available
type Type string

// Available solver types
const (
	Adam    Type = "Adam"
	Vanilla Type = "Vanilla"
	RMSProp Type = "RMSProp"
)

// Solver wraps a Gorgonia Solver together with the Config that
// created it. Solvers keep per-parameter state, so a Solver must
// always be stepped with the same model, in the same order.
type Solver struct {
	G.Solver `json:"-"`
	Type
	Config
}

// newSolver returns a new solver with the given type and configuration.
func newSolver(t Type, c Config) (*Solver, error) {
	if !c.ValidType(t) {
		return nil, fmt.Errorf("newSolver: invalid solver type %v for "+
			"configuration %T", t, c)
	}
	solver := Solver{Type: t, Config: c}
	solver.Solver = solver.Config.Create()

	return &solver, nil
}

// Parse returns a solver of the named type with default
// hyperparameters and the given step size. Names are matched
// case-insensitively.
func Parse(name string, stepSize float64) (*Solver, error) {
	switch {
	case strings.EqualFold(name, string(Adam)):
		return NewDefaultAdam(stepSize, 1)
	case strings.EqualFold(name, string(Vanilla)):
		return NewVanilla(stepSize, 1, -1)
	case strings.EqualFold(name, string(RMSProp)):
		return NewDefaultRMSProp(stepSize, 1)
	}
	return nil, fmt.Errorf("parse: unknown solver %q", name)
}

// Reset replaces the Gorgonia Solver with a fresh one of the same
// configuration, discarding any accumulated per-parameter state
func (s *Solver) Reset() {
	s.Solver = s.Config.Create()
}

// Config implements a Gorgonia Solver configuration and can be used to
// create Gorgonia Solvers they describe.
type Config interface {
	Create() G.Solver

	// ValidType returns whether a specific Solver type can be created
	// with the Config
	ValidType(Type) bool
}
