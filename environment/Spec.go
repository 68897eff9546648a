package environment

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r1"
)

// SpecType determines what kind of specification a Spec is
type SpecType int

const (
	ObservationType SpecType = iota
	ActionType
)

func (s SpecType) String() string {
	if s == ActionType {
		return "Action"
	}
	return "Observation"
}

// Spec describes the shape and bounds of the observations or actions
// of an environment. Bounds of observations are nominal: features are
// scaled to lie approximately within them.
type Spec struct {
	Type   SpecType
	Bounds []r1.Interval
}

// NewSpec returns a Spec of the given length with every component
// bounded by the same interval
func NewSpec(t SpecType, length int, bound r1.Interval) Spec {
	if length <= 0 {
		panic(fmt.Sprintf("newSpec: length must be positive, have %d", length))
	}
	bounds := make([]r1.Interval, length)
	for i := range bounds {
		bounds[i] = bound
	}
	return Spec{Type: t, Bounds: bounds}
}

// Len returns the number of components described by the Spec
func (s Spec) Len() int {
	return len(s.Bounds)
}

// Unit is the nominal [-1, 1] interval
var Unit = r1.Interval{Min: -1, Max: 1}

// ContinuousActionSpec returns the action specification shared by all
// environments
func ContinuousActionSpec() Spec {
	return NewSpec(ActionType, ActionDims, r1.Interval{Min: MinAction, Max: MaxAction})
}
