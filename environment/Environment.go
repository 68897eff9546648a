// Package environment outlines the interfaces and structs needed to
// implement the small continuous-control environments: the capability
// interface every variant satisfies, the Kind tag used to dispatch on
// variants, and the action and input types shared by all of them.
package environment

import (
	"fmt"

	"github.com/samuelfneumann/retrolearn/timestep"
	"github.com/samuelfneumann/retrolearn/utils/floatutils"
	"gonum.org/v1/gonum/mat"
)

// ActionDims is the number of continuous components in every action
const ActionDims int = 2

// Action bounds. Every action component is clipped to this range
// before being applied to the physics of an environment.
const (
	MinAction float64 = -1.0
	MaxAction float64 = 1.0
)

// Kind tags an environment variant
type Kind int

const (
	Car Kind = iota
	Fish
	Drone
)

// Kinds lists every environment variant
var Kinds = []Kind{Car, Fish, Drone}

// String returns the environment name used as a key for datasets,
// models, and peer messages
func (k Kind) String() string {
	switch k {
	case Car:
		return "car"
	case Fish:
		return "fish"
	case Drone:
		return "drone"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind returns the Kind with the given name
func ParseKind(name string) (Kind, error) {
	for _, k := range Kinds {
		if k.String() == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("parseKind: unknown environment %q", name)
}

// Action is a two-dimensional continuous action. The meaning of each
// component depends on the environment: steer/throttle for Car,
// turn/thrust for Fish, and tilt/power for Drone.
type Action [ActionDims]float64

// Clip returns the action with each component clipped to
// [MinAction, MaxAction]
func (a Action) Clip() Action {
	return Action{
		floatutils.Clip(a[0], MinAction, MaxAction),
		floatutils.Clip(a[1], MinAction, MaxAction),
	}
}

// Slice returns the action as a newly allocated slice
func (a Action) Slice() []float64 {
	return []float64{a[0], a[1]}
}

// Input is a snapshot of the discrete directional inputs held down by
// a human controller
type Input struct {
	Left, Right, Up, Down bool
}

// Axes converts the held inputs to a requested direction on each
// action channel: Left/Right on channel 0 and Up/Down on channel 1.
func (in Input) Axes() (x, y float64) {
	if in.Left {
		x--
	}
	if in.Right {
		x++
	}
	if in.Up {
		y++
	}
	if in.Down {
		y--
	}
	return x, y
}

// Smooth computes the manual action of an environment: each channel
// is exponentially smoothed from the current control toward the
// requested direction, then clipped.
func Smooth(current Action, in Input) Action {
	x, y := in.Axes()
	return Action{
		floatutils.Lerp(current[0], x, SmoothingX),
		floatutils.Lerp(current[1], y, SmoothingY),
	}.Clip()
}

// Smoothing factors used to map manual input to actions
const (
	SmoothingX float64 = 0.35
	SmoothingY float64 = 0.30
)

// Environment implements a simulated continuous-control environment.
//
// Step advances physics by dt simulated seconds. Physics constants are
// tuned for a 60Hz reference rate and integration is scaled by dt*60.
// Callers are expected to keep dt <= MaxDt. Physics never fails: all
// state is clipped into finite bounds.
type Environment interface {
	Kind() Kind
	Reset() timestep.TimeStep
	Step(a Action, dt float64) timestep.TimeStep
	Features() *mat.VecDense
	Manual(in Input) Action
	BestText() string

	// Control returns the current smoothed control applied by the
	// last step
	Control() Action

	// Reward returns the reward signal of the current state
	Reward() float64

	// Bump returns the transient collision indicator in [0, 1]
	Bump() float64

	// RecordScore records the total reward of an episode, raising the
	// best score if needed
	RecordScore(total float64)

	// Elapsed returns the simulated seconds since construction
	Elapsed() float64

	ObservationSpec() Spec
	ActionSpec() Spec
}

// MaxDt is the largest step size the main loop passes to Step
const MaxDt float64 = 0.033

// FixedDt is the fixed step size used for reinforcement learning
// rollouts
const FixedDt float64 = 1.0 / 60.0

// Notifier is an Environment that reports notable events, such as a
// completed lap, to a hook
type Notifier interface {
	Environment
	Notify(hook func(event string))
}
