// Package fish implements a fish swimming in a tank with a drifting
// current, rewarded for keeping away from a rock and the tank walls
package fish

import (
	"fmt"
	"math"

	"github.com/samuelfneumann/retrolearn/environment"
	"github.com/samuelfneumann/retrolearn/timestep"
	"github.com/samuelfneumann/retrolearn/utils/floatutils"
	"gonum.org/v1/gonum/mat"
)

// FeatureLen is the length of the fish's feature vector
const FeatureLen int = 10

// Starting position and rock placement
var (
	StartX = 0.25 * environment.W
	StartY = 0.55 * environment.H
	RockX  = 0.62 * environment.W
	RockY  = 0.62 * environment.H
)

const (
	RockRadius float64 = 12

	// RockClearance is added to the rock's radius to get the closest
	// distance the fish may be from the rock's centre
	RockClearance float64 = 4

	// RockKick is the speed added along the contact normal when the
	// fish hits the rock
	RockKick float64 = 1.8

	TurnRate  float64 = 2.4
	ThrustAcc float64 = 10
	Drag      float64 = 0.92
	MaxSpeed  float64 = 5.8

	// Current amplitudes and periods in simulated milliseconds
	CurrentAmpX    float64 = 0.25
	CurrentAmpY    float64 = 0.18
	CurrentPeriodX float64 = 1200
	CurrentPeriodY float64 = 1400
)

// Reward shaping
const (
	AliveBonus   float64 = 0.02
	DistBonus    float64 = 0.05
	DistScale    float64 = 80
	WallPenalty  float64 = 0.08
	BumpPenalty  float64 = 0.15
	WallBaseline float64 = 0.5
)

// Fish implements the fish environment. Fish has a dense reward
// signal and its best score is the best total reward of an episode,
// recorded through RecordScore.
type Fish struct {
	environment.Body
	heading float64
	turn    float64
	thrust  float64
	bump    float64

	bestScore float64
	lastScore float64
	scored    bool

	clock float64
	steps int
}

// New returns a new Fish environment and its first TimeStep
func New() (*Fish, timestep.TimeStep) {
	f := &Fish{bestScore: math.Inf(-1)}
	return f, f.Reset()
}

// Kind returns the environment.Fish tag
func (f *Fish) Kind() environment.Kind {
	return environment.Fish
}

// Reset moves the fish back to its starting position. The best score
// is kept.
func (f *Fish) Reset() timestep.TimeStep {
	f.Body = environment.Body{X: StartX, Y: StartY}
	f.heading = 0
	f.turn = 0
	f.thrust = 0
	f.bump = 0
	f.steps = 0

	return timestep.New(timestep.First, f.Reward(), f.Features(), 0)
}

// Current returns the water current at the environment's simulated
// time
func (f *Fish) Current() (cx, cy float64) {
	ms := f.clock * 1000
	return CurrentAmpX * math.Sin(ms/CurrentPeriodX),
		CurrentAmpY * math.Cos(ms/CurrentPeriodY)
}

// Step takes a step in the environment
func (f *Fish) Step(a environment.Action, dt float64) timestep.TimeStep {
	a = a.Clip()
	f.turn, f.thrust = a[0], a[1]

	f.heading += f.turn * TurnRate * dt

	cx, cy := f.Current()
	accel := ThrustAcc * f.thrust
	f.Vx += (math.Cos(f.heading)*accel + cx) * dt
	f.Vy += (math.Sin(f.heading)*accel + cy) * dt

	damping := environment.Damping(Drag, dt)
	f.Vx *= damping
	f.Vy *= damping

	if sp := math.Hypot(f.Vx, f.Vy); sp > MaxSpeed {
		k := MaxSpeed / sp
		f.Vx *= k
		f.Vy *= k
	}

	f.X += f.Vx * dt * environment.RefRate
	f.Y += f.Vy * dt * environment.RefRate

	f.bump = environment.DecayBump(f.bump, dt)
	if f.BounceWalls() {
		f.bump = 1
	}
	f.collideRock()

	f.clock += dt
	f.steps++
	return timestep.New(timestep.Mid, f.Reward(), f.Features(), f.steps)
}

// collideRock pushes the fish out of the rock along the contact
// normal. A fish exactly at the rock's centre is pushed along +x.
func (f *Fish) collideRock() {
	dx, dy := f.X-RockX, f.Y-RockY
	d := math.Hypot(dx, dy)
	minDist := RockRadius + RockClearance
	if d >= minDist {
		return
	}

	nx, ny := 1.0, 0.0
	if d > 0 {
		nx, ny = dx/d, dy/d
	}
	f.X = RockX + nx*minDist
	f.Y = RockY + ny*minDist
	f.Vx += nx * RockKick
	f.Vy += ny * RockKick
	f.bump = 1
}

// rockDistance returns the distance between the fish and the rock's
// centre
func (f *Fish) rockDistance() float64 {
	return math.Hypot(f.X-RockX, f.Y-RockY)
}

// Reward returns the shaped reward of the current state: a small
// bonus for staying alive and away from the rock, minus penalties for
// hugging the walls and bumping into things.
func (f *Fish) Reward() float64 {
	distN := floatutils.Clip(f.rockDistance()/DistScale, 0, 1)
	wall := environment.WallDistance(f.X, f.Y)
	r := AliveBonus + DistBonus*distN - (WallBaseline-wall)*WallPenalty
	if f.bump > 0 {
		r -= BumpPenalty
	}
	return r
}

// Features returns the feature vector of the fish
func (f *Fish) Features() *mat.VecDense {
	xn, yn := f.Normalized()
	dist := f.rockDistance() / math.Max(environment.W, environment.H)
	wall := environment.WallDistance(f.X, f.Y)

	return mat.NewVecDense(FeatureLen, []float64{
		xn,
		yn,
		f.Vx / 5,
		f.Vy / 5,
		math.Sin(f.heading),
		math.Cos(f.heading),
		(f.X - RockX) / environment.W,
		(f.Y - RockY) / environment.H,
		dist,
		wall*2 - 1,
	})
}

// Manual returns the action a human controller requests: turning on
// Left/Right and thrust on Up/Down
func (f *Fish) Manual(in environment.Input) environment.Action {
	return environment.Smooth(f.Control(), in)
}

// Control returns the current turn and thrust
func (f *Fish) Control() environment.Action {
	return environment.Action{f.turn, f.thrust}
}

// Bump returns the collision indicator
func (f *Fish) Bump() float64 {
	return f.bump
}

// RecordScore records the total reward of an episode
func (f *Fish) RecordScore(total float64) {
	f.lastScore = total
	f.scored = true
	f.bestScore = math.Max(f.bestScore, total)
}

// LastScore returns the last recorded score and whether one was
// recorded
func (f *Fish) LastScore() (float64, bool) {
	return f.lastScore, f.scored
}

// BestText returns the best score with two decimals
func (f *Fish) BestText() string {
	if math.IsInf(f.bestScore, -1) {
		return "--"
	}
	return fmt.Sprintf("%.2f", f.bestScore)
}

// Elapsed returns the simulated seconds since construction
func (f *Fish) Elapsed() float64 {
	return f.clock
}

// ObservationSpec returns the observation specification of the fish
func (f *Fish) ObservationSpec() environment.Spec {
	return environment.NewSpec(environment.ObservationType, FeatureLen,
		environment.Unit)
}

// ActionSpec returns the action specification of the fish
func (f *Fish) ActionSpec() environment.Spec {
	return environment.ContinuousActionSpec()
}

func (f *Fish) String() string {
	return fmt.Sprintf("Fish | pos: (%.2f, %.2f)  |  speed: %.2f  |  best: %v",
		f.X, f.Y, math.Hypot(f.Vx, f.Vy), f.BestText())
}
