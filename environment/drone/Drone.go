// Package drone implements a drone that must fly through the gap of
// an oscillating gate
package drone

import (
	"fmt"
	"math"

	"github.com/samuelfneumann/retrolearn/environment"
	"github.com/samuelfneumann/retrolearn/timestep"
	"github.com/samuelfneumann/retrolearn/utils/floatutils"
	"gonum.org/v1/gonum/mat"
)

// FeatureLen is the length of the drone's feature vector
const FeatureLen int = 9

// Starting position and gate placement
var (
	StartX   = 0.25 * environment.W
	StartY   = 0.50 * environment.H
	GateX    = 0.72 * environment.W
	GapStart = 0.50 * environment.H
)

const (
	GapHeight float64 = 22
	GapSpeed  float64 = 0.6

	// GapMargin bounds the gap centre to [GapMargin, H-GapMargin]
	GapMargin float64 = 18

	TiltAccel  float64 = 0.20
	PowerAccel float64 = 0.25
	Gravity    float64 = 0.08
	Drag       float64 = 0.92
	MaxSpeed   float64 = 4.5

	// GateBounce scales horizontal velocity when the drone hits the
	// gate outside its gap
	GateBounce float64 = -0.6

	// Drift pushes the drone toward the gate every frame
	Drift float64 = 0.06
)

// Drone implements the drone environment. Drone has no reward
// signal. Its best score is recorded through RecordScore.
type Drone struct {
	environment.Body
	tilt  float64
	power float64
	bump  float64

	gapY float64
	gapV float64

	bestScore float64
	lastScore float64
	scored    bool

	clock float64
	steps int
}

// New returns a new Drone environment and its first TimeStep
func New() (*Drone, timestep.TimeStep) {
	d := &Drone{bestScore: math.Inf(-1)}
	return d, d.Reset()
}

// Kind returns the environment.Drone tag
func (d *Drone) Kind() environment.Kind {
	return environment.Drone
}

// Reset moves the drone and the gate back to their starting
// positions. The best score is kept.
func (d *Drone) Reset() timestep.TimeStep {
	d.Body = environment.Body{X: StartX, Y: StartY}
	d.tilt = 0
	d.power = 0
	d.bump = 0
	d.gapY = GapStart
	d.gapV = GapSpeed
	d.steps = 0

	return timestep.New(timestep.First, 0, d.Features(), 0)
}

// Gap returns the vertical extent of the gate's gap
func (d *Drone) Gap() (top, bottom float64) {
	return d.gapY - GapHeight/2, d.gapY + GapHeight/2
}

// Step takes a step in the environment
func (d *Drone) Step(a environment.Action, dt float64) timestep.TimeStep {
	a = a.Clip()
	d.tilt, d.power = a[0], a[1]
	scale := dt * environment.RefRate

	d.gapY += d.gapV * scale
	if d.gapY < GapMargin || d.gapY > environment.H-GapMargin {
		d.gapV = -d.gapV
	}

	ax := TiltAccel * d.tilt
	ay := -PowerAccel*d.power + Gravity
	d.Vx += ax * scale
	d.Vy += ay * scale

	damping := environment.Damping(Drag, dt)
	d.Vx = floatutils.Clip(d.Vx*damping, -MaxSpeed, MaxSpeed)
	d.Vy = floatutils.Clip(d.Vy*damping, -MaxSpeed, MaxSpeed)

	d.X += d.Vx * scale
	d.Y += d.Vy * scale

	d.bump = environment.DecayBump(d.bump, dt)
	if d.BounceWalls() {
		d.bump = 1
	}
	d.collideGate()

	d.X += Drift * scale

	d.clock += dt
	d.steps++
	return timestep.New(timestep.Mid, 0, d.Features(), d.steps)
}

// collideGate knocks the drone back when it is inside the gate's band
// but outside of the gap
func (d *Drone) collideGate() {
	inBand := d.X > GateX-2 && d.X < GateX+6
	if !inBand {
		return
	}
	top, bottom := d.Gap()
	if d.Y < top || d.Y > bottom {
		d.X = GateX - 3
		d.Vx *= GateBounce
		d.bump = 1
	}
}

// Features returns the feature vector of the drone
func (d *Drone) Features() *mat.VecDense {
	xn, yn := d.Normalized()
	wall := environment.WallDistance(d.X, d.Y)

	return mat.NewVecDense(FeatureLen, []float64{
		xn,
		yn,
		d.Vx / 6,
		d.Vy / 6,
		d.tilt,
		d.power,
		(GateX - d.X) / environment.W,
		(d.gapY - d.Y) / environment.H,
		wall*2 - 1,
	})
}

// Manual returns the action a human controller requests: tilt on
// Left/Right and power on Up/Down
func (d *Drone) Manual(in environment.Input) environment.Action {
	return environment.Smooth(d.Control(), in)
}

// Control returns the current tilt and power
func (d *Drone) Control() environment.Action {
	return environment.Action{d.tilt, d.power}
}

// Reward returns 0, the drone has no reward signal
func (d *Drone) Reward() float64 {
	return 0
}

// Bump returns the collision indicator
func (d *Drone) Bump() float64 {
	return d.bump
}

// RecordScore records the total reward of an episode
func (d *Drone) RecordScore(total float64) {
	d.lastScore = total
	d.scored = true
	d.bestScore = math.Max(d.bestScore, total)
}

// BestText returns the best score with two decimals
func (d *Drone) BestText() string {
	if math.IsInf(d.bestScore, -1) {
		return "--"
	}
	return fmt.Sprintf("%.2f", d.bestScore)
}

// Elapsed returns the simulated seconds since construction
func (d *Drone) Elapsed() float64 {
	return d.clock
}

// ObservationSpec returns the observation specification of the drone
func (d *Drone) ObservationSpec() environment.Spec {
	return environment.NewSpec(environment.ObservationType, FeatureLen,
		environment.Unit)
}

// ActionSpec returns the action specification of the drone
func (d *Drone) ActionSpec() environment.Spec {
	return environment.ContinuousActionSpec()
}

func (d *Drone) String() string {
	return fmt.Sprintf("Drone | pos: (%.2f, %.2f)  |  gap: %.2f", d.X, d.Y,
		d.gapY)
}
