// Package car implements a top-down car driving laps around an annular
// track
package car

import (
	"fmt"
	"math"

	"github.com/aunum/log"
	"github.com/samuelfneumann/retrolearn/environment"
	"github.com/samuelfneumann/retrolearn/timestep"
	"github.com/samuelfneumann/retrolearn/utils/floatutils"
	"gonum.org/v1/gonum/mat"
)

// Track geometry
var (
	TrackX = 0.52 * environment.W
	TrackY = 0.56 * environment.H
)

const (
	InnerRadius float64 = 26
	OuterRadius float64 = 54

	// FeatureLen is the length of the car's feature vector
	FeatureLen int = 7
)

// Vehicle dynamics
const (
	GripOnTrack  float64 = 1.0
	GripOffTrack float64 = 0.65
	MaxSteer     float64 = 0.75
	WheelBase    float64 = 10.0
	YawGain      float64 = 2.2
	YawSmoothing float64 = 0.35

	ForwardAccel float64 = 0.11
	BrakeAccel   float64 = 0.16

	DragOnTrack  float64 = 0.985
	DragOffTrack float64 = 0.975

	MinSpeed         float64 = -2.5
	MaxSpeedOnTrack  float64 = 8.5
	MaxSpeedOffTrack float64 = 6.0

	// Border keeps the car this far from the arena edges
	Border float64 = 4

	// OffRate is the rate per second at which the off-track indicator
	// moves toward its target
	OffRate float64 = 2
)

// Lap detection
const (
	// SeamAngle is the magnitude above which the angle around the track
	// centre is considered to be near the ±π seam
	SeamAngle float64 = 2.7

	// LapMinSpeed is the speed the car must exceed for a seam crossing
	// to count as a lap
	LapMinSpeed float64 = 2.2
)

// Car implements the car environment. The car starts on the centre
// line of the track, facing along it. A lap is counted each time the
// car crosses the start line at speed while on the track, timed from
// the previous crossing.
//
// Car has no reward signal. Its best score is the fastest lap in
// simulated milliseconds and persists across resets.
type Car struct {
	x, y     float64
	v        float64
	yaw      float64
	yawRate  float64
	steer    float64
	throttle float64
	off      float64

	lastAngle float64
	lapDir    int
	lapStart  float64
	bestLapMs int64
	lastLapMs int64

	clock float64
	steps int
	hook  func(string)
}

// New returns a new Car environment and its first TimeStep
func New() (*Car, timestep.TimeStep) {
	c := &Car{bestLapMs: -1, lastLapMs: -1}
	return c, c.Reset()
}

// Kind returns the environment.Car tag
func (c *Car) Kind() environment.Kind {
	return environment.Car
}

// Reset resets the car to the start line
func (c *Car) Reset() timestep.TimeStep {
	c.x = TrackX + (InnerRadius+OuterRadius)/2
	c.y = TrackY
	c.v = 0
	c.yaw = -math.Pi / 2
	c.yawRate = 0
	c.steer = 0
	c.throttle = 0
	c.off = 0

	c.lapDir = 0
	c.lastAngle = c.angleAround()
	c.steps = 0

	return timestep.New(timestep.First, 0, c.Features(), 0)
}

// Notify registers a hook that receives lap events
func (c *Car) Notify(hook func(string)) {
	c.hook = hook
}

func (c *Car) angleAround() float64 {
	return math.Atan2(c.y-TrackY, c.x-TrackX)
}

func (c *Car) radius() float64 {
	return math.Hypot(c.x-TrackX, c.y-TrackY)
}

// OnTrack returns whether the car is between the track's borders
func (c *Car) OnTrack() bool {
	r := c.radius()
	return r >= InnerRadius && r <= OuterRadius
}

// Speed returns the signed speed of the car
func (c *Car) Speed() float64 {
	return c.v
}

// Features returns the feature vector of the car: its offset from the
// track centre, speed, heading, radial error from the centre line, and
// whether it is on the track.
func (c *Car) Features() *mat.VecDense {
	onTrack := 0.0
	if c.OnTrack() {
		onTrack = 1.0
	}
	mid := (InnerRadius + OuterRadius) / 2
	radialErr := (c.radius() - mid) / (OuterRadius - InnerRadius)

	return mat.NewVecDense(FeatureLen, []float64{
		(c.x - TrackX) / OuterRadius,
		(c.y - TrackY) / OuterRadius,
		c.v / 8,
		math.Sin(c.yaw),
		math.Cos(c.yaw),
		radialErr,
		onTrack,
	})
}

// Manual returns the action a human controller requests: steering on
// Left/Right and throttle on Up/Down
func (c *Car) Manual(in environment.Input) environment.Action {
	return environment.Smooth(c.Control(), in)
}

// Control returns the current steering and throttle
func (c *Car) Control() environment.Action {
	return environment.Action{c.steer, c.throttle}
}

// Step takes a step in the environment
func (c *Car) Step(a environment.Action, dt float64) timestep.TimeStep {
	a = a.Clip()
	c.steer, c.throttle = a[0], a[1]
	scale := dt * environment.RefRate

	grip := GripOffTrack
	if c.OnTrack() {
		grip = GripOnTrack
	}
	steerAngle := c.steer * MaxSteer
	yawRateTarget := (c.v / WheelBase) * math.Tan(steerAngle) * YawGain * grip
	c.yawRate = floatutils.Lerp(c.yawRate, yawRateTarget, YawSmoothing)
	c.yaw += c.yawRate * scale

	accel := BrakeAccel * c.throttle
	if c.throttle >= 0 {
		accel = ForwardAccel * c.throttle
	}
	c.v += accel * scale

	drag, maxSpeed := DragOffTrack, MaxSpeedOffTrack
	if c.OnTrack() {
		drag, maxSpeed = DragOnTrack, MaxSpeedOnTrack
	}
	c.v *= environment.Damping(drag, dt)
	c.v = floatutils.Clip(c.v, MinSpeed, maxSpeed)

	c.x += math.Cos(c.yaw) * c.v * scale
	c.y += math.Sin(c.yaw) * c.v * scale
	c.x = floatutils.Clip(c.x, Border, environment.W-Border)
	c.y = floatutils.Clip(c.y, Border, environment.H-Border)

	if c.OnTrack() {
		c.off = math.Max(0, c.off-dt*OffRate)
	} else {
		c.off = math.Min(1, c.off+dt*OffRate)
	}

	c.clock += dt
	c.detectLap()

	c.steps++
	return timestep.New(timestep.Mid, 0, c.Features(), c.steps)
}

// seamCrossing returns +1 if the angle jumped from the negative to the
// positive side of the ±π seam, -1 for the opposite jump, and 0 if the
// seam was not crossed
func seamCrossing(prev, ang float64) int {
	switch {
	case prev < -SeamAngle && ang > SeamAngle:
		return 1
	case prev > SeamAngle && ang < -SeamAngle:
		return -1
	}
	return 0
}

// detectLap counts a lap when the car crosses the seam in its driving
// direction. The first crossing after a reset latches the direction and
// starts the lap timer without counting a lap, so every counted lap is
// a full revolution.
func (c *Car) detectLap() {
	ang := c.angleAround()
	prev := c.lastAngle
	c.lastAngle = ang

	dir := seamCrossing(prev, ang)
	if dir == 0 || !c.OnTrack() || math.Abs(c.v) <= LapMinSpeed {
		return
	}
	if c.lapDir == 0 {
		c.lapDir = dir
		c.lapStart = c.clock
		return
	} else if dir != c.lapDir {
		return
	}

	lap := int64(math.Round((c.clock - c.lapStart) * 1000))
	c.lapStart = c.clock
	c.lastLapMs = lap

	var msg string
	if c.bestLapMs < 0 || lap < c.bestLapMs {
		c.bestLapMs = lap
		msg = fmt.Sprintf("NEW BEST LAP: %d ms", lap)
		log.Successf("NEW BEST LAP: %d ms", lap)
	} else {
		msg = fmt.Sprintf("Lap: %d ms", lap)
		log.Infof("Lap: %d ms", lap)
	}
	if c.hook != nil {
		c.hook(msg)
	}
}

// BestLap returns the fastest lap in simulated milliseconds and
// whether any lap has been completed
func (c *Car) BestLap() (int64, bool) {
	return c.bestLapMs, c.bestLapMs >= 0
}

// LastLap returns the most recent lap time in simulated milliseconds
// and whether any lap has been completed
func (c *Car) LastLap() (int64, bool) {
	return c.lastLapMs, c.lastLapMs >= 0
}

// BestText returns the best lap as text
func (c *Car) BestText() string {
	if c.bestLapMs < 0 {
		return "--"
	}
	return fmt.Sprintf("%d ms", c.bestLapMs)
}

// Reward returns 0, the car has no reward signal
func (c *Car) Reward() float64 {
	return 0
}

// Bump returns the off-track indicator
func (c *Car) Bump() float64 {
	return c.off
}

// RecordScore does nothing, the car's score is its best lap time
func (c *Car) RecordScore(float64) {}

// Elapsed returns the simulated seconds since construction
func (c *Car) Elapsed() float64 {
	return c.clock
}

// ObservationSpec returns the observation specification of the car
func (c *Car) ObservationSpec() environment.Spec {
	return environment.NewSpec(environment.ObservationType, FeatureLen,
		environment.Unit)
}

// ActionSpec returns the action specification of the car
func (c *Car) ActionSpec() environment.Spec {
	return environment.ContinuousActionSpec()
}

func (c *Car) String() string {
	return fmt.Sprintf("Car | pos: (%.2f, %.2f)  |  speed: %.2f  |  best: %v",
		c.x, c.y, c.v, c.BestText())
}
