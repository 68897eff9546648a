package environment

import (
	"math"

	"github.com/samuelfneumann/retrolearn/utils/floatutils"
)

// Arena dimensions in world units
const (
	W          float64 = 180
	H          float64 = 130
	WallMargin float64 = 6
)

// Physics constants are tuned for this reference rate
const RefRate float64 = 60

// WallRestitution scales the velocity component normal to a wall when
// a body bounces off it
const WallRestitution float64 = -0.5

// BumpDecay is the rate per simulated second at which the collision
// indicator returns to zero
const BumpDecay float64 = 2

// Body is a point mass moving in the arena
type Body struct {
	X, Y   float64
	Vx, Vy float64
}

// BounceWalls keeps the body at least WallMargin from every wall,
// reflecting the offending velocity component. It returns whether any
// wall was hit.
func (b *Body) BounceWalls() bool {
	hit := false
	if b.X < WallMargin {
		b.X = WallMargin
		b.Vx *= WallRestitution
		hit = true
	}
	if b.X > W-WallMargin {
		b.X = W - WallMargin
		b.Vx *= WallRestitution
		hit = true
	}
	if b.Y < WallMargin {
		b.Y = WallMargin
		b.Vy *= WallRestitution
		hit = true
	}
	if b.Y > H-WallMargin {
		b.Y = H - WallMargin
		b.Vy *= WallRestitution
		hit = true
	}
	return hit
}

// Normalized returns the position of the body scaled to [-1, 1]
func (b *Body) Normalized() (xn, yn float64) {
	return b.X/W*2 - 1, b.Y/H*2 - 1
}

// WallDistance returns the normalized distance to the nearest wall
func WallDistance(x, y float64) float64 {
	return floatutils.Min(x/W, (W-x)/W, y/H, (H-y)/H)
}

// Damping returns the per-step velocity multiplier for a per-frame
// drag factor, scaled to a step of dt seconds
func Damping(factor, dt float64) float64 {
	return math.Pow(factor, dt*RefRate)
}

// DecayBump moves a collision indicator toward zero
func DecayBump(bump, dt float64) float64 {
	return math.Max(0, bump-dt*BumpDecay)
}
