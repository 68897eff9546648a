package reinforce

import (
	"fmt"
	"math"

	"github.com/samuelfneumann/retrolearn/environment"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Rollout stores the features observed, actions taken, and rewards
// received on each step of a single episode, in order
type Rollout struct {
	obsSize    int
	maxSize    int
	currentPos int

	obsBuffer []float64
	actBuffer []float64
	rewBuffer []float64
}

// newRollout returns a new Rollout of at most size steps with feature
// vectors of length obsDim
func newRollout(obsDim, size int) *Rollout {
	return &Rollout{
		obsSize:   obsDim,
		maxSize:   size,
		obsBuffer: make([]float64, 0, size*obsDim),
		actBuffer: make([]float64, 0, size*environment.ActionDims),
		rewBuffer: make([]float64, 0, size),
	}
}

// store stores the features, action, and reward of a single step
func (r *Rollout) store(obs []float64, act environment.Action,
	rew float64) error {
	if r.currentPos >= r.maxSize {
		return fmt.Errorf("store: cannot add new step, rollout at " +
			"maximum capacity")
	}
	if len(obs) != r.obsSize {
		return fmt.Errorf("store: illegal obs length \n\twant(%v)\n\thave(%v)",
			r.obsSize, len(obs))
	}

	r.obsBuffer = append(r.obsBuffer, obs...)
	r.actBuffer = append(r.actBuffer, act[:]...)
	r.rewBuffer = append(r.rewBuffer, rew)
	r.currentPos++
	return nil
}

// Len returns the number of steps in the Rollout
func (r *Rollout) Len() int {
	return r.currentPos
}

// Features returns the features observed at step t
func (r *Rollout) Features(t int) []float64 {
	return r.obsBuffer[t*r.obsSize : (t+1)*r.obsSize]
}

// Action returns the action taken at step t
func (r *Rollout) Action(t int) environment.Action {
	i := t * environment.ActionDims
	return environment.Action{r.actBuffer[i], r.actBuffer[i+1]}
}

// Rewards returns the rewards of every step. The returned slice must
// not be modified.
func (r *Rollout) Rewards() []float64 {
	return r.rewBuffer
}

// Total returns the undiscounted sum of rewards
func (r *Rollout) Total() float64 {
	return floats.Sum(r.rewBuffer)
}

// DiscountedReturns returns the discounted return from each step:
// G_t = r_t + gamma * G_{t+1}, with G = 0 past the last step
func DiscountedReturns(rewards []float64, gamma float64) []float64 {
	returns := make([]float64, len(rewards))
	var g float64
	for i := len(rewards) - 1; i >= 0; i-- {
		g = rewards[i] + gamma*g
		returns[i] = g
	}
	return returns
}

// Normalize returns the standardized returns: (x - mean) / (std + 1e-8)
// where std is the population standard deviation
func Normalize(returns []float64) []float64 {
	if len(returns) == 0 {
		return nil
	}

	mean := stat.Mean(returns, nil)
	std := math.Sqrt(stat.MomentAbout(2, returns, mean, nil)) + 1e-8

	norm := make([]float64, len(returns))
	for i, x := range returns {
		norm[i] = (x - mean) / std
	}
	return norm
}
