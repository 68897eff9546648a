package policy

import (
	"fmt"

	"github.com/samuelfneumann/retrolearn/environment"
	"github.com/samuelfneumann/retrolearn/network"
	"github.com/samuelfneumann/retrolearn/timestep"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Gaussian implements a Gaussian exploration policy around the action
// predicted by a mean network. Each action component is sampled
// independently with standard deviation Sigma and clipped. In
// evaluation mode, or when Sigma is 0, the clipped mean is returned.
// Without a mean network the mean is the zero action.
type Gaussian struct {
	mean  *network.Predictor
	sigma float64
	noise distuv.Normal
	eval  bool
}

// NewGaussian returns a new Gaussian policy
func NewGaussian(sigma float64, seed uint64) (*Gaussian, error) {
	if sigma < 0 {
		return nil, fmt.Errorf("newGaussian: standard deviation must be "+
			"non-negative, have %v", sigma)
	}
	return &Gaussian{
		sigma: sigma,
		noise: distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewSource(seed)},
	}, nil
}

// SetNetwork sets the mean network of the policy
func (g *Gaussian) SetNetwork(net network.NeuralNet) error {
	if g.mean != nil {
		g.mean.Close()
		g.mean = nil
	}
	if net == nil {
		return nil
	}

	mean, err := network.NewPredictor(net, 1)
	if err != nil {
		return fmt.Errorf("setNetwork: %w", err)
	}
	g.mean = mean
	return nil
}

// Sync copies the weights of net into the policy's mean network
func (g *Gaussian) Sync(net network.NeuralNet) error {
	if g.mean == nil {
		return g.SetNetwork(net)
	}
	return g.mean.Sync(net)
}

// Sigma returns the standard deviation of the policy
func (g *Gaussian) Sigma() float64 {
	return g.sigma
}

// SetSigma sets the standard deviation of the policy
func (g *Gaussian) SetSigma(sigma float64) error {
	if sigma < 0 {
		return fmt.Errorf("setSigma: standard deviation must be "+
			"non-negative, have %v", sigma)
	}
	g.sigma = sigma
	return nil
}

// Mean returns the unclipped mean action at the argument timestep
func (g *Gaussian) Mean(t timestep.TimeStep) (environment.Action, error) {
	if g.mean == nil {
		return environment.Action{}, nil
	}

	pred, err := g.mean.Predict(t.Observation.RawVector().Data)
	if err != nil {
		return environment.Action{}, fmt.Errorf("mean: %w", err)
	}
	return environment.Action{pred[0], pred[1]}, nil
}

// SelectAction selects an action at the argument timestep
func (g *Gaussian) SelectAction(t timestep.TimeStep) (environment.Action,
	error) {
	mean, err := g.Mean(t)
	if err != nil {
		return environment.Action{}, fmt.Errorf("selectAction: %w", err)
	}
	if g.eval || g.sigma == 0 {
		return mean.Clip(), nil
	}

	var a environment.Action
	for i := range a {
		a[i] = mean[i] + g.sigma*g.noise.Rand()
	}
	return a.Clip(), nil
}

// Eval sets the policy to evaluation mode
func (g *Gaussian) Eval() { g.eval = true }

// Train sets the policy to training mode
func (g *Gaussian) Train() { g.eval = false }

// IsEval returns whether the policy is in evaluation mode
func (g *Gaussian) IsEval() bool { return g.eval }
