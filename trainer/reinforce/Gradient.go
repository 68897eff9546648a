package reinforce

import (
	"fmt"
	"math"

	"github.com/samuelfneumann/retrolearn/environment"
	"github.com/samuelfneumann/retrolearn/network"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// policyGradient computes the REINFORCE loss of a Gaussian policy over
// episodes of at most batch steps and applies its gradient:
//
//	loss = -Σ_t w_t Σ_d log N(a_td; μ_td, σ)
//
// with w_t the normalized return at step t divided by the episode
// length. Steps past the end of an episode are padded with zero weight.
type policyGradient struct {
	net     network.NeuralNet
	batch   int
	actions *G.Node
	weights *G.Node
	sigma   *G.Node
	logNorm *G.Node
	loss    *G.Node
	lossVal G.Value
	vm      G.VM
}

// newPolicyGradient returns a policyGradient on a clone of source with
// room for batch steps
func newPolicyGradient(source network.NeuralNet, batch int) (*policyGradient,
	error) {
	net, err := source.CloneWithBatch(batch)
	if err != nil {
		return nil, fmt.Errorf("newPolicyGradient: %w", err)
	}
	g := net.Graph()

	actions := G.NewMatrix(g, tensor.Float64,
		G.WithShape(batch, environment.ActionDims), G.WithName("actions"),
		G.WithInit(G.Zeroes()))
	weights := G.NewVector(g, tensor.Float64, G.WithShape(batch),
		G.WithName("weights"), G.WithInit(G.Zeroes()))
	sigma := G.NewScalar(g, tensor.Float64, G.WithName("sigma"),
		G.WithValue(1.0))
	logNorm := G.NewScalar(g, tensor.Float64, G.WithName("logNorm"),
		G.WithValue(0.0))

	// Log density of each action component
	z := G.Must(G.Sub(actions, net.Prediction()))
	z = G.Must(G.HadamardDiv(z, sigma))
	z = G.Must(G.Square(z))
	half := G.NewConstant(-0.5, G.WithName("-0.5"))
	logProb := G.Must(G.HadamardProd(z, half))
	logProb = G.Must(G.Sub(logProb, logNorm))

	// Log density of each action
	logProb = G.Must(G.Sum(logProb, 1))

	loss := G.Must(G.HadamardProd(logProb, weights))
	loss = G.Must(G.Sum(loss))
	loss = G.Must(G.Neg(loss))

	p := &policyGradient{
		net:     net,
		batch:   batch,
		actions: actions,
		weights: weights,
		sigma:   sigma,
		logNorm: logNorm,
		loss:    loss,
	}
	G.Read(p.loss, &p.lossVal)

	if _, err := G.Grad(loss, net.Learnables()...); err != nil {
		return nil, fmt.Errorf("newPolicyGradient: could not compute "+
			"gradient: %w", err)
	}
	p.vm = G.NewTapeMachine(g, G.BindDualValues(net.Learnables()...))

	return p, nil
}

// step takes one gradient step with solver on the rollout, weighting
// each step by its normalized return adv[t]. It returns the loss before
// the step.
func (p *policyGradient) step(solver G.Solver, r *Rollout, adv []float64,
	sigma float64) (float64, error) {
	if r.Len() > p.batch {
		return 0, fmt.Errorf("step: rollout of %d steps exceeds batch %d",
			r.Len(), p.batch)
	}
	if len(adv) != r.Len() {
		return 0, fmt.Errorf("step: have %d advantages for %d steps",
			len(adv), r.Len())
	}

	features := p.net.Features()
	obs := make([]float64, p.batch*features)
	acts := make([]float64, p.batch*environment.ActionDims)
	weights := make([]float64, p.batch)
	for t := 0; t < r.Len(); t++ {
		copy(obs[t*features:], r.Features(t))
		a := r.Action(t)
		copy(acts[t*environment.ActionDims:], a[:])
		weights[t] = adv[t] / float64(r.Len())
	}

	if err := p.net.SetInput(obs); err != nil {
		return 0, fmt.Errorf("step: %w", err)
	}
	if err := G.Let(p.actions, tensor.New(tensor.WithBacking(acts),
		tensor.WithShape(p.actions.Shape()...))); err != nil {
		return 0, fmt.Errorf("step: %w", err)
	}
	if err := G.Let(p.weights, tensor.New(tensor.WithBacking(weights),
		tensor.WithShape(p.weights.Shape()...))); err != nil {
		return 0, fmt.Errorf("step: %w", err)
	}
	if err := G.Let(p.sigma, sigma); err != nil {
		return 0, fmt.Errorf("step: %w", err)
	}
	logNorm := math.Log(sigma * math.Sqrt(2*math.Pi))
	if err := G.Let(p.logNorm, logNorm); err != nil {
		return 0, fmt.Errorf("step: %w", err)
	}

	defer p.vm.Reset()
	if err := p.vm.RunAll(); err != nil {
		return 0, fmt.Errorf("step: %w", err)
	}
	if err := solver.Step(p.net.Model()); err != nil {
		return 0, fmt.Errorf("step: %w", err)
	}

	loss, ok := p.lossVal.Data().(float64)
	if !ok {
		return 0, fmt.Errorf("step: unexpected loss type %T",
			p.lossVal.Data())
	}
	return loss, nil
}

// close releases the policyGradient's VM
func (p *policyGradient) close() error {
	return p.vm.Close()
}
