package imitation

import (
	"fmt"

	"github.com/samuelfneumann/retrolearn/network"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// regression fits a network to targets by minimizing the mean squared
// error over fixed-size batches
type regression struct {
	net     network.NeuralNet
	targets *G.Node
	loss    *G.Node
	lossVal G.Value
	vm      G.VM
}

// newRegression returns a regression on a clone of source which takes
// batches of batchSize inputs
func newRegression(source network.NeuralNet, batchSize int) (*regression,
	error) {
	net, err := source.CloneWithBatch(batchSize)
	if err != nil {
		return nil, fmt.Errorf("newRegression: %w", err)
	}

	targets := G.NewMatrix(
		net.Graph(),
		tensor.Float64,
		G.WithShape(net.Prediction().Shape()...),
		G.WithName("targets"),
		G.WithInit(G.Zeroes()),
	)

	loss := G.Must(G.Sub(net.Prediction(), targets))
	loss = G.Must(G.Square(loss))
	loss = G.Must(G.Mean(loss))

	r := &regression{net: net, targets: targets, loss: loss}
	G.Read(r.loss, &r.lossVal)

	if _, err := G.Grad(r.loss, net.Learnables()...); err != nil {
		return nil, fmt.Errorf("newRegression: could not compute "+
			"gradient: %w", err)
	}
	r.vm = G.NewTapeMachine(net.Graph(),
		G.BindDualValues(net.Learnables()...))

	return r, nil
}

// step performs one gradient step on a batch of inputs x and targets y
// in row major order and returns the batch loss before the step
func (r *regression) step(solver G.Solver, x, y []float64) (float64,
	error) {
	if err := r.net.SetInput(x); err != nil {
		return 0, fmt.Errorf("step: %w", err)
	}
	targets := tensor.New(
		tensor.WithBacking(y),
		tensor.WithShape(r.targets.Shape()...),
	)
	if err := G.Let(r.targets, targets); err != nil {
		return 0, fmt.Errorf("step: %w", err)
	}

	defer r.vm.Reset()
	if err := r.vm.RunAll(); err != nil {
		return 0, fmt.Errorf("step: %w", err)
	}
	if err := solver.Step(r.net.Model()); err != nil {
		return 0, fmt.Errorf("step: %w", err)
	}

	loss, ok := r.lossVal.Data().(float64)
	if !ok {
		return 0, fmt.Errorf("step: unexpected loss type %T",
			r.lossVal.Data())
	}
	return loss, nil
}

// close releases the regression's VM
func (r *regression) close() error {
	return r.vm.Close()
}
