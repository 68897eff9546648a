package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
)

// Predictor runs the forward pass of a network on batches of inputs.
// It owns a clone of the network with its own graph and VM, so the
// source network can keep training while the Predictor is in use.
// Call Sync to copy over the source's latest weights.
type Predictor struct {
	net NeuralNet
	vm  G.VM
}

// NewPredictor returns a new Predictor for batches of batchSize inputs
func NewPredictor(source NeuralNet, batchSize int) (*Predictor, error) {
	net, err := source.CloneWithBatch(batchSize)
	if err != nil {
		return nil, fmt.Errorf("newPredictor: %w", err)
	}
	return &Predictor{net: net, vm: G.NewTapeMachine(net.Graph())}, nil
}

// Sync copies the weights of source into the Predictor
func (p *Predictor) Sync(source NeuralNet) error {
	return p.net.Set(source)
}

// BatchSize returns the number of inputs predicted at once
func (p *Predictor) BatchSize() int {
	return p.net.BatchSize()
}

// Predict returns the network's outputs for a batch of inputs in row
// major order. Predict panics if the input is not of length
// BatchSize() * Features() of the network.
func (p *Predictor) Predict(input []float64) ([]float64, error) {
	if err := p.net.SetInput(input); err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	defer p.vm.Reset()

	if err := p.vm.RunAll(); err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}

	data, ok := p.net.Output().Data().([]float64)
	if !ok {
		return nil, fmt.Errorf("predict: unexpected output type %T",
			p.net.Output().Data())
	}
	return append([]float64(nil), data...), nil
}

// Close releases the Predictor's VM
func (p *Predictor) Close() error {
	return p.vm.Close()
}
