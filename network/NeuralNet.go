// Package network implements feed forward neural networks built on
// Gorgonia computational graphs
package network

import (
	G "gorgonia.org/gorgonia"
)

// NeuralNet is a neural network whose forward pass has been added to
// a computational graph. The network's input is a matrix of shape
// (BatchSize(), Features()) and its output a matrix of shape
// (BatchSize(), Outputs()).
type NeuralNet interface {
	Graph() *G.ExprGraph
	Clone() (NeuralNet, error)
	CloneWithBatch(int) (NeuralNet, error)
	BatchSize() int
	Features() int
	Outputs() int

	// SetInput sets the value of the input node before running the
	// forward pass. Input must be in row major order.
	SetInput([]float64) error

	// Set sets the weights of the network to be equal to the weights
	// of another network of the same architecture
	Set(NeuralNet) error

	Learnables() G.Nodes
	Model() []G.ValueGrad
	Output() G.Value
	Prediction() *G.Node

	// Weights returns a copy of the backing data of each learnable
	// node, in the order of Learnables()
	Weights() [][]float64
	SetWeights([][]float64) error
}
