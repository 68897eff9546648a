package network

import (
	"bytes"
	"encoding/gob"
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// MLP implements a multi-layered perceptron. Every hidden layer and the
// output layer has a bias unit.
type MLP struct {
	g          *G.ExprGraph
	layers     []*fcLayer
	input      *G.Node
	numInputs  int
	numOutputs int
	batchSize  int

	// Architecture, needed for cloning and gobbing
	hiddenSizes []int
	activations []*Activation
	outAct      *Activation

	learnables G.Nodes
	model      []G.ValueGrad

	prediction *G.Node
	predVal    G.Value
}

// NewMLP creates and returns a new multi-layered perceptron with
// len(hiddenSizes) hidden layers followed by an output layer of size
// outputs. The graph g is populated with the MLP.
//
// For index i, hiddenSizes[i] is the number of nodes in hidden layer i
// and activations[i] is its activation function. The output layer uses
// the activation outAct. The parameter init determines the weight
// initialization scheme, biases are always initialized to zero.
func NewMLP(features, batch, outputs int, g *G.ExprGraph, hiddenSizes []int,
	activations []*Activation, outAct *Activation,
	init G.InitWFn) (*MLP, error) {
	if len(hiddenSizes) != len(activations) {
		msg := "newMLP: invalid number of activations\n\twant(%d)\n\thave(%d)"
		return nil, fmt.Errorf(msg, len(hiddenSizes), len(activations))
	}
	if features <= 0 || batch <= 0 || outputs <= 0 {
		return nil, fmt.Errorf("newMLP: features (%d), batch (%d) and "+
			"outputs (%d) must be positive", features, batch, outputs)
	}
	if outAct == nil {
		outAct = Identity()
	}

	input := G.NewMatrix(g, tensor.Float64, G.WithShape(batch, features),
		G.WithName("input"), G.WithInit(G.Zeroes()))

	layers := make([]*fcLayer, 0, len(hiddenSizes)+1)
	in := features
	for i, size := range hiddenSizes {
		layers = append(layers, newFCLayer(g, in, size, activations[i], init, i))
		in = size
	}
	layers = append(layers, newFCLayer(g, in, outputs, outAct, init,
		len(hiddenSizes)))

	net := &MLP{
		g:           g,
		layers:      layers,
		input:       input,
		numInputs:   features,
		numOutputs:  outputs,
		batchSize:   batch,
		hiddenSizes: append([]int(nil), hiddenSizes...),
		activations: append([]*Activation(nil), activations...),
		outAct:      outAct,
	}
	if _, err := net.fwd(input); err != nil {
		return nil, fmt.Errorf("newMLP: could not compute forward pass: %w",
			err)
	}

	return net, nil
}

// NewPolicyMLP returns the two-hidden-layer ReLU network with a tanh
// head used to map features to bounded actions
func NewPolicyMLP(features, batch, outputs int, hidden int,
	init G.InitWFn) (*MLP, error) {
	return NewMLP(features, batch, outputs, G.NewGraph(),
		[]int{hidden, hidden}, []*Activation{ReLU(), ReLU()}, TanH(), init)
}

// Graph returns the computational graph of the MLP
func (m *MLP) Graph() *G.ExprGraph {
	return m.g
}

// Clone clones an MLP to a new graph
func (m *MLP) Clone() (NeuralNet, error) {
	return m.CloneWithBatch(m.batchSize)
}

// CloneWithBatch clones an MLP to a new graph with a new input batch
// size. The clone's weights are copies of the MLP's weights.
func (m *MLP) CloneWithBatch(batchSize int) (NeuralNet, error) {
	clone, err := NewMLP(m.numInputs, batchSize, m.numOutputs, G.NewGraph(),
		m.hiddenSizes, m.activations, m.outAct, G.Zeroes())
	if err != nil {
		return nil, fmt.Errorf("cloneWithBatch: %w", err)
	}
	if err := clone.Set(m); err != nil {
		return nil, fmt.Errorf("cloneWithBatch: %w", err)
	}
	return clone, nil
}

// BatchSize returns the batch size of inputs to the MLP
func (m *MLP) BatchSize() int {
	return m.batchSize
}

// Features returns the number of features in a single input vector
func (m *MLP) Features() int {
	return m.numInputs
}

// Outputs returns the number of outputs of a single input vector
func (m *MLP) Outputs() int {
	return m.numOutputs
}

// SetInput sets the value of the input node before running the forward
// pass. SetInput panics if the input is not of length
// BatchSize() * Features().
func (m *MLP) SetInput(input []float64) error {
	if len(input) != m.numInputs*m.batchSize {
		msg := fmt.Sprintf("setInput: invalid number of inputs\n\twant(%v)"+
			"\n\thave(%v)", m.numInputs*m.batchSize, len(input))
		panic(msg)
	}
	inputTensor := tensor.New(
		tensor.WithBacking(input),
		tensor.WithShape(m.input.Shape()...),
	)
	return G.Let(m.input, inputTensor)
}

// Set sets the weights of the MLP to copies of the weights of another
// network of the same architecture
func (m *MLP) Set(source NeuralNet) error {
	sourceNodes := source.Learnables()
	nodes := m.Learnables()
	if len(sourceNodes) != len(nodes) {
		return fmt.Errorf("set: source has %d learnables, want %d",
			len(sourceNodes), len(nodes))
	}

	for i, dest := range nodes {
		if !dest.Shape().Eq(sourceNodes[i].Shape()) {
			return fmt.Errorf("set: learnable %d has shape %v, want %v", i,
				sourceNodes[i].Shape(), dest.Shape())
		}
		weights := sourceNodes[i].Value().(*tensor.Dense).Clone().(*tensor.Dense)
		if err := G.Let(dest, weights); err != nil {
			return fmt.Errorf("set: %w", err)
		}
	}
	return nil
}

// Weights returns copies of the data backing each learnable node
func (m *MLP) Weights() [][]float64 {
	nodes := m.Learnables()
	weights := make([][]float64, len(nodes))
	for i, node := range nodes {
		data := node.Value().Data().([]float64)
		weights[i] = append([]float64(nil), data...)
	}
	return weights
}

// SetWeights sets the data backing each learnable node
func (m *MLP) SetWeights(weights [][]float64) error {
	nodes := m.Learnables()
	if len(weights) != len(nodes) {
		return fmt.Errorf("setWeights: have %d weight slices, want %d",
			len(weights), len(nodes))
	}

	for i, node := range nodes {
		if len(weights[i]) != node.Shape().TotalSize() {
			return fmt.Errorf("setWeights: learnable %d has %d weights, "+
				"want %d", i, len(weights[i]), node.Shape().TotalSize())
		}
		backing := append([]float64(nil), weights[i]...)
		t := tensor.New(tensor.WithBacking(backing),
			tensor.WithShape(node.Shape()...))
		if err := G.Let(node, t); err != nil {
			return fmt.Errorf("setWeights: %w", err)
		}
	}
	return nil
}

// Learnables returns the learnable nodes of the MLP: the weights and
// bias of each layer, in order
func (m *MLP) Learnables() G.Nodes {
	if m.learnables == nil {
		learnables := make(G.Nodes, 0, 2*len(m.layers))
		for _, l := range m.layers {
			learnables = append(learnables, l.weights, l.bias)
		}
		m.learnables = learnables
	}
	return m.learnables
}

// Model returns the learnables nodes with their gradients
func (m *MLP) Model() []G.ValueGrad {
	if m.model == nil {
		m.model = G.NodesToValueGrads(m.Learnables())
	}
	return m.model
}

// fwd performs the forward pass of the MLP on the input node
func (m *MLP) fwd(input *G.Node) (*G.Node, error) {
	pred := input
	var err error
	for i, l := range m.layers {
		if pred, err = l.fwd(pred); err != nil {
			msg := "fwd: could not compute forward pass of layer %v: %w"
			return nil, fmt.Errorf(msg, i, err)
		}
	}

	m.prediction = pred
	G.Read(m.prediction, &m.predVal)

	return pred, nil
}

// Output returns the value of the MLP's prediction after the graph
// has been run
func (m *MLP) Output() G.Value {
	return m.predVal
}

// Prediction returns the node of the computational graph that stores
// the output of the MLP
func (m *MLP) Prediction() *G.Node {
	return m.prediction
}

// mlpGob is the gob representation of an MLP
type mlpGob struct {
	Features    int
	Outputs     int
	Batch       int
	Hidden      []int
	Activations []*Activation
	OutAct      *Activation
	Weights     [][]float64
}

// GobEncode implements the gob.GobEncoder interface
func (m *MLP) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(mlpGob{
		Features:    m.numInputs,
		Outputs:     m.numOutputs,
		Batch:       m.batchSize,
		Hidden:      m.hiddenSizes,
		Activations: m.activations,
		OutAct:      m.outAct,
		Weights:     m.Weights(),
	})
	if err != nil {
		return nil, fmt.Errorf("gobencode: %w", err)
	}
	return buf.Bytes(), nil
}

// GobDecode implements the gob.GobDecoder interface
func (m *MLP) GobDecode(in []byte) error {
	var enc mlpGob
	if err := gob.NewDecoder(bytes.NewReader(in)).Decode(&enc); err != nil {
		return fmt.Errorf("gobdecode: %w", err)
	}

	net, err := NewMLP(enc.Features, enc.Batch, enc.Outputs, G.NewGraph(),
		enc.Hidden, enc.Activations, enc.OutAct, G.Zeroes())
	if err != nil {
		return fmt.Errorf("gobdecode: could not construct MLP: %w", err)
	}
	if err := net.SetWeights(enc.Weights); err != nil {
		return fmt.Errorf("gobdecode: %w", err)
	}

	*m = *net
	return nil
}

// Encode serializes a network
func Encode(net NeuralNet) ([]byte, error) {
	m, ok := net.(*MLP)
	if !ok {
		return nil, fmt.Errorf("encode: cannot encode network of type %T", net)
	}
	return m.GobEncode()
}

// Decode deserializes a network serialized with Encode
func Decode(data []byte) (*MLP, error) {
	var m MLP
	if err := m.GobDecode(data); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return &m, nil
}
