package network

import (
	"math"
	"testing"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	G "gorgonia.org/gorgonia"
)

func randomInputs(rng *rand.Rand, n int) []float64 {
	in := make([]float64, n)
	for i := range in {
		in[i] = rng.Float64()*2 - 1
	}
	return in
}

func newTestMLP(t *testing.T) *MLP {
	net, err := NewPolicyMLP(5, 1, 2, 16, G.GlorotU(1))
	if err != nil {
		t.Fatalf("could not create MLP: %v", err)
	}
	return net
}

func TestMLPShapes(t *testing.T) {
	net := newTestMLP(t)
	if len(net.Learnables()) != 6 {
		t.Errorf("learnables: want(6) have(%d)", len(net.Learnables()))
	}
	if net.Features() != 5 || net.Outputs() != 2 || net.BatchSize() != 1 {
		t.Errorf("shape: features %d outputs %d batch %d", net.Features(),
			net.Outputs(), net.BatchSize())
	}

	if _, err := NewMLP(5, 1, 2, G.NewGraph(), []int{8, 8},
		[]*Activation{ReLU()}, TanH(), G.Zeroes()); err == nil {
		t.Error("newMLP: expected error on mismatched activations")
	}
}

func TestPredictorBounded(t *testing.T) {
	net := newTestMLP(t)
	p, err := NewPredictor(net, 4)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	rng := rand.New(rand.NewSource(1))
	out, err := p.Predict(randomInputs(rng, 4*5))
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 4*2 {
		t.Fatalf("predict: want 8 outputs, have %d", len(out))
	}
	for _, v := range out {
		if math.Abs(v) > 1 {
			t.Errorf("tanh output out of range: %v", v)
		}
	}
}

func TestCloneAndEncode(t *testing.T) {
	net := newTestMLP(t)
	rng := rand.New(rand.NewSource(2))
	in := randomInputs(rng, 5)

	p, err := NewPredictor(net, 1)
	if err != nil {
		t.Fatal(err)
	}
	want, err := p.Predict(in)
	if err != nil {
		t.Fatal(err)
	}

	data, err := Encode(net)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}

	q, err := NewPredictor(decoded, 1)
	if err != nil {
		t.Fatal(err)
	}
	got, err := q.Predict(in)
	if err != nil {
		t.Fatal(err)
	}
	if !floats.EqualApprox(want, got, 1e-12) {
		t.Errorf("decoded network predicts %v, want %v", got, want)
	}

	for i, w := range net.Weights() {
		if !floats.Equal(w, decoded.Weights()[i]) {
			t.Errorf("learnable %d differs after decoding", i)
		}
	}
}

func TestSync(t *testing.T) {
	a := newTestMLP(t)
	b := newTestMLP(t)
	in := randomInputs(rand.New(rand.NewSource(3)), 5)

	p, err := NewPredictor(b, 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Sync(a); err != nil {
		t.Fatal(err)
	}
	got, _ := p.Predict(in)

	pa, _ := NewPredictor(a, 1)
	want, _ := pa.Predict(in)
	if !floats.EqualApprox(want, got, 1e-12) {
		t.Errorf("synced predictor predicts %v, want %v", got, want)
	}

	other, err := NewPolicyMLP(3, 1, 2, 16, G.GlorotU(1))
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Sync(other); err == nil {
		t.Error("sync: expected error on mismatched architecture")
	}
}

func TestSetInputPanics(t *testing.T) {
	net := newTestMLP(t)
	defer func() {
		if recover() == nil {
			t.Error("setInput: expected panic on wrong input length")
		}
	}()
	net.SetInput([]float64{1, 2})
}

func TestParseActivation(t *testing.T) {
	for _, name := range []string{"relu", "tanh", "identity", "sigmoid"} {
		act, err := ParseActivation(name)
		if err != nil || act.String() != name {
			t.Errorf("parseActivation(%v): have %v, %v", name, act, err)
		}
	}
	if _, err := ParseActivation("gelu"); err == nil {
		t.Error("parseActivation: expected error")
	}
}
