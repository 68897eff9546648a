package imitation

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/samuelfneumann/retrolearn/dataset"
	"github.com/samuelfneumann/retrolearn/environment"
	"github.com/samuelfneumann/retrolearn/network"
	"github.com/samuelfneumann/retrolearn/store"
	"github.com/samuelfneumann/retrolearn/trainer"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	G "gorgonia.org/gorgonia"
)

const testEnv = "drone"

// fill appends n demonstrations to the drone dataset where the action
// is a fixed function of the features
func fill(d *dataset.Dataset, n int, seed uint64) {
	rng := rand.New(rand.NewSource(seed))
	for i := 0; i < n; i++ {
		x := make([]float64, 9)
		for j := range x {
			x[j] = rng.Float64()*2 - 1
		}
		d.Append(x, environment.Action{0.5 * x[0], -0.3})
	}
}

func newTestTrainer(n int) (*Trainer, *dataset.Store) {
	datasets := dataset.NewStore(dataset.DefaultCap)
	fill(datasets.Get(testEnv), n, 1)
	c := DefaultConfig()
	c.Hidden = 16
	return New(datasets, store.NewModels(store.NewMemory()), c), datasets
}

func TestInsufficientData(t *testing.T) {
	tr, _ := newTestTrainer(250)

	existing, err := network.NewPolicyMLP(9, 1, 2, 16, G.GlorotU(1))
	if err != nil {
		t.Fatal(err)
	}
	before := existing.Weights()
	tr.SetModel(testEnv, existing)

	_, err = tr.Train(testEnv, 0, 0)
	if !errors.Is(err, trainer.ErrInsufficientData) {
		t.Fatalf("train: want ErrInsufficientData, have %v", err)
	}

	if tr.Model(testEnv) != existing {
		t.Fatal("train: model replaced after failed run")
	}
	after := existing.Weights()
	for i := range before {
		if !floats.Equal(before[i], after[i]) {
			t.Errorf("train: learnable %d modified after failed run", i)
		}
	}
}

func TestTrain(t *testing.T) {
	tr, _ := newTestTrainer(320)

	var progress []trainer.Progress
	tr.OnProgress = func(env string, p trainer.Progress) {
		if env != testEnv {
			t.Errorf("progress: want env %v, have %v", testEnv, env)
		}
		progress = append(progress, p)
	}

	res, err := tr.Train(testEnv, 30, 16)
	if err != nil {
		t.Fatal(err)
	}

	if res.Train+res.Val != 320 || res.Val == 0 {
		t.Errorf("train: invalid split %d/%d", res.Train, res.Val)
	}
	if len(progress) != 30 || progress[29].Index != 30 {
		t.Fatalf("train: want 30 progress reports, have %d", len(progress))
	}
	for _, p := range progress {
		if math.IsNaN(p.Loss) || math.IsNaN(p.ValLoss) {
			t.Fatalf("train: NaN loss at pass %d", p.Index)
		}
	}
	if progress[29].ValLoss >= progress[0].ValLoss {
		t.Errorf("train: validation loss did not decrease: %v -> %v",
			progress[0].ValLoss, progress[29].ValLoss)
	}

	if net := tr.Model(testEnv); net == nil || net.Features() != 9 {
		t.Fatal("train: model not set")
	}
}

func TestClampedSettings(t *testing.T) {
	tr, _ := newTestTrainer(320)

	res, err := tr.Train(testEnv, 1000, 1)
	if err != nil {
		t.Fatal(err)
	}
	if res.Epochs != MaxEpochs || res.Batch != MinBatch {
		t.Errorf("train: want epochs %d batch %d, have %d %d", MaxEpochs,
			MinBatch, res.Epochs, res.Batch)
	}
}

func TestConcurrentTraining(t *testing.T) {
	tr, _ := newTestTrainer(320)

	if err := tr.guard.Acquire(); err != nil {
		t.Fatal(err)
	}
	defer tr.guard.Release()

	if _, err := tr.Train(testEnv, 1, 16); !errors.Is(err,
		trainer.ErrConcurrentTraining) {
		t.Errorf("train: want ErrConcurrentTraining, have %v", err)
	}
	if err := tr.Save(context.Background(), testEnv); !errors.Is(err,
		trainer.ErrConcurrentTraining) {
		t.Errorf("save: want ErrConcurrentTraining, have %v", err)
	}
}

func TestSaveLoad(t *testing.T) {
	ctx := context.Background()
	tr, datasets := newTestTrainer(150)

	if err := tr.Load(ctx, testEnv); !errors.Is(err, store.ErrModelNotFound) {
		t.Fatalf("load: want ErrModelNotFound, have %v", err)
	}
	if err := tr.Save(ctx, testEnv); !errors.Is(err,
		trainer.ErrInsufficientData) {
		t.Fatalf("save: want ErrInsufficientData, have %v", err)
	}

	// Quick path needs fewer samples than full training
	fill(datasets.Get(testEnv), 60, 2)
	if err := tr.Save(ctx, testEnv); err != nil {
		t.Fatal(err)
	}
	saved := tr.Model(testEnv).Weights()

	tr.SetModel(testEnv, nil)
	if err := tr.Load(ctx, testEnv); err != nil {
		t.Fatal(err)
	}
	loaded := tr.Model(testEnv).Weights()
	for i := range saved {
		if !floats.Equal(saved[i], loaded[i]) {
			t.Errorf("load: learnable %d differs from saved", i)
		}
	}
}

func TestNormalize(t *testing.T) {
	c := Config{Epochs: 500, Batch: 4}.Normalize()
	if c.Epochs != MaxEpochs || c.Batch != MinBatch {
		t.Errorf("normalize: have epochs %d batch %d", c.Epochs, c.Batch)
	}
	if c.MinSamples != 300 || c.QuickMinSamples != 200 {
		t.Errorf("normalize: thresholds not defaulted: %+v", c)
	}
	if c.Init != "GlorotU" || c.InitGain != 1 {
		t.Errorf("normalize: initializer not defaulted: %v(%v)", c.Init,
			c.InitGain)
	}

	c = Config{MinSamples: 5, QuickMinSamples: 1}.Normalize()
	if c.MinSamples != 300 || c.QuickMinSamples != 200 {
		t.Errorf("normalize: thresholds lowered to %d/%d", c.MinSamples,
			c.QuickMinSamples)
	}
	c = Config{MinSamples: 500, QuickMinSamples: 400}.Normalize()
	if c.MinSamples != 500 || c.QuickMinSamples != 400 {
		t.Errorf("normalize: raised thresholds not kept: %d/%d", c.MinSamples,
			c.QuickMinSamples)
	}

	c = Config{Optimizer: "lbfgs"}.Normalize()
	if c.Optimizer != "Adam" {
		t.Errorf("normalize: unknown optimizer kept: %v", c.Optimizer)
	}

	c = Config{Init: "lecun"}.Normalize()
	if c.Init != "GlorotU" {
		t.Errorf("normalize: unknown initializer kept: %v", c.Init)
	}
	c = Config{Init: "heu", InitGain: 2}.Normalize()
	if c.Init != "heu" || c.InitGain != 2 {
		t.Errorf("normalize: initializer replaced: %v(%v)", c.Init, c.InitGain)
	}
}

func TestOptimizer(t *testing.T) {
	for _, name := range []string{"Vanilla", "rmsprop"} {
		datasets := dataset.NewStore(dataset.DefaultCap)
		fill(datasets.Get(testEnv), 320, 2)
		c := DefaultConfig()
		c.Hidden = 16
		c.Optimizer = name
		tr := New(datasets, store.NewModels(store.NewMemory()), c)
		if tr.Config().Optimizer != name {
			t.Fatalf("%v: optimizer replaced by %v", name, tr.Config().Optimizer)
		}

		res, err := tr.Train(testEnv, 3, 32)
		if err != nil {
			t.Fatalf("%v: %v", name, err)
		}
		if math.IsNaN(res.Loss) || math.IsNaN(res.ValLoss) {
			t.Errorf("%v: NaN loss", name)
		}
		if tr.Model(testEnv) == nil {
			t.Errorf("%v: model not set", name)
		}
	}
}
