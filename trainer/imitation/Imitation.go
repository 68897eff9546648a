// Package imitation implements behaviour cloning: a network is fit by
// regression to the actions a human took in recorded demonstrations.
//
// Each environment has its own model. Training continues from the
// environment's existing model, if any, and replaces it when done.
package imitation

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aunum/log"
	"github.com/samuelfneumann/retrolearn/dataset"
	"github.com/samuelfneumann/retrolearn/environment"
	"github.com/samuelfneumann/retrolearn/initwfn"
	"github.com/samuelfneumann/retrolearn/network"
	"github.com/samuelfneumann/retrolearn/solver"
	"github.com/samuelfneumann/retrolearn/store"
	"github.com/samuelfneumann/retrolearn/trainer"
	"github.com/samuelfneumann/retrolearn/utils/intutils"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
)

// Result summarizes a training run
type Result struct {
	Samples    int
	Train, Val int // Sizes of the training and validation splits
	Epochs     int
	Batch      int
	Loss       float64 // Training loss of the last pass
	ValLoss    float64 // Validation loss after the last pass
}

// Trainer trains, stores, and loads the imitation models of every
// environment
type Trainer struct {
	guard    trainer.Guard
	config   Config
	datasets *dataset.Store
	models   *store.Models
	rng      *rand.Rand

	mu   sync.RWMutex
	nets map[string]network.NeuralNet

	// OnProgress, if non-nil, is called after each training pass
	OnProgress func(env string, p trainer.Progress)
}

// New returns a new Trainer which trains on the datasets in datasets and
// persists models to models
func New(datasets *dataset.Store, models *store.Models, c Config) *Trainer {
	c = c.Normalize()
	return &Trainer{
		config:   c,
		datasets: datasets,
		models:   models,
		rng:      rand.New(rand.NewSource(c.Seed)),
		nets:     make(map[string]network.NeuralNet),
	}
}

// Config returns the Trainer's configuration
func (t *Trainer) Config() Config {
	return t.config
}

// Busy returns whether a training run is in progress
func (t *Trainer) Busy() bool {
	return t.guard.Busy()
}

// Model returns the model of an environment, or nil if there is none
func (t *Trainer) Model(env string) network.NeuralNet {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.nets[env]
}

// SetModel replaces the model of an environment. A nil network removes
// the model.
func (t *Trainer) SetModel(env string, net network.NeuralNet) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if net == nil {
		delete(t.nets, env)
		return
	}
	t.nets[env] = net
}

// Train trains the model of env on its dataset for the given number of
// passes with the given batch size. Both are clamped to their bounds;
// non-positive values select the configured defaults.
//
// If the dataset holds fewer than the configured minimum number of
// samples, the returned error wraps trainer.ErrInsufficientData and the
// model is left unchanged. If another run is in progress, the returned
// error is trainer.ErrConcurrentTraining.
func (t *Trainer) Train(env string, epochs, batch int) (Result, error) {
	if err := t.guard.Acquire(); err != nil {
		return Result{}, fmt.Errorf("train %v: %w", env, err)
	}
	defer t.guard.Release()

	if epochs <= 0 {
		epochs = t.config.Epochs
	}
	if batch <= 0 {
		batch = t.config.Batch
	}
	epochs = intutils.Clip(epochs, MinEpochs, MaxEpochs)
	batch = intutils.Clip(batch, MinBatch, MaxBatch)

	log.Infof("Training imitation model (%v) epochs=%d, batch=%d...", env,
		epochs, batch)
	res, err := t.fit(env, t.Model(env), t.config.MinSamples, epochs, batch,
		true)
	if err != nil {
		return res, fmt.Errorf("train %v: %w", env, err)
	}
	log.Successf("Train done (%v): loss=%.5f val=%.5f", env, res.Loss,
		res.ValLoss)
	return res, nil
}

// QuickTrain trains a fresh model for env with the quick-path settings.
// It requires fewer samples than Train.
func (t *Trainer) QuickTrain(env string) (Result, error) {
	if err := t.guard.Acquire(); err != nil {
		return Result{}, fmt.Errorf("quickTrain %v: %w", env, err)
	}
	defer t.guard.Release()

	return t.quickTrain(env)
}

func (t *Trainer) quickTrain(env string) (Result, error) {
	log.Infof("No model yet, quick auto-train (%d epochs)...",
		t.config.QuickEpochs)
	res, err := t.fit(env, nil, t.config.QuickMinSamples,
		t.config.QuickEpochs, t.config.QuickBatch, false)
	if err != nil {
		return res, fmt.Errorf("quickTrain %v: %w", env, err)
	}
	log.Successf("Quick train done (%v).", env)
	return res, nil
}

// fit trains a model for env and replaces the environment's model with
// it. Training starts from init if it is non-nil and matches the
// dataset's shape.
func (t *Trainer) fit(env string, init network.NeuralNet, minSamples, epochs,
	batch int, report bool) (Result, error) {
	samples := t.datasets.Get(env).Samples()
	if len(samples) < minSamples {
		return Result{Samples: len(samples)}, fmt.Errorf("fit: %w: have %d "+
			"samples, need at least %d", trainer.ErrInsufficientData,
			len(samples), minSamples)
	}
	features := len(samples[0].X)

	// Shuffle a copy, then hold out the tail for validation
	t.rng.Shuffle(len(samples), func(i, j int) {
		samples[i], samples[j] = samples[j], samples[i]
	})
	nTrain := int(float64(len(samples)) * (1 - t.config.ValidationSplit))
	nTrain = intutils.Clip(nTrain, 1, len(samples)-1)
	trainSet, valSet := samples[:nTrain], samples[nTrain:]

	if init == nil || init.Features() != features ||
		init.Outputs() != environment.ActionDims {
		wInit, err := initwfn.Parse(t.config.Init, t.config.InitGain)
		if err != nil {
			return Result{}, fmt.Errorf("fit: %w", err)
		}
		init, err = network.NewPolicyMLP(features, 1, environment.ActionDims,
			t.config.Hidden, wInit.InitWFn())
		if err != nil {
			return Result{}, fmt.Errorf("fit: %w", err)
		}
	}

	batch = intutils.Min(batch, nTrain)
	reg, err := newRegression(init, batch)
	if err != nil {
		return Result{}, fmt.Errorf("fit: %w", err)
	}
	defer reg.close()

	val, err := network.NewPredictor(reg.net, len(valSet))
	if err != nil {
		return Result{}, fmt.Errorf("fit: %w", err)
	}
	defer val.Close()
	valX, valY := flatten(valSet)

	opt, err := solver.Parse(t.config.Optimizer, t.config.StepSize)
	if err != nil {
		return Result{}, fmt.Errorf("fit: %w", err)
	}

	res := Result{
		Samples: len(samples),
		Train:   len(trainSet),
		Val:     len(valSet),
		Epochs:  epochs,
		Batch:   batch,
	}
	for ep := 1; ep <= epochs; ep++ {
		t.rng.Shuffle(len(trainSet), func(i, j int) {
			trainSet[i], trainSet[j] = trainSet[j], trainSet[i]
		})

		var total float64
		batches := len(trainSet) / batch
		for b := 0; b < batches; b++ {
			x, y := flatten(trainSet[b*batch : (b+1)*batch])
			loss, err := reg.step(opt, x, y)
			if err != nil {
				return res, fmt.Errorf("fit: pass %d: %w", ep, err)
			}
			total += loss
		}
		res.Loss = total / float64(batches)

		if err := val.Sync(reg.net); err != nil {
			return res, fmt.Errorf("fit: pass %d: %w", ep, err)
		}
		pred, err := val.Predict(valX)
		if err != nil {
			return res, fmt.Errorf("fit: pass %d: %w", ep, err)
		}
		res.ValLoss = meanSquaredError(pred, valY)

		if report {
			log.Infof("ep %03d loss=%.5f val=%.5f", ep, res.Loss, res.ValLoss)
		}
		if t.OnProgress != nil {
			t.OnProgress(env, trainer.Progress{
				Index:   ep,
				Total:   epochs,
				Loss:    res.Loss,
				ValLoss: res.ValLoss,
			})
		}
	}

	t.SetModel(env, reg.net)
	return res, nil
}

// Save saves the model of env to the model store. If env has no model,
// one is quick-trained first.
func (t *Trainer) Save(ctx context.Context, env string) error {
	if err := t.guard.Acquire(); err != nil {
		return fmt.Errorf("save %v: %w", env, err)
	}
	defer t.guard.Release()

	if t.Model(env) == nil {
		if _, err := t.quickTrain(env); err != nil {
			return fmt.Errorf("save %v: %w", env, err)
		}
	}

	key := store.Key{Env: env, Paradigm: store.Imitation}
	if err := t.models.Save(ctx, key, t.Model(env)); err != nil {
		return fmt.Errorf("save %v: %w", env, err)
	}
	log.Successf("Saved imitation model to %v.", key)
	return nil
}

// Load replaces the model of env with the one in the model store. If
// none is stored, the returned error wraps store.ErrModelNotFound and
// the current model is kept.
func (t *Trainer) Load(ctx context.Context, env string) error {
	key := store.Key{Env: env, Paradigm: store.Imitation}
	net, err := t.models.Load(ctx, key)
	if errors.Is(err, store.ErrModelNotFound) {
		log.Warningf("No saved imitation model found for %v.", env)
		return err
	} else if err != nil {
		return fmt.Errorf("load %v: %w", env, err)
	}

	t.SetModel(env, net)
	log.Successf("Loaded imitation model from %v.", key)
	return nil
}

// flatten returns the features and actions of samples as row major
// matrices
func flatten(samples []dataset.Sample) (x, y []float64) {
	if len(samples) == 0 {
		return nil, nil
	}
	x = make([]float64, 0, len(samples)*len(samples[0].X))
	y = make([]float64, 0, len(samples)*environment.ActionDims)
	for _, s := range samples {
		x = append(x, s.X...)
		y = append(y, s.Y[:]...)
	}
	return x, y
}

// meanSquaredError returns the mean squared difference of pred and y
func meanSquaredError(pred, y []float64) float64 {
	d := floats.Distance(pred, y, 2)
	return d * d / float64(len(y))
}
