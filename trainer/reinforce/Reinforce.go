// Package reinforce implements the REINFORCE policy gradient algorithm
// with Gaussian exploration.
//
// Each training episode is rolled out with the exploring policy, after
// which the discounted returns of the episode are standardized and a
// single gradient step is taken on the log likelihood of the actions
// taken, weighted by the standardized returns. There is no baseline or
// critic.
package reinforce

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/aunum/log"
	"github.com/samuelfneumann/retrolearn/agent"
	"github.com/samuelfneumann/retrolearn/agent/policy"
	"github.com/samuelfneumann/retrolearn/environment"
	"github.com/samuelfneumann/retrolearn/initwfn"
	"github.com/samuelfneumann/retrolearn/network"
	"github.com/samuelfneumann/retrolearn/solver"
	"github.com/samuelfneumann/retrolearn/store"
	"github.com/samuelfneumann/retrolearn/timestep"
	"github.com/samuelfneumann/retrolearn/trainer"
	"github.com/samuelfneumann/retrolearn/utils/intutils"
)

// ErrNoPolicy is returned when training is requested before a policy
// was initialized or loaded
var ErrNoPolicy = errors.New("no policy, initialize or load one first")

// Tracker tracks the timesteps of training episodes
type Tracker interface {
	Track(t timestep.TimeStep)
}

// EpisodeResult summarizes a single training episode
type EpisodeResult struct {
	Return  float64
	Loss    float64
	Steps   int
	Skipped bool // Whether the policy update was skipped
}

// Trainer trains a Gaussian policy on an environment with REINFORCE
type Trainer struct {
	guard  trainer.Guard
	config Config
	env    environment.Environment
	models *store.Models

	policy  network.NeuralNet
	explore *policy.Gaussian
	grad    *policyGradient
	solver  *solver.Solver

	lastReturn float64
	bestReturn float64
	episodes   int

	// Tracker, if non-nil, tracks every timestep of training episodes
	Tracker Tracker

	// OnProgress, if non-nil, is called after each training episode
	OnProgress func(p trainer.Progress)
}

// New returns a new Trainer on env without a policy
func New(env environment.Environment, models *store.Models,
	c Config) (*Trainer, error) {
	c = c.Normalize()

	explore, err := policy.NewGaussian(c.Sigma, c.Seed)
	if err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}

	return &Trainer{
		config:     c,
		env:        env,
		models:     models,
		explore:    explore,
		lastReturn: math.NaN(),
		bestReturn: math.Inf(-1),
	}, nil
}

// Config returns the Trainer's configuration
func (t *Trainer) Config() Config {
	return t.config
}

// Busy returns whether a training run is in progress
func (t *Trainer) Busy() bool {
	return t.guard.Busy()
}

// key returns the model store key of the Trainer's policy
func (t *Trainer) key() store.Key {
	return store.Key{Env: t.env.Kind().String(), Paradigm: store.Reinforce}
}

// Init replaces the policy and its optimizer with freshly initialized
// ones
func (t *Trainer) Init() error {
	wInit, err := initwfn.Parse(t.config.Init, t.config.InitGain)
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}

	features := t.env.ObservationSpec().Len()
	net, err := network.NewPolicyMLP(features, 1, environment.ActionDims,
		t.config.Hidden, wInit.InitWFn())
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	if err := t.setPolicy(net); err != nil {
		return fmt.Errorf("init: %w", err)
	}

	log.Infof("RL policy initialized (%v).", t.env.Kind())
	return nil
}

// setPolicy sets the policy and resets the optimizer
func (t *Trainer) setPolicy(net network.NeuralNet) error {
	if net.Features() != t.env.ObservationSpec().Len() ||
		net.Outputs() != environment.ActionDims {
		return fmt.Errorf("setPolicy: network maps %d features to %d "+
			"outputs, want %d to %d", net.Features(), net.Outputs(),
			t.env.ObservationSpec().Len(), environment.ActionDims)
	}

	if err := t.explore.SetNetwork(net); err != nil {
		return fmt.Errorf("setPolicy: %w", err)
	}

	if t.solver == nil {
		opt, err := solver.Parse(t.config.Optimizer, t.config.StepSize)
		if err != nil {
			return fmt.Errorf("setPolicy: %w", err)
		}
		t.solver = opt
	} else {
		t.solver.Reset()
	}

	if t.grad != nil {
		t.grad.close()
		t.grad = nil
	}
	t.policy = net
	return nil
}

// HasPolicy returns whether a policy was initialized or loaded
func (t *Trainer) HasPolicy() bool {
	return t.policy != nil
}

// Policy returns the policy's mean network, or nil if there is none
func (t *Trainer) Policy() network.NeuralNet {
	return t.policy
}

// Explorer returns the exploring action source of the Trainer
func (t *Trainer) Explorer() agent.Evaler {
	return t.explore
}

// Sigma returns the standard deviation of exploration noise
func (t *Trainer) Sigma() float64 {
	return t.explore.Sigma()
}

// SetSigma sets the standard deviation of exploration noise
func (t *Trainer) SetSigma(sigma float64) error {
	return t.explore.SetSigma(sigma)
}

// LastReturn returns the total reward of the last training or demo
// episode, or NaN if none was run
func (t *Trainer) LastReturn() float64 {
	return t.lastReturn
}

// BestReturn returns the best total reward over all training and demo
// episodes, or -Inf if none was run
func (t *Trainer) BestReturn() float64 {
	return t.bestReturn
}

// Episodes returns the number of training episodes run
func (t *Trainer) Episodes() int {
	return t.episodes
}

// RunEpisode resets the environment and rolls out a single episode with
// the exploring policy. The episode ends after maxSteps steps, clamped
// to [MinSteps, MaxSteps], or earlier on a collision once enough steps
// have been taken. The policy is not updated.
func (t *Trainer) RunEpisode(maxSteps int) (*Rollout, error) {
	if t.policy == nil {
		return nil, fmt.Errorf("runEpisode: %w", ErrNoPolicy)
	}
	maxSteps = t.clampSteps(maxSteps)

	enders := environment.Enders{
		environment.NewBumpEnder(t.env, t.config.BumpThreshold,
			t.config.BumpAfter),
		environment.NewStepLimit(maxSteps),
	}
	r, err := t.rollout(t.explore, enders, maxSteps, t.Tracker)
	if err != nil {
		return nil, fmt.Errorf("runEpisode: %w", err)
	}
	return r, nil
}

// rollout runs an episode with the action source p until one of enders
// ends it
func (t *Trainer) rollout(p agent.Policy, enders environment.Ender,
	maxSteps int, tracker Tracker) (*Rollout, error) {
	r := newRollout(t.env.ObservationSpec().Len(), maxSteps)

	step := t.env.Reset()
	if tracker != nil {
		tracker.Track(step)
	}
	for !step.Last() {
		obs := step.Observation.RawVector().Data
		a, err := p.SelectAction(step)
		if err != nil {
			return r, fmt.Errorf("rollout: %w", err)
		}

		step = t.env.Step(a, t.config.Dt)
		enders.End(&step)
		if tracker != nil {
			tracker.Track(step)
		}

		if err := r.store(obs, a, step.Reward); err != nil {
			return r, fmt.Errorf("rollout: %w", err)
		}
	}
	return r, nil
}

// Update takes a single policy gradient step on the rollout. It returns
// the loss before the step and whether the step was skipped. The step
// is skipped when the exploration noise is not positive, since the
// likelihood of the actions is then degenerate.
func (t *Trainer) Update(r *Rollout) (float64, bool, error) {
	if t.policy == nil {
		return 0, false, fmt.Errorf("update: %w", ErrNoPolicy)
	}
	if r.Len() == 0 {
		return 0, true, nil
	}
	sigma := t.explore.Sigma()
	if sigma <= 0 {
		log.Warningf("sigma=%v, skipping policy update", sigma)
		return 0, true, nil
	}

	batch := intutils.Max(r.maxSize, r.Len())
	if t.grad == nil || t.grad.batch != batch {
		if t.grad != nil {
			t.grad.close()
		}
		grad, err := newPolicyGradient(t.policy, batch)
		if err != nil {
			t.grad = nil
			return 0, false, fmt.Errorf("update: %w", err)
		}
		t.grad = grad
	}

	adv := Normalize(DiscountedReturns(r.Rewards(), t.config.Gamma))
	loss, err := t.grad.step(t.solver, r, adv, sigma)
	if err != nil {
		return 0, false, fmt.Errorf("update: %w", err)
	}

	// Copy the updated weights to the behaviour policy
	if err := t.policy.Set(t.grad.net); err != nil {
		return loss, false, fmt.Errorf("update: %w", err)
	}
	if err := t.explore.Sync(t.policy); err != nil {
		return loss, false, fmt.Errorf("update: %w", err)
	}
	return loss, false, nil
}

// TrainEpisode runs a single training episode and updates the policy
func (t *Trainer) TrainEpisode(maxSteps int) (EpisodeResult, error) {
	r, err := t.RunEpisode(maxSteps)
	if err != nil {
		return EpisodeResult{}, fmt.Errorf("trainEpisode: %w", err)
	}
	loss, skipped, err := t.Update(r)
	if err != nil {
		return EpisodeResult{}, fmt.Errorf("trainEpisode: %w", err)
	}

	t.episodes++
	ret := r.Total()
	t.recordScore(ret)
	return EpisodeResult{
		Return:  ret,
		Loss:    loss,
		Steps:   r.Len(),
		Skipped: skipped,
	}, nil
}

// Train runs episodes training episodes of at most maxSteps steps each
// and returns the average return. Non-positive arguments select the
// configured defaults, and both are clamped to their bounds. If another
// run is in progress, the returned error is
// trainer.ErrConcurrentTraining.
func (t *Trainer) Train(episodes, maxSteps int) (float64, error) {
	if err := t.guard.Acquire(); err != nil {
		return 0, fmt.Errorf("train: %w", err)
	}
	defer t.guard.Release()

	if t.policy == nil {
		return 0, fmt.Errorf("train: %w", ErrNoPolicy)
	}
	if episodes <= 0 {
		episodes = t.config.Episodes
	}
	episodes = intutils.Clip(episodes, MinEpisodes, MaxEpisodes)
	maxSteps = t.clampSteps(maxSteps)

	log.Infof("RL training start: episodes=%d, steps=%d", episodes, maxSteps)
	t.explore.Train()

	var sum float64
	for ep := 1; ep <= episodes; ep++ {
		res, err := t.TrainEpisode(maxSteps)
		if err != nil {
			return sum / float64(ep), fmt.Errorf("train: episode %d: %w", ep,
				err)
		}
		sum += res.Return

		log.Infof("RL ep %03d return=%.2f loss=%.5f steps=%d", ep,
			res.Return, res.Loss, res.Steps)
		if t.OnProgress != nil {
			t.OnProgress(trainer.Progress{
				Index:  ep,
				Total:  episodes,
				Loss:   res.Loss,
				Return: res.Return,
				Steps:  res.Steps,
			})
		}
	}

	avg := sum / float64(episodes)
	log.Successf("RL training done. Avg return=%.2f", avg)
	return avg, nil
}

// Demo runs a single episode of maxSteps steps with the policy mean and
// no exploration, and returns its total reward. Without a policy the
// zero action is taken. A non-positive maxSteps selects the configured
// default, and maxSteps is clamped to [MinSteps, MaxSteps]. The policy
// is not updated.
func (t *Trainer) Demo(maxSteps int) (float64, error) {
	if maxSteps <= 0 {
		maxSteps = t.config.DemoSteps
	}
	maxSteps = intutils.Clip(maxSteps, MinSteps, MaxSteps)

	t.explore.Eval()
	defer t.explore.Train()

	r, err := t.rollout(t.explore, environment.NewStepLimit(maxSteps),
		maxSteps, nil)
	if err != nil {
		return 0, fmt.Errorf("demo: %w", err)
	}

	total := r.Total()
	t.recordScore(total)
	log.Infof("RL demo total reward: %.2f", total)
	return total, nil
}

// recordScore records the total reward of an episode
func (t *Trainer) recordScore(total float64) {
	t.lastReturn = total
	t.bestReturn = math.Max(t.bestReturn, total)
	t.env.RecordScore(total)
}

// clampSteps returns the episode length clamped to its bounds, with
// non-positive values selecting the configured default
func (t *Trainer) clampSteps(maxSteps int) int {
	if maxSteps <= 0 {
		maxSteps = t.config.MaxSteps
	}
	return intutils.Clip(maxSteps, MinSteps, MaxSteps)
}

// Save saves the policy to the model store
func (t *Trainer) Save(ctx context.Context) error {
	if t.policy == nil {
		return fmt.Errorf("save: %w", ErrNoPolicy)
	}
	if err := t.models.Save(ctx, t.key(), t.policy); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	log.Successf("Saved RL policy to %v.", t.key())
	return nil
}

// Load replaces the policy with the one in the model store and resets
// the optimizer. If none is stored, the returned error wraps
// store.ErrModelNotFound and the current policy is kept.
func (t *Trainer) Load(ctx context.Context) error {
	net, err := t.models.Load(ctx, t.key())
	if errors.Is(err, store.ErrModelNotFound) {
		log.Warningf("No saved RL policy found for %v.", t.env.Kind())
		return err
	} else if err != nil {
		return fmt.Errorf("load: %w", err)
	}

	if err := t.setPolicy(net); err != nil {
		return fmt.Errorf("load: %w", err)
	}
	log.Successf("Loaded RL policy from %v.", t.key())
	return nil
}
