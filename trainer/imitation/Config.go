package imitation

import (
	"github.com/samuelfneumann/retrolearn/initwfn"
	"github.com/samuelfneumann/retrolearn/solver"
	"github.com/samuelfneumann/retrolearn/utils/intutils"
)

// Bounds on the number of training passes and the batch size
const (
	MinEpochs int = 1
	MaxEpochs int = 200
	MinBatch  int = 16
	MaxBatch  int = 512
)

// Config configures an imitation Trainer
type Config struct {
	Epochs   int     `yaml:"epochs" mapstructure:"epochs"`
	Batch    int     `yaml:"batch" mapstructure:"batch"`
	StepSize float64 `yaml:"step_size" mapstructure:"step_size"`
	Hidden   int     `yaml:"hidden" mapstructure:"hidden"`

	// Optimizer names the solver, see solver.Parse
	Optimizer string `yaml:"optimizer" mapstructure:"optimizer"`

	// Weight initializer of new networks, see initwfn.Parse
	Init     string  `yaml:"init" mapstructure:"init"`
	InitGain float64 `yaml:"init_gain" mapstructure:"init_gain"`

	// Fraction of the shuffled dataset held out for validation
	ValidationSplit float64 `yaml:"validation_split" mapstructure:"validation_split"`

	MinSamples      int `yaml:"min_samples" mapstructure:"min_samples"`
	QuickMinSamples int `yaml:"quick_min_samples" mapstructure:"quick_min_samples"`
	QuickEpochs     int `yaml:"quick_epochs" mapstructure:"quick_epochs"`
	QuickBatch      int `yaml:"quick_batch" mapstructure:"quick_batch"`

	Seed uint64 `yaml:"seed" mapstructure:"seed"`
}

// DefaultConfig returns the default imitation Trainer configuration
func DefaultConfig() Config {
	return Config{
		Epochs:          25,
		Batch:           128,
		StepSize:        1e-3,
		Hidden:          64,
		Optimizer:       "Adam",
		Init:            "GlorotU",
		InitGain:        1,
		ValidationSplit: 0.15,
		MinSamples:      300,
		QuickMinSamples: 200,
		QuickEpochs:     5,
		QuickBatch:      128,
		Seed:            1,
	}
}

// Normalize clamps the Config to its documented bounds and fills zero
// values with defaults
func (c Config) Normalize() Config {
	def := DefaultConfig()
	if c.Epochs == 0 {
		c.Epochs = def.Epochs
	}
	if c.Batch == 0 {
		c.Batch = def.Batch
	}
	if c.StepSize <= 0 {
		c.StepSize = def.StepSize
	}
	if c.Hidden <= 0 {
		c.Hidden = def.Hidden
	}
	if _, err := solver.Parse(c.Optimizer, c.StepSize); err != nil {
		c.Optimizer = def.Optimizer
	}
	if c.InitGain == 0 {
		c.InitGain = def.InitGain
	}
	if _, err := initwfn.Parse(c.Init, c.InitGain); err != nil {
		c.Init = def.Init
	}
	if c.ValidationSplit <= 0 || c.ValidationSplit >= 1 {
		c.ValidationSplit = def.ValidationSplit
	}
	if c.QuickEpochs <= 0 {
		c.QuickEpochs = def.QuickEpochs
	}
	if c.QuickBatch <= 0 {
		c.QuickBatch = def.QuickBatch
	}

	// The sample thresholds may be raised but never lowered
	c.MinSamples = intutils.Max(c.MinSamples, def.MinSamples)
	c.QuickMinSamples = intutils.Max(c.QuickMinSamples, def.QuickMinSamples)

	c.Epochs = intutils.Clip(c.Epochs, MinEpochs, MaxEpochs)
	c.Batch = intutils.Clip(c.Batch, MinBatch, MaxBatch)
	return c
}
