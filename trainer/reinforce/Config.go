package reinforce

import (
	"github.com/samuelfneumann/retrolearn/initwfn"
	"github.com/samuelfneumann/retrolearn/solver"
	"github.com/samuelfneumann/retrolearn/utils/intutils"
)

// Bounds on the episode length and the number of training episodes
const (
	MinSteps    int = 50
	MaxSteps    int = 5000
	MinEpisodes int = 1
	MaxEpisodes int = 500
)

// Config configures a REINFORCE Trainer
type Config struct {
	Episodes  int     `yaml:"episodes" mapstructure:"episodes"`
	MaxSteps  int     `yaml:"max_steps" mapstructure:"max_steps"`
	DemoSteps int     `yaml:"demo_steps" mapstructure:"demo_steps"`
	Gamma     float64 `yaml:"gamma" mapstructure:"gamma"`
	Sigma     float64 `yaml:"sigma" mapstructure:"sigma"`
	StepSize  float64 `yaml:"step_size" mapstructure:"step_size"`
	Hidden    int     `yaml:"hidden" mapstructure:"hidden"`

	// Optimizer names the solver, see solver.Parse
	Optimizer string `yaml:"optimizer" mapstructure:"optimizer"`

	// Weight initializer of new networks, see initwfn.Parse
	Init     string  `yaml:"init" mapstructure:"init"`
	InitGain float64 `yaml:"init_gain" mapstructure:"init_gain"`

	// Episodes end early once the bump indicator exceeds BumpThreshold
	// after more than BumpAfter steps
	BumpThreshold float64 `yaml:"bump_threshold" mapstructure:"bump_threshold"`
	BumpAfter     int     `yaml:"bump_after" mapstructure:"bump_after"`

	Dt   float64 `yaml:"dt" mapstructure:"dt"`
	Seed uint64  `yaml:"seed" mapstructure:"seed"`
}

// DefaultConfig returns the default REINFORCE Trainer configuration
func DefaultConfig() Config {
	return Config{
		Episodes:      25,
		MaxSteps:      650,
		DemoSteps:     900,
		Gamma:         0.99,
		Sigma:         0.25,
		StepSize:      0.003,
		Hidden:        64,
		Optimizer:     "Adam",
		Init:          "GlorotU",
		InitGain:      1,
		BumpThreshold: 0.8,
		BumpAfter:     60,
		Dt:            1.0 / 60,
		Seed:          1,
	}
}

// Normalize clamps the Config to its documented bounds and fills
// invalid values with defaults. A Sigma of 0 is kept.
func (c Config) Normalize() Config {
	def := DefaultConfig()
	if c.Episodes == 0 {
		c.Episodes = def.Episodes
	}
	if c.MaxSteps == 0 {
		c.MaxSteps = def.MaxSteps
	}
	if c.DemoSteps <= 0 {
		c.DemoSteps = def.DemoSteps
	}
	if c.Gamma <= 0 || c.Gamma > 1 {
		c.Gamma = def.Gamma
	}
	if c.Sigma < 0 {
		c.Sigma = def.Sigma
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
	if c.BumpThreshold <= 0 {
		c.BumpThreshold = def.BumpThreshold
	}
	if c.BumpAfter < 0 {
		c.BumpAfter = def.BumpAfter
	}
	if c.Dt <= 0 {
		c.Dt = def.Dt
	}

	c.Episodes = intutils.Clip(c.Episodes, MinEpisodes, MaxEpisodes)
	c.MaxSteps = intutils.Clip(c.MaxSteps, MinSteps, MaxSteps)
	c.DemoSteps = intutils.Clip(c.DemoSteps, MinSteps, MaxSteps)
	return c
}
