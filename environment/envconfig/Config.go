// Package envconfig provides a configuration struct for creating
// environments from their Kind tag. Configurations in this package
// are JSON and YAML serializable.
package envconfig

import (
	"fmt"

	env "github.com/samuelfneumann/retrolearn/environment"
	"github.com/samuelfneumann/retrolearn/environment/car"
	"github.com/samuelfneumann/retrolearn/environment/drone"
	"github.com/samuelfneumann/retrolearn/environment/fish"
	ts "github.com/samuelfneumann/retrolearn/timestep"
)

// Config describes an environment to create
type Config struct {
	Environment string `json:"environment" yaml:"environment" mapstructure:"environment"`
}

// NewConfig returns a new environment Config
func NewConfig(kind env.Kind) Config {
	return Config{Environment: kind.String()}
}

// Kind returns the environment Kind the Config describes
func (c Config) Kind() (env.Kind, error) {
	return env.ParseKind(c.Environment)
}

// Create returns the environment described by the Config as well as
// the first timestep of the environment.
func (c Config) Create() (env.Environment, ts.TimeStep, error) {
	kind, err := c.Kind()
	if err != nil {
		return nil, ts.TimeStep{}, fmt.Errorf("create: %w", err)
	}
	e, step := Create(kind)
	return e, step, nil
}

// Create returns a new environment of the given Kind as well as its
// first timestep.
func Create(kind env.Kind) (env.Environment, ts.TimeStep) {
	switch kind {
	case env.Car:
		return car.New()

	case env.Fish:
		return fish.New()

	case env.Drone:
		return drone.New()
	}

	panic(fmt.Sprintf("create: cannot create environment %v, no such "+
		"environment", kind))
}

// CreateAll returns one new environment of every Kind
func CreateAll() map[env.Kind]env.Environment {
	envs := make(map[env.Kind]env.Environment, len(env.Kinds))
	for _, k := range env.Kinds {
		envs[k], _ = Create(k)
	}
	return envs
}

// FeatureLen returns the length of the feature vectors of environments
// of the given Kind
func FeatureLen(kind env.Kind) int {
	switch kind {
	case env.Car:
		return car.FeatureLen

	case env.Fish:
		return fish.FeatureLen

	case env.Drone:
		return drone.FeatureLen
	}

	panic(fmt.Sprintf("featureLen: no such environment %v", kind))
}
