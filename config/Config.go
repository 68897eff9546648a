// Package config implements the YAML configuration of a session: the
// persistence backend, the starting environment, recording cadence,
// peer sharing limits, and the settings of both trainers.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/samuelfneumann/retrolearn/dataset"
	"github.com/samuelfneumann/retrolearn/environment"
	"github.com/samuelfneumann/retrolearn/environment/envconfig"
	"github.com/samuelfneumann/retrolearn/peer"
	"github.com/samuelfneumann/retrolearn/trainer/imitation"
	"github.com/samuelfneumann/retrolearn/trainer/reinforce"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// DatasetConfig configures demonstration recording
type DatasetConfig struct {
	Cap         int `yaml:"cap" mapstructure:"cap"`
	SampleEvery int `yaml:"sample_every" mapstructure:"sample_every"`
	SaveEvery   int `yaml:"save_every" mapstructure:"save_every"`
}

// PeerConfig configures peer sharing
type PeerConfig struct {
	Room   string `yaml:"room" mapstructure:"room"`
	Buffer int    `yaml:"buffer" mapstructure:"buffer"`

	// Datasets are shared once they hold ShareMin samples, and at most
	// the last ShareMax samples are sent
	ShareMin int `yaml:"share_min" mapstructure:"share_min"`
	ShareMax int `yaml:"share_max" mapstructure:"share_max"`
}

// Config is the configuration of a session
type Config struct {
	envconfig.Config `yaml:",inline" mapstructure:",squash"`

	Database string `yaml:"database" mapstructure:"database"`
	User     string `yaml:"user" mapstructure:"user"`
	LogLimit int    `yaml:"log_limit" mapstructure:"log_limit"`

	Dataset   DatasetConfig    `yaml:"dataset" mapstructure:"dataset"`
	Peer      PeerConfig       `yaml:"peer" mapstructure:"peer"`
	Imitation imitation.Config `yaml:"imitation" mapstructure:"imitation"`
	Reinforce reinforce.Config `yaml:"reinforce" mapstructure:"reinforce"`
}

// Default returns the default configuration
func Default() Config {
	return Config{
		Config:   envconfig.NewConfig(environment.Car),
		Database: "retrolearn.db",
		User:     peer.DefaultUser,
		LogLimit: 12000,
		Dataset: DatasetConfig{
			Cap:         dataset.DefaultCap,
			SampleEvery: dataset.DefaultSampleEvery,
			SaveEvery:   dataset.DefaultSaveEvery,
		},
		Peer: PeerConfig{
			Room:     peer.DefaultRoom,
			Buffer:   peer.DefaultBuffer,
			ShareMin: 50,
			ShareMax: 2000,
		},
		Imitation: imitation.DefaultConfig(),
		Reinforce: reinforce.DefaultConfig(),
	}
}

// Normalize clamps the Config to its documented bounds and replaces
// invalid values with defaults
func (c Config) Normalize() Config {
	def := Default()
	if _, err := c.Kind(); err != nil {
		c.Config = def.Config
	}
	if c.Database == "" {
		c.Database = def.Database
	}
	c.User = peer.Truncate(c.User, def.User)
	if c.LogLimit <= 0 {
		c.LogLimit = def.LogLimit
	}

	if c.Dataset.Cap <= 0 {
		c.Dataset.Cap = def.Dataset.Cap
	}
	if c.Dataset.SampleEvery <= 0 {
		c.Dataset.SampleEvery = def.Dataset.SampleEvery
	}
	if c.Dataset.SaveEvery <= 0 {
		c.Dataset.SaveEvery = def.Dataset.SaveEvery
	}

	c.Peer.Room = peer.Truncate(c.Peer.Room, def.Peer.Room)
	if c.Peer.Buffer <= 0 {
		c.Peer.Buffer = def.Peer.Buffer
	}
	if c.Peer.ShareMin <= 0 {
		c.Peer.ShareMin = def.Peer.ShareMin
	}
	if c.Peer.ShareMax <= 0 {
		c.Peer.ShareMax = def.Peer.ShareMax
	}

	c.Imitation = c.Imitation.Normalize()
	c.Reinforce = c.Reinforce.Normalize()
	return c
}

// FromYaml reads the configuration at path. Settings missing from the
// file keep their default values.
func FromYaml(path string) (Config, error) {
	vp := viper.New()
	vp.SetConfigFile(path)
	vp.SetConfigType("yaml")
	if err := vp.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("fromYaml: %w", err)
	}

	c := Default()
	if err := vp.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("fromYaml: %w", err)
	}
	return c.Normalize(), nil
}

// Write writes c as YAML to path, creating parent directories as needed
func Write(path string, c Config) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("write: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}
