package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/samuelfneumann/retrolearn/network"
)

// ErrModelNotFound is returned when no model is stored under a key
var ErrModelNotFound = errors.New("model not found")

// Paradigm is the way a model was trained
type Paradigm string

const (
	Imitation Paradigm = "imitation"
	Reinforce Paradigm = "reinforce"
)

// Key identifies a stored model
type Key struct {
	Env      string
	Paradigm Paradigm
}

// String renders the key as "<env>/<paradigm>"
func (k Key) String() string {
	return k.Env + "/" + string(k.Paradigm)
}

// Models stores and loads trained networks in a KV
type Models struct {
	kv KV
}

// NewModels returns a new model store over kv
func NewModels(kv KV) *Models {
	return &Models{kv: kv}
}

// Save serializes net and stores it under key
func (m *Models) Save(ctx context.Context, key Key,
	net network.NeuralNet) error {
	data, err := network.Encode(net)
	if err != nil {
		return fmt.Errorf("save %v: %w", key, err)
	}
	if err := m.kv.Put(ctx, key.String(), data); err != nil {
		return fmt.Errorf("save %v: %w", key, err)
	}
	return nil
}

// Load returns the network stored under key. If there is no such
// network, the returned error wraps ErrModelNotFound.
func (m *Models) Load(ctx context.Context, key Key) (*network.MLP, error) {
	data, err := m.kv.Get(ctx, key.String())
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("load %v: %w", key, ErrModelNotFound)
	} else if err != nil {
		return nil, fmt.Errorf("load %v: %w", key, err)
	}

	net, err := network.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("load %v: %w", key, err)
	}
	return net, nil
}

// Delete removes the network stored under key
func (m *Models) Delete(ctx context.Context, key Key) error {
	return m.kv.Delete(ctx, key.String())
}
