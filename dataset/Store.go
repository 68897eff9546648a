package dataset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/aunum/log"
	"github.com/c2h5oh/datasize"
	"github.com/samuelfneumann/retrolearn/environment"
	"github.com/samuelfneumann/retrolearn/environment/envconfig"
	"github.com/samuelfneumann/retrolearn/store"
)

// Key is the KV key all datasets are persisted under
const Key = "datasets"

// Store holds one Dataset per environment name. Datasets are created
// on first use.
type Store struct {
	mu       sync.Mutex
	capacity int
	sets     map[string]*Dataset
}

// NewStore returns a new Store whose datasets hold at most capacity
// samples each
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCap
	}
	return &Store{capacity: capacity, sets: make(map[string]*Dataset)}
}

// Get returns the Dataset of an environment, creating it if needed
func (s *Store) Get(env string) *Dataset {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.sets[env]
	if !ok {
		d = New(s.capacity)
		s.sets[env] = d
	}
	return d
}

// Names returns the sorted names of all environments with a Dataset
func (s *Store) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.sets))
	for name := range s.sets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Save writes every Dataset to kv under Key as a JSON object mapping
// environment names to Payloads
func (s *Store) Save(ctx context.Context, kv store.KV) error {
	payloads := make(map[string]Payload)
	for _, name := range s.Names() {
		payloads[name] = s.Get(name).Payload()
	}

	data, err := json.Marshal(payloads)
	if err != nil {
		return fmt.Errorf("save: %w", err)
	}
	if err := kv.Put(ctx, Key, data); err != nil {
		return fmt.Errorf("save: %w", err)
	}

	log.Infof("datasets saved (%v)", datasize.ByteSize(len(data)).HumanReadable())
	return nil
}

// Load replaces the Datasets with those stored in kv. If nothing is
// stored, the Datasets are left empty. Malformed data or data for
// unknown environments is logged and skipped, leaving the affected
// Datasets empty.
func (s *Store) Load(ctx context.Context, kv store.KV) error {
	for _, name := range s.Names() {
		s.Get(name).Clear()
	}

	data, err := kv.Get(ctx, Key)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	} else if err != nil {
		return fmt.Errorf("load: %w", err)
	}

	var payloads map[string]Payload
	if err := json.Unmarshal(data, &payloads); err != nil {
		log.Warningf("stored datasets are malformed, starting empty: %v", err)
		return nil
	}

	for name, payload := range payloads {
		kind, err := environment.ParseKind(name)
		if err != nil {
			log.Warningf("skipping stored dataset: %v", err)
			continue
		}
		samples, err := payload.Samples(envconfig.FeatureLen(kind))
		if err != nil {
			log.Warningf("skipping stored %v dataset: %v", name, err)
			continue
		}
		s.Get(name).AppendSamples(samples)
	}

	log.Infof("datasets loaded (%v)", datasize.ByteSize(len(data)).HumanReadable())
	return nil
}
