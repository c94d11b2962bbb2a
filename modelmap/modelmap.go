/*
Package modelmap caches resolved thermo.Model values by key behind a
read-write mutex, following the lazy-parse-and-cache idiom used for
energy parameter sets (energy_params/parse.go parses a parameter set
once per process and reuses it for every subsequent fold).
Model resolution here is cheap (no file parsing), but the concurrent
optimizer resolves a complex's model on every depth-indexed evaluation,
so caching avoids repeated map-literal lookups across goroutines without
forcing every caller to hold a lock.
*/
package modelmap

import (
	"sync"

	"github.com/TimothyStiles/nupack/thermo"
)

// Map is a concurrency-safe cache of resolved models, keyed by model
// string.
type Map struct {
	mu     sync.RWMutex
	models map[string]thermo.Model
}

// New returns an empty Map.
func New() *Map {
	return &Map{models: make(map[string]thermo.Model)}
}

// Resolve returns the Model for key, parsing and caching it on first use.
func (m *Map) Resolve(key string) (thermo.Model, error) {
	m.mu.RLock()
	model, ok := m.models[key]
	m.mu.RUnlock()
	if ok {
		return model, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if model, ok := m.models[key]; ok {
		return model, nil
	}
	model, err := thermo.ParseModel(key)
	if err != nil {
		return thermo.Model{}, err
	}
	m.models[key] = model
	return model, nil
}

// Len returns the number of distinct model keys resolved so far.
func (m *Map) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.models)
}
