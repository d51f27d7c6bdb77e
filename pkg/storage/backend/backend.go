// Copyright 2025 TinyStore Authors
// SPDX-License-Identifier: Apache-2.0

package backend

import (
	"fmt"
	"sync"

	"github.com/phumiphatauk/tinystore/pkg/storage"
)

// Config carries everything a backend needs at construction time.
type Config struct {
	Type    storage.StorageType
	DataDir string

	// Limits enforced at the storage layer.
	MaxBuckets    int
	MaxObjectSize int64
}

// Factory constructs a backend from its config.
type Factory func(cfg Config) (storage.Backend, error)

var (
	factoriesMu sync.RWMutex
	factories   = make(map[storage.StorageType]Factory)
)

// Register makes a backend type available to New. Called from init()
// in each implementation file.
func Register(t storage.StorageType, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	if _, dup := factories[t]; dup {
		panic(fmt.Sprintf("backend: Register called twice for type %q", t))
	}
	factories[t] = f
}

// New constructs the backend named by cfg.Type.
func New(cfg Config) (storage.Backend, error) {
	factoriesMu.RLock()
	f, ok := factories[cfg.Type]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("backend: unknown storage type %q", cfg.Type)
	}
	return f(cfg)
}
