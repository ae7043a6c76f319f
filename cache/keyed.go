// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package cache

import "sync"

// DefaultNamespace is used by callers that need a single key space.
const DefaultNamespace = ""

// entryKey is the composite lookup identity of an entry.
type entryKey struct {
	namespace string
	key       string
}

// Keyed is an unbounded in-memory memoization table keyed by
// (namespace, key). Entries never expire; they live until Clear is called or
// the cache is dropped. Keyed is safe for concurrent use; concurrent writers
// of the same key resolve as last-writer-wins.
type Keyed[V any] struct {
	mu      sync.RWMutex
	entries map[entryKey]V
}

// NewKeyed creates an empty cache.
func NewKeyed[V any]() *Keyed[V] {
	return &Keyed[V]{
		entries: make(map[entryKey]V),
	}
}

// Get returns the value stored under (namespace, key) if present.
func (c *Keyed[V]) Get(namespace, key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	v, ok := c.entries[entryKey{namespace: namespace, key: key}]
	return v, ok
}

// Set stores value under (namespace, key), replacing any previous value.
func (c *Keyed[V]) Set(namespace, key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[entryKey{namespace: namespace, key: key}] = value
}

// Clear removes every entry in every namespace.
func (c *Keyed[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	clear(c.entries)
}

// Len returns the number of entries across all namespaces.
func (c *Keyed[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}
