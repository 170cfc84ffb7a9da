/*
Copyright © 2026 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

// Package store provides graph.Store backends: MemoryStore is a bounded
// cache of serialized graph blobs keyed by sandbox id, and DiskStore
// layers a write-through file on top of it so a sandbox's graph survives
// process restarts.
//
// MemoryStore's order-slice shape is grounded directly on
// cdn.PackageCache, generalized from "package.json by name@version" keys
// to "serialized blob by sandbox id" keys.
package store

import "sync"

// MemoryStore is a thread-safe, bounded cache of serialized blobs. When it
// is full, Save evicts the sandbox id inserted earliest; Load and
// overwriting an existing id do not change that order.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string][]byte
	order   []string
	maxSize int
}

// NewMemoryStore returns a MemoryStore holding at most maxSize sandboxes;
// maxSize <= 0 defaults to 100.
func NewMemoryStore(maxSize int) *MemoryStore {
	if maxSize <= 0 {
		maxSize = 100
	}
	return &MemoryStore{
		entries: make(map[string][]byte),
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
	}
}

// Save implements graph.Store.
func (s *MemoryStore) Save(sandboxID string, blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[sandboxID]; exists {
		s.entries[sandboxID] = blob
		return nil
	}
	if len(s.entries) >= s.maxSize {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.entries, oldest)
	}
	s.entries[sandboxID] = blob
	s.order = append(s.order, sandboxID)
	return nil
}

// Load implements graph.Store.
func (s *MemoryStore) Load(sandboxID string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	blob, ok := s.entries[sandboxID]
	return blob, ok, nil
}

// Clear implements graph.Store.
func (s *MemoryStore) Clear(sandboxID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, sandboxID)
	for i, id := range s.order {
		if id == sandboxID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Size reports the number of sandboxes currently cached.
func (s *MemoryStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
