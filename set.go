// Copyright 2024 The Cockroach Authors
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

package graveyard

// Set is an unordered set of keys, a thin facade over the table core. All
// state lives in the underlying Map; Set binds the value policy to the
// empty struct.
//
// A Set is NOT goroutine-safe.
type Set[K comparable] struct {
	m *Map[K, struct{}]
}

// NewSet constructs a Set with the specified initial capacity. If
// initialCapacity is 0 the set starts with zero capacity and allocates on
// the first insert. The zero value for a Set is not usable.
func NewSet[K comparable](initialCapacity int, options ...option[K, struct{}]) *Set[K] {
	return &Set[K]{m: New[K, struct{}](initialCapacity, options...)}
}

// Close closes the set, releasing any memory back to its configured
// allocator. Close is idempotent; any other use after Close is invalid.
func (s *Set[K]) Close() {
	s.m.Close()
}

// Insert adds key to the set, reporting whether it was not already present.
func (s *Set[K]) Insert(key K) bool {
	slot, inserted := s.m.findOrPrepareInsert(key)
	if inserted {
		slot.key = key
	}
	s.m.checkInvariants()
	return inserted
}

// Contains reports whether the set contains key.
func (s *Set[K]) Contains(key K) bool {
	return s.m.Contains(key)
}

// Delete removes key from the set, reporting whether it was present.
func (s *Set[K]) Delete(key K) bool {
	return s.m.Delete(key)
}

// Len returns the number of keys in the set.
func (s *Set[K]) Len() int {
	return s.m.Len()
}

// Empty reports whether the set contains no keys.
func (s *Set[K]) Empty() bool {
	return s.m.Empty()
}

// Capacity returns the number of slots addressed by the set's hash range.
func (s *Set[K]) Capacity() int {
	return s.m.Capacity()
}

// Clear removes all keys.
func (s *Set[K]) Clear() {
	s.m.Clear()
}

// Reserve prepares the set for n total keys.
func (s *Set[K]) Reserve(n int) {
	s.m.Reserve(n)
}

// Rehash rebuilds the set's backing array; see Map.Rehash.
func (s *Set[K]) Rehash(n int) {
	s.m.Rehash(n)
}

// All calls yield sequentially for each key in the set. If yield returns
// false, iteration stops.
func (s *Set[K]) All(yield func(key K) bool) {
	s.m.All(func(k K, _ struct{}) bool {
		return yield(k)
	})
}
