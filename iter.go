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

// Iterator is a forward cursor over the full slots of a Map, in physical
// order. The zero Iterator is a default iterator: it is not Valid and panics
// on use. Any mutation of the map may invalidate live iterators; in
// generations-enabled builds stale use is detected and panics, otherwise it
// is undefined.
type Iterator[K comparable, V any] struct {
	m  *Map[K, V]
	bp bucketPointer[K, V]
	// slotIdx is the index within the current bucket; slotsPerBucket on the
	// is-end bucket marks the end iterator.
	slotIdx uintptr
	gen     generation
}

// Iter returns an iterator positioned at the first entry of the map, or at
// the end if the map is empty.
func (m *Map[K, V]) Iter() Iterator[K, V] {
	it := Iterator[K, V]{m: m, bp: m.bucketAt(0), gen: m.gen}
	it.skipEmpty()
	return it
}

// Valid reports whether the iterator is positioned at an entry.
func (it *Iterator[K, V]) Valid() bool {
	return it.bp.meta != nil && it.slotIdx < slotsPerBucket
}

// Next advances to the following entry. It is a fatal error to call Next on
// the end iterator or on a default-constructed iterator.
func (it *Iterator[K, V]) Next() {
	it.assertIsFull("Next")
	it.slotIdx++
	if it.slotIdx == slotsPerBucket {
		if it.bp.isEnd() {
			// Now the end iterator.
			return
		}
		it.bp = it.bp.next()
		it.slotIdx = 0
	}
	it.skipEmpty()
}

// Key returns the key of the current entry.
func (it *Iterator[K, V]) Key() K {
	it.assertIsFull("Key")
	return it.bp.slot(it.slotIdx).key
}

// Value returns the value of the current entry.
func (it *Iterator[K, V]) Value() V {
	it.assertIsFull("Value")
	return it.bp.slot(it.slotIdx).value
}

// skipEmpty advances the iterator to the next full slot at or after its
// current position, or to the end.
func (it *Iterator[K, V]) skipEmpty() {
	for {
		if it.slotIdx == 0 {
			if n := bucketCountLeadingEmpty(it.bp.meta); n < slotsPerBucket {
				it.slotIdx = n
				return
			}
		} else if it.slotIdx < slotsPerBucket {
			full := (^bucketMatchEmpty(it.bp.meta)) & bucketLaneMask
			full &= bitset(^uint32(0)) << it.slotIdx
			if full != 0 {
				it.slotIdx = full.first()
				return
			}
		}
		if it.bp.isEnd() {
			it.slotIdx = slotsPerBucket
			return
		}
		it.bp = it.bp.next()
		it.slotIdx = 0
	}
}

func (it *Iterator[K, V]) assertIsFull(op string) {
	if it.bp.meta == nil {
		panic(op + " called on a default-constructed iterator")
	}
	if it.slotIdx >= slotsPerBucket {
		panic(op + " called on the end iterator")
	}
	if generationsEnabled && it.gen != it.m.gen {
		panic(op + " called on an invalid iterator: the table has rehashed since the iterator was created")
	}
	if !it.bp.ctrl(it.slotIdx).isFull() {
		panic(op + " called on an invalid iterator: the element was erased")
	}
}

// Erase destroys the entry the iterator is positioned at and marks its slot
// empty. The iterator is invalidated; advance it before erasing when
// erasing during a sweep. It is a fatal error to erase at an end, default,
// or stale iterator.
func (m *Map[K, V]) Erase(it *Iterator[K, V]) {
	it.assertIsFull("Erase")
	m.eraseAt(it.bp, it.slotIdx)
	m.checkInvariants()
}

// All calls yield sequentially for each key and value present in the map.
// If yield returns false, iteration stops. The map can be mutated during
// iteration, though there is no guarantee that the mutations will be
// visible to the iteration.
func (m *Map[K, V]) All(yield func(key K, value V) bool) {
	// Snapshot the geometry and arrays so that iteration remains valid if
	// the map is resized during iteration.
	meta, slots, physical := m.meta, m.slots, m.physicalBuckets
	for i := uintptr(0); i < physical; i++ {
		bp := bucketAt(meta, slots, i)
		for j := uintptr(0); j < slotsPerBucket; j++ {
			if bp.ctrl(j).isFull() {
				s := bp.slot(j)
				if !yield(s.key, s.value) {
					return
				}
			}
		}
	}
}
