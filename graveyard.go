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

// Package graveyard is a Go implementation of an open-addressed hash table
// using implicit graveyard hashing over a bucketed layout. See
// https://arxiv.org/abs/2107.01250 for the theory behind graveyard hashing,
// and https://abseil.io/about/design/swisstables for the metadata-byte
// design this borrows from.
//
// # Layout
//
// The backing storage is an array of buckets. Each bucket consists of a
// 16-byte metadata block (14 control bytes plus a 16-bit word packing an
// is-end flag with a 15-bit search distance) and 14 slots. A control byte
// records whether its slot is empty or full, a 7-bit tag (H2) of the
// occupant's hash, and whether the occupant may be out of hash order
// relative to its neighbors. There are no tombstones.
//
// A raw hash splits into H1, a bucket number computed from the high bits of
// a 128-bit multiply by the logical bucket count, and H2, the hash modulo
// 127. The logical bucket count is the range of H1; a few extra physical
// buckets past the logical range absorb probe chains that run off the end,
// so wrapping around to bucket zero is rare.
//
// # Probing
//
// Probing is linear over whole buckets. A bucket's metadata block is
// scanned 16 bytes at a time with SSE byte-compare and movemask on amd64,
// and 8 bytes at a time with bit tricks (SWAR, SIMD Within A Register)
// elsewhere. Lookup walks at most search-distance buckets past the home
// bucket: the search distance of a bucket is an upper bound on how far any
// key homed there has been pushed by collisions, so lookup needs no
// empty-slot sentinel to terminate.
//
// # Ordering and rehash
//
// Full slots are kept mostly in H1 order. After a rehash every slot is in
// order except those that wrapped past the last physical bucket and those
// whose home bucket is lower than that of a slot the rehash already placed
// in order; both kinds are marked disordered. Slots written by inserts
// between rehashes are marked disordered in their control byte. A rehash streams the old array into a freshly allocated one
// by merging the ordered slots (already sorted by position) with the
// disordered slots (staged through a small min-heap bounded by the table's
// maximum search distance), re-establishing the order invariant in a single
// linear, cache-friendly pass.
//
// Deletion simply marks the slot empty. The growth budget is not refunded:
// a table that has seen many deletes rehashes on schedule, which is what
// keeps probe chains short without tombstones.
//
// A Map is NOT goroutine-safe. Concurrent readers are fine provided there
// is no concurrent writer.
package graveyard

import (
	"fmt"
	"strings"
	"unsafe"
)

const debug = false

const (
	// The table rehashes when an insert would push the load factor past
	// full/fullDen, and sizes the new array so the load lands at
	// rehashed/rehashedDen. Running well below the trigger after a rehash is
	// what leaves enough empty slots ("graveyard" space) to keep probe
	// chains short until the next rehash.
	fullUtilizationNum     = 7
	fullUtilizationDen     = 8
	rehashedUtilizationNum = 7
	rehashedUtilizationDen = 16

	// When generations are enabled, an insertion with no reserved growth
	// rehashes with probability rehashProbabilityConstant/capacity, moving
	// the backing array so that stale iterators and pointers are detected.
	rehashProbabilityConstant = 16
)

// Slot holds a key and value.
type Slot[K comparable, V any] struct {
	key   K
	value V
}

// generation is bumped by operations that may invalidate iterators.
// Iterators carry the generation at which they were created and check it on
// use when generationsEnabled.
type generation uint8

// slotPolicy groups the type-erased slot operations used by the rehash
// merge and by Close, so that the streaming code is independent of how a
// particular instantiation hashes, moves, and destroys its slots.
type slotPolicy[K comparable, V any] struct {
	hashSlot func(m *Map[K, V], s *Slot[K, V]) uintptr
	transfer func(dst, src *Slot[K, V])
	destroy  func(s *Slot[K, V])
}

func makeSlotPolicy[K comparable, V any]() slotPolicy[K, V] {
	return slotPolicy[K, V]{
		hashSlot: func(m *Map[K, V], s *Slot[K, V]) uintptr {
			return m.hash(noescape(unsafe.Pointer(&s.key)), m.seed)
		},
		transfer: func(dst, src *Slot[K, V]) {
			*dst = *src
		},
		destroy: func(s *Slot[K, V]) {
			*s = Slot[K, V]{}
		},
	}
}

// Map is an unordered map from keys to values with Put, Get, Delete, and
// iteration operations built on the graveyard table. By default, a Map[K,V]
// uses the same hash function as Go's builtin map[K]V, though a different
// hash function can be specified using the WithHash option.
//
// A Map is NOT goroutine-safe.
type Map[K comparable, V any] struct {
	// The hash function applied to keys of type K, extracted from the Go
	// runtime's implementation of map[K]struct{}.
	hash hashFn
	seed uintptr
	// The allocator for the metadata and slot arrays.
	allocator Allocator[K, V]
	telemetry Telemetry
	policy    slotPolicy[K, V]
	// meta is physicalBuckets*bucketMetaSize bytes; slots is
	// physicalBuckets*slotsPerBucket entries. When the map has no backing
	// array, meta references the shared empty bucket image.
	meta  unsafeSlice[uint8]
	slots unsafeSlice[Slot[K, V]]
	// logicalBuckets is the range of H1. physicalBuckets adds the tail
	// buckets that absorb probe chains running past the logical range.
	logicalBuckets  uintptr
	physicalBuckets uintptr
	// The number of filled slots.
	used int
	// The number of inserts that may still happen before a rehash is
	// mandatory. Deletes do not give growth back.
	growthLeft int
	// The number of inserts guaranteed not to rehash due to a prior
	// Reserve. Generation bumps are suppressed while it lasts.
	reservedGrowth int
	// An upper bound on every bucket's search distance; bounds the
	// look-ahead window of the rehash merge.
	maxProbeDistance uintptr
	gen              generation
}

// New constructs a Map with the specified initial capacity. If
// initialCapacity is 0 the map starts with zero capacity and allocates on
// the first insert. The zero value for a Map is not usable.
func New[K comparable, V any](initialCapacity int, options ...option[K, V]) *Map[K, V] {
	m := &Map[K, V]{
		hash:      getRuntimeHasher[K](),
		seed:      uintptr(fastrand64()),
		allocator: defaultAllocator[K, V]{},
		telemetry: noopTelemetry{},
		policy:    makeSlotPolicy[K, V](),
		meta:      makeUnsafeSlice(emptyBucketMeta[:]),
	}

	for _, op := range options {
		op.apply(m)
	}

	m.telemetry.Register()

	if initialCapacity > 0 {
		m.resizeTo(bucketsForSlots(growthToCapacity(initialCapacity)))
	}
	m.checkInvariants()
	return m
}

// Close closes the map, releasing any memory back to its configured
// allocator and unregistering telemetry. It is unnecessary to close a map
// using the default allocator. It is invalid to use a Map after it has been
// closed, though Close itself is idempotent.
func (m *Map[K, V]) Close() {
	if m.physicalBuckets > 0 {
		m.destroySlots()
		m.releaseBackingArray()
	}
	if m.telemetry != nil {
		m.telemetry.Unregister()
	}
	m.telemetry = nil
	m.allocator = nil
}

// Put inserts an entry into the map, overwriting an existing value if an
// entry with the same key already exists.
func (m *Map[K, V]) Put(key K, value V) {
	m.PutWithHash(key, value, m.hashKey(&key))
}

// PutWithHash is Put with a precomputed hash, which must equal the hash the
// map would compute for key.
func (m *Map[K, V]) PutWithHash(key K, value V, h uintptr) {
	// Put is find composed with prepare-insert. We perform find to see if
	// the key is already present. If it is, we overwrite the existing
	// value. If it isn't, prepare-insert claims a slot known not to contain
	// the key.
	//
	// NB: Rather than using a common find routine for Get, Put, and Delete,
	// the probe loop is manually inlined in each for performance.
	q := h2(h)
	bi := h1(h, m.logicalBuckets)
	bp := m.bucketAt(bi)
	sd := bp.searchDistance()
	if debug {
		fmt.Printf("put(%v): bucket=%d h2=%02x sd=%d\n", key, bi, q, sd)
	}

	for d := uintptr(0); ; d++ {
		match := bucketMatchH2(bp.meta, q)
		if debug {
			fmt.Printf("put(probing): d=%d match=%s\n", d, match)
		}
		for match != 0 {
			i := match.first()
			s := bp.slot(i)
			if key == s.key {
				if debug {
					fmt.Printf("put(updating): slot=%d key=%v\n", i, key)
				}
				s.value = value
				m.checkInvariants()
				return
			}
			match = match.remove(i)
		}
		if d >= sd {
			break
		}
		bp = m.nextBucketWrap(bp)
	}

	target := m.prepareInsert(h, q)
	s := target.bp.slot(target.slot)
	s.key = key
	s.value = value
	m.checkInvariants()
}

// Get retrieves the value from the map for the specified key, returning
// ok=false if the key is not present.
func (m *Map[K, V]) Get(key K) (value V, ok bool) {
	return m.GetWithHash(key, m.hashKey(&key))
}

// GetWithHash is Get with a precomputed hash, which must equal the hash the
// map would compute for key.
func (m *Map[K, V]) GetWithHash(key K, h uintptr) (value V, ok bool) {
	// To find key we compute its hash. H1 selects the home bucket, whose
	// search distance bounds how many further buckets any key homed there
	// can have been pushed to by collisions. Within each bucket we extract
	// candidates: full slots whose control byte holds H2(hash). The H2 bits
	// ensure that when we compare keys we are likely to have actually found
	// the object; with k wrong slots in the walked window, the expected
	// number of false-positive comparisons is k/127.
	q := h2(h)
	bi := h1(h, m.logicalBuckets)
	bp := m.bucketAt(bi)
	sd := bp.searchDistance()
	if debug {
		fmt.Printf("get(%v): bucket=%d h2=%02x sd=%d\n", key, bi, q, sd)
	}

	for d := uintptr(0); ; d++ {
		match := bucketMatchH2(bp.meta, q)
		if debug {
			fmt.Printf("get(probing): d=%d match=%s\n", d, match)
		}
		for match != 0 {
			i := match.first()
			s := bp.slot(i)
			if key == s.key {
				return s.value, true
			}
			match = match.remove(i)
		}
		if d >= sd {
			return value, false
		}
		bp = m.nextBucketWrap(bp)
	}
}

// Contains reports whether the map contains the specified key.
func (m *Map[K, V]) Contains(key K) bool {
	_, ok := m.Get(key)
	return ok
}

// Delete deletes the entry corresponding to the specified key from the map,
// reporting whether an entry was present.
func (m *Map[K, V]) Delete(key K) bool {
	h := m.hashKey(&key)
	q := h2(h)
	bi := h1(h, m.logicalBuckets)
	bp := m.bucketAt(bi)
	sd := bp.searchDistance()
	if debug {
		fmt.Printf("delete(%v): bucket=%d h2=%02x sd=%d\n", key, bi, q, sd)
	}

	for d := uintptr(0); ; d++ {
		match := bucketMatchH2(bp.meta, q)
		for match != 0 {
			i := match.first()
			s := bp.slot(i)
			if key == s.key {
				m.eraseAt(bp, i)
				m.checkInvariants()
				return true
			}
			match = match.remove(i)
		}
		if d >= sd {
			return false
		}
		bp = m.nextBucketWrap(bp)
	}
}

// findOrPrepareInsert attempts to find key in the table; if it isn't found,
// it claims a slot for the caller to fill, with the control byte already
// set to key's H2. The caller must store the key (and value) into the
// returned slot before any other operation on the map.
func (m *Map[K, V]) findOrPrepareInsert(key K) (*Slot[K, V], bool) {
	h := m.hashKey(&key)
	q := h2(h)
	bp := m.bucketAt(h1(h, m.logicalBuckets))
	sd := bp.searchDistance()

	for d := uintptr(0); ; d++ {
		match := bucketMatchH2(bp.meta, q)
		for match != 0 {
			i := match.first()
			s := bp.slot(i)
			if key == s.key {
				return s, false
			}
			match = match.remove(i)
		}
		if d >= sd {
			break
		}
		bp = m.nextBucketWrap(bp)
	}

	target := m.prepareInsert(h, q)
	return target.bp.slot(target.slot), true
}

// findInfo describes the location of a slot found by a probe.
type findInfo[K comparable, V any] struct {
	bp bucketPointer[K, V]
	// slot is the index within the bucket.
	slot uintptr
	// bucket is the physical bucket index.
	bucket uintptr
	// probeLength is the number of buckets advanced past the home bucket.
	probeLength uintptr
}

// findFirstEmpty returns the first empty slot reachable from hash h's home
// bucket by linear probing, wrapping past the last physical bucket to
// bucket zero. Behavior when the table has no empty slot is undefined;
// callers ensure growthLeft > 0 or rehash first.
func (m *Map[K, V]) findFirstEmpty(h uintptr) findInfo[K, V] {
	bi := h1(h, m.logicalBuckets)
	bp := m.bucketAt(bi)
	for probeLength := uintptr(0); ; probeLength++ {
		if e := bucketMatchEmpty(bp.meta); e != 0 {
			return findInfo[K, V]{bp: bp, slot: e.first(), bucket: bi, probeLength: probeLength}
		}
		if invariants && probeLength > 2*m.physicalBuckets {
			panic("no empty slot found; table is full")
		}
		if bp.isEnd() {
			bi = 0
			bp = m.bucketAt(0)
		} else {
			bi++
			bp = bp.next()
		}
	}
}

// prepareInsert claims a slot for a value with hash h that is known not to
// be in the table, growing the table first if the growth budget is
// exhausted or the probe would overflow the search-distance field. The slot
// is marked full and disordered (inserts between rehashes are not
// guaranteed to preserve H1 order) and the home bucket's search distance is
// raised to cover it.
func (m *Map[K, V]) prepareInsert(h, q uintptr) findInfo[K, V] {
	if m.shouldRehashForBugDetection() {
		// Move to a different heap allocation in order to detect bugs.
		if m.growthLeft > 0 {
			m.resizeTo(m.logicalBuckets)
		} else {
			m.resizeForGrowth()
		}
	}
	if m.growthLeft == 0 {
		m.resizeForGrowth()
	}
	target := m.findFirstEmpty(h)
	if target.probeLength > maxSearchDistance {
		m.resizeForGrowth()
		target = m.findFirstEmpty(h)
	}
	m.used++
	m.growthLeft--
	target.bp.setCtrl(target.slot, makeDisorderedCtrl(q))
	var proto Slot[K, V]
	sanitizerUnpoisonRegion(unsafe.Pointer(target.bp.slot(target.slot)), unsafe.Sizeof(proto))
	home := m.bucketAt(h1(h, m.logicalBuckets))
	if d := target.probeLength; d > home.searchDistance() {
		home.setSearchDistance(d)
		if d > m.maxProbeDistance {
			m.maxProbeDistance = d
		}
	}
	m.maybeBumpGenerationOnInsert()
	m.telemetry.RecordInsert(h, int(target.probeLength))
	if debug {
		fmt.Printf("insert: bucket=%d slot=%d probe=%d used=%d growth-left=%d\n",
			target.bucket, target.slot, target.probeLength, m.used, m.growthLeft)
	}
	return target
}

// eraseAt destroys the element at the given slot and marks it empty. The
// bucket's search distance is not lowered (it remains a safe upper bound)
// and the growth budget is not refunded; the consumed growth is what
// triggers the rehash that cleans up fragmentation.
func (m *Map[K, V]) eraseAt(bp bucketPointer[K, V], i uintptr) {
	if !bp.ctrl(i).isFull() {
		panic(fmt.Sprintf("erase of slot %d which is not full", i))
	}
	m.policy.destroy(bp.slot(i))
	var proto Slot[K, V]
	sanitizerPoisonRegion(unsafe.Pointer(bp.slot(i)), unsafe.Sizeof(proto))
	bp.setCtrl(i, ctrlEmpty)
	m.used--
	m.telemetry.RecordErase()
}

// Clear removes all entries. For small tables the backing array is reset in
// place and kept; for larger tables it is released and the map reverts to
// zero capacity.
func (m *Map[K, V]) Clear() {
	if m.physicalBuckets == 0 {
		return
	}
	m.destroySlots()
	m.used = 0
	m.reservedGrowth = 0
	m.maxProbeDistance = 0
	if m.physicalBuckets <= clearReuseMaxBuckets {
		for i := uintptr(0); i < m.physicalBuckets; i++ {
			m.bucketAt(i).resetMeta()
		}
		m.growthLeft = capacityToGrowth(m.Capacity(), m.logicalBuckets)
	} else {
		m.releaseBackingArray()
	}
	m.bumpGeneration()
	m.telemetry.RecordStorageChanged(0, m.Capacity())
	m.checkInvariants()
}

// Reserve prepares the map for n total entries: after Reserve(n), n-Len()
// inserts are guaranteed not to rehash, and they consume the reservation
// exactly.
func (m *Map[K, V]) Reserve(n int) {
	if n > m.used+m.growthLeft {
		m.resizeTo(bucketsForSlots(growthToCapacity(n)))
		m.growthLeft = n - m.used
		m.telemetry.RecordReservation(n)
	}
	if n > m.used {
		m.reservedGrowth = n - m.used
	}
}

// Rehash rebuilds the table into a fresh backing array sized for at least n
// slots (and for the current size at the post-rehash load factor). A hint
// of 0 always rehashes a table that has a backing array (a table with zero
// capacity is left as it is), which re-establishes the H1 ordering invariant
// and reclaims the growth consumed by deleted entries.
func (m *Map[K, V]) Rehash(n int) {
	if n == 0 && m.physicalBuckets == 0 {
		return
	}
	target := capacityForRehash(m.used)
	if g := growthToCapacity(n); g > target {
		target = g
	}
	newBuckets := bucketsForSlots(target)
	if n == 0 || newBuckets > m.logicalBuckets {
		m.resizeTo(newBuckets)
		m.telemetry.RecordReservation(n)
	}
}

// Len returns the number of entries in the map.
func (m *Map[K, V]) Len() int {
	return m.used
}

// Capacity returns the number of slots addressed by H1. A table of more than
// one logical bucket rehashes before the load factor exceeds
// fullUtilization; a single-bucket table fills all of its slots.
func (m *Map[K, V]) Capacity() int {
	return int(m.logicalBuckets) * slotsPerBucket
}

// Empty reports whether the map contains no entries.
func (m *Map[K, V]) Empty() bool {
	return m.used == 0
}

func (m *Map[K, V]) hashKey(key *K) uintptr {
	return m.hash(noescape(unsafe.Pointer(key)), m.seed)
}

func (m *Map[K, V]) bucketAt(i uintptr) bucketPointer[K, V] {
	return bucketAt(m.meta, m.slots, i)
}

// nextBucketWrap advances a probe cursor, wrapping past the is-end bucket
// back to bucket zero.
func (m *Map[K, V]) nextBucketWrap(bp bucketPointer[K, V]) bucketPointer[K, V] {
	if bp.isEnd() {
		return m.bucketAt(0)
	}
	return bp.next()
}

func (m *Map[K, V]) destroySlots() {
	for i := uintptr(0); i < m.physicalBuckets; i++ {
		bp := m.bucketAt(i)
		for j := uintptr(0); j < slotsPerBucket; j++ {
			if bp.ctrl(j).isFull() {
				m.policy.destroy(bp.slot(j))
			}
		}
	}
}

// releaseBackingArray returns the arrays to the allocator and restores the
// shared empty image.
func (m *Map[K, V]) releaseBackingArray() {
	var proto Slot[K, V]
	sanitizerUnpoisonRegion(m.slots.ptr, m.physicalBuckets*slotsPerBucket*unsafe.Sizeof(proto))
	m.allocator.FreeSlots(m.slots.Slice(0, m.physicalBuckets*slotsPerBucket))
	m.allocator.FreeControls(m.meta.Slice(0, m.physicalBuckets*bucketMetaSize))
	m.meta = makeUnsafeSlice(emptyBucketMeta[:])
	m.slots = makeUnsafeSlice([]Slot[K, V](nil))
	m.logicalBuckets = 0
	m.physicalBuckets = 0
	m.growthLeft = 0
	m.maxProbeDistance = 0
}

func (m *Map[K, V]) bumpGeneration() {
	if generationsEnabled {
		m.gen++
	}
}

// maybeBumpGenerationOnInsert consumes reserved growth if any; only inserts
// past the reservation can trigger a rehash and so invalidate iterators.
func (m *Map[K, V]) maybeBumpGenerationOnInsert() {
	if m.reservedGrowth > 0 {
		m.reservedGrowth--
	} else {
		m.bumpGeneration()
	}
}

// shouldRehashForBugDetection reports whether this insert should rehash
// with probability rehashProbabilityConstant/capacity to surface invalid
// iterator and pointer use. Always false when generations are disabled.
func (m *Map[K, V]) shouldRehashForBugDetection() bool {
	if !generationsEnabled {
		return false
	}
	if m.reservedGrowth > 0 || m.logicalBuckets == 0 {
		return false
	}
	return fastrand64()%uint64(m.Capacity()) < rehashProbabilityConstant
}

// bucketsForSlots returns the number of logical buckets needed to hold n
// slots.
func bucketsForSlots(n int) uintptr {
	if n <= 0 {
		return 1
	}
	return uintptr((n + slotsPerBucket - 1) / slotsPerBucket)
}

// growthToCapacity "unapplies" the full load factor: n plus n/7 rounded up,
// a capacity whose growth budget admits n inserts (not always the smallest
// such capacity).
func growthToCapacity(n int) int {
	return n + (n+fullUtilizationNum-1)/fullUtilizationNum
}

// capacityToGrowth applies the full load factor. A single-bucket table
// never probes beyond its bucket, so it runs at a load factor of 1.
func capacityToGrowth(capacity int, logicalBuckets uintptr) int {
	if logicalBuckets <= 1 {
		return capacity
	}
	return capacity - capacity/fullUtilizationDen
}

// capacityForRehash sizes a rehash for n entries at the post-rehash load
// factor.
func capacityForRehash(n int) int {
	if n <= 0 {
		return 1
	}
	return (n*rehashedUtilizationDen + rehashedUtilizationNum - 1) / rehashedUtilizationNum
}

func (m *Map[K, V]) checkInvariants() {
	if invariants {
		if m.physicalBuckets > 0 {
			var used int
			for i := uintptr(0); i < m.physicalBuckets; i++ {
				bp := m.bucketAt(i)
				if got := bp.isEnd(); got != (i == m.physicalBuckets-1) {
					panic(fmt.Sprintf("invariant failed: bucket %d is-end=%t\n%s", i, got, m.debugString()))
				}
				if sd := bp.searchDistance(); sd > m.maxProbeDistance {
					panic(fmt.Sprintf("invariant failed: bucket %d search distance %d exceeds table max %d\n%s",
						i, sd, m.maxProbeDistance, m.debugString()))
				}
				for j := uintptr(0); j < slotsPerBucket; j++ {
					c := bp.ctrl(j)
					if c.isEmpty() {
						continue
					}
					if uint8(c) == uint8(ctrlDisordered)|uint8(ctrlEmpty) {
						panic(fmt.Sprintf("invariant failed: bucket %d slot %d is disordered and empty", i, j))
					}
					used++
					s := bp.slot(j)
					if _, ok := m.Get(s.key); !ok {
						h := m.hashKey(&s.key)
						panic(fmt.Sprintf("invariant failed: bucket %d slot %d: %v not found [h1=%d h2=%02x]\n%s",
							i, j, s.key, h1(h, m.logicalBuckets), h2(h), m.debugString()))
					}
				}
			}
			if used != m.used {
				panic(fmt.Sprintf("invariant failed: found %d used slots, but used count is %d\n%s",
					used, m.used, m.debugString()))
			}
		}
		if m.growthLeft < 0 {
			panic(fmt.Sprintf("invariant failed: negative growth-left %d", m.growthLeft))
		}
	}
}

func (m *Map[K, V]) debugString() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "logical=%d physical=%d used=%d growth-left=%d max-probe=%d\n",
		m.logicalBuckets, m.physicalBuckets, m.used, m.growthLeft, m.maxProbeDistance)
	for i := uintptr(0); i < m.physicalBuckets; i++ {
		bp := m.bucketAt(i)
		fmt.Fprintf(&buf, "bucket %4d: sd=%d end=%t\n", i, bp.searchDistance(), bp.isEnd())
		for j := uintptr(0); j < slotsPerBucket; j++ {
			c := bp.ctrl(j)
			if c.isEmpty() {
				fmt.Fprintf(&buf, "  %2d: empty\n", j)
			} else {
				s := bp.slot(j)
				h := m.hashKey(&s.key)
				fmt.Fprintf(&buf, "  %2d: %v [%s h1=%d]\n", j, s.key, c, h1(h, m.logicalBuckets))
			}
		}
	}
	return buf.String()
}
