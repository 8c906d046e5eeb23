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

import (
	"container/heap"
	"fmt"
	"unsafe"
)

// extraBucketsFor returns the number of physical buckets appended past the
// logical range. A probe chain starting near the last logical bucket spills
// into these instead of wrapping to bucket zero; wrapped placements must be
// marked disordered, so the tail keeps them rare. A single-bucket table
// gets no tail.
func extraBucketsFor(logical uintptr) uintptr {
	if logical <= 1 {
		return 0
	}
	extra := logical >> extraBucketShift
	if extra == 0 {
		extra = 1
	}
	return extra
}

// resizeForGrowth grows the table so that the current contents plus one
// insert land at the post-rehash load factor.
func (m *Map[K, V]) resizeForGrowth() {
	m.resizeTo(bucketsForSlots(capacityForRehash(m.used + 1)))
}

// resizeTo allocates a backing array with the given logical bucket count
// and streams the old array into it, re-establishing the H1 ordering
// invariant. The old array stays intact until the new one has been
// allocated, so an allocator failure leaves the table at its previous
// state.
func (m *Map[K, V]) resizeTo(newLogical uintptr) {
	if newLogical < 1 {
		newLogical = 1
	}
	newPhysical := newLogical + extraBucketsFor(newLogical)
	newMeta := makeUnsafeSlice(m.allocator.AllocControls(int(newPhysical * bucketMetaSize)))
	newSlots := makeUnsafeSlice(m.allocator.AllocSlots(int(newPhysical * slotsPerBucket)))

	oldMeta, oldSlots, oldPhysical := m.meta, m.slots, m.physicalBuckets
	oldWindow := m.maxProbeDistance

	m.meta, m.slots = newMeta, newSlots
	m.logicalBuckets, m.physicalBuckets = newLogical, newPhysical
	m.maxProbeDistance = 0
	for i := uintptr(0); i < newPhysical; i++ {
		m.bucketAt(i).initMeta()
	}
	m.bucketAt(newPhysical - 1).setEnd()
	var proto Slot[K, V]
	sanitizerPoisonRegion(newSlots.ptr, newPhysical*slotsPerBucket*unsafe.Sizeof(proto))

	if debug {
		fmt.Printf("resize: buckets=%d->%d capacity=%d used=%d\n",
			oldPhysical, newPhysical, m.Capacity(), m.used)
	}

	var totalProbe int
	if oldPhysical > 0 {
		totalProbe = m.mergeFrom(oldMeta, oldSlots, oldPhysical, oldWindow)
		sanitizerUnpoisonRegion(oldSlots.ptr, oldPhysical*slotsPerBucket*unsafe.Sizeof(proto))
		m.allocator.FreeSlots(oldSlots.Slice(0, oldPhysical*slotsPerBucket))
		m.allocator.FreeControls(oldMeta.Slice(0, oldPhysical*bucketMetaSize))
	}

	m.growthLeft = capacityToGrowth(m.Capacity(), m.logicalBuckets) - m.used
	m.bumpGeneration()
	if oldPhysical > 0 {
		m.telemetry.RecordRehash(totalProbe)
	}
	m.telemetry.RecordStorageChanged(m.used, m.Capacity())
	m.checkInvariants()
}

// mergeCandidate is a disordered entry staged for placement, keyed by its
// destination bucket.
type mergeCandidate[K comparable, V any] struct {
	hash uintptr
	h1   uintptr
	slot *Slot[K, V]
}

type mergeHeap[K comparable, V any] []mergeCandidate[K, V]

func (h mergeHeap[K, V]) Len() int           { return len(h) }
func (h mergeHeap[K, V]) Less(i, j int) bool { return h[i].h1 < h[j].h1 }
func (h mergeHeap[K, V]) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *mergeHeap[K, V]) Push(x any) {
	*h = append(*h, x.(mergeCandidate[K, V]))
}

func (h *mergeHeap[K, V]) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// mergeFrom streams every full slot of the old array into the (already
// installed) new array in nondecreasing destination-bucket order, apart from
// the regressing placements described below.
//
// The ordered slots of the old array are already sorted by position, so one
// cursor scans them linearly. A second cursor runs ahead of the first,
// staging disordered slots into a min-heap keyed by destination bucket. A
// disordered entry that could precede the ordered cursor's current entry
// must lie within `window` buckets of it — the source table's maximum
// search distance bounds how far any entry sits from its home — so the
// heap stays small (typically one or two entries at steady-state load).
// At each step the smaller destination bucket is drawn, placed with
// findFirstEmpty, and marked ordered; a placement that wrapped past the
// last physical bucket, or whose destination regressed because two source
// buckets interleaved, is marked disordered.
//
// Returns the total probe length accumulated across placements.
func (m *Map[K, V]) mergeFrom(
	oldMeta unsafeSlice[uint8], oldSlots unsafeSlice[Slot[K, V]], oldPhysical, window uintptr,
) int {
	var stage mergeHeap[K, V]
	totalProbe := 0
	lastH1 := uintptr(0)

	emit := func(hash uintptr, src *Slot[K, V]) {
		target := m.findFirstEmpty(hash)
		dst := target.bp.slot(target.slot)
		var proto Slot[K, V]
		sanitizerUnpoisonRegion(unsafe.Pointer(dst), unsafe.Sizeof(proto))
		m.policy.transfer(dst, src)
		q := h2(hash)
		home := h1(hash, m.logicalBuckets)
		c := makeOrderedCtrl(q)
		if target.bucket < home || home < lastH1 {
			c = makeDisorderedCtrl(q)
		} else {
			lastH1 = home
		}
		target.bp.setCtrl(target.slot, c)
		hb := m.bucketAt(home)
		if d := target.probeLength; d > hb.searchDistance() {
			hb.setSearchDistance(d)
			if d > m.maxProbeDistance {
				m.maxProbeDistance = d
			}
		}
		totalProbe += int(target.probeLength)
	}

	scanBucket, scanSlot := uintptr(0), uintptr(0)
	stageThrough := func(bucket uintptr) {
		if bucket >= oldPhysical {
			bucket = oldPhysical - 1
		}
		for scanBucket <= bucket {
			bp := bucketAt(oldMeta, oldSlots, scanBucket)
			for ; scanSlot < slotsPerBucket; scanSlot++ {
				c := bp.ctrl(scanSlot)
				if c.isFull() && c.isDisordered() {
					s := bp.slot(scanSlot)
					hash := m.policy.hashSlot(m, s)
					heap.Push(&stage, mergeCandidate[K, V]{
						hash: hash,
						h1:   h1(hash, m.logicalBuckets),
						slot: s,
					})
				}
			}
			scanSlot = 0
			scanBucket++
		}
	}

	for ob := uintptr(0); ob < oldPhysical; ob++ {
		stageThrough(ob + window)
		bp := bucketAt(oldMeta, oldSlots, ob)
		for oi := uintptr(0); oi < slotsPerBucket; oi++ {
			c := bp.ctrl(oi)
			if !c.isOrdered() {
				continue
			}
			s := bp.slot(oi)
			hash := m.policy.hashSlot(m, s)
			dest := h1(hash, m.logicalBuckets)
			for len(stage) > 0 && stage[0].h1 < dest {
				cand := heap.Pop(&stage).(mergeCandidate[K, V])
				emit(cand.hash, cand.slot)
			}
			emit(hash, s)
		}
	}
	stageThrough(oldPhysical - 1)
	for len(stage) > 0 {
		cand := heap.Pop(&stage).(mergeCandidate[K, V])
		emit(cand.hash, cand.slot)
	}
	return totalProbe
}
