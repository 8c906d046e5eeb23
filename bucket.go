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
	"fmt"
	"unsafe"
)

const (
	// slotsPerBucket is the number of slots (and control bytes) in each
	// bucket. Together with the 2-byte search-distance word this makes the
	// per-bucket metadata exactly 16 bytes, which is what the 16-lane group
	// scan loads.
	slotsPerBucket = 14
	bucketMetaSize = 16
	sdWordOffset   = slotsPerBucket

	// The search-distance word packs an is-end bit (bit 15) with a 15-bit
	// distance. A probe whose length would exceed maxSearchDistance forces a
	// rehash rather than saturating the field.
	isEndBit          = uint16(1) << 15
	maxSearchDistance = 1<<15 - 1

	// Tunables. extraBucketShift controls how many physical buckets are
	// appended past the logical range so that probe chains rarely wrap
	// around to bucket zero: extra = max(1, logical>>extraBucketShift) for
	// tables of more than one logical bucket, and none for a single bucket.
	// clearReuseMaxBuckets bounds the table size for which Clear resets the
	// backing array in place rather than deallocating it.
	extraBucketShift     = 3
	clearReuseMaxBuckets = 16
)

// Each slot in the table has a control byte which encodes one of three
// states:
//
//	          empty: 0 1 1 1 1 1 1 1
//	 full & ordered: 0 h h h h h h h  // h represents the H2 hash bits
//	full, unordered: 1 h h h h h h h
//
// The h2 field holds 0x7f only for empty slots; a full slot's H2 is in
// [0, 0x7f). The high bit marks a full slot that may be out of H1 order
// relative to its neighbors; it is never set on an empty slot. There is no
// tombstone state: erased slots become empty and the consumed growth is
// reclaimed by the next rehash.
type ctrl uint8

const (
	ctrlEmpty      ctrl = 0x7f
	ctrlDisordered ctrl = 0x80
	ctrlH2Mask     ctrl = 0x7f
)

func (c ctrl) isEmpty() bool      { return c == ctrlEmpty }
func (c ctrl) isFull() bool       { return c != ctrlEmpty }
func (c ctrl) isDisordered() bool { return c&ctrlDisordered != 0 }
func (c ctrl) isOrdered() bool    { return c.isFull() && !c.isDisordered() }
func (c ctrl) h2() uintptr        { return uintptr(c & ctrlH2Mask) }

func makeOrderedCtrl(q uintptr) ctrl    { return ctrl(q) }
func makeDisorderedCtrl(q uintptr) ctrl { return ctrl(q) | ctrlDisordered }

func (c ctrl) String() string {
	switch {
	case c.isEmpty():
		return "empty"
	case c.isDisordered():
		return fmt.Sprintf("full(h2=%02x,disordered)", c.h2())
	default:
		return fmt.Sprintf("full(h2=%02x)", c.h2())
	}
}

// emptyBucketMeta is the shared metadata image referenced by every table
// with zero capacity: all control bytes empty, search distance zero, and the
// is-end bit set. It is never written to. Pointing an unallocated table at
// this image removes the nil checks from the Get, Put, and Delete paths: a
// probe of the empty image matches nothing and terminates immediately.
var emptyBucketMeta = func() *[bucketMetaSize]uint8 {
	var b [bucketMetaSize]uint8
	for i := 0; i < slotsPerBucket; i++ {
		b[i] = uint8(ctrlEmpty)
	}
	b[sdWordOffset] = uint8(isEndBit & 0xff)
	b[sdWordOffset+1] = uint8(isEndBit >> 8)
	return &b
}()

// bucketPointer is a cursor over the backing arrays, addressing one bucket's
// metadata block and its slots.
type bucketPointer[K comparable, V any] struct {
	meta  unsafe.Pointer // bucketMetaSize bytes: ctrl[slotsPerBucket] + search-distance word
	slots unsafe.Pointer // slotsPerBucket slots
}

func bucketAt[K comparable, V any](
	meta unsafeSlice[uint8], slots unsafeSlice[Slot[K, V]], i uintptr,
) bucketPointer[K, V] {
	return bucketPointer[K, V]{
		meta:  unsafe.Pointer(meta.At(i * bucketMetaSize)),
		slots: unsafe.Pointer(slots.At(i * slotsPerBucket)),
	}
}

func (b bucketPointer[K, V]) ctrl(i uintptr) ctrl {
	return *(*ctrl)(unsafe.Add(b.meta, i))
}

func (b bucketPointer[K, V]) setCtrl(i uintptr, c ctrl) {
	*(*ctrl)(unsafe.Add(b.meta, i)) = c
}

func (b bucketPointer[K, V]) sdWord() uint16 {
	return *(*uint16)(unsafe.Add(b.meta, sdWordOffset))
}

func (b bucketPointer[K, V]) searchDistance() uintptr {
	return uintptr(b.sdWord() &^ isEndBit)
}

func (b bucketPointer[K, V]) setSearchDistance(d uintptr) {
	if invariants && d > maxSearchDistance {
		panic(fmt.Sprintf("search distance %d exceeds maximum %d", d, maxSearchDistance))
	}
	p := (*uint16)(unsafe.Add(b.meta, sdWordOffset))
	*p = (*p & isEndBit) | uint16(d)
}

func (b bucketPointer[K, V]) isEnd() bool {
	return b.sdWord()&isEndBit != 0
}

func (b bucketPointer[K, V]) setEnd() {
	p := (*uint16)(unsafe.Add(b.meta, sdWordOffset))
	*p |= isEndBit
}

// slot returns a pointer to the i'th slot of the bucket.
func (b bucketPointer[K, V]) slot(i uintptr) *Slot[K, V] {
	var s Slot[K, V]
	return (*Slot[K, V])(unsafe.Add(b.slots, unsafe.Sizeof(s)*i))
}

// next advances to the following bucket. Advancing past the is-end bucket is
// a programmer error; callers that wrap around handle the transition to
// bucket zero explicitly.
func (b bucketPointer[K, V]) next() bucketPointer[K, V] {
	if invariants && b.isEnd() {
		panic("bucketPointer advanced past the end bucket")
	}
	var s Slot[K, V]
	return bucketPointer[K, V]{
		meta:  unsafe.Add(b.meta, bucketMetaSize),
		slots: unsafe.Add(b.slots, unsafe.Sizeof(s)*slotsPerBucket),
	}
}

// resetMeta marks every slot of the bucket empty and zeroes the search
// distance, preserving the is-end bit.
func (b bucketPointer[K, V]) resetMeta() {
	for i := uintptr(0); i < slotsPerBucket; i++ {
		b.setCtrl(i, ctrlEmpty)
	}
	b.setSearchDistance(0)
}

// initMeta initializes the metadata block of a freshly allocated bucket:
// all slots empty, search distance zero, is-end clear.
func (b bucketPointer[K, V]) initMeta() {
	for i := uintptr(0); i < slotsPerBucket; i++ {
		b.setCtrl(i, ctrlEmpty)
	}
	*(*uint16)(unsafe.Add(b.meta, sdWordOffset)) = 0
}

// unsafeSlice provides semi-ergonomic limited slice-like functionality
// without bounds checking for fixed sized slices.
type unsafeSlice[T any] struct {
	ptr unsafe.Pointer
}

func makeUnsafeSlice[T any](s []T) unsafeSlice[T] {
	return unsafeSlice[T]{ptr: unsafe.Pointer(unsafe.SliceData(s))}
}

// At returns a pointer to the element at index i.
func (s unsafeSlice[T]) At(i uintptr) *T {
	var t T
	return (*T)(unsafe.Add(s.ptr, unsafe.Sizeof(t)*i))
}

// Slice returns a Go slice akin to slice[start:end] for a Go builtin slice.
func (s unsafeSlice[T]) Slice(start, end uintptr) []T {
	return unsafe.Slice((*T)(s.ptr), end)[start:end]
}

func unsafeConvertSlice[Dest any, Src any](s []Src) []Dest {
	return unsafe.Slice((*Dest)(unsafe.Pointer(unsafe.SliceData(s))), len(s))
}
