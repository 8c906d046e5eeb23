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

import "unsafe"

// option provide an interface to do work on Map while it is being created.
type option[K comparable, V any] interface {
	apply(m *Map[K, V])
}

type hashOption[K comparable, V any] struct {
	hash func(key *K, seed uintptr) uintptr
}

func (op hashOption[K, V]) apply(m *Map[K, V]) {
	m.hash = *(*hashFn)(noescape(unsafe.Pointer(&op.hash)))
}

// WithHash is an option to specify the hash function to use for a Map[K,V].
// The function must be stable for equivalent keys.
func WithHash[K comparable, V any](hash func(key *K, seed uintptr) uintptr) option[K, V] {
	return hashOption[K, V]{hash}
}

// Allocator specifies an interface for allocating and releasing memory used
// by a Map. The default allocator utilizes Go's builtin make() and allows the
// GC to reclaim memory.
//
// If the allocator is manually managing memory and requires that slots and
// controls be freed then Map.Close must be called in order to ensure
// FreeSlots and FreeControls are called.
type Allocator[K comparable, V any] interface {
	// AllocSlots should return a slice equivalent to make([]Slot[K,V], n).
	AllocSlots(n int) []Slot[K, V]

	// AllocControls should return a slice equivalent to make([]uint8, n).
	// The slice holds per-bucket metadata: control bytes and search-distance
	// words.
	AllocControls(n int) []uint8

	// FreeSlots can optionally release the memory associated with the
	// supplied slice that is guaranteed to have been allocated by
	// AllocSlots.
	FreeSlots(v []Slot[K, V])

	// FreeControls can optionally release the memory associated with the
	// supplied slice that is guaranteed to have been allocated by
	// AllocControls.
	FreeControls(v []uint8)
}

type defaultAllocator[K comparable, V any] struct{}

func (defaultAllocator[K, V]) AllocSlots(n int) []Slot[K, V] {
	return make([]Slot[K, V], n)
}

func (defaultAllocator[K, V]) AllocControls(n int) []uint8 {
	return make([]uint8, n)
}

func (defaultAllocator[K, V]) FreeSlots(v []Slot[K, V]) {
}

func (defaultAllocator[K, V]) FreeControls(v []uint8) {
}

type allocatorOption[K comparable, V any] struct {
	allocator Allocator[K, V]
}

func (op allocatorOption[K, V]) apply(m *Map[K, V]) {
	m.allocator = op.allocator
}

// WithAllocator is an option for specify the Allocator to use for a Map[K,V].
func WithAllocator[K comparable, V any](allocator Allocator[K, V]) option[K, V] {
	return allocatorOption[K, V]{allocator}
}

// Telemetry receives notifications about table activity. All methods must be
// safe as no-ops; the default implementation does nothing.
type Telemetry interface {
	// Register is called when a table binds this handle.
	Register()
	// Unregister is called when the table is closed.
	Unregister()
	// RecordInsert is called once per successful insert with the key's hash
	// and the probe length (buckets walked past the home bucket).
	RecordInsert(hash uintptr, probeLength int)
	// RecordErase is called once per successful erase.
	RecordErase()
	// RecordRehash is called after the table's contents have been streamed
	// into a new backing array, with the total probe length accumulated
	// while re-inserting.
	RecordRehash(totalProbeLength int)
	// RecordStorageChanged is called whenever the backing array is replaced
	// or reset in place.
	RecordStorageChanged(size, capacity int)
	// RecordReservation is called by Reserve and Rehash with the caller's
	// hint.
	RecordReservation(n int)
}

type noopTelemetry struct{}

func (noopTelemetry) Register()                     {}
func (noopTelemetry) Unregister()                   {}
func (noopTelemetry) RecordInsert(uintptr, int)     {}
func (noopTelemetry) RecordErase()                  {}
func (noopTelemetry) RecordRehash(int)              {}
func (noopTelemetry) RecordStorageChanged(int, int) {}
func (noopTelemetry) RecordReservation(int)         {}

type telemetryOption[K comparable, V any] struct {
	telemetry Telemetry
}

func (op telemetryOption[K, V]) apply(m *Map[K, V]) {
	m.telemetry = op.telemetry
}

// WithTelemetry is an option to attach a Telemetry handle to a Map[K,V].
func WithTelemetry[K comparable, V any](telemetry Telemetry) option[K, V] {
	return telemetryOption[K, V]{telemetry}
}
