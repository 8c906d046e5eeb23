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
	"math/bits"
	"unsafe"
)

// hashFn has the signature of the Go runtime's per-type hash functions: a
// pointer to the key and a seed.
type hashFn func(unsafe.Pointer, uintptr) uintptr

// getRuntimeHasher extracts the hash function from Go's implementation of
// map[K]struct{} by reaching into the internals of the type. (This might
// break in a future version of Go, but is likely fixable unless the Go
// runtime does something drastic).
func getRuntimeHasher[K comparable]() hashFn {
	var m any = (map[K]struct{})(nil)
	return (*rtEface)(noescape(unsafe.Pointer(&m))).typ.hasher
}

// rtEface mirrors runtime.eface.
type rtEface struct {
	typ *rtMapType
	val unsafe.Pointer
}

// rtMapType mirrors runtime.maptype (abi.MapType). Only the offset of the
// hasher field matters; the preceding fields pad to it.
type rtMapType struct {
	rtType
	key    *rtType
	elem   *rtType
	bucket *rtType
	// hasher is the function for hashing keys: (ptr to key, seed) -> hash.
	hasher func(unsafe.Pointer, uintptr) uintptr
}

// rtType mirrors runtime._type (abi.Type).
type rtType struct {
	size       uintptr
	ptrdata    uintptr
	hash       uint32
	tflag      uint8
	align      uint8
	fieldAlign uint8
	kind       uint8
	equal      func(unsafe.Pointer, unsafe.Pointer) bool
	gcdata     *byte
	str        int32
	ptrToThis  int32
}

//go:linkname fastrand64 runtime.fastrand64
func fastrand64() uint64

// h1 maps a raw hash into a bucket index in [0, logicalBuckets) using the
// high bits of the 128-bit product, avoiding a modulo. See
// https://lemire.me/blog/2016/06/27/a-fast-alternative-to-the-modulo-reduction/.
// The reduction is monotone in the hash, which the rehash merge relies on.
func h1(h uintptr, logicalBuckets uintptr) uintptr {
	hi, _ := bits.Mul64(uint64(h), uint64(logicalBuckets))
	return uintptr(hi)
}

// h2 extracts the 7-bit tag stored in the control byte of a full slot. The
// value 127 is reserved as the empty sentinel, hence the modulus.
func h2(h uintptr) uintptr {
	return h % 127
}

// noescape hides a pointer from escape analysis.  noescape is
// the identity function but escape analysis doesn't think the
// output depends on the input.  noescape is inlined and currently
// compiles down to zero instructions.
// USE CAREFULLY!
//
//go:nosplit
//go:nocheckptr
func noescape(p unsafe.Pointer) unsafe.Pointer {
	x := uintptr(p)
	return unsafe.Pointer(x ^ 0)
}
