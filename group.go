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
	"strings"
	"unsafe"
)

const (
	bitsetLSB = 0x0101010101010101
	bitsetMSB = 0x8080808080808080

	// bucketLaneMask selects the lanes of a 16-byte metadata block that hold
	// control bytes; lanes 14 and 15 are the search-distance word.
	bucketLaneMask bitset = 1<<slotsPerBucket - 1
)

// bitset represents the result of scanning a bucket's control bytes: one bit
// per slot lane. The group-scan primitives produce it either from a 16-byte
// SIMD compare or from two 8-byte SWAR words.
type bitset uint32

// first returns the lowest slot index present in the bitset.
func (b bitset) first() uintptr {
	return uintptr(bits.TrailingZeros32(uint32(b)))
}

// remove clears the bit for slot index i.
func (b bitset) remove(i uintptr) bitset {
	return b &^ (1 << i)
}

func (b bitset) String() string {
	var buf strings.Builder
	buf.Grow(slotsPerBucket)
	for i := 0; i < slotsPerBucket; i++ {
		if b&(1<<i) != 0 {
			buf.WriteString("1")
		} else {
			buf.WriteString("0")
		}
	}
	return buf.String()
}

// The portable group scan examines the two 8-byte halves of a bucket's
// metadata block using SIMD-within-a-register bit tricks and compresses the
// per-byte results into a bitset.

func swarLoad(meta unsafe.Pointer, off uintptr) uint64 {
	// Little-endian load; asserted by TestLittleEndian.
	return *(*uint64)(unsafe.Add(meta, off))
}

// swarMatchH2 returns a word with 0x80 in every byte whose control byte is a
// full slot with the given H2. The disordered bit is masked off before
// comparing so that ordered and disordered slots match alike.
//
// NB: This produces false positive matches when a byte adjacent to a real
// match borrows during the subtraction. For the technique and its caveats
// see http://graphics.stanford.edu/~seander/bithacks.html##ValueInWord.
// False positives never survive to a key comparison on an empty slot
// because the caller masks the result with swarMatchEmpty, which is exact.
func swarMatchH2(w uint64, q uintptr) uint64 {
	x := (w &^ bitsetMSB) ^ (bitsetLSB * uint64(q))
	return (x - bitsetLSB) &^ x & bitsetMSB
}

// swarMatchEmpty returns a word with 0x80 in every byte whose control byte
// is empty. Unlike swarMatchH2 this is exact: a byte's low seven bits are at
// most 0x7f, so adding one cannot carry into the neighboring byte, and the
// high bit of the sum is set precisely when the h2 field is 0x7f. The &^w
// term rejects disordered full slots.
func swarMatchEmpty(w uint64) uint64 {
	return ((w &^ bitsetMSB) + bitsetLSB) &^ w & bitsetMSB
}

// swarCompress converts a word with 0x80-marked bytes into its low-8-bit
// lane mask (the SWAR equivalent of movemask).
func swarCompress(w uint64) bitset {
	return bitset(((w >> 7) * 0x0102040810204080) >> 56)
}

func bucketMatchH2Portable(meta unsafe.Pointer, q uintptr) bitset {
	lo := swarLoad(meta, 0)
	hi := swarLoad(meta, 8)
	mLo := swarMatchH2(lo, q) &^ swarMatchEmpty(lo)
	mHi := swarMatchH2(hi, q) &^ swarMatchEmpty(hi)
	return (swarCompress(mLo) | swarCompress(mHi)<<8) & bucketLaneMask
}

func bucketMatchEmptyPortable(meta unsafe.Pointer) bitset {
	lo := swarLoad(meta, 0)
	hi := swarLoad(meta, 8)
	return (swarCompress(swarMatchEmpty(lo)) | swarCompress(swarMatchEmpty(hi))<<8) & bucketLaneMask
}

// bucketCountLeadingEmpty returns the number of consecutive empty slots at
// the start of the bucket, up to slotsPerBucket.
func bucketCountLeadingEmpty(meta unsafe.Pointer) uintptr {
	e := bucketMatchEmpty(meta)
	return uintptr(bits.TrailingZeros32(^uint32(e)))
}
