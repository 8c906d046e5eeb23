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

//go:build amd64

package graveyard

import (
	"unsafe"

	"golang.org/x/sys/cpu"
)

// On amd64 a bucket's entire 16-byte metadata block is scanned with one
// byte-compare and movemask. The broadcast of the probe byte uses PSHUFB, so
// the fast path requires SSSE3; the rare machine without it falls back to
// the portable scan.

const groupWidth = 16

var hasSSSE3 = cpu.X86.HasSSSE3

// metaMatchH2SSE compares the masked control bytes of a 16-byte metadata
// block against q and returns the movemask. Lanes 14 and 15 are garbage and
// must be masked off by the caller.
//
//go:noescape
func metaMatchH2SSE(meta *uint8, q uint8) uint16

// metaMatchEmptySSE returns the movemask of lanes whose h2 field is the
// empty sentinel.
//
//go:noescape
func metaMatchEmptySSE(meta *uint8) uint16

func bucketMatchH2(meta unsafe.Pointer, q uintptr) bitset {
	if hasSSSE3 {
		return bitset(metaMatchH2SSE((*uint8)(meta), uint8(q))) & bucketLaneMask
	}
	return bucketMatchH2Portable(meta, q)
}

func bucketMatchEmpty(meta unsafe.Pointer) bitset {
	if hasSSSE3 {
		return bitset(metaMatchEmptySSE((*uint8)(meta))) & bucketLaneMask
	}
	return bucketMatchEmptyPortable(meta)
}
