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

//go:build !amd64

package graveyard

import "unsafe"

// Non-amd64 targets use the 8-lane SWAR scan. Neon on arm64 is too high
// latency for this workload; comparing 8 bytes at a time through bit tricks
// wins there.

const groupWidth = 8

func bucketMatchH2(meta unsafe.Pointer, q uintptr) bitset {
	return bucketMatchH2Portable(meta, q)
}

func bucketMatchEmpty(meta unsafe.Pointer) bitset {
	return bucketMatchEmptyPortable(meta)
}
