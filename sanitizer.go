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

// Memory-sanitizer region hooks. The slot region backing empty slots is
// poisoned and unpoisoned around slot lifecycle transitions so that a
// sanitizer-instrumented build can flag reads of dead slots. Without
// instrumentation these compile to nothing.

func sanitizerPoisonRegion(p unsafe.Pointer, n uintptr) {
	_, _ = p, n
}

func sanitizerUnpoisonRegion(p unsafe.Pointer, n uintptr) {
	_, _ = p, n
}
