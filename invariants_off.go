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

//go:build !invariants && !race

package graveyard

// invariants enables expensive self-checks after mutating operations.
const invariants = false

// generationsEnabled adds a mutation generation to each table that is
// validated on iterator use, catching use of iterators that a rehash or
// clear has invalidated. When disabled the generation machinery compiles
// away.
const generationsEnabled = false
