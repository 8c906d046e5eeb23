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
	"strconv"
	"testing"

	"github.com/aclements/go-perfevent/perfbench"
)

type benchTypes interface {
	int64 | string
}

func benchSizes[T benchTypes](
	f func(b *testing.B, n int, genKeys func(start, end int) []T), genKeys func(start, end int) []T,
) func(*testing.B) {
	var cases = []int{
		6, 12, 18, 24, 30,
		64,
		128,
		256,
		512,
		1024,
		2048,
		4096,
		8192,
		1 << 16,
	}

	return func(b *testing.B) {
		for _, n := range cases {
			b.Run("len="+strconv.Itoa(n), func(b *testing.B) { f(b, n, genKeys) })
		}
	}
}

func genKeys[T benchTypes](start, end int) []T {
	var t T
	switch any(t).(type) {
	case int64:
		keys := make([]int64, end-start)
		for i := range keys {
			keys[i] = int64(start + i)
		}
		return unsafeConvertSlice[T](keys)
	case string:
		keys := make([]string, end-start)
		for i := range keys {
			keys[i] = strconv.Itoa(start + i)
		}
		return unsafeConvertSlice[T](keys)
	default:
		panic("not reached")
	}
}

func benchmarkRuntimeMapGetHit[T benchTypes](b *testing.B, n int, genKeys func(start, end int) []T) {
	cs := perfbench.Open(b)
	cs.Stop()
	keys := genKeys(0, n)
	m := make(map[T]T, n)
	for _, k := range keys {
		m[k] = k
	}
	b.ResetTimer()
	cs.Start()
	for i, j := 0, 0; i < b.N; i, j = i+1, j+1 {
		if j == len(keys) {
			j = 0
		}
		_ = m[keys[j]]
	}
}

func benchmarkGraveyardMapGetHit[T benchTypes](b *testing.B, n int, genKeys func(start, end int) []T) {
	cs := perfbench.Open(b)
	cs.Stop()
	keys := genKeys(0, n)
	m := New[T, T](n)
	defer m.Close()
	for _, k := range keys {
		m.Put(k, k)
	}
	b.ResetTimer()
	cs.Start()
	for i, j := 0, 0; i < b.N; i, j = i+1, j+1 {
		if j == len(keys) {
			j = 0
		}
		_, _ = m.Get(keys[j])
	}
}

func benchmarkRuntimeMapGetMiss[T benchTypes](b *testing.B, n int, genKeys func(start, end int) []T) {
	cs := perfbench.Open(b)
	cs.Stop()
	hit := genKeys(0, n)
	miss := genKeys(n, 2*n)
	m := make(map[T]T, n)
	for _, k := range hit {
		m[k] = k
	}
	b.ResetTimer()
	cs.Start()
	for i, j := 0, 0; i < b.N; i, j = i+1, j+1 {
		if j == len(miss) {
			j = 0
		}
		_ = m[miss[j]]
	}
}

func benchmarkGraveyardMapGetMiss[T benchTypes](b *testing.B, n int, genKeys func(start, end int) []T) {
	cs := perfbench.Open(b)
	cs.Stop()
	hit := genKeys(0, n)
	miss := genKeys(n, 2*n)
	m := New[T, T](n)
	defer m.Close()
	for _, k := range hit {
		m.Put(k, k)
	}
	b.ResetTimer()
	cs.Start()
	for i, j := 0, 0; i < b.N; i, j = i+1, j+1 {
		if j == len(miss) {
			j = 0
		}
		_, _ = m.Get(miss[j])
	}
}

func benchmarkRuntimeMapPutGrow[T benchTypes](b *testing.B, n int, genKeys func(start, end int) []T) {
	cs := perfbench.Open(b)
	cs.Stop()
	keys := genKeys(0, n)
	b.ResetTimer()
	cs.Start()
	for i := 0; i < b.N; i += n {
		m := make(map[T]T)
		for _, k := range keys {
			m[k] = k
		}
	}
}

func benchmarkGraveyardMapPutGrow[T benchTypes](b *testing.B, n int, genKeys func(start, end int) []T) {
	cs := perfbench.Open(b)
	cs.Stop()
	keys := genKeys(0, n)
	b.ResetTimer()
	cs.Start()
	for i := 0; i < b.N; i += n {
		m := New[T, T](0)
		for _, k := range keys {
			m.Put(k, k)
		}
		m.Close()
	}
}

func benchmarkRuntimeMapPutPreAllocate[T benchTypes](b *testing.B, n int, genKeys func(start, end int) []T) {
	cs := perfbench.Open(b)
	cs.Stop()
	keys := genKeys(0, n)
	b.ResetTimer()
	cs.Start()
	for i := 0; i < b.N; i += n {
		m := make(map[T]T, n)
		for _, k := range keys {
			m[k] = k
		}
	}
}

func benchmarkGraveyardMapPutPreAllocate[T benchTypes](b *testing.B, n int, genKeys func(start, end int) []T) {
	cs := perfbench.Open(b)
	cs.Stop()
	keys := genKeys(0, n)
	b.ResetTimer()
	cs.Start()
	for i := 0; i < b.N; i += n {
		m := New[T, T](n)
		for _, k := range keys {
			m.Put(k, k)
		}
		m.Close()
	}
}

func benchmarkRuntimeMapIter[T benchTypes](b *testing.B, n int, genKeys func(start, end int) []T) {
	cs := perfbench.Open(b)
	cs.Stop()
	keys := genKeys(0, n)
	m := make(map[T]T, n)
	for _, k := range keys {
		m[k] = k
	}
	b.ResetTimer()
	cs.Start()
	for i := 0; i < b.N; i += n {
		for k, v := range m {
			_, _ = k, v
		}
	}
}

func benchmarkGraveyardMapIter[T benchTypes](b *testing.B, n int, genKeys func(start, end int) []T) {
	cs := perfbench.Open(b)
	cs.Stop()
	keys := genKeys(0, n)
	m := New[T, T](n)
	defer m.Close()
	for _, k := range keys {
		m.Put(k, k)
	}
	b.ResetTimer()
	cs.Start()
	for i := 0; i < b.N; i += n {
		m.All(func(k, v T) bool {
			_, _ = k, v
			return true
		})
	}
}

func BenchmarkMapGetHit(b *testing.B) {
	b.Run("impl=runtimeMap", func(b *testing.B) {
		b.Run("t=Int64", benchSizes(benchmarkRuntimeMapGetHit[int64], genKeys[int64]))
		b.Run("t=String", benchSizes(benchmarkRuntimeMapGetHit[string], genKeys[string]))
	})
	b.Run("impl=graveyardMap", func(b *testing.B) {
		b.Run("t=Int64", benchSizes(benchmarkGraveyardMapGetHit[int64], genKeys[int64]))
		b.Run("t=String", benchSizes(benchmarkGraveyardMapGetHit[string], genKeys[string]))
	})
}

func BenchmarkMapGetMiss(b *testing.B) {
	b.Run("impl=runtimeMap", func(b *testing.B) {
		b.Run("t=Int64", benchSizes(benchmarkRuntimeMapGetMiss[int64], genKeys[int64]))
		b.Run("t=String", benchSizes(benchmarkRuntimeMapGetMiss[string], genKeys[string]))
	})
	b.Run("impl=graveyardMap", func(b *testing.B) {
		b.Run("t=Int64", benchSizes(benchmarkGraveyardMapGetMiss[int64], genKeys[int64]))
		b.Run("t=String", benchSizes(benchmarkGraveyardMapGetMiss[string], genKeys[string]))
	})
}

func BenchmarkMapPutGrow(b *testing.B) {
	b.Run("impl=runtimeMap", func(b *testing.B) {
		b.Run("t=Int64", benchSizes(benchmarkRuntimeMapPutGrow[int64], genKeys[int64]))
		b.Run("t=String", benchSizes(benchmarkRuntimeMapPutGrow[string], genKeys[string]))
	})
	b.Run("impl=graveyardMap", func(b *testing.B) {
		b.Run("t=Int64", benchSizes(benchmarkGraveyardMapPutGrow[int64], genKeys[int64]))
		b.Run("t=String", benchSizes(benchmarkGraveyardMapPutGrow[string], genKeys[string]))
	})
}

func BenchmarkMapPutPreAllocate(b *testing.B) {
	b.Run("impl=runtimeMap", func(b *testing.B) {
		b.Run("t=Int64", benchSizes(benchmarkRuntimeMapPutPreAllocate[int64], genKeys[int64]))
		b.Run("t=String", benchSizes(benchmarkRuntimeMapPutPreAllocate[string], genKeys[string]))
	})
	b.Run("impl=graveyardMap", func(b *testing.B) {
		b.Run("t=Int64", benchSizes(benchmarkGraveyardMapPutPreAllocate[int64], genKeys[int64]))
		b.Run("t=String", benchSizes(benchmarkGraveyardMapPutPreAllocate[string], genKeys[string]))
	})
}

func BenchmarkMapIter(b *testing.B) {
	b.Run("impl=runtimeMap", func(b *testing.B) {
		b.Run("t=Int64", benchSizes(benchmarkRuntimeMapIter[int64], genKeys[int64]))
	})
	b.Run("impl=graveyardMap", func(b *testing.B) {
		b.Run("t=Int64", benchSizes(benchmarkGraveyardMapIter[int64], genKeys[int64]))
	})
}
