// Copyright 2023-2024 Andrew Sokolov
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ringutil

import "sort"

// Wheel is an ordered map keyed by uint64 hash positions with ceiling
// (successor, wrap-to-minimum) lookup. It backs the Consistent ring's and
// MPC ring's hash wheels, and the Consistent tracking client's point
// buckets, the same way lib/lb.ConsistentHash in the teacher's sibling
// project keeps a sorted []uint32 alongside a map for O(log n) successor
// search via sort.Search.
type Wheel[V any] struct {
	keys []uint64
	vals map[uint64]V
}

// NewWheel constructs an empty Wheel.
func NewWheel[V any]() *Wheel[V] {
	return &Wheel[V]{vals: make(map[uint64]V)}
}

// Len returns the number of entries in the wheel.
func (w *Wheel[V]) Len() int {
	return len(w.keys)
}

// Get returns the value stored at exactly hash, if any.
func (w *Wheel[V]) Get(hash uint64) (V, bool) {
	v, ok := w.vals[hash]
	return v, ok
}

// Set inserts or overwrites the entry at hash.
func (w *Wheel[V]) Set(hash uint64, v V) {
	if _, exists := w.vals[hash]; !exists {
		i := sort.Search(len(w.keys), func(i int) bool { return w.keys[i] >= hash })
		w.keys = append(w.keys, 0)
		copy(w.keys[i+1:], w.keys[i:])
		w.keys[i] = hash
	}
	w.vals[hash] = v
}

// Delete removes the entry at hash, if present.
func (w *Wheel[V]) Delete(hash uint64) {
	if _, exists := w.vals[hash]; !exists {
		return
	}
	delete(w.vals, hash)
	i := sort.Search(len(w.keys), func(i int) bool { return w.keys[i] >= hash })
	w.keys = append(w.keys[:i], w.keys[i+1:]...)
}

// Ceil returns the entry whose key is the smallest key >= hash, wrapping
// around to the smallest key in the wheel if hash is greater than every
// key present. The second return value is false only when the wheel is
// empty.
func (w *Wheel[V]) Ceil(hash uint64) (key uint64, val V, ok bool) {
	if len(w.keys) == 0 {
		return 0, val, false
	}
	i := sort.Search(len(w.keys), func(i int) bool { return w.keys[i] >= hash })
	if i == len(w.keys) {
		i = 0
	}
	key = w.keys[i]
	return key, w.vals[key], true
}

// Keys returns the wheel's keys in ascending order. The returned slice must
// not be modified by the caller.
func (w *Wheel[V]) Keys() []uint64 {
	return w.keys
}

// Values returns the wheel's values, in ascending key order.
func (w *Wheel[V]) Values() []V {
	out := make([]V, len(w.keys))
	for i, k := range w.keys {
		out[i] = w.vals[k]
	}
	return out
}
