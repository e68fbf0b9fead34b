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

// Package jump implements Google's jump consistent hash. Nodes are dense
// ordinals 0..n-1: a node can only be added at the top of the range or
// removed from the top, trading flexibility for an allocation-free O(log n)
// lookup and no wheel to maintain.
package jump

import (
	"fmt"

	"github.com/asokolov365/hashring/lib/ringutil"
)

// Hash returns the bucket in [0, numBuckets) that key jumps to. numBuckets
// must be positive. This is the Lamping & Veach recurrence: it walks key
// forward through a linear congruential generator, accepting a new
// candidate bucket only when it lands inside the previous one's range.
func Hash(key uint64, numBuckets int64) int64 {
	var b, j int64 = -1, 0
	for j < numBuckets {
		b = j
		key = key*2862933555777941757 + 1
		j = int64(float64(b+1) * float64(int64(1)<<31) / float64((key>>33)+1))
	}
	return b
}

// Ring is a jump-hash ring over lookup keys of type K. Unlike the other
// rings in this module, nodes have no identity of their own: they are the
// ordinals 0..Len()-1.
type Ring[K any] struct {
	numBuckets int64
	pointHash  ringutil.HashFunc[K]
}

// New constructs an empty Ring.
func New[K any](pointHash ringutil.HashFunc[K]) *Ring[K] {
	return &Ring[K]{pointHash: pointHash}
}

// InsertNode appends one bucket to the top of the range and returns its
// ordinal.
func (r *Ring[K]) InsertNode() int64 {
	id := r.numBuckets
	r.numBuckets++
	return id
}

// RemoveNode removes the top-most bucket.
func (r *Ring[K]) RemoveNode() error {
	if r.numBuckets == 0 {
		return fmt.Errorf("jump: %w", ringutil.ErrEmptyRing)
	}
	r.numBuckets--
	return nil
}

// GetNode returns the bucket ordinal that point jumps to.
func (r *Ring[K]) GetNode(point K) (int64, error) {
	if r.numBuckets == 0 {
		return 0, fmt.Errorf("jump: %w", ringutil.ErrEmptyRing)
	}
	return Hash(r.pointHash(point), r.numBuckets), nil
}

// Len returns the number of buckets in the ring.
func (r *Ring[K]) Len() int64 { return r.numBuckets }

// IsEmpty reports whether the ring has no buckets.
func (r *Ring[K]) IsEmpty() bool { return r.numBuckets == 0 }
