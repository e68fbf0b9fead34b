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

// Package maglev implements Google's Maglev consistent hashing: a
// permutation table built from two independent per-node hash functions
// (offset and skip) gives every node a near-uniform share of a
// fixed-capacity lookup table, and lookups are a single table index with
// no wheel search.
package maglev

import (
	"fmt"

	"github.com/asokolov365/hashring/lib/ringutil"
)

// isPrime reports whether n is prime, by trial division. The module's
// lookup tables top out in the low thousands of entries, so trial
// division is fast enough and needs no extra dependency.
func isPrime(n int64) bool {
	if n < 2 {
		return false
	}
	if n%2 == 0 {
		return n == 2
	}
	for d := int64(3); d*d <= n; d += 2 {
		if n%d == 0 {
			return false
		}
	}
	return true
}

// nextPrime returns the smallest prime >= n.
func nextPrime(n int64) int64 {
	if n <= 2 {
		return 2
	}
	if n%2 == 0 {
		n++
	}
	for !isPrime(n) {
		n += 2
	}
	return n
}

// tableMultiplier sets the default capacity hint to tableMultiplier times
// the node count at construction, following the reference's choice of a
// table two orders of magnitude larger than the node count to keep
// per-node share variance small.
const tableMultiplier = 100

// Config holds Maglev construction options, set via Option functions.
type Config struct {
	CapacityHint int64
}

// Option configures a Ring at construction time.
type Option func(*Config)

// WithCapacityHint fixes M to the smallest prime >= hint, instead of the
// default 100*|nodes|. The ring keeps this capacity for its entire
// lifetime: every later InsertNode/RemoveNode rebuilds the table at the
// same M, which is what bounds Maglev's disruption on membership changes
// to roughly 1/M of the table per affected slot.
func WithCapacityHint(hint int64) Option {
	return func(c *Config) { c.CapacityHint = hint }
}

// Ring is a Maglev hashing ring over node ids of type T and lookup keys of
// type K.
type Ring[T comparable, K any] struct {
	nodes      []T
	nodeIndex  map[T]int
	table      []int
	capacity   int64
	offsetHash ringutil.HashFunc[T]
	skipHash   ringutil.HashFunc[T]
	pointHash  ringutil.HashFunc[K]
}

// New constructs a Ring from a nonempty initial node list. nodeToBytes
// must deterministically encode a node id; it feeds the two
// independently-seeded hash functions used to build each node's
// permutation. By default the table capacity M is the smallest prime >=
// 100*len(nodes); pass WithCapacityHint to fix a different M. M is then
// preserved for the ring's lifetime, across every later InsertNode and
// RemoveNode.
func New[T comparable, K any](
	nodeToBytes func(T) []byte,
	pointHash ringutil.HashFunc[K],
	nodes []T,
	opts ...Option,
) (*Ring[T, K], error) {
	if len(nodes) == 0 {
		return nil, fmt.Errorf("maglev: construction requires a nonempty node list: %w", ringutil.ErrInvalidConfig)
	}

	cfg := &Config{}
	for _, opt := range opts {
		opt(cfg)
	}
	hint := cfg.CapacityHint
	if hint <= 0 {
		hint = tableMultiplier * int64(len(nodes))
	}

	offsetHash, skipHash := ringutil.KeyedPair(nodeToBytes)
	r := &Ring[T, K]{
		nodeIndex:  make(map[T]int, len(nodes)),
		capacity:   nextPrime(hint),
		offsetHash: offsetHash,
		skipHash:   skipHash,
		pointHash:  pointHash,
	}

	for _, id := range nodes {
		if _, exists := r.nodeIndex[id]; exists {
			continue
		}
		r.nodeIndex[id] = len(r.nodes)
		r.nodes = append(r.nodes, id)
	}

	r.rebuild()
	return r, nil
}

// InsertNode adds id to the ring, if not already present, and rebuilds the
// lookup table at the ring's fixed capacity.
func (r *Ring[T, K]) InsertNode(id T) {
	if _, exists := r.nodeIndex[id]; exists {
		return
	}
	r.nodeIndex[id] = len(r.nodes)
	r.nodes = append(r.nodes, id)
	r.rebuild()
}

// RemoveNode removes id from the ring and rebuilds the lookup table at the
// ring's fixed capacity.
func (r *Ring[T, K]) RemoveNode(id T) error {
	idx, exists := r.nodeIndex[id]
	if !exists {
		return fmt.Errorf("maglev: node %v: %w", id, ringutil.ErrUnknownNode)
	}
	r.nodes = append(r.nodes[:idx], r.nodes[idx+1:]...)
	delete(r.nodeIndex, id)
	for i, n := range r.nodes {
		r.nodeIndex[n] = i
	}
	r.rebuild()
	return nil
}

// GetNode returns the node that point hashes to.
func (r *Ring[T, K]) GetNode(point K) (T, error) {
	var zero T
	if len(r.table) == 0 {
		return zero, fmt.Errorf("maglev: %w", ringutil.ErrEmptyRing)
	}
	idx := r.pointHash(point) % uint64(len(r.table))
	return r.nodes[r.table[idx]], nil
}

// Nodes returns the node ids currently in the ring, in insertion order.
func (r *Ring[T, K]) Nodes() []T {
	out := make([]T, len(r.nodes))
	copy(out, r.nodes)
	return out
}

// Len returns the number of nodes in the ring.
func (r *Ring[T, K]) Len() int { return len(r.nodes) }

// IsEmpty reports whether the ring has no nodes.
func (r *Ring[T, K]) IsEmpty() bool { return len(r.nodes) == 0 }

// Capacity returns M, the lookup table's fixed size for the lifetime of
// the ring.
func (r *Ring[T, K]) Capacity() int64 { return r.capacity }

// rebuild recomputes the entire permutation table at the ring's fixed
// capacity. Maglev has no incremental update: every insert or remove
// touches every table slot that used to route to the changed node, so
// tracking clients are not offered for this algorithm.
func (r *Ring[T, K]) rebuild() {
	n := int64(len(r.nodes))
	if n == 0 {
		r.table = nil
		return
	}

	m := r.capacity
	offset := make([]uint64, n)
	skip := make([]uint64, n)
	next := make([]uint64, n)

	for i, id := range r.nodes {
		offset[i] = r.offsetHash(id) % uint64(m)
		skip[i] = r.skipHash(id)%uint64(m-1) + 1
	}

	table := make([]int, m)
	for i := range table {
		table[i] = -1
	}

	filled := int64(0)
	for filled < m {
		for i := int64(0); i < n; i++ {
			c := (offset[i] + next[i]*skip[i]) % uint64(m)
			for table[c] != -1 {
				next[i]++
				c = (offset[i] + next[i]*skip[i]) % uint64(m)
			}
			table[c] = int(i)
			next[i]++
			filled++
			if filled == m {
				break
			}
		}
	}

	r.table = table
}
