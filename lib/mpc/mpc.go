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

// Package mpc implements multi-probe consistent hashing: every node owns
// exactly one wheel position, and a key is routed by probing the wheel k
// times at offsets derived from two independent hashes of the key and
// keeping the node with the smallest probe-to-successor distance. This
// trades the per-node replica points of classic consistent hashing for
// per-lookup probes, at no added memory cost as the node count grows.
package mpc

import (
	"fmt"

	"github.com/asokolov365/hashring/lib/ringutil"
)

// Ring is a multi-probe consistent hashing ring over node ids of type T
// and lookup keys of type K.
type Ring[T ringutil.Ordered, K any] struct {
	wheel    *ringutil.Wheel[T]
	nodeHash ringutil.HashFunc[T]
	h0       ringutil.HashFunc[K]
	h1       ringutil.HashFunc[K]
	probes   int
}

// New constructs an empty Ring that probes the wheel probes times per
// lookup. pointToBytes must deterministically encode a lookup key; it
// feeds the two independently-seeded hashers (h0, h1) that generate each
// lookup's probe sequence, the same derivation lib/maglev uses for its
// offset/skip hashers. probes must be positive.
func New[T ringutil.Ordered, K any](
	nodeHash ringutil.HashFunc[T],
	pointToBytes func(K) []byte,
	probes int,
) (*Ring[T, K], error) {
	if probes <= 0 {
		return nil, fmt.Errorf("mpc: probes must be positive: %w", ringutil.ErrInvalidConfig)
	}
	h0, h1 := ringutil.KeyedPair(pointToBytes)
	return &Ring[T, K]{
		wheel:    ringutil.NewWheel[T](),
		nodeHash: nodeHash,
		h0:       h0,
		h1:       h1,
		probes:   probes,
	}, nil
}

// InsertNode inserts or replaces a node.
func (r *Ring[T, K]) InsertNode(id T) {
	r.wheel.Set(r.nodeHash(id), id)
}

// RemoveNode removes a node.
func (r *Ring[T, K]) RemoveNode(id T) error {
	h := r.nodeHash(id)
	if _, ok := r.wheel.Get(h); !ok {
		return fmt.Errorf("mpc: node %v: %w", id, ringutil.ErrUnknownNode)
	}
	r.wheel.Delete(h)
	return nil
}

// GetNode returns the node with the smallest probe-to-successor distance
// across the ring's probe count. Probe i is h0 + i*h1, where h0 and h1 are
// two hashes independently derived from point, mod 2^64 via Go's unsigned
// wraparound; this spaces probes pseudo-randomly around the wheel instead
// of walking a fixed stride from a single hash.
func (r *Ring[T, K]) GetNode(point K) (T, error) {
	var zero T
	if r.wheel.Len() == 0 {
		return zero, fmt.Errorf("mpc: %w", ringutil.ErrEmptyRing)
	}

	h0 := r.h0(point)
	h1 := r.h1(point)
	var best T
	bestDist := ^uint64(0)
	haveBest := false

	probe := h0
	for i := 0; i < r.probes; i++ {
		key, id, _ := r.wheel.Ceil(probe)
		dist := key - probe // wraps correctly when key < probe
		if !haveBest || dist < bestDist || (dist == bestDist && id < best) {
			best, bestDist, haveBest = id, dist, true
		}
		probe += h1
	}
	return best, nil
}

// Nodes returns the node ids currently in the ring, in ascending
// wheel-position order.
func (r *Ring[T, K]) Nodes() []T { return r.wheel.Values() }

// Len returns the number of nodes in the ring.
func (r *Ring[T, K]) Len() int { return r.wheel.Len() }

// IsEmpty reports whether the ring has no nodes.
func (r *Ring[T, K]) IsEmpty() bool { return r.wheel.Len() == 0 }
