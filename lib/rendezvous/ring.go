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

// Package rendezvous implements rendezvous (highest random weight)
// hashing: every node scores a key by combining its own hash with the
// key's hash, and the key routes to the node with the highest score.
// Replicas give a node multiple scoring hashes, of which the maximum is
// used, trading a configurable amount of extra computation per lookup for
// smoother load distribution across unevenly-sized node sets.
package rendezvous

import (
	"fmt"

	"github.com/asokolov365/hashring/lib/ringutil"
)

// Ring is a rendezvous hashing ring over node ids of type T and lookup
// keys of type K.
type Ring[T ringutil.Ordered, K any] struct {
	replicaHashes map[T][]uint64
	order         []T
	nodeHash      ringutil.HashFunc[T]
	pointHash     ringutil.HashFunc[K]
}

// New constructs an empty Ring.
func New[T ringutil.Ordered, K any](
	nodeHash ringutil.HashFunc[T],
	pointHash ringutil.HashFunc[K],
) *Ring[T, K] {
	return &Ring[T, K]{
		replicaHashes: make(map[T][]uint64),
		nodeHash:      nodeHash,
		pointHash:     pointHash,
	}
}

// InsertNode inserts or replaces a node with the given replica count.
// replicas must be positive.
func (r *Ring[T, K]) InsertNode(id T, replicas int) error {
	if replicas <= 0 {
		return fmt.Errorf("rendezvous: replicas must be positive: %w", ringutil.ErrInvalidConfig)
	}
	hashes := make([]uint64, replicas)
	base := r.nodeHash(id)
	for i := 0; i < replicas; i++ {
		hashes[i] = ringutil.Combine(base, ringutil.HashReplica(i))
	}
	if _, exists := r.replicaHashes[id]; !exists {
		r.order = append(r.order, id)
	}
	r.replicaHashes[id] = hashes
	return nil
}

// RemoveNode removes a node.
func (r *Ring[T, K]) RemoveNode(id T) error {
	if _, exists := r.replicaHashes[id]; !exists {
		return fmt.Errorf("rendezvous: node %v: %w", id, ringutil.ErrUnknownNode)
	}
	delete(r.replicaHashes, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// scoreFor returns id's score against an already-hashed point: the
// maximum combined hash across id's replicas.
func (r *Ring[T, K]) scoreFor(id T, pointHash uint64) uint64 {
	hashes := r.replicaHashes[id]
	best := uint64(0)
	for i, h := range hashes {
		s := ringutil.Combine(h, pointHash)
		if i == 0 || s > best {
			best = s
		}
	}
	return best
}

// GetNode returns the node with the highest score for point, ties broken
// by ascending id.
func (r *Ring[T, K]) GetNode(point K) (T, error) {
	var zero T
	if len(r.order) == 0 {
		return zero, fmt.Errorf("rendezvous: %w", ringutil.ErrEmptyRing)
	}

	pointHash := r.pointHash(point)
	best := r.order[0]
	bestScore := r.scoreFor(best, pointHash)
	for _, id := range r.order[1:] {
		s := r.scoreFor(id, pointHash)
		if s > bestScore || (s == bestScore && id < best) {
			best, bestScore = id, s
		}
	}
	return best, nil
}

// NodeInfo describes a node as currently held by the ring, including its
// configured replica count.
type NodeInfo[T ringutil.Ordered] struct {
	ID       T
	Replicas int
}

// Nodes returns every node currently in the ring with its replica count,
// in insertion order.
func (r *Ring[T, K]) Nodes() []NodeInfo[T] {
	out := make([]NodeInfo[T], len(r.order))
	for i, id := range r.order {
		out[i] = NodeInfo[T]{ID: id, Replicas: len(r.replicaHashes[id])}
	}
	return out
}

// Len returns the number of nodes in the ring.
func (r *Ring[T, K]) Len() int { return len(r.order) }

// IsEmpty reports whether the ring has no nodes.
func (r *Ring[T, K]) IsEmpty() bool { return len(r.order) == 0 }
