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

// Package wrendezvous implements weighted rendezvous hashing (the
// logarithmic method): every node scores a key as -weight/ln(u), where u
// is the node's combined hash with the key normalized into (0, 1], and
// the key routes to the node with the highest score. Unlike plain
// rendezvous hashing's replica trick, the weight enters the score
// directly, so a single hash per node is enough to steer load in
// proportion to weight.
package wrendezvous

import (
	"fmt"
	"math"

	"github.com/asokolov365/hashring/lib/ringutil"
)

// maxUint64AsFloat is 2^64, used to normalize a combined hash into (0, 1].
const maxUint64AsFloat = 1 << 64

type node struct {
	hash   uint64
	weight float64
}

// Ring is a weighted rendezvous hashing ring over node ids of type T and
// lookup keys of type K.
type Ring[T ringutil.Ordered, K any] struct {
	nodes     map[T]node
	order     []T
	nodeHash  ringutil.HashFunc[T]
	pointHash ringutil.HashFunc[K]
}

// New constructs an empty Ring.
func New[T ringutil.Ordered, K any](
	nodeHash ringutil.HashFunc[T],
	pointHash ringutil.HashFunc[K],
) *Ring[T, K] {
	return &Ring[T, K]{
		nodes:     make(map[T]node),
		nodeHash:  nodeHash,
		pointHash: pointHash,
	}
}

// InsertNode inserts or replaces a node's weight. weight must be
// non-negative and not NaN.
func (r *Ring[T, K]) InsertNode(id T, weight float64) error {
	if math.IsNaN(weight) || weight < 0 {
		return fmt.Errorf("wrendezvous: weight for %v is invalid: %w", id, ringutil.ErrInvalidWeight)
	}
	if _, exists := r.nodes[id]; !exists {
		r.order = append(r.order, id)
	}
	r.nodes[id] = node{hash: r.nodeHash(id), weight: weight}
	return nil
}

// RemoveNode removes a node.
func (r *Ring[T, K]) RemoveNode(id T) error {
	if _, exists := r.nodes[id]; !exists {
		return fmt.Errorf("wrendezvous: node %v: %w", id, ringutil.ErrUnknownNode)
	}
	delete(r.nodes, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// score computes a node's score against an already-hashed point.
func score(n node, pointHash uint64) float64 {
	combined := ringutil.Combine(n.hash, pointHash)
	u := float64(combined) / maxUint64AsFloat
	if combined == 0 {
		u = 1
	}
	return -n.weight / math.Log(u)
}

// GetNode returns the node with the highest score for point, ties broken
// by ascending id.
func (r *Ring[T, K]) GetNode(point K) (T, error) {
	var zero T
	if len(r.order) == 0 {
		return zero, fmt.Errorf("wrendezvous: %w", ringutil.ErrEmptyRing)
	}

	pointHash := r.pointHash(point)
	best := r.order[0]
	bestScore := score(r.nodes[best], pointHash)
	for _, id := range r.order[1:] {
		s := score(r.nodes[id], pointHash)
		if s > bestScore || (s == bestScore && id < best) {
			best, bestScore = id, s
		}
	}
	return best, nil
}

// NodeInfo describes a node as currently held by the ring, including its
// configured weight.
type NodeInfo[T ringutil.Ordered] struct {
	ID     T
	Weight float64
}

// Nodes returns every node currently in the ring with its weight, in
// insertion order.
func (r *Ring[T, K]) Nodes() []NodeInfo[T] {
	out := make([]NodeInfo[T], len(r.order))
	for i, id := range r.order {
		out[i] = NodeInfo[T]{ID: id, Weight: r.nodes[id].weight}
	}
	return out
}

// Weight returns the weight configured for id.
func (r *Ring[T, K]) Weight(id T) (float64, bool) {
	n, ok := r.nodes[id]
	return n.weight, ok
}

// Len returns the number of nodes in the ring.
func (r *Ring[T, K]) Len() int { return len(r.order) }

// IsEmpty reports whether the ring has no nodes.
func (r *Ring[T, K]) IsEmpty() bool { return len(r.order) == 0 }
