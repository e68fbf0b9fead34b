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

// Package carp implements a hashing ring using the Cache Array Routing
// Protocol. CARP computes a "relative weight" per node so that the
// expected share of points routed to a node is proportional to its weight.
package carp

import (
	"fmt"
	"math"
	"sort"

	"github.com/asokolov365/hashring/lib/ringutil"
)

// floatEpsilon is the tolerance used when comparing weights/scores for
// equality, matching the reference implementation's use of f64::EPSILON
// when breaking ties between otherwise-equal weights or scores.
const floatEpsilon = 2.220446049250313e-16

// NodeWeight is an (id, weight) pair used to construct and mutate a Ring.
// Weight must be non-negative and finite; a weight of 0 means the node is
// never chosen.
type NodeWeight[T ringutil.Ordered] struct {
	ID     T
	Weight float64
}

// NodeInfo describes a node as currently held by the ring, including its
// computed relative weight.
type NodeInfo[T ringutil.Ordered] struct {
	ID             T
	Weight         float64
	RelativeWeight float64
}

type node[T ringutil.Ordered] struct {
	id             T
	hash           uint64
	weight         float64
	relativeWeight float64
}

// Ring is a CARP hashing ring over node ids of type T and lookup keys of
// type K.
type Ring[T ringutil.Ordered, K any] struct {
	nodes     []node[T]
	nodeHash  ringutil.HashFunc[T]
	pointHash ringutil.HashFunc[K]
}

// New constructs a Ring from an initial set of weighted nodes. Duplicate
// ids keep the last weight supplied. A NaN weight fails with
// ErrInvalidWeight.
func New[T ringutil.Ordered, K any](
	nodeHash ringutil.HashFunc[T],
	pointHash ringutil.HashFunc[K],
	weights ...NodeWeight[T],
) (*Ring[T, K], error) {
	r := &Ring[T, K]{
		nodeHash:  nodeHash,
		pointHash: pointHash,
	}

	byID := make(map[T]float64, len(weights))
	order := make([]T, 0, len(weights))
	for _, nw := range weights {
		if math.IsNaN(nw.Weight) {
			return nil, fmt.Errorf("carp: weight for %v is NaN: %w", nw.ID, ringutil.ErrInvalidWeight)
		}
		if _, exists := byID[nw.ID]; !exists {
			order = append(order, nw.ID)
		}
		byID[nw.ID] = nw.Weight
	}

	for _, id := range order {
		r.nodes = append(r.nodes, node[T]{id: id, hash: nodeHash(id), weight: byID[id]})
	}

	r.sortNodes()
	r.rebalance()
	return r, nil
}

func (r *Ring[T, K]) sortNodes() {
	sort.Slice(r.nodes, func(i, j int) bool {
		n, m := r.nodes[i], r.nodes[j]
		if math.Abs(n.weight-m.weight) < floatEpsilon {
			return n.id < m.id
		}
		return n.weight < m.weight
	})
}

// rebalance recomputes every node's relative weight following the CARP
// recurrence, then normalizes so the maximum relative weight is 1.0.
func (r *Ring[T, K]) rebalance() {
	n := float64(len(r.nodes))
	if n == 0 {
		return
	}

	product := 1.0
	for i := range r.nodes {
		index := float64(i)
		var res float64
		if i == 0 {
			res = math.Pow(n*r.nodes[i].weight, 1/n)
		} else {
			res = (n-index)*(r.nodes[i].weight-r.nodes[i-1].weight)/product +
				math.Pow(r.nodes[i-1].relativeWeight, n-index)
			res = math.Pow(res, 1/(n-index))
		}
		product *= res
		r.nodes[i].relativeWeight = res
	}

	max := r.nodes[len(r.nodes)-1].relativeWeight
	if max != 0 {
		for i := range r.nodes {
			r.nodes[i].relativeWeight /= max
		}
	}
}

// InsertNode inserts or replaces a node's weight. A NaN weight fails with
// ErrInvalidWeight.
func (r *Ring[T, K]) InsertNode(id T, weight float64) error {
	if math.IsNaN(weight) {
		return fmt.Errorf("carp: weight for %v is NaN: %w", id, ringutil.ErrInvalidWeight)
	}

	newNode := node[T]{id: id, hash: r.nodeHash(id), weight: weight}
	replaced := false
	for i := range r.nodes {
		if r.nodes[i].id == id {
			r.nodes[i] = newNode
			replaced = true
			break
		}
	}
	if !replaced {
		r.nodes = append(r.nodes, newNode)
	}

	r.sortNodes()
	r.rebalance()
	return nil
}

// RemoveNode removes a node, if present, and rebalances.
func (r *Ring[T, K]) RemoveNode(id T) {
	for i := range r.nodes {
		if r.nodes[i].id == id {
			r.nodes = append(r.nodes[:i], r.nodes[i+1:]...)
			r.rebalance()
			return
		}
	}
}

// GetNode returns the node that a point hashes to. The winning node is the
// one maximizing combine(nodeHash, pointHash) * relativeWeight, with ties
// (within floatEpsilon) broken by ascending id.
func (r *Ring[T, K]) GetNode(point K) (T, error) {
	var zero T
	if len(r.nodes) == 0 {
		return zero, fmt.Errorf("carp: %w", ringutil.ErrEmptyRing)
	}

	pointHash := r.pointHash(point)

	best := r.nodes[0]
	bestScore := float64(ringutil.Combine(best.hash, pointHash)) * best.relativeWeight
	for _, n := range r.nodes[1:] {
		score := float64(ringutil.Combine(n.hash, pointHash)) * n.relativeWeight
		if score > bestScore+floatEpsilon || (math.Abs(score-bestScore) <= floatEpsilon && n.id < best.id) {
			best, bestScore = n, score
		}
	}
	return best.id, nil
}

// Len returns the number of nodes in the ring.
func (r *Ring[T, K]) Len() int { return len(r.nodes) }

// IsEmpty reports whether the ring has no nodes.
func (r *Ring[T, K]) IsEmpty() bool { return len(r.nodes) == 0 }

// Nodes returns the ring's nodes sorted by (weight, id) ascending, the same
// order the ring maintains internally.
func (r *Ring[T, K]) Nodes() []NodeInfo[T] {
	out := make([]NodeInfo[T], len(r.nodes))
	for i, n := range r.nodes {
		out[i] = NodeInfo[T]{ID: n.id, Weight: n.weight, RelativeWeight: n.relativeWeight}
	}
	return out
}
