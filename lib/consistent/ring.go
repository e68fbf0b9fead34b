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

// Package consistent implements classic consistent hashing: every node
// owns a configurable number of replica points on a hash wheel, and a key
// is routed to the node owning the first replica at or after the key's
// hash position.
package consistent

import (
	"fmt"

	"github.com/asokolov365/hashring/lib/ringutil"
)

// Ring is a consistent hashing ring over node ids of type T and lookup
// keys of type K.
type Ring[T ringutil.Ordered, K any] struct {
	wheel     *ringutil.Wheel[T]
	replicas  map[T]int
	order     []T // insertion order, for Nodes()
	nodeHash  ringutil.HashFunc[T]
	pointHash ringutil.HashFunc[K]
}

// New constructs an empty Ring.
func New[T ringutil.Ordered, K any](
	nodeHash ringutil.HashFunc[T],
	pointHash ringutil.HashFunc[K],
) *Ring[T, K] {
	return &Ring[T, K]{
		wheel:     ringutil.NewWheel[T](),
		replicas:  make(map[T]int),
		nodeHash:  nodeHash,
		pointHash: pointHash,
	}
}

// replicaHash returns the wheel position of the r'th replica of id.
func (r *Ring[T, K]) replicaHash(id T, replica int) uint64 {
	return ringutil.Combine(r.nodeHash(id), ringutil.HashReplica(replica))
}

// InsertNode inserts a node with the given replica count, or replaces an
// existing node's replica count. replicas must be positive.
func (r *Ring[T, K]) InsertNode(id T, replicas int) error {
	if replicas <= 0 {
		return fmt.Errorf("consistent: replicas must be positive: %w", ringutil.ErrInvalidConfig)
	}
	if old, exists := r.replicas[id]; exists {
		for i := 0; i < old; i++ {
			r.wheel.Delete(r.replicaHash(id, i))
		}
	} else {
		r.order = append(r.order, id)
	}
	for i := 0; i < replicas; i++ {
		r.wheel.Set(r.replicaHash(id, i), id)
	}
	r.replicas[id] = replicas
	return nil
}

// RemoveNode removes a node and all of its replicas.
func (r *Ring[T, K]) RemoveNode(id T) error {
	replicas, exists := r.replicas[id]
	if !exists {
		return fmt.Errorf("consistent: node %v: %w", id, ringutil.ErrUnknownNode)
	}
	for i := 0; i < replicas; i++ {
		r.wheel.Delete(r.replicaHash(id, i))
	}
	delete(r.replicas, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// GetNode returns the node owning the given point: the node whose replica
// is first found at or after the point's hash, wrapping around the wheel.
func (r *Ring[T, K]) GetNode(point K) (T, error) {
	var zero T
	if r.wheel.Len() == 0 {
		return zero, fmt.Errorf("consistent: %w", ringutil.ErrEmptyRing)
	}
	_, id, _ := r.wheel.Ceil(r.pointHash(point))
	return id, nil
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
		out[i] = NodeInfo[T]{ID: id, Replicas: r.replicas[id]}
	}
	return out
}

// Replicas returns the replica count configured for id.
func (r *Ring[T, K]) Replicas(id T) (int, bool) {
	n, ok := r.replicas[id]
	return n, ok
}

// Len returns the number of distinct nodes in the ring.
func (r *Ring[T, K]) Len() int { return len(r.order) }

// IsEmpty reports whether the ring has no nodes.
func (r *Ring[T, K]) IsEmpty() bool { return len(r.order) == 0 }
