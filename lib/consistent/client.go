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

package consistent

import (
	"fmt"
	"sort"

	"github.com/asokolov365/hashring/lib/ringutil"
)

// Client wraps a Ring and tracks the owner of every point explicitly
// inserted into it, so that InsertNode/RemoveNode only reassign the
// points whose owner actually changes instead of recomputing every
// tracked point's owner from scratch.
type Client[T ringutil.Ordered, K any] struct {
	ring   *Ring[T, K]
	points *ringutil.Wheel[K]
	owner  map[uint64]T
}

// NewClient wraps ring with point-tracking bookkeeping.
func NewClient[T ringutil.Ordered, K any](ring *Ring[T, K]) *Client[T, K] {
	return &Client[T, K]{
		ring:   ring,
		points: ringutil.NewWheel[K](),
		owner:  make(map[uint64]T),
	}
}

// Insert starts tracking point and returns the node it currently maps to.
func (c *Client[T, K]) Insert(point K) (T, error) {
	var zero T
	id, err := c.ring.GetNode(point)
	if err != nil {
		return zero, err
	}
	h := c.ring.pointHash(point)
	c.points.Set(h, point)
	c.owner[h] = id
	return id, nil
}

// Remove stops tracking point. It is a no-op if point was not tracked.
func (c *Client[T, K]) Remove(point K) {
	h := c.ring.pointHash(point)
	c.points.Delete(h)
	delete(c.owner, h)
}

// GetNode returns the node owning point, using the tracked owner if point
// is tracked and otherwise delegating to the underlying ring.
func (c *Client[T, K]) GetNode(point K) (T, error) {
	h := c.ring.pointHash(point)
	if id, ok := c.owner[h]; ok {
		return id, nil
	}
	return c.ring.GetNode(point)
}

// arcPoints returns the subset of sortedKeys lying in the arc (lo, hi],
// wrapping around the wheel when lo >= hi.
func arcPoints(sortedKeys []uint64, lo, hi uint64) []uint64 {
	if lo < hi {
		i := sort.Search(len(sortedKeys), func(i int) bool { return sortedKeys[i] > lo })
		j := sort.Search(len(sortedKeys), func(i int) bool { return sortedKeys[i] > hi })
		return sortedKeys[i:j]
	}
	j := sort.Search(len(sortedKeys), func(i int) bool { return sortedKeys[i] > hi })
	i := sort.Search(len(sortedKeys), func(i int) bool { return sortedKeys[i] > lo })
	out := make([]uint64, 0, j+(len(sortedKeys)-i))
	out = append(out, sortedKeys[:j]...)
	out = append(out, sortedKeys[i:]...)
	return out
}

// predecessor returns the largest key in sortedKeys strictly less than
// hash, wrapping around to the greatest key if none is.
func predecessor(sortedKeys []uint64, hash uint64) uint64 {
	idx := sort.Search(len(sortedKeys), func(i int) bool { return sortedKeys[i] >= hash })
	if idx == 0 {
		return sortedKeys[len(sortedKeys)-1]
	}
	return sortedKeys[idx-1]
}

// InsertNode inserts or replaces a node, reassigning only the tracked
// points whose owning arc changes.
func (c *Client[T, K]) InsertNode(id T, replicas int) error {
	if _, exists := c.ring.replicas[id]; exists {
		if c.ring.Len() == 1 {
			// id already owns every tracked point and still will afterwards.
			return c.ring.InsertNode(id, replicas)
		}
		if err := c.RemoveNode(id); err != nil {
			return err
		}
	}

	oldKeys := append([]uint64(nil), c.ring.wheel.Keys()...)

	if err := c.ring.InsertNode(id, replicas); err != nil {
		return err
	}

	pointKeys := c.points.Keys()

	if len(oldKeys) == 0 {
		for _, h := range pointKeys {
			c.owner[h] = id
		}
		return nil
	}

	for i := 0; i < replicas; i++ {
		h := c.ring.replicaHash(id, i)
		pred := predecessor(oldKeys, h)
		for _, ph := range arcPoints(pointKeys, pred, h) {
			c.owner[ph] = id
		}
	}
	return nil
}

// RemoveNode removes a node, reassigning every point it owned to the node
// that now owns that arc. Removing the last remaining node is rejected
// with ErrEmptyRingAfterRemoval, leaving the ring and tracked points
// untouched.
func (c *Client[T, K]) RemoveNode(id T) error {
	replicas, exists := c.ring.replicas[id]
	if !exists {
		return fmt.Errorf("consistent: node %v: %w", id, ringutil.ErrUnknownNode)
	}
	if c.ring.Len() == 1 {
		return fmt.Errorf("consistent: removing node %v: %w", id, ringutil.ErrEmptyRingAfterRemoval)
	}

	oldKeys := append([]uint64(nil), c.ring.wheel.Keys()...)
	removedHashes := make([]uint64, replicas)
	for i := 0; i < replicas; i++ {
		removedHashes[i] = c.ring.replicaHash(id, i)
	}

	if err := c.ring.RemoveNode(id); err != nil {
		return err
	}

	pointKeys := c.points.Keys()

	for _, h := range removedHashes {
		pred := predecessor(oldKeys, h)
		_, newOwner, ok := c.ring.wheel.Ceil(h)
		if !ok {
			continue
		}
		for _, ph := range arcPoints(pointKeys, pred, h) {
			c.owner[ph] = newOwner
		}
	}
	return nil
}

// Len returns the number of points currently tracked.
func (c *Client[T, K]) Len() int { return c.points.Len() }

// Points returns every tracked point.
func (c *Client[T, K]) Points() []K {
	keys := c.points.Keys()
	out := make([]K, 0, len(keys))
	for _, h := range keys {
		v, _ := c.points.Get(h)
		out = append(out, v)
	}
	return out
}

// NodePoints pairs a node with the tracked points it currently owns.
type NodePoints[T ringutil.Ordered, K any] struct {
	Node   T
	Points []K
}

// Iter groups every tracked point by its current owner, in ascending
// point-hash order within each group. It mirrors the reference Client's
// iter(), which yields (node, points) pairs instead of the single
// point-at-a-time view GetNode gives.
func (c *Client[T, K]) Iter() []NodePoints[T, K] {
	byOwner := make(map[T][]K)
	var order []T
	seen := make(map[T]bool)

	for _, h := range c.points.Keys() {
		v, _ := c.points.Get(h)
		owner := c.owner[h]
		if !seen[owner] {
			seen[owner] = true
			order = append(order, owner)
		}
		byOwner[owner] = append(byOwner[owner], v)
	}

	out := make([]NodePoints[T, K], len(order))
	for i, id := range order {
		out[i] = NodePoints[T, K]{Node: id, Points: byOwner[id]}
	}
	return out
}
