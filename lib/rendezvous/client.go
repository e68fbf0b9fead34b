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

package rendezvous

import (
	"fmt"

	"github.com/asokolov365/hashring/lib/ringutil"
)

// Client wraps a Ring and tracks, for every point explicitly inserted
// into it, the score it received from every node. This lets InsertNode
// update each tracked point's owner in O(1) per point, and RemoveNode pick
// a new owner from the cached scores, instead of rehashing the point
// against every node in the ring.
type Client[T ringutil.Ordered, K any] struct {
	ring   *Ring[T, K]
	points *ringutil.Wheel[K]
	scores map[uint64]map[T]uint64
	owner  map[uint64]T
}

// NewClient wraps ring with point-tracking bookkeeping.
func NewClient[T ringutil.Ordered, K any](ring *Ring[T, K]) *Client[T, K] {
	return &Client[T, K]{
		ring:   ring,
		points: ringutil.NewWheel[K](),
		scores: make(map[uint64]map[T]uint64),
		owner:  make(map[uint64]T),
	}
}

// Insert starts tracking point, scoring it against every node in the
// ring, and returns its current owner.
func (c *Client[T, K]) Insert(point K) (T, error) {
	var zero T
	if c.ring.IsEmpty() {
		return zero, fmt.Errorf("rendezvous: %w", ringutil.ErrEmptyRing)
	}

	h := c.ring.pointHash(point)
	sc := make(map[T]uint64, len(c.ring.order))

	var best T
	var bestScore uint64
	first := true
	for _, id := range c.ring.order {
		s := c.ring.scoreFor(id, h)
		sc[id] = s
		if first || s > bestScore || (s == bestScore && id < best) {
			best, bestScore, first = id, s, false
		}
	}

	c.points.Set(h, point)
	c.scores[h] = sc
	c.owner[h] = best
	return best, nil
}

// Remove stops tracking point. It is a no-op if point was not tracked.
func (c *Client[T, K]) Remove(point K) {
	h := c.ring.pointHash(point)
	c.points.Delete(h)
	delete(c.scores, h)
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

// InsertNode inserts or replaces a node, scoring every tracked point
// against it and promoting it to owner wherever it wins.
func (c *Client[T, K]) InsertNode(id T, replicas int) error {
	if err := c.ring.InsertNode(id, replicas); err != nil {
		return err
	}

	for h, sc := range c.scores {
		s := c.ring.scoreFor(id, h)
		sc[id] = s

		cur := c.owner[h]
		if cur == id {
			// id was replaced and its score may have dropped: pick the best
			// node again from the cached scores.
			for nid, ns := range sc {
				if ns > sc[cur] || (ns == sc[cur] && nid < cur) {
					cur = nid
				}
			}
			c.owner[h] = cur
			continue
		}
		curScore := sc[cur]
		if s > curScore || (s == curScore && id < cur) {
			c.owner[h] = id
		}
	}
	return nil
}

// RemoveNode removes a node, recomputing the owner of every tracked point
// it used to own from that point's remaining cached scores. Removing the
// last remaining node is rejected with ErrEmptyRingAfterRemoval, leaving
// the ring and tracked points untouched.
func (c *Client[T, K]) RemoveNode(id T) error {
	if _, exists := c.ring.replicaHashes[id]; !exists {
		return fmt.Errorf("rendezvous: node %v: %w", id, ringutil.ErrUnknownNode)
	}
	if c.ring.Len() == 1 {
		return fmt.Errorf("rendezvous: removing node %v: %w", id, ringutil.ErrEmptyRingAfterRemoval)
	}

	if err := c.ring.RemoveNode(id); err != nil {
		return err
	}

	for h, sc := range c.scores {
		delete(sc, id)
		if c.owner[h] != id {
			continue
		}

		var best T
		var bestScore uint64
		first := true
		for nid, s := range sc {
			if first || s > bestScore || (s == bestScore && nid < best) {
				best, bestScore, first = nid, s, false
			}
		}
		c.owner[h] = best
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
