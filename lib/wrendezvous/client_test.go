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

package wrendezvous

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/asokolov365/hashring/lib/ringutil"
)

func TestClientTracksMatchRing(t *testing.T) {
	t.Parallel()

	r := newStringRing()
	require.NoError(t, r.InsertNode("a", 1))
	require.NoError(t, r.InsertNode("b", 2))

	c := NewClient[string, string](r)

	keys := make([]string, 150)
	for i := range keys {
		keys[i] = keyFor(i)
		_, err := c.Insert(keys[i])
		require.NoError(t, err)
	}

	for _, k := range keys {
		want, err := r.GetNode(k)
		require.NoError(t, err)
		got, err := c.GetNode(k)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestClientInsertNodeKeepsInvariant(t *testing.T) {
	t.Parallel()

	r := newStringRing()
	require.NoError(t, r.InsertNode("a", 1))
	require.NoError(t, r.InsertNode("b", 3))

	c := NewClient[string, string](r)

	keys := make([]string, 200)
	for i := range keys {
		keys[i] = keyFor(i)
		_, err := c.Insert(keys[i])
		require.NoError(t, err)
	}

	require.NoError(t, c.InsertNode("c", 2))

	for _, k := range keys {
		want, err := r.GetNode(k)
		require.NoError(t, err)
		got, err := c.GetNode(k)
		require.NoError(t, err)
		require.Equal(t, want, got, "mismatch for key %q after InsertNode", k)
	}
}

func TestClientRemoveNodeKeepsInvariant(t *testing.T) {
	t.Parallel()

	r := newStringRing()
	require.NoError(t, r.InsertNode("a", 1))
	require.NoError(t, r.InsertNode("b", 2))
	require.NoError(t, r.InsertNode("c", 3))

	c := NewClient[string, string](r)

	keys := make([]string, 200)
	for i := range keys {
		keys[i] = keyFor(i)
		_, err := c.Insert(keys[i])
		require.NoError(t, err)
	}

	require.NoError(t, c.RemoveNode("b"))

	for _, k := range keys {
		want, err := r.GetNode(k)
		require.NoError(t, err)
		got, err := c.GetNode(k)
		require.NoError(t, err)
		require.Equal(t, want, got, "mismatch for key %q after RemoveNode", k)
	}
}

func TestClientRemoveLastNodeRejected(t *testing.T) {
	t.Parallel()

	r := newStringRing()
	require.NoError(t, r.InsertNode("a", 1))
	c := NewClient[string, string](r)

	err := c.RemoveNode("a")
	require.ErrorIs(t, err, ringutil.ErrEmptyRingAfterRemoval)
	require.Equal(t, 1, r.Len())
}

func TestClientIterGroupsPointsByOwner(t *testing.T) {
	t.Parallel()

	r := newStringRing()
	require.NoError(t, r.InsertNode("a", 1))
	require.NoError(t, r.InsertNode("b", 2))
	c := NewClient[string, string](r)

	keys := make([]string, 100)
	for i := range keys {
		keys[i] = keyFor(i)
		_, err := c.Insert(keys[i])
		require.NoError(t, err)
	}

	groups := c.Iter()
	total := 0
	for _, g := range groups {
		for _, p := range g.Points {
			owner, err := c.GetNode(p)
			require.NoError(t, err)
			require.Equal(t, g.Node, owner)
		}
		total += len(g.Points)
	}
	require.Equal(t, len(keys), total)
}
