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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/asokolov365/hashring/lib/ringutil"
)

func newStringRing() *Ring[string, string] {
	return New[string, string](ringutil.StringHash, ringutil.StringHash)
}

func TestGetNodeEmptyRing(t *testing.T) {
	t.Parallel()

	r := newStringRing()
	_, err := r.GetNode("foo")
	require.ErrorIs(t, err, ringutil.ErrEmptyRing)
}

func TestInsertNodeRejectsNonPositiveReplicas(t *testing.T) {
	t.Parallel()

	r := newStringRing()
	require.ErrorIs(t, r.InsertNode("a", 0), ringutil.ErrInvalidConfig)
	require.ErrorIs(t, r.InsertNode("a", -1), ringutil.ErrInvalidConfig)
}

func TestRemoveUnknownNode(t *testing.T) {
	t.Parallel()

	r := newStringRing()
	require.NoError(t, r.InsertNode("a", 4))
	require.ErrorIs(t, r.RemoveNode("b"), ringutil.ErrUnknownNode)
}

func TestGetNodeDeterministicAndStable(t *testing.T) {
	t.Parallel()

	r := newStringRing()
	require.NoError(t, r.InsertNode("a", 16))
	require.NoError(t, r.InsertNode("b", 16))
	require.NoError(t, r.InsertNode("c", 16))

	got, err := r.GetNode("some-key")
	require.NoError(t, err)
	got2, err := r.GetNode("some-key")
	require.NoError(t, err)
	require.Equal(t, got, got2)
}

func TestBasicRoutingAndDistribution(t *testing.T) {
	t.Parallel()

	r := newStringRing()
	require.NoError(t, r.InsertNode("a", 64))
	require.NoError(t, r.InsertNode("b", 64))
	require.NoError(t, r.InsertNode("c", 64))

	counts := make(map[string]int)
	for i := 0; i < 3000; i++ {
		id, err := r.GetNode(keyFor(i))
		require.NoError(t, err)
		counts[id]++
	}
	require.Len(t, counts, 3)
	for _, c := range counts {
		require.Greater(t, c, 0)
	}
}

func TestRemoveNodeRemovesAllReplicas(t *testing.T) {
	t.Parallel()

	r := newStringRing()
	require.NoError(t, r.InsertNode("a", 8))
	require.NoError(t, r.InsertNode("b", 8))
	require.Equal(t, 16, r.wheel.Len())

	require.NoError(t, r.RemoveNode("a"))
	require.Equal(t, 8, r.wheel.Len())
	require.Equal(t, 1, r.Len())
}

func keyFor(i int) string {
	return string(rune('a'+i%26)) + string(rune('A'+(i/26)%26))
}

func TestNodesReportsReplicaCounts(t *testing.T) {
	t.Parallel()

	r := newStringRing()
	require.NoError(t, r.InsertNode("a", 8))
	require.NoError(t, r.InsertNode("b", 16))

	byID := make(map[string]int)
	for _, n := range r.Nodes() {
		byID[n.ID] = n.Replicas
	}
	require.Equal(t, map[string]int{"a": 8, "b": 16}, byID)
}
