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

package maglev

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/asokolov365/hashring/lib/ringutil"
)

func idBytes(id int) []byte {
	return []byte{byte(id), byte(id >> 8), byte(id >> 16), byte(id >> 24)}
}

func newIntRing(t *testing.T, nodes []int, opts ...Option) *Ring[int, string] {
	t.Helper()
	r, err := New[int, string](idBytes, ringutil.StringHash, nodes, opts...)
	require.NoError(t, err)
	return r
}

func TestNextPrime(t *testing.T) {
	t.Parallel()

	require.Equal(t, int64(2), nextPrime(0))
	require.Equal(t, int64(2), nextPrime(2))
	require.Equal(t, int64(307), nextPrime(300))
	require.Equal(t, int64(101), nextPrime(100))
}

func TestNewRejectsEmptyNodeList(t *testing.T) {
	t.Parallel()

	_, err := New[int, string](idBytes, ringutil.StringHash, nil)
	require.ErrorIs(t, err, ringutil.ErrInvalidConfig)

	_, err = New[int, string](idBytes, ringutil.StringHash, []int{})
	require.ErrorIs(t, err, ringutil.ErrInvalidConfig)
}

func TestCapacityForThreeNodes(t *testing.T) {
	t.Parallel()

	r := newIntRing(t, []int{0, 1, 2})
	require.Equal(t, int64(307), r.Capacity())
}

func TestWithCapacityHintOverridesDefault(t *testing.T) {
	t.Parallel()

	r := newIntRing(t, []int{0, 1, 2}, WithCapacityHint(1000))
	require.Equal(t, int64(1009), r.Capacity())
}

func TestCapacityPreservedAcrossMembershipChanges(t *testing.T) {
	t.Parallel()

	r := newIntRing(t, []int{0, 1, 2})
	want := r.Capacity()

	r.InsertNode(3)
	require.Equal(t, want, r.Capacity())

	require.NoError(t, r.RemoveNode(0))
	require.Equal(t, want, r.Capacity())
}

func TestRemoveRebuildKeepsMostAssignmentsStable(t *testing.T) {
	t.Parallel()

	r := newIntRing(t, []int{0, 1, 2, 3, 4})
	capacity := r.Capacity()

	keys := make([]string, 2000)
	before := make([]int, len(keys))
	for i := range keys {
		keys[i] = keyFor(i)
		owner, err := r.GetNode(keys[i])
		require.NoError(t, err)
		before[i] = owner
	}

	require.NoError(t, r.RemoveNode(4))
	require.Equal(t, capacity, r.Capacity())

	changed := 0
	for i, key := range keys {
		owner, err := r.GetNode(key)
		require.NoError(t, err)
		if owner != before[i] && before[i] != 4 {
			changed++
		}
	}
	// Keys that were not owned by the removed node should rarely move: a
	// fixed-capacity Maglev rebuild only disrupts a small fraction of the
	// remaining slots, bounded by roughly 1/capacity per affected entry.
	require.Less(t, changed, len(keys)/10)
}

func TestGetNodeEmptyAfterAllRemoved(t *testing.T) {
	t.Parallel()

	r := newIntRing(t, []int{0})
	require.NoError(t, r.RemoveNode(0))
	_, err := r.GetNode("foo")
	require.ErrorIs(t, err, ringutil.ErrEmptyRing)
}

func TestRemoveUnknownNode(t *testing.T) {
	t.Parallel()

	r := newIntRing(t, []int{0})
	require.ErrorIs(t, r.RemoveNode(99), ringutil.ErrUnknownNode)
}

func TestEveryTableSlotAssigned(t *testing.T) {
	t.Parallel()

	r := newIntRing(t, []int{0, 1, 2, 3, 4})
	for _, slot := range r.table {
		require.GreaterOrEqual(t, slot, 0)
		require.Less(t, slot, len(r.nodes))
	}
}

func TestGetNodeDeterministicAndDistributes(t *testing.T) {
	t.Parallel()

	r := newIntRing(t, []int{0, 1, 2, 3})

	counts := make(map[int]int)
	for i := 0; i < 2000; i++ {
		id, err := r.GetNode(keyFor(i))
		require.NoError(t, err)
		counts[id]++
	}
	require.Len(t, counts, 4)

	a, err := r.GetNode("stable-key")
	require.NoError(t, err)
	b, err := r.GetNode("stable-key")
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestNodesReturnsInsertionOrder(t *testing.T) {
	t.Parallel()

	r := newIntRing(t, []int{0, 1, 2})
	require.Equal(t, []int{0, 1, 2}, r.Nodes())

	r.InsertNode(3)
	require.Equal(t, []int{0, 1, 2, 3}, r.Nodes())
}

func keyFor(i int) string {
	return string(rune('a'+i%26)) + string(rune('A'+(i/26)%26)) + string(rune('0'+(i/676)%10))
}
