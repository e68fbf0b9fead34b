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

package carp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/asokolov365/hashring/lib/ringutil"
)

func newIntRing(t *testing.T, weights ...NodeWeight[int]) *Ring[int, string] {
	t.Helper()
	r, err := New[int, string](ringutil.HashReplica, ringutil.StringHash, weights...)
	require.NoError(t, err)
	return r
}

func TestRelativeWeightsSortedAndNormalized(t *testing.T) {
	t.Parallel()

	r := newIntRing(t,
		NodeWeight[int]{ID: 0, Weight: 0.4},
		NodeWeight[int]{ID: 1, Weight: 0.4},
		NodeWeight[int]{ID: 2, Weight: 0.2},
	)

	nodes := r.Nodes()
	require.Len(t, nodes, 3)

	ids := []int{nodes[0].ID, nodes[1].ID, nodes[2].ID}
	require.Equal(t, []int{2, 0, 1}, ids)

	require.InDelta(t, 0.7746, nodes[0].RelativeWeight, 1e-4)
	require.InDelta(t, 1.0, nodes[1].RelativeWeight, 1e-9)
	require.InDelta(t, 1.0, nodes[2].RelativeWeight, 1e-9)
}

func TestGetNodeEmptyRing(t *testing.T) {
	t.Parallel()

	r := newIntRing(t)
	_, err := r.GetNode("foo")
	require.ErrorIs(t, err, ringutil.ErrEmptyRing)
}

func TestInsertNodeNaNWeight(t *testing.T) {
	t.Parallel()

	r := newIntRing(t, NodeWeight[int]{ID: 0, Weight: 1.0})
	err := r.InsertNode(1, math.NaN())
	require.ErrorIs(t, err, ringutil.ErrInvalidWeight)
	require.Equal(t, 1, r.Len())
}

func TestNewRejectsNaNWeight(t *testing.T) {
	t.Parallel()

	_, err := New[int, string](ringutil.HashReplica, ringutil.StringHash,
		NodeWeight[int]{ID: 0, Weight: math.NaN()},
	)
	require.ErrorIs(t, err, ringutil.ErrInvalidWeight)
}

func TestDuplicateIDKeepsLastWeight(t *testing.T) {
	t.Parallel()

	r := newIntRing(t,
		NodeWeight[int]{ID: 0, Weight: 0.1},
		NodeWeight[int]{ID: 0, Weight: 0.9},
	)
	require.Equal(t, 1, r.Len())
	require.InDelta(t, 0.9, r.Nodes()[0].Weight, 1e-9)
}

func TestInsertRemoveRebalances(t *testing.T) {
	t.Parallel()

	r := newIntRing(t, NodeWeight[int]{ID: 0, Weight: 1.0})
	require.NoError(t, r.InsertNode(1, 1.0))
	require.Equal(t, 2, r.Len())

	for _, n := range r.Nodes() {
		require.InDelta(t, 1.0, n.RelativeWeight, 1e-9)
	}

	r.RemoveNode(0)
	require.Equal(t, 1, r.Len())
	require.False(t, r.IsEmpty())

	r.RemoveNode(1)
	require.True(t, r.IsEmpty())
}

func TestRemoveUnknownNodeIsNoop(t *testing.T) {
	t.Parallel()

	r := newIntRing(t, NodeWeight[int]{ID: 0, Weight: 1.0})
	r.RemoveNode(99)
	require.Equal(t, 1, r.Len())
}

func TestGetNodeDeterministic(t *testing.T) {
	t.Parallel()

	r := newIntRing(t,
		NodeWeight[int]{ID: 0, Weight: 1.0},
		NodeWeight[int]{ID: 1, Weight: 1.0},
		NodeWeight[int]{ID: 2, Weight: 1.0},
	)

	got, err := r.GetNode("some-key")
	require.NoError(t, err)

	got2, err := r.GetNode("some-key")
	require.NoError(t, err)
	require.Equal(t, got, got2)
}

func TestGetNodeDistributesAcrossNodes(t *testing.T) {
	t.Parallel()

	r := newIntRing(t,
		NodeWeight[int]{ID: 0, Weight: 1.0},
		NodeWeight[int]{ID: 1, Weight: 1.0},
		NodeWeight[int]{ID: 2, Weight: 1.0},
	)

	counts := make(map[int]int)
	for i := 0; i < 300; i++ {
		id, err := r.GetNode(string(rune('a' + (i % 26))))
		require.NoError(t, err)
		counts[id]++
	}
	require.Len(t, counts, 3)
}
