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

package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/asokolov365/hashring/lib/carp"
	"github.com/asokolov365/hashring/lib/consistent"
	"github.com/asokolov365/hashring/lib/jump"
	"github.com/asokolov365/hashring/lib/maglev"
	"github.com/asokolov365/hashring/lib/mpc"
	"github.com/asokolov365/hashring/lib/rendezvous"
	"github.com/asokolov365/hashring/lib/ringutil"
	"github.com/asokolov365/hashring/lib/wrendezvous"
)

// algoNames is the fixed display and execution order of the benchmarked
// algorithms.
var algoNames = []string{
	"carp",
	"consistent",
	"jump",
	"maglev",
	"mpc",
	"rendezvous",
	"wrendezvous",
}

// Report holds one algorithm's routing distribution over the sampled keys.
type Report struct {
	Algo    string
	Counts  map[string]int
	Elapsed time.Duration
}

// runAll samples numKeys synthetic keys through every algorithm in
// algoNames, concurrently, and returns one Report per algorithm in
// algoNames order.
func runAll(ctx context.Context, nodes []NodeSpec, numKeys int) ([]Report, error) {
	reports := make([]Report, len(algoNames))

	g, _ := errgroup.WithContext(ctx)
	for i, name := range algoNames {
		i, name := i, name
		g.Go(func() error {
			rep, err := runOne(name, nodes, numKeys)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			reports[i] = rep
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

func runOne(algo string, nodes []NodeSpec, numKeys int) (Report, error) {
	start := time.Now()
	counts := make(map[string]int, len(nodes))
	for _, n := range nodes {
		counts[n.Name] = 0
	}

	var getNode func(key string) (string, error)

	switch algo {
	case "carp":
		weights := make([]carp.NodeWeight[string], len(nodes))
		for i, n := range nodes {
			weights[i] = carp.NodeWeight[string]{ID: n.Name, Weight: n.Weight}
		}
		r, err := carp.New[string, string](ringutil.StringHash, ringutil.StringHash, weights...)
		if err != nil {
			return Report{}, err
		}
		getNode = r.GetNode

	case "consistent":
		r := consistent.New[string, string](ringutil.StringHash, ringutil.StringHash)
		for _, n := range nodes {
			if err := r.InsertNode(n.Name, 128); err != nil {
				return Report{}, err
			}
		}
		getNode = r.GetNode

	case "jump":
		r := jump.New[string](ringutil.StringHash)
		for range nodes {
			r.InsertNode()
		}
		getNode = func(key string) (string, error) {
			idx, err := r.GetNode(key)
			if err != nil {
				return "", err
			}
			return nodes[idx].Name, nil
		}

	case "maglev":
		names := make([]string, len(nodes))
		for i, n := range nodes {
			names[i] = n.Name
		}
		r, err := maglev.New[string, string](func(s string) []byte { return []byte(s) }, ringutil.StringHash, names)
		if err != nil {
			return Report{}, err
		}
		getNode = r.GetNode

	case "mpc":
		r, err := mpc.New[string, string](ringutil.StringHash, func(s string) []byte { return []byte(s) }, 21)
		if err != nil {
			return Report{}, err
		}
		for _, n := range nodes {
			r.InsertNode(n.Name)
		}
		getNode = r.GetNode

	case "rendezvous":
		r := rendezvous.New[string, string](ringutil.StringHash, ringutil.StringHash)
		for _, n := range nodes {
			if err := r.InsertNode(n.Name, 4); err != nil {
				return Report{}, err
			}
		}
		getNode = r.GetNode

	case "wrendezvous":
		r := wrendezvous.New[string, string](ringutil.StringHash, ringutil.StringHash)
		for _, n := range nodes {
			if err := r.InsertNode(n.Name, n.Weight); err != nil {
				return Report{}, err
			}
		}
		getNode = r.GetNode

	default:
		return Report{}, fmt.Errorf("unknown algorithm %q", algo)
	}

	for i := 0; i < numKeys; i++ {
		id, err := getNode(strconv.Itoa(i))
		if err != nil {
			return Report{}, err
		}
		counts[id]++
	}

	return Report{Algo: algo, Counts: counts, Elapsed: time.Since(start)}, nil
}

// printReports renders a distribution table: expected share vs. observed
// share per node, per algorithm.
func printReports(reports []Report, nodes []NodeSpec, numKeys int) {
	totalWeight := 0.0
	for _, n := range nodes {
		totalWeight += n.Weight
	}

	for _, rep := range reports {
		fmt.Printf("== %s (%s) ==\n", rep.Algo, rep.Elapsed)
		for _, n := range nodes {
			expected := 100 * n.Weight / totalWeight
			actual := 100 * float64(rep.Counts[n.Name]) / float64(numKeys)
			fmt.Printf("  %-16s expected %6.2f%%  actual %6.2f%%\n", n.Name, expected, actual)
		}
	}
}
