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
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// NodeSpec describes one node of the benchmarked ring. Weight is ignored
// by the algorithms that don't use it (Consistent, Jump, Maglev, MPC,
// Rendezvous).
type NodeSpec struct {
	Name   string  `yaml:"name"`
	Weight float64 `yaml:"weight"`
}

// nodesFile is the on-disk shape of the --nodes YAML file.
type nodesFile struct {
	Nodes []NodeSpec `yaml:"nodes"`
}

// LoadNodes reads and validates a node list from a YAML file.
func LoadNodes(path string) ([]NodeSpec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read nodes file %q: %w", path, err)
	}

	var parsed nodesFile
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse nodes file %q: %w", path, err)
	}

	if len(parsed.Nodes) == 0 {
		return nil, fmt.Errorf("nodes file %q defines no nodes", path)
	}

	for i, n := range parsed.Nodes {
		if n.Name == "" {
			return nil, fmt.Errorf("node at index %d has an empty name", i)
		}
		if n.Weight == 0 {
			parsed.Nodes[i].Weight = 1
		}
	}

	return parsed.Nodes, nil
}
