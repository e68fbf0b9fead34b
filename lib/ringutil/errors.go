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

// Package ringutil implements shared hashing and error primitives used by
// every hash-ring algorithm in this module.
package ringutil

import "errors"

// Sentinel errors surfaced by the ring and client implementations. Callers
// should compare with errors.Is, since every returned error wraps one of
// these with extra context via fmt.Errorf("...: %w", ...).
var (
	// ErrEmptyRing is returned by GetNode/point operations on a ring or
	// client with zero nodes.
	ErrEmptyRing = errors.New("hashring: ring is empty")

	// ErrEmptyRingAfterRemoval is returned by a tracking client's
	// RemoveNode when doing so would leave the ring empty, whether or not
	// any points are tracked.
	ErrEmptyRingAfterRemoval = errors.New("hashring: ring would be empty after removal")

	// ErrUnknownNode is returned by RemoveNode for a node id that isn't
	// present. CARP's RemoveNode returns no error and ignores unknown ids.
	ErrUnknownNode = errors.New("hashring: unknown node")

	// ErrInvalidConfig is returned for structurally invalid parameters: a
	// non-positive probe count (MPC), an empty node list (Maglev), a
	// non-positive replica count (Consistent, Rendezvous). Jump takes no
	// node count at construction and does not return it; an empty Jump
	// ring reports ErrEmptyRing instead.
	ErrInvalidConfig = errors.New("hashring: invalid config")

	// ErrInvalidWeight is returned when a NaN weight is supplied to CARP or
	// Weighted Rendezvous.
	ErrInvalidWeight = errors.New("hashring: invalid weight")
)
