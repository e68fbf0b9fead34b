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

package ringutil

import (
	"encoding/binary"

	"github.com/asokolov365/hashring/lib/bytesutil"
	"github.com/cespare/xxhash/v2"
	"golang.org/x/exp/constraints"
)

// HashFunc maps a value of type T to a 64-bit digest. It must be
// deterministic: the same value always produces the same digest, both
// within a process and across process restarts, so that rings built from
// the same inputs agree on placement.
type HashFunc[T any] func(v T) uint64

// Ordered is the constraint used by rings that tie-break equal scores by
// ascending node id (CARP, Consistent, MPC, Rendezvous, Weighted Rendezvous).
// It mirrors the `Ord` bound the reference implementation places on its
// node id type parameter.
type Ordered = constraints.Ordered

// StringHash is the default HashFunc for string-keyed rings. It matches the
// teacher's own choice of xxhash as a fast, well-distributed, non-cryptographic
// hash (see lib/hrw.New(xxhash.Sum64, ...)).
func StringHash(s string) uint64 {
	return xxhash.Sum64(bytesutil.ToUnsafeBytes(s))
}

// BytesHash hashes a raw byte slice with the module's default hash.
func BytesHash(b []byte) uint64 {
	return xxhash.Sum64(b)
}

// HashReplica hashes a replica/probe index. Consistent and Rendezvous
// combine this with a node's own hash to place each of a node's R replicas
// at an independent ring position.
func HashReplica(r int) uint64 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(r))
	return xxhash.Sum64(buf[:])
}

// Combine deterministically mixes two 64-bit hashes into a third, using the
// xorshift* construction (see https://en.wikipedia.org/wiki/Xorshift#xorshift*).
// This is the exact mixing function the teacher's lib/hrw.Rendezvous uses to
// combine a key hash with a pre-hashed node hash, generalized here for reuse
// across every ring in the module.
func Combine(a, b uint64) uint64 {
	x := a ^ b
	x ^= x >> 12
	x ^= x << 25
	x ^= x >> 27
	return x * 0x2545F4914F6CDD1D
}

// seededHash returns a HashFunc[[]byte] keyed with seed: the seed is mixed
// in ahead of the payload so that two instances built from different seeds
// are independent for the purposes of Maglev's/MPC's multi-hash schemes.
func seededHash(seed uint64) HashFunc[[]byte] {
	return func(b []byte) uint64 {
		buf := make([]byte, 8+len(b))
		binary.LittleEndian.PutUint64(buf, seed)
		copy(buf[8:], b)
		return xxhash.Sum64(buf)
	}
}

// splitmix64 advances a PRNG state and returns the next pseudorandom value.
// It is used only to derive the two fixed seeds below; it is not used as a
// ring hash itself.
func splitmix64(state *uint64) uint64 {
	*state += 0x9E3779B97F4A7C15
	z := *state
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}

// keyedSeedA and keyedSeedB are fixed, documented PRNG-derived constants.
// The reference implementation (jeffrey-xiao/hash-rings-rs) seeds two
// SipHasher instances from an *unseeded* xorshift RNG, which in that RNG's
// implementation happens to be a fixed default seed; it documents this as
// the source of Maglev's and MPC's reproducibility across runs. We make
// that determinism explicit instead of relying on an "unseeded" default.
var keyedSeedA, keyedSeedB = func() (uint64, uint64) {
	state := uint64(0x2545F4914F6CDD1D)
	a := splitmix64(&state)
	b := splitmix64(&state)
	c := splitmix64(&state)
	d := splitmix64(&state)
	return a ^ b, c ^ d
}()

// KeyedPair returns two independently seeded HashFuncs for T, derived from
// toBytes, a caller-supplied byte-serialization of T. Maglev uses this for
// its offset/skip hashers; MPC uses it for its two probe hashers. Each call
// builds a fresh closure pair over the same two fixed seeds, so every ring
// that calls KeyedPair agrees on the same hash values for the same T.
func KeyedPair[T any](toBytes func(T) []byte) (HashFunc[T], HashFunc[T]) {
	h1 := seededHash(keyedSeedA)
	h2 := seededHash(keyedSeedB)
	return func(v T) uint64 { return h1(toBytes(v)) },
		func(v T) uint64 { return h2(toBytes(v)) }
}
