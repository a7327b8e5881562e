// Copyright Twinscan Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package matcher

import (
	"hash/fnv"

	"twinscan/internal/sequence"
)

// fingerprintWidth is the number of units hashed per key. Similar windows keep
// at least one of their edges mostly intact, so hashing a short prefix and
// suffix catches near-duplicates while collapsing unrelated pairs into
// disjoint buckets.
const fingerprintWidth = 4

// fingerprints returns the bucket keys of one window: a prefix-window hash, a
// suffix-window hash, and for longer windows an alternating-unit hash. Two
// windows can only be compared in the pruned modes when they share a key, and
// a shared key never changes a score, so pruning only ever skips pairs.
func fingerprints(units []string) []uint64 {
	k := fingerprintWidth
	if len(units) < k {
		k = len(units)
	}
	if k == 0 {
		return nil
	}
	keys := make([]uint64, 0, 3)
	keys = append(keys, hashUnits(units[:k]))
	if len(units) > k {
		keys = append(keys, hashUnits(units[len(units)-k:]))
	}
	if len(units) >= 2*k {
		alt := make([]string, 0, k)
		for i := 0; i < 2*k; i += 2 {
			alt = append(alt, units[i])
		}
		keys = append(keys, hashUnits(alt))
	}
	return keys
}

func hashUnits(units []string) uint64 {
	h := fnv.New64a()
	for _, u := range units {
		h.Write([]byte(u))
		h.Write([]byte{0xff})
	}
	return h.Sum64()
}

// bucketIndex maps fingerprint keys to the windows carrying them.
type bucketIndex map[uint64][]int

func buildBucketIndex(seqs []sequence.Sequence) bucketIndex {
	idx := make(bucketIndex)
	for i := range seqs {
		for _, key := range fingerprints(seqs[i].Units) {
			idx[key] = append(idx[key], i)
		}
	}
	return idx
}
