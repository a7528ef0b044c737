/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package types

import (
	"sort"
)

// DedupDigests removes repeated digests, keeping the first occurrence of each in order.
func DedupDigests(digests []BatchDigest) []BatchDigest {
	seen := make(map[BatchDigest]struct{}, len(digests))
	res := make([]BatchDigest, 0, len(digests))
	for _, d := range digests {
		if _, exists := seen[d]; exists {
			continue
		}
		seen[d] = struct{}{}
		res = append(res, d)
	}
	return res
}

// MissingDigests returns the digests of requested that are not keys of got, in request order and without repetitions.
func MissingDigests(requested []BatchDigest, got map[BatchDigest]*Batch) []BatchDigest {
	var missing []BatchDigest
	for _, d := range DedupDigests(requested) {
		if _, exists := got[d]; !exists {
			missing = append(missing, d)
		}
	}
	return missing
}

// SortDigests sorts digests byte-wise in place.
func SortDigests(digests []BatchDigest) {
	sort.Slice(digests, func(i, j int) bool {
		return digests[i].Less(digests[j])
	})
}
