/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package testutil

import (
	"encoding/binary"

	"github.com/hyperledger/fabric-x-dagpool/common/types"
)

// CreateBatch creates a batch of txCount transactions, each of txSize bytes (at least 8).
// The seed makes the batch content, and therefore its digest, unique.
//
// Example:
//
//	// Returns a batch with 2 transactions of 16 bytes each
//	b := CreateBatch(1, 2, 16)
func CreateBatch(seed uint64, txCount int, txSize int) *types.Batch {
	if txSize < 8 {
		txSize = 8
	}
	txs := make([][]byte, 0, txCount)
	for i := 0; i < txCount; i++ {
		tx := make([]byte, txSize)
		binary.BigEndian.PutUint64(tx, seed<<16|uint64(i))
		txs = append(txs, tx)
	}
	return types.NewBatch(txs, int64(seed))
}

// CreateBatches creates n distinct batches, see CreateBatch.
func CreateBatches(n int, txCount int, txSize int) []*types.Batch {
	batches := make([]*types.Batch, 0, n)
	for i := 0; i < n; i++ {
		batches = append(batches, CreateBatch(uint64(i+1), txCount, txSize))
	}
	return batches
}

// Digests returns the digests of the given batches, in order.
func Digests(batches ...*types.Batch) []types.BatchDigest {
	digests := make([]types.BatchDigest, 0, len(batches))
	for _, b := range batches {
		digests = append(digests, b.Digest())
	}
	return digests
}
