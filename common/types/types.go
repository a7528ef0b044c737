/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package types

// Logger is the logging interface used across the dagpool nodes.
// It is satisfied by *flogging.FabricLogger.
type Logger interface {
	Debugf(template string, args ...interface{})
	Infof(template string, args ...interface{})
	Warnf(template string, args ...interface{})
	Errorf(template string, args ...interface{})
	Panicf(template string, args ...interface{})
}

// WorkerID identifies a worker of a primary, must be >0.
type WorkerID uint32

// BatchMetadata is information attached to a batch by the worker that sealed it.
// It is not part of the batch digest.
type BatchMetadata struct {
	// CreatedAt is the sealing time in unix nanoseconds.
	CreatedAt int64
}

// Batch is an ordered set of raw transactions sealed by a worker.
type Batch struct {
	Transactions Transactions
	Metadata     BatchMetadata
}

// NewBatch creates a batch of the given transactions.
func NewBatch(txs [][]byte, createdAt int64) *Batch {
	return &Batch{
		Transactions: txs,
		Metadata:     BatchMetadata{CreatedAt: createdAt},
	}
}

// Digest returns the content address of the batch.
func (b *Batch) Digest() BatchDigest {
	return ComputeDigest(b.Transactions.Serialize())
}

// IsEmpty reports whether the batch carries no transactions.
func (b *Batch) IsEmpty() bool {
	return b == nil || len(b.Transactions) == 0
}

// Equal compares the transactions and metadata of two batches.
func (b *Batch) Equal(o *Batch) bool {
	if b == nil || o == nil {
		return b == o
	}
	if b.Metadata != o.Metadata || len(b.Transactions) != len(o.Transactions) {
		return false
	}
	for i := range b.Transactions {
		if string(b.Transactions[i]) != string(o.Transactions[i]) {
			return false
		}
	}
	return true
}
