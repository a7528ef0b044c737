/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package types

// WorkerBatchMessage is used by workers to announce a newly sealed batch to their primary.
type WorkerBatchMessage struct {
	Batch *Batch
}

// RequestBatchRequest is used by a primary to ask a worker for a single batch.
type RequestBatchRequest struct {
	Batch BatchDigest
}

// RequestBatchResponse carries the requested batch, or nil if the worker does not hold it.
type RequestBatchResponse struct {
	Batch *Batch
}

// RequestBatchesRequest is used by a primary to bulk request batches from a worker's local store.
// Duplicates are permitted and order carries no meaning.
type RequestBatchesRequest struct {
	BatchDigests []BatchDigest
}

// RequestBatchesResponse carries the batches the worker found.
type RequestBatchesResponse struct {
	Batches []*Batch
	// IsSizeLimitReached tells the primary it should request the remaining batches again.
	// It comes from a remote worker and cannot be trusted.
	IsSizeLimitReached bool
}

// SubmitTransactionRequest hands a client transaction to a worker.
type SubmitTransactionRequest struct {
	Tx []byte
}

// SubmitTransactionResponse carries the digest of the batch that absorbed the transaction.
type SubmitTransactionResponse struct {
	Batch BatchDigest
}
