/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package worker

import (
	"context"

	"github.com/hyperledger/fabric-x-dagpool/common/types"
	"github.com/hyperledger/fabric-x-dagpool/common/wire"
	"github.com/hyperledger/fabric-x-dagpool/node/comm"
	"github.com/hyperledger/fabric-x-dagpool/node/store"
	"github.com/pkg/errors"
)

// RetrievalHandler answers the batch requests of the primary from the local batch store.
type RetrievalHandler struct {
	logger           types.Logger
	store            store.BatchStore
	maxResponseBytes int
	metrics          *WorkerMetrics
}

var _ comm.WorkerServer = (*RetrievalHandler)(nil)

// NewRetrievalHandler creates a handler. maxResponseBytes bounds the encoded size of a
// RequestBatchesResponse; a non positive value disables the ceiling.
func NewRetrievalHandler(batchStore store.BatchStore, maxResponseBytes int, metrics *WorkerMetrics, logger types.Logger) *RetrievalHandler {
	return &RetrievalHandler{
		logger:           logger,
		store:            batchStore,
		maxResponseBytes: maxResponseBytes,
		metrics:          metrics,
	}
}

// HandleRequestBatch looks up a single batch. An unknown digest yields a response without a batch.
func (h *RetrievalHandler) HandleRequestBatch(req *types.RequestBatchRequest) (*types.RequestBatchResponse, error) {
	h.metrics.batchRequestsTotal.Add(1)

	batch, err := h.store.Get(req.Batch)
	if err != nil {
		return nil, errors.Wrapf(err, "failed reading batch %s", req.Batch.Short())
	}
	if batch == nil {
		h.logger.Debugf("Batch %s was requested but is not in the store", req.Batch.Short())
	}
	return &types.RequestBatchResponse{Batch: batch}, nil
}

// HandleRequestBatches resolves the requested digests in order and stops before the encoded
// response would outgrow the size ceiling, in which case IsSizeLimitReached is set.
// The first batch found is always returned, even if it alone exceeds the ceiling.
// Digests that are not in the store are skipped.
func (h *RetrievalHandler) HandleRequestBatches(req *types.RequestBatchesRequest) (*types.RequestBatchesResponse, error) {
	h.metrics.batchesRequestsTotal.Add(1)

	digests := types.DedupDigests(req.BatchDigests)
	resp := &types.RequestBatchesResponse{}
	total := wire.ResponseOverhead()
	var missing int

	for i, digest := range digests {
		batch, err := h.store.Get(digest)
		if err != nil {
			return nil, errors.Wrapf(err, "failed reading batch %s", digest.Short())
		}
		if batch == nil {
			missing++
			continue
		}

		size := wire.ResponseBatchSize(batch)
		if h.maxResponseBytes > 0 && total+size > h.maxResponseBytes && len(resp.Batches) > 0 {
			resp.IsSizeLimitReached = true
			break
		}
		resp.Batches = append(resp.Batches, batch)
		total += size

		if h.maxResponseBytes > 0 && total > h.maxResponseBytes {
			h.logger.Warnf("Batch %s of %d bytes alone exceeds the response ceiling of %d bytes", digest.Short(), size, h.maxResponseBytes)
			resp.IsSizeLimitReached = i < len(digests)-1
			break
		}
	}

	if resp.IsSizeLimitReached {
		h.metrics.truncatedResponsesTotal.Add(1)
		h.logger.Infof("Response to a request of %d digests truncated at %d batches (%d bytes)", len(digests), len(resp.Batches), total)
	}
	if missing > 0 {
		h.logger.Debugf("%d of %d requested batches are not in the store", missing, len(digests))
	}

	return resp, nil
}

func (h *RetrievalHandler) RequestBatch(_ context.Context, req *types.RequestBatchRequest) (*types.RequestBatchResponse, error) {
	return h.HandleRequestBatch(req)
}

func (h *RetrievalHandler) RequestBatches(_ context.Context, req *types.RequestBatchesRequest) (*types.RequestBatchesResponse, error) {
	return h.HandleRequestBatches(req)
}
