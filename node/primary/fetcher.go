/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package primary

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	cerrors "github.com/cockroachdb/errors"
	"github.com/hyperledger/fabric-x-dagpool/common/types"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// BatchRequester issues batch requests to a single worker.
type BatchRequester interface {
	RequestBatch(ctx context.Context, req *types.RequestBatchRequest) (*types.RequestBatchResponse, error)
	RequestBatches(ctx context.Context, req *types.RequestBatchesRequest) (*types.RequestBatchesResponse, error)
}

// FetcherOptions configures a Fetcher.
type FetcherOptions struct {
	// MaxRetries bounds the follow up requests of FetchBatches. Zero means a single request.
	MaxRetries int
	// RetryBackoff is the pause before each follow up request.
	RetryBackoff time.Duration
	// RequestTimeout bounds every single request, zero relies on the caller context only.
	RequestTimeout time.Duration
}

// BatchesResult is the outcome of a multi batch fetch.
type BatchesResult struct {
	// Batches holds every validated batch by its digest.
	Batches map[types.BatchDigest]*types.Batch
	// Missing are the requested digests that were not obtained.
	Missing []types.BatchDigest
	// Rejected are the digests of returned batches that were not asked for, e.g. corrupted ones.
	Rejected []types.BatchDigest
	// Attempts is the number of requests sent to the worker.
	Attempts int
}

// Fetcher retrieves batches from workers and checks that every batch hashes to a requested digest.
type Fetcher struct {
	logger  types.Logger
	workers map[types.WorkerID]BatchRequester
	options FetcherOptions
	cache   *BatchCache
	metrics *PrimaryMetrics
}

// NewFetcher creates a fetcher over the given workers. The cache may be nil.
func NewFetcher(workers map[types.WorkerID]BatchRequester, options FetcherOptions, cache *BatchCache, metrics *PrimaryMetrics, logger types.Logger) *Fetcher {
	return &Fetcher{
		logger:  logger,
		workers: workers,
		options: options,
		cache:   cache,
		metrics: metrics,
	}
}

// Workers returns the ids of the known workers in ascending order.
func (f *Fetcher) Workers() []types.WorkerID {
	ids := make([]types.WorkerID, 0, len(f.workers))
	for id := range f.workers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// FetchBatch asks worker for a single batch, without retrying.
// It returns a nil batch and no error when the worker does not have the batch,
// or when what it returned does not hash to digest.
func (f *Fetcher) FetchBatch(ctx context.Context, worker types.WorkerID, digest types.BatchDigest) (*types.Batch, error) {
	if batch, ok := f.cache.Get(digest); ok {
		f.metrics.cacheHitsTotal.Add(1)
		return batch, nil
	}
	return f.fetchBatch(ctx, worker, digest)
}

func (f *Fetcher) fetchBatch(ctx context.Context, worker types.WorkerID, digest types.BatchDigest) (*types.Batch, error) {
	requester, err := f.requester(worker)
	if err != nil {
		return nil, err
	}

	r := f.newRetrieval(worker, digest.Short())
	reqCtx, cancel := f.requestContext(ctx)
	defer cancel()

	r.moveTo(AwaitingResponse)
	resp, err := requester.RequestBatch(reqCtx, &types.RequestBatchRequest{Batch: digest})
	if err != nil {
		r.moveTo(Done)
		return nil, f.transportFailure(ctx, worker, err)
	}
	r.moveTo(Resolved)
	defer r.moveTo(Done)

	if resp == nil || resp.Batch == nil {
		f.logger.Debugf("Worker %d does not have batch %s", worker, digest.Short())
		return nil, nil
	}

	if got := resp.Batch.Digest(); got != digest {
		f.metrics.digestMismatchesTotal.Add(1)
		f.logger.Warnf("Worker %d returned a batch with digest %s when asked for %s, discarding it", worker, got.Short(), digest.Short())
		return nil, nil
	}

	f.metrics.batchesFetchedTotal.Add(1)
	f.cache.Add(digest, resp.Batch)
	return resp.Batch, nil
}

// FetchBatches asks worker for many batches. Digests that are still missing after a response
// are requested again, up to MaxRetries times, whatever the worker said about its size limit.
// On a transport failure the batches obtained so far are returned along with the error.
func (f *Fetcher) FetchBatches(ctx context.Context, worker types.WorkerID, digests []types.BatchDigest) (*BatchesResult, error) {
	result := &BatchesResult{Batches: make(map[types.BatchDigest]*types.Batch)}

	var remaining []types.BatchDigest
	for _, digest := range types.DedupDigests(digests) {
		if batch, ok := f.cache.Get(digest); ok {
			f.metrics.cacheHitsTotal.Add(1)
			result.Batches[digest] = batch
			continue
		}
		remaining = append(remaining, digest)
	}
	if len(remaining) == 0 {
		return result, nil
	}

	requester, err := f.requester(worker)
	if err != nil {
		result.Missing = remaining
		return result, err
	}

	r := f.newRetrieval(worker, fmt.Sprintf("%d batches", len(remaining)))
	for {
		r.moveTo(AwaitingResponse)
		resp, err := f.requestBatches(ctx, requester, remaining)
		result.Attempts++
		if err != nil {
			r.moveTo(Done)
			result.Missing = remaining
			return result, f.transportFailure(ctx, worker, err)
		}
		r.moveTo(Resolved)

		f.accept(worker, result, remaining, resp.Batches)
		missing := types.MissingDigests(remaining, result.Batches)
		if len(missing) == 0 {
			r.moveTo(Done)
			return result, nil
		}

		if result.Attempts > f.options.MaxRetries {
			r.moveTo(Done)
			result.Missing = missing
			f.logger.Infof("Worker %d did not provide %d of the requested batches after %d attempts: %s", worker, len(missing), result.Attempts, types.DigestsToString(missing))
			return result, nil
		}

		r.moveTo(Retry)
		if resp.IsSizeLimitReached {
			f.metrics.sizeLimitRetriesTotal.Add(1)
			f.logger.Debugf("Worker %d reached its response size limit, requesting the remaining %d batches", worker, len(missing))
		} else {
			f.metrics.missingRetriesTotal.Add(1)
			f.logger.Warnf("Worker %d returned %d of %d batches without reaching its size limit, requesting the rest again", worker, len(remaining)-len(missing), len(remaining))
		}

		if err := f.backoff(ctx); err != nil {
			r.moveTo(Done)
			result.Missing = missing
			return result, newTransportError(worker, err)
		}
		r.moveTo(Issued)
		remaining = missing
	}
}

func (f *Fetcher) requestBatches(ctx context.Context, requester BatchRequester, digests []types.BatchDigest) (*types.RequestBatchesResponse, error) {
	reqCtx, cancel := f.requestContext(ctx)
	defer cancel()

	resp, err := requester.RequestBatches(reqCtx, &types.RequestBatchesRequest{BatchDigests: digests})
	if err != nil {
		return nil, err
	}
	if resp == nil {
		resp = &types.RequestBatchesResponse{}
	}
	return resp, nil
}

// accept moves every returned batch that hashes to a pending digest into the result.
// Anything else, including a second copy of the same batch, is rejected.
func (f *Fetcher) accept(worker types.WorkerID, result *BatchesResult, pending []types.BatchDigest, batches []*types.Batch) {
	expected := make(map[types.BatchDigest]struct{}, len(pending))
	for _, d := range pending {
		expected[d] = struct{}{}
	}

	for _, batch := range batches {
		if batch == nil {
			continue
		}
		digest := batch.Digest()
		if _, ok := expected[digest]; !ok {
			f.metrics.digestMismatchesTotal.Add(1)
			f.logger.Warnf("Worker %d returned batch %s which was not requested, discarding it", worker, digest.Short())
			result.Rejected = append(result.Rejected, digest)
			continue
		}
		delete(expected, digest)
		result.Batches[digest] = batch
		f.cache.Add(digest, batch)
		f.metrics.batchesFetchedTotal.Add(1)
	}
}

var errFound = errors.New("batch found")

// FetchBatchFromAny asks every worker for the batch in parallel and returns the first valid copy,
// cancelling the other requests. It returns a nil batch and no error if every worker answered
// that it does not have the batch, and the transport failures if some worker could not answer.
func (f *Fetcher) FetchBatchFromAny(ctx context.Context, digest types.BatchDigest) (*types.Batch, error) {
	if batch, ok := f.cache.Get(digest); ok {
		f.metrics.cacheHitsTotal.Add(1)
		return batch, nil
	}

	g, gCtx := errgroup.WithContext(ctx)

	var lock sync.Mutex
	var found *types.Batch
	var failures error

	for _, worker := range f.Workers() {
		worker := worker
		g.Go(func() error {
			batch, err := f.fetchBatch(gCtx, worker, digest)

			lock.Lock()
			defer lock.Unlock()
			if found != nil {
				return nil
			}
			if err != nil {
				failures = cerrors.CombineErrors(failures, err)
				return nil
			}
			if batch != nil {
				found = batch
				return errFound
			}
			return nil
		})
	}
	_ = g.Wait()

	if found != nil {
		f.logger.Debugf("Found batch %s", digest.Short())
		return found, nil
	}
	if failures != nil {
		return nil, failures
	}
	f.logger.Infof("None of the %d workers has batch %s", len(f.workers), digest.Short())
	return nil, nil
}

func (f *Fetcher) requester(worker types.WorkerID) (BatchRequester, error) {
	requester, ok := f.workers[worker]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownWorker, "worker %d", worker)
	}
	return requester, nil
}

func (f *Fetcher) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if f.options.RequestTimeout > 0 {
		return context.WithTimeout(ctx, f.options.RequestTimeout)
	}
	return context.WithCancel(ctx)
}

func (f *Fetcher) transportFailure(ctx context.Context, worker types.WorkerID, err error) error {
	if ctx.Err() == nil {
		f.metrics.transportFailuresTotal.Add(1)
		f.logger.Warnf("Failed talking to worker %d: %v", worker, err)
	}
	return newTransportError(worker, err)
}

func (f *Fetcher) backoff(ctx context.Context) error {
	if f.options.RetryBackoff <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(f.options.RetryBackoff)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type retrieval struct {
	logger types.Logger
	worker types.WorkerID
	what   string
	state  RetrievalState
}

func (f *Fetcher) newRetrieval(worker types.WorkerID, what string) *retrieval {
	return &retrieval{logger: f.logger, worker: worker, what: what, state: Issued}
}

func (r *retrieval) moveTo(to RetrievalState) {
	if !r.state.next(to) {
		r.logger.Panicf("Illegal transition of the retrieval of %s from worker %d: %s -> %s", r.what, r.worker, r.state, to)
	}
	r.logger.Debugf("Retrieval of %s from worker %d: %s -> %s", r.what, r.worker, r.state, to)
	r.state = to
}
