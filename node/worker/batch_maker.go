/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package worker

import (
	"context"
	"sync"
	"time"

	"github.com/hyperledger/fabric-x-dagpool/common/requestfilter"
	"github.com/hyperledger/fabric-x-dagpool/common/signal"
	"github.com/hyperledger/fabric-x-dagpool/common/types"
	"github.com/hyperledger/fabric-x-dagpool/common/wire"
	"github.com/hyperledger/fabric-x-dagpool/node/store"
	"github.com/pkg/errors"
	"golang.org/x/sync/semaphore"
)

const (
	defaultBatchMaxCount = 1000
	defaultBatchMaxBytes = 1024 * 1024
	defaultBatchTimeout  = 200 * time.Millisecond
	defaultPoolCapacity  = 10000
	defaultReportTimeout = 10 * time.Second
)

// PrimaryNotifier announces sealed batches to the primary.
// The ack, when not nil, fires once the primary durably recorded the batch and is closed if it did not.
type PrimaryNotifier interface {
	ReportBatch(ctx context.Context, msg *types.WorkerBatchMessage, ack signal.PrimaryResponse) error
}

// BatchMakerOptions configures a BatchMaker.
type BatchMakerOptions struct {
	// MaxCount and MaxBytes seal a batch as soon as either is reached.
	// MaxBytes bounds the encoded batch: a transaction that would overflow it starts the next batch.
	MaxCount int
	MaxBytes int
	// Timeout seals a non empty batch that did not fill up in time.
	Timeout time.Duration
	// PoolCapacity bounds the number of admitted transactions that are not sealed yet.
	PoolCapacity int
	// AckPrimary makes the maker wait for the primary to acknowledge every reported batch.
	AckPrimary    bool
	ReportTimeout time.Duration
}

// GetTxMaxBytes is the largest transaction that still fits a batch on its own.
func (o BatchMakerOptions) GetTxMaxBytes() int {
	return wire.MaxTxLen(o.MaxBytes)
}

type pendingTx struct {
	tx       []byte
	response signal.TxResponse
}

// BatchMaker buffers submitted transactions into batches, stores them and reports them to the primary.
type BatchMaker struct {
	logger    types.Logger
	store     store.BatchStore
	notifier  PrimaryNotifier
	metrics   *WorkerMetrics
	options   BatchMakerOptions
	semaphore *semaphore.Weighted
	filter    *requestfilter.RulesVerifier

	// maxTxBytes is the room left for transactions once the metadata is accounted for.
	maxTxBytes int

	lock         sync.Mutex
	pending      []pendingTx
	pendingBytes int
	generation   uint64
	timer        *time.Timer
	stopped      bool

	sealed   chan []pendingTx
	ctx      context.Context
	cancel   context.CancelFunc
	doneChan chan struct{}
}

// NewBatchMaker creates a batch maker and starts its sealing routine.
// A nil notifier keeps batches local to the worker.
func NewBatchMaker(batchStore store.BatchStore, notifier PrimaryNotifier, options BatchMakerOptions, metrics *WorkerMetrics, logger types.Logger) *BatchMaker {
	if options.MaxCount <= 0 {
		options.MaxCount = defaultBatchMaxCount
	}
	if options.MaxBytes <= 0 {
		options.MaxBytes = defaultBatchMaxBytes
	}
	if options.Timeout <= 0 {
		options.Timeout = defaultBatchTimeout
	}
	if options.PoolCapacity <= 0 {
		options.PoolCapacity = defaultPoolCapacity
	}
	if options.ReportTimeout <= 0 {
		options.ReportTimeout = defaultReportTimeout
	}

	filter := requestfilter.NewRulesVerifier([]requestfilter.Rule{
		requestfilter.TxNotEmptyRule{},
		requestfilter.NewMaxSizeFilter(options),
	})

	ctx, cancel := context.WithCancel(context.Background())
	bm := &BatchMaker{
		logger:     logger,
		store:      batchStore,
		notifier:   notifier,
		metrics:    metrics,
		options:    options,
		semaphore:  semaphore.NewWeighted(int64(options.PoolCapacity)),
		filter:     filter,
		maxTxBytes: options.MaxBytes - wire.MaxMetadataSize(),
		sealed:     make(chan []pendingTx),
		ctx:        ctx,
		cancel:     cancel,
		doneChan:   make(chan struct{}),
	}

	go bm.run()

	return bm
}

// Submit admits tx into the current batch. It blocks while the pool is at capacity, up to ctx.
// The returned receiver yields the digest of the batch that absorbed tx,
// or ErrCancelled if the batch maker stopped or failed to store the batch.
func (bm *BatchMaker) Submit(ctx context.Context, tx []byte) (*signal.Receiver[types.BatchDigest], error) {
	if err := bm.filter.Verify(tx); err != nil {
		return nil, err
	}

	if err := bm.semaphore.Acquire(ctx, 1); err != nil {
		bm.logger.Warnf("Timed out enqueuing a transaction of %d bytes", len(tx))
		return nil, errors.WithMessage(ErrPoolFull, err.Error())
	}

	txCopy := make([]byte, len(tx))
	copy(txCopy, tx)
	response, receiver := signal.NewTxResponse()

	bm.lock.Lock()
	if bm.stopped {
		bm.lock.Unlock()
		bm.semaphore.Release(1)
		return nil, ErrStopped
	}

	size := wire.TxSize(txCopy)
	var cuts [][]pendingTx
	if len(bm.pending) > 0 && bm.pendingBytes+size > bm.maxTxBytes {
		cuts = append(cuts, bm.cutLocked())
	}

	bm.pending = append(bm.pending, pendingTx{tx: txCopy, response: response})
	bm.pendingBytes += size
	bm.metrics.pendingTxs.Add(1)

	switch {
	case len(bm.pending) >= bm.options.MaxCount || bm.pendingBytes >= bm.maxTxBytes:
		cuts = append(cuts, bm.cutLocked())
	case len(bm.pending) == 1:
		gen := bm.generation
		bm.timer = time.AfterFunc(bm.options.Timeout, func() { bm.onTimeout(gen) })
	}
	bm.lock.Unlock()

	for _, cut := range cuts {
		bm.enqueue(cut)
	}

	return receiver, nil
}

// Stop drops every transaction that was not sealed yet; their receivers observe ErrCancelled.
// A batch being stored or reported while Stop is called is completed, but the report is aborted.
func (bm *BatchMaker) Stop() {
	bm.lock.Lock()
	if bm.stopped {
		bm.lock.Unlock()
		return
	}
	bm.stopped = true
	dropped := bm.cutLocked()
	bm.lock.Unlock()

	bm.cancel()
	<-bm.doneChan

	if len(dropped) > 0 {
		bm.logger.Infof("Dropping %d transactions that were not sealed", len(dropped))
	}
	bm.drop(dropped)
}

func (bm *BatchMaker) onTimeout(gen uint64) {
	bm.lock.Lock()
	if bm.stopped || gen != bm.generation || len(bm.pending) == 0 {
		bm.lock.Unlock()
		return
	}
	bm.logger.Debugf("Batch timeout expired with %d pending transactions", len(bm.pending))
	cut := bm.cutLocked()
	bm.lock.Unlock()

	bm.enqueue(cut)
}

func (bm *BatchMaker) cutLocked() []pendingTx {
	cut := bm.pending
	bm.pending = nil
	bm.pendingBytes = 0
	bm.generation++
	if bm.timer != nil {
		bm.timer.Stop()
		bm.timer = nil
	}
	return cut
}

func (bm *BatchMaker) enqueue(cut []pendingTx) {
	select {
	case bm.sealed <- cut:
	case <-bm.ctx.Done():
		bm.drop(cut)
	}
}

func (bm *BatchMaker) drop(txs []pendingTx) {
	for _, p := range txs {
		p.response.Close()
	}
	if len(txs) > 0 {
		bm.metrics.pendingTxs.Add(-float64(len(txs)))
		bm.semaphore.Release(int64(len(txs)))
	}
}

func (bm *BatchMaker) run() {
	defer close(bm.doneChan)
	for {
		select {
		case cut := <-bm.sealed:
			bm.seal(cut)
		case <-bm.ctx.Done():
			return
		}
	}
}

func (bm *BatchMaker) seal(cut []pendingTx) {
	txs := make([][]byte, len(cut))
	for i, p := range cut {
		txs[i] = p.tx
	}
	batch := types.NewBatch(txs, time.Now().UnixNano())

	digest, err := bm.store.Put(batch)
	if err != nil {
		bm.logger.Errorf("Failed storing batch of %d transactions, discarding it: %v", len(cut), err)
		bm.drop(cut)
		return
	}

	for _, p := range cut {
		if err := p.response.Send(digest); err != nil {
			bm.logger.Warnf("Failed notifying a transaction of batch %s: %v", digest.Short(), err)
		}
	}
	bm.metrics.pendingTxs.Add(-float64(len(cut)))
	bm.semaphore.Release(int64(len(cut)))
	bm.metrics.batchesSealedTotal.Add(1)
	bm.metrics.txsSealedTotal.Add(float64(len(cut)))

	bm.logger.Debugf("Sealed batch %s", types.BatchToString(batch))

	bm.report(batch, digest)
}

func (bm *BatchMaker) report(batch *types.Batch, digest types.BatchDigest) {
	if bm.notifier == nil {
		return
	}

	ctx, cancel := context.WithTimeout(bm.ctx, bm.options.ReportTimeout)
	defer cancel()

	var ack signal.PrimaryResponse
	var acked *signal.Receiver[struct{}]
	if bm.options.AckPrimary {
		ack, acked = signal.NewPrimaryResponse()
	}

	if err := bm.notifier.ReportBatch(ctx, &types.WorkerBatchMessage{Batch: batch}, ack); err != nil {
		bm.metrics.reportFailuresTotal.Add(1)
		bm.logger.Warnf("Failed reporting batch %s to the primary: %v", digest.Short(), err)
		return
	}

	if acked == nil {
		return
	}
	if _, err := acked.Wait(ctx); err != nil {
		bm.metrics.reportFailuresTotal.Add(1)
		bm.logger.Warnf("Primary did not acknowledge batch %s: %v", digest.Short(), err)
		return
	}
	bm.logger.Debugf("Primary acknowledged batch %s", digest.Short())
}
