/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package worker

import (
	"context"
	"sync"

	"github.com/hyperledger/fabric-x-dagpool/common/monitoring"
	"github.com/hyperledger/fabric-x-dagpool/common/signal"
	"github.com/hyperledger/fabric-x-dagpool/common/types"
	"github.com/hyperledger/fabric-x-dagpool/config"
	"github.com/hyperledger/fabric-x-dagpool/node/comm"
	"github.com/hyperledger/fabric-x-dagpool/node/store"
	"github.com/pkg/errors"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Worker is a worker node: it seals client transactions into batches and serves them to the primary.
type Worker struct {
	logger   types.Logger
	config   *config.NodeConfig
	store    store.BatchStore
	monitor  *monitoring.Monitor
	metrics  *WorkerMetrics
	handler  *RetrievalHandler
	maker    *BatchMaker
	primary  *comm.PrimaryClient
	server   *comm.Server
	stopOnce sync.Once
	done     chan struct{}
}

var _ comm.TransactionServer = (*Worker)(nil)

// CreateWorker builds a worker node from its configuration. Nothing is served until Start.
func CreateWorker(conf *config.NodeConfig, logger types.Logger) (*Worker, error) {
	if conf.Worker == nil {
		return nil, errors.New("missing Worker section in the node configuration")
	}
	params := conf.Worker

	batchStore, err := store.Open(conf.StorePath, logger)
	if err != nil {
		return nil, err
	}

	monitor := monitoring.NewMonitor(conf.MonitoringListenAddress, logger)
	metrics := NewWorkerMetrics(monitor.Provider, conf.ID, logger)

	// Without an explicit ceiling responses are still bounded by what gRPC accepts.
	maxResponseBytes := params.MaxResponseBytes
	if maxResponseBytes <= 0 {
		maxResponseBytes = conf.MaxMessageBytes
	}

	w := &Worker{
		logger:  logger,
		config:  conf,
		store:   batchStore,
		monitor: monitor,
		metrics: metrics,
		handler: NewRetrievalHandler(batchStore, maxResponseBytes, metrics, logger),
		done:    make(chan struct{}),
	}

	var notifier PrimaryNotifier
	if params.PrimaryEndpoint != "" {
		w.primary, err = comm.NewPrimaryClient(params.PrimaryEndpoint, conf.MaxMessageBytes)
		if err != nil {
			_ = batchStore.Close()
			return nil, err
		}
		notifier = w.primary
	}

	w.maker = NewBatchMaker(batchStore, notifier, BatchMakerOptions{
		MaxCount:      params.BatchMaxCount,
		MaxBytes:      params.BatchMaxBytes,
		Timeout:       params.BatchTimeout,
		PoolCapacity:  params.PoolCapacity,
		AckPrimary:    params.AckPrimary,
		ReportTimeout: params.ReportTimeout,
	}, metrics, logger)

	w.server, err = comm.NewServer(conf.ListenAddress, comm.ServerConfig{
		MaxRecvMsgSize: conf.MaxMessageBytes,
		MaxSendMsgSize: conf.MaxMessageBytes,
	}, logger)
	if err != nil {
		w.closeResources()
		return nil, err
	}
	w.server.RegisterWorker(w.handler)
	w.server.RegisterTransactions(w)

	return w, nil
}

// Start serves in the background.
func (w *Worker) Start() error {
	if err := w.monitor.Start(); err != nil {
		return err
	}
	go func() {
		defer close(w.done)
		if err := w.server.Start(); err != nil {
			w.logger.Errorf("Worker %d stopped serving: %v", w.config.ID, err)
		}
	}()
	w.logger.Infof("Worker %d started on %s", w.config.ID, w.Address())
	return nil
}

// Stop stops serving, drops unsealed transactions and closes the store.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		w.logger.Infof("Stopping worker %d", w.config.ID)
		// Pending submissions hold their RPC open until sealed, release them before the graceful stop.
		w.maker.Stop()
		w.server.Stop()
		w.closeResources()
	})
}

// Done is closed once the server of a started worker returned.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

func (w *Worker) closeResources() {
	w.maker.Stop()
	w.metrics.Stop()
	w.monitor.Stop()
	if w.primary != nil {
		if err := w.primary.Close(); err != nil {
			w.logger.Warnf("Failed closing the connection to the primary: %v", err)
		}
	}
	if err := w.store.Close(); err != nil {
		w.logger.Warnf("Failed closing the batch store: %v", err)
	}
}

// Address returns the address of the gRPC server.
func (w *Worker) Address() string {
	return w.server.Address()
}

// MonitoringAddress returns the metrics URL, empty if monitoring is disabled.
func (w *Worker) MonitoringAddress() string {
	return w.monitor.Address()
}

// Submit admits a transaction, see BatchMaker.Submit.
func (w *Worker) Submit(ctx context.Context, tx []byte) (*signal.Receiver[types.BatchDigest], error) {
	return w.maker.Submit(ctx, tx)
}

// Store exposes the local batch store.
func (w *Worker) Store() store.BatchStore {
	return w.store
}

// SubmitTransaction admits the transaction and waits until it is sealed.
func (w *Worker) SubmitTransaction(ctx context.Context, req *types.SubmitTransactionRequest) (*types.SubmitTransactionResponse, error) {
	sealed, err := w.maker.Submit(ctx, req.Tx)
	switch {
	case errors.Is(err, ErrEmptyTx), errors.Is(err, ErrTxTooBig):
		return nil, status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, ErrPoolFull):
		return nil, status.Error(codes.ResourceExhausted, err.Error())
	case errors.Is(err, ErrStopped):
		return nil, status.Error(codes.Unavailable, err.Error())
	case err != nil:
		return nil, err
	}

	digest, err := sealed.Wait(ctx)
	if errors.Is(err, signal.ErrCancelled) {
		return nil, status.Error(codes.Aborted, "transaction was dropped before its batch was sealed")
	}
	if err != nil {
		return nil, err
	}
	return &types.SubmitTransactionResponse{Batch: digest}, nil
}
