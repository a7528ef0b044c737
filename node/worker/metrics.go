/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package worker

import (
	"fmt"
	"sync"

	"github.com/hyperledger/fabric-lib-go/common/metrics"
	"github.com/hyperledger/fabric-x-dagpool/common/monitoring"
	"github.com/hyperledger/fabric-x-dagpool/common/types"
)

var (
	batchesSealedTotalOpts = metrics.CounterOpts{
		Namespace:  "worker",
		Name:       "batches_sealed_total",
		Help:       "The total number of batches sealed and stored.",
		LabelNames: []string{"worker_id"},
	}

	txsSealedTotalOpts = metrics.CounterOpts{
		Namespace:  "worker",
		Name:       "txs_sealed_total",
		Help:       "The total number of transactions sealed into batches.",
		LabelNames: []string{"worker_id"},
	}

	requestsServedTotalOpts = metrics.CounterOpts{
		Namespace:  "worker",
		Name:       "requests_served_total",
		Help:       "The total number of batch retrieval requests served.",
		LabelNames: []string{"worker_id", "method"},
	}

	truncatedResponsesTotalOpts = metrics.CounterOpts{
		Namespace:  "worker",
		Name:       "truncated_responses_total",
		Help:       "The total number of multi batch responses cut at the size ceiling.",
		LabelNames: []string{"worker_id"},
	}

	reportFailuresTotalOpts = metrics.CounterOpts{
		Namespace:  "worker",
		Name:       "report_failures_total",
		Help:       "The total number of sealed batches the primary did not accept.",
		LabelNames: []string{"worker_id"},
	}

	pendingTxsOpts = metrics.GaugeOpts{
		Namespace:  "worker",
		Name:       "pending_txs",
		Help:       "The number of admitted transactions not sealed yet.",
		LabelNames: []string{"worker_id"},
	}
)

type WorkerMetrics struct {
	workerID types.WorkerID
	logger   types.Logger
	stopOnce sync.Once

	batchesSealedTotal      metrics.Counter
	txsSealedTotal          metrics.Counter
	batchRequestsTotal      metrics.Counter
	batchesRequestsTotal    metrics.Counter
	truncatedResponsesTotal metrics.Counter
	reportFailuresTotal     metrics.Counter
	pendingTxs              metrics.Gauge
}

func NewWorkerMetrics(p metrics.Provider, workerID types.WorkerID, logger types.Logger) *WorkerMetrics {
	id := fmt.Sprintf("%d", workerID)
	served := p.NewCounter(requestsServedTotalOpts)
	return &WorkerMetrics{
		workerID: workerID,
		logger:   logger,

		batchesSealedTotal:      p.NewCounter(batchesSealedTotalOpts).With("worker_id", id),
		txsSealedTotal:          p.NewCounter(txsSealedTotalOpts).With("worker_id", id),
		batchRequestsTotal:      served.With("worker_id", id, "method", "request_batch"),
		batchesRequestsTotal:    served.With("worker_id", id, "method", "request_batches"),
		truncatedResponsesTotal: p.NewCounter(truncatedResponsesTotalOpts).With("worker_id", id),
		reportFailuresTotal:     p.NewCounter(reportFailuresTotalOpts).With("worker_id", id),
		pendingTxs:              p.NewGauge(pendingTxsOpts).With("worker_id", id),
	}
}

// Stop logs a summary of the counters.
func (m *WorkerMetrics) Stop() {
	m.stopOnce.Do(func() {
		m.logger.Infof("WORKER_METRICS worker_id=%d, batches_sealed_total=%d, txs_sealed_total=%d, request_batch_total=%d, request_batches_total=%d, truncated_responses_total=%d, report_failures_total=%d",
			m.workerID,
			uint64(monitoring.CounterValue(m.batchesSealedTotal, m.logger)),
			uint64(monitoring.CounterValue(m.txsSealedTotal, m.logger)),
			uint64(monitoring.CounterValue(m.batchRequestsTotal, m.logger)),
			uint64(monitoring.CounterValue(m.batchesRequestsTotal, m.logger)),
			uint64(monitoring.CounterValue(m.truncatedResponsesTotal, m.logger)),
			uint64(monitoring.CounterValue(m.reportFailuresTotal, m.logger)),
		)
	})
}
