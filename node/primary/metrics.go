/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package primary

import (
	"fmt"
	"sync"

	"github.com/hyperledger/fabric-lib-go/common/metrics"
	"github.com/hyperledger/fabric-x-dagpool/common/monitoring"
	"github.com/hyperledger/fabric-x-dagpool/common/types"
)

var (
	batchesFetchedTotalOpts = metrics.CounterOpts{
		Namespace:  "primary",
		Name:       "batches_fetched_total",
		Help:       "The total number of validated batches fetched from workers.",
		LabelNames: []string{"primary_id"},
	}

	digestMismatchesTotalOpts = metrics.CounterOpts{
		Namespace:  "primary",
		Name:       "digest_mismatches_total",
		Help:       "The total number of batches discarded because their digest was not requested.",
		LabelNames: []string{"primary_id"},
	}

	retriesTotalOpts = metrics.CounterOpts{
		Namespace:  "primary",
		Name:       "retries_total",
		Help:       "The total number of follow up batch requests.",
		LabelNames: []string{"primary_id", "reason"},
	}

	transportFailuresTotalOpts = metrics.CounterOpts{
		Namespace:  "primary",
		Name:       "transport_failures_total",
		Help:       "The total number of failed exchanges with workers.",
		LabelNames: []string{"primary_id"},
	}

	cacheHitsTotalOpts = metrics.CounterOpts{
		Namespace:  "primary",
		Name:       "cache_hits_total",
		Help:       "The total number of batches served from the cache.",
		LabelNames: []string{"primary_id"},
	}

	batchesReportedTotalOpts = metrics.CounterOpts{
		Namespace:  "primary",
		Name:       "batches_reported_total",
		Help:       "The total number of batch reports accepted from workers.",
		LabelNames: []string{"primary_id"},
	}
)

type PrimaryMetrics struct {
	primaryID types.WorkerID
	logger    types.Logger
	stopOnce  sync.Once

	batchesFetchedTotal    metrics.Counter
	digestMismatchesTotal  metrics.Counter
	sizeLimitRetriesTotal  metrics.Counter
	missingRetriesTotal    metrics.Counter
	transportFailuresTotal metrics.Counter
	cacheHitsTotal         metrics.Counter
	batchesReportedTotal   metrics.Counter
}

func NewPrimaryMetrics(p metrics.Provider, primaryID types.WorkerID, logger types.Logger) *PrimaryMetrics {
	id := fmt.Sprintf("%d", primaryID)
	retries := p.NewCounter(retriesTotalOpts)
	return &PrimaryMetrics{
		primaryID: primaryID,
		logger:    logger,

		batchesFetchedTotal:    p.NewCounter(batchesFetchedTotalOpts).With("primary_id", id),
		digestMismatchesTotal:  p.NewCounter(digestMismatchesTotalOpts).With("primary_id", id),
		sizeLimitRetriesTotal:  retries.With("primary_id", id, "reason", "size_limit"),
		missingRetriesTotal:    retries.With("primary_id", id, "reason", "missing"),
		transportFailuresTotal: p.NewCounter(transportFailuresTotalOpts).With("primary_id", id),
		cacheHitsTotal:         p.NewCounter(cacheHitsTotalOpts).With("primary_id", id),
		batchesReportedTotal:   p.NewCounter(batchesReportedTotalOpts).With("primary_id", id),
	}
}

// Stop logs a summary of the counters.
func (m *PrimaryMetrics) Stop() {
	m.stopOnce.Do(func() {
		m.logger.Infof("PRIMARY_METRICS primary_id=%d, batches_fetched_total=%d, digest_mismatches_total=%d, size_limit_retries_total=%d, missing_retries_total=%d, transport_failures_total=%d, cache_hits_total=%d, batches_reported_total=%d",
			m.primaryID,
			uint64(monitoring.CounterValue(m.batchesFetchedTotal, m.logger)),
			uint64(monitoring.CounterValue(m.digestMismatchesTotal, m.logger)),
			uint64(monitoring.CounterValue(m.sizeLimitRetriesTotal, m.logger)),
			uint64(monitoring.CounterValue(m.missingRetriesTotal, m.logger)),
			uint64(monitoring.CounterValue(m.transportFailuresTotal, m.logger)),
			uint64(monitoring.CounterValue(m.cacheHitsTotal, m.logger)),
			uint64(monitoring.CounterValue(m.batchesReportedTotal, m.logger)),
		)
	})
}
