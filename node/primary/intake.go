/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package primary

import (
	"context"

	"github.com/hyperledger/fabric-x-dagpool/common/signal"
	"github.com/hyperledger/fabric-x-dagpool/common/types"
	"github.com/hyperledger/fabric-x-dagpool/node/comm"
	"github.com/hyperledger/fabric-x-dagpool/node/store"
	"github.com/pkg/errors"
)

// Intake records the batches that workers report after sealing them.
type Intake struct {
	logger  types.Logger
	store   store.BatchStore
	metrics *PrimaryMetrics
}

func NewIntake(batchStore store.BatchStore, metrics *PrimaryMetrics, logger types.Logger) *Intake {
	return &Intake{logger: logger, store: batchStore, metrics: metrics}
}

// ReportBatch persists the reported batch and then fires ack, which may be nil.
// Reporting a batch that is already stored succeeds again. On failure ack is closed.
func (in *Intake) ReportBatch(_ context.Context, msg *types.WorkerBatchMessage, ack signal.PrimaryResponse) error {
	if msg == nil || msg.Batch.IsEmpty() {
		ack.Close()
		return ErrEmptyBatch
	}

	digest := msg.Batch.Digest()
	exists, err := in.store.Has(digest)
	if err != nil {
		ack.Close()
		return errors.Wrapf(err, "failed looking up batch %s", digest.Short())
	}
	if exists {
		in.logger.Debugf("Batch %s was already reported", digest.Short())
	} else {
		if _, err := in.store.Put(msg.Batch); err != nil {
			ack.Close()
			return errors.Wrapf(err, "failed storing batch %s", digest.Short())
		}
		in.metrics.batchesReportedTotal.Add(1)
		in.logger.Debugf("Recorded batch %s", types.BatchToString(msg.Batch))
	}

	if err := ack.Send(struct{}{}); err != nil {
		in.logger.Warnf("Acknowledgment of batch %s was already used: %v", digest.Short(), err)
	}
	return nil
}

// Has reports whether a batch was reported.
func (in *Intake) Has(digest types.BatchDigest) (bool, error) {
	return in.store.Has(digest)
}

// Service exposes the intake over the transport, where remote workers cannot pass an ack.
func (in *Intake) Service() comm.PrimaryServer {
	return &intakeService{intake: in}
}

type intakeService struct {
	intake *Intake
}

func (s *intakeService) ReportBatch(ctx context.Context, msg *types.WorkerBatchMessage) error {
	return s.intake.ReportBatch(ctx, msg, nil)
}
