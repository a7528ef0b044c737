/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package comm

import (
	"context"

	"github.com/hyperledger/fabric-x-dagpool/common/signal"
	"github.com/hyperledger/fabric-x-dagpool/common/types"
	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func dial(endpoint string, maxMsgSize int) (*grpc.ClientConn, error) {
	if maxMsgSize == 0 {
		maxMsgSize = DefaultMaxRecvMsgSize
	}
	conn, err := grpc.NewClient(endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(
			grpc.ForceCodec(wireCodec{}),
			grpc.MaxCallRecvMsgSize(maxMsgSize),
			grpc.MaxCallSendMsgSize(maxMsgSize),
		),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create a client to %s", endpoint)
	}
	return conn, nil
}

// WorkerClient requests batches from a single worker.
type WorkerClient struct {
	endpoint string
	conn     *grpc.ClientConn
}

// NewWorkerClient creates a client for the worker at endpoint. The connection is established lazily.
func NewWorkerClient(endpoint string, maxMsgSize int) (*WorkerClient, error) {
	conn, err := dial(endpoint, maxMsgSize)
	if err != nil {
		return nil, err
	}
	return &WorkerClient{endpoint: endpoint, conn: conn}, nil
}

func (c *WorkerClient) RequestBatch(ctx context.Context, req *types.RequestBatchRequest) (*types.RequestBatchResponse, error) {
	resp := &types.RequestBatchResponse{}
	if err := c.conn.Invoke(ctx, requestBatchMethod, req, resp); err != nil {
		return nil, errors.Wrapf(err, "failed requesting batch %s from %s", req.Batch.Short(), c.endpoint)
	}
	return resp, nil
}

func (c *WorkerClient) RequestBatches(ctx context.Context, req *types.RequestBatchesRequest) (*types.RequestBatchesResponse, error) {
	resp := &types.RequestBatchesResponse{}
	if err := c.conn.Invoke(ctx, requestBatchesMethod, req, resp); err != nil {
		return nil, errors.Wrapf(err, "failed requesting %d batches from %s", len(req.BatchDigests), c.endpoint)
	}
	return resp, nil
}

// Endpoint returns the worker address.
func (c *WorkerClient) Endpoint() string {
	return c.endpoint
}

func (c *WorkerClient) Close() error {
	return c.conn.Close()
}

// PrimaryClient reports sealed batches to a primary.
type PrimaryClient struct {
	endpoint string
	conn     *grpc.ClientConn
}

func NewPrimaryClient(endpoint string, maxMsgSize int) (*PrimaryClient, error) {
	conn, err := dial(endpoint, maxMsgSize)
	if err != nil {
		return nil, err
	}
	return &PrimaryClient{endpoint: endpoint, conn: conn}, nil
}

// ReportBatch sends msg to the primary. The ack fires once the primary replied successfully
// and is closed otherwise, so a waiting worker never hangs on a failed report.
func (c *PrimaryClient) ReportBatch(ctx context.Context, msg *types.WorkerBatchMessage, ack signal.PrimaryResponse) error {
	if err := c.conn.Invoke(ctx, reportBatchMethod, msg, &Empty{}); err != nil {
		ack.Close()
		return errors.Wrapf(err, "failed reporting batch to %s", c.endpoint)
	}
	_ = ack.Send(struct{}{})
	return nil
}

func (c *PrimaryClient) Close() error {
	return c.conn.Close()
}

// TransactionClient submits transactions to a worker.
type TransactionClient struct {
	endpoint string
	conn     *grpc.ClientConn
}

func NewTransactionClient(endpoint string, maxMsgSize int) (*TransactionClient, error) {
	conn, err := dial(endpoint, maxMsgSize)
	if err != nil {
		return nil, err
	}
	return &TransactionClient{endpoint: endpoint, conn: conn}, nil
}

// SubmitTransaction blocks until the worker sealed tx into a batch and returns the batch digest.
func (c *TransactionClient) SubmitTransaction(ctx context.Context, tx []byte) (types.BatchDigest, error) {
	resp := &types.SubmitTransactionResponse{}
	if err := c.conn.Invoke(ctx, submitTxMethod, &types.SubmitTransactionRequest{Tx: tx}, resp); err != nil {
		return types.BatchDigest{}, errors.Wrapf(err, "failed submitting a transaction to %s", c.endpoint)
	}
	if resp.Batch.IsZero() {
		return types.BatchDigest{}, errors.Errorf("%s replied without the digest of the batch", c.endpoint)
	}
	return resp.Batch, nil
}

func (c *TransactionClient) Close() error {
	return c.conn.Close()
}
