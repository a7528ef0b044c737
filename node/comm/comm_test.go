/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package comm_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/hyperledger/fabric-x-dagpool/common/signal"
	"github.com/hyperledger/fabric-x-dagpool/common/types"
	"github.com/hyperledger/fabric-x-dagpool/node/comm"
	"github.com/hyperledger/fabric-x-dagpool/testutil"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type fakeWorker struct {
	batches map[types.BatchDigest]*types.Batch
	fail    error
	panic   bool
}

func (w *fakeWorker) RequestBatch(_ context.Context, req *types.RequestBatchRequest) (*types.RequestBatchResponse, error) {
	if w.panic {
		panic("boom")
	}
	if w.fail != nil {
		return nil, w.fail
	}
	return &types.RequestBatchResponse{Batch: w.batches[req.Batch]}, nil
}

func (w *fakeWorker) RequestBatches(_ context.Context, req *types.RequestBatchesRequest) (*types.RequestBatchesResponse, error) {
	if w.fail != nil {
		return nil, w.fail
	}
	resp := &types.RequestBatchesResponse{IsSizeLimitReached: true}
	for _, d := range req.BatchDigests {
		if b, ok := w.batches[d]; ok {
			resp.Batches = append(resp.Batches, b)
		}
	}
	return resp, nil
}

type fakePrimary struct {
	lock     sync.Mutex
	received []*types.WorkerBatchMessage
	fail     error
}

func (p *fakePrimary) ReportBatch(_ context.Context, msg *types.WorkerBatchMessage) error {
	if p.fail != nil {
		return p.fail
	}
	p.lock.Lock()
	defer p.lock.Unlock()
	p.received = append(p.received, msg)
	return nil
}

func startServer(t *testing.T, register func(s *comm.Server)) *comm.Server {
	srv, err := comm.NewServer("127.0.0.1:0", comm.ServerConfig{}, testutil.CreateLogger(t, 0))
	require.NoError(t, err)
	register(srv)

	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.NoError(t, srv.Start())
	}()
	t.Cleanup(func() {
		srv.Stop()
		<-done
	})
	return srv
}

func TestWorkerRoundTrip(t *testing.T) {
	batches := testutil.CreateBatches(3, 4, 32)
	worker := &fakeWorker{batches: map[types.BatchDigest]*types.Batch{}}
	for _, b := range batches {
		worker.batches[b.Digest()] = b
	}
	srv := startServer(t, func(s *comm.Server) { s.RegisterWorker(worker) })

	client, err := comm.NewWorkerClient(srv.Address(), 0)
	require.NoError(t, err)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resp, err := client.RequestBatch(ctx, &types.RequestBatchRequest{Batch: batches[1].Digest()})
	require.NoError(t, err)
	require.NotNil(t, resp.Batch)
	assert.True(t, batches[1].Equal(resp.Batch))

	resp, err = client.RequestBatch(ctx, &types.RequestBatchRequest{Batch: types.ComputeDigest([]byte{1})})
	require.NoError(t, err)
	assert.Nil(t, resp.Batch)

	multi, err := client.RequestBatches(ctx, &types.RequestBatchesRequest{BatchDigests: testutil.Digests(batches...)})
	require.NoError(t, err)
	require.Len(t, multi.Batches, 3)
	assert.True(t, multi.IsSizeLimitReached)
	for i, b := range multi.Batches {
		assert.Equal(t, batches[i].Digest(), b.Digest())
	}
}

func TestWorkerErrorsBecomeStatuses(t *testing.T) {
	worker := &fakeWorker{fail: errors.New("disk on fire")}
	srv := startServer(t, func(s *comm.Server) { s.RegisterWorker(worker) })

	client, err := comm.NewWorkerClient(srv.Address(), 0)
	require.NoError(t, err)
	defer client.Close()

	_, err = client.RequestBatches(context.Background(), &types.RequestBatchesRequest{})
	require.Error(t, err)
	st, ok := status.FromError(errors.Cause(err))
	require.True(t, ok)
	assert.Equal(t, codes.Internal, st.Code())
	assert.Contains(t, st.Message(), "disk on fire")

	panicking := startServer(t, func(s *comm.Server) { s.RegisterWorker(&fakeWorker{panic: true}) })
	client2, err := comm.NewWorkerClient(panicking.Address(), 0)
	require.NoError(t, err)
	defer client2.Close()

	_, err = client2.RequestBatch(context.Background(), &types.RequestBatchRequest{})
	require.Error(t, err)
	st, _ = status.FromError(errors.Cause(err))
	assert.Equal(t, codes.Internal, st.Code())
}

func TestUnreachableWorker(t *testing.T) {
	client, err := comm.NewWorkerClient("127.0.0.1:1", 0)
	require.NoError(t, err)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err = client.RequestBatch(ctx, &types.RequestBatchRequest{})
	require.Error(t, err)
	st, _ := status.FromError(errors.Cause(err))
	assert.Contains(t, []codes.Code{codes.Unavailable, codes.DeadlineExceeded}, st.Code())
}

func TestReportBatch(t *testing.T) {
	primary := &fakePrimary{}
	srv := startServer(t, func(s *comm.Server) { s.RegisterPrimary(primary) })

	client, err := comm.NewPrimaryClient(srv.Address(), 0)
	require.NoError(t, err)
	defer client.Close()

	batch := testutil.CreateBatch(7, 2, 10)
	ack, acked := signal.NewPrimaryResponse()
	require.NoError(t, client.ReportBatch(context.Background(), &types.WorkerBatchMessage{Batch: batch}, ack))

	_, err = acked.Wait(context.Background())
	require.NoError(t, err)

	primary.lock.Lock()
	require.Len(t, primary.received, 1)
	assert.Equal(t, batch.Digest(), primary.received[0].Batch.Digest())
	primary.lock.Unlock()

	// Without a listener the report still goes through.
	require.NoError(t, client.ReportBatch(context.Background(), &types.WorkerBatchMessage{Batch: batch}, nil))

	failing := startServer(t, func(s *comm.Server) { s.RegisterPrimary(&fakePrimary{fail: errors.New("not now")}) })
	client2, err := comm.NewPrimaryClient(failing.Address(), 0)
	require.NoError(t, err)
	defer client2.Close()

	ack, acked = signal.NewPrimaryResponse()
	require.Error(t, client2.ReportBatch(context.Background(), &types.WorkerBatchMessage{Batch: batch}, ack))
	_, err = acked.Wait(context.Background())
	require.ErrorIs(t, err, signal.ErrCancelled)
}

type echoSubmitter struct{}

func (echoSubmitter) SubmitTransaction(_ context.Context, req *types.SubmitTransactionRequest) (*types.SubmitTransactionResponse, error) {
	if len(req.Tx) == 0 {
		return nil, status.Error(codes.InvalidArgument, "empty transaction")
	}
	if string(req.Tx) == "lost" {
		return &types.SubmitTransactionResponse{}, nil
	}
	return &types.SubmitTransactionResponse{Batch: types.ComputeDigest(req.Tx)}, nil
}

func TestSubmitTransaction(t *testing.T) {
	srv := startServer(t, func(s *comm.Server) { s.RegisterTransactions(echoSubmitter{}) })

	client, err := comm.NewTransactionClient(srv.Address(), 0)
	require.NoError(t, err)
	defer client.Close()

	digest, err := client.SubmitTransaction(context.Background(), []byte("tx"))
	require.NoError(t, err)
	assert.Equal(t, types.ComputeDigest([]byte("tx")), digest)

	_, err = client.SubmitTransaction(context.Background(), nil)
	require.Error(t, err)
	st, _ := status.FromError(errors.Cause(err))
	assert.Equal(t, codes.InvalidArgument, st.Code())

	_, err = client.SubmitTransaction(context.Background(), []byte("lost"))
	require.ErrorContains(t, err, "replied without the digest of the batch")
}
