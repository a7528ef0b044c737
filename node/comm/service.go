/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package comm

import (
	"context"

	"github.com/hyperledger/fabric-x-dagpool/common/types"
	"google.golang.org/grpc"
)

const (
	workerServiceName      = "dagpool.WorkerService"
	primaryServiceName     = "dagpool.PrimaryService"
	transactionServiceName = "dagpool.TransactionService"

	requestBatchMethod   = "/" + workerServiceName + "/RequestBatch"
	requestBatchesMethod = "/" + workerServiceName + "/RequestBatches"
	reportBatchMethod    = "/" + primaryServiceName + "/ReportBatch"
	submitTxMethod       = "/" + transactionServiceName + "/SubmitTransaction"
)

// WorkerServer is served by workers: it answers batch retrieval requests from the primary.
type WorkerServer interface {
	RequestBatch(ctx context.Context, req *types.RequestBatchRequest) (*types.RequestBatchResponse, error)
	RequestBatches(ctx context.Context, req *types.RequestBatchesRequest) (*types.RequestBatchesResponse, error)
}

// PrimaryServer is served by primaries: it receives the batches sealed by workers.
// A nil error means the primary durably recorded the batch reference.
type PrimaryServer interface {
	ReportBatch(ctx context.Context, msg *types.WorkerBatchMessage) error
}

// TransactionServer is served by workers: it admits client transactions and replies once they are sealed.
type TransactionServer interface {
	SubmitTransaction(ctx context.Context, req *types.SubmitTransactionRequest) (*types.SubmitTransactionResponse, error)
}

var workerServiceDesc = grpc.ServiceDesc{
	ServiceName: workerServiceName,
	HandlerType: (*WorkerServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "RequestBatch",
			Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
				in := new(types.RequestBatchRequest)
				if err := dec(in); err != nil {
					return nil, err
				}
				handler := func(ctx context.Context, req interface{}) (interface{}, error) {
					return srv.(WorkerServer).RequestBatch(ctx, req.(*types.RequestBatchRequest))
				}
				if interceptor == nil {
					return handler(ctx, in)
				}
				return interceptor(ctx, in, &grpc.UnaryServerInfo{Server: srv, FullMethod: requestBatchMethod}, handler)
			},
		},
		{
			MethodName: "RequestBatches",
			Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
				in := new(types.RequestBatchesRequest)
				if err := dec(in); err != nil {
					return nil, err
				}
				handler := func(ctx context.Context, req interface{}) (interface{}, error) {
					return srv.(WorkerServer).RequestBatches(ctx, req.(*types.RequestBatchesRequest))
				}
				if interceptor == nil {
					return handler(ctx, in)
				}
				return interceptor(ctx, in, &grpc.UnaryServerInfo{Server: srv, FullMethod: requestBatchesMethod}, handler)
			},
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "dagpool/worker",
}

var primaryServiceDesc = grpc.ServiceDesc{
	ServiceName: primaryServiceName,
	HandlerType: (*PrimaryServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "ReportBatch",
			Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
				in := new(types.WorkerBatchMessage)
				if err := dec(in); err != nil {
					return nil, err
				}
				handler := func(ctx context.Context, req interface{}) (interface{}, error) {
					if err := srv.(PrimaryServer).ReportBatch(ctx, req.(*types.WorkerBatchMessage)); err != nil {
						return nil, err
					}
					return &Empty{}, nil
				}
				if interceptor == nil {
					return handler(ctx, in)
				}
				return interceptor(ctx, in, &grpc.UnaryServerInfo{Server: srv, FullMethod: reportBatchMethod}, handler)
			},
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "dagpool/primary",
}

var transactionServiceDesc = grpc.ServiceDesc{
	ServiceName: transactionServiceName,
	HandlerType: (*TransactionServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "SubmitTransaction",
			Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
				in := new(types.SubmitTransactionRequest)
				if err := dec(in); err != nil {
					return nil, err
				}
				handler := func(ctx context.Context, req interface{}) (interface{}, error) {
					return srv.(TransactionServer).SubmitTransaction(ctx, req.(*types.SubmitTransactionRequest))
				}
				if interceptor == nil {
					return handler(ctx, in)
				}
				return interceptor(ctx, in, &grpc.UnaryServerInfo{Server: srv, FullMethod: submitTxMethod}, handler)
			},
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "dagpool/transaction",
}
