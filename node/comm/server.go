/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package comm

import (
	"context"
	"net"
	"time"

	grpc_middleware "github.com/grpc-ecosystem/go-grpc-middleware"
	grpc_recovery "github.com/grpc-ecosystem/go-grpc-middleware/recovery"
	"github.com/hyperledger/fabric-x-dagpool/common/types"
	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/status"
)

const (
	DefaultMaxRecvMsgSize = 100 * 1024 * 1024
	DefaultMaxSendMsgSize = 100 * 1024 * 1024
)

// ServerConfig configures a Server.
type ServerConfig struct {
	MaxRecvMsgSize int
	MaxSendMsgSize int
	// KeepaliveInterval is how often the server pings an idle client, zero keeps the gRPC default.
	KeepaliveInterval time.Duration
	KeepaliveTimeout  time.Duration
}

// Server is a gRPC server speaking the dagpool wire codec.
type Server struct {
	logger   types.Logger
	server   *grpc.Server
	listener net.Listener
}

// NewServer binds address and prepares a server. Use port 0 to pick a free port.
func NewServer(address string, config ServerConfig, logger types.Logger) (*Server, error) {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to listen on %s", address)
	}

	if config.MaxRecvMsgSize == 0 {
		config.MaxRecvMsgSize = DefaultMaxRecvMsgSize
	}
	if config.MaxSendMsgSize == 0 {
		config.MaxSendMsgSize = DefaultMaxSendMsgSize
	}

	opts := []grpc.ServerOption{
		grpc.ForceServerCodec(wireCodec{}),
		grpc.MaxRecvMsgSize(config.MaxRecvMsgSize),
		grpc.MaxSendMsgSize(config.MaxSendMsgSize),
		grpc.UnaryInterceptor(grpc_middleware.ChainUnaryServer(
			grpc_recovery.UnaryServerInterceptor(grpc_recovery.WithRecoveryHandler(func(p interface{}) error {
				logger.Errorf("Recovered from panic in handler: %v", p)
				return status.Errorf(codes.Internal, "internal error")
			})),
			statusInterceptor(logger),
		)),
	}
	if config.KeepaliveInterval > 0 {
		opts = append(opts, grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    config.KeepaliveInterval,
			Timeout: config.KeepaliveTimeout,
		}))
	}

	return &Server{
		logger:   logger,
		server:   grpc.NewServer(opts...),
		listener: listener,
	}, nil
}

// RegisterWorker exposes the retrieval service of a worker.
func (s *Server) RegisterWorker(ws WorkerServer) {
	s.server.RegisterService(&workerServiceDesc, ws)
}

// RegisterTransactions exposes the transaction intake of a worker.
func (s *Server) RegisterTransactions(ts TransactionServer) {
	s.server.RegisterService(&transactionServiceDesc, ts)
}

// RegisterPrimary exposes the batch intake of a primary.
func (s *Server) RegisterPrimary(ps PrimaryServer) {
	s.server.RegisterService(&primaryServiceDesc, ps)
}

// Start serves until Stop is called.
func (s *Server) Start() error {
	s.logger.Infof("Serving on %s", s.Address())
	if err := s.server.Serve(s.listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return errors.Wrap(err, "gRPC server stopped with an error")
	}
	return nil
}

// Stop stops the server gracefully. It also releases the listener of a server that never started.
func (s *Server) Stop() {
	s.server.GracefulStop()
	_ = s.listener.Close()
}

// Address returns the address the server listens on.
func (s *Server) Address() string {
	return s.listener.Addr().String()
}

// statusInterceptor turns plain handler errors into gRPC statuses so clients see a code other than Unknown.
func statusInterceptor(logger types.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		resp, err := handler(ctx, req)
		if err == nil {
			return resp, nil
		}
		if _, ok := status.FromError(err); ok {
			return nil, err
		}
		logger.Warnf("Call to %s failed: %v", info.FullMethod, err)
		switch {
		case errors.Is(err, context.Canceled):
			return nil, status.Error(codes.Canceled, err.Error())
		case errors.Is(err, context.DeadlineExceeded):
			return nil, status.Error(codes.DeadlineExceeded, err.Error())
		default:
			return nil, status.Error(codes.Internal, err.Error())
		}
	}
}
