package server

import (
	"context"
	"net"
	"time"

	"github.com/Miraines/gentlemale/backend/internal/adapters/transport/grpc/middleware"
	"github.com/Miraines/gentlemale/backend/internal/adapters/transport/ratelimit"
	"github.com/Miraines/gentlemale/backend/internal/infra/config"
	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

const shutdownTimeout = 5 * time.Second

// NewGRPCServer builds the server with the interceptor chain, health and
// reflection registered. TLS is used when both cert and key are configured.
func NewGRPCServer(cfg *config.Config, hs *health.Server, limiter *ratelimit.PerIP, logger *zap.Logger) (*grpc.Server, error) {
	opts := []grpc.ServerOption{
		grpc.UnaryInterceptor(middleware.ChainUnaryServer(logger, limiter)),
		grpc.StreamInterceptor(middleware.ChainStreamServer(logger, limiter)),
	}
	if cfg.TLSEnabled() {
		creds, err := credentials.NewServerTLSFromFile(cfg.HTTPSCertFile, cfg.HTTPSKeyFile)
		if err != nil {
			return nil, errors.Wrap(err, "load gRPC TLS credentials")
		}
		opts = append(opts, grpc.Creds(creds))
	}

	s := grpc.NewServer(opts...)
	healthpb.RegisterHealthServer(s, hs)
	grpc_prometheus.Register(s)
	grpc_prometheus.EnableHandlingTimeHistogram()
	reflection.Register(s)
	return s, nil
}

// ServeGRPC listens on addr until ctx is cancelled, then stops gracefully,
// forcing a hard stop after shutdownTimeout.
func ServeGRPC(ctx context.Context, s *grpc.Server, addr string, logger *zap.Logger) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "listen %s", addr)
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("gRPC server listening", zap.String("addr", lis.Addr().String()))
		if err := s.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return errors.Wrap(err, "serve gRPC")
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info("ctx cancelled, stopping gRPC server")

	done := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(done)
	}()

	select {
	case <-time.After(shutdownTimeout):
		s.Stop()
	case <-done:
	}
	logger.Info("gRPC server stopped")
	return nil
}
