package middleware

import (
	"github.com/Miraines/gentlemale/backend/internal/adapters/transport/ratelimit"
	grpc_middleware "github.com/grpc-ecosystem/go-grpc-middleware"
	grpc_zap "github.com/grpc-ecosystem/go-grpc-middleware/logging/zap"
	grpc_recovery "github.com/grpc-ecosystem/go-grpc-middleware/recovery"
	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

// ChainUnaryServer orders the interceptors recovery, logging, metrics,
// per-IP limit.
func ChainUnaryServer(logger *zap.Logger, limiter *ratelimit.PerIP) grpc.UnaryServerInterceptor {
	return grpc_middleware.ChainUnaryServer(
		grpc_recovery.UnaryServerInterceptor(),
		grpc_zap.UnaryServerInterceptor(logger),
		grpc_prometheus.UnaryServerInterceptor,
		RateLimitPerIP(limiter),
	)
}

// ChainStreamServer covers streaming RPCs such as health Watch.
func ChainStreamServer(logger *zap.Logger, limiter *ratelimit.PerIP) grpc.StreamServerInterceptor {
	return grpc_middleware.ChainStreamServer(
		grpc_recovery.StreamServerInterceptor(),
		grpc_zap.StreamServerInterceptor(logger),
		grpc_prometheus.StreamServerInterceptor,
		StreamRateLimitPerIP(limiter),
	)
}
