package middleware

import (
	"context"
	"net"

	"github.com/Miraines/gentlemale/backend/internal/adapters/transport/ratelimit"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

var errRateLimited = status.Error(codes.ResourceExhausted, "rate limit exceeded")

func peerIP(ctx context.Context) (string, bool) {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return "", false
	}
	host, _, err := net.SplitHostPort(p.Addr.String())
	if err != nil {
		return p.Addr.String(), true
	}
	return host, true
}

func allow(ctx context.Context, l *ratelimit.PerIP) bool {
	ip, ok := peerIP(ctx)
	return ok && l.Allow(ip)
}

// RateLimitPerIP shares its buckets with the HTTP limiter when given the
// same *ratelimit.PerIP. Calls without a peer address are rejected.
func RateLimitPerIP(l *ratelimit.PerIP) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if !allow(ctx, l) {
			return nil, errRateLimited
		}
		return handler(ctx, req)
	}
}

func StreamRateLimitPerIP(l *ratelimit.PerIP) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, _ *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if !allow(ss.Context(), l) {
			return errRateLimited
		}
		return handler(srv, ss)
	}
}
