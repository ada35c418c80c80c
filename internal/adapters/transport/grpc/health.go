package grpc

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is reported next to the overall ("") status.
const ServiceName = "gentlemale.v1.Backend"

type Checker interface {
	Check(ctx context.Context) error
}

// HealthReporter keeps the standard grpc.health.v1 service in step with
// the database and Redis probes.
type HealthReporter struct {
	server   *health.Server
	checker  Checker
	interval time.Duration
	log      *zap.Logger
}

func NewHealthReporter(checker Checker, interval time.Duration, log *zap.Logger) *HealthReporter {
	if log == nil {
		log = zap.NewNop()
	}
	s := health.NewServer()
	s.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	s.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return &HealthReporter{server: s, checker: checker, interval: interval, log: log}
}

func (h *HealthReporter) Server() *health.Server { return h.server }

// Probe runs the checker once and publishes the result.
func (h *HealthReporter) Probe(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	st := healthpb.HealthCheckResponse_SERVING
	if err := h.checker.Check(ctx); err != nil {
		h.log.Warn("health probe failed", zap.Error(err))
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.server.SetServingStatus("", st)
	h.server.SetServingStatus(ServiceName, st)
	return st
}

// Run probes until ctx is done, then marks everything NOT_SERVING so
// watchers see the shutdown.
func (h *HealthReporter) Run(ctx context.Context) error {
	t := time.NewTicker(h.interval)
	defer t.Stop()
	h.Probe(ctx)
	for {
		select {
		case <-ctx.Done():
			h.server.Shutdown()
			return nil
		case <-t.C:
			h.Probe(ctx)
		}
	}
}
