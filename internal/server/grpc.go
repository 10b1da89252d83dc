package server

import (
	"context"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/joseph-ayodele/invoice-intake/internal/common"
)

// ServiceName is the health service name reported next to the overall status.
const ServiceName = "invoice-intake"

// NewGRPCServer returns a gRPC server carrying only the health service.
func NewGRPCServer(logger *slog.Logger) (*grpc.Server, *health.Server) {
	if logger == nil {
		logger = slog.Default()
	}
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(statusErrors(logger)))
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	return srv, hs
}

// HealthWatch flips the health status to follow ping.
func HealthWatch(hs *health.Server, ping func(ctx context.Context) error, logger *slog.Logger) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		status := healthpb.HealthCheckResponse_SERVING
		err := ping(ctx)
		if err != nil {
			status = healthpb.HealthCheckResponse_NOT_SERVING
			logger.Warn("health.check_failed", "error", err)
		}
		hs.SetServingStatus("", status)
		hs.SetServingStatus(ServiceName, status)
		return err
	}
}

// statusErrors converts handler errors into gRPC status errors with the code
// of their error kind.
func statusErrors(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		resp, err := handler(ctx, req)
		if err != nil {
			err = common.ToStatus(err)
			logger.Warn("grpc.call_failed", "method", info.FullMethod, "code", common.Code(err).String(), "error", err)
		}
		return resp, err
	}
}
