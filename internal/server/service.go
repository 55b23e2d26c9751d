// Package server exposes intake, stage tracking and candidate reads over gRPC.
package server

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	hiringv1 "github.com/joseph-ayodele/hiring-pipeline/api/hiring/v1"
	"github.com/joseph-ayodele/hiring-pipeline/internal/common"
	"github.com/joseph-ayodele/hiring-pipeline/internal/export"
	"github.com/joseph-ayodele/hiring-pipeline/internal/logger"
	"github.com/joseph-ayodele/hiring-pipeline/internal/services/ingest"
	"github.com/joseph-ayodele/hiring-pipeline/internal/services/profile"
	"github.com/joseph-ayodele/hiring-pipeline/internal/tracker"
)

// Services are the business services behind the gRPC API.
type Services struct {
	Ingest   *ingest.Service
	Tracker  *tracker.Tracker
	Profiles *profile.Service
	Export   *export.Service
}

// NewGRPCServer registers every API service plus health and reflection.
// The health server starts in SERVING.
func NewGRPCServer(svcs Services, log *zap.Logger, opts ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	log = logger.OrNop(log)
	opts = append([]grpc.ServerOption{grpc.ChainUnaryInterceptor(unaryInterceptor(log))}, opts...)
	s := grpc.NewServer(opts...)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	reflection.Register(s)

	hiringv1.RegisterIngestionServiceServer(s, NewIngestionServer(svcs.Ingest, log))
	hiringv1.RegisterStageServiceServer(s, NewStageServer(svcs.Tracker, log))
	hiringv1.RegisterCandidateServiceServer(s, NewCandidateServer(svcs.Profiles, svcs.Export, log))
	for _, name := range []string{hiringv1.IngestionServiceName, hiringv1.StageServiceName, hiringv1.CandidateServiceName} {
		hs.SetServingStatus(name, healthpb.HealthCheckResponse_SERVING)
	}
	return s, hs
}

// unaryInterceptor translates domain errors to status codes and logs each call.
func unaryInterceptor(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		rid := requestID(ctx)
		ctx = common.WithRequestID(ctx, rid)
		resp, err := handler(ctx, req)
		err = common.ToStatus(err)
		code := status.Code(err)
		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.String("request_id", rid),
			zap.String("code", code.String()),
			zap.Duration("elapsed", time.Since(start)),
		}
		if err != nil {
			log.Warn("grpc.request.failed", append(fields, zap.Error(err))...)
			return nil, err
		}
		log.Debug("grpc.request.ok", fields...)
		return resp, nil
	}
}

// requestID honours a caller-supplied x-request-id and mints one otherwise.
func requestID(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if v := md.Get("x-request-id"); len(v) > 0 && v[0] != "" {
			return v[0]
		}
	}
	return uuid.NewString()
}
