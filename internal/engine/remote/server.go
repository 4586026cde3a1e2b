// Package remote runs the engine contract over gRPC. Payloads are
// google.protobuf.Struct values holding the versioned JSON schema.
package remote

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/GoSim-25-26J-441/estimation-core/internal/engine"
	"github.com/GoSim-25-26J-441/estimation-core/internal/quantum"
	"github.com/GoSim-25-26J-441/estimation-core/pkg/logger"
)

const (
	// ServiceName is the fully qualified gRPC service name.
	ServiceName    = "qest.engine.v1.OptimizationEngine"
	optimizeMethod = "/" + ServiceName + "/Optimize"
)

type optimizationEngineServer interface {
	Optimize(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*optimizationEngineServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Optimize", Handler: optimizeHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "qest/engine/v1/engine.proto",
}

func optimizeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(optimizationEngineServer).Optimize(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: optimizeMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(optimizationEngineServer).Optimize(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// Server exposes an engine.Engine as the OptimizationEngine service.
type Server struct {
	eng engine.Engine
	log *slog.Logger
}

// Register installs eng on s. A nil logger uses logger.Default.
func Register(s grpc.ServiceRegistrar, eng engine.Engine, l *slog.Logger) *Server {
	srv := &Server{eng: eng, log: logger.OrDefault(l)}
	s.RegisterService(&serviceDesc, srv)
	return srv
}

// Optimize decodes and validates the request, runs the engine and
// encodes its response.
func (s *Server) Optimize(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if in == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	var req engine.Request
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	start := time.Now()
	resp, err := s.eng.Optimize(ctx, &req)
	if err != nil {
		s.log.Error("engine call failed", "job_id", req.JobID, "variant", req.Variant.String(), "error", err)
		if errors.Is(err, quantum.ErrValidation) {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		return nil, status.Error(codes.Internal, err.Error())
	}
	if resp == nil {
		s.log.Error("engine returned no response", "job_id", req.JobID, "variant", req.Variant.String())
		return nil, status.Error(codes.Internal, "engine returned no response")
	}
	if resp.SchemaVersion == "" {
		resp.SchemaVersion = engine.SchemaVersion
	}
	out, err := toStruct(resp)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	s.log.Info("engine call completed",
		"job_id", req.JobID,
		"variant", req.Variant.String(),
		"episodes", len(resp.Trajectory),
		"duration_ms", time.Since(start).Milliseconds())
	return out, nil
}
