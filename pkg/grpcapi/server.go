// Package grpcapi exposes the engine's liveness and service directory over
// gRPC, following the teacher's pattern of registering the prebuilt
// health and reflection services rather than hand-authoring packet-level
// RPCs (spec §1's non-goal on a full remote protocol surface).
package grpcapi

import (
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/xdpfeat/preprocessor/pkg/engine"
)

// Server wraps a *grpc.Server pre-registered with health and reflection,
// driven by an Engine's running state.
type Server struct {
	grpc *grpc.Server
	hs   *health.Server
}

// New builds a Server backed by eng. The health service reports SERVING
// once eng has entered its running state and NOT_SERVING otherwise; the
// caller is responsible for calling SetServing as the engine transitions.
func New(eng *engine.Engine) *Server {
	hs := health.NewServer()
	gs := grpc.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	reflection.Register(gs)

	s := &Server{grpc: gs, hs: hs}
	s.SetServing(eng.Running())
	return s
}

// SetServing toggles the overall health status advertised to clients.
func (s *Server) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.hs.SetServingStatus("", status)
}

// Serve blocks accepting connections on lis until the listener closes or
// GracefulStop is called.
func (s *Server) Serve(lis net.Listener) error {
	return s.grpc.Serve(lis)
}

// GracefulStop stops accepting new RPCs and waits for pending ones to
// finish.
func (s *Server) GracefulStop() {
	s.grpc.GracefulStop()
}
