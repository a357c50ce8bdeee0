package grpcapi

import (
	"context"
	"net"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection/grpc_reflection_v1alpha"
	"google.golang.org/grpc/test/bufconn"

	"github.com/xdpfeat/preprocessor/pkg/config"
	"github.com/xdpfeat/preprocessor/pkg/engine"
	"github.com/xdpfeat/preprocessor/pkg/feature"
)

func newTestEngine(t *testing.T) *engine.Engine {
	t.Helper()
	eng, err := engine.Init(config.Default("lo"), func(rec *feature.Record) int { return 0 })
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	return eng
}

func dial(t *testing.T, lis *bufconn.Listener) *grpc.ClientConn {
	t.Helper()
	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func TestNewReportsInitialServingStatus(t *testing.T) {
	eng := newTestEngine(t)
	srv := New(eng)
	if srv == nil {
		t.Fatal("New returned nil")
	}

	lis := bufconn.Listen(1024 * 1024)
	go srv.Serve(lis)
	defer srv.GracefulStop()

	conn := dial(t, lis)
	defer conn.Close()

	// eng was initialized but never started, so New advertises NOT_SERVING.
	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{})
	if err != nil {
		t.Fatalf("health check: %v", err)
	}
	if resp.Status != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("status = %v, want NOT_SERVING", resp.Status)
	}
}

func TestHealthAndReflectionRegistered(t *testing.T) {
	eng := newTestEngine(t)
	srv := New(eng)
	srv.SetServing(true)

	lis := bufconn.Listen(1024 * 1024)
	go srv.Serve(lis)
	defer srv.GracefulStop()

	conn := dial(t, lis)
	defer conn.Close()

	hc := healthpb.NewHealthClient(conn)
	resp, err := hc.Check(context.Background(), &healthpb.HealthCheckRequest{})
	if err != nil {
		t.Fatalf("health check: %v", err)
	}
	if resp.Status != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("status = %v, want SERVING", resp.Status)
	}

	rc := grpc_reflection_v1alpha.NewServerReflectionClient(conn)
	stream, err := rc.ServerReflectionInfo(context.Background())
	if err != nil {
		t.Fatalf("reflection stream: %v", err)
	}
	if err := stream.Send(&grpc_reflection_v1alpha.ServerReflectionRequest{
		MessageRequest: &grpc_reflection_v1alpha.ServerReflectionRequest_ListServices{},
	}); err != nil {
		t.Fatalf("send reflection request: %v", err)
	}
	if _, err := stream.Recv(); err != nil {
		t.Fatalf("recv reflection response: %v", err)
	}
}

func TestSetServingTogglesStatus(t *testing.T) {
	eng := newTestEngine(t)
	srv := New(eng)

	lis := bufconn.Listen(1024 * 1024)
	go srv.Serve(lis)
	defer srv.GracefulStop()

	conn := dial(t, lis)
	defer conn.Close()
	hc := healthpb.NewHealthClient(conn)

	srv.SetServing(false)
	resp, err := hc.Check(context.Background(), &healthpb.HealthCheckRequest{})
	if err != nil {
		t.Fatalf("health check: %v", err)
	}
	if resp.Status != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("status = %v, want NOT_SERVING", resp.Status)
	}

	srv.SetServing(true)
	resp, err = hc.Check(context.Background(), &healthpb.HealthCheckRequest{})
	if err != nil {
		t.Fatalf("health check: %v", err)
	}
	if resp.Status != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("status = %v, want SERVING", resp.Status)
	}
}
