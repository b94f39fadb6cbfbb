package grpc

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/goleak"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakePinger struct {
	fail atomic.Bool
}

func (p *fakePinger) Ping(ctx context.Context) error {
	if p.fail.Load() {
		return errors.New("database is closed")
	}
	return nil
}

func startTestServer(t *testing.T, s *Server) healthpb.HealthClient {
	t.Helper()
	lis := bufconn.Listen(1024 * 1024)

	served := make(chan struct{})
	go func() {
		defer close(served)
		_ = s.Serve(lis)
	}()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() {
		conn.Close()
		<-served
	})
	return healthpb.NewHealthClient(conn)
}

func waitStatus(t *testing.T, client healthpb.HealthClient, service string, want healthpb.HealthCheckResponse_ServingStatus) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: service})
		if err == nil && resp.Status == want {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("service %q never reached %v (last: %v, err: %v)", service, want, resp.GetStatus(), err)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestServer_HealthFollowsPinger(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := NewServer(clock)
	client := startTestServer(t, s)

	waitStatus(t, client, "", healthpb.HealthCheckResponse_SERVING)
	waitStatus(t, client, ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	pinger := &fakePinger{}
	ctx, cancel := context.WithCancel(context.Background())
	s.Watch(ctx, pinger, time.Minute)
	waitStatus(t, client, ServiceName, healthpb.HealthCheckResponse_SERVING)

	pinger.fail.Store(true)
	if err := clock.BlockUntilContext(ctx, 1); err != nil {
		t.Fatal(err)
	}
	clock.Advance(time.Minute)
	waitStatus(t, client, ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	cancel()
	s.Stop()
}

func TestServer_StopMarksNotServing(t *testing.T) {
	s := NewServer(nil)
	client := startTestServer(t, s)
	waitStatus(t, client, "", healthpb.HealthCheckResponse_SERVING)

	s.health.Shutdown()
	waitStatus(t, client, "", healthpb.HealthCheckResponse_NOT_SERVING)
	s.Stop()
}
