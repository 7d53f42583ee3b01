package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/voltdrop/internal/config"
)

type fakeService struct {
	name     string
	startErr error
	block    bool
	stopErr  error
	stopped  int32
}

func (s *fakeService) Name() string { return s.name }

func (s *fakeService) Start(ctx context.Context) error {
	if s.block {
		<-ctx.Done()
		return nil
	}
	return s.startErr
}

func (s *fakeService) Stop(ctx context.Context) error {
	atomic.AddInt32(&s.stopped, 1)
	return s.stopErr
}

func TestRunnerStopsAllServicesWhenOneFails(t *testing.T) {
	failing := &fakeService{name: "failing", startErr: errors.New("listen failed")}
	blocking := &fakeService{name: "blocking", block: true}

	err := NewRunner(failing, blocking).Run(context.Background(), time.Second, nil)
	if err == nil || err.Error() != "listen failed" {
		t.Fatalf("expected start error, got %v", err)
	}
	if atomic.LoadInt32(&failing.stopped) != 1 || atomic.LoadInt32(&blocking.stopped) != 1 {
		t.Fatalf("all services should be stopped")
	}
}

func TestRunnerReturnsNilOnCancel(t *testing.T) {
	blocking := &fakeService{name: "blocking", block: true}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	if err := NewRunner(blocking).Run(ctx, time.Second, nil); err != nil {
		t.Fatalf("cancel should return nil, got %v", err)
	}
}

func TestRunnerReportsStopErrorsAfterCleanShutdown(t *testing.T) {
	stuck := &fakeService{name: "scheduler", block: true, stopErr: errors.New("drain timeout")}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewRunner(stuck).Run(ctx, time.Second, nil)
	if err == nil || err.Error() != "drain timeout" {
		t.Fatalf("expected stop error, got %v", err)
	}
}

func TestHTTPServiceFailsFastOnBusyPort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	defer ln.Close()

	svc := NewHTTPService(ln.Addr().String(), http.NotFoundHandler(), config.ServerConfig{WriteTimeoutSeconds: 5})
	if svc.server.WriteTimeout != 5*time.Second || svc.server.IdleTimeout != httpIdleTimeout {
		t.Fatalf("unexpected timeouts: write=%v idle=%v", svc.server.WriteTimeout, svc.server.IdleTimeout)
	}
	if err := svc.Start(context.Background()); err == nil {
		t.Fatalf("expected address in use error")
	}
}

func TestBuildRunnerRejectsBadInput(t *testing.T) {
	if _, err := BuildRunner(nil, ModeAll); err == nil {
		t.Fatalf("expected nil config error")
	}
	if _, err := BuildRunner(&config.Config{}, "scheduler"); err == nil {
		t.Fatalf("expected unknown mode error")
	}
}

func TestNormalizeOptionsDefaults(t *testing.T) {
	opts := normalizeOptions(Options{})
	if opts.Mode != ModeAll || opts.ShutdownTimeout != 10*time.Second || opts.Logger == nil {
		t.Fatalf("unexpected defaults: %+v", opts)
	}
}
