package devicestatus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cuzonet/cuzonet-backend/pkg/routeros"
)

type stubProber struct {
	mu         sync.Mutex
	probeCalls int
	name       string
	probeErr   error
	queues     []routeros.Queue
}

func (s *stubProber) TestConnectivity(ctx context.Context) (string, error) {
	s.mu.Lock()
	s.probeCalls++
	s.mu.Unlock()
	if s.probeErr != nil {
		return "", s.probeErr
	}
	return s.name, nil
}

func (s *stubProber) ListQueues(ctx context.Context) ([]routeros.Queue, error) {
	return s.queues, nil
}

func (s *stubProber) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.probeCalls
}

func TestGet_CachesWithinTTL(t *testing.T) {
	prober := &stubProber{name: "gateway", queues: []routeros.Queue{{ID: "*1"}, {ID: "*2"}}}
	cache := New(prober, time.Minute)

	now := time.Unix(1_700_000_000, 0)
	cache.now = func() time.Time { return now }

	first := cache.Get(context.Background())
	if !first.Connected {
		t.Fatalf("expected connected status, got %+v", first)
	}
	if first.QueueCount != 2 {
		t.Fatalf("expected queue count 2, got %d", first.QueueCount)
	}

	now = now.Add(30 * time.Second)
	second := cache.Get(context.Background())
	if prober.calls() != 1 {
		t.Fatalf("expected a single probe within TTL, got %d", prober.calls())
	}
	if second != first {
		t.Fatalf("expected cached status to be returned unchanged")
	}

	now = now.Add(31 * time.Second)
	cache.Get(context.Background())
	if prober.calls() != 2 {
		t.Fatalf("expected refresh after TTL expiry, got %d probes", prober.calls())
	}
}

func TestGet_FailureIsCachedToo(t *testing.T) {
	prober := &stubProber{probeErr: errors.New("connection refused")}
	cache := New(prober, time.Minute)

	status := cache.Get(context.Background())
	if status.Connected {
		t.Fatal("expected disconnected status")
	}
	cache.Get(context.Background())
	if prober.calls() != 1 {
		t.Fatalf("expected failed probe to be cached, got %d probes", prober.calls())
	}
}

type contextProber struct{ name string }

func (p *contextProber) TestConnectivity(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return p.name, nil
}

func (p *contextProber) ListQueues(ctx context.Context) ([]routeros.Queue, error) {
	return nil, ctx.Err()
}

func TestGet_CallerCancellationDoesNotPoisonCache(t *testing.T) {
	prober := &contextProber{name: "gateway"}
	cache := New(prober, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	status := cache.Get(ctx)
	if !status.Connected {
		t.Fatalf("expected probe to outlive the hung-up caller, got %+v", status)
	}

	second := cache.Get(context.Background())
	if !second.Connected {
		t.Fatalf("expected the good probe to be cached, got %+v", second)
	}
}

func TestGet_NilProberReportsNotConfigured(t *testing.T) {
	cache := New(nil, time.Minute)
	status := cache.Get(context.Background())
	if status.Connected {
		t.Fatal("expected disconnected status when no device is configured")
	}
	if status.Message != "device not configured" {
		t.Fatalf("unexpected message %q", status.Message)
	}
}

func TestGet_ConcurrentCallersShareOneProbe(t *testing.T) {
	prober := &stubProber{name: "gateway"}
	cache := New(prober, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cache.Get(context.Background())
		}()
	}
	wg.Wait()

	if prober.calls() != 1 {
		t.Fatalf("expected concurrent callers to share one probe, got %d", prober.calls())
	}
}

func TestInvalidate(t *testing.T) {
	prober := &stubProber{name: "gateway"}
	cache := New(prober, time.Minute)

	cache.Get(context.Background())
	cache.Invalidate()
	cache.Get(context.Background())

	if prober.calls() != 2 {
		t.Fatalf("expected invalidation to force a fresh probe, got %d", prober.calls())
	}
}
