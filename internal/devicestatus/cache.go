// Package devicestatus caches the device connectivity probe so dashboard
// polling never hammers the router.
package devicestatus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/cuzonet/cuzonet-backend/pkg/routeros"
)

// Prober is the slice of the device client the cache needs.
type Prober interface {
	TestConnectivity(ctx context.Context) (string, error)
	ListQueues(ctx context.Context) ([]routeros.Queue, error)
}

// Status is one cached probe result. Failed probes are cached too, so a dead
// router is re-probed at most once per TTL.
type Status struct {
	Connected  bool      `json:"connected"`
	Message    string    `json:"message"`
	QueueCount int       `json:"queue_count"`
	CheckedAt  time.Time `json:"checked_at"`
}

// Cache serves the last probe result until it expires, collapsing concurrent
// refreshes into a single device round trip.
type Cache struct {
	prober Prober
	ttl    time.Duration
	now    func() time.Time

	group singleflight.Group

	mu      sync.RWMutex
	current *Status
}

// New builds a cache around the prober. A nil prober means no device is
// configured; every lookup then reports disconnected without touching the
// network.
func New(prober Prober, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &Cache{
		prober: prober,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Get returns the cached status, refreshing it when stale.
func (c *Cache) Get(ctx context.Context) Status {
	if c.prober == nil {
		return Status{
			Connected: false,
			Message:   "device not configured",
			CheckedAt: c.now(),
		}
	}

	if status, ok := c.fresh(); ok {
		return status
	}

	result, _, _ := c.group.Do("status", func() (any, error) {
		// Re-check under the flight: a concurrent caller may have
		// refreshed while this one waited.
		if status, ok := c.fresh(); ok {
			return status, nil
		}
		// The probe outlives the waiter that triggered it. A caller
		// hanging up mid-refresh must not get a cancellation cached
		// as "disconnected" for a whole TTL.
		status := c.probe(context.WithoutCancel(ctx))
		c.mu.Lock()
		c.current = &status
		c.mu.Unlock()
		return status, nil
	})
	return result.(Status)
}

// Invalidate drops the cached value so the next Get probes the device.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.current = nil
	c.mu.Unlock()
}

func (c *Cache) fresh() (Status, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current == nil {
		return Status{}, false
	}
	if c.now().Sub(c.current.CheckedAt) >= c.ttl {
		return Status{}, false
	}
	return *c.current, true
}

func (c *Cache) probe(ctx context.Context) Status {
	name, err := c.prober.TestConnectivity(ctx)
	if err != nil {
		return Status{
			Connected: false,
			Message:   err.Error(),
			CheckedAt: c.now(),
		}
	}

	queueCount := 0
	if queues, err := c.prober.ListQueues(ctx); err == nil {
		queueCount = len(queues)
	}

	return Status{
		Connected:  true,
		Message:    fmt.Sprintf("connected: %s", name),
		QueueCount: queueCount,
		CheckedAt:  c.now(),
	}
}
