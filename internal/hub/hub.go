// Package hub fans per-tick trace snapshots out from the session loop to
// any number of consumers (HTTP monitor, stream subscribers). The loop is
// the only publisher and never blocks on a slow consumer. Snapshots are
// value copies; consumers must treat the contained slices as read-only.
package hub

import (
	"sync"

	"github.com/openvehicletools/can-tracer/internal/logging"
	"github.com/openvehicletools/can-tracer/internal/metrics"
	"github.com/openvehicletools/can-tracer/internal/tracer"
)

type BackpressurePolicy int

const (
	// PolicyDrop skips a full consumer; it catches up on a later tick.
	PolicyDrop BackpressurePolicy = iota
	// PolicyKick closes a full consumer instead.
	PolicyKick
)

// Consumer receives published snapshots on Out. The hub signals shutdown
// by closing Closed, never by closing Out.
type Consumer struct {
	Out       chan tracer.Snapshot
	Closed    chan struct{}
	closeOnce sync.Once
}

// Close signals the consumer is done (idempotent).
func (c *Consumer) Close() {
	c.closeOnce.Do(func() {
		close(c.Closed)
	})
}

type Hub struct {
	mu         sync.RWMutex
	consumers  map[*Consumer]struct{}
	latest     tracer.Snapshot
	hasLatest  bool
	OutBufSize int
	Policy     BackpressurePolicy
}

// New creates a Hub with default settings.
func New() *Hub { return &Hub{consumers: make(map[*Consumer]struct{})} }

// Subscribe registers a new consumer whose Out channel buffers up to buf
// snapshots; buf <= 0 uses the hub's configured OutBufSize.
func (h *Hub) Subscribe(buf int) *Consumer {
	if buf <= 0 {
		buf = h.OutBufSize
	}
	if buf < 1 {
		buf = 1
	}
	c := &Consumer{Out: make(chan tracer.Snapshot, buf), Closed: make(chan struct{})}
	h.mu.Lock()
	h.consumers[c] = struct{}{}
	cur := len(h.consumers)
	h.mu.Unlock()
	metrics.SetHubConsumers(cur)
	if cur == 1 {
		logging.L().Info("consumers_first_attached")
	}
	return c
}

// Unsubscribe detaches a consumer and closes it; safe to call multiple times.
func (h *Hub) Unsubscribe(c *Consumer) {
	h.mu.Lock()
	_, existed := h.consumers[c]
	if existed {
		delete(h.consumers, c)
	}
	cur := len(h.consumers)
	h.mu.Unlock()
	c.Close()
	metrics.SetHubConsumers(cur)
	if existed && cur == 0 {
		logging.L().Info("consumers_last_detached")
	}
}

// Publish stores snap as the latest and offers it to every consumer,
// honoring the backpressure policy.
func (h *Hub) Publish(snap tracer.Snapshot) {
	h.mu.Lock()
	h.latest = snap
	h.hasLatest = true
	consumers := make([]*Consumer, 0, len(h.consumers))
	for c := range h.consumers {
		consumers = append(consumers, c)
	}
	h.mu.Unlock()
	for _, c := range consumers {
		select {
		case c.Out <- snap:
		default:
			if h.Policy == PolicyKick {
				metrics.IncHubKick()
				c.Close() // reader sees Closed and unsubscribes
			} else {
				metrics.IncHubDrop()
			}
		}
	}
}

// Latest returns the most recently published snapshot; ok is false until
// the first Publish.
func (h *Hub) Latest() (tracer.Snapshot, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latest, h.hasLatest
}

// Count returns the number of attached consumers.
func (h *Hub) Count() int { h.mu.RLock(); n := len(h.consumers); h.mu.RUnlock(); return n }
