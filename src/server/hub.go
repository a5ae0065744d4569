package server

import (
	"sync"
	"time"

	"broker-gateway/src/logger"
)

// -----------------------------------------------------------------------------
// Hub: connection registry + broadcast fan-out
// -----------------------------------------------------------------------------

const (
	// Size of the broadcast dispatch queue and of each client's send buffer.
	// Large enough to absorb bursts without blocking the emitting action.
	broadcastQueueSize = 256
	clientBufferSize   = 256

	// Per-handle delivery timeout during fan-out.
	defaultSendTimeout = 2 * time.Second
)

// Hub owns the set of live push subscribers and distributes event envelopes
// to them. Registration and broadcast iteration are safe to run concurrently:
// broadcasts operate on a copy-on-read snapshot of the registry.
type Hub struct {
	Logger *logger.Logger

	mu      sync.RWMutex
	clients map[*Client]struct{}

	queue       chan []byte
	done        chan struct{}
	stopOnce    sync.Once
	sendTimeout time.Duration
}

// -----------------------------------------------------------------------------

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		Logger:      log,
		clients:     make(map[*Client]struct{}),
		queue:       make(chan []byte, broadcastQueueSize),
		done:        make(chan struct{}),
		sendTimeout: defaultSendTimeout,
	}
}

// -----------------------------------------------------------------------------
// Registry
// -----------------------------------------------------------------------------

// Add registers a subscriber handle. Idempotent.
func (h *Hub) Add(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	total := len(h.clients)
	h.mu.Unlock()

	h.Logger.Debug("Subscriber %s registered (%d total)", c.id, total)
}

// -----------------------------------------------------------------------------

// Remove unregisters a subscriber handle and marks it dead. A handle is
// removed at most once; removing an absent handle is a no-op.
func (h *Hub) Remove(c *Client) {
	h.mu.Lock()
	_, present := h.clients[c]
	if present {
		delete(h.clients, c)
	}
	total := len(h.clients)
	h.mu.Unlock()

	if present {
		c.close()
		h.Logger.Debug("Subscriber %s removed (%d total)", c.id, total)
	}
}

// -----------------------------------------------------------------------------

// Snapshot returns the current handles for iteration without holding the
// registry lock across sends.
func (h *Hub) Snapshot() []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		out = append(out, c)
	}
	return out
}

// -----------------------------------------------------------------------------

// Count returns the number of connected subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// -----------------------------------------------------------------------------
// Fan-out
// -----------------------------------------------------------------------------

// Broadcast queues an envelope for delivery to every current subscriber.
// Fire-and-forget: it never reports delivery failures to the caller.
func (h *Hub) Broadcast(data []byte) {
	select {
	case h.queue <- data:
	case <-h.done:
	}
}

// -----------------------------------------------------------------------------

// Run drains the broadcast queue. It should be launched as a goroutine and
// exits when Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.closeAll()
			return
		case data := <-h.queue:
			h.dispatch(data)
		}
	}
}

// -----------------------------------------------------------------------------

// dispatch delivers one envelope to every handle in a registry snapshot.
// Deliveries run concurrently, each bounded by its own timeout, and are
// joined before the next envelope is dispatched. This keeps per-subscriber
// ordering while a single stalled subscriber can only cost one timeout.
func (h *Hub) dispatch(data []byte) {
	snapshot := h.Snapshot()
	if len(snapshot) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, c := range snapshot {
		wg.Add(1)
		go func(c *Client) {
			defer wg.Done()

			timer := time.NewTimer(h.sendTimeout)
			defer timer.Stop()

			select {
			case c.send <- data:
			case <-c.done:
				// Handle died between snapshot and delivery
			case <-timer.C:
				// Slow consumer: drop it so it can never stall the feed again
				h.Logger.Warning("Subscriber %s send timed out, removing", c.id)
				h.Remove(c)
			}
		}(c)
	}
	wg.Wait()
}

// -----------------------------------------------------------------------------

// Stop shuts the hub down and disconnects every subscriber. Safe to call
// multiple times.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
	})
}

// -----------------------------------------------------------------------------

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		c.close()
		delete(h.clients, c)
	}
}
