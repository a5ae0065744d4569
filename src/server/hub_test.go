package server

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"broker-gateway/src/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------

func newTestHub(t *testing.T) *Hub {
	t.Helper()

	h := NewHub(logger.NewLogger("hub-test"))
	go h.Run()
	t.Cleanup(h.Stop)
	return h
}

func receive(t *testing.T, c *Client) []byte {
	t.Helper()

	select {
	case msg := <-c.send:
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message delivered within 1s")
		return nil
	}
}

// -----------------------------------------------------------------------------

func TestHub_AddRemoveCount(t *testing.T) {
	h := newTestHub(t)

	a := newClient(h, nil)
	b := newClient(h, nil)

	h.Add(a)
	h.Add(a) // idempotent
	h.Add(b)
	assert.Equal(t, 2, h.Count())

	h.Remove(a)
	h.Remove(a) // absent handle is a no-op
	assert.Equal(t, 1, h.Count())

	// Removed handle is marked dead
	select {
	case <-a.done:
	default:
		t.Fatal("removed client should be marked dead")
	}
}

func TestHub_SnapshotIsACopy(t *testing.T) {
	h := newTestHub(t)

	a := newClient(h, nil)
	h.Add(a)

	snap := h.Snapshot()
	require.Len(t, snap, 1)

	h.Remove(a)
	assert.Len(t, snap, 1, "snapshot must not observe later removals")
	assert.Equal(t, 0, h.Count())
}

func TestHub_BroadcastReachesAllSubscribers(t *testing.T) {
	h := newTestHub(t)

	a := newClient(h, nil)
	b := newClient(h, nil)
	h.Add(a)
	h.Add(b)

	h.Broadcast([]byte("hello"))

	assert.Equal(t, "hello", string(receive(t, a)))
	assert.Equal(t, "hello", string(receive(t, b)))
}

func TestHub_BroadcastWithNoSubscribers(t *testing.T) {
	h := newTestHub(t)

	// Must not block or panic
	h.Broadcast([]byte("into the void"))
}

func TestHub_PerSubscriberOrdering(t *testing.T) {
	h := newTestHub(t)

	c := newClient(h, nil)
	h.Add(c)

	for i := 0; i < 10; i++ {
		h.Broadcast([]byte(fmt.Sprintf("msg-%d", i)))
	}

	for i := 0; i < 10; i++ {
		assert.Equal(t, fmt.Sprintf("msg-%d", i), string(receive(t, c)))
	}
}

func TestHub_SlowSubscriberIsDroppedOthersStillServed(t *testing.T) {
	h := newTestHub(t)
	h.sendTimeout = 50 * time.Millisecond

	slow := newClient(h, nil)
	fast := newClient(h, nil)
	h.Add(slow)
	h.Add(fast)

	// Saturate the slow subscriber's buffer so the next delivery blocks
	for i := 0; i < clientBufferSize; i++ {
		slow.send <- []byte("fill")
	}

	h.Broadcast([]byte("event"))

	assert.Equal(t, "event", string(receive(t, fast)))

	// The stalled handle gets pruned after its delivery timeout
	assert.Eventually(t, func() bool {
		return h.Count() == 1
	}, time.Second, 10*time.Millisecond)

	select {
	case <-slow.done:
	default:
		t.Fatal("slow client should be marked dead after removal")
	}
}

func TestHub_ConcurrentRegistrationDuringBroadcast(t *testing.T) {
	h := newTestHub(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := newClient(h, nil)
			h.Add(c)
			h.Broadcast([]byte("x"))
			h.Remove(c)
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, h.Count())
}

func TestHub_StopDisconnectsEveryone(t *testing.T) {
	h := NewHub(logger.NewLogger("hub-test"))
	go h.Run()

	c := newClient(h, nil)
	h.Add(c)

	h.Stop()
	h.Stop() // safe to call twice

	assert.Eventually(t, func() bool {
		select {
		case <-c.done:
			return true
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
}
