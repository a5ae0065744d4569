package server

import (
	"encoding/json"
	"testing"
	"time"

	"broker-gateway/src/logger"
	"broker-gateway/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------

func newTestEmitter(t *testing.T) (*Emitter, *Client) {
	t.Helper()

	h := newTestHub(t)
	c := newClient(h, nil)
	h.Add(c)
	return NewEmitter(h, logger.NewLogger("emitter-test")), c
}

func decodeEvent(t *testing.T, raw []byte) models.MEvent {
	t.Helper()

	var event models.MEvent
	require.NoError(t, json.Unmarshal(raw, &event))
	return event
}

// -----------------------------------------------------------------------------

func TestEmitter_EnvelopeShape(t *testing.T) {
	e, c := newTestEmitter(t)

	e.Emit("/portfolio/accounts", []string{"DU12345"})

	event := decodeEvent(t, receive(t, c))
	assert.Equal(t, "/portfolio/accounts", event.Source)
	assert.Equal(t, []interface{}{"DU12345"}, event.Payload)
	assert.Nil(t, event.Request)

	parsed, err := time.Parse(time.RFC3339Nano, event.Time)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC(), parsed, 5*time.Second)
}

func TestEmitter_RequestEcho(t *testing.T) {
	e, c := newTestEmitter(t)

	e.EmitWithRequest("/iserver/secdef/search", map[string]interface{}{"found": true}, map[string]interface{}{"symbol": "AAPL"})

	event := decodeEvent(t, receive(t, c))
	require.NotNil(t, event.Request)
	req, ok := event.Request.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "AAPL", req["symbol"])
}

func TestEmitter_RequestOmittedWhenAbsent(t *testing.T) {
	e, c := newTestEmitter(t)

	e.Emit("/health", "ok")

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(receive(t, c), &raw))
	_, present := raw["request"]
	assert.False(t, present, "request key should be omitted entirely")
}

func TestEmitter_UnserializablePayloadDegrades(t *testing.T) {
	e, c := newTestEmitter(t)

	e.Emit("/health", map[string]interface{}{"bad": make(chan int)})

	event := decodeEvent(t, receive(t, c))
	assert.Equal(t, "/health", event.Source)

	payload, ok := event.Payload.(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, payload["error"], "payload not serializable")
}

func TestEmitter_NoSubscribersIsNoOp(t *testing.T) {
	h := newTestHub(t)
	e := NewEmitter(h, logger.NewLogger("emitter-test"))

	// Must not block or fail
	e.Emit("/tickle", map[string]interface{}{"session": "abc"})
	assert.Equal(t, 0, h.Count())
}
