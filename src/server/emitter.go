package server

import (
	"encoding/json"
	"time"

	"broker-gateway/src/logger"
	"broker-gateway/src/models"
)

// -----------------------------------------------------------------------------
// Event Emitter
// -----------------------------------------------------------------------------

// Emitter builds event envelopes and hands them to the hub. Emitting is
// always safe: with no subscribers the broadcast is a no-op, and a payload
// that cannot be serialized degrades to an error marker instead of failing
// the action that produced it.
type Emitter struct {
	hub    *Hub
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewEmitter(hub *Hub, log *logger.Logger) *Emitter {
	return &Emitter{hub: hub, Logger: log}
}

// -----------------------------------------------------------------------------

// Emit broadcasts a payload under a source tag.
func (e *Emitter) Emit(source string, payload interface{}) {
	e.emit(source, payload, nil)
}

// -----------------------------------------------------------------------------

// EmitWithRequest broadcasts a payload along with an echo of the request
// that triggered it.
func (e *Emitter) EmitWithRequest(source string, payload, request interface{}) {
	e.emit(source, payload, request)
}

// -----------------------------------------------------------------------------

func (e *Emitter) emit(source string, payload, request interface{}) {
	event := models.MEvent{
		Time:    time.Now().UTC().Format(time.RFC3339Nano),
		Source:  source,
		Payload: payload,
		Request: request,
	}

	data, err := json.Marshal(event)
	if err != nil {
		e.Logger.Warning("Event payload for %s not serializable: %v", source, err)
		data, _ = json.Marshal(models.MEvent{
			Time:    event.Time,
			Source:  source,
			Payload: map[string]string{"error": "payload not serializable: " + err.Error()},
		})
	}

	e.hub.Broadcast(data)
}
