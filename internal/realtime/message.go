// Package realtime fans forest snapshots out to connected listeners over
// WebSocket and Server-Sent Events.
//
// Import Path: nodetree.io/nodetree/internal/realtime
package realtime

import (
	"encoding/json"
	"fmt"
)

// Event names carried in Message.Event.
const (
	// EventNodes carries the full forest snapshot.
	EventNodes = "nodes"
	// EventUpdate is sent by clients to request a fresh broadcast.
	EventUpdate = "update"
)

// Message is the envelope written to listeners and carried over the bus.
type Message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewMessage marshals data once so every listener receives the same bytes.
func NewMessage(event string, data any) (Message, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Message{}, fmt.Errorf("marshal %s payload: %w", event, err)
	}
	return Message{Event: event, Data: raw}, nil
}
